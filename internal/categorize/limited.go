package categorize

import (
	"context"
	"errors"

	"casalfinance/internal/ratelimit"
)

var ErrRateLimited = errors.New("too many categorization requests, try again in a minute")

// LimitedClassifier rejects calls beyond the limiter's budget for scope.
type LimitedClassifier struct {
	next    Classifier
	limiter *ratelimit.Limiter
	scope   string
}

func NewLimitedClassifier(next Classifier, limiter *ratelimit.Limiter, scope string) *LimitedClassifier {
	return &LimitedClassifier{next: next, limiter: limiter, scope: scope}
}

func (c *LimitedClassifier) Classify(ctx context.Context, in Input, labels []string) (Suggestion, error) {
	if err := in.Validate(); err != nil {
		return Suggestion{}, err
	}
	if !c.limiter.Allow(c.scope) {
		return Suggestion{}, ErrRateLimited
	}
	return c.next.Classify(ctx, in, labels)
}
