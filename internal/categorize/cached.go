package categorize

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"casalfinance/internal/cache"
)

// CachedClassifier remembers suggestions for identical inputs.
type CachedClassifier struct {
	next  Classifier
	cache cache.Cache[Suggestion]
}

func NewCachedClassifier(next Classifier, c cache.Cache[Suggestion]) *CachedClassifier {
	return &CachedClassifier{next: next, cache: c}
}

func (c *CachedClassifier) Classify(ctx context.Context, in Input, labels []string) (Suggestion, error) {
	if err := in.Validate(); err != nil {
		return Suggestion{}, err
	}
	key := cacheKey(in, labels)
	if s, ok := c.cache.Get(key); ok {
		return s, nil
	}
	s, err := c.next.Classify(ctx, in, labels)
	if err != nil {
		return Suggestion{}, err
	}
	c.cache.Set(key, s)
	return s, nil
}

func cacheKey(in Input, labels []string) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(in.Text)))
	h.Write([]byte{0})
	h.Write([]byte(in.MIMEType))
	h.Write([]byte{0})
	h.Write(in.Image)
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(labels, "\x1f")))
	return hex.EncodeToString(h.Sum(nil))
}
