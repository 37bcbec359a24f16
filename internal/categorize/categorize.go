// Package categorize turns free text or a receipt image into an expense
// suggestion through an external model. Everything the model returns is
// treated as untrusted and passes through Sanitize.
package categorize

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"casalfinance/internal/core"
)

const maxNameRunes = 100

// MaxAmount caps suggested amounts.
var MaxAmount = decimal.RequireFromString("1000000.00")

var (
	ErrEmptyInput    = errors.New("text or image is required")
	ErrNoSuggestion  = errors.New("model returned no suggestion")
	ErrNotConfigured = errors.New("categorization not configured")
)

// Input is what the user handed over: a description, a receipt image or both.
type Input struct {
	Text     string
	Image    []byte
	MIMEType string
}

func (in Input) Validate() error {
	if strings.TrimSpace(in.Text) == "" && len(in.Image) == 0 {
		return ErrEmptyInput
	}
	return nil
}

// Raw is the model's unchecked answer.
type Raw struct {
	Name        string  `json:"name"`
	Amount      float64 `json:"amount"`
	SubCategory string  `json:"subCategory"`
}

// Suggestion is a sanitized guess ready to prefill an expense.
type Suggestion struct {
	Name        string
	Amount      core.Money
	SubCategory string
	Pillar      core.Pillar
}

// Classifier suggests an expense for an input, choosing the subcategory from
// labels.
type Classifier interface {
	Classify(ctx context.Context, in Input, labels []string) (Suggestion, error)
}

// Sanitize applies the untrusted-data rules to a model answer:
// the amount is made positive and capped at MaxAmount, markup and control
// characters are stripped from the name, an unknown subcategory becomes
// Other and the pillar is found by reverse lookup.
func Sanitize(raw Raw) Suggestion {
	amount := decimal.NewFromFloat(raw.Amount).Abs()
	if amount.GreaterThan(MaxAmount) {
		amount = MaxAmount
	}

	sub := core.MatchSubCategory(raw.SubCategory)
	pillar, ok := core.PillarOf(sub)
	if !ok {
		pillar = core.Essential
	}

	return Suggestion{
		Name:        SanitizeName(raw.Name),
		Amount:      core.FromDecimal(amount),
		SubCategory: sub,
		Pillar:      pillar,
	}
}

// SanitizeName removes <>{}[]` and control characters, trims and caps the
// result at 100 characters.
func SanitizeName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '{', '}', '[', ']', '`':
			return -1
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > maxNameRunes {
		s = strings.TrimSpace(string(r[:maxNameRunes]))
	}
	return s
}
