package services

import (
	"context"
	"fmt"
	"log/slog"

	"casalfinance/internal/categorize"
	"casalfinance/internal/core"
	"casalfinance/internal/log"
	"casalfinance/internal/storage"
)

// Export returns the backup document of every stored record.
func (h *Household) Export(ctx context.Context) ([]byte, error) {
	return storage.Export(ctx, h.store, h.id, h.now())
}

// Import replaces every stored record with the backup's, announces each
// restored record and reloads the session. An invalid backup changes nothing.
func (h *Household) Import(ctx context.Context, data []byte) (int, error) {
	n, err := storage.Import(ctx, h.store, h.id, data)
	if err != nil {
		return n, err
	}

	keys, err := h.store.List(ctx, h.id)
	if err != nil {
		return n, fmt.Errorf("list restored records: %w", err)
	}
	for _, key := range keys {
		// Rewriting gives each restored record a fresh version to announce.
		raw, ok, err := h.store.Get(ctx, h.id, key)
		if err != nil || !ok {
			continue
		}
		version, err := h.store.Set(ctx, h.id, key, raw)
		if err != nil {
			return n, fmt.Errorf("restore %s: %w", key, err)
		}
		h.announce(ctx, key, version)
	}

	return n, h.Load(ctx)
}

// Reset removes every stored record and reloads an empty session.
func (h *Household) Reset(ctx context.Context) error {
	if err := storage.Reset(ctx, h.store, h.id); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Household data reset",
		log.FieldHousehold, h.id,
		log.FieldOperation, log.OpDelete)
	return h.Load(ctx)
}

// SuggestExpense asks c for a draft expense dated today. The draft is not
// saved; pass it to AddExpense once confirmed.
func (h *Household) SuggestExpense(ctx context.Context, c categorize.Classifier, in categorize.Input) (core.Expense, error) {
	if c == nil {
		return core.Expense{}, categorize.ErrNotConfigured
	}
	s, err := c.Classify(ctx, in, core.Labels())
	if err != nil {
		return core.Expense{}, err
	}
	today := core.DateOf(h.now())
	return core.Expense{
		Name:          s.Name,
		Amount:        s.Amount,
		Pillar:        s.Pillar,
		SubCategory:   s.SubCategory,
		PurchaseDate:  today,
		DueDate:       today,
		PaymentMethod: core.Debit,
	}, nil
}
