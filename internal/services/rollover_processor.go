package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"casalfinance/internal/core"
	"casalfinance/internal/log"
	"casalfinance/internal/storage"
)

// RolloverProcessor moves every stored household into the current month so
// recurring expenses are cloned without waiting for someone to open it.
type RolloverProcessor struct {
	store     storage.Store
	publisher Publisher
}

func NewRolloverProcessor(store storage.Store, publisher Publisher) *RolloverProcessor {
	return &RolloverProcessor{store: store, publisher: publisher}
}

// ProcessHouseholds loads each household with now as the current time and
// returns the total number of cloned expenses. A failing household is logged
// and skipped.
func (p *RolloverProcessor) ProcessHouseholds(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	households, err := p.store.Households(ctx)
	if err != nil {
		return 0, fmt.Errorf("list households: %w", err)
	}

	month := core.MonthOf(core.DateOf(now))
	slog.InfoContext(ctx, "Processing month rollover",
		log.FieldMonth, month.String(),
		"households", len(households))

	total := 0
	for _, id := range households {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		opts := []Option{WithClock(func() time.Time { return now })}
		if p.publisher != nil {
			opts = append(opts, WithPublisher(p.publisher))
		}
		h := NewHousehold(id, p.store, opts...)

		before, err := storage.Load(ctx, p.store, id, storage.KeyExpenses, []core.Expense(nil))
		if err != nil {
			slog.ErrorContext(ctx, "Failed to read household ledger",
				log.FieldHousehold, id,
				log.FieldError, err)
			continue
		}
		if err := h.Load(ctx); err != nil {
			slog.ErrorContext(ctx, "Failed to roll household over",
				log.FieldHousehold, id,
				log.FieldError, err)
			continue
		}

		cloned := len(h.Expenses()) - len(before)
		total += cloned
		if cloned > 0 {
			slog.InfoContext(ctx, "Household rolled over",
				log.FieldHousehold, id,
				log.FieldMonth, month.String(),
				log.FieldCount, cloned)
		}
	}

	slog.InfoContext(ctx, "Month rollover complete",
		"cloned", total,
		"households", len(households))
	return total, nil
}
