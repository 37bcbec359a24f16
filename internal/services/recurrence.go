package services

import (
	"casalfinance/internal/core"
)

// HasEntries reports whether any expense is attributed to month m.
func HasEntries(ledger []core.Expense, m core.Month) bool {
	for _, e := range ledger {
		if m.Contains(e.ReferenceDate()) {
			return true
		}
	}
	return false
}

// Templates returns the recurring expenses of the month before active.
func Templates(ledger []core.Expense, active core.Month) []core.Expense {
	prev := active.Add(-1)
	var out []core.Expense
	for _, e := range ledger {
		if e.IsRecurring && prev.Contains(e.ReferenceDate()) {
			out = append(out, e)
		}
	}
	return out
}

// Advance produces the clones that carry last month's recurring expenses
// into active. It returns nil when active already has entries, so calling it
// again for the same month is a no-op.
//
// Each clone keeps the template's fields, gets a fresh id, has its purchase
// and due days moved into active and starts unpaid. A template without a due
// date gets the moved purchase date.
func Advance(ledger []core.Expense, active core.Month, newID func() string) []core.Expense {
	if HasEntries(ledger, active) {
		return nil
	}
	templates := Templates(ledger, active)
	if len(templates) == 0 {
		return nil
	}

	clones := make([]core.Expense, 0, len(templates))
	for _, t := range templates {
		c := t
		c.ID = newID()
		c.PurchaseDate = core.Transpose(t.PurchaseDate, active)
		if t.DueDate.IsEmpty() {
			c.DueDate = c.PurchaseDate
		} else {
			c.DueDate = core.Transpose(t.DueDate, active)
		}
		c.IsPaid = false
		clones = append(clones, c)
	}
	return clones
}
