// Package services provides business logic and orchestration services.
//
// The agenda uses a strategy per entry kind to decide whether a timeline
// entry is paid, pending or late.
package services

import (
	"fmt"
	"sort"
	"sync"

	"casalfinance/internal/core"
)

// DefaultIncomeDay is the day of month used for incomes without a receipt date.
const DefaultIncomeDay = 5

type (
	EntryKind string

	EntryStatus string

	// AgendaItem is one dated event on the month timeline.
	AgendaItem struct {
		ID     string
		Day    int
		Date   core.Date
		Name   string
		Amount core.Money
		Kind   EntryKind
		Status EntryStatus
	}
)

const (
	KindExpense EntryKind = "EXPENSE"
	KindIncome  EntryKind = "INCOME"

	StatusPaid    EntryStatus = "PAID"
	StatusPending EntryStatus = "PENDING"
	StatusLate    EntryStatus = "LATE"
)

// StatusResolver is the strategy interface deciding an entry's status.
type StatusResolver interface {
	Status(item AgendaItem, paid bool, today core.Date) EntryStatus
}

// ExpenseStatus marks unpaid expenses late once their date has passed within
// today's month.
type ExpenseStatus struct{}

func (ExpenseStatus) Status(item AgendaItem, paid bool, today core.Date) EntryStatus {
	if paid {
		return StatusPaid
	}
	if item.Date.Before(today.Time) && core.SameMonth(item.Date, today) {
		return StatusLate
	}
	return StatusPending
}

// IncomeStatus treats incomes as always available.
type IncomeStatus struct{}

func (IncomeStatus) Status(AgendaItem, bool, core.Date) EntryStatus {
	return StatusPaid
}

var (
	strategiesMu     sync.RWMutex
	statusStrategies = map[EntryKind]StatusResolver{
		KindExpense: ExpenseStatus{},
		KindIncome:  IncomeStatus{},
	}
)

// GetStatusResolver returns the resolver registered for kind.
func GetStatusResolver(kind EntryKind) (StatusResolver, error) {
	strategiesMu.RLock()
	r, ok := statusStrategies[kind]
	strategiesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown entry kind: %s", kind)
	}
	return r, nil
}

// RegisterStatusResolver replaces or adds the resolver for kind.
func RegisterStatusResolver(kind EntryKind, r StatusResolver) {
	strategiesMu.Lock()
	defer strategiesMu.Unlock()
	statusStrategies[kind] = r
}

func resolve(item AgendaItem, paid bool, today core.Date) AgendaItem {
	if r, err := GetStatusResolver(item.Kind); err == nil {
		item.Status = r.Status(item, paid, today)
	} else {
		item.Status = StatusPending
	}
	return item
}

// BuildAgenda lays out month m: the expenses attributed to it at their
// reference date and every income at its receipt day (or DefaultIncomeDay,
// clamped to the month's last day), ordered by day.
func BuildAgenda(m core.Month, ledger []core.Expense, incomes []core.IncomeItem, today core.Date) []AgendaItem {
	var items []AgendaItem
	for _, e := range core.ExpensesInMonth(ledger, m) {
		d := e.ReferenceDate()
		items = append(items, resolve(AgendaItem{
			ID:     e.ID,
			Day:    d.Day(),
			Date:   d,
			Name:   e.Name,
			Amount: e.Amount,
			Kind:   KindExpense,
		}, e.IsPaid, today))
	}
	for _, in := range incomes {
		day := DefaultIncomeDay
		if !in.ReceiptDate.IsEmpty() {
			day = in.ReceiptDate.Day()
		}
		day = m.ClampDay(day)
		items = append(items, resolve(AgendaItem{
			ID:     in.ID,
			Day:    day,
			Date:   core.NewDate(m.Year, int(m.Month), day),
			Name:   in.Name,
			Amount: in.Amount,
			Kind:   KindIncome,
		}, true, today))
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Day < items[j].Day })
	return items
}
