package core

import "github.com/shopspring/decimal"

// Budget rule ratios (50/30/20). Fixed; not configurable at runtime.
var (
	EssentialRatio = decimal.RequireFromString("0.50")
	LifestyleRatio = decimal.RequireFromString("0.30")
	GoalsRatio     = decimal.RequireFromString("0.20")
)

// Limits holds the spending ceiling of each pillar.
type Limits struct {
	Essential Money
	Lifestyle Money
	Goals     Money
}

// For returns the ceiling of pillar p.
func (l Limits) For(p Pillar) Money {
	switch p {
	case Essential:
		return l.Essential
	case Lifestyle:
		return l.Lifestyle
	case Goals:
		return l.Goals
	}
	return Money{}
}

// Ceilings splits the total income into the three pillar ceilings, rounding
// each to cents.
func Ceilings(totalIncome Money) Limits {
	income := totalIncome.Decimal()
	return Limits{
		Essential: FromDecimal(income.Mul(EssentialRatio)),
		Lifestyle: FromDecimal(income.Mul(LifestyleRatio)),
		Goals:     FromDecimal(income.Mul(GoalsRatio)),
	}
}

// ExpensesInMonth returns the expenses whose reference date falls in m.
func ExpensesInMonth(ledger []Expense, m Month) []Expense {
	var out []Expense
	for _, e := range ledger {
		if m.Contains(e.ReferenceDate()) {
			out = append(out, e)
		}
	}
	return out
}

// SpendByPillar sums the expenses attributed to month m per pillar.
// Every pillar is present in the result, possibly with zero.
func SpendByPillar(ledger []Expense, m Month) map[Pillar]Money {
	totals := make(map[Pillar]Money, len(Pillars))
	for _, p := range Pillars {
		totals[p] = Money{}
	}
	for _, e := range ExpensesInMonth(ledger, m) {
		totals[e.Pillar] = totals[e.Pillar].Add(e.Amount)
	}
	return totals
}

// TotalSpent sums all pillar totals.
func TotalSpent(totals map[Pillar]Money) Money {
	var sum Money
	for _, v := range totals {
		sum = sum.Add(v)
	}
	return sum
}

// MonthSummary is the full set of values derived in one recompute pass.
type MonthSummary struct {
	Month       Month
	Expenses    []Expense
	IncomeA     Money
	IncomeB     Money
	TotalIncome Money
	PercentA    float64
	PercentB    float64
	Limits      Limits
	Totals      map[Pillar]Money
	TotalSpent  Money
}

// Remaining returns the unspent part of pillar p's ceiling; negative when
// the ceiling is exceeded.
func (s MonthSummary) Remaining(p Pillar) Money {
	return s.Limits.For(p).Sub(s.Totals[p])
}

// Summarize derives the month view from a ledger and income snapshot.
func Summarize(ledger []Expense, incomesA, incomesB []IncomeItem, m Month) MonthSummary {
	incomeA := TotalIncome(incomesA)
	incomeB := TotalIncome(incomesB)
	total := incomeA.Add(incomeB)
	pctA, pctB := Proportion(incomeA, incomeB)
	totals := SpendByPillar(ledger, m)

	return MonthSummary{
		Month:       m,
		Expenses:    ExpensesInMonth(ledger, m),
		IncomeA:     incomeA,
		IncomeB:     incomeB,
		TotalIncome: total,
		PercentA:    pctA,
		PercentB:    pctB,
		Limits:      Ceilings(total),
		Totals:      totals,
		TotalSpent:  TotalSpent(totals),
	}
}
