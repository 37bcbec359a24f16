package core

// TotalIncome sums every income entry of one person. FIXED and VARIABLE
// entries are aggregated uniformly; there is no designated "primary" item.
func TotalIncome(items []IncomeItem) Money {
	var total Money
	for _, i := range items {
		total = total.Add(i.Amount)
	}
	return total
}

// BaseIncome sums the FIXED (salary-like) entries.
func BaseIncome(items []IncomeItem) Money {
	return sumKind(items, Fixed)
}

// ExtraIncome sums the VARIABLE (one-off) entries.
func ExtraIncome(items []IncomeItem) Money {
	return sumKind(items, Variable)
}

func sumKind(items []IncomeItem, kind IncomeKind) Money {
	var total Money
	for _, i := range items {
		if i.Kind == kind {
			total = total.Add(i.Amount)
		}
	}
	return total
}

// Proportion returns each person's share of the combined income in percent.
// A zero combined total yields (0, 0).
func Proportion(a, b Money) (pctA, pctB float64) {
	total := a.Cents + b.Cents
	if total <= 0 {
		return 0, 0
	}
	pctA = float64(a.Cents) / float64(total) * 100
	pctB = float64(b.Cents) / float64(total) * 100
	return pctA, pctB
}
