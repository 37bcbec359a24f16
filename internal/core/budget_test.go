package core

import (
	"math"
	"testing"
	"time"
)

func income(amounts ...int64) []IncomeItem {
	var out []IncomeItem
	for i, a := range amounts {
		kind := Fixed
		if i > 0 {
			kind = Variable
		}
		out = append(out, IncomeItem{Name: "income", Amount: Cents(a), Kind: kind})
	}
	return out
}

func TestProportion(t *testing.T) {
	cases := []struct {
		a, b         int64
		wantA, wantB float64
	}{
		{300000, 100000, 75, 25},
		{0, 0, 0, 0},
		{0, 5000, 0, 100},
		{100, 200, 100.0 / 3, 200.0 / 3},
	}
	for _, tc := range cases {
		pa, pb := Proportion(Cents(tc.a), Cents(tc.b))
		if math.Abs(pa-tc.wantA) > 1e-9 || math.Abs(pb-tc.wantB) > 1e-9 {
			t.Fatalf("%d/%d: expected %v/%v, got %v/%v", tc.a, tc.b, tc.wantA, tc.wantB, pa, pb)
		}
		if tc.a+tc.b > 0 && math.Abs(pa+pb-100) > 1e-9 {
			t.Fatalf("%d/%d: shares sum to %v", tc.a, tc.b, pa+pb)
		}
	}
}

func TestProportionSumsToHundred(t *testing.T) {
	for a := int64(0); a <= 5000; a += 137 {
		for b := int64(0); b <= 5000; b += 211 {
			pa, pb := Proportion(Cents(a), Cents(b))
			if math.IsNaN(pa) || math.IsNaN(pb) {
				t.Fatalf("%d/%d: NaN", a, b)
			}
			if a+b == 0 {
				if pa != 0 || pb != 0 {
					t.Fatalf("expected (0,0), got (%v,%v)", pa, pb)
				}
				continue
			}
			if math.Abs(pa+pb-100) > 1e-9 {
				t.Fatalf("%d/%d: shares sum to %v", a, b, pa+pb)
			}
		}
	}
}

func TestIncomeTotals(t *testing.T) {
	items := income(250000, 30000, 20000)
	if got := TotalIncome(items); got.Cents != 300000 {
		t.Fatalf("total: got %d", got.Cents)
	}
	if got := BaseIncome(items); got.Cents != 250000 {
		t.Fatalf("base: got %d", got.Cents)
	}
	if got := ExtraIncome(items); got.Cents != 50000 {
		t.Fatalf("extra: got %d", got.Cents)
	}
	if got := TotalIncome(nil); !got.IsZero() {
		t.Fatalf("empty: got %d", got.Cents)
	}
}

func TestCeilings(t *testing.T) {
	l := Ceilings(Cents(400000))
	if l.Essential.Cents != 200000 || l.Lifestyle.Cents != 120000 || l.Goals.Cents != 80000 {
		t.Fatalf("unexpected ceilings %+v", l)
	}
	l = Ceilings(Money{})
	if !l.Essential.IsZero() || !l.Lifestyle.IsZero() || !l.Goals.IsZero() {
		t.Fatalf("zero income must yield zero ceilings, got %+v", l)
	}
	l = Ceilings(Cents(1001))
	if l.Essential.Cents != 501 || l.Lifestyle.Cents != 300 || l.Goals.Cents != 200 {
		t.Fatalf("rounding: got %+v", l)
	}
}

func TestSpendByPillar(t *testing.T) {
	april := Month{2025, time.April}
	ledger := []Expense{
		{Amount: Cents(120000), Pillar: Essential, PurchaseDate: NewDate(2025, 4, 1)},
		{Amount: Cents(5000), Pillar: Lifestyle, PurchaseDate: NewDate(2025, 4, 12)},
		// credit purchase in March due in April counts against April
		{Amount: Cents(9900), Pillar: Lifestyle, PurchaseDate: NewDate(2025, 3, 20), DueDate: NewDate(2025, 4, 5)},
		// purchase in April due in May does not
		{Amount: Cents(7000), Pillar: Goals, PurchaseDate: NewDate(2025, 4, 27), DueDate: NewDate(2025, 5, 5)},
		{Amount: Cents(3000), Pillar: Goals, PurchaseDate: NewDate(2024, 4, 2)},
	}
	totals := SpendByPillar(ledger, april)
	if len(totals) != len(Pillars) {
		t.Fatalf("expected every pillar, got %v", totals)
	}
	if totals[Essential].Cents != 120000 || totals[Lifestyle].Cents != 14900 || !totals[Goals].IsZero() {
		t.Fatalf("unexpected totals %v", totals)
	}
	if got := TotalSpent(totals); got.Cents != 134900 {
		t.Fatalf("total spent: got %d", got.Cents)
	}
	if n := len(ExpensesInMonth(ledger, april)); n != 3 {
		t.Fatalf("expected 3 expenses in April, got %d", n)
	}
}

// The sum over pillar totals always equals the total spent in the month.
func TestTotalSpentMatchesPillars(t *testing.T) {
	var ledger []Expense
	for i := 0; i < 60; i++ {
		ledger = append(ledger, Expense{
			Amount:       Cents(int64(100 + i*37)),
			Pillar:       Pillars[i%3],
			PurchaseDate: NewDate(2025, 1+i%4, 1+i%28),
		})
	}
	for m := 1; m <= 5; m++ {
		month := Month{2025, time.Month(m)}
		totals := SpendByPillar(ledger, month)
		var want int64
		for _, e := range ExpensesInMonth(ledger, month) {
			want += e.Amount.Cents
		}
		if got := TotalSpent(totals); got.Cents != want {
			t.Fatalf("%s: expected %d, got %d", month, want, got.Cents)
		}
	}
}

func TestSummarize(t *testing.T) {
	march := Month{2025, time.March}
	ledger := []Expense{
		{Amount: Cents(190000), Pillar: Essential, PurchaseDate: NewDate(2025, 3, 3)},
	}
	s := Summarize(ledger, income(300000), income(100000), march)
	if s.TotalIncome.Cents != 400000 || s.PercentA != 75 || s.PercentB != 25 {
		t.Fatalf("unexpected income summary %+v", s)
	}
	if s.Remaining(Essential).Cents != 10000 {
		t.Fatalf("remaining: got %d", s.Remaining(Essential).Cents)
	}
	if s.Remaining(Lifestyle).Cents != 120000 {
		t.Fatalf("remaining lifestyle: got %d", s.Remaining(Lifestyle).Cents)
	}
	if len(s.Expenses) != 1 || s.TotalSpent.Cents != 190000 {
		t.Fatalf("unexpected spend summary %+v", s)
	}
}
