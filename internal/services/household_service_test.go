package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"casalfinance/internal/core"
	"casalfinance/internal/storage"
)

type publishCall struct {
	household string
	key       string
	version   int64
}

type fakePublisher struct {
	mu    sync.Mutex
	calls []publishCall
	err   error
}

func (p *fakePublisher) PublishLedgerSync(_ context.Context, household, key string, version int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, publishCall{household, key, version})
	return p.err
}

// failingStore rejects every write.
type failingStore struct {
	*storage.MemoryStore
}

func (failingStore) Set(context.Context, string, string, []byte) (int64, error) {
	return 0, errors.New("disk full")
}

var march15 = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestHousehold(t *testing.T, store storage.Store, opts ...Option) *Household {
	t.Helper()
	opts = append([]Option{
		WithClock(func() time.Time { return march15 }),
		WithIDGenerator(sequentialIDs()),
	}, opts...)
	h := NewHousehold("home", store, opts...)
	if err := h.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return h
}

func debit(name string, cents int64, p core.Pillar, day int) core.Expense {
	return core.Expense{
		Name:          name,
		Amount:        core.Cents(cents),
		Pillar:        p,
		PurchaseDate:  core.NewDate(2025, 3, day),
		PaymentMethod: core.Debit,
	}
}

func TestHousehold_AddExpense(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	store := storage.NewMemoryStore()
	h := newTestHousehold(t, store, WithPublisher(pub))

	if err := h.SetCards(ctx, []core.CreditCard{{ID: "visa", Name: "Visa", ClosingDay: 25, DueDay: 5}}); err != nil {
		t.Fatalf("SetCards: %v", err)
	}

	t.Run("debit due on purchase date", func(t *testing.T) {
		e, err := h.AddExpense(ctx, debit("Market", 5000, core.Essential, 3))
		if err != nil {
			t.Fatalf("AddExpense: %v", err)
		}
		if e.ID == "" || !e.DueDate.Equal(e.PurchaseDate.Time) {
			t.Errorf("unexpected expense %+v", e)
		}
		if e.SubCategory != core.OtherSubCategory {
			t.Errorf("expected default subcategory, got %q", e.SubCategory)
		}
	})

	t.Run("credit due date from billing cycle", func(t *testing.T) {
		tests := []struct {
			day  int
			want core.Date
		}{
			{20, core.NewDate(2025, 4, 5)},
			{27, core.NewDate(2025, 5, 5)},
		}
		for _, tt := range tests {
			e := debit("Shoes", 20000, core.Lifestyle, tt.day)
			e.PaymentMethod = core.Credit
			e.CardID = "visa"
			e.DueDate = core.NewDate(2025, 1, 1) // ignored for credit
			got, err := h.AddExpense(ctx, e)
			if err != nil {
				t.Fatalf("AddExpense: %v", err)
			}
			if !got.DueDate.Equal(tt.want.Time) {
				t.Errorf("day %d: expected due %s, got %s", tt.day, tt.want, got.DueDate)
			}
		}
	})

	t.Run("rejected input leaves ledger untouched", func(t *testing.T) {
		before := len(h.Expenses())
		tests := []struct {
			name    string
			mutate  func(*core.Expense)
			wantErr error
		}{
			{"zero amount", func(e *core.Expense) { e.Amount = core.Cents(0) }, core.ErrInvalidAmount},
			{"credit without card", func(e *core.Expense) { e.PaymentMethod = core.Credit }, core.ErrMissingCard},
			{"unknown card", func(e *core.Expense) { e.PaymentMethod = core.Credit; e.CardID = "amex" }, core.ErrUnknownCard},
			{"missing date", func(e *core.Expense) { e.PurchaseDate = core.Date{} }, core.ErrInvalidDate},
		}
		for _, tt := range tests {
			e := debit("Bad", 100, core.Goals, 1)
			tt.mutate(&e)
			if _, err := h.AddExpense(ctx, e); !errors.Is(err, tt.wantErr) {
				t.Errorf("%s: expected %v, got %v", tt.name, tt.wantErr, err)
			}
		}
		if got := len(h.Expenses()); got != before {
			t.Errorf("ledger changed from %d to %d", before, got)
		}
	})

	stored, err := storage.Load(ctx, store, "home", storage.KeyExpenses, []core.Expense(nil))
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 3 {
		t.Errorf("expected 3 stored expenses, got %d", len(stored))
	}

	last := pub.calls[len(pub.calls)-1]
	if last.household != "home" || last.key != storage.KeyExpenses || last.version != 3 {
		t.Errorf("unexpected publish %+v", last)
	}
}

func TestHousehold_PublishFailureIsNotFatal(t *testing.T) {
	h := newTestHousehold(t, storage.NewMemoryStore(), WithPublisher(&fakePublisher{err: errors.New("circuit breaker is open")}))
	if _, err := h.AddExpense(context.Background(), debit("Bus", 300, core.Essential, 2)); err != nil {
		t.Fatalf("publish failure must not fail the mutation: %v", err)
	}
	if len(h.Expenses()) != 1 {
		t.Error("expense should be kept")
	}
}

func TestHousehold_SaveFailureLeavesStateUnchanged(t *testing.T) {
	h := newTestHousehold(t, failingStore{storage.NewMemoryStore()})
	if _, err := h.AddExpense(context.Background(), debit("Bus", 300, core.Essential, 2)); err == nil {
		t.Fatal("expected save error")
	}
	if len(h.Expenses()) != 0 {
		t.Error("ledger must not change when the save fails")
	}
}

func TestHousehold_RemoveAndTogglePaid(t *testing.T) {
	ctx := context.Background()
	h := newTestHousehold(t, storage.NewMemoryStore())
	e, err := h.AddExpense(ctx, debit("Gym", 9000, core.Lifestyle, 4))
	if err != nil {
		t.Fatal(err)
	}

	toggled, err := h.TogglePaid(ctx, e.ID)
	if err != nil || !toggled.IsPaid {
		t.Fatalf("expected paid, got %+v %v", toggled, err)
	}
	if toggled, _ = h.TogglePaid(ctx, e.ID); toggled.IsPaid {
		t.Error("second toggle should unpay")
	}

	if err := h.RemoveExpense(ctx, e.ID); err != nil {
		t.Fatalf("RemoveExpense: %v", err)
	}
	if err := h.RemoveExpense(ctx, e.ID); !errors.Is(err, ErrExpenseNotFound) {
		t.Errorf("expected ErrExpenseNotFound, got %v", err)
	}
	if _, err := h.TogglePaid(ctx, "missing"); !errors.Is(err, ErrExpenseNotFound) {
		t.Errorf("expected ErrExpenseNotFound, got %v", err)
	}
}

func TestHousehold_ChangeMonthClonesRecurring(t *testing.T) {
	ctx := context.Background()
	h := newTestHousehold(t, storage.NewMemoryStore())

	rentExp := debit("Rent", 120000, core.Essential, 10)
	rentExp.IsRecurring = true
	if _, err := h.AddExpense(ctx, rentExp); err != nil {
		t.Fatal(err)
	}

	n, err := h.ChangeMonth(ctx, 1)
	if err != nil || n != 1 {
		t.Fatalf("expected one clone, got %d %v", n, err)
	}
	if got := h.ActiveMonth(); got != core.NewMonth(2025, time.April) {
		t.Errorf("expected April, got %s", got)
	}
	april := h.Summary()
	if len(april.Expenses) != 1 || april.Expenses[0].IsPaid || april.Totals[core.Essential] != core.Cents(120000) {
		t.Errorf("unexpected April view %+v", april.Expenses)
	}

	// Back and forth again: April is populated, nothing new.
	if _, err := h.ChangeMonth(ctx, -1); err != nil {
		t.Fatal(err)
	}
	if n, _ := h.ChangeMonth(ctx, 1); n != 0 {
		t.Errorf("expected no new clones, got %d", n)
	}
	if len(h.Expenses()) != 2 {
		t.Errorf("expected 2 expenses in ledger, got %d", len(h.Expenses()))
	}
}

func TestHousehold_AlertsAndDismissal(t *testing.T) {
	ctx := context.Background()
	h := newTestHousehold(t, storage.NewMemoryStore())

	if err := h.SetIncomes(ctx, PersonA, []core.IncomeItem{{Name: "Salary", Amount: core.Cents(300000), Kind: core.Fixed}}); err != nil {
		t.Fatal(err)
	}
	if err := h.SetIncomes(ctx, PersonB, []core.IncomeItem{{Name: "Salary", Amount: core.Cents(100000), Kind: core.Fixed}}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.AddExpense(ctx, debit("Rent", 190000, core.Essential, 1)); err != nil {
		t.Fatal(err)
	}

	s := h.Summary()
	if s.PercentA != 75 || s.PercentB != 25 {
		t.Errorf("expected 75/25, got %v/%v", s.PercentA, s.PercentB)
	}
	alerts := h.Alerts()
	if len(alerts) != 1 || alerts[0].Severity != core.Warning || alerts[0].Pillar != core.Essential {
		t.Fatalf("expected one essential warning, got %+v", alerts)
	}

	if err := h.DismissAlert(core.Essential); err != nil {
		t.Fatal(err)
	}
	if len(h.Alerts()) != 0 {
		t.Error("dismissed alert must be suppressed")
	}
	if err := h.DismissAlert("LUXURY"); !errors.Is(err, core.ErrInvalidPillar) {
		t.Errorf("expected ErrInvalidPillar, got %v", err)
	}

	// Re-selecting the same month clears dismissals.
	if _, err := h.SetActiveMonth(ctx, h.ActiveMonth()); err != nil {
		t.Fatal(err)
	}
	if len(h.Alerts()) != 1 {
		t.Error("alert should be back after a month change")
	}
}

func TestHousehold_NoIncomeNoAlerts(t *testing.T) {
	h := newTestHousehold(t, storage.NewMemoryStore())
	if _, err := h.AddExpense(context.Background(), debit("Rent", 500000, core.Essential, 1)); err != nil {
		t.Fatal(err)
	}
	s := h.Summary()
	if s.PercentA != 0 || s.PercentB != 0 || !s.Limits.Essential.IsZero() {
		t.Errorf("expected zero proportions and ceilings, got %+v", s)
	}
	if len(h.Alerts()) != 0 {
		t.Error("no alerts without income")
	}
}

func TestHousehold_LoadIgnoresCorruptRecords(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	if _, err := store.Set(ctx, "home", storage.KeyExpenses, []byte(`{not json`)); err != nil {
		t.Fatal(err)
	}
	if _, err := storage.Save(ctx, store, "home", storage.KeyProfileA, core.Profile{FirstName: "Ana"}); err != nil {
		t.Fatal(err)
	}

	h := newTestHousehold(t, store)
	if len(h.Expenses()) != 0 {
		t.Error("corrupt ledger should load as empty")
	}
	if p, _ := h.Profile(PersonA); p.FirstName != "Ana" {
		t.Errorf("expected profile to load, got %+v", p)
	}
}

func TestHousehold_ApplyRemote(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	store := storage.NewMemoryStore()
	h := newTestHousehold(t, store, WithPublisher(pub))

	payload := []byte(`[{"id":"c1","name":"Master","closingDay":10,"dueDay":20,"color":"#000","notify":false,"limit":0}]`)
	if err := h.ApplyRemote(ctx, storage.KeyCards, payload); err != nil {
		t.Fatalf("ApplyRemote: %v", err)
	}
	if cards := h.Cards(); len(cards) != 1 || cards[0].ID != "c1" {
		t.Errorf("unexpected cards %+v", cards)
	}
	if raw, ok, _ := store.Get(ctx, "home", storage.KeyCards); !ok || string(raw) != string(payload) {
		t.Error("remote payload should be stored locally")
	}
	if len(pub.calls) != 0 {
		t.Error("remote records must not be announced again")
	}

	if err := h.ApplyRemote(ctx, storage.KeyCards, []byte(`{broken`)); err == nil {
		t.Error("expected decode error")
	}
	if len(h.Cards()) != 1 {
		t.Error("bad payload must leave cards untouched")
	}
	if err := h.ApplyRemote(ctx, "cf_unknown", payload); !errors.Is(err, storage.ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}
}

func TestHousehold_Invoice(t *testing.T) {
	ctx := context.Background()
	h := newTestHousehold(t, storage.NewMemoryStore())
	if err := h.SetCards(ctx, []core.CreditCard{{ID: "visa", Name: "Visa", ClosingDay: 25, DueDay: 5}}); err != nil {
		t.Fatal(err)
	}
	for _, day := range []int{1, 14, 26} {
		e := debit("Item", 1000, core.Lifestyle, day)
		e.PaymentMethod = core.Credit
		e.CardID = "visa"
		if _, err := h.AddExpense(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	inv, err := h.Invoice("visa")
	if err != nil {
		t.Fatal(err)
	}
	if len(inv.Expenses) != 2 || inv.Total != core.Cents(2000) {
		t.Errorf("expected two purchases before closing, got %d totalling %v", len(inv.Expenses), inv.Total)
	}
	if _, err := h.Invoice("amex"); !errors.Is(err, ErrCardNotFound) {
		t.Errorf("expected ErrCardNotFound, got %v", err)
	}
}

func TestHousehold_SettersValidate(t *testing.T) {
	ctx := context.Background()
	h := newTestHousehold(t, storage.NewMemoryStore())

	if err := h.SetCards(ctx, []core.CreditCard{{Name: "Bad", ClosingDay: 0, DueDay: 5}}); !errors.Is(err, core.ErrInvalidDay) {
		t.Errorf("expected ErrInvalidDay, got %v", err)
	}
	if err := h.SetIncomes(ctx, "C", nil); !errors.Is(err, ErrUnknownPerson) {
		t.Errorf("expected ErrUnknownPerson, got %v", err)
	}
	if err := h.SetProfile(ctx, PersonB, core.Profile{FirstName: "Bia"}); err != nil {
		t.Fatal(err)
	}
	if p, _ := h.Profile(PersonB); p.FullName() != "Bia" {
		t.Errorf("unexpected profile %+v", p)
	}
	if err := h.SetGoals(ctx, []core.FinancialGoal{{Name: "Trip", Target: core.Cents(100000)}}); err != nil {
		t.Fatal(err)
	}
	if err := h.SetAccounts(ctx, []core.BankAccount{{BankID: "nu", Type: core.Checking}}); err != nil {
		t.Fatal(err)
	}
}

func TestHousehold_Agenda(t *testing.T) {
	ctx := context.Background()
	h := newTestHousehold(t, storage.NewMemoryStore())
	if err := h.SetIncomes(ctx, PersonA, []core.IncomeItem{{Name: "Salary", Amount: core.Cents(1000), Kind: core.Fixed}}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.AddExpense(ctx, debit("Power", 800, core.Essential, 10)); err != nil {
		t.Fatal(err)
	}
	items := h.Agenda()
	if len(items) != 2 || items[0].Kind != KindIncome || items[1].Status != StatusLate {
		t.Errorf("unexpected agenda %+v", items)
	}
}
