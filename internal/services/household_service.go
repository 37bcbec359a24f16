package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"casalfinance/internal/core"
	"casalfinance/internal/log"
	"casalfinance/internal/storage"
)

// Person selects one of the two partners.
type Person string

const (
	PersonA Person = "A"
	PersonB Person = "B"
)

var (
	ErrExpenseNotFound = errors.New("expense not found")
	ErrUnknownPerson   = errors.New("unknown person")
	ErrCardNotFound    = errors.New("card not found")
)

// Publisher announces that a stored record changed.
type Publisher interface {
	PublishLedgerSync(ctx context.Context, household, key string, version int64) error
}

// Option configures a Household.
type Option func(*Household)

// WithPublisher announces every saved record through p.
func WithPublisher(p Publisher) Option {
	return func(h *Household) { h.publisher = p }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(h *Household) { h.now = now }
}

// WithIDGenerator overrides the record id generator.
func WithIDGenerator(newID func() string) Option {
	return func(h *Household) { h.newID = newID }
}

// Household is one household's session: the stored records, the active
// month and the dismissed alerts. Every derived value is recomputed from a
// snapshot on demand. Mutations build a new slice and are persisted before
// they become visible; a failed save leaves the session unchanged.
type Household struct {
	id        string
	store     storage.Store
	publisher Publisher
	now       func() time.Time
	newID     func() string

	mu       sync.Mutex
	active   core.Month
	expenses []core.Expense
	incomeA  []core.IncomeItem
	incomeB  []core.IncomeItem
	cards    []core.CreditCard
	accounts []core.BankAccount
	goals    []core.FinancialGoal
	profileA core.Profile
	profileB core.Profile
	alerts   *core.AlertTracker
}

func NewHousehold(id string, store storage.Store, opts ...Option) *Household {
	h := &Household{
		id:    id,
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.active = core.MonthOf(core.DateOf(h.now()))
	h.alerts = core.NewAlertTracker(h.active)
	return h
}

func (h *Household) ID() string { return h.id }

// Load reads every record from the store. Corrupt records load as empty.
// The active month is set to the current one, which may clone recurring
// expenses into it.
func (h *Household) Load(ctx context.Context) error {
	expenses, err := storage.Load(ctx, h.store, h.id, storage.KeyExpenses, []core.Expense(nil))
	if err != nil {
		return err
	}
	incomeA, err := storage.Load(ctx, h.store, h.id, storage.KeyIncomeA, []core.IncomeItem(nil))
	if err != nil {
		return err
	}
	incomeB, err := storage.Load(ctx, h.store, h.id, storage.KeyIncomeB, []core.IncomeItem(nil))
	if err != nil {
		return err
	}
	cards, err := storage.Load(ctx, h.store, h.id, storage.KeyCards, []core.CreditCard(nil))
	if err != nil {
		return err
	}
	accounts, err := storage.Load(ctx, h.store, h.id, storage.KeyAccounts, []core.BankAccount(nil))
	if err != nil {
		return err
	}
	goals, err := storage.Load(ctx, h.store, h.id, storage.KeyGoals, []core.FinancialGoal(nil))
	if err != nil {
		return err
	}
	profileA, err := storage.Load(ctx, h.store, h.id, storage.KeyProfileA, core.Profile{})
	if err != nil {
		return err
	}
	profileB, err := storage.Load(ctx, h.store, h.id, storage.KeyProfileB, core.Profile{})
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.expenses = expenses
	h.incomeA, h.incomeB = incomeA, incomeB
	h.cards = cards
	h.accounts = accounts
	h.goals = goals
	h.profileA, h.profileB = profileA, profileB
	h.mu.Unlock()

	slog.InfoContext(ctx, "Household loaded",
		log.FieldHousehold, h.id,
		"expenses", len(expenses),
		"cards", len(cards))

	_, err = h.SetActiveMonth(ctx, core.MonthOf(core.DateOf(h.now())))
	return err
}

// ActiveMonth returns the month the session is looking at.
func (h *Household) ActiveMonth() core.Month {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// ChangeMonth moves the active month by delta. See SetActiveMonth.
func (h *Household) ChangeMonth(ctx context.Context, delta int) (int, error) {
	return h.SetActiveMonth(ctx, h.ActiveMonth().Add(delta))
}

// SetActiveMonth makes m the active month, clears every dismissed alert and
// clones last month's recurring expenses into m when m has no entries yet.
// It returns the number of clones appended.
func (h *Household) SetActiveMonth(ctx context.Context, m core.Month) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.active = m
	h.alerts.Reset(m)

	clones := Advance(h.expenses, m, h.newID)
	if len(clones) == 0 {
		return 0, nil
	}
	next := append(slices.Clone(h.expenses), clones...)
	if err := h.saveLocked(ctx, storage.KeyExpenses, next); err != nil {
		return 0, fmt.Errorf("save recurring clones: %w", err)
	}
	h.expenses = next

	slog.InfoContext(ctx, "Recurring expenses cloned",
		log.FieldHousehold, h.id,
		log.FieldMonth, m.String(),
		log.FieldCount, len(clones))
	return len(clones), nil
}

// AddExpense validates e and appends it to the ledger. Credit expenses get
// their due date from the card's billing cycle; debit expenses without a due
// date are due on the purchase date.
func (h *Household) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Name = strings.TrimSpace(e.Name)
	if e.SubCategory == "" {
		e.SubCategory = core.OtherSubCategory
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch e.PaymentMethod {
	case core.Credit:
		card, ok := core.FindCard(h.cards, e.CardID)
		if !ok {
			return core.Expense{}, fmt.Errorf("%w: %s", core.ErrUnknownCard, e.CardID)
		}
		e.DueDate = core.DueDate(e.PurchaseDate, card)
	case core.Debit:
		if e.DueDate.IsEmpty() {
			e.DueDate = e.PurchaseDate
		}
	}
	if e.ID == "" {
		e.ID = h.newID()
	}

	if e.DueBeforePurchase() {
		slog.WarnContext(ctx, "Expense due before its purchase date",
			log.FieldHousehold, h.id,
			log.FieldExpenseID, e.ID,
			log.FieldCardID, e.CardID,
			"purchase_date", e.PurchaseDate.String(),
			"due_date", e.DueDate.String())
	}

	next := append(slices.Clone(h.expenses), e)
	if err := h.saveLocked(ctx, storage.KeyExpenses, next); err != nil {
		return core.Expense{}, err
	}
	h.expenses = next

	slog.InfoContext(ctx, "Expense added",
		log.NewFields().
			WithHousehold(h.id).
			WithOperation(log.OpCreate).
			WithExpense(e.ID, e.Name, e.Amount.Cents, string(e.Pillar)).
			ToSlice()...)
	return e, nil
}

// RemoveExpense deletes the expense with the given id.
func (h *Household) RemoveExpense(ctx context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	i := h.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrExpenseNotFound, id)
	}
	next := slices.Delete(slices.Clone(h.expenses), i, i+1)
	if err := h.saveLocked(ctx, storage.KeyExpenses, next); err != nil {
		return err
	}
	h.expenses = next

	slog.InfoContext(ctx, "Expense removed",
		log.FieldHousehold, h.id,
		log.FieldOperation, log.OpDelete,
		log.FieldExpenseID, id)
	return nil
}

// TogglePaid flips the paid flag of the expense with the given id.
func (h *Household) TogglePaid(ctx context.Context, id string) (core.Expense, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	i := h.indexLocked(id)
	if i < 0 {
		return core.Expense{}, fmt.Errorf("%w: %s", ErrExpenseNotFound, id)
	}
	next := slices.Clone(h.expenses)
	next[i].IsPaid = !next[i].IsPaid
	if err := h.saveLocked(ctx, storage.KeyExpenses, next); err != nil {
		return core.Expense{}, err
	}
	h.expenses = next
	return next[i], nil
}

func (h *Household) indexLocked(id string) int {
	return slices.IndexFunc(h.expenses, func(e core.Expense) bool { return e.ID == id })
}

// DismissAlert hides p's alert until the active month changes.
func (h *Household) DismissAlert(p core.Pillar) error {
	if !p.Valid() {
		return core.ErrInvalidPillar
	}
	h.alerts.Dismiss(p)
	return nil
}

// Expenses returns a copy of the whole ledger.
func (h *Household) Expenses() []core.Expense {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.expenses)
}

// Summary recomputes the active month's derived values.
func (h *Household) Summary() core.MonthSummary {
	h.mu.Lock()
	defer h.mu.Unlock()
	return core.Summarize(h.expenses, h.incomeA, h.incomeB, h.active)
}

// Alerts evaluates the active month's thresholds, skipping dismissed pillars.
func (h *Household) Alerts() []core.Alert {
	s := h.Summary()
	return core.EvaluateAlerts(s.Totals, s.Limits, h.alerts.IsDismissed)
}

func (h *Household) Insights() []core.Insight {
	return core.Insights(h.Summary())
}

// Agenda lays out the active month's expenses and both partners' incomes.
func (h *Household) Agenda() []AgendaItem {
	h.mu.Lock()
	defer h.mu.Unlock()
	incomes := append(slices.Clone(h.incomeA), h.incomeB...)
	return BuildAgenda(h.active, h.expenses, incomes, core.DateOf(h.now()))
}

// Invoice returns the open invoice of a card as of today.
func (h *Household) Invoice(cardID string) (core.Invoice, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	card, ok := core.FindCard(h.cards, cardID)
	if !ok {
		return core.Invoice{}, fmt.Errorf("%w: %s", ErrCardNotFound, cardID)
	}
	return core.CurrentInvoice(core.DateOf(h.now()), card, h.expenses), nil
}

// Cards returns a copy of the card list.
func (h *Household) Cards() []core.CreditCard {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.cards)
}

// Incomes returns a copy of a partner's income list.
func (h *Household) Incomes(p Person) ([]core.IncomeItem, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch p {
	case PersonA:
		return slices.Clone(h.incomeA), nil
	case PersonB:
		return slices.Clone(h.incomeB), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPerson, p)
}

// Profile returns a partner's profile.
func (h *Household) Profile(p Person) (core.Profile, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch p {
	case PersonA:
		return h.profileA, nil
	case PersonB:
		return h.profileB, nil
	}
	return core.Profile{}, fmt.Errorf("%w: %s", ErrUnknownPerson, p)
}

// SetIncomes replaces a partner's income list.
func (h *Household) SetIncomes(ctx context.Context, p Person, items []core.IncomeItem) error {
	key, err := incomeKey(p)
	if err != nil {
		return err
	}
	items = slices.Clone(items)
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = h.newID()
		}
		if err := items[i].Validate(); err != nil {
			return fmt.Errorf("income %q: %w", items[i].Name, err)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.saveLocked(ctx, key, items); err != nil {
		return err
	}
	if p == PersonA {
		h.incomeA = items
	} else {
		h.incomeB = items
	}
	return nil
}

// SetCards replaces the card list. Expenses keep their card ids even when
// the card is gone.
func (h *Household) SetCards(ctx context.Context, cards []core.CreditCard) error {
	cards = slices.Clone(cards)
	for i := range cards {
		if cards[i].ID == "" {
			cards[i].ID = h.newID()
		}
		if err := cards[i].Validate(); err != nil {
			return fmt.Errorf("card %q: %w", cards[i].Name, err)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.saveLocked(ctx, storage.KeyCards, cards); err != nil {
		return err
	}
	h.cards = cards
	return nil
}

func (h *Household) SetAccounts(ctx context.Context, accounts []core.BankAccount) error {
	accounts = slices.Clone(accounts)
	for i := range accounts {
		if accounts[i].ID == "" {
			accounts[i].ID = h.newID()
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.saveLocked(ctx, storage.KeyAccounts, accounts); err != nil {
		return err
	}
	h.accounts = accounts
	return nil
}

func (h *Household) SetGoals(ctx context.Context, goals []core.FinancialGoal) error {
	goals = slices.Clone(goals)
	for i := range goals {
		if goals[i].ID == "" {
			goals[i].ID = h.newID()
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.saveLocked(ctx, storage.KeyGoals, goals); err != nil {
		return err
	}
	h.goals = goals
	return nil
}

func (h *Household) SetProfile(ctx context.Context, p Person, profile core.Profile) error {
	key := storage.KeyProfileA
	switch p {
	case PersonA:
	case PersonB:
		key = storage.KeyProfileB
	default:
		return fmt.Errorf("%w: %s", ErrUnknownPerson, p)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.saveLocked(ctx, key, profile); err != nil {
		return err
	}
	if p == PersonA {
		h.profileA = profile
	} else {
		h.profileB = profile
	}
	return nil
}

// ApplyRemote replaces the local record at key with a payload received from
// the sync backend. The remote copy wins; it is stored locally but not
// announced again. An undecodable payload leaves the session untouched.
func (h *Household) ApplyRemote(ctx context.Context, key string, payload []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var (
		commit func()
		err    error
	)
	switch key {
	case storage.KeyExpenses:
		commit, err = decodeInto(payload, &h.expenses)
	case storage.KeyIncomeA:
		commit, err = decodeInto(payload, &h.incomeA)
	case storage.KeyIncomeB:
		commit, err = decodeInto(payload, &h.incomeB)
	case storage.KeyCards:
		commit, err = decodeInto(payload, &h.cards)
	case storage.KeyAccounts:
		commit, err = decodeInto(payload, &h.accounts)
	case storage.KeyGoals:
		commit, err = decodeInto(payload, &h.goals)
	case storage.KeyProfileA:
		commit, err = decodeInto(payload, &h.profileA)
	case storage.KeyProfileB:
		commit, err = decodeInto(payload, &h.profileB)
	default:
		return fmt.Errorf("%w: %s", storage.ErrUnknownKey, key)
	}
	if err != nil {
		return fmt.Errorf("apply remote %s: %w", key, err)
	}

	if _, err := h.store.Set(ctx, h.id, key, payload); err != nil {
		return fmt.Errorf("store remote %s: %w", key, err)
	}
	commit()

	slog.InfoContext(ctx, "Remote record applied",
		log.FieldHousehold, h.id,
		log.FieldOperation, log.OpApplyRemote,
		log.FieldKey, key)
	return nil
}

// decodeInto decodes payload into a fresh T and returns the assignment to
// dst as a deferred step.
func decodeInto[T any](payload []byte, dst *T) (func(), error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, err
	}
	return func() { *dst = v }, nil
}

// saveLocked persists v at key and announces the new version. Announcement
// failures are logged; the local save already succeeded.
func (h *Household) saveLocked(ctx context.Context, key string, v any) error {
	version, err := storage.Save(ctx, h.store, h.id, key, v)
	if err != nil {
		return err
	}
	h.announce(ctx, key, version)
	return nil
}

func (h *Household) announce(ctx context.Context, key string, version int64) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.PublishLedgerSync(ctx, h.id, key, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			log.FieldHousehold, h.id,
			log.FieldKey, key,
			log.FieldVersion, version,
			log.FieldError, err)
	}
}

func incomeKey(p Person) (string, error) {
	switch p {
	case PersonA:
		return storage.KeyIncomeA, nil
	case PersonB:
		return storage.KeyIncomeB, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownPerson, p)
}
