package core

import (
	"errors"
	"strings"
)

const (
	Essential Pillar = "ESSENTIAL"
	Lifestyle Pillar = "LIFESTYLE"
	Goals     Pillar = "GOALS"

	Debit  PaymentMethod = "DEBIT"
	Credit PaymentMethod = "CREDIT"

	Fixed    IncomeKind = "FIXED"
	Variable IncomeKind = "VARIABLE"

	Checking   AccountType = "CHECKING"
	Savings    AccountType = "SAVINGS"
	Investment AccountType = "INVESTMENT"
	Cash       AccountType = "CASH"
)

// Pillars lists the budget pillars in display order.
var Pillars = []Pillar{Essential, Lifestyle, Goals}

type (
	// Pillar is one of the three 50/30/20 budget categories.
	Pillar string

	PaymentMethod string

	IncomeKind string

	AccountType string

	Expense struct {
		ID            string        `json:"id"`
		Name          string        `json:"name"`
		Amount        Money         `json:"amount"`
		Pillar        Pillar        `json:"category"`
		SubCategory   string        `json:"subCategory"`
		PurchaseDate  Date          `json:"date"`
		DueDate       Date          `json:"dueDate"`
		IsPaid        bool          `json:"isPaid"`
		IsRecurring   bool          `json:"isRecurring"`
		PaymentMethod PaymentMethod `json:"paymentMethod"`
		CardID        string        `json:"cardId,omitempty"`
	}

	IncomeItem struct {
		ID          string     `json:"id"`
		Name        string     `json:"name"`
		Amount      Money      `json:"amount"`
		Kind        IncomeKind `json:"type"`
		ReceiptDate Date       `json:"receiptDate"`
	}

	CreditCard struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Holder     string `json:"holder,omitempty"`
		ClosingDay int    `json:"closingDay"`
		DueDay     int    `json:"dueDay"`
		Color      string `json:"color"`
		Notify     bool   `json:"notify"`
		Limit      Money  `json:"limit"`
	}

	BankAccount struct {
		ID      string      `json:"id"`
		BankID  string      `json:"bankId"`
		Holder  string      `json:"holder"`
		Balance Money       `json:"balance"`
		Type    AccountType `json:"type"`
	}

	FinancialGoal struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Target   Money  `json:"targetAmount"`
		Current  Money  `json:"currentAmount"`
		Deadline Date   `json:"deadline"`
		Color    string `json:"color"`
	}

	Profile struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrEmptyName            = errors.New("empty name")
	ErrNameTooLong          = errors.New("name too long (max 100 characters)")
	ErrInvalidPillar        = errors.New("invalid pillar")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrMissingCard          = errors.New("credit expense requires a card")
	ErrUnknownCard          = errors.New("unknown card")
	ErrInvalidIncomeKind    = errors.New("invalid income kind")
	ErrInvalidDay           = errors.New("invalid day of month")
)

func (p Pillar) Valid() bool {
	switch p {
	case Essential, Lifestyle, Goals:
		return true
	}
	return false
}

// Label returns the human readable pillar name.
func (p Pillar) Label() string {
	switch p {
	case Essential:
		return "Essential"
	case Lifestyle:
		return "Lifestyle"
	case Goals:
		return "Goals"
	}
	return string(p)
}

func (e Expense) Validate() error {
	if err := validateName(e.Name); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !e.Pillar.Valid() {
		return ErrInvalidPillar
	}
	if err := e.PurchaseDate.Validate(); err != nil {
		return err
	}
	switch e.PaymentMethod {
	case Debit:
	case Credit:
		if strings.TrimSpace(e.CardID) == "" {
			return ErrMissingCard
		}
	default:
		return ErrInvalidPaymentMethod
	}
	return nil
}

// ReferenceDate is the date used to attribute the expense to a month:
// the due date when present, the purchase date otherwise.
func (e Expense) ReferenceDate() Date {
	if !e.DueDate.IsEmpty() {
		return e.DueDate
	}
	return e.PurchaseDate
}

// DueBeforePurchase reports a due date earlier than the purchase date.
// Such records are accepted but flagged.
func (e Expense) DueBeforePurchase() bool {
	return !e.DueDate.IsEmpty() && e.DueDate.Before(e.PurchaseDate.Time)
}

func (i IncomeItem) Validate() error {
	if err := validateName(i.Name); err != nil {
		return err
	}
	if i.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	switch i.Kind {
	case Fixed, Variable:
	default:
		return ErrInvalidIncomeKind
	}
	return nil
}

func (c CreditCard) Validate() error {
	if err := validateName(c.Name); err != nil {
		return err
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return ErrInvalidDay
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return ErrInvalidDay
	}
	if c.Limit.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Progress returns how much of the goal target has been reached, in percent.
func (g FinancialGoal) Progress() float64 {
	if g.Target.Cents <= 0 {
		return 0
	}
	return float64(g.Current.Cents) / float64(g.Target.Cents) * 100
}

// FullName joins first and last name.
func (p Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if len([]rune(name)) > 100 {
		return ErrNameTooLong
	}
	return nil
}
