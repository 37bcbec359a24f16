package core

import (
	"sort"
	"time"
)

// ClosingMonth returns the month whose card closing date the purchase is
// billed on: the purchase month, or the next one when the purchase happens on
// or after the closing day.
func ClosingMonth(purchase Date, card CreditCard) Month {
	year, month := purchase.Year(), purchase.Time.Month()
	if purchase.Day() >= card.ClosingDay {
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	return Month{Year: year, Month: month}
}

// DueDate computes the invoice due date of a credit purchase.
//
// The invoice closes in ClosingMonth. When the due day comes after the
// closing day the invoice is due in that same month, otherwise it is due in
// the month after closing (closing 25, due 5: a March 20 purchase is due
// April 5). The due day is used verbatim: 29-31 in shorter months rolls into
// the following month through calendar normalization.
func DueDate(purchase Date, card CreditCard) Date {
	due := ClosingMonth(purchase, card)
	if card.DueDay <= card.ClosingDay {
		due = due.Add(1)
	}
	return NewDate(due.Year, int(due.Month), card.DueDay)
}

// InvoiceMonth returns the due month of the invoice that is currently open
// on day now.
func InvoiceMonth(now Date, card CreditCard) Month {
	return MonthOf(DueDate(now, card))
}

// Invoice groups the expenses billed on one card invoice.
type Invoice struct {
	Card     CreditCard
	Month    Month
	Expenses []Expense
	Total    Money
}

// CurrentInvoice collects the card's expenses that belong to the invoice open
// on day now, newest purchase first.
func CurrentInvoice(now Date, card CreditCard, ledger []Expense) Invoice {
	inv := Invoice{Card: card, Month: InvoiceMonth(now, card)}
	for _, e := range ledger {
		if e.CardID != card.ID {
			continue
		}
		if !inv.Month.Contains(DueDate(e.PurchaseDate, card)) {
			continue
		}
		inv.Expenses = append(inv.Expenses, e)
		inv.Total = inv.Total.Add(e.Amount)
	}
	sort.SliceStable(inv.Expenses, func(i, j int) bool {
		return inv.Expenses[i].PurchaseDate.After(inv.Expenses[j].PurchaseDate.Time)
	})
	return inv
}

// FindCard returns the card with the given id.
func FindCard(cards []CreditCard, id string) (CreditCard, bool) {
	for _, c := range cards {
		if c.ID == id {
			return c, true
		}
	}
	return CreditCard{}, false
}
