package google

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"casalfinance/internal/core"
)

const ledgerKey = "cf_expenses"

var ledgerHeader = []any{"Purchase", "Due", "Name", "Amount", "Pillar", "Subcategory", "Method", "Paid"}

func recordID(household, key string) string {
	return household + "/" + key
}

// indexRecordRows maps household/key to its 1-based row in a records sheet
// read as A:B. Blank rows and a header row are skipped; when a record
// appears twice the first row wins.
func indexRecordRows(values [][]any) map[string]int {
	rows := make(map[string]int, len(values))
	for i, row := range values {
		cols := toStrings(row)
		if len(cols) < 2 || cols[0] == "" || cols[1] == "" {
			continue
		}
		if i == 0 && strings.EqualFold(cols[0], "household") {
			continue
		}
		id := recordID(cols[0], cols[1])
		if _, seen := rows[id]; !seen {
			rows[id] = i + 1
		}
	}
	return rows
}

// expenseRows renders a stored ledger as sheet rows, header first, ordered
// by reference date.
func expenseRows(payload []byte) ([][]any, error) {
	var ledger []core.Expense
	if err := json.Unmarshal(payload, &ledger); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	sort.SliceStable(ledger, func(i, j int) bool {
		return ledger[i].ReferenceDate().Before(ledger[j].ReferenceDate().Time)
	})
	out := make([][]any, 0, len(ledger)+1)
	out = append(out, ledgerHeader)
	for _, e := range ledger {
		paid := "no"
		if e.IsPaid {
			paid = "yes"
		}
		out = append(out, []any{
			e.PurchaseDate.String(),
			e.DueDate.String(),
			e.Name,
			e.Amount.Float(),
			string(e.Pillar),
			e.SubCategory,
			string(e.PaymentMethod),
			paid,
		})
	}
	return out, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
