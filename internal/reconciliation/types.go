package reconciliation

import (
	"github.com/shopspring/decimal"
)

// Discrepancy is one (client, period) group whose computed visit total
// differs from the reported balance by more than the tolerance.
type Discrepancy struct {
	ClientCode string          `json:"client_code"`
	Period     string          `json:"period"`   // YYYY-MM
	Expected   decimal.Decimal `json:"expected"` // reported balance
	Computed   decimal.Decimal `json:"computed"` // sum of visit totals
	Delta      decimal.Decimal `json:"delta"`    // Computed - Expected

	// Unreported is set when visits exist for a client the report does not list.
	Unreported bool `json:"unreported,omitempty"`
}

// groupKey identifies a reconciliation group.
type groupKey struct {
	ClientCode string
	Period     string
}

// DiscrepancyHeaders are the column headings of discrepancy output rows.
var DiscrepancyHeaders = []string{"client_code", "period", "expected_balance", "actual_total", "difference", "unreported"}

// Row renders a discrepancy as an output row matching DiscrepancyHeaders.
func (d Discrepancy) Row() []interface{} {
	return []interface{}{
		d.ClientCode,
		d.Period,
		d.Expected.StringFixed(2),
		d.Computed.StringFixed(2),
		d.Delta.StringFixed(2),
		d.Unreported,
	}
}

// Rows renders discrepancies as output rows.
func Rows(ds []Discrepancy) [][]interface{} {
	rows := make([][]interface{}, len(ds))
	for i, d := range ds {
		rows[i] = d.Row()
	}
	return rows
}
