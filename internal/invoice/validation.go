package invoice

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"recon/pkg/models"
)

// Validate checks that an invoice is internally consistent before it is
// stored: the identifier matches client and period, items are numbered from
// 1 in order and belong to the invoice, and the item amounts sum to the total.
//
// The total is not checked against subtotal, taxes, tip and discount because
// visits flagged as inconsistent are billed as reported.
func Validate(inv *models.Invoice) error {
	var problems []string

	if want := models.InvoiceID(inv.ClientCode, models.PeriodOf(inv.PeriodStart)); inv.ID != want {
		problems = append(problems, fmt.Sprintf("id %q, want %q", inv.ID, want))
	}
	if inv.PeriodEnd < inv.PeriodStart {
		problems = append(problems, fmt.Sprintf("period ends %s before it starts %s", inv.PeriodEnd, inv.PeriodStart))
	}

	sum := decimal.Zero
	for i, item := range inv.Items {
		if item.Position != i+1 {
			problems = append(problems, fmt.Sprintf("item %d has position %d", i+1, item.Position))
		}
		if item.InvoiceID != inv.ID {
			problems = append(problems, fmt.Sprintf("item %d belongs to invoice %q", i+1, item.InvoiceID))
		}
		if item.Date < inv.PeriodStart || item.Date > inv.PeriodEnd {
			problems = append(problems, fmt.Sprintf("item %d dated %s outside the period", i+1, item.Date))
		}
		sum = sum.Add(item.Amount)
	}
	if !sum.Equal(inv.Total) {
		problems = append(problems, fmt.Sprintf("items sum to %s, total is %s", sum.StringFixed(2), inv.Total.StringFixed(2)))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w %s: %s", ErrInconsistentInvoice, inv.ID, strings.Join(problems, "; "))
	}
	return nil
}
