// Package aggregate derives visit totals from their items and checks them
// against the figures printed in the source.
package aggregate

import (
	"strings"

	"github.com/shopspring/decimal"

	"recon/internal/issues"
	"recon/pkg/models"
)

// Tolerance is one cent, the rounding tolerance of every visit invariant.
var Tolerance = decimal.New(1, -2)

// Visit sets the subtotal to the sum of the item prices and the total to the
// printed total when the source has one, otherwise to the computed total.
// The visit is flagged inconsistent, and an InconsistentTotals issue returned,
// when the total or a printed subtotal disagrees with the computed figures
// by more than one cent. Inconsistent visits are kept.
func Visit(v *models.Visit) *issues.Issue {
	v.Subtotal = v.ItemsTotal()
	computed := v.ExpectedTotal()

	var problems []string
	if v.ReportedSubtotal.Valid && exceeds(v.ReportedSubtotal.Decimal, v.Subtotal) {
		problems = append(problems, "printed subtotal "+v.ReportedSubtotal.Decimal.StringFixed(2)+
			" != items "+v.Subtotal.StringFixed(2))
	}

	if v.ReportedTotal.Valid {
		v.Total = v.ReportedTotal.Decimal
		if exceeds(v.Total, computed) {
			problems = append(problems, "total "+v.Total.StringFixed(2)+
				" != subtotal+taxes+tip-discount "+computed.StringFixed(2))
		}
	} else {
		v.Total = computed
	}

	v.Inconsistent = len(problems) > 0
	if !v.Inconsistent {
		return nil
	}
	issue := issues.New(issues.InconsistentTotals, v.Source, "%s", strings.Join(problems, "; ")).ForVisit(v.ID)
	return &issue
}

// All aggregates every visit in place and returns the issues found.
func All(visits []models.Visit) []issues.Issue {
	var found []issues.Issue
	for i := range visits {
		if issue := Visit(&visits[i]); issue != nil {
			found = append(found, *issue)
		}
	}
	return found
}

// Consistent reports whether the stored totals of a visit satisfy both invariants.
func Consistent(v *models.Visit) bool {
	return !exceeds(v.ItemsTotal(), v.Subtotal) && !exceeds(v.Total, v.ExpectedTotal())
}

func exceeds(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().GreaterThan(Tolerance)
}
