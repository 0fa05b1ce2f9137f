// Package reconciliation compares aggregated visit totals against
// independently reported monthly balances.
package reconciliation

import (
	"sort"

	"github.com/shopspring/decimal"

	"recon/internal/issues"
	"recon/pkg/models"
)

// DefaultTolerance is one cent.
var DefaultTolerance = decimal.New(1, -2)

// Engine reconciles visits against monthly reports. It never modifies its inputs.
type Engine struct {
	Tolerance decimal.Decimal
}

// NewEngine returns an engine using the given tolerance.
func NewEngine(tolerance decimal.Decimal) *Engine {
	return &Engine{Tolerance: tolerance}
}

// Reconcile groups visit totals by client and period and compares each group
// with its reported balance. Groups within tolerance produce nothing.
//
// When reports are given, only their periods are reconciled; a client with
// visits in such a period but no reported balance is compared against zero
// and marked Unreported. The result is sorted by client and period.
func (e *Engine) Reconcile(visits []models.Visit, reports []models.MonthlyReport) []Discrepancy {
	expected := make(map[groupKey]decimal.Decimal)
	periods := make(map[string]bool)
	for _, r := range reports {
		k := groupKey{ClientCode: r.ClientCode, Period: r.Period}
		expected[k] = expected[k].Add(r.Balance)
		periods[r.Period] = true
	}

	computed := make(map[groupKey]decimal.Decimal)
	for i := range visits {
		v := &visits[i]
		period := v.Period()
		if len(periods) > 0 && !periods[period] {
			continue
		}
		k := groupKey{ClientCode: v.ClientCode, Period: period}
		computed[k] = computed[k].Add(v.Total)
	}

	keys := make(map[groupKey]bool, len(expected)+len(computed))
	for k := range expected {
		keys[k] = true
	}
	for k := range computed {
		keys[k] = true
	}

	tolerance := e.Tolerance
	if tolerance.IsNegative() {
		tolerance = decimal.Zero
	}

	var out []Discrepancy
	for k := range keys {
		exp, reported := expected[k]
		got := computed[k]
		delta := got.Sub(exp)
		if delta.Abs().LessThanOrEqual(tolerance) {
			continue
		}
		out = append(out, Discrepancy{
			ClientCode: k.ClientCode,
			Period:     k.Period,
			Expected:   exp,
			Computed:   got,
			Delta:      delta,
			Unreported: !reported,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClientCode != out[j].ClientCode {
			return out[i].ClientCode < out[j].ClientCode
		}
		return out[i].Period < out[j].Period
	})
	return out
}

// Issues turns discrepancies into ReconciliationMismatch issues.
func Issues(ds []Discrepancy, source string) []issues.Issue {
	out := make([]issues.Issue, 0, len(ds))
	for _, d := range ds {
		detail := "expected %s computed %s delta %s"
		if d.Unreported {
			detail = "no reported balance: expected %s computed %s delta %s"
		}
		out = append(out, issues.New(issues.ReconciliationMismatch, source, detail+" (client %s, period %s)",
			d.Expected.StringFixed(2), d.Computed.StringFixed(2), d.Delta.StringFixed(2), d.ClientCode, d.Period))
	}
	return out
}
