// Package invoice groups a client's aggregated visits over a billing period
// into invoice records.
//
// An invoice covers one client and an inclusive date range, normally one
// calendar month. Its identifier is derived from the client code and the
// YYYY-MM period, so regenerating an invoice after re-extracting the sources
// replaces the earlier one instead of adding a second invoice.
//
// Billing Rules:
//   - A visit belongs wholly to the period containing its date; visits are never split
//   - Each contributing visit becomes one item whose amount is the visit total
//   - Items are ordered by visit date, time, reference and identifier
//   - Visits flagged as inconsistent are still billed
//   - A client missing from the roster is billed under its code
//
// Building is deterministic: the same request and the same visits always
// produce an identical invoice.
package invoice

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"recon/internal/issues"
	"recon/internal/logger"
	"recon/pkg/models"
)

// Request describes the invoice to build.
type Request struct {
	ClientCode  string
	ClientName  string
	PeriodStart string // YYYY-MM-DD, inclusive
	PeriodEnd   string // YYYY-MM-DD, inclusive

	// IssuedAt becomes the invoice creation time. Callers pass the same value
	// on regeneration to keep the output identical.
	IssuedAt time.Time
}

// NameResolver resolves client codes to display names.
type NameResolver interface {
	ClientName(code string) (string, bool)
}

// NameMap is a NameResolver backed by a map from code to name.
type NameMap map[string]string

// ClientName implements NameResolver.
func (m NameMap) ClientName(code string) (string, bool) {
	name, ok := m[code]
	return name, ok
}

// Builder builds invoices from aggregated visits.
type Builder struct {
	log zerolog.Logger
}

// NewBuilder creates a new invoice builder.
func NewBuilder() *Builder {
	return &Builder{log: logger.WithComponent("invoice-builder")}
}

// PeriodBounds returns the first and last day of a YYYY-MM period.
func PeriodBounds(period string) (start, end string, err error) {
	t, err := time.Parse("2006-01", period)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	last := t.AddDate(0, 1, -1)
	return t.Format("2006-01-02"), last.Format("2006-01-02"), nil
}

// Build creates the invoice of one client over the request period from the
// visits of that client dated within it. Other visits are ignored.
func (b *Builder) Build(req Request, visits []models.Visit) (*models.Invoice, error) {
	const op = "Build"

	if err := validateRequest(req); err != nil {
		return nil, WrapBuildError(op, err, req.ClientCode)
	}

	var covered []*models.Visit
	for i := range visits {
		v := &visits[i]
		if v.ClientCode == req.ClientCode && v.Date >= req.PeriodStart && v.Date <= req.PeriodEnd {
			covered = append(covered, v)
		}
	}
	sort.Slice(covered, func(i, j int) bool {
		a, b := covered[i], covered[j]
		if models.Less(a, b) {
			return true
		}
		if models.Less(b, a) {
			return false
		}
		return a.ID < b.ID
	})

	name := req.ClientName
	if name == "" {
		name = req.ClientCode
	}
	inv := &models.Invoice{
		ID:          models.InvoiceID(req.ClientCode, models.PeriodOf(req.PeriodStart)),
		ClientCode:  req.ClientCode,
		ClientName:  name,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		Subtotal:    decimal.Zero,
		TaxTPS:      decimal.Zero,
		TaxTVQ:      decimal.Zero,
		Tip:         decimal.Zero,
		Discount:    decimal.Zero,
		Total:       decimal.Zero,
		CreatedAt:   req.IssuedAt.UTC().Truncate(time.Second),
		Items:       make([]models.InvoiceItem, 0, len(covered)),
	}
	for i, v := range covered {
		inv.Subtotal = inv.Subtotal.Add(v.Subtotal)
		inv.TaxTPS = inv.TaxTPS.Add(v.TaxTPS)
		inv.TaxTVQ = inv.TaxTVQ.Add(v.TaxTVQ)
		inv.Tip = inv.Tip.Add(v.Tip)
		inv.Discount = inv.Discount.Add(v.Discount)
		inv.Total = inv.Total.Add(v.Total)
		inv.Items = append(inv.Items, models.InvoiceItem{
			InvoiceID: inv.ID,
			VisitID:   v.ID,
			Position:  i + 1,
			Date:      v.Date,
			Time:      v.Time,
			Reference: v.Reference,
			Amount:    v.Total,
		})
	}

	b.log.Debug().
		Str("invoice_id", inv.ID).
		Int("items", len(inv.Items)).
		Str("total", inv.Total.StringFixed(2)).
		Msg("Invoice built")

	return inv, nil
}

// BuildAll builds one invoice per client with visits in the YYYY-MM period,
// ordered by client code. Names come from the resolver; a client it does not
// know is billed under its code and reported as MissingClient.
func (b *Builder) BuildAll(period string, visits []models.Visit, names NameResolver, issuedAt time.Time) ([]*models.Invoice, []issues.Issue, error) {
	const op = "BuildAll"

	start, end, err := PeriodBounds(period)
	if err != nil {
		return nil, nil, WrapBuildError(op, err, "")
	}

	seen := make(map[string]bool)
	var clients []string
	for i := range visits {
		v := &visits[i]
		if v.Period() == period && !seen[v.ClientCode] {
			seen[v.ClientCode] = true
			clients = append(clients, v.ClientCode)
		}
	}
	sort.Strings(clients)

	var invoices []*models.Invoice
	var found []issues.Issue
	for _, code := range clients {
		name, ok := "", false
		if names != nil {
			name, ok = names.ClientName(code)
		}
		if !ok {
			found = append(found, issues.New(issues.MissingClient, "", "client %s not in roster, billed under its code", code))
		}
		inv, err := b.Build(Request{
			ClientCode:  code,
			ClientName:  name,
			PeriodStart: start,
			PeriodEnd:   end,
			IssuedAt:    issuedAt,
		}, visits)
		if err != nil {
			return nil, found, err
		}
		invoices = append(invoices, inv)
	}

	b.log.Info().Str("period", period).Int("invoices", len(invoices)).Msg("Invoices built")
	return invoices, found, nil
}

func validateRequest(req Request) error {
	if req.ClientCode == "" {
		return NewValidationError("client_code", req.ClientCode, "must not be empty")
	}
	if d, err := models.ParseDate(req.PeriodStart); err != nil || d != req.PeriodStart {
		return NewValidationError("period_start", req.PeriodStart, "must be YYYY-MM-DD")
	}
	if d, err := models.ParseDate(req.PeriodEnd); err != nil || d != req.PeriodEnd {
		return NewValidationError("period_end", req.PeriodEnd, "must be YYYY-MM-DD")
	}
	if req.PeriodEnd < req.PeriodStart {
		return NewValidationError("period_end", req.PeriodEnd, "must not precede period_start")
	}
	return nil
}
