package models

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// visitNamespace scopes the name-based visit identifiers so they never collide
// with identifiers minted by other systems from the same strings.
var visitNamespace = uuid.MustParse("6f1c2a7e-3b8d-4e51-9a0c-1105d2b4e7f3")

// Visit is one client transaction event, identified by client, date, time and reference.
type Visit struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	ClientCode string `gorm:"size:50;not null;index:idx_visits_client_date,priority:1" json:"client_code"`
	Date       string `gorm:"size:10;not null;index:idx_visits_client_date,priority:2" json:"date"` // YYYY-MM-DD
	Time       string `gorm:"size:5;not null" json:"time"`                                          // HH:MM
	Reference  string `gorm:"size:50;not null" json:"reference"`
	Employee   string `gorm:"size:100" json:"employee"`

	// Amounts are exact decimals; binary floats never hold a total.
	Subtotal decimal.Decimal `gorm:"type:text;not null" json:"subtotal"`
	TaxTPS   decimal.Decimal `gorm:"type:text;not null" json:"tax_tps"`
	TaxTVQ   decimal.Decimal `gorm:"type:text;not null" json:"tax_tvq"`
	Tip      decimal.Decimal `gorm:"type:text;not null" json:"tip"`
	Discount decimal.Decimal `gorm:"type:text;not null" json:"discount"`
	Total    decimal.Decimal `gorm:"type:text;not null" json:"total"`

	// Inconsistent is set when Total does not match the sum of its parts.
	Inconsistent bool   `gorm:"not null;default:false" json:"inconsistent"`
	Source       string `gorm:"size:255" json:"source,omitempty"`

	Items []VisitItem `gorm:"foreignKey:VisitID;constraint:OnDelete:CASCADE" json:"items"`

	// Pre-computed figures printed in the source document. Only used while aggregating.
	ReportedSubtotal decimal.NullDecimal `gorm:"-" json:"-"`
	ReportedTotal    decimal.NullDecimal `gorm:"-" json:"-"`
}

// VisitItem is one priced line within a visit.
type VisitItem struct {
	ID          uint            `gorm:"primaryKey" json:"id,omitempty"`
	VisitID     string          `gorm:"size:36;not null;index" json:"visit_id"`
	Position    int             `gorm:"not null" json:"position"`
	Description string          `gorm:"size:255;not null" json:"description"`
	Price       decimal.Decimal `gorm:"type:text;not null" json:"price"`
}

// VisitKey is the natural key of a visit.
type VisitKey struct {
	ClientCode string
	Date       string
	Time       string
	Reference  string
}

// VisitID derives the deterministic identifier of a visit from its natural key.
// Re-extracting the same source therefore always yields the same identifier.
func VisitID(clientCode, date, clock, reference string) string {
	name := strings.Join([]string{
		strings.TrimSpace(clientCode),
		strings.TrimSpace(date),
		strings.TrimSpace(clock),
		strings.TrimSpace(reference),
	}, "|")
	return uuid.NewSHA1(visitNamespace, []byte(name)).String()
}

// NewVisit creates an empty visit with its identifier already derived.
func NewVisit(clientCode, date, clock, reference, employee string) Visit {
	return Visit{
		ID:         VisitID(clientCode, date, clock, reference),
		ClientCode: clientCode,
		Date:       date,
		Time:       clock,
		Reference:  reference,
		Employee:   employee,
	}
}

// Key returns the natural key of the visit.
func (v *Visit) Key() VisitKey {
	return VisitKey{ClientCode: v.ClientCode, Date: v.Date, Time: v.Time, Reference: v.Reference}
}

// Period returns the YYYY-MM billing period containing the visit date.
func (v *Visit) Period() string {
	return PeriodOf(v.Date)
}

// AddLine records a priced line. Lines describing taxes, tips, discounts or
// printed totals update the visit-level fields instead of becoming items.
func (v *Visit) AddLine(description string, amount decimal.Decimal) {
	description = strings.TrimSpace(description)
	switch ClassifyCharge(description) {
	case ChargeSubtotal:
		v.ReportedSubtotal = decimal.NewNullDecimal(amount)
	case ChargeTPS:
		v.TaxTPS = v.TaxTPS.Add(amount)
	case ChargeTVQ:
		v.TaxTVQ = v.TaxTVQ.Add(amount)
	case ChargeTip:
		v.Tip = v.Tip.Add(amount)
	case ChargeDiscount:
		// Sources print discounts either signed or unsigned.
		v.Discount = v.Discount.Add(amount.Abs())
	case ChargeTotal:
		v.ReportedTotal = decimal.NewNullDecimal(amount)
	default:
		v.Items = append(v.Items, VisitItem{
			VisitID:     v.ID,
			Position:    len(v.Items) + 1,
			Description: description,
			Price:       amount,
		})
	}
}

// ItemsTotal sums the item prices.
func (v *Visit) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range v.Items {
		sum = sum.Add(item.Price)
	}
	return sum
}

// ExpectedTotal is subtotal + taxes + tip - discount.
func (v *Visit) ExpectedTotal() decimal.Decimal {
	return v.Subtotal.Add(v.TaxTPS).Add(v.TaxTVQ).Add(v.Tip).Sub(v.Discount)
}

// SameContent reports whether two visits carry the same extracted content.
// Surrogate item identifiers and the source document name are ignored.
func SameContent(a, b *Visit) bool {
	if a.ID != b.ID || a.ClientCode != b.ClientCode || a.Date != b.Date ||
		a.Time != b.Time || a.Reference != b.Reference || a.Employee != b.Employee {
		return false
	}
	amounts := [][2]decimal.Decimal{
		{a.Subtotal, b.Subtotal},
		{a.TaxTPS, b.TaxTPS},
		{a.TaxTVQ, b.TaxTVQ},
		{a.Tip, b.Tip},
		{a.Discount, b.Discount},
		{a.Total, b.Total},
	}
	for _, pair := range amounts {
		if !pair[0].Equal(pair[1]) {
			return false
		}
	}
	if len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		if a.Items[i].Description != b.Items[i].Description || !a.Items[i].Price.Equal(b.Items[i].Price) {
			return false
		}
	}
	return true
}

// Less orders visits by date, time, reference and client.
func Less(a, b *Visit) bool {
	if a.Date != b.Date {
		return a.Date < b.Date
	}
	if a.Time != b.Time {
		return a.Time < b.Time
	}
	if a.Reference != b.Reference {
		return a.Reference < b.Reference
	}
	return a.ClientCode < b.ClientCode
}
