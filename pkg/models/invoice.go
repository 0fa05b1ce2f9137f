package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Invoice struct {
	// Core identifiers
	ID         string `gorm:"primaryKey;size:80" json:"id"` // <client_code>_<period>
	ClientCode string `gorm:"size:50;not null;index" json:"client_code"`
	ClientName string `gorm:"size:255" json:"client_name"`

	// Billing period, inclusive, YYYY-MM-DD
	PeriodStart string `gorm:"size:10;not null" json:"period_start"`
	PeriodEnd   string `gorm:"size:10;not null" json:"period_end"`

	// Amounts summed over the covered visits
	Subtotal decimal.Decimal `gorm:"type:text;not null" json:"subtotal"`
	TaxTPS   decimal.Decimal `gorm:"type:text;not null" json:"tax_tps"`
	TaxTVQ   decimal.Decimal `gorm:"type:text;not null" json:"tax_tvq"`
	Tip      decimal.Decimal `gorm:"type:text;not null" json:"tip"`
	Discount decimal.Decimal `gorm:"type:text;not null" json:"discount"`
	Total    decimal.Decimal `gorm:"type:text;not null" json:"total"`

	CreatedAt time.Time `json:"created_at"` // first generation time, kept on regeneration

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
}

// InvoiceItem is one visit billed on an invoice.
type InvoiceItem struct {
	ID        uint            `gorm:"primaryKey" json:"id,omitempty"`
	InvoiceID string          `gorm:"size:80;not null;index" json:"invoice_id"`
	VisitID   string          `gorm:"size:36;not null" json:"visit_id"`
	Position  int             `gorm:"not null" json:"position"`
	Date      string          `gorm:"size:10;not null" json:"date"`
	Time      string          `gorm:"size:5;not null" json:"time"`
	Reference string          `gorm:"size:50" json:"reference"`
	Amount    decimal.Decimal `gorm:"type:text;not null" json:"amount"`
}

// InvoiceID returns the identifier of a client's invoice for a YYYY-MM period.
func InvoiceID(clientCode, period string) string {
	return clientCode + "_" + period
}
