package models

import "github.com/shopspring/decimal"

// Client is a roster entry. Invoices resolve display names through it.
type Client struct {
	Code           string          `gorm:"primaryKey;size:50" json:"code"`
	Name           string          `gorm:"size:255" json:"name"`
	Phone          string          `gorm:"size:50" json:"phone,omitempty"`
	Address1       string          `gorm:"size:255" json:"address1,omitempty"`
	Address2       string          `gorm:"size:255" json:"address2,omitempty"`
	Email          string          `gorm:"size:255" json:"email,omitempty"`
	PrepaidBalance decimal.Decimal `gorm:"type:text;not null" json:"prepaid_balance"`
	OwedAmount     decimal.Decimal `gorm:"type:text;not null" json:"owed_amount"`
}

// MonthlyReport is the independently reported balance of a client for one period.
type MonthlyReport struct {
	ClientCode string          `gorm:"primaryKey;size:50" json:"client_code"`
	Period     string          `gorm:"primaryKey;size:7" json:"period"` // YYYY-MM
	Balance    decimal.Decimal `gorm:"type:text;not null" json:"balance"`
}

func (MonthlyReport) TableName() string {
	return "monthly_report"
}
