package models

import "github.com/shopspring/decimal"

// ItemRow is a flattened line item with its visit aggregates repeated on each row.
type ItemRow struct {
	ClientCode   string          `json:"client_code"`
	VisitID      string          `json:"visit_id"`
	Date         string          `json:"date"`
	Time         string          `json:"time"`
	Reference    string          `json:"reference"`
	Employee     string          `json:"employee"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	TaxTPS       decimal.Decimal `json:"tax_tps"`
	TaxTVQ       decimal.Decimal `json:"tax_tvq"`
	Tip          decimal.Decimal `json:"tip"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
	Inconsistent bool            `json:"inconsistent"`
}

// Rows flattens visits into item rows, keeping visit and item order.
func Rows(visits []Visit) []ItemRow {
	var rows []ItemRow
	for i := range visits {
		v := &visits[i]
		for _, item := range v.Items {
			rows = append(rows, ItemRow{
				ClientCode:   v.ClientCode,
				VisitID:      v.ID,
				Date:         v.Date,
				Time:         v.Time,
				Reference:    v.Reference,
				Employee:     v.Employee,
				Description:  item.Description,
				Price:        item.Price,
				Subtotal:     v.Subtotal,
				TaxTPS:       v.TaxTPS,
				TaxTVQ:       v.TaxTVQ,
				Tip:          v.Tip,
				Discount:     v.Discount,
				Total:        v.Total,
				Inconsistent: v.Inconsistent,
			})
		}
	}
	return rows
}
