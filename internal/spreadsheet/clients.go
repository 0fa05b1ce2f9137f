package spreadsheet

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"recon/internal/issues"
	"recon/pkg/models"
)

var nonNumeric = regexp.MustCompile(`[^0-9.\-]`)

// roster headings as they appear after Normalize, including common misspellings.
var rosterAliases = map[string]string{
	"code":            "code",
	"client_code":     "code",
	"name":            "name",
	"phone":           "phone",
	"address1":        "address1",
	"adress1":         "address1",
	"address_1":       "address1",
	"address2":        "address2",
	"adress2":         "address2",
	"address_2":       "address2",
	"prepaid_balance": "prepaid_balance",
	"owed_amount":     "owed_amount",
	"email":           "email",
	"e_mail":          "email",
}

// ReadClients reads a client roster. The first row holds the headings; only
// the code column is required.
func ReadClients(path string) ([]models.Client, []issues.Issue, error) {
	rows, err := ReadTable(path)
	if err != nil {
		return nil, nil, err
	}
	return ParseClients(rows, path)
}

// ParseClients is ReadClients on rows already in memory.
func ParseClients(rows [][]string, source string) ([]models.Client, []issues.Issue, error) {
	const op = "ParseClients"
	if len(rows) == 0 {
		return nil, nil, issues.WrapSourceError(op, fmt.Errorf("empty roster"), source)
	}
	col := make(map[string]int)
	for i, h := range rows[0] {
		if field, ok := rosterAliases[Normalize(h)]; ok {
			if _, dup := col[field]; !dup {
				col[field] = i
			}
		}
	}
	if _, ok := col["code"]; !ok {
		return nil, nil, issues.WrapSourceError(op, fmt.Errorf("roster has no code column"), source)
	}
	get := func(row []string, field string) string {
		i, ok := col[field]
		if !ok {
			return ""
		}
		return Cell(row, i)
	}

	var clients []models.Client
	var found []issues.Issue
	for i, row := range rows[1:] {
		code := get(row, "code")
		if code == "" {
			continue
		}
		c := models.Client{
			Code:     code,
			Name:     get(row, "name"),
			Phone:    get(row, "phone"),
			Address1: get(row, "address1"),
			Address2: get(row, "address2"),
			Email:    get(row, "email"),
		}
		var err error
		if c.PrepaidBalance, err = rosterAmount(get(row, "prepaid_balance")); err != nil {
			found = append(found, issues.New(issues.MalformedRecord, source, "prepaid balance: %v", err).AtLine(i+2))
		}
		if c.OwedAmount, err = rosterAmount(get(row, "owed_amount")); err != nil {
			found = append(found, issues.New(issues.MalformedRecord, source, "owed amount: %v", err).AtLine(i+2))
		}
		clients = append(clients, c)
	}
	return clients, found, nil
}

// Blank balances are zero; anything that is not a number is reported and taken as zero.
func rosterAmount(s string) (decimal.Decimal, error) {
	cleaned := nonNumeric.ReplaceAllString(s, "")
	if cleaned == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}
