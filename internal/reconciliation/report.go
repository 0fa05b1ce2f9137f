package reconciliation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"recon/internal/issues"
	"recon/internal/spreadsheet"
	"recon/pkg/models"
)

func isCodeColumn(c string) bool {
	return strings.Contains(c, "code") || strings.Contains(c, "client")
}

func isBalanceColumn(c string) bool {
	return strings.HasPrefix(c, "balance") || strings.HasPrefix(c, "owed") ||
		strings.Contains(c, "amount") || strings.HasPrefix(c, "total")
}

// ReadMonthlyReport reads reported balances for one period from a CSV file
// or Excel workbook.
func ReadMonthlyReport(path, period string) ([]models.MonthlyReport, []issues.Issue, error) {
	rows, err := spreadsheet.ReadTable(path)
	if err != nil {
		return nil, nil, err
	}
	return ParseMonthlyRows(rows, period, path)
}

// ParseMonthlyRows extracts client balances from a table. The header row is
// the first one naming both a client code column and a balance column; rows
// above it are titles. Balances of repeated client codes are summed. Rows
// whose balance cannot be parsed are reported and skipped.
func ParseMonthlyRows(rows [][]string, period, source string) ([]models.MonthlyReport, []issues.Issue, error) {
	const op = "ParseMonthlyRows"

	if _, err := models.ParseDate(period + "-01"); err != nil || len(period) != 7 {
		return nil, nil, fmt.Errorf("%s: invalid period %q, want YYYY-MM", op, period)
	}

	headerRow := spreadsheet.FindHeaderRow(rows, func(cols []string) bool {
		hasCode, hasBalance := false, false
		for _, c := range cols {
			hasCode = hasCode || isCodeColumn(c)
			hasBalance = hasBalance || isBalanceColumn(c)
		}
		return hasCode && hasBalance
	})
	if headerRow < 0 {
		return nil, nil, issues.WrapSourceError(op,
			fmt.Errorf("unable to determine code or balance columns"), source)
	}

	codeCol, balanceCol := -1, -1
	for i, h := range rows[headerRow] {
		c := spreadsheet.Normalize(h)
		if codeCol < 0 && isCodeColumn(c) {
			codeCol = i
		}
		if balanceCol < 0 && isBalanceColumn(c) {
			balanceCol = i
		}
	}

	balances := make(map[string]decimal.Decimal)
	var order []string
	var found []issues.Issue
	for i := headerRow + 1; i < len(rows); i++ {
		code := spreadsheet.Cell(rows[i], codeCol)
		if code == "" || strings.EqualFold(code, "nan") {
			continue
		}
		raw := spreadsheet.Cell(rows[i], balanceCol)
		balance, err := models.ParseAmount(raw)
		if err != nil {
			found = append(found, issues.New(issues.MalformedRecord, source,
				"client %s: unparsable balance %q", code, raw).AtLine(i+1))
			continue
		}
		if _, seen := balances[code]; !seen {
			order = append(order, code)
		}
		balances[code] = balances[code].Add(balance)
	}

	sort.Strings(order)
	reports := make([]models.MonthlyReport, 0, len(order))
	for _, code := range order {
		reports = append(reports, models.MonthlyReport{ClientCode: code, Period: period, Balance: balances[code]})
	}
	return reports, found, nil
}
