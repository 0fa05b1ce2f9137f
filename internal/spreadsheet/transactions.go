package spreadsheet

import (
	"fmt"
	"strings"

	"recon/internal/issues"
	"recon/pkg/models"
)

// transactionColumns locates the columns of a transaction export.
type transactionColumns struct {
	code, date, clock, ref, employee, desc, price int
}

func locateTransactionColumns(header []string) (transactionColumns, error) {
	c := transactionColumns{
		code:     FindColumn(header, "client_code", "code", "client"),
		date:     FindColumn(header, "date", "transaction_date"),
		clock:    FindColumn(header, "time", "transaction_time"),
		ref:      FindColumn(header, "reference", "ref", "#"),
		employee: FindColumn(header, "employee", "server"),
		desc:     FindColumn(header, "description", "item", "detail"),
		price:    FindColumn(header, "price", "amount", "total"),
	}
	var missing []string
	for name, idx := range map[string]int{
		"client code": c.code, "date": c.date, "time": c.clock,
		"reference": c.ref, "employee": c.employee, "price": c.price,
	} {
		if idx < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return c, fmt.Errorf("missing expected columns: %s", strings.Join(missing, ", "))
	}
	return c, nil
}

// ReadTransactions reads a transaction export (one item per row) and groups
// the rows into visits by client, date, time and reference. Title rows above
// the table are skipped. When the export has no description column the
// reference cell may hold "#ref" followed by the description on a second line.
func ReadTransactions(path string) ([]models.Visit, []issues.Issue, error) {
	rows, err := ReadTable(path)
	if err != nil {
		return nil, nil, err
	}
	return ParseTransactions(rows, path)
}

// ParseTransactions is ReadTransactions on rows already in memory.
func ParseTransactions(rows [][]string, source string) ([]models.Visit, []issues.Issue, error) {
	const op = "ParseTransactions"
	if len(rows) == 0 {
		return nil, nil, issues.WrapSourceError(op, fmt.Errorf("empty table"), source)
	}
	headerRow := FindHeaderRow(rows, func(cols []string) bool {
		return contains(cols, "client_code") && contains(cols, "date")
	})
	if headerRow < 0 {
		headerRow = 0
	}
	cols, err := locateTransactionColumns(rows[headerRow])
	if err != nil {
		return nil, nil, issues.WrapSourceError(op, err, source)
	}

	var visits []models.Visit
	var found []issues.Issue
	index := make(map[models.VisitKey]int)
	for i := headerRow + 1; i < len(rows); i++ {
		row, line := rows[i], i+1
		code := Cell(row, cols.code)
		if code == "" || strings.EqualFold(code, "nan") {
			continue
		}
		bad := func(format string, args ...any) {
			found = append(found, issues.New(issues.MalformedRecord, source, format, args...).AtLine(line))
		}

		date, err := CellDate(Cell(row, cols.date))
		if err != nil {
			bad("%v", err)
			continue
		}
		clock, err := CellClock(Cell(row, cols.clock))
		if err != nil {
			bad("%v", err)
			continue
		}
		ref, desc := Cell(row, cols.ref), Cell(row, cols.desc)
		if cols.desc < 0 {
			ref, desc, _ = strings.Cut(ref, "\n")
		}
		ref = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(ref), "#"))
		if ref == "" {
			bad("empty reference")
			continue
		}
		price, err := models.ParseAmount(Cell(row, cols.price))
		if err != nil {
			bad("%v", err)
			continue
		}

		key := models.VisitKey{ClientCode: code, Date: date, Time: clock, Reference: ref}
		idx, ok := index[key]
		if !ok {
			v := models.NewVisit(code, date, clock, ref, Cell(row, cols.employee))
			v.Source = source
			visits = append(visits, v)
			idx = len(visits) - 1
			index[key] = idx
		}
		visits[idx].AddLine(strings.TrimSpace(desc), price)
	}
	return visits, found, nil
}

func contains(cols []string, want string) bool {
	for _, c := range cols {
		if c == want {
			return true
		}
	}
	return false
}
