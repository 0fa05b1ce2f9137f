// Package spreadsheet reads and writes the tabular files exchanged with the
// back office: CSV and Excel exports of transactions, client rosters and
// monthly balances.
package spreadsheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"recon/internal/issues"
	"recon/pkg/models"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor Excel.
var ErrUnsupportedFormat = errors.New("unsupported table format")

// IsExcel reports whether path names an Excel workbook.
func IsExcel(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

// ReadTable returns every row of a CSV file or of the first sheet of an Excel
// workbook. Rows may have different lengths.
func ReadTable(path string) ([][]string, error) {
	const op = "ReadTable"
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case IsExcel(path):
		rows, err := readExcel(path)
		if err != nil {
			return nil, issues.WrapSourceError(op, err, path)
		}
		return rows, nil
	case ext == ".csv" || ext == ".txt":
		rows, err := readCSV(path)
		if err != nil {
			return nil, issues.WrapSourceError(op, err, path)
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("%s: %s: %w", op, path, ErrUnsupportedFormat)
	}
}

func readExcel(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return rows, nil
}

// WriteExcel writes one sheet with a bold header row and saves it to path.
func WriteExcel(path, sheetName string, headers []string, rows [][]interface{}) error {
	const op = "WriteExcel"
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("%s: failed to write header: %w", op, err)
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(sheetName, "A1", last, style)
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := f.SetSheetRow(sheetName, cell, &rows[i]); err != nil {
			return fmt.Errorf("%s: failed to write row %d: %w", op, i+2, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("%s: failed to save %s: %w", op, path, err)
	}
	return nil
}

// Normalize lower-cases a column heading and folds spaces, dashes and
// parentheses so "Prepaid Balance" and "prepaid-balance" compare equal.
func Normalize(heading string) string {
	h := strings.ToLower(strings.TrimSpace(heading))
	h = strings.NewReplacer("(", "", ")", "", "-", "_", " ", "_").Replace(h)
	return h
}

// FindHeaderRow returns the index of the first row accepted by match, whose
// cells are passed normalized. Exports often carry title rows above the table.
func FindHeaderRow(rows [][]string, match func(cols []string) bool) int {
	for i, row := range rows {
		cols := make([]string, len(row))
		for j, c := range row {
			cols[j] = Normalize(c)
		}
		if match(cols) {
			return i
		}
	}
	return -1
}

// FindColumn returns the first column whose normalized heading contains one
// of the keywords, trying keywords in order.
func FindColumn(headers []string, keywords ...string) int {
	for _, kw := range keywords {
		for i, h := range headers {
			if strings.Contains(Normalize(h), kw) {
				return i
			}
		}
	}
	return -1
}

// Cell returns the trimmed cell at index i, or "" when the row is shorter.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// CellDate returns YYYY-MM-DD for the date spellings found in exports,
// including Excel serial day numbers.
func CellDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 1 {
		t, err := excelize.ExcelDateToTime(f, false)
		if err != nil {
			return "", err
		}
		return t.Format("2006-01-02"), nil
	}
	// Some exports carry a midnight time after the date.
	if date, _, ok := strings.Cut(s, " "); ok && len(date) >= 8 {
		s = date
	}
	return models.ParseDate(s)
}

// CellClock returns HH:MM for clock strings and for Excel day fractions.
func CellClock(s string) (string, error) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f < 1 {
		minutes := int(f*24*60 + 0.5)
		return fmt.Sprintf("%02d:%02d", minutes/60%24, minutes%60), nil
	}
	return models.ParseClock(s)
}
