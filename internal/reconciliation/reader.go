package reconciliation

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"recon/internal/issues"
	"recon/internal/logger"
	"recon/pkg/models"
)

// SheetsClient is the part of the Google Sheets service used for reconciliation.
type SheetsClient interface {
	ReadRange(ctx context.Context, rangeSpec string) ([][]interface{}, error)
	AppendRows(ctx context.Context, sheetName string, headers []string, rows [][]interface{}) error
}

// DataReader reads monthly balances from, and writes discrepancies to, Google Sheets
type DataReader struct {
	sheetsService SheetsClient
	log           zerolog.Logger
}

// NewDataReader creates a new data reader for Google Sheets
func NewDataReader(sheetsService SheetsClient) *DataReader {
	return &DataReader{
		sheetsService: sheetsService,
		log:           logger.WithComponent("reconciliation-reader"),
	}
}

// ReadMonthlyReport reads reported balances for one period from a sheet.
// The sheet layout follows the same rules as monthly report files.
func (dr *DataReader) ReadMonthlyReport(ctx context.Context, sheetName, period string) ([]models.MonthlyReport, []issues.Issue, error) {
	const op = "ReadMonthlyReport"

	dr.log.Info().Str("sheet", sheetName).Str("period", period).Msg("Reading monthly report")

	values, err := dr.sheetsService.ReadRange(ctx, sheetName+"!A:Z")
	if err != nil {
		return nil, nil, issues.WrapSourceError(op, err, "sheet "+sheetName)
	}
	if len(values) == 0 {
		return nil, nil, issues.WrapSourceError(op, fmt.Errorf("%s sheet is empty", sheetName), "sheet "+sheetName)
	}

	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = make([]string, len(row))
		for j := range row {
			rows[i][j] = getString(row, j)
		}
	}

	reports, found, err := ParseMonthlyRows(rows, period, "sheet "+sheetName)
	if err != nil {
		return nil, nil, err
	}
	for _, issue := range found {
		dr.log.Warn().EmbedObject(issue).Msg("Skipping monthly report row")
	}

	dr.log.Info().
		Int("total_rows", len(values)).
		Int("clients", len(reports)).
		Str("sheet", sheetName).
		Msg("Monthly report read successfully")

	return reports, found, nil
}

// WriteDiscrepancies appends discrepancy rows to a worksheet, creating it when missing.
func (dr *DataReader) WriteDiscrepancies(ctx context.Context, sheetName string, ds []Discrepancy) error {
	const op = "WriteDiscrepancies"

	if err := dr.sheetsService.AppendRows(ctx, sheetName, DiscrepancyHeaders, Rows(ds)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	dr.log.Info().Str("sheet", sheetName).Int("discrepancies", len(ds)).Msg("Discrepancies written")
	return nil
}

// getString safely extracts a string value from a row slice
func getString(row []interface{}, index int) string {
	if index >= len(row) || row[index] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", row[index]))
}
