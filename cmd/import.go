package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"recon/internal/issues"
	"recon/internal/logger"
	"recon/internal/reconciliation"
	"recon/internal/sheets"
	"recon/internal/spreadsheet"
	"recon/pkg/models"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import reference data into the database",
	Long: `Import the client roster or a monthly balance report into the database.

Both accept .csv and .xlsx files. Monthly reports can also be read from a
worksheet of the Google Sheet named by GOOGLE_SHEET_URL.`,
}

var importClientsCmd = &cobra.Command{
	Use:   "clients [file]",
	Short: "Import the client roster",
	Long: `Import the client roster from a .csv or .xlsx file.

The first row holds the column names. A code column is required; name, phone,
address1, address2, email, prepaid balance and owed amount are read when
present. Existing clients are replaced by code.`,
	Example: `  recon import clients clients.xlsx`,
	Args:    cobra.ExactArgs(1),
	RunE:    runImportClients,
}

var importMonthlyCmd = &cobra.Command{
	Use:   "monthly [file]",
	Short: "Import reported monthly balances",
	Long: `Import the independently reported balance of each client for one period.

The header row is detected automatically: it is the first row holding both a
client code column and a balance, owed, amount or total column. Balances of
a client listed more than once are summed.

Required environment variables for --sheet:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_SHEET_URL - Google Sheets URL`,
	Example: `  # Import from a spreadsheet file
  recon import monthly august.xlsx --period 2025-08

  # Import from a worksheet of the configured Google Sheet
  recon import monthly --sheet "August" --period 2025-08`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImportMonthly,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.AddCommand(importClientsCmd)
	importCmd.AddCommand(importMonthlyCmd)

	importMonthlyCmd.Flags().String("period", "", "Reporting period (format: YYYY-MM) [REQUIRED]")
	importMonthlyCmd.Flags().String("sheet", "", "Read the report from this worksheet of GOOGLE_SHEET_URL")
	importMonthlyCmd.MarkFlagRequired("period")
}

func runImportClients(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("import")
	dryRun, outputPath := commonFlags(cmd)

	clients, found, err := spreadsheet.ReadClients(args[0])
	if err != nil {
		return err
	}
	issueLog := &issues.Log{}
	issueLog.Add(found...)

	if !dryRun {
		ctx, cancel := createContext(5*time.Minute, log)
		defer cancel()

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.UpsertClients(ctx, clients); err != nil {
			return err
		}
	}

	if outputPath != "" {
		if err := writeJSON(clients, outputPath, log); err != nil {
			return err
		}
	}
	fmt.Fprintf(os.Stderr, "Clients imported: %d\n", len(clients))
	printSummary(issueLog, log)
	return nil
}

func runImportMonthly(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("import")
	dryRun, outputPath := commonFlags(cmd)
	period, _ := cmd.Flags().GetString("period")
	sheetName, _ := cmd.Flags().GetString("sheet")

	var file string
	if len(args) == 1 {
		file = args[0]
	}

	ctx, cancel := createContext(5*time.Minute, log)
	defer cancel()

	reports, found, err := loadMonthlyReport(ctx, file, sheetName, period, log)
	if err != nil {
		return err
	}
	issueLog := &issues.Log{}
	issueLog.Add(found...)

	if !dryRun {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.UpsertMonthlyReports(ctx, reports); err != nil {
			return err
		}
	}

	if outputPath != "" {
		if err := writeJSON(reports, outputPath, log); err != nil {
			return err
		}
	}
	fmt.Fprintf(os.Stderr, "Balances imported for %s: %d\n", period, len(reports))
	printSummary(issueLog, log)
	return nil
}

// loadMonthlyReport reads reported balances from a file or, when sheetName is
// set, from a worksheet of the configured Google Sheet.
func loadMonthlyReport(ctx context.Context, file, sheetName, period string, log zerolog.Logger) ([]models.MonthlyReport, []issues.Issue, error) {
	switch {
	case file != "" && sheetName != "":
		return nil, nil, fmt.Errorf("give either a report file or --sheet, not both")
	case file != "":
		return reconciliation.ReadMonthlyReport(file, period)
	case sheetName != "":
		reader, err := createDataReader(ctx)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("sheet", sheetName).Str("period", period).Msg("Reading monthly report from Google Sheets")
		return reader.ReadMonthlyReport(ctx, sheetName, period)
	default:
		return nil, nil, fmt.Errorf("a report file or --sheet is required")
	}
}

func createDataReader(ctx context.Context) (*reconciliation.DataReader, error) {
	if cfg.GoogleSheetURL == "" {
		return nil, fmt.Errorf("GOOGLE_SHEET_URL environment variable is required")
	}
	sheetsService, err := sheets.NewSheetsService(ctx, cfg.GoogleSheetURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Sheets service: %w", err)
	}
	return reconciliation.NewDataReader(sheetsService), nil
}
