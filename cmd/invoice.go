package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"recon/internal/invoice"
	"recon/internal/issues"
	"recon/internal/logger"
	"recon/pkg/models"
)

var invoiceCmd = &cobra.Command{
	Use:   "invoice",
	Short: "Build per-client invoices from stored visits",
	Long: `Build one invoice per client for a billing period from the stored visits.

Each invoice lists the client's visits of the period ordered by date, time and
reference, and sums their subtotals, taxes, tips, discounts and totals. The
invoice identifier is <client>_<period>; building it again replaces the stored
invoice but keeps its original creation time.

Invoices not stored yet are dated now, or at --issued-at when given, so
repeated dry runs produce identical output.

Client names come from the roster imported with "recon import clients".
Clients missing from the roster are invoiced under their code and reported.

With --out the invoices are written as <id>.json into that directory,
otherwise as one JSON list to stdout.`,
	Example: `  # Build all invoices for August
  recon invoice --period 2025-08 -o ./invoices

  # Rebuild one client's invoice without storing it
  recon invoice --period 2025-08 --client C-42 --dry-run

  # Preview August invoices dated at the period close
  recon invoice --period 2025-08 --issued-at 2025-09-01 --dry-run`,
	RunE: runInvoice,
}

func init() {
	rootCmd.AddCommand(invoiceCmd)

	invoiceCmd.Flags().String("period", "", "Billing period (format: YYYY-MM) [REQUIRED]")
	invoiceCmd.Flags().String("client", "", "Only build the invoice of this client code")
	invoiceCmd.Flags().String("issued-at", "", "Creation time of new invoices (format: YYYY-MM-DD or RFC 3339, default: now)")
	invoiceCmd.MarkFlagRequired("period")
}

func runInvoice(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("invoice")

	dryRun, outputDir := commonFlags(cmd)
	period, _ := cmd.Flags().GetString("period")
	client, _ := cmd.Flags().GetString("client")
	issuedFlag, _ := cmd.Flags().GetString("issued-at")

	if _, _, err := invoice.PeriodBounds(period); err != nil {
		return fmt.Errorf("invalid period. Use YYYY-MM: %w", err)
	}
	issuedAt, err := parseIssuedAt(issuedFlag, time.Now())
	if err != nil {
		return err
	}

	log.Info().
		Str("period", period).
		Str("client", client).
		Str("output", outputDir).
		Time("issued_at", issuedAt).
		Bool("dry_run", dryRun).
		Msg("Starting invoice generation")

	ctx, cancel := createContext(10*time.Minute, log)
	defer cancel()

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	visits, err := s.VisitsForPeriod(ctx, period, client)
	if err != nil {
		return err
	}
	if len(visits) == 0 {
		fmt.Fprintf(os.Stderr, "No visits stored for %s.\n", strings.TrimSpace(period+" "+client))
		return nil
	}

	names, err := s.ClientNames(ctx)
	if err != nil {
		return err
	}

	invoices, missing, err := invoice.NewBuilder().BuildAll(period, visits, invoice.NameMap(names), issuedAt)
	if err != nil {
		return err
	}
	ids := make([]string, len(invoices))
	for i, inv := range invoices {
		ids[i] = inv.ID
	}
	created, err := s.InvoiceCreatedAt(ctx, ids)
	if err != nil {
		return err
	}
	keepCreatedAt(invoices, created)
	found := &issues.Log{}
	found.Add(missing...)

	for _, inv := range invoices {
		if err := invoice.Validate(inv); err != nil {
			return err
		}
		if !dryRun {
			if err := s.SaveInvoice(ctx, inv); err != nil {
				return err
			}
		}
	}

	if err := writeInvoices(invoices, outputDir); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, strings.Repeat("=", 50))
	for _, inv := range invoices {
		fmt.Fprintf(os.Stderr, "%-20s %-30s %4d visits %10s\n", inv.ID, inv.ClientName, len(inv.Items), inv.Total.StringFixed(2))
	}
	fmt.Fprintln(os.Stderr, strings.Repeat("=", 50))
	printSummary(found, log)

	log.Info().
		Int("invoices", len(invoices)).
		Int("visits", len(visits)).
		Msg("Invoice generation completed")
	return nil
}

func writeInvoices(invoices []*models.Invoice, outputDir string) error {
	log := logger.WithComponent("invoice")
	if outputDir == "" {
		return writeJSON(invoices, "", log)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, inv := range invoices {
		if err := writeJSON(inv, filepath.Join(outputDir, inv.ID+".json"), log); err != nil {
			return err
		}
	}
	return nil
}

var issuedAtLayouts = []string{time.RFC3339, "2006-01-02"}

// parseIssuedAt parses the --issued-at flag. An empty value means now.
func parseIssuedAt(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return now, nil
	}
	for _, layout := range issuedAtLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --issued-at %q. Use YYYY-MM-DD or RFC 3339", value)
}

// keepCreatedAt dates rebuilt invoices at the creation time of their stored
// version, as storing them would.
func keepCreatedAt(invoices []*models.Invoice, created map[string]time.Time) {
	for _, inv := range invoices {
		if t, ok := created[inv.ID]; ok {
			inv.CreatedAt = t
		}
	}
}
