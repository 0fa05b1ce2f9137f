package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"recon/internal/issues"
	"recon/pkg/models"
)

func visit(client, date, total string) models.Visit {
	v := models.NewVisit(client, date, "12:00", date+client+total, "")
	v.Total = models.MustAmount(total)
	return v
}

func report(client, period, balance string) models.MonthlyReport {
	return models.MonthlyReport{ClientCode: client, Period: period, Balance: models.MustAmount(balance)}
}

func TestReconcileShortfall(t *testing.T) {
	visits := []models.Visit{
		visit("C-42", "2025-08-03", "100.00"),
		visit("C-42", "2025-08-19", "15.00"),
	}
	reports := []models.MonthlyReport{report("C-42", "2025-08", "120.00")}

	got := NewEngine(DefaultTolerance).Reconcile(visits, reports)
	if len(got) != 1 {
		t.Fatalf("got %d discrepancies, want 1: %+v", len(got), got)
	}
	d := got[0]
	if d.ClientCode != "C-42" || d.Period != "2025-08" {
		t.Errorf("group = %s %s", d.ClientCode, d.Period)
	}
	if d.Expected.StringFixed(2) != "120.00" || d.Computed.StringFixed(2) != "115.00" || d.Delta.StringFixed(2) != "-5.00" {
		t.Errorf("expected %s computed %s delta %s", d.Expected, d.Computed, d.Delta)
	}
	if d.Unreported {
		t.Error("reported client marked unreported")
	}
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name    string
		visits  []models.Visit
		reports []models.MonthlyReport
		want    []string // client/period/delta
	}{
		{
			name:    "exact match is quiet",
			visits:  []models.Visit{visit("A", "2025-08-01", "10.00")},
			reports: []models.MonthlyReport{report("A", "2025-08", "10.00")},
		},
		{
			name:    "within tolerance",
			visits:  []models.Visit{visit("A", "2025-08-01", "10.01")},
			reports: []models.MonthlyReport{report("A", "2025-08", "10.00")},
		},
		{
			name:    "just beyond tolerance",
			visits:  []models.Visit{visit("A", "2025-08-01", "10.02")},
			reports: []models.MonthlyReport{report("A", "2025-08", "10.00")},
			want:    []string{"A/2025-08/0.02"},
		},
		{
			name:    "reported client without visits",
			reports: []models.MonthlyReport{report("B", "2025-08", "40.00")},
			want:    []string{"B/2025-08/-40.00"},
		},
		{
			name: "unreported client in reported period",
			visits: []models.Visit{
				visit("A", "2025-08-01", "10.00"),
				visit("Z", "2025-08-02", "7.50"),
			},
			reports: []models.MonthlyReport{report("A", "2025-08", "10.00")},
			want:    []string{"Z/2025-08/7.50"},
		},
		{
			name: "other periods ignored when reports given",
			visits: []models.Visit{
				visit("A", "2025-07-31", "99.00"),
				visit("A", "2025-08-01", "10.00"),
			},
			reports: []models.MonthlyReport{report("A", "2025-08", "10.00")},
		},
		{
			name: "sorted by client then period",
			visits: []models.Visit{
				visit("B", "2025-09-01", "1.00"),
				visit("A", "2025-09-01", "1.00"),
				visit("A", "2025-08-01", "1.00"),
			},
			reports: []models.MonthlyReport{report("A", "2025-08", "0"), report("A", "2025-09", "0")},
			want:    []string{"A/2025-08/1.00", "A/2025-09/1.00", "B/2025-09/1.00"},
		},
		{
			name:    "duplicate report rows are summed",
			visits:  []models.Visit{visit("A", "2025-08-01", "30.00")},
			reports: []models.MonthlyReport{report("A", "2025-08", "10.00"), report("A", "2025-08", "20.00")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewEngine(DefaultTolerance).Reconcile(tt.visits, tt.reports)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d discrepancies %+v, want %v", len(got), got, tt.want)
			}
			for i, d := range got {
				key := fmt.Sprintf("%s/%s/%s", d.ClientCode, d.Period, d.Delta.StringFixed(2))
				if key != tt.want[i] {
					t.Errorf("discrepancy %d = %s, want %s", i, key, tt.want[i])
				}
			}
		})
	}
}

func TestReconcileReadOnly(t *testing.T) {
	visits := []models.Visit{visit("A", "2025-08-01", "10.00")}
	reports := []models.MonthlyReport{report("A", "2025-08", "1.00")}
	NewEngine(DefaultTolerance).Reconcile(visits, reports)
	if visits[0].Total.StringFixed(2) != "10.00" || reports[0].Balance.StringFixed(2) != "1.00" {
		t.Error("Reconcile modified its inputs")
	}
}

func TestIssues(t *testing.T) {
	ds := NewEngine(DefaultTolerance).Reconcile(
		[]models.Visit{visit("C-42", "2025-08-01", "115.00")},
		[]models.MonthlyReport{report("C-42", "2025-08", "120.00")},
	)
	found := Issues(ds, "report.csv")
	if len(found) != 1 || !errors.Is(found[0], issues.ErrReconciliationMismatch) {
		t.Fatalf("Issues() = %v", found)
	}
	if found[0].Details != "expected 120.00 computed 115.00 delta -5.00 (client C-42, period 2025-08)" {
		t.Errorf("Details = %q", found[0].Details)
	}
}

func TestParseMonthlyRows(t *testing.T) {
	rows := [][]string{
		{"Monthly statement", ""},
		{"August 2025"},
		{"Client Code", "Name", "Balance Due"},
		{"C-42", "Dana", "$100.00"},
		{"C-7", "Luc", "1,250.50"},
		{"C-42", "Dana", "20.00"},
		{"C-9", "Eve", "n/a"},
		{"", "", "total"},
	}
	reports, found, err := ParseMonthlyRows(rows, "2025-08", "monthly.csv")
	if err != nil {
		t.Fatalf("ParseMonthlyRows() error = %v", err)
	}
	want := map[string]string{"C-42": "120.00", "C-7": "1250.50"}
	if len(reports) != len(want) {
		t.Fatalf("got %d reports, want %d: %+v", len(reports), len(want), reports)
	}
	for _, r := range reports {
		if r.Period != "2025-08" || r.Balance.StringFixed(2) != want[r.ClientCode] {
			t.Errorf("report %+v", r)
		}
	}
	if reports[0].ClientCode != "C-42" {
		t.Errorf("reports not sorted: %+v", reports)
	}
	if len(found) != 1 || found[0].Line != 7 || !errors.Is(found[0], issues.ErrMalformedRecord) {
		t.Errorf("issues = %v", found)
	}
}

func TestParseMonthlyRowsErrors(t *testing.T) {
	if _, _, err := ParseMonthlyRows([][]string{{"code", "balance"}}, "August", "x"); err == nil {
		t.Error("accepted an invalid period")
	}
	_, _, err := ParseMonthlyRows([][]string{{"name", "phone"}}, "2025-08", "x")
	if !errors.Is(err, issues.ErrUnreadableSource) {
		t.Errorf("error = %v, want unreadable source", err)
	}
}

type fakeSheets struct {
	values   [][]interface{}
	appended [][]interface{}
	sheet    string
}

func (f *fakeSheets) ReadRange(ctx context.Context, rangeSpec string) ([][]interface{}, error) {
	return f.values, nil
}

func (f *fakeSheets) AppendRows(ctx context.Context, sheetName string, headers []string, rows [][]interface{}) error {
	f.sheet = sheetName
	f.appended = append(f.appended, rows...)
	return nil
}

func TestDataReader(t *testing.T) {
	fake := &fakeSheets{values: [][]interface{}{
		{"client", "owed"},
		{"C-42", "120"},
		{"C-7", 35.5},
	}}
	dr := NewDataReader(fake)

	reports, found, err := dr.ReadMonthlyReport(context.Background(), "August", "2025-08")
	if err != nil || len(found) != 0 {
		t.Fatalf("ReadMonthlyReport() = %v, %v", found, err)
	}
	if len(reports) != 2 || reports[1].ClientCode != "C-7" || reports[1].Balance.StringFixed(2) != "35.50" {
		t.Errorf("reports = %+v", reports)
	}

	ds := []Discrepancy{{ClientCode: "C-42", Period: "2025-08",
		Expected: models.MustAmount("120"), Computed: models.MustAmount("115"), Delta: models.MustAmount("-5")}}
	if err := dr.WriteDiscrepancies(context.Background(), "Discrepancies", ds); err != nil {
		t.Fatal(err)
	}
	if fake.sheet != "Discrepancies" || len(fake.appended) != 1 || fake.appended[0][4] != "-5.00" {
		t.Errorf("appended %v to %q", fake.appended, fake.sheet)
	}
}
