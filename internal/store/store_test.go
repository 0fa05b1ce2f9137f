package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"recon/internal/issues"
	"recon/pkg/models"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	s, err := New(db)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func coffeeVisit() models.Visit {
	v := models.NewVisit("C-42", "2025-08-07", "14:32", "R-001", "Marie")
	v.Source = "journal.txt"
	v.AddLine("Coffee", models.MustAmount("3.50"))
	v.AddLine("Muffin", models.MustAmount("2.75"))
	v.AddLine("TPS", models.MustAmount("0.31"))
	v.Subtotal = v.ItemsTotal()
	v.Total = v.ExpectedTotal()
	return v
}

func TestSaveVisit(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	v := coffeeVisit()

	result, conflict, err := s.SaveVisit(ctx, &v)
	if err != nil || result != Created || conflict != nil {
		t.Fatalf("first save = %v, %v, %v", result, conflict, err)
	}
	if v.Items[0].ID != 0 {
		t.Error("SaveVisit modified the caller's items")
	}

	again := coffeeVisit()
	again.Source = "report.json"
	result, conflict, err = s.SaveVisit(ctx, &again)
	if err != nil || result != Unchanged || conflict != nil {
		t.Errorf("identical save = %v, %v, %v", result, conflict, err)
	}

	changed := coffeeVisit()
	changed.Items[1].Price = models.MustAmount("2.95")
	result, conflict, err = s.SaveVisit(ctx, &changed)
	if err != nil || result != Conflict || conflict == nil {
		t.Fatalf("conflicting save = %v, %v, %v", result, conflict, err)
	}
	if !errors.Is(*conflict, issues.ErrIdentityConflict) || conflict.VisitID != v.ID {
		t.Errorf("conflict = %v", conflict)
	}

	stored, err := s.VisitsForPeriod(ctx, "2025-08", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 || !models.SameContent(&stored[0], &v) {
		t.Errorf("stored = %+v", stored)
	}
	if stored[0].Items[0].Description != "Coffee" || stored[0].Total.StringFixed(2) != "6.56" {
		t.Errorf("stored items %+v total %s", stored[0].Items, stored[0].Total)
	}
}

func TestSaveVisitsAndPeriodQuery(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	a := coffeeVisit()
	b := models.NewVisit("C-7", "2025-08-01", "09:00", "R-000", "Luc")
	b.AddLine("Tea", models.MustAmount("2.00"))
	c := models.NewVisit("C-42", "2025-09-01", "09:00", "R-100", "Luc")
	c.AddLine("Tea", models.MustAmount("2.00"))

	conflicts, err := s.SaveVisits(ctx, []models.Visit{a, b, c, a})
	if err != nil || len(conflicts) != 0 {
		t.Fatalf("SaveVisits() = %v, %v", conflicts, err)
	}

	august, err := s.VisitsForPeriod(ctx, "2025-08", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(august) != 2 || august[0].ClientCode != "C-7" || august[1].ClientCode != "C-42" {
		t.Errorf("august = %+v", august)
	}
	only, err := s.VisitsForPeriod(ctx, "2025-08", "C-42")
	if err != nil || len(only) != 1 {
		t.Errorf("client filter = %v, %v", only, err)
	}
}

func TestClientsAndMonthlyReports(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	err := s.UpsertClients(ctx, []models.Client{{Code: "C-42", Name: "Dana"}, {Code: "C-7"}})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertClients(ctx, []models.Client{{Code: "C-42", Name: "Dana R."}}); err != nil {
		t.Fatal(err)
	}
	names, err := s.ClientNames(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names["C-42"] != "Dana R." {
		t.Errorf("names = %v", names)
	}

	reports := []models.MonthlyReport{
		{ClientCode: "C-42", Period: "2025-08", Balance: models.MustAmount("120.00")},
		{ClientCode: "C-42", Period: "2025-07", Balance: models.MustAmount("10.00")},
	}
	if err := s.UpsertMonthlyReports(ctx, reports); err != nil {
		t.Fatal(err)
	}
	update := []models.MonthlyReport{{ClientCode: "C-42", Period: "2025-08", Balance: models.MustAmount("125.00")}}
	if err := s.UpsertMonthlyReports(ctx, update); err != nil {
		t.Fatal(err)
	}
	got, err := s.MonthlyReports(ctx, "2025-08")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Balance.StringFixed(2) != "125.00" {
		t.Errorf("reports = %+v", got)
	}
}

func TestSaveInvoiceKeepsCreatedAt(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	first := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	inv := &models.Invoice{
		ID: "C-42_2025-08", ClientCode: "C-42", ClientName: "Dana",
		PeriodStart: "2025-08-01", PeriodEnd: "2025-08-31",
		Total: models.MustAmount("6.56"), CreatedAt: first,
		Items: []models.InvoiceItem{{VisitID: "v1", Position: 1, Date: "2025-08-07", Time: "14:32", Reference: "R-001", Amount: models.MustAmount("6.56")}},
	}
	if err := s.SaveInvoice(ctx, inv); err != nil {
		t.Fatal(err)
	}

	regenerated := &models.Invoice{
		ID: "C-42_2025-08", ClientCode: "C-42", ClientName: "Dana",
		PeriodStart: "2025-08-01", PeriodEnd: "2025-08-31",
		Total: models.MustAmount("8.56"), CreatedAt: first.Add(48 * time.Hour),
		Items: []models.InvoiceItem{
			{VisitID: "v1", Position: 1, Date: "2025-08-07", Time: "14:32", Reference: "R-001", Amount: models.MustAmount("6.56")},
			{VisitID: "v2", Position: 2, Date: "2025-08-09", Time: "10:00", Reference: "R-002", Amount: models.MustAmount("2.00")},
		},
	}
	if err := s.SaveInvoice(ctx, regenerated); err != nil {
		t.Fatal(err)
	}

	stored, err := s.Invoice(ctx, "C-42_2025-08")
	if err != nil {
		t.Fatal(err)
	}
	if !stored.CreatedAt.Equal(first) || !regenerated.CreatedAt.Equal(first) {
		t.Errorf("CreatedAt = %v, want %v", stored.CreatedAt, first)
	}
	if len(stored.Items) != 2 || stored.Items[1].VisitID != "v2" || stored.Total.StringFixed(2) != "8.56" {
		t.Errorf("stored = %+v", stored)
	}

	created, err := s.InvoiceCreatedAt(ctx, []string{"C-42_2025-08", "C-43_2025-08"})
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 1 || !created["C-42_2025-08"].Equal(first) {
		t.Errorf("InvoiceCreatedAt = %v, want only C-42_2025-08 at %v", created, first)
	}

	var count int64
	s.DB().Model(&models.InvoiceItem{}).Count(&count)
	if count != 2 {
		t.Errorf("%d invoice items stored, want 2", count)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "x", false); !errors.Is(err, ErrUnsupportedDriver) {
		t.Errorf("Open(mysql) error = %v", err)
	}
}

func TestMoneyStoredAsExactText(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	v := models.NewVisit("C-42", "2025-08-07", "14:32", "R-001", "Marie")
	v.AddLine("Gum", models.MustAmount("0.10"))
	v.AddLine("Mint", models.MustAmount("0.20"))
	v.AddLine("Cake", models.MustAmount("123456789.99"))
	v.Subtotal = v.ItemsTotal()
	v.Total = v.ExpectedTotal()
	if _, _, err := s.SaveVisit(ctx, &v); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		query string
	}{
		{"visit total", "SELECT typeof(total) FROM visits"},
		{"visit subtotal", "SELECT typeof(subtotal) FROM visits"},
		{"item price", "SELECT DISTINCT typeof(price) FROM visit_items"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var typ string
			if err := s.DB().Raw(tt.query).Scan(&typ).Error; err != nil {
				t.Fatal(err)
			}
			if typ != "text" {
				t.Errorf("column type = %s, want text", typ)
			}
		})
	}

	stored, err := s.VisitsForPeriod(ctx, "2025-08", "C-42")
	if err != nil || len(stored) != 1 {
		t.Fatalf("VisitsForPeriod = %v, %v", stored, err)
	}
	if got := stored[0].Total.String(); got != "123456790.29" {
		t.Errorf("Total = %s, want 123456790.29", got)
	}
	if got := stored[0].Items[0].Price.Add(stored[0].Items[1].Price); !got.Equal(models.MustAmount("0.30")) {
		t.Errorf("0.10 + 0.20 = %s, want 0.30", got)
	}

	if err := s.UpsertClients(ctx, []models.Client{{Code: "C-42", Name: "Dana"}}); err != nil {
		t.Fatal(err)
	}
	var balance string
	if err := s.DB().Raw("SELECT prepaid_balance FROM clients").Scan(&balance).Error; err != nil {
		t.Fatal(err)
	}
	if balance != "0" {
		t.Errorf("prepaid_balance = %q, want 0", balance)
	}
}
