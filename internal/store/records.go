package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"recon/pkg/models"
)

// UpsertClients inserts or replaces roster entries by code.
func (s *Store) UpsertClients(ctx context.Context, clients []models.Client) error {
	const op = "UpsertClients"
	if len(clients) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&clients).Error
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info().Int("clients", len(clients)).Msg("Client roster imported")
	return nil
}

// ClientNames returns the display name of every client with a non-empty name, by code.
func (s *Store) ClientNames(ctx context.Context) (map[string]string, error) {
	const op = "ClientNames"
	var clients []models.Client
	if err := s.db.WithContext(ctx).Select("code", "name").Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	names := make(map[string]string, len(clients))
	for _, c := range clients {
		if c.Name != "" {
			names[c.Code] = c.Name
		}
	}
	return names, nil
}

// UpsertMonthlyReports inserts or replaces reported balances by client and period.
func (s *Store) UpsertMonthlyReports(ctx context.Context, reports []models.MonthlyReport) error {
	const op = "UpsertMonthlyReports"
	if len(reports) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "client_code"}, {Name: "period"}},
			DoUpdates: clause.AssignmentColumns([]string{"balance"}),
		}).
		Create(&reports).Error
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info().Int("balances", len(reports)).Msg("Monthly report imported")
	return nil
}

// MonthlyReports returns the reported balances of a YYYY-MM period, by client code.
func (s *Store) MonthlyReports(ctx context.Context, period string) ([]models.MonthlyReport, error) {
	const op = "MonthlyReports"
	var reports []models.MonthlyReport
	err := s.db.WithContext(ctx).Where("period = ?", period).Order("client_code").Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return reports, nil
}

// SaveInvoice replaces a stored invoice and its items in one transaction.
// The creation time of an earlier version is kept.
func (s *Store) SaveInvoice(ctx context.Context, inv *models.Invoice) error {
	const op = "SaveInvoice"

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := *inv
		var existing models.Invoice
		err := tx.Select("id", "created_at").First(&existing, "id = ?", inv.ID).Error
		switch {
		case err == nil:
			rec.CreatedAt = existing.CreatedAt
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", inv.ID).Delete(&models.Invoice{}).Error; err != nil {
			return err
		}

		rec.Items = make([]models.InvoiceItem, len(inv.Items))
		for i, item := range inv.Items {
			item.ID = 0
			item.InvoiceID = inv.ID
			rec.Items[i] = item
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		inv.CreatedAt = rec.CreatedAt
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: invoice %s: %w", op, inv.ID, err)
	}

	s.log.Debug().Str("invoice_id", inv.ID).Int("items", len(inv.Items)).Msg("Invoice saved")
	return nil
}

// Invoice loads a stored invoice with its items in position order.
func (s *Store) Invoice(ctx context.Context, id string) (*models.Invoice, error) {
	const op = "Invoice"
	var inv models.Invoice
	err := s.db.WithContext(ctx).Preload("Items", orderByPosition).First(&inv, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, id, err)
	}
	return &inv, nil
}

// InvoiceCreatedAt returns the creation time of those of the given invoices
// that are already stored, keyed by invoice id.
func (s *Store) InvoiceCreatedAt(ctx context.Context, ids []string) (map[string]time.Time, error) {
	const op = "InvoiceCreatedAt"

	created := make(map[string]time.Time, len(ids))
	if len(ids) == 0 {
		return created, nil
	}
	var stored []models.Invoice
	if err := s.db.WithContext(ctx).Select("id", "created_at").Where("id IN ?", ids).Find(&stored).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, inv := range stored {
		created[inv.ID] = inv.CreatedAt
	}
	return created, nil
}
