package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"recon/internal/issues"
	"recon/pkg/models"
)

// SaveResult says what SaveVisit did.
type SaveResult int

const (
	Created SaveResult = iota
	Unchanged
	Conflict
)

func (r SaveResult) String() string {
	switch r {
	case Created:
		return "created"
	case Unchanged:
		return "unchanged"
	default:
		return "conflict"
	}
}

// SaveVisit stores a visit and its items in one transaction. Saving a visit
// whose identifier is already stored with the same content does nothing; a
// stored visit with different content is kept and the new one is reported as
// an IdentityConflict issue.
func (s *Store) SaveVisit(ctx context.Context, v *models.Visit) (SaveResult, *issues.Issue, error) {
	const op = "SaveVisit"

	result := Created
	var conflict *issues.Issue
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Visit
		err := tx.Preload("Items", orderByPosition).First(&existing, "id = ?", v.ID).Error
		switch {
		case err == nil:
			if models.SameContent(&existing, v) {
				result = Unchanged
				return nil
			}
			result = Conflict
			issue := issues.New(issues.IdentityConflict, v.Source,
				"visit %s %s %s #%s differs from the stored copy from %s",
				v.ClientCode, v.Date, v.Time, v.Reference, existing.Source).ForVisit(v.ID)
			conflict = &issue
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		rec := *v
		rec.Items = make([]models.VisitItem, len(v.Items))
		for i, item := range v.Items {
			item.ID = 0
			item.VisitID = v.ID
			rec.Items[i] = item
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return result, nil, fmt.Errorf("%s: visit %s: %w", op, v.ID, err)
	}

	s.log.Debug().Str("visit_id", v.ID).Stringer("result", result).Msg("Visit saved")
	return result, conflict, nil
}

// SaveVisits saves visits one transaction at a time and returns the
// identity conflicts found. A database error stops the run.
func (s *Store) SaveVisits(ctx context.Context, visits []models.Visit) ([]issues.Issue, error) {
	var conflicts []issues.Issue
	counts := map[SaveResult]int{}
	for i := range visits {
		result, conflict, err := s.SaveVisit(ctx, &visits[i])
		if err != nil {
			return conflicts, err
		}
		counts[result]++
		if conflict != nil {
			conflicts = append(conflicts, *conflict)
		}
	}
	s.log.Info().
		Int("created", counts[Created]).
		Int("unchanged", counts[Unchanged]).
		Int("conflicts", counts[Conflict]).
		Msg("Visits saved")
	return conflicts, nil
}

// VisitsForPeriod returns the stored visits dated in a YYYY-MM period, with
// their items, ordered by date, time, reference and client. An empty client
// selects every client.
func (s *Store) VisitsForPeriod(ctx context.Context, period, client string) ([]models.Visit, error) {
	const op = "VisitsForPeriod"

	q := s.db.WithContext(ctx).
		Preload("Items", orderByPosition).
		Where("date LIKE ?", period+"-%")
	if client != "" {
		q = q.Where("client_code = ?", client)
	}
	var visits []models.Visit
	if err := q.Order("date, time, reference, client_code").Find(&visits).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return visits, nil
}

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}
