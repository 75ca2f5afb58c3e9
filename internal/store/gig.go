package store

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
	"github.com/Jaguar1-alt/Gigconnect/internal/models"
)

func (s *Store) CreateGig(ctx context.Context, g *models.Gig) error {
	return translate(s.db.WithContext(ctx).Create(g).Error, "gig")
}

func withParties(q *gorm.DB) *gorm.DB {
	return preloadParty(preloadParty(q, "PostedBy"), "HiredFreelancer")
}

func (s *Store) GigByID(ctx context.Context, id uuid.UUID, parties bool) (*models.Gig, error) {
	q := s.db.WithContext(ctx)
	if parties {
		q = withParties(q)
	}
	var g models.Gig
	if err := q.First(&g, "id = ?", id).Error; err != nil {
		return nil, translate(err, "gig")
	}
	return &g, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches s literally anywhere in an ILIKE operand.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func (s *Store) SearchOpenGigs(ctx context.Context, f models.GigFilter) ([]models.Gig, error) {
	var gigs []models.Gig
	err := openGigs(preloadParty(s.db.WithContext(ctx), "PostedBy"), f).Find(&gigs).Error
	return gigs, translate(err, "gigs")
}

// openGigs applies the public listing filters, newest first.
func openGigs(q *gorm.DB, f models.GigFilter) *gorm.DB {
	q = q.Where("status = ?", models.GigOpen)
	if len(f.Skills) > 0 {
		lowered := make([]string, 0, len(f.Skills))
		for _, sk := range f.Skills {
			lowered = append(lowered, strings.ToLower(sk))
		}
		q = q.Where("EXISTS (SELECT 1 FROM jsonb_array_elements_text(gigs.skills) AS sk WHERE lower(sk) IN ?)", lowered)
	}
	if f.Location != "" {
		q = q.Where("location ILIKE ?", containsPattern(f.Location))
	}
	if f.MaxBudget != nil {
		q = q.Where("budget <= ?", *f.MaxBudget)
	}
	return q.Order("posted_at DESC")
}

func (s *Store) ListGigs(ctx context.Context, gq models.GigQuery) ([]models.Gig, error) {
	q := s.db.WithContext(ctx)
	if gq.WithParties {
		q = withParties(q)
	}
	if gq.PostedByID != nil {
		q = q.Where("posted_by_id = ?", *gq.PostedByID)
	}
	if gq.HiredFreelancerID != nil {
		q = q.Where("hired_freelancer_id = ?", *gq.HiredFreelancerID)
	}
	if len(gq.Statuses) > 0 {
		q = q.Where("status IN ?", gq.Statuses)
	}
	var gigs []models.Gig
	err := q.Order("posted_at DESC").Find(&gigs).Error
	return gigs, translate(err, "gigs")
}

// UpdateGig runs fn against the row locked FOR UPDATE and saves the result
// when fn succeeds.
func (s *Store) UpdateGig(ctx context.Context, id uuid.UUID, fn func(*models.Gig) error) (*models.Gig, error) {
	var out *models.Gig
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		gig, err := s.lockGig(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(gig); err != nil {
			return err
		}
		if err := tx.Save(gig).Error; err != nil {
			return translate(err, "gig")
		}
		out = gig
		return nil
	})
	return out, err
}

// DeleteGig removes the gig together with its proposals, reviews and messages.
func (s *Store) DeleteGig(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Gig{}, "id = ?", id)
		if res.Error != nil {
			return translate(res.Error, "gig")
		}
		if res.RowsAffected == 0 {
			return apperr.NotFoundError{Resource: "gig"}
		}
		for _, m := range gigDependents {
			if err := deleteDependents(tx, m, id).Error; err != nil {
				return translate(err, "gig dependents")
			}
		}
		return nil
	})
}

var gigDependents = []any{&models.Proposal{}, &models.Review{}, &models.Message{}}

func deleteDependents(tx *gorm.DB, model any, gigID uuid.UUID) *gorm.DB {
	return tx.Where("gig_id = ?", gigID).Delete(model)
}

func (s *Store) CountGigs(ctx context.Context, statuses ...models.GigStatus) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Gig{})
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var n int64
	err := q.Count(&n).Error
	return n, translate(err, "gigs")
}

// SettlePayout locks the gig, lets fn move it and produce the payout record,
// then persists both in one transaction.
func (s *Store) SettlePayout(ctx context.Context, gigID uuid.UUID, fn func(*models.Gig) (*models.PayoutRecord, error)) (*models.Gig, *models.PayoutRecord, error) {
	var (
		gig    *models.Gig
		record *models.PayoutRecord
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g, err := s.lockGig(ctx, tx, gigID)
		if err != nil {
			return err
		}
		rec, err := fn(g)
		if err != nil {
			return err
		}
		if err := tx.Save(g).Error; err != nil {
			return translate(err, "gig")
		}
		if err := tx.Create(rec).Error; err != nil {
			return translate(err, "payout")
		}
		gig, record = g, rec
		return nil
	})
	return gig, record, err
}
