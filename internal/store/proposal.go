package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Jaguar1-alt/Gigconnect/internal/models"
)

func (s *Store) CreateProposal(ctx context.Context, p *models.Proposal) error {
	return translate(s.db.WithContext(ctx).Create(p).Error, "proposal")
}

func (s *Store) ProposalExists(ctx context.Context, gigID, freelancerID uuid.UUID) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Proposal{}).
		Where("gig_id = ? AND freelancer_id = ?", gigID, freelancerID).
		Count(&n).Error
	return n > 0, translate(err, "proposal")
}

func (s *Store) ListProposals(ctx context.Context, pq models.ProposalQuery) ([]models.Proposal, error) {
	q := s.db.WithContext(ctx)
	if pq.WithGig {
		q = preloadParty(q.Preload("Gig"), "Gig.PostedBy")
	}
	if pq.WithFreelancer {
		q = preloadParty(q, "Freelancer")
	}
	if pq.GigID != nil {
		q = q.Where("gig_id = ?", *pq.GigID)
	}
	if pq.FreelancerID != nil {
		q = q.Where("freelancer_id = ?", *pq.FreelancerID)
	}
	if pq.Status != "" {
		q = q.Where("status = ?", pq.Status)
	}
	var out []models.Proposal
	err := q.Order("applied_at DESC").Find(&out).Error
	return out, translate(err, "proposals")
}

// ResolveProposal locks the gig and the proposal, hands both to fn and writes
// back whatever fn changed. A proposal that does not belong to the gig is
// passed as nil so fn can order its own checks.
func (s *Store) ResolveProposal(ctx context.Context, gigID, proposalID uuid.UUID, rejectSiblings bool, fn func(*models.Gig, *models.Proposal) error) (*models.Gig, *models.Proposal, error) {
	var (
		gig  *models.Gig
		prop *models.Proposal
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g, err := s.lockGig(ctx, tx, gigID)
		if err != nil {
			return err
		}
		before := g.Status

		var p *models.Proposal
		var row models.Proposal
		err = lockedProposal(tx, &row, gigID, proposalID).Error
		switch {
		case err == nil:
			p = &row
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return translate(err, "proposal")
		}

		if err := fn(g, p); err != nil {
			return err
		}
		if p == nil {
			return nil
		}

		if err := tx.Save(p).Error; err != nil {
			return translate(err, "proposal")
		}
		if g.Status != before {
			if err := tx.Save(g).Error; err != nil {
				return translate(err, "gig")
			}
		}
		if rejectSiblings && p.Status == models.ProposalAccepted {
			if err := rejectPendingSiblings(tx, gigID, p.ID).Error; err != nil {
				return translate(err, "proposals")
			}
		}
		gig, prop = g, p
		return nil
	})
	return gig, prop, err
}

func lockedProposal(tx *gorm.DB, dest *models.Proposal, gigID, proposalID uuid.UUID) *gorm.DB {
	return tx.Clauses(forUpdate).Where("id = ? AND gig_id = ?", proposalID, gigID).First(dest)
}

func rejectPendingSiblings(tx *gorm.DB, gigID, accepted uuid.UUID) *gorm.DB {
	return tx.Model(&models.Proposal{}).
		Where("gig_id = ? AND id <> ? AND status = ?", gigID, accepted, models.ProposalPending).
		Update("status", models.ProposalRejected)
}

// ReconcileHiredProposals marks the hired freelancer's proposal accepted on
// gigs that already left the open state while the proposal stayed pending.
func (s *Store) ReconcileHiredProposals(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Proposal{}).
		Where("status = ?", models.ProposalPending).
		Where("EXISTS (SELECT 1 FROM gigs WHERE gigs.id = proposals.gig_id AND gigs.hired_freelancer_id = proposals.freelancer_id AND gigs.status <> ?)", models.GigOpen).
		Update("status", models.ProposalAccepted)
	return res.RowsAffected, translate(res.Error, "proposals")
}
