package store

import (
	"context"

	"github.com/Jaguar1-alt/Gigconnect/internal/models"
)

func (s *Store) CreateReview(ctx context.Context, r *models.Review) error {
	return translate(s.db.WithContext(ctx).Create(r).Error, "review")
}

func (s *Store) ListReviews(ctx context.Context, rq models.ReviewQuery) ([]models.Review, error) {
	q := s.db.WithContext(ctx).Preload("Gig")
	q = preloadParty(preloadParty(q, "Client"), "Freelancer")
	if rq.GigID != nil {
		q = q.Where("gig_id = ?", *rq.GigID)
	}
	if rq.FreelancerID != nil {
		q = q.Where("freelancer_id = ?", *rq.FreelancerID)
	}
	var out []models.Review
	err := q.Order("created_at DESC").Find(&out).Error
	return out, translate(err, "reviews")
}
