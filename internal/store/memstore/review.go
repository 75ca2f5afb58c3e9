package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
	"github.com/Jaguar1-alt/Gigconnect/internal/models"
)

func (s *Store) CreateReview(ctx context.Context, r *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.reviews {
		if other.GigID == r.GigID {
			return apperr.DuplicateError{Resource: "review"}
		}
	}
	if r.Rating < 1 || r.Rating > 5 {
		return apperr.Validation("review violates a storage constraint")
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.CreatedAt = s.tick()
	stored := *r
	stored.Gig, stored.Client, stored.Freelancer = nil, nil, nil
	s.reviews[r.ID] = stored
	return nil
}

func (s *Store) ListReviews(ctx context.Context, q models.ReviewQuery) ([]models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Review{}
	for _, r := range s.reviews {
		if q.GigID != nil && r.GigID != *q.GigID {
			continue
		}
		if q.FreelancerID != nil && r.FreelancerID != *q.FreelancerID {
			continue
		}
		r.Client = s.userRef(r.ClientID)
		r.Freelancer = s.userRef(r.FreelancerID)
		if g, ok := s.gigs[r.GigID]; ok {
			r.Gig = cloneGig(g)
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
