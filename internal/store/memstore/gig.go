package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
	"github.com/Jaguar1-alt/Gigconnect/internal/models"
)

func (s *Store) CreateGig(ctx context.Context, g *models.Gig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	now := s.tick()
	if g.PostedAt.IsZero() {
		g.PostedAt = now
	}
	g.UpdatedAt = now
	if g.Status == "" {
		g.Status = models.GigOpen
	}
	s.gigs[g.ID] = storedGig(g)
	return nil
}

func (s *Store) GigByID(ctx context.Context, id uuid.UUID, parties bool) (*models.Gig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.gigs[id]
	if !ok {
		return nil, apperr.NotFoundError{Resource: "gig"}
	}
	if parties {
		return s.gigWithParties(g), nil
	}
	return cloneGig(g), nil
}

func sortNewest(gigs []models.Gig) {
	sort.SliceStable(gigs, func(i, j int) bool { return gigs[i].PostedAt.After(gigs[j].PostedAt) })
}

func matchesSkills(have []string, want []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, h := range have {
		for _, w := range want {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

func (s *Store) SearchOpenGigs(ctx context.Context, f models.GigFilter) ([]models.Gig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc := strings.ToLower(f.Location)
	out := []models.Gig{}
	for _, g := range s.gigs {
		if g.Status != models.GigOpen {
			continue
		}
		if !matchesSkills(g.Skills, f.Skills) {
			continue
		}
		if loc != "" && !strings.Contains(strings.ToLower(g.Location), loc) {
			continue
		}
		if f.MaxBudget != nil && g.Budget > *f.MaxBudget {
			continue
		}
		gig := cloneGig(g)
		gig.PostedBy = s.userRef(g.PostedByID)
		out = append(out, *gig)
	}
	sortNewest(out)
	return out, nil
}

func (s *Store) ListGigs(ctx context.Context, q models.GigQuery) ([]models.Gig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Gig{}
	for _, g := range s.gigs {
		if q.PostedByID != nil && g.PostedByID != *q.PostedByID {
			continue
		}
		if q.HiredFreelancerID != nil && (g.HiredFreelancerID == nil || *g.HiredFreelancerID != *q.HiredFreelancerID) {
			continue
		}
		if len(q.Statuses) > 0 && !containsStatus(q.Statuses, g.Status) {
			continue
		}
		if q.WithParties {
			out = append(out, *s.gigWithParties(g))
		} else {
			out = append(out, *cloneGig(g))
		}
	}
	sortNewest(out)
	return out, nil
}

func containsStatus(list []models.GigStatus, st models.GigStatus) bool {
	for _, s := range list {
		if s == st {
			return true
		}
	}
	return false
}

func (s *Store) UpdateGig(ctx context.Context, id uuid.UUID, fn func(*models.Gig) error) (*models.Gig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gigs[id]
	if !ok {
		return nil, apperr.NotFoundError{Resource: "gig"}
	}
	work := cloneGig(g)
	if err := fn(work); err != nil {
		return nil, err
	}
	work.UpdatedAt = s.tick()
	s.gigs[id] = storedGig(work)
	return work, nil
}

func (s *Store) DeleteGig(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.gigs[id]; !ok {
		return apperr.NotFoundError{Resource: "gig"}
	}
	delete(s.gigs, id)
	for pid, p := range s.proposals {
		if p.GigID == id {
			delete(s.proposals, pid)
		}
	}
	for rid, r := range s.reviews {
		if r.GigID == id {
			delete(s.reviews, rid)
		}
	}
	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.GigID != id {
			kept = append(kept, m)
		}
	}
	s.messages = kept
	return nil
}

func (s *Store) CountGigs(ctx context.Context, statuses ...models.GigStatus) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, g := range s.gigs {
		if len(statuses) == 0 || containsStatus(statuses, g.Status) {
			n++
		}
	}
	return n, nil
}

func (s *Store) SettlePayout(ctx context.Context, gigID uuid.UUID, fn func(*models.Gig) (*models.PayoutRecord, error)) (*models.Gig, *models.PayoutRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gigs[gigID]
	if !ok {
		return nil, nil, apperr.NotFoundError{Resource: "gig"}
	}
	work := cloneGig(g)
	rec, err := fn(work)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range s.payouts {
		if p.GigID == gigID {
			return nil, nil, apperr.DuplicateError{Resource: "payout"}
		}
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := s.tick()
	rec.CreatedAt = now
	work.UpdatedAt = now
	s.gigs[gigID] = storedGig(work)
	s.payouts[rec.ID] = *rec
	return work, rec, nil
}

// Payouts returns the recorded payouts, oldest first.
func (s *Store) Payouts() []models.PayoutRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PayoutRecord, 0, len(s.payouts))
	for _, p := range s.payouts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
