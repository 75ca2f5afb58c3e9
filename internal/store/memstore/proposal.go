package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
	"github.com/Jaguar1-alt/Gigconnect/internal/models"
)

func (s *Store) CreateProposal(ctx context.Context, p *models.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.proposals {
		if other.GigID == p.GigID && other.FreelancerID == p.FreelancerID {
			return apperr.DuplicateError{Resource: "proposal"}
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := s.tick()
	if p.AppliedAt.IsZero() {
		p.AppliedAt = now
	}
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = models.ProposalPending
	}
	stored := *p
	stored.Gig, stored.Freelancer = nil, nil
	s.proposals[p.ID] = stored
	return nil
}

func (s *Store) ProposalExists(ctx context.Context, gigID, freelancerID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.proposals {
		if p.GigID == gigID && p.FreelancerID == freelancerID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListProposals(ctx context.Context, q models.ProposalQuery) ([]models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Proposal{}
	for _, p := range s.proposals {
		if q.GigID != nil && p.GigID != *q.GigID {
			continue
		}
		if q.FreelancerID != nil && p.FreelancerID != *q.FreelancerID {
			continue
		}
		if q.Status != "" && p.Status != q.Status {
			continue
		}
		if q.WithGig {
			if g, ok := s.gigs[p.GigID]; ok {
				gig := cloneGig(g)
				gig.PostedBy = s.userRef(g.PostedByID)
				p.Gig = gig
			}
		}
		if q.WithFreelancer {
			p.Freelancer = s.userRef(p.FreelancerID)
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AppliedAt.After(out[j].AppliedAt) })
	return out, nil
}

func (s *Store) ResolveProposal(ctx context.Context, gigID, proposalID uuid.UUID, rejectSiblings bool, fn func(*models.Gig, *models.Proposal) error) (*models.Gig, *models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gigs[gigID]
	if !ok {
		return nil, nil, apperr.NotFoundError{Resource: "gig"}
	}
	gig := cloneGig(g)

	var prop *models.Proposal
	if p, ok := s.proposals[proposalID]; ok && p.GigID == gigID {
		cp := p
		prop = &cp
	}

	if err := fn(gig, prop); err != nil {
		return nil, nil, err
	}
	if prop == nil {
		return nil, nil, nil
	}

	now := s.tick()
	prop.UpdatedAt = now
	s.proposals[prop.ID] = *prop
	if gig.Status != g.Status {
		gig.UpdatedAt = now
		s.gigs[gigID] = storedGig(gig)
	}
	if rejectSiblings && prop.Status == models.ProposalAccepted {
		for id, p := range s.proposals {
			if p.GigID == gigID && id != prop.ID && p.Status == models.ProposalPending {
				p.Status = models.ProposalRejected
				p.UpdatedAt = now
				s.proposals[id] = p
			}
		}
	}
	return gig, prop, nil
}

func (s *Store) ReconcileHiredProposals(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, p := range s.proposals {
		if p.Status != models.ProposalPending {
			continue
		}
		g, ok := s.gigs[p.GigID]
		if !ok || g.Status == models.GigOpen || g.HiredFreelancerID == nil || *g.HiredFreelancerID != p.FreelancerID {
			continue
		}
		p.Status = models.ProposalAccepted
		p.UpdatedAt = s.tick()
		s.proposals[id] = p
		n++
	}
	return n, nil
}

// PutProposal stores p verbatim. It exists to seed inconsistent states.
func (s *Store) PutProposal(p models.Proposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals[p.ID] = p
}

// PutGig stores g verbatim.
func (s *Store) PutGig(g models.Gig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gigs[g.ID] = storedGig(&g)
}
