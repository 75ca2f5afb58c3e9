// Package memstore is an in-process implementation of the store with the
// same uniqueness and locking guarantees as the PostgreSQL one. It backs
// STORE=memory and the service tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
	"github.com/Jaguar1-alt/Gigconnect/internal/models"
)

type Store struct {
	mu        sync.RWMutex
	users     map[uuid.UUID]models.User
	gigs      map[uuid.UUID]models.Gig
	proposals map[uuid.UUID]models.Proposal
	reviews   map[uuid.UUID]models.Review
	messages  []models.Message
	payouts   map[uuid.UUID]models.PayoutRecord

	now  func() time.Time
	last time.Time
}

func New() *Store {
	return &Store{
		users:     map[uuid.UUID]models.User{},
		gigs:      map[uuid.UUID]models.Gig{},
		proposals: map[uuid.UUID]models.Proposal{},
		reviews:   map[uuid.UUID]models.Review{},
		payouts:   map[uuid.UUID]models.PayoutRecord{},
		now:       time.Now,
	}
}

// tick returns strictly increasing timestamps so ordering by time is stable.
// Callers hold the write lock.
func (s *Store) tick() time.Time {
	t := s.now()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneUser(u models.User) *models.User {
	u.Skills = cloneStrings(u.Skills)
	if u.Portfolio != nil {
		u.Portfolio = append(u.Portfolio[:0:0], u.Portfolio...)
	}
	return &u
}

func cloneGig(g models.Gig) *models.Gig {
	g.Skills = cloneStrings(g.Skills)
	if g.HiredFreelancerID != nil {
		id := *g.HiredFreelancerID
		g.HiredFreelancerID = &id
	}
	if g.FinalAmount != nil {
		amt := *g.FinalAmount
		g.FinalAmount = &amt
	}
	g.PostedBy, g.HiredFreelancer = nil, nil
	return &g
}

// stored strips relations so only column data is kept.
func storedGig(g *models.Gig) models.Gig {
	return *cloneGig(*g)
}

func (s *Store) userRef(id uuid.UUID) *models.Party {
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	return u.Party()
}

func (s *Store) gigWithParties(g models.Gig) *models.Gig {
	out := cloneGig(g)
	out.PostedBy = s.userRef(g.PostedByID)
	if g.HiredFreelancerID != nil {
		out.HiredFreelancer = s.userRef(*g.HiredFreelancerID)
	}
	return out
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUserUnique(u); err != nil {
		return err
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := s.tick()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = *cloneUser(*u)
	return nil
}

func (s *Store) checkUserUnique(u *models.User) error {
	for id, other := range s.users {
		if id == u.ID {
			continue
		}
		if other.ExternalID == u.ExternalID || other.Username == u.Username || strings.EqualFold(other.Email, u.Email) {
			return apperr.DuplicateError{Resource: "user"}
		}
	}
	return nil
}

func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, apperr.NotFoundError{Resource: "user"}
}

func (s *Store) findUser(match func(models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, apperr.NotFoundError{Resource: "user"}
}

func (s *Store) UserByExternalID(ctx context.Context, uid string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return u.ExternalID == uid })
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return apperr.NotFoundError{Resource: "user"}
	}
	if err := s.checkUserUnique(u); err != nil {
		return err
	}
	u.UpdatedAt = s.tick()
	s.users[u.ID] = *cloneUser(*u)
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *cloneUser(u))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return apperr.NotFoundError{Resource: "user"}
	}
	delete(s.users, id)
	return nil
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}
