// Package gig owns the gig entity and its status state machine.
package gig

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
	"github.com/Jaguar1-alt/Gigconnect/internal/models"
	"github.com/Jaguar1-alt/Gigconnect/internal/utils"
)

var tracer = otel.Tracer("gig")

type Store interface {
	CreateGig(ctx context.Context, g *models.Gig) error
	GigByID(ctx context.Context, id uuid.UUID, parties bool) (*models.Gig, error)
	SearchOpenGigs(ctx context.Context, f models.GigFilter) ([]models.Gig, error)
	ListGigs(ctx context.Context, q models.GigQuery) ([]models.Gig, error)
	UpdateGig(ctx context.Context, id uuid.UUID, fn func(*models.Gig) error) (*models.Gig, error)
	DeleteGig(ctx context.Context, id uuid.UUID) error
	CountGigs(ctx context.Context, statuses ...models.GigStatus) (int64, error)
}

// ListingCache caches open gig search results. Invalidate is called after
// every gig mutation.
type ListingCache interface {
	Get(f models.GigFilter) ([]models.Gig, bool)
	Set(f models.GigFilter, gigs []models.Gig)
	Invalidate()
}

type noCache struct{}

func (noCache) Get(models.GigFilter) ([]models.Gig, bool) { return nil, false }
func (noCache) Set(models.GigFilter, []models.Gig)        {}
func (noCache) Invalidate()                               {}

type Manager struct {
	store Store
	cache ListingCache
}

func NewManager(store Store, cache ListingCache) *Manager {
	if cache == nil {
		cache = noCache{}
	}
	return &Manager{store: store, cache: cache}
}

// NotFound converts a store miss into the user facing gig error.
func NotFound(err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Wrap(apperr.KindNotFound, "Gig not found.", err)
	}
	return err
}

type CreateInput struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"required,max=10000"`
	Budget      int64    `json:"budget" validate:"gt=0"`
	Duration    string   `json:"duration" validate:"required,max=100"`
	Skills      []string `json:"skills" validate:"max=30,dive,required,max=64"`
	Location    string   `json:"location" validate:"required,max=200"`
}

func (m *Manager) Create(ctx context.Context, actor models.Actor, in CreateInput) (*models.Gig, error) {
	ctx, span := tracer.Start(ctx, "Gig.Manager.Create")
	defer span.End()

	if !actor.Is(models.RoleClient) {
		return nil, apperr.Forbidden("Only clients can post gigs.")
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)
	in.Skills = normalizeSkills(in.Skills)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	g := &models.Gig{
		Title:       in.Title,
		Description: in.Description,
		Budget:      in.Budget,
		Duration:    in.Duration,
		Skills:      in.Skills,
		Location:    in.Location,
		PostedByID:  actor.ID,
		Status:      models.GigOpen,
	}
	if err := m.store.CreateGig(ctx, g); err != nil {
		span.RecordError(err)
		return nil, err
	}
	m.cache.Invalidate()

	utils.LogEvent(ctx, "gig_created", map[string]interface{}{
		"gig_id":    g.ID.String(),
		"client_id": actor.ID.String(),
		"budget":    g.Budget,
	})
	return g, nil
}

func normalizeSkills(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*models.Gig, error) {
	g, err := m.store.GigByID(ctx, id, true)
	if err != nil {
		return nil, NotFound(err)
	}
	return g, nil
}

// Search lists open gigs, newest first.
func (m *Manager) Search(ctx context.Context, f models.GigFilter) ([]models.Gig, error) {
	ctx, span := tracer.Start(ctx, "Gig.Manager.Search")
	defer span.End()

	f.Skills = normalizeSkills(f.Skills)
	f.Location = strings.TrimSpace(f.Location)
	if gigs, ok := m.cache.Get(f); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return gigs, nil
	}
	gigs, err := m.store.SearchOpenGigs(ctx, f)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	m.cache.Set(f, gigs)
	return gigs, nil
}

// Mine lists the calling client's gigs.
func (m *Manager) Mine(ctx context.Context, actor models.Actor) ([]models.Gig, error) {
	if !actor.Is(models.RoleClient) {
		return nil, apperr.Forbidden("Only clients have posted gigs.")
	}
	return m.store.ListGigs(ctx, models.GigQuery{PostedByID: &actor.ID, WithParties: true})
}

// Hired lists the client's gigs that are being worked on.
func (m *Manager) Hired(ctx context.Context, actor models.Actor) ([]models.Gig, error) {
	if !actor.Is(models.RoleClient) {
		return nil, apperr.Forbidden("Only clients hire freelancers.")
	}
	return m.store.ListGigs(ctx, models.GigQuery{
		PostedByID:  &actor.ID,
		Statuses:    []models.GigStatus{models.GigInProgress},
		WithParties: true,
	})
}

// transition moves a gig from one status to the next under the store lock.
func (m *Manager) transition(ctx context.Context, id uuid.UUID, from models.GigStatus, guard func(*models.Gig) error, wrongState string) (*models.Gig, error) {
	ctx, span := tracer.Start(ctx, "Gig.Manager.Transition", trace.WithAttributes(
		attribute.String("gig.id", id.String()),
		attribute.String("gig.from", string(from)),
	))
	defer span.End()

	g, err := m.store.UpdateGig(ctx, id, func(g *models.Gig) error {
		if err := guard(g); err != nil {
			return err
		}
		if g.Status != from {
			return apperr.Conflict(wrongState)
		}
		next, _ := from.Next()
		g.Status = next
		return nil
	})
	if err != nil {
		return nil, NotFound(err)
	}
	m.cache.Invalidate()
	return g, nil
}

func ownedBy(actor models.Actor) func(*models.Gig) error {
	return func(g *models.Gig) error {
		if g.PostedByID != actor.ID {
			return apperr.Forbidden("Not authorized to update this gig.")
		}
		return nil
	}
}

// Complete marks an in progress gig as completed.
func (m *Manager) Complete(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Gig, error) {
	return m.transition(ctx, id, models.GigInProgress, ownedBy(actor), "Gig is not in progress.")
}

// MarkPaid records that the client paid for a completed gig.
func (m *Manager) MarkPaid(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Gig, error) {
	return m.transition(ctx, id, models.GigCompleted, ownedBy(actor), "Gig is not completed yet.")
}

type ClientStats struct {
	Completed  int `json:"completed"`
	Active     int `json:"active"`
	InProgress int `json:"inProgress"`
}

func (m *Manager) ClientStats(ctx context.Context, actor models.Actor) (*ClientStats, error) {
	if !actor.Is(models.RoleClient) {
		return nil, apperr.Forbidden("Only clients have client statistics.")
	}
	gigs, err := m.store.ListGigs(ctx, models.GigQuery{PostedByID: &actor.ID})
	if err != nil {
		return nil, err
	}
	var st ClientStats
	for _, g := range gigs {
		switch g.Status {
		case models.GigOpen:
			st.Active++
		case models.GigInProgress:
			st.InProgress++
		case models.GigCompleted, models.GigPaid, models.GigPaidOut:
			st.Completed++
		}
	}
	return &st, nil
}

type FreelancerStats struct {
	Completed  int   `json:"completed"`
	InProgress int   `json:"inProgress"`
	Earnings   int64 `json:"earnings"`
}

// FreelancerStats aggregates over the gigs the caller was hired for.
func (m *Manager) FreelancerStats(ctx context.Context, actor models.Actor) (*FreelancerStats, error) {
	if !actor.Is(models.RoleFreelancer) {
		return nil, apperr.Forbidden("Only freelancers have freelancer statistics.")
	}
	gigs, err := m.store.ListGigs(ctx, models.GigQuery{HiredFreelancerID: &actor.ID})
	if err != nil {
		return nil, err
	}
	var st FreelancerStats
	for _, g := range gigs {
		switch g.Status {
		case models.GigInProgress:
			st.InProgress++
		case models.GigCompleted, models.GigPaid, models.GigPaidOut:
			st.Completed++
			if g.FinalAmount != nil {
				st.Earnings += *g.FinalAmount
			}
		}
	}
	return &st, nil
}

// All lists every gig for administration.
func (m *Manager) All(ctx context.Context) ([]models.Gig, error) {
	return m.store.ListGigs(ctx, models.GigQuery{WithParties: true})
}

// WithStatus lists gigs in any of the given states, parties resolved.
func (m *Manager) WithStatus(ctx context.Context, statuses ...models.GigStatus) ([]models.Gig, error) {
	return m.store.ListGigs(ctx, models.GigQuery{Statuses: statuses, WithParties: true})
}

func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	if err := m.store.DeleteGig(ctx, id); err != nil {
		return NotFound(err)
	}
	m.cache.Invalidate()
	return nil
}

func (m *Manager) Count(ctx context.Context, statuses ...models.GigStatus) (int64, error) {
	return m.store.CountGigs(ctx, statuses...)
}

// InvalidateListings drops cached listings after a mutation made elsewhere.
func (m *Manager) InvalidateListings() { m.cache.Invalidate() }
