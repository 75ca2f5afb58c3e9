package gig

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
	"github.com/Jaguar1-alt/Gigconnect/internal/models"
	"github.com/Jaguar1-alt/Gigconnect/internal/store/memstore"
)

type countingCache struct {
	mu          sync.Mutex
	entries     map[string][]models.Gig
	invalidated int
	hits        int
}

func newCountingCache() *countingCache {
	return &countingCache{entries: map[string][]models.Gig{}}
}

func key(f models.GigFilter) string { return f.Location }

func (c *countingCache) Get(f models.GigFilter) ([]models.Gig, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.entries[key(f)]
	if ok {
		c.hits++
	}
	return g, ok
}

func (c *countingCache) Set(f models.GigFilter, gigs []models.Gig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(f)] = gigs
}

func (c *countingCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string][]models.Gig{}
	c.invalidated++
}

type fixture struct {
	st     *memstore.Store
	m      *Manager
	cache  *countingCache
	client models.Actor
	other  models.Actor
	fl     models.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	mk := func(name string, role models.Role) models.Actor {
		u := &models.User{ExternalID: name, Username: name, Email: name + "@x.io", Role: role}
		if err := st.CreateUser(context.Background(), u); err != nil {
			t.Fatal(err)
		}
		return models.Actor{ID: u.ID, Role: role}
	}
	cache := newCountingCache()
	return &fixture{
		st:     st,
		m:      NewManager(st, cache),
		cache:  cache,
		client: mk("carol", models.RoleClient),
		other:  mk("oscar", models.RoleClient),
		fl:     mk("fred", models.RoleFreelancer),
	}
}

func (f *fixture) post(t *testing.T) *models.Gig {
	t.Helper()
	g, err := f.m.Create(context.Background(), f.client, CreateInput{
		Title: "Logo design", Description: "A logo", Budget: 500, Duration: "1 week",
		Skills: []string{"design", " "}, Location: "Remote",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return g
}

func TestCreateRequiresClient(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.Create(context.Background(), f.fl, CreateInput{Title: "x"})
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestCreateValidates(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.Create(context.Background(), f.client, CreateInput{Title: "x", Description: "d", Budget: 0, Duration: "1d", Location: "here"})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestCreateDefaults(t *testing.T) {
	f := newFixture(t)
	g := f.post(t)
	if g.Status != models.GigOpen || g.HiredFreelancerID != nil || g.FinalAmount != nil {
		t.Fatalf("new gig not open/unassigned: %+v", g)
	}
	if len(g.Skills) != 1 {
		t.Fatalf("blank skills kept: %v", g.Skills)
	}
	got, err := f.m.Get(context.Background(), g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.PostedBy == nil || got.PostedBy.Username != "carol" {
		t.Fatalf("postedBy not resolved: %+v", got.PostedBy)
	}
}

func TestTransitionsFollowOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.post(t)

	// open gigs cannot be completed or paid
	if _, err := f.m.Complete(ctx, f.client, g.ID); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("complete open gig: %v", err)
	}
	if _, err := f.m.MarkPaid(ctx, f.client, g.ID); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("pay open gig: %v", err)
	}

	_, err := f.st.UpdateGig(ctx, g.ID, func(gig *models.Gig) error { return Hire(gig, f.fl.ID, 450) })
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.m.MarkPaid(ctx, f.client, g.ID); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("paying before completion must fail: %v", err)
	}
	if _, err := f.m.Complete(ctx, f.other, g.ID); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("non-owner complete: %v", err)
	}

	done, err := f.m.Complete(ctx, f.client, g.ID)
	if err != nil || done.Status != models.GigCompleted {
		t.Fatalf("Complete = %v, %v", done, err)
	}
	paid, err := f.m.MarkPaid(ctx, f.client, g.ID)
	if err != nil || paid.Status != models.GigPaid {
		t.Fatalf("MarkPaid = %v, %v", paid, err)
	}
	if _, err := f.m.Complete(ctx, f.client, g.ID); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("status must not move backwards: %v", err)
	}
}

func TestTransitionUnknownGig(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.Complete(context.Background(), f.client, uuid.New())
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestSearchUsesCacheUntilMutation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.post(t)

	if _, err := f.m.Search(ctx, models.GigFilter{Location: "remote"}); err != nil {
		t.Fatal(err)
	}
	gigs, _ := f.m.Search(ctx, models.GigFilter{Location: "remote"})
	if f.cache.hits != 1 || len(gigs) != 1 {
		t.Fatalf("hits=%d len=%d", f.cache.hits, len(gigs))
	}

	f.post(t)
	gigs, _ = f.m.Search(ctx, models.GigFilter{Location: "remote"})
	if len(gigs) != 2 {
		t.Fatalf("stale listing after create: %d gigs", len(gigs))
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.post(t)
	working := f.post(t)
	finished := f.post(t)

	for _, g := range []*models.Gig{working, finished} {
		if _, err := f.st.UpdateGig(ctx, g.ID, func(gig *models.Gig) error { return Hire(gig, f.fl.ID, 300) }); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.m.Complete(ctx, f.client, finished.ID); err != nil {
		t.Fatal(err)
	}

	cs, err := f.m.ClientStats(ctx, f.client)
	if err != nil {
		t.Fatal(err)
	}
	if *cs != (ClientStats{Completed: 1, Active: 1, InProgress: 1}) {
		t.Fatalf("client stats = %+v", cs)
	}

	fs, err := f.m.FreelancerStats(ctx, f.fl)
	if err != nil {
		t.Fatal(err)
	}
	if *fs != (FreelancerStats{Completed: 1, InProgress: 1, Earnings: 300}) {
		t.Fatalf("freelancer stats = %+v", fs)
	}

	hired, _ := f.m.Hired(ctx, f.client)
	if len(hired) != 1 || hired[0].HiredFreelancer == nil {
		t.Fatalf("hired list = %+v", hired)
	}
}

func TestPayOutRules(t *testing.T) {
	admin := models.Actor{ID: uuid.New(), Role: models.RoleAdmin}
	g := &models.Gig{Status: models.GigCompleted}
	if err := PayOut(admin, g); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("err = %v, want conflict", err)
	}
	g.Status = models.GigPaid
	if err := PayOut(models.Actor{Role: models.RoleClient}, g); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("err = %v, want forbidden", err)
	}
	if err := PayOut(admin, g); err != nil || g.Status != models.GigPaidOut {
		t.Fatalf("PayOut = %v, status %s", err, g.Status)
	}
}
