package admin

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
	"github.com/Jaguar1-alt/Gigconnect/internal/models"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/account"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/gig"
	"github.com/Jaguar1-alt/Gigconnect/internal/store/memstore"
)

type env struct {
	st     *memstore.Store
	c      *Console
	admin  models.Actor
	client *models.User
	fl     *models.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	e := &env{st: st}
	e.client = &models.User{ExternalID: "c", Username: "carol", Email: "c@x.io", Role: models.RoleClient}
	e.fl = &models.User{ExternalID: "f", Username: "fred", Email: "f@x.io", Role: models.RoleFreelancer, UPIID: "fred@upi"}
	root := &models.User{ExternalID: "r", Username: "root", Email: "r@x.io", Role: models.RoleAdmin}
	for _, u := range []*models.User{e.client, e.fl, root} {
		if err := st.CreateUser(ctx, u); err != nil {
			t.Fatal(err)
		}
	}
	e.admin = models.Actor{ID: root.ID, Role: models.RoleAdmin}
	e.c = NewConsole(account.NewDirectory(st), gig.NewManager(st, nil), st)
	return e
}

func (e *env) gigIn(t *testing.T, status models.GigStatus) *models.Gig {
	t.Helper()
	g := &models.Gig{Title: "g", PostedByID: e.client.ID, Status: status}
	if status != models.GigOpen {
		amount := int64(450)
		g.HiredFreelancerID = &e.fl.ID
		g.FinalAmount = &amount
	}
	if err := e.st.CreateGig(context.Background(), g); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestStats(t *testing.T) {
	e := newEnv(t)
	e.gigIn(t, models.GigOpen)
	e.gigIn(t, models.GigOpen)
	e.gigIn(t, models.GigInProgress)
	e.gigIn(t, models.GigPaid)

	st, err := e.c.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalUsers != 3 || st.TotalGigs != 4 || st.OpenGigs != 2 || st.InProgressGigs != 1 {
		t.Fatalf("stats = %+v", st)
	}
	if st.ByStatus[models.GigPaid] != 1 || st.ByStatus[models.GigPaidOut] != 0 {
		t.Fatalf("by status = %+v", st.ByStatus)
	}
}

func TestProcessPayout(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	completed := e.gigIn(t, models.GigCompleted)
	paid := e.gigIn(t, models.GigPaid)

	_, _, err := e.c.ProcessPayout(ctx, e.admin, completed.ID)
	if ae, ok := apperr.As(err); !ok || ae.Message != "Gig is not ready for payout." {
		t.Fatalf("payout of completed gig: %v", err)
	}

	pending, _ := e.c.PendingPayouts(ctx)
	if len(pending) != 1 || pending[0].HiredFreelancer == nil || pending[0].HiredFreelancer.UPIID != "fred@upi" {
		t.Fatalf("pending payouts = %+v", pending)
	}

	g, rec, err := e.c.ProcessPayout(ctx, e.admin, paid.ID)
	if err != nil {
		t.Fatalf("ProcessPayout: %v", err)
	}
	if g.Status != models.GigPaidOut || rec.Amount != 450 || rec.UPIID != "fred@upi" || rec.FreelancerID != e.fl.ID {
		t.Fatalf("payout = %+v / %+v", g, rec)
	}
	if got := e.st.Payouts(); len(got) != 1 {
		t.Fatalf("payout records = %d", len(got))
	}

	if _, _, err := e.c.ProcessPayout(ctx, e.admin, paid.ID); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("second payout: %v", err)
	}
	if _, _, err := e.c.ProcessPayout(ctx, e.admin, uuid.New()); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("unknown gig payout: %v", err)
	}
}

func TestDeletes(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	g := e.gigIn(t, models.GigOpen)

	if err := e.c.DeleteGig(ctx, e.admin, g.ID); err != nil {
		t.Fatal(err)
	}
	if err := e.c.DeleteGig(ctx, e.admin, g.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("second gig delete: %v", err)
	}
	if err := e.c.DeleteUser(ctx, e.admin, e.client.ID); err != nil {
		t.Fatal(err)
	}
	err := e.c.DeleteUser(ctx, e.admin, e.client.ID)
	if ae, ok := apperr.As(err); !ok || ae.Kind != apperr.KindNotFound || ae.Message != "User not found." {
		t.Fatalf("second user delete: %v", err)
	}
}
