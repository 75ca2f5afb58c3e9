package review

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
	"github.com/Jaguar1-alt/Gigconnect/internal/models"
	"github.com/Jaguar1-alt/Gigconnect/internal/store/memstore"
)

func setup(t *testing.T, status models.GigStatus) (*Registry, *memstore.Store, *models.Gig, models.Actor, models.Actor) {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	client := &models.User{ExternalID: "c", Username: "carol", Email: "c@x.io", Role: models.RoleClient}
	fl := &models.User{ExternalID: "f", Username: "fred", Email: "f@x.io", Role: models.RoleFreelancer}
	for _, u := range []*models.User{client, fl} {
		if err := st.CreateUser(ctx, u); err != nil {
			t.Fatal(err)
		}
	}
	amount := int64(450)
	g := &models.Gig{Title: "Logo", PostedByID: client.ID, HiredFreelancerID: &fl.ID, FinalAmount: &amount, Status: status}
	if err := st.CreateGig(ctx, g); err != nil {
		t.Fatal(err)
	}
	return NewRegistry(st), st, g,
		models.Actor{ID: client.ID, Role: models.RoleClient},
		models.Actor{ID: fl.ID, Role: models.RoleFreelancer}
}

func TestReviewOnlyWhenPaid(t *testing.T) {
	for _, st := range []models.GigStatus{models.GigInProgress, models.GigCompleted, models.GigPaidOut} {
		r, _, g, client, _ := setup(t, st)
		_, err := r.Create(context.Background(), client, g.ID, CreateInput{Rating: 5, Comment: "great"})
		if e, ok := apperr.As(err); !ok || e.Kind != apperr.KindConflict || e.Message != "Cannot leave a review for this gig." {
			t.Errorf("status %s: err = %v", st, err)
		}
	}
}

func TestReviewOncePerGig(t *testing.T) {
	ctx := context.Background()
	r, _, g, client, fl := setup(t, models.GigPaid)

	rev, err := r.Create(ctx, client, g.ID, CreateInput{Rating: 5, Comment: "great work"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rev.FreelancerID != fl.ID || rev.ClientID != client.ID {
		t.Fatalf("review parties wrong: %+v", rev)
	}

	_, err = r.Create(ctx, fl, g.ID, CreateInput{Rating: 4, Comment: "nice client"})
	if e, ok := apperr.As(err); !ok || e.Message != "A review for this gig already exists." {
		t.Fatalf("second review: %v", err)
	}

	list, _ := r.ForFreelancer(ctx, fl.ID)
	if len(list) != 1 || list[0].Client == nil || list[0].Client.Username != "carol" {
		t.Fatalf("ForFreelancer = %+v", list)
	}
}

func TestReviewAuthorization(t *testing.T) {
	r, _, g, _, _ := setup(t, models.GigPaid)
	stranger := models.Actor{ID: uuid.New(), Role: models.RoleClient}
	_, err := r.Create(context.Background(), stranger, g.ID, CreateInput{Rating: 3, Comment: "hmm"})
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestReviewRatingBounds(t *testing.T) {
	r, _, g, client, _ := setup(t, models.GigPaid)
	for _, rating := range []int{0, 6, -1} {
		_, err := r.Create(context.Background(), client, g.ID, CreateInput{Rating: rating, Comment: "x"})
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("rating %d: err = %v", rating, err)
		}
	}
}

func TestReviewUnknownGig(t *testing.T) {
	r, _, _, client, _ := setup(t, models.GigPaid)
	_, err := r.Create(context.Background(), client, uuid.New(), CreateInput{Rating: 3, Comment: "x"})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("err = %v, want not found", err)
	}
}
