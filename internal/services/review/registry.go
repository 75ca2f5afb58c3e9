// Package review stores the single post-payment rating of a gig.
package review

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
	"github.com/Jaguar1-alt/Gigconnect/internal/models"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/gig"
	"github.com/Jaguar1-alt/Gigconnect/internal/utils"
)

var tracer = otel.Tracer("review")

type Store interface {
	GigByID(ctx context.Context, id uuid.UUID, parties bool) (*models.Gig, error)
	CreateReview(ctx context.Context, r *models.Review) error
	ListReviews(ctx context.Context, q models.ReviewQuery) ([]models.Review, error)
}

type Registry struct {
	store Store
}

func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

type CreateInput struct {
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Comment string `json:"comment" validate:"required,max=5000"`
}

func (r *Registry) Create(ctx context.Context, actor models.Actor, gigID uuid.UUID, in CreateInput) (*models.Review, error) {
	ctx, span := tracer.Start(ctx, "Review.Registry.Create")
	defer span.End()

	in.Comment = strings.TrimSpace(in.Comment)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	g, err := r.store.GigByID(ctx, gigID, false)
	if err != nil {
		return nil, gig.NotFound(err)
	}
	if g.Status != models.GigPaid || g.HiredFreelancerID == nil {
		return nil, apperr.Conflict("Cannot leave a review for this gig.")
	}
	if !g.IsParty(actor.ID) {
		return nil, apperr.Forbidden("Not authorized to review this gig.")
	}

	rev := &models.Review{
		GigID:        gigID,
		ClientID:     g.PostedByID,
		FreelancerID: *g.HiredFreelancerID,
		Rating:       in.Rating,
		Comment:      in.Comment,
	}
	if err := r.store.CreateReview(ctx, rev); err != nil {
		if errors.Is(err, apperr.ErrDuplicate) {
			return nil, apperr.Wrap(apperr.KindConflict, "A review for this gig already exists.", err)
		}
		span.RecordError(err)
		return nil, err
	}

	utils.LogEvent(ctx, "review_created", map[string]interface{}{
		"gig_id":    gigID.String(),
		"author_id": actor.ID.String(),
		"rating":    in.Rating,
	})
	return rev, nil
}

func (r *Registry) ForGig(ctx context.Context, gigID uuid.UUID) ([]models.Review, error) {
	return r.store.ListReviews(ctx, models.ReviewQuery{GigID: &gigID})
}

func (r *Registry) ForFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.Review, error) {
	return r.store.ListReviews(ctx, models.ReviewQuery{FreelancerID: &freelancerID})
}
