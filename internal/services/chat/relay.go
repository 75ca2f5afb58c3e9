// Package chat enforces who may talk in a gig conversation and keeps the
// append-only message log. Live fan-out is done by the realtime hub.
package chat

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
	"github.com/Jaguar1-alt/Gigconnect/internal/models"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/gig"
)

var tracer = otel.Tracer("chat")

const MaxMessageLength = 4000

type Store interface {
	GigByID(ctx context.Context, id uuid.UUID, parties bool) (*models.Gig, error)
	CreateMessage(ctx context.Context, m *models.Message) error
	ListMessages(ctx context.Context, gigID uuid.UUID) ([]models.Message, error)
}

type Relay struct {
	store Store
}

func NewRelay(store Store) *Relay {
	return &Relay{store: store}
}

// Join checks that the caller is the gig's client or its hired freelancer.
func (r *Relay) Join(ctx context.Context, actor models.Actor, gigID uuid.UUID) (*models.Gig, error) {
	g, err := r.store.GigByID(ctx, gigID, false)
	if err != nil {
		return nil, gig.NotFound(err)
	}
	if g.HiredFreelancerID == nil {
		return nil, apperr.Forbidden("Chat opens once a freelancer is hired.")
	}
	if !g.IsParty(actor.ID) {
		return nil, apperr.Forbidden("Not a participant of this gig.")
	}
	return g, nil
}

// History returns the gig's messages oldest first.
func (r *Relay) History(ctx context.Context, actor models.Actor, gigID uuid.UUID) ([]models.Message, error) {
	g, err := r.store.GigByID(ctx, gigID, false)
	if err != nil {
		return nil, gig.NotFound(err)
	}
	if !g.IsParty(actor.ID) && !actor.Is(models.RoleAdmin) {
		return nil, apperr.Forbidden("Not a participant of this gig.")
	}
	return r.store.ListMessages(ctx, gigID)
}

type SendInput struct {
	// Recipient may be left empty; it defaults to the other participant.
	Recipient uuid.UUID
	Content   string
}

// Send persists a message from the caller to the other participant.
func (r *Relay) Send(ctx context.Context, actor models.Actor, gigID uuid.UUID, in SendInput) (*models.Message, error) {
	ctx, span := tracer.Start(ctx, "Chat.Relay.Send")
	defer span.End()

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apperr.Validation("content is required")
	}
	if len(content) > MaxMessageLength {
		return nil, apperr.Validation("content is too long")
	}

	g, err := r.Join(ctx, actor, gigID)
	if err != nil {
		return nil, err
	}
	other, _ := g.Counterpart(actor.ID)
	if in.Recipient != uuid.Nil && in.Recipient != other {
		return nil, apperr.Forbidden("Recipient is not the other participant of this gig.")
	}

	msg := &models.Message{
		GigID:       gigID,
		SenderID:    actor.ID,
		RecipientID: other,
		Content:     content,
	}
	if err := r.store.CreateMessage(ctx, msg); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return msg, nil
}
