// Package proposal records freelancer bids against gigs and runs the
// acceptance workflow.
package proposal

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
	"github.com/Jaguar1-alt/Gigconnect/internal/services/gig"
	"github.com/Jaguar1-alt/Gigconnect/internal/utils"
)

var tracer = otel.Tracer("proposal")

type Store interface {
	GigByID(ctx context.Context, id uuid.UUID, parties bool) (*models.Gig, error)
	CreateProposal(ctx context.Context, p *models.Proposal) error
	ProposalExists(ctx context.Context, gigID, freelancerID uuid.UUID) (bool, error)
	ListProposals(ctx context.Context, q models.ProposalQuery) ([]models.Proposal, error)
	ResolveProposal(ctx context.Context, gigID, proposalID uuid.UUID, rejectSiblings bool, fn func(*models.Gig, *models.Proposal) error) (*models.Gig, *models.Proposal, error)
}

type Options struct {
	// RejectSiblingsOnAccept rejects the other pending proposals of a gig
	// in the accepting transaction.
	RejectSiblingsOnAccept bool
	// OnGigChange runs after a gig changed state, e.g. to drop listings.
	OnGigChange func()
}

type Ledger struct {
	store Store
	opts  Options
}

func NewLedger(store Store, opts Options) *Ledger {
	if opts.OnGigChange == nil {
		opts.OnGigChange = func() {}
	}
	return &Ledger{store: store, opts: opts}
}

type SubmitInput struct {
	BidAmount int64  `json:"bidAmount" validate:"gt=0"`
	Message   string `json:"message" validate:"required,max=5000"`
}

const duplicateMsg = "You have already submitted a proposal for this gig."

func (l *Ledger) Submit(ctx context.Context, actor models.Actor, gigID uuid.UUID, in SubmitInput) (*models.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Proposal.Ledger.Submit", trace.WithAttributes(attribute.String("gig.id", gigID.String())))
	defer span.End()

	if !actor.Is(models.RoleFreelancer) {
		return nil, apperr.Forbidden("Only freelancers can submit proposals.")
	}
	in.Message = strings.TrimSpace(in.Message)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	g, err := l.store.GigByID(ctx, gigID, false)
	if err != nil {
		return nil, gig.NotFound(err)
	}
	if g.Status != models.GigOpen {
		return nil, apperr.Conflict("Gig is not open for proposals.")
	}

	p := &models.Proposal{
		GigID:        gigID,
		FreelancerID: actor.ID,
		BidAmount:    in.BidAmount,
		Message:      in.Message,
		Status:       models.ProposalPending,
	}
	if err := l.store.CreateProposal(ctx, p); err != nil {
		if errors.Is(err, apperr.ErrDuplicate) {
			return nil, apperr.Wrap(apperr.KindConflict, duplicateMsg, err)
		}
		span.RecordError(err)
		return nil, err
	}

	utils.LogEvent(ctx, "proposal_submitted", map[string]interface{}{
		"gig_id":        gigID.String(),
		"freelancer_id": actor.ID.String(),
		"bid_amount":    in.BidAmount,
	})
	return p, nil
}

// HasApplied reports whether the caller already bid on the gig.
func (l *Ledger) HasApplied(ctx context.Context, actor models.Actor, gigID uuid.UUID) (bool, error) {
	return l.store.ProposalExists(ctx, gigID, actor.ID)
}

// Pending lists the gig's pending proposals for its owner.
func (l *Ledger) Pending(ctx context.Context, actor models.Actor, gigID uuid.UUID) ([]models.Proposal, error) {
	g, err := l.store.GigByID(ctx, gigID, false)
	if err != nil {
		return nil, gig.NotFound(err)
	}
	if g.PostedByID != actor.ID {
		return nil, apperr.Forbidden("Not authorized to view these proposals.")
	}
	return l.store.ListProposals(ctx, models.ProposalQuery{
		GigID:          &gigID,
		Status:         models.ProposalPending,
		WithFreelancer: true,
	})
}

// Applied lists the caller's proposals with their gigs.
func (l *Ledger) Applied(ctx context.Context, actor models.Actor) ([]models.Proposal, error) {
	if !actor.Is(models.RoleFreelancer) {
		return nil, apperr.Forbidden("Only freelancers submit proposals.")
	}
	return l.store.ListProposals(ctx, models.ProposalQuery{FreelancerID: &actor.ID, WithGig: true})
}

// resolve runs the shared owner, state and membership checks before apply
// mutates the locked rows.
func (l *Ledger) resolve(ctx context.Context, actor models.Actor, gigID, proposalID uuid.UUID, rejectSiblings bool, apply func(*models.Gig, *models.Proposal) error) (*models.Gig, *models.Proposal, error) {
	g, p, err := l.store.ResolveProposal(ctx, gigID, proposalID, rejectSiblings, func(g *models.Gig, p *models.Proposal) error {
		if g.PostedByID != actor.ID {
			return apperr.Forbidden("Not authorized to manage proposals for this gig.")
		}
		if g.Status != models.GigOpen {
			return apperr.Conflict("Gig is not open for proposals.")
		}
		if p == nil {
			return apperr.NotFound("Proposal not found for this gig.")
		}
		if p.Status != models.ProposalPending {
			return apperr.Conflict("Proposal has already been " + string(p.Status) + ".")
		}
		return apply(g, p)
	})
	if err != nil {
		return nil, nil, gig.NotFound(err)
	}
	return g, p, nil
}

// Accept hires the proposal's freelancer: the gig moves to in progress and
// the proposal to accepted in one transaction.
func (l *Ledger) Accept(ctx context.Context, actor models.Actor, gigID, proposalID uuid.UUID) (*models.Gig, *models.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Proposal.Ledger.Accept", trace.WithAttributes(
		attribute.String("gig.id", gigID.String()),
		attribute.String("proposal.id", proposalID.String()),
	))
	defer span.End()

	g, p, err := l.resolve(ctx, actor, gigID, proposalID, l.opts.RejectSiblingsOnAccept, func(g *models.Gig, p *models.Proposal) error {
		if err := gig.Hire(g, p.FreelancerID, p.BidAmount); err != nil {
			return err
		}
		p.Status = models.ProposalAccepted
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	l.opts.OnGigChange()

	utils.LogEvent(ctx, "proposal_accepted", map[string]interface{}{
		"gig_id":        gigID.String(),
		"proposal_id":   proposalID.String(),
		"freelancer_id": p.FreelancerID.String(),
		"final_amount":  p.BidAmount,
	})
	return g, p, nil
}

// Reject declines one proposal; the gig is untouched.
func (l *Ledger) Reject(ctx context.Context, actor models.Actor, gigID, proposalID uuid.UUID) (*models.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Proposal.Ledger.Reject")
	defer span.End()

	_, p, err := l.resolve(ctx, actor, gigID, proposalID, false, func(_ *models.Gig, p *models.Proposal) error {
		p.Status = models.ProposalRejected
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

type Checkout struct {
	Gig            *models.Gig `json:"gigDetails"`
	BidAmount      int64       `json:"bidAmount"`
	FreelancerName string      `json:"freelancerName"`
}

// Checkout summarizes what the client owes for a hired gig.
func (l *Ledger) Checkout(ctx context.Context, actor models.Actor, gigID uuid.UUID) (*Checkout, error) {
	g, err := l.store.GigByID(ctx, gigID, true)
	if err != nil {
		return nil, gig.NotFound(err)
	}
	if !g.IsParty(actor.ID) && !actor.Is(models.RoleAdmin) {
		return nil, apperr.Forbidden("Not authorized to view this checkout.")
	}
	if g.HiredFreelancerID == nil {
		return nil, apperr.NotFound("No accepted proposal found for this gig.")
	}
	accepted, err := l.store.ListProposals(ctx, models.ProposalQuery{
		GigID:          &gigID,
		FreelancerID:   g.HiredFreelancerID,
		WithFreelancer: true,
	})
	if err != nil {
		return nil, err
	}
	out := &Checkout{Gig: g}
	if g.FinalAmount != nil {
		out.BidAmount = *g.FinalAmount
	}
	if g.HiredFreelancer != nil {
		out.FreelancerName = g.HiredFreelancer.Username
	}
	if len(accepted) > 0 {
		out.BidAmount = accepted[0].BidAmount
		if accepted[0].Freelancer != nil {
			out.FreelancerName = accepted[0].Freelancer.Username
		}
	}
	return out, nil
}
