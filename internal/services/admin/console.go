// Package admin implements the administrative console: platform counts,
// destructive operations and payouts.
package admin

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
	"github.com/Jaguar1-alt/Gigconnect/internal/models"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/account"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/gig"
	"github.com/Jaguar1-alt/Gigconnect/internal/utils"
)

var tracer = otel.Tracer("admin")

type PayoutStore interface {
	SettlePayout(ctx context.Context, gigID uuid.UUID, fn func(*models.Gig) (*models.PayoutRecord, error)) (*models.Gig, *models.PayoutRecord, error)
}

type Console struct {
	users   *account.Directory
	gigs    *gig.Manager
	payouts PayoutStore
}

func NewConsole(users *account.Directory, gigs *gig.Manager, payouts PayoutStore) *Console {
	return &Console{users: users, gigs: gigs, payouts: payouts}
}

type Stats struct {
	TotalUsers     int64                      `json:"totalUsers"`
	TotalGigs      int64                      `json:"totalGigs"`
	OpenGigs       int64                      `json:"openGigs"`
	InProgressGigs int64                      `json:"inProgressGigs"`
	ByStatus       map[models.GigStatus]int64 `json:"byStatus"`
}

func (c *Console) Stats(ctx context.Context) (*Stats, error) {
	ctx, span := tracer.Start(ctx, "Admin.Console.Stats")
	defer span.End()

	var (
		st       Stats
		byStatus = make([]int64, len(models.GigStatuses))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.TotalUsers, err = c.users.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		st.TotalGigs, err = c.gigs.Count(gctx)
		return err
	})
	for i, status := range models.GigStatuses {
		i, status := i, status
		g.Go(func() (err error) {
			byStatus[i], err = c.gigs.Count(gctx, status)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	st.ByStatus = make(map[models.GigStatus]int64, len(byStatus))
	for i, status := range models.GigStatuses {
		st.ByStatus[status] = byStatus[i]
	}
	st.OpenGigs = st.ByStatus[models.GigOpen]
	st.InProgressGigs = st.ByStatus[models.GigInProgress]
	return &st, nil
}

func (c *Console) Users(ctx context.Context) ([]models.User, error) {
	return c.users.List(ctx)
}

func (c *Console) Gigs(ctx context.Context) ([]models.Gig, error) {
	return c.gigs.All(ctx)
}

func (c *Console) DeleteUser(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	if err := c.users.Delete(ctx, id); err != nil {
		return err
	}
	utils.LogEvent(ctx, "admin_user_deleted", map[string]interface{}{
		"admin_id": actor.ID.String(),
		"user_id":  id.String(),
	})
	return nil
}

func (c *Console) DeleteGig(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	if err := c.gigs.Delete(ctx, id); err != nil {
		return err
	}
	utils.LogEvent(ctx, "admin_gig_deleted", map[string]interface{}{
		"admin_id": actor.ID.String(),
		"gig_id":   id.String(),
	})
	return nil
}

// PendingPayouts lists paid gigs waiting for the freelancer to be paid out,
// with the freelancer's payout identifier attached.
func (c *Console) PendingPayouts(ctx context.Context) ([]models.Gig, error) {
	gigs, err := c.gigs.WithStatus(ctx, models.GigPaid)
	if err != nil {
		return nil, err
	}
	for i := range gigs {
		g := &gigs[i]
		if g.HiredFreelancerID == nil {
			continue
		}
		upiID, err := c.payoutID(ctx, *g.HiredFreelancerID)
		if err != nil {
			return nil, err
		}
		if g.HiredFreelancer == nil {
			g.HiredFreelancer = &models.Party{ID: *g.HiredFreelancerID}
		}
		g.HiredFreelancer.UPIID = upiID
	}
	return gigs, nil
}

// payoutID is empty for freelancers whose account has been deleted.
func (c *Console) payoutID(ctx context.Context, freelancerID uuid.UUID) (string, error) {
	u, err := c.users.Account(ctx, freelancerID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return "", nil
		}
		return "", err
	}
	return u.UPIID, nil
}

// ProcessPayout moves a paid gig to paid-out and records the amount owed to
// the hired freelancer. No money is moved.
func (c *Console) ProcessPayout(ctx context.Context, actor models.Actor, gigID uuid.UUID) (*models.Gig, *models.PayoutRecord, error) {
	ctx, span := tracer.Start(ctx, "Admin.Console.ProcessPayout")
	defer span.End()

	current, err := c.gigs.Get(ctx, gigID)
	if err != nil {
		return nil, nil, err
	}
	var upiID string
	if current.HiredFreelancerID != nil {
		if upiID, err = c.payoutID(ctx, *current.HiredFreelancerID); err != nil {
			return nil, nil, err
		}
	}

	g, rec, err := c.payouts.SettlePayout(ctx, gigID, func(g *models.Gig) (*models.PayoutRecord, error) {
		if err := gig.PayOut(actor, g); err != nil {
			return nil, err
		}
		rec := &models.PayoutRecord{
			GigID:       g.ID,
			UPIID:       upiID,
			ProcessedBy: actor.ID,
		}
		if g.HiredFreelancerID != nil {
			rec.FreelancerID = *g.HiredFreelancerID
		}
		if g.FinalAmount != nil {
			rec.Amount = *g.FinalAmount
		}
		return rec, nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrDuplicate) {
			return nil, nil, apperr.Wrap(apperr.KindConflict, "Gig is not ready for payout.", err)
		}
		span.RecordError(err)
		return nil, nil, gig.NotFound(err)
	}
	c.gigs.InvalidateListings()

	utils.LogEvent(ctx, "payout_processed", map[string]interface{}{
		"gig_id":        g.ID.String(),
		"freelancer_id": rec.FreelancerID.String(),
		"amount":        rec.Amount,
		"upi_id":        rec.UPIID,
		"admin_id":      actor.ID.String(),
	})
	return g, rec, nil
}
