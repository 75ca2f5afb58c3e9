package gig

import (
	"github.com/google/uuid"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
	"github.com/Jaguar1-alt/Gigconnect/internal/models"
)

// Hire moves an open gig to in progress, fixing the hired freelancer and the
// agreed amount. g must be locked by the caller.
func Hire(g *models.Gig, freelancerID uuid.UUID, amount int64) error {
	if g.Status != models.GigOpen {
		return apperr.Conflict("Gig is not open for proposals.")
	}
	g.Status = models.GigInProgress
	g.HiredFreelancerID = &freelancerID
	g.FinalAmount = &amount
	return nil
}

// PayOut applies the admin payout transition to a locked gig.
func PayOut(actor models.Actor, g *models.Gig) error {
	if !actor.Is(models.RoleAdmin) {
		return apperr.Forbidden("Only admins can process payouts.")
	}
	if g.Status != models.GigPaid {
		return apperr.Conflict("Gig is not ready for payout.")
	}
	g.Status = models.GigPaidOut
	return nil
}
