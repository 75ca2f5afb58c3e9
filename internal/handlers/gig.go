package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
	"github.com/Jaguar1-alt/Gigconnect/internal/models"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/gig"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/proposal"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/review"
)

const gigNotFound = "Gig not found."

type GigHandler struct {
	Gigs      *gig.Manager
	Proposals *proposal.Ledger
	Reviews   *review.Registry
}

// Browse lists open gigs filtered by ?skills=a,b&location=x&budget=n.
func (h *GigHandler) Browse(c *fiber.Ctx) error {
	var f models.GigFilter
	for _, s := range strings.Split(c.Query("skills"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			f.Skills = append(f.Skills, s)
		}
	}
	f.Location = strings.TrimSpace(c.Query("location"))
	if raw := strings.TrimSpace(c.Query("budget")); raw != "" {
		budget, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || budget < 0 {
			return apperr.Validation("budget must be a non-negative number")
		}
		f.MaxBudget = &budget
	}

	gigs, err := h.Gigs.Search(c.UserContext(), f)
	if err != nil {
		return err
	}
	return c.JSON(gigs)
}

func (h *GigHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id", gigNotFound)
	if err != nil {
		return err
	}
	g, err := h.Gigs.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(g)
}

func (h *GigHandler) Create(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var req gig.CreateInput
	if err := bind(c, &req); err != nil {
		return err
	}
	g, err := h.Gigs.Create(c.UserContext(), actor, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(g)
}

func (h *GigHandler) Mine(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	gigs, err := h.Gigs.Mine(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(gigs)
}

func (h *GigHandler) Hired(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	gigs, err := h.Gigs.Hired(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(gigs)
}

func (h *GigHandler) ClientStats(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	st, err := h.Gigs.ClientStats(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (h *GigHandler) FreelancerStats(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	st, err := h.Gigs.FreelancerStats(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (h *GigHandler) Complete(c *fiber.Ctx) error {
	return h.transition(c, h.Gigs.Complete, "Gig marked as completed.")
}

func (h *GigHandler) MarkPaid(c *fiber.Ctx) error {
	return h.transition(c, h.Gigs.MarkPaid, "Gig marked as paid.")
}

func (h *GigHandler) transition(c *fiber.Ctx, apply func(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Gig, error), done string) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id", gigNotFound)
	if err != nil {
		return err
	}
	g, err := apply(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": done, "gig": g})
}

func (h *GigHandler) SubmitProposal(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id", gigNotFound)
	if err != nil {
		return err
	}
	var req proposal.SubmitInput
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := h.Proposals.Submit(c.UserContext(), actor, id, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *GigHandler) PendingProposals(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id", gigNotFound)
	if err != nil {
		return err
	}
	ps, err := h.Proposals.Pending(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(ps)
}

func (h *GigHandler) Applied(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	ps, err := h.Proposals.Applied(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(ps)
}

func (h *GigHandler) CheckApplied(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "gigId", gigNotFound)
	if err != nil {
		return err
	}
	applied, err := h.Proposals.HasApplied(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"hasApplied": applied})
}

func (h *GigHandler) proposalRoute(c *fiber.Ctx) (models.Actor, uuid.UUID, uuid.UUID, error) {
	actor, err := actorOf(c)
	if err != nil {
		return actor, uuid.Nil, uuid.Nil, err
	}
	gigID, err := paramID(c, "gigId", gigNotFound)
	if err != nil {
		return actor, uuid.Nil, uuid.Nil, err
	}
	proposalID, err := paramID(c, "proposalId", "Proposal not found for this gig.")
	if err != nil {
		return actor, uuid.Nil, uuid.Nil, err
	}
	return actor, gigID, proposalID, nil
}

func (h *GigHandler) AcceptProposal(c *fiber.Ctx) error {
	actor, gigID, proposalID, err := h.proposalRoute(c)
	if err != nil {
		return err
	}
	g, p, err := h.Proposals.Accept(c.UserContext(), actor, gigID, proposalID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Proposal accepted successfully.", "gig": g, "proposal": p})
}

func (h *GigHandler) RejectProposal(c *fiber.Ctx) error {
	actor, gigID, proposalID, err := h.proposalRoute(c)
	if err != nil {
		return err
	}
	p, err := h.Proposals.Reject(c.UserContext(), actor, gigID, proposalID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Proposal rejected successfully.", "proposal": p})
}

func (h *GigHandler) Checkout(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id", gigNotFound)
	if err != nil {
		return err
	}
	out, err := h.Proposals.Checkout(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *GigHandler) Review(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id", gigNotFound)
	if err != nil {
		return err
	}
	var req review.CreateInput
	if err := bind(c, &req); err != nil {
		return err
	}
	r, err := h.Reviews.Create(c.UserContext(), actor, id, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Review submitted successfully.", "review": r})
}

func (h *GigHandler) GigReviews(c *fiber.Ctx) error {
	id, err := paramID(c, "id", gigNotFound)
	if err != nil {
		return err
	}
	rs, err := h.Reviews.ForGig(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(rs)
}

func (h *GigHandler) FreelancerReviews(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "User not found.")
	if err != nil {
		return err
	}
	rs, err := h.Reviews.ForFreelancer(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(rs)
}
