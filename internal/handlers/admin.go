package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Jaguar1-alt/Gigconnect/internal/services/admin"
)

type AdminHandler struct {
	Console *admin.Console
}

func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	st, err := h.Console.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (h *AdminHandler) Users(c *fiber.Ctx) error {
	users, err := h.Console.Users(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(users)
}

func (h *AdminHandler) Gigs(c *fiber.Ctx) error {
	gigs, err := h.Console.Gigs(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(gigs)
}

func (h *AdminHandler) Payouts(c *fiber.Ctx) error {
	gigs, err := h.Console.PendingPayouts(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(gigs)
}

func (h *AdminHandler) ProcessPayout(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id", gigNotFound)
	if err != nil {
		return err
	}
	g, payout, err := h.Console.ProcessPayout(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Payout processed successfully.", "gig": g, "payout": payout})
}

func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id", "User not found.")
	if err != nil {
		return err
	}
	if err := h.Console.DeleteUser(c.UserContext(), actor, id); err != nil {
		return err
	}
	return message(c, fiber.StatusOK, "User deleted successfully.")
}

func (h *AdminHandler) DeleteGig(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id", gigNotFound)
	if err != nil {
		return err
	}
	if err := h.Console.DeleteGig(c.UserContext(), actor, id); err != nil {
		return err
	}
	return message(c, fiber.StatusOK, "Gig deleted successfully.")
}
