package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/account"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/media"
)

type ProfileHandler struct {
	Directory *account.Directory
	Uploader  media.Uploader
}

func (h *ProfileHandler) Me(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	user, err := h.Directory.Profile(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var req account.UpdateProfileInput
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.Directory.UpdateProfile(c.UserContext(), actor, req)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

func (h *ProfileHandler) Public(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "User not found.")
	if err != nil {
		return err
	}
	profile, err := h.Directory.PublicProfile(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(profile)
}

func (h *ProfileHandler) UploadPicture(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("profilePicture")
	if err != nil {
		return apperr.Validation("No file uploaded.")
	}
	secureURL, err := h.Uploader.Upload(c.UserContext(), actor.ID, fh)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"secure_url": secureURL})
}
