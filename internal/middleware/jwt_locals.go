package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
	"github.com/Jaguar1-alt/Gigconnect/internal/models"
)

// AttachJWTLocals copies the parsed session into the userId and role locals.
func AttachJWTLocals() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := c.Locals("session").(models.Actor)
		if !ok || actor.ID == uuid.Nil {
			return apperr.Unauthenticated("Invalid token.")
		}

		c.Locals("userId", actor.ID)
		c.Locals("role", actor.Role)

		return c.Next()
	}
}

// CurrentActor returns the caller attached by AttachJWTLocals.
func CurrentActor(c *fiber.Ctx) (models.Actor, error) {
	id, ok := c.Locals("userId").(uuid.UUID)
	if !ok || id == uuid.Nil {
		return models.Actor{}, apperr.Unauthenticated("No token, authorization denied.")
	}
	role, _ := c.Locals("role").(models.Role)
	return models.Actor{ID: id, Role: role}, nil
}
