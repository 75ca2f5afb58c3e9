package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
	"github.com/Jaguar1-alt/Gigconnect/internal/models"
)

func RequireRoles(allowed ...models.Role) fiber.Handler {
	allowedSet := map[models.Role]bool{}
	for _, r := range allowed {
		allowedSet[r] = true
	}

	return func(c *fiber.Ctx) error {
		actor, err := CurrentActor(c)
		if err != nil {
			return err
		}
		if !allowedSet[actor.Role] {
			return apperr.Forbidden("Access denied.")
		}
		return c.Next()
	}
}
