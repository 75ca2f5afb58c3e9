package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
	"github.com/Jaguar1-alt/Gigconnect/internal/middleware"
	"github.com/Jaguar1-alt/Gigconnect/internal/models"
	"github.com/Jaguar1-alt/Gigconnect/internal/utils"
)

// ErrorHandler renders classified errors as {message, code}; everything else
// is reported and answered with a plain-text 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if e, ok := apperr.As(err); ok && e.Kind != apperr.KindInternal {
		return c.Status(e.Kind.Status()).JSON(fiber.Map{
			"message": e.Message,
			"code":    e.Kind.Code(),
		})
	}

	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		return c.Status(fe.Code).JSON(fiber.Map{
			"message": fe.Message,
			"code":    "http",
		})
	}

	utils.LogError(c.UserContext(), "request_failed", err, map[string]interface{}{
		"method":     c.Method(),
		"path":       c.Path(),
		"request_id": c.Locals("requestid"),
	})
	return c.Status(fiber.StatusInternalServerError).SendString("Server Error.")
}

func message(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"message": msg})
}

func actorOf(c *fiber.Ctx) (models.Actor, error) {
	return middleware.CurrentActor(c)
}

// paramID parses a uuid route parameter; malformed ids surface as notFound.
func paramID(c *fiber.Ctx, name, notFound string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.NotFound(notFound)
	}
	return id, nil
}

func bind(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.Validation("Invalid request body.")
	}
	return nil
}
