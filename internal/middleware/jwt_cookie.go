package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/identity"
)

const SessionCookie = "gc_token"

// SessionToken reads the session token from x-auth-token, then the bearer
// Authorization header, then the session cookie.
func SessionToken(c *fiber.Ctx) string {
	if t := strings.TrimSpace(c.Get("x-auth-token")); t != "" {
		return t
	}
	if h := c.Get(fiber.HeaderAuthorization); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return c.Cookies(SessionCookie)
}

func JWTFromRequest(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := SessionToken(c)
		if tokenStr == "" {
			return apperr.Unauthenticated("No token, authorization denied.")
		}

		actor, err := identity.ParseSession(secret, tokenStr)
		if err != nil {
			return err
		}

		c.Locals("session", actor)
		return c.Next()
	}
}
