package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Jaguar1-alt/Gigconnect/internal/middleware"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/identity"
)

type AuthHandler struct {
	Bridge       *identity.Bridge
	SecureCookie bool
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req identity.RegisterInput
	if err := bind(c, &req); err != nil {
		return err
	}
	if _, err := h.Bridge.Register(c.UserContext(), req); err != nil {
		return err
	}
	return message(c, fiber.StatusCreated, "User registered successfully.")
}

type LoginReq struct {
	IDToken string `json:"idToken"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := bind(c, &req); err != nil {
		return err
	}

	sess, err := h.Bridge.Login(c.UserContext(), req.IDToken)
	if err != nil {
		return err
	}

	setSessionCookie(c, sess, h.SecureCookie)
	return c.JSON(fiber.Map{
		"token":        sess.Token,
		"sessionToken": sess.Token,
		"role":         sess.User.Role,
		"expiresAt":    sess.ExpiresAt,
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.SecureCookie,
		SameSite: "Lax",
	})
	return message(c, fiber.StatusOK, "Logged out.")
}

func setSessionCookie(c *fiber.Ctx, sess *identity.Session, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   secure,
		SameSite: "Lax",
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
	})
}
