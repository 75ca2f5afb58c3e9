package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Jaguar1-alt/Gigconnect/internal/services/chat"
)

type MessageHandler struct {
	Relay *chat.Relay
}

func (h *MessageHandler) History(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	gigID, err := paramID(c, "gigId", gigNotFound)
	if err != nil {
		return err
	}
	msgs, err := h.Relay.History(c.UserContext(), actor, gigID)
	if err != nil {
		return err
	}
	return c.JSON(msgs)
}
