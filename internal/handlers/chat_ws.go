package handlers

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
	"github.com/Jaguar1-alt/Gigconnect/internal/middleware"
	"github.com/Jaguar1-alt/Gigconnect/internal/models"
	"github.com/Jaguar1-alt/Gigconnect/internal/realtime"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/chat"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/identity"
)

const (
	EventJoin    = "join_gig_chat"
	EventLeave   = "leave_gig_chat"
	EventSend    = "send_message"
	EventReceive = "receive_message"
	EventError   = "error"
)

const frameTimeout = 10 * time.Second

type ChatSocketHandler struct {
	Relay     *chat.Relay
	Hub       *realtime.Hub
	JWTSecret string
	Log       *logrus.Logger
}

// Upgrade authenticates the session before the socket is accepted; the
// token travels as ?token= because browsers cannot set headers on upgrades.
func (h *ChatSocketHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	token := c.Query("token")
	if token == "" {
		token = middleware.SessionToken(c)
	}
	if token == "" {
		return apperr.Unauthenticated("No token, authorization denied.")
	}
	actor, err := identity.ParseSession(h.JWTSecret, token)
	if err != nil {
		return err
	}
	c.Locals("actor", actor)
	return c.Next()
}

type sendFrame struct {
	Sender    string `json:"sender,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Gig       string `json:"gig"`
	Content   string `json:"content"`
}

func (h *ChatSocketHandler) Serve(conn *websocket.Conn) {
	actor, ok := conn.Locals("actor").(models.Actor)
	if !ok {
		_ = conn.Close()
		return
	}
	log := h.Log.WithField("user_id", actor.ID)

	client := realtime.NewClient(actor.ID, realtime.NewWebSocketConn(conn))
	if !h.Hub.RegisterClient(client) {
		_ = conn.Close()
		return
	}

	pumped := make(chan struct{})
	go func() {
		client.Conn.Pump(client.Send)
		close(pumped)
	}()
	defer func() {
		h.Hub.UnregisterClient(client)
		<-pumped
		log.Info("chat socket closed")
	}()
	log.Info("chat socket opened")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("chat socket read failed")
			}
			return
		}

		var env realtime.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			h.fail(client, apperr.Validation("Malformed frame."))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
		err = h.dispatch(ctx, client, actor, env)
		cancel()
		if err != nil {
			h.fail(client, err)
		}
	}
}

func (h *ChatSocketHandler) dispatch(ctx context.Context, client *realtime.Client, actor models.Actor, env realtime.Envelope) error {
	switch env.Event {
	case EventJoin:
		gigID, err := gigFromData(env.Data)
		if err != nil {
			return err
		}
		if _, err := h.Relay.Join(ctx, actor, gigID); err != nil {
			return err
		}
		h.Hub.Join(client, gigID)
		return nil

	case EventLeave:
		gigID, err := gigFromData(env.Data)
		if err != nil {
			return err
		}
		h.Hub.Leave(client, gigID)
		return nil

	case EventSend:
		var f sendFrame
		if err := json.Unmarshal(env.Data, &f); err != nil {
			return apperr.Validation("Malformed message.")
		}
		gigID, err := uuid.Parse(f.Gig)
		if err != nil {
			return apperr.Validation("gig is required")
		}
		if f.Sender != "" && f.Sender != actor.ID.String() {
			return apperr.Forbidden("Sender does not match the session.")
		}
		var recipient uuid.UUID
		if f.Recipient != "" {
			if recipient, err = uuid.Parse(f.Recipient); err != nil {
				return apperr.Validation("recipient must be a valid id")
			}
		}
		msg, err := h.Relay.Send(ctx, actor, gigID, chat.SendInput{Recipient: recipient, Content: f.Content})
		if err != nil {
			return err
		}
		return h.Hub.Publish(ctx, gigID, EventReceive, msg)

	case "ping":
		h.Hub.SendTo(client, "pong", nil)
		return nil
	}
	return apperr.Validation("Unknown event.")
}

// gigFromData accepts either a bare gig id or {"gig": id}.
func gigFromData(data json.RawMessage) (uuid.UUID, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var obj struct {
			Gig   string `json:"gig"`
			GigID string `json:"gigId"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return uuid.Nil, apperr.Validation("gig is required")
		}
		s = obj.Gig
		if s == "" {
			s = obj.GigID
		}
	}
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, apperr.Validation("gig is required")
	}
	return id, nil
}

func (h *ChatSocketHandler) fail(client *realtime.Client, err error) {
	msg := "Server Error."
	if e, ok := apperr.As(err); ok && e.Kind != apperr.KindInternal {
		msg = e.Message
	} else {
		h.Log.WithError(err).WithField("user_id", client.UserID).Error("chat frame failed")
	}
	h.Hub.SendTo(client, EventError, fiber.Map{"message": msg})
}
