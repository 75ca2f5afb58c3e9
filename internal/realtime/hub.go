package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Envelope is the frame shape on the chat socket.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Client struct {
	ID     string
	UserID uuid.UUID
	Conn   *WebSocketConn
	Send   chan []byte
}

func NewClient(userID uuid.UUID, conn *WebSocketConn) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
	}
}

// Backplane fans room frames out across processes. Frames published through
// it come back through Deliver on every subscribed hub, including this one.
type Backplane interface {
	Publish(ctx context.Context, room uuid.UUID, payload []byte) error
}

// membership requests are acknowledged once Run has applied them.
type membership struct {
	client *Client
	done   chan struct{}
}

type Hub struct {
	clients    map[string]*Client
	rooms      map[uuid.UUID]map[*Client]struct{}
	register   chan membership
	unregister chan membership
	stopped    chan struct{}
	mu         sync.RWMutex

	backplane Backplane
	log       *logrus.Logger
}

func NewHub(log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan membership),
		unregister: make(chan membership),
		stopped:    make(chan struct{}),
		log:        log,
	}
}

// UseBackplane must be called before Run.
func (h *Hub) UseBackplane(b Backplane) { h.backplane = b }

// RegisterClient reports false once the hub has stopped.
func (h *Hub) RegisterClient(client *Client) bool {
	m := membership{client: client, done: make(chan struct{})}
	select {
	case h.register <- m:
		<-m.done
		return true
	case <-h.stopped:
		return false
	}
}

func (h *Hub) UnregisterClient(client *Client) {
	m := membership{client: client, done: make(chan struct{})}
	select {
	case h.unregister <- m:
		<-m.done
	case <-h.stopped:
	}
}

// Join is a no-op for clients the hub no longer knows.
func (h *Hub) Join(client *Client, room uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return false
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[client] = struct{}{}
	h.log.WithFields(logrus.Fields{"client": client.ID, "user_id": client.UserID, "room": room}).Debug("room joined")
	return true
}

func (h *Hub) Leave(client *Client, room uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(client, room)
}

func (h *Hub) leaveLocked(client *Client, room uuid.UUID) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, client)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) InRoom(client *Client, room uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][client]
	return ok
}

func (h *Hub) RoomSize(room uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Publish sends an event to every connection in room, across processes when a
// backplane is configured.
func (h *Hub) Publish(ctx context.Context, room uuid.UUID, event string, data any) error {
	payload, err := Frame(event, data)
	if err != nil {
		return err
	}
	if h.backplane != nil {
		err := h.backplane.Publish(ctx, room, payload)
		if err == nil {
			return nil
		}
		h.log.WithError(err).WithField("room", room).Warn("backplane publish failed, delivering locally")
	}
	h.Deliver(room, payload)
	return nil
}

// Deliver writes payload to the local members of room. Slow clients lose the
// frame instead of blocking the room.
func (h *Hub) Deliver(room uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[room] {
		select {
		case client.Send <- payload:
		default:
			h.log.WithFields(logrus.Fields{"client": client.ID, "room": room}).Warn("send buffer full, frame dropped")
		}
	}
}

// SendTo queues an event for a single client.
func (h *Hub) SendTo(client *Client, event string, data any) {
	payload, err := Frame(event, data)
	if err != nil {
		h.log.WithError(err).Error("marshal frame")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	select {
	case client.Send <- payload:
	default:
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.stopped)
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.Send)
			}
			h.rooms = make(map[uuid.UUID]map[*Client]struct{})
			h.mu.Unlock()
			return

		case m := <-h.register:
			h.mu.Lock()
			h.clients[m.client.ID] = m.client
			h.mu.Unlock()
			close(m.done)
			h.log.WithFields(logrus.Fields{"client": m.client.ID, "user_id": m.client.UserID}).Info("client registered")

		case m := <-h.unregister:
			h.mu.Lock()
			if old, ok := h.clients[m.client.ID]; ok {
				delete(h.clients, m.client.ID)
				for room := range h.rooms {
					h.leaveLocked(old, room)
				}
				close(old.Send)
				h.log.WithField("client", m.client.ID).Info("client unregistered")
			}
			h.mu.Unlock()
			close(m.done)
		}
	}
}

func Frame(event string, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
