package realtime

import (
	"sync"

	"github.com/gofiber/websocket/v2"
)

// WebSocketConn serialises writes on a fiber websocket connection.
type WebSocketConn struct {
	Conn *websocket.Conn
	mu   sync.Mutex
}

func NewWebSocketConn(c *websocket.Conn) *WebSocketConn {
	return &WebSocketConn{Conn: c}
}

func (w *WebSocketConn) WriteText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteMessage(websocket.TextMessage, b)
}

// Pump writes queued frames until the client's Send channel is closed.
func (w *WebSocketConn) Pump(send <-chan []byte) {
	for msg := range send {
		if err := w.WriteText(msg); err != nil {
			return
		}
	}
}
