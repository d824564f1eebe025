package server

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"calc-assistant/internal/events"
)

const writeWait = 10 * time.Second

// client serialises writes to one websocket connection.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// Hub broadcasts run events to every connected websocket client.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{clients: make(map[*client]struct{}), logger: logger.Named("ws")}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// Clients reports how many websocket clients are connected.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// eventMessage is how events appear on the socket.
type eventMessage struct {
	Type  string       `json:"type"`
	Event events.Event `json:"event"`
}

// Publish implements events.Publisher. Clients that cannot be written to are
// dropped.
func (h *Hub) Publish(_ context.Context, evt events.Event) error {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	msg := eventMessage{Type: "event", Event: evt}
	for _, c := range targets {
		if err := c.writeJSON(msg); err != nil {
			h.logger.Debug("dropping websocket client", zap.Error(err))
			h.remove(c)
			_ = c.conn.Close()
		}
	}
	return nil
}
