// Package notify pushes change events to dashboard clients over websocket so
// the UI can refresh device cards and notification badges without polling.
package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
)

type EventKind string

const (
	EventDeviceChanged EventKind = "device_changed"
	EventNotification  EventKind = "notification"
)

type Event struct {
	Kind     EventKind `json:"kind"`
	CenterID string    `json:"-"`
	DeviceID string    `json:"device_id,omitempty"`
	Message  string    `json:"message,omitempty"`
}

type client struct {
	centerID string
	conn     *websocket.Conn
}

// Hub fans events out to every connected client of the same center. Slow
// clients are dropped rather than blocking publishers.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	log     zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{clients: make(map[*client]struct{}), log: log}
}

// Publish sends the event to all clients of its center. Never blocks the
// caller beyond a short per-client write deadline.
func (h *Hub) Publish(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if c.centerID == ev.CenterID {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.conn.Write(ctx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			h.drop(c)
		}
	}
}

// ServeHTTP upgrades the request and parks the connection until the client
// goes away. Reads are drained only to detect close.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, centerID string) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket accept failed")
		return
	}

	c := &client{centerID: centerID, conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	defer h.drop(c)
	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}
}

// ClientCount is used by tests and the health endpoint.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
