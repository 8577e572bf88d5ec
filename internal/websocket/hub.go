// Package websocket pushes dashboard refresh notifications to open browsers.
package websocket

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	applog "granabox/internal/log"
)

// Message is a notification sent to every browser.
type Message struct {
	Type    string   `json:"type"`
	Entity  string   `json:"entity"`
	Action  string   `json:"action"`
	ID      int64    `json:"id,omitempty"`
	Periods []string `json:"periods,omitempty"`
}

// RefreshMessage tells browsers to re-fetch the dashboard. An empty periods
// list means every month may have changed.
func RefreshMessage(periods []string) Message {
	return Message{Type: "refresh", Entity: "dashboard", Action: "invalidate", Periods: periods}
}

// Hub tracks connected clients and fans messages out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *applog.Logger
	dropped atomic.Uint64
}

func NewHub(logger *applog.Logger) *Hub {
	if logger == nil {
		logger = applog.Wrap(nil, applog.ComponentWebsocket)
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger.WithComponent(applog.ComponentWebsocket),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes the client and closes its send channel. Calling it twice is fine.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast queues msg for every client. Clients with a full buffer miss it.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast", applog.FieldError, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.dropped.Add(1)
		}
	}
	h.logger.Debug("Broadcast sent", "type", msg.Type, "clients", len(h.clients))
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many messages were skipped for slow clients.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
