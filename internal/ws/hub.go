package ws

import (
	"context"
	"encoding/json"
	"sync"

	"todo_webapp/internal/domain"
	"todo_webapp/internal/logger"
)

// Hub fans notifications and invalidation events out to every open
// connection of a user. One user may hold several connections.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[int64]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	logger.Debug("ws client registered", "user_id", c.UserID, "connections", len(set))
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.Send)
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
	logger.Debug("ws client unregistered", "user_id", c.UserID)
}

// Connections reports how many sockets a user has open.
func (h *Hub) Connections(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) Notify(_ context.Context, userID int64, n domain.Notification) {
	h.broadcast(userID, Envelope{Type: MsgNotification, Notification: &n})
}

func (h *Hub) PublishInvalidate(_ context.Context, userID int64) {
	h.broadcast(userID, Envelope{Type: MsgInvalidate})
}

func (h *Hub) broadcast(userID int64, env Envelope) {
	msg, err := json.Marshal(env)
	if err != nil {
		logger.Error("ws marshal failed", "error", err, "type", env.Type)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[userID] {
		select {
		case c.Send <- msg:
		default:
			// slow consumer; it will refetch on its next read anyway
			logger.Warn("ws send buffer full, dropping frame", "user_id", userID, "type", env.Type)
		}
	}
}
