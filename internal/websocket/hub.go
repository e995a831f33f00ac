package websocket

import (
	"context"
	"sync"

	"helmet-orchestrator-be/internal/pkg/logger"
	"helmet-orchestrator-be/pkg/broadcast"
)

// StatusSource hands out one status subscription per connected client.
type StatusSource interface {
	Subscribe(ctx context.Context) *broadcast.Subscription
}

type Hub struct {
	source StatusSource

	// Registered clients keyed by subscription ID.
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	logger logger.ILogger
}

func NewHub(source StatusSource, log logger.ILogger) *Hub {
	return &Hub{
		source:     source,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     log,
	}
}

// Run tracks client lifetimes until ctx ends, then cancels every remaining
// subscription so the write pumps close their sockets.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				client.sub.Cancel()
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.sub.ID()] = client
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{
				"subscription_id": client.sub.ID(),
				"subject":         client.Subject,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.sub.ID()]; ok {
				delete(h.clients, client.sub.ID())
				client.sub.Cancel()
				h.logger.Info("Hub", "Client unregistered", map[string]interface{}{
					"subscription_id": client.sub.ID(),
					"dropped":         client.sub.Dropped(),
				})
			}
			h.mu.Unlock()
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// join and leave fall back to cancelling the subscription directly once Run
// has returned.
func (h *Hub) join(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.sub.Cancel()
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
		c.sub.Cancel()
	}
}
