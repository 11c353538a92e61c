package websocket

import (
	"context"
	"encoding/json"
	"log/slog"

	"go-content-dashboard/internal/event"
)

// Hub fans bus events out to connected dashboards. Each client only receives
// events visible to its user.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	// done is closed when the hub stops.
	done chan struct{}

	bus event.Bus
}

func NewHub(bus event.Bus) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
		bus:        bus,
	}
}

// Start subscribes to the bus before returning and then owns the client set
// until ctx is cancelled, when every client is closed. The returned channel
// is closed once the hub has stopped.
func (h *Hub) Start(ctx context.Context) <-chan struct{} {
	events, unsubscribe := h.bus.Subscribe()
	go h.run(ctx, events, unsubscribe)
	return h.done
}

func (h *Hub) run(ctx context.Context, events <-chan event.Event, unsubscribe func()) {
	defer unsubscribe()
	defer close(h.done)
	defer func() {
		for client := range h.clients {
			delete(h.clients, client)
			close(client.send)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.clients[client] = true
			slog.Debug("live feed client connected", "user_id", client.userID, "total_clients", len(h.clients))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				slog.Debug("live feed client disconnected", "user_id", client.userID, "total_clients", len(h.clients))
			}
		case e, ok := <-events:
			if !ok {
				return
			}
			h.broadcast(e)
		}
	}
}

func (h *Hub) broadcast(e event.Event) {
	var message []byte
	for client := range h.clients {
		if !e.VisibleTo(client.userID) {
			continue
		}
		if message == nil {
			var err error
			if message, err = json.Marshal(e); err != nil {
				slog.Error("failed to marshal event", "type", e.Type, "error", err)
				return
			}
		}
		select {
		case client.send <- message:
		default:
			slog.Warn("dropping slow live feed client", "user_id", client.userID)
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// Register hands a client to the hub. It returns false once the hub has
// stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
