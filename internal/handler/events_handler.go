package handler

import (
	"log/slog"
	"net/http"
	"slices"

	gws "github.com/gorilla/websocket"

	"go-content-dashboard/internal/websocket"
)

type EventsHandler struct {
	hub      *websocket.Hub
	upgrader gws.Upgrader
}

// NewEventsHandler accepts upgrades from the given origins; "*" or an empty
// list allows any origin.
func NewEventsHandler(hub *websocket.Hub, allowedOrigins []string) *EventsHandler {
	allowAll := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")

	return &EventsHandler{
		hub: hub,
		upgrader: gws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// Serve streams the caller's live feed: post events for everyone and
// calendar events for their owner.
func (h *EventsHandler) Serve(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("failed to upgrade live feed connection", "user_id", identity.UserID, "error", err)
		return
	}

	websocket.NewClient(h.hub, conn, identity.UserID).Serve()
}
