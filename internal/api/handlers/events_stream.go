package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vendix/platform/internal/events"
)

// EventStreamHandler pushes invalidation events to operator dashboards over a
// websocket, so a UI can reflect domain changes without polling.
type EventStreamHandler struct {
	channel  events.Channel
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewEventStreamHandler creates a new event stream handler.
func NewEventStreamHandler(channel events.Channel, logger *slog.Logger) *EventStreamHandler {
	return &EventStreamHandler{
		channel: channel,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The admin surface sits behind auth middleware; origin checks
			// are delegated to the deployment's proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

const (
	eventWriteTimeout = 10 * time.Second
	eventPingInterval = 30 * time.Second
)

// Stream handles GET /v1/domain-settings/events.
func (h *EventStreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch, cancel := h.channel.Subscribe(r.Context())
	defer cancel()

	// Reader goroutine: drains client frames and surfaces disconnects.
	disconnect := make(chan struct{})
	go func() {
		defer close(disconnect)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(eventPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-disconnect:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case event, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}
