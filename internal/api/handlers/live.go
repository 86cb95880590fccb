package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/idfs-labs/starguide/internal/arena"
)

const (
	liveWriteWait  = 10 * time.Second
	livePingPeriod = 30 * time.Second
)

// LiveHandler streams room events to participants over a websocket
type LiveHandler struct {
	coordinator *arena.Coordinator
	upgrader    websocket.Upgrader
	logger      *slog.Logger
}

// NewLiveHandler creates a new live stream handler
func NewLiveHandler(coordinator *arena.Coordinator, logger *slog.Logger) *LiveHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveHandler{
		coordinator: coordinator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Auth happens before the upgrade; the bearer token already
			// gates who can reach this handler.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Stream upgrades the connection and forwards room events until the client
// disconnects or the subscription is dropped
func (h *LiveHandler) Stream(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	roomID, err := uuid.Parse(r.PathValue("room_id"))
	if err != nil {
		BadRequest(w, r, "invalid room id")
		return
	}

	ch, err := h.coordinator.Subscribe(roomID, user.ID)
	if err != nil {
		DomainError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.coordinator.Unsubscribe(roomID, ch)
		h.logger.Warn("websocket upgrade failed", "room_id", roomID, "error", err)
		return
	}

	done := make(chan struct{})

	// Reader exists only to observe the close handshake.
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(livePingPeriod)
	defer func() {
		ticker.Stop()
		h.coordinator.Unsubscribe(roomID, ch)
		conn.Close()
	}()

	for {
		select {
		case event, open := <-ch:
			if !open {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
