package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/idfs-labs/starguide/internal/events"
)

// NotificationStream is the per-user subscription surface of the queue's
// notification consumer.
type NotificationStream interface {
	Subscribe(userID string, handler events.NotificationHandler)
	Unsubscribe(userID string)
}

// notificationBuffer bounds how many undelivered notifications a slow
// client may hold before new ones are dropped.
const notificationBuffer = 16

// NotificationHandler streams level-up and achievement notifications to
// the owning user over a websocket.
type NotificationHandler struct {
	stream   NotificationStream
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewNotificationHandler creates a new notification stream handler
func NewNotificationHandler(stream NotificationStream, logger *slog.Logger) *NotificationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHandler{
		stream: stream,
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

// Stream upgrades the connection and forwards the caller's notifications
// until the client disconnects
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}
	userID := user.ID.String()

	ch := make(chan *events.Notification, notificationBuffer)
	h.stream.Subscribe(userID, func(n *events.Notification) {
		select {
		case ch <- n:
		default:
			// Client is not keeping up; drop rather than block the consumer.
		}
	})

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.stream.Unsubscribe(userID)
		h.logger.Warn("websocket upgrade failed", "user_id", userID, "error", err)
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
		h.stream.Unsubscribe(userID)
		conn.Close()
	}()

	for {
		select {
		case n := <-ch:
			conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteJSON(n); err != nil {
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
