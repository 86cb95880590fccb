package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/idfs-labs/starguide/internal/domain"
	"github.com/idfs-labs/starguide/internal/events"
)

type stubStream struct {
	mu       sync.Mutex
	handlers map[string]events.NotificationHandler
}

func newStubStream() *stubStream {
	return &stubStream{handlers: make(map[string]events.NotificationHandler)}
}

func (s *stubStream) Subscribe(userID string, handler events.NotificationHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[userID] = handler
}

func (s *stubStream) Unsubscribe(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, userID)
}

func (s *stubStream) deliver(n *events.Notification) bool {
	s.mu.Lock()
	handler, ok := s.handlers[n.UserID]
	s.mu.Unlock()
	if ok {
		handler(n)
	}
	return ok
}

func (s *stubStream) subscribed(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.handlers[userID]
	return ok
}

func TestNotificationStream_DeliversToOwner(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Name: "Astra"}
	stream := newStubStream()
	handler := NewNotificationHandler(stream, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/notifications/stream", func(w http.ResponseWriter, r *http.Request) {
		handler.Stream(w, r.WithContext(context.WithValue(r.Context(), ContextKeyUser, user)))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	url := "ws" + server.URL[len("http"):] + "/api/v1/notifications/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The subscription registers during the upgrade; wait for it.
	deadline := time.Now().Add(2 * time.Second)
	for !stream.subscribed(user.ID.String()) {
		if time.Now().After(deadline) {
			t.Fatal("handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	sent := &events.Notification{
		UserID:  user.ID.String(),
		Type:    "level_up",
		Title:   "Level up!",
		Message: "You reached level 2",
	}
	if !stream.deliver(sent) {
		t.Fatal("deliver found no subscription")
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got events.Notification
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read notification: %v", err)
	}
	if got.Type != sent.Type || got.Message != sent.Message {
		t.Errorf("received %+v, want %+v", got, sent)
	}

	// Disconnecting must drop the subscription so the consumer stops
	// fanning out to a dead socket.
	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for stream.subscribed(user.ID.String()) {
		if time.Now().After(deadline) {
			t.Fatal("handler never unsubscribed after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNotificationStream_RequiresAuth(t *testing.T) {
	handler := NewNotificationHandler(newStubStream(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/stream", nil)
	rec := httptest.NewRecorder()

	handler.Stream(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
