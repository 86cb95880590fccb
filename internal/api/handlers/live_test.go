package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/idfs-labs/starguide/internal/arena"
	"github.com/idfs-labs/starguide/internal/domain"
)

func TestLiveStream_DeliversRoomEvents(t *testing.T) {
	watcher := &domain.User{ID: uuid.New(), Name: "Astra"}
	joiner := &domain.User{ID: uuid.New(), Name: "Nova"}
	users := map[uuid.UUID]*domain.User{watcher.ID: watcher, joiner.ID: joiner}

	coordinator := arena.NewCoordinator(stubSource{}, nil)
	summary, err := coordinator.CreateRoom(context.Background(), arena.CreateConfig{
		Subject:       "astronomy",
		QuestionCount: 1,
	}, watcher.ID)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := coordinator.JoinRoom(summary.RoomCode, watcher.ID, watcher.Name); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}

	live := NewLiveHandler(coordinator, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/quiz/rooms/{room_id}/live", func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.Header.Get("X-Test-User"))
		if err == nil {
			if user, ok := users[id]; ok {
				r = r.WithContext(context.WithValue(r.Context(), ContextKeyUser, user))
			}
		}
		live.Stream(w, r)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	url := "ws" + server.URL[len("http"):] + "/api/v1/quiz/rooms/" + summary.RoomID.String() + "/live"
	header := http.Header{"X-Test-User": []string{watcher.ID.String()}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Another participant joining must show up on the stream.
	if _, err := coordinator.JoinRoom(summary.RoomCode, joiner.ID, joiner.Name); err != nil {
		t.Fatalf("second JoinRoom: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var event arena.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Type != arena.EventParticipantJoined {
		t.Fatalf("event type = %q, want %q", event.Type, arena.EventParticipantJoined)
	}
	if event.Payload["name"] != joiner.Name {
		t.Errorf("event payload name = %v, want %s", event.Payload["name"], joiner.Name)
	}
}

func TestLiveStream_RejectsNonParticipants(t *testing.T) {
	outsider := &domain.User{ID: uuid.New(), Name: "Stray"}

	coordinator := arena.NewCoordinator(stubSource{}, nil)
	summary, err := coordinator.CreateRoom(context.Background(), arena.CreateConfig{
		Subject:       "astronomy",
		QuestionCount: 1,
	}, uuid.New())
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	live := NewLiveHandler(coordinator, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/quiz/rooms/"+summary.RoomID.String()+"/live", nil)
	req.SetPathValue("room_id", summary.RoomID.String())
	req = req.WithContext(context.WithValue(req.Context(), ContextKeyUser, outsider))
	rec := httptest.NewRecorder()

	live.Stream(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
