package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/idfs-labs/starguide/internal/domain"
)

func TestDefaultConsumerConfig(t *testing.T) {
	cfg := DefaultConsumerConfig()

	if cfg.Workers != 3 {
		t.Errorf("Default Workers = %d; want 3", cfg.Workers)
	}
	if cfg.Prefetch != 1 {
		t.Errorf("Default Prefetch = %d; want 1", cfg.Prefetch)
	}
}

func TestNewConsumer_AppliesDefaults(t *testing.T) {
	c := NewConsumer(nil, nil, ConsumerConfig{})

	if c.workers != 3 {
		t.Errorf("workers = %d; want 3", c.workers)
	}
	if c.prefetch != 1 {
		t.Errorf("prefetch = %d; want 1", c.prefetch)
	}
}

func TestNewConsumer_PreservesCustomConfig(t *testing.T) {
	c := NewConsumer(nil, nil, ConsumerConfig{Workers: 10, Prefetch: 5})

	if c.workers != 10 {
		t.Errorf("workers = %d; want 10", c.workers)
	}
	if c.prefetch != 5 {
		t.Errorf("prefetch = %d; want 5", c.prefetch)
	}
}

func TestNotificationConsumer_SubscribeUnsubscribe(t *testing.T) {
	nc := &NotificationConsumer{
		handlers: make(map[string]NotificationHandler),
	}

	userID := uuid.New().String()

	nc.Subscribe(userID, func(n *Notification) {})

	nc.handlersMu.RLock()
	_, exists := nc.handlers[userID]
	nc.handlersMu.RUnlock()

	if !exists {
		t.Error("Handler should be registered after Subscribe")
	}

	nc.Unsubscribe(userID)

	nc.handlersMu.RLock()
	_, exists = nc.handlers[userID]
	nc.handlersMu.RUnlock()

	if exists {
		t.Error("Handler should be removed after Unsubscribe")
	}
}

func TestNotificationConsumer_Subscribe_ConcurrentSafe(t *testing.T) {
	nc := &NotificationConsumer{
		handlers: make(map[string]NotificationHandler),
	}

	var wg sync.WaitGroup
	numGoroutines := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			userID := uuid.New().String()

			nc.Subscribe(userID, func(n *Notification) {})

			// Small delay to increase chance of concurrent access
			time.Sleep(time.Microsecond)

			nc.Unsubscribe(userID)
		}()
	}

	wg.Wait()

	nc.handlersMu.RLock()
	count := len(nc.handlers)
	nc.handlersMu.RUnlock()

	if count != 0 {
		t.Errorf("All handlers should be unsubscribed, got %d remaining", count)
	}
}

func TestNotificationConsumer_Subscribe_OverwritesPrevious(t *testing.T) {
	nc := &NotificationConsumer{
		handlers: make(map[string]NotificationHandler),
	}

	userID := uuid.New().String()
	called1 := false
	called2 := false

	nc.Subscribe(userID, func(n *Notification) {
		called1 = true
	})
	nc.Subscribe(userID, func(n *Notification) {
		called2 = true
	})

	nc.handlersMu.RLock()
	handler, ok := nc.handlers[userID]
	nc.handlersMu.RUnlock()

	if !ok {
		t.Fatal("Handler should exist")
	}

	handler(&Notification{})

	if called1 {
		t.Error("First handler should NOT have been called (was overwritten)")
	}
	if !called2 {
		t.Error("Second handler should have been called")
	}
}

func TestNotificationConsumer_Unsubscribe_NonExistent(t *testing.T) {
	nc := &NotificationConsumer{
		handlers: make(map[string]NotificationHandler),
	}

	// Unsubscribing a non-existent handler should not panic
	nc.Unsubscribe("non-existent-user-id")
}

func TestNotificationConsumer_Stop_NilCancelFunc(t *testing.T) {
	nc := &NotificationConsumer{
		handlers: make(map[string]NotificationHandler),
	}

	// Stop with nil cancelFunc should not panic
	nc.Stop()
}

func TestConsumer_Stop_NilCancelFunc(t *testing.T) {
	c := &Consumer{}

	// Stop with nil cancelFunc should not panic
	c.Stop()
}

func TestEventHandler_Type(t *testing.T) {
	var handled *domain.Event
	var handler EventHandler = func(ctx context.Context, event *domain.Event) error {
		handled = event
		return nil
	}

	event := NewEvent(uuid.New(), domain.EventQuestionAnswered, "astronomy", map[string]any{
		"correct": true,
	})

	if err := handler(context.Background(), event); err != nil {
		t.Errorf("Handler returned unexpected error: %v", err)
	}
	if handled == nil || handled.ID != event.ID {
		t.Errorf("handled event = %v; want %v", handled, event)
	}
}

func TestNewEvent(t *testing.T) {
	userID := uuid.New()
	event := NewEvent(userID, domain.EventAIInteraction, "physics", map[string]any{"model": "gpt-4"})

	if event.ID == uuid.Nil {
		t.Error("expected event ID to be generated")
	}
	if event.UserID != userID {
		t.Errorf("UserID = %s; want %s", event.UserID, userID)
	}
	if event.Type != domain.EventAIInteraction {
		t.Errorf("Type = %s; want %s", event.Type, domain.EventAIInteraction)
	}
	if event.CreatedAt.IsZero() {
		t.Error("expected created at to be set")
	}
}
