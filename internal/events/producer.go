package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/idfs-labs/starguide/internal/domain"
)

// Publisher is the producer side of the event pipeline. Services depend
// on this interface so tests can capture published events.
type Publisher interface {
	PublishEvent(ctx context.Context, event *domain.Event) error
	PublishNotification(ctx context.Context, n *Notification) error
}

// Producer publishes analytics events and notifications to the queue
type Producer struct {
	conn *Connection
}

// NewProducer creates a new queue producer
func NewProducer(conn *Connection) *Producer {
	return &Producer{conn: conn}
}

// PublishEvent publishes an analytics event to the queue
func (p *Producer) PublishEvent(ctx context.Context, event *domain.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	if err := p.conn.PublishJSON(ctx, EventQueueName, event); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	slog.Info("published event",
		"event_id", event.ID,
		"user_id", event.UserID,
		"type", event.Type,
	)

	return nil
}

// PublishNotification publishes a user notification to the queue
func (p *Producer) PublishNotification(ctx context.Context, n *Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	if err := p.conn.PublishJSON(ctx, NotificationQueueName, n); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	slog.Info("published notification",
		"user_id", n.UserID,
		"type", n.Type,
	)

	return nil
}

// NewEvent builds an analytics event with the given parameters
func NewEvent(userID uuid.UUID, eventType domain.EventType, subject string, data map[string]any) *domain.Event {
	return &domain.Event{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      eventType,
		Subject:   subject,
		Data:      data,
		CreatedAt: time.Now(),
	}
}
