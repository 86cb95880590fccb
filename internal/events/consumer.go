package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/idfs-labs/starguide/internal/domain"
)

// EventHandler persists or aggregates an analytics event
type EventHandler func(ctx context.Context, event *domain.Event) error

// Consumer consumes analytics events from the queue
type Consumer struct {
	conn       *Connection
	handler    EventHandler
	workers    int
	prefetch   int
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Workers  int // Number of concurrent workers
	Prefetch int // Prefetch count per worker
}

// DefaultConsumerConfig returns sensible defaults
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Workers:  3,
		Prefetch: 1, // Process one at a time per worker for fairness
	}
}

// NewConsumer creates a new queue consumer
func NewConsumer(conn *Connection, handler EventHandler, cfg ConsumerConfig) *Consumer {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}

	return &Consumer{
		conn:     conn,
		handler:  handler,
		workers:  cfg.Workers,
		prefetch: cfg.Prefetch,
	}
}

// Start begins consuming messages
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	ch := c.conn.Channel()

	// Set QoS (prefetch)
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	// Start consuming
	msgs, err := ch.Consume(
		EventQueueName,
		"",    // consumer tag (auto-generated)
		false, // auto-ack (manual ack for reliability)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	slog.Info("starting event consumer", "workers", c.workers, "prefetch", c.prefetch)

	// Start worker goroutines
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, msgs)
	}

	return nil
}

// worker processes messages from the queue
func (c *Consumer) worker(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	slog.Info("worker started", "worker_id", id)

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopping", "worker_id", id)
			return

		case msg, ok := <-msgs:
			if !ok {
				slog.Info("message channel closed", "worker_id", id)
				return
			}

			c.processMessage(ctx, id, msg)
		}
	}
}

// processMessage handles a single message
func (c *Consumer) processMessage(ctx context.Context, workerID int, msg amqp.Delivery) {
	start := time.Now()

	var event domain.Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		slog.Error("failed to unmarshal event",
			"worker_id", workerID,
			"error", err,
		)
		// Reject without requeue for malformed messages
		_ = msg.Reject(false)
		return
	}

	handlerCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := c.handler(handlerCtx, &event); err != nil {
		slog.Error("event handling failed",
			"worker_id", workerID,
			"event_id", event.ID,
			"type", event.Type,
			"error", err,
			"duration", time.Since(start),
		)
		// Requeue once; redelivered messages that fail again are dropped
		_ = msg.Reject(!msg.Redelivered)
		return
	}

	slog.Debug("event handled",
		"worker_id", workerID,
		"event_id", event.ID,
		"type", event.Type,
		"duration", time.Since(start),
	)

	if err := msg.Ack(false); err != nil {
		slog.Error("failed to ack message",
			"worker_id", workerID,
			"event_id", event.ID,
			"error", err,
		)
	}
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
	slog.Info("consumer stopped")
}

// NotificationConsumer consumes notifications (for the API server to push
// to connected clients)
type NotificationConsumer struct {
	conn       *Connection
	handlers   map[string]NotificationHandler
	handlersMu sync.RWMutex
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NotificationHandler handles notifications for a specific user
type NotificationHandler func(n *Notification)

// NewNotificationConsumer creates a notification consumer
func NewNotificationConsumer(conn *Connection) *NotificationConsumer {
	return &NotificationConsumer{
		conn:     conn,
		handlers: make(map[string]NotificationHandler),
	}
}

// Subscribe registers a handler for a specific user's notifications
func (nc *NotificationConsumer) Subscribe(userID string, handler NotificationHandler) {
	nc.handlersMu.Lock()
	defer nc.handlersMu.Unlock()
	nc.handlers[userID] = handler
}

// Unsubscribe removes a handler
func (nc *NotificationConsumer) Unsubscribe(userID string) {
	nc.handlersMu.Lock()
	defer nc.handlersMu.Unlock()
	delete(nc.handlers, userID)
}

// Start begins consuming notifications
func (nc *NotificationConsumer) Start(ctx context.Context) error {
	ctx, nc.cancelFunc = context.WithCancel(ctx)

	ch := nc.conn.Channel()

	msgs, err := ch.Consume(
		NotificationQueueName,
		"",    // consumer tag
		true,  // auto-ack (notifications are fire-and-forget)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start notification consumer: %w", err)
	}

	nc.wg.Add(1)
	go nc.consume(ctx, msgs)

	return nil
}

func (nc *NotificationConsumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	defer nc.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			var n Notification
			if err := json.Unmarshal(msg.Body, &n); err != nil {
				slog.Error("failed to unmarshal notification", "error", err)
				continue
			}

			nc.handlersMu.RLock()
			handler, ok := nc.handlers[n.UserID]
			nc.handlersMu.RUnlock()

			if ok {
				handler(&n)
			}
		}
	}
}

// Stop stops the notification consumer
func (nc *NotificationConsumer) Stop() {
	if nc.cancelFunc != nil {
		nc.cancelFunc()
	}
	nc.wg.Wait()
}
