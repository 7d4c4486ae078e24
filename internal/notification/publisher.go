package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/leave-management/internal/core/events"
	amqp "github.com/rabbitmq/amqp091-go"
)

const DefaultQueue = "leave.events"

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher forwards bus events to a durable RabbitMQ queue through the
// default exchange.
type Publisher struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     Channel
	queue  string
	logger *slog.Logger
}

// Dial opens a connection and channel and declares the queue.
func Dial(url, queue string, logger *slog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p, err := NewPublisher(ch, queue, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func NewPublisher(ch Channel, queue string, logger *slog.Logger) (*Publisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &Publisher{ch: ch, queue: queue, logger: logger}, nil
}

// Handle matches events.Handler so the publisher can subscribe to the bus.
func (p *Publisher) Handle(ctx context.Context, e events.Event) error {
	body, err := json.Marshal(NewMessage(e))
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.EventID(),
		Type:         e.EventType(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", e.EventType(), err)
	}
	p.logger.Debug("notification published", "event_type", e.EventType(), "event_id", e.EventID(), "queue", p.queue)
	return nil
}

// Subscribe registers the publisher for every lifecycle event type.
func (p *Publisher) Subscribe(bus *events.EventBus) {
	bus.SubscribeAll(events.LeaveRequestEventTypes, p.Handle)
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
