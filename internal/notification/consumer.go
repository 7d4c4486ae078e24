package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Notifier delivers one decoded notification.
type Notifier interface {
	Notify(ctx context.Context, m Message) error
}

// LogNotifier writes a notification line per message.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(_ context.Context, m Message) error {
	n.Logger.Info("notification",
		"recipient", m.Recipient(),
		"event_type", m.Type,
		"event_id", m.ID,
		"request_id", m.str("request_id"),
		"subject", m.Subject())
	return nil
}

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
	prefetch       = 50
)

// Consumer reads the lifecycle queue and hands each message to a Notifier.
// It reconnects with exponential backoff until the context ends.
type Consumer struct {
	url      string
	queue    string
	notifier Notifier
	workers  int
	logger   *slog.Logger
	dial     func(url string) (*amqp.Connection, error)
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewConsumer(url, queue string, notifier Notifier, logger *slog.Logger) *Consumer {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Consumer{
		url:      url,
		queue:    queue,
		notifier: notifier,
		workers:  defaultWorkers,
		logger:   logger,
		dial:     amqp.Dial,
		sleep:    sleepCtx,
	}
}

// WithWorkers sets how many deliveries are handled concurrently.
func (c *Consumer) WithWorkers(n int) *Consumer {
	if n > 0 {
		c.workers = n
	}
	return c
}

func (c *Consumer) Run(ctx context.Context) error {
	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, err := c.dial(c.url)
		if err != nil {
			c.logger.Warn("failed to dial broker", "error", err, "retry_in", backoff)
			if err := c.sleep(ctx, backoff); err != nil {
				return nil
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = initialBackoff

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warn("consume loop ended, reconnecting", "error", err)
		if err := c.sleep(ctx, 2*time.Second); err != nil {
			return nil
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(prefetch, 0, false); err != nil {
		c.logger.Warn("failed to set qos", "error", err)
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	c.logger.Info("consuming notifications", "queue", c.queue, "workers", c.workers)

	return c.drain(ctx, deliveries)
}

// drain feeds deliveries to the worker pool until ctx ends or the channel
// closes, then waits for in-flight deliveries.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	poolCtx, cancel := context.WithCancel(ctx)
	pool := newDispatcher(c.workers, c.logger)
	pool.start(poolCtx, c.process)
	defer func() {
		cancel()
		pool.wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if !pool.submit(poolCtx, d) {
				return ctx.Err()
			}
		}
	}
}

// process acks handled messages and drops malformed or failing ones without
// requeueing them.
func (c *Consumer) process(ctx context.Context, d amqp.Delivery) {
	m, err := Decode(d.Body)
	if err == nil {
		err = c.notifier.Notify(ctx, m)
	}
	if err != nil {
		c.logger.Error("failed to handle notification", "message_id", d.MessageId, "error", err)
		if nerr := d.Nack(false, false); nerr != nil {
			c.logger.Warn("failed to nack", "error", nerr)
		}
		return
	}
	if aerr := d.Ack(false); aerr != nil {
		c.logger.Warn("failed to ack", "error", aerr)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
