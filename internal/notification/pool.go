package notification

import (
	"context"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultWorkers = 4

type worker struct {
	id     int
	pool   chan chan amqp.Delivery
	jobs   chan amqp.Delivery
	logger *slog.Logger
}

func newWorker(id int, pool chan chan amqp.Delivery, logger *slog.Logger) *worker {
	return &worker{
		id:     id,
		pool:   pool,
		jobs:   make(chan amqp.Delivery),
		logger: logger,
	}
}

// start registers the worker's job channel with the pool each time it is
// idle, then handles the delivery it is given.
func (w *worker) start(ctx context.Context, wg *sync.WaitGroup, process func(context.Context, amqp.Delivery)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case w.pool <- w.jobs:
			case <-ctx.Done():
				return
			}

			select {
			case d := <-w.jobs:
				w.logger.Debug("worker handling delivery", "worker_id", w.id, "message_id", d.MessageId)
				process(ctx, d)
			case <-ctx.Done():
				w.logger.Debug("worker shutting down", "worker_id", w.id)
				return
			}
		}
	}()
}

// dispatcher hands deliveries to a fixed set of workers.
type dispatcher struct {
	workers int
	pool    chan chan amqp.Delivery
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func newDispatcher(workers int, logger *slog.Logger) *dispatcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &dispatcher{
		workers: workers,
		pool:    make(chan chan amqp.Delivery, workers),
		logger:  logger,
	}
}

func (d *dispatcher) start(ctx context.Context, process func(context.Context, amqp.Delivery)) {
	for i := 0; i < d.workers; i++ {
		newWorker(i, d.pool, d.logger).start(ctx, &d.wg, process)
	}
	d.logger.Debug("notification worker pool started", "workers", d.workers)
}

// submit blocks until an idle worker takes the delivery. It reports false
// when ctx ends first.
func (d *dispatcher) submit(ctx context.Context, delivery amqp.Delivery) bool {
	select {
	case jobs := <-d.pool:
		select {
		case jobs <- delivery:
			return true
		case <-ctx.Done():
			return false
		}
	case <-ctx.Done():
		return false
	}
}

// wait blocks until every worker has returned.
func (d *dispatcher) wait() {
	d.wg.Wait()
}
