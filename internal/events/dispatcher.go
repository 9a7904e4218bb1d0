package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrDispatcherClosed = errors.New("dispatcher is closed")

type DispatcherConfig struct {
	QueueSize      int
	MaxAttempts    int
	RetryBackoff   time.Duration
	PublishTimeout time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 100 * time.Millisecond
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 5 * time.Second
	}
	return c
}

// Dispatcher hands events to a sink from a background goroutine so a slow
// broker never holds up a transfer. Events that cannot be queued or
// delivered are logged and dropped.
type Dispatcher struct {
	sink   Notifier
	cfg    DispatcherConfig
	logger *zap.Logger

	queue chan Event
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

var _ Notifier = (*Dispatcher)(nil)

func NewDispatcher(sink Notifier, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	cfg = cfg.withDefaults()
	d := &Dispatcher{
		sink:   sink,
		cfg:    cfg,
		logger: logger.Named("dispatcher"),
		queue:  make(chan Event, cfg.QueueSize),
	}

	d.wg.Add(1)
	go d.run()
	return d
}

// Publish enqueues the event without blocking.
func (d *Dispatcher) Publish(_ context.Context, e Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- e:
		return nil
	default:
		d.logger.Warn("event queue full, dropping event",
			zap.String("transaction_id", e.TransactionID),
			zap.String("event_type", e.EventType),
		)
		return nil
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for e := range d.queue {
		d.deliver(e)
	}
}

func (d *Dispatcher) deliver(e Event) {
	backoff := d.cfg.RetryBackoff
	var err error

	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.PublishTimeout)
		err = d.sink.Publish(ctx, e)
		cancel()
		if err == nil {
			return
		}

		if attempt < d.cfg.MaxAttempts {
			d.logger.Debug("event publish failed, retrying",
				zap.String("transaction_id", e.TransactionID),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			time.Sleep(backoff)
			backoff *= 2
		}
	}

	d.logger.Error("failed to publish event",
		zap.String("transaction_id", e.TransactionID),
		zap.String("event_type", e.EventType),
		zap.Int("attempts", d.cfg.MaxAttempts),
		zap.Error(err),
	)
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	return nil
}
