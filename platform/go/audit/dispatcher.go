package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	defaultBuffer       = 256
	defaultWriteTimeout = 5 * time.Second
)

// Counters are optional instruments updated by the dispatcher.
type Counters struct {
	Written prometheus.Counter
	Dropped prometheus.Counter
	Failed  prometheus.Counter
}

// DispatcherConfig tunes the background writer.
type DispatcherConfig struct {
	Buffer       int
	WriteTimeout time.Duration
	Logger       *zap.Logger
	Counters     Counters
}

// Dispatcher queues entries in memory and persists them from a single goroutine,
// keeping audit latency and availability off the request path.
type Dispatcher struct {
	sink         Sink
	logger       *zap.Logger
	writeTimeout time.Duration
	counters     Counters

	mu     sync.RWMutex
	closed bool
	queue  chan Entry
	done   chan struct{}
}

// NewDispatcher starts the writer goroutine. Call Close to drain it.
func NewDispatcher(sink Sink, cfg DispatcherConfig) *Dispatcher {
	if sink == nil {
		panic("audit sink is required")
	}

	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{
		sink:         sink,
		logger:       logger.With(zap.String("subsystem", "audit")),
		writeTimeout: timeout,
		counters:     cfg.Counters,
		queue:        make(chan Entry, buffer),
		done:         make(chan struct{}),
	}

	go d.run()

	return d
}

// Record enqueues entry without blocking. Invalid entries and entries arriving while the
// queue is full or closed are dropped and logged.
func (d *Dispatcher) Record(_ context.Context, entry Entry) {
	if entry.TenantID == uuid.Nil || entry.Action == "" {
		d.drop(entry, "tenant and action are required")
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(entry, "dispatcher closed")
		return
	}

	select {
	case d.queue <- entry:
	default:
		d.drop(entry, "queue full")
	}
}

// Close stops accepting entries and waits for queued ones to be written or for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("audit queue not drained"), ctx.Err())
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for entry := range d.queue {
		d.write(entry)
	}
}

func (d *Dispatcher) write(entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), d.writeTimeout)
	defer cancel()

	if err := d.sink.Insert(ctx, entry); err != nil {
		inc(d.counters.Failed)
		d.logger.Error("audit write failed",
			zap.String("action", entry.Action),
			zap.String("tenant_id", entry.TenantID.String()),
			zap.String("entity_id", entry.EntityID.String()),
			zap.Error(err),
		)
		return
	}

	inc(d.counters.Written)
}

func (d *Dispatcher) drop(entry Entry, reason string) {
	inc(d.counters.Dropped)
	d.logger.Warn("audit entry dropped",
		zap.String("reason", reason),
		zap.String("action", entry.Action),
		zap.String("entity_id", entry.EntityID.String()),
	)
}

func inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}
