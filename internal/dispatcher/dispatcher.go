package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/OCAP2/tacview/internal/queue"
	"github.com/OCAP2/tacview/internal/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DefaultInboxSize bounds the number of notifications waiting for the next tick.
const DefaultInboxSize = 4096

// HandlerFunc processes one connection notification.
type HandlerFunc func(transport.Notification) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	logged bool
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher is the inbox between transport goroutines and the tick loop.
// Post and Notify may be called from any goroutine; Drain runs handlers on
// the caller's goroutine.
type Dispatcher struct {
	handlers map[transport.Kind]HandlerFunc
	inbox    *queue.Queue[transport.Notification]
	logger   Logger

	// OTEL metrics
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
}

// New creates a new Dispatcher with an inbox of DefaultInboxSize.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	return NewWithSize(logger, DefaultInboxSize)
}

// NewWithSize creates a Dispatcher whose inbox holds at most size notifications.
func NewWithSize(logger Logger, size int) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[transport.Kind]HandlerFunc),
		inbox:    queue.New[transport.Notification](size),
		logger:   logger,
	}

	// Get meter from global OTel provider (returns no-op if not configured)
	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.inbox.size",
		metric.WithDescription("Current number of notifications waiting for the next tick"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating inbox size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(d.queueSize, int64(d.inbox.Len()))
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering inbox callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.notifications.processed",
		metric.WithDescription("Total notifications processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.notifications.dropped",
		metric.WithDescription("Total notifications dropped due to full inbox"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given notification kind with optional
// configuration. Register is not safe to call concurrently with Drain.
func (d *Dispatcher) Register(kind transport.Kind, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.logged {
		handler = d.withLogging(kind, handler)
	}

	d.handlers[kind] = handler
}

// HasHandler returns true if a handler is registered for the kind.
func (d *Dispatcher) HasHandler(kind transport.Kind) bool {
	_, ok := d.handlers[kind]
	return ok
}

// Post queues n for the next Drain.
func (d *Dispatcher) Post(n transport.Notification) error {
	if n.At.IsZero() {
		n.At = time.Now()
	}
	if !d.inbox.Push(n) {
		d.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", string(n.Kind))))
		return fmt.Errorf("inbox full: %s %s", n.Kind, n.Conn)
	}
	return nil
}

// Notify implements transport.Notifier. A full inbox is logged.
func (d *Dispatcher) Notify(n transport.Notification) {
	if err := d.Post(n); err != nil {
		d.logger.Error("notification dropped", "kind", n.Kind, "conn", n.Conn.String(), "error", err)
	}
}

// Pending returns the number of queued notifications.
func (d *Dispatcher) Pending() int {
	return d.inbox.Len()
}

// Dropped returns how many notifications a full inbox has rejected.
func (d *Dispatcher) Dropped() uint64 {
	return d.inbox.Dropped()
}

// Drain runs the registered handler for every queued notification in
// arrival order and returns how many were processed. Handler errors are
// logged and do not stop the drain.
func (d *Dispatcher) Drain() int {
	items := d.inbox.Drain()
	for _, n := range items {
		kindAttr := attribute.String("kind", string(n.Kind))
		h, ok := d.handlers[n.Kind]
		if !ok {
			d.logger.Debug("no handler for notification", "kind", n.Kind, "conn", n.Conn.String())
			continue
		}
		if err := h(n); err != nil {
			d.logger.Error("notification handler failed", "kind", n.Kind, "conn", n.Conn.String(), "error", err)
		}
		d.processed.Add(context.Background(), 1, metric.WithAttributes(kindAttr))
	}
	return len(items)
}

func (d *Dispatcher) withLogging(kind transport.Kind, h HandlerFunc) HandlerFunc {
	return func(n transport.Notification) error {
		start := time.Now()
		d.logger.Debug("handling notification", "kind", kind, "conn", n.Conn.String(), "peer", n.Peer)

		err := h(n)

		if err != nil {
			d.logger.Error("notification failed", "kind", kind, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("notification complete", "kind", kind, "queued", time.Since(n.At))
		}

		return err
	}
}
