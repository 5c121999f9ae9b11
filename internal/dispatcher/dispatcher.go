package dispatcher

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/citadel-raid/raidnav/internal/dispatcher"

// Event is an orchestration command addressed to the raid.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Queued makes Dispatch park the event in a queue of the given size instead
// of running it. Parked events run on the goroutine calling RunQueued, which
// keeps handlers on the tick thread when events arrive from elsewhere.
func Queued(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a queued handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type queued struct {
	events  chan Event
	handler HandlerFunc
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter

	mu     sync.RWMutex
	queues map[string]*queued
}

// New creates a new Dispatcher with the given logger. Instruments come from
// the global meter provider, a no-op until one is installed.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		queues:   make(map[string]*queued),
		logger:   logger,
	}

	m := otel.Meter(meterName)

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Commands parked until the next tick"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for cmd, q := range d.queues {
				o.ObserveInt64(d.queueSize, int64(len(q.events)),
					metric.WithAttributes(attribute.String("command", cmd)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.commands.processed",
		metric.WithDescription("Total commands processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.commands.dropped",
		metric.WithDescription("Total commands dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given command with optional configuration.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := d.counted(command, h)

	if cfg.logged {
		handler = d.withLogging(command, handler)
	}

	if cfg.bufferSize > 0 {
		handler = d.withQueue(command, cfg.bufferSize, cfg.blocking, handler)
	}

	d.handlers[command] = handler
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", e.Command)
	}
	return h(e)
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

// Commands lists the registered command names in sorted order.
func (d *Dispatcher) Commands() []string {
	out := make([]string, 0, len(d.handlers))
	for cmd := range d.handlers {
		out = append(out, cmd)
	}
	sort.Strings(out)
	return out
}

// RunQueued runs every parked event on the calling goroutine, in arrival
// order per command and command names in sorted order. Handler errors are
// logged. It returns the number of events run.
func (d *Dispatcher) RunQueued() int {
	d.mu.RLock()
	names := make([]string, 0, len(d.queues))
	for cmd := range d.queues {
		names = append(names, cmd)
	}
	d.mu.RUnlock()
	sort.Strings(names)

	ran := 0
	for _, cmd := range names {
		d.mu.RLock()
		q := d.queues[cmd]
		d.mu.RUnlock()

		for pending := len(q.events); pending > 0; pending-- {
			e := <-q.events
			if _, err := q.handler(e); err != nil {
				d.logger.Error("queued command failed", "command", cmd, "error", err)
			}
			ran++
		}
	}
	return ran
}

func (d *Dispatcher) counted(command string, h HandlerFunc) HandlerFunc {
	cmdAttr := attribute.String("command", command)
	return func(e Event) (any, error) {
		result, err := h(e)
		d.processed.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
		return result, err
	}
}

func (d *Dispatcher) withQueue(command string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	q := &queued{events: make(chan Event, size), handler: h}

	d.mu.Lock()
	d.queues[command] = q
	d.mu.Unlock()

	cmdAttr := attribute.String("command", command)

	if blocking {
		return func(e Event) (any, error) {
			q.events <- e
			return "queued", nil
		}
	}

	return func(e Event) (any, error) {
		select {
		case q.events <- e:
			return "queued", nil
		default:
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
			return nil, fmt.Errorf("queue full: %s", command)
		}
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling command", "command", command, "args", e.Args)

		result, err := h(e)

		if err != nil {
			d.logger.Error("command failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("command complete", "command", command, "duration", time.Since(start))
		}

		return result, err
	}
}
