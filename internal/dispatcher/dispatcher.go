// Package dispatcher routes tokenized operator console commands to
// their registered handlers. Dispatch is synchronous: the operator is
// waiting on the result, so there is no queueing between the console
// and the handler.
package dispatcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Event is one operator command line, already tokenized by the console.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result for the console.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	usage  string
	logged bool
}

// Usage attaches an argument synopsis shown by the console help listing.
func Usage(u string) Option {
	return func(c *config) {
		c.usage = u
	}
}

// Logged adds debug logging around the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type entry struct {
	fn    HandlerFunc
	usage string
}

// CommandInfo describes one registered command for help output.
type CommandInfo struct {
	Name  string
	Usage string
}

// Dispatcher routes operator commands to registered handlers.
// Command names are matched case-insensitively.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]entry
	logger   Logger

	processed metric.Int64Counter
	failed    metric.Int64Counter
	unknown   metric.Int64Counter
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]entry),
		logger:   logger,
	}

	m := meter()

	var err error

	d.processed, err = m.Int64Counter(
		"dispatcher.commands.processed",
		metric.WithDescription("Operator commands handled successfully"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.commands.failed",
		metric.WithDescription("Operator commands whose handler returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	d.unknown, err = m.Int64Counter(
		"dispatcher.commands.unknown",
		metric.WithDescription("Operator commands with no registered handler"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating unknown counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given command with optional configuration.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h
	if cfg.logged {
		handler = d.withLogging(command, handler)
	}

	d.mu.Lock()
	d.handlers[strings.ToLower(command)] = entry{fn: handler, usage: cfg.usage}
	d.mu.Unlock()
}

// Dispatch routes an event to its registered handler and returns the
// handler's result.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	name := strings.ToLower(e.Command)

	d.mu.RLock()
	ent, ok := d.handlers[name]
	d.mu.RUnlock()

	cmdAttr := metric.WithAttributes(attribute.String("command", name))
	if !ok {
		d.unknown.Add(context.Background(), 1, cmdAttr)
		return nil, fmt.Errorf("unknown command: %s", e.Command)
	}

	result, err := ent.fn(e)
	if err != nil {
		d.failed.Add(context.Background(), 1, cmdAttr)
		return nil, err
	}
	d.processed.Add(context.Background(), 1, cmdAttr)
	return result, nil
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[strings.ToLower(command)]
	return ok
}

// Commands lists every registered command sorted by name.
func (d *Dispatcher) Commands() []CommandInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	infos := make([]CommandInfo, 0, len(d.handlers))
	for name, ent := range d.handlers {
		infos = append(infos, CommandInfo{Name: name, Usage: ent.usage})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling command", "command", command, "args", len(e.Args))

		result, err := h(e)

		if err != nil {
			d.logger.Error("command failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("command complete", "command", command, "duration", time.Since(start))
		}

		return result, err
	}
}
