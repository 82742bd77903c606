package logging

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler fans one slog record out to several sinks, typically
// the operator console, the session log file, and the OTel bridge.
// Nil sinks are skipped so callers can pass optional handlers directly.
type MultiHandler struct {
	sinks []slog.Handler
}

// NewMultiHandler creates a handler that forwards to every non-nil sink.
func NewMultiHandler(sinks ...slog.Handler) *MultiHandler {
	m := &MultiHandler{sinks: make([]slog.Handler, 0, len(sinks))}
	for _, h := range sinks {
		if h != nil {
			m.sinks = append(m.sinks, h)
		}
	}
	return m
}

// Enabled reports whether at least one sink wants the level.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.sinks {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle forwards the record to every sink that accepts its level.
// A failing sink does not stop the others; failures are joined.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.sinks {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs applies the attributes to every sink.
func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return m
	}
	sinks := make([]slog.Handler, len(m.sinks))
	for i, h := range m.sinks {
		sinks[i] = h.WithAttrs(attrs)
	}
	return &MultiHandler{sinks: sinks}
}

// WithGroup applies the group to every sink.
func (m *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return m
	}
	sinks := make([]slog.Handler, len(m.sinks))
	for i, h := range m.sinks {
		sinks[i] = h.WithGroup(name)
	}
	return &MultiHandler{sinks: sinks}
}
