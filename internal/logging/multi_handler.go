package logging

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler copies each record to every sink it holds.
type MultiHandler struct {
	sinks []slog.Handler
}

// NewMultiHandler returns a handler fanning out to sinks.
func NewMultiHandler(sinks ...slog.Handler) *MultiHandler {
	return &MultiHandler{sinks: sinks}
}

// Enabled reports whether any sink wants records at this level.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range m.sinks {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers the record to every interested sink. A failing sink
// does not block the rest; their errors come back joined.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, s := range m.sinks {
		if !s.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs implements slog.Handler.
func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(m.sinks))
	for i, s := range m.sinks {
		next[i] = s.WithAttrs(attrs)
	}
	return &MultiHandler{sinks: next}
}

// WithGroup implements slog.Handler.
func (m *MultiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(m.sinks))
	for i, s := range m.sinks {
		next[i] = s.WithGroup(name)
	}
	return &MultiHandler{sinks: next}
}
