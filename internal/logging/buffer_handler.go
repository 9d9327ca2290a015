package logging

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"
)

// LogCallback observes every entry as it is captured. It exists so the
// server can forward entries to the event bus without an import cycle.
type LogCallback func(entry LogEntry)

// nextSeq numbers entries process-wide, shared by all handler copies.
var nextSeq atomic.Uint64

// BufferHandler is the slog sink behind the logs API. It looks up the
// installed ring buffer and callback per record, so a handler built
// before Initialize starts feeding the buffer the moment one exists.
type BufferHandler struct {
	level  slog.Leveler
	bound  []slog.Attr // accumulated via WithAttrs
	groups []string
}

// NewBufferHandler returns a capture sink for records at or above level.
func NewBufferHandler(level slog.Leveler) *BufferHandler {
	return &BufferHandler{level: level}
}

// Enabled implements slog.Handler.
func (h *BufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *BufferHandler) Handle(_ context.Context, r slog.Record) error {
	sink, notify := activeBuffer()
	if sink == nil && notify == nil {
		return nil
	}

	module, attrs := h.collect(r)
	entry := LogEntry{
		Seq:        nextSeq.Add(1),
		Timestamp:  r.Time,
		Level:      levelName(r.Level),
		Module:     module,
		Message:    r.Message,
		Attributes: attrs,
	}

	if sink != nil {
		sink.Write(entry)
	}
	if notify != nil {
		notify(entry)
	}
	return nil
}

// collect folds the handler's bound attributes and the record's own
// into one flat map, pulling out the module attribute on the way.
func (h *BufferHandler) collect(r slog.Record) (string, map[string]any) {
	module := "app"
	attrs := make(map[string]any)

	fold := func(a slog.Attr) {
		if a.Key == "module" {
			module = a.Value.String()
			return
		}
		foldAttr(attrs, h.groups, a)
	}
	for _, a := range h.bound {
		fold(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		fold(a)
		return true
	})
	return module, attrs
}

// foldAttr writes a into dst, joining group names into the key with
// dots. Times and durations become strings; errors keep their message.
func foldAttr(dst map[string]any, groups []string, a slog.Attr) {
	if a.Value.Kind() == slog.KindGroup {
		nested := append(slices.Clone(groups), a.Key)
		for _, ga := range a.Value.Group() {
			foldAttr(dst, nested, ga)
		}
		return
	}

	key := a.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}

	switch a.Value.Kind() {
	case slog.KindTime:
		dst[key] = a.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		dst[key] = a.Value.Duration().String()
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			dst[key] = err.Error()
			return
		}
		dst[key] = a.Value.Any()
	default:
		dst[key] = a.Value.Any()
	}
}

// WithAttrs implements slog.Handler.
func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &BufferHandler{
		level:  h.level,
		bound:  append(slices.Clone(h.bound), attrs...),
		groups: h.groups,
	}
}

// WithGroup implements slog.Handler.
func (h *BufferHandler) WithGroup(name string) slog.Handler {
	return &BufferHandler{
		level:  h.level,
		bound:  h.bound,
		groups: append(slices.Clone(h.groups), name),
	}
}

// levelName renders a slog level the way the API spells levels.
func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	}
	return "debug"
}
