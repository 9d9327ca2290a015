package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// historySize is the capacity of the ring buffer behind the logs API.
const historySize = 1000

// Config selects the global level, the stdout format, and any
// per-module level overrides.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

// registry holds every module logger handed out so far together with
// the LevelVar that lets Initialize retune it later. One lock guards
// the maps, the active config, and the buffer/callback pair.
type registry struct {
	mu      sync.RWMutex
	loggers map[string]*slog.Logger
	levels  map[string]*slog.LevelVar
	cfg     Config
	ready   bool
	history *RingBuffer
	notify  LogCallback
}

var reg = registry{
	loggers: make(map[string]*slog.Logger),
	levels:  make(map[string]*slog.LevelVar),
}

// rootLevel drives the default slog logger installed by Initialize.
var rootLevel = &slog.LevelVar{}

// Initialize applies cfg to the logging system. Loggers handed out
// before this call are rebuilt in place: their LevelVar is retuned and
// their handler chain recreated, so the ring buffer sink joins loggers
// that predate it.
func Initialize(cfg Config) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.cfg = cfg
	reg.ready = true
	reg.history = NewRingBuffer(historySize)

	base, ok := levelFromString(cfg.Level)
	if !ok {
		base = slog.LevelInfo
	}
	rootLevel.Set(base)

	for module, lv := range reg.levels {
		lv.Set(resolveLevel(cfg, module))
		reg.loggers[module] = slog.New(buildHandler(cfg.Format, lv)).With("module", module)
	}

	slog.SetDefault(slog.New(buildHandler(cfg.Format, rootLevel)))
}

// GetLogger returns the shared logger for module, creating it on first
// use. The returned pointer is stable across Initialize; later level
// changes arrive through the logger's LevelVar.
func GetLogger(module string) *slog.Logger {
	reg.mu.RLock()
	logger, found := reg.loggers[module]
	reg.mu.RUnlock()
	if found {
		return logger
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	// Lost the race: another goroutine built it between the locks.
	if logger, found := reg.loggers[module]; found {
		return logger
	}

	lv := &slog.LevelVar{}
	format := "text"
	if reg.ready {
		lv.Set(resolveLevel(reg.cfg, module))
		format = reg.cfg.Format
	} else {
		lv.Set(slog.LevelInfo)
	}

	logger = slog.New(buildHandler(format, lv)).With("module", module)
	reg.loggers[module] = logger
	reg.levels[module] = lv
	return logger
}

// GetBuffer returns the ring buffer of recent entries, or nil before
// Initialize has run.
func GetBuffer() *RingBuffer {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.history
}

// SetLogCallback installs fn to run for every captured entry. The
// server uses it to forward entries onto the event bus for the SSE
// log stream.
func SetLogCallback(fn LogCallback) {
	reg.mu.Lock()
	reg.notify = fn
	reg.mu.Unlock()
}

// activeBuffer returns the buffer and callback in effect right now.
// BufferHandler asks per record, so handlers built before Initialize
// still reach a buffer installed afterwards.
func activeBuffer() (*RingBuffer, LogCallback) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.history, reg.notify
}

// resolveLevel returns the effective level for module under cfg: the
// module override when present and parseable, the global level
// otherwise.
func resolveLevel(cfg Config, module string) slog.Level {
	level, ok := levelFromString(cfg.Level)
	if !ok {
		level = slog.LevelInfo
	}
	if override, found := cfg.Modules[module]; found {
		if parsed, ok := levelFromString(override); ok {
			level = parsed
		}
	}
	return level
}

// buildHandler assembles the sink chain for one logger: stdout in the
// requested format when stdout goes somewhere, the systemd journal
// when journald is listening, and always the ring buffer sink.
func buildHandler(format string, level slog.Leveler) slog.Handler {
	var sinks []slog.Handler

	if stdoutUsable() {
		opts := &slog.HandlerOptions{Level: level}
		if format == "json" {
			sinks = append(sinks, slog.NewJSONHandler(os.Stdout, opts))
		} else {
			sinks = append(sinks, slog.NewTextHandler(os.Stdout, opts))
		}
	}
	if IsJournalAvailable() {
		sinks = append(sinks, NewJournalHandler(level))
	}
	sinks = append(sinks, NewBufferHandler(level))

	if len(sinks) == 1 {
		return sinks[0]
	}
	return NewMultiHandler(sinks...)
}

// stdoutUsable reports whether stdout points somewhere that accepts
// writes: a terminal, pipe, socket, or regular file.
func stdoutUsable() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	m := info.Mode()
	return m.IsRegular() || m&(os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0
}

// levelFromString maps a config string onto a slog level. The second
// return is false for anything unrecognized.
func levelFromString(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return 0, false
}
