package logging

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func resetLoggingState() {
	reg.mu.Lock()
	reg.loggers = make(map[string]*slog.Logger)
	reg.levels = make(map[string]*slog.LevelVar)
	reg.cfg = Config{}
	reg.ready = false
	reg.history = nil
	reg.notify = nil
	reg.mu.Unlock()
}

func TestModuleLevelOverride(t *testing.T) {
	resetLoggingState()

	// Global info level, cameras at debug, api at warn
	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"cameras": "debug",
			"api":     "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"cameras", true, true, true},
		{"api", false, false, true},
		{"other", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()

			gotDebug := handler.Enabled(context.Background(), slog.LevelDebug)
			gotInfo := handler.Enabled(context.Background(), slog.LevelInfo)
			gotWarn := handler.Enabled(context.Background(), slog.LevelWarn)

			if gotDebug != tt.wantDebug {
				t.Errorf("module %q: Debug enabled = %v, want %v", tt.module, gotDebug, tt.wantDebug)
			}
			if gotInfo != tt.wantInfo {
				t.Errorf("module %q: Info enabled = %v, want %v", tt.module, gotInfo, tt.wantInfo)
			}
			if gotWarn != tt.wantWarn {
				t.Errorf("module %q: Warn enabled = %v, want %v", tt.module, gotWarn, tt.wantWarn)
			}
		})
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetLoggingState()

	// Before Initialize the module defaults to info
	loggerBefore := GetLogger("sources")
	handlerBefore := loggerBefore.Handler()

	if handlerBefore.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Logger created before Initialize should NOT have debug enabled")
	}

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"sources": "debug",
		},
	})

	// Cached logger, level updated through its LevelVar
	loggerAfter := GetLogger("sources")
	if loggerBefore != loggerAfter {
		t.Error("Logger should be cached - same pointer before and after Initialize")
	}
	if !handlerBefore.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Cached logger should have debug enabled after Initialize updates LevelVar")
	}
}

func TestMultiHandlerSingleDelivery(t *testing.T) {
	var buf bytes.Buffer

	debugHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	infoHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	multi := NewMultiHandler(debugHandler, infoHandler)
	logger := slog.New(multi).With("module", "test")

	// Only the debug handler accepts this record
	logger.Debug("debug only message")

	output := buf.String()
	count := strings.Count(output, "debug only message")
	if count != 1 {
		t.Errorf("Expected 1 debug message, got %d. Output: %s", count, output)
	}
}

func TestMultiHandlerJoinsErrors(t *testing.T) {
	failing := &failingHandler{err: fmt.Errorf("sink unavailable")}
	var buf bytes.Buffer
	ok := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	multi := NewMultiHandler(failing, ok)
	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "hello", 0)

	if err := multi.Handle(context.Background(), rec); err == nil {
		t.Error("expected joined error from failing handler")
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Error("expected healthy handler to still receive the record")
	}
}

type failingHandler struct{ err error }

func (f *failingHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (f *failingHandler) Handle(context.Context, slog.Record) error { return f.err }
func (f *failingHandler) WithAttrs([]slog.Attr) slog.Handler        { return f }
func (f *failingHandler) WithGroup(string) slog.Handler             { return f }

func TestBufferHandlerWritesEntries(t *testing.T) {
	resetLoggingState()
	Initialize(Config{Level: "debug", Format: "text"})

	var callbackEntries []LogEntry
	SetLogCallback(func(entry LogEntry) {
		callbackEntries = append(callbackEntries, entry)
	})

	logger := GetLogger("cameras")
	logger.Info("camera started", "camera_id", "front", "width", 1920)

	buffer := GetBuffer()
	entries := buffer.ReadAll()
	if len(entries) == 0 {
		t.Fatal("expected entries in the ring buffer")
	}

	last := entries[len(entries)-1]
	if last.Module != "cameras" {
		t.Errorf("expected module 'cameras', got %q", last.Module)
	}
	if last.Message != "camera started" {
		t.Errorf("expected message 'camera started', got %q", last.Message)
	}
	if last.Level != "info" {
		t.Errorf("expected level 'info', got %q", last.Level)
	}
	if last.Attributes["camera_id"] != "front" {
		t.Errorf("expected camera_id attribute 'front', got %v", last.Attributes["camera_id"])
	}

	if len(callbackEntries) == 0 {
		t.Error("expected log callback to fire")
	}
}

func TestBufferHandlerGroupAttrs(t *testing.T) {
	resetLoggingState()
	Initialize(Config{Level: "debug", Format: "text"})

	logger := GetLogger("http").WithGroup("req")
	logger.Info("request done", "path", "/api/cameras", "status", 200)

	entries := GetBuffer().ReadAll()
	if len(entries) == 0 {
		t.Fatal("expected an entry in the ring buffer")
	}

	last := entries[len(entries)-1]
	if last.Module != "http" {
		t.Errorf("expected module 'http', got %q", last.Module)
	}
	if last.Attributes["req.path"] != "/api/cameras" {
		t.Errorf("expected req.path '/api/cameras', got %v", last.Attributes)
	}
	if last.Attributes["req.status"] != int64(200) {
		t.Errorf("expected req.status 200, got %v", last.Attributes["req.status"])
	}
}

func TestRingBufferWraparound(t *testing.T) {
	rb := NewRingBuffer(3)
	for i := 0; i < 5; i++ {
		rb.Write(LogEntry{Message: fmt.Sprintf("msg-%d", i)})
	}

	if rb.Count() != 3 {
		t.Fatalf("expected count 3, got %d", rb.Count())
	}

	entries := rb.ReadAll()
	want := []string{"msg-2", "msg-3", "msg-4"}
	for i, w := range want {
		if entries[i].Message != w {
			t.Errorf("entry %d: expected %q, got %q", i, w, entries[i].Message)
		}
	}
}

func TestRingBufferTail(t *testing.T) {
	rb := NewRingBuffer(5)
	for i := 0; i < 4; i++ {
		rb.Write(LogEntry{Message: fmt.Sprintf("msg-%d", i)})
	}

	tail := rb.Tail(2)
	if len(tail) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(tail))
	}
	if tail[0].Message != "msg-2" || tail[1].Message != "msg-3" {
		t.Errorf("expected newest two in order, got %q, %q", tail[0].Message, tail[1].Message)
	}

	// Asking past the population returns everything
	if got := rb.Tail(10); len(got) != 4 {
		t.Errorf("expected 4 entries, got %d", len(got))
	}
	if got := rb.Tail(0); got != nil {
		t.Errorf("expected nil for zero tail, got %v", got)
	}

	// After wraparound the tail still reads newest-last
	for i := 4; i < 8; i++ {
		rb.Write(LogEntry{Message: fmt.Sprintf("msg-%d", i)})
	}
	tail = rb.Tail(3)
	want := []string{"msg-5", "msg-6", "msg-7"}
	for i, w := range want {
		if tail[i].Message != w {
			t.Errorf("entry %d: expected %q, got %q", i, w, tail[i].Message)
		}
	}
}

func TestJournalFieldMapping(t *testing.T) {
	fields := make(map[string]string)
	fieldFromAttr(fields, nil, slog.String("camera_id", "front"))
	fieldFromAttr(fields, nil, slog.Int("width", 1920))
	fieldFromAttr(fields, nil, slog.Bool("running", true))
	fieldFromAttr(fields, nil, slog.Duration("took", 1500*time.Millisecond))
	fieldFromAttr(fields, nil, slog.Group("req", slog.String("peer", "10.0.0.2")))
	fieldFromAttr(fields, nil, slog.Group("req", slog.Group("tls", slog.String("version", "1.3"))))

	want := map[string]string{
		"CAMERA_ID":       "front",
		"WIDTH":           "1920",
		"RUNNING":         "true",
		"TOOK":            "1.5s",
		"REQ_PEER":        "10.0.0.2",
		"REQ_TLS_VERSION": "1.3",
	}
	for k, w := range want {
		if got := fields[k]; got != w {
			t.Errorf("field %s = %q, want %q", k, got, w)
		}
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input  string
		want   slog.Level
		wantOK bool
	}{
		{"debug", slog.LevelDebug, true},
		{"DEBUG", slog.LevelDebug, true},
		{"info", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"invalid", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := levelFromString(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("levelFromString(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("levelFromString(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
