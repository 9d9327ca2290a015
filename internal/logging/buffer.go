package logging

import (
	"sync"
	"time"
)

// LogEntry is one captured log record. Seq increases monotonically
// across the process; SSE clients use it to drop entries they already
// saw in the history replay.
type LogEntry struct {
	Seq        uint64         `json:"seq"`
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer keeps the newest entries in a fixed-size circular store.
type RingBuffer struct {
	mu     sync.RWMutex
	slots  []LogEntry
	next   int // slot the next write lands in
	filled int
}

// NewRingBuffer returns a buffer retaining the last size entries.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{slots: make([]LogEntry, size)}
}

// Write stores entry, evicting the oldest once the buffer is full.
func (rb *RingBuffer) Write(entry LogEntry) {
	rb.mu.Lock()
	rb.slots[rb.next] = entry
	rb.next = (rb.next + 1) % len(rb.slots)
	if rb.filled < len(rb.slots) {
		rb.filled++
	}
	rb.mu.Unlock()
}

// ReadAll returns every retained entry, oldest first.
func (rb *RingBuffer) ReadAll() []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.copyOut(rb.filled)
}

// Tail returns the newest n entries, oldest first. Asking for more
// than the buffer holds returns everything.
func (rb *RingBuffer) Tail(n int) []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.copyOut(min(n, rb.filled))
}

// Count returns how many entries the buffer currently holds.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.filled
}

// copyOut snapshots the newest n entries in order. Callers hold the
// lock.
func (rb *RingBuffer) copyOut(n int) []LogEntry {
	if n <= 0 {
		return nil
	}
	out := make([]LogEntry, n)

	// next is one past the newest slot, so the oldest requested entry
	// sits n slots behind it.
	first := rb.next - n
	if first < 0 {
		first += len(rb.slots)
	}
	for i := range out {
		out[i] = rb.slots[(first+i)%len(rb.slots)]
	}
	return out
}
