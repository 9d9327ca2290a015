package capture

import (
	"log/slog"
	"sync"
)

// FrameListener receives a captured frame during fan-out. The listener
// owns exactly one reference to the frame and must Release it exactly
// once, on whatever goroutine it chooses.
type FrameListener func(f *Frame)

// Dispatcher fans a captured frame out to registered listeners with
// per-listener reference accounting, and, in single_low_latency mode,
// retains the most recent frame so a synchronous Latest query always
// has a live reference to hand out.
type Dispatcher struct {
	mode   CaptureMode
	logger *slog.Logger

	mu        sync.Mutex
	nextID    uint64
	listeners []dispatchEntry
	latest    *Frame
}

type dispatchEntry struct {
	id uint64
	fn FrameListener
}

// NewDispatcher creates a dispatcher for the given capture mode. A nil
// logger falls back to slog.Default().
func NewDispatcher(mode CaptureMode, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{mode: mode, logger: logger}
}

// Add registers a listener and returns its unsubscribe function.
// Registration order is preserved for fan-out. Listeners added or
// removed while a dispatch is running do not affect that dispatch.
func (d *Dispatcher) Add(fn FrameListener) func() {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.listeners = append(d.listeners, dispatchEntry{id: id, fn: fn})
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		for i, e := range d.listeners {
			if e.id == id {
				d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
				break
			}
		}
		d.mu.Unlock()
	}
}

// Len returns the number of registered listeners.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners)
}

// Dispatch fans f out to the current listener set. f arrives holding
// the capture pipeline's reference, which Dispatch consumes: each
// listener is handed its own reference (Retain before invoke), the
// latest-frame slot takes one in single_low_latency mode, and the
// pipeline reference is released at the end. With zero listeners and no
// retention the frame returns to its pool before Dispatch returns, so
// nothing leaks when nobody is consuming.
//
// The listener set is snapshotted once: (un)registrations racing with a
// dispatch apply to the next one. Listeners run synchronously on the
// caller's goroutine, outside the registry lock.
func (d *Dispatcher) Dispatch(f *Frame) {
	d.mu.Lock()
	snapshot := make([]dispatchEntry, len(d.listeners))
	copy(snapshot, d.listeners)

	var prev *Frame
	if d.mode == ModeSingleLowLatency {
		f.Retain()
		prev = d.latest
		d.latest = f
	}
	d.mu.Unlock()

	// The previously retained latest is released outside the lock;
	// this may be its zero transition.
	prev.Release()

	for _, e := range snapshot {
		f.Retain()
		e.fn(f)
	}

	f.Release()
}

// Latest returns the retained most-recent frame with a fresh reference
// owned by the caller, who must Release it. Returns nil when no frame
// is retained (never dispatched, or mode is not single_low_latency).
func (d *Dispatcher) Latest() *Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.latest == nil {
		return nil
	}
	d.latest.Retain()
	return d.latest
}

// DropLatest releases and clears the retained latest frame. Called on
// camera stop; consumers still holding their own references are
// unaffected.
func (d *Dispatcher) DropLatest() {
	d.mu.Lock()
	prev := d.latest
	d.latest = nil
	d.mu.Unlock()
	prev.Release()
}
