package capture

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// PoolStats is a point-in-time snapshot of a pool's population and
// lifetime counters.
type PoolStats struct {
	Free       int
	InUse      int
	FreeBytes  int64
	InUseBytes int64

	Acquires uint64
	Reuses   uint64
	Allocs   uint64
	Recycles uint64
	Trims    uint64

	// OverReleases counts Release calls on frames whose reference count
	// was already zero. Nonzero values point at a consumer releasing
	// more than once.
	OverReleases uint64
}

// FramePool is a recycling allocator for pixel buffers. It owns two
// disjoint collections of frames: free (available for reuse) and in-use
// (held by at least one reference). A frame is in exactly one of the two
// at any time; membership changes only inside Acquire and at a frame's
// release-to-zero transition.
//
// Admission is keyed by buffer byte length alone, not by resolution or
// format: two modes with equal byte counts share buffers, which is safe
// because Acquire fully overwrites buffer contents. The free list is
// scanned in order and the first exact-length match wins, so reuse is
// deterministic.
//
// A pool is an explicitly constructed resource, one per process or per
// test. Its mutex is independent of any camera lock: Release arrives
// from arbitrary consumer goroutines at arbitrary times, including after
// the owning camera has stopped.
type FramePool struct {
	mu    sync.Mutex
	free  []*Frame
	inUse map[*Frame]struct{}

	logger *slog.Logger

	acquires atomic.Uint64
	reuses   atomic.Uint64
	allocs   atomic.Uint64
	recycles atomic.Uint64
	trims    atomic.Uint64

	overReleases atomic.Uint64
}

// NewFramePool creates an empty pool. A nil logger falls back to
// slog.Default().
func NewFramePool(logger *slog.Logger) *FramePool {
	if logger == nil {
		logger = slog.Default()
	}
	return &FramePool{
		inUse:  make(map[*Frame]struct{}),
		logger: logger,
	}
}

// Acquire produces a frame holding a copy of pixels, reusing a free
// buffer of exactly the required byte length when one exists and
// allocating otherwise. pixels must already be in the requested format;
// conversion is the caller's concern, the pool only sees the
// post-conversion bytes. The returned frame carries one reference owned
// by the caller.
func (p *FramePool) Acquire(pixels []byte, res CameraResolution, format PixelFormat, meta FrameMeta) (*Frame, error) {
	required := format.BufferSize(res.Width, res.Height)
	if required <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
	if len(pixels) != required {
		return nil, fmt.Errorf("%w: got %d bytes, %s %v needs %d",
			ErrBufferSize, len(pixels), res, format, required)
	}

	p.mu.Lock()
	var f *Frame
	for i, cand := range p.free {
		if len(cand.buf) == required {
			f = cand
			p.free = append(p.free[:i], p.free[i+1:]...)
			break
		}
	}
	if f != nil {
		p.reuses.Add(1)
	} else {
		f = &Frame{pool: p, buf: make([]byte, required)}
		p.allocs.Add(1)
	}
	p.inUse[f] = struct{}{}
	p.mu.Unlock()
	p.acquires.Add(1)

	copy(f.buf, pixels)
	f.reset(res, format, meta)
	return f, nil
}

// recycle moves a frame from in-use to free. Called exactly once per
// frame lifetime, by the Release that took the count to zero.
func (p *FramePool) recycle(f *Frame) {
	f.clear()

	p.mu.Lock()
	if _, ok := p.inUse[f]; !ok {
		// Not ours or already recycled; drop rather than corrupt the
		// free list.
		p.mu.Unlock()
		p.logger.Warn("Recycle of frame not in use", "bytes", len(f.buf))
		return
	}
	delete(p.inUse, f)
	p.free = append(p.free, f)
	p.mu.Unlock()
	p.recycles.Add(1)
}

// Trim clears the free list, releasing idle buffers to the garbage
// collector. In-use frames are untouched; they return to a now-empty
// free list as their consumers release them. Used to bound memory
// between capture bursts.
func (p *FramePool) Trim() int {
	p.mu.Lock()
	n := len(p.free)
	p.free = nil
	p.mu.Unlock()
	p.trims.Add(1)
	if n > 0 {
		p.logger.Debug("Trimmed frame pool", "freed", n)
	}
	return n
}

// Stats returns a snapshot of the pool's population and counters.
func (p *FramePool) Stats() PoolStats {
	p.mu.Lock()
	s := PoolStats{
		Free:  len(p.free),
		InUse: len(p.inUse),
	}
	for _, f := range p.free {
		s.FreeBytes += int64(len(f.buf))
	}
	for f := range p.inUse {
		s.InUseBytes += int64(len(f.buf))
	}
	p.mu.Unlock()

	s.Acquires = p.acquires.Load()
	s.Reuses = p.reuses.Load()
	s.Allocs = p.allocs.Load()
	s.Recycles = p.recycles.Load()
	s.Trims = p.trims.Load()
	s.OverReleases = p.overReleases.Load()
	return s
}

// logOverRelease records a Release on a frame whose count was already
// zero. Over-release is a consumer defect surfaced in diagnostics, not
// a runtime fault; the count stays clamped at zero.
func (p *FramePool) logOverRelease(f *Frame) {
	p.overReleases.Add(1)
	p.logger.Warn("Frame released with zero references",
		"bytes", len(f.buf), "format", f.format.String())
}
