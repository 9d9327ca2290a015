package capture

import (
	"errors"
	"testing"
)

func TestPoolAcquireValidation(t *testing.T) {
	pool := NewFramePool(testLogger())

	_, err := pool.Acquire(testPixels(), testResolution(), FormatUnknown, FrameMeta{})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat for unknown format, got %v", err)
	}

	short := []byte{1, 2, 3}
	_, err = pool.Acquire(short, testResolution(), FormatL8, FrameMeta{})
	if !errors.Is(err, ErrBufferSize) {
		t.Errorf("expected ErrBufferSize for short pixel slice, got %v", err)
	}

	stats := pool.Stats()
	if stats.InUse != 0 || stats.Free != 0 || stats.Allocs != 0 {
		t.Errorf("expected rejected acquires to leave the pool untouched, got %+v", stats)
	}
}

func TestPoolReusesSameBuffer(t *testing.T) {
	pool := NewFramePool(testLogger())

	f := acquireTestFrame(t, pool, FrameMeta{})
	first := f
	f.Release()

	g := acquireTestFrame(t, pool, FrameMeta{})
	if g != first {
		t.Error("expected acquire after release to reuse the same buffer")
	}
	g.Release()

	stats := pool.Stats()
	if stats.Allocs != 1 {
		t.Errorf("expected 1 allocation, got %d", stats.Allocs)
	}
	if stats.Reuses != 1 {
		t.Errorf("expected 1 reuse, got %d", stats.Reuses)
	}
	if stats.Acquires != 2 {
		t.Errorf("expected 2 acquires, got %d", stats.Acquires)
	}
}

func TestPoolSteadyStateIdentity(t *testing.T) {
	pool := NewFramePool(testLogger())

	// Force three distinct allocations by holding all three.
	frames := make([]*Frame, 3)
	seen := make(map[*Frame]bool)
	for i := range frames {
		frames[i] = acquireTestFrame(t, pool, FrameMeta{})
		seen[frames[i]] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 distinct buffers, got %d", len(seen))
	}

	for _, f := range frames {
		f.Release()
	}

	// The next three acquires must be drawn from the same set with no
	// further allocation.
	for range frames {
		f := acquireTestFrame(t, pool, FrameMeta{})
		if !seen[f] {
			t.Error("expected acquire to reuse an existing buffer")
		}
		defer f.Release()
	}
	if stats := pool.Stats(); stats.Allocs != 3 {
		t.Errorf("expected allocations to stay at 3, got %d", stats.Allocs)
	}
}

func TestPoolFirstMatchByLength(t *testing.T) {
	pool := NewFramePool(testLogger())

	// Two 8-byte frames released in order; the first released is the
	// first reused.
	a := acquireTestFrame(t, pool, FrameMeta{})
	b := acquireTestFrame(t, pool, FrameMeta{})
	a.Release()
	b.Release()

	got := acquireTestFrame(t, pool, FrameMeta{})
	if got != a {
		t.Error("expected ordered scan to reuse the first released buffer")
	}
	got.Release()
}

func TestPoolSkipsMismatchedLengths(t *testing.T) {
	pool := NewFramePool(testLogger())

	small, err := pool.Acquire([]byte{1, 2, 3, 4}, CameraResolution{Width: 2, Height: 2, Framerate: 30}, FormatL8, FrameMeta{})
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	big := acquireTestFrame(t, pool, FrameMeta{})
	small.Release()
	big.Release()

	// An 8-byte request must skip the 4-byte buffer at the head of the
	// free list and take the exact-length match behind it.
	got := acquireTestFrame(t, pool, FrameMeta{})
	if got != big {
		t.Error("expected exact-length match, not the smaller buffer")
	}
	got.Release()

	stats := pool.Stats()
	if stats.Allocs != 2 {
		t.Errorf("expected no new allocation, got %d allocs", stats.Allocs)
	}
}

func TestPoolSharesBuffersAcrossFormats(t *testing.T) {
	pool := NewFramePool(testLogger())

	// 4x2 L8 and 2x2 L16 both need 8 bytes; admission is keyed by byte
	// length alone.
	f := acquireTestFrame(t, pool, FrameMeta{})
	f.Release()

	g, err := pool.Acquire(testPixels(), CameraResolution{Width: 2, Height: 2, Framerate: 30}, FormatL16, FrameMeta{})
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if g != f {
		t.Error("expected equal-length buffer reuse across formats")
	}
	if g.PixelFormat() != FormatL16 {
		t.Errorf("expected reused frame restamped to l16, got %v", g.PixelFormat())
	}
	g.Release()
}

func TestPoolTrim(t *testing.T) {
	pool := NewFramePool(testLogger())

	a := acquireTestFrame(t, pool, FrameMeta{})
	b := acquireTestFrame(t, pool, FrameMeta{})
	held := acquireTestFrame(t, pool, FrameMeta{})
	a.Release()
	b.Release()

	if n := pool.Trim(); n != 2 {
		t.Errorf("expected trim to free 2 buffers, got %d", n)
	}
	stats := pool.Stats()
	if stats.Free != 0 {
		t.Errorf("expected empty free list after trim, got %d", stats.Free)
	}
	if stats.InUse != 1 {
		t.Errorf("expected in-use frames untouched by trim, got %d", stats.InUse)
	}

	// The trimmed buffers are gone; a new acquire allocates.
	fresh := acquireTestFrame(t, pool, FrameMeta{})
	if fresh == a || fresh == b {
		t.Error("expected trimmed buffers not to be reused")
	}
	fresh.Release()

	// The held frame still recycles into the post-trim free list.
	held.Release()
	if stats := pool.Stats(); stats.Free != 2 {
		t.Errorf("expected 2 free buffers after releases, got %d", stats.Free)
	}
}

func TestPoolStatsBytes(t *testing.T) {
	pool := NewFramePool(testLogger())

	f := acquireTestFrame(t, pool, FrameMeta{})
	g := acquireTestFrame(t, pool, FrameMeta{})
	f.Release()

	stats := pool.Stats()
	if stats.FreeBytes != 8 {
		t.Errorf("expected 8 free bytes, got %d", stats.FreeBytes)
	}
	if stats.InUseBytes != 8 {
		t.Errorf("expected 8 in-use bytes, got %d", stats.InUseBytes)
	}
	g.Release()
}
