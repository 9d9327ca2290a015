package capture

import "testing"

func TestDispatchHandsEachListenerOneReference(t *testing.T) {
	pool := NewFramePool(testLogger())
	d := NewDispatcher(ModeContinuous, testLogger())

	var refsSeen int32
	var held []*Frame
	for i := 0; i < 3; i++ {
		d.Add(func(f *Frame) {
			refsSeen = f.RefCount()
			held = append(held, f)
		})
	}

	f := acquireTestFrame(t, pool, FrameMeta{})
	d.Dispatch(f)

	// Inside the last listener: three listener references plus the
	// pipeline's, which Dispatch releases after fan-out.
	if refsSeen != 4 {
		t.Errorf("expected refcount 4 during fan-out, got %d", refsSeen)
	}
	if f.RefCount() != 3 {
		t.Errorf("expected refcount 3 after dispatch, got %d", f.RefCount())
	}
	if pool.Stats().InUse != 1 {
		t.Error("expected frame to remain in use while listeners hold it")
	}

	for _, h := range held {
		h.Release()
	}
	if stats := pool.Stats(); stats.InUse != 0 || stats.Free != 1 {
		t.Errorf("expected frame recycled after all listeners release, got %+v", stats)
	}
}

func TestDispatchZeroListenersRecyclesImmediately(t *testing.T) {
	pool := NewFramePool(testLogger())
	d := NewDispatcher(ModeContinuous, testLogger())

	f := acquireTestFrame(t, pool, FrameMeta{})
	d.Dispatch(f)

	stats := pool.Stats()
	if stats.InUse != 0 || stats.Free != 1 {
		t.Errorf("expected immediate recycle with zero listeners, got %+v", stats)
	}
}

func TestDispatchUnsubscribe(t *testing.T) {
	pool := NewFramePool(testLogger())
	d := NewDispatcher(ModeContinuous, testLogger())

	calls := 0
	unsubscribe := d.Add(func(f *Frame) {
		calls++
		f.Release()
	})
	if d.Len() != 1 {
		t.Fatalf("expected 1 listener, got %d", d.Len())
	}

	f := acquireTestFrame(t, pool, FrameMeta{})
	d.Dispatch(f)
	if calls != 1 {
		t.Errorf("expected 1 call before unsubscribe, got %d", calls)
	}

	unsubscribe()
	if d.Len() != 0 {
		t.Fatalf("expected 0 listeners after unsubscribe, got %d", d.Len())
	}

	g := acquireTestFrame(t, pool, FrameMeta{})
	d.Dispatch(g)
	if calls != 1 {
		t.Errorf("expected no calls after unsubscribe, got %d", calls)
	}
}

func TestDispatchLowLatencyRetainsLatest(t *testing.T) {
	pool := NewFramePool(testLogger())
	d := NewDispatcher(ModeSingleLowLatency, testLogger())

	first := acquireTestFrame(t, pool, FrameMeta{Timestamp: 1})
	d.Dispatch(first)
	if first.RefCount() != 1 {
		t.Errorf("expected latest slot to hold one reference, got %d", first.RefCount())
	}

	got := d.Latest()
	if got != first {
		t.Fatal("expected Latest to return the dispatched frame")
	}
	if got.RefCount() != 2 {
		t.Errorf("expected Latest to add a caller reference, got %d", got.RefCount())
	}
	got.Release()

	// A newer frame replaces the retained one, releasing it.
	second := acquireTestFrame(t, pool, FrameMeta{Timestamp: 2})
	d.Dispatch(second)
	if first.RefCount() != 0 {
		t.Errorf("expected replaced frame released, refcount %d", first.RefCount())
	}
	if latest := d.Latest(); latest != second {
		t.Error("expected Latest to track the newest frame")
	} else {
		latest.Release()
	}

	d.DropLatest()
	if d.Latest() != nil {
		t.Error("expected no latest after drop")
	}
	if stats := pool.Stats(); stats.InUse != 0 {
		t.Errorf("expected all frames recycled after drop, in use %d", stats.InUse)
	}
}

func TestDispatchSnapshotIsolation(t *testing.T) {
	pool := NewFramePool(testLogger())
	d := NewDispatcher(ModeContinuous, testLogger())

	lateCalls := 0
	d.Add(func(f *Frame) {
		// Registration during fan-out applies to the next dispatch.
		d.Add(func(g *Frame) {
			lateCalls++
			g.Release()
		})
		f.Release()
	})

	f := acquireTestFrame(t, pool, FrameMeta{})
	d.Dispatch(f)
	if lateCalls != 0 {
		t.Errorf("expected listener added mid-dispatch to miss that dispatch, got %d calls", lateCalls)
	}

	g := acquireTestFrame(t, pool, FrameMeta{})
	d.Dispatch(g)
	if lateCalls != 1 {
		t.Errorf("expected listener added mid-dispatch to see the next one, got %d calls", lateCalls)
	}
}
