// Package capture provides the camera capture engine: stream
// discovery, buffer pooling, reference-counted frames, and a
// lock-disciplined camera lifecycle.
//
// The package is platform-neutral. Camera drives any backend that
// implements the Source and Device interfaces (V4L2, GStreamer,
// synthetic test sources); format conversion and device I/O stay on
// the backend side of that boundary.
//
// The main pieces:
//
// StreamCatalog holds deduplicated stream descriptors and narrows them
// with chained selections:
//   - Add is idempotent on the (source id, source name, resolution) triplet
//   - SelectResolution and SelectFramerate return new catalogs, leaving
//     the receiver untouched
//   - Chained selects intersect
//
// FramePool recycles frame buffers keyed by byte length:
//   - Acquire copies pixel data into a reused or fresh buffer
//   - Frames return to the free list when their reference count hits zero
//   - Trim releases the free list to the garbage collector
//
// Frame is a reference-counted pixel buffer with capture metadata:
//   - Acquire hands out frames holding one reference
//   - Retain and Release are safe on nil frames
//   - Release of a zero-reference frame clamps and is surfaced in pool
//     stats rather than going negative
//
// Camera ties it together with a ten-state lifecycle. Its mutex is held
// only for state checks and transitions, never across device I/O or
// listener callbacks.
//
// Example usage:
//
//	pool := capture.NewFramePool(logger)
//	cam := capture.NewCamera(capture.CameraOptions{
//	    Source: source,
//	    Pool:   pool,
//	    Mode:   capture.ModeContinuous,
//	    Format: capture.FormatBGRA8,
//	})
//	unsubscribe := cam.OnFrame(func(f *capture.Frame) {
//	    defer f.Release()
//	    // consume f.Bytes()
//	})
//	defer unsubscribe()
//
//	cam.Initialize(ctx)
//	desc, _ := cam.Catalog().SelectFramerate(capture.EqualTo, 30).First()
//	cam.Start(ctx, desc)
//	cam.StartContinuous()
package capture
