package capture

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"
)

// processEpoch anchors the process-relative capture clock. time.Since
// reads the runtime monotonic clock, so timestamps are comparable across
// all frames of one process regardless of wall-clock adjustments.
var processEpoch = time.Now()

// Now returns the current capture timestamp: seconds since process
// start, monotonic. Sources use it to stamp frames they deliver.
func Now() float64 {
	return time.Since(processEpoch).Seconds()
}

// Intrinsics holds the lens model extracted from a platform frame when
// the source provides one.
type Intrinsics struct {
	FocalLengthX     float64
	FocalLengthY     float64
	PrincipalPointX  float64
	PrincipalPointY  float64
	RadialDistortion [3]float64
}

// Extrinsics holds the camera pose extracted from a platform frame:
// a row-major 3x3 rotation and a translation in meters.
type Extrinsics struct {
	Rotation    [9]float64
	Translation [3]float64
}

// FrameMeta carries the per-capture metadata stamped onto a frame at
// acquire time. Intrinsics and Extrinsics may be nil when the source
// cannot provide them. Release, when non-nil, is invoked exactly once
// when the frame's reference count reaches zero; sources use it to
// requeue or free a retained platform resource.
type FrameMeta struct {
	Timestamp        float64
	ExposureDuration float64
	Gain             float32
	Intrinsics       *Intrinsics
	Extrinsics       *Extrinsics
	Release          func()
}

// Encoder writes a frame's pixels to an output in some file format.
// Encoding is outside the capture core; Frame.Save only passes through.
type Encoder interface {
	Encode(w io.Writer, f *Frame) error
}

// EncoderFunc adapts a plain function to the Encoder interface.
type EncoderFunc func(w io.Writer, f *Frame) error

func (fn EncoderFunc) Encode(w io.Writer, f *Frame) error { return fn(w, f) }

// Frame is one captured image: a pool-owned pixel buffer plus capture
// metadata, with a reference-counted lifetime. Frames are only obtained
// from a FramePool and are handed out holding one reference. Each
// consumer that receives a frame owns exactly one reference and must
// call Release exactly once; the buffer returns to its pool when the
// count reaches zero and must not be touched afterwards. The same
// backing buffer may be handed out again by a later Acquire.
type Frame struct {
	pool *FramePool
	buf  []byte

	format     PixelFormat
	resolution CameraResolution

	timestamp float64
	exposure  float64
	gain      float32
	intr      *Intrinsics
	extr      *Extrinsics
	release   func()

	refs atomic.Int32
}

// Bytes returns the frame's pixel buffer. The slice is valid only while
// the caller holds a reference; it is overwritten in place when the
// pool reuses the buffer.
func (f *Frame) Bytes() []byte { return f.buf }

// PixelFormat returns the buffer's pixel format.
func (f *Frame) PixelFormat() PixelFormat { return f.format }

// Resolution returns the frame's dimensions and framerate.
func (f *Frame) Resolution() CameraResolution { return f.resolution }

// Timestamp returns the capture time in process-relative seconds.
// Timestamps from one session are monotonic and directly comparable.
func (f *Frame) Timestamp() float64 { return f.timestamp }

// ExposureDuration returns the sensor exposure time in seconds.
func (f *Frame) ExposureDuration() float64 { return f.exposure }

// Gain returns the sensor analog gain.
func (f *Frame) Gain() float32 { return f.gain }

// Intrinsics returns the lens model, or nil when the source did not
// provide one. The pointer is cleared when the frame is recycled.
func (f *Frame) Intrinsics() *Intrinsics { return f.intr }

// Extrinsics returns the camera pose, or nil when the source did not
// provide one. The pointer is cleared when the frame is recycled.
func (f *Frame) Extrinsics() *Extrinsics { return f.extr }

// Retain increments the frame's reference count. Safe on a nil frame.
func (f *Frame) Retain() {
	if f == nil {
		return
	}
	f.refs.Add(1)
}

// Release decrements the frame's reference count. At the 1 -> 0
// transition the frame's private resources are released and the buffer
// returns to its pool. Releasing a frame whose count is already zero is
// a consumer defect: the count is clamped at zero and the call logged,
// never propagated as a fault. Safe on a nil frame.
func (f *Frame) Release() {
	if f == nil {
		return
	}
	for {
		cur := f.refs.Load()
		if cur <= 0 {
			f.pool.logOverRelease(f)
			return
		}
		if f.refs.CompareAndSwap(cur, cur-1) {
			if cur == 1 {
				f.pool.recycle(f)
			}
			return
		}
	}
}

// RefCount returns the current reference count. For tests and
// diagnostics only; the value may be stale by the time it is read.
func (f *Frame) RefCount() int32 {
	if f == nil {
		return 0
	}
	return f.refs.Load()
}

// Save writes the frame through the given encoder to a file at path.
// It is a thin pass-through; no encoder ships with the capture core.
func (f *Frame) Save(path string, enc Encoder) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save frame: %w", err)
	}
	defer out.Close()
	if err := enc.Encode(out, f); err != nil {
		return fmt.Errorf("save frame: %w", err)
	}
	return nil
}

// reset stamps new metadata onto a recycled or fresh frame and arms it
// with the pipeline's single reference. Called by the pool with the
// frame already in the in-use set.
func (f *Frame) reset(res CameraResolution, format PixelFormat, meta FrameMeta) {
	f.resolution = res
	f.format = format
	f.timestamp = meta.Timestamp
	f.exposure = meta.ExposureDuration
	f.gain = meta.Gain
	f.intr = meta.Intrinsics
	f.extr = meta.Extrinsics
	f.release = meta.Release
	f.refs.Store(1)
}

// clear drops the frame's private resources at recycle time. Consumers
// may read intrinsics and extrinsics right up to their own Release call,
// so clearing happens only here, at the zero transition.
func (f *Frame) clear() {
	if f.release != nil {
		f.release()
		f.release = nil
	}
	f.intr = nil
	f.extr = nil
}
