package capture

import "context"

// Source is the platform camera collaborator: it enumerates the streams
// a backend offers and opens devices for them. Implementations live
// outside the capture core (V4L2, GStreamer, synthetic); the engine
// only consumes this interface.
type Source interface {
	// Discover enumerates the currently selectable streams. Called by
	// Camera.Initialize; the returned descriptors replace any prior
	// catalog.
	Discover(ctx context.Context) ([]StreamDescriptor, error)

	// Open acquires the device behind a descriptor. The device is not
	// delivering frames until Subscribe is called.
	Open(ctx context.Context, desc StreamDescriptor) (Device, error)
}

// Device is one opened capture device. Negotiate, Subscribe, Unsubscribe
// and Close are called by a single camera goroutine at a time, but
// frame delivery runs on the device's own goroutine concurrently with
// everything else.
type Device interface {
	// Negotiate configures the device for the given mode and desired
	// pixel format. Framerate comparison against device-reported modes
	// should use CameraResolution.Matches.
	Negotiate(ctx context.Context, res CameraResolution, format PixelFormat) error

	// Subscribe starts frame delivery. The callback is invoked on the
	// device's delivery goroutine for every captured frame.
	Subscribe(cb FrameCallback) error

	// Unsubscribe stops frame delivery. It returns only after any
	// in-flight callback has drained: once Unsubscribe returns, the
	// callback is not running and will never run again.
	Unsubscribe()

	// Close releases the device.
	Close() error
}

// FrameCallback receives a raw source frame on the device's delivery
// goroutine. The SourceFrame and anything borrowed from it are valid
// only for the duration of the call; the engine copies what it keeps.
type FrameCallback func(sf SourceFrame)

// SourceFrame is the platform's view of one captured frame. Pixels
// performs any needed format conversion (an external-collaborator
// concern) and returns bytes sized exactly per the frame's resolution
// and the requested format.
type SourceFrame interface {
	Pixels(format PixelFormat) ([]byte, error)
	Resolution() CameraResolution

	// Timestamp is the capture time in process-relative seconds
	// (see Now).
	Timestamp() float64
	ExposureDuration() float64
	Gain() float32

	// Intrinsics and Extrinsics return nil when the platform frame
	// carries no calibration data.
	Intrinsics() *Intrinsics
	Extrinsics() *Extrinsics

	// Release returns a hook tied to any platform resource the frame
	// retains (a dequeued driver buffer, a mapped sample). When the
	// arrival is consumed the hook is stored on the acquired Frame and
	// runs once its reference count reaches zero; when the arrival is
	// dropped the engine runs it before returning from the callback.
	// May return nil.
	Release() func()
}
