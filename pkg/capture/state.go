package capture

// State represents the lifecycle state of a camera. State is mutated
// only while holding the camera's lock and only for the duration of a
// check+set; long operations run between states, which is what the
// transient starting/stopping values make observable.
type State string

// Camera states.
const (
	StateUninitialized       State = "uninitialized"        // Constructed, never initialized
	StateInitializing        State = "initializing"         // Discovery in progress
	StateInitialized         State = "initialized"          // Discovery succeeded, catalog available
	StateFailed              State = "failed"               // Discovery failed; Initialize again to retry
	StateStarting            State = "starting"             // Device open/negotiation in progress
	StateReady               State = "ready"                // Device delivering, arrivals dropped
	StateCapturingSingle     State = "capturing_single"     // Next arrival captured, then back to ready
	StateCapturingContinuous State = "capturing_continuous" // Every arrival captured until stopped
	StateStopping            State = "stopping"             // Teardown in progress
	StateClosed              State = "closed"               // Device released; Initialize to reuse
)

// CaptureMode is the configured capture policy of a camera, fixed at
// construction.
type CaptureMode string

// Capture modes.
const (
	// ModeSingle grabs one frame per TakeSingle call.
	ModeSingle CaptureMode = "single"
	// ModeSingleLowLatency is ModeSingle plus latest-frame retention,
	// so Latest always answers synchronously with a live frame.
	ModeSingleLowLatency CaptureMode = "single_low_latency"
	// ModeContinuous streams every arrival between StartContinuous and
	// StopContinuous.
	ModeContinuous CaptureMode = "continuous"
)

// ParseCaptureMode converts a config-file mode name to a CaptureMode.
func ParseCaptureMode(s string) (CaptureMode, bool) {
	switch CaptureMode(s) {
	case ModeSingle, ModeSingleLowLatency, ModeContinuous:
		return CaptureMode(s), true
	}
	return "", false
}

// CameraStats is a point-in-time snapshot of a camera's counters.
type CameraStats struct {
	State          State
	SessionID      string
	FramesCaptured uint64
	FramesDropped  uint64
	LastFrameAt    float64
}
