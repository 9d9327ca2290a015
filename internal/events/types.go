package events

import (
	"github.com/camnode/camnode/internal/api/models"
	"github.com/camnode/camnode/pkg/capture"
)

// Event type constants for kelindar/event.
const (
	TypeCameraStateChanged uint32 = iota + 1
	TypeCameraInitialized
	TypeCameraStarted
	TypeFrameCaptured
	TypeDeviceAttached
	TypeDeviceRemoved
	TypePoolTrimmed
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// CameraStateChangedEvent is published on every camera lifecycle
// transition. Used for LED control, NATS state publishing, and SSE.
type CameraStateChangedEvent struct {
	CameraID  string `json:"camera_id" example:"front" doc:"Camera identifier"`
	OldState  string `json:"old_state" example:"ready" doc:"State before the transition"`
	NewState  string `json:"new_state" example:"capturing_continuous" doc:"State after the transition"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CameraStateChangedEvent.
func (e CameraStateChangedEvent) Type() uint32 { return TypeCameraStateChanged }

// GetCameraID implements the CameraStateEvent interface for the LED manager.
func (e CameraStateChangedEvent) GetCameraID() string {
	return e.CameraID
}

// IsActive reports whether the new state has an open capture session.
func (e CameraStateChangedEvent) IsActive() bool {
	switch capture.State(e.NewState) {
	case capture.StateReady, capture.StateCapturingSingle, capture.StateCapturingContinuous:
		return true
	default:
		return false
	}
}

// IsCapturing reports whether the new state is delivering frames.
func (e CameraStateChangedEvent) IsCapturing() bool {
	switch capture.State(e.NewState) {
	case capture.StateCapturingSingle, capture.StateCapturingContinuous:
		return true
	default:
		return false
	}
}

// CameraInitializedEvent reports the outcome of a discovery pass.
type CameraInitializedEvent struct {
	CameraID  string `json:"camera_id" example:"front" doc:"Camera identifier"`
	OK        bool   `json:"ok" example:"true" doc:"Whether discovery succeeded"`
	Streams   int    `json:"streams" example:"12" doc:"Number of streams discovered"`
	Error     string `json:"error,omitempty" example:"" doc:"Failure detail when ok is false"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CameraInitializedEvent.
func (e CameraInitializedEvent) Type() uint32 { return TypeCameraInitialized }

// CameraStartedEvent reports the outcome of a session start.
type CameraStartedEvent struct {
	CameraID  string `json:"camera_id" example:"front" doc:"Camera identifier"`
	OK        bool   `json:"ok" example:"true" doc:"Whether the session opened"`
	SessionID string `json:"session_id" example:"4f1c..." doc:"Capture session identifier"`
	Stream    string `json:"stream,omitempty" example:"cam[0] 1920x1080@30 color" doc:"Stream the session opened on"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CameraStartedEvent.
func (e CameraStartedEvent) Type() uint32 { return TypeCameraStarted }

// FrameCapturedEvent carries per-frame metadata, never pixel data.
// Published for every captured frame; consumers needing pixels register
// a frame listener on the camera instead.
type FrameCapturedEvent struct {
	CameraID         string  `json:"camera_id" example:"front" doc:"Camera identifier"`
	SessionID        string  `json:"session_id" example:"4f1c..." doc:"Capture session identifier"`
	CaptureTime      float64 `json:"capture_time" example:"12.482" doc:"Process-relative capture timestamp in seconds"`
	Width            uint32  `json:"width" example:"1920" doc:"Frame width in pixels"`
	Height           uint32  `json:"height" example:"1080" doc:"Frame height in pixels"`
	PixelFormat      string  `json:"pixel_format" example:"bgra8" doc:"Pixel format of the captured frame"`
	ExposureDuration float64 `json:"exposure_duration" example:"0.008" doc:"Sensor exposure time in seconds"`
	Gain             float32 `json:"gain" example:"1.5" doc:"Sensor analog gain"`
}

// Type returns the event type identifier for FrameCapturedEvent.
func (e FrameCapturedEvent) Type() uint32 { return TypeFrameCaptured }

// DeviceAttachedEvent is published when hotplug reports a new video device.
type DeviceAttachedEvent struct {
	models.DeviceInfo
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceAttachedEvent.
func (e DeviceAttachedEvent) Type() uint32 { return TypeDeviceAttached }

// DeviceRemovedEvent is published when hotplug reports a device removal.
type DeviceRemovedEvent struct {
	DevicePath string `json:"device_path" example:"/dev/video0" doc:"System device path"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceRemovedEvent.
func (e DeviceRemovedEvent) Type() uint32 { return TypeDeviceRemoved }

// PoolTrimmedEvent reports a frame pool trim.
type PoolTrimmedEvent struct {
	Freed     int    `json:"freed" example:"6" doc:"Number of buffers released"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PoolTrimmedEvent.
func (e PoolTrimmedEvent) Type() uint32 { return TypePoolTrimmed }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"api" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
