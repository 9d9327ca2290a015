package nats

import (
	"encoding/json"
	"fmt"
)

// Subject prefixes for NATS topics.
const (
	SubjectCamerasPrefix = "camnode.cameras"
	SubjectControlPrefix = "camnode.control"
)

// Control actions accepted on the control subject.
const (
	ActionStart  = "start"
	ActionStop   = "stop"
	ActionSingle = "single"
)

// SubjectCameraState returns the full NATS subject for camera state changes.
func SubjectCameraState(cameraID string) string {
	return fmt.Sprintf("%s.%s.state", SubjectCamerasPrefix, cameraID)
}

// SubjectCameraFrames returns the full NATS subject for frame notifications.
func SubjectCameraFrames(cameraID string) string {
	return fmt.Sprintf("%s.%s.frames", SubjectCamerasPrefix, cameraID)
}

// SubjectControl returns the NATS subject for a control command.
func SubjectControl(cameraID, action string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectControlPrefix, cameraID, action)
}

// StateMessage represents a camera state transition sent over NATS.
type StateMessage struct {
	CameraID  string `json:"camera_id"`
	Timestamp string `json:"timestamp"`
	OldState  string `json:"old_state"`
	NewState  string `json:"new_state"`
}

// Marshal serializes the message to JSON.
func (m StateMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// FrameMessage announces a captured frame. It carries metadata only;
// pixel data never crosses NATS.
type FrameMessage struct {
	CameraID    string  `json:"camera_id"`
	SessionID   string  `json:"session_id"`
	Timestamp   string  `json:"timestamp"`
	CaptureTime float64 `json:"capture_time"`
	Width       uint32  `json:"width"`
	Height      uint32  `json:"height"`
	PixelFormat string  `json:"pixel_format"`
}

// Marshal serializes the message to JSON.
func (m FrameMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// ControlMessage represents a control command sent to the daemon. The
// subject already names the camera and action; the body duplicates them
// for consumers that log or archive commands.
type ControlMessage struct {
	Action    string `json:"action"` // start, stop, single
	CameraID  string `json:"camera_id"`
	Timestamp string `json:"timestamp"`
	Reason    string `json:"reason,omitempty"`
}

// Marshal serializes the message to JSON.
func (m ControlMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalState deserializes a StateMessage from JSON.
func UnmarshalState(data []byte) (StateMessage, error) {
	var m StateMessage
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalFrame deserializes a FrameMessage from JSON.
func UnmarshalFrame(data []byte) (FrameMessage, error) {
	var m FrameMessage
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalControl deserializes a ControlMessage from JSON. An empty
// payload is a valid command; the subject carries the routing.
func UnmarshalControl(data []byte) (ControlMessage, error) {
	var m ControlMessage
	if len(data) == 0 {
		return m, nil
	}
	err := json.Unmarshal(data, &m)
	return m, err
}
