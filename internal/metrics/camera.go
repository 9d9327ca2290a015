// Package metrics exposes the daemon's Prometheus series: camera
// lifecycle state, per-camera frame counters, and frame pool occupancy.
// Series are fed by the Recorder, which listens on the event bus and
// samples the camera manager.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cameraState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camnode",
		Subsystem: "camera",
		Name:      "state",
		Help:      "Current camera state, one series per state with value 1",
	}, []string{"camera_id", "state"})

	cameraFramesCaptured = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camnode",
		Subsystem: "camera",
		Name:      "frames_captured_total",
		Help:      "Frames captured in the camera's current session",
	}, []string{"camera_id"})

	cameraFramesDropped = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camnode",
		Subsystem: "camera",
		Name:      "frames_dropped_total",
		Help:      "Frames dropped in the camera's current session",
	}, []string{"camera_id"})

	cameraLastFrame = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camnode",
		Subsystem: "camera",
		Name:      "last_frame_timestamp_seconds",
		Help:      "Process-relative capture timestamp of the newest frame",
	}, []string{"camera_id"})
)

// SetCameraState moves a camera's state series: the previous state's
// series is removed and the new state's set to 1, so each camera
// contributes exactly one state series at a time.
func SetCameraState(cameraID, oldState, newState string) {
	if oldState != "" {
		cameraState.DeleteLabelValues(cameraID, oldState)
	}
	cameraState.WithLabelValues(cameraID, newState).Set(1)
}

// SetCameraFrames records a camera's session frame counters and the
// capture timestamp of its newest frame.
func SetCameraFrames(cameraID string, captured, dropped uint64, lastFrameAt float64) {
	cameraFramesCaptured.WithLabelValues(cameraID).Set(float64(captured))
	cameraFramesDropped.WithLabelValues(cameraID).Set(float64(dropped))
	cameraLastFrame.WithLabelValues(cameraID).Set(lastFrameAt)
}

// DeleteCameraMetrics removes every series for a camera.
func DeleteCameraMetrics(cameraID string) {
	cameraState.DeletePartialMatch(prometheus.Labels{"camera_id": cameraID})
	cameraFramesCaptured.DeleteLabelValues(cameraID)
	cameraFramesDropped.DeleteLabelValues(cameraID)
	cameraLastFrame.DeleteLabelValues(cameraID)
}
