package models

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// StreamInfo is one selectable stream of a camera's catalog.
type StreamInfo struct {
	SourceName string  `json:"source_name" example:"cam" doc:"Source-assigned stream name"`
	SourceID   string  `json:"source_id" example:"0" doc:"Source-assigned stream identifier"`
	Width      uint32  `json:"width" example:"1920" doc:"Stream width in pixels"`
	Height     uint32  `json:"height" example:"1080" doc:"Stream height in pixels"`
	Framerate  float64 `json:"framerate" example:"30.0" doc:"Frames per second"`
	Kind       string  `json:"kind" example:"color" doc:"Sensor kind: color, infrared, depth"`
}

// Camera models
type CameraData struct {
	CameraID       string       `json:"camera_id" example:"front" doc:"Camera identifier"`
	State          string       `json:"state" example:"ready" doc:"Lifecycle state"`
	Mode           string       `json:"mode" example:"continuous" doc:"Configured capture mode"`
	PixelFormat    string       `json:"pixel_format" example:"bgra8" doc:"Delivery pixel format"`
	Source         string       `json:"source" example:"v4l2" doc:"Backend source name"`
	SessionID      string       `json:"session_id,omitempty" example:"4f1c..." doc:"Current capture session identifier"`
	Streams        []StreamInfo `json:"streams,omitempty" doc:"Streams discovered by the last initialize"`
	FramesCaptured uint64       `json:"frames_captured" example:"1042" doc:"Frames captured this process"`
	FramesDropped  uint64       `json:"frames_dropped" example:"3" doc:"Arrivals dropped this process"`
	LastFrameAt    float64      `json:"last_frame_at,omitempty" example:"12.482" doc:"Process-relative timestamp of the newest frame"`
}

type CameraListData struct {
	Cameras []CameraData `json:"cameras" doc:"Configured cameras"`
	Count   int          `json:"count" example:"2" doc:"Number of configured cameras"`
}

type CameraListResponse struct {
	Body CameraListData
}

type CameraResponse struct {
	Body CameraData
}

// CameraActionData reports the outcome of a camera control operation.
type CameraActionData struct {
	CameraID string `json:"camera_id" example:"front" doc:"Camera identifier"`
	State    string `json:"state" example:"ready" doc:"State after the operation"`
	Message  string `json:"message" example:"Capture started" doc:"Operation result message"`
}

type CameraActionResponse struct {
	Body CameraActionData
}

// Frame pool models
type PoolStatsData struct {
	Free         int    `json:"free" example:"4" doc:"Buffers on the free list"`
	InUse        int    `json:"in_use" example:"2" doc:"Buffers held by consumers"`
	FreeBytes    int64  `json:"free_bytes" example:"33177600" doc:"Bytes held by free buffers"`
	InUseBytes   int64  `json:"in_use_bytes" example:"16588800" doc:"Bytes held by in-use buffers"`
	Acquires     uint64 `json:"acquires" example:"1042" doc:"Lifetime acquire count"`
	Reuses       uint64 `json:"reuses" example:"1036" doc:"Acquires served from the free list"`
	Allocs       uint64 `json:"allocs" example:"6" doc:"Acquires that allocated"`
	Recycles     uint64 `json:"recycles" example:"1040" doc:"Frames returned to the free list"`
	Trims        uint64 `json:"trims" example:"1" doc:"Trim operations"`
	OverReleases uint64 `json:"over_releases" example:"0" doc:"Releases observed on zero-reference frames"`
}

type PoolStatsResponse struct {
	Body PoolStatsData
}

type PoolTrimData struct {
	Freed   int    `json:"freed" example:"4" doc:"Buffers released by the trim"`
	Message string `json:"message" example:"Pool trimmed" doc:"Operation result message"`
}

type PoolTrimResponse struct {
	Body PoolTrimData
}

// Log models
type LogEntryData struct {
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"cameras" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

type LogsData struct {
	Logs  []LogEntryData `json:"logs" doc:"Log entries, oldest first"`
	Count int            `json:"count" example:"100" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}

// Error response
type ErrorData struct {
	Status  string `json:"status" example:"error" doc:"Error status"`
	Message string `json:"message" example:"Camera not found" doc:"Error message"`
}

type ErrorResponse struct {
	Body ErrorData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15 14:30" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"a1b2c3d4" doc:"Unique build identifier"`
	GoVersion string `json:"go_version" example:"go1.21.0" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Compiler used"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}
