package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/camnode/camnode/internal/api/models"
	"github.com/camnode/camnode/internal/cameras"
	"github.com/camnode/camnode/pkg/capture"
)

// CameraIDInput is the path parameter shared by camera endpoints.
type CameraIDInput struct {
	CameraID string `path:"camera_id" example:"front" doc:"Camera identifier"`
}

// CameraStartBody narrows which discovered stream a session opens on.
// Zero fields are unset; an empty body starts with the configured spec.
type CameraStartBody struct {
	Width     uint32  `json:"width,omitempty" example:"1920" doc:"Require streams wider or equal"`
	Height    uint32  `json:"height,omitempty" example:"1080" doc:"Require streams taller or equal"`
	Framerate float64 `json:"framerate,omitempty" example:"30.0" doc:"Require this exact framerate"`
}

// CameraStartInput combines the camera id with the optional filter body.
type CameraStartInput struct {
	CameraIDInput
	Body CameraStartBody
}

// mapCameraError converts manager and engine errors to Huma HTTP errors.
// Unknown cameras are 404; operations the current state forbids are 409,
// matching the engine's caller-misuse taxonomy; everything else is a
// device failure reported as 500.
func mapCameraError(err error) error {
	switch {
	case errors.Is(err, cameras.ErrNotFound):
		return huma.Error404NotFound("Camera not found", err)
	case errors.Is(err, capture.ErrInvalidOperation):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, cameras.ErrNoMatchingStream):
		return huma.Error409Conflict(err.Error())
	default:
		return huma.Error500InternalServerError("Camera operation failed", err)
	}
}

// cameraToAPI converts a manager snapshot to the API representation.
func cameraToAPI(info cameras.Info, streams []capture.StreamDescriptor) models.CameraData {
	data := models.CameraData{
		CameraID:       info.ID,
		State:          string(info.Stats.State),
		Mode:           string(info.Mode),
		PixelFormat:    info.Format.String(),
		Source:         info.Spec.Source,
		SessionID:      info.Stats.SessionID,
		FramesCaptured: info.Stats.FramesCaptured,
		FramesDropped:  info.Stats.FramesDropped,
		LastFrameAt:    info.Stats.LastFrameAt,
	}
	for _, d := range streams {
		data.Streams = append(data.Streams, models.StreamInfo{
			SourceName: d.SourceName,
			SourceID:   d.SourceID,
			Width:      d.Resolution.Width,
			Height:     d.Resolution.Height,
			Framerate:  d.Resolution.Framerate,
			Kind:       d.Kind.String(),
		})
	}
	return data
}

// actionResponse builds the uniform response for camera control calls.
func (s *Server) actionResponse(id, message string) (*models.CameraActionResponse, error) {
	state := ""
	if info, err := s.options.Manager.Get(id); err == nil {
		state = string(info.Stats.State)
	}
	return &models.CameraActionResponse{
		Body: models.CameraActionData{
			CameraID: id,
			State:    state,
			Message:  message,
		},
	}, nil
}

// registerCameraRoutes registers the camera list, detail, and control
// endpoints.
func (s *Server) registerCameraRoutes() {
	// List all configured cameras
	huma.Register(s.api, huma.Operation{
		OperationID: "list-cameras",
		Method:      http.MethodGet,
		Path:        "/api/cameras",
		Summary:     "List Cameras",
		Description: "List all configured cameras with their lifecycle state and counters",
		Tags:        []string{"cameras"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.CameraListResponse, error) {
		infos := s.options.Manager.List()
		apiCameras := make([]models.CameraData, 0, len(infos))
		for _, info := range infos {
			apiCameras = append(apiCameras, cameraToAPI(info, nil))
		}
		return &models.CameraListResponse{
			Body: models.CameraListData{
				Cameras: apiCameras,
				Count:   len(apiCameras),
			},
		}, nil
	})

	// Get one camera with its discovered streams
	huma.Register(s.api, huma.Operation{
		OperationID: "get-camera",
		Method:      http.MethodGet,
		Path:        "/api/cameras/{camera_id}",
		Summary:     "Get Camera",
		Description: "Get one camera's state, counters, and the streams its last discovery found",
		Tags:        []string{"cameras"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(ctx context.Context, input *CameraIDInput) (*models.CameraResponse, error) {
		info, err := s.options.Manager.Get(input.CameraID)
		if err != nil {
			return nil, mapCameraError(err)
		}
		streams, err := s.options.Manager.Catalog(input.CameraID)
		if err != nil {
			return nil, mapCameraError(err)
		}
		return &models.CameraResponse{Body: cameraToAPI(info, streams)}, nil
	})

	// Start a capture session
	huma.Register(s.api, huma.Operation{
		OperationID: "start-camera",
		Method:      http.MethodPost,
		Path:        "/api/cameras/{camera_id}/start",
		Summary:     "Start",
		Description: "Open a capture session. The optional body narrows stream selection; an empty body uses the configured resolution and framerate.",
		Tags:        []string{"cameras"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 500},
	}, func(ctx context.Context, input *CameraStartInput) (*models.CameraActionResponse, error) {
		filter := cameras.StreamFilter{
			Width:     input.Body.Width,
			Height:    input.Body.Height,
			Framerate: input.Body.Framerate,
		}
		if err := s.options.Manager.StartWithFilter(ctx, input.CameraID, filter); err != nil {
			return nil, mapCameraError(err)
		}
		return s.actionResponse(input.CameraID, "Capture started")
	})

	// Stop the capture session
	huma.Register(s.api, huma.Operation{
		OperationID: "stop-camera",
		Method:      http.MethodPost,
		Path:        "/api/cameras/{camera_id}/stop",
		Summary:     "Stop",
		Description: "Close the camera's capture session and release its device",
		Tags:        []string{"cameras"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409},
	}, func(ctx context.Context, input *CameraIDInput) (*models.CameraActionResponse, error) {
		if err := s.options.Manager.Stop(input.CameraID); err != nil {
			return nil, mapCameraError(err)
		}
		return s.actionResponse(input.CameraID, "Capture stopped")
	})

	// Arm a one-shot capture
	huma.Register(s.api, huma.Operation{
		OperationID: "camera-take-single",
		Method:      http.MethodPost,
		Path:        "/api/cameras/{camera_id}/single",
		Summary:     "Take Single",
		Description: "Arm a one-shot capture; the next frame arrival is captured and the camera returns to ready",
		Tags:        []string{"cameras"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409},
	}, func(ctx context.Context, input *CameraIDInput) (*models.CameraActionResponse, error) {
		if err := s.options.Manager.TakeSingle(input.CameraID); err != nil {
			return nil, mapCameraError(err)
		}
		return s.actionResponse(input.CameraID, "Single capture armed")
	})

	// Begin continuous capture
	huma.Register(s.api, huma.Operation{
		OperationID: "camera-continuous-start",
		Method:      http.MethodPost,
		Path:        "/api/cameras/{camera_id}/continuous/start",
		Summary:     "Start Continuous",
		Description: "Begin capturing every frame arrival on a continuous-mode camera",
		Tags:        []string{"cameras"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409},
	}, func(ctx context.Context, input *CameraIDInput) (*models.CameraActionResponse, error) {
		if err := s.options.Manager.StartContinuous(input.CameraID); err != nil {
			return nil, mapCameraError(err)
		}
		return s.actionResponse(input.CameraID, "Continuous capture started")
	})

	// Pause continuous capture
	huma.Register(s.api, huma.Operation{
		OperationID: "camera-continuous-stop",
		Method:      http.MethodPost,
		Path:        "/api/cameras/{camera_id}/continuous/stop",
		Summary:     "Stop Continuous",
		Description: "Return a continuously capturing camera to ready without closing the session",
		Tags:        []string{"cameras"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409},
	}, func(ctx context.Context, input *CameraIDInput) (*models.CameraActionResponse, error) {
		if err := s.options.Manager.StopContinuous(input.CameraID); err != nil {
			return nil, mapCameraError(err)
		}
		return s.actionResponse(input.CameraID, "Continuous capture stopped")
	})
}
