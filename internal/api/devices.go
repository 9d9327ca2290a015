package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/camnode/camnode/internal/api/models"
)

// DevicePathInput identifies a device by its stable ID.
type DevicePathInput struct {
	DeviceID string `path:"device_id" example:"usb-0000:00:14.0-1" doc:"Stable device identifier"`
}

// DeviceFormatInput selects a pixel format on a device.
type DeviceFormatInput struct {
	DevicePathInput
	FormatName models.SourceFormat `query:"format_name" example:"yuyv422" doc:"Sensor-side format name"`
}

// DeviceResolutionInput selects a format and frame size on a device.
type DeviceResolutionInput struct {
	DeviceFormatInput
	Width  uint32 `query:"width" example:"1920" doc:"Frame width in pixels"`
	Height uint32 `query:"height" example:"1080" doc:"Frame height in pixels"`
}

// DeviceSignalInput identifies a device with an optional wait for a
// signal change.
type DeviceSignalInput struct {
	DevicePathInput
	WaitMs int `query:"wait_ms" minimum:"0" maximum:"30000" example:"0" doc:"Milliseconds to wait for a signal change before probing"`
}

// V4L2 capability flags (linux/videodev2.h) relevant to capture devices.
const (
	capVideoCapture       = 0x00000001
	capVideoOutput        = 0x00000002
	capVideoOverlay       = 0x00000004
	capVideoCaptureMplane = 0x00001000
	capVideoM2M           = 0x00008000
	capAudio              = 0x00020000
	capMetaCapture        = 0x00800000
	capReadWrite          = 0x01000000
	capAsyncIO            = 0x02000000
	capStreaming          = 0x04000000
	capTouch              = 0x10000000
	capIOMC               = 0x20000000
)

// translateCapabilities converts V4L2 capability flags to readable names.
func translateCapabilities(caps uint32) []string {
	capNames := []struct {
		flag uint32
		name string
	}{
		{capVideoCapture, "Video Capture"},
		{capVideoOutput, "Video Output"},
		{capVideoOverlay, "Video Overlay"},
		{capVideoCaptureMplane, "Multi-planar Video Capture"},
		{capVideoM2M, "Memory-to-Memory"},
		{capAudio, "Audio"},
		{capMetaCapture, "Metadata Capture"},
		{capReadWrite, "Read/Write I/O"},
		{capAsyncIO, "Asynchronous I/O"},
		{capStreaming, "Streaming I/O"},
		{capTouch, "Touch Device"},
		{capIOMC, "Media Controller I/O"},
	}

	var names []string
	for _, c := range capNames {
		if caps&c.flag != 0 {
			names = append(names, c.name)
		}
	}
	return names
}

// registerDeviceRoutes registers the device enumeration endpoints. All
// of them go through the platform detector, so on hosts without V4L2
// they answer with empty lists rather than errors.
func (s *Server) registerDeviceRoutes() {
	// List all capture devices
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List Devices",
		Description: "List all video capture devices currently present",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, input *struct{}) (*models.DeviceResponse, error) {
		found, err := s.options.Detector.FindDevices()
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to enumerate devices", err)
		}

		apiDevices := make([]models.DeviceInfo, len(found))
		for i, dev := range found {
			apiDevices[i] = models.DeviceInfo{
				DevicePath:   dev.DevicePath,
				DeviceName:   dev.DeviceName,
				DeviceID:     dev.DeviceID,
				Caps:         dev.Caps,
				Capabilities: translateCapabilities(dev.Caps),
			}
		}

		return &models.DeviceResponse{
			Body: models.DeviceData{
				Devices: apiDevices,
				Count:   len(apiDevices),
			},
		}, nil
	})

	// List formats a device offers
	huma.Register(s.api, huma.Operation{
		OperationID: "device-formats",
		Method:      http.MethodGet,
		Path:        "/api/devices/{device_id}/formats",
		Summary:     "Formats",
		Description: "List supported pixel formats for a specific device",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 500},
	}, func(ctx context.Context, input *DevicePathInput) (*models.DeviceCapabilitiesResponse, error) {
		devicePath, err := s.options.Detector.GetDevicePathByID(input.DeviceID)
		if err != nil {
			return nil, huma.Error404NotFound("Device not found", err)
		}

		found, err := s.options.Detector.GetDeviceFormats(devicePath)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to query device formats", err)
		}

		// Formats without an engine-side conversion are not selectable
		// and stay off the list.
		formats := make([]models.FormatInfo, 0, len(found))
		for _, f := range found {
			name := models.FourccToName(f.PixelFormat)
			if name == "unknown" {
				continue
			}
			formats = append(formats, models.FormatInfo{
				FormatName:   name,
				OriginalName: f.FormatName,
				Emulated:     f.Emulated,
			})
		}

		return &models.DeviceCapabilitiesResponse{
			Body: models.DeviceCapabilitiesData{
				DevicePath: devicePath,
				Formats:    formats,
			},
		}, nil
	})

	// List frame sizes for a format
	huma.Register(s.api, huma.Operation{
		OperationID: "device-resolutions",
		Method:      http.MethodGet,
		Path:        "/api/devices/{device_id}/resolutions",
		Summary:     "Resolutions",
		Description: "List supported resolutions for a specific format",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404, 500},
	}, func(ctx context.Context, input *DeviceFormatInput) (*models.DeviceResolutionsResponse, error) {
		devicePath, err := s.options.Detector.GetDevicePathByID(input.DeviceID)
		if err != nil {
			return nil, huma.Error404NotFound("Device not found", err)
		}

		fourcc, err := input.FormatName.Fourcc()
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid format name", err)
		}

		found, err := s.options.Detector.GetDeviceResolutions(devicePath, fourcc)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to query device resolutions", err)
		}

		resolutions := make([]models.Resolution, len(found))
		for i, r := range found {
			resolutions[i] = models.Resolution{Width: r.Width, Height: r.Height}
		}

		return &models.DeviceResolutionsResponse{
			Body: models.DeviceResolutionsData{Resolutions: resolutions},
		}, nil
	})

	// Device class and input signal
	huma.Register(s.api, huma.Operation{
		OperationID: "device-signal",
		Method:      http.MethodGet,
		Path:        "/api/devices/{device_id}/signal",
		Summary:     "Signal",
		Description: "Report the device class and input signal state; for HDMI bridges the locked timings",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 500},
	}, func(ctx context.Context, input *DeviceSignalInput) (*models.DeviceSignalResponse, error) {
		devicePath, err := s.options.Detector.GetDevicePathByID(input.DeviceID)
		if err != nil {
			return nil, huma.Error404NotFound("Device not found", err)
		}

		sig, err := s.options.Detector.GetDeviceSignal(devicePath, input.WaitMs)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to probe device signal", err)
		}

		return &models.DeviceSignalResponse{
			Body: models.DeviceSignalData{
				DevicePath: devicePath,
				Kind:       sig.Kind,
				Ready:      sig.Ready,
				State:      sig.State,
				Width:      sig.Width,
				Height:     sig.Height,
				Fps:        sig.FPS,
				Interlaced: sig.Interlaced,
			},
		}, nil
	})

	// List frame intervals for a format and resolution
	huma.Register(s.api, huma.Operation{
		OperationID: "device-framerates",
		Method:      http.MethodGet,
		Path:        "/api/devices/{device_id}/framerates",
		Summary:     "Framerates",
		Description: "List supported framerates for a specific format and resolution",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404, 500},
	}, func(ctx context.Context, input *DeviceResolutionInput) (*models.DeviceFrameratesResponse, error) {
		devicePath, err := s.options.Detector.GetDevicePathByID(input.DeviceID)
		if err != nil {
			return nil, huma.Error404NotFound("Device not found", err)
		}

		fourcc, err := input.FormatName.Fourcc()
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid format name", err)
		}
		if input.Width == 0 || input.Height == 0 {
			return nil, huma.Error400BadRequest("width and height are required")
		}

		found, err := s.options.Detector.GetDeviceFramerates(devicePath, fourcc, input.Width, input.Height)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to query device framerates", err)
		}

		framerates := make([]models.Framerate, len(found))
		for i, fr := range found {
			framerates[i] = models.Framerate{
				Numerator:   fr.Numerator,
				Denominator: fr.Denominator,
				Fps:         fr.FPS(),
			}
		}

		return &models.DeviceFrameratesResponse{
			Body: models.DeviceFrameratesData{Framerates: framerates},
		}, nil
	})
}
