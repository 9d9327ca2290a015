package models

import (
	"fmt"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"
)

// SourceFormat represents supported sensor-side format names
type SourceFormat string

// Single source of truth - all definitions here
const (
	SourceYUYV422 SourceFormat = "yuyv422"
	SourceNV12    SourceFormat = "nv12"
	SourceYU12    SourceFormat = "yu12"
	SourceYV12    SourceFormat = "yv12"
	SourceBGR24   SourceFormat = "bgr24" // BGR3 - 24-bit BGR
	SourceRGB24   SourceFormat = "rgb24" // RGB3 - 24-bit RGB
	SourceNV16    SourceFormat = "nv16"  // Y/UV 4:2:2 (half chroma)
	SourceGrey    SourceFormat = "grey"  // 8-bit greyscale (infrared sensors)
	SourceY16     SourceFormat = "y16"   // 16-bit greyscale (depth/infrared sensors)
)

// Fourcc mappings - single source of truth
var sourceFormatToFourcc = map[SourceFormat]uint32{
	SourceYUYV422: 1448695129, // YUYV
	SourceNV12:    842094158,  // NV12
	SourceYU12:    842093913,  // YU12/I420
	SourceYV12:    842094169,  // YV12
	SourceBGR24:   861030210,  // BGR3
	SourceRGB24:   859981650,  // RGB3
	SourceNV16:    909203022,  // NV16
	SourceGrey:    1497715271, // GREY
	SourceY16:     540422489,  // Y16
}

// Implement SchemaProvider for dynamic enum validation
func (SourceFormat) Schema(r huma.Registry) *huma.Schema {
	// Generate enum values dynamically from our map
	enumValues := make([]any, 0, len(sourceFormatToFourcc))
	for format := range sourceFormatToFourcc {
		enumValues = append(enumValues, string(format))
	}

	return &huma.Schema{
		Type:        huma.TypeString,
		Enum:        enumValues,
		Description: "Supported sensor-side format names",
	}
}

// Utility methods derived from the map
func (sf SourceFormat) Fourcc() (uint32, error) {
	if code, exists := sourceFormatToFourcc[sf]; exists {
		return code, nil
	}
	return 0, fmt.Errorf("unsupported format: %s", sf)
}

func (sf SourceFormat) IsValid() bool {
	_, exists := sourceFormatToFourcc[sf]
	return exists
}

// FourccToName converts V4L2 pixel format codes to human-readable names
func FourccToName(fourcc uint32) string {
	// Reverse lookup in our map
	for format, code := range sourceFormatToFourcc {
		if code == fourcc {
			return string(format)
		}
	}

	logger := slog.With("component", "device_models")
	logger.Warn("Unknown pixel format code", "fourcc", fourcc)
	return "unknown"
}

// DeviceInfo describes one enumerated capture device.
type DeviceInfo struct {
	DevicePath   string   `json:"device_path" example:"/dev/video0" doc:"Device node path"`
	DeviceName   string   `json:"device_name" example:"USB Camera" doc:"Driver-reported device name"`
	DeviceID     string   `json:"device_id" example:"usb-0000:00:14.0-1" doc:"Identifier stable across reboots and re-plugs"`
	Caps         uint32   `json:"caps" example:"84000001" doc:"Raw V4L2 capability flags"`
	Capabilities []string `json:"capabilities" example:"[\"Video Capture\", \"Streaming I/O\"]" doc:"Decoded capability names"`
}

// FormatInfo is one pixel format a device offers.
type FormatInfo struct {
	FormatName   string `json:"format_name" example:"yuyv422" doc:"Format name usable in camera specs"`
	OriginalName string `json:"original_name" example:"YUYV 4:2:2" doc:"Name as the V4L2 driver reports it"`
	Emulated     bool   `json:"emulated" example:"false" doc:"True when libv4l emulates the format in software"`
}

type Resolution struct {
	Width  uint32 `json:"width" example:"1920" doc:"Width in pixels"`
	Height uint32 `json:"height" example:"1080" doc:"Height in pixels"`
}

// Framerate keeps the driver's exact fraction next to the rounded
// fps figure clients display.
type Framerate struct {
	Numerator   uint32  `json:"numerator" example:"1" doc:"Frame interval numerator"`
	Denominator uint32  `json:"denominator" example:"30" doc:"Frame interval denominator"`
	Fps         float64 `json:"fps" example:"30.0" doc:"Frames per second"`
}

type DeviceData struct {
	Devices []DeviceInfo `json:"devices" doc:"Capture devices found"`
	Count   int          `json:"count" example:"2" doc:"Number of devices found"`
}

type DeviceResponse struct {
	Body DeviceData
}

type DeviceCapabilitiesData struct {
	DevicePath string       `json:"device_path" example:"/dev/video0" doc:"Device node path"`
	Formats    []FormatInfo `json:"formats" doc:"Formats the engine can capture from this device"`
}

type DeviceCapabilitiesResponse struct {
	Body DeviceCapabilitiesData
}

type DeviceResolutionsData struct {
	Resolutions []Resolution `json:"resolutions" doc:"Frame sizes offered for the format"`
}

type DeviceResolutionsResponse struct {
	Body DeviceResolutionsData
}

type DeviceFrameratesData struct {
	Framerates []Framerate `json:"framerates" doc:"Rates offered for the format and resolution"`
}

type DeviceFrameratesResponse struct {
	Body DeviceFrameratesData
}

// DeviceSignalData reports the device class and its input signal. The
// timing fields are only meaningful when the state is locked.
type DeviceSignalData struct {
	DevicePath string  `json:"device_path" example:"/dev/video0" doc:"Path to the video device"`
	Kind       string  `json:"kind" example:"hdmi" doc:"Device class: webcam, hdmi or unknown"`
	Ready      bool    `json:"ready" example:"true" doc:"Whether capture could start right now"`
	State      string  `json:"state" example:"locked" doc:"Input signal state"`
	Width      uint32  `json:"width,omitempty" example:"1920" doc:"Active signal width in pixels"`
	Height     uint32  `json:"height,omitempty" example:"1080" doc:"Active signal height in pixels"`
	Fps        float64 `json:"fps,omitempty" example:"60.0" doc:"Active signal refresh rate"`
	Interlaced bool    `json:"interlaced,omitempty" example:"false" doc:"Whether the signal is interlaced"`
}

type DeviceSignalResponse struct {
	Body DeviceSignalData
}
