//go:build linux

package v4l2

// DeviceInfo contains information about a V4L2 device.
type DeviceInfo struct {
	DevicePath string
	DeviceName string
	DeviceID   string // Stable identifier (from /dev/v4l/by-id/ or synthetic)
	Caps       uint32
}

// FormatInfo contains information about a supported pixel format.
type FormatInfo struct {
	PixelFormat uint32
	FormatName  string
	Emulated    bool
}

// Resolution represents a supported video resolution.
type Resolution struct {
	Width  uint32
	Height uint32
}

// Framerate represents a supported framerate as a fraction.
type Framerate struct {
	Numerator   uint32
	Denominator uint32
}

// FPS returns the framerate as frames per second.
func (f Framerate) FPS() float64 {
	if f.Numerator == 0 {
		return 0
	}
	return float64(f.Denominator) / float64(f.Numerator)
}

// DeviceKind classifies what is behind a video node.
type DeviceKind int

// Device kinds.
const (
	KindWebcam  DeviceKind = 0
	KindHDMI    DeviceKind = 1
	KindUnknown DeviceKind = -1
)

func (k DeviceKind) String() string {
	switch k {
	case KindWebcam:
		return "webcam"
	case KindHDMI:
		return "hdmi"
	default:
		return "unknown"
	}
}

// SignalState describes the input signal on a capture device.
type SignalState int

// Signal states.
const (
	SignalStateNoDevice     SignalState = -1
	SignalStateNoLink       SignalState = 0 // No cable connected
	SignalStateNoSignal     SignalState = 1 // Cable connected, no signal
	SignalStateUnstable     SignalState = 2 // Signal present but unstable
	SignalStateLocked       SignalState = 3 // Signal locked and stable
	SignalStateOutOfRange   SignalState = 4 // Signal out of supported range
	SignalStateNotSupported SignalState = 5 // No DV timings on this device
)

func (s SignalState) String() string {
	switch s {
	case SignalStateNoDevice:
		return "no_device"
	case SignalStateNoLink:
		return "no_link"
	case SignalStateNoSignal:
		return "no_signal"
	case SignalStateUnstable:
		return "unstable"
	case SignalStateLocked:
		return "locked"
	case SignalStateOutOfRange:
		return "out_of_range"
	case SignalStateNotSupported:
		return "not_supported"
	default:
		return "no_signal"
	}
}

// SignalStatus is the input signal with its active timings when locked.
type SignalStatus struct {
	State      SignalState
	Width      uint32
	Height     uint32
	FPS        float64
	Interlaced bool
}

// DeviceProbe pairs the device kind with whether capture could start
// on it right now.
type DeviceProbe struct {
	Kind  DeviceKind
	Ready bool
}

// Capability flags.
const (
	V4L2_CAP_VIDEO_CAPTURE = 0x00000001
	V4L2_CAP_STREAMING     = 0x04000000
	V4L2_CAP_DEVICE_CAPS   = 0x80000000
)

// Format flags.
const (
	V4L2_FMT_FLAG_EMULATED = 0x0002
)

// Common pixel formats (little-endian fourcc codes).
const (
	V4L2_PIX_FMT_YUYV   = 0x56595559 // 'YUYV'
	V4L2_PIX_FMT_MJPEG  = 0x47504A4D // 'MJPG'
	V4L2_PIX_FMT_H264   = 0x34363248 // 'H264'
	V4L2_PIX_FMT_HEVC   = 0x43564548 // 'HEVC'
	V4L2_PIX_FMT_NV12   = 0x3231564E // 'NV12'
	V4L2_PIX_FMT_NV16   = 0x3631564E // 'NV16'
	V4L2_PIX_FMT_YUV420 = 0x32315559 // 'YU12'
	V4L2_PIX_FMT_YVU420 = 0x32315659 // 'YV12'
	V4L2_PIX_FMT_RGB24  = 0x33424752 // 'RGB3'
	V4L2_PIX_FMT_BGR24  = 0x33524742 // 'BGR3'
	V4L2_PIX_FMT_GREY   = 0x59455247 // 'GREY'
	V4L2_PIX_FMT_Y16    = 0x20363159 // 'Y16 '
)

// Frame size types.
const (
	V4L2_FRMSIZE_TYPE_DISCRETE   = 1
	V4L2_FRMSIZE_TYPE_CONTINUOUS = 2
	V4L2_FRMSIZE_TYPE_STEPWISE   = 3
)

// Frame interval types.
const (
	V4L2_FRMIVAL_TYPE_DISCRETE   = 1
	V4L2_FRMIVAL_TYPE_CONTINUOUS = 2
	V4L2_FRMIVAL_TYPE_STEPWISE   = 3
)

// Buffer types and memory models.
const (
	V4L2_BUF_TYPE_VIDEO_CAPTURE = 1
	V4L2_MEMORY_MMAP            = 1
	V4L2_FIELD_NONE             = 1
)

// Buffer flags.
const (
	V4L2_BUF_FLAG_ERROR = 0x0040
)

// Event types.
const (
	V4L2_EVENT_SOURCE_CHANGE = 5
)
