// Package devices enumerates video capture devices and watches for
// hotplug changes. Enumeration goes through the Detector interface so
// the API and CLI work on platforms without V4L2; the Monitor publishes
// attach and remove events on the bus.
package devices

// DeviceInfo describes one capture device.
type DeviceInfo struct {
	DevicePath string // /dev/video0
	DeviceName string // Driver-reported card name
	DeviceID   string // Stable identifier (USB bus/port), empty if none
	Caps       uint32 // Raw V4L2 capability flags
}

// FormatInfo describes one pixel format a device offers.
type FormatInfo struct {
	PixelFormat uint32 // Fourcc
	FormatName  string // Driver-reported description
	Emulated    bool   // Converted by libv4l rather than native
}

// Resolution is a discrete frame size a device supports.
type Resolution struct {
	Width  uint32
	Height uint32
}

// Framerate is a frame interval expressed as a fraction. FPS is
// Denominator/Numerator since V4L2 enumerates intervals, not rates.
type Framerate struct {
	Numerator   uint32
	Denominator uint32
}

// FPS returns the framerate in frames per second.
func (f Framerate) FPS() float64 {
	if f.Numerator == 0 {
		return 0
	}
	return float64(f.Denominator) / float64(f.Numerator)
}

// SignalInfo describes a device's class and current input signal.
// Webcams are always ready; HDMI bridges are ready only with a locked
// signal, and then carry the active timings.
type SignalInfo struct {
	Kind       string  // webcam, hdmi, unknown
	Ready      bool    // Capture could start right now
	State      string  // locked, no_link, no_signal, unstable, out_of_range, not_supported, no_device
	Width      uint32  // Active width when locked
	Height     uint32  // Active height when locked
	FPS        float64 // Derived from the locked timings
	Interlaced bool
}

// Detector enumerates capture devices and their modes.
type Detector interface {
	// FindDevices returns all capture devices currently present.
	FindDevices() ([]DeviceInfo, error)

	// GetDevicePathByID resolves a stable device ID to its current path.
	GetDevicePathByID(deviceID string) (string, error)

	// GetDeviceFormats returns the pixel formats a device offers.
	GetDeviceFormats(devicePath string) ([]FormatInfo, error)

	// GetDeviceResolutions returns the frame sizes for a format.
	GetDeviceResolutions(devicePath string, pixelFormat uint32) ([]Resolution, error)

	// GetDeviceFramerates returns the frame intervals for a mode.
	GetDeviceFramerates(devicePath string, pixelFormat uint32, width, height uint32) ([]Framerate, error)

	// GetDeviceSignal probes the device class and input signal. A
	// positive waitMs first blocks up to that long for a signal
	// change, on devices that can announce one.
	GetDeviceSignal(devicePath string, waitMs int) (SignalInfo, error)
}

// NewDetector returns the platform's detector. On platforms without
// V4L2 it reports no devices.
func NewDetector() Detector {
	return newDetector()
}
