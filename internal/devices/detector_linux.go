//go:build linux

package devices

import (
	"fmt"
	"os"
	"strings"

	"github.com/camnode/camnode/pkg/linuxav/v4l2"
)

type linuxDetector struct{}

func newDetector() Detector {
	return linuxDetector{}
}

func (linuxDetector) FindDevices() ([]DeviceInfo, error) {
	found, err := v4l2.FindDevices()
	if err != nil {
		return nil, err
	}

	devices := make([]DeviceInfo, len(found))
	for i, dev := range found {
		devices[i] = DeviceInfo{
			DevicePath: dev.DevicePath,
			DeviceName: dev.DeviceName,
			DeviceID:   dev.DeviceID,
			Caps:       dev.Caps,
		}
	}
	return devices, nil
}

// GetDevicePathByID tries the stable /dev/v4l symlinks first and falls
// back to full enumeration. IDs may also be literal /dev paths.
func (linuxDetector) GetDevicePathByID(deviceID string) (string, error) {
	if strings.HasPrefix(deviceID, "/dev/") {
		return deviceID, nil
	}

	for _, dir := range []string{"/dev/v4l/by-id/", "/dev/v4l/by-path/"} {
		candidate := dir + deviceID
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	path, err := v4l2.GetDevicePathByID(deviceID)
	if err != nil {
		return "", fmt.Errorf("resolve device %s: %w", deviceID, err)
	}
	return path, nil
}

func (linuxDetector) GetDeviceFormats(devicePath string) ([]FormatInfo, error) {
	found, err := v4l2.GetFormats(devicePath)
	if err != nil {
		return nil, err
	}

	formats := make([]FormatInfo, len(found))
	for i, f := range found {
		formats[i] = FormatInfo{
			PixelFormat: f.PixelFormat,
			FormatName:  f.FormatName,
			Emulated:    f.Emulated,
		}
	}
	return formats, nil
}

func (linuxDetector) GetDeviceResolutions(devicePath string, pixelFormat uint32) ([]Resolution, error) {
	found, err := v4l2.GetResolutions(devicePath, pixelFormat)
	if err != nil {
		return nil, err
	}

	resolutions := make([]Resolution, len(found))
	for i, r := range found {
		resolutions[i] = Resolution{Width: r.Width, Height: r.Height}
	}
	return resolutions, nil
}

func (linuxDetector) GetDeviceFramerates(devicePath string, pixelFormat uint32, width, height uint32) ([]Framerate, error) {
	found, err := v4l2.GetFramerates(devicePath, pixelFormat, width, height)
	if err != nil {
		return nil, err
	}

	framerates := make([]Framerate, len(found))
	for i, fr := range found {
		framerates[i] = Framerate{Numerator: fr.Numerator, Denominator: fr.Denominator}
	}
	return framerates, nil
}

func (linuxDetector) GetDeviceSignal(devicePath string, waitMs int) (SignalInfo, error) {
	if waitMs > 0 {
		// Devices without event support fall through to an immediate
		// probe.
		_, _ = v4l2.WaitForSourceChange(devicePath, waitMs)
	}

	probe := v4l2.ProbeDevice(devicePath)
	sig := v4l2.GetSignalStatus(devicePath)

	return SignalInfo{
		Kind:       probe.Kind.String(),
		Ready:      probe.Ready,
		State:      sig.State.String(),
		Width:      sig.Width,
		Height:     sig.Height,
		FPS:        sig.FPS,
		Interlaced: sig.Interlaced,
	}, nil
}
