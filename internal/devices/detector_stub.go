//go:build !linux

package devices

import "errors"

var errUnsupported = errors.New("device detection not supported on this platform")

type stubDetector struct{}

func newDetector() Detector {
	return stubDetector{}
}

func (stubDetector) FindDevices() ([]DeviceInfo, error) {
	return nil, nil
}

func (stubDetector) GetDevicePathByID(deviceID string) (string, error) {
	return "", errUnsupported
}

func (stubDetector) GetDeviceFormats(devicePath string) ([]FormatInfo, error) {
	return nil, errUnsupported
}

func (stubDetector) GetDeviceResolutions(devicePath string, pixelFormat uint32) ([]Resolution, error) {
	return nil, errUnsupported
}

func (stubDetector) GetDeviceFramerates(devicePath string, pixelFormat uint32, width, height uint32) ([]Framerate, error) {
	return nil, errUnsupported
}

func (stubDetector) GetDeviceSignal(devicePath string, waitMs int) (SignalInfo, error) {
	return SignalInfo{}, errUnsupported
}
