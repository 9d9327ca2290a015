//go:build linux

package v4l2

import (
	"errors"
	"syscall"
	"unsafe"
)

// ErrEventsNotSupported reports a driver without V4L2 event support.
var ErrEventsNotSupported = syscall.ENOTSUP

// ProbeDevice classifies a node and reports whether capture could
// start on it right now. HDMI bridges are ready only with a locked
// signal; webcams are ready whenever they open.
func ProbeDevice(devicePath string) DeviceProbe {
	probe := DeviceProbe{Kind: KindUnknown}

	fd, err := open(devicePath)
	if err != nil {
		return probe
	}
	defer close(fd)

	caps := v4l2_capability{}
	if err := ioctl(fd, VIDIOC_QUERYCAP, unsafe.Pointer(&caps)); err != nil {
		return probe
	}

	// A device that answers G_DV_TIMINGS, even with a link error, is
	// an HDMI-style bridge.
	timings := v4l2_dv_timings{}
	err = ioctl(fd, VIDIOC_G_DV_TIMINGS, unsafe.Pointer(&timings))
	if err == nil || errors.Is(err, syscall.ENOLINK) || errors.Is(err, syscall.ENOLCK) {
		probe.Kind = KindHDMI
		probe.Ready = err == nil && timingsLocked(&timings)
		return probe
	}

	if cstr(caps.driver[:]) == "uvcvideo" {
		probe.Kind = KindWebcam
	}
	probe.Ready = true
	return probe
}

// GetSignalStatus reads the input signal state of a device. Webcams
// and other sensors without DV timings report SignalStateNotSupported.
func GetSignalStatus(devicePath string) SignalStatus {
	fd, err := open(devicePath)
	if err != nil {
		return SignalStatus{State: SignalStateNoDevice}
	}
	defer close(fd)

	timings := v4l2_dv_timings{}
	err = ioctl(fd, VIDIOC_G_DV_TIMINGS, unsafe.Pointer(&timings))
	if err == nil {
		if !timingsLocked(&timings) {
			return SignalStatus{State: SignalStateNoSignal}
		}
		return SignalStatus{
			State:      SignalStateLocked,
			Width:      timings.bt.width,
			Height:     timings.bt.height,
			FPS:        calculateFPS(&timings.bt),
			Interlaced: timings.bt.interlaced != 0,
		}
	}

	switch {
	case errors.Is(err, syscall.ENOLINK):
		return SignalStatus{State: SignalStateNoLink}
	case errors.Is(err, syscall.ENOLCK):
		return SignalStatus{State: SignalStateUnstable}
	case errors.Is(err, syscall.ERANGE):
		return SignalStatus{State: SignalStateOutOfRange}
	case errors.Is(err, syscall.ENOTTY):
		return SignalStatus{State: SignalStateNotSupported}
	default:
		return SignalStatus{State: SignalStateNoSignal}
	}
}

// WaitForSourceChange blocks until the device announces a source
// change or the timeout passes, returning true when a change fired.
// Drivers without event support return ErrEventsNotSupported.
func WaitForSourceChange(devicePath string, timeoutMs int) (bool, error) {
	fd, err := open(devicePath)
	if err != nil {
		return false, err
	}
	defer close(fd)

	sub := v4l2_event_subscription{typ: V4L2_EVENT_SOURCE_CHANGE}
	if err := ioctl(fd, VIDIOC_SUBSCRIBE_EVENT, unsafe.Pointer(&sub)); err != nil {
		if errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EINVAL) {
			return false, ErrEventsNotSupported
		}
		return false, err
	}
	defer func() { _ = ioctl(fd, VIDIOC_UNSUBSCRIBE_EVENT, unsafe.Pointer(&sub)) }()

	// V4L2 events arrive on the exception set, not the read set.
	var exceptFds syscall.FdSet
	fdSet(fd, &exceptFds)

	var tv *syscall.Timeval
	if timeoutMs > 0 {
		tv = makeTimeval(timeoutMs)
	}

	n, err := syscall.Select(fd+1, nil, nil, &exceptFds, tv)
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	event := v4l2_event{}
	if err := ioctl(fd, VIDIOC_DQEVENT, unsafe.Pointer(&event)); err != nil {
		return false, err
	}
	return true, nil
}

// timingsLocked reports whether the timings describe an actual signal.
func timingsLocked(t *v4l2_dv_timings) bool {
	return t.bt.width > 0 && t.bt.height > 0 && t.bt.pixelClock() > 0
}

// calculateFPS derives the refresh rate from BT.656/BT.1120 timings:
// pixel clock over total frame size including blanking.
func calculateFPS(bt *v4l2_bt_timings) float64 {
	pixelclock := bt.pixelClock()
	if pixelclock == 0 {
		return 0
	}

	totalWidth := uint64(bt.width + bt.hfrontporch + bt.hsync + bt.hbackporch)
	totalHeight := uint64(bt.height + bt.vfrontporch + bt.vsync + bt.vbackporch)
	if bt.interlaced != 0 {
		totalHeight /= 2
	}
	if totalWidth == 0 || totalHeight == 0 {
		return 0
	}

	return float64(pixelclock) / float64(totalWidth*totalHeight)
}
