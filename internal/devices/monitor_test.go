package devices

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/camnode/camnode/internal/events"
)

type fakeDetector struct {
	mu      sync.Mutex
	devices []DeviceInfo
	err     error
}

func (f *fakeDetector) set(devices []DeviceInfo, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices = devices
	f.err = err
}

func (f *fakeDetector) FindDevices() ([]DeviceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]DeviceInfo(nil), f.devices...), nil
}

func (f *fakeDetector) GetDevicePathByID(string) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeDetector) GetDeviceFormats(string) ([]FormatInfo, error) {
	return nil, nil
}

func (f *fakeDetector) GetDeviceResolutions(string, uint32) ([]Resolution, error) {
	return nil, nil
}

func (f *fakeDetector) GetDeviceFramerates(string, uint32, uint32, uint32) ([]Framerate, error) {
	return nil, nil
}

func (f *fakeDetector) GetDeviceSignal(string, int) (SignalInfo, error) {
	return SignalInfo{}, nil
}

func newTestMonitor() (*Monitor, *fakeDetector, chan events.DeviceAttachedEvent, chan events.DeviceRemovedEvent, func()) {
	bus := events.New()
	det := &fakeDetector{}
	mon := NewMonitor(bus, det)

	attached := make(chan events.DeviceAttachedEvent, 8)
	removed := make(chan events.DeviceRemovedEvent, 8)
	unsub1 := bus.Subscribe(func(e events.DeviceAttachedEvent) { attached <- e })
	unsub2 := bus.Subscribe(func(e events.DeviceRemovedEvent) { removed <- e })

	cleanup := func() {
		unsub1()
		unsub2()
	}
	return mon, det, attached, removed, cleanup
}

func recvAttached(t *testing.T, ch chan events.DeviceAttachedEvent) events.DeviceAttachedEvent {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for DeviceAttachedEvent")
		return events.DeviceAttachedEvent{}
	}
}

func recvRemoved(t *testing.T, ch chan events.DeviceRemovedEvent) events.DeviceRemovedEvent {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for DeviceRemovedEvent")
		return events.DeviceRemovedEvent{}
	}
}

func TestRescanAnnouncesInitialDevices(t *testing.T) {
	mon, det, attached, _, cleanup := newTestMonitor()
	defer cleanup()

	det.set([]DeviceInfo{
		{DevicePath: "/dev/video0", DeviceName: "HDMI Capture", DeviceID: "usb-0000:00:14.0-1", Caps: 0x04000001},
		{DevicePath: "/dev/video2", DeviceName: "Webcam", DeviceID: "usb-0000:00:14.0-2", Caps: 0x04000001},
	}, nil)
	mon.rescan()

	byID := make(map[string]events.DeviceAttachedEvent)
	for range 2 {
		e := recvAttached(t, attached)
		byID[e.DeviceID] = e
	}

	hdmi, ok := byID["usb-0000:00:14.0-1"]
	if !ok {
		t.Fatal("no attach event for usb-0000:00:14.0-1")
	}
	if hdmi.DevicePath != "/dev/video0" {
		t.Errorf("DevicePath = %q, want %q", hdmi.DevicePath, "/dev/video0")
	}
	if hdmi.DeviceName != "HDMI Capture" {
		t.Errorf("DeviceName = %q, want %q", hdmi.DeviceName, "HDMI Capture")
	}
	if hdmi.Caps != 0x04000001 {
		t.Errorf("Caps = %#x, want %#x", hdmi.Caps, 0x04000001)
	}
	if hdmi.Timestamp == "" {
		t.Error("Timestamp is empty")
	}
	if mon.knownCount() != 2 {
		t.Errorf("knownCount() = %d, want 2", mon.knownCount())
	}
}

func TestRescanPublishesRemoval(t *testing.T) {
	mon, det, attached, removed, cleanup := newTestMonitor()
	defer cleanup()

	det.set([]DeviceInfo{
		{DevicePath: "/dev/video0", DeviceName: "HDMI Capture", DeviceID: "cam-a"},
		{DevicePath: "/dev/video2", DeviceName: "Webcam", DeviceID: "cam-b"},
	}, nil)
	mon.rescan()
	recvAttached(t, attached)
	recvAttached(t, attached)

	det.set([]DeviceInfo{
		{DevicePath: "/dev/video2", DeviceName: "Webcam", DeviceID: "cam-b"},
	}, nil)
	mon.rescan()

	e := recvRemoved(t, removed)
	if e.DevicePath != "/dev/video0" {
		t.Errorf("DevicePath = %q, want %q", e.DevicePath, "/dev/video0")
	}
	if mon.knownCount() != 1 {
		t.Errorf("knownCount() = %d, want 1", mon.knownCount())
	}
}

func TestRescanReannouncesChangedDevice(t *testing.T) {
	mon, det, attached, removed, cleanup := newTestMonitor()
	defer cleanup()

	det.set([]DeviceInfo{
		{DevicePath: "/dev/video0", DeviceName: "Webcam", DeviceID: "cam-a"},
	}, nil)
	mon.rescan()
	recvAttached(t, attached)

	// Same ID reappearing on a different node, as after replug.
	det.set([]DeviceInfo{
		{DevicePath: "/dev/video4", DeviceName: "Webcam", DeviceID: "cam-a"},
	}, nil)
	mon.rescan()

	e := recvAttached(t, attached)
	if e.DevicePath != "/dev/video4" {
		t.Errorf("DevicePath = %q, want %q", e.DevicePath, "/dev/video4")
	}
	select {
	case r := <-removed:
		t.Errorf("unexpected DeviceRemovedEvent for %q", r.DevicePath)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRescanUnchangedPublishesNothing(t *testing.T) {
	mon, det, attached, removed, cleanup := newTestMonitor()
	defer cleanup()

	devices := []DeviceInfo{
		{DevicePath: "/dev/video0", DeviceName: "Webcam", DeviceID: "cam-a"},
	}
	det.set(devices, nil)
	mon.rescan()
	recvAttached(t, attached)

	mon.rescan()
	select {
	case e := <-attached:
		t.Errorf("unexpected DeviceAttachedEvent for %q", e.DevicePath)
	case r := <-removed:
		t.Errorf("unexpected DeviceRemovedEvent for %q", r.DevicePath)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRescanKeepsStateOnScanError(t *testing.T) {
	mon, det, attached, removed, cleanup := newTestMonitor()
	defer cleanup()

	det.set([]DeviceInfo{
		{DevicePath: "/dev/video0", DeviceName: "Webcam", DeviceID: "cam-a"},
	}, nil)
	mon.rescan()
	recvAttached(t, attached)

	// A failed enumeration must not be read as every device vanishing.
	det.set(nil, errors.New("ioctl failed"))
	mon.rescan()
	select {
	case r := <-removed:
		t.Errorf("unexpected DeviceRemovedEvent for %q", r.DevicePath)
	case <-time.After(50 * time.Millisecond):
	}
	if mon.knownCount() != 1 {
		t.Errorf("knownCount() = %d, want 1", mon.knownCount())
	}
}

func TestStopWithoutStart(t *testing.T) {
	bus := events.New()
	mon := NewMonitor(bus, &fakeDetector{})
	mon.Stop()
}

func TestFramerateFPS(t *testing.T) {
	tests := []struct {
		fr   Framerate
		want float64
	}{
		{Framerate{Numerator: 1, Denominator: 30}, 30},
		{Framerate{Numerator: 1001, Denominator: 30000}, 30000.0 / 1001.0},
		{Framerate{Numerator: 0, Denominator: 30}, 0},
	}
	for _, tt := range tests {
		if got := tt.fr.FPS(); got != tt.want {
			t.Errorf("FPS(%d/%d) = %v, want %v", tt.fr.Numerator, tt.fr.Denominator, got, tt.want)
		}
	}
}
