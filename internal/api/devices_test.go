package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/camnode/camnode/internal/api/models"
	"github.com/camnode/camnode/internal/devices"
)

const (
	fourccYUYV = 1448695129
	fourccNV12 = 842094158
)

// mockDetector is a canned devices.Detector so handler tests run the
// same on hosts with and without V4L2.
type mockDetector struct {
	devices []devices.DeviceInfo
	formats []devices.FormatInfo
	signal  devices.SignalInfo
}

func (m *mockDetector) FindDevices() ([]devices.DeviceInfo, error) {
	return m.devices, nil
}

func (m *mockDetector) GetDevicePathByID(deviceID string) (string, error) {
	for _, d := range m.devices {
		if d.DeviceID == deviceID {
			return d.DevicePath, nil
		}
	}
	return "", fmt.Errorf("no device with ID %s", deviceID)
}

func (m *mockDetector) GetDeviceFormats(devicePath string) ([]devices.FormatInfo, error) {
	return m.formats, nil
}

func (m *mockDetector) GetDeviceResolutions(devicePath string, pixelFormat uint32) ([]devices.Resolution, error) {
	return []devices.Resolution{
		{Width: 640, Height: 480},
		{Width: 1920, Height: 1080},
	}, nil
}

func (m *mockDetector) GetDeviceFramerates(devicePath string, pixelFormat uint32, width, height uint32) ([]devices.Framerate, error) {
	return []devices.Framerate{
		{Numerator: 1, Denominator: 30},
		{Numerator: 1, Denominator: 15},
	}, nil
}

func (m *mockDetector) GetDeviceSignal(devicePath string, waitMs int) (devices.SignalInfo, error) {
	return m.signal, nil
}

func newMockDetector() *mockDetector {
	return &mockDetector{
		devices: []devices.DeviceInfo{
			{
				DevicePath: "/dev/video0",
				DeviceName: "Mock Camera",
				DeviceID:   "usb-mock-1",
				Caps:       capVideoCapture | capStreaming,
			},
		},
		formats: []devices.FormatInfo{
			{PixelFormat: fourccYUYV, FormatName: "YUYV 4:2:2"},
			{PixelFormat: fourccNV12, FormatName: "Y/CbCr 4:2:0", Emulated: true},
			// No engine-side conversion exists for this one; the handler
			// must filter it out.
			{PixelFormat: 0x31384142, FormatName: "Exotic Bayer"},
		},
		signal: devices.SignalInfo{
			Kind:   "hdmi",
			Ready:  true,
			State:  "locked",
			Width:  1920,
			Height: 1080,
			FPS:    60.0,
		},
	}
}

// newDeviceTestServer wires a server around the canned detector. The
// device endpoints never touch the manager or the bus, so neither is
// configured.
func newDeviceTestServer(t *testing.T) string {
	t.Helper()

	server := NewServer(&Options{
		AuthUsername: testUser,
		AuthPassword: testPass,
		Detector:     newMockDetector(),
	})
	ts := httptest.NewServer(server.mux)
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestListDevices(t *testing.T) {
	url := newDeviceTestServer(t)

	resp, data := doRequest(t, http.MethodGet, url+"/api/devices", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, data)
	}

	found := decodeBody[models.DeviceData](t, data)
	if found.Count != 1 {
		t.Fatalf("Expected count 1, got %d", found.Count)
	}
	dev := found.Devices[0]
	if dev.DevicePath != "/dev/video0" || dev.DeviceID != "usb-mock-1" {
		t.Errorf("Unexpected device %+v", dev)
	}

	wantCaps := map[string]bool{"Video Capture": false, "Streaming I/O": false}
	for _, name := range dev.Capabilities {
		if _, ok := wantCaps[name]; ok {
			wantCaps[name] = true
		}
	}
	for name, seen := range wantCaps {
		if !seen {
			t.Errorf("Capability %q missing from %v", name, dev.Capabilities)
		}
	}
}

func TestDeviceFormatsFiltersUnknown(t *testing.T) {
	url := newDeviceTestServer(t)

	resp, data := doRequest(t, http.MethodGet, url+"/api/devices/usb-mock-1/formats", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, data)
	}

	caps := decodeBody[models.DeviceCapabilitiesData](t, data)
	if caps.DevicePath != "/dev/video0" {
		t.Errorf("Expected device_path /dev/video0, got %q", caps.DevicePath)
	}
	// The exotic format has no name mapping and must not be offered.
	if len(caps.Formats) != 2 {
		t.Fatalf("Expected 2 formats, got %d: %+v", len(caps.Formats), caps.Formats)
	}
	byName := map[string]models.FormatInfo{}
	for _, f := range caps.Formats {
		byName[f.FormatName] = f
	}
	if f, ok := byName["yuyv422"]; !ok || f.OriginalName != "YUYV 4:2:2" {
		t.Errorf("yuyv422 format wrong or missing: %+v", byName)
	}
	if f, ok := byName["nv12"]; !ok || !f.Emulated {
		t.Errorf("nv12 format should be marked emulated: %+v", byName)
	}
}

func TestDeviceResolutions(t *testing.T) {
	url := newDeviceTestServer(t)

	resp, data := doRequest(t, http.MethodGet,
		url+"/api/devices/usb-mock-1/resolutions?format_name=yuyv422", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, data)
	}

	res := decodeBody[models.DeviceResolutionsData](t, data)
	if len(res.Resolutions) != 2 {
		t.Fatalf("Expected 2 resolutions, got %d", len(res.Resolutions))
	}
	if res.Resolutions[1].Width != 1920 || res.Resolutions[1].Height != 1080 {
		t.Errorf("Unexpected resolution %+v", res.Resolutions[1])
	}
}

func TestDeviceFramerates(t *testing.T) {
	url := newDeviceTestServer(t)

	resp, data := doRequest(t, http.MethodGet,
		url+"/api/devices/usb-mock-1/framerates?format_name=yuyv422&width=640&height=480", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, data)
	}

	rates := decodeBody[models.DeviceFrameratesData](t, data)
	if len(rates.Framerates) != 2 {
		t.Fatalf("Expected 2 framerates, got %d", len(rates.Framerates))
	}
	if rates.Framerates[0].Fps != 30 {
		t.Errorf("Expected 30 fps from 1/30 interval, got %g", rates.Framerates[0].Fps)
	}
}

func TestDeviceFrameratesRequireSize(t *testing.T) {
	url := newDeviceTestServer(t)

	resp, data := doRequest(t, http.MethodGet,
		url+"/api/devices/usb-mock-1/framerates?format_name=yuyv422", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400 without width/height, got %d: %s", resp.StatusCode, data)
	}
}

func TestDeviceSignal(t *testing.T) {
	url := newDeviceTestServer(t)

	resp, data := doRequest(t, http.MethodGet, url+"/api/devices/usb-mock-1/signal", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, data)
	}

	sig := decodeBody[models.DeviceSignalData](t, data)
	if sig.Kind != "hdmi" {
		t.Errorf("Expected kind hdmi, got %q", sig.Kind)
	}
	if !sig.Ready {
		t.Error("Expected device to be ready")
	}
	if sig.State != "locked" {
		t.Errorf("Expected state locked, got %q", sig.State)
	}
	if sig.Width != 1920 || sig.Height != 1080 || sig.Fps != 60.0 {
		t.Errorf("Expected 1920x1080@60, got %dx%d@%v", sig.Width, sig.Height, sig.Fps)
	}
}

func TestDeviceSignalUnknownDevice(t *testing.T) {
	url := newDeviceTestServer(t)

	resp, _ := doRequest(t, http.MethodGet, url+"/api/devices/no-such/signal", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}
}

func TestDeviceNotFound(t *testing.T) {
	url := newDeviceTestServer(t)

	resp, data := doRequest(t, http.MethodGet, url+"/api/devices/no-such-device/formats", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d: %s", resp.StatusCode, data)
	}
}

func TestDeviceInvalidFormatName(t *testing.T) {
	url := newDeviceTestServer(t)

	// format_name carries an enum schema, so Huma rejects unknown names
	// before the handler runs.
	resp, data := doRequest(t, http.MethodGet,
		url+"/api/devices/usb-mock-1/resolutions?format_name=quicktime", "")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d: %s", resp.StatusCode, data)
	}
}
