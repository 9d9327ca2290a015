package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeLEDController records Set calls and rejects unknown LED types.
type fakeLEDController struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeLEDController) Set(ledType string, enabled bool, pattern string) error {
	if ledType != "user" && ledType != "system" {
		return fmt.Errorf("unknown LED type: %s", ledType)
	}
	f.mu.Lock()
	f.calls = append(f.calls, fmt.Sprintf("%s/%t/%s", ledType, enabled, pattern))
	f.mu.Unlock()
	return nil
}

func (f *fakeLEDController) Available() []string { return []string{"user", "system"} }

func (f *fakeLEDController) Patterns() []string { return []string{"solid", "blink", "heartbeat"} }

func (f *fakeLEDController) lastCall(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("no Set calls recorded")
	}
	return f.calls[len(f.calls)-1]
}

func newLEDTestServer(t *testing.T) (string, *fakeLEDController) {
	t.Helper()

	ctrl := &fakeLEDController{}
	server := NewServer(&Options{
		AuthUsername:  testUser,
		AuthPassword:  testPass,
		LEDController: ctrl,
	})
	ts := httptest.NewServer(server.mux)
	t.Cleanup(ts.Close)
	return ts.URL, ctrl
}

func TestControlLED(t *testing.T) {
	url, ctrl := newLEDTestServer(t)

	resp, data := doRequest(t, http.MethodPost, url+"/api/leds",
		`{"type":"user","enabled":true,"pattern":"heartbeat"}`)
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected success, got %d: %s", resp.StatusCode, data)
	}
	if got := ctrl.lastCall(t); got != "user/true/heartbeat" {
		t.Errorf("Set call = %q, want user/true/heartbeat", got)
	}

	// Pattern is optional; absence means no pattern change.
	resp, data = doRequest(t, http.MethodPost, url+"/api/leds",
		`{"type":"system","enabled":false}`)
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected success, got %d: %s", resp.StatusCode, data)
	}
	if got := ctrl.lastCall(t); got != "system/false/" {
		t.Errorf("Set call = %q, want system/false/", got)
	}
}

func TestControlLEDUnknownType(t *testing.T) {
	url, _ := newLEDTestServer(t)

	resp, data := doRequest(t, http.MethodPost, url+"/api/leds",
		`{"type":"disco","enabled":true}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d: %s", resp.StatusCode, data)
	}
}

func TestLEDCapabilities(t *testing.T) {
	url, _ := newLEDTestServer(t)

	resp, data := doRequest(t, http.MethodGet, url+"/api/leds/capabilities", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, data)
	}

	caps := decodeBody[LEDCapabilitiesData](t, data)
	if len(caps.AvailableTypes) != 2 || caps.AvailableTypes[0] != "user" {
		t.Errorf("Unexpected types %v", caps.AvailableTypes)
	}
	if len(caps.AvailablePatterns) != 3 {
		t.Errorf("Unexpected patterns %v", caps.AvailablePatterns)
	}
}

func TestLEDRoutesAbsentWithoutController(t *testing.T) {
	server := NewServer(&Options{
		AuthUsername: testUser,
		AuthPassword: testPass,
	})
	ts := httptest.NewServer(server.mux)
	defer ts.Close()

	resp, data := doRequest(t, http.MethodGet, ts.URL+"/api/leds/capabilities", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404 with no controller, got %d: %s", resp.StatusCode, data)
	}
}
