package led

import (
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/camnode/camnode/internal/events"
)

// Mock controller for testing
type mockController struct {
	mu       sync.Mutex
	setCalls []setCall
}

type setCall struct {
	ledType string
	enabled bool
	pattern string
}

func (m *mockController) Set(ledType string, enabled bool, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls = append(m.setCalls, setCall{ledType, enabled, pattern})
	return nil
}

func (m *mockController) Available() []string {
	return []string{"system", "user"}
}

func (m *mockController) Patterns() []string {
	return []string{"solid", "blink"}
}

func (m *mockController) lastCall(t *testing.T) setCall {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.setCalls) == 0 {
		t.Fatal("No LED control calls made")
	}
	return m.setCalls[len(m.setCalls)-1]
}

func publishState(bus *events.Bus, cameraID, oldState, newState string) {
	bus.Publish(events.CameraStateChangedEvent{
		CameraID:  cameraID,
		OldState:  oldState,
		NewState:  newState,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func TestManager_IdleBlinks(t *testing.T) {
	ctrl := &mockController{}
	eventBus := events.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mgr := NewManager(ctrl, eventBus, logger)
	mgr.Start()
	defer mgr.Stop()

	// Start() alone should set the idle pattern before any event.
	call := ctrl.lastCall(t)
	if !call.enabled || call.pattern != "blink" {
		t.Errorf("Expected blink at startup, got enabled=%v pattern=%q", call.enabled, call.pattern)
	}

	// Cameras that initialize but never capture keep the unit idle.
	publishState(eventBus, "cam1", "initializing", "initialized")
	publishState(eventBus, "cam2", "starting", "ready")

	time.Sleep(50 * time.Millisecond)

	call = ctrl.lastCall(t)
	if !call.enabled || call.pattern != "blink" {
		t.Errorf("Expected blink while idle, got enabled=%v pattern=%q", call.enabled, call.pattern)
	}
}

func TestManager_CapturingGoesSolid(t *testing.T) {
	ctrl := &mockController{}
	eventBus := events.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mgr := NewManager(ctrl, eventBus, logger)
	mgr.Start()
	defer mgr.Stop()

	publishState(eventBus, "cam1", "ready", "capturing_continuous")

	time.Sleep(50 * time.Millisecond)

	call := ctrl.lastCall(t)
	if !call.enabled || call.pattern != "solid" {
		t.Errorf("Expected solid while capturing, got enabled=%v pattern=%q", call.enabled, call.pattern)
	}
}

func TestManager_FailureGoesDark(t *testing.T) {
	ctrl := &mockController{}
	eventBus := events.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mgr := NewManager(ctrl, eventBus, logger)
	mgr.Start()
	defer mgr.Stop()

	publishState(eventBus, "cam1", "initializing", "failed")

	time.Sleep(50 * time.Millisecond)

	call := ctrl.lastCall(t)
	if call.enabled {
		t.Errorf("Expected LED off after failure, got enabled=%v pattern=%q", call.enabled, call.pattern)
	}
}

func TestManager_CapturingOutranksFailed(t *testing.T) {
	ctrl := &mockController{}
	eventBus := events.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mgr := NewManager(ctrl, eventBus, logger)
	mgr.Start()
	defer mgr.Stop()

	publishState(eventBus, "cam1", "initializing", "failed")
	publishState(eventBus, "cam2", "ready", "capturing_single")

	time.Sleep(50 * time.Millisecond)

	call := ctrl.lastCall(t)
	if !call.enabled || call.pattern != "solid" {
		t.Errorf("Expected solid while one camera captures, got enabled=%v pattern=%q", call.enabled, call.pattern)
	}
}

func TestManager_StopReturnsToBlink(t *testing.T) {
	ctrl := &mockController{}
	eventBus := events.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mgr := NewManager(ctrl, eventBus, logger)
	mgr.Start()
	defer mgr.Stop()

	publishState(eventBus, "cam1", "ready", "capturing_continuous")
	publishState(eventBus, "cam1", "capturing_continuous", "ready")

	time.Sleep(50 * time.Millisecond)

	call := ctrl.lastCall(t)
	if !call.enabled || call.pattern != "blink" {
		t.Errorf("Expected blink after capture stopped, got enabled=%v pattern=%q", call.enabled, call.pattern)
	}
}

func TestManager_GetController(t *testing.T) {
	ctrl := &mockController{}
	eventBus := events.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mgr := NewManager(ctrl, eventBus, logger)

	if got := mgr.GetController(); got != ctrl {
		t.Error("GetController() did not return the original controller")
	}
}
