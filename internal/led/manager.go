package led

import (
	"log/slog"
	"sync"

	"github.com/camnode/camnode/internal/events"
	"github.com/camnode/camnode/pkg/capture"
)

// Manager subscribes to camera lifecycle events and drives the system
// LED from the aggregate state: solid while any camera is capturing,
// dark while any camera is failed, blinking otherwise. The three are
// distinguishable on every supported board, so a glance at the box
// answers "is it filming, is it broken, or is it idle".
type Manager struct {
	controller   Controller
	eventBus     *events.Bus
	unsubscribe  func()
	logger       *slog.Logger
	cameraStates map[string]capture.State
	mu           sync.Mutex
}

// NewManager creates an LED manager that reacts to camera state changes.
func NewManager(controller Controller, eventBus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{
		controller:   controller,
		eventBus:     eventBus,
		logger:       logger,
		cameraStates: make(map[string]capture.State),
	}
}

// Start begins listening for camera state change events and sets the
// idle pattern.
func (m *Manager) Start() {
	m.unsubscribe = m.eventBus.Subscribe(func(e events.CameraStateChangedEvent) {
		m.handleEvent(e)
	})
	m.updateSystemLED()
	m.logger.Info("LED manager started")
}

// Stop stops the LED manager and unsubscribes from events.
func (m *Manager) Stop() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.logger.Info("LED manager stopped")
}

// handleEvent records one camera's new state and refreshes the LED.
func (m *Manager) handleEvent(event events.CameraStateChangedEvent) {
	m.mu.Lock()
	m.cameraStates[event.CameraID] = capture.State(event.NewState)
	m.mu.Unlock()

	m.logger.Debug("Camera state changed",
		"camera_id", event.CameraID,
		"state", event.NewState)

	m.updateSystemLED()
}

// updateSystemLED applies the aggregate policy. Capturing outranks
// failed: a unit that is still filming shows solid even when another
// camera on it is broken.
func (m *Manager) updateSystemLED() {
	m.mu.Lock()
	capturing := false
	failed := false
	for _, state := range m.cameraStates {
		switch state {
		case capture.StateCapturingSingle, capture.StateCapturingContinuous:
			capturing = true
		case capture.StateFailed:
			failed = true
		}
	}
	m.mu.Unlock()

	switch {
	case capturing:
		if err := m.controller.Set("system", true, "solid"); err != nil {
			m.logger.Warn("Failed to set system LED to solid", "error", err)
		}
	case failed:
		if err := m.controller.Set("system", false, ""); err != nil {
			m.logger.Warn("Failed to turn system LED off", "error", err)
		}
	default:
		if err := m.controller.Set("system", true, "blink"); err != nil {
			m.logger.Warn("Failed to set system LED to blink", "error", err)
		}
	}
}

// GetController returns the underlying LED controller for direct API
// access.
func (m *Manager) GetController() Controller {
	return m.controller
}
