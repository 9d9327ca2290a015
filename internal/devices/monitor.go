package devices

import (
	"log/slog"
	"sync"
	"time"

	"github.com/camnode/camnode/internal/api/models"
	"github.com/camnode/camnode/internal/events"
	"github.com/camnode/camnode/internal/logging"
)

// Monitor watches for video device arrival and removal and publishes the
// changes on the event bus. On Linux it listens for kernel uevents; on
// other platforms only the initial scan runs.
type Monitor struct {
	bus      *events.Bus
	detector Detector
	logger   *slog.Logger
	debounce time.Duration

	cancel func()
	done   chan struct{}

	mu    sync.Mutex
	known map[string]DeviceInfo // key is DeviceID
}

// NewMonitor creates a monitor that publishes device changes on bus.
func NewMonitor(bus *events.Bus, detector Detector) *Monitor {
	return &Monitor{
		bus:      bus,
		detector: detector,
		logger:   logging.GetLogger("devices"),
		debounce: 500 * time.Millisecond,
		known:    make(map[string]DeviceInfo),
	}
}

// Stop halts monitoring and waits for the watch goroutine to exit.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	if m.done != nil {
		<-m.done
	}
}

// rescan diffs the current device list against the known set and
// publishes removal and arrival events for the difference. The first
// call announces every present device as attached.
func (m *Monitor) rescan() {
	devices, err := m.detector.FindDevices()
	if err != nil {
		m.logger.Error("Device scan failed", "error", err)
		return
	}

	current := make(map[string]DeviceInfo, len(devices))
	for _, dev := range devices {
		current[dev.DeviceID] = dev
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().Format(time.RFC3339)

	for id, old := range m.known {
		if _, ok := current[id]; !ok {
			delete(m.known, id)
			m.logger.Info("Device removed", "device", old.DevicePath, "name", old.DeviceName, "id", id)
			m.bus.Publish(events.DeviceRemovedEvent{DevicePath: old.DevicePath, Timestamp: now})
		}
	}

	for id, dev := range current {
		old, seen := m.known[id]
		if seen && old == dev {
			continue
		}
		m.known[id] = dev
		if seen {
			m.logger.Info("Device changed", "device", dev.DevicePath, "name", dev.DeviceName, "id", id)
		} else {
			m.logger.Info("Device added", "device", dev.DevicePath, "name", dev.DeviceName, "id", id)
		}
		m.bus.Publish(events.DeviceAttachedEvent{DeviceInfo: deviceModel(dev), Timestamp: now})
	}
}

func (m *Monitor) knownCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.known)
}

func deviceModel(dev DeviceInfo) models.DeviceInfo {
	return models.DeviceInfo{
		DevicePath: dev.DevicePath,
		DeviceName: dev.DeviceName,
		DeviceID:   dev.DeviceID,
		Caps:       dev.Caps,
	}
}
