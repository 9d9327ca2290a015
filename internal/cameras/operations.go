package cameras

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/camnode/camnode/internal/config"
	"github.com/camnode/camnode/internal/events"
	"github.com/camnode/camnode/pkg/capture"
)

// ErrNotFound reports an operation against a camera id that is not
// managed.
var ErrNotFound = errors.New("camera not found")

// ErrNoMatchingStream reports a start whose filters excluded every
// discovered stream.
var ErrNoMatchingStream = errors.New("no stream matches")

// Info is a point-in-time snapshot of one managed camera. Stream is
// the descriptor of the last session start, empty before the first.
type Info struct {
	ID      string
	Spec    config.CameraSpec
	Mode    capture.CaptureMode
	Format  capture.PixelFormat
	Streams int
	Stream  string
	Stats   capture.CameraStats
}

func (m *Manager) get(id string) (*managedCamera, error) {
	m.mu.RLock()
	mc, ok := m.cameras[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return mc, nil
}

// List returns snapshots of all managed cameras, sorted by id.
func (m *Manager) List() []Info {
	m.mu.RLock()
	cams := make([]*managedCamera, 0, len(m.cameras))
	for _, mc := range m.cameras {
		cams = append(cams, mc)
	}
	m.mu.RUnlock()

	sort.Slice(cams, func(i, j int) bool { return cams[i].id < cams[j].id })
	infos := make([]Info, 0, len(cams))
	for _, mc := range cams {
		infos = append(infos, snapshot(mc))
	}
	return infos
}

// Get returns a snapshot of one camera.
func (m *Manager) Get(id string) (Info, error) {
	mc, err := m.get(id)
	if err != nil {
		return Info{}, err
	}
	return snapshot(mc), nil
}

func snapshot(mc *managedCamera) Info {
	streams := 0
	if cat := mc.cam.Catalog(); cat != nil {
		streams = cat.Len()
	}
	return Info{
		ID:      mc.id,
		Spec:    mc.spec,
		Mode:    mc.cam.Mode(),
		Format:  mc.cam.Format(),
		Streams: streams,
		Stream:  mc.lastStream(),
		Stats:   mc.cam.Stats(),
	}
}

// Catalog returns the discovered stream descriptors for a camera, or
// nil when it has not initialized yet.
func (m *Manager) Catalog(id string) ([]capture.StreamDescriptor, error) {
	mc, err := m.get(id)
	if err != nil {
		return nil, err
	}
	cat := mc.cam.Catalog()
	if cat == nil {
		return nil, nil
	}
	return cat.Descriptors(), nil
}

// Start opens a capture session on a camera using its configured
// stream filters. A camera that has not discovered yet, or whose last
// discovery failed, is initialized first.
func (m *Manager) Start(ctx context.Context, id string) error {
	return m.StartWithFilter(ctx, id, StreamFilter{})
}

// StartWithFilter opens a capture session using explicit stream filters
// in place of the configured ones. A zero filter behaves like Start.
func (m *Manager) StartWithFilter(ctx context.Context, id string, f StreamFilter) error {
	mc, err := m.get(id)
	if err != nil {
		return err
	}
	switch mc.cam.State() {
	case capture.StateUninitialized, capture.StateFailed, capture.StateClosed:
		if err := mc.cam.Initialize(ctx); err != nil {
			return err
		}
	}
	if f == (StreamFilter{}) {
		return m.startFromSpec(ctx, mc)
	}
	return m.startFiltered(ctx, mc, f)
}

// Stop closes a camera's capture session.
func (m *Manager) Stop(id string) error {
	mc, err := m.get(id)
	if err != nil {
		return err
	}
	return mc.cam.Stop()
}

// TakeSingle requests one frame from a ready single-mode camera.
func (m *Manager) TakeSingle(id string) error {
	mc, err := m.get(id)
	if err != nil {
		return err
	}
	return mc.cam.TakeSingle()
}

// StartContinuous begins streaming on a continuous-mode camera.
func (m *Manager) StartContinuous(id string) error {
	mc, err := m.get(id)
	if err != nil {
		return err
	}
	return mc.cam.StartContinuous()
}

// StopContinuous pauses streaming on a continuous-mode camera.
func (m *Manager) StopContinuous(id string) error {
	mc, err := m.get(id)
	if err != nil {
		return err
	}
	return mc.cam.StopContinuous()
}

// Latest returns the most recent frame of a low-latency camera. The
// caller owns a reference and must Release it. Returns nil when no
// frame is cached.
func (m *Manager) Latest(id string) (*capture.Frame, error) {
	mc, err := m.get(id)
	if err != nil {
		return nil, err
	}
	return mc.cam.Latest(), nil
}

// PoolStats reports the shared frame pool's counters.
func (m *Manager) PoolStats() capture.PoolStats {
	return m.pool.Stats()
}

// TrimPool releases the pool's free list and announces how many
// buffers were freed.
func (m *Manager) TrimPool() int {
	freed := m.pool.Trim()
	m.bus.Publish(events.PoolTrimmedEvent{
		Freed:     freed,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	return freed
}

// WatchHotplug retries discovery on failed cameras whenever a video
// device attaches. Returns the bus unsubscribe.
func (m *Manager) WatchHotplug(ctx context.Context) func() {
	return m.bus.Subscribe(func(ev events.DeviceAttachedEvent) {
		m.logger.Info("Device attached, retrying failed cameras",
			"device_path", ev.DevicePath)
		m.retryFailed(ctx)
	})
}

// retryFailed re-runs discovery on every camera in the failed state and
// restarts the ones configured to auto-start.
func (m *Manager) retryFailed(ctx context.Context) {
	m.mu.RLock()
	var failed []*managedCamera
	for _, mc := range m.cameras {
		if mc.cam.State() == capture.StateFailed {
			failed = append(failed, mc)
		}
	}
	m.mu.RUnlock()

	sort.Slice(failed, func(i, j int) bool { return failed[i].id < failed[j].id })
	for _, mc := range failed {
		if err := mc.cam.Initialize(ctx); err != nil {
			m.logger.Warn("Retry discovery failed", "camera_id", mc.id, "error", err)
			continue
		}
		m.logger.Info("Camera recovered after device attach", "camera_id", mc.id)
		if mc.spec.AutoStart {
			if err := m.startFromSpec(ctx, mc); err != nil {
				m.logger.Warn("Start after recovery failed", "camera_id", mc.id, "error", err)
			}
		}
	}
}
