// Package cameras owns the daemon's capture state: the shared frame
// pool and one capture.Camera per configured camera. The manager turns
// config.CameraSpec entries into running cameras, republishes camera
// listener callbacks onto the event bus, and reconciles the managed set
// when the configuration changes.
package cameras

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/camnode/camnode/internal/config"
	"github.com/camnode/camnode/internal/events"
	"github.com/camnode/camnode/internal/logging"
	"github.com/camnode/camnode/internal/sources"
	"github.com/camnode/camnode/pkg/capture"
)

// Manager supervises all configured cameras against one shared frame
// pool.
type Manager struct {
	bus    *events.Bus
	logger *slog.Logger
	pool   *capture.FramePool

	mu      sync.RWMutex
	cameras map[string]*managedCamera

	// newSource builds the capture backend for a spec. Tests swap it to
	// inject synthetic sources with failure toggles.
	newSource func(name string, opts sources.Options) (capture.Source, error)
}

// managedCamera pairs a camera with the spec that built it and the
// listener unsubscribes that tie it to the bus.
type managedCamera struct {
	id     string
	spec   config.CameraSpec
	source capture.Source
	cam    *capture.Camera
	unsubs []func()

	streamMu sync.Mutex
	stream   string // descriptor of the last attempted session start
}

func (mc *managedCamera) setStream(s string) {
	mc.streamMu.Lock()
	mc.stream = s
	mc.streamMu.Unlock()
}

func (mc *managedCamera) lastStream() string {
	mc.streamMu.Lock()
	defer mc.streamMu.Unlock()
	return mc.stream
}

// NewManager creates a manager with an empty camera set and a fresh
// frame pool.
func NewManager(bus *events.Bus, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.GetLogger("cameras")
	}
	return &Manager{
		bus:       bus,
		logger:    logger,
		pool:      capture.NewFramePool(logger),
		cameras:   make(map[string]*managedCamera),
		newSource: sources.New,
	}
}

// Apply reconciles the managed set against specs: cameras no longer
// present are stopped and dropped, new ones are built and initialized,
// and cameras whose spec changed are rebuilt. Called at boot and by the
// config watcher on every cameras-file change.
//
// A camera whose device discovery fails stays managed in the failed
// state (hotplug retries it); a camera whose spec cannot produce a
// source at all is reported through the returned error and not managed.
func (m *Manager) Apply(ctx context.Context, specs map[string]config.CameraSpec) error {
	m.mu.Lock()
	var removed []*managedCamera
	for id, mc := range m.cameras {
		if spec, keep := specs[id]; keep && spec == mc.spec {
			continue
		}
		removed = append(removed, mc)
		delete(m.cameras, id)
	}
	existing := make(map[string]bool, len(m.cameras))
	for id := range m.cameras {
		existing[id] = true
	}
	m.mu.Unlock()

	for _, mc := range removed {
		m.logger.Info("Removing camera", "camera_id", mc.id)
		m.teardown(mc)
	}

	var toBuild []string
	for id := range specs {
		if !existing[id] {
			toBuild = append(toBuild, id)
		}
	}
	sort.Strings(toBuild)

	var errs []error
	for _, id := range toBuild {
		if err := m.build(ctx, id, specs[id]); err != nil {
			m.logger.Error("Building camera failed", "camera_id", id, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// build constructs, wires and initializes one camera, and starts it
// when the spec says so.
func (m *Manager) build(ctx context.Context, id string, spec config.CameraSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	src, err := m.newSource(spec.Source, sources.Options{
		Device:       spec.Device,
		SourceFormat: spec.SourceFormat,
		Width:        spec.Width,
		Height:       spec.Height,
		Framerate:    spec.Framerate,
		Logger:       logging.GetLogger("sources"),
	})
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}

	format := capture.FormatBGRA8
	if spec.Format != "" {
		if format, err = capture.ParsePixelFormat(spec.Format); err != nil {
			return err
		}
	}
	mode := capture.ModeSingle
	if spec.Mode != "" {
		mode, _ = capture.ParseCaptureMode(spec.Mode)
	}

	mc := &managedCamera{
		id:     id,
		spec:   spec,
		source: src,
		cam: capture.NewCamera(capture.CameraOptions{
			Source: src,
			Pool:   m.pool,
			Mode:   mode,
			Format: format,
			Logger: m.logger.With("camera_id", id),
		}),
	}
	mc.unsubs = m.wireEvents(mc)

	m.mu.Lock()
	m.cameras[id] = mc
	m.mu.Unlock()
	m.logger.Info("Camera added", "camera_id", id, "source", spec.Source, "mode", string(mode))

	if err := mc.cam.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if spec.AutoStart {
		if err := m.startFromSpec(ctx, mc); err != nil {
			return fmt.Errorf("start: %w", err)
		}
	}
	return nil
}

// wireEvents republishes the camera's listener callbacks as bus events.
// Frame events carry metadata only; consumers that need pixels register
// a frame listener on the camera itself.
func (m *Manager) wireEvents(mc *managedCamera) []func() {
	id := mc.id
	return []func(){
		mc.cam.OnStateChange(func(oldState, newState capture.State) {
			m.bus.Publish(events.CameraStateChangedEvent{
				CameraID:  id,
				OldState:  string(oldState),
				NewState:  string(newState),
				Timestamp: time.Now().Format(time.RFC3339),
			})
		}),
		mc.cam.OnInitialized(func(ok bool) {
			streams := 0
			if cat := mc.cam.Catalog(); cat != nil {
				streams = cat.Len()
			}
			m.bus.Publish(events.CameraInitializedEvent{
				CameraID:  id,
				OK:        ok,
				Streams:   streams,
				Timestamp: time.Now().Format(time.RFC3339),
			})
		}),
		mc.cam.OnStarted(func(ok bool) {
			m.bus.Publish(events.CameraStartedEvent{
				CameraID:  id,
				OK:        ok,
				SessionID: mc.cam.SessionID(),
				Stream:    mc.lastStream(),
				Timestamp: time.Now().Format(time.RFC3339),
			})
		}),
		mc.cam.OnFrame(func(f *capture.Frame) {
			defer f.Release()
			res := f.Resolution()
			m.bus.Publish(events.FrameCapturedEvent{
				CameraID:         id,
				SessionID:        mc.cam.SessionID(),
				CaptureTime:      f.Timestamp(),
				Width:            res.Width,
				Height:           res.Height,
				PixelFormat:      f.PixelFormat().String(),
				ExposureDuration: f.ExposureDuration(),
				Gain:             f.Gain(),
			})
		}),
	}
}

// StreamFilter narrows the catalog when opening a session. Zero fields
// leave that axis unconstrained; width and height must be set together.
type StreamFilter struct {
	Width     uint32
	Height    uint32
	Framerate float64
}

// startFromSpec opens a session using the spec's configured filters.
func (m *Manager) startFromSpec(ctx context.Context, mc *managedCamera) error {
	return m.startFiltered(ctx, mc, StreamFilter{
		Width:     mc.spec.Width,
		Height:    mc.spec.Height,
		Framerate: mc.spec.Framerate,
	})
}

// startFiltered opens a session on the first catalog stream matching
// the filter. Filters are exact: resolution must match both dimensions,
// framerate uses the catalog's own descriptor values.
func (m *Manager) startFiltered(ctx context.Context, mc *managedCamera, f StreamFilter) error {
	cat := mc.cam.Catalog()
	if cat == nil {
		return errors.New("no stream catalog, initialize first")
	}
	if (f.Width == 0) != (f.Height == 0) {
		return errors.New("width and height must be set together")
	}
	if f.Width != 0 {
		cat = cat.SelectResolution(capture.EqualTo, f.Width, f.Height)
	}
	if f.Framerate > 0 {
		cat = cat.SelectFramerate(capture.EqualTo, f.Framerate)
	}
	desc, ok := cat.First()
	if !ok {
		return fmt.Errorf("%w %dx%d@%g", ErrNoMatchingStream, f.Width, f.Height, f.Framerate)
	}
	mc.setStream(desc.String())
	return mc.cam.Start(ctx, desc)
}

// teardown stops a camera and detaches it from the bus. The final stop
// transitions still publish; listeners come off afterwards.
func (m *Manager) teardown(mc *managedCamera) {
	switch mc.cam.State() {
	case capture.StateReady, capture.StateStarting,
		capture.StateCapturingSingle, capture.StateCapturingContinuous:
		if err := mc.cam.Stop(); err != nil {
			m.logger.Warn("Stopping camera failed", "camera_id", mc.id, "error", err)
		}
	}
	for _, unsub := range mc.unsubs {
		unsub()
	}
}

// StopAll tears down every camera for shutdown. The pool is trimmed
// last so the returned buffers actually free.
func (m *Manager) StopAll() {
	m.mu.Lock()
	cams := make([]*managedCamera, 0, len(m.cameras))
	for _, mc := range m.cameras {
		cams = append(cams, mc)
	}
	m.cameras = make(map[string]*managedCamera)
	m.mu.Unlock()

	sort.Slice(cams, func(i, j int) bool { return cams[i].id < cams[j].id })
	for _, mc := range cams {
		m.teardown(mc)
	}
	m.pool.Trim()
	m.logger.Info("All cameras stopped")
}
