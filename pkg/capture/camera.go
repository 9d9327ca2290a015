package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrStartAborted is returned by Start when a concurrent Stop lands
// during the device-open window. The starting goroutine releases the
// device it opened and completes the stop's transition to closed.
var ErrStartAborted = errors.New("start aborted by concurrent stop")

// CameraOptions configures a Camera. Source and Pool are required.
type CameraOptions struct {
	// Source is the platform collaborator used for discovery and
	// device access.
	Source Source

	// Pool supplies the frame buffers. Pools are shared: several
	// cameras may acquire from one pool.
	Pool *FramePool

	// Mode is the capture policy; defaults to ModeSingle.
	Mode CaptureMode

	// Format is the pixel format frames are delivered in; defaults to
	// FormatBGRA8. Conversion from the device's native format is the
	// source's concern.
	Format PixelFormat

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Camera drives one capture device through its lifecycle:
// discovery (Initialize), device open (Start), on-demand or continuous
// capture, and teardown (Stop). A single mutex serializes all state
// reads and writes; it is held only for state checks and transitions,
// never across device I/O or listener callbacks. The transient starting
// and stopping states make the unlocked I/O windows observable and
// reject conflicting calls during them.
//
// Frame arrivals are delivered on the device's goroutine concurrently
// with every API call. The arrival handler consults the state under the
// lock to decide capture-or-drop; in capturing_single it also reverts
// to ready in the same critical section, so two racing arrivals can
// never both capture one TakeSingle arm.
type Camera struct {
	source Source
	pool   *FramePool
	mode   CaptureMode
	format PixelFormat
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	device    Device
	catalog   *StreamCatalog
	sessionID string

	dispatcher     *Dispatcher
	initListeners  callbacks[bool]
	startListeners callbacks[bool]
	stateListeners callbacks[stateTransition]

	framesCaptured atomic.Uint64
	framesDropped  atomic.Uint64
	lastFrameBits  atomic.Uint64
}

type stateTransition struct {
	Old State
	New State
}

// NewCamera creates a camera in the uninitialized state.
func NewCamera(opts CameraOptions) *Camera {
	if opts.Source == nil || opts.Pool == nil {
		panic("CameraOptions with Source and Pool is required")
	}
	if opts.Mode == "" {
		opts.Mode = ModeSingle
	}
	if opts.Format == FormatUnknown {
		opts.Format = FormatBGRA8
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Camera{
		source:     opts.Source,
		pool:       opts.Pool,
		mode:       opts.Mode,
		format:     opts.Format,
		logger:     logger,
		state:      StateUninitialized,
		dispatcher: NewDispatcher(opts.Mode, logger),
	}
}

// State returns the camera's current lifecycle state.
func (c *Camera) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Mode returns the configured capture mode.
func (c *Camera) Mode() CaptureMode { return c.mode }

// Format returns the configured delivery pixel format.
func (c *Camera) Format() PixelFormat { return c.format }

// Catalog returns the stream catalog produced by the most recent
// successful Initialize, or nil before the first one.
func (c *Camera) Catalog() *StreamCatalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog
}

// SessionID returns the id of the current or most recent capture
// session. A new id is generated by each successful entry into Start.
func (c *Camera) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Stats returns a snapshot of the camera's state and counters.
func (c *Camera) Stats() CameraStats {
	c.mu.Lock()
	st := c.state
	session := c.sessionID
	c.mu.Unlock()

	return CameraStats{
		State:          st,
		SessionID:      session,
		FramesCaptured: c.framesCaptured.Load(),
		FramesDropped:  c.framesDropped.Load(),
		LastFrameAt:    math.Float64frombits(c.lastFrameBits.Load()),
	}
}

// OnInitialized registers a listener for Initialize outcomes and
// returns its unsubscribe function.
func (c *Camera) OnInitialized(fn func(ok bool)) func() {
	return c.initListeners.add(fn)
}

// OnStarted registers a listener for Start outcomes and returns its
// unsubscribe function.
func (c *Camera) OnStarted(fn func(ok bool)) func() {
	return c.startListeners.add(fn)
}

// OnStateChange registers a listener invoked after every state
// transition, outside the camera lock, and returns its unsubscribe
// function.
func (c *Camera) OnStateChange(fn func(oldState, newState State)) func() {
	return c.stateListeners.add(func(t stateTransition) { fn(t.Old, t.New) })
}

// OnFrame registers a frame listener with the camera's dispatcher.
// Each invocation hands the listener a frame it owns one reference to
// and must Release exactly once.
func (c *Camera) OnFrame(fn FrameListener) func() {
	return c.dispatcher.Add(fn)
}

// Latest returns the retained most-recent frame in single_low_latency
// mode, with a fresh reference owned by the caller. Nil otherwise.
func (c *Camera) Latest() *Frame {
	return c.dispatcher.Latest()
}

// Initialize runs stream discovery. Legal from any state: a device left
// open by a previous session is released first. On success the catalog
// is replaced with the discovered descriptor set, the state becomes
// initialized and initialized(true) is raised; on failure the state
// becomes failed (retryable by calling Initialize again) and
// initialized(false) is raised.
func (c *Camera) Initialize(ctx context.Context) error {
	c.mu.Lock()
	old := c.state
	c.state = StateInitializing
	dev := c.device
	c.device = nil
	c.mu.Unlock()
	if old != StateInitializing {
		c.notifyState(old, StateInitializing)
	}

	if dev != nil {
		dev.Unsubscribe()
		if err := dev.Close(); err != nil {
			c.logger.Warn("Closing previous device failed", "error", err)
		}
		c.dispatcher.DropLatest()
	}

	descriptors, err := c.source.Discover(ctx)
	if err != nil {
		c.mu.Lock()
		c.state = StateFailed
		c.mu.Unlock()
		c.notifyState(StateInitializing, StateFailed)
		c.initListeners.notify(false)
		c.logger.Error("Stream discovery failed", "error", err)
		return fmt.Errorf("discover: %w", err)
	}

	catalog := NewStreamCatalog()
	for _, d := range descriptors {
		catalog.Add(d)
	}

	c.mu.Lock()
	c.catalog = catalog
	c.state = StateInitialized
	c.mu.Unlock()
	c.notifyState(StateInitializing, StateInitialized)
	c.initListeners.notify(true)
	c.logger.Info("Discovery complete", "streams", catalog.Len())
	return nil
}

// Start opens the device behind desc, negotiates the descriptor's
// resolution with the configured pixel format, and subscribes to frame
// delivery. Precondition: state is initialized; any other state fails
// with ErrInvalidOperation before any device I/O. On success the state
// is ready and started(true) is raised; on failure the state reverts to
// initialized and started(false) is raised.
func (c *Camera) Start(ctx context.Context, desc StreamDescriptor) error {
	c.mu.Lock()
	if c.state != StateInitialized {
		cur := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: start requires %q, camera is %q", ErrInvalidOperation, StateInitialized, cur)
	}
	c.state = StateStarting
	c.sessionID = uuid.NewString()
	session := c.sessionID
	c.mu.Unlock()
	c.notifyState(StateInitialized, StateStarting)

	logger := c.logger.With("session_id", session)
	logger.Info("Starting capture", "stream", desc.String())

	dev, err := c.source.Open(ctx, desc)
	if err != nil {
		return c.failStart(nil, logger, fmt.Errorf("open: %w", err))
	}
	if err := dev.Negotiate(ctx, desc.Resolution, c.format); err != nil {
		return c.failStart(dev, logger, fmt.Errorf("negotiate: %w", err))
	}
	if err := dev.Subscribe(c.handleArrival); err != nil {
		return c.failStart(dev, logger, fmt.Errorf("subscribe: %w", err))
	}

	c.mu.Lock()
	if c.state != StateStarting {
		// A concurrent Stop landed during the open window; finish its
		// work with the device only this goroutine knows about.
		c.mu.Unlock()
		dev.Unsubscribe()
		if err := dev.Close(); err != nil {
			logger.Warn("Closing device after aborted start failed", "error", err)
		}
		c.settleStop()
		c.startListeners.notify(false)
		logger.Info("Start aborted by stop")
		return ErrStartAborted
	}
	c.device = dev
	c.state = StateReady
	c.mu.Unlock()
	c.notifyState(StateStarting, StateReady)
	c.startListeners.notify(true)
	logger.Info("Capture ready")
	return nil
}

// failStart reverts a failed Start. The device, when non-nil, was
// opened by this call and is closed here. State returns to initialized
// unless a concurrent Stop already moved it to stopping, in which case
// the stop completes to closed.
func (c *Camera) failStart(dev Device, logger *slog.Logger, err error) error {
	if dev != nil {
		if closeErr := dev.Close(); closeErr != nil {
			logger.Warn("Closing device after failed start", "error", closeErr)
		}
	}

	c.mu.Lock()
	old := c.state
	switch old {
	case StateStarting:
		c.state = StateInitialized
	case StateStopping:
		c.state = StateClosed
	}
	newState := c.state
	c.mu.Unlock()
	if old != newState {
		c.notifyState(old, newState)
	}
	c.startListeners.notify(false)
	logger.Error("Start failed", "error", err)
	return err
}

// Stop tears the capture session down. Legal from ready, starting and
// both capturing states. Frame delivery is unsubscribed before the
// device is released, and Unsubscribe drains in-flight arrivals, so a
// dispatch already past its accepted check completes and releases
// normally. When called during starting, Stop returns immediately and
// the in-flight Start releases the device it opened. The state
// afterwards is closed; Initialize brings the camera back.
func (c *Camera) Stop() error {
	c.mu.Lock()
	old := c.state
	switch old {
	case StateReady, StateStarting, StateCapturingSingle, StateCapturingContinuous:
	default:
		c.mu.Unlock()
		return fmt.Errorf("%w: stop from %q", ErrInvalidOperation, old)
	}
	dev := c.device
	c.device = nil
	c.state = StateStopping
	c.mu.Unlock()
	c.notifyState(old, StateStopping)

	if old == StateStarting {
		return nil
	}

	if dev != nil {
		dev.Unsubscribe()
		if err := dev.Close(); err != nil {
			c.logger.Warn("Device close failed", "error", err)
		}
	}
	c.dispatcher.DropLatest()
	c.settleStop()
	c.logger.Info("Capture stopped")
	return nil
}

// settleStop completes the stopping -> closed transition unless
// another operation (an Initialize) has already claimed the state.
func (c *Camera) settleStop() {
	c.mu.Lock()
	old := c.state
	if old == StateStopping {
		c.state = StateClosed
	}
	newState := c.state
	c.mu.Unlock()
	if old != newState {
		c.notifyState(old, newState)
	}
}

// TakeSingle arms a one-shot capture: the next frame arrival is
// captured and the state reverts to ready. Legal only from ready;
// synchronous, no device I/O.
func (c *Camera) TakeSingle() error {
	c.mu.Lock()
	if c.state != StateReady {
		cur := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: take single requires %q, camera is %q", ErrInvalidOperation, StateReady, cur)
	}
	c.state = StateCapturingSingle
	c.mu.Unlock()
	c.notifyState(StateReady, StateCapturingSingle)
	return nil
}

// StartContinuous begins capturing every arrival. Legal only when the
// camera's configured mode is continuous and the state is ready or
// capturing_single.
func (c *Camera) StartContinuous() error {
	if c.mode != ModeContinuous {
		return fmt.Errorf("%w: continuous capture requires mode %q, camera mode is %q", ErrInvalidOperation, ModeContinuous, c.mode)
	}
	c.mu.Lock()
	old := c.state
	if old != StateReady && old != StateCapturingSingle {
		c.mu.Unlock()
		return fmt.Errorf("%w: start continuous from %q", ErrInvalidOperation, old)
	}
	c.state = StateCapturingContinuous
	c.mu.Unlock()
	c.notifyState(old, StateCapturingContinuous)
	return nil
}

// StopContinuous returns a continuously capturing camera to ready.
// Legal only when the configured mode is continuous and the state is
// capturing_continuous.
func (c *Camera) StopContinuous() error {
	if c.mode != ModeContinuous {
		return fmt.Errorf("%w: continuous capture requires mode %q, camera mode is %q", ErrInvalidOperation, ModeContinuous, c.mode)
	}
	c.mu.Lock()
	if c.state != StateCapturingContinuous {
		cur := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: stop continuous from %q", ErrInvalidOperation, cur)
	}
	c.state = StateReady
	c.mu.Unlock()
	c.notifyState(StateCapturingContinuous, StateReady)
	return nil
}

// handleArrival is the frame-arrival notification, invoked on the
// device's delivery goroutine. The state decides capture-or-drop; for
// capturing_single the revert to ready happens in the same critical
// section as the read, so a second racing arrival observes ready and
// drops.
func (c *Camera) handleArrival(sf SourceFrame) {
	c.mu.Lock()
	observed := c.state
	if observed == StateCapturingSingle {
		c.state = StateReady
	}
	c.mu.Unlock()
	if observed == StateCapturingSingle {
		c.notifyState(StateCapturingSingle, StateReady)
	}

	if observed != StateCapturingSingle && observed != StateCapturingContinuous {
		c.framesDropped.Add(1)
		c.releaseSourceFrame(sf)
		return
	}

	pixels, err := sf.Pixels(c.format)
	if err != nil {
		c.framesDropped.Add(1)
		c.releaseSourceFrame(sf)
		c.logger.Error("Pixel conversion failed", "format", c.format.String(), "error", err)
		return
	}

	meta := FrameMeta{
		Timestamp:        sf.Timestamp(),
		ExposureDuration: sf.ExposureDuration(),
		Gain:             sf.Gain(),
		Intrinsics:       sf.Intrinsics(),
		Extrinsics:       sf.Extrinsics(),
		Release:          sf.Release(),
	}

	frame, err := c.pool.Acquire(pixels, sf.Resolution(), c.format, meta)
	if err != nil {
		c.framesDropped.Add(1)
		if meta.Release != nil {
			meta.Release()
		}
		c.logger.Error("Frame acquire failed", "error", err)
		return
	}

	c.framesCaptured.Add(1)
	c.lastFrameBits.Store(math.Float64bits(meta.Timestamp))
	c.dispatcher.Dispatch(frame)
}

// releaseSourceFrame runs the source frame's cleanup hook for arrivals
// that never reach the pool. Consumed arrivals hand the hook to their
// pooled frame instead, which runs it on recycle.
func (c *Camera) releaseSourceFrame(sf SourceFrame) {
	if release := sf.Release(); release != nil {
		release()
	}
}

// notifyState publishes a state transition to listeners, outside the
// camera lock.
func (c *Camera) notifyState(oldState, newState State) {
	c.logger.Debug("State changed", "from", string(oldState), "to", string(newState))
	c.stateListeners.notify(stateTransition{Old: oldState, New: newState})
}
