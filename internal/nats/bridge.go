package nats

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/camnode/camnode/internal/events"
)

// CameraController is the slice of the camera manager the bridge drives
// on inbound control commands.
type CameraController interface {
	Start(ctx context.Context, id string) error
	Stop(id string) error
	TakeSingle(id string) error
}

// Bridge connects the event bus to NATS. Outbound it forwards camera
// state changes and frame notifications to camnode.cameras subjects;
// inbound it subscribes to camnode.control and drives the camera
// manager. Camera IDs must not contain dots, which NATS treats as
// subject separators.
type Bridge struct {
	url      string
	eventBus *events.Bus
	cameras  CameraController
	conn     *nats.Conn
	subs     []*nats.Subscription
	unsubs   []func()
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewBridge creates a new event-bus-to-NATS bridge.
func NewBridge(url string, eventBus *events.Bus, cameras CameraController, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}

	return &Bridge{
		url:      url,
		eventBus: eventBus,
		cameras:  cameras,
		logger:   logger.With("component", "nats-bridge"),
	}
}

// Start connects to NATS, wires the outbound event forwarding, and
// subscribes to control subjects.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, err := nats.Connect(b.url,
		nats.Name("camnode-bridge"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				b.logger.Warn("NATS bridge disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			b.logger.Info("NATS bridge reconnected")
		}),
	)
	if err != nil {
		return err
	}

	b.conn = conn
	b.logger.Info("NATS bridge connected", "url", b.url)

	// Outbound: bus events to NATS subjects.
	b.unsubs = append(b.unsubs, b.eventBus.Subscribe(func(e events.CameraStateChangedEvent) {
		b.publishState(e)
	}))
	b.unsubs = append(b.unsubs, b.eventBus.Subscribe(func(e events.FrameCapturedEvent) {
		b.publishFrame(e)
	}))

	// Inbound: control commands for any camera and action.
	ctrlSub, err := conn.Subscribe(SubjectControlPrefix+".>", b.handleControl)
	if err != nil {
		b.cleanup()
		return err
	}
	b.subs = append(b.subs, ctrlSub)

	b.logger.Info("NATS bridge subscribed to control subjects")
	return nil
}

// publishState forwards a state transition to the camera's state subject.
func (b *Bridge) publishState(e events.CameraStateChangedEvent) {
	msg := StateMessage{
		CameraID:  e.CameraID,
		Timestamp: e.Timestamp,
		OldState:  e.OldState,
		NewState:  e.NewState,
	}

	data, err := msg.Marshal()
	if err != nil {
		b.logger.Warn("Failed to marshal state message", "error", err)
		return
	}

	b.publish(SubjectCameraState(e.CameraID), data)
}

// publishFrame forwards a frame notification to the camera's frames subject.
func (b *Bridge) publishFrame(e events.FrameCapturedEvent) {
	msg := FrameMessage{
		CameraID:    e.CameraID,
		SessionID:   e.SessionID,
		Timestamp:   time.Now().Format(time.RFC3339),
		CaptureTime: e.CaptureTime,
		Width:       e.Width,
		Height:      e.Height,
		PixelFormat: e.PixelFormat,
	}

	data, err := msg.Marshal()
	if err != nil {
		b.logger.Warn("Failed to marshal frame message", "error", err)
		return
	}

	b.publish(SubjectCameraFrames(e.CameraID), data)
}

// publish sends data if connected. No-op while the connection is down;
// consumers catch up from the next state change.
func (b *Bridge) publish(subject string, data []byte) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()

	if conn == nil || !conn.IsConnected() {
		return
	}

	if err := conn.Publish(subject, data); err != nil {
		b.logger.Warn("Failed to publish", "subject", subject, "error", err)
	}
}

// handleControl parses camnode.control.{camera_id}.{action} and drives
// the camera manager. The subject is authoritative; the body only
// contributes the optional reason.
func (b *Bridge) handleControl(msg *nats.Msg) {
	rest := strings.TrimPrefix(msg.Subject, SubjectControlPrefix+".")
	parts := strings.Split(rest, ".")
	if len(parts) != 2 {
		b.logger.Warn("Malformed control subject", "subject", msg.Subject)
		return
	}
	cameraID, action := parts[0], parts[1]

	ctrl, err := UnmarshalControl(msg.Data)
	if err != nil {
		b.logger.Warn("Failed to unmarshal control message", "error", err, "subject", msg.Subject)
		return
	}

	b.logger.Info("Received control command",
		"camera_id", cameraID,
		"action", action,
		"reason", ctrl.Reason)

	switch action {
	case ActionStart:
		err = b.cameras.Start(context.Background(), cameraID)
	case ActionStop:
		err = b.cameras.Stop(cameraID)
	case ActionSingle:
		err = b.cameras.TakeSingle(cameraID)
	default:
		b.logger.Warn("Unknown control action", "action", action, "subject", msg.Subject)
		return
	}

	if err != nil {
		b.logger.Warn("Control command failed",
			"camera_id", cameraID,
			"action", action,
			"error", err)
	}
}

// cleanup unsubscribes from the bus and NATS and closes the connection.
func (b *Bridge) cleanup() {
	for _, unsub := range b.unsubs {
		unsub()
	}
	b.unsubs = nil

	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	b.subs = nil

	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
}

// Stop closes the bridge connection.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cleanup()
	b.logger.Info("NATS bridge stopped")
}

// IsConnected returns true if the bridge is connected to NATS.
func (b *Bridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && b.conn.IsConnected()
}
