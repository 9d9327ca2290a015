package nats

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// ControlPublisher sends control commands to a running daemon from
// outside it. External automation uses this; the daemon side of the
// conversation lives in Bridge.
type ControlPublisher struct {
	nc     *nats.Conn
	logger *slog.Logger
}

// NewControlPublisher connects to the broker at url.
func NewControlPublisher(url string, logger *slog.Logger) (*ControlPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	nc, err := nats.Connect(url,
		nats.Name("camnode-control"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(5),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	return &ControlPublisher{
		nc:     nc,
		logger: logger.With("component", "nats-control"),
	}, nil
}

// Send publishes a control command for a camera. Action should be one
// of ActionStart, ActionStop, or ActionSingle.
func (p *ControlPublisher) Send(cameraID, action, reason string) error {
	data, err := ControlMessage{
		Action:    action,
		CameraID:  cameraID,
		Timestamp: time.Now().Format(time.RFC3339),
		Reason:    reason,
	}.Marshal()
	if err != nil {
		return err
	}

	if err := p.nc.Publish(SubjectControl(cameraID, action), data); err != nil {
		return fmt.Errorf("failed to publish %s for %s: %w", action, cameraID, err)
	}

	p.logger.Info("Sent control command", "camera_id", cameraID, "action", action, "reason", reason)
	return nil
}

// Close drops the broker connection.
func (p *ControlPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
