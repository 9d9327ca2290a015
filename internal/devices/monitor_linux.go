//go:build linux

package devices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/camnode/camnode/pkg/linuxav/hotplug"
)

// Start scans for present devices, announces them, then begins watching
// kernel uevents for video4linux changes.
func (m *Monitor) Start(ctx context.Context) error {
	mon, err := hotplug.NewMonitor(hotplug.SubsystemVideo4Linux)
	if err != nil {
		return fmt.Errorf("create hotplug monitor: %w", err)
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	m.rescan()
	m.logger.Info("Device monitoring started", "devices", m.knownCount())

	eventCh := make(chan hotplug.Event, 16)
	go func() {
		if err := mon.Watch(ctx, eventCh); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("Hotplug monitor stopped", "error", err)
		}
		mon.Close()
	}()
	go m.consume(eventCh)

	return nil
}

// consume coalesces bursts of uevents into a single rescan. The kernel
// emits several events per physical plug, and V4L2 nodes need a moment
// to enumerate after attach, so each event resets a short timer and the
// rescan runs when the burst goes quiet.
func (m *Monitor) consume(eventCh <-chan hotplug.Event) {
	defer close(m.done)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-eventCh:
			if !ok {
				return
			}
			if ev.Action != hotplug.ActionAdd && ev.Action != hotplug.ActionRemove {
				continue
			}
			m.logger.Debug("Hotplug event", "action", ev.Action, "devname", ev.DevName)
			if timer == nil {
				timer = time.NewTimer(m.debounce)
			} else {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(m.debounce)
			}
		case <-timerC(timer):
			timer = nil
			m.rescan()
		}
	}
}

// timerC returns the timer channel, or nil when no timer is armed. A nil
// channel never fires in a select.
func timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}
