//go:build !linux

package devices

import "context"

// Start announces devices found by the initial scan. Hotplug events are
// only available on Linux, so no watch goroutine runs here.
func (m *Monitor) Start(ctx context.Context) error {
	m.rescan()
	m.logger.Debug("Hotplug monitoring not available on this platform")
	return nil
}
