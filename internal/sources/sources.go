// Package sources provides the capture.Source implementations a camera
// can bind to: a synthetic generator for tests and headless development,
// a V4L2 backend for Linux capture hardware, and an optional GStreamer
// backend for sources V4L2 cannot reach (RTSP, exotic pipelines).
//
// Backends are selected by name via New; the name matches the `source`
// key in cameras.toml.
package sources

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/camnode/camnode/internal/logging"
	"github.com/camnode/camnode/pkg/capture"
)

// Options carries the per-camera settings a backend needs to construct
// itself. Backends ignore fields they have no use for.
type Options struct {
	// Device selects a specific device for backends that manage several:
	// the stable device ID (or /dev path) for v4l2, the media URI for
	// gst. Empty lets v4l2 offer every discovered device.
	Device string

	// SourceFormat pins the wire format requested from the device, by
	// catalog name (e.g. "yuyv422", "nv12"). Empty lets the backend pick.
	SourceFormat string

	// Width, Height and Framerate describe the mode for backends that
	// cannot enumerate one themselves (gst declares its single stream
	// from these).
	Width     uint32
	Height    uint32
	Framerate float64

	Logger *slog.Logger
}

// Factory constructs a backend from its options.
type Factory func(opts Options) (capture.Source, error)

var registry = map[string]Factory{
	"synthetic": newSynthetic,
	"v4l2":      newV4L2,
	"gst":       newGst,
}

// New constructs the named backend. Unknown names report the registered
// set so a config typo is diagnosable from the error alone.
func New(name string, opts Options) (capture.Source, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown source %q (known: %v)", name, Names())
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetLogger("sources")
	}
	return factory(opts)
}

// Names returns the registered backend names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
