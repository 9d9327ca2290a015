//go:build !gst

package sources

import (
	"errors"

	"github.com/camnode/camnode/pkg/capture"
)

// The GStreamer backend needs cgo and the system GStreamer libraries,
// so it stays behind a build tag.
func newGst(Options) (capture.Source, error) {
	return nil, errors.New("gstreamer support not built in (build with -tags gst)")
}
