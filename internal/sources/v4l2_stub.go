//go:build !linux

package sources

import (
	"errors"

	"github.com/camnode/camnode/pkg/capture"
)

func newV4L2(Options) (capture.Source, error) {
	return nil, errors.New("v4l2 capture requires linux")
}
