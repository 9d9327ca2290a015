package capture

import (
	"fmt"
	"math"
)

// framerateTolerance absorbs floating rounding between a requested
// framerate and the value a sensor reports for the same mode. Rational
// frame rates (30000/1001 and friends) round differently depending on
// which side of the driver computed them.
const framerateTolerance = 1e-5

// CameraResolution describes one capture mode: pixel dimensions plus
// frames per second. It is a value type compared with exact equality in
// catalog selection; see Matches for the negotiation-time comparison.
type CameraResolution struct {
	Width     uint32
	Height    uint32
	Framerate float64
}

// Equal reports exact field equality, including the framerate. Catalog
// selection deliberately uses no epsilon; use Matches when comparing
// against a sensor-reported framerate.
func (r CameraResolution) Equal(o CameraResolution) bool {
	return r == o
}

// Matches reports whether o describes the same mode as r, allowing a
// small tolerance on the framerate. This is the comparison used when
// matching a requested mode against what a device actually reports
// during format negotiation. The asymmetry with Equal is intentional.
func (r CameraResolution) Matches(o CameraResolution) bool {
	return r.Width == o.Width && r.Height == o.Height &&
		math.Abs(r.Framerate-o.Framerate) < framerateTolerance
}

func (r CameraResolution) String() string {
	return fmt.Sprintf("%dx%d@%g", r.Width, r.Height, r.Framerate)
}

// CameraKind classifies the sensor behind a stream. It is informational
// only and takes no part in descriptor identity.
type CameraKind int

const (
	KindUnknown CameraKind = iota
	KindColor
	KindInfrared
	KindDepth
)

func (k CameraKind) String() string {
	switch k {
	case KindColor:
		return "color"
	case KindInfrared:
		return "infrared"
	case KindDepth:
		return "depth"
	default:
		return "unknown"
	}
}

// StreamDescriptor identifies one selectable stream of one source:
// a (source id, source name, resolution) triplet plus an informational
// camera kind. Descriptors are immutable values produced by discovery;
// one set is produced per successful discovery pass, replacing any
// prior set on the owning camera.
type StreamDescriptor struct {
	SourceName string
	SourceID   string
	Resolution CameraResolution
	Kind       CameraKind
}

// Equal implements descriptor identity: two descriptors with the same
// (SourceID, SourceName, Resolution) triplet are interchangeable. Kind
// is excluded.
func (d StreamDescriptor) Equal(o StreamDescriptor) bool {
	return d.SourceID == o.SourceID &&
		d.SourceName == o.SourceName &&
		d.Resolution.Equal(o.Resolution)
}

func (d StreamDescriptor) String() string {
	return fmt.Sprintf("%s[%s] %s %s", d.SourceName, d.SourceID, d.Resolution, d.Kind)
}
