package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/camnode/camnode/internal/logging"
	"github.com/camnode/camnode/pkg/capture"
)

// syntheticResolutions is the fixed mode set the synthetic device offers.
var syntheticResolutions = []capture.CameraResolution{
	{Width: 640, Height: 480, Framerate: 30},
	{Width: 1280, Height: 720, Framerate: 30},
	{Width: 1920, Height: 1080, Framerate: 30},
}

// Synthetic generates animated gradient frames from a timer, no hardware
// involved. It backs tests, `camnode grab --source synthetic`, and
// development on machines without capture devices.
//
// The failure toggles make discovery and open fail on demand so error
// paths in the manager and the engine can be driven deterministically.
type Synthetic struct {
	Logger *slog.Logger

	FailDiscover bool
	FailOpen     bool
}

func newSynthetic(opts Options) (capture.Source, error) {
	return &Synthetic{Logger: opts.Logger}, nil
}

// Discover returns the fixed descriptor set of the single synthetic device.
func (s *Synthetic) Discover(_ context.Context) ([]capture.StreamDescriptor, error) {
	if s.FailDiscover {
		return nil, errors.New("synthetic discover failure")
	}

	descs := make([]capture.StreamDescriptor, 0, len(syntheticResolutions))
	for _, res := range syntheticResolutions {
		descs = append(descs, capture.StreamDescriptor{
			SourceName: "Synthetic Camera",
			SourceID:   "synthetic-0",
			Resolution: res,
			Kind:       capture.KindColor,
		})
	}
	return descs, nil
}

// Open creates the device for a descriptor. The descriptor's resolution
// is not binding yet; the engine negotiates it explicitly.
func (s *Synthetic) Open(_ context.Context, desc capture.StreamDescriptor) (capture.Device, error) {
	if s.FailOpen {
		return nil, fmt.Errorf("synthetic open failure for %s", desc.SourceID)
	}
	return &syntheticDevice{logger: s.logger()}, nil
}

func (s *Synthetic) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return logging.GetLogger("sources")
}

type syntheticDevice struct {
	logger *slog.Logger
	res    capture.CameraResolution
	stop   chan struct{}
	done   chan struct{}
}

func (d *syntheticDevice) Negotiate(_ context.Context, res capture.CameraResolution, format capture.PixelFormat) error {
	if format.BufferSize(res.Width, res.Height) == 0 {
		return fmt.Errorf("%w: %v", capture.ErrUnsupportedFormat, format)
	}
	if res.Framerate <= 0 {
		return fmt.Errorf("framerate %g is not usable", res.Framerate)
	}
	d.res = res
	return nil
}

func (d *syntheticDevice) Subscribe(cb capture.FrameCallback) error {
	if d.stop != nil {
		return errors.New("already subscribed")
	}
	if d.res.Framerate <= 0 {
		return errors.New("subscribe before negotiate")
	}

	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.deliver(cb, d.stop, d.done)

	d.logger.Debug("synthetic delivery started",
		"resolution", d.res.String())
	return nil
}

func (d *syntheticDevice) deliver(cb capture.FrameCallback, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Duration(float64(time.Second) / d.res.Framerate))
	defer ticker.Stop()

	// One frame value is reused across arrivals: the engine copies what
	// it keeps before the callback returns.
	frame := &syntheticFrame{res: d.res}
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			frame.phase++
			frame.timestamp = capture.Now()
			cb(frame)
		}
	}
}

// Unsubscribe stops delivery and waits for any in-flight callback to
// drain.
func (d *syntheticDevice) Unsubscribe() {
	if d.stop == nil {
		return
	}
	close(d.stop)
	<-d.done
	d.stop = nil
	d.done = nil
}

func (d *syntheticDevice) Close() error {
	d.Unsubscribe()
	return nil
}

// syntheticFrame paints an animated gradient on demand, in whatever
// format the engine requests.
type syntheticFrame struct {
	res       capture.CameraResolution
	phase     int
	timestamp float64
	scratch   []byte
}

func (f *syntheticFrame) Pixels(format capture.PixelFormat) ([]byte, error) {
	need := format.BufferSize(f.res.Width, f.res.Height)
	if need == 0 {
		return nil, fmt.Errorf("%w: %v", capture.ErrUnsupportedFormat, format)
	}
	if cap(f.scratch) < need {
		f.scratch = make([]byte, need)
	}
	buf := f.scratch[:need]
	paintGradient(buf, format, f.res.Width, f.res.Height, f.phase)
	return buf, nil
}

func (f *syntheticFrame) Resolution() capture.CameraResolution { return f.res }

func (f *syntheticFrame) Timestamp() float64 { return f.timestamp }

func (f *syntheticFrame) ExposureDuration() float64 { return 1 / (2 * f.res.Framerate) }

func (f *syntheticFrame) Gain() float32 { return 1 }

func (f *syntheticFrame) Intrinsics() *capture.Intrinsics { return nil }

func (f *syntheticFrame) Extrinsics() *capture.Extrinsics { return nil }

func (f *syntheticFrame) Release() func() { return nil }

// paintGradient fills buf with a gradient that slides one pixel per phase
// step, so successive frames differ and motion is visible to anything
// watching the stream.
func paintGradient(buf []byte, format capture.PixelFormat, width, height uint32, phase int) {
	w, h := int(width), int(height)

	switch format {
	case capture.FormatBGRA8, capture.FormatRGBA8:
		i := 0
		for y := range h {
			g := byte(y + phase)
			for x := range w {
				v := byte(x + phase)
				buf[i] = v
				buf[i+1] = g
				buf[i+2] = 255 - v
				buf[i+3] = 0xFF
				i += 4
			}
		}

	case capture.FormatYUY2:
		i := 0
		for y := range h {
			for x := 0; x+1 < w; x += 2 {
				buf[i] = byte(x + y + phase)
				buf[i+1] = 128
				buf[i+2] = byte(x + 1 + y + phase)
				buf[i+3] = 128
				i += 4
			}
		}

	case capture.FormatNV12:
		i := 0
		for y := range h {
			for x := range w {
				buf[i] = byte(x + y + phase)
				i++
			}
		}
		// Chroma wanders around mid-grey so colour changes frame to frame
		u := byte(128 + phase%64 - 32)
		v := byte(128 - phase%64 + 32)
		for range h / 2 {
			for range w / 2 {
				buf[i] = u
				buf[i+1] = v
				i += 2
			}
		}

	case capture.FormatL8:
		i := 0
		for y := range h {
			for x := range w {
				buf[i] = byte(x + y + phase)
				i++
			}
		}

	case capture.FormatL16:
		i := 0
		for y := range h {
			for x := range w {
				v := uint16(byte(x+y+phase)) << 8
				buf[i] = byte(v)
				buf[i+1] = byte(v >> 8)
				i += 2
			}
		}
	}
}
