//go:build linux

package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/camnode/camnode/internal/api/models"
	"github.com/camnode/camnode/pkg/capture"
	"github.com/camnode/camnode/pkg/linuxav/v4l2"
)

const (
	// streamBuffers is the mmap queue depth requested from the driver.
	streamBuffers = 4

	// frameWaitMs bounds each dequeue wait so the delivery goroutine
	// notices Unsubscribe promptly even when the device stalls.
	frameWaitMs = 500

	// dequeueBackoff spaces retries after a dequeue error.
	dequeueBackoff = 100 * time.Millisecond
)

// wirePreference orders the wire formats the backend picks from when the
// camera spec does not pin one. Formats that reach the engine formats
// cheaply come first; greyscale and depth layouts are last so a color
// sensor never lands on them by accident.
var wirePreference = []uint32{
	fourccNV12, fourccYUYV, fourccYU12, fourccYV12, fourccNV16,
	fourccBGR24, fourccRGB24, fourccGREY, fourccY16,
}

// v4l2Source enumerates V4L2 capture devices and opens them for
// streaming. One chosen wire format per device is recorded at Discover
// time and reused by Open.
type v4l2Source struct {
	logger *slog.Logger
	device string // stable ID or /dev path filter, empty matches all
	forced uint32 // pinned wire fourcc, 0 lets the backend choose

	mu   sync.Mutex
	wire map[string]uint32 // chosen fourcc per discovered SourceID
}

func newV4L2(opts Options) (capture.Source, error) {
	src := &v4l2Source{
		logger: opts.Logger,
		device: opts.Device,
		wire:   make(map[string]uint32),
	}
	if opts.SourceFormat != "" {
		fourcc, err := models.SourceFormat(opts.SourceFormat).Fourcc()
		if err != nil {
			return nil, err
		}
		src.forced = fourcc
	}
	return src, nil
}

func (s *v4l2Source) Discover(ctx context.Context) ([]capture.StreamDescriptor, error) {
	devices, err := v4l2.FindDevices()
	if err != nil {
		return nil, fmt.Errorf("enumerating video devices: %w", err)
	}

	var descriptors []capture.StreamDescriptor
	wire := make(map[string]uint32)

	for _, dev := range devices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.device != "" && dev.DeviceID != s.device && dev.DevicePath != s.device {
			continue
		}

		fourcc, err := s.chooseWireFormat(dev.DevicePath)
		if err != nil {
			s.logger.Debug("Skipping device", "device", dev.DevicePath, "reason", err)
			continue
		}

		modes := s.enumerateModes(dev, fourcc)
		if len(modes) == 0 {
			s.logger.Debug("Device offers no usable modes",
				"device", dev.DevicePath, "format", fourccString(fourcc))
			continue
		}
		descriptors = append(descriptors, modes...)
		wire[dev.DeviceID] = fourcc
	}

	s.mu.Lock()
	s.wire = wire
	s.mu.Unlock()

	return descriptors, nil
}

// enumerateModes expands one device into a descriptor per resolution
// and framerate it offers in the chosen wire format.
func (s *v4l2Source) enumerateModes(dev v4l2.DeviceInfo, fourcc uint32) []capture.StreamDescriptor {
	resolutions, err := v4l2.GetResolutions(dev.DevicePath, fourcc)
	if err != nil {
		s.logger.Debug("Enumerating resolutions failed", "device", dev.DevicePath, "error", err)
		return nil
	}

	kind := kindForWire(fourcc)
	var modes []capture.StreamDescriptor
	for _, res := range resolutions {
		rates, err := v4l2.GetFramerates(dev.DevicePath, fourcc, res.Width, res.Height)
		if err != nil {
			continue
		}
		for _, rate := range rates {
			fps := rate.FPS()
			if fps <= 0 {
				continue
			}
			modes = append(modes, capture.StreamDescriptor{
				SourceName: dev.DeviceName,
				SourceID:   dev.DeviceID,
				Resolution: capture.CameraResolution{
					Width:     res.Width,
					Height:    res.Height,
					Framerate: fps,
				},
				Kind: kind,
			})
		}
	}
	return modes
}

// chooseWireFormat picks the fourcc to request from the device. A
// pinned source format must be offered; otherwise the first preference
// the device provides natively wins, with driver-emulated formats as a
// fallback behind every native one.
func (s *v4l2Source) chooseWireFormat(devicePath string) (uint32, error) {
	formats, err := v4l2.GetFormats(devicePath)
	if err != nil {
		return 0, err
	}

	offered := make(map[uint32]bool, len(formats))
	native := make(map[uint32]bool, len(formats))
	for _, f := range formats {
		offered[f.PixelFormat] = true
		if !f.Emulated {
			native[f.PixelFormat] = true
		}
	}

	if s.forced != 0 {
		if !offered[s.forced] {
			return 0, fmt.Errorf("device does not offer %s", fourccString(s.forced))
		}
		return s.forced, nil
	}

	for _, fourcc := range wirePreference {
		if native[fourcc] {
			return fourcc, nil
		}
	}
	for _, fourcc := range wirePreference {
		if offered[fourcc] {
			return fourcc, nil
		}
	}
	return 0, errors.New("no supported raw format")
}

func (s *v4l2Source) Open(_ context.Context, desc capture.StreamDescriptor) (capture.Device, error) {
	s.mu.Lock()
	fourcc, ok := s.wire[desc.SourceID]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: stream %s not discovered", capture.ErrInvalidOperation, desc.SourceID)
	}

	path, err := v4l2.GetDevicePathByID(desc.SourceID)
	if err != nil {
		return nil, err
	}

	cam, err := v4l2.OpenCamera(path)
	if err != nil {
		return nil, err
	}

	return &v4l2Device{
		logger: s.logger,
		cam:    cam,
		fourcc: fourcc,
	}, nil
}

// kindForWire classifies the sensor behind a wire format. 8-bit luma
// devices are infrared sensors, 16-bit luma are depth sensors.
func kindForWire(fourcc uint32) capture.CameraKind {
	switch fourcc {
	case fourccGREY:
		return capture.KindInfrared
	case fourccY16:
		return capture.KindDepth
	default:
		return capture.KindColor
	}
}

// v4l2Device drives one open camera through the negotiate, stream,
// deliver cycle. Control calls arrive from a single camera goroutine;
// only the delivery goroutine touches the mmap queue while streaming.
type v4l2Device struct {
	logger *slog.Logger
	cam    *v4l2.Camera
	fourcc uint32

	res        capture.CameraResolution
	stride     int
	negotiated bool

	stop chan struct{}
	done chan struct{}

	scratch []byte // conversion output, reused across frames
}

func (d *v4l2Device) Negotiate(_ context.Context, res capture.CameraResolution, format capture.PixelFormat) error {
	if d.stop != nil {
		return fmt.Errorf("%w: negotiate while streaming", capture.ErrInvalidOperation)
	}
	if res.Framerate <= 0 {
		return fmt.Errorf("%w: framerate %v", capture.ErrInvalidOperation, res.Framerate)
	}
	if !canConvert(d.fourcc, format) {
		return fmt.Errorf("%w: no path from %s to %s",
			capture.ErrUnsupportedFormat, fourccString(d.fourcc), format)
	}

	negotiated, err := d.cam.SetFormat(d.fourcc, res.Width, res.Height)
	if err != nil {
		return fmt.Errorf("setting format on %s: %w", d.cam.Path(), err)
	}
	if negotiated.PixelFormat != d.fourcc {
		return fmt.Errorf("device substituted %s for %s",
			fourccString(negotiated.PixelFormat), fourccString(d.fourcc))
	}
	if negotiated.Width != res.Width || negotiated.Height != res.Height {
		return fmt.Errorf("device adjusted %dx%d to %dx%d",
			res.Width, res.Height, negotiated.Width, negotiated.Height)
	}

	d.applyFramerate(res)

	d.res = res
	d.stride = int(negotiated.BytesPerLine)
	d.negotiated = true
	return nil
}

// applyFramerate asks the driver for the interval closest to the
// requested rate. UVC devices round intervals on their own and some
// drivers do not implement S_PARM at all, so a mismatch is logged
// rather than failed; frame timestamps carry the delivered rate.
func (d *v4l2Device) applyFramerate(res capture.CameraResolution) {
	rates, err := v4l2.GetFramerates(d.cam.Path(), d.fourcc, res.Width, res.Height)
	if err != nil {
		d.logger.Debug("Device does not enumerate frame intervals",
			"device", d.cam.Path(), "error", err)
		return
	}

	for _, rate := range rates {
		offered := capture.CameraResolution{Width: res.Width, Height: res.Height, Framerate: rate.FPS()}
		if !res.Matches(offered) {
			continue
		}
		applied, err := d.cam.SetFramerate(rate)
		if err != nil {
			d.logger.Warn("Setting framerate failed",
				"device", d.cam.Path(), "framerate", res.Framerate, "error", err)
			return
		}
		if got := applied.FPS(); !res.Matches(capture.CameraResolution{
			Width: res.Width, Height: res.Height, Framerate: got,
		}) {
			d.logger.Warn("Device adjusted framerate",
				"device", d.cam.Path(), "requested", res.Framerate, "got", got)
		}
		return
	}

	d.logger.Warn("Device does not offer framerate",
		"device", d.cam.Path(), "framerate", res.Framerate)
}

func (d *v4l2Device) Subscribe(cb capture.FrameCallback) error {
	if !d.negotiated {
		return fmt.Errorf("%w: subscribe before negotiate", capture.ErrInvalidOperation)
	}
	if d.stop != nil {
		return fmt.Errorf("%w: already subscribed", capture.ErrInvalidOperation)
	}

	if err := d.cam.StartStreaming(streamBuffers); err != nil {
		return fmt.Errorf("starting stream on %s: %w", d.cam.Path(), err)
	}

	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.deliver(cb, d.stop, d.done)
	return nil
}

// deliver dequeues driver buffers until stop closes. The callback runs
// with the mmap'd bytes; the buffer returns to the driver as soon as
// the callback comes back, so frames never outlive their delivery.
func (d *v4l2Device) deliver(cb capture.FrameCallback, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	frame := &v4l2Frame{dev: d}
	for {
		select {
		case <-stop:
			return
		default:
		}

		buf, err := d.cam.WaitFrame(frameWaitMs)
		if err != nil {
			d.logger.Warn("Dequeue failed", "device", d.cam.Path(), "error", err)
			select {
			case <-stop:
				return
			case <-time.After(dequeueBackoff):
			}
			continue
		}
		if buf == nil {
			continue // wait timed out, poll stop again
		}

		frame.data = buf.Data
		frame.timestamp = capture.Now()
		cb(frame)
		frame.data = nil

		if err := d.cam.Requeue(buf); err != nil {
			d.logger.Warn("Requeue failed", "device", d.cam.Path(), "error", err)
		}
	}
}

func (d *v4l2Device) Unsubscribe() {
	if d.stop == nil {
		return
	}
	close(d.stop)
	<-d.done
	d.stop, d.done = nil, nil

	if err := d.cam.StopStreaming(); err != nil {
		d.logger.Warn("Stopping stream failed", "device", d.cam.Path(), "error", err)
	}
}

func (d *v4l2Device) Close() error {
	d.Unsubscribe()
	return d.cam.Close()
}

// v4l2Frame wraps one dequeued buffer. It is valid only inside the
// callback that received it; consumers copy what they keep.
type v4l2Frame struct {
	dev       *v4l2Device
	data      []byte
	timestamp float64
}

func (f *v4l2Frame) Pixels(format capture.PixelFormat) ([]byte, error) {
	d := f.dev
	need := format.BufferSize(d.res.Width, d.res.Height)
	if need == 0 {
		return nil, fmt.Errorf("%w: %v", capture.ErrUnsupportedFormat, format)
	}

	// When the wire layout already is the requested format and carries
	// no row padding, hand out the mapped bytes directly.
	if directFormat(d.fourcc) == format && d.stride == minStride(d.fourcc, int(d.res.Width)) {
		if len(f.data) < need {
			return nil, fmt.Errorf("%w: captured %d bytes, need %d",
				capture.ErrBufferSize, len(f.data), need)
		}
		return f.data[:need], nil
	}

	if cap(d.scratch) < need {
		d.scratch = make([]byte, need)
	}
	dst := d.scratch[:need]
	if err := convert(dst, f.data, d.fourcc, d.stride, d.res, format); err != nil {
		return nil, err
	}
	return dst, nil
}

func (f *v4l2Frame) Resolution() capture.CameraResolution { return f.dev.res }

func (f *v4l2Frame) Timestamp() float64 { return f.timestamp }

// ExposureDuration is unknown without per-frame control queries, which
// most UVC firmware answers with stale values anyway.
func (f *v4l2Frame) ExposureDuration() float64 { return 0 }

func (f *v4l2Frame) Gain() float32 { return 0 }

func (f *v4l2Frame) Intrinsics() *capture.Intrinsics { return nil }

func (f *v4l2Frame) Extrinsics() *capture.Extrinsics { return nil }

func (f *v4l2Frame) Release() func() { return nil }
