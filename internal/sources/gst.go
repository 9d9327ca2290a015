//go:build gst

package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/camnode/camnode/pkg/capture"
)

// gstSource wraps a GStreamer pipeline around a single media URI
// (rtsp://, file://, http://). It declares exactly one stream, the mode
// given in options, because uridecodebin negotiates whatever the URI
// offers into that mode.
type gstSource struct {
	logger *slog.Logger
	uri    string
	mode   capture.CameraResolution
}

func newGst(opts Options) (capture.Source, error) {
	if opts.Device == "" {
		return nil, errors.New("gst source needs a media URI in device")
	}
	if opts.Width == 0 || opts.Height == 0 || opts.Framerate <= 0 {
		return nil, errors.New("gst source needs explicit width, height and framerate")
	}
	return &gstSource{
		logger: opts.Logger,
		uri:    opts.Device,
		mode: capture.CameraResolution{
			Width:     opts.Width,
			Height:    opts.Height,
			Framerate: opts.Framerate,
		},
	}, nil
}

func (s *gstSource) Discover(_ context.Context) ([]capture.StreamDescriptor, error) {
	return []capture.StreamDescriptor{{
		SourceName: s.uri,
		SourceID:   s.uri,
		Resolution: s.mode,
		Kind:       capture.KindColor,
	}}, nil
}

func (s *gstSource) Open(_ context.Context, desc capture.StreamDescriptor) (capture.Device, error) {
	if desc.SourceID != s.uri {
		return nil, fmt.Errorf("%w: unknown stream %s", capture.ErrInvalidOperation, desc.SourceID)
	}
	d := &gstDevice{logger: s.logger, uri: s.uri}
	d.frame = &gstFrame{dev: d}
	return d, nil
}

// gstDevice owns one pipeline:
//
//	uridecodebin → videoconvert → videoscale → videorate → capsfilter → appsink
//
// The capsfilter pins the negotiated mode and format, so the appsink
// only ever sees bytes in the layout the engine asked for.
type gstDevice struct {
	logger *slog.Logger
	uri    string

	pipeline *gst.Pipeline
	appsink  *app.Sink

	res    capture.CameraResolution
	format capture.PixelFormat

	mu    sync.Mutex
	cb    capture.FrameCallback // nil while not subscribed
	frame *gstFrame
}

func (d *gstDevice) Negotiate(_ context.Context, res capture.CameraResolution, format capture.PixelFormat) error {
	d.mu.Lock()
	subscribed := d.cb != nil
	d.mu.Unlock()
	if subscribed {
		return fmt.Errorf("%w: negotiate while streaming", capture.ErrInvalidOperation)
	}
	if res.Width == 0 || res.Height == 0 || res.Framerate <= 0 {
		return fmt.Errorf("%w: mode %s", capture.ErrInvalidOperation, res)
	}
	name, ok := gstVideoFormat(format)
	if !ok {
		return fmt.Errorf("%w: %v", capture.ErrUnsupportedFormat, format)
	}

	// Renegotiation replaces the previous pipeline wholesale.
	if d.pipeline != nil {
		if err := d.pipeline.SetState(gst.StateNull); err != nil {
			d.logger.Warn("Releasing previous pipeline failed", "uri", d.uri, "error", err)
		}
		d.pipeline, d.appsink = nil, nil
	}

	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	src, err := gst.NewElement("uridecodebin")
	if err != nil {
		return fmt.Errorf("creating uridecodebin: %w", err)
	}
	src.SetProperty("uri", d.uri)

	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return fmt.Errorf("creating videoconvert: %w", err)
	}

	scale, err := gst.NewElement("videoscale")
	if err != nil {
		return fmt.Errorf("creating videoscale: %w", err)
	}

	rate, err := gst.NewElement("videorate")
	if err != nil {
		return fmt.Errorf("creating videorate: %w", err)
	}
	rate.SetProperty("drop-only", true)

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return fmt.Errorf("creating capsfilter: %w", err)
	}
	capsfilter.SetProperty("caps", gst.NewCapsFromString(modeCaps(name, res)))

	appsink, err := app.NewAppSink()
	if err != nil {
		return fmt.Errorf("creating appsink: %w", err)
	}
	appsink.SetProperty("sync", false)
	appsink.SetProperty("max-buffers", 1)
	appsink.SetProperty("drop", true)

	if err := pipeline.AddMany(src, convert, scale, rate, capsfilter, appsink.Element); err != nil {
		return fmt.Errorf("assembling pipeline: %w", err)
	}
	if err := gst.ElementLinkMany(convert, scale, rate, capsfilter, appsink.Element); err != nil {
		return fmt.Errorf("linking pipeline: %w", err)
	}

	// uridecodebin exposes pads only once the stream prerolls, one per
	// elementary stream. Audio pads fail to link here and are dropped.
	src.Connect("pad-added", func(_ *gst.Element, pad *gst.Pad) {
		sinkPad := convert.GetStaticPad("sink")
		if sinkPad == nil {
			return
		}
		if ret := pad.Link(sinkPad); ret != gst.PadLinkOK {
			d.logger.Debug("Decoded pad not linked", "uri", d.uri, "pad", pad.GetName(), "ret", ret)
		}
	})

	appsink.SetCallbacks(&app.SinkCallbacks{NewSampleFunc: d.onSample})

	d.pipeline = pipeline
	d.appsink = appsink
	d.res = res
	d.format = format
	return nil
}

func (d *gstDevice) Subscribe(cb capture.FrameCallback) error {
	if d.pipeline == nil {
		return fmt.Errorf("%w: subscribe before negotiate", capture.ErrInvalidOperation)
	}

	d.mu.Lock()
	already := d.cb != nil
	if !already {
		d.cb = cb
	}
	d.mu.Unlock()
	if already {
		return fmt.Errorf("%w: already subscribed", capture.ErrInvalidOperation)
	}

	if err := d.pipeline.SetState(gst.StatePlaying); err != nil {
		d.mu.Lock()
		d.cb = nil
		d.mu.Unlock()
		return fmt.Errorf("starting pipeline for %s: %w", d.uri, err)
	}
	return nil
}

// onSample runs on the pipeline streaming thread for every sample the
// sink holds. The buffer stays mapped only for the duration of the
// delivery; consumers copy what they keep.
func (d *gstDevice) onSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowOK
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cb == nil {
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	if data := mapInfo.Bytes(); len(data) > 0 {
		d.frame.data = data
		d.frame.timestamp = capture.Now()
		d.cb(d.frame)
		d.frame.data = nil
	}
	buffer.Unmap()
	return gst.FlowOK
}

// Unsubscribe halts the pipeline. Clearing the callback under the lock
// drains any in-flight delivery before the state change.
func (d *gstDevice) Unsubscribe() {
	d.mu.Lock()
	subscribed := d.cb != nil
	d.cb = nil
	d.mu.Unlock()
	if !subscribed {
		return
	}

	if err := d.pipeline.SetState(gst.StateNull); err != nil {
		d.logger.Warn("Stopping pipeline failed", "uri", d.uri, "error", err)
	}
}

func (d *gstDevice) Close() error {
	d.Unsubscribe()
	if d.pipeline != nil {
		if err := d.pipeline.SetState(gst.StateNull); err != nil {
			return fmt.Errorf("releasing pipeline: %w", err)
		}
		d.pipeline, d.appsink = nil, nil
	}
	return nil
}

// gstFrame wraps the mapped bytes of one appsink sample. Valid only
// inside the delivery that received it.
type gstFrame struct {
	dev       *gstDevice
	data      []byte
	timestamp float64
}

// Pixels hands out the mapped sample. The capsfilter fixed the layout
// at negotiation, so only the negotiated format is servable.
func (f *gstFrame) Pixels(format capture.PixelFormat) ([]byte, error) {
	d := f.dev
	if format != d.format {
		return nil, fmt.Errorf("%w: pipeline negotiated %v", capture.ErrUnsupportedFormat, d.format)
	}
	need := format.BufferSize(d.res.Width, d.res.Height)
	if need == 0 {
		return nil, fmt.Errorf("%w: %v", capture.ErrUnsupportedFormat, format)
	}
	if len(f.data) < need {
		return nil, fmt.Errorf("%w: sample holds %d bytes, need %d",
			capture.ErrBufferSize, len(f.data), need)
	}
	return f.data[:need], nil
}

func (f *gstFrame) Resolution() capture.CameraResolution { return f.dev.res }

func (f *gstFrame) Timestamp() float64 { return f.timestamp }

func (f *gstFrame) ExposureDuration() float64 { return 0 }

func (f *gstFrame) Gain() float32 { return 0 }

func (f *gstFrame) Intrinsics() *capture.Intrinsics { return nil }

func (f *gstFrame) Extrinsics() *capture.Extrinsics { return nil }

func (f *gstFrame) Release() func() { return nil }

// gstVideoFormat names the GStreamer video format matching an engine
// pixel format byte for byte.
func gstVideoFormat(format capture.PixelFormat) (string, bool) {
	switch format {
	case capture.FormatBGRA8:
		return "BGRA", true
	case capture.FormatRGBA8:
		return "RGBA", true
	case capture.FormatNV12:
		return "NV12", true
	case capture.FormatYUY2:
		return "YUY2", true
	case capture.FormatL8:
		return "GRAY8", true
	case capture.FormatL16:
		return "GRAY16_LE", true
	default:
		return "", false
	}
}

// modeCaps renders the fixed output caps. Rates below 1 Hz become a
// 1/N fraction, everything else rounds to N/1.
func modeCaps(format string, res capture.CameraResolution) string {
	num, den := 1, 1
	if res.Framerate < 1 {
		den = int(1/res.Framerate + 0.5)
	} else {
		num = int(res.Framerate + 0.5)
	}
	return fmt.Sprintf("video/x-raw,format=%s,width=%d,height=%d,framerate=%d/%d",
		format, res.Width, res.Height, num, den)
}
