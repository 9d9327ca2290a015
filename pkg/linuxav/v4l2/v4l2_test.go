//go:build linux

package v4l2

import (
	"math"
	"testing"
)

func TestFormatFourCC(t *testing.T) {
	tests := []struct {
		format uint32
		want   string
	}{
		{V4L2_PIX_FMT_YUYV, "YUYV"},
		{V4L2_PIX_FMT_MJPEG, "MJPG"},
		{V4L2_PIX_FMT_NV12, "NV12"},
		{V4L2_PIX_FMT_YUV420, "YU12"},
		{V4L2_PIX_FMT_Y16, "Y16 "}, // trailing space is part of the code
		{0x01020304, "\x04\x03\x02\x01"},
	}
	for _, tt := range tests {
		if got := FormatFourCC(tt.format); got != tt.want {
			t.Errorf("FormatFourCC(0x%08X) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestFramerateFPS(t *testing.T) {
	tests := []struct {
		name string
		fr   Framerate
		want float64
	}{
		{"1/60 interval is 60fps", Framerate{1, 60}, 60.0},
		{"NTSC 1001/30000", Framerate{1001, 30000}, 30000.0 / 1001.0},
		{"zero numerator", Framerate{0, 60}, 0},
		{"zero denominator", Framerate{1, 0}, 0},
		{"reduced fraction", Framerate{1000000, 60000000}, 60.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fr.FPS(); math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Expected %f fps, got %f", tt.want, got)
			}
		})
	}
}

func TestPixelClockReassembly(t *testing.T) {
	tests := []struct {
		name   string
		lo, hi uint32
		want   uint64
	}{
		{"148.5 MHz fits the low word", 148500000, 0, 148500000},
		{"zero", 0, 0, 0},
		{"high word set", 1, 1, 1<<32 + 1},
		{"all bits", 0xFFFFFFFF, 0xFFFFFFFF, math.MaxUint64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bt := v4l2_bt_timings{pixelclock_lo: tt.lo, pixelclock_hi: tt.hi}
			if got := bt.pixelClock(); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestCalculateFPS(t *testing.T) {
	// CEA-861 1080p60: 2200x1125 total at 148.5 MHz.
	full := v4l2_bt_timings{
		width: 1920, height: 1080,
		pixelclock_lo: 148500000,
		hfrontporch:   88, hsync: 44, hbackporch: 148,
		vfrontporch: 4, vsync: 5, vbackporch: 36,
	}
	if got := calculateFPS(&full); math.Abs(got-60.0) > 0.01 {
		t.Errorf("Expected 60fps for 1080p60 timings, got %f", got)
	}

	// 720p60: 1650x750 total at 74.25 MHz.
	hd := v4l2_bt_timings{
		width: 1280, height: 720,
		pixelclock_lo: 74250000,
		hfrontporch:   110, hsync: 40, hbackporch: 220,
		vfrontporch: 5, vsync: 5, vbackporch: 20,
	}
	if got := calculateFPS(&hd); math.Abs(got-60.0) > 0.01 {
		t.Errorf("Expected 60fps for 720p60 timings, got %f", got)
	}

	// Interlaced halves the field height.
	laced := v4l2_bt_timings{
		width: 1920, height: 1080,
		pixelclock_lo: 74250000,
		hfrontporch:   88, hsync: 44, hbackporch: 148,
		vfrontporch: 2, vsync: 5, vbackporch: 15,
		interlaced: 1,
	}
	if got := calculateFPS(&laced); math.Abs(got-61.25) > 0.01 {
		t.Errorf("Expected 61.25 fields/s for the interlaced timings, got %f", got)
	}

	if got := calculateFPS(&v4l2_bt_timings{}); got != 0 {
		t.Errorf("Expected 0 for empty timings, got %f", got)
	}
	if got := calculateFPS(&v4l2_bt_timings{width: 1920, height: 1080}); got != 0 {
		t.Errorf("Expected 0 without a pixel clock, got %f", got)
	}
}

func TestSignalStateString(t *testing.T) {
	tests := []struct {
		state SignalState
		want  string
	}{
		{SignalStateNoDevice, "no_device"},
		{SignalStateNoLink, "no_link"},
		{SignalStateNoSignal, "no_signal"},
		{SignalStateUnstable, "unstable"},
		{SignalStateLocked, "locked"},
		{SignalStateOutOfRange, "out_of_range"},
		{SignalStateNotSupported, "not_supported"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}

func TestDeviceKindString(t *testing.T) {
	if KindWebcam.String() != "webcam" || KindHDMI.String() != "hdmi" || KindUnknown.String() != "unknown" {
		t.Errorf("Unexpected kind names: %q %q %q",
			KindWebcam.String(), KindHDMI.String(), KindUnknown.String())
	}
}
