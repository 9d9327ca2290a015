package capture

import (
	"errors"
	"testing"
)

func TestBufferSize(t *testing.T) {
	tests := []struct {
		name     string
		format   PixelFormat
		width    uint32
		height   uint32
		expected int
	}{
		{
			name:     "BGRA8 1080p",
			format:   FormatBGRA8,
			width:    1920,
			height:   1080,
			expected: 1920 * 1080 * 4,
		},
		{
			name:     "RGBA8 720p",
			format:   FormatRGBA8,
			width:    1280,
			height:   720,
			expected: 1280 * 720 * 4,
		},
		{
			name:     "NV12 1080p",
			format:   FormatNV12,
			width:    1920,
			height:   1080,
			expected: 1920 * 1080 * 3 / 2,
		},
		{
			name:   "NV12 odd dimensions truncate",
			format: FormatNV12,
			width:  5,
			height: 5,
			// 25 * 6 / 4 = 37.5 truncated to 37
			expected: 37,
		},
		{
			name:     "YUY2 1080p",
			format:   FormatYUY2,
			width:    1920,
			height:   1080,
			expected: 1920 * 1080 * 2,
		},
		{
			name:     "L8 VGA",
			format:   FormatL8,
			width:    640,
			height:   480,
			expected: 640 * 480,
		},
		{
			name:     "L16 VGA",
			format:   FormatL16,
			width:    640,
			height:   480,
			expected: 640 * 480 * 2,
		},
		{
			name:     "unknown format",
			format:   FormatUnknown,
			width:    1920,
			height:   1080,
			expected: 0,
		},
		{
			name:     "zero dimensions",
			format:   FormatBGRA8,
			width:    0,
			height:   0,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.format.BufferSize(tt.width, tt.height)
			if result != tt.expected {
				t.Errorf("%v.BufferSize(%d, %d) = %d, want %d",
					tt.format, tt.width, tt.height, result, tt.expected)
			}
		})
	}
}

func TestParsePixelFormat(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected PixelFormat
		wantErr  bool
	}{
		{name: "bgra8", input: "bgra8", expected: FormatBGRA8},
		{name: "rgba8", input: "rgba8", expected: FormatRGBA8},
		{name: "nv12", input: "nv12", expected: FormatNV12},
		{name: "yuy2", input: "yuy2", expected: FormatYUY2},
		{name: "l8", input: "l8", expected: FormatL8},
		{name: "l16", input: "l16", expected: FormatL16},
		{name: "empty string", input: "", expected: FormatUnknown, wantErr: true},
		{name: "unknown name", input: "mjpeg", expected: FormatUnknown, wantErr: true},
		{name: "case sensitive", input: "BGRA8", expected: FormatUnknown, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParsePixelFormat(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParsePixelFormat(%q) expected error, got nil", tt.input)
				}
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Errorf("ParsePixelFormat(%q) error = %v, want ErrUnsupportedFormat", tt.input, err)
				}
			} else if err != nil {
				t.Fatalf("ParsePixelFormat(%q) failed: %v", tt.input, err)
			}
			if result != tt.expected {
				t.Errorf("ParsePixelFormat(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestPixelFormatString(t *testing.T) {
	// Round trip: every parseable name stringifies back to itself.
	for _, name := range []string{"bgra8", "rgba8", "nv12", "yuy2", "l8", "l16"} {
		f, err := ParsePixelFormat(name)
		if err != nil {
			t.Fatalf("ParsePixelFormat(%q) failed: %v", name, err)
		}
		if f.String() != name {
			t.Errorf("%v.String() = %q, want %q", f, f.String(), name)
		}
	}

	if FormatUnknown.String() != "unknown" {
		t.Errorf("FormatUnknown.String() = %q, want %q", FormatUnknown.String(), "unknown")
	}
}
