package capture

import "fmt"

// PixelFormat identifies the memory layout of a frame's pixel buffer.
type PixelFormat int

// Supported pixel formats.
const (
	FormatUnknown PixelFormat = iota
	FormatBGRA8               // 8-bit BGRA, 4 bytes per pixel
	FormatRGBA8               // 8-bit RGBA, 4 bytes per pixel
	FormatNV12                // 4:2:0 Y plane + interleaved UV plane
	FormatYUY2                // 4:2:2 packed, 2 bytes per pixel
	FormatL8                  // 8-bit luminance
	FormatL16                 // 16-bit luminance
)

// String returns the lowercase format name used in config files and logs.
func (f PixelFormat) String() string {
	switch f {
	case FormatBGRA8:
		return "bgra8"
	case FormatRGBA8:
		return "rgba8"
	case FormatNV12:
		return "nv12"
	case FormatYUY2:
		return "yuy2"
	case FormatL8:
		return "l8"
	case FormatL16:
		return "l16"
	default:
		return "unknown"
	}
}

// BufferSize returns the byte length of a pixel buffer holding a
// width x height image in this format. NV12 uses integer truncation
// for its subsampled chroma plane. Returns 0 for FormatUnknown.
func (f PixelFormat) BufferSize(width, height uint32) int {
	w, h := int(width), int(height)
	switch f {
	case FormatBGRA8, FormatRGBA8:
		return w * h * 4
	case FormatNV12:
		return w * h * 6 / 4
	case FormatYUY2, FormatL16:
		return w * h * 2
	case FormatL8:
		return w * h
	default:
		return 0
	}
}

// ParsePixelFormat converts a config-file format name to a PixelFormat.
func ParsePixelFormat(s string) (PixelFormat, error) {
	switch s {
	case "bgra8":
		return FormatBGRA8, nil
	case "rgba8":
		return FormatRGBA8, nil
	case "nv12":
		return FormatNV12, nil
	case "yuy2":
		return FormatYUY2, nil
	case "l8":
		return FormatL8, nil
	case "l16":
		return FormatL16, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}
