package sources

import (
	"fmt"

	"github.com/camnode/camnode/pkg/capture"
)

// Wire formats by fourcc. Defined here rather than importing the
// linux-only platform package so conversions stay testable everywhere.
const (
	fourccYUYV  = 0x56595559 // 'YUYV' packed 4:2:2
	fourccNV12  = 0x3231564E // 'NV12' semi-planar 4:2:0
	fourccNV16  = 0x3631564E // 'NV16' semi-planar 4:2:2
	fourccYU12  = 0x32315559 // 'YU12' planar 4:2:0, U then V
	fourccYV12  = 0x32315659 // 'YV12' planar 4:2:0, V then U
	fourccRGB24 = 0x33424752 // 'RGB3'
	fourccBGR24 = 0x33524742 // 'BGR3'
	fourccGREY  = 0x59455247 // 'GREY' 8-bit luma
	fourccY16   = 0x20363159 // 'Y16 ' 16-bit luma, little-endian
)

// minStride returns the tightly packed bytes-per-line of a wire format's
// first plane, or 0 for an unknown fourcc.
func minStride(fourcc uint32, w int) int {
	switch fourcc {
	case fourccYUYV, fourccY16:
		return 2 * w
	case fourccNV12, fourccNV16, fourccYU12, fourccYV12, fourccGREY:
		return w
	case fourccRGB24, fourccBGR24:
		return 3 * w
	default:
		return 0
	}
}

// srcSize returns the byte length of a full image in the wire format at
// the given first-plane stride.
func srcSize(fourcc uint32, stride, h int) int {
	switch fourcc {
	case fourccYUYV, fourccGREY, fourccY16, fourccRGB24, fourccBGR24:
		return stride * h
	case fourccNV12:
		return stride*h + stride*(h/2)
	case fourccNV16:
		return 2 * stride * h
	case fourccYU12, fourccYV12:
		return stride*h + 2*(stride/2)*(h/2)
	default:
		return 0
	}
}

// directFormat returns the engine format whose memory layout matches the
// wire format byte for byte, or FormatUnknown when there is none.
func directFormat(fourcc uint32) capture.PixelFormat {
	switch fourcc {
	case fourccYUYV:
		return capture.FormatYUY2
	case fourccNV12:
		return capture.FormatNV12
	case fourccGREY:
		return capture.FormatL8
	case fourccY16:
		return capture.FormatL16
	default:
		return capture.FormatUnknown
	}
}

// canConvert reports whether convert has a path from the wire format to
// the engine format. Tests keep it in sync with convert's dispatch.
func canConvert(fourcc uint32, format capture.PixelFormat) bool {
	if directFormat(fourcc) == format {
		return true
	}
	switch format {
	case capture.FormatBGRA8, capture.FormatRGBA8:
		switch fourcc {
		case fourccYUYV, fourccNV12, fourccNV16, fourccYU12, fourccYV12,
			fourccGREY, fourccRGB24, fourccBGR24:
			return true
		}
	case capture.FormatNV12:
		return fourcc == fourccYU12 || fourcc == fourccYV12
	case capture.FormatL8:
		switch fourcc {
		case fourccYUYV, fourccNV12, fourccNV16, fourccYU12, fourccYV12, fourccY16:
			return true
		}
	case capture.FormatL16:
		return fourcc == fourccGREY
	}
	return false
}

// convert writes the pixels of one captured wire-format image into dst in
// the requested engine format. stride is the source's bytes-per-line for
// its first plane; 0 means tightly packed. dst must hold at least
// format.BufferSize(width, height) bytes. Subsampled wire formats assume
// even dimensions, which V4L2 requires of them anyway.
func convert(dst, src []byte, fourcc uint32, stride int, res capture.CameraResolution, format capture.PixelFormat) error {
	w, h := int(res.Width), int(res.Height)

	need := format.BufferSize(res.Width, res.Height)
	if need == 0 {
		return fmt.Errorf("%w: %v", capture.ErrUnsupportedFormat, format)
	}
	if len(dst) < need {
		return fmt.Errorf("%w: dst holds %d bytes, need %d", capture.ErrBufferSize, len(dst), need)
	}

	packed := minStride(fourcc, w)
	if packed == 0 {
		return fmt.Errorf("no conversion from %s", fourccString(fourcc))
	}
	if stride == 0 {
		stride = packed
	}
	if stride < packed {
		return fmt.Errorf("stride %d shorter than a %s row of %d bytes", stride, fourccString(fourcc), packed)
	}
	if want := srcSize(fourcc, stride, h); len(src) < want {
		return fmt.Errorf("%w: src holds %d bytes, need %d", capture.ErrBufferSize, len(src), want)
	}

	rOff, bOff := channelOffsets(format)

	switch {
	case fourcc == fourccNV12 && format == capture.FormatNV12:
		copyRows(dst, src, w, stride, h)
		copyRows(dst[w*h:], src[stride*h:], w, stride, h/2)

	case directFormat(fourcc) == format:
		copyRows(dst, src, packed, stride, h)

	case fourcc == fourccYUYV && (format == capture.FormatBGRA8 || format == capture.FormatRGBA8):
		yuyvToInterleaved(dst, src, stride, w, h, rOff, bOff)

	case fourcc == fourccYUYV && format == capture.FormatL8:
		yuyvToLuma(dst, src, stride, w, h)

	case fourcc == fourccNV12 && (format == capture.FormatBGRA8 || format == capture.FormatRGBA8):
		semiPlanarToInterleaved(dst, src, stride, w, h, 2, rOff, bOff)

	case fourcc == fourccNV16 && (format == capture.FormatBGRA8 || format == capture.FormatRGBA8):
		semiPlanarToInterleaved(dst, src, stride, w, h, 1, rOff, bOff)

	case (fourcc == fourccNV12 || fourcc == fourccNV16) && format == capture.FormatL8:
		copyRows(dst, src, w, stride, h)

	case (fourcc == fourccYU12 || fourcc == fourccYV12) && format == capture.FormatNV12:
		planarToNV12(dst, src, stride, w, h, fourcc == fourccYV12)

	case (fourcc == fourccYU12 || fourcc == fourccYV12) && (format == capture.FormatBGRA8 || format == capture.FormatRGBA8):
		planarToInterleaved(dst, src, stride, w, h, fourcc == fourccYV12, rOff, bOff)

	case (fourcc == fourccYU12 || fourcc == fourccYV12) && format == capture.FormatL8:
		copyRows(dst, src, w, stride, h)

	case fourcc == fourccGREY && (format == capture.FormatBGRA8 || format == capture.FormatRGBA8):
		lumaToInterleaved(dst, src, stride, w, h)

	case fourcc == fourccGREY && format == capture.FormatL16:
		lumaToL16(dst, src, stride, w, h)

	case fourcc == fourccY16 && format == capture.FormatL8:
		y16ToLuma(dst, src, stride, w, h)

	case fourcc == fourccRGB24 && format == capture.FormatRGBA8,
		fourcc == fourccBGR24 && format == capture.FormatBGRA8:
		pack3To4(dst, src, stride, w, h, false)

	case fourcc == fourccRGB24 && format == capture.FormatBGRA8,
		fourcc == fourccBGR24 && format == capture.FormatRGBA8:
		pack3To4(dst, src, stride, w, h, true)

	default:
		return fmt.Errorf("no conversion from %s to %s", fourccString(fourcc), format)
	}

	return nil
}

// channelOffsets returns the red and blue byte offsets within a 4-byte
// pixel of an interleaved engine format. Green and alpha sit at +1 and
// +3 in both.
func channelOffsets(format capture.PixelFormat) (rOff, bOff int) {
	if format == capture.FormatRGBA8 {
		return 0, 2
	}
	return 2, 0
}

// copyRows copies h rows of rowBytes each from a possibly padded source.
func copyRows(dst, src []byte, rowBytes, stride, h int) {
	if rowBytes == stride {
		copy(dst, src[:rowBytes*h])
		return
	}
	for y := range h {
		copy(dst[y*rowBytes:(y+1)*rowBytes], src[y*stride:])
	}
}

// yuvToRGB converts one BT.601 limited-range YUV sample to 8-bit RGB
// using the classic integer approximation.
func yuvToRGB(y, u, v byte) (byte, byte, byte) {
	c := int(y) - 16
	d := int(u) - 128
	e := int(v) - 128

	r := clamp8((298*c + 409*e + 128) >> 8)
	g := clamp8((298*c - 100*d - 208*e + 128) >> 8)
	b := clamp8((298*c + 516*d + 128) >> 8)
	return r, g, b
}

func clamp8(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

func yuyvToInterleaved(dst, src []byte, stride, w, h, rOff, bOff int) {
	di := 0
	for y := range h {
		row := src[y*stride:]
		for x := 0; x+1 < w; x += 2 {
			si := 2 * x
			y0, u, y1, v := row[si], row[si+1], row[si+2], row[si+3]

			r, g, b := yuvToRGB(y0, u, v)
			dst[di+rOff], dst[di+1], dst[di+bOff], dst[di+3] = r, g, b, 0xFF
			di += 4

			r, g, b = yuvToRGB(y1, u, v)
			dst[di+rOff], dst[di+1], dst[di+bOff], dst[di+3] = r, g, b, 0xFF
			di += 4
		}
	}
}

func yuyvToLuma(dst, src []byte, stride, w, h int) {
	di := 0
	for y := range h {
		row := src[y*stride:]
		for x := range w {
			dst[di] = row[2*x]
			di++
		}
	}
}

// semiPlanarToInterleaved handles NV12 (uvDiv 2) and NV16 (uvDiv 1): a
// luma plane followed by an interleaved UV plane at the same stride.
func semiPlanarToInterleaved(dst, src []byte, stride, w, h, uvDiv, rOff, bOff int) {
	uvPlane := src[stride*h:]
	di := 0
	for y := range h {
		yRow := src[y*stride:]
		uvRow := uvPlane[(y/uvDiv)*stride:]
		for x := range w {
			ci := x &^ 1
			r, g, b := yuvToRGB(yRow[x], uvRow[ci], uvRow[ci+1])
			dst[di+rOff], dst[di+1], dst[di+bOff], dst[di+3] = r, g, b, 0xFF
			di += 4
		}
	}
}

// planarToNV12 interleaves the chroma planes of a YU12/YV12 image into
// the NV12 layout.
func planarToNV12(dst, src []byte, stride, w, h int, vFirst bool) {
	di := 0
	for y := range h {
		copy(dst[di:di+w], src[y*stride:])
		di += w
	}

	cstride := stride / 2
	cw, ch := w/2, h/2
	plane1 := src[stride*h:]
	plane2 := plane1[cstride*ch:]
	uPlane, vPlane := plane1, plane2
	if vFirst {
		uPlane, vPlane = plane2, plane1
	}

	for y := range ch {
		uRow := uPlane[y*cstride:]
		vRow := vPlane[y*cstride:]
		for x := range cw {
			dst[di] = uRow[x]
			dst[di+1] = vRow[x]
			di += 2
		}
	}
}

func planarToInterleaved(dst, src []byte, stride, w, h int, vFirst bool, rOff, bOff int) {
	cstride := stride / 2
	ch := h / 2
	plane1 := src[stride*h:]
	plane2 := plane1[cstride*ch:]
	uPlane, vPlane := plane1, plane2
	if vFirst {
		uPlane, vPlane = plane2, plane1
	}

	di := 0
	for y := range h {
		yRow := src[y*stride:]
		uRow := uPlane[(y/2)*cstride:]
		vRow := vPlane[(y/2)*cstride:]
		for x := range w {
			r, g, b := yuvToRGB(yRow[x], uRow[x/2], vRow[x/2])
			dst[di+rOff], dst[di+1], dst[di+bOff], dst[di+3] = r, g, b, 0xFF
			di += 4
		}
	}
}

func lumaToInterleaved(dst, src []byte, stride, w, h int) {
	di := 0
	for y := range h {
		row := src[y*stride:]
		for x := range w {
			v := row[x]
			dst[di], dst[di+1], dst[di+2], dst[di+3] = v, v, v, 0xFF
			di += 4
		}
	}
}

// lumaToL16 upscales 8-bit luma to 16-bit by replication (v * 257), so
// full black and full white stay full range.
func lumaToL16(dst, src []byte, stride, w, h int) {
	di := 0
	for y := range h {
		row := src[y*stride:]
		for x := range w {
			v := row[x]
			dst[di] = v
			dst[di+1] = v
			di += 2
		}
	}
}

// y16ToLuma keeps the high byte of each little-endian 16-bit sample.
func y16ToLuma(dst, src []byte, stride, w, h int) {
	di := 0
	for y := range h {
		row := src[y*stride:]
		for x := range w {
			dst[di] = row[2*x+1]
			di++
		}
	}
}

// pack3To4 widens 3-byte pixels to 4 with an opaque alpha; swap reverses
// the channel order on the way through.
func pack3To4(dst, src []byte, stride, w, h int, swap bool) {
	di := 0
	for y := range h {
		row := src[y*stride:]
		for x := range w {
			si := 3 * x
			c0, c1, c2 := row[si], row[si+1], row[si+2]
			if swap {
				c0, c2 = c2, c0
			}
			dst[di], dst[di+1], dst[di+2], dst[di+3] = c0, c1, c2, 0xFF
			di += 4
		}
	}
}

// fourccString renders a fourcc as its four ASCII characters.
func fourccString(f uint32) string {
	return string([]byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)})
}
