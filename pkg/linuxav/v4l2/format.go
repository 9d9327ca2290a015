//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"
)

// GetFormats enumerates the pixel formats a device can deliver.
func GetFormats(devicePath string) ([]FormatInfo, error) {
	fd, err := open(devicePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open device: %w", err)
	}
	defer close(fd)

	var formats []FormatInfo
	for i := uint32(0); ; i++ {
		desc := v4l2_fmtdesc{
			index: i,
			typ:   V4L2_BUF_TYPE_VIDEO_CAPTURE,
		}
		if err := ioctl(fd, VIDIOC_ENUM_FMT, unsafe.Pointer(&desc)); err != nil {
			// EINVAL from an enumeration ioctl means past the end.
			if errors.Is(err, syscall.EINVAL) {
				break
			}
			return nil, fmt.Errorf("failed to enumerate format %d: %w", i, err)
		}

		formats = append(formats, FormatInfo{
			PixelFormat: desc.pixelformat,
			FormatName:  cstr(desc.description[:]),
			Emulated:    desc.flags&V4L2_FMT_FLAG_EMULATED != 0,
		})
	}
	return formats, nil
}

// GetResolutions enumerates the frame sizes a device offers for one
// pixel format. Stepwise and continuous ranges are reported as the
// common sizes that fit the range.
func GetResolutions(devicePath string, pixelFormat uint32) ([]Resolution, error) {
	fd, err := open(devicePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open device: %w", err)
	}
	defer close(fd)

	var resolutions []Resolution
	for i := uint32(0); ; i++ {
		size := v4l2_frmsizeenum{
			index:        i,
			pixel_format: pixelFormat,
		}
		if err := ioctl(fd, VIDIOC_ENUM_FRAMESIZES, unsafe.Pointer(&size)); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				break
			}
			// ENOTTY: driver has no frame size enumeration at all.
			if errors.Is(err, syscall.ENOTTY) {
				return []Resolution{}, nil
			}
			return nil, fmt.Errorf("failed to enumerate frame size %d: %w", i, err)
		}

		switch size.typ {
		case V4L2_FRMSIZE_TYPE_DISCRETE:
			resolutions = append(resolutions, Resolution{
				Width:  size.discrete.width,
				Height: size.discrete.height,
			})
		case V4L2_FRMSIZE_TYPE_CONTINUOUS, V4L2_FRMSIZE_TYPE_STEPWISE:
			// The driver reports exactly one range entry.
			return append(resolutions, rangeResolutions(&size)...), nil
		}
	}
	return resolutions, nil
}

// GetFramerates enumerates the frame intervals for one format and
// size, converted to framerate fractions.
func GetFramerates(devicePath string, pixelFormat uint32, width, height uint32) ([]Framerate, error) {
	fd, err := open(devicePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open device: %w", err)
	}
	defer close(fd)

	var framerates []Framerate
	for i := uint32(0); ; i++ {
		ival := v4l2_frmivalenum{
			index:        i,
			pixel_format: pixelFormat,
			width:        width,
			height:       height,
		}
		if err := ioctl(fd, VIDIOC_ENUM_FRAMEINTERVALS, unsafe.Pointer(&ival)); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				break
			}
			return nil, fmt.Errorf("failed to enumerate frame interval %d: %w", i, err)
		}

		switch ival.typ {
		case V4L2_FRMIVAL_TYPE_DISCRETE:
			framerates = append(framerates, Framerate{
				Numerator:   ival.discrete.numerator,
				Denominator: ival.discrete.denominator,
			})
		case V4L2_FRMIVAL_TYPE_CONTINUOUS, V4L2_FRMIVAL_TYPE_STEPWISE:
			return append(framerates, standardFramerates()...), nil
		}
	}
	return framerates, nil
}

// standardSizes are the resolutions offered for range-typed drivers,
// smallest first.
var standardSizes = [][2]uint32{
	{320, 240},
	{640, 480},
	{800, 600},
	{1024, 768},
	{1280, 720},
	{1280, 960},
	{1280, 1024},
	{1920, 1080},
	{1920, 1200},
	{2560, 1440},
	{3840, 2160},
	{4096, 2160},
}

// rangeResolutions filters the standard sizes down to the ones inside
// a stepwise or continuous range.
func rangeResolutions(size *v4l2_frmsizeenum) []Resolution {
	// stepwise overlays discrete in the kernel union.
	sw := (*v4l2_frmsize_stepwise)(unsafe.Pointer(&size.discrete))

	var resolutions []Resolution
	for _, s := range standardSizes {
		w, h := s[0], s[1]
		if w >= sw.min_width && w <= sw.max_width &&
			h >= sw.min_height && h <= sw.max_height {
			resolutions = append(resolutions, Resolution{Width: w, Height: h})
		}
	}
	return resolutions
}

// standardFramerates are the rates offered for range-typed drivers,
// fastest first.
func standardFramerates() []Framerate {
	return []Framerate{
		{1, 60},
		{1, 50},
		{1, 30},
		{1, 25},
		{1, 20},
		{1, 15},
		{1, 10},
		{1, 5},
	}
}

// FormatFourCC renders a pixel format code as its four-character
// name, e.g. "YUYV".
func FormatFourCC(format uint32) string {
	return string([]byte{
		byte(format),
		byte(format >> 8),
		byte(format >> 16),
		byte(format >> 24),
	})
}
