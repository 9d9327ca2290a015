//go:build linux && (amd64 || arm64)

package v4l2

import (
	"syscall"
	"unsafe"
)

// Compile-time struct size assertions.
// These will cause build failures if struct sizes don't match kernel expectations.
var (
	_ [104]byte = [unsafe.Sizeof(v4l2_capability{})]byte{}
	_ [64]byte  = [unsafe.Sizeof(v4l2_fmtdesc{})]byte{}
	_ [8]byte   = [unsafe.Sizeof(v4l2_frmsize_discrete{})]byte{}
	_ [24]byte  = [unsafe.Sizeof(v4l2_frmsize_stepwise{})]byte{}
	_ [44]byte  = [unsafe.Sizeof(v4l2_frmsizeenum{})]byte{}
	_ [8]byte   = [unsafe.Sizeof(v4l2_fract{})]byte{}
	_ [52]byte  = [unsafe.Sizeof(v4l2_frmivalenum{})]byte{}
	_ [124]byte = [unsafe.Sizeof(v4l2_bt_timings{})]byte{}
	_ [132]byte = [unsafe.Sizeof(v4l2_dv_timings{})]byte{}
	_ [32]byte  = [unsafe.Sizeof(v4l2_event_subscription{})]byte{}
	_ [136]byte = [unsafe.Sizeof(v4l2_event{})]byte{}
	_ [48]byte  = [unsafe.Sizeof(v4l2_pix_format{})]byte{}
	_ [208]byte = [unsafe.Sizeof(v4l2_format{})]byte{}
	_ [20]byte  = [unsafe.Sizeof(v4l2_requestbuffers{})]byte{}
	_ [16]byte  = [unsafe.Sizeof(v4l2_timecode{})]byte{}
	_ [88]byte  = [unsafe.Sizeof(v4l2_buffer{})]byte{}
	_ [204]byte = [unsafe.Sizeof(v4l2_streamparm{})]byte{}
)

// IOCTL constants for 64-bit architectures.
// Request codes embed the struct size, so any code whose struct differs
// between 32-bit and 64-bit lives in the per-arch file.
const (
	VIDIOC_QUERYCAP            = 0x80685600
	VIDIOC_ENUM_FMT            = 0xc0405602
	VIDIOC_G_FMT               = 0xc0d05604 // v4l2_format is 208 bytes on 64-bit
	VIDIOC_S_FMT               = 0xc0d05605
	VIDIOC_REQBUFS             = 0xc0145608
	VIDIOC_QUERYBUF            = 0xc0585609 // v4l2_buffer is 88 bytes on 64-bit
	VIDIOC_QBUF                = 0xc058560f
	VIDIOC_DQBUF               = 0xc0585611
	VIDIOC_STREAMON            = 0x40045612
	VIDIOC_STREAMOFF           = 0x40045613
	VIDIOC_G_PARM              = 0xc0cc5615
	VIDIOC_S_PARM              = 0xc0cc5616
	VIDIOC_ENUM_FRAMESIZES     = 0xc02c564a
	VIDIOC_ENUM_FRAMEINTERVALS = 0xc034564b
	VIDIOC_G_DV_TIMINGS        = 0xc0845658
	VIDIOC_SUBSCRIBE_EVENT     = 0x4020565a
	VIDIOC_UNSUBSCRIBE_EVENT   = 0x4020565b
	VIDIOC_DQEVENT             = 0x80885659 // v4l2_event is 136 bytes on 64-bit
)

// v4l2_capability - size 104 bytes
type v4l2_capability struct {
	driver       [16]byte
	card         [32]byte
	bus_info     [32]byte
	version      uint32
	capabilities uint32
	device_caps  uint32
	reserved     [3]uint32
}

// v4l2_fmtdesc - size 64 bytes
type v4l2_fmtdesc struct {
	index       uint32
	typ         uint32
	flags       uint32
	description [32]byte
	pixelformat uint32
	mbus_code   uint32
	reserved    [3]uint32
}

// v4l2_frmsize_discrete - size 8 bytes
type v4l2_frmsize_discrete struct {
	width  uint32
	height uint32
}

// v4l2_frmsize_stepwise - size 24 bytes
type v4l2_frmsize_stepwise struct {
	min_width   uint32
	max_width   uint32
	step_width  uint32
	min_height  uint32
	max_height  uint32
	step_height uint32
}

// v4l2_frmsizeenum - size 44 bytes
type v4l2_frmsizeenum struct {
	index        uint32
	pixel_format uint32
	typ          uint32
	discrete     v4l2_frmsize_discrete // union with stepwise
	_            [16]byte              // padding for stepwise
	reserved     [2]uint32
}

// v4l2_fract - size 8 bytes
type v4l2_fract struct {
	numerator   uint32
	denominator uint32
}

// v4l2_frmival_stepwise - size 24 bytes
type v4l2_frmival_stepwise struct {
	min  v4l2_fract
	max  v4l2_fract
	step v4l2_fract
}

// v4l2_frmivalenum - size 52 bytes
type v4l2_frmivalenum struct {
	index        uint32
	pixel_format uint32
	width        uint32
	height       uint32
	typ          uint32
	discrete     v4l2_fract // union with stepwise
	_            [16]byte
	reserved     [2]uint32
}

// v4l2_bt_timings - size 124 bytes. v4l2_dv_timings is packed in the
// kernel, which puts pixelclock on a 4-byte boundary; it is carried as
// two uint32 halves so the Go layout has no 8-byte alignment.
type v4l2_bt_timings struct {
	width          uint32
	height         uint32
	interlaced     uint32
	polarities     uint32
	pixelclock_lo  uint32
	pixelclock_hi  uint32
	hfrontporch    uint32
	hsync          uint32
	hbackporch     uint32
	vfrontporch    uint32
	vsync          uint32
	vbackporch     uint32
	il_vfrontporch uint32
	il_vsync       uint32
	il_vbackporch  uint32
	standards      uint32
	flags          uint32
	picture_aspect v4l2_fract
	cea861_vic     uint8
	hdmi_vic       uint8
	reserved       [46]byte
}

// pixelClock assembles the 64-bit pixel clock from its halves.
func (bt *v4l2_bt_timings) pixelClock() uint64 {
	return uint64(bt.pixelclock_lo) | uint64(bt.pixelclock_hi)<<32
}

// v4l2_dv_timings - size 132 bytes (packed, union padded to reserved[32])
type v4l2_dv_timings struct {
	typ uint32
	bt  v4l2_bt_timings
	_   [4]byte
}

// v4l2_event_subscription - size 32 bytes
type v4l2_event_subscription struct {
	typ      uint32
	id       uint32
	flags    uint32
	reserved [5]uint32
}

// v4l2_event - size 136 bytes on 64-bit (struct timespec is 16 bytes)
type v4l2_event struct {
	typ       uint32
	_         [4]byte
	u         [64]byte // union containing src_change at offset 0
	pending   uint32
	sequence  uint32
	timestamp [16]byte // struct timespec
	id        uint32
	reserved  [8]uint32
	_         [4]byte
}

// v4l2_pix_format - size 48 bytes (same on all architectures)
type v4l2_pix_format struct {
	width        uint32
	height       uint32
	pixelformat  uint32
	field        uint32
	bytesperline uint32
	sizeimage    uint32
	colorspace   uint32
	priv         uint32
	flags        uint32
	ycbcr_enc    uint32 // union with hsv_enc
	quantization uint32
	xfer_func    uint32
}

// v4l2_format - size 208 bytes on 64-bit. The fmt union holds pointers in
// some members, so it is 8-byte aligned and padded to 200 bytes.
type v4l2_format struct {
	typ uint32
	_   [4]byte
	pix v4l2_pix_format // union member for video capture
	_   [152]byte       // pad union to 200 bytes
}

// v4l2_requestbuffers - size 20 bytes (same on all architectures)
type v4l2_requestbuffers struct {
	count        uint32
	typ          uint32
	memory       uint32
	capabilities uint32
	flags        uint8
	reserved     [3]uint8
}

// v4l2_timecode - size 16 bytes
type v4l2_timecode struct {
	typ      uint32
	flags    uint32
	frames   uint8
	seconds  uint8
	minutes  uint8
	hours    uint8
	userbits [4]uint8
}

// v4l2_buffer - size 88 bytes on 64-bit (struct timeval is 16 bytes,
// the m union holds a pointer)
type v4l2_buffer struct {
	index      uint32
	typ        uint32
	bytesused  uint32
	flags      uint32
	field      uint32
	_          [4]byte
	timestamp  syscall.Timeval
	timecode   v4l2_timecode
	sequence   uint32
	memory     uint32
	m_offset   uint32 // union: mmap offset for V4L2_MEMORY_MMAP
	_          [4]byte
	length     uint32
	reserved2  uint32
	request_fd uint32
	_          [4]byte
}

// v4l2_captureparm - size 40 bytes
type v4l2_captureparm struct {
	capability   uint32
	capturemode  uint32
	timeperframe v4l2_fract
	extendedmode uint32
	readbuffers  uint32
	reserved     [4]uint32
}

// v4l2_streamparm - size 204 bytes (union padded to 200, no pointers)
type v4l2_streamparm struct {
	typ     uint32
	capture v4l2_captureparm // union member for video capture
	_       [160]byte        // pad union to 200 bytes
}
