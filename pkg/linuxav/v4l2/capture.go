//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"
)

// ErrNotStreaming is returned by WaitFrame when streaming has not been started.
var ErrNotStreaming = errors.New("device is not streaming")

// Format describes a negotiated capture format. The driver may adjust the
// requested dimensions, so always use the values returned by SetFormat.
type Format struct {
	Width        uint32
	Height       uint32
	PixelFormat  uint32 // fourcc
	BytesPerLine uint32
	SizeImage    uint32
}

// Buffer is a dequeued frame. Data points into the mmap'd buffer region and
// is only valid until the buffer is requeued or streaming stops.
type Buffer struct {
	Index     uint32
	Data      []byte
	Sequence  uint32
	Timestamp float64 // driver timestamp in seconds
}

// Camera is an open V4L2 capture device using memory-mapped streaming I/O.
// It is intended to be driven by a single goroutine.
type Camera struct {
	fd        int
	path      string
	buffers   [][]byte
	streaming bool
}

// OpenCamera opens a V4L2 device and verifies it supports streaming video
// capture.
func OpenCamera(devicePath string) (*Camera, error) {
	fd, err := syscall.Open(devicePath, syscall.O_RDWR|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", devicePath, err)
	}

	cap := v4l2_capability{}
	if err := ioctl(fd, VIDIOC_QUERYCAP, unsafe.Pointer(&cap)); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("failed to query capabilities of %s: %w", devicePath, err)
	}

	// Use per-node capabilities when the driver reports them
	caps := cap.capabilities
	if caps&V4L2_CAP_DEVICE_CAPS != 0 {
		caps = cap.device_caps
	}

	if caps&V4L2_CAP_VIDEO_CAPTURE == 0 {
		syscall.Close(fd)
		return nil, fmt.Errorf("%s is not a video capture device", devicePath)
	}
	if caps&V4L2_CAP_STREAMING == 0 {
		syscall.Close(fd)
		return nil, fmt.Errorf("%s does not support streaming I/O", devicePath)
	}

	return &Camera{fd: fd, path: devicePath}, nil
}

// Path returns the device path the camera was opened with.
func (c *Camera) Path() string {
	return c.path
}

// SetFormat negotiates the capture format. The driver is free to adjust the
// requested dimensions to the nearest supported values; the negotiated format
// is returned. Must be called before StartStreaming.
func (c *Camera) SetFormat(fourcc, width, height uint32) (Format, error) {
	vfmt := v4l2_format{typ: V4L2_BUF_TYPE_VIDEO_CAPTURE}
	vfmt.pix.width = width
	vfmt.pix.height = height
	vfmt.pix.pixelformat = fourcc
	vfmt.pix.field = V4L2_FIELD_NONE

	if err := ioctl(c.fd, VIDIOC_S_FMT, unsafe.Pointer(&vfmt)); err != nil {
		return Format{}, fmt.Errorf("failed to set format on %s: %w", c.path, err)
	}

	return Format{
		Width:        vfmt.pix.width,
		Height:       vfmt.pix.height,
		PixelFormat:  vfmt.pix.pixelformat,
		BytesPerLine: vfmt.pix.bytesperline,
		SizeImage:    vfmt.pix.sizeimage,
	}, nil
}

// SetFramerate requests a capture frame interval. The rate uses the same
// time-per-frame convention as GetFramerates, so a value from that list can
// be passed through directly. Returns the interval the driver settled on.
// Not all drivers support this (ENOTTY is returned by those that don't).
func (c *Camera) SetFramerate(rate Framerate) (Framerate, error) {
	parm := v4l2_streamparm{typ: V4L2_BUF_TYPE_VIDEO_CAPTURE}
	parm.capture.timeperframe = v4l2_fract{
		numerator:   rate.Numerator,
		denominator: rate.Denominator,
	}

	if err := ioctl(c.fd, VIDIOC_S_PARM, unsafe.Pointer(&parm)); err != nil {
		return Framerate{}, fmt.Errorf("failed to set frame rate on %s: %w", c.path, err)
	}

	tpf := parm.capture.timeperframe
	if tpf.numerator == 0 || tpf.denominator == 0 {
		// Driver did not report the adjusted interval
		return rate, nil
	}
	return Framerate{Numerator: tpf.numerator, Denominator: tpf.denominator}, nil
}

// StartStreaming allocates count memory-mapped buffers, queues them all, and
// starts the capture stream. SetFormat must have been called first. If count
// is not positive a default of 4 buffers is used.
func (c *Camera) StartStreaming(count int) error {
	if c.streaming {
		return fmt.Errorf("%s is already streaming", c.path)
	}
	if count <= 0 {
		count = 4
	}

	req := v4l2_requestbuffers{
		count:  uint32(count),
		typ:    V4L2_BUF_TYPE_VIDEO_CAPTURE,
		memory: V4L2_MEMORY_MMAP,
	}
	if err := ioctl(c.fd, VIDIOC_REQBUFS, unsafe.Pointer(&req)); err != nil {
		return fmt.Errorf("failed to request buffers on %s: %w", c.path, err)
	}
	if req.count == 0 {
		return fmt.Errorf("driver allocated no buffers on %s", c.path)
	}

	c.buffers = make([][]byte, req.count)
	for i := range req.count {
		buf := v4l2_buffer{
			index:  i,
			typ:    V4L2_BUF_TYPE_VIDEO_CAPTURE,
			memory: V4L2_MEMORY_MMAP,
		}
		if err := ioctl(c.fd, VIDIOC_QUERYBUF, unsafe.Pointer(&buf)); err != nil {
			c.releaseBuffers()
			return fmt.Errorf("failed to query buffer %d on %s: %w", i, c.path, err)
		}

		data, err := syscall.Mmap(c.fd, int64(buf.m_offset), int(buf.length),
			syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
		if err != nil {
			c.releaseBuffers()
			return fmt.Errorf("failed to mmap buffer %d on %s: %w", i, c.path, err)
		}
		c.buffers[i] = data
	}

	for i := range req.count {
		if err := c.requeueIndex(i); err != nil {
			c.releaseBuffers()
			return err
		}
	}

	typ := uint32(V4L2_BUF_TYPE_VIDEO_CAPTURE)
	if err := ioctl(c.fd, VIDIOC_STREAMON, unsafe.Pointer(&typ)); err != nil {
		c.releaseBuffers()
		return fmt.Errorf("failed to start streaming on %s: %w", c.path, err)
	}

	c.streaming = true
	return nil
}

// WaitFrame waits for the next captured frame. Returns (nil, nil) if the
// timeout expires before a frame arrives; a timeout of 0 or less waits
// indefinitely. The returned buffer must be handed back with Requeue once
// its data has been consumed.
func (c *Camera) WaitFrame(timeoutMs int) (*Buffer, error) {
	if !c.streaming {
		return nil, ErrNotStreaming
	}

	var tv *syscall.Timeval
	if timeoutMs > 0 {
		tv = makeTimeval(timeoutMs)
	}

	for {
		var readFds syscall.FdSet
		fdSet(c.fd, &readFds)

		// Linux decrements tv in place, so retries consume the same budget
		n, err := syscall.Select(c.fd+1, &readFds, nil, nil, tv)
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return nil, fmt.Errorf("select on %s failed: %w", c.path, err)
		}
		if n == 0 {
			return nil, nil // Timeout
		}

		buf := v4l2_buffer{
			typ:    V4L2_BUF_TYPE_VIDEO_CAPTURE,
			memory: V4L2_MEMORY_MMAP,
		}
		if err := ioctlRetry(c.fd, VIDIOC_DQBUF, unsafe.Pointer(&buf)); err != nil {
			if errors.Is(err, syscall.EAGAIN) {
				continue // Spurious wakeup, no buffer ready yet
			}
			return nil, fmt.Errorf("failed to dequeue buffer from %s: %w", c.path, err)
		}

		if int(buf.index) >= len(c.buffers) {
			return nil, fmt.Errorf("driver returned out-of-range buffer index %d on %s", buf.index, c.path)
		}

		// A buffer flagged with an error holds no usable frame. Hand it
		// back and wait for the next one.
		if buf.flags&V4L2_BUF_FLAG_ERROR != 0 {
			if err := c.requeueIndex(buf.index); err != nil {
				return nil, err
			}
			continue
		}

		used := buf.bytesused
		if used == 0 || used > buf.length {
			used = buf.length
		}

		return &Buffer{
			Index:     buf.index,
			Data:      c.buffers[buf.index][:used],
			Sequence:  buf.sequence,
			Timestamp: float64(buf.timestamp.Sec) + float64(buf.timestamp.Usec)/1e6,
		}, nil
	}
}

// Requeue returns a dequeued buffer to the driver's capture queue. The
// buffer's Data slice must not be touched after this call.
func (c *Camera) Requeue(b *Buffer) error {
	return c.requeueIndex(b.Index)
}

func (c *Camera) requeueIndex(index uint32) error {
	buf := v4l2_buffer{
		index:  index,
		typ:    V4L2_BUF_TYPE_VIDEO_CAPTURE,
		memory: V4L2_MEMORY_MMAP,
	}
	if err := ioctl(c.fd, VIDIOC_QBUF, unsafe.Pointer(&buf)); err != nil {
		return fmt.Errorf("failed to queue buffer %d on %s: %w", index, c.path, err)
	}
	return nil
}

// StopStreaming stops the capture stream and releases all buffers. Every
// outstanding Buffer becomes invalid.
func (c *Camera) StopStreaming() error {
	if !c.streaming {
		return nil
	}
	c.streaming = false

	typ := uint32(V4L2_BUF_TYPE_VIDEO_CAPTURE)
	err := ioctlRetry(c.fd, VIDIOC_STREAMOFF, unsafe.Pointer(&typ))
	c.releaseBuffers()
	if err != nil {
		return fmt.Errorf("failed to stop streaming on %s: %w", c.path, err)
	}
	return nil
}

// releaseBuffers unmaps all capture buffers and frees them in the driver.
func (c *Camera) releaseBuffers() {
	for _, b := range c.buffers {
		if b != nil {
			_ = syscall.Munmap(b)
		}
	}
	c.buffers = nil

	req := v4l2_requestbuffers{
		typ:    V4L2_BUF_TYPE_VIDEO_CAPTURE,
		memory: V4L2_MEMORY_MMAP,
	}
	_ = ioctl(c.fd, VIDIOC_REQBUFS, unsafe.Pointer(&req))
}

// Close stops streaming if active and closes the device.
func (c *Camera) Close() error {
	if c.fd < 0 {
		return nil
	}
	_ = c.StopStreaming()
	err := syscall.Close(c.fd)
	c.fd = -1
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", c.path, err)
	}
	return nil
}
