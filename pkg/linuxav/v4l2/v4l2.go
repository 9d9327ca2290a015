//go:build linux

// Package v4l2 provides pure Go bindings to the Video4Linux2 (V4L2) API
// for device enumeration, format queries, signal detection, and
// memory-mapped frame capture.
//
// No cgo is involved; every call goes through raw ioctls, so the
// package cross-compiles to any Linux architecture (amd64, arm64, arm)
// with CGO_ENABLED=0.
//
// # Device Enumeration
//
// FindDevices walks /dev/video* and keeps the nodes that report the
// capture capability:
//
//	devices, err := v4l2.FindDevices()
//	for _, dev := range devices {
//	    fmt.Printf("%s: %s\n", dev.DevicePath, dev.DeviceName)
//	}
//
// # Format Queries
//
// Formats, resolutions, and framerates enumerate independently; each
// level narrows the previous one:
//
//	formats, _ := v4l2.GetFormats("/dev/video0")
//	for _, f := range formats {
//	    resolutions, _ := v4l2.GetResolutions("/dev/video0", f.PixelFormat)
//	    for _, res := range resolutions {
//	        framerates, _ := v4l2.GetFramerates("/dev/video0", f.PixelFormat, res.Width, res.Height)
//	    }
//	}
//
// # Signal Detection
//
// HDMI capture devices report link state through DV timings; webcams
// and other sensors come back as SignalStateNotSupported:
//
//	status := v4l2.GetSignalStatus("/dev/video0")
//	if status.State == v4l2.SignalStateLocked {
//	    fmt.Printf("Signal: %dx%d @ %.2f fps\n", status.Width, status.Height, status.FPS)
//	}
//
// To block until the source changes (an HDMI cable plugged in, a
// resolution switch):
//
//	changed, err := v4l2.WaitForSourceChange("/dev/video0", 5000)
//	if err == nil && changed {
//	    // Re-query the signal and renegotiate the format.
//	}
//
// # Frame Capture
//
// Open a device, negotiate a format, and stream frames through mmap
// buffers. Buffers belong to the kernel queue; hand each one back with
// Requeue once its pixels are consumed:
//
//	cam, err := v4l2.OpenCamera("/dev/video0")
//	format, _ := cam.SetFormat(v4l2.V4L2_PIX_FMT_YUYV, 1920, 1080)
//	cam.StartStreaming(4)
//	for {
//	    buf, err := cam.WaitFrame(500)
//	    if err != nil || buf == nil {
//	        continue // error or timeout
//	    }
//	    process(buf.Data)
//	    cam.Requeue(buf)
//	}
package v4l2
