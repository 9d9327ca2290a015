package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/camnode/camnode/internal/config"
	"github.com/camnode/camnode/internal/logging"
	"github.com/camnode/camnode/internal/sources"
	"github.com/camnode/camnode/pkg/capture"
)

// CreateGrabCmd creates the grab command.
func CreateGrabCmd() *cobra.Command {
	var (
		cameraID    string
		sourceName  string
		device      string
		camerasFile string
		outPath     string
		format      string
		width       uint32
		height      uint32
		framerate   float64
		timeout     time.Duration
		logJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "grab",
		Short: "Capture a single frame to a file",
		Long: `Runs one capture cycle without the daemon: discover the source's streams, ` +
			`open a session, take a single frame, and write its raw pixel bytes to a file. ` +
			`The source comes from a camera defined in the cameras file (--camera) or is named directly (--source).`,
		Run: func(_ *cobra.Command, _ []string) {
			loggingConfig := logging.Config{Level: "info", Format: "text"}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("grab")

			name := sourceName
			opts := sources.Options{
				Device:    device,
				Width:     width,
				Height:    height,
				Framerate: framerate,
				Logger:    logger,
			}
			deliveryFormat := format

			if cameraID != "" {
				store := config.NewCamerasStore(camerasFile)
				if err := store.Load(); err != nil {
					fmt.Fprintf(os.Stderr, "Failed to load cameras file: %v\n", err)
					os.Exit(1)
				}
				spec, ok := store.Get(cameraID)
				if !ok {
					fmt.Fprintf(os.Stderr, "Camera %q not found in %s\n", cameraID, camerasFile)
					os.Exit(1)
				}
				name = spec.Source
				opts.Device = spec.Device
				opts.SourceFormat = spec.SourceFormat
				if width == 0 && height == 0 {
					opts.Width, opts.Height = spec.Width, spec.Height
				}
				if framerate == 0 {
					opts.Framerate = spec.Framerate
				}
				if deliveryFormat == "" {
					deliveryFormat = spec.Format
				}
			}
			if name == "" {
				fmt.Fprintln(os.Stderr, "Either --camera or --source is required")
				os.Exit(1)
			}

			pixelFormat := capture.FormatBGRA8
			if deliveryFormat != "" {
				var err error
				pixelFormat, err = capture.ParsePixelFormat(deliveryFormat)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
					os.Exit(1)
				}
			}

			src, err := sources.New(name, opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to create source: %v\n", err)
				os.Exit(1)
			}

			cam := capture.NewCamera(capture.CameraOptions{
				Source: src,
				Pool:   capture.NewFramePool(logger),
				Mode:   capture.ModeSingle,
				Format: pixelFormat,
				Logger: logger,
			})

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			if err := cam.Initialize(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Discovery failed: %v\n", err)
				os.Exit(1)
			}

			cat := cam.Catalog()
			if opts.Width != 0 && opts.Height != 0 {
				cat = cat.SelectResolution(capture.EqualTo, opts.Width, opts.Height)
			}
			if opts.Framerate > 0 {
				cat = cat.SelectFramerate(capture.EqualTo, opts.Framerate)
			}
			desc, ok := cat.First()
			if !ok {
				fmt.Fprintln(os.Stderr, "No stream matches the requested mode")
				os.Exit(1)
			}
			logger.Info("Selected stream", "stream", desc.String())

			// The listener hands its frame reference to the channel; the
			// main goroutine inherits it on receive.
			frameCh := make(chan *capture.Frame, 1)
			unsub := cam.OnFrame(func(f *capture.Frame) {
				select {
				case frameCh <- f:
				default:
					f.Release()
				}
			})
			defer unsub()

			if err := cam.Start(ctx, desc); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to open capture session: %v\n", err)
				os.Exit(1)
			}

			if err := cam.TakeSingle(); err != nil {
				fmt.Fprintf(os.Stderr, "Capture failed: %v\n", err)
				_ = cam.Stop()
				os.Exit(1)
			}

			var frame *capture.Frame
			select {
			case frame = <-frameCh:
			case <-ctx.Done():
				fmt.Fprintln(os.Stderr, "Timed out waiting for a frame")
				_ = cam.Stop()
				os.Exit(1)
			}

			raw := capture.EncoderFunc(func(w io.Writer, f *capture.Frame) error {
				_, err := w.Write(f.Bytes())
				return err
			})

			saveErr := frame.Save(outPath, raw)
			res := frame.Resolution()
			size := len(frame.Bytes())
			frame.Release()

			if stopErr := cam.Stop(); stopErr != nil {
				logger.Warn("Stopping camera failed", "error", stopErr)
			}

			if saveErr != nil {
				fmt.Fprintf(os.Stderr, "Failed to save frame: %v\n", saveErr)
				os.Exit(1)
			}

			fmt.Printf("Saved %dx%d %s frame (%d bytes) to %s\n",
				res.Width, res.Height, pixelFormat, size, outPath)
		},
	}

	cmd.Flags().StringVar(&cameraID, "camera", "", "Camera ID from the cameras file")
	cmd.Flags().StringVar(&sourceName, "source", "", "Source backend name (synthetic, v4l2, gst)")
	cmd.Flags().StringVar(&device, "device", "", "Device ID or path for sources that manage several")
	cmd.Flags().StringVar(&camerasFile, "cameras", "cameras.toml", "Cameras definition file")
	cmd.Flags().StringVarP(&outPath, "out", "o", "frame.raw", "Output file for the raw frame bytes")
	cmd.Flags().StringVar(&format, "format", "", "Delivery pixel format (default bgra8)")
	cmd.Flags().Uint32Var(&width, "width", 0, "Stream width to select")
	cmd.Flags().Uint32Var(&height, "height", 0, "Stream height to select")
	cmd.Flags().Float64Var(&framerate, "framerate", 0, "Stream framerate to select")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Overall deadline for the capture cycle")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Log in JSON format")
	return cmd
}
