package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/camnode/camnode/internal/api/models"
	"github.com/camnode/camnode/internal/devices"
)

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd() *cobra.Command {
	var (
		showFormats bool
		showSignal  bool
	)

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List video capture devices",
		Long: `Enumerates the video capture devices currently attached to this machine. ` +
			`With --formats each device's pixel formats are listed as well, named the way cameras.toml expects them. ` +
			`With --signal each device reports its class and input signal state.`,
		Run: func(_ *cobra.Command, _ []string) {
			detector := devices.NewDetector()

			found, err := detector.FindDevices()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to enumerate devices: %v\n", err)
				os.Exit(1)
			}

			if len(found) == 0 {
				fmt.Println("No capture devices found")
				return
			}

			for _, dev := range found {
				fmt.Printf("%s\t%s", dev.DevicePath, dev.DeviceName)
				if dev.DeviceID != "" {
					fmt.Printf("\t[%s]", dev.DeviceID)
				}
				fmt.Println()

				if showSignal {
					sig, err := detector.GetDeviceSignal(dev.DevicePath, 0)
					if err != nil {
						fmt.Fprintf(os.Stderr, "  failed to probe signal: %v\n", err)
					} else {
						line := fmt.Sprintf("  %s, %s", sig.Kind, sig.State)
						if sig.State == "locked" {
							line += fmt.Sprintf(" %dx%d@%.2f", sig.Width, sig.Height, sig.FPS)
						}
						fmt.Println(line)
					}
				}

				if !showFormats {
					continue
				}

				formats, err := detector.GetDeviceFormats(dev.DevicePath)
				if err != nil {
					fmt.Fprintf(os.Stderr, "  failed to read formats: %v\n", err)
					continue
				}
				for _, f := range formats {
					name := models.FourccToName(f.PixelFormat)
					line := fmt.Sprintf("  %-12s %s", name, f.FormatName)
					if f.Emulated {
						line += " (emulated)"
					}
					fmt.Println(line)
				}
			}
		},
	}

	cmd.Flags().BoolVar(&showFormats, "formats", false, "List pixel formats per device")
	cmd.Flags().BoolVar(&showSignal, "signal", false, "Probe device class and input signal")
	return cmd
}
