package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/camnode/camnode/internal/logging"
	"github.com/camnode/camnode/internal/updater"
	"github.com/camnode/camnode/internal/version"
)

// DefaultUpdateRepository is the GitHub repo releases are fetched from.
const DefaultUpdateRepository = "camnode/camnode"

// CreateUpdateCmd creates the update command.
func CreateUpdateCmd() *cobra.Command {
	var (
		checkOnly  bool
		prerelease bool
		repository string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update camnode to the latest release",
		Long: `Checks GitHub releases for a newer version and replaces the current binary in place. ` +
			`The previous binary is backed up first so a bad release can be rolled back through the API.`,
		Run: func(_ *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})

			fmt.Printf("Current version: %s\n", version.Full())

			svc, err := updater.NewService(&updater.Options{
				Repository: repository,
				Prerelease: prerelease,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to create updater: %v\n", err)
				os.Exit(1)
			}
			if !svc.IsEnabled() {
				fmt.Fprintf(os.Stderr, "Update disabled: %s\n", svc.DisabledReason())
				os.Exit(1)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			info, err := svc.CheckForUpdate(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Update check failed: %v\n", err)
				os.Exit(1)
			}

			if !info.UpdateAvailable {
				fmt.Printf("Already up to date (latest is %s)\n", info.LatestVersion)
				return
			}

			fmt.Printf("Update available: %s -> %s\n", info.CurrentVersion, info.LatestVersion)
			if info.ReleaseURL != "" {
				fmt.Printf("Release: %s\n", info.ReleaseURL)
			}
			if checkOnly {
				return
			}

			fmt.Println("Downloading and applying update...")
			if err := svc.ApplyUpdate(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Update failed: %v\n", err)
				os.Exit(1)
			}

			// The service arms a delayed SIGTERM so the daemon restarts
			// under systemd. This process is done; leave before it fires.
			fmt.Printf("Updated to %s\n", info.LatestVersion)
			os.Exit(0)
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only check whether an update is available")
	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "Include prerelease versions")
	cmd.Flags().StringVar(&repository, "repository", DefaultUpdateRepository, "GitHub repository slug to update from")
	return cmd
}
