package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/camnode/camnode/cmd"
	"github.com/camnode/camnode/internal/api"
	"github.com/camnode/camnode/internal/cameras"
	"github.com/camnode/camnode/internal/config"
	"github.com/camnode/camnode/internal/devices"
	"github.com/camnode/camnode/internal/events"
	"github.com/camnode/camnode/internal/led"
	"github.com/camnode/camnode/internal/logging"
	"github.com/camnode/camnode/internal/metrics"
	"github.com/camnode/camnode/internal/nats"
	"github.com/camnode/camnode/internal/updater"
	"github.com/camnode/camnode/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Address to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Cameras settings
	CamerasConfigFile string `help:"Camera definitions file" default:"cameras.toml" toml:"cameras.config_file" env:"CAMERAS_CONFIG_FILE"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// NATS settings
	NATSEnabled bool   `help:"Enable embedded NATS server" default:"false" toml:"nats.enabled" env:"NATS_ENABLED"`
	NATSHost    string `help:"NATS listen host" default:"127.0.0.1" toml:"nats.host" env:"NATS_HOST"`
	NATSPort    int    `help:"NATS listen port" default:"4222" toml:"nats.port" env:"NATS_PORT"`

	// Features settings
	FeaturesLEDControl bool `help:"Enable LED control" default:"false" toml:"features.led_control_enabled" env:"FEATURES_LED_CONTROL"`
	FeaturesMetrics    bool `help:"Enable Prometheus metrics" default:"true" toml:"features.metrics_enabled" env:"FEATURES_METRICS"`

	// Update settings
	UpdateEnabled    bool   `help:"Enable the self-update service" default:"true" toml:"update.enabled" env:"UPDATE_ENABLED"`
	UpdateRepository string `help:"GitHub repository slug for updates" default:"camnode/camnode" toml:"update.repository" env:"UPDATE_REPOSITORY"`
	UpdatePrerelease bool   `help:"Include prerelease updates" default:"false" toml:"update.prerelease" env:"UPDATE_PRERELEASE"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCapture string `help:"Capture engine logging level" default:"info" toml:"logging.capture" env:"LOGGING_CAPTURE"`
	LoggingCameras string `help:"Camera manager logging level" default:"info" toml:"logging.cameras" env:"LOGGING_CAMERAS"`
	LoggingSources string `help:"Sources logging level" default:"info" toml:"logging.sources" env:"LOGGING_SOURCES"`
	LoggingDevices string `help:"Devices logging level" default:"info" toml:"logging.devices" env:"LOGGING_DEVICES"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP    string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingMetrics string `help:"Metrics logging level" default:"info" toml:"logging.metrics" env:"LOGGING_METRICS"`
	LoggingNATS    string `help:"NATS logging level" default:"info" toml:"logging.nats" env:"LOGGING_NATS"`
}

func main() {
	var cli humacli.CLI

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration: CLI args > env vars > config file
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		// Initialize logging system
		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"capture": opts.LoggingCapture,
				"cameras": opts.LoggingCameras,
				"sources": opts.LoggingSources,
				"devices": opts.LoggingDevices,
				"api":     opts.LoggingAPI,
				"http":    opts.LoggingHTTP,
				"metrics": opts.LoggingMetrics,
				"nats":    opts.LoggingNATS,
			},
		})

		logger := logging.GetLogger("main")
		logger.Info("Starting camnode", "version", version.String())

		// Lifetime of everything started in OnStart
		appCtx, appCancel := context.WithCancel(context.Background())

		// Event bus for in-process event handling
		eventBus := events.New()

		// Feed captured log entries to the bus so the SSE log stream
		// sees them live, not only through the history replay
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Seq:        entry.Seq,
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		// Camera manager drives the capture engine from camera specs
		manager := cameras.NewManager(eventBus, logging.GetLogger("cameras"))

		// Device detection and hotplug monitoring
		detector := devices.NewDetector()
		monitor := devices.NewMonitor(eventBus, detector)

		// Watch the cameras file and re-apply on change
		watcher := config.NewConfigWatcher(
			opts.CamerasConfigFile,
			config.LoadCameraSpecs,
			logger,
			config.WithDebounce[map[string]config.CameraSpec](1500*time.Millisecond),
		)
		watcher.OnReload(func(specs map[string]config.CameraSpec) {
			if err := manager.Apply(appCtx, specs); err != nil {
				logger.Warn("Applying reloaded cameras file failed", "error", err)
			}
		})

		// Embedded NATS if enabled
		var natsServer *nats.Server
		var natsBridge *nats.Bridge
		if opts.NATSEnabled {
			natsServer = nats.NewServer(nats.ServerOptions{
				Host:   opts.NATSHost,
				Port:   opts.NATSPort,
				Logger: logging.GetLogger("nats"),
			})
			natsBridge = nats.NewBridge(natsServer.ClientURL(), eventBus, manager, logging.GetLogger("nats"))
		}

		// LED control if enabled
		var ledManager *led.Manager
		var ledController led.Controller
		if opts.FeaturesLEDControl {
			ledLogger := logging.GetLogger("led")
			ledController = led.New(ledLogger)
			ledManager = led.NewManager(ledController, eventBus, ledLogger)
		}

		// Prometheus metrics if enabled
		var recorder *metrics.Recorder
		if opts.FeaturesMetrics {
			recorder = metrics.NewRecorder(eventBus, manager)
		}

		// Self-update service if enabled
		var updateService updater.Service
		if opts.UpdateEnabled {
			svc, err := updater.NewService(&updater.Options{
				Repository: opts.UpdateRepository,
				Prerelease: opts.UpdatePrerelease,
			})
			if err != nil {
				logger.Warn("Failed to create update service", "error", err)
			} else {
				updateService = svc
			}
		}

		apiOpts := &api.Options{
			AuthUsername:  opts.AuthUsername,
			AuthPassword:  opts.AuthPassword,
			Manager:       manager,
			Detector:      detector,
			Bus:           eventBus,
			LEDController: ledController,
			UpdateService: updateService,
		}
		if recorder != nil {
			apiOpts.PrometheusHandler = metrics.HTTPHandler()
		}

		server := api.NewServer(apiOpts)

		var hotplugUnsub func()

		hooks.OnStart(func() {
			if natsServer != nil {
				if startErr := natsServer.Start(); startErr != nil {
					logger.Error("Failed to start NATS server", "error", startErr)
					os.Exit(1)
				}
				if startErr := natsBridge.Start(); startErr != nil {
					logger.Warn("Failed to start NATS bridge", "error", startErr)
				}
			}

			if ledManager != nil {
				ledManager.Start()
			}

			if recorder != nil {
				recorder.Start(appCtx)
			}

			if startErr := monitor.Start(appCtx); startErr != nil {
				logger.Warn("Failed to start device monitor", "error", startErr)
			}
			hotplugUnsub = manager.WatchHotplug(appCtx)

			// Build cameras from the file, then keep following it
			specs, loadErr := config.LoadCameraSpecs(opts.CamerasConfigFile)
			if loadErr != nil {
				logger.Warn("Failed to load cameras file", "error", loadErr, "path", opts.CamerasConfigFile)
			} else if applyErr := manager.Apply(appCtx, specs); applyErr != nil {
				logger.Warn("Applying cameras file failed", "error", applyErr)
			}
			if watchErr := watcher.Start(); watchErr != nil {
				logger.Warn("Failed to start config watcher", "error", watchErr)
			}

			// Under systemd, flip the unit to ready once everything is up
			if _, notifyErr := daemon.SdNotify(false, daemon.SdNotifyReady); notifyErr != nil {
				logger.Debug("sd-notify ready failed", "error", notifyErr)
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			if _, notifyErr := daemon.SdNotify(false, daemon.SdNotifyStopping); notifyErr != nil {
				logger.Debug("sd-notify stopping failed", "error", notifyErr)
			}

			logger.Info("Shutting down server")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Warn("Error stopping config watcher", "error", stopErr)
			}
			if hotplugUnsub != nil {
				hotplugUnsub()
			}
			monitor.Stop()

			// Cameras go down while the LED, metrics, and NATS listeners
			// are still attached, so the final transitions reach them.
			manager.StopAll()

			if ledManager != nil {
				ledManager.Stop()
			}
			if recorder != nil {
				recorder.Stop()
			}
			if natsBridge != nil {
				natsBridge.Stop()
			}
			if natsServer != nil {
				natsServer.Stop()
			}

			appCancel()

			if updateService != nil && updateService.IsRestartPending() {
				logger.Info("Exiting for restart after update")
			}
		})
	})

	cli.Root().Version = version.String()

	cli.Root().AddCommand(cmd.CreateDevicesCmd())
	cli.Root().AddCommand(cmd.CreateGrabCmd())
	cli.Root().AddCommand(cmd.CreateUpdateCmd())

	// Run the CLI
	cli.Run()
}
