// Package logging builds the process-wide slog setup: per-module
// loggers with individually tunable levels, fanned out to stdout, the
// systemd journal, and an in-memory ring buffer at once.
//
// # Setup
//
// Call Initialize once at startup, then fetch a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",  // debug, info, warn, error
//		Format: "text",  // text or json on stdout
//		Modules: map[string]string{
//			"cameras": "debug",  // per-module overrides
//			"api":     "warn",
//		},
//	})
//
//	logger := logging.GetLogger("cameras")
//	logger.Info("Starting up", "port", 8080)
//
// GetLogger is safe before Initialize; such loggers start at info and
// pick up their configured level once Initialize runs. Contextual
// attributes work the usual slog way:
//
//	logger := logging.GetLogger("cameras").With("camera_id", id)
//	logger.Info("Camera started")  // camera_id rides along
//
// # Destinations
//
// Each logger writes to every destination that is actually present:
// stdout (text or JSON per Config.Format) whenever stdout leads to a
// terminal, pipe, socket, or file; the systemd journal whenever
// journald is accepting messages; and always the ring buffer that the
// logs API reads and the SSE log stream replays. Journal availability
// comes from [github.com/coreos/go-systemd/v22/journal.Enabled].
//
// # Reading the journal
//
// Journal records carry SYSLOG_IDENTIFIER=camnode plus one uppercased
// field per structured attribute:
//
//	journalctl -t camnode              # everything
//	journalctl -t camnode -f           # follow live
//	journalctl -t camnode -p err       # errors only
//	journalctl -t camnode MODULE=cameras
//	journalctl -t camnode CAMERA_ID=front
//
// # TOML configuration
//
// The daemon maps its [logging] table onto Config. Module entries
// override the global level for that module only:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	cameras = "debug"
//	api = "warn"
//	nats = "error"
package logging
