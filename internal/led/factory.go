package led

import (
	"log/slog"
	"os"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// boardProfile ties a device-tree model substring to its LED map.
// Every profile aliases "system" to the board's status LED so the
// aggregate logic in Manager works on any recognized board.
type boardProfile struct {
	match string
	leds  map[string]string
}

var boardProfiles = []boardProfile{
	{"NanoPC-T6", map[string]string{
		"user":   "usr_led",
		"system": "sys_led",
	}},
	{"Orange Pi", map[string]string{
		"blue":   "blue_led",
		"green":  "green_led",
		"system": "green_led",
	}},
	{"Raspberry Pi", map[string]string{
		"act":    "ACT",
		"system": "ACT",
	}},
}

// New picks a controller for the board named in the device tree. Off
// the known list every operation becomes a logged no-op.
func New(logger *slog.Logger) Controller {
	if logger == nil {
		logger = slog.Default()
	}

	model := boardModel()
	for _, p := range boardProfiles {
		if strings.Contains(model, p.match) {
			logger.Info("LED control via sysfs", "board_model", model)
			return newSysfs(p.leds)
		}
	}

	logger.Info("No LED support for this board, using no-op controller", "board_model", model)
	return newNoop(logger)
}

// boardModel reads the device-tree model string, minus the trailing
// NUL bytes the kernel leaves in.
func boardModel() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}
	return strings.TrimRight(string(data), "\x00")
}
