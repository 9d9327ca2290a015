package led

import "log/slog"

// noop satisfies Controller on boards without known LEDs. Set logs at
// debug and reports success so callers need no board awareness.
type noop struct {
	logger *slog.Logger
}

func newNoop(logger *slog.Logger) *noop {
	if logger == nil {
		logger = slog.Default()
	}
	return &noop{logger: logger}
}

func (n *noop) Set(ledType string, enabled bool, pattern string) error {
	n.logger.Debug("LED control not available",
		"led_type", ledType, "enabled", enabled, "pattern", pattern)
	return nil
}

func (n *noop) Available() []string { return []string{} }

func (n *noop) Patterns() []string { return []string{} }
