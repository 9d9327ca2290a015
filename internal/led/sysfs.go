package led

import (
	"fmt"
	"os"
	"path/filepath"
)

const ledClassPath = "/sys/class/leds"

// triggerFor translates symbolic patterns onto kernel trigger names.
// Anything not listed passes through as a raw trigger.
var triggerFor = map[string]string{
	"solid":     "none", // manual control, brightness carries the state
	"blink":     "heartbeat",
	"heartbeat": "heartbeat",
}

// sysfs drives LEDs through the kernel's leds class files.
type sysfs struct {
	base string
	leds map[string]string // logical name -> sysfs device name
}

func newSysfs(leds map[string]string) *sysfs {
	return &sysfs{base: ledClassPath, leds: leds}
}

// Set resolves the logical name and writes trigger and brightness.
func (s *sysfs) Set(ledType string, enabled bool, pattern string) error {
	name, ok := s.leds[ledType]
	if !ok {
		return fmt.Errorf("LED type %q not supported on this board", ledType)
	}

	dir := filepath.Join(s.base, name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("LED %q not found at %s", ledType, dir)
	}

	if pattern != "" {
		trigger, known := triggerFor[pattern]
		if !known {
			trigger = pattern
		}
		if err := writeAttr(dir, "trigger", trigger); err != nil {
			return fmt.Errorf("failed to set LED trigger: %w", err)
		}
	}

	brightness := "0"
	if enabled {
		brightness = "1"
	}
	if err := writeAttr(dir, "brightness", brightness); err != nil {
		return fmt.Errorf("failed to set LED brightness: %w", err)
	}
	return nil
}

func writeAttr(dir, attr, value string) error {
	return os.WriteFile(filepath.Join(dir, attr), []byte(value), 0644)
}

// Available lists the logical LED names of the active board map.
func (s *sysfs) Available() []string {
	names := make([]string, 0, len(s.leds))
	for name := range s.leds {
		names = append(names, name)
	}
	return names
}

// Patterns lists the symbolic patterns Set understands.
func (s *sysfs) Patterns() []string {
	return []string{"solid", "blink", "heartbeat"}
}
