package led

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestNoopAcceptsEverything(t *testing.T) {
	ctrl := newNoop(slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := ctrl.Set("user", true, "solid"); err != nil {
		t.Errorf("Set() returned error: %v", err)
	}
	if types := ctrl.Available(); len(types) != 0 {
		t.Errorf("Available() = %v, want empty slice", types)
	}
	if patterns := ctrl.Patterns(); len(patterns) != 0 {
		t.Errorf("Patterns() = %v, want empty slice", patterns)
	}
}

func TestSysfsAvailable(t *testing.T) {
	tests := []struct {
		name     string
		leds     map[string]string
		contains []string
	}{
		{
			name:     "NanoPC-T6 LEDs",
			leds:     map[string]string{"user": "usr_led", "system": "sys_led"},
			contains: []string{"user", "system"},
		},
		{
			name:     "Orange Pi LEDs",
			leds:     map[string]string{"blue": "blue_led", "green": "green_led"},
			contains: []string{"blue", "green"},
		},
		{
			name: "No LEDs",
			leds: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			available := newSysfs(tt.leds).Available()

			if len(available) != len(tt.leds) {
				t.Errorf("Available() len = %d, want %d", len(available), len(tt.leds))
			}
			for _, want := range tt.contains {
				if !slices.Contains(available, want) {
					t.Errorf("Available() = %v, missing %q", available, want)
				}
			}
		})
	}
}

func TestSysfsPatterns(t *testing.T) {
	patterns := newSysfs(map[string]string{"user": "usr_led"}).Patterns()

	for _, want := range []string{"solid", "blink", "heartbeat"} {
		if !slices.Contains(patterns, want) {
			t.Errorf("Patterns() = %v, missing %q", patterns, want)
		}
	}
}

func TestSysfsRejectsUnknownType(t *testing.T) {
	ctrl := newSysfs(map[string]string{"user": "usr_led"})

	if err := ctrl.Set("nonexistent", true, ""); err == nil {
		t.Error("Set() with unknown LED type should return error")
	}
}

func TestSysfsSetWritesAttributes(t *testing.T) {
	root := t.TempDir()
	ledDir := filepath.Join(root, "sys_led")
	if err := os.MkdirAll(ledDir, 0755); err != nil {
		t.Fatal(err)
	}

	ctrl := &sysfs{base: root, leds: map[string]string{"system": "sys_led"}}

	if err := ctrl.Set("system", true, "blink"); err != nil {
		t.Fatalf("Set() returned error: %v", err)
	}

	trigger, err := os.ReadFile(filepath.Join(ledDir, "trigger"))
	if err != nil {
		t.Fatalf("reading trigger: %v", err)
	}
	if string(trigger) != "heartbeat" {
		t.Errorf("Expected trigger heartbeat, got %q", trigger)
	}
	brightness, err := os.ReadFile(filepath.Join(ledDir, "brightness"))
	if err != nil {
		t.Fatalf("reading brightness: %v", err)
	}
	if string(brightness) != "1" {
		t.Errorf("Expected brightness 1, got %q", brightness)
	}

	// solid flips the trigger back to manual control
	if err := ctrl.Set("system", false, "solid"); err != nil {
		t.Fatalf("Set() returned error: %v", err)
	}
	trigger, _ = os.ReadFile(filepath.Join(ledDir, "trigger"))
	if string(trigger) != "none" {
		t.Errorf("Expected trigger none, got %q", trigger)
	}
	brightness, _ = os.ReadFile(filepath.Join(ledDir, "brightness"))
	if string(brightness) != "0" {
		t.Errorf("Expected brightness 0, got %q", brightness)
	}
}

func TestSysfsSetMissingDevice(t *testing.T) {
	ctrl := &sysfs{base: t.TempDir(), leds: map[string]string{"system": "sys_led"}}

	if err := ctrl.Set("system", true, ""); err == nil {
		t.Error("Set() should fail when the LED directory does not exist")
	}
}

func TestRawTriggerPassesThrough(t *testing.T) {
	root := t.TempDir()
	ledDir := filepath.Join(root, "usr_led")
	if err := os.MkdirAll(ledDir, 0755); err != nil {
		t.Fatal(err)
	}

	ctrl := &sysfs{base: root, leds: map[string]string{"user": "usr_led"}}

	if err := ctrl.Set("user", true, "timer"); err != nil {
		t.Fatalf("Set() returned error: %v", err)
	}
	trigger, _ := os.ReadFile(filepath.Join(ledDir, "trigger"))
	if string(trigger) != "timer" {
		t.Errorf("Expected raw trigger timer, got %q", trigger)
	}
}
