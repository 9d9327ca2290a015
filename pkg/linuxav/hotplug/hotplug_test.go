//go:build linux

package hotplug

import (
	"context"
	"errors"
	"testing"
)

func uevent(parts ...string) []byte {
	var b []byte
	for _, p := range parts {
		b = append(b, p...)
		b = append(b, 0)
	}
	return b
}

func TestParseUEvent(t *testing.T) {
	ev := parseUEvent(uevent(
		"add@/devices/pci0000:00/usb1/1-2/video4linux/video0",
		"ACTION=add",
		"DEVPATH=/devices/pci0000:00/usb1/1-2/video4linux/video0",
		"SUBSYSTEM=video4linux",
		"DEVNAME=video0",
		"SEQNUM=4711",
	))
	if ev == nil {
		t.Fatal("Expected an event, got nil")
	}
	if ev.Action != ActionAdd {
		t.Errorf("Expected action add, got %q", ev.Action)
	}
	if ev.KObj != "/devices/pci0000:00/usb1/1-2/video4linux/video0" {
		t.Errorf("Unexpected kobject path: %q", ev.KObj)
	}
	if ev.Subsystem != SubsystemVideo4Linux {
		t.Errorf("Expected subsystem video4linux, got %q", ev.Subsystem)
	}
	if ev.DevName != "video0" {
		t.Errorf("Expected devname video0, got %q", ev.DevName)
	}
	if ev.DevPath != "/devices/pci0000:00/usb1/1-2/video4linux/video0" {
		t.Errorf("Unexpected devpath: %q", ev.DevPath)
	}
	if ev.Env["SEQNUM"] != "4711" {
		t.Errorf("Expected SEQNUM in env, got %q", ev.Env["SEQNUM"])
	}
}

func TestParseUEventKeepsValueEquals(t *testing.T) {
	ev := parseUEvent(uevent("remove@/devices/x", "PRODUCT=1234/5678/0100", "EMPTY=", "K=a=b=c"))
	if ev == nil {
		t.Fatal("Expected an event, got nil")
	}
	if ev.Env["PRODUCT"] != "1234/5678/0100" {
		t.Errorf("Expected PRODUCT preserved, got %q", ev.Env["PRODUCT"])
	}
	if v, ok := ev.Env["EMPTY"]; !ok || v != "" {
		t.Errorf("Expected empty value to survive, got %q (present %t)", v, ok)
	}
	if ev.Env["K"] != "a=b=c" {
		t.Errorf("Expected equals signs kept in value, got %q", ev.Env["K"])
	}
}

func TestParseUEventRejectsGarbage(t *testing.T) {
	cases := [][]byte{
		nil,
		{},
		{0, 0, 0},
		[]byte("not a uevent"),
		[]byte("@/devices/missing-action\x00"),
	}
	for _, data := range cases {
		if ev := parseUEvent(data); ev != nil {
			t.Errorf("Expected nil for %q, got %+v", data, ev)
		}
	}
}

func TestParseUEventSkipsMalformedPairs(t *testing.T) {
	ev := parseUEvent(uevent("add@/devices/x", "", "novalue", "=orphan", "GOOD=yes"))
	if ev == nil {
		t.Fatal("Expected an event, got nil")
	}
	if len(ev.Env) != 1 || ev.Env["GOOD"] != "yes" {
		t.Errorf("Expected only GOOD=yes in env, got %v", ev.Env)
	}
}

func TestParseUEventStripsUdevHeader(t *testing.T) {
	// udev re-broadcasts carry "libudev" plus a binary header before
	// the payload.
	data := append([]byte("libudev\x00\xfe\xed\xca\xfe\x00"), uevent("add@/devices/y", "SUBSYSTEM=usb")...)
	ev := parseUEvent(data)
	if ev == nil {
		t.Fatal("Expected an event, got nil")
	}
	if ev.Action != ActionAdd || ev.KObj != "/devices/y" {
		t.Errorf("Unexpected event after header strip: %+v", ev)
	}
	if ev.Subsystem != SubsystemUSB {
		t.Errorf("Expected subsystem usb, got %q", ev.Subsystem)
	}
}

func TestMonitorSubsystemFilter(t *testing.T) {
	open := &Monitor{accept: map[string]struct{}{}}
	if !open.accepts("anything") {
		t.Error("Expected empty filter to pass everything")
	}

	filtered := &Monitor{accept: map[string]struct{}{SubsystemVideo4Linux: {}}}
	if !filtered.accepts(SubsystemVideo4Linux) {
		t.Error("Expected video4linux to pass the filter")
	}
	if filtered.accepts(SubsystemUSB) {
		t.Error("Expected usb to be filtered out")
	}
}

func TestNewMonitorAndClose(t *testing.T) {
	m, err := NewMonitor(SubsystemVideo4Linux)
	if err != nil {
		t.Fatalf("NewMonitor failed: %v", err)
	}
	if m.fd <= 0 {
		t.Errorf("Expected a valid socket fd, got %d", m.fd)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := m.Close(); err == nil {
		t.Error("Expected second Close to fail on a closed fd")
	}
}

func TestWatchReturnsOnCancel(t *testing.T) {
	m, err := NewMonitor()
	if err != nil {
		t.Fatalf("NewMonitor failed: %v", err)
	}
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := make(chan Event, 1)
	if err := m.Watch(ctx, events); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if _, open := <-events; open {
		t.Error("Expected events channel to be closed after Watch returns")
	}
}
