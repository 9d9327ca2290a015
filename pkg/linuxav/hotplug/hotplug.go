//go:build linux

// Package hotplug watches kernel device uevents over a netlink socket.
// Pure Go, no cgo and no libudev, so a static daemon binary still
// learns about camera attach and detach the moment the kernel
// announces them.
package hotplug

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"syscall"
)

// Uevent actions a USB camera generates over its lifetime.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionChange = "change"
	ActionBind   = "bind"
	ActionUnbind = "unbind"
)

// Subsystems worth filtering on for capture hardware.
const (
	SubsystemVideo4Linux = "video4linux"
	SubsystemUSB         = "usb"
)

// netlinkKobjectUEvent is the netlink protocol carrying kernel object
// events. Group 1 is the kernel's own broadcast; group 2 is udev's
// re-broadcast, which prepends a binary header.
const netlinkKobjectUEvent = 15

// Event is one decoded uevent.
type Event struct {
	Action    string            // add, remove, change, ...
	KObj      string            // kernel object path (/devices/...)
	Subsystem string            // video4linux, usb, ...
	DevName   string            // node name, e.g. video0
	DevPath   string            // sysfs path from the DEVPATH key
	Env       map[string]string // every KEY=VALUE pair of the message
}

// Monitor owns the netlink socket. The subsystem filter is fixed at
// construction; with no subsystems given, every event passes.
type Monitor struct {
	fd     int
	accept map[string]struct{}
}

// NewMonitor opens the kernel uevent socket, filtered to the given
// subsystems.
func NewMonitor(subsystems ...string) (*Monitor, error) {
	fd, err := syscall.Socket(syscall.AF_NETLINK, syscall.SOCK_DGRAM|syscall.SOCK_CLOEXEC, netlinkKobjectUEvent)
	if err != nil {
		return nil, err
	}

	addr := &syscall.SockaddrNetlink{
		Family: syscall.AF_NETLINK,
		Groups: 1,
	}
	if err := syscall.Bind(fd, addr); err != nil {
		syscall.Close(fd)
		return nil, err
	}

	m := &Monitor{
		fd:     fd,
		accept: make(map[string]struct{}, len(subsystems)),
	}
	for _, s := range subsystems {
		m.accept[s] = struct{}{}
	}
	return m, nil
}

// Close releases the socket. A blocked Watch returns shortly after.
func (m *Monitor) Close() error {
	return syscall.Close(m.fd)
}

// Watch reads uevents and delivers decoded, filtered events until the
// context is cancelled or the socket fails. The events channel is
// closed when Watch returns.
func (m *Monitor) Watch(ctx context.Context, events chan<- Event) error {
	defer close(events)

	// A receive timeout keeps the loop responsive to cancellation; the
	// socket has no other wakeup path.
	tv := syscall.Timeval{Sec: 1}
	if err := syscall.SetsockoptTimeval(m.fd, syscall.SOL_SOCKET, syscall.SO_RCVTIMEO, &tv); err != nil {
		return err
	}

	buf := make([]byte, 8192)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, _, err := syscall.Recvfrom(m.fd, buf, 0)
		switch {
		case errors.Is(err, syscall.EAGAIN), errors.Is(err, syscall.EWOULDBLOCK), errors.Is(err, syscall.EINTR):
			continue
		case err != nil:
			return err
		case n == 0:
			continue
		}

		ev := parseUEvent(buf[:n])
		if ev == nil || !m.accepts(ev.Subsystem) {
			continue
		}

		select {
		case events <- *ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *Monitor) accepts(subsystem string) bool {
	if len(m.accept) == 0 {
		return true
	}
	_, ok := m.accept[subsystem]
	return ok
}

// parseUEvent decodes "ACTION@KOBJ\0KEY=VALUE\0..." into an Event,
// returning nil for anything that does not look like a uevent.
func parseUEvent(data []byte) *Event {
	data = stripUdevHeader(data)

	parts := bytes.Split(data, []byte{0})
	if len(parts) == 0 || len(parts[0]) == 0 {
		return nil
	}

	header := string(parts[0])
	at := strings.IndexByte(header, '@')
	if at < 1 {
		return nil
	}

	ev := &Event{
		Action: header[:at],
		KObj:   header[at+1:],
		Env:    make(map[string]string),
	}

	for _, part := range parts[1:] {
		kv := string(part)
		eq := strings.IndexByte(kv, '=')
		if eq < 1 {
			continue
		}
		key, value := kv[:eq], kv[eq+1:]
		ev.Env[key] = value

		switch key {
		case "SUBSYSTEM":
			ev.Subsystem = value
		case "DEVNAME":
			ev.DevName = value
		case "DEVPATH":
			ev.DevPath = value
		}
	}
	return ev
}

// stripUdevHeader drops the binary prefix udev puts on re-broadcast
// messages, leaving the raw ACTION@KOBJ payload. Kernel-originated
// messages pass through untouched.
func stripUdevHeader(data []byte) []byte {
	if !bytes.HasPrefix(data, []byte("libudev")) {
		return data
	}
	for i := 0; i < len(data)-1; i++ {
		if data[i] != 0 {
			continue
		}
		rest := data[i+1:]
		if at := bytes.IndexByte(rest, '@'); at > 0 && at < 20 {
			return rest
		}
	}
	return data
}
