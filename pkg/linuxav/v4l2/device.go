//go:build linux

package v4l2

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unsafe"
)

// FindDevices enumerates the video capture nodes on the system. Nodes
// that cannot be opened or queried are skipped, not errors: another
// process may hold them exclusively, or the node may be a metadata or
// output device.
func FindDevices() ([]DeviceInfo, error) {
	entries, err := os.ReadDir("/sys/class/video4linux")
	if err != nil {
		if os.IsNotExist(err) {
			return []DeviceInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read video4linux directory: %w", err)
	}

	log := slog.With("component", "linuxav")
	var devices []DeviceInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if info, ok := probeNode(entry.Name(), log); ok {
			devices = append(devices, info)
		}
	}
	return devices, nil
}

// probeNode opens one /dev/videoN node and builds its DeviceInfo,
// returning false for nodes that are not capture devices.
func probeNode(node string, log *slog.Logger) (DeviceInfo, bool) {
	devicePath := "/dev/" + node

	fd, err := open(devicePath)
	if err != nil {
		log.Debug("Skipping video node", "path", devicePath, "error", err)
		return DeviceInfo{}, false
	}
	caps := v4l2_capability{}
	err = ioctl(fd, VIDIOC_QUERYCAP, unsafe.Pointer(&caps))
	close(fd)
	if err != nil {
		log.Debug("QUERYCAP failed", "path", devicePath, "error", err)
		return DeviceInfo{}, false
	}

	// device_caps describes this node, capabilities the whole card.
	// Prefer the node view when the driver provides it.
	effective := caps.capabilities
	if effective&V4L2_CAP_DEVICE_CAPS != 0 {
		effective = caps.device_caps
	}
	if effective&V4L2_CAP_VIDEO_CAPTURE == 0 {
		return DeviceInfo{}, false
	}

	index := sysfsIndex(node)
	id := byIDSymlink(node, index)
	if id == "" {
		id = fallbackID(cstr(caps.bus_info[:]), index)
	}

	return DeviceInfo{
		DevicePath: devicePath,
		DeviceName: cstr(caps.card[:]),
		DeviceID:   id,
		Caps:       effective,
	}, true
}

// GetDevicePathByID resolves a stable device ID to its current
// /dev/videoN path. The path moves across replugs; the ID does not.
func GetDevicePathByID(deviceID string) (string, error) {
	devices, err := FindDevices()
	if err != nil {
		return "", fmt.Errorf("failed to find devices: %w", err)
	}

	for _, device := range devices {
		if device.DeviceID == deviceID {
			return device.DevicePath, nil
		}
	}
	return "", fmt.Errorf("device with ID %s not found", deviceID)
}

// byIDSymlink returns the /dev/v4l/by-id entry pointing at the node,
// the preferred stable ID.
func byIDSymlink(node string, index int) string {
	const dir = "/dev/v4l/by-id"
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	suffix := fmt.Sprintf("-video-index%d", index)
	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink == 0 || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		target, err := os.Readlink(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		if filepath.Base(target) == node {
			return entry.Name()
		}
	}
	return ""
}

// fallbackID builds a stable-enough ID from bus info for cameras with
// no by-id symlink (platform sensors, containers without udev).
func fallbackID(busInfo string, index int) string {
	if strings.HasPrefix(busInfo, "usb-") {
		return fmt.Sprintf("%s-video-index%d", busInfo, index)
	}
	return fmt.Sprintf("platform-%s-video-index%d", busInfo, index)
}

// sysfsIndex reads the node's index attribute, 0 when unreadable.
func sysfsIndex(node string) int {
	data, err := os.ReadFile(filepath.Join("/sys/class/video4linux", node, "index"))
	if err != nil {
		return 0
	}
	val, _ := strconv.Atoi(strings.TrimSpace(string(data)))
	return val
}

// cstr converts a null-terminated byte slice to a Go string.
func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
