//go:build linux

package v4l2

import (
	"syscall"
	"unsafe"
)

func ioctl(fd int, req uint, arg unsafe.Pointer) error {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// ioctlRetry is ioctl with EINTR retry, for calls that can block in the
// driver (DQBUF, STREAMOFF).
func ioctlRetry(fd int, req uint, arg unsafe.Pointer) error {
	for {
		err := ioctl(fd, req, arg)
		if err == syscall.EINTR {
			continue
		}
		return err
	}
}

func open(path string) (int, error) {
	return syscall.Open(path, syscall.O_RDWR|syscall.O_NONBLOCK, 0)
}

func close(fd int) error {
	return syscall.Close(fd)
}

// fdSet marks fd in set. The Bits element width differs between 32-bit
// and 64-bit architectures, so the index math derives it from the type.
func fdSet(fd int, set *syscall.FdSet) {
	bits := 8 * int(unsafe.Sizeof(set.Bits[0]))
	set.Bits[fd/bits] |= 1 << (uint(fd) % uint(bits))
}
