//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd || solaris

package platform

import (
	"io/fs"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// DeviceNumbers returns the major and minor numbers of a device file.
func DeviceNumbers(info fs.FileInfo) (major, minor int64) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0
	}
	dev := uint64(stat.Rdev) //nolint:gosec,unconvert // Rdev width varies by platform
	return int64(unix.Major(dev)), int64(unix.Minor(dev))
}

// MknodIn creates a character device, block device or FIFO at rel inside
// root. The parent directory is resolved through root, so rel cannot name a
// location outside it.
func MknodIn(root *os.Root, rel string, mode fs.FileMode, major, minor int64) error {
	perm := uint32(mode.Perm())
	var kind uint32
	switch {
	case mode&fs.ModeNamedPipe != 0:
		kind = unix.S_IFIFO
	case mode&fs.ModeCharDevice != 0:
		kind = unix.S_IFCHR
	case mode&fs.ModeDevice != 0:
		kind = unix.S_IFBLK
	default:
		return ErrUnsupported
	}
	dev := unix.Mkdev(uint32(major), uint32(minor)) //nolint:gosec // device numbers fit 32 bits
	return mknodIn(root, rel, kind|perm, dev)
}
