//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd || solaris)

package platform

import (
	"io/fs"
	"os"
)

// DeviceNumbers returns zero on platforms without device number support.
func DeviceNumbers(info fs.FileInfo) (major, minor int64) {
	return 0, 0
}

// MknodIn is not supported on this platform.
func MknodIn(root *os.Root, rel string, mode fs.FileMode, major, minor int64) error {
	return ErrUnsupported
}
