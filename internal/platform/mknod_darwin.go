package platform

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// x/sys has no mknodat for darwin. The parent is still opened through root
// so a name escaping it fails; the node itself is created by host path,
// which leaves a window between that check and the call.
func mknodIn(root *os.Root, rel string, mode uint32, dev uint64) error {
	dir, err := root.Open(filepath.Dir(rel))
	if err != nil {
		return err
	}
	_ = dir.Close() //nolint:errcheck // opened only to confine the parent

	path := filepath.Join(root.Name(), rel)
	if mode&unix.S_IFMT == unix.S_IFIFO {
		return unix.Mkfifo(path, mode&^unix.S_IFMT)
	}
	return unix.Mknod(path, mode, int(dev)) //nolint:gosec // dev fits int
}
