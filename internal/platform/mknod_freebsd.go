package platform

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

func mknodIn(root *os.Root, rel string, mode uint32, dev uint64) error {
	dir, err := root.Open(filepath.Dir(rel))
	if err != nil {
		return err
	}
	defer dir.Close()
	return unix.Mknodat(int(dir.Fd()), filepath.Base(rel), mode, dev) //nolint:gosec // fd fits int
}
