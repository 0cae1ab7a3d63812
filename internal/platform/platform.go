// Package platform isolates host-specific file metadata and node creation.
package platform

import "errors"

var (
	// ErrSymlink is returned when attempting to open a symbolic link.
	ErrSymlink = errors.New("symbolic links not supported")

	// ErrUnsupported is returned when the host cannot create a node type.
	ErrUnsupported = errors.New("not supported on this platform")
)
