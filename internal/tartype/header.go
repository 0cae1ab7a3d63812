package tartype

import (
	"io/fs"
	"time"
)

// Type flags stored in a header's single-byte type field.
const (
	TypeReg     byte = '0'
	TypeRegA    byte = '\x00' // legacy regular file
	TypeLink    byte = '1'
	TypeSymlink byte = '2'
	TypeChar    byte = '3'
	TypeBlock   byte = '4'
	TypeDir     byte = '5'
	TypeFifo    byte = '6'
	TypeCont    byte = '7' // contiguous file, treated as regular
)

// Format selects the on-disk header profile.
type Format uint8

const (
	// FormatUnspecified encodes as FormatUSTAR.
	FormatUnspecified Format = iota

	// FormatV7 is the legacy profile: name, link name and numeric fields only.
	// Names are limited to 100 bytes.
	FormatV7

	// FormatUSTAR adds owner/group names, device numbers and the 155-byte
	// path prefix used for names longer than 100 bytes.
	FormatUSTAR
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case FormatUnspecified:
		return "unspecified"
	case FormatV7:
		return "v7"
	case FormatUSTAR:
		return "ustar"
	default:
		return "unknown"
	}
}

// Header is the metadata of a single archive entry.
type Header struct {
	// Name is the full entry path, using forward slashes.
	// The codec splits it into the name and prefix fields as needed.
	Name string

	// Linkname is the target of a hard or symbolic link.
	Linkname string

	// Mode holds the permission, setuid, setgid and sticky bits.
	Mode int64

	UID int
	GID int

	// Uname and Gname are only stored by FormatUSTAR.
	Uname string
	Gname string

	// Size is the payload length in bytes.
	Size int64

	// ModTime is stored with one-second resolution.
	ModTime time.Time

	Typeflag byte

	// Devmajor and Devminor are only meaningful for TypeChar and TypeBlock.
	Devmajor int64
	Devminor int64

	Format Format
}

// PayloadSize returns the number of payload bytes following the header.
// Header-only entry types carry no payload regardless of Size.
func (h *Header) PayloadSize() int64 {
	switch h.Typeflag {
	case TypeLink, TypeSymlink, TypeChar, TypeBlock, TypeDir, TypeFifo:
		return 0
	}
	if h.Size < 0 {
		return 0
	}
	return h.Size
}

// IsRegular reports whether the entry's payload is file content.
// Unknown type flags are treated as regular files.
func (h *Header) IsRegular() bool {
	switch h.Typeflag {
	case TypeLink, TypeSymlink, TypeChar, TypeBlock, TypeDir, TypeFifo:
		return false
	}
	return true
}

// Mode bits from the tar format, independent of the host.
const (
	modeSetuid = 0o4000
	modeSetgid = 0o2000
	modeSticky = 0o1000
)

// FileMode translates the header's mode and type flag to an fs.FileMode.
func (h *Header) FileMode() fs.FileMode {
	mode := fs.FileMode(h.Mode).Perm() //nolint:gosec // masked to permission bits
	if h.Mode&modeSetuid != 0 {
		mode |= fs.ModeSetuid
	}
	if h.Mode&modeSetgid != 0 {
		mode |= fs.ModeSetgid
	}
	if h.Mode&modeSticky != 0 {
		mode |= fs.ModeSticky
	}

	switch h.Typeflag {
	case TypeSymlink:
		mode |= fs.ModeSymlink
	case TypeChar:
		mode |= fs.ModeDevice | fs.ModeCharDevice
	case TypeBlock:
		mode |= fs.ModeDevice
	case TypeDir:
		mode |= fs.ModeDir
	case TypeFifo:
		mode |= fs.ModeNamedPipe
	}
	return mode
}

// ModeBits returns the tar mode bits for an fs.FileMode.
func ModeBits(m fs.FileMode) int64 {
	bits := int64(m.Perm())
	if m&fs.ModeSetuid != 0 {
		bits |= modeSetuid
	}
	if m&fs.ModeSetgid != 0 {
		bits |= modeSetgid
	}
	if m&fs.ModeSticky != 0 {
		bits |= modeSticky
	}
	return bits
}

// TypeflagFor returns the type flag for an fs.FileMode.
// ok is false for types the format cannot represent, such as sockets.
func TypeflagFor(m fs.FileMode) (flag byte, ok bool) {
	switch {
	case m.IsRegular():
		return TypeReg, true
	case m.IsDir():
		return TypeDir, true
	case m&fs.ModeSymlink != 0:
		return TypeSymlink, true
	case m&fs.ModeCharDevice != 0:
		return TypeChar, true
	case m&fs.ModeDevice != 0:
		return TypeBlock, true
	case m&fs.ModeNamedPipe != 0:
		return TypeFifo, true
	default:
		return 0, false
	}
}
