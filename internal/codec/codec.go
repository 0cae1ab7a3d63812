// Package codec converts between tartype.Header and the fixed-width 512-byte
// on-disk header record.
//
// Every numeric field is ASCII octal text. The checksum is the unsigned sum of
// all record bytes with the checksum field itself counted as eight spaces.
package codec

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/meigma/ustar/internal/tartype"
)

// BlockSize is the size of a header record and the payload alignment unit.
const BlockSize = 512

// field is a fixed-width slot in the header record.
type field struct {
	off  int
	size int
}

func (f field) bytes(raw []byte) []byte {
	return raw[f.off : f.off+f.size]
}

// Record layout. Fields up to linkname are shared with the legacy format.
var (
	fieldName     = field{0, 100}
	fieldMode     = field{100, 8}
	fieldUID      = field{108, 8}
	fieldGID      = field{116, 8}
	fieldSize     = field{124, 12}
	fieldMtime    = field{136, 12}
	fieldChecksum = field{148, 8}
	fieldLinkname = field{157, 100}
	fieldMagic    = field{257, 6}
	fieldVersion  = field{263, 2}
	fieldUname    = field{265, 32}
	fieldGname    = field{297, 32}
	fieldDevmajor = field{329, 8}
	fieldDevminor = field{337, 8}
	fieldPrefix   = field{345, 155}
)

const typeflagOffset = 156

// numericField binds an octal field to the value it encodes or decodes.
type numericField struct {
	name  string
	field field
	value *int64
}

const (
	magicUSTAR   = "ustar\x00"
	versionUSTAR = "00"
	magicGNU     = "ustar "
	versionGNU   = " \x00"
)

// checksumSeed is the contribution of the checksum field when filled with spaces.
const checksumSeed = 8 * ' '

// Checksum computes the header checksum over raw, excluding the checksum field.
func Checksum(raw []byte) int64 {
	sum := int64(checksumSeed)
	for i, b := range raw[:BlockSize] {
		if i >= fieldChecksum.off && i < fieldChecksum.off+fieldChecksum.size {
			continue
		}
		sum += int64(b)
	}
	return sum
}

// Encode renders h as a header record.
//
// Numeric values that do not fit their field return ErrFieldOverflow. Names
// that cannot be stored in the selected format return ErrNameTooLong; nothing
// is silently truncated.
func Encode(h *tartype.Header) ([]byte, error) {
	format := h.Format
	if format == tartype.FormatUnspecified {
		format = tartype.FormatUSTAR
	}

	raw := make([]byte, BlockSize)

	prefix, name, err := SplitName(h.Name, format)
	if err != nil {
		return nil, err
	}
	copy(fieldName.bytes(raw), name)

	if len(h.Linkname) > fieldLinkname.size {
		return nil, fmt.Errorf("%w: link name %q", tartype.ErrNameTooLong, h.Linkname)
	}
	copy(fieldLinkname.bytes(raw), h.Linkname)

	var mtime int64
	if !h.ModTime.IsZero() {
		mtime = h.ModTime.Unix()
	}
	uid, gid := int64(h.UID), int64(h.GID)

	numeric := []numericField{
		{"mode", fieldMode, &h.Mode},
		{"uid", fieldUID, &uid},
		{"gid", fieldGID, &gid},
		{"size", fieldSize, &h.Size},
		{"mtime", fieldMtime, &mtime},
	}
	if format == tartype.FormatUSTAR {
		numeric = append(numeric,
			numericField{"devmajor", fieldDevmajor, &h.Devmajor},
			numericField{"devminor", fieldDevminor, &h.Devminor},
		)
	}
	for _, n := range numeric {
		if err := putOctal(n.field.bytes(raw), *n.value); err != nil {
			return nil, fmt.Errorf("%w: %s=%d", err, n.name, *n.value)
		}
	}

	raw[typeflagOffset] = h.Typeflag

	if format == tartype.FormatUSTAR {
		copy(fieldMagic.bytes(raw), magicUSTAR)
		copy(fieldVersion.bytes(raw), versionUSTAR)
		if len(h.Uname) > fieldUname.size || len(h.Gname) > fieldGname.size {
			return nil, fmt.Errorf("%w: owner %q group %q", tartype.ErrNameTooLong, h.Uname, h.Gname)
		}
		copy(fieldUname.bytes(raw), h.Uname)
		copy(fieldGname.bytes(raw), h.Gname)
		copy(fieldPrefix.bytes(raw), prefix)
	}

	// Six octal digits, NUL, space.
	copy(fieldChecksum.bytes(raw), fmt.Sprintf("%06o\x00 ", Checksum(raw)))
	return raw, nil
}

// Decode parses a header record.
//
// A record whose checksum field starts with NUL returns ErrNullRecord. A
// stored checksum that does not match the record returns ErrBadChecksum.
func Decode(raw []byte) (*tartype.Header, error) {
	if len(raw) < BlockSize {
		return nil, fmt.Errorf("%w: record is %d bytes", tartype.ErrInvalidHeader, len(raw))
	}
	raw = raw[:BlockSize]

	if raw[fieldChecksum.off] == 0 {
		return nil, tartype.ErrNullRecord
	}

	stored, err := parseOctal(fieldChecksum.bytes(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: unparsable checksum field", tartype.ErrBadChecksum)
	}
	if computed := Checksum(raw); stored != computed {
		return nil, fmt.Errorf("%w: stored %o, computed %o", tartype.ErrBadChecksum, stored, computed)
	}

	h := &tartype.Header{
		Name:     cString(fieldName.bytes(raw)),
		Linkname: cString(fieldLinkname.bytes(raw)),
		Typeflag: raw[typeflagOffset],
		Format:   tartype.FormatV7,
	}

	var mtime, uid, gid int64
	numeric := []numericField{
		{"mode", fieldMode, &h.Mode},
		{"uid", fieldUID, &uid},
		{"gid", fieldGID, &gid},
		{"size", fieldSize, &h.Size},
		{"mtime", fieldMtime, &mtime},
	}

	magic := string(fieldMagic.bytes(raw))
	version := string(fieldVersion.bytes(raw))
	ustar := magic == magicUSTAR
	gnu := magic == magicGNU && version == versionGNU
	if ustar || gnu {
		h.Format = tartype.FormatUSTAR
		h.Uname = cString(fieldUname.bytes(raw))
		h.Gname = cString(fieldGname.bytes(raw))
		numeric = append(numeric,
			numericField{"devmajor", fieldDevmajor, &h.Devmajor},
			numericField{"devminor", fieldDevminor, &h.Devminor},
		)
	}

	for _, n := range numeric {
		v, err := parseOctal(n.field.bytes(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %s field: %w", tartype.ErrInvalidHeader, n.name, err)
		}
		*n.value = v
	}
	h.UID = int(uid)
	h.GID = int(gid)
	h.ModTime = time.Unix(mtime, 0)

	// GNU headers reuse the prefix area for other data.
	if ustar {
		if prefix := cString(fieldPrefix.bytes(raw)); prefix != "" {
			h.Name = prefix + "/" + h.Name
		}
	}

	return h, nil
}

// SplitName splits a path into the prefix and name fields.
//
// Paths of up to 100 bytes are stored in the name field alone. Longer paths
// are split at a slash so the prefix fits 155 bytes and the remainder fits
// 100 bytes; this is only possible in FormatUSTAR.
func SplitName(p string, format tartype.Format) (prefix, name string, err error) {
	if len(p) <= fieldName.size {
		return "", p, nil
	}
	if format != tartype.FormatUSTAR {
		return "", "", fmt.Errorf("%w: %q exceeds %d bytes", tartype.ErrNameTooLong, p, fieldName.size)
	}

	limit := len(p)
	if limit > fieldPrefix.size+1 {
		limit = fieldPrefix.size + 1
	} else if p[limit-1] == '/' {
		limit--
	}
	i := strings.LastIndexByte(p[:limit], '/')
	if i <= 0 || len(p)-i-1 == 0 || len(p)-i-1 > fieldName.size {
		return "", "", fmt.Errorf("%w: %q cannot be split into prefix and name", tartype.ErrNameTooLong, p)
	}
	return p[:i], p[i+1:], nil
}

// putOctal writes v as zero-padded octal digits followed by a NUL.
func putOctal(b []byte, v int64) error {
	digits := len(b) - 1
	if v < 0 || v >= int64(1)<<(3*digits) {
		return tartype.ErrFieldOverflow
	}
	copy(b, fmt.Sprintf("%0*o\x00", digits, v))
	return nil
}

// parseOctal reads octal text, skipping leading spaces and stopping at the
// first NUL or space. An empty field is zero.
func parseOctal(b []byte) (int64, error) {
	i := 0
	for i < len(b) && b[i] == ' ' {
		i++
	}
	j := i
	for j < len(b) && b[j] != 0 && b[j] != ' ' {
		j++
	}
	if i == j {
		return 0, nil
	}
	return strconv.ParseInt(string(b[i:j]), 8, 64)
}

// cString returns the bytes of b up to the first NUL.
func cString(b []byte) string {
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
