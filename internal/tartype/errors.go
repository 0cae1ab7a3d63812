package tartype

import "errors"

// Medium-level errors. These wrap the underlying I/O error and are never retried.
var (
	// ErrOpenFailed is returned when the archive or an entry's source or destination cannot be opened.
	ErrOpenFailed = errors.New("ustar: open failed")

	// ErrReadFailed is returned when reading from the archive or a source file fails.
	ErrReadFailed = errors.New("ustar: read failed")

	// ErrWriteFailed is returned when writing to the archive or a destination file fails.
	ErrWriteFailed = errors.New("ustar: write failed")

	// ErrSeekFailed is returned when the storage rejects a seek.
	ErrSeekFailed = errors.New("ustar: seek failed")
)

// Format-level errors.
var (
	// ErrBadChecksum is returned when a header's stored checksum does not match its contents.
	ErrBadChecksum = errors.New("ustar: bad checksum")

	// ErrNullRecord is returned when a header position holds an end-of-archive record.
	ErrNullRecord = errors.New("ustar: null record")

	// ErrInvalidHeader is returned when a checksum-valid header holds unparsable numeric text.
	ErrInvalidHeader = errors.New("ustar: invalid header")
)

// ErrNotFound is returned when a requested entry is not in the archive.
var ErrNotFound = errors.New("ustar: entry not found")

// Caller errors.
var (
	// ErrFieldOverflow is returned when a numeric value does not fit its octal field.
	ErrFieldOverflow = errors.New("ustar: numeric field overflow")

	// ErrNameTooLong is returned when a name or link name cannot be stored in the header format.
	ErrNameTooLong = errors.New("ustar: name too long")

	// ErrInvalidPath is returned when an entry path would escape the output directory.
	ErrInvalidPath = errors.New("ustar: invalid entry path")

	// ErrWriteTooLong is returned when more payload is written than the header declared.
	ErrWriteTooLong = errors.New("ustar: write too long")

	// ErrEntryIncomplete is returned when a header or trailer is written before
	// the previous entry's payload is complete.
	ErrEntryIncomplete = errors.New("ustar: previous entry incomplete")

	// ErrSizeChanged is returned when a source file's length changed while it was archived.
	ErrSizeChanged = errors.New("ustar: file size changed during archive creation")

	// ErrUnsupportedType is returned for files the format cannot represent, such as sockets.
	ErrUnsupportedType = errors.New("ustar: unsupported file type")

	// ErrClosed is returned when an engine is used after Close.
	ErrClosed = errors.New("ustar: engine closed")
)
