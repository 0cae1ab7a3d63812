package ustar

import "github.com/meigma/ustar/internal/tartype"

// Errors re-exported from the header model. All errors returned by an
// Engine wrap one of these and can be tested with errors.Is.
var (
	// ErrOpenFailed is returned when the archive or an entry's source or destination cannot be opened.
	ErrOpenFailed = tartype.ErrOpenFailed

	// ErrReadFailed is returned when reading from the archive or a source file fails.
	ErrReadFailed = tartype.ErrReadFailed

	// ErrWriteFailed is returned when writing to the archive or a destination file fails.
	ErrWriteFailed = tartype.ErrWriteFailed

	// ErrSeekFailed is returned when the storage rejects a seek.
	ErrSeekFailed = tartype.ErrSeekFailed

	// ErrBadChecksum is returned when a header's stored checksum does not match its contents.
	ErrBadChecksum = tartype.ErrBadChecksum

	// ErrNullRecord is returned when a header position holds an end-of-archive record.
	ErrNullRecord = tartype.ErrNullRecord

	// ErrInvalidHeader is returned when a checksum-valid header holds unparsable numeric text.
	ErrInvalidHeader = tartype.ErrInvalidHeader

	// ErrNotFound is returned when a requested entry is not in the archive.
	ErrNotFound = tartype.ErrNotFound
)

// Errors caused by caller input.
var (
	ErrFieldOverflow   = tartype.ErrFieldOverflow
	ErrNameTooLong     = tartype.ErrNameTooLong
	ErrInvalidPath     = tartype.ErrInvalidPath
	ErrWriteTooLong    = tartype.ErrWriteTooLong
	ErrEntryIncomplete = tartype.ErrEntryIncomplete
	ErrSizeChanged     = tartype.ErrSizeChanged
	ErrUnsupportedType = tartype.ErrUnsupportedType
	ErrClosed          = tartype.ErrClosed
)
