// Package block manages the archive's byte cursor: sequential position,
// alignment to record boundaries, and zero padding.
package block

import (
	"errors"
	"fmt"
	"io"

	"github.com/meigma/ustar/internal/tartype"
	"github.com/meigma/ustar/storage"
)

// Size is the alignment unit for payloads and header records.
const Size = 512

var zeroes [Size]byte

// AlignUp rounds off up to the next multiple of size.
func AlignUp(off, size int64) int64 {
	return off + (size-off%size)%size
}

// Stream tracks the cursor over a Storage.
//
// Every read, write and seek goes through the Stream so Position always
// reflects the medium's offset. A Stream is not safe for concurrent use.
type Stream struct {
	s   storage.Storage
	pos int64
}

// NewStream returns a Stream positioned at offset 0 of s.
// The medium is assumed to be at offset 0.
func NewStream(s storage.Storage) *Stream {
	return &Stream{s: s}
}

// Position returns the current byte offset.
func (st *Stream) Position() int64 {
	return st.pos
}

// SeekTo moves the cursor to the absolute offset pos.
func (st *Stream) SeekTo(pos int64) error {
	if err := st.s.SeekTo(pos); err != nil {
		return fmt.Errorf("%w: seek to %d: %w", tartype.ErrSeekFailed, pos, err)
	}
	st.pos = pos
	return nil
}

// Read implements io.Reader over the medium, advancing the cursor.
// Errors are returned unwrapped so io.EOF keeps its meaning.
func (st *Stream) Read(p []byte) (int, error) {
	n, err := st.s.Read(p)
	st.pos += int64(n)
	return n, err
}

// ReadFull reads exactly len(p) bytes.
//
// A clean end of medium before any byte is read returns an error wrapping
// both ErrReadFailed and io.EOF; a short read wraps io.ErrUnexpectedEOF.
func (st *Stream) ReadFull(p []byte) error {
	if _, err := io.ReadFull(st, p); err != nil {
		return fmt.Errorf("%w at offset %d: %w", tartype.ErrReadFailed, st.pos, err)
	}
	return nil
}

// Write writes all of p, advancing the cursor.
func (st *Stream) Write(p []byte) error {
	n, err := st.s.Write(p)
	st.pos += int64(n)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return fmt.Errorf("%w at offset %d: %w", tartype.ErrWriteFailed, st.pos, err)
	}
	return nil
}

// WritePadding writes n zero bytes.
func (st *Stream) WritePadding(n int64) error {
	for n > 0 {
		chunk := min(n, int64(len(zeroes)))
		if err := st.Write(zeroes[:chunk]); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// Pad writes zero bytes up to the next block boundary and returns how many were written.
func (st *Stream) Pad() (int64, error) {
	n := AlignUp(st.pos, Size) - st.pos
	return n, st.WritePadding(n)
}

// CopyTo copies exactly n bytes from the cursor to w in chunks of len(buf).
//
// A short archive returns ErrReadFailed wrapping io.ErrUnexpectedEOF; a
// failing destination returns ErrWriteFailed.
func (st *Stream) CopyTo(w io.Writer, n int64, buf []byte) (int64, error) {
	var done int64
	for done < n {
		chunk := buf[:min(int64(len(buf)), n-done)]
		if err := st.ReadFull(chunk); err != nil {
			if errors.Is(err, io.EOF) {
				err = fmt.Errorf("%w at offset %d: %w", tartype.ErrReadFailed, st.pos, io.ErrUnexpectedEOF)
			}
			return done, err
		}
		written, err := w.Write(chunk)
		done += int64(written)
		if err == nil && written < len(chunk) {
			err = io.ErrShortWrite
		}
		if err != nil {
			return done, fmt.Errorf("%w: %w", tartype.ErrWriteFailed, err)
		}
	}
	return done, nil
}
