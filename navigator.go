package ustar

import (
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/meigma/ustar/internal/block"
	"github.com/meigma/ustar/internal/codec"
	"github.com/meigma/ustar/internal/pathutil"
)

// Rewind moves the cursor to the first header record.
func (e *Engine) Rewind() error {
	if e.closed {
		return ErrClosed
	}
	e.remaining = 0
	e.lastHeader = 0
	return e.stream.SeekTo(0)
}

// ReadHeader decodes the header record at the cursor.
//
// The cursor is left on the header, so repeated calls return the same entry
// until Advance is called. The end of the medium at a header position reads
// as ErrNullRecord; a partial record is ErrReadFailed.
func (e *Engine) ReadHeader() (*Header, error) {
	if e.closed {
		return nil, ErrClosed
	}
	start := e.stream.Position()
	e.lastHeader = start
	if err := e.stream.ReadFull(e.header); err != nil {
		// io.ErrUnexpectedEOF is a distinct value, so this only matches a
		// read that found no bytes at all.
		if errors.Is(err, io.EOF) {
			if serr := e.stream.SeekTo(start); serr != nil {
				return nil, serr
			}
			return nil, ErrNullRecord
		}
		return nil, err
	}
	if err := e.stream.SeekTo(start); err != nil {
		return nil, err
	}
	h, err := codec.Decode(e.header)
	if err != nil {
		if errors.Is(err, ErrNullRecord) {
			return nil, err
		}
		return nil, fmt.Errorf("header at offset %d: %w", start, err)
	}
	return h, nil
}

// Advance moves the cursor past h and its padded payload to the next header.
// h must be the header most recently returned by ReadHeader.
func (e *Engine) Advance(h *Header) error {
	if e.closed {
		return ErrClosed
	}
	next := e.lastHeader + block.Size + block.AlignUp(h.PayloadSize(), block.Size)
	e.remaining = 0
	return e.stream.SeekTo(next)
}

// Find rewinds and scans for the first entry whose name matches name,
// ignoring leading, trailing and duplicate slashes. On success the cursor
// is on the matching header.
//
// Reaching the end of the archive returns ErrNotFound. Any other error,
// including ErrBadChecksum, aborts the search.
func (e *Engine) Find(name string) (*Header, error) {
	if err := e.Rewind(); err != nil {
		return nil, err
	}
	for {
		h, err := e.ReadHeader()
		if errors.Is(err, ErrNullRecord) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		if err != nil {
			return nil, err
		}
		if pathutil.Match(h.Name, name) {
			e.log().Debug("found entry", "name", h.Name, "offset", e.lastHeader)
			return h, nil
		}
		if err := e.Advance(h); err != nil {
			return nil, err
		}
	}
}

// All returns an iterator over the archive's headers from the start.
//
// Iteration stops at the end-of-archive trailer. A read or format error is
// yielded once and ends the iteration. The loop body may call ReadData or
// ExtractEntry to consume the current entry's payload.
func (e *Engine) All() iter.Seq2[*Header, error] {
	return func(yield func(*Header, error) bool) {
		if err := e.Rewind(); err != nil {
			yield(nil, err)
			return
		}
		files := 0
		for {
			h, err := e.ReadHeader()
			if errors.Is(err, ErrNullRecord) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			files++
			e.report(StageScanning, h.Name, 0, files)
			if !yield(h, nil) {
				return
			}
			if err := e.Advance(h); err != nil {
				yield(nil, err)
				return
			}
		}
	}
}
