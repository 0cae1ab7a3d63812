package ustar

import (
	"errors"
	"fmt"
	"io"

	"github.com/meigma/ustar/internal/codec"
)

// WriteHeader encodes h and writes it at the cursor, starting a new entry.
//
// The previous entry's payload must be complete. h.Format selects the header
// profile; FormatUnspecified uses the engine's format. For entries with a
// payload, exactly h.Size bytes must follow through WriteData or WriteEntry.
func (e *Engine) WriteHeader(h *Header) error {
	if e.closed {
		return ErrClosed
	}
	if e.remaining > 0 {
		return fmt.Errorf("%w: %d payload bytes outstanding", ErrEntryIncomplete, e.remaining)
	}

	hdr := *h
	if hdr.Format == FormatUnspecified {
		hdr.Format = e.cfg.format
	}
	raw, err := codec.Encode(&hdr)
	if err != nil {
		return fmt.Errorf("encode %s: %w", h.Name, err)
	}

	if e.finished {
		if err := e.stream.SeekTo(e.trailerAt); err != nil {
			return err
		}
		e.finished = false
	}
	if err := e.stream.Write(raw); err != nil {
		return err
	}
	e.wrote = true
	e.remaining = hdr.PayloadSize()
	return nil
}

// WriteData writes payload bytes for the current entry.
//
// Writing more than the header declared writes up to the declared size and
// returns ErrWriteTooLong. When the payload is complete, zero padding to the
// next record boundary is written.
func (e *Engine) WriteData(p []byte) (int, error) {
	if e.closed {
		return 0, ErrClosed
	}
	n := len(p)
	var tooLong error
	if int64(n) > e.remaining {
		n = int(e.remaining)
		tooLong = fmt.Errorf("%w: %d bytes beyond entry size", ErrWriteTooLong, int64(len(p))-e.remaining)
	}
	if n > 0 {
		if err := e.stream.Write(p[:n]); err != nil {
			return 0, err
		}
		e.remaining -= int64(n)
		if e.remaining == 0 {
			if _, err := e.stream.Pad(); err != nil {
				return n, err
			}
		}
	}
	return n, tooLong
}

// WriteEntry writes h followed by exactly h.Size bytes read from r.
//
// If r ends early the payload is zero-filled to its declared size, keeping
// the archive well-formed, and ErrSizeChanged is returned.
func (e *Engine) WriteEntry(h *Header, r io.Reader) error {
	if err := e.WriteHeader(h); err != nil {
		return err
	}
	size := e.remaining
	var done int64
	for done < size {
		chunk := e.buf[:min(int64(len(e.buf)), size-done)]
		n, err := io.ReadFull(r, chunk)
		if n > 0 {
			if _, werr := e.WriteData(chunk[:n]); werr != nil {
				return werr
			}
			done += int64(n)
		}
		if err != nil {
			if perr := e.zeroFill(); perr != nil {
				return errors.Join(err, perr)
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("%w: %s: expected %d bytes, got %d", ErrSizeChanged, h.Name, size, done)
			}
			return fmt.Errorf("%w: %s: %w", ErrReadFailed, h.Name, err)
		}
	}
	return nil
}

// zeroFill completes the current entry with zero bytes.
func (e *Engine) zeroFill() error {
	if e.remaining == 0 {
		return nil
	}
	if err := e.stream.WritePadding(e.remaining); err != nil {
		return err
	}
	e.remaining = 0
	_, err := e.stream.Pad()
	return err
}
