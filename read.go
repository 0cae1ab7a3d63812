package ustar

import (
	"fmt"
	"io"

	"github.com/meigma/ustar/internal/block"
)

// ReadData copies up to n payload bytes of the entry at the cursor to w.
//
// The first call after a header position reads that header and starts its
// payload. Later calls continue where the previous one stopped. Once the
// whole payload has been read the cursor returns to the entry's header, so
// Advance moves to the next entry as usual. Entries without payload return
// 0 and leave the cursor on the header.
func (e *Engine) ReadData(w io.Writer, n int64) (int64, error) {
	if e.closed {
		return 0, ErrClosed
	}
	if e.remaining == 0 {
		h, err := e.ReadHeader()
		if err != nil {
			return 0, err
		}
		size := h.PayloadSize()
		if size == 0 {
			return 0, nil
		}
		if err := e.stream.SeekTo(e.lastHeader + block.Size); err != nil {
			return 0, err
		}
		e.remaining = size
	}

	copied, err := e.stream.CopyTo(w, min(n, e.remaining), e.buf)
	e.remaining -= copied
	if err != nil {
		return copied, err
	}
	if e.remaining == 0 {
		return copied, e.stream.SeekTo(e.lastHeader)
	}
	return copied, nil
}

// ExtractEntry copies the full payload of an entry to dst.
//
// If h is nil the header at the cursor is read first. Otherwise h must be the
// header at the cursor, as returned by ReadHeader, Find or All.
func (e *Engine) ExtractEntry(h *Header, dst io.Writer) error {
	if h == nil {
		var err error
		if h, err = e.ReadHeader(); err != nil {
			return err
		}
	}
	size := h.PayloadSize()
	var done int64
	for done < size {
		n, err := e.ReadData(dst, size-done)
		done += n
		if err != nil {
			return fmt.Errorf("extract %s: %w", h.Name, err)
		}
		if n == 0 {
			break
		}
	}
	if done != size {
		return fmt.Errorf("%w: %s: read %d of %d bytes", ErrReadFailed, h.Name, done, size)
	}
	return nil
}
