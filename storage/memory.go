package storage

import (
	"errors"
	"io"
	"sync"
)

// ErrClosed is returned by Memory operations after Close.
var ErrClosed = errors.New("storage: closed")

// Memory is an in-memory Storage.
//
// Writes past the end grow the buffer; seeking past the end is allowed and a
// subsequent write zero-fills the gap. The zero value is an empty buffer.
type Memory struct {
	mu     sync.Mutex
	data   []byte
	pos    int64
	closed bool
}

// NewMemory returns a Memory holding a copy of data, positioned at offset 0.
func NewMemory(data []byte) *Memory {
	return &Memory{data: append([]byte(nil), data...)}
}

// Read implements io.Reader.
func (m *Memory) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	if m.pos >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.pos:])
	m.pos += int64(n)
	return n, nil
}

// Write implements io.Writer.
func (m *Memory) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	end := m.pos + int64(len(p))
	if end > int64(len(m.data)) {
		if end > int64(cap(m.data)) {
			grown := make([]byte, len(m.data), max(end, 2*int64(cap(m.data))))
			copy(grown, m.data)
			m.data = grown
		}
		m.data = m.data[:end]
	}
	n := copy(m.data[m.pos:], p)
	m.pos += int64(n)
	return n, nil
}

// SeekTo moves to the absolute offset pos.
func (m *Memory) SeekTo(pos int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if pos < 0 {
		return errors.New("storage: negative position")
	}
	m.pos = pos
	return nil
}

// Close marks the buffer closed. The contents remain available through Bytes.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Bytes returns a copy of the buffer contents.
func (m *Memory) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// Len returns the buffer length.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
