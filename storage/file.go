package storage

import (
	"io"
	"os"
)

// File is a Storage backed by an operating system file.
type File struct {
	f *os.File
}

// NewFile wraps an open file. The File takes ownership of f and closes it on Close.
func NewFile(f *os.File) *File {
	return &File{f: f}
}

// Open opens the named archive for reading.
func Open(name string) (*File, error) {
	f, err := os.Open(name) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return nil, err
	}
	return NewFile(f), nil
}

// Create creates or truncates the named archive for writing.
func Create(name string) (*File, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return nil, err
	}
	return NewFile(f), nil
}

// OpenFile opens the named archive for reading and writing, creating it if needed.
func OpenFile(name string) (*File, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0o644) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return nil, err
	}
	return NewFile(f), nil
}

// Read implements io.Reader.
func (s *File) Read(p []byte) (int, error) {
	return s.f.Read(p)
}

// Write implements io.Writer.
func (s *File) Write(p []byte) (int, error) {
	return s.f.Write(p)
}

// SeekTo moves the file offset to pos. Pipes and other non-seekable files fail here.
func (s *File) SeekTo(pos int64) error {
	_, err := s.f.Seek(pos, io.SeekStart)
	return err
}

// Close closes the underlying file.
func (s *File) Close() error {
	return s.f.Close()
}

// Name returns the file's name as presented to Open.
func (s *File) Name() string {
	return s.f.Name()
}
