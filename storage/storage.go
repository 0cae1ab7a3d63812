// Package storage provides the byte media an archive engine reads and writes.
//
// A Storage is a sequential byte medium with absolute repositioning. File is
// backed by an *os.File, Memory is an in-memory buffer used for tests and for
// building archives without touching disk, and Remote reads an archive served
// over HTTP with range requests.
package storage

import "io"

// Storage is the medium underlying an archive stream.
//
// Read and Write follow io.Reader and io.Writer semantics and advance the
// medium's position. SeekTo repositions to an absolute byte offset. There is no
// buffering contract beyond what the medium itself provides.
type Storage interface {
	io.Reader
	io.Writer
	io.Closer

	// SeekTo moves to the absolute offset pos.
	SeekTo(pos int64) error
}
