package ustar

import (
	_ "crypto/sha256" // registers digest.Canonical
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/ustar/identity"
	"github.com/meigma/ustar/internal/block"
	"github.com/meigma/ustar/storage"
)

// Engine reads and writes one archive.
//
// The Engine owns its Storage and a single cursor over it. Navigation moves
// the cursor between header records; archiving appends entries at the
// cursor. An Engine is not safe for concurrent use.
type Engine struct {
	cfg     config
	storage storage.Storage
	stream  *block.Stream
	ids     *identity.Cache

	// lastHeader is the offset of the most recently read header record.
	lastHeader int64

	// remaining is the number of payload bytes still owed by the current
	// entry: unread after ReadData, unwritten after WriteHeader.
	remaining int64

	// self identifies the archive file so ArchiveTree never archives it.
	self fs.FileInfo

	wrote     bool
	finished  bool
	trailerAt int64
	closed    bool

	header []byte
	buf    []byte
}

// New returns an Engine over s positioned at offset 0.
// The Engine takes ownership of s and closes it on Close.
func New(s storage.Storage, opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.chunkSize <= 0 {
		cfg.chunkSize = DefaultChunkSize
	}
	ids := cfg.ids
	if ids == nil {
		ids = identity.NewCache(identity.WithLogger(cfg.logger))
	}
	return &Engine{
		cfg:     cfg,
		storage: s,
		stream:  block.NewStream(s),
		ids:     ids,
		header:  make([]byte, block.Size),
		buf:     make([]byte, cfg.chunkSize),
	}
}

// Open opens an existing archive for reading.
func Open(name string, opts ...Option) (*Engine, error) {
	f, err := storage.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenFailed, name, err)
	}
	return New(f, opts...), nil
}

// OpenURL opens an archive served over HTTP for reading. The server must
// honor range requests; only the records the caller reads are fetched.
func OpenURL(url string, opts ...Option) (*Engine, error) {
	return OpenURLWith(url, nil, opts...)
}

// OpenURLWith is OpenURL with options for the underlying HTTP requests.
func OpenURLWith(url string, remote []storage.RemoteOption, opts ...Option) (*Engine, error) {
	r, err := storage.OpenRemote(url, remote...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenFailed, url, err)
	}
	return New(r, opts...), nil
}

// Create creates or truncates an archive for writing.
// The trailer is written by Finish or Close.
func Create(name string, opts ...Option) (*Engine, error) {
	f, err := storage.Create(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenFailed, name, err)
	}
	e := New(f, opts...)
	e.self, _ = os.Stat(name) //nolint:errcheck // only used to skip the archive itself
	return e, nil
}

// Append opens an archive, creating it if missing, and positions the cursor
// on its end-of-archive trailer so new entries replace it. The trailer is
// rewritten by Finish or Close.
func Append(name string, opts ...Option) (*Engine, error) {
	f, err := storage.OpenFile(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenFailed, name, err)
	}
	e := New(f, opts...)
	e.self, _ = os.Stat(name) //nolint:errcheck // only used to skip the archive itself
	if err := e.seekEnd(); err != nil {
		_ = f.Close() //nolint:errcheck // already returning an error
		return nil, err
	}
	e.log().Debug("appending to archive", "path", name, "offset", e.stream.Position())
	return e, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (e *Engine) log() *slog.Logger {
	if e.cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.cfg.logger
}

// seekEnd walks the headers and leaves the cursor on the first null record
// or at the end of the medium.
func (e *Engine) seekEnd() error {
	if err := e.Rewind(); err != nil {
		return err
	}
	for {
		h, err := e.ReadHeader()
		if errors.Is(err, ErrNullRecord) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := e.Advance(h); err != nil {
			return err
		}
	}
}

// Position returns the cursor's byte offset.
func (e *Engine) Position() int64 {
	return e.stream.Position()
}

// Finish writes the end-of-archive trailer of two zero records.
//
// The entry in progress must be complete. Writing another header after
// Finish overwrites the trailer, so Finish may be called once per batch of
// entries.
func (e *Engine) Finish() error {
	if e.closed {
		return ErrClosed
	}
	if e.remaining > 0 {
		return fmt.Errorf("%w: %d payload bytes outstanding", ErrEntryIncomplete, e.remaining)
	}
	e.trailerAt = e.stream.Position()
	if err := e.stream.WritePadding(2 * block.Size); err != nil {
		return err
	}
	e.finished = true
	e.log().Debug("wrote trailer", "offset", e.trailerAt)
	return nil
}

// Close writes the trailer if entries were written and not yet finished,
// then closes the storage. Close is idempotent.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	var finishErr error
	if e.wrote && !e.finished {
		finishErr = e.Finish()
	}
	e.closed = true
	if err := e.storage.Close(); err != nil {
		return errors.Join(finishErr, fmt.Errorf("%w: close: %w", ErrWriteFailed, err))
	}
	return finishErr
}

// Digest returns the SHA-256 digest of the whole medium.
// The cursor is restored afterward.
func (e *Engine) Digest() (digest.Digest, error) {
	if e.closed {
		return "", ErrClosed
	}
	pos := e.stream.Position()
	if err := e.stream.SeekTo(0); err != nil {
		return "", err
	}
	d := digest.Canonical.Digester()
	if _, err := io.CopyBuffer(d.Hash(), e.stream, e.buf); err != nil {
		return "", fmt.Errorf("%w: digest: %w", ErrReadFailed, err)
	}
	if err := e.stream.SeekTo(pos); err != nil {
		return "", err
	}
	return d.Digest(), nil
}
