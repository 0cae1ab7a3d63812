// Package sink materializes extracted archive entries on the filesystem.
package sink

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/meigma/ustar/internal/pathutil"
	"github.com/meigma/ustar/internal/platform"
	"github.com/meigma/ustar/internal/tartype"
)

// Entry is an alias for tartype.Header.
type Entry = tartype.Header

// Committer is a writer that can be committed or discarded.
type Committer interface {
	io.Writer

	// Commit closes the file and applies metadata from the entry.
	Commit() error

	// Discard closes and removes the partially written file.
	Discard() error
}

// OwnerFunc maps an entry to the local owner IDs to restore.
type OwnerFunc func(entry *Entry) (uid, gid int)

// FileSink writes entries below a destination directory.
//
// All filesystem access goes through an os.Root opened on the destination,
// so entries cannot escape it through ".." elements or symlinks. Files are
// written directly to their final path; a failed write removes the file
// rather than leaving it truncated.
type FileSink struct {
	root          *os.Root
	overwrite     bool
	preserveMode  bool
	preserveTimes bool
	preserveOwner bool
	owner         OwnerFunc
	logger        *slog.Logger
}

// FileSinkOption configures a FileSink.
type FileSinkOption func(*FileSink)

// WithOverwrite allows replacing existing files.
func WithOverwrite(overwrite bool) FileSinkOption {
	return func(s *FileSink) {
		s.overwrite = overwrite
	}
}

// WithPreserveMode applies permission modes from the archive.
func WithPreserveMode(preserve bool) FileSinkOption {
	return func(s *FileSink) {
		s.preserveMode = preserve
	}
}

// WithPreserveTimes applies modification times from the archive.
func WithPreserveTimes(preserve bool) FileSinkOption {
	return func(s *FileSink) {
		s.preserveTimes = preserve
	}
}

// WithPreserveOwner applies ownership from the archive using fn to pick IDs.
// A host refusal (EPERM) is logged and otherwise ignored.
func WithPreserveOwner(preserve bool, fn OwnerFunc) FileSinkOption {
	return func(s *FileSink) {
		s.preserveOwner = preserve
		s.owner = fn
	}
}

// WithLogger sets the logger for degraded operations.
func WithLogger(logger *slog.Logger) FileSinkOption {
	return func(s *FileSink) {
		s.logger = logger
	}
}

// NewFileSink creates destDir if needed and opens it as the extraction root.
func NewFileSink(destDir string, opts ...FileSinkOption) (*FileSink, error) {
	s := &FileSink{}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil { //nolint:gosec // extracted trees are world-readable like tar(1)
		return nil, fmt.Errorf("%w: create destination %s: %w", tartype.ErrOpenFailed, destDir, err)
	}
	root, err := os.OpenRoot(destDir)
	if err != nil {
		return nil, fmt.Errorf("%w: open destination root %s: %w", tartype.ErrOpenFailed, destDir, err)
	}
	s.root = root
	return s, nil
}

// Close releases the destination root.
func (s *FileSink) Close() error {
	return s.root.Close()
}

func (s *FileSink) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// Rel validates an entry name and returns its host path relative to the root.
func Rel(name string) (string, error) {
	if !pathutil.Valid(name) {
		return "", fmt.Errorf("%w: %q", tartype.ErrInvalidPath, name)
	}
	return filepath.FromSlash(pathutil.Normalize(name)), nil
}

// ShouldProcess returns false if the entry already exists and overwrite is disabled.
func (s *FileSink) ShouldProcess(entry *Entry) bool {
	if s.overwrite || entry.Typeflag == tartype.TypeDir {
		return true
	}
	rel, err := Rel(entry.Name)
	if err != nil {
		// Let the write path report the invalid name.
		return true
	}
	_, err = s.root.Lstat(rel)
	return errors.Is(err, fs.ErrNotExist)
}

// Writer creates the entry's file and returns a Committer for its content.
// Parent directories are created as needed.
func (s *FileSink) Writer(entry *Entry) (Committer, error) {
	rel, err := s.prepare(entry)
	if err != nil {
		return nil, err
	}
	file, err := s.root.OpenFile(rel, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o666) //nolint:gosec // umask applies, as for tar(1)
	if err != nil {
		return nil, fmt.Errorf("%w: create file %s: %w", tartype.ErrOpenFailed, rel, err)
	}
	return &directCommitter{
		entry: entry,
		rel:   rel,
		file:  file,
		sink:  s,
	}, nil
}

// Dir creates the entry's directory. Metadata is applied later by Finalize so
// that creating children does not disturb restored times.
func (s *FileSink) Dir(entry *Entry) error {
	rel, err := Rel(entry.Name)
	if err != nil {
		return err
	}
	if err := s.root.MkdirAll(rel, 0o755); err != nil { //nolint:gosec // matches tar(1) defaults
		return fmt.Errorf("%w: create directory %s: %w", tartype.ErrWriteFailed, rel, err)
	}
	return nil
}

// Symlink creates a symbolic link to the entry's link name.
// The link target is stored verbatim and is not resolved.
func (s *FileSink) Symlink(entry *Entry) error {
	rel, err := s.prepare(entry)
	if err != nil {
		return err
	}
	if err := s.root.Symlink(entry.Linkname, rel); err != nil {
		return fmt.Errorf("%w: symlink %s: %w", tartype.ErrWriteFailed, rel, err)
	}
	if s.preserveOwner {
		uid, gid := s.owner(entry)
		s.chown(rel, uid, gid, s.root.Lchown)
	}
	return nil
}

// Link creates a hard link to another entry, named relative to the archive root.
func (s *FileSink) Link(entry *Entry) error {
	target, err := Rel(entry.Linkname)
	if err != nil {
		return err
	}
	rel, err := s.prepare(entry)
	if err != nil {
		return err
	}
	if err := s.root.Link(target, rel); err != nil {
		return fmt.Errorf("%w: link %s to %s: %w", tartype.ErrWriteFailed, rel, target, err)
	}
	return nil
}

// Special creates a device node or FIFO. Hosts that refuse the operation
// (unprivileged users, unsupported platforms) are logged and skipped.
func (s *FileSink) Special(entry *Entry) error {
	rel, err := s.prepare(entry)
	if err != nil {
		return err
	}
	err = platform.MknodIn(s.root, rel, entry.FileMode(), entry.Devmajor, entry.Devminor)
	if errors.Is(err, fs.ErrPermission) || errors.Is(err, platform.ErrUnsupported) {
		s.log().Warn("skipped special file", "path", entry.Name, "error", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: mknod %s: %w", tartype.ErrWriteFailed, rel, err)
	}
	return s.Finalize(entry)
}

// Finalize applies mode, times and ownership from the entry to an existing path.
func (s *FileSink) Finalize(entry *Entry) error {
	rel, err := Rel(entry.Name)
	if err != nil {
		return err
	}
	if s.preserveOwner {
		uid, gid := s.owner(entry)
		s.chown(rel, uid, gid, s.root.Chown)
	}
	if s.preserveMode {
		if err := s.root.Chmod(rel, entry.FileMode()&(fs.ModePerm|fs.ModeSetuid|fs.ModeSetgid|fs.ModeSticky)); err != nil {
			return fmt.Errorf("%w: chmod %s: %w", tartype.ErrWriteFailed, rel, err)
		}
	}
	if s.preserveTimes {
		if err := s.root.Chtimes(rel, entry.ModTime, entry.ModTime); err != nil {
			return fmt.Errorf("%w: chtimes %s: %w", tartype.ErrWriteFailed, rel, err)
		}
	}
	return nil
}

// prepare validates the entry name, creates its parent directories and
// removes any existing non-directory at the path.
func (s *FileSink) prepare(entry *Entry) (string, error) {
	rel, err := Rel(entry.Name)
	if err != nil {
		return "", err
	}
	if dir := filepath.Dir(rel); dir != "." {
		if err := s.root.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // matches tar(1) defaults
			return "", fmt.Errorf("%w: create directory %s: %w", tartype.ErrWriteFailed, dir, err)
		}
	}
	if info, err := s.root.Lstat(rel); err == nil && !info.IsDir() {
		if err := s.root.Remove(rel); err != nil {
			return "", fmt.Errorf("%w: replace %s: %w", tartype.ErrWriteFailed, rel, err)
		}
	}
	return rel, nil
}

func (s *FileSink) chown(rel string, uid, gid int, fn func(string, int, int) error) {
	if err := fn(rel, uid, gid); err != nil {
		s.log().Warn("could not restore owner", "path", rel, "uid", uid, "gid", gid, "error", err)
	}
}

// directCommitter writes directly to the final path.
type directCommitter struct {
	entry *Entry
	rel   string
	file  *os.File
	sink  *FileSink
}

// Write implements io.Writer.
func (c *directCommitter) Write(p []byte) (int, error) {
	return c.file.Write(p)
}

// Commit closes the file and applies metadata.
func (c *directCommitter) Commit() error {
	if err := c.file.Close(); err != nil {
		_ = c.sink.root.Remove(c.rel) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("%w: close file %s: %w", tartype.ErrWriteFailed, c.rel, err)
	}
	if err := c.sink.Finalize(c.entry); err != nil {
		_ = c.sink.root.Remove(c.rel) //nolint:errcheck // best-effort cleanup
		return err
	}
	return nil
}

// Discard closes and removes the file.
func (c *directCommitter) Discard() error {
	_ = c.file.Close() //nolint:errcheck // best-effort cleanup
	return c.sink.root.Remove(c.rel)
}
