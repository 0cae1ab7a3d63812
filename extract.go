package ustar

import (
	"context"
	"errors"
	"slices"

	"github.com/meigma/ustar/internal/sink"
)

// Extract finds the entry named name and recreates it below the output
// directory.
//
// A missing entry returns ErrNotFound before anything is written. If the
// payload cannot be copied completely, the partially written file is
// removed. Directories are created but their contents are not extracted.
func (e *Engine) Extract(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h, err := e.Find(name)
	if err != nil {
		return err
	}

	s, err := e.newSink()
	if err != nil {
		return err
	}
	defer s.Close()

	var dirs []*Header
	if err := e.extractOne(s, h, &dirs); err != nil {
		return err
	}
	if err := finalizeDirs(s, dirs); err != nil {
		return err
	}
	e.report(StageExtracting, h.Name, uint64(h.PayloadSize()), 1) //nolint:gosec // payload size is non-negative
	return nil
}

// ExtractAll rewinds and recreates every entry below the output directory,
// stopping at the end-of-archive trailer.
//
// Any read or format error aborts the extraction; entries extracted before
// the failure are left in place. Directory modes and times are applied after
// all entries are written. The context is checked between entries.
func (e *Engine) ExtractAll(ctx context.Context) error {
	if err := e.Rewind(); err != nil {
		return err
	}
	s, err := e.newSink()
	if err != nil {
		return err
	}
	defer s.Close()

	e.log().Info("extracting archive", "dest", e.cfg.outputDir)
	e.report(StageExtracting, "", 0, 0)

	var (
		dirs  []*Header
		files int
		bytes uint64
	)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		h, err := e.ReadHeader()
		if errors.Is(err, ErrNullRecord) {
			break
		}
		if err != nil {
			return err
		}
		if err := e.extractOne(s, h, &dirs); err != nil {
			return err
		}
		if err := e.Advance(h); err != nil {
			return err
		}
		files++
		bytes += uint64(h.PayloadSize()) //nolint:gosec // payload size is non-negative
		e.report(StageExtracting, h.Name, bytes, files)
	}

	if err := finalizeDirs(s, dirs); err != nil {
		return err
	}
	e.log().Debug("extraction complete", "file_count", files, "data_size", bytes)
	return nil
}

func (e *Engine) newSink() (*sink.FileSink, error) {
	return sink.NewFileSink(e.cfg.outputDir,
		sink.WithOverwrite(e.cfg.overwrite),
		sink.WithPreserveMode(e.cfg.preserveMode),
		sink.WithPreserveTimes(e.cfg.preserveTimes),
		sink.WithPreserveOwner(e.cfg.preserveOwner, e.localOwner),
		sink.WithLogger(e.cfg.logger),
	)
}

// localOwner returns the IDs to restore for h. Recorded names that exist on
// this host take precedence over the recorded numeric IDs.
func (e *Engine) localOwner(h *Header) (uid, gid int) {
	uid, gid = h.UID, h.GID
	if id, ok := e.ids.UserID(h.Uname); ok {
		uid = id
	}
	if id, ok := e.ids.GroupID(h.Gname); ok {
		gid = id
	}
	return uid, gid
}

// extractOne materializes the entry at the cursor. Directories are appended
// to dirs for finalizeDirs.
func (e *Engine) extractOne(s *sink.FileSink, h *Header, dirs *[]*Header) error {
	if !s.ShouldProcess(h) {
		e.log().Debug("skipped existing path", "path", h.Name)
		return nil
	}
	var err error
	switch h.Typeflag {
	case TypeDir:
		if err = s.Dir(h); err == nil {
			*dirs = append(*dirs, h)
		}
	case TypeSymlink:
		err = s.Symlink(h)
	case TypeLink:
		err = s.Link(h)
	case TypeChar, TypeBlock, TypeFifo:
		err = s.Special(h)
	default:
		err = e.extractFile(s, h)
	}
	if err != nil {
		return err
	}
	e.log().Debug("extracted entry", "name", h.Name, "size", h.PayloadSize())
	return nil
}

func (e *Engine) extractFile(s *sink.FileSink, h *Header) error {
	w, err := s.Writer(h)
	if err != nil {
		return err
	}
	if err := e.ExtractEntry(h, w); err != nil {
		if derr := w.Discard(); derr != nil {
			e.log().Warn("could not remove partial file", "path", h.Name, "error", derr)
		}
		return err
	}
	return w.Commit()
}

// finalizeDirs applies directory metadata deepest-first so restoring a
// parent's mode or time is not undone by work on its children.
func finalizeDirs(s *sink.FileSink, dirs []*Header) error {
	for _, h := range slices.Backward(dirs) {
		if err := s.Finalize(h); err != nil {
			return err
		}
	}
	return nil
}
