package ustar

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/meigma/ustar/internal/pathutil"
	"github.com/meigma/ustar/internal/platform"
	"github.com/meigma/ustar/internal/tartype"
)

// Maximum owner and group name lengths stored by FormatUSTAR.
const maxOwnerName = 32

// FileInfoHeader builds a header from info.
//
// The name is info.Name(); callers archiving trees set the full path. link
// is the target recorded for symbolic links and is ignored otherwise. Owner
// and group names are left empty. Sockets and other types the format cannot
// represent return ErrUnsupportedType.
func FileInfoHeader(info fs.FileInfo, link string) (*Header, error) {
	flag, ok := tartype.TypeflagFor(info.Mode())
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, info.Name(), info.Mode().Type())
	}
	uid, gid := platform.FileOwner(info)
	h := &Header{
		Name:     info.Name(),
		Mode:     tartype.ModeBits(info.Mode()),
		UID:      uid,
		GID:      gid,
		ModTime:  time.Unix(info.ModTime().Unix(), 0),
		Typeflag: flag,
	}
	switch flag {
	case TypeReg:
		h.Size = info.Size()
	case TypeDir:
		h.Name += "/"
	case TypeSymlink:
		h.Linkname = link
	case TypeChar, TypeBlock:
		h.Devmajor, h.Devminor = platform.DeviceNumbers(info)
	}
	return h, nil
}

// ArchiveFile appends the file at path as a single entry named by its base
// name. Directories are recorded as a header only; use ArchiveTree to
// include their contents.
func (e *Engine) ArchiveFile(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOpenFailed, path, err)
	}
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOpenFailed, path, err)
	}
	n, err := e.archivePath(path, filepath.Base(path), info)
	if err != nil {
		return err
	}
	e.report(StageArchiving, path, uint64(n), 1) //nolint:gosec // n is non-negative
	return nil
}

// ArchiveTree appends root and everything below it in lexical walk order.
//
// Entry names are slash-separated paths relative to the parent of root, so
// archiving "src" yields "src/", "src/main.go" and so on. Relative roots
// such as ".." are resolved first, so they are stored under the directory's
// own name. Symbolic links are recorded, not followed. Sockets are skipped.
// A regular file root is archived as by ArchiveFile. The context is checked
// between entries.
func (e *Engine) ArchiveTree(ctx context.Context, root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOpenFailed, root, err)
	}
	info, err := os.Lstat(root)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOpenFailed, root, err)
	}
	if !info.IsDir() {
		return e.ArchiveFile(ctx, root)
	}

	e.log().Info("creating archive", "root", root, "format", e.cfg.format.String())
	e.report(StageArchiving, "", 0, 0)

	base := filepath.Dir(root)
	var (
		files int
		bytes uint64
	)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("%w: %s: %w", ErrOpenFailed, path, walkErr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() && !e.cfg.dirHeaders {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrOpenFailed, path, err)
		}
		n, err := e.archivePath(path, filepath.ToSlash(rel), info)
		if err != nil {
			return err
		}
		files++
		bytes += uint64(n) //nolint:gosec // n is non-negative
		e.report(StageArchiving, path, bytes, files)
		return nil
	})
	if err != nil {
		return err
	}

	e.log().Debug("archive tree written", "root", root, "file_count", files, "data_size", bytes)
	return nil
}

// archivePath writes one filesystem object under the given entry name and
// returns the payload size written.
func (e *Engine) archivePath(path, name string, info fs.FileInfo) (int64, error) {
	if e.self != nil && os.SameFile(info, e.self) {
		e.log().Info("skipped archive file", "path", path)
		return 0, nil
	}

	var link string
	if info.Mode()&fs.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return 0, fmt.Errorf("%w: readlink %s: %w", ErrReadFailed, path, err)
		}
		link = target
	}

	h, err := FileInfoHeader(info, link)
	if errors.Is(err, ErrUnsupportedType) {
		e.log().Debug("skipped unsupported file type", "path", path, "mode", info.Mode().String())
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	h.Name = pathutil.EntryName(name, h.Typeflag == TypeDir)
	h.Format = e.cfg.format
	if h.Format != FormatV7 {
		h.Uname = ownerName(e.ids.UserName(h.UID))
		h.Gname = ownerName(e.ids.GroupName(h.GID))
	}

	if h.Typeflag != TypeReg {
		if err := e.WriteHeader(h); err != nil {
			return 0, err
		}
		e.log().Debug("archived entry", "path", path, "name", h.Name, "type", string(h.Typeflag))
		return 0, nil
	}
	return e.archiveRegular(path, h)
}

// archiveRegular writes a regular file's header and content. The file is
// opened without following symlinks and its size is taken from the open
// descriptor.
func (e *Engine) archiveRegular(path string, h *Header) (int64, error) {
	f, err := platform.OpenFileNoFollow(path)
	if err != nil {
		if errors.Is(err, platform.ErrSymlink) {
			e.log().Debug("skipped file replaced by symlink", "path", path)
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %s: %w", ErrOpenFailed, path, err)
	}
	defer f.Close()

	finfo, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: stat %s: %w", ErrReadFailed, path, err)
	}
	if !finfo.Mode().IsRegular() {
		return 0, fmt.Errorf("%w: %s: not a regular file", ErrUnsupportedType, path)
	}
	h.Size = finfo.Size()

	if err := e.WriteEntry(h, f); err != nil {
		return 0, err
	}
	if err := e.checkUnchanged(f, path, h.Size); err != nil {
		return 0, err
	}
	e.log().Debug("archived entry", "path", path, "name", h.Name, "size", h.Size)
	return h.Size, nil
}

// checkUnchanged reports a source that grew while it was copied.
func (e *Engine) checkUnchanged(f *os.File, path string, size int64) error {
	after, err := f.Stat()
	if err != nil || after.Size() == size {
		return nil //nolint:nilerr // the entry itself is complete
	}
	if e.cfg.changeDetection == ChangeDetectionStrict {
		return fmt.Errorf("%w: %s: archived %d bytes, now %d", ErrSizeChanged, path, size, after.Size())
	}
	e.log().Warn("file changed as we read it", "path", path, "archived", size, "now", after.Size())
	return nil
}

// ownerName drops names that do not fit the header field.
func ownerName(name string) string {
	if len(name) > maxOwnerName {
		return ""
	}
	return name
}
