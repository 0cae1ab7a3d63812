// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meigma/ustar/storage"
)

// WriteTree creates files below dir from a map of slash-separated paths to
// contents. Paths ending in "/" are created as directories.
func WriteTree(t testing.TB, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if strings.HasSuffix(name, "/") {
			if err := os.MkdirAll(p, 0o755); err != nil {
				t.Fatalf("mkdir %s: %v", name, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", filepath.Dir(name), err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil { //nolint:gosec // test fixture
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

// ErrInjected is returned by FaultyStorage operations configured to fail.
var ErrInjected = errors.New("injected failure")

// FaultyStorage wraps a Storage and fails selected operations.
//
// WriteBudget, when non-negative, is the number of bytes accepted before
// writes fail; a write crossing the budget is applied partially.
type FaultyStorage struct {
	storage.Storage

	FailRead    bool
	FailSeek    bool
	WriteBudget int
	written     int
}

// NewFaultyStorage wraps s with no failures configured.
func NewFaultyStorage(s storage.Storage) *FaultyStorage {
	return &FaultyStorage{Storage: s, WriteBudget: -1}
}

// Read fails if FailRead is set.
func (f *FaultyStorage) Read(p []byte) (int, error) {
	if f.FailRead {
		return 0, ErrInjected
	}
	return f.Storage.Read(p)
}

// Write fails once WriteBudget bytes have been written.
func (f *FaultyStorage) Write(p []byte) (int, error) {
	if f.WriteBudget < 0 {
		return f.Storage.Write(p)
	}
	room := f.WriteBudget - f.written
	if room <= 0 {
		return 0, ErrInjected
	}
	if len(p) <= room {
		n, err := f.Storage.Write(p)
		f.written += n
		return n, err
	}
	n, err := f.Storage.Write(p[:room])
	f.written += n
	if err != nil {
		return n, err
	}
	return n, ErrInjected
}

// SeekTo fails if FailSeek is set.
func (f *FaultyStorage) SeekTo(pos int64) error {
	if f.FailSeek {
		return ErrInjected
	}
	return f.Storage.SeekTo(pos)
}
