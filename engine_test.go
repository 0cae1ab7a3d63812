package ustar

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/ustar/internal/testutil"
	"github.com/meigma/ustar/storage"
)

type testEntry struct {
	name     string
	body     string
	typeflag byte
	link     string
}

func file(name, body string) testEntry {
	return testEntry{name: name, body: body, typeflag: TypeReg}
}

func dir(name string) testEntry {
	return testEntry{name: name, typeflag: TypeDir}
}

func (te testEntry) header() *Header {
	h := &Header{
		Name:     te.name,
		Linkname: te.link,
		Mode:     0o644,
		ModTime:  time.Unix(1700000000, 0),
		Typeflag: te.typeflag,
	}
	if te.typeflag == TypeDir {
		h.Mode = 0o755
	}
	if te.typeflag == TypeReg {
		h.Size = int64(len(te.body))
	}
	return h
}

// buildArchive writes entries followed by a trailer to memory and returns the bytes.
func buildArchive(t *testing.T, entries ...testEntry) []byte {
	t.Helper()
	mem := storage.NewMemory(nil)
	e := New(mem)
	for _, te := range entries {
		require.NoError(t, e.WriteEntry(te.header(), strings.NewReader(te.body)))
	}
	require.NoError(t, e.Close())
	return mem.Bytes()
}

func names(t *testing.T, e *Engine) []string {
	t.Helper()
	var out []string
	for h, err := range e.All() {
		require.NoError(t, err)
		out = append(out, h.Name)
	}
	return out
}

func TestWriteEntryLayout(t *testing.T) {
	t.Parallel()

	data := buildArchive(t, file("test.txt", "Hello world"))

	// Header, one padded payload record, two trailer records.
	require.Len(t, data, 4*BlockSize)
	assert.Equal(t, "test.txt", string(data[:8]))
	assert.Equal(t, "00000000013\x00", string(data[124:136]))
	assert.Equal(t, "Hello world", string(data[512:523]))
	assert.Equal(t, make([]byte, 2048-523), data[523:])
}

func TestReadHeaderLeavesCursor(t *testing.T) {
	t.Parallel()

	e := New(storage.NewMemory(buildArchive(t, file("a", "1"), file("b", "22"))))
	defer e.Close()

	h1, err := e.ReadHeader()
	require.NoError(t, err)
	h2, err := e.ReadHeader()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Zero(t, e.Position())

	require.NoError(t, e.Advance(h1))
	assert.Equal(t, int64(2*BlockSize), e.Position())
	h, err := e.ReadHeader()
	require.NoError(t, err)
	assert.Equal(t, "b", h.Name)

	require.NoError(t, e.Advance(h))
	_, err = e.ReadHeader()
	require.ErrorIs(t, err, ErrNullRecord)
}

func TestReadHeaderEmptyAndTruncated(t *testing.T) {
	t.Parallel()

	empty := New(storage.NewMemory(nil))
	_, err := empty.ReadHeader()
	require.ErrorIs(t, err, ErrNullRecord)

	data := buildArchive(t, file("a", "1"))
	truncated := New(storage.NewMemory(data[:300]))
	_, err = truncated.ReadHeader()
	require.ErrorIs(t, err, ErrReadFailed)
}

func TestFind(t *testing.T) {
	t.Parallel()

	e := New(storage.NewMemory(buildArchive(t,
		dir("a/"),
		file("a/b.txt", "hello"),
		file("a/c.txt", ""),
	)))
	defer e.Close()

	h, err := e.Find("a/c.txt")
	require.NoError(t, err)
	assert.Equal(t, "a/c.txt", h.Name)
	assert.Equal(t, int64(3*BlockSize), e.Position())

	// Names match regardless of redundant slashes.
	h, err = e.Find("/a")
	require.NoError(t, err)
	assert.Equal(t, "a/", h.Name)

	_, err = e.Find("missing.txt")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFindAbortsOnBadChecksum(t *testing.T) {
	t.Parallel()

	data := buildArchive(t, file("a", "x"), file("b", "y"))
	data[2*BlockSize+1] ^= 0xff

	e := New(storage.NewMemory(data))
	_, err := e.Find("b")
	require.ErrorIs(t, err, ErrBadChecksum)

	_, err = e.Find("a")
	require.NoError(t, err, "entries before the corruption are still reachable")
}

func TestReadDataPartial(t *testing.T) {
	t.Parallel()

	e := New(storage.NewMemory(buildArchive(t, file("a", "Hello world"), file("b", "next"))))
	defer e.Close()

	var out bytes.Buffer
	n, err := e.ReadData(&out, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, "Hello", out.String())

	n, err = e.ReadData(&out, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
	assert.Equal(t, "Hello world", out.String())

	// Drained: the cursor is back on the entry's header.
	assert.Zero(t, e.Position())
	h, err := e.ReadHeader()
	require.NoError(t, err)
	require.NoError(t, e.Advance(h))

	out.Reset()
	require.NoError(t, e.ExtractEntry(nil, &out))
	assert.Equal(t, "next", out.String())
}

func TestReadDataHeaderOnlyEntry(t *testing.T) {
	t.Parallel()

	e := New(storage.NewMemory(buildArchive(t, dir("d/"))))
	n, err := e.ReadData(io.Discard, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, e.Position())
}

func TestExtractEntryTruncatedPayload(t *testing.T) {
	t.Parallel()

	data := buildArchive(t, file("big", strings.Repeat("z", 1000)))
	e := New(storage.NewMemory(data[:BlockSize+600]))

	var out bytes.Buffer
	err := e.ExtractEntry(nil, &out)
	require.ErrorIs(t, err, ErrReadFailed)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestWriteHeaderRequiresCompletePayload(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory(nil)
	e := New(mem)

	require.NoError(t, e.WriteHeader(file("a", "12345").header()))
	_, err := e.WriteData([]byte("12"))
	require.NoError(t, err)

	require.ErrorIs(t, e.WriteHeader(file("b", "").header()), ErrEntryIncomplete)
	require.ErrorIs(t, e.Finish(), ErrEntryIncomplete)

	_, err = e.WriteData([]byte("345"))
	require.NoError(t, err)
	assert.Equal(t, int64(2*BlockSize), e.Position(), "payload is padded once complete")
	require.NoError(t, e.Finish())
}

func TestWriteDataTooLong(t *testing.T) {
	t.Parallel()

	e := New(storage.NewMemory(nil))
	require.NoError(t, e.WriteHeader(file("a", "abc").header()))

	n, err := e.WriteData([]byte("abcdef"))
	require.ErrorIs(t, err, ErrWriteTooLong)
	assert.Equal(t, 3, n)

	_, err = e.WriteData([]byte("x"))
	require.ErrorIs(t, err, ErrWriteTooLong)
	require.NoError(t, e.Close())
}

func TestWriteEntryShortSourceKeepsArchiveReadable(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory(nil)
	e := New(mem)

	h := file("short", "").header()
	h.Size = 700
	err := e.WriteEntry(h, strings.NewReader("only this"))
	require.ErrorIs(t, err, ErrSizeChanged)

	require.NoError(t, e.WriteEntry(file("after", "ok").header(), strings.NewReader("ok")))
	require.NoError(t, e.Close())

	r := New(storage.NewMemory(mem.Bytes()))
	assert.Equal(t, []string{"short", "after"}, names(t, r))
}

func TestWriteEntrySourceError(t *testing.T) {
	t.Parallel()

	e := New(storage.NewMemory(nil))
	err := e.WriteEntry(file("a", "abc").header(), iotest.ErrReader(io.ErrClosedPipe))
	require.ErrorIs(t, err, ErrReadFailed)
	require.ErrorIs(t, err, io.ErrClosedPipe)

	// The entry was zero-filled, so the next header can follow.
	require.NoError(t, e.WriteEntry(file("b", "").header(), strings.NewReader("")))
}

func TestWriteEntrySmallChunks(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("0123456789", 300)
	mem := storage.NewMemory(nil)
	e := New(mem, WithChunkSize(7))
	require.NoError(t, e.WriteEntry(file("f", body).header(), iotest.OneByteReader(strings.NewReader(body))))
	require.NoError(t, e.Close())

	r := New(storage.NewMemory(mem.Bytes()), WithChunkSize(13))
	var out bytes.Buffer
	require.NoError(t, r.ExtractEntry(nil, &out))
	assert.Equal(t, body, out.String())
}

func TestWriteHeaderEncodingErrors(t *testing.T) {
	t.Parallel()

	e := New(storage.NewMemory(nil), WithFormat(FormatV7))
	err := e.WriteHeader(file(strings.Repeat("n", 101), "").header())
	require.ErrorIs(t, err, ErrNameTooLong)

	h := file("huge", "").header()
	h.Size = 1 << 40
	require.ErrorIs(t, e.WriteHeader(h), ErrFieldOverflow)
	assert.Zero(t, e.Position(), "nothing is written on encoding failure")
}

func TestFinishThenContinue(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory(nil)
	e := New(mem)
	require.NoError(t, e.WriteEntry(file("one", "1").header(), strings.NewReader("1")))
	require.NoError(t, e.Finish())
	require.NoError(t, e.WriteEntry(file("two", "2").header(), strings.NewReader("2")))
	require.NoError(t, e.Close())

	require.Len(t, mem.Bytes(), 6*BlockSize)
	assert.Equal(t, []string{"one", "two"}, names(t, New(storage.NewMemory(mem.Bytes()))))
}

func TestAllStopsEarly(t *testing.T) {
	t.Parallel()

	e := New(storage.NewMemory(buildArchive(t, file("a", "1"), file("b", "2"), file("c", "3"))))
	var seen []string
	for h, err := range e.All() {
		require.NoError(t, err)
		seen = append(seen, h.Name)
		if h.Name == "b" {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestAllReadsPayloadInLoop(t *testing.T) {
	t.Parallel()

	e := New(storage.NewMemory(buildArchive(t, file("a", "alpha"), dir("d/"), file("b", "beta"))))
	got := map[string]string{}
	for h, err := range e.All() {
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, e.ExtractEntry(h, &buf))
		got[h.Name] = buf.String()
	}
	assert.Equal(t, map[string]string{"a": "alpha", "d/": "", "b": "beta"}, got)
}

func TestAllYieldsError(t *testing.T) {
	t.Parallel()

	data := buildArchive(t, file("a", "1"), file("b", "2"))
	data[2*BlockSize+100] ^= 0x01

	e := New(storage.NewMemory(data))
	var (
		seen []string
		errs []error
	)
	for h, err := range e.All() {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		seen = append(seen, h.Name)
	}
	assert.Equal(t, []string{"a"}, seen)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrBadChecksum)
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory(nil)
	e := New(mem)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.Zero(t, mem.Len(), "no trailer without entries")

	_, err := e.ReadHeader()
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, e.WriteHeader(file("a", "").header()), ErrClosed)
	require.ErrorIs(t, e.Rewind(), ErrClosed)
}

func TestCloseReportsStorageFailure(t *testing.T) {
	t.Parallel()

	fs := testutil.NewFaultyStorage(storage.NewMemory(nil))
	e := New(fs)
	require.NoError(t, e.WriteEntry(file("a", "x").header(), strings.NewReader("x")))

	fs.WriteBudget = 0
	err := e.Close()
	require.ErrorIs(t, err, ErrWriteFailed)
	require.ErrorIs(t, err, testutil.ErrInjected)
}

func TestSeekFailureSurfaces(t *testing.T) {
	t.Parallel()

	fs := testutil.NewFaultyStorage(storage.NewMemory(buildArchive(t, file("a", "1"))))
	e := New(fs)
	fs.FailSeek = true

	_, err := e.Find("a")
	require.ErrorIs(t, err, ErrSeekFailed)
}

func TestDigest(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.tar")
	e, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, e.WriteEntry(file("a", "abc").header(), strings.NewReader("abc")))
	require.NoError(t, e.Finish())

	pos := e.Position()
	d, err := e.Digest()
	require.NoError(t, err)
	assert.Equal(t, pos, e.Position(), "cursor is restored")
	require.NoError(t, e.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, digest.FromBytes(data), d)
	require.NoError(t, d.Validate())
}

func TestAppend(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.tar")

	e, err := Append(path)
	require.NoError(t, err, "Append creates a missing archive")
	require.NoError(t, e.WriteEntry(file("first", "1").header(), strings.NewReader("1")))
	require.NoError(t, e.Close())

	e, err = Append(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2*BlockSize), e.Position(), "positioned on the old trailer")
	require.NoError(t, e.WriteEntry(file("second", "22").header(), strings.NewReader("22")))
	require.NoError(t, e.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(6*BlockSize), info.Size())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, []string{"first", "second"}, names(t, r))
}

func TestAppendRejectsCorruptArchive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.tar")
	data := buildArchive(t, file("a", "1"))
	data[5] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, err := Append(path)
	require.ErrorIs(t, err, ErrBadChecksum)
}

func TestOpenMissing(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "missing.tar"))
	require.ErrorIs(t, err, ErrOpenFailed)
	require.ErrorIs(t, err, os.ErrNotExist)
}
