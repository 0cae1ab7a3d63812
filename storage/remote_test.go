package storage

import (
	"bytes"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveVersioned serves the current content with range support and an ETag
// naming its version.
func serveVersioned(t *testing.T, content *atomic.Pointer[[]byte], version *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("ETag", `"v`+string(rune('0'+version.Load()))+`"`)
		nethttp.ServeContent(w, r, "archive.tar", time.Time{}, bytes.NewReader(*content.Load()))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRemoteReadSeek(t *testing.T) {
	t.Parallel()

	var (
		content atomic.Pointer[[]byte]
		version atomic.Int32
	)
	data := []byte("hello world")
	content.Store(&data)
	server := serveVersioned(t, &content, &version)

	r, err := OpenRemote(server.URL, WithHeader("X-Test", "1"))
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, int64(len(data)), r.Size())

	buf := make([]byte, 5)
	require.NoError(t, r.SeekTo(6))
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "world", string(buf[:n]))

	_, err = r.Read(buf)
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, r.SeekTo(8))
	n, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "rld", string(buf[:n]))

	_, err = r.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.Error(t, r.SeekTo(-1))
}

func TestRemoteDetectsChangedContent(t *testing.T) {
	t.Parallel()

	var (
		content atomic.Pointer[[]byte]
		version atomic.Int32
	)
	data := []byte("first version")
	content.Store(&data)
	server := serveVersioned(t, &content, &version)

	r, err := OpenRemote(server.URL)
	require.NoError(t, err)

	next := []byte("second version")
	content.Store(&next)
	version.Add(1)

	_, err = r.Read(make([]byte, 4))
	assert.Error(t, err)
}

func TestRemoteRangeUnsupported(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		_, _ = w.Write([]byte("no ranges here"))
	}))
	t.Cleanup(server.Close)

	_, err := OpenRemote(server.URL)
	assert.Error(t, err)
}

func TestRemoteClosed(t *testing.T) {
	t.Parallel()

	var (
		content atomic.Pointer[[]byte]
		version atomic.Int32
	)
	data := []byte("abc")
	content.Store(&data)
	server := serveVersioned(t, &content, &version)

	r, err := OpenRemote(server.URL, WithHTTPClient(server.Client()))
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = r.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, r.SeekTo(0), ErrClosed)
}

func TestParseContentRange(t *testing.T) {
	t.Parallel()

	size, err := parseContentRange("bytes 0-0/1234")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), size)

	for _, bad := range []string{"", "bytes 0-0/*", "items 0-0/10", "bytes 0-0/-1", "bytes 0-0"} {
		_, err := parseContentRange(bad)
		assert.Error(t, err, bad)
	}
}
