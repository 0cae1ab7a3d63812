package main

import (
	"bytes"
	"context"
	"log/slog"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/ustar/internal/testutil"
)

func TestCreateListExtract(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	src := t.TempDir()
	testutil.WriteTree(t, src, map[string]string{"proj/main.go": "package main\n"})
	archive := filepath.Join(t.TempDir(), "proj.tar")

	err := run(ctx, config{create: true, file: archive, format: "ustar"}, logger, []string{filepath.Join(src, "proj")})
	require.NoError(t, err)

	var listing bytes.Buffer
	require.NoError(t, list(archive, &listing, nil))
	assert.Contains(t, listing.String(), "proj/main.go")
	assert.Contains(t, listing.String(), "proj/")

	out := t.TempDir()
	err = run(ctx, config{extract: true, file: archive, dir: out}, logger, nil)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(out, "proj", "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(data))
}

func TestAppendAndExtractByName(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	src := t.TempDir()
	testutil.WriteTree(t, src, map[string]string{"one.txt": "1", "two.txt": "2"})
	archive := filepath.Join(t.TempDir(), "a.tar")

	require.NoError(t, run(ctx, config{create: true, file: archive, format: "v7"}, logger,
		[]string{filepath.Join(src, "one.txt")}))
	require.NoError(t, run(ctx, config{append: true, file: archive, format: "ustar"}, logger,
		[]string{filepath.Join(src, "two.txt")}))

	out := t.TempDir()
	require.NoError(t, run(ctx, config{extract: true, file: archive, dir: out}, logger, []string{"two.txt"}))
	_, err := os.Stat(filepath.Join(out, "one.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	data, err := os.ReadFile(filepath.Join(out, "two.txt"))
	require.NoError(t, err)
	assert.Equal(t, "2", string(data))
}

func TestListAndExtractURL(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	src := t.TempDir()
	testutil.WriteTree(t, src, map[string]string{"web/index.html": "<p>hi</p>"})
	archive := filepath.Join(t.TempDir(), "web.tar")
	require.NoError(t, run(ctx, config{create: true, file: archive, format: "ustar"}, logger,
		[]string{filepath.Join(src, "web")}))

	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		nethttp.ServeFile(w, r, archive)
	}))
	t.Cleanup(server.Close)

	var listing bytes.Buffer
	require.NoError(t, list(server.URL, &listing, nil))
	assert.Contains(t, listing.String(), "web/index.html")

	out := t.TempDir()
	require.NoError(t, run(ctx, config{extract: true, file: server.URL, dir: out}, logger, []string{"web/index.html"}))
	data, err := os.ReadFile(filepath.Join(out, "web", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", string(data))
}

func TestParseFormat(t *testing.T) {
	_, err := parseFormat("pax")
	assert.Error(t, err)
}
