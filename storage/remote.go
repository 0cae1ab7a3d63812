package storage

import (
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strconv"
	"strings"
)

// ErrReadOnly is returned by Remote.Write.
var ErrReadOnly = errors.New("storage: read-only medium")

// Remote is a read-only Storage backed by HTTP range requests.
//
// Each Read fetches exactly the requested span starting at the current
// position, so navigating an archive only transfers the header records and
// payloads that are actually read. Requests after the first carry the
// validators (ETag, Last-Modified) observed when the Remote was opened, and
// fail if the remote content changes.
type Remote struct {
	url          string
	client       *nethttp.Client
	headers      nethttp.Header
	size         int64
	etag         string
	lastModified string
	pos          int64
	closed       bool
}

// RemoteOption configures a Remote.
type RemoteOption func(*Remote)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *nethttp.Client) RemoteOption {
	return func(r *Remote) {
		r.client = client
	}
}

// WithHeader sets a header, such as Authorization, on every request.
func WithHeader(key, value string) RemoteOption {
	return func(r *Remote) {
		if r.headers == nil {
			r.headers = make(nethttp.Header)
		}
		r.headers.Set(key, value)
	}
}

// OpenRemote checks url for range support and its content size.
func OpenRemote(url string, opts ...RemoteOption) (*Remote, error) {
	r := &Remote{url: url}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = nethttp.DefaultClient
	}
	if err := r.stat(); err != nil {
		return nil, err
	}
	return r, nil
}

// Size returns the total size of the remote content.
func (r *Remote) Size() int64 {
	return r.size
}

// Read implements io.Reader with a ranged GET from the current position.
func (r *Remote) Read(p []byte) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if r.pos >= r.size {
		return 0, io.EOF
	}
	want := min(int64(len(p)), r.size-r.pos)

	resp, err := r.get(r.pos, r.pos+want-1)
	if err != nil {
		return 0, err
	}
	defer drain(resp.Body)

	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
	case nethttp.StatusRequestedRangeNotSatisfiable:
		return 0, io.EOF
	case nethttp.StatusOK:
		return 0, errors.New("storage: range requests not supported")
	default:
		return 0, fmt.Errorf("storage: range request failed: %s", resp.Status)
	}

	n, err := io.ReadFull(resp.Body, p[:want])
	r.pos += int64(n)
	if err != nil {
		return n, err
	}
	return n, nil
}

// Write always fails with ErrReadOnly.
func (r *Remote) Write([]byte) (int, error) {
	return 0, ErrReadOnly
}

// SeekTo moves to the absolute offset pos. No request is made.
func (r *Remote) SeekTo(pos int64) error {
	if r.closed {
		return ErrClosed
	}
	if pos < 0 {
		return errors.New("storage: negative position")
	}
	r.pos = pos
	return nil
}

// Close marks the Remote closed. Idle connections belong to the client.
func (r *Remote) Close() error {
	r.closed = true
	return nil
}

// stat learns the content size from a one-byte range request, which also
// confirms the server honors ranges.
func (r *Remote) stat() error {
	resp, err := r.get(0, 0)
	if err != nil {
		return err
	}
	defer drain(resp.Body)

	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
	case nethttp.StatusRequestedRangeNotSatisfiable:
		// Empty content has no satisfiable range.
		r.size = 0
		return nil
	case nethttp.StatusOK:
		return errors.New("storage: range requests not supported")
	default:
		return fmt.Errorf("storage: range request failed: %s", resp.Status)
	}

	size, err := parseContentRange(resp.Header.Get("Content-Range"))
	if err != nil {
		return err
	}
	r.size = size
	r.etag = resp.Header.Get("ETag")
	r.lastModified = resp.Header.Get("Last-Modified")
	return nil
}

func (r *Remote) get(first, last int64) (*nethttp.Response, error) {
	req, err := nethttp.NewRequest(nethttp.MethodGet, r.url, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range r.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", first, last))
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "identity")
	}
	if r.etag != "" && req.Header.Get("If-Match") == "" {
		req.Header.Set("If-Match", r.etag)
	}
	if r.lastModified != "" && req.Header.Get("If-Unmodified-Since") == "" {
		req.Header.Set("If-Unmodified-Since", r.lastModified)
	}
	return r.client.Do(req)
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body) //nolint:errcheck // best-effort connection reuse
	_ = body.Close()                 //nolint:errcheck // response already consumed
}

// parseContentRange returns the complete length from "bytes a-b/size".
func parseContentRange(value string) (int64, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(value), "bytes ")
	if !ok {
		return 0, fmt.Errorf("storage: invalid Content-Range %q", value)
	}
	_, total, ok := strings.Cut(rest, "/")
	if !ok || total == "*" {
		return 0, fmt.Errorf("storage: invalid Content-Range %q", value)
	}
	size, err := strconv.ParseInt(total, 10, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("storage: invalid Content-Range %q", value)
	}
	return size, nil
}
