package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/intercept-cache/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(t *testing.T, opts ...Option) *Fetcher {
	t.Helper()
	f, err := NewFetcher(opts...)
	require.NoError(t, err)
	return f
}

func TestNewFetcher_Defaults(t *testing.T) {
	f := newTestFetcher(t)

	assert.Equal(t, 20*time.Second, f.TimeoutFor(true))
	assert.Equal(t, 10*time.Second, f.TimeoutFor(false))
	assert.Equal(t, 10, f.maxRedirects)
	assert.NotNil(t, f.Jar())

	transport, ok := f.client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Nil(t, transport.Proxy, "ambient proxy settings must be bypassed")
}

func TestFetch_AllStatusesAreResponses(t *testing.T) {
	origin := testutil.NewMockOrigin()
	defer origin.Close()
	origin.SetResponse("/broken", testutil.NewServerErrorResponse())

	f := newTestFetcher(t)
	resp, err := f.Fetch(context.Background(), Request{Method: http.MethodGet, URL: origin.URL() + "/broken"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error": "Internal server error"}`, string(resp.Body))

	resp, err = f.Fetch(context.Background(), Request{Method: http.MethodGet, URL: origin.URL() + "/missing"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFetch_SendsMethodHeadersAndBody(t *testing.T) {
	var mu sync.Mutex
	var gotMethod, gotBody, gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Test")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	f := newTestFetcher(t)
	resp, err := f.Fetch(context.Background(), Request{
		Method: http.MethodPost,
		URL:    server.URL + "/submit",
		Header: http.Header{"X-Test": []string{"yes"}},
		Body:   []byte("a=1&b=2"),
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "yes", gotHeader)
	assert.Equal(t, "a=1&b=2", gotBody)
}

func TestFetch_BinaryBodyBufferedIntact(t *testing.T) {
	payload := make([]byte, 256*1024)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		// Deliver the body in several chunks.
		for off := 0; off < len(payload); off += 32 * 1024 {
			w.Write(payload[off : off+32*1024])
			flusher.Flush()
		}
	}))
	defer server.Close()

	f := newTestFetcher(t)
	resp, err := f.Fetch(context.Background(), Request{Method: http.MethodGet, URL: server.URL})

	require.NoError(t, err)
	assert.Equal(t, payload, resp.Body)
}

func TestFetch_CompressedBodyKeptRaw(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Write([]byte{0x1f, 0x8b, 0x08, 0x00})
	}))
	defer server.Close()

	f := newTestFetcher(t)
	resp, err := f.Fetch(context.Background(), Request{
		Method: http.MethodGet,
		URL:    server.URL,
		Header: BuildHeaders(nil, false),
	})

	require.NoError(t, err)
	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
	assert.Equal(t, []byte{0x1f, 0x8b, 0x08, 0x00}, resp.Body)
}

func TestFetch_CookieJarSharedAcrossRequests(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if c, err := r.Cookie("session"); err == nil {
			seen = append(seen, c.Value)
		} else {
			seen = append(seen, "")
		}
		if r.URL.Path == "/login" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		}
	}))
	defer server.Close()

	f := newTestFetcher(t)
	ctx := context.Background()

	_, err := f.Fetch(ctx, Request{Method: http.MethodGet, URL: server.URL + "/login"})
	require.NoError(t, err)
	_, err = f.Fetch(ctx, Request{Method: http.MethodGet, URL: server.URL + "/account"})
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, []string{"", "abc"}, seen)
	mu.Unlock()

	u, _ := url.Parse(server.URL)
	require.Len(t, f.Jar().Cookies(u), 1)

	// A second fetcher has its own jar.
	other := newTestFetcher(t)
	assert.Empty(t, other.Jar().Cookies(u))
}

func TestFetch_FollowsRedirects(t *testing.T) {
	origin := testutil.NewMockOrigin()
	defer origin.Close()
	origin.SetHandler("/old", testutil.NewRedirectHandler("/new"))
	origin.SetResponse("/new", testutil.NewCacheableResponse("moved here", "60"))

	f := newTestFetcher(t)
	resp, err := f.Fetch(context.Background(), Request{Method: http.MethodGet, URL: origin.URL() + "/old"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "moved here", string(resp.Body))
	assert.Equal(t, origin.URL()+"/new", resp.FinalURL)
}

func TestFetch_RedirectLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n int
		fmt.Sscanf(r.URL.Path, "/hop/%d", &n)
		http.Redirect(w, r, fmt.Sprintf("/hop/%d", n+1), http.StatusFound)
	}))
	defer server.Close()

	f := newTestFetcher(t, WithMaxRedirects(3))
	_, err := f.Fetch(context.Background(), Request{Method: http.MethodGet, URL: server.URL + "/hop/0"})

	var te *TransportError
	require.True(t, errors.As(err, &te), "expected TransportError, got %v", err)
	assert.Equal(t, KindFailed, te.Kind)
	assert.Equal(t, http.StatusFound, te.StatusCode)
}

func TestFetch_RedirectWithinLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n int
		fmt.Sscanf(r.URL.Path, "/hop/%d", &n)
		if n == 3 {
			w.Write([]byte("done"))
			return
		}
		http.Redirect(w, r, fmt.Sprintf("/hop/%d", n+1), http.StatusFound)
	}))
	defer server.Close()

	f := newTestFetcher(t, WithMaxRedirects(3))
	resp, err := f.Fetch(context.Background(), Request{Method: http.MethodGet, URL: server.URL + "/hop/0"})

	require.NoError(t, err)
	assert.Equal(t, "done", string(resp.Body))
}

func TestFetch_TimeoutIsConnectionFailed(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	f := newTestFetcher(t, WithTimeouts(100*time.Millisecond, 50*time.Millisecond))

	start := time.Now()
	_, err := f.Fetch(context.Background(), Request{Method: http.MethodGet, URL: server.URL, Navigation: true})
	elapsed := time.Since(start)

	var te *TransportError
	require.True(t, errors.As(err, &te), "expected TransportError, got %v", err)
	assert.Equal(t, KindConnectionFailed, te.Kind)
	assert.True(t, isTimeout(err), "expected a timeout, got %v", err)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond, "navigation timeout should apply")
}

func TestFetch_UnreachableIsConnectionFailed(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	f := newTestFetcher(t)
	_, err := f.Fetch(context.Background(), Request{Method: http.MethodGet, URL: addr})

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, KindConnectionFailed, te.Kind)
	assert.Zero(t, te.StatusCode)
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{101: "1xx", 200: "2xx", 304: "3xx", 404: "4xx", 503: "5xx"}
	for code, want := range tests {
		assert.Equal(t, want, statusClass(code), "status %d", code)
	}
}
