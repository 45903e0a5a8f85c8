// Package upstream performs the real network fetch for intercepted requests
// and builds the headers sent with it.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultNavigationTimeout bounds top-level navigation fetches.
	DefaultNavigationTimeout = 20 * time.Second

	// DefaultResourceTimeout bounds every other fetch.
	DefaultResourceTimeout = 10 * time.Second

	// DefaultMaxRedirects is the number of redirect hops followed.
	DefaultMaxRedirects = 10
)

// Request is what the fetcher needs to know about an intercepted request.
type Request struct {
	Method     string
	URL        string
	Header     http.Header
	Body       []byte
	Navigation bool
}

// Response is a fully buffered upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// FinalURL is the URL that produced the response after redirects
	FinalURL string
}

// Fetcher executes upstream requests. One Fetcher owns one cookie jar, so
// cookies set by earlier responses are replayed on later requests made
// through the same Fetcher.
type Fetcher struct {
	client            *http.Client
	navigationTimeout time.Duration
	resourceTimeout   time.Duration
	maxRedirects      int
	logger            zerolog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeouts overrides the navigation and resource timeouts.
func WithTimeouts(navigation, resource time.Duration) Option {
	return func(f *Fetcher) {
		if navigation > 0 {
			f.navigationTimeout = navigation
		}
		if resource > 0 {
			f.resourceTimeout = resource
		}
	}
}

// WithMaxRedirects overrides the redirect hop limit.
func WithMaxRedirects(n int) Option {
	return func(f *Fetcher) {
		if n >= 0 {
			f.maxRedirects = n
		}
	}
}

// WithTransport replaces the proxy-bypassing default transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Fetcher) {
		if rt != nil {
			f.client.Transport = rt
		}
	}
}

// WithJar replaces the fetcher's own cookie jar.
func WithJar(jar http.CookieJar) Option {
	return func(f *Fetcher) {
		f.client.Jar = jar
	}
}

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a fetcher with its own cookie jar and a transport that
// ignores any ambient proxy configuration.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil

	f := &Fetcher{
		client: &http.Client{
			Transport: transport,
			Jar:       jar,
		},
		navigationTimeout: DefaultNavigationTimeout,
		resourceTimeout:   DefaultResourceTimeout,
		maxRedirects:      DefaultMaxRedirects,
		logger:            log.With().Str("component", "upstream").Logger(),
	}

	for _, o := range opts {
		o(f)
	}

	f.client.CheckRedirect = f.checkRedirect
	return f, nil
}

// TimeoutFor returns the timeout applied to a navigation or resource fetch.
func (f *Fetcher) TimeoutFor(navigation bool) time.Duration {
	if navigation {
		return f.navigationTimeout
	}
	return f.resourceTimeout
}

// Jar returns the cookie jar shared by every fetch.
func (f *Fetcher) Jar() http.CookieJar {
	return f.client.Jar
}

func (f *Fetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) > f.maxRedirects {
		return fmt.Errorf("stopped after %d redirects", f.maxRedirects)
	}
	return nil
}

// Fetch performs the request and buffers the whole body. Every status code is
// returned as a Response; only transport-level problems produce an error,
// always a *TransportError. The timeout covers connecting, waiting for
// headers and reading the body. Memory use grows with the response size:
// there is no cap and no streaming to the caller.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Response, error) {
	timeout := f.TimeoutFor(req.Navigation)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		upstreamFetchDuration.WithLabelValues(strconv.FormatBool(req.Navigation)).Observe(time.Since(start).Seconds())
	}()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, f.fail(KindConnectionFailed, req.URL, 0, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header = req.Header.Clone()
	if httpReq.Header == nil {
		httpReq.Header = make(http.Header)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		// A redirect policy error comes back together with the last response.
		if resp != nil {
			resp.Body.Close()
			return nil, f.fail(KindFailed, req.URL, resp.StatusCode, err)
		}
		return nil, f.fail(KindConnectionFailed, req.URL, 0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, f.fail(KindFailed, req.URL, resp.StatusCode, fmt.Errorf("read response body: %w", err))
	}

	upstreamFetchesTotal.WithLabelValues(statusClass(resp.StatusCode)).Inc()
	upstreamResponseBytes.Observe(float64(len(data)))

	f.logger.Debug().
		Str("url", req.URL).
		Str("method", req.Method).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Dur("timeout", timeout).
		Msg("Upstream fetch complete")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		FinalURL:   resp.Request.URL.String(),
	}, nil
}

func (f *Fetcher) fail(kind FailureKind, url string, status int, err error) *TransportError {
	upstreamFetchErrorsTotal.WithLabelValues(string(kind)).Inc()

	f.logger.Debug().
		Err(err).
		Str("url", url).
		Str("kind", string(kind)).
		Bool("timeout", isTimeout(err)).
		Msg("Upstream fetch failed")

	return &TransportError{
		Kind:       kind,
		URL:        url,
		StatusCode: status,
		Err:        err,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
