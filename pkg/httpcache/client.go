package httpcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// UserAgent is the browser User-Agent string sent with every request.
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:146.0) Gecko/20100101 Firefox/146.0"

// Session defaults.
const (
	DefaultTimeout   = 15 * time.Second
	DefaultRetries   = 3
	DefaultBaseDelay = 300 * time.Millisecond
	DefaultMaxBody   = 32 << 20
)

// Response is a completed HTTP exchange.
type Response struct {
	Body []byte
	// URL is the final URL after redirects.
	URL        string
	StatusCode int
}

// ResponseValidator reports whether a response may be cached.
type ResponseValidator func(*Response) bool

// Client is the shared HTTP session. It is safe for concurrent use.
type Client struct {
	http      *http.Client
	cache     Cacher
	logger    *slog.Logger
	header    http.Header
	stats     counters
	baseDelay time.Duration
	maxBody   int64
	retries   uint
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithCache enables response caching for GetCached.
func WithCache(cache Cacher) Option {
	return func(c *Client) { c.cache = cache }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRetries sets how many times a transient failure is retried.
func WithRetries(n uint) Option {
	return func(c *Client) { c.retries = n }
}

// WithBaseDelay sets the first backoff delay.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) { c.baseDelay = d }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.header.Set("User-Agent", ua)
		}
	}
}

// WithMaxBodyBytes caps how much of a response body is read.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) { c.maxBody = n }
}

// NewClient creates a Client with browser-like session headers.
func NewClient(opts ...Option) *Client {
	jar, _ := cookiejar.New(nil) //nolint:errcheck // nil options never fail
	c := &Client{
		http:      &http.Client{Timeout: DefaultTimeout, Jar: jar},
		logger:    slog.Default(),
		retries:   DefaultRetries,
		baseDelay: DefaultBaseDelay,
		maxBody:   DefaultMaxBody,
		header: http.Header{
			"User-Agent":      {UserAgent},
			"Accept-Language": {"en-US,en;q=0.9"},
			"Referer":         {"https://www.google.com/"},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTPClient returns the underlying session so other components share its
// cookie jar and connection pool.
func (c *Client) HTTPClient() *http.Client { return c.http }

// Stats returns cache hit/miss counts for GetCached.
func (c *Client) Stats() Stats {
	return c.stats.snapshot()
}

// Get fetches rawURL, retrying transient failures. Non-200 responses are
// returned as *HTTPError.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range c.header {
		req.Header[k] = vs
	}
	for k, vs := range header {
		req.Header[http.CanonicalHeaderKey(k)] = vs
	}

	return retry.DoWithData(
		func() (*Response, error) {
			return c.do(req)
		},
		retry.Context(ctx),
		retry.Attempts(c.retries+1),
		retry.Delay(c.baseDelay),
		retry.MaxJitter(100*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryableError),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying HTTP request", "attempt", n+1, "url", rawURL, "error", err)
		}),
	)
}

func (c *Client) do(req *http.Request) (*Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // error irrelevant after read

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: req.URL.String()}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{Body: body, URL: resp.Request.URL.String(), StatusCode: resp.StatusCode}, nil
}

// GetCached is Get behind the response cache. Successful responses are cached
// only when validate (if non-nil) accepts them; 404s are cached as errors.
// Without a cache it behaves like Get.
func (c *Client) GetCached(ctx context.Context, rawURL string, header http.Header, validate ResponseValidator) (*Response, error) {
	if c.cache == nil {
		c.stats.misses.Add(1)
		return c.Get(ctx, rawURL, header)
	}

	var fetched bool
	var uncached *Response
	data, err := c.cache.GetSet(ctx, URLToKey(rawURL), func(ctx context.Context) ([]byte, error) {
		fetched = true
		c.stats.misses.Add(1)
		c.logger.Debug("cache miss", "url", rawURL)

		resp, err := c.Get(ctx, rawURL, header)
		if err != nil {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
				return encodeError(httpErr.StatusCode), nil
			}
			return nil, err
		}
		if validate != nil && !validate(resp) {
			c.logger.Debug("skipping cache due to validation failure", "url", rawURL)
			uncached = resp
			return nil, errNotCacheable
		}
		return encodeResponse(resp), nil
	}, c.cache.TTL())

	if !fetched {
		c.stats.hits.Add(1)
		c.logger.Debug("cache hit", "url", rawURL)
	}
	if errors.Is(err, errNotCacheable) {
		return uncached, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeEntry(rawURL, data)
}

var errNotCacheable = errors.New("response not cacheable")

// Cache entries are "OK:<final url>\n<body>" or "ERROR:<status>".
func encodeResponse(r *Response) []byte {
	out := make([]byte, 0, len(r.URL)+len(r.Body)+4)
	out = append(out, "OK:"...)
	out = append(out, r.URL...)
	out = append(out, '\n')
	return append(out, r.Body...)
}

func encodeError(status int) []byte {
	return fmt.Appendf(nil, "ERROR:%d", status)
}

func decodeEntry(rawURL string, data []byte) (*Response, error) {
	s := string(data)
	if code, found := strings.CutPrefix(s, "ERROR:"); found {
		status, _ := strconv.Atoi(code) //nolint:errcheck // 0 is acceptable default
		return nil, &HTTPError{StatusCode: status, URL: rawURL}
	}
	rest, found := strings.CutPrefix(s, "OK:")
	if !found {
		return nil, fmt.Errorf("corrupt cache entry for %s", rawURL)
	}
	finalURL, body, _ := strings.Cut(rest, "\n")
	return &Response{Body: []byte(body), URL: finalURL, StatusCode: http.StatusOK}, nil
}

// isRetryableError returns true for transient errors that should be retried.
func isRetryableError(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false // 4xx errors (except 429) are permanent
		}
	}
	// Network errors, timeouts, etc. are retryable
	return true
}
