// Package fetch implements the Fetcher and ImageFetcher interfaces.
// It performs rate-limited HTTP GET requests against publication servers.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/gaurav-prasanna/postpress/core"
)

const (
	defaultTimeout = 60 * time.Second
	maxPageBytes   = 16 << 20
	maxImageBytes  = 32 << 20
)

// HTTPStatusError is returned for non-2xx responses.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// HTTPFetcher fetches pages and images via HTTP. Callers bound each request
// through the context; the client timeout is only a backstop.
type HTTPFetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *HTTPFetcher) { f.client = c }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithRateLimit caps requests per second across all callers of the fetcher.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(f *HTTPFetcher) {
		if perSecond <= 0 {
			f.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// New creates an HTTPFetcher with sensible defaults.
func New(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:    &http.Client{Timeout: defaultTimeout},
		userAgent: core.DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the HTML (or feed XML) at the given URL.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*core.FetchResult, error) {
	body, status, _, err := f.get(ctx, url, "text/html,application/xhtml+xml,application/rss+xml,application/xml;q=0.9,*/*;q=0.8", maxPageBytes)
	if err != nil {
		return nil, err
	}
	return &core.FetchResult{
		URL:        url,
		StatusCode: status,
		HTML:       string(body),
	}, nil
}

// FetchImage retrieves image bytes and the server-declared Content-Type.
func (f *HTTPFetcher) FetchImage(ctx context.Context, url string) ([]byte, string, error) {
	body, _, contentType, err := f.get(ctx, url, "image/avif,image/webp,image/png,image/jpeg,image/*;q=0.8", maxImageBytes)
	if err != nil {
		return nil, "", err
	}
	if len(body) == 0 {
		return nil, "", fmt.Errorf("empty image body from %s", url)
	}
	return body, contentType, nil
}

func (f *HTTPFetcher) get(ctx context.Context, url, accept string, limit int64) ([]byte, int, string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, 0, "", fmt.Errorf("waiting to fetch %s: %w", url, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, "", &HTTPStatusError{StatusCode: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, resp.StatusCode, "", fmt.Errorf("reading response body: %w", err)
	}
	return body, resp.StatusCode, resp.Header.Get("Content-Type"), nil
}
