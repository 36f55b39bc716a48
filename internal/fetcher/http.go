package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/mosdata/listings-cli/internal/resilience"
)

// HTTPOptions configures an HTTPFetcher.
type HTTPOptions struct {
	// UserAgent sent with every request. Default "listings-cli/1.0".
	UserAgent string

	// Timeout bounds one whole request. Default 30s.
	Timeout time.Duration

	// MaxAttempts bounds tries per download, counting the first. Default 3.
	MaxAttempts int

	// Backoff is the initial retry delay; zero uses the resilience default.
	Backoff time.Duration

	// RateLimiters throttles requests per host. Hosts without an entry share
	// a fallback limiter.
	RateLimiters map[string]*rate.Limiter
}

// DefaultRateLimiters returns per-host limits tuned for the photo CDNs and
// mirror hosts the asset syncer actually hits.
func DefaultRateLimiters() map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		"cdn-p.cian.site":           rate.NewLimiter(10, 10),
		"images.cdn-cian.ru":        rate.NewLimiter(10, 10),
		"cloud-api.yandex.net":      rate.NewLimiter(5, 5),
		"downloader.disk.yandex.ru": rate.NewLimiter(5, 5),
	}
}

// HTTPFetcher downloads photo assets over HTTP with per-host rate limiting
// and transient-error retries.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	fallback *rate.Limiter
	retry    resilience.RetryConfig
}

// NewHTTPFetcher builds a fetcher with its own pooled transport.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = "listings-cli/1.0"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	retry := resilience.DefaultRetryConfig()
	if opts.MaxAttempts > 0 {
		retry.MaxAttempts = opts.MaxAttempts
	}
	if opts.Backoff > 0 {
		retry.InitialBackoff = opts.Backoff
	}
	retry.OnRetry = resilience.RetryLogger("fetcher", "http download")

	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client:   &http.Client{Timeout: opts.Timeout, Transport: transport},
		opts:     opts,
		fallback: rate.NewLimiter(20, 20),
		retry:    retry,
	}
}

func (f *HTTPFetcher) limiterFor(host string) *rate.Limiter {
	if lim, ok := f.opts.RateLimiters[host]; ok {
		return lim
	}
	return f.fallback
}

// Download fetches rawURL into memory. Non-2xx responses fail; 429 and 5xx
// are retried, everything else fails fast.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse url %s", rawURL)
	}
	limiter := f.limiterFor(u.Hostname())

	return resilience.DoVal(ctx, f.retry, func(ctx context.Context) ([]byte, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: build request %s", rawURL)
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: get %s", rawURL)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			cause := fmt.Errorf("fetcher: get %s: status %d", rawURL, resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(cause, resp.StatusCode)
			}
			return nil, cause
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: read body %s", rawURL)
		}
		return body, nil
	})
}

// DownloadToFile fetches rawURL into path, creating parent directories, and
// returns the byte count written.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, eris.Wrapf(err, "fetcher: mkdir for %s", path)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return 0, eris.Wrapf(err, "fetcher: write %s", path)
	}
	return int64(len(body)), nil
}
