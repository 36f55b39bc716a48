package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

var photoBytes = []byte{0xff, 0xd8, 0xff, 0xe0, 'j', 'p', 'e', 'g'}

func quickHTTPFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
	})
}

func TestHTTPFetcher_Download(t *testing.T) {
	var gotUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		w.Write(photoBytes)
	}))
	defer srv.Close()

	body, err := quickHTTPFetcher().Download(context.Background(), srv.URL+"/photos/a1b2.jpg")
	require.NoError(t, err)
	assert.Equal(t, photoBytes, body)
	assert.Equal(t, "listings-cli/1.0", gotUA.Load())
}

func TestHTTPFetcher_NotFoundFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := quickHTTPFetcher().Download(context.Background(), srv.URL+"/photos/gone.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPFetcher_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(photoBytes)
	}))
	defer srv.Close()

	body, err := quickHTTPFetcher().Download(context.Background(), srv.URL+"/photos/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, photoBytes, body)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPFetcher_RetriesRateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(photoBytes)
	}))
	defer srv.Close()

	_, err := quickHTTPFetcher().Download(context.Background(), srv.URL+"/photos/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPFetcher_ExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := quickHTTPFetcher().Download(context.Background(), srv.URL+"/photos/a.jpg")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPFetcher_DownloadToFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(photoBytes)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "photos", "a1b2.jpg")
	n, err := quickHTTPFetcher().DownloadToFile(context.Background(), srv.URL+"/photos/a1b2.jpg", path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(photoBytes)), n)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, photoBytes, content)
}

func TestHTTPFetcher_DownloadToFile_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "a.jpg")
	_, err := quickHTTPFetcher().DownloadToFile(context.Background(), srv.URL+"/a.jpg", path)
	require.Error(t, err)
	assert.NoFileExists(t, path)
}

func TestHTTPFetcher_InvalidURL(t *testing.T) {
	_, err := quickHTTPFetcher().Download(context.Background(), "http://bad url/photo.jpg")
	assert.Error(t, err)
}

func TestHTTPFetcher_LimiterFor(t *testing.T) {
	cdn := rate.NewLimiter(10, 10)
	f := NewHTTPFetcher(HTTPOptions{
		RateLimiters: map[string]*rate.Limiter{"cdn-p.cian.site": cdn},
	})

	assert.Same(t, cdn, f.limiterFor("cdn-p.cian.site"))
	assert.Same(t, f.fallback, f.limiterFor("unknown.example.com"))
}

func TestDefaultRateLimiters_CoverKnownHosts(t *testing.T) {
	limiters := DefaultRateLimiters()
	for _, host := range []string{"cdn-p.cian.site", "images.cdn-cian.ru", "cloud-api.yandex.net", "downloader.disk.yandex.ru"} {
		assert.Contains(t, limiters, host)
	}
}
