package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

type fakeTimeout struct{ timeout bool }

func (e *fakeTimeout) Error() string   { return "dial tcp: operation timed out" }
func (e *fakeTimeout) Timeout() bool   { return e.timeout }
func (e *fakeTimeout) Temporary() bool { return false }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("listing dump malformed"), false},
		{"explicit transient", NewTransientError(errors.New("cdn 503"), 503), true},
		{
			"transient wrapped by eris",
			eris.Wrap(NewTransientError(errors.New("cdn 429"), 429), "fetcher: download"),
			true,
		},
		{"net timeout", &fakeTimeout{timeout: true}, true},
		{"net non-timeout", &fakeTimeout{timeout: false}, false},
		{"econnreset", fmt.Errorf("write photo: %w", syscall.ECONNRESET), true},
		{"econnrefused", fmt.Errorf("dial ftp: %w", syscall.ECONNREFUSED), true},
		{"reset by message", errors.New("read: connection reset by peer"), true},
		{"dns by message", errors.New("lookup cdn-p.cian.site: no such host"), true},
		{"io timeout by message", errors.New("read tcp 10.0.0.2:443: i/o timeout"), true},
		{"permission denied", errors.New("open photos/a.jpg: permission denied"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	cause := errors.New("bad gateway")
	te := NewTransientError(cause, 502)
	assert.ErrorIs(t, te, cause)
	assert.Equal(t, 502, te.StatusCode)
	assert.Equal(t, "bad gateway", te.Error())
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404, 410, 501} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}
