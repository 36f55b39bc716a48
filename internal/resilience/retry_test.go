package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quickRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), quickRetry(3), func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	err := Do(context.Background(), quickRetry(3), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("cdn returned 503"), 503)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_TerminalErrorFailsFast(t *testing.T) {
	calls := 0
	terminal := errors.New("photo not found")
	err := Do(context.Background(), quickRetry(5), func(ctx context.Context) error {
		calls++
		return terminal
	})
	assert.ErrorIs(t, err, terminal)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), quickRetry(4), func(ctx context.Context) error {
		calls++
		return NewTransientError(errors.New("connection dropped"), 0)
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls)
}

func TestDo_ContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, quickRetry(10), func(ctx context.Context) error {
		calls++
		cancel()
		return NewTransientError(errors.New("mid-transfer reset"), 0)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ShouldRetryOverride(t *testing.T) {
	marker := errors.New("stale listing dump")
	calls := 0
	cfg := quickRetry(3)
	cfg.ShouldRetry = func(err error) bool { return errors.Is(err, marker) }
	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return marker
	})
	assert.ErrorIs(t, err, marker)
	assert.Equal(t, 3, calls)
}

func TestDo_OnRetryObservesAttempts(t *testing.T) {
	var seen []int
	cfg := quickRetry(3)
	cfg.OnRetry = func(attempt int, err error) { seen = append(seen, attempt) }
	_ = Do(context.Background(), cfg, func(ctx context.Context) error {
		return NewTransientError(errors.New("flaky mirror"), 502)
	})
	assert.Equal(t, []int{1, 2}, seen)
}

func TestDoVal_ReturnsValueFromSuccessfulAttempt(t *testing.T) {
	calls := 0
	n, err := DoVal(context.Background(), quickRetry(3), func(ctx context.Context) (int64, error) {
		calls++
		if calls == 1 {
			return 0, NewTransientError(errors.New("short read"), 0)
		}
		return 48213, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(48213), n)
	assert.Equal(t, 2, calls)
}

func TestBackoffDelay_GrowsAndCaps(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		Multiplier:     2.0,
	}.withDefaults()
	cfg.JitterFraction = 0

	assert.Equal(t, 100*time.Millisecond, backoffDelay(1, cfg))
	assert.Equal(t, 200*time.Millisecond, backoffDelay(2, cfg))
	assert.Equal(t, 400*time.Millisecond, backoffDelay(3, cfg))
	assert.Equal(t, time.Second, backoffDelay(10, cfg))
}

func TestBackoffDelay_JitterStaysInBounds(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}.withDefaults()

	for range 100 {
		d := backoffDelay(1, cfg)
		assert.GreaterOrEqual(t, d, 75*time.Millisecond)
		assert.LessOrEqual(t, d, 125*time.Millisecond)
	}
}
