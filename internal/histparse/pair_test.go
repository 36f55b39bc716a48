package histparse

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sc(text string) scalar        { return scalar{text: text} }
func scq(text string) scalar       { return scalar{text: text, quoted: true} }
func utc(s string) time.Time {
	ts, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		ts, err = time.Parse("2006-01-02", s)
	}
	if err != nil {
		panic(err)
	}
	return ts.UTC()
}

func TestNormalizeTupleCanonical(t *testing.T) {
	ev, kind, err := normalizeTuple([]scalar{scq("2024-01-01T00:00:00"), sc("100")})
	require.NoError(t, err)
	assert.Equal(t, PairCanonical, kind)
	assert.Equal(t, utc("2024-01-01T00:00:00"), ev.At)
	assert.Equal(t, 100.0, ev.Price)
}

func TestNormalizeTupleSwapped(t *testing.T) {
	ev, kind, err := normalizeTuple([]scalar{sc("120.5"), scq("2024-02-01")})
	require.NoError(t, err)
	assert.Equal(t, PairSwapped, kind)
	assert.Equal(t, utc("2024-02-01"), ev.At)
	assert.Equal(t, 120.5, ev.Price)
}

func TestNormalizeTupleIdempotent(t *testing.T) {
	// Normalizing an already-canonical pair returns it unchanged, and the
	// swapped form of the same pair yields the identical event.
	canonical, _, err := normalizeTuple([]scalar{scq("2024-03-05 12:30:00"), sc("95000")})
	require.NoError(t, err)
	swapped, _, err := normalizeTuple([]scalar{sc("95000"), scq("2024-03-05 12:30:00")})
	require.NoError(t, err)
	assert.Equal(t, canonical, swapped)
}

func TestNormalizeTupleAmbiguous(t *testing.T) {
	tests := []struct {
		name string
		a, b scalar
	}{
		{"both timestamps", scq("2024-01-01"), scq("2024-02-01")},
		{"both numbers", sc("100"), sc("200")},
		{"neither", scq("hello"), scq("world")},
		{"timestamp and word", scq("2024-01-01"), scq("soon")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := normalizeTuple([]scalar{tt.a, tt.b})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrAmbiguousPair))
		})
	}
}

func TestNormalizeTupleSkipsOddArity(t *testing.T) {
	for _, elems := range [][]scalar{
		{sc("100")},
		{scq("2024-01-01"), sc("100"), sc("200")},
		nil,
	} {
		_, kind, err := normalizeTuple(elems)
		require.NoError(t, err)
		assert.Equal(t, PairSkipped, kind)
	}
}

func TestParseTimestampRequiresPunctuation(t *testing.T) {
	// "20240101" parses under none of the layouts and fails the punctuation
	// pre-check; plain numbers must never classify as timestamps.
	_, ok := parseTimestamp("20240101")
	assert.False(t, ok)

	_, ok = parseTimestamp("100")
	assert.False(t, ok)

	ts, ok := parseTimestamp("2024-01-01T10:20:30+03:00")
	require.True(t, ok)
	assert.Equal(t, time.UTC, ts.Location())
}
