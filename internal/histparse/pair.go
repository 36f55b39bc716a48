package histparse

import (
	"regexp"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/mosdata/listings-cli/internal/model"
)

// ErrAmbiguousPair reports an entry that cannot be classified as
// (timestamp, price) by either ordering. Never dropped silently: a silently
// dropped price event corrupts the financial history.
var ErrAmbiguousPair = eris.New("histparse: pair cannot be classified as (timestamp, price)")

// PairKind tags the outcome of classifying one raw tuple.
type PairKind int

const (
	// PairCanonical means the tuple was already (timestamp, price).
	PairCanonical PairKind = iota
	// PairSwapped means the tuple arrived as (price, timestamp).
	PairSwapped
	// PairSkipped means the tuple was not a 2-tuple and was left out.
	// Callers should count these instead of masking the data issue.
	PairSkipped
)

// dtPunct is a fast pre-check: strings without date punctuation never go
// through full layout parsing.
var dtPunct = regexp.MustCompile(`[-/:T]`)

// timeLayouts covers the timestamp encodings observed in scraped histories.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
}

func parseTimestamp(s string) (time.Time, bool) {
	if !dtPunct.MatchString(s) {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

// normalizeTuple classifies one decoded tuple. Decision table:
//
//	a timestamp, b numeric → (a, b) kept
//	a numeric, b timestamp → swapped to (b, a)
//	anything else          → ErrAmbiguousPair
//
// Non-2-tuples get PairSkipped so the caller can observe the skip.
func normalizeTuple(t []scalar) (model.PriceEvent, PairKind, error) {
	if len(t) != 2 {
		return model.PriceEvent{}, PairSkipped, nil
	}
	a, b := t[0], t[1]

	aTS, aIsTS := parseTimestamp(a.text)
	aNum, aIsNum := parseNumber(a.text)
	bTS, bIsTS := parseTimestamp(b.text)
	bNum, bIsNum := parseNumber(b.text)

	switch {
	case aIsTS && bIsNum:
		return model.PriceEvent{At: aTS, Price: bNum}, PairCanonical, nil
	case aIsNum && bIsTS:
		return model.PriceEvent{At: bTS, Price: aNum}, PairSwapped, nil
	}
	return model.PriceEvent{}, 0, eris.Wrapf(ErrAmbiguousPair, "entry (%q, %q)", a.text, b.text)
}
