package histparse

import (
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/mosdata/listings-cli/internal/model"
)

// TidyStats counts classification outcomes for one record's payload.
type TidyStats struct {
	Canonical   int
	Swapped     int
	Skipped     int
	Synthesized bool
}

// Tidy parses one record's raw price-history payload into an ordered list of
// canonical events. An absent or empty payload yields a single synthetic
// event built from the listing price and creation time. A bare tuple (payload
// not wrapped in a list) is treated as a one-element history. No dedup
// happens here; that is the merger's job.
func Tidy(raw string, priceTotal *float64, createdAt time.Time) ([]model.PriceEvent, TidyStats, error) {
	raw = strings.TrimSpace(raw)

	if raw == "" || raw == "[]" {
		price := math.NaN()
		if priceTotal != nil {
			price = *priceTotal
		}
		return []model.PriceEvent{{At: createdAt.UTC(), Price: price}},
			TidyStats{Synthesized: true}, nil
	}

	if strings.HasPrefix(raw, "(") {
		raw = "[" + raw + "]"
	}

	tuples, err := decodeTuples(raw)
	if err != nil {
		return nil, TidyStats{}, err
	}

	var (
		events []model.PriceEvent
		stats  TidyStats
	)
	for i, t := range tuples {
		ev, kind, err := normalizeTuple(t)
		if err != nil {
			return nil, TidyStats{}, eris.Wrapf(err, "entry %d", i)
		}
		switch kind {
		case PairCanonical:
			stats.Canonical++
		case PairSwapped:
			stats.Swapped++
		case PairSkipped:
			stats.Skipped++
			continue
		}
		events = append(events, ev)
	}
	return events, stats, nil
}
