// Package merge collapses the tidied histories of all listings sharing one
// property identity into a single deduplicated history.
package merge

import (
	"sort"
	"time"

	"github.com/mosdata/listings-cli/internal/model"
)

// Record is one listing's contribution to a merge: its source URL and its
// tidied (already normalized) price events.
type Record struct {
	URL    string
	Events []model.PriceEvent
}

// Merged is the collapsed history for one property identity.
type Merged struct {
	// Events holds the union of contributed events in first-seen append
	// order. Append order is NOT contractual; callers deriving anything
	// chronological must sort explicitly (see Summarize).
	Events []model.PriceEvent
	// URLs lists the distinct contributing sources in first-seen order.
	URLs []string
}

type eventKey struct {
	at    int64
	price float64
}

// Merge collapses one identity group. URL is the provenance key: a record
// whose URL was already processed is skipped wholesale, which avoids
// re-ingesting identical re-scrapes of the same source. Remaining records
// contribute only events not seen before (equality = exact timestamp+price).
// NaN-priced events never compare equal under map-key semantics, so
// synthesized no-price events from different URLs are all retained.
// All seen-state is local to the call; nothing is shared across identities.
func Merge(group []Record) Merged {
	seenURLs := make(map[string]struct{}, len(group))
	seenEvents := make(map[eventKey]struct{})

	var out Merged
	for _, rec := range group {
		if _, ok := seenURLs[rec.URL]; ok {
			continue
		}
		seenURLs[rec.URL] = struct{}{}
		out.URLs = append(out.URLs, rec.URL)

		for _, ev := range rec.Events {
			k := eventKey{at: ev.At.UnixNano(), price: ev.Price}
			if _, ok := seenEvents[k]; ok {
				continue
			}
			seenEvents[k] = struct{}{}
			out.Events = append(out.Events, ev)
		}
	}
	return out
}

// Summarize derives (priceFirst, priceLast) from a merged history. It always
// re-sorts a copy chronologically rather than trusting merge-append order.
// An empty history returns zeros and ok=false.
func Summarize(events []model.PriceEvent) (priceFirst, priceLast float64, ok bool) {
	if len(events) == 0 {
		return 0, 0, false
	}
	sorted := make([]model.PriceEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].At.Before(sorted[j].At)
	})
	return sorted[0].Price, sorted[len(sorted)-1].Price, true
}

// Chronological returns a copy of events sorted by timestamp ascending,
// preserving input order among equal timestamps.
func Chronological(events []model.PriceEvent) []model.PriceEvent {
	sorted := make([]model.PriceEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].At.Before(sorted[j].At)
	})
	return sorted
}

// Window returns the earliest and latest event timestamps after sorting.
// ok=false for an empty history.
func Window(events []model.PriceEvent) (first, last time.Time, ok bool) {
	if len(events) == 0 {
		return time.Time{}, time.Time{}, false
	}
	sorted := Chronological(events)
	return sorted[0].At, sorted[len(sorted)-1].At, true
}
