// Package cleaner drives identity resolution and history merging across a
// full batch of scraped listing records, producing one clean row per resolved
// property. Core classification failures abort the whole run: correctness of
// financial and identity data outweighs availability here.
package cleaner

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mosdata/listings-cli/internal/histparse"
	"github.com/mosdata/listings-cli/internal/identity"
	"github.com/mosdata/listings-cli/internal/merge"
	"github.com/mosdata/listings-cli/internal/model"
)

// Options configures one cleaning run.
type Options struct {
	// BatchPIDs bounds the number of property identities materialized per
	// chunk. Grouping is by identity, so chunk boundaries never split a
	// property's records and have no effect on correctness.
	BatchPIDs int
	// Exclusions is the externally supplied URL blocklist, resolved to
	// property identities after merging.
	Exclusions map[string]struct{}
}

// Report summarizes one cleaning run.
type Report struct {
	Records      int
	Properties   int
	Filtered     int
	Excluded     int
	Collisions   int
	SkippedPairs int
	Synthesized  int
}

const defaultBatchPIDs = 2000

// Clean resolves identities, merges per-property histories, derives summary
// columns, and applies exclusion, collision, and business filters. Input
// order is
// preserved per identity group; merge-append order inside a history is not
// chronological and summary prices are always derived from a time-sorted view.
func Clean(records []model.Listing, opts Options) ([]model.PropertyRow, Report, error) {
	if opts.BatchPIDs <= 0 {
		opts.BatchPIDs = defaultBatchPIDs
	}

	log := zap.L().With(zap.String("component", "cleaner"))
	report := Report{Records: len(records)}

	// Group records by resolved identity, keeping first-appearance order of
	// identities so runs are reproducible for a given input order.
	groups := make(map[string][]*model.Listing, len(records))
	var pids []string
	for i := range records {
		rec := &records[i]
		pid := identity.ForListing(rec)
		if _, ok := groups[pid]; !ok {
			pids = append(pids, pid)
		}
		groups[pid] = append(groups[pid], rec)
	}

	var rows []model.PropertyRow
	for start := 0; start < len(pids); start += opts.BatchPIDs {
		end := min(start+opts.BatchPIDs, len(pids))
		for _, pid := range pids[start:end] {
			row, stats, err := collapseGroup(pid, groups[pid])
			if err != nil {
				return nil, report, err
			}
			report.SkippedPairs += stats.skipped
			report.Synthesized += stats.synthesized
			rows = append(rows, row)
		}
	}
	report.Properties = len(rows)

	// Exclusion, collision, and business filters apply at identity level,
	// post-merge.
	kept := rows[:0:0]
	for i := range rows {
		if isExcluded(&rows[i], opts.Exclusions) {
			report.Excluded++
			continue
		}
		group := groups[rows[i].PropertyID]
		if conflictingTie(group) {
			report.Collisions++
			log.Warn("conflicting records at latest scrape, dropping property",
				zap.String("property_id", rows[i].PropertyID),
				zap.Int("records", len(group)),
			)
			continue
		}
		if !passesBusinessFilters(representative(group)) {
			report.Filtered++
			continue
		}
		kept = append(kept, rows[i])
	}

	log.Info("cleaning run complete",
		zap.Int("records", report.Records),
		zap.Int("properties", report.Properties),
		zap.Int("kept", len(kept)),
		zap.Int("filtered", report.Filtered),
		zap.Int("excluded", report.Excluded),
		zap.Int("collisions", report.Collisions),
		zap.Int("skipped_pairs", report.SkippedPairs),
	)
	return kept, report, nil
}

type groupStats struct {
	skipped     int
	synthesized int
}

// collapseGroup tidies every record in one identity group, merges the
// histories, and builds the output row from the representative record (the
// one with the latest scrape timestamp).
func collapseGroup(pid string, group []*model.Listing) (model.PropertyRow, groupStats, error) {
	var stats groupStats

	mergeInput := make([]merge.Record, 0, len(group))
	for _, rec := range group {
		events, tstats, err := histparse.Tidy(rec.PriceHistoryRaw, rec.PriceTotal, rec.CreationDate)
		if err != nil {
			return model.PropertyRow{}, stats, eris.Wrapf(err, "cleaner: record %s", rec.URL)
		}
		stats.skipped += tstats.Skipped
		if tstats.Synthesized {
			stats.synthesized++
		}
		mergeInput = append(mergeInput, merge.Record{URL: rec.URL, Events: events})
	}

	merged := merge.Merge(mergeInput)
	priceFirst, priceLast, _ := merge.Summarize(merged.Events)

	rep := representative(group)
	row := model.PropertyRow{
		PropertyID:     pid,
		DealType:       rep.DealType,
		URL:            merged.URLs[0],
		IsClosed:       rep.IsClosed,
		History:        merged.Events,
		URLs:           merged.URLs,
		PriceFirst:     priceFirst,
		PriceLast:      priceLast,
		CreationDate:   rep.CreationDate,
		EditDate:       rep.EditDate,
		ScrapeLoadedAt: rep.ScrapeLoadedAt,
		Lat:            rep.Lat,
		Lng:            rep.Lng,
		FloorNumber:    rep.FloorNumber,
		RoomsCount:     rep.RoomsCount,
		SaleTerms:      rep.SaleTerms,
		PhotoURLs:      rep.PhotoURLs,
		PhotosNum:      len(rep.PhotoURLs),
		Title:          rep.Title,
		Description:    rep.Description,
	}

	row.Currency = rep.Currency
	if row.Currency == "" {
		row.Currency = "rur"
	}

	first, last := creationWindow(group)
	row.FirstCreationDate = first
	row.LastCreationDate = last
	row.DistinctURLCount = len(merged.URLs)
	row.EntriesCount = len(group)

	if err := applySidebar(&row, rep); err != nil {
		return model.PropertyRow{}, stats, eris.Wrapf(err, "cleaner: record %s", rep.URL)
	}
	return row, stats, nil
}

// applySidebar parses the source-vocabulary columns of the representative
// record into the row. Unknown vocabulary aborts the run.
func applySidebar(row *model.PropertyRow, rep *model.Listing) error {
	rentTerm, err := parseRentTerm(rep.SidebarValue(sidebarRentTerm))
	if err != nil {
		return err
	}
	row.RentTerm = rentTerm

	occupancy, err := parseOccupancy(rep.SidebarValue(sidebarOccupancy))
	if err != nil {
		return err
	}
	row.Occupancy = occupancy

	if rep.PriceRangeRaw != "" {
		left, right, err := parsePriceRange(rep.PriceRangeRaw)
		if err != nil {
			return err
		}
		row.RangeLeftBound = &left
		row.RangeRightBound = &right
	}

	// Sidebar yes-markers win over the structured flags when present.
	row.MortgageAllowed = boolOr(rep.MortgageAllowed) || sidebarBool(rep.SidebarValue(sidebarMortgage))
	row.BargainAllowed = boolOr(rep.BargainAllowed) || sidebarBool(rep.SidebarValue(sidebarBargaining))
	return nil
}

// representative picks the record with the latest scrape timestamp; ties keep
// the earlier record for stability.
func representative(group []*model.Listing) *model.Listing {
	rep := group[0]
	for _, rec := range group[1:] {
		if rec.ScrapeLoadedAt.After(rep.ScrapeLoadedAt) {
			rep = rec
		}
	}
	return rep
}

// creationWindow returns the earliest and latest creation dates in the group.
func creationWindow(group []*model.Listing) (first, last time.Time) {
	first, last = group[0].CreationDate, group[0].CreationDate
	for _, rec := range group[1:] {
		if rec.CreationDate.Before(first) {
			first = rec.CreationDate
		}
		if rec.CreationDate.After(last) {
			last = rec.CreationDate
		}
	}
	return first, last
}

func isExcluded(row *model.PropertyRow, exclusions map[string]struct{}) bool {
	if len(exclusions) == 0 {
		return false
	}
	for _, u := range row.URLs {
		if _, ok := exclusions[u]; ok {
			return true
		}
	}
	return false
}

func boolOr(b *bool) bool {
	return b != nil && *b
}
