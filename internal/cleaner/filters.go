package cleaner

import (
	"os"
	"reflect"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/mosdata/listings-cli/internal/model"
)

// ExclusionList is the externally supplied set of URLs to exclude. Exclusion
// is resolved to property identities after merging, so dropping one URL drops
// the whole property it belongs to.
type ExclusionList struct {
	URLs []string `yaml:"urls"`
}

// LoadExclusions reads the URL blocklist. A missing file means no exclusions.
func LoadExclusions(path string) (map[string]struct{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, eris.Wrapf(err, "cleaner: read exclusions %s", path)
	}

	var list ExclusionList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, eris.Wrapf(err, "cleaner: parse exclusions %s", path)
	}

	set := make(map[string]struct{}, len(list.URLs))
	for _, u := range list.URLs {
		set[u] = struct{}{}
	}
	return set, nil
}

// passesBusinessFilters applies the identity-level business rules: priced in
// rubles, freely sellable (or a rental deal), and not flagged emergency or
// illegal construction. The representative listing carries the flags.
func passesBusinessFilters(rep *model.Listing) bool {
	currency := rep.Currency
	if currency == "" {
		currency = "rur"
	}
	if currency != "rur" {
		return false
	}

	freeSale := rep.SaleTerms == "free" ||
		sidebarSaleTermsValue(rep) == "свободная продажа" ||
		rep.DealType == model.DealShortRent ||
		rep.DealType == model.DealLongRent
	if !freeSale {
		return false
	}

	return !rep.IsEmergency && !rep.IsIllegalConstruction
}

// conflictingTie reports whether two or more records in the group share the
// latest scrape timestamp but disagree on the data itself. No record is more
// recent than the other, so the property is dropped rather than guessing
// which observation is canonical.
func conflictingTie(group []*model.Listing) bool {
	latest := group[0].ScrapeLoadedAt
	for _, rec := range group[1:] {
		if rec.ScrapeLoadedAt.After(latest) {
			latest = rec.ScrapeLoadedAt
		}
	}

	var first *model.Listing
	for _, rec := range group {
		if !rec.ScrapeLoadedAt.Equal(latest) {
			continue
		}
		if first == nil {
			first = rec
			continue
		}
		if !equivalentRecords(first, rec) {
			return true
		}
	}
	return false
}

// equivalentRecords compares two observations ignoring the URL, which varies
// across re-listings of the same unit, and the raw history, which merges
// across records rather than conflicting.
func equivalentRecords(a, b *model.Listing) bool {
	ac, bc := *a, *b
	ac.URL, bc.URL = "", ""
	ac.PriceHistoryRaw, bc.PriceHistoryRaw = "", ""
	return reflect.DeepEqual(ac, bc)
}
