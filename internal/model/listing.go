package model

import (
	"encoding/json"
	"math"
	"time"
)

// DealType is the listing deal category as reported by the source.
type DealType string

const (
	DealSaleSecondary DealType = "sale_secondary"
	DealSalePrimary   DealType = "sale_primary"
	DealLongRent      DealType = "long_rent"
	DealShortRent     DealType = "short_rent"
)

// AllDealTypes lists the deal types processed by a full cleaning run,
// in processing order.
var AllDealTypes = []DealType{DealSaleSecondary, DealShortRent, DealLongRent, DealSalePrimary}

// ParseDealType validates a deal type string.
func ParseDealType(s string) (DealType, bool) {
	switch DealType(s) {
	case DealSaleSecondary, DealSalePrimary, DealLongRent, DealShortRent:
		return DealType(s), true
	}
	return "", false
}

// Listing is one scrape observation of an advertised property. URLs are not
// stable across re-listings of the same physical unit; identity is derived
// from the key attributes instead (see internal/identity).
type Listing struct {
	URL             string    `json:"url"`
	Lat             float64   `json:"lat"`
	Lng             float64   `json:"lng"`
	FloorNumber     OptInt    `json:"floor_number"`
	RoomsCount      OptInt    `json:"rooms_count"`
	DealType        DealType  `json:"ad_deal_type"`
	PriceTotal      *float64  `json:"price_total,omitempty"`
	CreationDate    time.Time `json:"creation_date"`
	EditDate        *time.Time `json:"edit_date,omitempty"`
	PriceHistoryRaw string    `json:"price_history,omitempty"` // source-encoded list of pairs; "" = absent
	ScrapeLoadedAt  time.Time `json:"offer_page_load_dttm"`

	// Passthrough metadata, carried into the clean table unchanged or after
	// vocabulary parsing in the cleaner.
	IsClosed              bool     `json:"ad_is_closed"`
	Currency              string   `json:"currency,omitempty"`
	SaleTerms             string   `json:"sale_terms,omitempty"`
	IsEmergency           bool     `json:"is_emergency"`
	IsIllegalConstruction bool     `json:"is_illegal_construction"`
	PriceRangeRaw         string   `json:"price_range,omitempty"`
	MortgageAllowed       *bool    `json:"mortgage_allowed,omitempty"`
	BargainAllowed        *bool    `json:"bargain_allowed,omitempty"`
	Sidebar               []SidebarEntry `json:"sidebar_info,omitempty"`
	PhotoURLs             []string `json:"photo_url_list,omitempty"`
	Title                 string   `json:"title,omitempty"`
	Description           string   `json:"description,omitempty"`
}

// SidebarEntry is one title/value pair scraped from the offer page sidebar.
type SidebarEntry struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// SidebarValue returns the value for the given sidebar title, or "".
func (l *Listing) SidebarValue(title string) string {
	for _, e := range l.Sidebar {
		if e.Title == title {
			return e.Value
		}
	}
	return ""
}

// PriceEvent is one canonical price-change entry. After normalization the
// timestamp element always comes first. Price is NaN for events synthesized
// from a record with no known price; JSON has no NaN, so it travels as null.
type PriceEvent struct {
	At    time.Time `json:"at"`
	Price float64   `json:"price"`
}

type priceEventJSON struct {
	At    time.Time `json:"at"`
	Price *float64  `json:"price"`
}

func (e PriceEvent) MarshalJSON() ([]byte, error) {
	doc := priceEventJSON{At: e.At}
	if !math.IsNaN(e.Price) {
		doc.Price = &e.Price
	}
	return json.Marshal(doc)
}

func (e *PriceEvent) UnmarshalJSON(data []byte) error {
	var doc priceEventJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	e.At = doc.At
	e.Price = math.NaN()
	if doc.Price != nil {
		e.Price = *doc.Price
	}
	return nil
}

// PropertyRow is one row of the clean table: a resolved property identity with
// its merged price history and derived summary columns. Record-level raw data
// is not persisted past this stage; URLs survive only as provenance.
type PropertyRow struct {
	PropertyID string       `json:"property_id"`
	DealType   DealType     `json:"ad_deal_type"`
	URL        string       `json:"url"` // representative (first seen) URL
	IsClosed   bool         `json:"ad_is_closed"`
	History    []PriceEvent `json:"price_history"`
	URLs       []string     `json:"urls"` // contributing URLs, first-seen order
	PriceFirst float64      `json:"price_first"`
	PriceLast  float64      `json:"price_last"`

	RangeLeftBound  *float64 `json:"range_left_bound,omitempty"`
	RangeRightBound *float64 `json:"range_right_bound,omitempty"`

	CreationDate      time.Time  `json:"creation_date"`
	EditDate          *time.Time `json:"edit_date,omitempty"`
	ScrapeLoadedAt    time.Time  `json:"offer_page_load_dttm"`
	FirstCreationDate time.Time  `json:"first_creation_date"`
	LastCreationDate  time.Time  `json:"last_creation_date"`
	DistinctURLCount  int        `json:"distinct_url_count"`
	EntriesCount      int        `json:"entries_count"`

	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	FloorNumber OptInt  `json:"floor_number"`
	RoomsCount  OptInt  `json:"rooms_count"`

	Currency        string `json:"currency"`
	SaleTerms       string `json:"sale_terms,omitempty"`
	RentTerm        string `json:"rent_term,omitempty"`
	Occupancy       string `json:"occupancy,omitempty"`
	MortgageAllowed bool     `json:"mortgage_allowed"`
	BargainAllowed  bool     `json:"bargain_allowed"`
	PhotoURLs       []string `json:"photo_url_list,omitempty"`
	PhotosNum       int      `json:"photos_num"`
	Title           string `json:"title,omitempty"`
	Description     string `json:"description,omitempty"`
}

// PriceFirst and PriceLast inherit NaN from a fully price-less history and
// round-trip as null, same as PriceEvent.Price.
func (r PropertyRow) MarshalJSON() ([]byte, error) {
	type alias PropertyRow
	doc := struct {
		alias
		PriceFirst *float64 `json:"price_first"`
		PriceLast  *float64 `json:"price_last"`
	}{alias: alias(r)}
	if !math.IsNaN(r.PriceFirst) {
		doc.PriceFirst = &r.PriceFirst
	}
	if !math.IsNaN(r.PriceLast) {
		doc.PriceLast = &r.PriceLast
	}
	return json.Marshal(doc)
}

func (r *PropertyRow) UnmarshalJSON(data []byte) error {
	type alias PropertyRow
	doc := struct {
		*alias
		PriceFirst *float64 `json:"price_first"`
		PriceLast  *float64 `json:"price_last"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	r.PriceFirst = math.NaN()
	if doc.PriceFirst != nil {
		r.PriceFirst = *doc.PriceFirst
	}
	r.PriceLast = math.NaN()
	if doc.PriceLast != nil {
		r.PriceLast = *doc.PriceLast
	}
	return nil
}
