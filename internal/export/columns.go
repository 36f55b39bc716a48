// Package export emits the clean table in a fixed, versioned column order.
// Downstream consumers index by position and by name: adding, removing, or
// reordering a column is a breaking change and bumps ColumnsVersion.
package export

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mosdata/listings-cli/internal/model"
)

// ColumnsVersion identifies the column-order contract below.
const ColumnsVersion = 1

// Columns is the output column order. Do not reorder.
var Columns = []string{
	"ad_deal_type", "property_id", "url", "ad_is_closed",
	"price_history", "price_first", "price_last", "range_left_bound", "range_right_bound",

	"creation_date", "edit_date", "offer_page_load_dttm",
	"first_creation_date", "last_creation_date", "distinct_url_count", "entries_count",

	"lat", "lng", "floor_number", "rooms_count",

	"currency", "sale_terms", "rent_term", "occupancy",
	"mortgage_allowed", "bargain_allowed", "photos_num",

	"title", "description",
}

const timeLayout = "2006-01-02 15:04:05"

// rowValues stringifies one clean row in the Columns order.
func rowValues(r *model.PropertyRow) []string {
	return []string{
		string(r.DealType),
		r.PropertyID,
		r.URL,
		strconv.FormatBool(r.IsClosed),

		encodeHistory(r.History),
		formatPrice(r.PriceFirst),
		formatPrice(r.PriceLast),
		formatOptFloat(r.RangeLeftBound),
		formatOptFloat(r.RangeRightBound),

		formatTime(r.CreationDate),
		formatOptTime(r.EditDate),
		formatTime(r.ScrapeLoadedAt),
		formatTime(r.FirstCreationDate),
		formatTime(r.LastCreationDate),
		strconv.Itoa(r.DistinctURLCount),
		strconv.Itoa(r.EntriesCount),

		formatFloat(r.Lat),
		formatFloat(r.Lng),
		formatOptInt(r.FloorNumber),
		formatOptInt(r.RoomsCount),

		r.Currency,
		r.SaleTerms,
		r.RentTerm,
		r.Occupancy,
		strconv.FormatBool(r.MortgageAllowed),
		strconv.FormatBool(r.BargainAllowed),
		strconv.Itoa(r.PhotosNum),

		r.Title,
		r.Description,
	}
}

// encodeHistory serializes a merged history as a textual list of
// (timestamp, price) pairs. This encoding exists only at the export
// boundary; internally the history is structured.
func encodeHistory(events []model.PriceEvent) string {
	if len(events) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range events {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("('")
		b.WriteString(e.At.UTC().Format(timeLayout))
		b.WriteString("', ")
		b.WriteString(formatPrice(e.Price))
		b.WriteByte(')')
	}
	b.WriteByte(']')
	return b.String()
}

// formatPrice renders a price with an explicit decimal point; NaN (a
// synthesized event with no known price) renders empty.
func formatPrice(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatPrice(*v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func formatOptTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func formatOptInt(v model.OptInt) string {
	if !v.Valid {
		return ""
	}
	return strconv.Itoa(v.Value)
}
