// Package identity derives stable property identifiers from listing
// attributes, so repeated scrapes of the same physical unit collapse to one
// key regardless of URL changes.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/mosdata/listings-cli/internal/model"
)

// KeyVersion tags the current identity contract. Changing KeyColumns, the
// separator, the sentinel, or the float formatting changes every computed
// identity and requires a versioned migration, never a silent edit.
const KeyVersion = 1

// Separator joins normalized key fields. It never occurs inside a field value.
const Separator = "_"

// KeyColumns is the fixed, ordered set of attributes hashed into property_id.
var KeyColumns = []string{"lat", "lng", "floorNumber", "roomsCount", "ad_deal_type"}

// Key computes the property_id for one listing: the hex sha256 digest of the
// normalized key attributes joined by Separator. Pure and deterministic.
func Key(lat, lng float64, floor, rooms model.OptInt, dealType model.DealType) string {
	fields := []string{
		formatCoord(lat),
		formatCoord(lng),
		floor.SentinelString(),
		rooms.SentinelString(),
		string(dealType),
	}
	sum := sha256.Sum256([]byte(strings.Join(fields, Separator)))
	return hex.EncodeToString(sum[:])
}

// ForListing computes the property_id from a listing's key attributes.
func ForListing(l *model.Listing) string {
	return Key(l.Lat, l.Lng, l.FloorNumber, l.RoomsCount, l.DealType)
}

// formatCoord stringifies a coordinate with shortest round-trip formatting.
// "55.75" stays "55.75", never "55.750000"; the digest depends on it.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
