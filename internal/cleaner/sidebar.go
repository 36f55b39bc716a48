package cleaner

import (
	"regexp"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/mosdata/listings-cli/internal/model"
)

// ErrUnknownEnumValue reports source vocabulary outside the known mapping.
// The pipeline refuses to guess translations rather than emit wrong
// semantics, so this aborts the run.
var ErrUnknownEnumValue = eris.New("cleaner: unknown source vocabulary value")

// Sidebar titles as they appear on the source offer pages.
const (
	sidebarSaleTerms  = "Условия сделки"
	sidebarMortgage   = "Ипотека"
	sidebarBargaining = "Торг"
	sidebarRentTerm   = "Срок аренды"
	sidebarOccupancy  = "Условия проживания"
)

// parseRentTerm translates the rental-term sidebar value. Empty input stays
// empty (the sidebar simply lacked the row).
func parseRentTerm(s string) (string, error) {
	switch s {
	case "":
		return "", nil
	case "от года":
		return "1 year and more", nil
	case "несколько месяцев":
		return "less than 1 year", nil
	}
	return "", eris.Wrapf(ErrUnknownEnumValue, "rent term %q", s)
}

// parseOccupancy translates the occupancy-conditions sidebar value.
func parseOccupancy(s string) (string, error) {
	switch s {
	case "":
		return "", nil
	case "можно с детьми":
		return "kids", nil
	case "можно с животными":
		return "animals", nil
	case "можно с детьми и животными":
		return "kids and animals", nil
	}
	return "", eris.Wrapf(ErrUnknownEnumValue, "occupancy %q", s)
}

// priceRangePattern matches the source's estimated price range, e.g.
// "55,3—60,1 млн ₽" (the separators around the unit are non-breaking spaces).
var priceRangePattern = regexp.MustCompile(`^(\d+),(\d+)—(\d+),(\d+)\x{00a0}(\S+)\x{00a0}(.+)$`)

// parsePriceRange decodes the estimated price range string into absolute
// bounds. Unknown multipliers or currencies are fatal.
func parsePriceRange(s string) (left, right float64, err error) {
	if s == "" {
		return 0, 0, nil
	}
	m := priceRangePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, eris.Wrapf(ErrUnknownEnumValue, "price range %q", s)
	}

	left, _ = strconv.ParseFloat(m[1]+"."+m[2], 64)
	right, _ = strconv.ParseFloat(m[3]+"."+m[4], 64)

	var multiplier float64
	switch m[5] {
	case "млн":
		multiplier = 1_000_000
	default:
		return 0, 0, eris.Wrapf(ErrUnknownEnumValue, "price range multiplier %q", m[5])
	}

	if m[6] != "₽" {
		return 0, 0, eris.Wrapf(ErrUnknownEnumValue, "price range currency %q", m[6])
	}

	return left * multiplier, right * multiplier, nil
}

// sidebarBool reads a yes-marker sidebar value ("возможна"/"возможен").
func sidebarBool(s string) bool {
	return s == "возможна" || s == "возможен"
}

// sidebarSaleTermsValue returns the sale-terms sidebar value for a listing.
func sidebarSaleTermsValue(l *model.Listing) string {
	return l.SidebarValue(sidebarSaleTerms)
}
