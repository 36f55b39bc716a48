// Package geo computes geospatial enrichment for clean listing rows:
// distance to the city center, nearest station features, and neighbor
// counts within fixed radius thresholds.
package geo

import (
	"math"

	"github.com/mosdata/listings-cli/internal/model"
)

const earthRadiusMeters = 6_371_000.0

// Thresholds are the radius buckets for neighbor counts, in meters.
// The labels are part of the output column contract.
var Thresholds = []struct {
	Meters float64
	Label  string
}{
	{0, "0m"},
	{100, "100m"},
	{500, "500m"},
	{1000, "1km"},
	{5000, "5km"},
}

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lng float64
}

// Station is a subway or MCD station reference row.
type Station struct {
	Name string
	Line string
	Type string // "subway" or "mcd"
	Lat  float64
	Lng  float64
}

// NearestStation describes the closest station to a property.
type NearestStation struct {
	Name           string
	Line           string
	Lat            float64
	Lng            float64
	DistanceMeters float64
}

// Features is the enrichment row for one unique coordinate.
type Features struct {
	Point
	DistanceToCenterMeters float64
	NearestSubway          NearestStation
	NearestMCD             NearestStation
	SubwayWithin           map[string]int
	MCDWithin              map[string]int
	AdsWithin              map[model.DealType]map[string]int
	// ClosestOSM holds the nearest OSM feature per label; labels with no
	// reference points are absent and emit empty columns.
	ClosestOSM map[string]NearestPlace
}

// FixLatLng repairs swapped coordinates. Scraped records sometimes carry
// (lng, lat); for this city latitude is always the larger of the two.
func FixLatLng(lat, lng float64) (float64, float64) {
	if lat <= lng {
		return lng, lat
	}
	return lat, lng
}

// Haversine returns the great-circle distance between two points in meters.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Asin(math.Sqrt(h))
}

// Nearest returns the closest station by haversine distance. Linear scan;
// the reference sets are a few hundred rows.
func Nearest(p Point, stations []Station) (NearestStation, bool) {
	if len(stations) == 0 {
		return NearestStation{}, false
	}

	best := 0
	bestDist := math.Inf(1)
	for i, st := range stations {
		d := Haversine(p, Point{Lat: st.Lat, Lng: st.Lng})
		if d < bestDist {
			best = i
			bestDist = d
		}
	}

	st := stations[best]
	return NearestStation{
		Name:           st.Name,
		Line:           st.Line,
		Lat:            st.Lat,
		Lng:            st.Lng,
		DistanceMeters: bestDist,
	}, true
}

// CountWithin counts points at distance <= each threshold from p.
func CountWithin(p Point, points []Point) map[string]int {
	counts := make(map[string]int, len(Thresholds))
	for _, t := range Thresholds {
		counts[t.Label] = 0
	}
	for _, q := range points {
		d := Haversine(p, q)
		for _, t := range Thresholds {
			if d <= t.Meters {
				counts[t.Label]++
			}
		}
	}
	return counts
}

// Enricher computes features against fixed reference data.
type Enricher struct {
	Center    Point
	Stations  []Station
	OSMPoints []OSMPoint
}

func (e *Enricher) stationsOfType(typ string) []Station {
	var out []Station
	for _, s := range e.Stations {
		if s.Type == typ {
			out = append(out, s)
		}
	}
	return out
}

// Compute builds the feature row for every unique coordinate among the
// given rows. Ads-within counts are computed per deal type against the
// full row set, mirroring the rest of the pipeline's identity-level view.
func (e *Enricher) Compute(rows []model.PropertyRow) []Features {
	subway := e.stationsOfType("subway")
	mcd := e.stationsOfType("mcd")
	stationPoints := func(st []Station) []Point {
		pts := make([]Point, len(st))
		for i, s := range st {
			pts[i] = Point{Lat: s.Lat, Lng: s.Lng}
		}
		return pts
	}
	subwayPts := stationPoints(subway)
	mcdPts := stationPoints(mcd)

	adsByDeal := make(map[model.DealType][]Point)
	for _, r := range rows {
		lat, lng := FixLatLng(r.Lat, r.Lng)
		adsByDeal[r.DealType] = append(adsByDeal[r.DealType], Point{Lat: lat, Lng: lng})
	}

	seen := make(map[Point]bool)
	var out []Features
	for _, r := range rows {
		lat, lng := FixLatLng(r.Lat, r.Lng)
		p := Point{Lat: lat, Lng: lng}
		if seen[p] {
			continue
		}
		seen[p] = true

		f := Features{
			Point:                  p,
			DistanceToCenterMeters: Haversine(p, e.Center),
			SubwayWithin:           CountWithin(p, subwayPts),
			MCDWithin:              CountWithin(p, mcdPts),
			AdsWithin:              make(map[model.DealType]map[string]int, len(adsByDeal)),
		}
		if ns, ok := Nearest(p, subway); ok {
			f.NearestSubway = ns
		}
		if nm, ok := Nearest(p, mcd); ok {
			f.NearestMCD = nm
		}
		f.ClosestOSM = NearestOSM(p, e.OSMPoints)
		for dt, pts := range adsByDeal {
			f.AdsWithin[dt] = CountWithin(p, pts)
		}
		out = append(out, f)
	}
	return out
}
