package geo

import (
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/mosdata/listings-cli/internal/fetcher"
)

// OSMLabels are the feature classes enriched with nearest-point columns.
// The order is part of the output column contract.
var OSMLabels = []string{"energy", "waste", "industrial_area", "water", "green"}

// OSMPoint is one labeled OpenStreetMap feature, reduced to a representative
// point.
type OSMPoint struct {
	Label string
	Point
}

// NearestPlace is the closest point of one OSM label to a coordinate.
type NearestPlace struct {
	Lat            float64
	Lng            float64
	DistanceMeters float64
}

// LoadOSMPoints reads the OSM feature reference CSV, a comma-separated
// export with a header row: label,lat,lon. Labels outside OSMLabels are kept;
// they simply never reach an output column.
func LoadOSMPoints(path string) ([]OSMPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open osm csv %s", path)
	}
	defer f.Close() //nolint:errcheck

	rows, err := fetcher.ReadCSV(f, fetcher.CSVOptions{HasHeader: true, TrimSpace: true})
	if err != nil {
		return nil, eris.Wrapf(err, "geo: osm csv %s", path)
	}

	points := make([]OSMPoint, 0, len(rows))
	for i, row := range rows {
		if len(row) < 3 {
			return nil, eris.Errorf("geo: osm csv line %d: expected 3 columns, got %d", i+2, len(row))
		}
		lat, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "geo: osm csv line %d: bad lat %q", i+2, row[1])
		}
		lng, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "geo: osm csv line %d: bad lon %q", i+2, row[2])
		}
		points = append(points, OSMPoint{Label: row[0], Point: Point{Lat: lat, Lng: lng}})
	}
	return points, nil
}

// NearestOSM returns, per label with at least one point, the closest point
// to p. Labels without points are absent from the result.
func NearestOSM(p Point, points []OSMPoint) map[string]NearestPlace {
	out := make(map[string]NearestPlace)
	for _, q := range points {
		d := Haversine(p, q.Point)
		best, ok := out[q.Label]
		if !ok || d < best.DistanceMeters {
			out[q.Label] = NearestPlace{Lat: q.Lat, Lng: q.Lng, DistanceMeters: d}
		}
	}
	return out
}
