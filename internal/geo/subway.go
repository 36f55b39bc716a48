package geo

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/mosdata/listings-cli/internal/db"
	"github.com/mosdata/listings-cli/internal/fetcher"
)

// LoadStations reads the station reference CSV. The file is a windows-1251
// export with a header row: station_name;line;lon;lat;station_type.
// MCD rows may carry a packed params field instead of name/line; those are
// unpacked via ParseStationParams.
func LoadStations(ctx context.Context, path string) ([]Station, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open stations csv %s", path)
	}
	defer f.Close() //nolint:errcheck

	decoded := transform.NewReader(f, charmap.Windows1251.NewDecoder())

	rows, err := fetcher.ReadCSV(decoded, fetcher.CSVOptions{
		Delimiter: ';',
		HasHeader: true,
		TrimSpace: true,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "geo: stations csv %s", path)
	}

	stations := make([]Station, 0, len(rows))
	for i, row := range rows {
		st, err := parseStationRow(row)
		if err != nil {
			return nil, eris.Wrapf(err, "geo: stations csv line %d", i+2)
		}
		stations = append(stations, st)
	}
	return stations, nil
}

func parseStationRow(row []string) (Station, error) {
	if len(row) < 5 {
		return Station{}, eris.Errorf("expected 5 columns, got %d", len(row))
	}

	name, lineName := row[0], row[1]
	if name == "" && strings.Contains(lineName, "StationName:") {
		name, lineName = ParseStationParams(lineName)
	}

	lng, err := strconv.ParseFloat(row[2], 64)
	if err != nil {
		return Station{}, eris.Wrapf(err, "bad lon %q", row[2])
	}
	lat, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return Station{}, eris.Wrapf(err, "bad lat %q", row[3])
	}

	typ := row[4]
	if typ != "subway" && typ != "mcd" {
		return Station{}, eris.Errorf("unknown station type %q", typ)
	}

	return Station{Name: name, Line: lineName, Type: typ, Lat: lat, Lng: lng}, nil
}

// ParseStationParams unpacks the MCD packed attribute string of
// "Key:Value" lines into (station name, diameter name). Some exports carry
// a literal backslash-n instead of a newline.
func ParseStationParams(s string) (name, line string) {
	s = strings.ReplaceAll(s, `\n`, "\n")
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '\n' }) {
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "StationName":
			name = strings.TrimSpace(value)
		case "DiameterName":
			line = strings.TrimSpace(value)
		}
	}
	return name, line
}

var stationColumns = []string{"station_name", "line", "lat", "lng", "station_type"}

// InsertStations bulk-loads stations into listings.stations, replacing the
// previous reference set.
func InsertStations(ctx context.Context, pool db.Pool, stations []Station) error {
	if _, err := pool.Exec(ctx, `TRUNCATE listings.stations`); err != nil {
		return eris.Wrap(err, "geo: truncate stations")
	}

	rows := make([][]any, 0, len(stations))
	for _, s := range stations {
		rows = append(rows, []any{s.Name, s.Line, s.Lat, s.Lng, s.Type})
	}

	_, err := db.CopyInto(ctx, pool, "listings.stations", stationColumns, rows)
	return eris.Wrap(err, "geo: insert stations")
}
