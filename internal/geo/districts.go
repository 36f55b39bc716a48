package geo

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	"github.com/mosdata/listings-cli/internal/db"
	"github.com/mosdata/listings-cli/internal/fetcher"
)

// District is one administrative district polygon from the reference
// shapefile. AOCode is the leading digit of the area code, which groups
// districts into administrative okrugs.
type District struct {
	Name   string
	Code   string
	AOCode int
	EWKB   []byte
}

// LoadDistricts reads the districts shapefile and encodes every polygon as
// EWKB with SRID 4326. Attribute fields NAME and CODE are matched
// case-insensitively. A .zip path is extracted to a temp dir first; the
// reference data is distributed as a zipped shapefile set.
func LoadDistricts(path string) ([]District, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		shpPath, cleanup, err := extractShapefile(path)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		path = shpPath
	}

	r, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open shapefile %s", path)
	}
	defer r.Close() //nolint:errcheck

	nameIdx, codeIdx := -1, -1
	for i, f := range r.Fields() {
		switch strings.ToUpper(strings.TrimRight(f.String(), "\x00")) {
		case "NAME":
			nameIdx = i
		case "CODE":
			codeIdx = i
		}
	}
	if nameIdx < 0 || codeIdx < 0 {
		return nil, eris.New("geo: shapefile missing NAME or CODE attribute")
	}

	var districts []District
	for r.Next() {
		n, shape := r.Shape()

		data, err := encodePolygonEWKB(shape)
		if err != nil {
			return nil, eris.Wrapf(err, "geo: shape %d", n)
		}
		if data == nil {
			zap.L().Debug("geo: skipping non-polygon shape", zap.Int("shape", n))
			continue
		}

		code := strings.TrimSpace(strings.TrimRight(r.Attribute(codeIdx), "\x00"))
		name := strings.TrimSpace(strings.TrimRight(r.Attribute(nameIdx), "\x00"))
		districts = append(districts, District{
			Name:   name,
			Code:   code,
			AOCode: aoCode(code),
			EWKB:   data,
		})
	}
	if err := r.Err(); err != nil {
		return nil, eris.Wrap(err, "geo: read shapefile")
	}
	return districts, nil
}

// extractShapefile unpacks a zipped shapefile set and returns the path of
// the contained .shp file.
func extractShapefile(zipPath string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "districts-shp-")
	if err != nil {
		return "", nil, eris.Wrap(err, "geo: create extract dir")
	}
	cleanup := func() { os.RemoveAll(dir) }

	files, err := fetcher.ExtractZIP(zipPath, dir)
	if err != nil {
		cleanup()
		return "", nil, eris.Wrapf(err, "geo: extract %s", zipPath)
	}
	for _, f := range files {
		if strings.EqualFold(filepath.Ext(f), ".shp") {
			return f, cleanup, nil
		}
	}
	cleanup()
	return "", nil, eris.Errorf("geo: no .shp file in %s", zipPath)
}

// aoCode derives the okrug code from the leading digit of the district code.
func aoCode(code string) int {
	if code == "" {
		return 0
	}
	n, err := strconv.Atoi(code[:1])
	if err != nil {
		return 0
	}
	return n
}

// encodePolygonEWKB converts a shapefile polygon to EWKB bytes with SRID
// 4326. Non-polygon shapes yield nil, nil.
func encodePolygonEWKB(shape shp.Shape) ([]byte, error) {
	p, ok := shape.(*shp.Polygon)
	if !ok || p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil, nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("geo: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("geo: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil, nil
	}

	data, err := ewkb.Marshal(mp, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "encode EWKB")
	}
	return data, nil
}

var districtColumns = []string{"name", "code", "ao_code", "boundary"}

// InsertDistricts replaces the district reference table.
func InsertDistricts(ctx context.Context, pool db.Pool, districts []District) error {
	if _, err := pool.Exec(ctx, `TRUNCATE listings.districts`); err != nil {
		return eris.Wrap(err, "geo: truncate districts")
	}

	rows := make([][]any, 0, len(districts))
	for _, d := range districts {
		rows = append(rows, []any{d.Name, d.Code, d.AOCode, d.EWKB})
	}

	_, err := db.CopyInto(ctx, pool, "listings.districts", districtColumns, rows)
	return eris.Wrap(err, "geo: insert districts")
}
