package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mosdata/listings-cli/internal/geo"
	"github.com/mosdata/listings-cli/internal/model"
)

var geoFeaturesOutput string

var geoFeaturesCmd = &cobra.Command{
	Use:   "features",
	Short: "Compute location features for the clean table",
	Long: `Computes, for every unique coordinate in the clean table: distance to the
city center, the nearest subway and MCD stations, station counts within fixed
radius thresholds, per-deal-type counts of other ads within the same
thresholds, and the nearest OSM feature per label (energy, waste, industrial
area, water, green).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		stations, err := geo.LoadStations(ctx, cfg.Geo.SubwayCSVPath)
		if err != nil {
			return eris.Wrap(err, "load stations")
		}

		// The OSM reference set is optional; without it the closest-feature
		// columns stay empty.
		var osmPoints []geo.OSMPoint
		if _, statErr := os.Stat(cfg.Geo.OSMCSVPath); statErr == nil {
			osmPoints, err = geo.LoadOSMPoints(cfg.Geo.OSMCSVPath)
			if err != nil {
				return eris.Wrap(err, "load osm features")
			}
		} else {
			zap.L().Warn("osm reference csv missing, skipping closest-feature columns",
				zap.String("path", cfg.Geo.OSMCSVPath))
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		// Neighbor counts are per deal type, so the full clean table is needed.
		var rows []model.PropertyRow
		for _, dt := range model.AllDealTypes {
			dtRows, err := st.ListClean(ctx, dt)
			if err != nil {
				return eris.Wrapf(err, "list clean rows for %s", dt)
			}
			rows = append(rows, dtRows...)
		}

		enricher := &geo.Enricher{
			Center:    geo.Point{Lat: cfg.Geo.CenterLat, Lng: cfg.Geo.CenterLng},
			Stations:  stations,
			OSMPoints: osmPoints,
		}
		features := enricher.Compute(rows)

		out := geoFeaturesOutput
		if out == "" {
			out = filepath.Join(cfg.Export.OutputDir, "coords_features.csv")
		}
		if err := writeFeaturesCSV(out, features); err != nil {
			return err
		}

		zap.L().Info("features written",
			zap.String("path", out),
			zap.Int("stations", len(stations)),
			zap.Int("rows", len(rows)),
			zap.Int("coordinates", len(features)),
		)
		return nil
	},
}

// featureColumns builds the output header. Threshold labels and deal types
// are fixed, so the column set is stable across runs.
func featureColumns() []string {
	cols := []string{
		"lat", "lng", "dist_to_center",
		"subway_name", "subway_line", "subway_lat", "subway_lng", "subway_dist",
		"mcd_name", "mcd_line", "mcd_lat", "mcd_lng", "mcd_dist",
	}
	for _, t := range geo.Thresholds {
		cols = append(cols, "subway_within_"+t.Label)
	}
	for _, t := range geo.Thresholds {
		cols = append(cols, "mcd_within_"+t.Label)
	}
	for _, dt := range model.AllDealTypes {
		for _, t := range geo.Thresholds {
			cols = append(cols, "ads_"+string(dt)+"_within_"+t.Label)
		}
	}
	for _, label := range geo.OSMLabels {
		cols = append(cols,
			"closest_"+label+"_distance_meters",
			"closest_"+label+"_lat",
			"closest_"+label+"_lng",
		)
	}
	return cols
}

func featureValues(f *geo.Features) []string {
	g := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	vals := []string{
		g(f.Lat), g(f.Lng), g(f.DistanceToCenterMeters),
		f.NearestSubway.Name, f.NearestSubway.Line, g(f.NearestSubway.Lat), g(f.NearestSubway.Lng), g(f.NearestSubway.DistanceMeters),
		f.NearestMCD.Name, f.NearestMCD.Line, g(f.NearestMCD.Lat), g(f.NearestMCD.Lng), g(f.NearestMCD.DistanceMeters),
	}
	for _, t := range geo.Thresholds {
		vals = append(vals, strconv.Itoa(f.SubwayWithin[t.Label]))
	}
	for _, t := range geo.Thresholds {
		vals = append(vals, strconv.Itoa(f.MCDWithin[t.Label]))
	}
	for _, dt := range model.AllDealTypes {
		for _, t := range geo.Thresholds {
			vals = append(vals, strconv.Itoa(f.AdsWithin[dt][t.Label]))
		}
	}
	for _, label := range geo.OSMLabels {
		if place, ok := f.ClosestOSM[label]; ok {
			vals = append(vals, g(place.DistanceMeters), g(place.Lat), g(place.Lng))
		} else {
			vals = append(vals, "", "", "")
		}
	}
	return vals
}

func writeFeaturesCSV(path string, features []geo.Features) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "create output dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create features file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(featureColumns()); err != nil {
		return eris.Wrap(err, "write features header")
	}
	for i := range features {
		if err := w.Write(featureValues(&features[i])); err != nil {
			return eris.Wrap(err, "write features row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "flush features file")
}

func init() {
	geoFeaturesCmd.Flags().StringVar(&geoFeaturesOutput, "output", "", "output CSV path (default <export dir>/coords_features.csv)")
	geoCmd.AddCommand(geoFeaturesCmd)
}
