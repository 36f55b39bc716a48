package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mosdata/listings-cli/internal/geo"
	"github.com/mosdata/listings-cli/internal/store"
)

var geoLoadSubwayCmd = &cobra.Command{
	Use:   "load-subway",
	Short: "Load the subway station reference table",
	Long:  "Parses the windows-1251 station CSV (subway rows plus MCD packed-parameter rows) and replaces the stations table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		stations, err := geo.LoadStations(ctx, cfg.Geo.SubwayCSVPath)
		if err != nil {
			return eris.Wrap(err, "load stations")
		}

		pg, err := openPostgres(cmd)
		if err != nil {
			return err
		}
		defer pg.Close()

		if err := geo.InsertStations(ctx, pg.Pool(), stations); err != nil {
			return eris.Wrap(err, "insert stations")
		}

		zap.L().Info("stations loaded", zap.Int("stations", len(stations)))
		return nil
	},
}

var geoLoadDistrictsCmd = &cobra.Command{
	Use:   "load-districts",
	Short: "Load the district boundary reference table",
	Long:  "Reads district polygons from the boundary shapefile (.shp or zipped shapefile set), encodes them as EWKB, and replaces the districts table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		districts, err := geo.LoadDistricts(cfg.Geo.DistrictsShpPath)
		if err != nil {
			return eris.Wrap(err, "load districts")
		}

		pg, err := openPostgres(cmd)
		if err != nil {
			return err
		}
		defer pg.Close()

		if err := geo.InsertDistricts(ctx, pg.Pool(), districts); err != nil {
			return eris.Wrap(err, "insert districts")
		}

		zap.L().Info("districts loaded", zap.Int("districts", len(districts)))
		return nil
	},
}

// openPostgres opens the store and requires the postgres backend. Reference
// geodata lives in postgres only; the sqlite backend has no use for it.
func openPostgres(cmd *cobra.Command) (*store.PostgresStore, error) {
	st, err := openStore(cmd)
	if err != nil {
		return nil, err
	}
	pg, ok := st.(*store.PostgresStore)
	if !ok {
		st.Close()
		return nil, eris.Errorf("geo reference loading requires the postgres store, got driver %q", cfg.Store.Driver)
	}
	return pg, nil
}

func init() {
	geoCmd.AddCommand(geoLoadSubwayCmd)
	geoCmd.AddCommand(geoLoadDistrictsCmd)
}
