package main

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mosdata/listings-cli/internal/model"
	"github.com/mosdata/listings-cli/internal/prices"
)

var (
	pricesDealType string
	pricesInput    string
	pricesOutput   string
)

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Build the daily price panel",
	Long: `Explodes merged price histories into one row per property per calendar day,
carrying the last price change of each day forward until the ad's window closes.
Reads the clean table from the store, or a JSON dump of clean rows via --input.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var rows []model.PropertyRow
		if pricesInput != "" {
			var err error
			rows, err = readCleanRowsJSON(pricesInput)
			if err != nil {
				return err
			}
		} else {
			dt, ok := model.ParseDealType(pricesDealType)
			if !ok {
				return eris.Errorf("unknown deal type %q", pricesDealType)
			}
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			rows, err = st.ListClean(ctx, dt)
			if err != nil {
				return eris.Wrapf(err, "list clean rows for %s", dt)
			}
		}

		panel := prices.BuildPanel(rows, prices.Options{})

		out := pricesOutput
		if out == "" {
			out = filepath.Join(cfg.Export.OutputDir, "prices_daily.csv")
		}
		if err := writePanelCSV(out, panel); err != nil {
			return err
		}

		zap.L().Info("price panel written",
			zap.String("path", out),
			zap.Int("properties", len(rows)),
			zap.Int("rows", len(panel)),
		)
		return nil
	},
}

func readCleanRowsJSON(path string) ([]model.PropertyRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "read clean rows file")
	}
	var rows []model.PropertyRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, eris.Wrap(err, "parse clean rows file")
	}
	return rows, nil
}

func writePanelCSV(path string, panel []prices.DailyPrice) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "create output dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create panel file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"property_id", "date", "price"}); err != nil {
		return eris.Wrap(err, "write panel header")
	}
	for _, p := range panel {
		rec := []string{
			p.PropertyID,
			p.Date.Format("2006-01-02"),
			strconv.FormatFloat(p.Price, 'f', -1, 64),
		}
		if err := w.Write(rec); err != nil {
			return eris.Wrap(err, "write panel row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "flush panel file")
}

func init() {
	pricesCmd.Flags().StringVar(&pricesDealType, "deal-type", "", "deal type to read from the clean table")
	pricesCmd.Flags().StringVar(&pricesInput, "input", "", "JSON file of clean rows (overrides the store)")
	pricesCmd.Flags().StringVar(&pricesOutput, "output", "", "output CSV path (default <export dir>/prices_daily.csv)")
	rootCmd.AddCommand(pricesCmd)
}
