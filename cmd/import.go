package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mosdata/listings-cli/internal/fetcher"
	"github.com/mosdata/listings-cli/internal/model"
	"github.com/mosdata/listings-cli/internal/store"
)

var (
	importFile     string
	importDealType string
)

const importBatchSize = 1000

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a scraped dump into the raw record store",
	Long: `Loads scraper output into the raw record store. JSON dumps are streamed as
an array of records; XLSX dumps are mapped by header row. The deal type flag
is stamped onto every record, matching the per-deal-type dump layout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dt, ok := model.ParseDealType(importDealType)
		if !ok {
			return eris.Errorf("unknown deal type %q", importDealType)
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		var total int
		switch strings.ToLower(filepath.Ext(importFile)) {
		case ".json":
			total, err = importJSON(ctx, st, importFile, dt)
		case ".xlsx":
			total, err = importXLSX(ctx, st, importFile, dt)
		default:
			return eris.Errorf("unsupported dump format %q", filepath.Ext(importFile))
		}
		if err != nil {
			return err
		}

		zap.L().Info("dump imported",
			zap.String("file", importFile),
			zap.String("deal_type", string(dt)),
			zap.Int("records", total),
		)
		return nil
	},
}

func importJSON(ctx context.Context, st store.Store, path string, dt model.DealType) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, eris.Wrap(err, "open dump file")
	}
	defer f.Close()

	recordCh, errCh := fetcher.StreamJSONArray[model.Listing](ctx, f)

	var batch []model.Listing
	var total int
	for rec := range recordCh {
		rec.DealType = dt
		batch = append(batch, rec)
		if len(batch) >= importBatchSize {
			if err := st.InsertListings(ctx, batch); err != nil {
				return total, eris.Wrap(err, "insert records")
			}
			total += len(batch)
			batch = batch[:0]
		}
	}
	if err := <-errCh; err != nil {
		return total, eris.Wrap(err, "decode dump file")
	}
	if len(batch) > 0 {
		if err := st.InsertListings(ctx, batch); err != nil {
			return total, eris.Wrap(err, "insert records")
		}
		total += len(batch)
	}
	return total, nil
}

func importXLSX(ctx context.Context, st store.Store, path string, dt model.DealType) (int, error) {
	rows, err := fetcher.ReadXLSX(path)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	header := rows[0]
	var batch []model.Listing
	var total int
	for _, row := range rows[1:] {
		rec, err := listingFromCells(header, row)
		if err != nil {
			return total, err
		}
		rec.DealType = dt
		batch = append(batch, rec)
		if len(batch) >= importBatchSize {
			if err := st.InsertListings(ctx, batch); err != nil {
				return total, eris.Wrap(err, "insert records")
			}
			total += len(batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := st.InsertListings(ctx, batch); err != nil {
			return total, eris.Wrap(err, "insert records")
		}
		total += len(batch)
	}
	return total, nil
}

// XLSX cells are untyped strings; these column sets restore the types the
// record schema expects before decoding.
var (
	xlsxNumericColumns = map[string]bool{
		"lat": true, "lng": true, "price_total": true,
		"floor_number": true, "rooms_count": true,
	}
	xlsxBoolColumns = map[string]bool{
		"ad_is_closed": true, "is_emergency": true, "is_illegal_construction": true,
		"mortgage_allowed": true, "bargain_allowed": true,
	}
)

// listingFromCells maps one XLSX row onto a record via its JSON schema.
func listingFromCells(header, cells []string) (model.Listing, error) {
	doc := make(map[string]any, len(header))
	for i, col := range header {
		if i >= len(cells) {
			break
		}
		cell := strings.TrimSpace(cells[i])
		if cell == "" {
			continue
		}
		switch {
		case xlsxNumericColumns[col]:
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return model.Listing{}, eris.Wrapf(err, "parse numeric column %s", col)
			}
			doc[col] = v
		case xlsxBoolColumns[col]:
			v, err := strconv.ParseBool(cell)
			if err != nil {
				return model.Listing{}, eris.Wrapf(err, "parse bool column %s", col)
			}
			doc[col] = v
		case len(cell) > 0 && (cell[0] == '[' || cell[0] == '{') && json.Valid([]byte(cell)):
			doc[col] = json.RawMessage(cell)
		default:
			doc[col] = cell
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return model.Listing{}, eris.Wrap(err, "encode xlsx row")
	}
	var rec model.Listing
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.Listing{}, eris.Wrap(err, "decode xlsx row")
	}
	return rec, nil
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "dump file to import (.json or .xlsx)")
	importCmd.Flags().StringVar(&importDealType, "deal-type", "", "deal type of the dump (required)")
	_ = importCmd.MarkFlagRequired("file")
	_ = importCmd.MarkFlagRequired("deal-type")
	rootCmd.AddCommand(importCmd)
}
