package main

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mosdata/listings-cli/internal/export"
)

var (
	exportDealType string
	exportAll      bool
	exportFormat   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Emit the clean table",
	Long: `Writes the clean table for one or all deal types in the fixed column order.
One output file per deal type, named after it, under the configured output
directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if exportFormat != "csv" && exportFormat != "xlsx" {
			return eris.Errorf("unknown export format %q", exportFormat)
		}

		dealTypes, err := resolveDealTypes(exportDealType, exportAll)
		if err != nil {
			return err
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		for _, dt := range dealTypes {
			rows, err := st.ListClean(ctx, dt)
			if err != nil {
				return eris.Wrapf(err, "list clean rows for %s", dt)
			}

			path := filepath.Join(cfg.Export.OutputDir, string(dt)+"."+exportFormat)
			switch exportFormat {
			case "csv":
				err = export.WriteCSVFile(path, rows)
			case "xlsx":
				err = export.WriteXLSXFile(path, string(dt), rows)
			}
			if err != nil {
				return eris.Wrapf(err, "export %s", dt)
			}

			zap.L().Info("clean table exported",
				zap.String("deal_type", string(dt)),
				zap.String("path", path),
				zap.Int("rows", len(rows)),
			)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDealType, "deal-type", "", "deal type to export")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "export all deal types")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format (csv or xlsx)")
	rootCmd.AddCommand(exportCmd)
}
