package export

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/mosdata/listings-cli/internal/model"
)

// WriteXLSXFile writes the clean rows to an XLSX workbook at path with a
// single sheet named after the deal type.
func WriteXLSXFile(path, sheetName string, rows []model.PropertyRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "export: create output dir")
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "export: add xlsx sheet")
	}

	header := sheet.AddRow()
	for _, col := range Columns {
		header.AddCell().SetString(col)
	}
	for i := range rows {
		xr := sheet.AddRow()
		for _, v := range rowValues(&rows[i]) {
			xr.AddCell().SetString(v)
		}
	}

	return eris.Wrap(f.Save(path), "export: save xlsx file")
}
