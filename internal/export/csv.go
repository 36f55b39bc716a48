package export

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/mosdata/listings-cli/internal/model"
)

// WriteCSV streams the clean rows to w with the header row first.
func WriteCSV(w io.Writer, rows []model.PropertyRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for i := range rows {
		if err := cw.Write(rowValues(&rows[i])); err != nil {
			return eris.Wrapf(err, "export: write csv row for %s", rows[i].PropertyID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteCSVFile writes the clean rows to path, creating parent directories.
func WriteCSVFile(path string, rows []model.PropertyRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "export: create output dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create csv file")
	}
	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return eris.Wrap(f.Close(), "export: close csv file")
}
