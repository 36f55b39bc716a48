// Package fetcher handles the input side of the pipeline: HTTP and FTP
// transfers for photo assets, and the CSV / JSON / XLSX / ZIP readers that
// feed listing dumps and reference geodata into the cleaning run.
package fetcher

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures ReadCSV. The zero value reads comma-separated rows
// with no header.
type CSVOptions struct {
	// Delimiter overrides the field separator; the subway reference export
	// uses ';'. Zero means ','.
	Delimiter rune

	// HasHeader drops the first row before returning.
	HasHeader bool

	// TrimSpace trims surrounding whitespace from every field.
	TrimSpace bool
}

// ReadCSV reads every record from r. Rows may have varying field counts;
// callers validate the shape they need. Reference files are small enough
// that streaming buys nothing here.
func ReadCSV(r io.Reader, opts CSVOptions) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: read csv")
	}
	if opts.HasHeader && len(rows) > 0 {
		rows = rows[1:]
	}
	if opts.TrimSpace {
		for _, row := range rows {
			for i, f := range row {
				row[i] = strings.TrimSpace(f)
			}
		}
	}
	return rows, nil
}
