package fetcher

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ReadXLSX reads the first sheet of a workbook as string rows, header row
// included. Manual listing corrections arrive as hand-edited spreadsheets,
// so every cell is taken at its displayed string value and parsed by the
// importer.
func ReadXLSX(path string) ([][]string, error) {
	wb, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open xlsx %s", path)
	}
	if len(wb.Sheets) == 0 {
		return nil, eris.Errorf("fetcher: xlsx %s has no sheets", path)
	}

	sheet := wb.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
