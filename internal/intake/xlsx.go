package intake

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadscore/internal/model"
)

// ReadXLSX decodes one sheet of an XLSX upload. The sheet's first row is the
// header.
func ReadXLSX(ctx context.Context, r io.Reader, opts Options) (model.Dataset, error) {
	data, err := readAll(r, opts.MaxBytes)
	if err != nil {
		return model.Dataset{}, err
	}

	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return model.Dataset{}, eris.Wrap(err, "xlsx: open workbook")
	}

	if opts.Sheet < 0 || opts.Sheet >= len(f.Sheets) {
		return model.Dataset{}, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.Sheet, len(f.Sheets))
	}
	sheet := f.Sheets[opts.Sheet]

	var header []string
	var rows [][]string
	for i, row := range sheet.Rows {
		if ctx.Err() != nil {
			return model.Dataset{}, eris.Wrap(ctx.Err(), "xlsx: context cancelled")
		}
		cells := rowToStrings(row)
		if i == 0 {
			header = cells
			continue
		}
		rows = append(rows, cells)
	}
	if len(header) == 0 {
		return model.Dataset{}, eris.Wrap(model.ErrEmptyDataset, "xlsx: sheet has no header row")
	}
	return tabulate(header, rows, opts.MaxRows)
}

func rowToStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
