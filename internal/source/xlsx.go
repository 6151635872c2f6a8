package source

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// xlsxReader streams rows from one worksheet. The first populated row is the
// header. Rows with no populated cells are skipped and do not consume a row
// ordinal; short rows are padded to the header width with empty cells and
// cells beyond the header are dropped.
type xlsxReader struct {
	f      *excelize.File
	rows   *excelize.Rows
	header []string
	index  map[string]int
	row    int
}

func openXLSX(path, sheet string) (Reader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	rows, err := f.Rows(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open sheet %q of %s: %w", sheet, path, err)
	}

	r := &xlsxReader{f: f, rows: rows}
	header, err := r.nextCells()
	if err == io.EOF {
		return r, nil
	}
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	r.header = header
	r.index = make(map[string]int, len(header))
	for i, col := range header {
		r.index[col] = i
	}
	return r, nil
}

// nextCells advances to the next populated row of the sheet.
func (r *xlsxReader) nextCells() ([]string, error) {
	for r.rows.Next() {
		cells, err := r.rows.Columns()
		if err != nil {
			return nil, err
		}
		for _, c := range cells {
			if c != "" {
				return cells, nil
			}
		}
	}
	if err := r.rows.Error(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (r *xlsxReader) Next() (Record, int, error) {
	if r.header == nil {
		return nil, 0, io.EOF
	}
	cells, err := r.nextCells()
	if err == io.EOF {
		return nil, 0, io.EOF
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read worksheet row: %w", err)
	}
	values := make([]string, len(r.header))
	copy(values, cells)
	r.row++
	return &RowRecord{header: r.header, index: r.index, values: values}, r.row, nil
}

func (r *xlsxReader) Close() error {
	r.rows.Close()
	return r.f.Close()
}
