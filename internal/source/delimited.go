package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// delimitedReader streams CSV or pipe-delimited rows. The first line is the
// header; every following line becomes a RowRecord keyed by those columns.
type delimitedReader struct {
	f      *os.File
	cr     *csv.Reader
	header []string
	index  map[string]int
	row    int
}

func openDelimited(path string, comma rune) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open extract: %w", err)
	}
	cr := csv.NewReader(f)
	cr.Comma = comma

	header, err := cr.Read()
	if err == io.EOF {
		// Empty file: no header, no rows.
		return &delimitedReader{f: f, cr: cr}, nil
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[col] = i
	}
	return &delimitedReader{f: f, cr: cr, header: header, index: index}, nil
}

func (r *delimitedReader) Next() (Record, int, error) {
	if r.header == nil {
		return nil, 0, io.EOF
	}
	values, err := r.cr.Read()
	if err == io.EOF {
		return nil, 0, io.EOF
	}
	if err != nil {
		// csv.ParseError already carries the physical line number.
		return nil, 0, fmt.Errorf("read delimited row: %w", err)
	}
	r.row++
	return &RowRecord{header: r.header, index: r.index, values: values}, r.row, nil
}

func (r *delimitedReader) Close() error {
	return r.f.Close()
}
