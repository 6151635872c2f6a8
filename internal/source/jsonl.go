package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// jsonlReader streams one JSON object per document from a JSON-lines
// extract. Numbers decode as json.Number so their source literals survive
// into the canonical row and the sidecar payload unchanged. Every top-level
// document must be an object.
type jsonlReader struct {
	f   *os.File
	dec *json.Decoder
	row int
}

func openJSONL(path string) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open extract: %w", err)
	}
	dec := json.NewDecoder(f)
	dec.UseNumber()
	return &jsonlReader{f: f, dec: dec}, nil
}

func (r *jsonlReader) Next() (Record, int, error) {
	var doc map[string]any
	if err := r.dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, io.EOF
		}
		return nil, 0, fmt.Errorf("decode json document %d: %w", r.row+1, err)
	}
	r.row++
	return &DocRecord{doc: doc}, r.row, nil
}

func (r *jsonlReader) Close() error {
	return r.f.Close()
}
