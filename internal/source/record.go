// Package source reads per-vendor eligibility extracts. Each supported
// format (CSV, pipe-delimited, XLSX, JSON-lines) yields rows behind a single
// Record interface, so the mapping layer never sees format-specific detail.
package source

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Supported extract formats.
const (
	FormatCSV   = "csv"
	FormatPipe  = "pipe_delimited"
	FormatXLSX  = "xlsx"
	FormatJSONL = "jsonl"
)

// Record is one raw row or document read from a vendor extract.
type Record interface {
	// Value returns the raw value at path and whether the path exists in
	// this record. Flat records treat path as a column name; document
	// records resolve dotted paths ("name.first"). A nil value with ok=true
	// is an explicit source null.
	Value(path string) (any, bool)

	// Raw returns the complete original record, used verbatim for the
	// sidecar payload.
	Raw() map[string]any
}

// RowRecord is a flat row keyed by header column, as produced by the
// delimited and spreadsheet readers.
type RowRecord struct {
	header []string
	index  map[string]int
	values []string
}

// NewRowRecord builds a RowRecord from a header and a value slice of the
// same length. Exposed for tests and for callers that synthesize rows.
func NewRowRecord(header, values []string) *RowRecord {
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[col] = i
	}
	return &RowRecord{header: header, index: index, values: values}
}

func (r *RowRecord) Value(path string) (any, bool) {
	i, ok := r.index[path]
	if !ok || i >= len(r.values) {
		return nil, false
	}
	return r.values[i], true
}

func (r *RowRecord) Raw() map[string]any {
	m := make(map[string]any, len(r.header))
	for col, i := range r.index {
		if i < len(r.values) {
			m[col] = r.values[i]
		}
	}
	return m
}

// DocRecord is a nested JSON document from a JSON-lines extract. Value
// resolves dotted paths; a missing or non-object intermediate step reports
// the path as absent.
type DocRecord struct {
	doc map[string]any
}

// NewDocRecord wraps an already-decoded JSON object.
func NewDocRecord(doc map[string]any) *DocRecord {
	return &DocRecord{doc: doc}
}

func (r *DocRecord) Value(path string) (any, bool) {
	if !strings.Contains(path, ".") {
		v, ok := r.doc[path]
		return v, ok
	}
	var cur any = r.doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func (r *DocRecord) Raw() map[string]any {
	return r.doc
}

// AsString renders a raw source value for canonical storage without
// normalizing it. Strings pass through verbatim, numbers keep their source
// literal (the readers decode with json.Number), booleans use their JSON
// form, and composite values render as compact JSON. A nil value stays nil.
func AsString(v any) *string {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return &x
	case json.Number:
		s := x.String()
		return &s
	case bool:
		s := strconv.FormatBool(x)
		return &s
	default:
		b, err := json.Marshal(x)
		if err != nil {
			s := fmt.Sprint(x)
			return &s
		}
		s := string(b)
		return &s
	}
}
