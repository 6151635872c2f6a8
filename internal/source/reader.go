package source

import (
	"fmt"
)

// Options selects the reader implementation for one vendor extract.
type Options struct {
	Format    string // one of the Format* constants
	Delimiter rune   // delimited formats only; defaults to ',' for csv, '|' for pipe_delimited
	Sheet     string // xlsx only, required for that format
}

// Reader streams records from a single extract file. Implementations assign
// the 1-based row ordinal; exactly one reader owns a file at a time so
// ordinals are strictly increasing and never interleaved.
type Reader interface {
	// Next returns the next record with its row ordinal. io.EOF signals a
	// clean end of input; any other error means the file cannot be read
	// further.
	Next() (Record, int, error)
	Close() error
}

// Open returns a Reader for the extract at path.
func Open(path string, opts Options) (Reader, error) {
	switch opts.Format {
	case FormatCSV:
		comma := opts.Delimiter
		if comma == 0 {
			comma = ','
		}
		return openDelimited(path, comma)
	case FormatPipe:
		comma := opts.Delimiter
		if comma == 0 {
			comma = '|'
		}
		return openDelimited(path, comma)
	case FormatXLSX:
		if opts.Sheet == "" {
			return nil, fmt.Errorf("xlsx input %s: sheet name required", path)
		}
		return openXLSX(path, opts.Sheet)
	case FormatJSONL:
		return openJSONL(path)
	default:
		return nil, fmt.Errorf("unsupported source format %q", opts.Format)
	}
}
