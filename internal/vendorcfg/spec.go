// Package vendorcfg loads the per-vendor mapping specifications that declare
// how each eligibility extract maps into the canonical staging schema. Specs
// are loaded and validated once at run start and treated as read-only for
// the duration of a run.
package vendorcfg

import (
	"fmt"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"example.com/eligibility/internal/source"
)

// Derivation declares one structural derivation combining several source
// fields into a single canonical field. Currently the only recognized kind
// is join_ymd_to_string, which builds a zero-padded YYYY-MM-DD string from
// three source fields without validating it as a date.
type Derivation struct {
	Type  string `yaml:"type"`
	Year  string `yaml:"year,omitempty"`
	Month string `yaml:"month,omitempty"`
	Day   string `yaml:"day,omitempty"`
}

// Spec declares how one vendor's extract maps into the canonical schema.
//
// Mapping values are source paths: plain column names for flat formats, or
// dotted JSON paths for jsonl extracts. NullLiterals lists the raw string
// values the vendor uses to mean "no value"; an absent source field is
// always the canonical null regardless of this list.
type Spec struct {
	SourceVendor string                `yaml:"source_vendor"`
	File         string                `yaml:"file"`
	Format       string                `yaml:"format"`
	Delimiter    string                `yaml:"delimiter,omitempty"`
	Sheet        string                `yaml:"sheet,omitempty"`
	Constants    map[string]string     `yaml:"constants,omitempty"`
	Mapping      map[string]string     `yaml:"mapping,omitempty"`
	Nulls        []string              `yaml:"nulls,omitempty"`
	NullLiterals []string              `yaml:"null_literals,omitempty"`
	Derivations  map[string]Derivation `yaml:"derivations,omitempty"`
	ExtraPayload []string              `yaml:"extra_payload,omitempty"`
}

// Load reads and structurally validates one vendor spec file. Semantic
// validation against the canonical schema happens when the mapper for the
// spec is built.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vendor spec: %w", err)
	}
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse vendor spec %s: %w", path, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("vendor spec %s: %w", path, err)
	}
	return &spec, nil
}

// Validate checks the structural shape of the spec: identity fields,
// format, and format-specific options.
func (s *Spec) Validate() error {
	if s.SourceVendor == "" {
		return fmt.Errorf("source_vendor cannot be empty")
	}
	if s.File == "" {
		return fmt.Errorf("file cannot be empty")
	}
	switch s.Format {
	case source.FormatCSV, source.FormatPipe, source.FormatJSONL:
	case source.FormatXLSX:
		if s.Sheet == "" {
			return fmt.Errorf("format xlsx requires a sheet name")
		}
	default:
		return fmt.Errorf("unsupported format %q", s.Format)
	}
	if s.Delimiter != "" && utf8.RuneCountInString(s.Delimiter) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", s.Delimiter)
	}
	return nil
}

// ReaderOptions translates the spec's format fields for the source readers.
func (s *Spec) ReaderOptions() source.Options {
	opts := source.Options{Format: s.Format, Sheet: s.Sheet}
	if s.Delimiter != "" {
		r, _ := utf8.DecodeRuneInString(s.Delimiter)
		opts.Delimiter = r
	}
	return opts
}
