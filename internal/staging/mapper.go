package staging

import (
	"encoding/json"
	"fmt"

	"example.com/eligibility/internal/source"
	"example.com/eligibility/internal/vendorcfg"
)

// derivationJoinYMD builds a zero-padded YYYY-MM-DD string from three
// source fields. It is the only derivation kind the staging contract
// allows; it performs no date validation or normalization.
const derivationJoinYMD = "join_ymd_to_string"

// Mapper translates one vendor's raw records into canonical content fields
// by applying the vendor's declarative mapping spec. A Mapper performs no
// value normalization of any kind: no trimming, case folding, coercion, or
// categorical remapping. Those belong to the downstream silver stage.
//
// Sections apply in a fixed order with later sections overriding earlier
// ones for the same target: constants, then direct renames, then declared
// nulls, then derivations.
type Mapper struct {
	vendor       string
	spec         *vendorcfg.Spec
	nullLiterals map[string]struct{}
}

// NewMapper compiles and validates one vendor's mapping spec. Every
// MappingConfigError case surfaces here, before any row is processed.
func NewMapper(spec *vendorcfg.Spec) (*Mapper, error) {
	vendor := spec.SourceVendor

	checkTarget := func(section, target string) error {
		if target == FieldExtraPayload {
			return &MappingConfigError{Vendor: vendor, Reason: fmt.Sprintf("%s targets extra_payload; use the extra_payload list instead", section)}
		}
		if !IsContentField(target) {
			return &MappingConfigError{Vendor: vendor, Reason: fmt.Sprintf("%s targets unknown canonical field %q", section, target)}
		}
		return nil
	}

	for target := range spec.Constants {
		if err := checkTarget("constant", target); err != nil {
			return nil, err
		}
	}
	for target, path := range spec.Mapping {
		if err := checkTarget("mapping", target); err != nil {
			return nil, err
		}
		if path == "" {
			return nil, &MappingConfigError{Vendor: vendor, Reason: fmt.Sprintf("mapping for %q has an empty source path", target)}
		}
	}
	for _, target := range spec.Nulls {
		if err := checkTarget("nulls", target); err != nil {
			return nil, err
		}
	}
	for target, d := range spec.Derivations {
		if err := checkTarget("derivation", target); err != nil {
			return nil, err
		}
		if d.Type != derivationJoinYMD {
			return nil, &MappingConfigError{Vendor: vendor, Reason: fmt.Sprintf("unknown derivation kind %q for %q", d.Type, target)}
		}
		if d.Year == "" || d.Month == "" || d.Day == "" {
			return nil, &MappingConfigError{Vendor: vendor, Reason: fmt.Sprintf("derivation for %q must declare year, month, and day source paths", target)}
		}
	}

	// The mandatory fields need a binding that can produce a value; a spec
	// without one would reject every row at runtime, which is a config bug,
	// not a data condition.
	forcedNull := make(map[string]struct{}, len(spec.Nulls))
	for _, target := range spec.Nulls {
		forcedNull[target] = struct{}{}
	}
	for _, name := range MandatoryFields {
		if _, ok := forcedNull[name]; ok {
			return nil, &MappingConfigError{Vendor: vendor, Reason: fmt.Sprintf("mandatory canonical field %q is forced null", name)}
		}
		_, hasConstant := spec.Constants[name]
		_, hasMapping := spec.Mapping[name]
		_, hasDerivation := spec.Derivations[name]
		if !hasConstant && !hasMapping && !hasDerivation {
			return nil, &MappingConfigError{Vendor: vendor, Reason: fmt.Sprintf("mandatory canonical field %q has no binding", name)}
		}
	}

	// Null equivalence is vendor-declared. An absent null_literals key means
	// the common convention (empty string is null); an explicitly empty list
	// declares that every raw string, including "", is a value.
	literals := spec.NullLiterals
	if literals == nil {
		literals = []string{""}
	}
	nullLiterals := make(map[string]struct{}, len(literals))
	for _, lit := range literals {
		nullLiterals[lit] = struct{}{}
	}

	return &Mapper{vendor: vendor, spec: spec, nullLiterals: nullLiterals}, nil
}

// Map produces the canonical content fields for one source record. Fields
// the spec does not bind stay at the canonical null; the full original
// record still reaches the sidecar payload regardless of what is mapped.
func (m *Mapper) Map(rec source.Record) (*ContentFields, error) {
	var out ContentFields

	for target, value := range m.spec.Constants {
		v := value
		out.Set(target, &v)
	}
	for target, path := range m.spec.Mapping {
		out.Set(target, m.valueAt(rec, path))
	}
	for _, target := range m.spec.Nulls {
		out.Set(target, nil)
	}
	for target, d := range m.spec.Derivations {
		out.Set(target, m.deriveJoinYMD(rec, d))
	}

	if len(m.spec.ExtraPayload) > 0 {
		extra := make(map[string]any, len(m.spec.ExtraPayload))
		for _, path := range m.spec.ExtraPayload {
			v, ok := rec.Value(path)
			if !ok {
				v = nil
			}
			extra[path] = v
		}
		b, err := json.Marshal(extra)
		if err != nil {
			return nil, fmt.Errorf("serialize extra payload for vendor %q: %w", m.vendor, err)
		}
		s := string(b)
		out.ExtraPayload = &s
	}

	for _, name := range MandatoryFields {
		if v, _ := out.Get(name); v == nil {
			return nil, &UnmappableRecordError{Vendor: m.vendor, Field: name}
		}
	}
	return &out, nil
}

// valueAt resolves one source path and applies the vendor's null
// equivalence: an absent path, an explicit source null, and a raw value in
// the declared null literal list all map to the canonical null.
func (m *Mapper) valueAt(rec source.Record, path string) *string {
	raw, ok := rec.Value(path)
	if !ok {
		return nil
	}
	v := source.AsString(raw)
	if v == nil {
		return nil
	}
	if _, isNull := m.nullLiterals[*v]; isNull {
		return nil
	}
	return v
}

func (m *Mapper) deriveJoinYMD(rec source.Record, d vendorcfg.Derivation) *string {
	year := m.valueAt(rec, d.Year)
	month := m.valueAt(rec, d.Month)
	day := m.valueAt(rec, d.Day)
	if year == nil || month == nil || day == nil {
		return nil
	}
	s := padLeft(*year, 4) + "-" + padLeft(*month, 2) + "-" + padLeft(*day, 2)
	return &s
}

func padLeft(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}
