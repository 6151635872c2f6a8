package silver

import (
	"strings"
	"time"
)

// normDateLayout is the unified date form of the silver layer.
const normDateLayout = "2006-01-02"

// CleanName lowercases a raw name and strips everything but ASCII letters
// and digits. A nil or effectively empty input normalizes to nil.
func CleanName(raw *string) *string {
	if raw == nil {
		return nil
	}
	lowered := strings.ToLower(*raw)
	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return nil
	}
	s := b.String()
	return &s
}

// NormalizeDOB parses a raw date-of-birth string using the vendor's
// declared layout and reformats it as YYYY-MM-DD. Raw values that do not
// parse (for example 99/99/9999) normalize to nil rather than failing the
// row.
func NormalizeDOB(raw *string, layout string) *string {
	if raw == nil || layout == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil
	}
	t, err := time.Parse(layout, trimmed)
	if err != nil {
		return nil
	}
	s := t.Format(normDateLayout)
	return &s
}

// NormalizeRelationship maps a vendor's raw relationship code onto the
// canonical vocabulary. Lookup keys are lowercased and trimmed; anything
// the vendor mapping does not cover becomes OTHER.
func NormalizeRelationship(raw *string, mapping map[string]string) string {
	if raw == nil {
		return RelationshipOther
	}
	key := strings.ToLower(strings.TrimSpace(*raw))
	if norm, ok := mapping[key]; ok {
		return norm
	}
	return RelationshipOther
}

// ageYears returns full years elapsed from a YYYY-MM-DD date of birth to
// the reference time.
func ageYears(dob string, at time.Time) (int, bool) {
	t, err := time.Parse(normDateLayout, dob)
	if err != nil {
		return 0, false
	}
	years := at.Year() - t.Year()
	if at.YearDay() < t.YearDay() {
		years--
	}
	return years, true
}
