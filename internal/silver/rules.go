// Package silver is the downstream normalization stage. It reads one run's
// canonical rows from raw_staging, applies global name cleaning,
// vendor-specific date and relationship normalization, and the business
// eligibility rules, and appends the results to silver_members with full
// lineage carried through.
package silver

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Eligibility status values written to silver_members.
const (
	StatusEligible = "ELIGIBLE"
	StatusRejected = "REJECTED"
)

// RelationshipOther is the fallback for relationship codes no vendor
// mapping covers.
const RelationshipOther = "OTHER"

// EligibilityRules are the business filters applied after normalization.
// Zero values disable a rule: MaxAgeYears 0 means no age cap, an empty
// AllowedPlanTypes list allows every plan type.
type EligibilityRules struct {
	MaxAgeYears      int      `yaml:"max_age_years"`
	AllowedPlanTypes []string `yaml:"allowed_plan_types"`
	RequireDOB       bool     `yaml:"require_dob"`
}

// Rules decouples the normalization business rules from the engine. Date
// formats are Go reference layouts, one per vendor; relationship mappings
// translate the vendor's lowercased, trimmed raw codes into canonical
// values.
type Rules struct {
	DateFormats          map[string]string            `yaml:"date_formats"`
	RelationshipMappings map[string]map[string]string `yaml:"relationship_mappings"`
	Eligibility          EligibilityRules             `yaml:"eligibility"`
}

// LoadRules reads the central normalization mapping file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read normalization rules: %w", err)
	}
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse normalization rules %s: %w", path, err)
	}
	return &rules, nil
}

// DateFormat returns the vendor's declared DOB layout, if any.
func (r *Rules) DateFormat(vendor string) (string, bool) {
	layout, ok := r.DateFormats[vendor]
	return layout, ok
}

// RelationshipMapping returns the vendor's relationship code map, if any.
func (r *Rules) RelationshipMapping(vendor string) (map[string]string, bool) {
	m, ok := r.RelationshipMappings[vendor]
	return m, ok
}
