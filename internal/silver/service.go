package silver

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"example.com/eligibility/internal/warehouse"
)

// Rejection identifies one row the eligibility rules filtered out, by its
// full lineage key.
type Rejection struct {
	SourceVendor string `json:"source_vendor"`
	SourceFile   string `json:"source_file"`
	SourceRow    int    `json:"source_row"`
	Reason       string `json:"reason"`
}

// Result summarizes one silver stage execution. Rejected rows are still
// written to silver_members with their status and reason, so RowsWritten
// counts them too.
type Result struct {
	LoadRunID    string      `json:"load_run_id"`
	RowsIn       int         `json:"rows_in"`
	RowsWritten  int         `json:"rows_written"`
	RowsRejected int         `json:"rows_rejected"`
	Rejections   []Rejection `json:"rejections,omitempty"`
}

// Service executes the normalization stage against the warehouse.
type Service struct {
	store *warehouse.Store
	rules *Rules
}

// NewService creates the silver stage over a warehouse store and a loaded
// rule set.
func NewService(store *warehouse.Store, rules *Rules) *Service {
	return &Service{store: store, rules: rules}
}

// Run normalizes every canonical row of one run and appends the results to
// silver_members. Re-running for the same run id fails on the primary key,
// matching the append-only contract of the staging tables.
func (s *Service) Run(ctx context.Context, runID string) (*Result, error) {
	rows, err := s.store.RawRowsForRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	result := &Result{LoadRunID: runID, RowsIn: len(rows)}
	if len(rows) == 0 {
		log.Printf("No raw records found for run %s, nothing to normalize", runID)
		return result, nil
	}

	cleanedAt := time.Now().UTC()
	out := make([]*warehouse.SilverMemberRow, 0, len(rows))
	for i := range rows {
		row := s.normalizeRow(&rows[i], cleanedAt)
		if row.EligibilityStatus == StatusRejected {
			result.RowsRejected++
			result.Rejections = append(result.Rejections, Rejection{
				SourceVendor: row.SourceVendor,
				SourceFile:   row.SourceFile,
				SourceRow:    row.SourceRow,
				Reason:       *row.RejectionReason,
			})
		}
		out = append(out, row)
	}

	if err := s.store.WriteSilverRows(ctx, out); err != nil {
		return nil, err
	}
	result.RowsWritten = len(out)

	log.Printf("Normalization complete for run %s: %d rows written, %d rejected",
		runID, result.RowsWritten, result.RowsRejected)
	return result, nil
}

func (s *Service) normalizeRow(raw *warehouse.RawStagingRow, cleanedAt time.Time) *warehouse.SilverMemberRow {
	layout, _ := s.rules.DateFormat(raw.SourceVendor)
	relMapping, _ := s.rules.RelationshipMapping(raw.SourceVendor)

	row := &warehouse.SilverMemberRow{
		LoadRunID:    raw.LoadRunID,
		SourceVendor: raw.SourceVendor,
		SourceFile:   raw.SourceFile,
		SourceRow:    raw.SourceRow,
		RecordHash:   raw.RecordHash,

		FirstNameNorm:    CleanName(raw.FirstNameRaw),
		LastNameNorm:     CleanName(raw.LastNameRaw),
		DOBNorm:          NormalizeDOB(raw.DOBRaw, layout),
		RelationshipNorm: NormalizeRelationship(raw.RelationshipRaw, relMapping),
		PlanType:         raw.PlanType,
		Provider:         raw.Provider,

		FirstNameRaw:    raw.FirstNameRaw,
		LastNameRaw:     raw.LastNameRaw,
		DOBRaw:          raw.DOBRaw,
		RelationshipRaw: raw.RelationshipRaw,
		IngestedAt:      raw.IngestedAt,
		CleanedAt:       cleanedAt,
	}

	status, reason := s.evaluate(row, cleanedAt)
	row.EligibilityStatus = status
	if reason != "" {
		row.RejectionReason = &reason
	}
	return row
}

// evaluate applies the business eligibility rules to one normalized row
// and returns the status plus the rejection reason, if any.
func (s *Service) evaluate(row *warehouse.SilverMemberRow, at time.Time) (string, string) {
	rules := s.rules.Eligibility

	if rules.RequireDOB && row.DOBNorm == nil {
		return StatusRejected, "date of birth missing or unparseable"
	}
	if rules.MaxAgeYears > 0 && row.DOBNorm != nil {
		if age, ok := ageYears(*row.DOBNorm, at); ok && age > rules.MaxAgeYears {
			return StatusRejected, fmt.Sprintf("age %d exceeds maximum %d", age, rules.MaxAgeYears)
		}
	}
	if len(rules.AllowedPlanTypes) > 0 {
		plan := ""
		if row.PlanType != nil {
			plan = *row.PlanType
		}
		allowed := false
		for _, p := range rules.AllowedPlanTypes {
			if strings.EqualFold(p, plan) {
				allowed = true
				break
			}
		}
		if !allowed {
			return StatusRejected, fmt.Sprintf("plan type %q not allowed", plan)
		}
	}
	return StatusEligible, ""
}
