package warehouse

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"example.com/eligibility/internal/staging"
)

// silverBatchSize is the insert batch for the silver stage.
const silverBatchSize = 1000

// lineageJoin is the four-column join between the canonical table (s) and
// the sidecar table (p). Every completeness query is built on it.
const lineageJoin = `s.load_run_id = p.load_run_id
	AND s.source_vendor = p.source_vendor
	AND s.source_file = p.source_file
	AND s.source_row = p.source_row`

// Store provides the staging warehouse operations over one database handle.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store over an opened warehouse database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WritePair persists one canonical record and its sidecar as a single
// transaction: either both rows commit or neither does, so no partial pair
// is ever observable. A write under an already-present lineage key fails
// with staging.DuplicateLineageError and is never an overwrite; any other
// database failure surfaces as staging.StorageUnavailableError.
func (s *Store) WritePair(ctx context.Context, can *staging.CanonicalRecord, pay *staging.RawPayloadRecord) error {
	if can.Lineage != pay.Lineage {
		return fmt.Errorf("canonical and payload lineage differ: %s vs %s", can.Lineage, pay.Lineage)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(NewRawStagingRow(can)).Error; err != nil {
			return err
		}
		if err := tx.Create(NewRawPayloadRow(pay)).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return classifyWriteError(can.Lineage, err)
	}
	return nil
}

// classifyWriteError maps driver-level failures onto the staging taxonomy.
// The sqlite and pgx paths surface duplicates as gorm.ErrDuplicatedKey via
// TranslateError; the lib/pq path reports unique_violation as code 23505.
func classifyWriteError(lin staging.Lineage, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &staging.DuplicateLineageError{Lineage: lin}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return &staging.DuplicateLineageError{Lineage: lin}
	}
	return &staging.StorageUnavailableError{Op: "write record pair", Err: err}
}

// RunVerification is the result of the read-only completeness check for one
// run. A clean run has equal counts, a total join, no orphans on either
// side, and no hash disagreement between the two stores.
type RunVerification struct {
	LoadRunID       string `json:"load_run_id"`
	CanonicalCount  int64  `json:"canonical_count"`
	PayloadCount    int64  `json:"payload_count"`
	JoinedCount     int64  `json:"joined_count"`
	OrphanCanonical int64  `json:"orphan_canonical"`
	OrphanPayload   int64  `json:"orphan_payload"`
	HashMismatches  int64  `json:"hash_mismatches"`
}

// Clean reports whether the run passes every completeness check.
func (v *RunVerification) Clean() bool {
	return v.CanonicalCount == v.PayloadCount &&
		v.JoinedCount == v.CanonicalCount &&
		v.OrphanCanonical == 0 &&
		v.OrphanPayload == 0 &&
		v.HashMismatches == 0
}

// VerifyRun runs the completeness check for one run. It is a required
// post-condition of a successful ingestion and safe to run at any time.
func (s *Store) VerifyRun(ctx context.Context, runID string) (*RunVerification, error) {
	db := s.db.WithContext(ctx)
	v := &RunVerification{LoadRunID: runID}

	count := func(dest *int64, query string) error {
		if err := db.Raw(query, runID).Scan(dest).Error; err != nil {
			return fmt.Errorf("verify run %s: %w", runID, err)
		}
		return nil
	}

	if err := count(&v.CanonicalCount,
		`SELECT COUNT(*) FROM raw_staging WHERE load_run_id = ?`); err != nil {
		return nil, err
	}
	if err := count(&v.PayloadCount,
		`SELECT COUNT(*) FROM raw_staging_payload WHERE load_run_id = ?`); err != nil {
		return nil, err
	}
	if err := count(&v.JoinedCount,
		`SELECT COUNT(*) FROM raw_staging s JOIN raw_staging_payload p ON `+lineageJoin+`
		 WHERE s.load_run_id = ?`); err != nil {
		return nil, err
	}
	if err := count(&v.OrphanCanonical,
		`SELECT COUNT(*) FROM raw_staging s LEFT JOIN raw_staging_payload p ON `+lineageJoin+`
		 WHERE s.load_run_id = ? AND p.load_run_id IS NULL`); err != nil {
		return nil, err
	}
	if err := count(&v.OrphanPayload,
		`SELECT COUNT(*) FROM raw_staging_payload p LEFT JOIN raw_staging s ON `+lineageJoin+`
		 WHERE p.load_run_id = ? AND s.load_run_id IS NULL`); err != nil {
		return nil, err
	}
	if err := count(&v.HashMismatches,
		`SELECT COUNT(*) FROM raw_staging s JOIN raw_staging_payload p ON `+lineageJoin+`
		 WHERE s.load_run_id = ? AND s.record_hash_raw <> p.record_hash_raw`); err != nil {
		return nil, err
	}
	return v, nil
}

// CountByVendor returns the canonical row count per vendor for one run.
func (s *Store) CountByVendor(ctx context.Context, runID string) (map[string]int64, error) {
	var rows []struct {
		SourceVendor string
		N            int64
	}
	err := s.db.WithContext(ctx).
		Raw(`SELECT source_vendor, COUNT(*) AS n FROM raw_staging
		     WHERE load_run_id = ? GROUP BY source_vendor ORDER BY source_vendor`, runID).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count by vendor for run %s: %w", runID, err)
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.SourceVendor] = r.N
	}
	return counts, nil
}

// VendorFieldGaps reports how many canonical rows per vendor are missing
// key raw fields. Used by the post-run audit report.
type VendorFieldGaps struct {
	SourceVendor   string `json:"source_vendor"`
	Total          int64  `json:"total"`
	MissingNames   int64  `json:"missing_names"`
	MissingDOB     int64  `json:"missing_dob"`
	MissingAddress int64  `json:"missing_address"`
}

// AuditFieldGaps computes the per-vendor field-gap report for one run.
func (s *Store) AuditFieldGaps(ctx context.Context, runID string) ([]VendorFieldGaps, error) {
	var gaps []VendorFieldGaps
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			source_vendor,
			COUNT(*) AS total,
			SUM(CASE WHEN first_name_raw IS NULL OR first_name_raw = '' THEN 1 ELSE 0 END) AS missing_names,
			SUM(CASE WHEN dob_raw IS NULL OR dob_raw = '' THEN 1 ELSE 0 END) AS missing_dob,
			SUM(CASE WHEN address_line1 IS NULL OR address_line1 = '' THEN 1 ELSE 0 END) AS missing_address
		FROM raw_staging
		WHERE load_run_id = ?
		GROUP BY source_vendor
		ORDER BY source_vendor`, runID).Scan(&gaps).Error
	if err != nil {
		return nil, fmt.Errorf("audit field gaps for run %s: %w", runID, err)
	}
	return gaps, nil
}

// RawRowsForRun loads every canonical row of one run in lineage order. The
// silver stage consumes this as its sole input.
func (s *Store) RawRowsForRun(ctx context.Context, runID string) ([]RawStagingRow, error) {
	var rows []RawStagingRow
	err := s.db.WithContext(ctx).
		Where("load_run_id = ?", runID).
		Order("source_vendor, source_file, source_row").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load raw rows for run %s: %w", runID, err)
	}
	return rows, nil
}

// WriteSilverRows appends normalized member rows in batches.
func (s *Store) WriteSilverRows(ctx context.Context, rows []*SilverMemberRow) error {
	if len(rows) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).CreateInBatches(rows, silverBatchSize).Error
	if err != nil {
		return fmt.Errorf("write silver rows: %w", err)
	}
	return nil
}

// SilverRowsForRun loads one run's normalized rows in lineage order.
func (s *Store) SilverRowsForRun(ctx context.Context, runID string) ([]SilverMemberRow, error) {
	var rows []SilverMemberRow
	err := s.db.WithContext(ctx).
		Where("load_run_id = ?", runID).
		Order("source_vendor, source_file, source_row").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load silver rows for run %s: %w", runID, err)
	}
	return rows, nil
}

// SilverCountForRun returns the number of silver rows written for one run.
func (s *Store) SilverCountForRun(ctx context.Context, runID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&SilverMemberRow{}).
		Where("load_run_id = ?", runID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count silver rows for run %s: %w", runID, err)
	}
	return n, nil
}

// VendorNormalizationStats reports silver-stage outcomes per vendor.
type VendorNormalizationStats struct {
	SourceVendor         string `json:"source_vendor"`
	Total                int64  `json:"total"`
	DOBParsed            int64  `json:"dob_parsed"`
	UnknownRelationships int64  `json:"unknown_relationships"`
	MissingNames         int64  `json:"missing_names"`
	Rejected             int64  `json:"rejected"`
}

// NormalizationStats computes the per-vendor silver outcome report for one
// run.
func (s *Store) NormalizationStats(ctx context.Context, runID string) ([]VendorNormalizationStats, error) {
	var stats []VendorNormalizationStats
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			source_vendor,
			COUNT(*) AS total,
			SUM(CASE WHEN dob_norm IS NOT NULL THEN 1 ELSE 0 END) AS dob_parsed,
			SUM(CASE WHEN relationship_norm = 'OTHER' THEN 1 ELSE 0 END) AS unknown_relationships,
			SUM(CASE WHEN first_name_norm IS NULL THEN 1 ELSE 0 END) AS missing_names,
			SUM(CASE WHEN eligibility_status = 'REJECTED' THEN 1 ELSE 0 END) AS rejected
		FROM silver_members
		WHERE load_run_id = ?
		GROUP BY source_vendor
		ORDER BY source_vendor`, runID).Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("normalization stats for run %s: %w", runID, err)
	}
	return stats, nil
}
