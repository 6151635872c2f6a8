package pipeline

import (
	"time"

	"example.com/eligibility/internal/manifest"
	"example.com/eligibility/internal/silver"
	"example.com/eligibility/internal/warehouse"
)

// Run lifecycle statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// RowSkip records one source row dropped during ingestion and why.
type RowSkip struct {
	SourceRow int    `json:"source_row"`
	Reason    string `json:"reason"`
}

// VendorResult is the ingestion outcome for a single vendor extract.
// When Failed is set, rows ingested before the failure stay persisted
// and RowsIngested reports how far the vendor got.
type VendorResult struct {
	SourceVendor string    `json:"source_vendor"`
	SourceFile   string    `json:"source_file"`
	RowsRead     int       `json:"rows_read"`
	RowsIngested int       `json:"rows_ingested"`
	RowsSkipped  int       `json:"rows_skipped"`
	Skips        []RowSkip `json:"skips,omitempty"`
	Failed       bool      `json:"failed"`
	Error        string    `json:"error,omitempty"`

	// Err keeps the typed error for programmatic callers; the JSON view
	// carries only the message.
	Err error `json:"-"`
}

// RunSummary aggregates the ingestion stage across all vendors of one run.
// It is produced even when vendors fail.
type RunSummary struct {
	LoadRunID     string         `json:"load_run_id"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
	Vendors       []VendorResult `json:"vendors"`
	TotalRead     int            `json:"total_rows_read"`
	TotalIngested int            `json:"total_rows_ingested"`
	TotalSkipped  int            `json:"total_rows_skipped"`
	VendorsFailed int            `json:"vendors_failed"`
}

// RunReport is the full record of one pipeline execution, covering every
// stage that ran. Stages that did not run yet (or were skipped after a
// failure) are nil.
type RunReport struct {
	LoadRunID    string                     `json:"load_run_id"`
	Status       string                     `json:"status"`
	StartedAt    time.Time                  `json:"started_at"`
	FinishedAt   time.Time                  `json:"finished_at,omitempty"`
	Error        string                     `json:"error,omitempty"`
	Manifest     *manifest.Manifest         `json:"manifest,omitempty"`
	Ingestion    *RunSummary                `json:"ingestion,omitempty"`
	Silver       *silver.Result             `json:"silver,omitempty"`
	Verification *warehouse.RunVerification `json:"verification,omitempty"`
}
