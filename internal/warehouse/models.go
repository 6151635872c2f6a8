package warehouse

import (
	"time"

	"gorm.io/datatypes"

	"example.com/eligibility/internal/staging"
)

// RawStagingRow is one canonical staged record. The four lineage columns
// form the composite primary key, which is what enforces write-once
// semantics at the row-identity grain: a second insert under the same
// lineage tuple is rejected by the database, never merged.
type RawStagingRow struct {
	LoadRunID    string    `json:"load_run_id" gorm:"column:load_run_id;primaryKey;type:varchar(64)"`
	SourceVendor string    `json:"source_vendor" gorm:"column:source_vendor;primaryKey;type:varchar(128);index:idx_raw_staging_vendor"`
	SourceFile   string    `json:"source_file" gorm:"column:source_file;primaryKey;type:varchar(255)"`
	SourceRow    int       `json:"source_row" gorm:"column:source_row;primaryKey"`
	IngestedAt   time.Time `json:"ingested_at" gorm:"column:ingested_at;not null"`
	RecordHash   string    `json:"record_hash_raw" gorm:"column:record_hash_raw;type:char(64);not null;index:idx_raw_staging_hash"`

	GroupID         *string        `json:"group_id" gorm:"column:group_id"`
	SubscriberID    *string        `json:"subscriber_id" gorm:"column:subscriber_id"`
	MemberID        *string        `json:"member_id" gorm:"column:member_id"`
	DependentSeq    *string        `json:"dependent_seq" gorm:"column:dependent_seq"`
	SSNHash         *string        `json:"ssn_hash" gorm:"column:ssn_hash"`
	FirstNameRaw    *string        `json:"first_name_raw" gorm:"column:first_name_raw"`
	LastNameRaw     *string        `json:"last_name_raw" gorm:"column:last_name_raw"`
	DOBRaw          *string        `json:"dob_raw" gorm:"column:dob_raw"`
	RelationshipRaw *string        `json:"relationship_raw" gorm:"column:relationship_raw"`
	AddressLine1    *string        `json:"address_line1" gorm:"column:address_line1"`
	AddressLine2    *string        `json:"address_line2" gorm:"column:address_line2"`
	CityRaw         *string        `json:"city_raw" gorm:"column:city_raw"`
	StateRaw        *string        `json:"state_raw" gorm:"column:state_raw"`
	ZipRaw          *string        `json:"zip_raw" gorm:"column:zip_raw"`
	PlanType        *string        `json:"plan_type" gorm:"column:plan_type;not null"`
	Provider        *string        `json:"provider" gorm:"column:provider;not null"`
	PlanID          *string        `json:"plan_id" gorm:"column:plan_id"`
	PlanTier        *string        `json:"plan_tier" gorm:"column:plan_tier"`
	StatusRaw       *string        `json:"status_raw" gorm:"column:status_raw"`
	ExtraPayload    datatypes.JSON `json:"extra_payload,omitempty" gorm:"column:extra_payload"`
}

func (RawStagingRow) TableName() string { return "raw_staging" }

// RawPayloadRow is the verbatim sidecar for one canonical row: the complete
// original record as JSON under the identical lineage key, plus a copy of
// the content hash for cross-store verification.
type RawPayloadRow struct {
	LoadRunID    string    `json:"load_run_id" gorm:"column:load_run_id;primaryKey;type:varchar(64)"`
	SourceVendor string    `json:"source_vendor" gorm:"column:source_vendor;primaryKey;type:varchar(128)"`
	SourceFile   string    `json:"source_file" gorm:"column:source_file;primaryKey;type:varchar(255)"`
	SourceRow    int       `json:"source_row" gorm:"column:source_row;primaryKey"`
	IngestedAt   time.Time `json:"ingested_at" gorm:"column:ingested_at;not null"`
	RecordHash   string    `json:"record_hash_raw" gorm:"column:record_hash_raw;type:char(64);not null;index:idx_raw_payload_hash"`

	RawPayload datatypes.JSON `json:"raw_payload_json" gorm:"column:raw_payload_json;not null"`
}

func (RawPayloadRow) TableName() string { return "raw_staging_payload" }

// SilverMemberRow is one normalized member record produced by the silver
// stage. It carries the full lineage key and hash through from raw_staging
// so every normalized value is traceable to its source row, and keeps the
// raw inputs of each normalized column alongside the result.
type SilverMemberRow struct {
	LoadRunID    string `json:"load_run_id" gorm:"column:load_run_id;primaryKey;type:varchar(64)"`
	SourceVendor string `json:"source_vendor" gorm:"column:source_vendor;primaryKey;type:varchar(128);index:idx_silver_vendor"`
	SourceFile   string `json:"source_file" gorm:"column:source_file;primaryKey;type:varchar(255)"`
	SourceRow    int    `json:"source_row" gorm:"column:source_row;primaryKey"`
	RecordHash   string `json:"record_hash_raw" gorm:"column:record_hash_raw;type:char(64);not null"`

	FirstNameNorm    *string `json:"first_name_norm" gorm:"column:first_name_norm"`
	LastNameNorm     *string `json:"last_name_norm" gorm:"column:last_name_norm"`
	DOBNorm          *string `json:"dob_norm" gorm:"column:dob_norm;type:varchar(10)"`
	RelationshipNorm string  `json:"relationship_norm" gorm:"column:relationship_norm;not null"`
	PlanType         *string `json:"plan_type" gorm:"column:plan_type"`
	Provider         *string `json:"provider" gorm:"column:provider"`

	EligibilityStatus string  `json:"eligibility_status" gorm:"column:eligibility_status;not null;index:idx_silver_status"`
	RejectionReason   *string `json:"rejection_reason,omitempty" gorm:"column:rejection_reason"`

	FirstNameRaw    *string   `json:"first_name_raw" gorm:"column:first_name_raw"`
	LastNameRaw     *string   `json:"last_name_raw" gorm:"column:last_name_raw"`
	DOBRaw          *string   `json:"dob_raw" gorm:"column:dob_raw"`
	RelationshipRaw *string   `json:"relationship_raw" gorm:"column:relationship_raw"`
	IngestedAt      time.Time `json:"ingested_at" gorm:"column:ingested_at;not null"`
	CleanedAt       time.Time `json:"cleaned_at" gorm:"column:cleaned_at;not null"`
}

func (SilverMemberRow) TableName() string { return "silver_members" }

// NewRawStagingRow converts a staged canonical record into its table row.
func NewRawStagingRow(rec *staging.CanonicalRecord) *RawStagingRow {
	row := &RawStagingRow{
		LoadRunID:    rec.LoadRunID,
		SourceVendor: rec.SourceVendor,
		SourceFile:   rec.SourceFile,
		SourceRow:    rec.SourceRow,
		IngestedAt:   rec.IngestedAt,
		RecordHash:   rec.RecordHash,

		GroupID:         rec.Fields.GroupID,
		SubscriberID:    rec.Fields.SubscriberID,
		MemberID:        rec.Fields.MemberID,
		DependentSeq:    rec.Fields.DependentSeq,
		SSNHash:         rec.Fields.SSNHash,
		FirstNameRaw:    rec.Fields.FirstNameRaw,
		LastNameRaw:     rec.Fields.LastNameRaw,
		DOBRaw:          rec.Fields.DOBRaw,
		RelationshipRaw: rec.Fields.RelationshipRaw,
		AddressLine1:    rec.Fields.AddressLine1,
		AddressLine2:    rec.Fields.AddressLine2,
		CityRaw:         rec.Fields.CityRaw,
		StateRaw:        rec.Fields.StateRaw,
		ZipRaw:          rec.Fields.ZipRaw,
		PlanType:        rec.Fields.PlanType,
		Provider:        rec.Fields.Provider,
		PlanID:          rec.Fields.PlanID,
		PlanTier:        rec.Fields.PlanTier,
		StatusRaw:       rec.Fields.StatusRaw,
	}
	if rec.Fields.ExtraPayload != nil {
		row.ExtraPayload = datatypes.JSON(*rec.Fields.ExtraPayload)
	}
	return row
}

// NewRawPayloadRow converts a staged sidecar record into its table row.
func NewRawPayloadRow(rec *staging.RawPayloadRecord) *RawPayloadRow {
	return &RawPayloadRow{
		LoadRunID:    rec.LoadRunID,
		SourceVendor: rec.SourceVendor,
		SourceFile:   rec.SourceFile,
		SourceRow:    rec.SourceRow,
		IngestedAt:   rec.IngestedAt,
		RecordHash:   rec.RecordHash,
		RawPayload:   datatypes.JSON(rec.RawPayload),
	}
}

// Lineage reconstructs the staging lineage tuple of a canonical row.
func (r *RawStagingRow) Lineage() staging.Lineage {
	return staging.Lineage{
		LoadRunID:    r.LoadRunID,
		SourceVendor: r.SourceVendor,
		SourceFile:   r.SourceFile,
		SourceRow:    r.SourceRow,
	}
}
