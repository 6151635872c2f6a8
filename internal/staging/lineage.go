package staging

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Lineage identifies one ingested source row within a run. The four fields
// form the primary key of both staging tables and are immutable once
// written.
type Lineage struct {
	LoadRunID    string
	SourceVendor string
	SourceFile   string
	SourceRow    int
}

func (l Lineage) String() string {
	return fmt.Sprintf("%s/%s/%s#%d", l.LoadRunID, l.SourceVendor, l.SourceFile, l.SourceRow)
}

// CanonicalRecord is one fully staged canonical row: the mapped content
// fields plus lineage, ingestion timestamp, and content fingerprint.
type CanonicalRecord struct {
	Lineage
	IngestedAt time.Time
	RecordHash string
	Fields     ContentFields
}

// RawPayloadRecord is the verbatim sidecar for one canonical row. It
// carries the identical lineage tuple plus the complete original record as
// JSON, including fields the canonical schema does not model.
type RawPayloadRecord struct {
	Lineage
	IngestedAt time.Time
	RecordHash string
	RawPayload []byte
}

// Tag attaches run lineage and the ingestion timestamp to one mapped row
// and builds the canonical record together with its sidecar. Both carry the
// same lineage tuple and the same content hash, which is what makes the
// cross-table join total and lets the hash copy be verified later. rawJSON
// must be the original source record serialized as JSON.
func Tag(lin Lineage, ingestedAt time.Time, fields ContentFields, rawJSON []byte) (*CanonicalRecord, *RawPayloadRecord) {
	hash := Fingerprint(&fields)
	can := &CanonicalRecord{
		Lineage:    lin,
		IngestedAt: ingestedAt,
		RecordHash: hash,
		Fields:     fields,
	}
	pay := &RawPayloadRecord{
		Lineage:    lin,
		IngestedAt: ingestedAt,
		RecordHash: hash,
		RawPayload: rawJSON,
	}
	return can, pay
}

// NewRunID returns a fresh run identifier: the UTC allocation time plus a
// short random suffix, for example 20240131T120000Z_1f2e3d4c. Run ids are
// never reused; a retry after a failed or canceled run allocates a new one.
func NewRunID() string {
	return time.Now().UTC().Format("20060102T150405Z") + "_" + uuid.New().String()[:8]
}
