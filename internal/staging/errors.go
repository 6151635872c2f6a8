package staging

import "fmt"

// MappingConfigError reports a malformed vendor mapping specification. It is
// structural: ingestion for the vendor aborts before any of its rows are
// processed.
type MappingConfigError struct {
	Vendor string
	Reason string
}

func (e *MappingConfigError) Error() string {
	return fmt.Sprintf("mapping config for vendor %q: %s", e.Vendor, e.Reason)
}

// UnmappableRecordError reports a single record for which a mandatory
// canonical field (plan_type or provider) could not be produced. The row is
// skipped with this reason; ingestion of the vendor continues.
type UnmappableRecordError struct {
	Vendor string
	Field  string
}

func (e *UnmappableRecordError) Error() string {
	return fmt.Sprintf("record for vendor %q: mandatory canonical field %q has no value", e.Vendor, e.Field)
}

// DuplicateLineageError reports an insert under an already-written lineage
// key. The staging tables are write-once at that grain, so this indicates a
// row-ordinal bug or an illegitimate re-run; a retry must use a new run id.
type DuplicateLineageError struct {
	Lineage Lineage
}

func (e *DuplicateLineageError) Error() string {
	return fmt.Sprintf("lineage key already written: %s", e.Lineage)
}

// StorageUnavailableError reports that the staging store rejected or could
// not perform a write for a reason other than a duplicate lineage key.
// Ingestion of the affected vendor aborts; rows already written remain.
type StorageUnavailableError struct {
	Op  string
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("staging store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StorageUnavailableError) Unwrap() error {
	return e.Err
}
