// Package staging maps raw vendor records into the canonical schema,
// attaches run lineage, and fingerprints row content. It is the contract
// layer between the format readers and the warehouse: everything it emits
// is stored verbatim, unnormalized, and traceable back to one source row.
package staging

// Canonical content field names. These are the mapping targets a vendor
// spec may bind and the columns the fingerprint covers.
const (
	FieldGroupID         = "group_id"
	FieldSubscriberID    = "subscriber_id"
	FieldMemberID        = "member_id"
	FieldDependentSeq    = "dependent_seq"
	FieldSSNHash         = "ssn_hash"
	FieldFirstNameRaw    = "first_name_raw"
	FieldLastNameRaw     = "last_name_raw"
	FieldDOBRaw          = "dob_raw"
	FieldRelationshipRaw = "relationship_raw"
	FieldAddressLine1    = "address_line1"
	FieldAddressLine2    = "address_line2"
	FieldCityRaw         = "city_raw"
	FieldStateRaw        = "state_raw"
	FieldZipRaw          = "zip_raw"
	FieldPlanType        = "plan_type"
	FieldProvider        = "provider"
	FieldPlanID          = "plan_id"
	FieldPlanTier        = "plan_tier"
	FieldStatusRaw       = "status_raw"
	FieldExtraPayload    = "extra_payload"
)

// ContentFields holds the canonical content columns of one staged row.
// Values are stored exactly as read from the source; nil is the canonical
// null and is distinct from the empty string. Lineage and the record hash
// live outside this struct so the fingerprint input is exactly these
// fields and nothing else.
type ContentFields struct {
	GroupID         *string
	SubscriberID    *string
	MemberID        *string
	DependentSeq    *string
	SSNHash         *string
	FirstNameRaw    *string
	LastNameRaw     *string
	DOBRaw          *string
	RelationshipRaw *string
	AddressLine1    *string
	AddressLine2    *string
	CityRaw         *string
	StateRaw        *string
	ZipRaw          *string
	PlanType        *string
	Provider        *string
	PlanID          *string
	PlanTier        *string
	StatusRaw       *string

	// ExtraPayload carries mapped source fields that have no canonical
	// column, serialized as a JSON object keyed by source path. Nil when
	// the vendor spec lists none.
	ExtraPayload *string
}

// contentFieldSlots enumerates the canonical content fields in fingerprint
// order. The order is part of the staging contract (see Fingerprint) and
// must not change without a hash version bump.
var contentFieldSlots = []struct {
	name string
	slot func(*ContentFields) **string
}{
	{FieldGroupID, func(f *ContentFields) **string { return &f.GroupID }},
	{FieldSubscriberID, func(f *ContentFields) **string { return &f.SubscriberID }},
	{FieldMemberID, func(f *ContentFields) **string { return &f.MemberID }},
	{FieldDependentSeq, func(f *ContentFields) **string { return &f.DependentSeq }},
	{FieldSSNHash, func(f *ContentFields) **string { return &f.SSNHash }},
	{FieldFirstNameRaw, func(f *ContentFields) **string { return &f.FirstNameRaw }},
	{FieldLastNameRaw, func(f *ContentFields) **string { return &f.LastNameRaw }},
	{FieldDOBRaw, func(f *ContentFields) **string { return &f.DOBRaw }},
	{FieldRelationshipRaw, func(f *ContentFields) **string { return &f.RelationshipRaw }},
	{FieldAddressLine1, func(f *ContentFields) **string { return &f.AddressLine1 }},
	{FieldAddressLine2, func(f *ContentFields) **string { return &f.AddressLine2 }},
	{FieldCityRaw, func(f *ContentFields) **string { return &f.CityRaw }},
	{FieldStateRaw, func(f *ContentFields) **string { return &f.StateRaw }},
	{FieldZipRaw, func(f *ContentFields) **string { return &f.ZipRaw }},
	{FieldPlanType, func(f *ContentFields) **string { return &f.PlanType }},
	{FieldProvider, func(f *ContentFields) **string { return &f.Provider }},
	{FieldPlanID, func(f *ContentFields) **string { return &f.PlanID }},
	{FieldPlanTier, func(f *ContentFields) **string { return &f.PlanTier }},
	{FieldStatusRaw, func(f *ContentFields) **string { return &f.StatusRaw }},
	{FieldExtraPayload, func(f *ContentFields) **string { return &f.ExtraPayload }},
}

// MandatoryFields are the canonical fields every staged row must carry.
var MandatoryFields = []string{FieldPlanType, FieldProvider}

// ContentFieldNames returns the canonical content field names in
// fingerprint order.
func ContentFieldNames() []string {
	names := make([]string, len(contentFieldSlots))
	for i, cf := range contentFieldSlots {
		names[i] = cf.name
	}
	return names
}

// IsContentField reports whether name is a canonical content field.
func IsContentField(name string) bool {
	for _, cf := range contentFieldSlots {
		if cf.name == name {
			return true
		}
	}
	return false
}

// Set assigns the canonical field by name. It reports false for names that
// are not content fields.
func (f *ContentFields) Set(name string, v *string) bool {
	for _, cf := range contentFieldSlots {
		if cf.name == name {
			*cf.slot(f) = v
			return true
		}
	}
	return false
}

// Get returns the canonical field value by name and whether the name is a
// content field.
func (f *ContentFields) Get(name string) (*string, bool) {
	for _, cf := range contentFieldSlots {
		if cf.name == name {
			return *cf.slot(f), true
		}
	}
	return nil, false
}
