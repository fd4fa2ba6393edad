package phi

// EntityFieldConfig maps an entity type to the field names that contain PHI
// for that entity. The set is static configuration: it never changes at
// runtime, and changing it is a deployment-time decision.
type EntityFieldConfig struct {
	// EntityType is the storage-layer entity name (e.g. "placement_info").
	EntityType string
	// Fields lists the column/key names that must be encrypted at rest,
	// in a stable order.
	Fields []string
}

// DefaultEntityPHIFields returns the PHI field configuration for the
// facility-management entities that carry direct identifiers or medical
// details. Display-name fields are protected by access control, not listed
// here, to avoid encryption overhead on high-read paths.
func DefaultEntityPHIFields() []EntityFieldConfig {
	return []EntityFieldConfig{
		{
			EntityType: "placement_info",
			Fields: []string{
				"uci",                     // unique client identifier
				"social_security_number",
				"allergies",
				"medical_conditions",
				"medications",
				"dietary_restrictions",
				"emergency_contact_phone",
			},
		},
		{
			EntityType: "resident",
			Fields: []string{
				"ssn",
				"date_of_birth",
				"diagnosis",
				"physician_notes",
			},
		},
		{
			EntityType: "staff_profile",
			Fields: []string{
				"emergency_contact_name",
				"emergency_contact_phone",
			},
		},
	}
}

// EntityPHIMap answers which fields of which entity types are PHI. Built
// once at process start and only read afterwards, so concurrent use needs
// no locking.
type EntityPHIMap struct {
	fields map[string][]string
	lookup map[string]map[string]bool
}

// NewEntityPHIMap builds a map from the given configuration.
func NewEntityPHIMap(configs []EntityFieldConfig) *EntityPHIMap {
	m := &EntityPHIMap{
		fields: make(map[string][]string, len(configs)),
		lookup: make(map[string]map[string]bool, len(configs)),
	}
	for _, c := range configs {
		m.fields[c.EntityType] = append([]string(nil), c.Fields...)
		set := make(map[string]bool, len(c.Fields))
		for _, f := range c.Fields {
			set[f] = true
		}
		m.lookup[c.EntityType] = set
	}
	return m
}

// DefaultEntityPHIMap builds the map from DefaultEntityPHIFields.
func DefaultEntityPHIMap() *EntityPHIMap {
	return NewEntityPHIMap(DefaultEntityPHIFields())
}

// IsPHI reports whether field is a PHI field of entityType. Unknown entity
// types have no PHI fields.
func (m *EntityPHIMap) IsPHI(entityType, field string) bool {
	return m.lookup[entityType][field]
}

// FieldsFor returns the ordered PHI field names for entityType, or nil for
// entity types with no configured PHI fields.
func (m *EntityPHIMap) FieldsFor(entityType string) []string {
	return m.fields[entityType]
}
