package placement

import (
	"time"

	"github.com/google/uuid"
)

// PlacementInfo is a resident placement at a facility. The medical and
// identifier fields are PHI: the service keeps them plaintext in memory and
// the storage layer only ever sees them encrypted.
type PlacementInfo struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	FacilityID            uuid.UUID  `db:"facility_id" json:"facility_id"`
	ResidentName          string     `db:"resident_name" json:"resident_name"`
	UCI                   string     `db:"uci" json:"uci"`
	SSN                   string     `db:"social_security_number" json:"social_security_number"`
	Allergies             string     `db:"allergies" json:"allergies"`
	MedicalConditions     string     `db:"medical_conditions" json:"medical_conditions"`
	Medications           string     `db:"medications" json:"medications"`
	DietaryRestrictions   string     `db:"dietary_restrictions" json:"dietary_restrictions"`
	EmergencyContactName  string     `db:"emergency_contact_name" json:"emergency_contact_name"`
	EmergencyContactPhone string     `db:"emergency_contact_phone" json:"emergency_contact_phone"`
	Status                string     `db:"status" json:"status"`
	AdmissionDate         *time.Time `db:"admission_date" json:"admission_date,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// EntityType is the storage-layer name used for PHI field configuration and
// the audit trail.
const EntityType = "placement_info"

// asRow renders the placement as a column map for the field codec and audit
// capture. Values are whatever the struct currently holds, plaintext in the
// domain layer and ciphertext after encryptRecord.
func (p *PlacementInfo) asRow() map[string]any {
	return map[string]any{
		"id":                      p.ID.String(),
		"facility_id":             p.FacilityID.String(),
		"resident_name":           p.ResidentName,
		"uci":                     p.UCI,
		"social_security_number":  p.SSN,
		"allergies":               p.Allergies,
		"medical_conditions":      p.MedicalConditions,
		"medications":             p.Medications,
		"dietary_restrictions":    p.DietaryRestrictions,
		"emergency_contact_name":  p.EmergencyContactName,
		"emergency_contact_phone": p.EmergencyContactPhone,
		"status":                  p.Status,
	}
}

// applyStringColumns copies string-typed columns from row back onto the
// struct. Used to round-trip through the field codec, which operates on
// column maps.
func (p *PlacementInfo) applyStringColumns(row map[string]any) {
	set := func(dst *string, col string) {
		if v, ok := row[col].(string); ok {
			*dst = v
		}
	}
	set(&p.ResidentName, "resident_name")
	set(&p.UCI, "uci")
	set(&p.SSN, "social_security_number")
	set(&p.Allergies, "allergies")
	set(&p.MedicalConditions, "medical_conditions")
	set(&p.Medications, "medications")
	set(&p.DietaryRestrictions, "dietary_restrictions")
	set(&p.EmergencyContactName, "emergency_contact_name")
	set(&p.EmergencyContactPhone, "emergency_contact_phone")
	set(&p.Status, "status")
}
