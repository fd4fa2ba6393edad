package facility

import (
	"time"

	"github.com/google/uuid"
)

// Facility is a physical care location within a tenant, with its own staff
// assignments. Facility rows carry no PHI.
type Facility struct {
	ID        uuid.UUID `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	Address   string    `db:"address" json:"address"`
	Capacity  int       `db:"capacity" json:"capacity"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// asRow renders the facility as a column map for audit capture.
func (f *Facility) asRow() map[string]any {
	return map[string]any{
		"id":          f.ID.String(),
		"tenant_id":   f.TenantID,
		"name":        f.Name,
		"code":        f.Code,
		"address":     f.Address,
		"capacity":    f.Capacity,
		"active":      f.Active,
		"facility_id": f.ID.String(),
	}
}

// StaffAssignment links a STAFF user to a facility they may act on. OWNER
// and ADMIN principals have tenant-wide access and are never assigned.
type StaffAssignment struct {
	ID         uuid.UUID `db:"id" json:"id"`
	FacilityID uuid.UUID `db:"facility_id" json:"facility_id"`
	UserID     string    `db:"user_id" json:"user_id"`
	AssignedBy string    `db:"assigned_by" json:"assigned_by"`
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
}

func (a *StaffAssignment) asRow() map[string]any {
	return map[string]any{
		"id":          a.ID.String(),
		"facility_id": a.FacilityID.String(),
		"user_id":     a.UserID,
		"assigned_by": a.AssignedBy,
	}
}
