package facility

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, f *Facility) error
	GetByID(ctx context.Context, id uuid.UUID) (*Facility, error)
	List(ctx context.Context, limit, offset int) ([]*Facility, int, error)
	Update(ctx context.Context, f *Facility) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type AssignmentRepository interface {
	Assign(ctx context.Context, a *StaffAssignment) error
	Unassign(ctx context.Context, facilityID uuid.UUID, userID string) (*StaffAssignment, error)
	IsAssigned(ctx context.Context, userID, facilityID string) (bool, error)
	ListByFacility(ctx context.Context, facilityID uuid.UUID) ([]*StaffAssignment, error)
}
