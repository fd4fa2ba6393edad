package facility

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/carebase/carebase/internal/platform/audit"
	"github.com/carebase/carebase/internal/platform/authz"
	"github.com/carebase/carebase/internal/platform/db"
)

// Service owns facility and staff-assignment lifecycle. Every mutation is
// paired with its audit record inside one transaction. It also answers the
// authorization chain's facility-access lookups.
type Service struct {
	repo        Repository
	assignments AssignmentRepository
	recorder    audit.Recorder
	runTx       func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewService(repo Repository, assignments AssignmentRepository, recorder audit.Recorder) *Service {
	return &Service{repo: repo, assignments: assignments, recorder: recorder, runTx: db.RunInTx}
}

// IsAssigned reports whether the user holds an active assignment to the
// facility. Satisfies the facility gate's lookup interface.
func (s *Service) IsAssigned(ctx context.Context, userID, facilityID string) (bool, error) {
	return s.assignments.IsAssigned(ctx, userID, facilityID)
}

func (s *Service) CreateFacility(ctx context.Context, f *Facility) error {
	if f.Name == "" {
		return fmt.Errorf("facility name is required")
	}
	if f.TenantID == "" {
		f.TenantID = authz.TenantIDFromContext(ctx)
	}

	return s.runTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, f); err != nil {
			return fmt.Errorf("create facility: %w", err)
		}
		rec := audit.NewInsert(ctx, "facilities", f.ID.String(), f.asRow())
		return s.recorder.Record(ctx, rec)
	})
}

func (s *Service) GetFacility(ctx context.Context, id uuid.UUID) (*Facility, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListFacilities(ctx context.Context, limit, offset int) ([]*Facility, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) UpdateFacility(ctx context.Context, f *Facility) error {
	existing, err := s.repo.GetByID(ctx, f.ID)
	if err != nil {
		return fmt.Errorf("load facility: %w", err)
	}
	f.TenantID = existing.TenantID

	rec, changed := audit.NewUpdate(ctx, "facilities", f.ID.String(), existing.asRow(), f.asRow())
	if !changed {
		return nil
	}

	return s.runTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, f); err != nil {
			return fmt.Errorf("update facility: %w", err)
		}
		return s.recorder.Record(ctx, rec)
	})
}

func (s *Service) DeleteFacility(ctx context.Context, id uuid.UUID) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load facility: %w", err)
	}

	return s.runTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete facility: %w", err)
		}
		rec := audit.NewDelete(ctx, "facilities", id.String(), existing.asRow())
		return s.recorder.Record(ctx, rec)
	})
}

func (s *Service) AssignStaff(ctx context.Context, facilityID uuid.UUID, userID string) (*StaffAssignment, error) {
	a := &StaffAssignment{FacilityID: facilityID, UserID: userID}
	if p := authz.PrincipalFromContext(ctx); p != nil {
		a.AssignedBy = p.UserID
	}

	err := s.runTx(ctx, func(ctx context.Context) error {
		if err := s.assignments.Assign(ctx, a); err != nil {
			return fmt.Errorf("assign staff: %w", err)
		}
		rec := audit.NewInsert(ctx, "staff_assignments", a.ID.String(), a.asRow())
		return s.recorder.Record(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) UnassignStaff(ctx context.Context, facilityID uuid.UUID, userID string) error {
	return s.runTx(ctx, func(ctx context.Context) error {
		a, err := s.assignments.Unassign(ctx, facilityID, userID)
		if err != nil {
			return fmt.Errorf("unassign staff: %w", err)
		}
		rec := audit.NewDelete(ctx, "staff_assignments", a.ID.String(), a.asRow())
		return s.recorder.Record(ctx, rec)
	})
}

func (s *Service) ListAssignments(ctx context.Context, facilityID uuid.UUID) ([]*StaffAssignment, error) {
	return s.assignments.ListByFacility(ctx, facilityID)
}
