package facility

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/carebase/carebase/internal/platform/audit"
	"github.com/carebase/carebase/internal/platform/authz"
)

type fakeRepo struct {
	facilities map[uuid.UUID]*Facility
	updates    int
	deletes    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{facilities: make(map[uuid.UUID]*Facility)}
}

func (r *fakeRepo) Create(_ context.Context, f *Facility) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	r.facilities[f.ID] = f
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*Facility, error) {
	f, ok := r.facilities[id]
	if !ok {
		return nil, errors.New("not found")
	}
	copied := *f
	return &copied, nil
}

func (r *fakeRepo) List(_ context.Context, _, _ int) ([]*Facility, int, error) {
	var out []*Facility
	for _, f := range r.facilities {
		out = append(out, f)
	}
	return out, len(out), nil
}

func (r *fakeRepo) Update(_ context.Context, f *Facility) error {
	r.updates++
	r.facilities[f.ID] = f
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.deletes++
	delete(r.facilities, id)
	return nil
}

type fakeAssignments struct {
	assigned map[string]bool
}

func newFakeAssignments() *fakeAssignments {
	return &fakeAssignments{assigned: make(map[string]bool)}
}

func (r *fakeAssignments) key(facilityID, userID string) string { return facilityID + "/" + userID }

func (r *fakeAssignments) Assign(_ context.Context, a *StaffAssignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.assigned[r.key(a.FacilityID.String(), a.UserID)] = true
	return nil
}

func (r *fakeAssignments) Unassign(_ context.Context, facilityID uuid.UUID, userID string) (*StaffAssignment, error) {
	k := r.key(facilityID.String(), userID)
	if !r.assigned[k] {
		return nil, errors.New("not found")
	}
	delete(r.assigned, k)
	return &StaffAssignment{ID: uuid.New(), FacilityID: facilityID, UserID: userID}, nil
}

func (r *fakeAssignments) IsAssigned(_ context.Context, userID, facilityID string) (bool, error) {
	return r.assigned[r.key(facilityID, userID)], nil
}

func (r *fakeAssignments) ListByFacility(_ context.Context, _ uuid.UUID) ([]*StaffAssignment, error) {
	return nil, nil
}

type capturingRecorder struct {
	records []*audit.Record
	err     error
}

func (r *capturingRecorder) Record(_ context.Context, rec *audit.Record) error {
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, rec)
	return nil
}

func newTestService(repo *fakeRepo, assignments *fakeAssignments, rec *capturingRecorder) *Service {
	svc := NewService(repo, assignments, rec)
	svc.runTx = func(ctx context.Context, fn func(ctx context.Context) error) error {
		return fn(ctx)
	}
	return svc
}

func adminContext() context.Context {
	ctx := authz.WithPrincipal(context.Background(), &authz.Principal{
		UserID:   "user-1",
		TenantID: "tenant_a",
		Role:     authz.RoleAdmin,
	})
	return authz.WithTenantID(ctx, "tenant_a")
}

func TestCreateFacility(t *testing.T) {
	repo := newFakeRepo()
	rec := &capturingRecorder{}
	svc := newTestService(repo, newFakeAssignments(), rec)

	f := &Facility{Name: "Sunrise Manor", Code: "SUN", Capacity: 40, Active: true}
	if err := svc.CreateFacility(adminContext(), f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.TenantID != "tenant_a" {
		t.Errorf("tenant not inherited from context, got %q", f.TenantID)
	}
	if len(rec.records) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(rec.records))
	}
	r := rec.records[0]
	if r.TableName != "facilities" || r.Operation != audit.OpInsert {
		t.Errorf("wrong audit record: %s %s", r.TableName, r.Operation)
	}
	if r.UserID != "user-1" {
		t.Errorf("audit actor = %q, want user-1", r.UserID)
	}
}

func TestCreateFacility_RequiresName(t *testing.T) {
	svc := newTestService(newFakeRepo(), newFakeAssignments(), &capturingRecorder{})
	if err := svc.CreateFacility(adminContext(), &Facility{}); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestUpdateFacility_NoOpSkipsWriteAndAudit(t *testing.T) {
	repo := newFakeRepo()
	rec := &capturingRecorder{}
	svc := newTestService(repo, newFakeAssignments(), rec)

	f := &Facility{Name: "Sunrise Manor", Code: "SUN", Capacity: 40, Active: true}
	if err := svc.CreateFacility(adminContext(), f); err != nil {
		t.Fatalf("create: %v", err)
	}
	rec.records = nil

	same := *f
	if err := svc.UpdateFacility(adminContext(), &same); err != nil {
		t.Fatalf("update: %v", err)
	}
	if repo.updates != 0 {
		t.Error("no-op update should not write")
	}
	if len(rec.records) != 0 {
		t.Errorf("no-op update should not be audited, got %d records", len(rec.records))
	}
}

func TestUpdateFacility_RecordsChangedFields(t *testing.T) {
	repo := newFakeRepo()
	rec := &capturingRecorder{}
	svc := newTestService(repo, newFakeAssignments(), rec)

	f := &Facility{Name: "Sunrise Manor", Code: "SUN", Capacity: 40, Active: true}
	if err := svc.CreateFacility(adminContext(), f); err != nil {
		t.Fatalf("create: %v", err)
	}
	rec.records = nil

	updated := *f
	updated.Capacity = 48
	if err := svc.UpdateFacility(adminContext(), &updated); err != nil {
		t.Fatalf("update: %v", err)
	}

	if len(rec.records) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(rec.records))
	}
	r := rec.records[0]
	if r.Operation != audit.OpUpdate {
		t.Errorf("operation = %s, want UPDATE", r.Operation)
	}
	if len(r.ChangedFields) != 1 || r.ChangedFields[0] != "capacity" {
		t.Errorf("changed fields = %v, want [capacity]", r.ChangedFields)
	}
}

func TestUpdateFacility_AuditFailureFailsMutation(t *testing.T) {
	repo := newFakeRepo()
	rec := &capturingRecorder{}
	svc := newTestService(repo, newFakeAssignments(), rec)

	f := &Facility{Name: "Sunrise Manor", Code: "SUN"}
	if err := svc.CreateFacility(adminContext(), f); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec.err = errors.New("audit log unavailable")
	updated := *f
	updated.Name = "Sunset Manor"
	if err := svc.UpdateFacility(adminContext(), &updated); err == nil {
		t.Error("expected error when audit write fails")
	}
}

func TestDeleteFacility(t *testing.T) {
	repo := newFakeRepo()
	rec := &capturingRecorder{}
	svc := newTestService(repo, newFakeAssignments(), rec)

	f := &Facility{Name: "Sunrise Manor"}
	if err := svc.CreateFacility(adminContext(), f); err != nil {
		t.Fatalf("create: %v", err)
	}
	rec.records = nil

	if err := svc.DeleteFacility(adminContext(), f.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(rec.records) != 1 || rec.records[0].Operation != audit.OpDelete {
		t.Fatalf("expected one DELETE audit record, got %+v", rec.records)
	}
	if rec.records[0].OldValues == nil {
		t.Error("delete record should capture the old row")
	}
}

func TestAssignAndUnassignStaff(t *testing.T) {
	assignments := newFakeAssignments()
	rec := &capturingRecorder{}
	svc := newTestService(newFakeRepo(), assignments, rec)

	facilityID := uuid.New()
	a, err := svc.AssignStaff(adminContext(), facilityID, "staff-7")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if a.AssignedBy != "user-1" {
		t.Errorf("assigned_by = %q, want user-1", a.AssignedBy)
	}

	ok, err := svc.IsAssigned(context.Background(), "staff-7", facilityID.String())
	if err != nil || !ok {
		t.Fatalf("IsAssigned = %v, %v; want true", ok, err)
	}

	if err := svc.UnassignStaff(adminContext(), facilityID, "staff-7"); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	ok, _ = svc.IsAssigned(context.Background(), "staff-7", facilityID.String())
	if ok {
		t.Error("assignment should be gone after unassign")
	}

	ops := []audit.Operation{}
	for _, r := range rec.records {
		if r.TableName == "staff_assignments" {
			ops = append(ops, r.Operation)
		}
	}
	if len(ops) != 2 || ops[0] != audit.OpInsert || ops[1] != audit.OpDelete {
		t.Errorf("assignment audit operations = %v", ops)
	}
}
