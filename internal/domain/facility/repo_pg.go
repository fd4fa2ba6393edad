package facility

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebase/carebase/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const facilityCols = `id, tenant_id, name, code, address, capacity, active, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, f *Facility) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO facilities (id, tenant_id, name, code, address, capacity, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		f.ID, f.TenantID, f.Name, f.Code, f.Address, f.Capacity, f.Active,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Facility, error) {
	return scanFacility(r.conn(ctx).QueryRow(ctx, `SELECT `+facilityCols+` FROM facilities WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Facility, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM facilities`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+facilityCols+` FROM facilities ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	facilities, err := collectFacilities(rows)
	if err != nil {
		return nil, 0, err
	}
	return facilities, total, nil
}

func collectFacilities(rows pgx.Rows) ([]*Facility, error) {
	defer rows.Close()

	var facilities []*Facility
	for rows.Next() {
		var f Facility
		if err := rows.Scan(&f.ID, &f.TenantID, &f.Name, &f.Code, &f.Address, &f.Capacity, &f.Active, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		facilities = append(facilities, &f)
	}
	// Mid-stream query failures surface here, not in Next.
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return facilities, nil
}

func (r *repoPG) Update(ctx context.Context, f *Facility) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE facilities SET
			name=$2, code=$3, address=$4, capacity=$5, active=$6, updated_at=NOW()
		WHERE id = $1`,
		f.ID, f.Name, f.Code, f.Address, f.Capacity, f.Active,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM facilities WHERE id = $1`, id)
	return err
}

func scanFacility(row pgx.Row) (*Facility, error) {
	var f Facility
	err := row.Scan(&f.ID, &f.TenantID, &f.Name, &f.Code, &f.Address, &f.Capacity, &f.Active, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

type assignmentRepoPG struct {
	pool *pgxpool.Pool
}

func NewAssignmentRepo(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepoPG{pool: pool}
}

func (r *assignmentRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *assignmentRepoPG) Assign(ctx context.Context, a *StaffAssignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO staff_assignments (id, facility_id, user_id, assigned_by)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (facility_id, user_id) DO NOTHING`,
		a.ID, a.FacilityID, a.UserID, a.AssignedBy,
	)
	return err
}

func (r *assignmentRepoPG) Unassign(ctx context.Context, facilityID uuid.UUID, userID string) (*StaffAssignment, error) {
	var a StaffAssignment
	err := r.conn(ctx).QueryRow(ctx, `
		DELETE FROM staff_assignments
		WHERE facility_id = $1 AND user_id = $2
		RETURNING id, facility_id, user_id, assigned_by, assigned_at`,
		facilityID, userID,
	).Scan(&a.ID, &a.FacilityID, &a.UserID, &a.AssignedBy, &a.AssignedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepoPG) IsAssigned(ctx context.Context, userID, facilityID string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM staff_assignments WHERE user_id = $1 AND facility_id::text = $2
		)`, userID, facilityID,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *assignmentRepoPG) ListByFacility(ctx context.Context, facilityID uuid.UUID) ([]*StaffAssignment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, facility_id, user_id, assigned_by, assigned_at
		FROM staff_assignments WHERE facility_id = $1 ORDER BY assigned_at`, facilityID)
	if err != nil {
		return nil, err
	}
	return collectAssignments(rows)
}

func collectAssignments(rows pgx.Rows) ([]*StaffAssignment, error) {
	defer rows.Close()

	var assignments []*StaffAssignment
	for rows.Next() {
		var a StaffAssignment
		if err := rows.Scan(&a.ID, &a.FacilityID, &a.UserID, &a.AssignedBy, &a.AssignedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}
