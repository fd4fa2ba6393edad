package placement

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

const placementCols = `id, facility_id, resident_name, uci, social_security_number,
	allergies, medical_conditions, medications, dietary_restrictions,
	emergency_contact_name, emergency_contact_phone, status, admission_date,
	created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *PlacementInfo) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO placement_info (
			id, facility_id, resident_name, uci, social_security_number,
			allergies, medical_conditions, medications, dietary_restrictions,
			emergency_contact_name, emergency_contact_phone, status, admission_date
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		p.ID, p.FacilityID, p.ResidentName, p.UCI, p.SSN,
		p.Allergies, p.MedicalConditions, p.Medications, p.DietaryRestrictions,
		p.EmergencyContactName, p.EmergencyContactPhone, p.Status, p.AdmissionDate,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*PlacementInfo, error) {
	return scanPlacement(r.conn(ctx).QueryRow(ctx,
		`SELECT `+placementCols+` FROM placement_info WHERE id = $1`, id))
}

func (r *repoPG) ListByFacility(ctx context.Context, facilityID uuid.UUID, limit, offset int) ([]*PlacementInfo, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM placement_info WHERE facility_id = $1`, facilityID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+placementCols+` FROM placement_info WHERE facility_id = $1 ORDER BY resident_name LIMIT $2 OFFSET $3`,
		facilityID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	placements, err := collectPlacements(rows)
	if err != nil {
		return nil, 0, err
	}
	return placements, total, nil
}

func collectPlacements(rows pgx.Rows) ([]*PlacementInfo, error) {
	defer rows.Close()

	var placements []*PlacementInfo
	for rows.Next() {
		var p PlacementInfo
		if err := rows.Scan(
			&p.ID, &p.FacilityID, &p.ResidentName, &p.UCI, &p.SSN,
			&p.Allergies, &p.MedicalConditions, &p.Medications, &p.DietaryRestrictions,
			&p.EmergencyContactName, &p.EmergencyContactPhone, &p.Status, &p.AdmissionDate,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		placements = append(placements, &p)
	}
	// A query can fail mid-stream after yielding rows; without this check the
	// caller would see a silently truncated list.
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return placements, nil
}

func (r *repoPG) Update(ctx context.Context, p *PlacementInfo) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE placement_info SET
			resident_name=$2, uci=$3, social_security_number=$4,
			allergies=$5, medical_conditions=$6, medications=$7, dietary_restrictions=$8,
			emergency_contact_name=$9, emergency_contact_phone=$10, status=$11,
			admission_date=$12, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.ResidentName, p.UCI, p.SSN,
		p.Allergies, p.MedicalConditions, p.Medications, p.DietaryRestrictions,
		p.EmergencyContactName, p.EmergencyContactPhone, p.Status, p.AdmissionDate,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM placement_info WHERE id = $1`, id)
	return err
}

func scanPlacement(row pgx.Row) (*PlacementInfo, error) {
	var p PlacementInfo
	err := row.Scan(
		&p.ID, &p.FacilityID, &p.ResidentName, &p.UCI, &p.SSN,
		&p.Allergies, &p.MedicalConditions, &p.Medications, &p.DietaryRestrictions,
		&p.EmergencyContactName, &p.EmergencyContactPhone, &p.Status, &p.AdmissionDate,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
