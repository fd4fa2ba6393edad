package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebase/carebase/internal/platform/db"
)

// Recorder persists audit records. A failed write must fail the enclosing
// mutation: implementations are expected to write inside the caller's
// transaction so both commit or roll back as one unit.
type Recorder interface {
	Record(ctx context.Context, rec *Record) error
}

// RecorderFunc is a function adapter for Recorder.
type RecorderFunc func(ctx context.Context, rec *Record) error

func (f RecorderFunc) Record(ctx context.Context, rec *Record) error {
	return f(ctx, rec)
}

// PGRecorder writes audit records to the audit_log table. It prefers the
// transaction on the context (the atomicity contract), then the
// tenant-scoped connection, then the pool.
type PGRecorder struct {
	pool *pgxpool.Pool
}

// NewPGRecorder creates a recorder backed by the given pool.
func NewPGRecorder(pool *pgxpool.Pool) *PGRecorder {
	return &PGRecorder{pool: pool}
}

// The audit trail lives in the shared schema, not per-tenant schemas, so the
// retention sweep and cross-tenant export operate on one table. Records carry
// tenant_id for scoping.
const insertRecordSQL = `
	INSERT INTO shared.audit_log (
		id, table_name, operation, row_id, user_id, tenant_id, facility_id,
		timestamp, old_values, new_values, changed_fields,
		session_id, ip_address, user_agent
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

func (r *PGRecorder) Record(ctx context.Context, rec *Record) error {
	args := []any{
		rec.ID, rec.TableName, rec.Operation, rec.RowID, rec.UserID, rec.TenantID, rec.FacilityID,
		rec.Timestamp, rec.OldValues, rec.NewValues, rec.ChangedFields,
		rec.SessionID, rec.IPAddress, rec.UserAgent,
	}

	if tx := db.TxFromContext(ctx); tx != nil {
		if _, err := tx.Exec(ctx, insertRecordSQL, args...); err != nil {
			return fmt.Errorf("audit record: %w", err)
		}
		return nil
	}

	if conn := db.ConnFromContext(ctx); conn != nil {
		if _, err := conn.Exec(ctx, insertRecordSQL, args...); err != nil {
			return fmt.Errorf("audit record: %w", err)
		}
		return nil
	}

	if _, err := r.pool.Exec(ctx, insertRecordSQL, args...); err != nil {
		return fmt.Errorf("audit record: %w", err)
	}
	return nil
}
