package facility

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebase/carebase/internal/platform/authz"
	"github.com/carebase/carebase/internal/platform/db"
)

// GateLookup answers the authorization chain's facility-access checks. The
// chain runs before the tenant middleware has scoped a connection, so the
// lookup acquires its own and sets the tenant search path from the tenant
// the chain established.
type GateLookup struct {
	pool *pgxpool.Pool
}

func NewGateLookup(pool *pgxpool.Pool) *GateLookup {
	return &GateLookup{pool: pool}
}

func (l *GateLookup) IsAssigned(ctx context.Context, userID, facilityID string) (bool, error) {
	tenantID := authz.TenantIDFromContext(ctx)
	if tenantID == "" {
		return false, fmt.Errorf("no tenant in context")
	}
	schema, err := db.SchemaForTenant(tenantID)
	if err != nil {
		return false, err
	}

	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	err = conn.QueryRow(ctx, fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM %s.staff_assignments WHERE user_id = $1 AND facility_id::text = $2
		)`, schema), userID, facilityID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("assignment lookup: %w", err)
	}
	return exists, nil
}
