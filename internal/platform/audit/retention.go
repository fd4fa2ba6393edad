package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DefaultRetentionDays is the audit retention window: two years. Records
// older than this are removed by the scheduled sweep, which is the only
// deletion path for the trail — there is no interactive delete API.
const DefaultRetentionDays = 730

// Sweeper deletes audit records that have aged past the retention window.
type Sweeper struct {
	pool      *pgxpool.Pool
	retention time.Duration
	logger    zerolog.Logger
}

// NewSweeper creates a sweeper. retentionDays <= 0 selects the default.
func NewSweeper(pool *pgxpool.Pool, retentionDays int, logger zerolog.Logger) *Sweeper {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &Sweeper{
		pool:      pool,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		logger:    logger.With().Str("component", "audit-sweeper").Logger(),
	}
}

// Sweep deletes expired records and returns how many were removed.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.retention)

	tag, err := s.pool.Exec(ctx, `DELETE FROM shared.audit_log WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit sweep: %w", err)
	}

	deleted := tag.RowsAffected()
	s.logger.Info().
		Int64("deleted", deleted).
		Time("cutoff", cutoff).
		Msg("audit retention sweep completed")
	return deleted, nil
}

// Run sweeps on the given interval until the context is cancelled. Intended
// to be launched once from bootstrap as a background goroutine.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error().Err(err).Msg("audit retention sweep failed")
			}
		}
	}
}
