package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// DBHealth is the payload of the database health endpoint: the outcome of a
// bounded ping plus a snapshot of pool pressure.
type DBHealth struct {
	Status string     `json:"status"`
	PingMS int64      `json:"ping_ms"`
	Error  string     `json:"error,omitempty"`
	Pool   PoolGauges `json:"pool"`
}

// PoolGauges is a point-in-time view of connection pool pressure. EmptyWaits
// counts acquires that had to wait for a free connection; a climbing value
// means the pool is undersized for the tenant traffic it serves.
type PoolGauges struct {
	Total      int32  `json:"total"`
	Idle       int32  `json:"idle"`
	InUse      int32  `json:"in_use"`
	Max        int32  `json:"max"`
	EmptyWaits int64  `json:"empty_waits"`
	WaitTime   string `json:"wait_time"`
}

// Saturated reports whether every connection is in use; requests arriving now
// will queue on acquire.
func (g PoolGauges) Saturated() bool {
	return g.InUse >= g.Max
}

func snapshotPool(pool *pgxpool.Pool) PoolGauges {
	s := pool.Stat()
	return PoolGauges{
		Total:      s.TotalConns(),
		Idle:       s.IdleConns(),
		InUse:      s.AcquiredConns(),
		Max:        s.MaxConns(),
		EmptyWaits: s.EmptyAcquireCount(),
		WaitTime:   s.AcquireDuration().String(),
	}
}

const healthPingWindow = 5 * time.Second

// HealthHandler serves the database health endpoint. The ping is bounded so a
// hung database turns into a fast 503 instead of a stuck health probe.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingWindow)
		defer cancel()

		start := time.Now()
		err := pool.Ping(ctx)

		health := DBHealth{
			PingMS: time.Since(start).Milliseconds(),
			Pool:   snapshotPool(pool),
		}
		if err != nil {
			health.Status = "unreachable"
			health.Error = err.Error()
			return c.JSON(http.StatusServiceUnavailable, health)
		}

		health.Status = "ok"
		return c.JSON(http.StatusOK, health)
	}
}
