package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carebase/carebase/internal/platform/authz"
)

// Logger emits one structured line per request, after the handler returns. By
// then the authorization chain has swapped an enriched request in, so lines
// for authorized requests carry the same user and tenant the audit trail
// records, and the request ID makes log lines and audit rows joinable.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			// Re-read the request: route middleware may have replaced it.
			req := c.Request()

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}

			rid, _ := c.Get("request_id").(string)
			evt = evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Int64("bytes_out", c.Response().Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP())

			if p := authz.PrincipalFromContext(req.Context()); p != nil {
				evt = evt.
					Str("user_id", p.UserID).
					Str("tenant_id", p.TenantID)
			}

			evt.Msg("request")
			return err
		}
	}
}
