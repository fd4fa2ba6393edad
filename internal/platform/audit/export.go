package audit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/carebase/carebase/internal/platform/db"
)

// Exporter runs the read-only reporting query over the audit trail: filter
// by date range, tenant, and/or source table; rows ordered by timestamp
// descending with user and facility display names joined in.
type Exporter struct {
	pool *pgxpool.Pool
}

// NewExporter creates an exporter backed by the given pool.
func NewExporter(pool *pgxpool.Pool) *Exporter {
	return &Exporter{pool: pool}
}

type exportQuerier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// conn prefers the tenant-scoped connection so the facilities join resolves
// against the caller's tenant schema.
func (e *Exporter) conn(ctx context.Context) exportQuerier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return e.pool
}

// Export returns the flattened projection for the given filters.
func (e *Exporter) Export(ctx context.Context, params ExportParams) ([]*ExportRow, error) {
	query := `
		SELECT a.id, a.table_name, a.operation, a.row_id,
			a.user_id, COALESCE(u.display_name, ''),
			a.tenant_id, a.facility_id, COALESCE(f.name, ''),
			a.timestamp, a.changed_fields
		FROM shared.audit_log a
		LEFT JOIN shared.users u ON u.id::text = a.user_id
		LEFT JOIN facilities f ON f.id::text = a.facility_id
		WHERE a.timestamp >= $1 AND a.timestamp < $2`
	args := []any{params.StartDate, params.EndDate}

	if params.TenantID != "" {
		args = append(args, params.TenantID)
		query += ` AND a.tenant_id = $` + strconv.Itoa(len(args))
	}
	if params.TableName != "" {
		args = append(args, params.TableName)
		query += ` AND a.table_name = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY a.timestamp DESC`

	rows, err := e.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit export: %w", err)
	}
	defer rows.Close()

	var result []*ExportRow
	for rows.Next() {
		row := &ExportRow{}
		err := rows.Scan(&row.ID, &row.TableName, &row.Operation, &row.RowID,
			&row.UserID, &row.UserName,
			&row.TenantID, &row.FacilityID, &row.FacilityName,
			&row.Timestamp, &row.ChangedFields)
		if err != nil {
			return nil, fmt.Errorf("audit export: scan: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit export: %w", err)
	}
	return result, nil
}

// ExportHandler serves the audit export query surface.
type ExportHandler struct {
	exporter *Exporter
}

// NewExportHandler creates a handler backed by the given exporter.
func NewExportHandler(exporter *Exporter) *ExportHandler {
	return &ExportHandler{exporter: exporter}
}

// RegisterRoutes registers the export route on the provided group.
func (h *ExportHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/audit/export", h.HandleExport)
}

// HandleExport handles GET /audit/export. start_date and end_date are
// required (RFC 3339 or YYYY-MM-DD); tenant_id and table_name are optional.
func (h *ExportHandler) HandleExport(c echo.Context) error {
	params, err := parseExportParams(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.exporter.Export(c.Request().Context(), params)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "export failed")
	}
	if result == nil {
		result = make([]*ExportRow, 0)
	}
	return c.JSON(http.StatusOK, result)
}

func parseExportParams(c echo.Context) (ExportParams, error) {
	params := ExportParams{
		TenantID:  c.QueryParam("tenant_id"),
		TableName: c.QueryParam("table_name"),
	}

	start, err := parseDate(c.QueryParam("start_date"))
	if err != nil {
		return params, fmt.Errorf("invalid start_date")
	}
	end, err := parseDate(c.QueryParam("end_date"))
	if err != nil {
		return params, fmt.Errorf("invalid end_date")
	}
	if !start.Before(end) {
		return params, fmt.Errorf("start_date must precede end_date")
	}

	params.StartDate = start
	params.EndDate = end
	return params, nil
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("missing date")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
