// Package audit captures an immutable change trail for tenant-scoped
// mutations: who touched what PHI, when, with before/after field state. The
// trail is append-only; the retention sweep is the only deletion path.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Operation is the mutation kind an audit record describes.
type Operation string

const (
	OpInsert Operation = "INSERT"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// Record is one immutable audit fact describing a committed mutation.
// OldValues/NewValues hold the full row (minus excluded bookkeeping
// columns), not just the diff; ChangedFields is exactly the set of keys
// whose values differ.
type Record struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	TableName     string         `db:"table_name" json:"table_name"`
	Operation     Operation      `db:"operation" json:"operation"`
	RowID         string         `db:"row_id" json:"row_id"`
	UserID        string         `db:"user_id" json:"user_id"`
	TenantID      string         `db:"tenant_id" json:"tenant_id"`
	FacilityID    *string        `db:"facility_id" json:"facility_id,omitempty"`
	Timestamp     time.Time      `db:"timestamp" json:"timestamp"`
	OldValues     map[string]any `db:"old_values" json:"old_values,omitempty"`
	NewValues     map[string]any `db:"new_values" json:"new_values,omitempty"`
	ChangedFields []string       `db:"changed_fields" json:"changed_fields,omitempty"`
	SessionID     string         `db:"session_id" json:"session_id,omitempty"`
	IPAddress     string         `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent     string         `db:"user_agent" json:"user_agent,omitempty"`
}

// ExportRow is the flattened reporting projection of a record, joining user
// and facility display names. Read-only; never a mutation path.
type ExportRow struct {
	ID            uuid.UUID `json:"id"`
	TableName     string    `json:"table_name"`
	Operation     Operation `json:"operation"`
	RowID         string    `json:"row_id"`
	UserID        string    `json:"user_id"`
	UserName      string    `json:"user_name"`
	TenantID      string    `json:"tenant_id"`
	FacilityID    *string   `json:"facility_id,omitempty"`
	FacilityName  string    `json:"facility_name"`
	Timestamp     time.Time `json:"timestamp"`
	ChangedFields []string  `json:"changed_fields,omitempty"`
}

// ExportParams filters the export query. StartDate/EndDate bound the range;
// TenantID and TableName are optional narrowing filters.
type ExportParams struct {
	StartDate time.Time
	EndDate   time.Time
	TenantID  string
	TableName string
}
