package audit

import (
	"context"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/carebase/carebase/internal/platform/authz"
)

// excludedColumns are volatile bookkeeping columns maintained by the storage
// layer itself. They never count as a change and are stripped from captured
// row state, so timestamp-only writes do not pollute the trail.
var excludedColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
}

// ChangedFields returns the sorted set of keys whose values differ between
// old and new, excluding bookkeeping columns. Keys present on only one side
// count as changed.
func ChangedFields(oldValues, newValues map[string]any) []string {
	seen := make(map[string]bool, len(oldValues)+len(newValues))
	var changed []string

	for key, oldVal := range oldValues {
		seen[key] = true
		if excludedColumns[key] {
			continue
		}
		newVal, ok := newValues[key]
		if !ok || !reflect.DeepEqual(oldVal, newVal) {
			changed = append(changed, key)
		}
	}
	for key := range newValues {
		if seen[key] || excludedColumns[key] {
			continue
		}
		changed = append(changed, key)
	}

	sort.Strings(changed)
	return changed
}

// stripExcluded returns a copy of row without bookkeeping columns.
func stripExcluded(row map[string]any) map[string]any {
	if row == nil {
		return nil
	}
	out := make(map[string]any, len(row))
	for key, value := range row {
		if excludedColumns[key] {
			continue
		}
		out[key] = value
	}
	return out
}

// facilityIDOf opportunistically copies a facility-shaped column from the
// row, keeping the audit schema uniform across entities that do and do not
// carry facility scoping.
func facilityIDOf(row map[string]any) *string {
	for _, name := range []string{"facility_id", "facilityId"} {
		if v, ok := row[name].(string); ok && v != "" {
			return &v
		}
	}
	return nil
}

// newRecord builds the common fields of an audit record. Identity and client
// context come from the request context the authorization chain established;
// the audit trail never re-derives identity on its own, so the chain's
// principal and the audit's blame can never drift apart.
func newRecord(ctx context.Context, table string, op Operation, rowID string) *Record {
	rec := &Record{
		ID:        uuid.New(),
		TableName: table,
		Operation: op,
		RowID:     rowID,
		Timestamp: time.Now().UTC(),
	}
	if p := authz.PrincipalFromContext(ctx); p != nil {
		rec.UserID = p.UserID
		rec.TenantID = p.TenantID
	}
	if rec.TenantID == "" {
		rec.TenantID = authz.TenantIDFromContext(ctx)
	}
	meta := authz.RequestMetaFromContext(ctx)
	rec.SessionID = meta.SessionID
	rec.IPAddress = meta.IPAddress
	rec.UserAgent = meta.UserAgent
	return rec
}

// NewInsert builds the audit record for a row creation. OldValues is nil.
func NewInsert(ctx context.Context, table, rowID string, newValues map[string]any) *Record {
	rec := newRecord(ctx, table, OpInsert, rowID)
	rec.NewValues = stripExcluded(newValues)
	rec.FacilityID = facilityIDOf(newValues)
	return rec
}

// NewUpdate builds the audit record for a row update. When no non-excluded
// field effectively changed, the second return is false and no record must
// be written: no-op writes are invisible to the audit trail by design.
func NewUpdate(ctx context.Context, table, rowID string, oldValues, newValues map[string]any) (*Record, bool) {
	changed := ChangedFields(oldValues, newValues)
	if len(changed) == 0 {
		return nil, false
	}

	rec := newRecord(ctx, table, OpUpdate, rowID)
	rec.OldValues = stripExcluded(oldValues)
	rec.NewValues = stripExcluded(newValues)
	rec.ChangedFields = changed
	rec.FacilityID = facilityIDOf(newValues)
	if rec.FacilityID == nil {
		rec.FacilityID = facilityIDOf(oldValues)
	}
	return rec, true
}

// NewDelete builds the audit record for a row deletion. NewValues is nil.
func NewDelete(ctx context.Context, table, rowID string, oldValues map[string]any) *Record {
	rec := newRecord(ctx, table, OpDelete, rowID)
	rec.OldValues = stripExcluded(oldValues)
	rec.FacilityID = facilityIDOf(oldValues)
	return rec
}
