// Package authz implements the request authorization pipeline: an ordered
// chain of gates that converts an inbound request plus session into an
// allow/deny decision scoped by authentication, role, tenant, and facility.
// The chain fails closed: any ambiguous or error condition resolves to deny.
package authz

import (
	"context"
)

// Built-in roles. Tenants may additionally define custom role names, which
// are matched as opaque strings.
const (
	RoleOwner = "OWNER"
	RoleAdmin = "ADMIN"
	RoleStaff = "STAFF"
)

// Principal is the resolved identity for one request. It is constructed once
// per request from the identity provider's session, never mutated, and never
// persisted.
type Principal struct {
	UserID        string
	TenantID      string
	Role          string
	EmailVerified bool
}

type contextKey string

const (
	principalKey contextKey = "authz_principal"
	tenantIDKey  contextKey = "authz_tenant_id"
	requestKey   contextKey = "authz_request_meta"
)

// RequestMeta carries the per-request client context the audit trail records
// alongside the principal: session, network address, and user agent.
type RequestMeta struct {
	SessionID string
	IPAddress string
	UserAgent string
}

// WithPrincipal returns a context carrying the principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the request principal, or nil when the
// request is anonymous.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// WithTenantID returns a context carrying the tenant scope so every
// downstream data access is implicitly tenant-scoped.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// TenantIDFromContext returns the tenant scope established by the chain.
func TenantIDFromContext(ctx context.Context) string {
	tid, _ := ctx.Value(tenantIDKey).(string)
	return tid
}

// WithRequestMeta returns a context carrying the request client metadata.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestKey, meta)
}

// RequestMetaFromContext returns the request client metadata, zero-valued
// when the chain has not run.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestKey).(RequestMeta)
	return meta
}

// RoleAtLeast reports whether role sits at or above min in the built-in
// hierarchy OWNER > ADMIN > STAFF. Custom roles rank below STAFF. This is a
// derived capability check for business logic; the role gate itself uses
// exact membership, never hierarchy.
func RoleAtLeast(role, min string) bool {
	return roleRank(role) >= roleRank(min)
}

func roleRank(role string) int {
	switch role {
	case RoleOwner:
		return 3
	case RoleAdmin:
		return 2
	case RoleStaff:
		return 1
	default:
		return 0
	}
}
