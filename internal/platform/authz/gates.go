package authz

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/labstack/echo/v4"
)

// State is the request context enriched as the chain runs: the resolved
// principal, the tenant scope, and the facility the request targets. It is
// request-local and discarded at end of request.
type State struct {
	Policy     RouteSecurityPolicy
	Principal  *Principal
	TenantID   string
	FacilityID string

	// public is set by the authentication gate for public-mode endpoints;
	// the chain stops evaluating and allows.
	public bool
}

// Gate is one authorization check in the chain: a function of principal and
// request context to allow/deny.
type Gate interface {
	Name() string
	Check(c echo.Context, st *State) Decision
}

// FacilityAssignments is the lookup collaborator the facility gate uses to
// decide whether a STAFF principal is assigned to a facility. The lookup is
// I/O-bound and honors the request context.
type FacilityAssignments interface {
	IsAssigned(ctx context.Context, userID, facilityID string) (bool, error)
}

// ---------- AuthenticationGate ----------

// AuthenticationGate resolves the request's principal according to the
// endpoint's access mode. It is always the first gate.
type AuthenticationGate struct {
	Resolver PrincipalResolver
}

func (g *AuthenticationGate) Name() string { return "authentication" }

func (g *AuthenticationGate) Check(c echo.Context, st *State) Decision {
	if st.Policy.Mode == ModePublic {
		st.public = true
		return Allowed()
	}

	principal, err := g.Resolver.Resolve(c.Request().Context(), c.Request())
	if err != nil {
		if st.Policy.Mode == ModeOptional {
			// Resolution failure on an optional endpoint degrades to an
			// anonymous request: allowed with no principal attached.
			return Allowed()
		}
		return Denied("authentication required")
	}

	// A resolved principal is always held to the full bar, even in
	// optional mode.
	if !principal.EmailVerified {
		return Denied("email verification required")
	}
	if principal.TenantID == "" {
		return Denied("tenant context required")
	}
	if principal.Role == "" {
		return Denied("user role required")
	}

	st.Principal = principal
	return Allowed()
}

// ---------- RoleGate ----------

// RoleGate checks exact-string membership of the principal's role in the
// endpoint's allowed set. An empty set means no role restriction. Hierarchy
// is never consulted here; see RoleAtLeast for the derived capability check.
type RoleGate struct{}

func (g *RoleGate) Name() string { return "role" }

func (g *RoleGate) Check(c echo.Context, st *State) Decision {
	if len(st.Policy.AllowedRoles) == 0 {
		return Allowed()
	}
	if st.Principal == nil {
		return Denied("insufficient permissions")
	}
	for _, allowed := range st.Policy.AllowedRoles {
		if st.Principal.Role == allowed {
			return Allowed()
		}
	}
	return Denied("insufficient permissions")
}

// ---------- TenantContextGate ----------

// TenantContextGate re-validates tenant presence and threads the tenant ID
// into the state so every downstream data access is tenant-scoped. The check
// is defensive: the authentication gate already rejected principals without
// a tenant, but this gate does not rely on that.
type TenantContextGate struct{}

func (g *TenantContextGate) Name() string { return "tenant" }

func (g *TenantContextGate) Check(c echo.Context, st *State) Decision {
	if st.Principal == nil {
		// Anonymous optional-mode request: no tenant scope to establish.
		return Allowed()
	}
	if st.Principal.TenantID == "" {
		return Denied("tenant context not found")
	}
	st.TenantID = st.Principal.TenantID
	return Allowed()
}

// ---------- FacilityAccessGate ----------

// FacilityAccessGate enforces facility-scoped access on endpoints that
// declare it. OWNER and ADMIN have tenant-wide facility access; STAFF must
// be assigned to the facility; any other role is denied.
type FacilityAccessGate struct {
	Assignments FacilityAssignments
}

func (g *FacilityAccessGate) Name() string { return "facility" }

func (g *FacilityAccessGate) Check(c echo.Context, st *State) Decision {
	if !st.Policy.RequireFacilityAccess {
		return Allowed()
	}

	facilityID := extractFacilityID(c)
	if facilityID == "" {
		return Denied("facility ID required")
	}
	st.FacilityID = facilityID

	if st.Principal == nil {
		return Denied("insufficient facility access permissions")
	}

	switch st.Principal.Role {
	case RoleOwner, RoleAdmin:
		return Allowed()
	case RoleStaff:
		// The gate runs before any tenant-scoped resources exist on the
		// request context, so it passes the tenant along for the lookup.
		ctx := WithTenantID(c.Request().Context(), st.TenantID)
		assigned, err := g.Assignments.IsAssigned(ctx, st.Principal.UserID, facilityID)
		if err != nil {
			// Lookup failure resolves to deny, never to allow.
			return Denied("facility assignment lookup failed")
		}
		if !assigned {
			return Denied("insufficient facility access permissions")
		}
		return Allowed()
	default:
		return Denied("insufficient facility access permissions")
	}
}

// extractFacilityID finds the facility the request targets. Priority order:
// path parameter, request body, query string; first non-empty value wins.
// Both facilityId and facility_id spellings are accepted at each location.
func extractFacilityID(c echo.Context) string {
	for _, name := range []string{"facilityId", "facility_id"} {
		if v := c.Param(name); v != "" {
			return v
		}
	}

	if v := facilityIDFromBody(c); v != "" {
		return v
	}

	for _, name := range []string{"facilityId", "facility_id"} {
		if v := c.QueryParam(name); v != "" {
			return v
		}
	}
	return ""
}

// facilityIDFromBody peeks at a JSON request body for a facility ID. The
// body is restored afterwards so the handler can still bind it.
func facilityIDFromBody(c echo.Context) string {
	req := c.Request()
	if req.Body == nil || req.ContentLength == 0 {
		return ""
	}

	raw, err := io.ReadAll(req.Body)
	req.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	for _, name := range []string{"facilityId", "facility_id"} {
		if v, ok := body[name].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
