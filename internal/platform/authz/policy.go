package authz

// AccessMode declares how an endpoint treats authentication.
type AccessMode int

const (
	// ModeRequired rejects requests without a valid, verified session.
	// This is the default.
	ModeRequired AccessMode = iota
	// ModeOptional resolves a principal when credentials are present but
	// allows anonymous requests through.
	ModeOptional
	// ModePublic allows unconditionally without resolving a principal.
	ModePublic
)

func (m AccessMode) String() string {
	switch m {
	case ModePublic:
		return "public"
	case ModeOptional:
		return "optional"
	default:
		return "required"
	}
}

// RouteSecurityPolicy is the explicit, typed security configuration attached
// to a route at registration time. The zero value is the strictest sensible
// default: authentication required, no role restriction, no facility scoping.
type RouteSecurityPolicy struct {
	// Mode declares the endpoint's authentication mode.
	Mode AccessMode
	// AllowedRoles restricts the endpoint to principals whose role is in
	// the set. Empty means no role restriction.
	AllowedRoles []string
	// RequireFacilityAccess activates the facility gate: the request must
	// name a facility the principal may act on.
	RequireFacilityAccess bool
}

// Decision is the output of one gate: allow or deny with a reason. The
// reason is logged server-side only; callers receive a generic error.
type Decision struct {
	Allow  bool
	Reason string
}

// Allowed is the affirmative decision.
func Allowed() Decision {
	return Decision{Allow: true}
}

// Denied creates a deny decision with the given reason.
func Denied(reason string) Decision {
	return Decision{Allow: false, Reason: reason}
}
