package authz

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Chain evaluates the fixed, ordered gate pipeline for one request:
// authentication, role, tenant context, facility access. The ordering is an
// explicit invariant, not an emergent property of middleware stacking.
//
// The chain is stateless across requests; the only shared values are the
// read-only gate collaborators.
type Chain struct {
	gates  []Gate
	logger zerolog.Logger
}

// NewChain builds the standard four-gate chain.
func NewChain(resolver PrincipalResolver, assignments FacilityAssignments, logger zerolog.Logger) *Chain {
	return &Chain{
		gates: []Gate{
			&AuthenticationGate{Resolver: resolver},
			&RoleGate{},
			&TenantContextGate{},
			&FacilityAccessGate{Assignments: assignments},
		},
		logger: logger.With().Str("component", "authz-chain").Logger(),
	}
}

// Result is the chain's final outcome: the decision, the enriched state, and
// the gate that denied (empty on allow).
type Result struct {
	Decision Decision
	State    *State
	DeniedBy string
}

// Evaluate runs every gate in order, short-circuiting at the first deny.
// Panics inside a gate resolve to deny: the chain always produces an
// explicit allow/deny, never a crash and never an implicit allow.
func (ch *Chain) Evaluate(c echo.Context, policy RouteSecurityPolicy) (result Result) {
	st := &State{Policy: policy}
	result = Result{State: st}

	defer func() {
		if r := recover(); r != nil {
			ch.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Str("path", c.Request().URL.Path).
				Msg("authorization gate panicked; failing closed")
			result.Decision = Denied("authorization error")
			result.DeniedBy = "chain"
		}
	}()

	for _, gate := range ch.gates {
		decision := gate.Check(c, st)
		if !decision.Allow {
			ch.logger.Warn().
				Str("gate", gate.Name()).
				Str("reason", decision.Reason).
				Str("path", c.Request().URL.Path).
				Str("method", c.Request().Method).
				Msg("request denied")
			result.Decision = decision
			result.DeniedBy = gate.Name()
			return result
		}
		if st.public {
			break
		}
	}

	result.Decision = Allowed()
	return result
}

// Middleware returns echo middleware enforcing the given route policy. On
// deny the caller receives a generic unauthorized/forbidden response; the
// detailed gate reason stays in the server log. On allow the principal,
// tenant scope, and request metadata are threaded into the request context.
func (ch *Chain) Middleware(policy RouteSecurityPolicy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			result := ch.Evaluate(c, policy)
			if !result.Decision.Allow {
				if result.DeniedBy == "authentication" {
					return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
				}
				return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
			}

			ctx := c.Request().Context()
			if p := result.State.Principal; p != nil {
				ctx = WithPrincipal(ctx, p)
				ctx = WithTenantID(ctx, result.State.TenantID)
			}
			ctx = WithRequestMeta(ctx, RequestMeta{
				SessionID: SessionIDFromRequest(c.Request()),
				IPAddress: c.RealIP(),
				UserAgent: c.Request().UserAgent(),
			})
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
