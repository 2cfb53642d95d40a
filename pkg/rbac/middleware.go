package rbac

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/maestroapp/maestro/pkg/audit"
	"github.com/maestroapp/maestro/pkg/auth"
	"github.com/maestroapp/maestro/pkg/httputil"
	"github.com/maestroapp/maestro/pkg/observability"
)

// Gate labels for the authz decision metric
const (
	gatePermission     = "permission"
	gateAllPermissions = "all_permissions"
	gateAnyPermission  = "any_permission"
	gateRole           = "role"
	gateOwnership      = "ownership"
)

// Guard builds route gates over the AuthContext. Each gate is a pure
// predicate: it either passes the request through or ends it with 401/403.
// Denials are counted and, when an identity is present, land in the audit
// trail as WARNING entries.
type Guard struct {
	metrics *observability.Metrics
	sink    AuditSink
	logger  *observability.Logger
}

// NewGuard creates a Guard. sink may be nil to skip the denial trail.
func NewGuard(metrics *observability.Metrics, sink AuditSink, logger *observability.Logger) *Guard {
	return &Guard{
		metrics: metrics,
		sink:    sink,
		logger:  logger,
	}
}

// RequirePermission passes requests whose identity holds permission p
func (g *Guard) RequirePermission(p string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := auth.FromRequest(r)
			if !ok {
				g.unauthenticated(w, r, gatePermission)
				return
			}
			if !ac.HasPermission(p) {
				g.denied(w, r, ac, gatePermission,
					fmt.Sprintf("missing permission %s", p),
					map[string]interface{}{"required": p})
				return
			}
			g.allowed(w, r, next, gatePermission)
		})
	}
}

// RequireAllPermissions passes requests whose identity holds every listed
// permission
func (g *Guard) RequireAllPermissions(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := auth.FromRequest(r)
			if !ok {
				g.unauthenticated(w, r, gateAllPermissions)
				return
			}
			if !ac.HasAllPermissions(perms...) {
				g.denied(w, r, ac, gateAllPermissions,
					fmt.Sprintf("requires all of %s", strings.Join(perms, ", ")),
					map[string]interface{}{"required": perms})
				return
			}
			g.allowed(w, r, next, gateAllPermissions)
		})
	}
}

// RequireAnyPermission passes requests whose identity holds at least one of
// the listed permissions
func (g *Guard) RequireAnyPermission(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := auth.FromRequest(r)
			if !ok {
				g.unauthenticated(w, r, gateAnyPermission)
				return
			}
			if !ac.HasAnyPermission(perms...) {
				g.denied(w, r, ac, gateAnyPermission,
					fmt.Sprintf("requires one of %s", strings.Join(perms, ", ")),
					map[string]interface{}{"requiredAny": perms})
				return
			}
			g.allowed(w, r, next, gateAnyPermission)
		})
	}
}

// RequireRole passes requests whose identity carries one of the listed roles
func (g *Guard) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := auth.FromRequest(r)
			if !ok {
				g.unauthenticated(w, r, gateRole)
				return
			}
			if !ac.HasRole(roles...) {
				g.denied(w, r, ac, gateRole,
					fmt.Sprintf("requires role %s", strings.Join(roles, " or ")),
					map[string]interface{}{"requiredRoles": roles, "role": ac.Role})
				return
			}
			g.allowed(w, r, next, gateRole)
		})
	}
}

// RequireOwnership passes requests whose route variable idField equals the
// caller's own user id, or whose identity holds one of the ownership override
// permissions.
func (g *Guard) RequireOwnership(idField string) func(http.Handler) http.Handler {
	overrides := OwnershipOverrides()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := auth.FromRequest(r)
			if !ok {
				g.unauthenticated(w, r, gateOwnership)
				return
			}
			raw, ok := mux.Vars(r)[idField]
			if !ok {
				httputil.WriteInternalError(w, fmt.Errorf("route has no %q variable", idField))
				return
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				httputil.WriteBadRequest(w, fmt.Sprintf("invalid %s: %s", idField, raw))
				return
			}
			if id != ac.UserID && !ac.HasAnyPermission(overrides...) {
				g.denied(w, r, ac, gateOwnership,
					fmt.Sprintf("not the owner of %s %d", idField, id),
					map[string]interface{}{"field": idField})
				return
			}
			g.allowed(w, r, next, gateOwnership)
		})
	}
}

func (g *Guard) allowed(w http.ResponseWriter, r *http.Request, next http.Handler, gate string) {
	g.metrics.RecordAuthzDecision(r.Context(), gate, observability.DecisionAllowed)
	next.ServeHTTP(w, r)
}

// unauthenticated ends the request with a bare 401 whose message carries no
// hint of what the route requires.
func (g *Guard) unauthenticated(w http.ResponseWriter, r *http.Request, gate string) {
	g.metrics.RecordAuthzDecision(r.Context(), gate, observability.DecisionUnauthenticated)
	httputil.WriteUnauthorized(w, "authentication required")
}

func (g *Guard) denied(w http.ResponseWriter, r *http.Request, ac *auth.AuthContext, gate, reason string, context map[string]interface{}) {
	g.metrics.RecordAuthzDecision(r.Context(), gate, observability.DecisionDenied)
	if g.sink != nil {
		g.sink.LogWarning(r.Context(), audit.Entry{
			Action:      audit.ActionPermissionDenied,
			Description: fmt.Sprintf("%s %s denied for role %s: %s", r.Method, r.URL.Path, ac.Role, reason),
			Method:      r.Method,
			Endpoint:    r.URL.Path,
		})
	}
	httputil.WriteForbidden(w, "permission denied", context)
}
