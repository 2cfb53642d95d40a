package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/maestroapp/maestro/pkg/observability"
)

// PermissionResolver resolves a role name into its permission set. The RBAC
// service implements this through its role cache.
type PermissionResolver interface {
	PermissionsForRole(ctx context.Context, role string) ([]string, error)
}

// Middleware resolves the Authorization bearer token into an AuthContext and
// stores it on the request context. Requests without a usable token pass
// through unauthenticated; the RBAC gates decide whether that matters.
// An unresolvable role also yields no AuthContext (fail closed).
func Middleware(verifier *TokenVerifier, resolver PermissionResolver, logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				logger.WithError(err).Debug("Rejected bearer token")
				next.ServeHTTP(w, r)
				return
			}

			userID, err := claims.UserID()
			if err != nil {
				logger.WithError(err).Debug("Rejected bearer token subject")
				next.ServeHTTP(w, r)
				return
			}

			permissions, err := resolver.PermissionsForRole(r.Context(), claims.Role)
			if err != nil {
				logger.WithError(err).WithField("role", claims.Role).Warn("Failed to resolve role permissions")
				next.ServeHTTP(w, r)
				return
			}

			ac := &AuthContext{
				UserID:      userID,
				Role:        claims.Role,
				Permissions: permissions,
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), ac)))
		})
	}
}

// extractBearerToken extracts the token from "Authorization: Bearer <token>".
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
