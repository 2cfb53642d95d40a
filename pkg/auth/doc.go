// Package auth provides request authentication context for the Maestro backend.
//
// # Overview
//
// This package turns an inbound bearer token into an AuthContext: the caller's
// user id, role name, and resolved permission set. Token issuance lives with
// the upstream identity provider; Maestro only verifies and resolves.
//
// # Authorization Context
//
// AuthContext is request-scoped and carried on context.Context:
//
//	ac, ok := auth.FromRequest(r)
//	if !ok {
//		// unauthenticated request
//	}
//	if ac.HasPermission("STUDENT:READ:ANY") {
//		// ...
//	}
//
// Permission strings have the form DOMAIN:ACTION:SCOPE. The predicates
// HasPermission, HasAnyPermission, and HasAllPermissions are plain set
// membership checks; policy decisions (401 vs 403, override sets) belong to
// the gates in pkg/rbac.
//
// # Middleware
//
// Middleware extracts "Authorization: Bearer <token>", verifies the HS256
// signature and registered claims, resolves the role's permission set through
// the given PermissionResolver, and stores the AuthContext:
//
//	verifier := auth.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
//	router.Use(auth.Middleware(verifier, rbacService, logger))
//
// Requests without a usable token pass through unauthenticated rather than
// being rejected here; the RBAC gates answer with 401 where authentication is
// required. A token whose role cannot be resolved is treated the same way.
//
// # Related Packages
//
//   - pkg/rbac: permission gates and the role→permission resolver
//   - pkg/contextkeys: context key definitions
//   - pkg/api: middleware chain assembly
package auth
