// Package rbac implements role-based access control: the permission catalog,
// role storage and administration, the role-to-permissions cache behind the
// auth middleware, and the HTTP gates that protect routes.
//
// # Overview
//
// A permission is an opaque string DOMAIN:ACTION:SCOPE drawn from a
// compiled-in catalog. A role is a named set of permissions stored as JSONB;
// users reference roles by name. What a request may do is decided entirely
// from the AuthContext the auth middleware resolved for it.
//
// # Gates
//
// Routes are protected by wrapping handlers with Guard gates:
//
//	guard := rbac.NewGuard(metrics, recorder, logger)
//	router.Handle("/admin/roles",
//		guard.RequirePermission(rbac.PermRoleRead)(listRoles)).Methods("GET")
//
// A request without an identity gets 401 with no hint of what the route
// requires; an authenticated request missing the permission gets 403 naming
// the rule it failed. Denials are counted and recorded to the audit trail.
//
// RequireOwnership gates self-service routes: the route id must equal the
// caller's own user id unless the caller holds one of OwnershipOverrides.
//
// # Administration
//
// Service carries the admin operations: list/fetch roles, replace or
// add/remove single permissions (validated against the catalog, audited with
// before/after snapshots, cache-invalidated), the permission catalog mirror
// and its sync, and per-role user counts.
//
// # Related Packages
//
//   - pkg/auth: resolves bearer tokens into AuthContexts via PermissionsForRole
//   - pkg/audit: receives permission-change and denial entries
//   - pkg/api: mounts the /admin/roles and /admin/permissions endpoints
package rbac
