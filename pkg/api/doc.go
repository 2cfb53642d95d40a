// Package api assembles the Maestro admin HTTP server.
//
// # Overview
//
// This package wires the role, user and audit handler groups into a single
// gorilla/mux router, puts each route behind its permission gate, and wraps
// the router in the shared middleware chain. It owns no domain logic of its
// own; the handlers live in pkg/rbac, pkg/users and pkg/audit and are mounted
// here with their guards.
//
// # Architecture
//
// The middleware chain runs outermost first:
//
//   - Panic recovery
//   - Request ID assignment (X-Request-ID, echoed back)
//   - Request logging
//   - Prometheus HTTP metrics
//   - CORS
//   - Content-Type enforcement for mutating requests
//   - Request body size limit
//   - Bearer token authentication and permission resolution
//   - Audit trail recording
//
// Authentication runs before the audit trail so trail entries carry the
// resolved actor. Unauthenticated requests pass through the chain and are
// rejected by the per-route gates, not by the middleware.
//
// # Key Types
//
// Server is the assembled admin API:
//
//	server := api.NewServer(api.Options{
//		Config:   cfg,
//		Logger:   logger,
//		Metrics:  metrics,
//		Verifier: verifier,
//		Resolver: roleService,
//		Guard:    guard,
//		Recorder: recorder,
//		Audit:    auditService,
//		Roles:    roleService,
//		Users:    userService,
//	})
//	httpServer := api.NewHTTPServer(cfg.Server, server)
//
// # API Endpoints
//
// Role administration (ROLE:READ:ANY to read, ROLE:MANAGE:ANY to change):
//
//	GET    /admin/roles                                - List roles
//	GET    /admin/roles/stats                          - User count per role
//	GET    /admin/roles/name/{name}                    - Get role by name
//	GET    /admin/roles/{id}                           - Get role by id
//	PUT    /admin/roles/{id}/permissions               - Replace role permissions
//	POST   /admin/roles/{id}/permissions               - Add one permission
//	DELETE /admin/roles/{id}/permissions/{permission}  - Remove one permission
//	GET    /admin/permissions                          - List the permission catalog
//	POST   /admin/permissions/sync                     - Sync catalog to the database
//	GET    /admin/permissions/{name}                   - Get one catalog entry
//
// User directory (USER:READ:ANY, USER:MANAGE:ANY, USER:ARCHIVE:ANY):
//
//	GET    /admin/users                  - List users with filters and pagination
//	POST   /admin/users/bulk/status      - Set status on many users at once
//	PATCH  /admin/users/{id}/status      - Set one user's status
//	POST   /admin/users/{id}/archive     - Archive (soft delete) a user
//	GET    /users/{userId}               - Own record, or any record with USER:READ:ANY
//
// Audit trail (AUDIT:READ:ANY to query, AUDIT:EXPORT:ANY to export):
//
//	GET    /admin/system/audit                        - Query entries, newest first
//	GET    /admin/system/audit/stats                  - Aggregate counts
//	GET    /admin/system/audit/critical               - Recent CRITICAL entries
//	GET    /admin/system/audit/export                 - Stream entries as CSV or JSON
//	GET    /admin/system/audit/entity/{model}/{id}    - History of one record
//	GET    /admin/system/audit/user/{userId}          - Actions of one user
//
// Operational endpoints are served separately on the health port via
// NewOpsHandler and NewOpsServer: /healthz, /readyz and /metrics.
package api
