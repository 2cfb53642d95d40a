// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for the uniform response envelope,
// JSON encoding/decoding, parameter parsing, and common HTTP middleware.
//
// # Response Envelope
//
// Every JSON endpoint answers with the same shape:
//
//	{"success": true, "message": "...", "data": {...}}
//
// Errors carry success=false plus optional machine-readable context:
//
//	{"success": false, "message": "Insufficient permissions", "required": "ROLE:MANAGE:ANY"}
//
// Success responses:
//
//	httputil.WriteSuccess(w, data)
//	httputil.WriteSuccessMessage(w, "Permission added", role)
//	httputil.WriteCreated(w, resource)
//
// Error responses:
//
//	httputil.WriteBadRequest(w, "Invalid input")
//	httputil.WriteUnauthorized(w, "Authentication required")
//	httputil.WriteForbidden(w, "Insufficient permissions", map[string]interface{}{"required": perm})
//	httputil.WriteNotFoundError(w, "Role not found")
//
// # Request Parsing
//
// JSON parsing:
//
//	var req UpdatePermissionsRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
// Path and query parameters:
//
//	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
//	name, ok := httputil.ParsePathStringOrError(w, r, "name")
//	days, err := httputil.ParseQueryInt(r, "days", 7)
//	from, err := httputil.ParseQueryTime(r, "fromDate")
//	page, limit, err := httputil.ParsePagination(r, 50, 500)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.RecoveryMiddleware,
//		httputil.MaxBytesMiddleware(1024*1024),
//	)
//
// # Related Packages
//
//   - pkg/auth: Authentication middleware attaching AuthContext
//   - pkg/rbac: Permission gate middleware built on these helpers
package httputil
