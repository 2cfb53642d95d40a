// Package users is the minimal user directory behind the admin surface.
//
// It exists to serve role-distribution statistics, the ownership-gated
// self-service routes, and the admin status/archive operations. It is not an
// account system: there is no registration, no credentials, no profile
// editing. Records carry an email, a name, a role, a lifecycle status and an
// archived flag.
//
// Status changes, archival and bulk updates leave entries in the audit trail
// via pkg/audit. Archival is a soft delete: archived users drop out of
// listings and role statistics but stay readable by ID.
package users
