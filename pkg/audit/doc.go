// Package audit records who did what to which record, with before/after
// snapshots, for compliance review and incident forensics.
//
// # Overview
//
// Writes flow through the Recorder, an asynchronous bounded queue drained by
// background workers. Submitting an entry never blocks a request and never
// returns an error; if the queue is full the entry is dropped and counted.
// The Service answers queries: filtered pages, per-entity history, per-user
// activity, critical event feeds, and aggregate statistics.
//
// # Recording
//
// Record a mutation with snapshots:
//
//	recorder.LogWarning(ctx, audit.Entry{
//		Action:      audit.ActionRolePermissionsUpdate,
//		TargetModel: audit.ModelRole,
//		TargetID:    strconv.FormatInt(role.ID, 10),
//		Description: "replaced permissions for role STAFF",
//		Before:      audit.Snapshot(map[string]interface{}{"permissions": before}),
//		After:       audit.Snapshot(map[string]interface{}{"permissions": after}),
//	})
//
// The actor and request ID are filled in from the request context; severity
// defaults to INFO when unset.
//
// # Querying
//
//	page, err := service.Query(ctx, audit.Filter{
//		TargetModel: audit.ModelUser,
//		Severities:  []audit.Severity{audit.SeverityWarning},
//		From:        &since,
//	}, 1, 50)
//
// Filters combine with AND; the slice fields match any of their values.
// Results are newest first.
//
// # Retention
//
// Service.Cleanup deletes entries older than the policy window. With
// archiving enabled, expired entries are first uploaded to S3 as gzipped
// NDJSON batches; an upload failure aborts the run with nothing deleted.
//
// # Related Packages
//
//   - pkg/rbac: records permission changes and gate denials here
//   - pkg/users: records account status changes here
//   - pkg/api: mounts the /admin/system/audit endpoints
package audit
