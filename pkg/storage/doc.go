// Package storage provides the persistence infrastructure for Maestro.
//
// # Overview
//
// This package holds the shared storage configuration and, in the postgres
// subpackage, the connection plumbing used by the domain stores: a PostgreSQL
// connection manager with read replica support, a Redis client for the role
// permission cache and janitor coordination, and an S3 client for audit
// archive objects.
//
// The domain stores themselves live next to their domains (pkg/rbac,
// pkg/audit, pkg/users) and receive *sql.DB handles from the connection
// manager rather than owning connections.
//
// # Connection Manager
//
// ConnectionManager separates writes from reads. Writes always go to the
// primary; reads round-robin across healthy replicas and fall back to the
// primary when none are configured:
//
//	cm, err := postgres.NewConnectionManager(postgres.ConnectionConfig{
//		PrimaryURL:  cfg.PostgresURL,
//		ReplicaURLs: postgres.ParseReplicaURLs(cfg.PostgresReplicaURLs),
//		MaxConns:    cfg.PostgresMaxConns,
//		MinConns:    cfg.PostgresMinConns,
//		Timeout:     cfg.PostgresTimeout,
//	}, logger)
//
//	writeDB := cm.Primary()
//	readDB := cm.Replica()
//
// A background routine started with StartHealthCheckRoutine drops replicas
// that stop answering pings.
//
// # Redis
//
// RedisClient caches role permission sets keyed by role name with a
// configurable TTL, and provides SETNX-based locks so only one janitor
// instance runs a retention sweep at a time. A Redis outage never fails a
// request; callers treat cache errors as misses and read through to
// PostgreSQL.
//
// # S3
//
// S3Client stores audit archive objects written by the retention janitor.
// It works against AWS S3 or MinIO (set S3Endpoint, S3UsePathStyle and
// static credentials for the latter) and creates the configured bucket on
// startup for local development.
//
// # Related Packages
//
//   - pkg/config: Loads Config from MAESTRO_* environment variables
//   - pkg/rbac: Role store and the two-tier permission cache
//   - pkg/audit: Audit store, recorder, and archival
package storage
