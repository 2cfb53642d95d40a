// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	MAESTRO_HOST="0.0.0.0"
//	MAESTRO_PORT="8080"
//	MAESTRO_HEALTH_PORT="9090"
//	MAESTRO_READ_TIMEOUT="15s"
//	MAESTRO_WRITE_TIMEOUT="15s"
//	MAESTRO_ALLOWED_ORIGINS="https://app.example.com,https://admin.example.com"
//
// Storage settings:
//
//	MAESTRO_POSTGRES_URL="postgres://localhost/maestro"
//	MAESTRO_POSTGRES_REPLICA_URLS="postgres://replica1/maestro,postgres://replica2/maestro"
//	MAESTRO_POSTGRES_MAX_CONNS="20"
//	MAESTRO_S3_BUCKET="maestro-audit-archive"
//	MAESTRO_S3_REGION="us-east-1"
//
// Cache settings:
//
//	MAESTRO_CACHE_ENABLED="true"
//	MAESTRO_REDIS_URL="redis://localhost:6379"
//	MAESTRO_REDIS_POOL_SIZE="10"
//	MAESTRO_L1_CACHE_ENTRIES="256"
//	MAESTRO_ROLE_CACHE_TTL="5m"
//
// Auth settings:
//
//	MAESTRO_JWT_SECRET="..."  # required
//	MAESTRO_JWT_ISSUER="maestro"
//
// Audit settings:
//
//	MAESTRO_AUDIT_QUEUE_SIZE="1024"
//	MAESTRO_AUDIT_WORKERS="2"
//	MAESTRO_AUDIT_RETENTION_DAYS="365"
//	MAESTRO_AUDIT_ARCHIVE_ENABLED="false"
//
// Observability settings:
//
//	MAESTRO_LOG_LEVEL="info"  # debug, info, warn, error
//	MAESTRO_METRICS_ENABLED="true"
//	MAESTRO_OTEL_ENABLED="false"
//	MAESTRO_OTEL_ENDPOINT="otel-collector:4317"
//	MAESTRO_OTEL_SAMPLE_RATIO="1.0"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)
//
// # Related Packages
//
//   - pkg/storage: Uses storage configuration
//   - pkg/observability: Uses observability configuration
//   - pkg/audit: Uses audit pipeline configuration
package config
