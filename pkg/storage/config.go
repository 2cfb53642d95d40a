package storage

import (
	"time"
)

// Config for the storage backends (PostgreSQL, Redis, S3)
type Config struct {
	// PostgreSQL config
	PostgresURL         string
	PostgresReplicaURLs string // Comma-separated read replica URLs
	PostgresMaxConns    int
	PostgresMinConns    int
	PostgresTimeout     time.Duration

	// Redis config (role permission cache, janitor locks)
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int

	// Cache config
	CacheEnabled   bool
	CacheTTL       map[string]time.Duration
	L1CacheEntries int

	// S3 config (audit archive storage)
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		PostgresMaxConns: 20,
		PostgresMinConns: 2,
		PostgresTimeout:  10 * time.Second,
		RedisDB:          0,
		RedisMaxRetries:  3,
		RedisPoolSize:    10,
		CacheEnabled:     true,
		CacheTTL: map[string]time.Duration{
			"role_permissions":   5 * time.Minute,
			"role":               5 * time.Minute,
			"role_list":          1 * time.Minute,
			"permission_catalog": 1 * time.Hour,
		},
		L1CacheEntries: 256,
		S3Region:       "us-east-1",
	}
}
