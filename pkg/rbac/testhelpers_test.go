package rbac

import (
	"context"
	"database/sql"
	"io"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/maestroapp/maestro/pkg/audit"
	"github.com/maestroapp/maestro/pkg/observability"
)

// setupTestDB creates an in-memory SQLite database with the minimal schema
// the store statements need. The production migrations are Postgres-specific
// and are not exercised here.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// a single conn keeps the in-memory database alive across the pool
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE roles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			permissions TEXT NOT NULL DEFAULT '[]',
			is_built_in INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE permissions (
			name TEXT PRIMARY KEY,
			description TEXT NOT NULL DEFAULT '',
			domain TEXT NOT NULL,
			action TEXT NOT NULL,
			scope TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);

		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			role TEXT NOT NULL,
			archived INTEGER NOT NULL DEFAULT 0
		);
	`)
	require.NoError(t, err)

	return db
}

func testDeps(t *testing.T) (*observability.Logger, *observability.Metrics) {
	t.Helper()
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	metrics, err := observability.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return logger, metrics
}

// captureSink collects audit entries in memory, applying the same severity
// defaulting the real recorder does.
type captureSink struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (c *captureSink) Log(ctx context.Context, e audit.Entry) {
	if e.Severity == "" {
		e.Severity = audit.SeverityInfo
	}
	c.record(e)
}

func (c *captureSink) LogWarning(ctx context.Context, e audit.Entry) {
	e.Severity = audit.SeverityWarning
	c.record(e)
}

func (c *captureSink) LogCritical(ctx context.Context, e audit.Entry) {
	e.Severity = audit.SeverityCritical
	c.record(e)
}

func (c *captureSink) record(e audit.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
}

func (c *captureSink) all() []audit.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]audit.Entry{}, c.entries...)
}
