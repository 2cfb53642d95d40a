package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Store persists audit entries in PostgreSQL. Reads go through the replica
// handle when one is configured; writes always hit the primary.
type Store struct {
	db     *sql.DB
	reader *sql.DB
}

// NewStore creates an audit store. reader may be nil, in which case all
// queries use db.
func NewStore(db, reader *sql.DB) *Store {
	if reader == nil {
		reader = db
	}
	return &Store{db: db, reader: reader}
}

// EnsureSchema creates the audit_logs table and its indexes if they do not
// exist. Safe to call on every startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_logs (
		id BIGSERIAL PRIMARY KEY,
		action VARCHAR(100) NOT NULL,
		severity VARCHAR(20) NOT NULL DEFAULT 'INFO',
		performed_by BIGINT,
		performed_by_role VARCHAR(100),
		target_model VARCHAR(100),
		target_id VARCHAR(255),
		description TEXT,
		before_state JSONB,
		after_state JSONB,
		request_id VARCHAR(100),
		ip_address VARCHAR(45),
		user_agent TEXT,
		method VARCHAR(10),
		endpoint TEXT,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_performed_by ON audit_logs(performed_by);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_target ON audit_logs(target_model, target_id);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_action ON audit_logs(action);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_severity ON audit_logs(severity);
	`

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure audit_logs table: %w", err)
	}
	return nil
}

// Insert writes one entry and fills in its generated ID
func (s *Store) Insert(ctx context.Context, e *Entry) error {
	query := `
		INSERT INTO audit_logs (
			action, severity, performed_by, performed_by_role,
			target_model, target_id, description,
			before_state, after_state,
			request_id, ip_address, user_agent, method, endpoint,
			created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9,
			$10, $11, $12, $13, $14,
			$15
		) RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		e.Action, e.Severity, e.ActorID, e.ActorRole,
		e.TargetModel, e.TargetID, e.Description,
		nullableJSON(e.Before), nullableJSON(e.After),
		e.RequestID, e.IPAddress, e.UserAgent, e.Method, e.Endpoint,
		e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// nullableJSON maps an empty snapshot to NULL instead of the empty string,
// which JSONB columns reject.
func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

const entryColumns = `
		id, action, severity, performed_by, performed_by_role,
		target_model, target_id, description,
		before_state, after_state,
		request_id, ip_address, user_agent, method, endpoint,
		created_at`

// filterClause builds the WHERE clause for a filter, starting after "WHERE
// 1=1". Returns the SQL fragment and its bind arguments.
func filterClause(f Filter) (string, []interface{}) {
	clause := ""
	args := []interface{}{}
	argCount := 1

	if f.PerformedBy != nil {
		clause += fmt.Sprintf(" AND performed_by = $%d", argCount)
		args = append(args, *f.PerformedBy)
		argCount++
	}

	if f.TargetModel != "" {
		clause += fmt.Sprintf(" AND target_model = $%d", argCount)
		args = append(args, f.TargetModel)
		argCount++
	}

	if f.TargetID != "" {
		clause += fmt.Sprintf(" AND target_id = $%d", argCount)
		args = append(args, f.TargetID)
		argCount++
	}

	if len(f.Actions) > 0 {
		clause += fmt.Sprintf(" AND action = ANY($%d)", argCount)
		args = append(args, pq.Array(f.Actions))
		argCount++
	}

	if len(f.Severities) > 0 {
		severities := make([]string, len(f.Severities))
		for i, sev := range f.Severities {
			severities[i] = string(sev)
		}
		clause += fmt.Sprintf(" AND severity = ANY($%d)", argCount)
		args = append(args, pq.Array(severities))
		argCount++
	}

	if f.From != nil {
		clause += fmt.Sprintf(" AND created_at >= $%d", argCount)
		args = append(args, *f.From)
		argCount++
	}

	if f.To != nil {
		clause += fmt.Sprintf(" AND created_at <= $%d", argCount)
		args = append(args, *f.To)
	}

	return clause, args
}

// Search returns entries matching the filter, newest first
func (s *Store) Search(ctx context.Context, f Filter, limit, offset int) ([]*Entry, error) {
	clause, args := filterClause(f)
	query := "SELECT" + entryColumns + "\n\tFROM audit_logs\n\tWHERE 1=1" + clause +
		" ORDER BY created_at DESC, id DESC"

	argCount := len(args) + 1
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, limit)
		argCount++
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, offset)
	}

	rows, err := s.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search audit logs: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Count returns the number of entries matching the filter
func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	clause, args := filterClause(f)
	query := "SELECT COUNT(*) FROM audit_logs WHERE 1=1" + clause

	var total int64
	if err := s.reader.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count audit logs: %w", err)
	}
	return total, nil
}

// TotalSince counts entries created at or after the given time
func (s *Store) TotalSince(ctx context.Context, since time.Time) (int64, error) {
	var total int64
	err := s.reader.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM audit_logs WHERE created_at >= $1", since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit logs: %w", err)
	}
	return total, nil
}

// ActionCounts returns per-action entry counts since the given time
func (s *Store) ActionCounts(ctx context.Context, since time.Time) (map[string]int64, error) {
	return s.groupCounts(ctx, "action", since)
}

// SeverityCounts returns per-severity entry counts since the given time
func (s *Store) SeverityCounts(ctx context.Context, since time.Time) (map[string]int64, error) {
	return s.groupCounts(ctx, "severity", since)
}

// ModelCounts returns per-target-model entry counts since the given time.
// Entries without a target model are excluded.
func (s *Store) ModelCounts(ctx context.Context, since time.Time) (map[string]int64, error) {
	return s.groupCounts(ctx, "target_model", since)
}

func (s *Store) groupCounts(ctx context.Context, column string, since time.Time) (map[string]int64, error) {
	// column is one of a fixed set of identifiers chosen by the callers
	// above, never user input.
	query := fmt.Sprintf(
		"SELECT %s, COUNT(*) FROM audit_logs WHERE created_at >= $1 AND %s IS NOT NULL AND %s != '' GROUP BY %s",
		column, column, column, column,
	)

	rows, err := s.reader.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count audit logs by %s: %w", column, err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("failed to scan audit count: %w", err)
		}
		counts[key] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit counts: %w", err)
	}
	return counts, nil
}

// OlderThan returns up to limit entries created before the cutoff, oldest
// first, skipping offset rows. Used by retention to archive in batches.
func (s *Store) OlderThan(ctx context.Context, cutoff time.Time, limit, offset int) ([]*Entry, error) {
	query := "SELECT" + entryColumns + `
	FROM audit_logs
	WHERE created_at < $1
	ORDER BY created_at ASC, id ASC
	LIMIT $2 OFFSET $3`

	rows, err := s.reader.QueryContext(ctx, query, cutoff, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load expired audit logs: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// DeleteBefore removes entries created before the cutoff and reports how
// many rows were deleted.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM audit_logs WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired audit logs: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete count: %w", err)
	}
	return deleted, nil
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	entries := make([]*Entry, 0)
	for rows.Next() {
		e := &Entry{}
		var (
			actorID     sql.NullInt64
			actorRole   sql.NullString
			targetModel sql.NullString
			targetID    sql.NullString
			description sql.NullString
			before      []byte
			after       []byte
			requestID   sql.NullString
			ipAddress   sql.NullString
			userAgent   sql.NullString
			method      sql.NullString
			endpoint    sql.NullString
		)

		err := rows.Scan(
			&e.ID, &e.Action, &e.Severity, &actorID, &actorRole,
			&targetModel, &targetID, &description,
			&before, &after,
			&requestID, &ipAddress, &userAgent, &method, &endpoint,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}

		if actorID.Valid {
			id := actorID.Int64
			e.ActorID = &id
		}
		e.ActorRole = actorRole.String
		e.TargetModel = targetModel.String
		e.TargetID = targetID.String
		e.Description = description.String
		e.Before = before
		e.After = after
		e.RequestID = requestID.String
		e.IPAddress = ipAddress.String
		e.UserAgent = userAgent.String
		e.Method = method.String
		e.Endpoint = endpoint.String

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit logs: %w", err)
	}
	return entries, nil
}
