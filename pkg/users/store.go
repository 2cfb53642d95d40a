package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/maestroapp/maestro/pkg/rbac"
)

// Store persists user records in PostgreSQL
type Store struct {
	db *sql.DB
}

// NewStore creates a user store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the users table and its indexes if they do not exist.
// Safe to call on every startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		first_name VARCHAR(100) NOT NULL DEFAULT '',
		last_name VARCHAR(100) NOT NULL DEFAULT '',
		role VARCHAR(100) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'ACTIVE',
		archived BOOLEAN NOT NULL DEFAULT FALSE,
		archived_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
	CREATE INDEX IF NOT EXISTS idx_users_status ON users(status);
	CREATE INDEX IF NOT EXISTS idx_users_archived ON users(archived);
	`

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure users table: %w", err)
	}
	return nil
}

const userColumns = `
		id, email, first_name, last_name, role, status,
		archived, archived_at, created_at, updated_at`

// filterClause builds the WHERE clause for a filter, starting after "WHERE
// 1=1". Returns the SQL fragment and its bind arguments.
func filterClause(f Filter) (string, []interface{}) {
	clause := ""
	args := []interface{}{}
	argCount := 1

	if !f.IncludeArchived {
		clause += " AND archived = FALSE"
	}

	if f.Role != "" {
		clause += fmt.Sprintf(" AND role = $%d", argCount)
		args = append(args, f.Role)
		argCount++
	}

	if f.Status != "" {
		clause += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, string(f.Status))
	}

	return clause, args
}

// List returns users matching the filter ordered by last name, first name
func (s *Store) List(ctx context.Context, f Filter, limit, offset int) ([]*User, error) {
	clause, args := filterClause(f)
	query := "SELECT" + userColumns + "\n\tFROM users\n\tWHERE 1=1" + clause +
		" ORDER BY last_name ASC, first_name ASC, id ASC"

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

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

// Count returns the number of users matching the filter
func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	clause, args := filterClause(f)
	query := "SELECT COUNT(*) FROM users WHERE 1=1" + clause

	var total int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return total, nil
}

// Get returns one user by ID, archived or not
func (s *Store) Get(ctx context.Context, id int64) (*User, error) {
	query := "SELECT" + userColumns + " FROM users WHERE id = $1"

	u, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %d", rbac.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return u, nil
}

// Create inserts a user and fills in its generated ID and timestamps
func (s *Store) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (email, first_name, last_name, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	if u.Status == "" {
		u.Status = StatusActive
	}
	now := time.Now().UTC()
	err := s.db.QueryRowContext(ctx, query,
		u.Email, u.FirstName, u.LastName, u.Role, string(u.Status), now, now,
	).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

// UpdateStatus sets one user's status
func (s *Store) UpdateStatus(ctx context.Context, id int64, status Status) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET status = $1, updated_at = $2 WHERE id = $3",
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update user %d status: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update count: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: user %d", rbac.ErrNotFound, id)
	}
	return nil
}

// Archive marks one user archived. Returns false when the user was already
// archived, without touching the row.
func (s *Store) Archive(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET archived = TRUE, archived_at = $1, updated_at = $1 WHERE id = $2 AND archived = FALSE",
		time.Now().UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to archive user %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read archive count: %w", err)
	}
	return affected > 0, nil
}

// BulkUpdateStatus sets the status on every listed user that exists and is
// not archived. Returns the number of rows changed, which may be fewer than
// requested.
func (s *Store) BulkUpdateStatus(ctx context.Context, ids []int64, status Status) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET status = $1, updated_at = $2 WHERE id = ANY($3) AND archived = FALSE",
		string(status), time.Now().UTC(), pq.Array(ids),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk update user status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read bulk update count: %w", err)
	}
	return affected, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*User, error) {
	u := &User{}
	var archivedAt sql.NullTime

	err := row.Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role, &u.Status,
		&u.Archived, &archivedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if archivedAt.Valid {
		t := archivedAt.Time
		u.ArchivedAt = &t
	}
	return u, nil
}

func scanUsers(rows *sql.Rows) ([]*User, error) {
	list := make([]*User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return list, nil
}
