package rbac

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Store handles role and permission persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new role store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const roleColumns = `id, name, display_name, description, permissions, is_built_in, created_at, updated_at`

// CreateRole inserts a role and fills in its id and timestamps
func (s *Store) CreateRole(ctx context.Context, role *Role) error {
	if role.Permissions == nil {
		role.Permissions = []string{}
	}
	permissionsJSON, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	query := `
		INSERT INTO roles (name, display_name, description, permissions, is_built_in, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now().UTC()
	err = s.db.QueryRowContext(ctx, query,
		role.Name,
		role.DisplayName,
		role.Description,
		string(permissionsJSON),
		role.IsBuiltIn,
		now,
		now,
	).Scan(&role.ID)
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}

	role.CreatedAt = now
	role.UpdatedAt = now
	return nil
}

// GetRole retrieves a role by id
func (s *Store) GetRole(ctx context.Context, roleID int64) (*Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles WHERE id = $1`

	role, err := scanRole(s.db.QueryRowContext(ctx, query, roleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: role %d", ErrNotFound, roleID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}

// GetRoleByName retrieves a role by its unique name
func (s *Store) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles WHERE name = $1`

	role, err := scanRole(s.db.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: role %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}

// ListRoles lists every role, built-ins first
func (s *Store) ListRoles(ctx context.Context) ([]*Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles ORDER BY is_built_in DESC, name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// UpdateRolePermissions replaces a role's entire permission set
func (s *Store) UpdateRolePermissions(ctx context.Context, roleID int64, permissions []string) error {
	if permissions == nil {
		permissions = []string{}
	}
	permissionsJSON, err := json.Marshal(permissions)
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	query := `UPDATE roles SET permissions = $1, updated_at = $2 WHERE id = $3`

	result, err := s.db.ExecContext(ctx, query, string(permissionsJSON), time.Now().UTC(), roleID)
	if err != nil {
		return fmt.Errorf("failed to update role permissions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update role permissions: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: role %d", ErrNotFound, roleID)
	}
	return nil
}

// ListPermissions lists the mirrored permission catalog
func (s *Store) ListPermissions(ctx context.Context) ([]*PermissionInfo, error) {
	query := `
		SELECT name, description, domain, action, scope, created_at
		FROM permissions
		ORDER BY name ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	var permissions []*PermissionInfo
	for rows.Next() {
		var p PermissionInfo
		if err := rows.Scan(&p.Name, &p.Description, &p.Domain, &p.Action, &p.Scope, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		permissions = append(permissions, &p)
	}
	return permissions, rows.Err()
}

// GetPermission retrieves one mirrored permission by name
func (s *Store) GetPermission(ctx context.Context, name string) (*PermissionInfo, error) {
	query := `
		SELECT name, description, domain, action, scope, created_at
		FROM permissions
		WHERE name = $1
	`

	var p PermissionInfo
	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&p.Name, &p.Description, &p.Domain, &p.Action, &p.Scope, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: permission %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return &p, nil
}

// InsertPermission mirrors one catalog entry into the permissions table.
// Returns true when the row was created, false when it already existed.
func (s *Store) InsertPermission(ctx context.Context, p PermissionInfo) (bool, error) {
	query := `
		INSERT INTO permissions (name, description, domain, action, scope, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query,
		p.Name, p.Description, p.Domain, p.Action, p.Scope, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert permission: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert permission: %w", err)
	}
	return affected > 0, nil
}

// RoleUserCounts counts non-archived users per role. Roles with no users are
// included with a zero count.
func (s *Store) RoleUserCounts(ctx context.Context) ([]*RoleUserCount, error) {
	query := `
		SELECT r.name, r.display_name, COUNT(u.id)
		FROM roles r
		LEFT JOIN users u ON u.role = r.name AND u.archived = FALSE
		GROUP BY r.id, r.name, r.display_name
		ORDER BY r.name ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count users per role: %w", err)
	}
	defer rows.Close()

	var counts []*RoleUserCount
	for rows.Next() {
		var c RoleUserCount
		if err := rows.Scan(&c.Role, &c.DisplayName, &c.UserCount); err != nil {
			return nil, fmt.Errorf("failed to scan role count: %w", err)
		}
		counts = append(counts, &c)
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRole(row rowScanner) (*Role, error) {
	var role Role
	var permissionsJSON []byte

	err := row.Scan(
		&role.ID,
		&role.Name,
		&role.DisplayName,
		&role.Description,
		&permissionsJSON,
		&role.IsBuiltIn,
		&role.CreatedAt,
		&role.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(permissionsJSON, &role.Permissions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
	}
	if role.Permissions == nil {
		role.Permissions = []string{}
	}
	return &role, nil
}
