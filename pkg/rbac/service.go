package rbac

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/maestroapp/maestro/pkg/audit"
	"github.com/maestroapp/maestro/pkg/observability"
)

// AuditSink receives audit entries for role mutations. *audit.Recorder
// satisfies it; tests substitute a capturing stub.
type AuditSink interface {
	Log(ctx context.Context, e audit.Entry)
	LogWarning(ctx context.Context, e audit.Entry)
	LogCritical(ctx context.Context, e audit.Entry)
}

// Service implements role and permission administration over the store, the
// permission cache and the audit trail.
type Service struct {
	store  *Store
	cache  *PermissionCache
	sink   AuditSink
	logger *observability.Logger
}

// NewService creates the role admin service. cache and sink may be nil; CLI
// tools run without a resolver cache or an audit trail.
func NewService(store *Store, cache *PermissionCache, sink AuditSink, logger *observability.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		sink:   sink,
		logger: logger,
	}
}

// ListRoles returns every role, built-ins first
func (s *Service) ListRoles(ctx context.Context) ([]*Role, error) {
	return s.store.ListRoles(ctx)
}

// GetRole returns one role by id
func (s *Service) GetRole(ctx context.Context, roleID int64) (*Role, error) {
	return s.store.GetRole(ctx, roleID)
}

// GetRoleByName returns one role by its unique name
func (s *Service) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	return s.store.GetRoleByName(ctx, name)
}

// ReplacePermissions replaces a role's entire permission set. Every name is
// validated against the catalog, the set is deduplicated and sorted, and the
// change lands in the audit trail with before/after snapshots.
func (s *Service) ReplacePermissions(ctx context.Context, roleID int64, permissions []string) (*Role, error) {
	if err := ValidatePermissions(permissions); err != nil {
		return nil, err
	}

	role, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}

	updated := normalizePermissions(permissions)
	if err := s.store.UpdateRolePermissions(ctx, roleID, updated); err != nil {
		return nil, err
	}
	s.invalidate(ctx, role.Name)
	s.auditPermissionChange(ctx, role, updated)

	role.Permissions = updated
	return role, nil
}

// AddPermission grants one permission to a role. Granting a permission the
// role already holds is a no-op success and leaves no audit entry.
func (s *Service) AddPermission(ctx context.Context, roleID int64, permission string) (*Role, error) {
	if err := ValidatePermissions([]string{permission}); err != nil {
		return nil, err
	}

	role, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role.HasPermission(permission) {
		return role, nil
	}

	updated := normalizePermissions(append(append([]string{}, role.Permissions...), permission))
	if err := s.store.UpdateRolePermissions(ctx, roleID, updated); err != nil {
		return nil, err
	}
	s.invalidate(ctx, role.Name)
	s.auditPermissionChange(ctx, role, updated)

	role.Permissions = updated
	return role, nil
}

// RemovePermission revokes one permission from a role. Revoking a permission
// the role does not hold is a no-op success and leaves no audit entry.
func (s *Service) RemovePermission(ctx context.Context, roleID int64, permission string) (*Role, error) {
	role, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if !role.HasPermission(permission) {
		return role, nil
	}

	updated := make([]string, 0, len(role.Permissions)-1)
	for _, p := range role.Permissions {
		if p != permission {
			updated = append(updated, p)
		}
	}
	if err := s.store.UpdateRolePermissions(ctx, roleID, updated); err != nil {
		return nil, err
	}
	s.invalidate(ctx, role.Name)
	s.auditPermissionChange(ctx, role, updated)

	role.Permissions = updated
	return role, nil
}

// ListPermissions returns the mirrored permission catalog from the store.
// The mirror is populated by SyncCatalog, normally at boot.
func (s *Service) ListPermissions(ctx context.Context) ([]*PermissionInfo, error) {
	return s.store.ListPermissions(ctx)
}

// GetPermission returns one mirrored permission by name
func (s *Service) GetPermission(ctx context.Context, name string) (*PermissionInfo, error) {
	return s.store.GetPermission(ctx, name)
}

// SyncCatalog mirrors the compiled-in catalog into the permissions table,
// inserting rows that do not exist yet. Reports created vs. already-present
// counts and leaves an audit entry when anything changed.
func (s *Service) SyncCatalog(ctx context.Context) (*SyncResult, error) {
	result := &SyncResult{}
	for _, p := range Catalog() {
		created, err := s.store.InsertPermission(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("failed to sync permission %s: %w", p.Name, err)
		}
		if created {
			result.Created++
		} else {
			result.Existing++
		}
	}

	if s.sink != nil && result.Created > 0 {
		s.sink.Log(ctx, audit.Entry{
			Action:      audit.ActionPermissionSync,
			TargetModel: audit.ModelPermission,
			Description: fmt.Sprintf("Permission catalog sync created %d entries (%d already present)", result.Created, result.Existing),
			After:       audit.Snapshot(result),
		})
	}
	return result, nil
}

// RoleStats returns the count of non-archived users per role
func (s *Service) RoleStats(ctx context.Context) ([]*RoleUserCount, error) {
	return s.store.RoleUserCounts(ctx)
}

// PermissionsForRole resolves a role name through the cache, or straight from
// the store when the service runs without one. Exposed so the auth middleware
// and other packages can share the service's resolver.
func (s *Service) PermissionsForRole(ctx context.Context, role string) ([]string, error) {
	if s.cache != nil {
		return s.cache.PermissionsForRole(ctx, role)
	}
	r, err := s.store.GetRoleByName(ctx, role)
	if errors.Is(err, ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return r.Permissions, nil
}

func (s *Service) invalidate(ctx context.Context, role string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, role)
	}
}

func (s *Service) auditPermissionChange(ctx context.Context, before *Role, after []string) {
	if s.sink == nil {
		return
	}
	s.sink.LogWarning(ctx, audit.Entry{
		Action:      audit.ActionRolePermissionsUpdate,
		TargetModel: audit.ModelRole,
		TargetID:    strconv.FormatInt(before.ID, 10),
		Description: fmt.Sprintf("Permissions updated for role %s", before.Name),
		Before:      audit.Snapshot(map[string]interface{}{"permissions": before.Permissions}),
		After:       audit.Snapshot(map[string]interface{}{"permissions": after}),
	})
}

func normalizePermissions(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
