package rbac

import (
	"time"
)

// Role is a named set of permissions. Every user account references exactly
// one role by name; what the role can do is entirely determined by its
// permission set.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	Description string    `json:"description,omitempty"`
	Permissions []string  `json:"permissions"`
	IsBuiltIn   bool      `json:"isBuiltIn"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasPermission reports whether the role's permission set contains p exactly
func (r *Role) HasPermission(p string) bool {
	for _, perm := range r.Permissions {
		if perm == p {
			return true
		}
	}
	return false
}

// PermissionInfo describes one catalog permission. The catalog is compiled
// into the binary and synced to the permissions table so other tools can
// join against it; CreatedAt records when the row first appeared there.
type PermissionInfo struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Domain      string    `json:"domain"`
	Action      string    `json:"action"`
	Scope       string    `json:"scope"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RoleUserCount is one row of the role distribution statistics
type RoleUserCount struct {
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
	UserCount   int64  `json:"userCount"`
}

// SyncResult reports what a catalog sync did
type SyncResult struct {
	Created  int `json:"created"`
	Existing int `json:"existing"`
}
