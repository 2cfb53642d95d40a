package auth

// AuthContext holds the authenticated caller's identity and resolved
// permission set for the lifetime of one request. It is created by the
// middleware in this package and read-only afterwards.
type AuthContext struct {
	UserID      int64
	Role        string
	Permissions []string
}

// HasPermission checks if the permission set contains p.
// Permission strings have the form DOMAIN:ACTION:SCOPE, e.g. STUDENT:READ:ANY.
func (ac *AuthContext) HasPermission(p string) bool {
	for _, held := range ac.Permissions {
		if held == p {
			return true
		}
	}
	return false
}

// HasAnyPermission checks if the permission set contains at least one of the
// given permissions. An empty candidate list never passes.
func (ac *AuthContext) HasAnyPermission(perms ...string) bool {
	for _, p := range perms {
		if ac.HasPermission(p) {
			return true
		}
	}
	return false
}

// HasAllPermissions checks if the permission set contains every one of the
// given permissions. An empty required list always passes.
func (ac *AuthContext) HasAllPermissions(perms ...string) bool {
	for _, p := range perms {
		if !ac.HasPermission(p) {
			return false
		}
	}
	return true
}

// HasRole checks if the context's role matches any of the given role names.
func (ac *AuthContext) HasRole(roles ...string) bool {
	for _, role := range roles {
		if ac.Role == role {
			return true
		}
	}
	return false
}
