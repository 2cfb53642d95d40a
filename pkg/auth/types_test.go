package auth

import (
	"testing"
)

func TestAuthContext_HasPermission(t *testing.T) {
	tests := []struct {
		name        string
		permissions []string
		check       string
		want        bool
	}{
		{
			name:        "permission present",
			permissions: []string{"STUDENT:READ:ANY", "STUDENT:UPDATE:ANY"},
			check:       "STUDENT:READ:ANY",
			want:        true,
		},
		{
			name:        "permission absent",
			permissions: []string{"STUDENT:READ:ANY"},
			check:       "STUDENT:DELETE:ANY",
			want:        false,
		},
		{
			name:        "scope is part of the match",
			permissions: []string{"STUDENT:READ:OWN"},
			check:       "STUDENT:READ:ANY",
			want:        false,
		},
		{
			name:        "empty permission set",
			permissions: nil,
			check:       "STUDENT:READ:ANY",
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ac := &AuthContext{UserID: 1, Role: "STAFF", Permissions: tt.permissions}
			if got := ac.HasPermission(tt.check); got != tt.want {
				t.Errorf("AuthContext.HasPermission(%q) = %v, want %v", tt.check, got, tt.want)
			}
		})
	}
}

func TestAuthContext_HasAnyPermission(t *testing.T) {
	tests := []struct {
		name        string
		permissions []string
		check       []string
		want        bool
	}{
		{
			name:        "one of several present",
			permissions: []string{"AUDIT:READ:ANY"},
			check:       []string{"SYSTEM:MANAGE:ANY", "AUDIT:READ:ANY"},
			want:        true,
		},
		{
			name:        "none present",
			permissions: []string{"STUDENT:READ:OWN"},
			check:       []string{"SYSTEM:MANAGE:ANY", "AUDIT:READ:ANY"},
			want:        false,
		},
		{
			name:        "empty candidate list never passes",
			permissions: []string{"STUDENT:READ:OWN"},
			check:       nil,
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ac := &AuthContext{UserID: 1, Role: "STAFF", Permissions: tt.permissions}
			if got := ac.HasAnyPermission(tt.check...); got != tt.want {
				t.Errorf("AuthContext.HasAnyPermission(%v) = %v, want %v", tt.check, got, tt.want)
			}
		})
	}
}

func TestAuthContext_HasAllPermissions(t *testing.T) {
	tests := []struct {
		name        string
		permissions []string
		check       []string
		want        bool
	}{
		{
			name:        "all present",
			permissions: []string{"ROLE:READ:ANY", "ROLE:MANAGE:ANY", "AUDIT:READ:ANY"},
			check:       []string{"ROLE:READ:ANY", "ROLE:MANAGE:ANY"},
			want:        true,
		},
		{
			name:        "one missing",
			permissions: []string{"ROLE:READ:ANY"},
			check:       []string{"ROLE:READ:ANY", "ROLE:MANAGE:ANY"},
			want:        false,
		},
		{
			name:        "empty required list always passes",
			permissions: nil,
			check:       nil,
			want:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ac := &AuthContext{UserID: 1, Role: "ADMIN", Permissions: tt.permissions}
			if got := ac.HasAllPermissions(tt.check...); got != tt.want {
				t.Errorf("AuthContext.HasAllPermissions(%v) = %v, want %v", tt.check, got, tt.want)
			}
		})
	}
}

func TestAuthContext_HasRole(t *testing.T) {
	tests := []struct {
		name  string
		role  string
		check []string
		want  bool
	}{
		{
			name:  "exact match",
			role:  "ADMIN",
			check: []string{"ADMIN"},
			want:  true,
		},
		{
			name:  "match within several",
			role:  "STAFF",
			check: []string{"ADMIN", "STAFF"},
			want:  true,
		},
		{
			name:  "no match",
			role:  "STUDENT",
			check: []string{"ADMIN", "STAFF"},
			want:  false,
		},
		{
			name:  "case sensitive",
			role:  "admin",
			check: []string{"ADMIN"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ac := &AuthContext{UserID: 1, Role: tt.role}
			if got := ac.HasRole(tt.check...); got != tt.want {
				t.Errorf("AuthContext.HasRole(%v) = %v, want %v", tt.check, got, tt.want)
			}
		})
	}
}
