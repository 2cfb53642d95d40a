package rbac

import (
	"fmt"
	"strings"
)

// Permission domains. A permission names one domain, one action on it and the
// scope the action applies to, joined as DOMAIN:ACTION:SCOPE.
const (
	DomainUser       = "USER"
	DomainStudent    = "STUDENT"
	DomainTeacher    = "TEACHER"
	DomainClass      = "CLASS"
	DomainEnrollment = "ENROLLMENT"
	DomainAttendance = "ATTENDANCE"
	DomainInvoice    = "INVOICE"
	DomainRole       = "ROLE"
	DomainAudit      = "AUDIT"
	DomainSystem     = "SYSTEM"
)

// Permission actions
const (
	ActionCreate  = "CREATE"
	ActionRead    = "READ"
	ActionUpdate  = "UPDATE"
	ActionDelete  = "DELETE"
	ActionArchive = "ARCHIVE"
	ActionExport  = "EXPORT"
	ActionManage  = "MANAGE"
)

// Permission scopes. ANY applies to every resource in the domain, OWN only to
// resources belonging to the caller.
const (
	ScopeAny = "ANY"
	ScopeOwn = "OWN"
)

// Built-in role names
const (
	RoleAdmin   = "ADMIN"
	RoleStaff   = "STAFF"
	RoleTeacher = "TEACHER"
	RoleStudent = "STUDENT"
	RoleParent  = "PARENT"
)

// Permissions referenced directly by route gates
const (
	PermUserRead     = "USER:READ:ANY"
	PermUserManage   = "USER:MANAGE:ANY"
	PermUserArchive  = "USER:ARCHIVE:ANY"
	PermRoleRead     = "ROLE:READ:ANY"
	PermRoleManage   = "ROLE:MANAGE:ANY"
	PermAuditRead    = "AUDIT:READ:ANY"
	PermAuditExport  = "AUDIT:EXPORT:ANY"
	PermSystemManage = "SYSTEM:MANAGE:ANY"
)

// PermissionName joins the three permission components into the canonical
// string form.
func PermissionName(domain, action, scope string) string {
	return domain + ":" + action + ":" + scope
}

// ParsePermissionName splits a permission string into its components. The
// name must have exactly three non-empty colon-separated parts; it is not
// checked against the catalog.
func ParsePermissionName(name string) (domain, action, scope string, err error) {
	parts := strings.Split(name, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("%w: malformed permission %q, want DOMAIN:ACTION:SCOPE", ErrValidation, name)
	}
	return parts[0], parts[1], parts[2], nil
}

func perm(domain, action, scope, description string) PermissionInfo {
	return PermissionInfo{
		Name:        PermissionName(domain, action, scope),
		Description: description,
		Domain:      domain,
		Action:      action,
		Scope:       scope,
	}
}

// Catalog returns every permission the system recognizes. The catalog is
// compiled in; the permissions table is only a mirror of it for discovery
// endpoints and reporting joins.
func Catalog() []PermissionInfo {
	return []PermissionInfo{
		perm(DomainUser, ActionCreate, ScopeAny, "Create user accounts"),
		perm(DomainUser, ActionRead, ScopeAny, "View any user account"),
		perm(DomainUser, ActionRead, ScopeOwn, "View own user account"),
		perm(DomainUser, ActionUpdate, ScopeAny, "Update any user account"),
		perm(DomainUser, ActionUpdate, ScopeOwn, "Update own user account"),
		perm(DomainUser, ActionDelete, ScopeAny, "Delete user accounts"),
		perm(DomainUser, ActionArchive, ScopeAny, "Archive user accounts"),
		perm(DomainUser, ActionManage, ScopeAny, "Full user administration, including status changes"),

		perm(DomainStudent, ActionCreate, ScopeAny, "Register new students"),
		perm(DomainStudent, ActionRead, ScopeAny, "View any student profile"),
		perm(DomainStudent, ActionRead, ScopeOwn, "View own student profile"),
		perm(DomainStudent, ActionUpdate, ScopeAny, "Update any student profile"),
		perm(DomainStudent, ActionUpdate, ScopeOwn, "Update own student profile"),
		perm(DomainStudent, ActionDelete, ScopeAny, "Delete student records"),
		perm(DomainStudent, ActionArchive, ScopeAny, "Archive student records"),
		perm(DomainStudent, ActionExport, ScopeAny, "Export student data"),

		perm(DomainTeacher, ActionCreate, ScopeAny, "Register new teachers"),
		perm(DomainTeacher, ActionRead, ScopeAny, "View any teacher profile"),
		perm(DomainTeacher, ActionRead, ScopeOwn, "View own teacher profile"),
		perm(DomainTeacher, ActionUpdate, ScopeAny, "Update any teacher profile"),
		perm(DomainTeacher, ActionUpdate, ScopeOwn, "Update own teacher profile"),
		perm(DomainTeacher, ActionDelete, ScopeAny, "Delete teacher records"),
		perm(DomainTeacher, ActionArchive, ScopeAny, "Archive teacher records"),

		perm(DomainClass, ActionCreate, ScopeAny, "Create classes"),
		perm(DomainClass, ActionRead, ScopeAny, "View any class"),
		perm(DomainClass, ActionRead, ScopeOwn, "View own classes"),
		perm(DomainClass, ActionUpdate, ScopeAny, "Update any class"),
		perm(DomainClass, ActionUpdate, ScopeOwn, "Update own classes"),
		perm(DomainClass, ActionDelete, ScopeAny, "Delete classes"),
		perm(DomainClass, ActionManage, ScopeAny, "Full class administration, including scheduling"),

		perm(DomainEnrollment, ActionCreate, ScopeAny, "Enroll any student in a class"),
		perm(DomainEnrollment, ActionCreate, ScopeOwn, "Enroll self or own children in a class"),
		perm(DomainEnrollment, ActionRead, ScopeAny, "View any enrollment"),
		perm(DomainEnrollment, ActionRead, ScopeOwn, "View own enrollments"),
		perm(DomainEnrollment, ActionUpdate, ScopeAny, "Update any enrollment"),
		perm(DomainEnrollment, ActionDelete, ScopeAny, "Cancel enrollments"),

		perm(DomainAttendance, ActionCreate, ScopeAny, "Record attendance for any class"),
		perm(DomainAttendance, ActionCreate, ScopeOwn, "Record attendance for own classes"),
		perm(DomainAttendance, ActionRead, ScopeAny, "View any attendance records"),
		perm(DomainAttendance, ActionRead, ScopeOwn, "View own attendance records"),
		perm(DomainAttendance, ActionUpdate, ScopeAny, "Correct any attendance record"),
		perm(DomainAttendance, ActionUpdate, ScopeOwn, "Correct attendance for own classes"),

		perm(DomainInvoice, ActionCreate, ScopeAny, "Issue invoices"),
		perm(DomainInvoice, ActionRead, ScopeAny, "View any invoice"),
		perm(DomainInvoice, ActionRead, ScopeOwn, "View own invoices"),
		perm(DomainInvoice, ActionUpdate, ScopeAny, "Update invoices"),
		perm(DomainInvoice, ActionDelete, ScopeAny, "Void invoices"),
		perm(DomainInvoice, ActionExport, ScopeAny, "Export billing data"),

		perm(DomainRole, ActionRead, ScopeAny, "View roles and their permissions"),
		perm(DomainRole, ActionUpdate, ScopeAny, "Modify role permission sets"),
		perm(DomainRole, ActionManage, ScopeAny, "Full role administration"),

		perm(DomainAudit, ActionRead, ScopeAny, "View the audit trail"),
		perm(DomainAudit, ActionExport, ScopeAny, "Export audit logs"),

		perm(DomainSystem, ActionRead, ScopeAny, "View system configuration and health"),
		perm(DomainSystem, ActionManage, ScopeAny, "Full system administration"),
	}
}

var catalogIndex = func() map[string]PermissionInfo {
	catalog := Catalog()
	idx := make(map[string]PermissionInfo, len(catalog))
	for _, p := range catalog {
		idx[p.Name] = p
	}
	return idx
}()

// IsValidPermission reports whether name is part of the compiled-in catalog
func IsValidPermission(name string) bool {
	_, ok := catalogIndex[name]
	return ok
}

// LookupPermission returns the catalog metadata for name
func LookupPermission(name string) (PermissionInfo, bool) {
	p, ok := catalogIndex[name]
	return p, ok
}

// ValidatePermissions checks every name against the catalog. All unknown
// names are reported together so a caller fixing a role payload sees the
// whole problem at once.
func ValidatePermissions(perms []string) error {
	var unknown []string
	for _, p := range perms {
		if !IsValidPermission(p) {
			unknown = append(unknown, p)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: unknown permissions: %s", ErrValidation, strings.Join(unknown, ", "))
	}
	return nil
}

// OwnershipOverrides returns the permissions that let a caller pass an
// ownership gate for resources that are not their own.
func OwnershipOverrides() []string {
	return []string{PermUserRead, PermUserManage, PermSystemManage}
}

// BuiltInRoles returns the role definitions seeded at bootstrap. ADMIN always
// carries the full catalog; the others carry curated subsets.
func BuiltInRoles() []Role {
	catalog := Catalog()
	admin := make([]string, 0, len(catalog))
	for _, p := range catalog {
		admin = append(admin, p.Name)
	}

	return []Role{
		{
			Name:        RoleAdmin,
			DisplayName: "Administrator",
			Description: "Full access to every school resource",
			IsBuiltIn:   true,
			Permissions: admin,
		},
		{
			Name:        RoleStaff,
			DisplayName: "Office Staff",
			Description: "Day-to-day school operations without role or system administration",
			IsBuiltIn:   true,
			Permissions: []string{
				"USER:CREATE:ANY",
				"USER:READ:ANY",
				"USER:UPDATE:ANY",
				"USER:ARCHIVE:ANY",
				"STUDENT:CREATE:ANY",
				"STUDENT:READ:ANY",
				"STUDENT:UPDATE:ANY",
				"STUDENT:ARCHIVE:ANY",
				"STUDENT:EXPORT:ANY",
				"TEACHER:READ:ANY",
				"TEACHER:UPDATE:ANY",
				"CLASS:CREATE:ANY",
				"CLASS:READ:ANY",
				"CLASS:UPDATE:ANY",
				"CLASS:DELETE:ANY",
				"CLASS:MANAGE:ANY",
				"ENROLLMENT:CREATE:ANY",
				"ENROLLMENT:READ:ANY",
				"ENROLLMENT:UPDATE:ANY",
				"ENROLLMENT:DELETE:ANY",
				"ATTENDANCE:READ:ANY",
				"ATTENDANCE:UPDATE:ANY",
				"INVOICE:CREATE:ANY",
				"INVOICE:READ:ANY",
				"INVOICE:UPDATE:ANY",
				"INVOICE:EXPORT:ANY",
				"AUDIT:READ:ANY",
			},
		},
		{
			Name:        RoleTeacher,
			DisplayName: "Teacher",
			Description: "Own classes, rosters and attendance",
			IsBuiltIn:   true,
			Permissions: []string{
				"USER:READ:OWN",
				"USER:UPDATE:OWN",
				"STUDENT:READ:ANY",
				"CLASS:READ:OWN",
				"CLASS:UPDATE:OWN",
				"ENROLLMENT:READ:OWN",
				"ATTENDANCE:CREATE:OWN",
				"ATTENDANCE:READ:OWN",
				"ATTENDANCE:UPDATE:OWN",
			},
		},
		{
			Name:        RoleStudent,
			DisplayName: "Student",
			Description: "Own profile, enrollments, attendance and invoices",
			IsBuiltIn:   true,
			Permissions: []string{
				"USER:READ:OWN",
				"USER:UPDATE:OWN",
				"STUDENT:READ:OWN",
				"STUDENT:UPDATE:OWN",
				"CLASS:READ:ANY",
				"ENROLLMENT:CREATE:OWN",
				"ENROLLMENT:READ:OWN",
				"ATTENDANCE:READ:OWN",
				"INVOICE:READ:OWN",
			},
		},
		{
			Name:        RoleParent,
			DisplayName: "Parent",
			Description: "Own children's records and own invoices",
			IsBuiltIn:   true,
			Permissions: []string{
				"USER:READ:OWN",
				"USER:UPDATE:OWN",
				"STUDENT:READ:OWN",
				"CLASS:READ:ANY",
				"ENROLLMENT:CREATE:OWN",
				"ENROLLMENT:READ:OWN",
				"ATTENDANCE:READ:OWN",
				"INVOICE:READ:OWN",
			},
		},
	}
}
