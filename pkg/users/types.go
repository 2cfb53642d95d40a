package users

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a user account
type Status string

// Account statuses
const (
	StatusActive    Status = "ACTIVE"
	StatusInactive  Status = "INACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

// Valid reports whether s is a known account status
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// User is one directory record. Role is the name of a roles-table entry and
// drives the permission set resolved at authentication time.
type User struct {
	ID         int64      `json:"id"`
	Email      string     `json:"email"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	Role       string     `json:"role"`
	Status     Status     `json:"status"`
	Archived   bool       `json:"archived"`
	ArchivedAt *time.Time `json:"archivedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// FullName returns the display name for log and audit lines
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return fmt.Sprintf("%s %s", u.FirstName, u.LastName)
}

// Filter narrows directory listings. Zero values mean "any"; archived records
// are excluded unless IncludeArchived is set.
type Filter struct {
	Role            string
	Status          Status
	IncludeArchived bool
}

// Page is one page of directory results
type Page struct {
	Users      []*User `json:"users"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int64   `json:"totalPages"`
}

// BulkResult reports how many of the requested records a bulk operation
// actually changed.
type BulkResult struct {
	Requested int   `json:"requested"`
	Updated   int64 `json:"updated"`
}
