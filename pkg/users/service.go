package users

import (
	"context"
	"fmt"
	"strconv"

	"github.com/maestroapp/maestro/pkg/audit"
	"github.com/maestroapp/maestro/pkg/observability"
	"github.com/maestroapp/maestro/pkg/rbac"
)

// Pagination bounds for directory listings
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// AuditSink receives directory change entries. *audit.Recorder implements it.
type AuditSink interface {
	Log(ctx context.Context, e audit.Entry)
	LogWarning(ctx context.Context, e audit.Entry)
	LogCritical(ctx context.Context, e audit.Entry)
}

// Service implements directory operations over the user store. Status
// changes, archival and bulk updates leave audit entries; reads do not.
type Service struct {
	store  *Store
	sink   AuditSink
	logger *observability.Logger
}

// NewService creates a user directory service. sink may be nil, for CLIs
// that operate without an audit trail.
func NewService(store *Store, sink AuditSink, logger *observability.Logger) *Service {
	return &Service{store: store, sink: sink, logger: logger}
}

// List returns one page of users matching the filter. Page and limit are
// clamped to sane bounds; a filter that matches nothing yields an empty page
// with total 0.
func (s *Service) List(ctx context.Context, f Filter, page, limit int) (*Page, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", rbac.ErrValidation, f.Status)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	total, err := s.store.Count(ctx, f)
	if err != nil {
		return nil, err
	}

	result := &Page{
		Users: []*User{},
		Total: total,
		Page:  page,
		Limit: limit,
	}
	if total == 0 {
		return result, nil
	}

	result.TotalPages = (total + int64(limit) - 1) / int64(limit)

	users, err := s.store.List(ctx, f, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	result.Users = users

	return result, nil
}

// Get returns one user by ID
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.store.Get(ctx, id)
}

// UpdateStatus sets one user's account status. Setting the status a user
// already has is a no-op and leaves no audit entry.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status) (*User, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", rbac.ErrValidation, status)
	}

	user, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Status == status {
		return user, nil
	}

	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}

	s.auditStatusChange(ctx, user, status)
	user.Status = status
	return user, nil
}

// Archive soft-deletes one user. Archiving an already-archived user is a
// no-op and leaves no audit entry.
func (s *Service) Archive(ctx context.Context, id int64) (*User, error) {
	user, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Archived {
		return user, nil
	}

	archived, err := s.store.Archive(ctx, id)
	if err != nil {
		return nil, err
	}
	if archived && s.sink != nil {
		s.sink.LogWarning(ctx, audit.Entry{
			Action:      audit.ActionArchive,
			TargetModel: audit.ModelUser,
			TargetID:    strconv.FormatInt(id, 10),
			Description: fmt.Sprintf("User %s (%s) archived", user.FullName(), user.Email),
			Before:      audit.Snapshot(map[string]interface{}{"archived": false, "status": user.Status}),
			After:       audit.Snapshot(map[string]interface{}{"archived": true}),
		})
	}

	return s.store.Get(ctx, id)
}

// BulkUpdateStatus sets the status on every listed user. Archived or missing
// users are skipped; the result reports how many rows actually changed.
func (s *Service) BulkUpdateStatus(ctx context.Context, ids []int64, status Status) (*BulkResult, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", rbac.ErrValidation, status)
	}

	result := &BulkResult{Requested: len(ids)}
	if len(ids) == 0 {
		return result, nil
	}

	updated, err := s.store.BulkUpdateStatus(ctx, ids, status)
	if err != nil {
		return nil, err
	}
	result.Updated = updated

	if s.sink != nil {
		s.sink.LogWarning(ctx, audit.Entry{
			Action:      audit.ActionBulkStatusChange,
			TargetModel: audit.ModelUser,
			Description: fmt.Sprintf("Status set to %s for %d of %d users", status, updated, len(ids)),
			After: audit.Snapshot(map[string]interface{}{
				"userIds": ids,
				"status":  status,
			}),
		})
	}

	return result, nil
}

// auditStatusChange records a status transition. Suspensions are WARNING
// entries, everything else INFO.
func (s *Service) auditStatusChange(ctx context.Context, before *User, status Status) {
	if s.sink == nil {
		return
	}

	entry := audit.Entry{
		Action:      audit.ActionStatusChange,
		TargetModel: audit.ModelUser,
		TargetID:    strconv.FormatInt(before.ID, 10),
		Description: fmt.Sprintf("Status changed from %s to %s for user %s", before.Status, status, before.Email),
		Before:      audit.Snapshot(map[string]interface{}{"status": before.Status}),
		After:       audit.Snapshot(map[string]interface{}{"status": status}),
	}

	if status == StatusSuspended {
		s.sink.LogWarning(ctx, entry)
		return
	}
	s.sink.Log(ctx, entry)
}
