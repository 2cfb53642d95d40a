package users

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/maestroapp/maestro/pkg/httputil"
	"github.com/maestroapp/maestro/pkg/observability"
	"github.com/maestroapp/maestro/pkg/rbac"
)

var validate = validator.New()

// Directory is the surface the HTTP handlers need. *Service implements it.
type Directory interface {
	List(ctx context.Context, f Filter, page, limit int) (*Page, error)
	Get(ctx context.Context, id int64) (*User, error)
	UpdateStatus(ctx context.Context, id int64, status Status) (*User, error)
	Archive(ctx context.Context, id int64) (*User, error)
	BulkUpdateStatus(ctx context.Context, ids []int64, status Status) (*BulkResult, error)
}

// Handlers exposes the user directory under /admin/users, plus the
// ownership-gated self-service read under /users.
type Handlers struct {
	service Directory
	logger  *observability.Logger
}

// NewHandlers creates user directory HTTP handlers
func NewHandlers(service Directory, logger *observability.Logger) *Handlers {
	return &Handlers{service: service, logger: logger}
}

type updateStatusRequest struct {
	Status Status `json:"status" validate:"required"`
}

type bulkStatusRequest struct {
	UserIDs []int64 `json:"userIds" validate:"required,min=1"`
	Status  Status  `json:"status" validate:"required"`
}

// RegisterRoutes registers the directory routes. read guards the admin
// listing, manage the status mutations, archive the archive endpoint, and
// owner the self-service read; nil guards register the handlers unprotected.
func (h *Handlers) RegisterRoutes(router *mux.Router, read, manage, archive, owner func(http.Handler) http.Handler) {
	router.Handle("/admin/users", guard(read, h.listUsers)).Methods(http.MethodGet)
	router.Handle("/admin/users/bulk/status", guard(manage, h.bulkUpdateStatus)).Methods(http.MethodPost)
	router.Handle("/admin/users/{id}/status", guard(manage, h.updateStatus)).Methods(http.MethodPatch)
	router.Handle("/admin/users/{id}/archive", guard(archive, h.archiveUser)).Methods(http.MethodPost)

	router.Handle("/users/{userId}", guard(owner, h.getUser)).Methods(http.MethodGet)
}

func guard(g func(http.Handler) http.Handler, h http.HandlerFunc) http.Handler {
	if g == nil {
		return h
	}
	return g(h)
}

// listUsers handles GET /admin/users
func (h *Handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	filter := Filter{
		Role:   httputil.ParseQueryString(r, "role", ""),
		Status: Status(httputil.ParseQueryString(r, "status", "")),
	}

	page, limit, err := httputil.ParsePagination(r, DefaultPageSize, MaxPageSize)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.service.List(r.Context(), filter, page, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

// getUser handles GET /users/{userId}
func (h *Handlers) getUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathInt64OrError(w, r, "userId")
	if !ok {
		return
	}

	user, err := h.service.Get(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

// updateStatus handles PATCH /admin/users/{id}/status
func (h *Handlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		httputil.WriteValidationError(w, "status is required")
		return
	}

	user, err := h.service.UpdateStatus(r.Context(), userID, req.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, "user status updated", user)
}

// archiveUser handles POST /admin/users/{id}/archive
func (h *Handlers) archiveUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	user, err := h.service.Archive(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, "user archived", user)
}

// bulkUpdateStatus handles POST /admin/users/bulk/status
func (h *Handlers) bulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req bulkStatusRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		httputil.WriteValidationError(w, "userIds and status are required")
		return
	}

	result, err := h.service.BulkUpdateStatus(r.Context(), req.UserIDs, req.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, "user statuses updated", result)
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := rbac.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).Error("User directory request failed")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteErrorMessage(w, status, err.Error(), nil)
}
