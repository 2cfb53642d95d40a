package rbac

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/maestroapp/maestro/pkg/httputil"
	"github.com/maestroapp/maestro/pkg/observability"
)

var validate = validator.New()

// Admin is the surface the HTTP handlers need. *Service implements it.
type Admin interface {
	ListRoles(ctx context.Context) ([]*Role, error)
	GetRole(ctx context.Context, roleID int64) (*Role, error)
	GetRoleByName(ctx context.Context, name string) (*Role, error)
	ReplacePermissions(ctx context.Context, roleID int64, permissions []string) (*Role, error)
	AddPermission(ctx context.Context, roleID int64, permission string) (*Role, error)
	RemovePermission(ctx context.Context, roleID int64, permission string) (*Role, error)
	ListPermissions(ctx context.Context) ([]*PermissionInfo, error)
	GetPermission(ctx context.Context, name string) (*PermissionInfo, error)
	SyncCatalog(ctx context.Context) (*SyncResult, error)
	RoleStats(ctx context.Context) ([]*RoleUserCount, error)
}

// Handlers exposes role and permission administration under /admin
type Handlers struct {
	service Admin
	logger  *observability.Logger
}

// NewHandlers creates role admin HTTP handlers
func NewHandlers(service Admin, logger *observability.Logger) *Handlers {
	return &Handlers{service: service, logger: logger}
}

type replacePermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"required"`
}

type addPermissionRequest struct {
	Permission string `json:"permission" validate:"required"`
}

// RegisterRoutes registers the role admin routes. read guards the read
// endpoints and manage guards the mutations; nil guards register the handlers
// unprotected. Fixed paths are registered before parameterized ones so
// /admin/roles/stats never resolves as a role id.
func (h *Handlers) RegisterRoutes(router *mux.Router, read, manage func(http.Handler) http.Handler) {
	router.Handle("/admin/roles", guard(read, h.listRoles)).Methods(http.MethodGet)
	router.Handle("/admin/roles/stats", guard(read, h.roleStats)).Methods(http.MethodGet)
	router.Handle("/admin/roles/name/{name}", guard(read, h.getRoleByName)).Methods(http.MethodGet)
	router.Handle("/admin/roles/{id}", guard(read, h.getRole)).Methods(http.MethodGet)
	router.Handle("/admin/roles/{id}/permissions", guard(manage, h.replacePermissions)).Methods(http.MethodPut)
	router.Handle("/admin/roles/{id}/permissions", guard(manage, h.addPermission)).Methods(http.MethodPost)
	router.Handle("/admin/roles/{id}/permissions/{permission}", guard(manage, h.removePermission)).Methods(http.MethodDelete)

	router.Handle("/admin/permissions", guard(read, h.listPermissions)).Methods(http.MethodGet)
	router.Handle("/admin/permissions/sync", guard(manage, h.syncCatalog)).Methods(http.MethodPost)
	router.Handle("/admin/permissions/{name}", guard(read, h.getPermission)).Methods(http.MethodGet)
}

func guard(g func(http.Handler) http.Handler, h http.HandlerFunc) http.Handler {
	if g == nil {
		return h
	}
	return g(h)
}

// listRoles handles GET /admin/roles
func (h *Handlers) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"roles": roles,
		"total": len(roles),
	})
}

// getRole handles GET /admin/roles/{id}
func (h *Handlers) getRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	role, err := h.service.GetRole(r.Context(), roleID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, role)
}

// getRoleByName handles GET /admin/roles/name/{name}
func (h *Handlers) getRoleByName(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.GetRoleByName(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, role)
}

// roleStats handles GET /admin/roles/stats
func (h *Handlers) roleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.RoleStats(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"stats": counts})
}

// replacePermissions handles PUT /admin/roles/{id}/permissions
func (h *Handlers) replacePermissions(w http.ResponseWriter, r *http.Request) {
	roleID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req replacePermissionsRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		httputil.WriteValidationError(w, "permissions array is required")
		return
	}

	role, err := h.service.ReplacePermissions(r.Context(), roleID, req.Permissions)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, "role permissions updated", role)
}

// addPermission handles POST /admin/roles/{id}/permissions
func (h *Handlers) addPermission(w http.ResponseWriter, r *http.Request) {
	roleID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req addPermissionRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		httputil.WriteValidationError(w, "permission is required")
		return
	}

	role, err := h.service.AddPermission(r.Context(), roleID, req.Permission)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, "permission added", role)
}

// removePermission handles DELETE /admin/roles/{id}/permissions/{permission}
func (h *Handlers) removePermission(w http.ResponseWriter, r *http.Request) {
	roleID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	role, err := h.service.RemovePermission(r.Context(), roleID, mux.Vars(r)["permission"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, "permission removed", role)
}

// listPermissions handles GET /admin/permissions
func (h *Handlers) listPermissions(w http.ResponseWriter, r *http.Request) {
	permissions, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"permissions": permissions,
		"total":       len(permissions),
	})
}

// getPermission handles GET /admin/permissions/{name}
func (h *Handlers) getPermission(w http.ResponseWriter, r *http.Request) {
	permission, err := h.service.GetPermission(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, permission)
}

// syncCatalog handles POST /admin/permissions/sync
func (h *Handlers) syncCatalog(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.SyncCatalog(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, "permission catalog synced", result)
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).Error("Role admin request failed")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteErrorMessage(w, status, err.Error(), nil)
}
