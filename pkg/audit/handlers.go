package audit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/maestroapp/maestro/pkg/httputil"
	"github.com/maestroapp/maestro/pkg/observability"
)

// Querier is the read surface the HTTP handlers need. *Service implements it.
type Querier interface {
	Query(ctx context.Context, f Filter, page, limit int) (*Page, error)
	EntityHistory(ctx context.Context, model, id string, limit int) ([]*Entry, error)
	UserActions(ctx context.Context, userID int64, from *time.Time, limit int) ([]*Entry, error)
	CriticalEvents(ctx context.Context, since time.Time, limit int) ([]*Entry, error)
	Stats(ctx context.Context, since time.Time) (*Stats, error)
	Export(ctx context.Context, f Filter, format ExportFormat, w io.Writer) (int64, error)
}

// Handlers exposes the audit log API under /admin/system/audit
type Handlers struct {
	service Querier
	logger  *observability.Logger
}

// NewHandlers creates audit HTTP handlers
func NewHandlers(service Querier, logger *observability.Logger) *Handlers {
	return &Handlers{service: service, logger: logger}
}

// RegisterRoutes registers the audit routes. read guards the query endpoints
// and export guards the export endpoint; nil guards register the handlers
// unprotected.
func (h *Handlers) RegisterRoutes(router *mux.Router, read, export func(http.Handler) http.Handler) {
	router.Handle("/admin/system/audit", guard(read, h.listLogs)).Methods(http.MethodGet)
	router.Handle("/admin/system/audit/stats", guard(read, h.getStats)).Methods(http.MethodGet)
	router.Handle("/admin/system/audit/critical", guard(read, h.listCritical)).Methods(http.MethodGet)
	router.Handle("/admin/system/audit/export", guard(export, h.exportLogs)).Methods(http.MethodGet)
	router.Handle("/admin/system/audit/entity/{model}/{id}", guard(read, h.entityHistory)).Methods(http.MethodGet)
	router.Handle("/admin/system/audit/user/{userId}", guard(read, h.userActions)).Methods(http.MethodGet)
}

func guard(g func(http.Handler) http.Handler, h http.HandlerFunc) http.Handler {
	if g == nil {
		return h
	}
	return g(h)
}

// listLogs handles GET /admin/system/audit
func (h *Handlers) listLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	page, limit, err := httputil.ParsePagination(r, DefaultPageSize, MaxPageSize)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.service.Query(r.Context(), filter, page, limit)
	if err != nil {
		h.logger.WithError(err).Error("audit query failed")
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, result)
}

// getStats handles GET /admin/system/audit/stats
func (h *Handlers) getStats(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r, 7)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	stats, err := h.service.Stats(r.Context(), since)
	if err != nil {
		h.logger.WithError(err).Error("audit stats failed")
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, stats)
}

// listCritical handles GET /admin/system/audit/critical
func (h *Handlers) listCritical(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r, 7)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	limit, err := httputil.ParseQueryInt(r, "limit", MaxPageSize)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	entries, err := h.service.CriticalEvents(r.Context(), since, limit)
	if err != nil {
		h.logger.WithError(err).Error("critical events query failed")
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"events": entries,
		"days":   days,
	})
}

// entityHistory handles GET /admin/system/audit/entity/{model}/{id}
func (h *Handlers) entityHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	model := vars["model"]
	id := vars["id"]

	limit, err := httputil.ParseQueryInt(r, "limit", DefaultPageSize)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	entries, err := h.service.EntityHistory(r.Context(), model, id, limit)
	if err != nil {
		h.logger.WithError(err).Error("entity history query failed")
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"model":   model,
		"id":      id,
		"history": entries,
	})
}

// userActions handles GET /admin/system/audit/user/{userId}
func (h *Handlers) userActions(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathInt64OrError(w, r, "userId")
	if !ok {
		return
	}

	from, err := httputil.ParseQueryTime(r, "fromDate")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	limit, err := httputil.ParseQueryInt(r, "limit", DefaultPageSize)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	entries, err := h.service.UserActions(r.Context(), userID, from, limit)
	if err != nil {
		h.logger.WithError(err).Error("user actions query failed")
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"userId":  userID,
		"actions": entries,
	})
}

// exportLogs handles GET /admin/system/audit/export. The response is
// streamed, so a storage failure mid-export truncates the download rather
// than producing an error envelope.
func (h *Handlers) exportLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	format := ExportFormat(httputil.ParseQueryString(r, "format", string(ExportFormatCSV)))
	if !format.Valid() {
		httputil.WriteBadRequest(w, fmt.Sprintf("unsupported export format: %s", format))
		return
	}

	filename := "audit-logs-" + time.Now().UTC().Format("20060102") + "." + string(format)
	switch format {
	case ExportFormatCSV:
		w.Header().Set("Content-Type", "text/csv")
	case ExportFormatNDJSON:
		w.Header().Set("Content-Type", "application/x-ndjson")
	}
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)

	written, err := h.service.Export(r.Context(), filter, format, w)
	if err != nil {
		h.logger.WithError(err).WithField("written", written).Error("audit export failed")
	}
}

// parseFilter builds a Filter from the shared audit query parameters
func parseFilter(r *http.Request) (Filter, error) {
	filter := Filter{}
	query := r.URL.Query()

	if raw := query.Get("performedBy"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid performedBy: %s", raw)
		}
		filter.PerformedBy = &id
	}

	filter.TargetModel = query.Get("targetModel")
	filter.TargetID = query.Get("targetId")

	if raw := query.Get("action"); raw != "" {
		filter.Actions = splitList(raw)
	}

	if raw := query.Get("severity"); raw != "" {
		for _, part := range splitList(raw) {
			sev := Severity(part)
			if !sev.Valid() {
				return filter, fmt.Errorf("invalid severity: %s", part)
			}
			filter.Severities = append(filter.Severities, sev)
		}
	}

	from, err := httputil.ParseQueryTime(r, "fromDate")
	if err != nil {
		return filter, err
	}
	filter.From = from

	to, err := httputil.ParseQueryTime(r, "toDate")
	if err != nil {
		return filter, err
	}
	filter.To = to

	return filter, nil
}

// parseDays reads the days window parameter, rejecting zero and negatives
func parseDays(r *http.Request, defaultDays int) (int, error) {
	days, err := httputil.ParseQueryInt(r, "days", defaultDays)
	if err != nil {
		return 0, err
	}
	if days < 1 {
		return 0, fmt.Errorf("days must be positive, got %d", days)
	}
	return days, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
