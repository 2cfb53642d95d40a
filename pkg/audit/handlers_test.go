package audit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestroapp/maestro/pkg/observability"
)

type stubQuerier struct {
	page    *Page
	entries []*Entry
	stats   *Stats
	err     error

	gotFilter Filter
	gotPage   int
	gotLimit  int
	gotModel  string
	gotID     string
	gotUserID int64
	gotFrom   *time.Time
	gotSince  time.Time
	gotFormat ExportFormat
}

func (s *stubQuerier) Query(ctx context.Context, f Filter, page, limit int) (*Page, error) {
	s.gotFilter, s.gotPage, s.gotLimit = f, page, limit
	return s.page, s.err
}

func (s *stubQuerier) EntityHistory(ctx context.Context, model, id string, limit int) ([]*Entry, error) {
	s.gotModel, s.gotID, s.gotLimit = model, id, limit
	return s.entries, s.err
}

func (s *stubQuerier) UserActions(ctx context.Context, userID int64, from *time.Time, limit int) ([]*Entry, error) {
	s.gotUserID, s.gotFrom, s.gotLimit = userID, from, limit
	return s.entries, s.err
}

func (s *stubQuerier) CriticalEvents(ctx context.Context, since time.Time, limit int) ([]*Entry, error) {
	s.gotSince, s.gotLimit = since, limit
	return s.entries, s.err
}

func (s *stubQuerier) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	s.gotSince = since
	return s.stats, s.err
}

func (s *stubQuerier) Export(ctx context.Context, f Filter, format ExportFormat, w io.Writer) (int64, error) {
	s.gotFilter, s.gotFormat = f, format
	if s.err != nil {
		return 0, s.err
	}
	_, err := w.Write([]byte("exported\n"))
	return 1, err
}

func newAuditTestRouter(service Querier) *mux.Router {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	handlers := NewHandlers(service, logger)
	router := mux.NewRouter()
	handlers.RegisterRoutes(router, nil, nil)
	return router
}

func doRequest(t *testing.T, router *mux.Router, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestListLogsHandler(t *testing.T) {
	t.Run("passes filters through", func(t *testing.T) {
		stub := &stubQuerier{page: &Page{Logs: []*Entry{}, Total: 0, Page: 2, Limit: 25}}
		router := newAuditTestRouter(stub)

		rec := doRequest(t, router, http.MethodGet,
			"/admin/system/audit?performedBy=42&targetModel=User&targetId=14&action=CREATE,DELETE&severity=WARNING&fromDate=2026-08-01&toDate=2026-08-20&page=2&limit=25")
		assert.Equal(t, http.StatusOK, rec.Code)

		require.NotNil(t, stub.gotFilter.PerformedBy)
		assert.Equal(t, int64(42), *stub.gotFilter.PerformedBy)
		assert.Equal(t, "User", stub.gotFilter.TargetModel)
		assert.Equal(t, "14", stub.gotFilter.TargetID)
		assert.Equal(t, []string{"CREATE", "DELETE"}, stub.gotFilter.Actions)
		assert.Equal(t, []Severity{SeverityWarning}, stub.gotFilter.Severities)
		require.NotNil(t, stub.gotFilter.From)
		assert.Equal(t, 2026, stub.gotFilter.From.Year())
		assert.Equal(t, 2, stub.gotPage)
		assert.Equal(t, 25, stub.gotLimit)

		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
		data := body["data"].(map[string]interface{})
		assert.Contains(t, data, "logs")
		assert.Contains(t, data, "totalPages")
	})

	t.Run("invalid performedBy", func(t *testing.T) {
		router := newAuditTestRouter(&stubQuerier{})
		rec := doRequest(t, router, http.MethodGet, "/admin/system/audit?performedBy=abc")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Contains(t, body["message"], "invalid performedBy")
	})

	t.Run("invalid severity", func(t *testing.T) {
		router := newAuditTestRouter(&stubQuerier{})
		rec := doRequest(t, router, http.MethodGet, "/admin/system/audit?severity=SHOUTING")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		assert.Contains(t, body["message"], "invalid severity")
	})

	t.Run("service failure maps to 500 without details", func(t *testing.T) {
		stub := &stubQuerier{err: context.DeadlineExceeded}
		router := newAuditTestRouter(stub)
		rec := doRequest(t, router, http.MethodGet, "/admin/system/audit")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "internal server error", body["message"])
	})
}

func TestStatsHandler(t *testing.T) {
	t.Run("default window is seven days", func(t *testing.T) {
		stub := &stubQuerier{stats: &Stats{Total: 10}}
		router := newAuditTestRouter(stub)

		rec := doRequest(t, router, http.MethodGet, "/admin/system/audit/stats")
		assert.Equal(t, http.StatusOK, rec.Code)

		expected := time.Now().UTC().AddDate(0, 0, -7)
		assert.WithinDuration(t, expected, stub.gotSince, 5*time.Second)
	})

	t.Run("custom window", func(t *testing.T) {
		stub := &stubQuerier{stats: &Stats{}}
		router := newAuditTestRouter(stub)

		doRequest(t, router, http.MethodGet, "/admin/system/audit/stats?days=30")
		expected := time.Now().UTC().AddDate(0, 0, -30)
		assert.WithinDuration(t, expected, stub.gotSince, 5*time.Second)
	})

	t.Run("rejects non-positive days", func(t *testing.T) {
		router := newAuditTestRouter(&stubQuerier{stats: &Stats{}})
		rec := doRequest(t, router, http.MethodGet, "/admin/system/audit/stats?days=0")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCriticalHandler(t *testing.T) {
	stub := &stubQuerier{entries: []*Entry{{ID: 1, Action: ActionPermissionDenied, Severity: SeverityCritical}}}
	router := newAuditTestRouter(stub)

	rec := doRequest(t, router, http.MethodGet, "/admin/system/audit/critical?days=14&limit=10")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, stub.gotLimit)
	expected := time.Now().UTC().AddDate(0, 0, -14)
	assert.WithinDuration(t, expected, stub.gotSince, 5*time.Second)

	body := decodeBody(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(14), data["days"])
	assert.Len(t, data["events"], 1)
}

func TestEntityHistoryHandler(t *testing.T) {
	stub := &stubQuerier{entries: []*Entry{{ID: 3}}}
	router := newAuditTestRouter(stub)

	rec := doRequest(t, router, http.MethodGet, "/admin/system/audit/entity/User/14?limit=5")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User", stub.gotModel)
	assert.Equal(t, "14", stub.gotID)
	assert.Equal(t, 5, stub.gotLimit)

	body := decodeBody(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "User", data["model"])
	assert.Len(t, data["history"], 1)
}

func TestUserActionsHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		stub := &stubQuerier{entries: []*Entry{}}
		router := newAuditTestRouter(stub)

		rec := doRequest(t, router, http.MethodGet, "/admin/system/audit/user/42?fromDate=2026-08-01")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(42), stub.gotUserID)
		require.NotNil(t, stub.gotFrom)
	})

	t.Run("invalid user id", func(t *testing.T) {
		router := newAuditTestRouter(&stubQuerier{})
		rec := doRequest(t, router, http.MethodGet, "/admin/system/audit/user/abc")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestExportHandler(t *testing.T) {
	t.Run("defaults to csv", func(t *testing.T) {
		stub := &stubQuerier{}
		router := newAuditTestRouter(stub)

		rec := doRequest(t, router, http.MethodGet, "/admin/system/audit/export")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, ExportFormatCSV, stub.gotFormat)
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
		assert.Equal(t, "exported\n", rec.Body.String())
	})

	t.Run("ndjson", func(t *testing.T) {
		stub := &stubQuerier{}
		router := newAuditTestRouter(stub)

		rec := doRequest(t, router, http.MethodGet, "/admin/system/audit/export?format=ndjson")
		assert.Equal(t, ExportFormatNDJSON, stub.gotFormat)
		assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))
	})

	t.Run("unsupported format", func(t *testing.T) {
		router := newAuditTestRouter(&stubQuerier{})
		rec := doRequest(t, router, http.MethodGet, "/admin/system/audit/export?format=xlsx")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRegisterRoutesAppliesGuards(t *testing.T) {
	denied := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
	}

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	handlers := NewHandlers(&stubQuerier{page: &Page{}}, logger)
	router := mux.NewRouter()
	handlers.RegisterRoutes(router, denied, nil)

	// Read endpoints are blocked by the read guard.
	rec := doRequest(t, router, http.MethodGet, "/admin/system/audit")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The export endpoint uses its own guard, nil here.
	rec = doRequest(t, router, http.MethodGet, "/admin/system/audit/export")
	assert.Equal(t, http.StatusOK, rec.Code)
}
