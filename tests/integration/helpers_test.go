// +build integration

package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/maestroapp/maestro/pkg/api"
	"github.com/maestroapp/maestro/pkg/audit"
	"github.com/maestroapp/maestro/pkg/auth"
	"github.com/maestroapp/maestro/pkg/config"
	"github.com/maestroapp/maestro/pkg/observability"
	"github.com/maestroapp/maestro/pkg/rbac"
	"github.com/maestroapp/maestro/pkg/users"
)

// setupPostgres starts a PostgreSQL test container, applies the schema and
// seeds the built-in roles. The cleanup function closes the connection and
// terminates the container together with its volumes.
func setupPostgres(t *testing.T) (*sql.DB, string, func()) {
	t.Helper()

	ctx := context.Background()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker not available, skipping integration tests")
	}
	defer provider.Close()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("maestro_test"),
		postgres.WithUsername("maestro"),
		postgres.WithPassword("maestro_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
		postgres.BasicWaitStrategies(),
		testcontainers.CustomizeRequest(testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				AutoRemove: true,
			},
		}),
	)
	if err != nil {
		t.Skipf("Failed to start PostgreSQL container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	require.NoError(t, db.Ping())

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	require.NoError(t, rbac.RunMigrations(ctx, db, logger), "Failed to run migrations")
	require.NoError(t, audit.NewStore(db, db).EnsureSchema(ctx))
	require.NoError(t, users.NewStore(db).EnsureSchema(ctx))
	require.NoError(t, rbac.InitializeBuiltInRoles(ctx, rbac.NewStore(db), logger))

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close database: %v", err)
		}

		// Fresh context; the test's own context may already be cancelled
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := container.Terminate(cleanupCtx); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	}

	return db, connStr, cleanup
}

// testStack is the fully wired application under test
type testStack struct {
	server   *api.Server
	verifier *auth.TokenVerifier
	recorder *audit.Recorder
	roles    *rbac.Service
	audits   *audit.Service
	users    *users.Service
	db       *sql.DB
}

// newTestStack assembles the server against a real database the way
// cmd/maestro does at boot, minus Redis and the ops endpoints.
func newTestStack(t *testing.T, db *sql.DB) *testStack {
	t.Helper()

	ctx := context.Background()
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	metrics, err := observability.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	rbacStore := rbac.NewStore(db)
	auditStore := audit.NewStore(db, db)
	userStore := users.NewStore(db)

	recorder := audit.NewRecorder(auditStore, logger, metrics, 64, 2)
	t.Cleanup(recorder.Close)

	cache := rbac.NewPermissionCache(rbacStore, nil, 128, time.Minute, metrics, logger)
	roleService := rbac.NewService(rbacStore, cache, recorder, logger)
	_, err = roleService.SyncCatalog(ctx)
	require.NoError(t, err)

	auditService := audit.NewService(auditStore)
	userService := users.NewService(userStore, recorder, logger)

	verifier := auth.NewTokenVerifier("integration-secret", "maestro-test")
	guard := rbac.NewGuard(metrics, recorder, logger)

	cfg := &config.Config{
		Server: config.ServerConfig{
			AllowedOrigins: []string{"*"},
			MaxBodyBytes:   1 << 20,
		},
	}

	server := api.NewServer(api.Options{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics,
		Verifier: verifier,
		Resolver: roleService,
		Guard:    guard,
		Recorder: recorder,
		Audit:    auditService,
		Roles:    roleService,
		Users:    userService,
	})

	return &testStack{
		server:   server,
		verifier: verifier,
		recorder: recorder,
		roles:    roleService,
		audits:   auditService,
		users:    userService,
		db:       db,
	}
}

// request performs one HTTP request against the stack, signing a token for
// the given identity when role is non-empty.
func (s *testStack) request(t *testing.T, method, target, role string, userID int64, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		token, err := s.verifier.Sign(userID, role, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.server.ServeHTTP(w, req)
	return w
}

// envelope is the response wrapper every endpoint uses
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "Body was: %s", w.Body.String())
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	env := decode(t, w)
	require.True(t, env.Success, "Expected success envelope, got: %s", w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
}

// queryTrail fetches one page of audit entries matching the query string. It
// reports failures through its return value so it can run inside Eventually
// conditions, which execute off the test goroutine.
func (s *testStack) queryTrail(t *testing.T, adminID int64, query string) (*audit.Page, bool) {
	t.Helper()

	w := s.request(t, "GET", "/admin/system/audit?"+query, rbac.RoleAdmin, adminID, nil)
	if w.Code != http.StatusOK {
		return nil, false
	}

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil || !env.Success {
		return nil, false
	}
	var page audit.Page
	if err := json.Unmarshal(env.Data, &page); err != nil {
		return nil, false
	}
	return &page, true
}

func seedUser(t *testing.T, db *sql.DB, email, role string, status users.Status) *users.User {
	t.Helper()

	u := &users.User{
		Email:     email,
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
		Status:    status,
	}
	require.NoError(t, users.NewStore(db).Create(context.Background(), u))
	return u
}

func statusOK(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, "Body was: %s", w.Body.String())
}
