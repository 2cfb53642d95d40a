package api

import (
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/maestroapp/maestro/pkg/audit"
	"github.com/maestroapp/maestro/pkg/auth"
	"github.com/maestroapp/maestro/pkg/config"
	"github.com/maestroapp/maestro/pkg/contextkeys"
	"github.com/maestroapp/maestro/pkg/httputil"
	"github.com/maestroapp/maestro/pkg/observability"
	"github.com/maestroapp/maestro/pkg/rbac"
	"github.com/maestroapp/maestro/pkg/users"
)

// Options carries the dependencies NewServer wires together. All fields are
// required; cmd/maestro constructs them from configuration at boot.
type Options struct {
	Config   *config.Config
	Logger   *observability.Logger
	Metrics  *observability.Metrics
	Verifier *auth.TokenVerifier
	Resolver auth.PermissionResolver
	Guard    *rbac.Guard
	Recorder *audit.Recorder

	Audit audit.Querier
	Roles rbac.Admin
	Users users.Directory
}

// Server is the admin API server. It mounts the role, user and audit handler
// groups behind their permission gates and wraps the router in the shared
// middleware chain: recovery, request IDs, request logging, metrics, CORS,
// body limits, token authentication and the audit trail.
type Server struct {
	router  *mux.Router
	handler http.Handler
	logger  *observability.Logger
}

// NewServer creates the admin API server
func NewServer(opts Options) *Server {
	s := &Server{
		router: mux.NewRouter(),
		logger: opts.Logger,
	}

	s.setupRoutes(opts)

	s.handler = middleware(opts)(s.router)
	if opts.Config.Observability.OTelEnabled {
		s.handler = otelhttp.NewHandler(s.handler, opts.Config.Observability.OTelServiceName)
	}

	return s
}

// setupRoutes mounts the handler groups under their permission gates
func (s *Server) setupRoutes(opts Options) {
	guard := opts.Guard

	roleHandlers := rbac.NewHandlers(opts.Roles, opts.Logger)
	roleHandlers.RegisterRoutes(s.router,
		guard.RequirePermission(rbac.PermRoleRead),
		guard.RequirePermission(rbac.PermRoleManage),
	)

	userHandlers := users.NewHandlers(opts.Users, opts.Logger)
	userHandlers.RegisterRoutes(s.router,
		guard.RequirePermission(rbac.PermUserRead),
		guard.RequirePermission(rbac.PermUserManage),
		guard.RequirePermission(rbac.PermUserArchive),
		guard.RequireOwnership("userId"),
	)

	auditHandlers := audit.NewHandlers(opts.Audit, opts.Logger)
	auditHandlers.RegisterRoutes(s.router,
		guard.RequirePermission(rbac.PermAuditRead),
		guard.RequirePermission(rbac.PermAuditExport),
	)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// RouteRegistrar is an interface for handler groups that can register routes.
// The wider school backend mounts its domain routers (students, classes,
// invoices) through this so they inherit the middleware chain and gates.
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// RegisterRoutes registers routes from a RouteRegistrar
func (s *Server) RegisterRoutes(registrar RouteRegistrar) {
	registrar.RegisterRoutes(s.router)
}

// middleware builds the shared chain, outermost first. Authentication runs
// before the audit trail so trail entries carry the resolved actor.
func middleware(opts Options) func(http.Handler) http.Handler {
	cfg := opts.Config
	return httputil.Chain(
		httputil.RecoveryMiddleware,
		httputil.RequestIDMiddleware,
		requestLogMiddleware(opts.Logger),
		observability.HTTPMetricsMiddleware(opts.Metrics),
		httputil.CORSMiddleware(cfg.Server.AllowedOrigins),
		httputil.ContentTypeMiddleware,
		httputil.MaxBytesMiddleware(cfg.Server.MaxBodyBytes),
		auth.Middleware(opts.Verifier, opts.Resolver, opts.Logger),
		audit.TrailMiddleware(opts.Recorder),
	)
}

// statusRecorder captures the response status for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// requestLogMiddleware logs one line per request. Server errors log at error
// level; everything else at info.
func requestLogMiddleware(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			entry := logger.WithFields(map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.status,
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  contextkeys.GetRequestID(r.Context()),
			})
			if rec.status >= http.StatusInternalServerError {
				entry.Error("Request failed")
			} else {
				entry.Info("Request handled")
			}
		})
	}
}

// NewHTTPServer builds the http.Server for the admin API with the configured
// timeouts applied.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// NewOpsHandler builds the handler for the operational endpoints: liveness,
// readiness and, when a registry is given, Prometheus metrics. It does not go
// through the admin middleware chain; probes are unauthenticated.
func NewOpsHandler(checker *observability.HealthChecker, registry *prometheus.Registry) http.Handler {
	m := http.NewServeMux()
	observability.RegisterHealthRoutes(m, checker)
	if registry != nil {
		observability.RegisterMetricsEndpoint(m, registry)
	}
	return m
}

// NewOpsServer builds the http.Server for the operational endpoints on the
// health port.
func NewOpsServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.HealthPort),
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}
