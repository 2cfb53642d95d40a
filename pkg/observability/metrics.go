package observability

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Authorization decision outcomes recorded by the gate middleware.
const (
	DecisionAllowed         = "allowed"
	DecisionDenied          = "denied"
	DecisionUnauthenticated = "unauthenticated"
)

// Metrics records operational metrics to both Prometheus (scraped via
// /metrics) and OpenTelemetry (exported over OTLP when enabled). Call sites
// record once; both backends are updated. With OTel disabled the global
// meter is a no-op, so the OTel side costs nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization metrics
	AuthzDecisionsTotal *prometheus.CounterVec

	// Audit pipeline metrics
	AuditEntriesTotal *prometheus.CounterVec
	AuditDroppedTotal *prometheus.CounterVec
	AuditQueueDepth   prometheus.Gauge

	// Role permission cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Connection pool gauges
	DBConnectionsActive    prometheus.Gauge
	DBConnectionsIdle      prometheus.Gauge
	RedisConnectionsActive prometheus.Gauge

	// OTel mirrors of the counters above
	otelHTTPRequests   metric.Int64Counter
	otelHTTPDuration   metric.Float64Histogram
	otelAuthzDecisions metric.Int64Counter
	otelAuditEntries   metric.Int64Counter
	otelCacheHits      metric.Int64Counter
	otelCacheMisses    metric.Int64Counter
}

// NewMetrics creates and registers all metrics. The OTel instruments use the
// global meter provider, so InitOTel (when enabled) must run first.
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maestro_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "maestro_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maestro_authz_decisions_total",
				Help: "Access gate decisions by gate type and outcome",
			},
			[]string{"gate", "outcome"},
		),
		AuditEntriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maestro_audit_entries_total",
				Help: "Audit entries submitted to the recorder, by severity and write status",
			},
			[]string{"severity", "status"},
		),
		AuditDroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maestro_audit_dropped_total",
				Help: "Audit entries dropped without a write attempt",
			},
			[]string{"reason"},
		),
		AuditQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "maestro_audit_queue_depth",
				Help: "Entries currently waiting in the audit write queue",
			},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maestro_role_cache_hits_total",
				Help: "Role permission cache hits by tier",
			},
			[]string{"tier"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maestro_role_cache_misses_total",
				Help: "Role permission cache misses by tier",
			},
			[]string{"tier"},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "maestro_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "maestro_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		RedisConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "maestro_redis_connections_active",
				Help: "Number of active Redis connections",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthzDecisionsTotal,
		m.AuditEntriesTotal,
		m.AuditDroppedTotal,
		m.AuditQueueDepth,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.RedisConnectionsActive,
	)

	meter := otel.Meter("github.com/maestroapp/maestro")
	var err error

	m.otelHTTPRequests, err = meter.Int64Counter(
		"http.server.requests",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request counter: %w", err)
	}

	m.otelHTTPDuration, err = meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	m.otelAuthzDecisions, err = meter.Int64Counter(
		"authz.decisions",
		metric.WithDescription("Access gate decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authz decision counter: %w", err)
	}

	m.otelAuditEntries, err = meter.Int64Counter(
		"audit.entries",
		metric.WithDescription("Audit entries submitted to the recorder"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit entry counter: %w", err)
	}

	m.otelCacheHits, err = meter.Int64Counter(
		"role_cache.hits",
		metric.WithDescription("Role permission cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache hit counter: %w", err)
	}

	m.otelCacheMisses, err = meter.Int64Counter(
		"role_cache.misses",
		metric.WithDescription("Role permission cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache miss counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records one served HTTP request
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	)
	m.otelHTTPRequests.Add(ctx, 1, attrs)
	m.otelHTTPDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordAuthzDecision records one gate evaluation outcome
func (m *Metrics) RecordAuthzDecision(ctx context.Context, gate, outcome string) {
	m.AuthzDecisionsTotal.WithLabelValues(gate, outcome).Inc()
	m.otelAuthzDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("authz.gate", gate),
		attribute.String("authz.outcome", outcome),
	))
}

// RecordAuditEntry records one audit entry write attempt
func (m *Metrics) RecordAuditEntry(ctx context.Context, severity string, ok bool) {
	status := "written"
	if !ok {
		status = "failed"
	}
	m.AuditEntriesTotal.WithLabelValues(severity, status).Inc()
	m.otelAuditEntries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("audit.severity", severity),
		attribute.String("audit.status", status),
	))
}

// RecordAuditDrop records an entry discarded before any write attempt
func (m *Metrics) RecordAuditDrop(reason string) {
	m.AuditDroppedTotal.WithLabelValues(reason).Inc()
}

// SetAuditQueueDepth reports the current audit queue backlog
func (m *Metrics) SetAuditQueueDepth(depth int) {
	m.AuditQueueDepth.Set(float64(depth))
}

// RecordCacheHit records a role cache hit for the given tier (memory, redis)
func (m *Metrics) RecordCacheHit(ctx context.Context, tier string) {
	m.CacheHitsTotal.WithLabelValues(tier).Inc()
	m.otelCacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.tier", tier)))
}

// RecordCacheMiss records a role cache miss for the given tier
func (m *Metrics) RecordCacheMiss(ctx context.Context, tier string) {
	m.CacheMissesTotal.WithLabelValues(tier).Inc()
	m.otelCacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.tier", tier)))
}

// UpdateDBStats publishes connection pool gauges from sql.DBStats
func (m *Metrics) UpdateDBStats(stats sql.DBStats) {
	m.DBConnectionsActive.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
}

// SetRedisConnections publishes the Redis pool gauge
func (m *Metrics) SetRedisConnections(n int) {
	m.RedisConnectionsActive.Set(float64(n))
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rw.statusCode, time.Since(start))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
