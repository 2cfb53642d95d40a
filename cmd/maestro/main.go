package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/maestroapp/maestro/pkg/api"
	"github.com/maestroapp/maestro/pkg/audit"
	"github.com/maestroapp/maestro/pkg/auth"
	"github.com/maestroapp/maestro/pkg/config"
	"github.com/maestroapp/maestro/pkg/observability"
	"github.com/maestroapp/maestro/pkg/rbac"
	"github.com/maestroapp/maestro/pkg/storage/postgres"
	"github.com/maestroapp/maestro/pkg/users"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("version", observability.Version).Info("Starting maestro")

	registry := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(registry)
	if err != nil {
		fatal(logger, err, "Failed to register metrics")
	}

	ctx := context.Background()

	var otelProviders *observability.OTelProviders
	if cfg.Observability.OTelEnabled {
		otelProviders, err = observability.InitOTel(ctx, observability.OTelConfig{
			Enabled:        true,
			Endpoint:       cfg.Observability.OTelEndpoint,
			ServiceName:    cfg.Observability.OTelServiceName,
			ServiceVersion: cfg.Observability.OTelServiceVersion,
			Insecure:       cfg.Observability.OTelInsecure,
			SampleRatio:    cfg.Observability.OTelSampleRatio,
		}, logger)
		if err != nil {
			fatal(logger, err, "Failed to initialize OpenTelemetry")
		}
	}

	cm, err := postgres.NewConnectionManager(postgres.ConnectionConfig{
		PrimaryURL:  cfg.Storage.PostgresURL,
		ReplicaURLs: postgres.ParseReplicaURLs(cfg.Storage.PostgresReplicaURLs),
		MaxConns:    cfg.Storage.PostgresMaxConns,
		MinConns:    cfg.Storage.PostgresMinConns,
		Timeout:     cfg.Storage.PostgresTimeout,
	}, logger)
	if err != nil {
		fatal(logger, err, "Failed to connect to PostgreSQL")
	}
	defer cm.Close()

	var redisClient *postgres.RedisClient
	if cfg.Storage.RedisURL != "" {
		redisClient, err = postgres.NewRedisClient(cfg.Storage)
		if err != nil {
			fatal(logger, err, "Failed to connect to Redis")
		}
		defer redisClient.Close()
	}

	if err := rbac.RunMigrations(ctx, cm.Primary(), logger); err != nil {
		fatal(logger, err, "Failed to run migrations")
	}

	rbacStore := rbac.NewStore(cm.Primary())
	auditStore := audit.NewStore(cm.Primary(), cm.Replica())
	userStore := users.NewStore(cm.Primary())

	if err := auditStore.EnsureSchema(ctx); err != nil {
		fatal(logger, err, "Failed to ensure audit schema")
	}
	if err := userStore.EnsureSchema(ctx); err != nil {
		fatal(logger, err, "Failed to ensure users schema")
	}
	if err := rbac.InitializeBuiltInRoles(ctx, rbacStore, logger); err != nil {
		fatal(logger, err, "Failed to initialize built-in roles")
	}

	recorder := audit.NewRecorder(auditStore, logger, metrics, cfg.Audit.QueueSize, cfg.Audit.Workers)

	cache := rbac.NewPermissionCache(
		rbacStore,
		redisClient,
		cfg.Storage.L1CacheEntries,
		cfg.Storage.CacheTTL["role_permissions"],
		metrics,
		logger,
	)
	roleService := rbac.NewService(rbacStore, cache, recorder, logger)

	syncResult, err := roleService.SyncCatalog(ctx)
	if err != nil {
		fatal(logger, err, "Failed to sync permission catalog")
	}
	logger.WithFields(map[string]interface{}{
		"created":  syncResult.Created,
		"existing": syncResult.Existing,
	}).Info("Permission catalog synced")

	auditService := audit.NewService(auditStore)
	userService := users.NewService(userStore, recorder, logger)

	verifier := auth.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	guard := rbac.NewGuard(metrics, recorder, logger)

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
	httpServer := api.NewHTTPServer(cfg.Server, server)

	checker := observability.NewHealthChecker(cm.Primary(), nil)
	if redisClient != nil {
		checker = observability.NewHealthChecker(cm.Primary(), redisClient.GetClient())
	}
	var opsRegistry *prometheus.Registry
	if cfg.Observability.MetricsEnabled {
		opsRegistry = registry
	}
	opsServer := api.NewOpsServer(cfg.Server, api.NewOpsHandler(checker, opsRegistry))

	go func() {
		logger.WithField("addr", opsServer.Addr).Info("Ops server listening")
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Ops server failed")
		}
	}()

	// Connection pool gauges
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			metrics.UpdateDBStats(cm.Primary().Stats())
		}
	}()

	sm := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	sm.RegisterShutdownFunc("ops server", func(ctx context.Context) error {
		return opsServer.Shutdown(ctx)
	})
	// The recorder drains its queue into the database, so the connections are
	// closed by main's defers only after drain finishes.
	sm.RegisterShutdownFunc("audit recorder", func(ctx context.Context) error {
		recorder.Close()
		return nil
	})
	if otelProviders != nil {
		sm.RegisterShutdownFunc("opentelemetry", func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, otelProviders, logger)
		})
	}

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("API server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal(logger, err, "API server failed")
		}
	}()

	if err := sm.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
	}
	logger.Info("Maestro stopped")
}

// fatal logs the error and exits. Boot failures are not recoverable.
func fatal(logger *observability.Logger, err error, message string) {
	logger.WithError(err).Error(message)
	os.Exit(1)
}
