package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	integrationapp "github.com/merchportal/backend/internal/application/integration"
	"github.com/merchportal/backend/internal/domain/integration"
	"github.com/merchportal/backend/internal/infrastructure/auth"
	"github.com/merchportal/backend/internal/infrastructure/cache"
	"github.com/merchportal/backend/internal/infrastructure/config"
	"github.com/merchportal/backend/internal/infrastructure/logger"
	"github.com/merchportal/backend/internal/infrastructure/logistics"
	"github.com/merchportal/backend/internal/infrastructure/mongostore"
	"github.com/merchportal/backend/internal/infrastructure/persistence"
	"github.com/merchportal/backend/internal/infrastructure/scheduler"
	"github.com/merchportal/backend/internal/infrastructure/storage"
	"github.com/merchportal/backend/internal/infrastructure/telemetry"
	"github.com/merchportal/backend/internal/interfaces/http/handler"
	"github.com/merchportal/backend/internal/interfaces/http/middleware"
	"github.com/merchportal/backend/internal/interfaces/http/router"
)

// instrumentationName scopes the meters created by this binary
const instrumentationName = "github.com/merchportal/backend"

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()
	if envErr != nil && !os.IsNotExist(envErr) {
		log.Warn("Failed to load .env file", zap.Error(envErr))
	}

	ctx := context.Background()

	// Telemetry
	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		SpanProfiles:      cfg.Telemetry.ProfilingEnabled,
	}
	logsCfg := telemetryCfg
	logsCfg.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, logsCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize OTEL logs", zap.Error(err))
	}
	log = telemetry.BridgeLogger(log, loggerProvider, cfg.Telemetry.ServiceName)

	log.Info("Starting merchant portal backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetryCfg, 0, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeURL,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer shutdownTelemetry(log, profiler, meterProvider, tracerProvider, loggerProvider)

	meter := meterProvider.Meter(instrumentationName)

	// Catalog (MongoDB)
	store, err := mongostore.Connect(ctx, mongostore.Config{
		URI:                 cfg.Mongo.URI,
		Database:            cfg.Mongo.Database,
		CustomersCollection: cfg.Mongo.CustomersCollection,
		ConnectTimeout:      cfg.Mongo.ConnectTimeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Error("Error closing MongoDB", zap.Error(err))
		}
	}()
	customerRepo := mongostore.NewCustomerRepository(store, cfg.Mongo.CustomersCollection)

	// Export history (PostgreSQL)
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSQL(cfg.Telemetry.DBLogFullSQL),
	)
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meter)
	if err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}
	defer func() { _ = dbMetrics.Stop() }()

	runRepo := persistence.NewGormExportRunRepository(db.DB)

	// Export collaborators
	lock, closeLock, err := cache.NewExportLockFactory(cfg.Redis, cache.WithLogger(log)).CreateLock()
	if err != nil {
		log.Fatal("Failed to create export lock", zap.Error(err))
	}
	defer func() {
		if err := closeLock(); err != nil {
			log.Error("Error closing export lock", zap.Error(err))
		}
	}()

	shopOpts := []integrationapp.ShopExportOption{
		integrationapp.WithExportLock(lock, cfg.EC.LockTTL),
	}

	if cfg.Storage.Enabled {
		archive, err := storage.NewS3ReportArchive(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create report archive", zap.Error(err))
		}
		if cfg.Storage.CreateBucket {
			if err := archive.EnsureBucket(ctx); err != nil {
				log.Fatal("Failed to prepare report bucket", zap.Error(err))
			}
		}
		shopOpts = append(shopOpts, integrationapp.WithReportArchive(archive))
	}

	importer, err := newItemImporter(cfg.EC, log)
	if err != nil {
		log.Fatal("Failed to create logistics client", zap.Error(err))
	}

	runner, err := scheduler.NewBatchRunner(scheduler.BatchConfig{
		MaxConcurrency: cfg.EC.MaxConcurrency,
		AttemptTimeout: cfg.EC.Timeout,
		MaxRetries:     cfg.EC.MaxRetries,
		BaseDelay:      cfg.EC.RetryBaseDelay,
		MaxDelay:       cfg.EC.RetryMaxDelay,
		ShouldRetry:    logistics.IsRetryable,
	}, log.Named("ec_export"))
	if err != nil {
		log.Fatal("Failed to create export worker pool", zap.Error(err))
	}

	var exportOpts []integrationapp.ExportServiceOption
	if meter != nil {
		exportMetrics, err := telemetry.NewExportMetrics(telemetry.ExportMetricsConfig{Meter: meter, Logger: log})
		if err != nil {
			log.Fatal("Failed to create export metrics", zap.Error(err))
		}
		exportOpts = append(exportOpts, integrationapp.WithExportMetrics(exportMetrics))
		shopOpts = append(shopOpts, integrationapp.WithRunMetrics(exportMetrics))
	}

	exportService := integrationapp.NewExportService(integration.Credentials{
		BaseURL:  cfg.EC.BaseURL,
		Login:    cfg.EC.Login,
		Password: cfg.EC.Password,
		User:     cfg.EC.User,
	}, importer, runner, log, exportOpts...)
	if !exportService.Configured() {
		log.Warn("EC API credentials are incomplete; exports will fail until they are set")
	}
	shopExportService := integrationapp.NewShopExportService(customerRepo, runRepo, exportService, log, shopOpts...)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	httpMetrics, err := middleware.HTTPMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.Tracing(cfg.Telemetry.ServiceName, tracerProvider.IsEnabled()),
		middleware.SpanEnricher(),
		logger.GinMiddleware(log),
		httpMetrics,
		middleware.Profiling(profiler.IsEnabled()),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)
	engine.NoRoute(middleware.NoRoute())

	routesCfg := router.ECRoutesConfig{}
	if cfg.Auth.Enabled {
		verifier := auth.NewTokenVerifier(cfg.Auth)
		routesCfg.WriteAuth = middleware.InternalAuth(verifier, auth.ScopeExportWrite, log)
		routesCfg.ReadAuth = middleware.InternalAuth(verifier, auth.ScopeExportRead, log)
	} else {
		log.Warn("Service authentication disabled; internal routes are open")
	}
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer limiter.Stop()
		routesCfg.ExportLimiter = middleware.RateLimit(limiter)
	}

	router.NewRouter(engine, router.WithLogger(log)).
		Register(router.NewECRoutes(handler.NewExportHandler(shopExportService), routesCfg)).
		Setup()

	health := handler.NewHealthHandler(cfg.App.Name, telemetry.ServiceVersion).
		AddCheck("postgres", db.Ping).
		AddCheck("mongo", store.Ping)
	router.RegisterHealth(engine, health)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited")
}

// newItemImporter builds the logistics client. Without a base URL the
// client cannot be constructed; exports then fail with the configuration
// error reported by the export service.
func newItemImporter(cfg config.ECConfig, log *zap.Logger) (integration.ItemImporter, error) {
	if cfg.BaseURL == "" {
		return unconfiguredImporter{}, nil
	}
	clientCfg := logistics.NewConfig(cfg.BaseURL)
	clientCfg.Timeout = cfg.Timeout
	if cfg.UserAgent != "" {
		clientCfg.UserAgent = cfg.UserAgent
	}
	client, err := logistics.NewClient(clientCfg, logistics.WithLogger(log.Named("logistics")))
	if err != nil {
		return nil, err
	}
	return client, nil
}

// unconfiguredImporter is never called: the export service rejects every
// export before submitting items when credentials are incomplete.
type unconfiguredImporter struct{}

func (unconfiguredImporter) ImportItem(context.Context, integration.ImportRequest) (json.RawMessage, error) {
	return nil, integration.ErrExportNotConfigured
}

func shutdownTelemetry(
	log *zap.Logger,
	profiler *telemetry.Profiler,
	mp *telemetry.MeterProvider,
	tp *telemetry.TracerProvider,
	lp *telemetry.LoggerProvider,
) {
	ctx := context.Background()
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := mp.Shutdown(ctx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tp.Shutdown(ctx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := lp.Shutdown(ctx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}
}
