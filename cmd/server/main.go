package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/binbill/internal"
	"github.com/dukerupert/binbill/internal/catalog"
	"github.com/dukerupert/binbill/internal/domain"
	"github.com/dukerupert/binbill/internal/events"
	"github.com/dukerupert/binbill/internal/handler/api"
	"github.com/dukerupert/binbill/internal/middleware"
	"github.com/dukerupert/binbill/internal/platform"
	"github.com/dukerupert/binbill/internal/postgres"
	"github.com/dukerupert/binbill/internal/router"
	"github.com/dukerupert/binbill/internal/routes"
	"github.com/dukerupert/binbill/internal/service"
	"github.com/dukerupert/binbill/internal/session"
	"github.com/dukerupert/binbill/internal/storage"
	"github.com/dukerupert/binbill/internal/telemetry"
	"github.com/dukerupert/binbill/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Error tracking
	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer flushSentry()

	// Reference data
	ref := catalog.Default()
	if cfg.CatalogPath != "" {
		ref, err = catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		logger.Info().Str("path", cfg.CatalogPath).Msg("Loaded state/LGA catalog")
	}

	client := platform.NewClient(platform.Config{
		BaseURL: cfg.Platform.BaseURL,
		Token:   cfg.Platform.Token,
		PSPID:   cfg.Platform.PSPID,
		Timeout: cfg.Platform.Timeout,
	}, logger)

	checks := map[string]api.Check{}

	// Upload sessions
	var sessions session.Store
	if cfg.RedisURL != "" {
		logger.Info().Msg("Connecting to Redis...")
		rdb, err := session.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		logger.Warn().Msg("REDIS_URL not set, upload sessions are kept in process memory")
		sessions = session.NewMemoryStore(cfg.SessionTTL)
	}

	// Upload history
	var (
		history   domain.UploadLog = domain.NopUploadLog{}
		artifacts domain.ArtifactLog
	)
	if cfg.DatabaseUrl != "" {
		pool, err := openDatabase(ctx, cfg.DatabaseUrl, logger)
		if err != nil {
			return err
		}
		defer pool.Close()
		uploadLog := postgres.NewUploadLog(pool)
		history, artifacts = uploadLog, uploadLog
		checks["postgres"] = pool.Ping
	} else {
		logger.Warn().Msg("DATABASE_URL not set, upload history is not kept")
	}

	// Upload events
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NatsURL != "" {
		nc, err := events.ConnectNATS(cfg.NatsURL)
		if err != nil {
			return err
		}
		publisher = nc
		logger.Info().Msg("Publishing upload events to NATS")
	}
	defer publisher.Close()

	// Artifact storage
	store, err := storage.NewStorage(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	logger.Info().Str("provider", cfg.Storage.Provider).Msg("Storage initialized")

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics(cfg.MetricsNamespace, reg)
	uploadMetrics := telemetry.NewUploadMetrics(cfg.MetricsNamespace, reg)

	uploads := service.NewUploadService(service.UploadServiceConfig{
		Reference:    ref,
		Submitter:    client,
		Collections:  client,
		Sessions:     sessions,
		Storage:      store,
		History:      history,
		Events:       publisher,
		Metrics:      uploadMetrics,
		Logger:       logger,
		HistoryLimit: cfg.HistoryLimit,
		LiveTTL:      cfg.SessionTTL,
	})

	// Rate limiters
	defaultRateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer defaultRateLimiter.Stop()
	uploadRateLimiter := middleware.NewRateLimiter(middleware.UploadRateLimiterConfig())
	defer uploadRateLimiter.Stop()

	securityConfig := middleware.DefaultSecurityHeadersConfig()
	if cfg.Env == "dev" {
		securityConfig.HSTSMaxAge = 0
	}

	// Request bodies are capped per route group: spreadsheets need a larger
	// limit than the JSON endpoints.
	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		middleware.WithRequestLogger(logger),
		telemetry.SentryMiddleware(),
		metrics.Middleware,
		middleware.SecurityHeaders(securityConfig),
		router.CORS(cfg.AllowedOrigins),
		middleware.Timeout(middleware.LongTimeout),
		defaultRateLimiter.Middleware,
		router.Logger(logger),
	)

	routes.RegisterAPIRoutes(r, routes.APIDeps{
		UploadHandler:    api.NewUploadHandler(uploads),
		ReferenceHandler: api.NewReferenceHandler(ref),
		UploadLimits: []router.Middleware{
			uploadRateLimiter.Middleware,
			middleware.MaxBodySize(middleware.UploadMaxBodySize),
		},
	})
	routes.RegisterOpsRoutes(r, routes.OpsDeps{
		HealthHandler:  api.NewHealthHandler(checks),
		MetricsHandler: metrics.Handler(),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("address", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// Artifacts are only swept when there is history to find them by.
	if artifacts != nil {
		sweeper := worker.NewSweeper(artifacts, store, worker.Config{
			Retention: cfg.Retention,
			Interval:  cfg.SweepInterval,
		}, logger)
		g.Go(func() error { return sweeper.Start(gctx) })
	}

	return g.Wait()
}

// openDatabase runs migrations over database/sql and returns the pgx pool
// the application uses.
func openDatabase(ctx context.Context, url string, logger zerolog.Logger) (*pgxpool.Pool, error) {
	logger.Info().Msg("Connecting to database...")
	sqlDB, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info().Msg("Running database migrations...")
	if err := internal.RunMigrations(ctx, sqlDB, logger); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	logger.Info().Msg("Database ready")
	return pool, nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
