// Package main is the entrypoint for the assetwatch API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/assetwatch/assetwatch/internal/alerting"
	"github.com/assetwatch/assetwatch/internal/auth"
	"github.com/assetwatch/assetwatch/internal/cache"
	"github.com/assetwatch/assetwatch/internal/config"
	"github.com/assetwatch/assetwatch/internal/handler"
	"github.com/assetwatch/assetwatch/internal/ingest"
	"github.com/assetwatch/assetwatch/internal/invalidation"
	"github.com/assetwatch/assetwatch/internal/metrics"
	"github.com/assetwatch/assetwatch/internal/middleware"
	"github.com/assetwatch/assetwatch/internal/monitor"
	"github.com/assetwatch/assetwatch/internal/purge"
	"github.com/assetwatch/assetwatch/internal/repository"
	"github.com/assetwatch/assetwatch/internal/server"
	"github.com/assetwatch/assetwatch/internal/version"
	"github.com/assetwatch/assetwatch/internal/webhook"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)
	recorder := metrics.NewPrometheus()

	keyring, err := auth.ParseKeyring(cfg.AdminTokens)
	if err != nil {
		logger.Error("invalid ADMIN_TOKENS", "error", err)
		os.Exit(1)
	}
	if keyring.Len() == 0 {
		logger.Warn("ADMIN_TOKENS not set, mutating routes are unauthenticated")
	}

	// Optional backing services
	var repo *repository.Repository
	if cfg.DatabaseURL != "" {
		repo, err = repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error(
				"failed to connect to database",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
				slog.String("database_url", redactURL(cfg.DatabaseURL)),
			)
			os.Exit(1)
		}
		logger.Info("connected to database")
	}

	var cacheClient *cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			os.Exit(1)
		}
		logger.Info("connected to Redis")
	}

	var s3Client *s3ClientRef
	if cfg.S3Bucket != "" {
		client, err := purge.NewS3Client(ctx, cfg.S3Region)
		if err != nil {
			logger.Error("failed to configure S3 client", "error", err, "bucket", cfg.S3Bucket)
			os.Exit(1)
		}
		s3Client = &s3ClientRef{api: client, bucket: cfg.S3Bucket}
		logger.Info("object storage configured", "bucket", cfg.S3Bucket, "region", cfg.S3Region)
	}

	// Alert delivery
	var notifiers []alerting.Notifier
	if cacheClient != nil {
		notifiers = append(notifiers, alerting.NewStreamPublisher(cacheClient.Client(), logger, recorder))
	}
	if repo != nil {
		notifiers = append(notifiers, alerting.NewArchive(repo, logger, recorder))
	}
	if cfg.AlertWebhookURL != "" {
		if !cfg.AlertWebhookAllowPrivate {
			if err := webhook.ValidateTargetURL(cfg.AlertWebhookURL); err != nil {
				logger.Error("invalid alert webhook URL",
					"error", err,
					"host", webhook.ExtractHost(cfg.AlertWebhookURL),
				)
				os.Exit(1)
			}
		}
		sender := webhook.NewSender(cfg.AlertWebhookURL, cfg.AlertWebhookSecret)
		notifiers = append(notifiers, alerting.NewWebhook(sender, logger, recorder))
		logger.Info("alert webhook configured", "host", sender.Host())
	}
	notifier := alerting.NewMulti(logger, notifiers...)

	mon := monitor.New(cfg.MonitoringConfig(),
		monitor.WithLogger(logger),
		monitor.WithRecorder(recorder),
		monitor.WithNotifier(notifier),
	)

	// Versions
	versionOpts := []version.Option{
		version.WithLogger(logger),
		version.WithBaseURL(cfg.AssetBaseURL),
	}
	if cacheClient != nil {
		versionOpts = append(versionOpts, version.WithStore(cache.NewVersionStore(cacheClient)))
	}
	if s3Client != nil {
		versionOpts = append(versionOpts, version.WithFingerprinter(purge.NewS3Fingerprinter(s3Client.api, s3Client.bucket)))
	}
	versions := version.NewManager(versionOpts...)

	// Invalidation
	coordinator := invalidation.New(buildPurger(cfg, cacheClient, s3Client, logger),
		invalidation.WithVersions(versions),
		invalidation.WithConcurrency(cfg.InvalidationConcurrency),
		invalidation.WithRateLimit(cfg.InvalidationRatePerSec, cfg.InvalidationBurst),
		invalidation.WithTimeout(cfg.InvalidationTimeout),
		invalidation.WithLogger(logger),
		invalidation.WithRecorder(recorder),
	)

	// Ingest: the API publishes to the stream and the worker feeds the monitor
	var sink handler.MetricSink = mon
	var worker *ingest.Worker
	if cfg.IngestEnabled {
		sink = ingest.NewPublisher(cacheClient.Client(), logger, recorder)
		worker = ingest.NewWorker(cacheClient.Client(), mon, logger, ingest.NewConsumerID(), recorder)
	}

	// Handlers
	var dbCheck, cacheCheck handler.HealthChecker
	if repo != nil {
		dbCheck = repo
	}
	if cacheClient != nil {
		cacheCheck = cacheClient
	}
	healthHandler := handler.NewHealthHandler(dbCheck, cacheCheck)
	if s3Client != nil {
		healthHandler.AddCheck("object_store", handler.HealthCheckFunc(func(ctx context.Context) error {
			return purge.PingBucket(ctx, s3Client.api, s3Client.bucket)
		}))
	}

	var history *handler.AlertHistoryHandler
	if repo != nil {
		history = handler.NewAlertHistoryHandler(repo, logger)
	}

	r := setupRouter(routes{
		index:        handler.New(),
		health:       healthHandler,
		monitoring:   handler.NewMonitoringHandler(mon, sink, logger),
		history:      history,
		versions:     handler.NewVersionHandler(versions, logger),
		invalidation: handler.NewInvalidationHandler(coordinator, logger),
		recorder:     recorder,
		keyring:      keyring,
	}, cfg, logger)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Registered in dependency order; shutdown runs in reverse.
	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error { return cacheClient.Close() })
	}
	if repo != nil {
		srv.OnShutdown("postgres", func(context.Context) error {
			repo.Close()
			return nil
		})
	}
	srv.OnShutdown("alerting", notifier.Drain)
	srv.OnShutdown("monitor", mon.Shutdown)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	if err := mon.Start(runCtx); err != nil {
		logger.Error("failed to start monitor", "error", err)
		os.Exit(1)
	}

	if worker != nil {
		srv.OnShutdown("ingest", worker.Shutdown)
		go func() {
			if err := worker.Run(runCtx); err != nil && runCtx.Err() == nil {
				logger.Error("ingest worker stopped", "error", err)
			}
		}()
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"monitoring_enabled", cfg.MonitoringEnabled,
		"ingest_enabled", cfg.IngestEnabled,
		"alert_sinks", notifier.Len(),
	)

	if err := srv.Run(runCtx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

type s3ClientRef struct {
	api    purge.S3API
	bucket string
}

// buildPurger chains the configured purge targets. The Redis rendition cache
// is cleared first. The object store refresh goes through the shared quota
// and a circuit breaker.
func buildPurger(cfg *config.Config, cacheClient *cache.Cache, s3Client *s3ClientRef, logger *slog.Logger) invalidation.Purger {
	var purgers []purge.Purger
	if cacheClient != nil {
		purgers = append(purgers, purge.NewRedisPurger(cacheClient))
	}
	if s3Client != nil {
		var target purge.Purger = purge.NewS3Purger(s3Client.api, s3Client.bucket, cfg.S3CacheControl)
		if cacheClient != nil {
			target = purge.NewQuota(target, cacheClient, "s3", cfg.InvalidationRatePerSec, cfg.InvalidationBurst)
		}
		purgers = append(purgers, purge.NewBreaker(target, purge.DefaultBreakerSettings("s3"), logger))
	}
	if len(purgers) == 0 {
		logger.Warn("no purge targets configured, invalidations only bump versions")
	}
	return purge.Chain(purgers...)
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type routes struct {
	index        *handler.Handler
	health       *handler.HealthHandler
	monitoring   *handler.MonitoringHandler
	history      *handler.AlertHistoryHandler
	versions     *handler.VersionHandler
	invalidation *handler.InvalidationHandler
	recorder     *metrics.PrometheusRecorder
	keyring      *auth.Keyring
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(h routes, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger, h.recorder))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	r.Get("/healthz", h.health.Healthz)
	r.Get("/readyz", h.health.Readyz)
	r.Handle("/metrics", h.recorder.Handler())
	r.Get("/", h.index.Index)

	requireToken := middleware.RequireToken(h.keyring, logger)

	r.Route("/api/v1", func(r chi.Router) {
		// Metric ingestion and reads stay open to clients
		r.Post("/metrics", h.monitoring.RecordMetric)
		r.Get("/stats", h.monitoring.Stats)

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", h.monitoring.ActiveAlerts)
			r.Get("/stats", h.monitoring.AlertStats)
			if h.history != nil {
				r.Get("/history", h.history.List)
			}
			r.With(requireToken).Post("/check", h.monitoring.CheckAlerts)
			r.With(requireToken).Post("/{id}/resolve", h.monitoring.ResolveAlert)
		})

		r.Route("/versions", func(r chi.Router) {
			r.With(requireToken).Post("/resolve", h.versions.Resolve)
			r.Get("/latest", h.versions.Latest)
			r.Get("/compare", h.versions.Compare)
		})

		r.Route("/invalidations", func(r chi.Router) {
			r.Use(requireToken)
			r.Post("/", h.invalidation.Batch)
			r.Post("/smart", h.invalidation.Smart)
		})
	})

	r.NotFound(h.index.NotFound)
	r.MethodNotAllowed(h.index.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
