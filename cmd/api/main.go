// Package main is the entrypoint for the ModelVault API server.
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

	"github.com/modelvault/modelvault/internal/audit"
	"github.com/modelvault/modelvault/internal/auth"
	"github.com/modelvault/modelvault/internal/cache"
	"github.com/modelvault/modelvault/internal/config"
	"github.com/modelvault/modelvault/internal/handler"
	"github.com/modelvault/modelvault/internal/metrics"
	"github.com/modelvault/modelvault/internal/middleware"
	"github.com/modelvault/modelvault/internal/repository"
	"github.com/modelvault/modelvault/internal/server"
	"github.com/modelvault/modelvault/internal/service"
	"github.com/modelvault/modelvault/internal/storage"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Initialize artifact storage
	artifacts, err := storage.NewArtifactStore(cfg.StorageRoot)
	if err != nil {
		logger.Error("failed to initialize artifact storage",
			slog.String("error", err.Error()),
			slog.String("storage_root", cfg.StorageRoot),
		)
		os.Exit(1)
	}
	logger.Info("artifact storage ready", slog.String("root", cfg.StorageRoot))

	// Initialize metrics and token service
	recorder := metrics.NewInMemory()
	tokens := auth.NewTokenService([]byte(cfg.TokenSecret), cfg.TokenTTL)

	// Initialize audit pipeline
	auditPublisher := audit.NewPublisher(cacheClient.Client(), logger, recorder)
	auditWorker := audit.NewWorker(
		cacheClient.Client(),
		repo,
		logger,
		audit.NewConsumerID(),
		recorder,
	)

	// Initialize services
	modelService := service.NewModelService(repo, artifacts, auditPublisher, cacheClient, logger, recorder)
	authService := service.NewAuthService(repo, tokens, logger)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(repo, cacheClient, artifacts)
	metricsHandler := handler.NewMetricsHandler(recorder)
	authHandler := handler.NewAuthHandler(authService, logger)
	modelHandler := handler.NewModelHandler(modelService, logger)
	artifactHandler := handler.NewArtifactHandler(modelService, logger, cfg.MaxArtifactSize)
	userHandler := handler.NewUserHandler(repo, logger)

	// Setup router
	r := setupRouter(routerDeps{
		cfg:      cfg,
		logger:   logger,
		recorder: recorder,
		tokens:   tokens,
		cache:    cacheClient,
		health:   healthHandler,
		metrics:  metricsHandler,
		auth:     authHandler,
		models:   modelHandler,
		artifact: artifactHandler,
		users:    userHandler,
	})

	// Create server and register shutdown hooks
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)
	srv.OnShutdown("audit_worker", auditWorker.Shutdown)

	// Run the audit consumer alongside the HTTP server. The worker exits
	// on its own when Shutdown drains it during graceful stop.
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()
	go func() {
		if err := auditWorker.Run(workerCtx); err != nil && workerCtx.Err() == nil {
			logger.Error("audit worker stopped", slog.String("error", err.Error()))
		}
	}()

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
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

type routerDeps struct {
	cfg      *config.Config
	logger   *slog.Logger
	recorder metrics.Recorder
	tokens   *auth.TokenService
	cache    *cache.Cache
	health   *handler.HealthHandler
	metrics  *handler.MetricsHandler
	auth     *handler.AuthHandler
	models   *handler.ModelHandler
	artifact *handler.ArtifactHandler
	users    *handler.UserHandler
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(d routerDeps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.logger))
	r.Use(middleware.Recoverer(d.logger))
	r.Use(middleware.Security(middleware.DefaultSecurityConfig()))

	corsCfg := middleware.DefaultCORSConfig()
	if origins := d.cfg.GetCORSAllowedOrigins(); len(origins) > 0 {
		corsCfg.AllowedOrigins = origins
	}
	r.Use(middleware.CORS(corsCfg))

	// Health and metrics endpoints (no auth required)
	r.Get("/healthz", d.health.Healthz)
	r.Get("/readyz", d.health.Readyz)
	r.Get("/metrics", d.metrics.Metrics)

	authCfg := middleware.AuthConfig{
		Logger:  d.logger,
		Tokens:  d.tokens,
		Metrics: d.recorder,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:       d.logger,
		Cache:        d.cache,
		APIEnabled:   d.cfg.RateLimitAPIEnabled,
		APIRPM:       d.cfg.RateLimitAPIRPM,
		APIBurst:     d.cfg.RateLimitAPIBurst,
		LoginEnabled: d.cfg.RateLimitLoginEnabled,
		LoginRPS:     d.cfg.RateLimitLoginRPS,
		LoginBurst:   d.cfg.RateLimitLoginBurst,
	}

	r.Route("/v1", func(r chi.Router) {
		// Login sits outside the access guard; it is what issues the
		// tokens the guard verifies. Rate limited per client IP.
		r.With(
			middleware.RateLimitLogin(rateLimitCfg),
			middleware.MaxBodySize(d.cfg.MaxRequestBodySize),
		).Post("/auth/login", d.auth.Login)

		// Everything else requires a valid bearer token.
		r.Group(func(r chi.Router) {
			r.Use(middleware.AccessGuard(authCfg))
			r.Use(middleware.RateLimitAPI(rateLimitCfg))

			// JSON endpoints get a tight body cap. Artifact uploads are
			// exempt here; the artifact handler enforces its own, much
			// larger limit.
			jsonBody := middleware.MaxBodySize(d.cfg.MaxRequestBodySize)

			r.Get("/auth/me", d.auth.Me)

			r.Route("/users", func(r chi.Router) {
				r.With(middleware.RequireAdmin(d.recorder)).Get("/", d.users.List)

				r.Route("/{userID}", func(r chi.Router) {
					r.With(middleware.RequireAdmin(d.recorder)).Get("/", d.users.Get)

					r.Route("/models", func(r chi.Router) {
						r.Use(middleware.RequireSelfOrAdmin(d.recorder))

						r.Get("/", d.models.List)
						r.With(jsonBody).Post("/", d.models.Create)

						r.Route("/{modelID}", func(r chi.Router) {
							r.Get("/", d.models.Get)
							r.With(jsonBody).Put("/", d.models.Update)
							r.Delete("/", d.models.Unshare)

							r.Route("/{variant}", func(r chi.Router) {
								r.Put("/", d.artifact.Upload)
								r.Get("/", d.artifact.Download)
								r.Delete("/", d.artifact.Delete)
							})
						})
					})
				})
			})

			// Administrative hard delete, independent of the owner set.
			r.With(middleware.RequireAdmin(d.recorder)).Delete("/models/{modelID}", d.models.Delete)
		})
	})

	// 404 and 405 handlers
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

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
