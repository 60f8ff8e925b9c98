package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"diagnostico_backend/internal/captcha"
	"diagnostico_backend/internal/crmsync"
	"diagnostico_backend/internal/email"
	apphttp "diagnostico_backend/internal/http"
	"diagnostico_backend/internal/http/router"
	"diagnostico_backend/internal/intake"
	"diagnostico_backend/internal/ledger"
	"diagnostico_backend/internal/notification"
	"diagnostico_backend/internal/pipedrive"
	"diagnostico_backend/internal/ratelimit"
	"diagnostico_backend/internal/routing"
	"diagnostico_backend/internal/scoring"
	"diagnostico_backend/platform/config"
	"diagnostico_backend/platform/db"
	"diagnostico_backend/platform/httpkit"
	"diagnostico_backend/platform/logger"
	"diagnostico_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sethvargo/go-retry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)
	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	health := map[string]apphttp.HealthChecker{}

	var recorder ledger.Recorder = ledger.NoopRecorder{}
	if cfg.IsDatabaseEnabled() {
		pool := connectDatabase(ctx, cfg, log)
		defer pool.Close()

		repo := ledger.NewRepository(pool)
		recorder = repo
		health["database"] = repo
	} else {
		log.Warn("DATABASE_URL not configured; submission ledger disabled")
	}

	limiter, closeLimiter := initLimiter(ctx, cfg, log)
	if closeLimiter != nil {
		defer closeLimiter()
	}
	if checker, ok := limiter.(apphttp.HealthChecker); ok {
		health["redis"] = checker
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	crm := pipedrive.New(cfg, log)
	resolver := crmsync.NewResolver(crm, cfg.GetCRMSearchRetries(), log)
	writer := crmsync.NewWriter(crm, cfg.GetDealFieldIndustry(), cfg.GetDealFieldERP(), log)

	sender := email.NewSender(cfg)
	dispatcher := notification.NewDispatcher(sender, cfg, log)
	if !dispatcher.Enabled() {
		log.Warn("email transport not configured; confirmation emails disabled")
	}

	verifier := captcha.New(cfg)
	if !cfg.IsCaptchaEnabled() {
		log.Warn("RECAPTCHA_SECRET not configured; captcha verification disabled")
	}

	metrics := intake.NewMetrics(registry)
	orchestrator := intake.NewOrchestrator(intake.Deps{
		Scorer:    scoring.NewEngine(cfg.GetScoringQuestions(), cfg.GetMaxLowScore()),
		Router:    routing.New(cfg),
		Resolver:  resolver,
		Writer:    writer,
		Notifier:  dispatcher,
		Validator: validator.New(),
		Captcha:   verifier,
		Ledger:    recorder,
		Metrics:   metrics,
		Log:       log,
	}, intake.Options{
		RequireCorporateEmail: cfg.GetRequireCorporateEmail(),
		Timeout:               cfg.GetSubmissionTimeout(),
	})

	intakeModule := intake.NewModule(orchestrator, limiter, cfg.GetPublicBaseURL(), metrics, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:  cfg,
		Logger:  log,
		Health:  health,
		Metrics: registry,
		Modules: []apphttp.Module{
			intakeModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
		// Submissions run the whole CRM pipeline before responding.
		WriteTimeout: cfg.GetSubmissionTimeout() + 15*time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func connectDatabase(ctx context.Context, cfg *config.Config, log *logger.Logger) *pgxpool.Pool {
	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func(ctx context.Context) error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func(ctx context.Context) error {
		return db.RunMigrations(ctx, pool, ledger.Migrations, ledger.MigrationsDir)
	}); err != nil {
		pool.Close()
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	return pool
}

// initLimiter prefers the shared Redis limiter and falls back to a
// per-process one when Redis is not configured.
func initLimiter(ctx context.Context, cfg *config.Config, log *logger.Logger) (httpkit.KeyLimiter, func()) {
	memory := ratelimit.NewMemory(cfg.GetRateLimitMax(), cfg.GetRateLimitWindow())
	if !cfg.IsRedisEnabled() {
		log.Warn("REDIS_URL not configured; rate limiting is per instance")
		return memory, nil
	}

	client, err := ratelimit.NewRedisClient(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid REDIS_URL; rate limiting is per instance", "error", err)
		return memory, nil
	}

	limiter := ratelimit.NewRedis(client, cfg.GetRateLimitMax(), cfg.GetRateLimitWindow(), log)
	if err := limiter.Ping(ctx); err != nil {
		log.Warn("redis unreachable at startup; limiter fails open until it recovers", "error", err)
	}
	return limiter, func() {
		_ = limiter.Close()
	}
}

// withRetry runs fn up to attempts times with exponential backoff from
// baseDelay, logging every failed attempt.
func withRetry(ctx context.Context, log *logger.Logger, name string, attempts uint64, baseDelay time.Duration, fn func(context.Context) error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	attempt := 0
	backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(baseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := fn(ctx); err != nil {
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
