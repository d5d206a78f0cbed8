package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/kpeterson/optflow/internal/apperror"
	"github.com/kpeterson/optflow/internal/audit"
	"github.com/kpeterson/optflow/internal/auth"
	"github.com/kpeterson/optflow/internal/clock"
	"github.com/kpeterson/optflow/internal/config"
	"github.com/kpeterson/optflow/internal/httpserver"
	"github.com/kpeterson/optflow/internal/platform"
	"github.com/kpeterson/optflow/internal/secret"
	"github.com/kpeterson/optflow/internal/telemetry"
	"github.com/kpeterson/optflow/pkg/autotune"
	"github.com/kpeterson/optflow/pkg/gateway"
	"github.com/kpeterson/optflow/pkg/golive"
	"github.com/kpeterson/optflow/pkg/inbox"
	"github.com/kpeterson/optflow/pkg/notify"
	"github.com/kpeterson/optflow/pkg/observability"
	"github.com/kpeterson/optflow/pkg/quality"
	"github.com/kpeterson/optflow/pkg/queue"
	"github.com/kpeterson/optflow/pkg/scheduler"
	"github.com/kpeterson/optflow/pkg/strategy"
	"github.com/kpeterson/optflow/pkg/suggestion"
	"github.com/kpeterson/optflow/pkg/validation"
)

const serviceName = "optflow"
const serviceVersion = "dev"

// Run is the main application entry point. Given the loaded config, it
// connects to infrastructure and starts the appropriate mode (api or worker).
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting optflow",
		"mode", cfg.Mode,
		"listen", cfg.ListenAddr(),
	)

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.OTLPEndpoint, serviceName, serviceVersion)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Error("shutting down tracer", "error", err)
		}
	}()

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return apperror.Wrap(apperror.ConfigFatal, "connecting to database", err)
	}
	defer db.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return apperror.Wrap(apperror.ConfigFatal, "connecting to redis", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	// ENCRYPTION_KEY is mandatory regardless of mode, so a missing key stops
	// startup in either one. Only the worker uses the store: it opens stored
	// broker credentials during plaid_backfill_history.
	encKey, err := secret.LoadKey(cfg.EncryptionKey)
	if err != nil {
		return err
	}
	secretStore := secret.New(encKey)

	metricsReg := telemetry.NewMetricsRegistry(telemetry.All()...)

	switch cfg.Mode {
	case "api":
		return runAPI(ctx, cfg, logger, db, rdb, metricsReg)
	case "worker":
		return runWorker(ctx, cfg, logger, db, rdb, secretStore)
	default:
		return apperror.New(apperror.ConfigFatal, fmt.Sprintf("unknown mode: %s", cfg.Mode))
	}
}

// resolveJWTSecret returns the signing secret runAPI should hand to
// auth.NewVerifier. A missing secret is ConfigFatal in production; outside
// production it falls back to a per-process random secret so a developer
// can boot the API without minting one, at the cost of every restart
// invalidating outstanding tokens.
func resolveJWTSecret(cfg *config.Config, logger *slog.Logger) (string, error) {
	if cfg.JWTSecret != "" {
		return cfg.JWTSecret, nil
	}
	if cfg.IsProduction() {
		return "", apperror.New(apperror.ConfigFatal, "JWT_SIGNING_SECRET is not set")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating dev JWT secret: %w", err)
	}
	logger.Warn("auth: using an auto-generated dev JWT secret; set JWT_SIGNING_SECRET in production")
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry) error {
	jwtSecret, err := resolveJWTSecret(cfg, logger)
	if err != nil {
		return err
	}
	verifier, err := auth.NewVerifier(jwtSecret)
	if err != nil {
		return apperror.Wrap(apperror.ConfigFatal, "building JWT verifier", err)
	}

	cronSecret := cfg.CronSecret
	if cronSecret == "" {
		cronSecret = cfg.TaskSigning
	}
	if cronSecret == "" {
		if cfg.IsProduction() {
			return apperror.New(apperror.ConfigFatal, "CRON_SECRET / TASK_SIGNING_SECRET is not set")
		}
		logger.Warn("scheduler: CRON_SECRET not set; /tasks/* endpoints will refuse every caller")
	}

	auditWriter := audit.NewWriter(db, logger)
	auditWriter.Start(ctx)
	defer auditWriter.Close()

	clk := clock.Real()
	gw := gateway.New(db)
	q := queue.New(db, clk)

	notifier := notify.New(cfg.SlackBotToken, cfg.SlackAlertChannel, logger)
	if notifier.IsEnabled() {
		logger.Info("slack notifications enabled", "channel", cfg.SlackAlertChannel)
	}

	breaker := quality.NewBreaker(cfg.BreakerFailureThreshold, time.Duration(cfg.BreakerOpenTimeoutSec)*time.Second)
	cache := quality.NewCache(rdb, logger, time.Duration(cfg.StaleAfterSeconds)*time.Second)
	gate := quality.NewGate(time.Duration(cfg.StaleAfterSeconds)*time.Second, cfg.WideSpreadPct, breaker)
	quoteSource := quality.NewCachedSource(cache, quality.NewReferenceProvider(), "reference", breaker)

	generator := suggestion.NewGenerator(gw, strategy.NewReference(), quoteSource, gate, suggestion.SizingConfig{
		MaxRiskPctPerTrade:  cfg.MaxRiskPctPerTrade,
		MaxRiskPctPortfolio: cfg.MaxRiskPctPortfolio,
	}, clk)

	cadence, err := scheduler.NewCadence(schedulerEndpoints())
	if err != nil {
		return apperror.Wrap(apperror.ConfigFatal, "parsing scheduler cadence", err)
	}

	srv := httpserver.NewServer(cfg, logger, db, rdb, metricsReg, verifier)

	srv.Router.Get("/status", srv.HandleStatus)
	srv.APIRouter.Get("/status", srv.HandleStatus)

	// /tasks/* are cron callbacks authenticated by a shared secret, not a
	// user JWT — mounted directly on the unauthenticated router.
	taskHandler := scheduler.NewHandler(q, cronSecret, clk)
	for _, route := range []string{
		"/tasks/morning-brief", "/tasks/suggestions/open",
		"/tasks/midday-scan", "/tasks/suggestions/close",
		"/tasks/weekly-report", "/tasks/universe/sync",
		"/tasks/learning/ingest", "/tasks/strategy/autotune",
		"/tasks/plaid/backfill-history",
	} {
		srv.Router.Post(route, taskHandler.Dispatch(route))
	}

	srv.APIRouter.Mount("/validation", validation.NewHandler(q, gw, clk).Routes())
	srv.APIRouter.Mount("/inbox", inbox.NewHandler(inbox.NewRanker(gw, cfg.StaleAfterSeconds), inbox.NewStager(gw), clk).Routes())
	srv.APIRouter.Mount("/suggestions", suggestion.NewHandler(gw, generator).Routes())
	srv.APIRouter.Get("/system/health", quality.NewHandler(gate, gw, clk).HandleSystemHealth)
	srv.APIRouter.Get("/ops/health", observability.NewHandler(observability.NewSnapshot(gw, cadence, clk.Now)).HandleOpsHealth)

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func runWorker(ctx context.Context, cfg *config.Config, logger *slog.Logger, pool *pgxpool.Pool, rdb *redis.Client, secretStore *secret.Store) error {
	logger.Info("worker started", "count", cfg.WorkerCount)

	clk := clock.Real()
	gw := gateway.New(pool)
	q := queue.New(pool, clk)
	auditWriter := audit.NewWriter(pool, logger)
	auditWriter.Start(ctx)
	defer auditWriter.Close()

	notifier := notify.New(cfg.SlackBotToken, cfg.SlackAlertChannel, logger)

	breaker := quality.NewBreaker(cfg.BreakerFailureThreshold, time.Duration(cfg.BreakerOpenTimeoutSec)*time.Second)
	cache := quality.NewCache(rdb, logger, time.Duration(cfg.StaleAfterSeconds)*time.Second)
	gate := quality.NewGate(time.Duration(cfg.StaleAfterSeconds)*time.Second, cfg.WideSpreadPct, breaker)
	quoteSource := quality.NewCachedSource(cache, quality.NewReferenceProvider(), "reference", breaker)

	generator := suggestion.NewGenerator(gw, strategy.NewReference(), quoteSource, gate, suggestion.SizingConfig{
		MaxRiskPctPerTrade:  cfg.MaxRiskPctPerTrade,
		MaxRiskPctPortfolio: cfg.MaxRiskPctPortfolio,
	}, clk)

	engine := validation.NewEngine(validation.NewReferenceSimulator())
	autotuneLoop := autotune.NewLoop(engine, gw)
	liveMachine := golive.NewMachine(pool, cfg, notifier, clk)

	deadlines := map[string]time.Duration{
		"suggestions.open":  time.Duration(cfg.GeneratorDeadlineSec) * time.Second,
		"suggestions.close": time.Duration(cfg.GeneratorDeadlineSec) * time.Second,
		"validation.run":    time.Duration(cfg.HistoricalDeadlineSec) * time.Second,
		"strategy_autotune": time.Duration(cfg.HistoricalDeadlineSec) * time.Second,
	}
	defaultTTL := time.Duration(cfg.GeneratorDeadlineSec) * time.Second

	worker := queue.NewWorker(q, logger, cfg.WorkerCount, cfg.WorkerBatchSize, 2*time.Second, deadlines, defaultTTL)

	jobs := newJobHandlers(gw, generator, engine, autotuneLoop, liveMachine, cfg, secretStore, auditWriter, logger, clk)
	worker.Register("suggestions.open", jobs.suggestionsOpen)
	worker.Register("suggestions.close", jobs.suggestionsClose)
	worker.Register("weekly_report", jobs.weeklyReport)
	worker.Register("universe_sync", jobs.universeSync)
	worker.Register("learning_ingest", jobs.learningIngest)
	worker.Register("strategy_autotune", jobs.strategyAutotune)
	worker.Register("plaid_backfill_history", jobs.plaidBackfillHistory)
	worker.Register("validation.run", jobs.validationRun)

	go func() {
		ticker := time.NewTicker(time.Duration(cfg.LeaseTimeoutSec) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := q.ReclaimExpiredLeases(ctx, time.Duration(cfg.LeaseTimeoutSec)*time.Second)
				if err != nil {
					logger.Error("reclaiming expired leases", "error", err)
				} else if n > 0 {
					logger.Info("reclaimed expired leases", "count", n)
				}
			}
		}
	}()

	return worker.Run(ctx)
}

// schedulerEndpoints is the canonical cron cadence behind the nine /tasks/*
// routes — the deprecated and replacement route pairs share a job name and
// therefore a single endpoint here.
func schedulerEndpoints() []scheduler.Endpoint {
	return []scheduler.Endpoint{
		{Name: "suggestions.open", Spec: "0 6 * * 1-5", Grace: 30 * time.Minute},
		{Name: "suggestions.close", Spec: "0 12 * * 1-5", Grace: 30 * time.Minute},
		{Name: "weekly_report", Spec: "0 6 * * 1", Grace: time.Hour},
		{Name: "universe_sync", Spec: "0 5 * * 1-5", Grace: time.Hour},
		{Name: "learning_ingest", Spec: "30 6 * * 1-5", Grace: time.Hour},
		{Name: "strategy_autotune", Spec: "0 7 * * 0", Grace: 2 * time.Hour},
		{Name: "plaid_backfill_history", Spec: "0 3 * * *", Grace: 2 * time.Hour},
	}
}
