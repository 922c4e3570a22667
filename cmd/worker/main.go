package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/medstock/medstock/internal/app"
	jobmetrics "github.com/medstock/medstock/internal/jobs"
	"github.com/medstock/medstock/internal/observability"
	"github.com/medstock/medstock/internal/platform/cache"
	"github.com/medstock/medstock/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg).With(slog.String("process", "worker"))

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store", slog.String("driver", cfg.StoreDriver), slog.Any("error", err))
		os.Exit(1)
	}
	defer stores.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	taskMetrics := jobmetrics.NewMetrics(metrics.Registerer())
	inv := app.BuildInventory(cfg, stores, redisClient, metrics, logger)

	expiryJob := &jobs.ExpiryScanJob{Inventory: inv.Service, Cache: inv.Dashboard, Metrics: taskMetrics, Runs: metrics, Logger: logger}
	auditJob := &jobs.LedgerAuditJob{Ledger: inv.Service, Drift: metrics, Metrics: taskMetrics, Runs: metrics, Logger: logger}

	now := time.Now()
	expiryTask, err := jobs.NewExpiryScanTask(now)
	if err != nil {
		logger.Error("build expiry scan task", slog.Any("error", err))
		os.Exit(1)
	}
	auditTask, err := jobs.NewLedgerAuditTask(now)
	if err != nil {
		logger.Error("build ledger audit task", slog.Any("error", err))
		os.Exit(1)
	}

	opts := redisClient.Options()
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: opts.Addr, Password: opts.Password, DB: opts.DB},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskExpiryScan, Handler: expiryJob.Handle},
			{Type: jobs.TaskLedgerAudit, Handler: auditJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ExpiryScanCron, Task: expiryTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.LedgerAuditCron, Task: auditTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: metricsRouter(metrics), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("starting worker", slog.String("expiry_scan", cfg.ExpiryScanCron), slog.String("ledger_audit", cfg.LedgerAuditCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func metricsRouter(metrics *observability.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}
