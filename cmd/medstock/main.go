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

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/medstock/medstock/internal/app"
	"github.com/medstock/medstock/internal/inventory"
	"github.com/medstock/medstock/internal/observability"
	"github.com/medstock/medstock/internal/platform/cache"
	"github.com/medstock/medstock/internal/suppliers"
	"github.com/medstock/medstock/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store", slog.String("driver", cfg.StoreDriver), slog.Any("error", err))
		os.Exit(1)
	}
	defer stores.Close()

	var redisClient *redis.Client
	if client, err := cache.New(ctx, cfg.RedisAddr); err != nil {
		logger.Warn("redis unavailable, dashboard cache and idempotency keys disabled", slog.Any("error", err))
	} else {
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	inv := app.BuildInventory(cfg, stores, redisClient, metrics, logger)
	if inv.Dashboard != nil {
		err := inv.Dashboard.ListenForInvalidation(ctx, func(version int64) {
			logger.Debug("dashboard cache invalidated", slog.Int64("version", version))
		})
		if err != nil {
			logger.Warn("subscribe dashboard invalidation", slog.Any("error", err))
		}
	}

	supplierService := suppliers.NewService(stores.Suppliers, nil)

	var inspector jobs.QueueInspector
	if redisClient != nil {
		opts := redisClient.Options()
		asynqInspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: opts.Addr, Password: opts.Password, DB: opts.DB})
		defer func() {
			if err := asynqInspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		inspector = asynqInspector
	}

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		InventoryHandler: inventory.NewHandler(logger, inv.Service),
		SupplierHandler:  suppliers.NewHandler(logger, supplierService),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
		Readiness:        stores.Ready,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("store", stores.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
