package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/truckops/truckops/internal/app"
	"github.com/truckops/truckops/internal/debt"
	"github.com/truckops/truckops/internal/masterdata/customers"
	"github.com/truckops/truckops/internal/masterdata/staff"
	"github.com/truckops/truckops/internal/observability"
	"github.com/truckops/truckops/internal/platform/cache"
	"github.com/truckops/truckops/internal/platform/db"
	"github.com/truckops/truckops/internal/shared"
	"github.com/truckops/truckops/internal/wage"
	"github.com/truckops/truckops/jobs"
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

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	// The worker exposes no HTTP surface; its collectors stay in-process.
	metrics := observability.NewMetrics().Jobs()

	staffSvc := staff.NewService(staff.NewRepository(pool))
	wageSvc := wage.NewService(wage.NewRepository(pool), wage.NewCalculator(cfg.WageDriverRate, cfg.WageAssistantRate), staffSvc)
	debtSvc := debt.NewService(
		debt.NewRepository(pool),
		customers.NewService(customers.NewRepository(pool)),
		cache.NewCache(redisClient, "debt", cfg.DebtSummaryCacheTTL),
		logger,
	)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	wageJob := jobs.NewWageRecalculateJob(wageSvc, logger, metrics)
	debtJob := jobs.NewDebtSummaryRefreshJob(debtSvc, logger, metrics)
	cleanupJob := jobs.NewIdempotencyCleanupJob(idempotencyStore, logger, metrics)

	cleanupTask, err := jobs.NewIdempotencyCleanupTask(72)
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskWageRecalculate, Handler: wageJob.Handle},
			{Type: jobs.TaskDebtSummaryRefresh, Handler: debtJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 * * * *", Task: jobs.NewDebtSummaryRefreshTask(), Options: []asynq.Option{asynq.MaxRetry(3), asynq.Timeout(2 * time.Minute)}},
			{Spec: "30 3 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
