package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/truckops/truckops/cmd/truckops/cli"
	"github.com/truckops/truckops/internal/app"
	"github.com/truckops/truckops/internal/auth"
	"github.com/truckops/truckops/internal/balance"
	"github.com/truckops/truckops/internal/debt"
	"github.com/truckops/truckops/internal/expense"
	"github.com/truckops/truckops/internal/masterdata/customers"
	"github.com/truckops/truckops/internal/masterdata/staff"
	"github.com/truckops/truckops/internal/masterdata/vehicles"
	"github.com/truckops/truckops/internal/observability"
	"github.com/truckops/truckops/internal/platform/cache"
	"github.com/truckops/truckops/internal/platform/db"
	"github.com/truckops/truckops/internal/shared"
	"github.com/truckops/truckops/internal/trip"
	"github.com/truckops/truckops/internal/wage"
	"github.com/truckops/truckops/jobs"
)

// services bundles the domain services shared by the server and the CLI.
type services struct {
	staff     *staff.Service
	vehicles  *vehicles.Service
	customers *customers.Service
	balances  *balance.Service
	expenses  *expense.Service
	wages     *wage.Service
	debts     *debt.Service
	debtFiles *debt.FileService
	trips     *trip.Service
}

func buildServices(cfg *app.Config, pool *pgxpool.Pool, redisClient *redis.Client, metrics *observability.Metrics, logger *slog.Logger) (*services, error) {
	defaultStatus, err := trip.ParseStatus(cfg.TripDefaultStatus)
	if err != nil {
		return nil, fmt.Errorf("trip default status: %w", err)
	}
	publicStatus, err := trip.ParseStatus(cfg.TripPublicDefaultStatus)
	if err != nil {
		return nil, fmt.Errorf("trip public default status: %w", err)
	}

	staffSvc := staff.NewService(staff.NewRepository(pool))
	vehicleSvc := vehicles.NewService(vehicles.NewRepository(pool))
	customerSvc := customers.NewService(customers.NewRepository(pool))

	expenseRepo := expense.NewRepository(pool)
	balanceSvc := balance.NewService(balance.NewRepository(pool), staffSvc, expense.NewHistorySource(expenseRepo))
	expenseSvc := expense.NewService(expenseRepo, balanceSvc, staffSvc, metrics, logger).WithTransactor(db.NewTransactor(pool))
	wageSvc := wage.NewService(wage.NewRepository(pool), wage.NewCalculator(cfg.WageDriverRate, cfg.WageAssistantRate), staffSvc)
	summaryCache := cache.NewCache(redisClient, "debt", cfg.DebtSummaryCacheTTL)
	debtSvc := debt.NewService(debt.NewRepository(pool), customerSvc, summaryCache, logger)

	tripSvc := trip.NewService(trip.Dependencies{
		Repo:      trip.NewRepository(pool),
		Expenses:  expenseSvc,
		Wages:     wageSvc,
		Debts:     debtSvc,
		Staff:     staffSvc,
		Customers: customerSvc,
		Vehicles:  vehicleSvc,
		Actors:    auth.SessionActor{},
		Locker:    shared.NewLocker(redisClient, 5*time.Second),
		Metrics:   metrics,
		Audit:     shared.NewAuditLogger(pool),
		Logger:    logger,
	}, trip.Config{
		DefaultStatus:       defaultStatus,
		PublicDefaultStatus: publicStatus,
		DebtPolicy:          cfg.DebtEditPolicy,
		LockTTL:             cfg.TripLockTTL,
	})

	return &services{
		staff:     staffSvc,
		vehicles:  vehicleSvc,
		customers: customerSvc,
		balances:  balanceSvc,
		expenses:  expenseSvc,
		wages:     wageSvc,
		debts:     debtSvc,
		debtFiles: debt.NewFileService(debt.NewFileRepository(pool), customerSvc, logger),
		trips:     tripSvc,
	}, nil
}

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

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobs(ctx, cfg, os.Args[2:]))
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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
	svc, err := buildServices(cfg, dbpool, redisClient, metrics, logger)
	if err != nil {
		logger.Error("build services", slog.Any("error", err))
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "debt" {
		os.Exit(runDebt(ctx, svc.debts, os.Args[2:]))
	}

	sessionManager := shared.NewSessionManager(redisClient, "truckops_session", cfg.SessionTTL, cfg.IsProduction())
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		Metrics:         metrics,
		AuthHandler:     auth.NewHandler(logger, auth.NewService(auth.NewRepository(dbpool)), sessionManager),
		TripHandler:     trip.NewHandler(logger, svc.trips),
		BalanceHandler:  balance.NewHandler(logger, svc.balances),
		ExpenseHandler:  expense.NewHandler(logger, svc.expenses),
		WageHandler:     wage.NewHandler(logger, svc.wages, jobClient),
		DebtHandler:     debt.NewHandler(logger, svc.debts, idempotencyStore).WithFiles(svc.debtFiles),
		StaffHandler:    staff.NewHandler(logger, svc.staff),
		VehicleHandler:  vehicles.NewHandler(logger, svc.vehicles),
		CustomerHandler: customers.NewHandler(logger, svc.customers),
		JobHandler:      jobs.NewHandler(inspector, jobClient, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

func runJobs(ctx context.Context, cfg *app.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: truckops jobs trigger <task> [--staff id] | truckops jobs stats")
		return 2
	}
	jc, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer jc.Close()

	switch args[0] {
	case "trigger":
		fs := flag.NewFlagSet("jobs trigger", flag.ContinueOnError)
		staffID := fs.Int64("staff", 0, "staff id for wage recalculation")
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "jobs trigger: task name required")
			return 2
		}
		if err := fs.Parse(args[2:]); err != nil {
			return 2
		}
		info, err := jc.Trigger(ctx, args[1], *staffID)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("enqueued %s as %s\n", info.Type, info.ID)
	case "stats":
		stats, err := jc.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		cli.PrintQueue(os.Stdout, stats)
	default:
		fmt.Fprintf(os.Stderr, "jobs: unknown command %q\n", args[0])
		return 2
	}
	return 0
}

func runDebt(ctx context.Context, debts *debt.Service, args []string) int {
	if len(args) == 0 || args[0] != "export" {
		fmt.Fprintln(os.Stderr, "usage: truckops debt export [--out file.xlsx] [--json]")
		return 2
	}
	fs := flag.NewFlagSet("debt export", flag.ContinueOnError)
	out := fs.String("out", "", "workbook path")
	asJSON := fs.Bool("json", false, "print the summary as JSON")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	return cli.NewDebtCLI(debts).ExportCommand(ctx, cli.DebtExportOptions{OutPath: *out, JSONOutput: *asJSON})
}
