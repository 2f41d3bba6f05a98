package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/truckops/truckops/internal/debt"
	jobmetrics "github.com/truckops/truckops/internal/jobs"
)

// DebtSummaryRefresher rebuilds the cached debt summary.
type DebtSummaryRefresher interface {
	RefreshSummary(ctx context.Context) (debt.Summary, error)
}

// DebtSummaryRefreshJob handles TaskDebtSummaryRefresh.
type DebtSummaryRefreshJob struct {
	Service DebtSummaryRefresher
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewDebtSummaryRefreshJob constructs the job handler.
func NewDebtSummaryRefreshJob(service DebtSummaryRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *DebtSummaryRefreshJob {
	return &DebtSummaryRefreshJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the refresh.
func (j *DebtSummaryRefreshJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("debt summary refresh: dependencies not configured")
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskDebtSummaryRefresh)
	start := j.now()
	summary, err := j.Service.RefreshSummary(ctx)
	if err != nil {
		j.log().Error("refresh debt summary", slog.Any("error", err))
		return tracker.End(err)
	}
	metrics.AddItems(TaskDebtSummaryRefresh, len(summary.Customers))
	j.log().Info("refreshed debt summary",
		slog.Int("customers", len(summary.Customers)),
		slog.String("remaining", summary.Remaining.String()),
		slog.Duration("duration", j.now().Sub(start)))
	return tracker.End(nil)
}

func (j *DebtSummaryRefreshJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDebtSummaryRefresh))
	}
	return slog.Default().With(slog.String("job", TaskDebtSummaryRefresh))
}

func (j *DebtSummaryRefreshJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *DebtSummaryRefreshJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
