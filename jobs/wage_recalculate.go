package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/truckops/truckops/internal/jobs"
)

// WageRecalculator recomputes a staff member's wages from priced trips.
type WageRecalculator interface {
	RecalculateStaffWages(ctx context.Context, staffID int64) (int, error)
}

// WageRecalculateJob handles TaskWageRecalculate.
type WageRecalculateJob struct {
	Service WageRecalculator
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewWageRecalculateJob constructs the job handler.
func NewWageRecalculateJob(service WageRecalculator, logger *slog.Logger, metrics *jobmetrics.Metrics) *WageRecalculateJob {
	return &WageRecalculateJob{Service: service, Logger: logger, Metrics: metrics}
}

// Handle executes the recalculation.
func (j *WageRecalculateJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("wage recalculate: dependencies not configured")
	}
	var payload WageRecalculatePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("wage recalculate: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.StaffID <= 0 {
		return fmt.Errorf("wage recalculate: staff id must be positive: %w", asynq.SkipRetry)
	}

	metrics := j.metrics()
	tracker := metrics.Track(TaskWageRecalculate)
	n, err := j.Service.RecalculateStaffWages(ctx, payload.StaffID)
	if err != nil {
		j.log().Error("recalculate wages", slog.Int64("staff_id", payload.StaffID), slog.Any("error", err))
		return tracker.End(err)
	}
	metrics.AddItems(TaskWageRecalculate, n)
	j.log().Info("recalculated wages", slog.Int64("staff_id", payload.StaffID), slog.Int("trips", n))
	return tracker.End(nil)
}

func (j *WageRecalculateJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *WageRecalculateJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskWageRecalculate))
	}
	return slog.Default().With(slog.String("job", TaskWageRecalculate))
}
