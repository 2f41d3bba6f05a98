package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/truckops/truckops/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskWageRecalculate recomputes every wage row of one staff member.
	TaskWageRecalculate = "wages:recalculate"
	// TaskDebtSummaryRefresh rebuilds the cached customer debt summary.
	TaskDebtSummaryRefresh = "debt:summary-refresh"
	// TaskIdempotencyCleanup drops expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// WageRecalculatePayload names the staff member to recompute.
type WageRecalculatePayload struct {
	StaffID int64 `json:"staff_id"`
}

// NewWageRecalculateTask builds the recalculation task for staffID.
func NewWageRecalculateTask(staffID int64) (*asynq.Task, error) {
	body, err := json.Marshal(WageRecalculatePayload{StaffID: staffID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWageRecalculate, body, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// NewDebtSummaryRefreshTask builds the periodic summary refresh task.
func NewDebtSummaryRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskDebtSummaryRefresh, nil, asynq.Queue(QueueDefault))
}

// IdempotencyCleanupPayload sets how old a key must be to be dropped.
type IdempotencyCleanupPayload struct {
	OlderThanHours int `json:"older_than_hours"`
}

// NewIdempotencyCleanupTask builds the cleanup task.
func NewIdempotencyCleanupTask(olderThanHours int) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{OlderThanHours: olderThanHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
