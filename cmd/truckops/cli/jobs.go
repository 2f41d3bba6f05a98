package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hibiken/asynq"

	"github.com/truckops/truckops/jobs"
)

const cleanupRetentionHours = 72

// JobsCLI lets an operator enqueue TruckOps tasks by name and peek at the
// default queue without going through the HTTP API.
type JobsCLI struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewJobsCLI connects to the queue at redisAddr.
func NewJobsCLI(redisAddr string) (*JobsCLI, error) {
	if redisAddr == "" {
		return nil, errors.New("jobs cli: redis address required")
	}
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &JobsCLI{client: asynq.NewClient(opts), inspector: asynq.NewInspector(opts)}, nil
}

// Close releases the client and inspector connections.
func (c *JobsCLI) Close() error {
	return errors.Join(c.inspector.Close(), c.client.Close())
}

// TaskFor maps a task type to a ready task. staffID only matters for wage
// recalculation, where it is mandatory.
func TaskFor(name string, staffID int64) (*asynq.Task, error) {
	switch name {
	case jobs.TaskWageRecalculate:
		if staffID <= 0 {
			return nil, errors.New("jobs cli: --staff is required for wage recalculation")
		}
		return jobs.NewWageRecalculateTask(staffID)
	case jobs.TaskDebtSummaryRefresh:
		return jobs.NewDebtSummaryRefreshTask(), nil
	case jobs.TaskIdempotencyCleanup:
		return jobs.NewIdempotencyCleanupTask(cleanupRetentionHours)
	}
	return nil, fmt.Errorf("jobs cli: unknown task %q (want %s, %s or %s)",
		name, jobs.TaskWageRecalculate, jobs.TaskDebtSummaryRefresh, jobs.TaskIdempotencyCleanup)
}

// Trigger enqueues the named task with a bounded retry budget.
func (c *JobsCLI) Trigger(ctx context.Context, name string, staffID int64) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	task, err := TaskFor(name, staffID)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.MaxRetry(3), asynq.Timeout(5*time.Minute))
}

// InspectQueue snapshots the default queue.
func (c *JobsCLI) InspectQueue(context.Context) (jobs.QueueHealth, error) {
	if c == nil || c.inspector == nil {
		return jobs.QueueHealth{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return jobs.QueueHealth{}, fmt.Errorf("jobs cli: inspect %s: %w", jobs.QueueDefault, err)
	}
	return jobs.SnapshotQueue(info), nil
}

// PrintQueue writes one summary line for stats.
func PrintQueue(w io.Writer, stats jobs.QueueHealth) {
	state := "running"
	if stats.Paused {
		state = "paused"
	}
	fmt.Fprintf(w, "%s (%s): pending=%d active=%d scheduled=%d retry=%d failed=%d\n",
		stats.Queue, state, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Failed)
}
