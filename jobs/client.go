package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

// Client enqueues TruckOps tasks on behalf of the HTTP server.
type Client struct {
	client *asynq.Client
}

// NewClient opens an asynq client against redisOpts.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	return &Client{client: asynq.NewClient(redisOpts)}, nil
}

// EnqueueWageRecalculation queues a wage recomputation for staffID.
func (c *Client) EnqueueWageRecalculation(ctx context.Context, staffID int64) error {
	task, err := NewWageRecalculateTask(staffID)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task)
	return err
}

// EnqueueDebtSummaryRefresh queues an out of schedule summary rebuild.
// Requests landing within a minute of each other collapse into one task.
func (c *Client) EnqueueDebtSummaryRefresh(ctx context.Context) error {
	_, err := c.client.EnqueueContext(ctx, NewDebtSummaryRefreshTask(), asynq.Unique(time.Minute))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
