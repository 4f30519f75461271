package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// Client enqueues background tasks from the HTTP process.
type Client struct {
	inner *asynq.Client
}

// NewClient constructs a Client over the given Redis options.
func NewClient(opts asynq.RedisClientOpt) *Client {
	return &Client{inner: asynq.NewClient(opts)}
}

// EnqueueMail queues a mail:send task. A queueing failure is a delivery
// failure for the caller to log; it must never abort the mutation that
// triggered the notification.
func (c *Client) EnqueueMail(ctx context.Context, to, subject, body string) error {
	task, err := NewSendEmailTask(SendEmailPayload{To: to, Subject: subject, Body: body})
	if err != nil {
		return fmt.Errorf("jobs: build mail task: %w", err)
	}
	if _, err := c.inner.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("jobs: enqueue mail: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.inner.Close()
}
