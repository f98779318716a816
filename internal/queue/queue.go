package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// SweepTaskTimeout replaces asynq's 30 minute default so a queued sweep can
// finish a large campaign.
const SweepTaskTimeout = 12 * time.Hour

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func newSweepTask(payload DispatchSweepPayload) (*asynq.Task, error) {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDispatchSweep, taskPayload), nil
}

func EnqueueSweep(ctx context.Context, client enqueuer, payload DispatchSweepPayload, delay time.Duration) error {
	task, err := newSweepTask(payload)
	if err != nil {
		return err
	}

	if delay < 0 {
		delay = 0
	}
	info, err := client.EnqueueContext(ctx, task, asynq.ProcessIn(delay), asynq.MaxRetry(3), asynq.Timeout(SweepTaskTimeout))
	if err != nil {
		return err
	}

	slog.Info("sweep task scheduled", "kind", payload.Kind, "delay", delay, "task_id", info.ID)
	return nil
}

// Notifier queues a sweep for the moment a scheduled item becomes due, so
// delivery does not wait for the next periodic sweep.
type Notifier struct {
	client enqueuer
	clock  func() time.Time
}

func NewNotifier(client *asynq.Client) *Notifier {
	return &Notifier{client: client, clock: time.Now}
}

func (n *Notifier) NotifyScheduled(ctx context.Context, kind string, at time.Time) error {
	return EnqueueSweep(ctx, n.client, DispatchSweepPayload{Kind: kind}, at.Sub(n.clock()))
}
