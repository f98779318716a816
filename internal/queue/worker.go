package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

func (q *Queue) HandleDispatchSweepTask(ctx context.Context, task *asynq.Task) error {
	var payload DispatchSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode sweep payload: %v: %w", err, asynq.SkipRetry)
	}

	sweeper, ok := q.sweepers[payload.Kind]
	if !ok {
		return fmt.Errorf("no sweeper for kind %q: %w", payload.Kind, asynq.SkipRetry)
	}

	res, err := sweeper.ProcessDue(ctx)
	if err != nil {
		q.logger.Error("queued sweep failed", "kind", payload.Kind, "error", err)
		return err
	}

	q.logger.Info("queued sweep finished",
		"kind", payload.Kind,
		"due", res.Due,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"skipped", res.Skipped,
	)
	return nil
}

// Mux routes queued tasks to the queue's handlers.
func (q *Queue) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeDispatchSweep, q.HandleDispatchSweepTask)
	return mux
}
