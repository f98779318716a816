package queue

import (
	"context"
	"log/slog"

	"github.com/maheshrc27/campaignflow/internal/scheduler"
)

// Sweeper runs one due-item pass for a content kind.
type Sweeper interface {
	ProcessDue(ctx context.Context) (scheduler.SweepResult, error)
}

type Queue struct {
	sweepers map[string]Sweeper
	logger   *slog.Logger
}

func NewQueue(logger *slog.Logger, sweepers map[string]Sweeper) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		sweepers: sweepers,
		logger:   logger.With("component", "queue"),
	}
}

const TaskTypeDispatchSweep = "dispatch:sweep"

type DispatchSweepPayload struct {
	Kind string `json:"kind"`
}
