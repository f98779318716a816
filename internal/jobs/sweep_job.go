package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/maheshrc27/campaignflow/internal/scheduler"
	"github.com/robfig/cron"
)

const (
	reconcileSpec    = "@every 00h10m00s"
	reconcileTimeout = 5 * time.Minute
)

// Sweeper is the part of scheduler.Scheduler the periodic jobs drive.
type Sweeper interface {
	Kind() scheduler.Kind
	ProcessDue(ctx context.Context) (scheduler.SweepResult, error)
	Reconcile(ctx context.Context, staleAfter time.Duration) (int, error)
}

type SweepJob struct {
	sweepers   []Sweeper
	staleAfter time.Duration
	logger     *slog.Logger
}

func NewSweepJob(logger *slog.Logger, staleAfter time.Duration, sweepers ...Sweeper) *SweepJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepJob{
		sweepers:   sweepers,
		staleAfter: staleAfter,
		logger:     logger.With("component", "jobs"),
	}
}

// Sweep runs every kind's due pass in turn. One kind failing does not stop the
// others. A sweep is never cut short: a large campaign keeps sending until its
// last batch settles.
func (j *SweepJob) Sweep() {
	ctx := context.Background()
	for _, s := range j.sweepers {
		if _, err := s.ProcessDue(ctx); err != nil {
			j.logger.Error("periodic sweep failed", "kind", s.Kind().Name, "error", err)
		}
	}
}

func (j *SweepJob) Reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	for _, s := range j.sweepers {
		n, err := s.Reconcile(ctx, j.staleAfter)
		if err != nil {
			slog.Info(err.Error())
			continue
		}
		if n > 0 {
			j.logger.Warn("reconciled stale dispatches", "kind", s.Kind().Name, "count", n)
		}
	}
}

// Register adds the reconcile job and, when interval is set, the sweep job.
// interval is a cron spec such as "@every 00h05m00s".
func (j *SweepJob) Register(c *cron.Cron, interval string) error {
	if err := c.AddFunc(reconcileSpec, j.Reconcile); err != nil {
		return err
	}
	if interval == "" {
		j.logger.Info("periodic sweep disabled; relying on queued and external triggers")
		return nil
	}
	return c.AddFunc(interval, j.Sweep)
}
