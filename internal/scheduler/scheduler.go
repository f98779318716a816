package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/campaignflow/internal/metrics"
	"github.com/maheshrc27/campaignflow/internal/models"
	"github.com/maheshrc27/campaignflow/internal/repository"
)

const (
	MinLeadTime       = 5 * time.Minute
	DefaultStaleAfter = 30 * time.Minute
	defaultLockTTL    = 10 * time.Minute

	interruptedReason = "Dispatch interrupted before completion"
)

// Kind names one of the two content pipelines.
type Kind struct {
	Name     string
	Item     string
	InFlight string
}

var (
	CampaignKind = Kind{Name: "campaigns", Item: "campaign", InFlight: models.CampaignStatusSending}
	PostKind     = Kind{Name: "posts", Item: "post", InFlight: models.PostStatusPublishing}
)

// Outcome is what a dispatcher reports for one claimed item. The dispatcher
// has already persisted the terminal status when it returns a nil error.
type Outcome struct {
	Succeeded  bool
	Error      string
	Recipients int
	Sent       int
	Failed     int
}

type Dispatcher interface {
	Dispatch(ctx context.Context, id int64) (Outcome, error)
}

// Notifier learns about newly scheduled items, e.g. to queue a delayed sweep.
type Notifier interface {
	NotifyScheduled(ctx context.Context, kind string, at time.Time) error
}

type Options struct {
	Clock    func() time.Time
	Locker   Locker
	LockTTL  time.Duration
	History  repository.DispatchHistoryRepository
	Notifier Notifier
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

type SweepResult struct {
	Kind      string `json:"kind"`
	Due       int    `json:"due"`
	Processed int    `json:"processed"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Unclaimed int    `json:"unclaimed"`
	Skipped   bool   `json:"skipped"`
}

type Scheduler struct {
	kind       Kind
	store      repository.DispatchStore
	dispatcher Dispatcher
	clock      func() time.Time
	locker     Locker
	lockTTL    time.Duration
	history    repository.DispatchHistoryRepository
	notifier   Notifier
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func New(kind Kind, store repository.DispatchStore, dispatcher Dispatcher, opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scheduler{
		kind:       kind,
		store:      store,
		dispatcher: dispatcher,
		clock:      opts.Clock,
		locker:     opts.Locker,
		lockTTL:    opts.LockTTL,
		history:    opts.History,
		notifier:   opts.Notifier,
		metrics:    opts.Metrics,
		logger:     opts.Logger.With("component", "scheduler", "kind", kind.Name),
	}
}

func (s *Scheduler) Kind() Kind { return s.kind }

// ProcessDue dispatches every scheduled item whose time has come. Items run
// one at a time; a failing or panicking item is recorded as failed and the
// sweep moves on. Only storage errors while listing abort the sweep.
func (s *Scheduler) ProcessDue(ctx context.Context) (SweepResult, error) {
	result := SweepResult{Kind: s.kind.Name}

	release, err := s.obtainLock(ctx)
	if errors.Is(err, ErrLocked) {
		s.logger.Info("sweep skipped, lock held elsewhere")
		s.metrics.RecordSweepSkipped(s.kind.Name)
		result.Skipped = true
		return result, nil
	}
	defer release()

	start := s.clock()
	defer func() {
		s.metrics.ObserveSweep(s.kind.Name, time.Since(start))
	}()

	due, err := s.store.ListDue(ctx, start)
	if err != nil {
		return result, fmt.Errorf("list due %s: %w", s.kind.Name, err)
	}
	result.Due = len(due)

	for _, item := range due {
		if ctx.Err() != nil {
			s.logger.Warn("sweep interrupted", "remaining", result.Due-result.Processed-result.Unclaimed)
			break
		}

		claimed, err := s.store.Claim(ctx, item.ID, s.kind.InFlight)
		if err != nil {
			s.logger.Error("claim failed", "id", item.ID, "error", err)
			result.Unclaimed++
			continue
		}
		if !claimed {
			s.logger.Info("item claimed by another sweep", "id", item.ID)
			result.Unclaimed++
			continue
		}

		result.Processed++
		if s.dispatch(ctx, item.ID) {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}

	s.logger.Info("sweep finished",
		"due", result.Due,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"unclaimed", result.Unclaimed,
	)
	return result, nil
}

// obtainLock is best effort: without a locker, or when the lock backend
// fails, the sweep runs unguarded and relies on the conditional claim.
func (s *Scheduler) obtainLock(ctx context.Context) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}
	release, err := s.locker.Obtain(ctx, "lock:sweep:"+s.kind.Name, s.lockTTL)
	if errors.Is(err, ErrLocked) {
		return noop, err
	}
	if err != nil {
		s.logger.Warn("could not obtain sweep lock; proceeding without it", "error", err)
		return noop, nil
	}
	return release, nil
}

func (s *Scheduler) dispatch(ctx context.Context, id int64) (ok bool) {
	// Terminal writes must land even if the trigger's context is gone.
	persistCtx := context.WithoutCancel(ctx)

	outcome, err := s.safeDispatch(ctx, id)
	if err != nil {
		outcome = Outcome{Error: err.Error()}
		if markErr := s.store.MarkFailed(persistCtx, id, err.Error()); markErr != nil {
			s.logger.Error("failed to record dispatch failure", "id", id, "error", markErr)
		}
	}

	status := "failed"
	if outcome.Succeeded {
		status = "succeeded"
	} else {
		s.logger.Warn("dispatch failed", "id", id, "reason", outcome.Error)
	}
	s.metrics.RecordDispatch(s.kind.Name, status)
	s.recordHistory(persistCtx, id, outcome)

	return outcome.Succeeded
}

func (s *Scheduler) safeDispatch(ctx context.Context, id int64) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return s.dispatcher.Dispatch(ctx, id)
}

func (s *Scheduler) recordHistory(ctx context.Context, id int64, o Outcome) {
	if s.history == nil {
		return
	}
	_, err := s.history.Create(ctx, &models.DispatchHistory{
		Kind:         s.kind.Item,
		ItemID:       id,
		Succeeded:    o.Succeeded,
		ErrorMessage: o.Error,
		Recipients:   o.Recipients,
		Sent:         o.Sent,
		Failed:       o.Failed,
	})
	if err != nil {
		s.logger.Error("failed to record dispatch history", "id", id, "error", err)
	}
}

// Schedule sets a draft or scheduled item to go out at at.
func (s *Scheduler) Schedule(ctx context.Context, id int64, at time.Time) error {
	if at.Before(s.clock().Add(MinLeadTime)) {
		return ErrScheduleTooSoon
	}

	state, err := s.store.GetState(ctx, id)
	if err != nil {
		return err
	}
	if state == nil {
		return notFound(s.kind, id)
	}

	ok, err := s.store.Schedule(ctx, id, at)
	if err != nil {
		return err
	}
	if !ok {
		return invalidState(s.kind, "schedule", id, state.Status)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyScheduled(ctx, s.kind.Name, at); err != nil {
			s.logger.Warn("could not queue delayed sweep", "id", id, "error", err)
		}
	}
	return nil
}

// Cancel returns a scheduled item to draft. Failed items leave that state
// only through Retry, so the retry budget and backoff always apply to them.
func (s *Scheduler) Cancel(ctx context.Context, id int64) error {
	state, err := s.store.GetState(ctx, id)
	if err != nil {
		return err
	}
	if state == nil {
		return notFound(s.kind, id)
	}
	if state.Status != "scheduled" {
		return invalidState(s.kind, "cancel", id, state.Status)
	}

	ok, err := s.store.Unschedule(ctx, id, "scheduled")
	if err != nil {
		return err
	}
	if !ok {
		return invalidState(s.kind, "cancel", id, "changing")
	}
	return nil
}

// SendNow makes a draft or scheduled item due immediately and runs a sweep.
func (s *Scheduler) SendNow(ctx context.Context, id int64) (SweepResult, error) {
	state, err := s.store.GetState(ctx, id)
	if err != nil {
		return SweepResult{}, err
	}
	if state == nil {
		return SweepResult{}, notFound(s.kind, id)
	}

	ok, err := s.store.Schedule(ctx, id, s.clock())
	if err != nil {
		return SweepResult{}, err
	}
	if !ok {
		return SweepResult{}, invalidState(s.kind, "send", id, state.Status)
	}
	return s.ProcessDue(ctx)
}

// Reconcile fails items stuck in flight for longer than staleAfter, which
// happens when the process dies mid-dispatch.
func (s *Scheduler) Reconcile(ctx context.Context, staleAfter time.Duration) (int, error) {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	cutoff := s.clock().Add(-staleAfter)

	stale, err := s.store.ListStale(ctx, s.kind.InFlight, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stale %s: %w", s.kind.Name, err)
	}

	n := 0
	for _, item := range stale {
		ok, err := s.store.FailStale(ctx, item.ID, s.kind.InFlight, cutoff, interruptedReason)
		if err != nil {
			s.logger.Error("reconcile failed", "id", item.ID, "error", err)
			continue
		}
		if ok {
			n++
			s.logger.Warn("stale dispatch marked failed", "id", item.ID, "since", item.UpdatedAt)
		}
	}
	s.metrics.RecordReconciled(s.kind.Name, n)
	return n, nil
}
