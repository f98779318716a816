package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	retryBaseBackoff = 5 * time.Minute
	retryMaxBackoff  = 60 * time.Minute
)

type RetryResult struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	RetryCount int         `json:"retry_count"`
	Sweep      SweepResult `json:"sweep"`
}

// RetryBackoff is the wait required after a retry when retryCount retries
// have been made: min(5m * 2^retryCount, 60m).
func RetryBackoff(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	d := retryBaseBackoff
	for i := 0; i < retryCount; i++ {
		d *= 2
		if d >= retryMaxBackoff {
			return retryMaxBackoff
		}
	}
	return d
}

// Retry requeues a failed item and runs a full sweep for its kind. The
// checks run in a fixed order and a rejection leaves the item untouched.
func (s *Scheduler) Retry(ctx context.Context, id int64) (RetryResult, error) {
	result, err := s.retry(ctx, id)
	if err != nil {
		s.metrics.RecordRetryRejected(s.kind.Name, rejectionReason(err))
	}
	return result, err
}

func (s *Scheduler) retry(ctx context.Context, id int64) (RetryResult, error) {
	state, err := s.store.GetState(ctx, id)
	if err != nil {
		return RetryResult{}, err
	}
	if state == nil {
		return RetryResult{}, notFound(s.kind, id)
	}
	if state.Status != "failed" {
		return RetryResult{}, ErrNotFailed
	}
	if state.RetryCount >= state.MaxRetries {
		return RetryResult{}, ErrRetryLimitReached
	}

	now := s.clock()
	if state.LastRetryAt != nil {
		wait := RetryBackoff(state.RetryCount)
		if elapsed := now.Sub(*state.LastRetryAt); elapsed < wait {
			return RetryResult{}, &BackoffError{Remaining: wait - elapsed}
		}
	}

	ok, err := s.store.Requeue(ctx, id, state.RetryCount, now)
	if err != nil {
		return RetryResult{}, err
	}
	if !ok {
		return RetryResult{}, ErrRetryConflict
	}

	attempt := state.RetryCount + 1
	s.logger.Info("retry queued", "id", id, "attempt", attempt, "max", state.MaxRetries)

	sweep, err := s.ProcessDue(ctx)
	if err != nil {
		return RetryResult{}, err
	}

	return RetryResult{
		Success:    true,
		Message:    fmt.Sprintf("Retry %d of %d started", attempt, state.MaxRetries),
		RetryCount: attempt,
		Sweep:      sweep,
	}, nil
}

func rejectionReason(err error) string {
	var backoff *BackoffError
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNotFailed):
		return "not_failed"
	case errors.Is(err, ErrRetryLimitReached):
		return "limit"
	case errors.As(err, &backoff):
		return "backoff"
	case errors.Is(err, ErrRetryConflict):
		return "conflict"
	default:
		return "error"
	}
}
