package scheduler

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrNotFailed         = errors.New("only failed items can be retried")
	ErrRetryLimitReached = errors.New("maximum retries reached")
	ErrRetryConflict     = errors.New("item changed while the retry was being queued")
	ErrInvalidState      = errors.New("invalid state for this operation")
	ErrScheduleTooSoon   = errors.New("scheduled time must be at least 5 minutes in the future")
	ErrLocked            = errors.New("another sweep is running")
)

// BackoffError rejects a retry that arrives before the backoff window closes.
type BackoffError struct {
	Remaining time.Duration
}

func (e *BackoffError) Error() string {
	return fmt.Sprintf("Please wait %d more minute(s) before retrying", e.RemainingMinutes())
}

// RemainingMinutes rounds the remaining wait up to whole minutes.
func (e *BackoffError) RemainingMinutes() int {
	return int(math.Ceil(e.Remaining.Minutes()))
}

func notFound(k Kind, id int64) error {
	return fmt.Errorf("%s %d %w", k.Item, id, ErrNotFound)
}

func invalidState(k Kind, op string, id int64, status string) error {
	return fmt.Errorf("%w: cannot %s %s %d while it is %s", ErrInvalidState, op, k.Item, id, status)
}
