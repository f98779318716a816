package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maheshrc27/campaignflow/internal/scheduler"
)

var ErrMaxRetriesTooLow = errors.New("max_retries cannot be lower than the retries already used")

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Lifecycle is the scheduling surface shared by campaigns and posts.
type Lifecycle interface {
	Schedule(ctx context.Context, id int64, at time.Time) error
	Cancel(ctx context.Context, id int64) error
	SendNow(ctx context.Context, id int64) (scheduler.SweepResult, error)
	Retry(ctx context.Context, id int64) (scheduler.RetryResult, error)
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func notFound(item string, id int64) error {
	return fmt.Errorf("%s %d %w", item, id, scheduler.ErrNotFound)
}

func invalidState(op, item string, id int64, status string) error {
	return fmt.Errorf("%w: cannot %s %s %d while it is %s", scheduler.ErrInvalidState, op, item, id, status)
}

// retryBudget keeps the stored max_retries when the request leaves it out and
// refuses a budget smaller than what the item has already consumed.
func retryBudget(requested *int, current, used int) (int, error) {
	if requested == nil {
		return current, nil
	}
	if *requested < used {
		return 0, fmt.Errorf("%w (%d used, %d requested)", ErrMaxRetriesTooLow, used, *requested)
	}
	return *requested, nil
}
