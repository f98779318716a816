package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/campaignflow/internal/models"
)

// ErrNotInFlight is returned by a terminal write when the row already left its
// in-flight status, e.g. because Reconcile failed it in the meantime.
var ErrNotInFlight = errors.New("dispatch is no longer in flight")

// dispatchStore holds the lifecycle queries shared by the campaigns and posts
// tables. Every transition is a conditional update so that two writers racing
// on the same row cannot both win.
type dispatchStore struct {
	db       *sql.DB
	table    string
	inFlight string
}

const dispatchStateColumns = `id, status, scheduled_at, retry_count, max_retries, last_retry_at, updated_at`

func scanDispatchState(row interface{ Scan(...any) error }) (*models.DispatchState, error) {
	var s models.DispatchState
	err := row.Scan(&s.ID, &s.Status, &s.ScheduledAt, &s.RetryCount, &s.MaxRetries, &s.LastRetryAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *dispatchStore) listStates(ctx context.Context, query string, args ...any) ([]*models.DispatchState, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var states []*models.DispatchState
	for rows.Next() {
		s, err := scanDispatchState(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		states = append(states, s)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return states, nil
}

// ListDue returns scheduled rows whose scheduled_at has passed, oldest first.
func (r *dispatchStore) ListDue(ctx context.Context, now time.Time) ([]*models.DispatchState, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE status = 'scheduled' AND scheduled_at <= $1 ORDER BY scheduled_at, id`,
		dispatchStateColumns, r.table)
	return r.listStates(ctx, query, now)
}

// ListStale returns rows stuck in an in-flight status since before the cutoff.
func (r *dispatchStore) ListStale(ctx context.Context, inFlight string, before time.Time) ([]*models.DispatchState, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE status = $1 AND updated_at < $2`, dispatchStateColumns, r.table)
	return r.listStates(ctx, query, inFlight, before)
}

func (r *dispatchStore) GetState(ctx context.Context, id int64) (*models.DispatchState, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, dispatchStateColumns, r.table)
	s, err := scanDispatchState(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return s, nil
}

func (r *dispatchStore) exec(ctx context.Context, query string, args ...any) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

// Claim flips a scheduled row to its in-flight status. It reports false when
// another writer got there first.
func (r *dispatchStore) Claim(ctx context.Context, id int64, inFlight string) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET status = $2, failure_reason = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'`, r.table)
	return r.exec(ctx, query, id, inFlight)
}

// MarkFailed fails a row that is still in flight. A row that already moved on
// is left alone.
func (r *dispatchStore) MarkFailed(ctx context.Context, id int64, reason string) error {
	query := fmt.Sprintf(`UPDATE %s SET status = 'failed', failure_reason = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3`, r.table)
	ok, err := r.exec(ctx, query, id, reason, r.inFlight)
	if err != nil {
		return err
	}
	if !ok {
		slog.Warn("failure not recorded, dispatch no longer in flight", "table", r.table, "id", id)
	}
	return nil
}

// Touch bumps updated_at on an in-flight row so Reconcile does not take a
// long running dispatch for a dead one.
func (r *dispatchStore) Touch(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`UPDATE %s SET updated_at = NOW() WHERE id = $1 AND status = $2`, r.table)
	_, err := r.exec(ctx, query, id, r.inFlight)
	return err
}

// Requeue moves a failed row back to scheduled, consuming one retry. The
// retry_count guard makes concurrent retries of the same row single-winner.
func (r *dispatchStore) Requeue(ctx context.Context, id int64, retryCount int, at time.Time) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s
		SET status = 'scheduled',
			retry_count = retry_count + 1,
			last_retry_at = $2,
			scheduled_at = $2,
			failure_reason = NULL,
			updated_at = NOW()
		WHERE id = $1 AND status = 'failed' AND retry_count = $3 AND retry_count < max_retries`, r.table)
	return r.exec(ctx, query, id, at, retryCount)
}

// Schedule sets scheduled_at on a draft or already scheduled row.
func (r *dispatchStore) Schedule(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET status = 'scheduled', scheduled_at = $2, failure_reason = NULL, updated_at = NOW()
		WHERE id = $1 AND status IN ('draft', 'scheduled')`, r.table)
	return r.exec(ctx, query, id, at)
}

// Unschedule returns a row in the given status to draft.
func (r *dispatchStore) Unschedule(ctx context.Context, id int64, from string) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET status = 'draft', scheduled_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = $2`, r.table)
	return r.exec(ctx, query, id, from)
}

// FailStale fails a row still in the in-flight status and untouched since before.
func (r *dispatchStore) FailStale(ctx context.Context, id int64, inFlight string, before time.Time, reason string) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET status = 'failed', failure_reason = $4, updated_at = NOW()
		WHERE id = $1 AND status = $2 AND updated_at < $3`, r.table)
	return r.exec(ctx, query, id, inFlight, before, reason)
}
