package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maheshrc27/campaignflow/internal/models"
)

func TestRetryBackoff(t *testing.T) {
	tests := []struct {
		n    int
		want time.Duration
	}{
		{-1, 5 * time.Minute},
		{0, 5 * time.Minute},
		{1, 10 * time.Minute},
		{2, 20 * time.Minute},
		{3, 40 * time.Minute},
		{4, 60 * time.Minute},
		{10, 60 * time.Minute},
		{100, 60 * time.Minute},
	}
	for _, tt := range tests {
		if got := RetryBackoff(tt.n); got != tt.want {
			t.Errorf("RetryBackoff(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}

	prev := time.Duration(0)
	for n := 0; n < 64; n++ {
		got := RetryBackoff(n)
		if got < prev || got > time.Hour {
			t.Fatalf("RetryBackoff(%d) = %v after %v", n, got, prev)
		}
		prev = got
	}
}

func TestBackoffErrorRoundsUp(t *testing.T) {
	tests := []struct {
		remaining time.Duration
		want      string
	}{
		{7 * time.Minute, "Please wait 7 more minute(s) before retrying"},
		{6*time.Minute + time.Second, "Please wait 7 more minute(s) before retrying"},
		{time.Second, "Please wait 1 more minute(s) before retrying"},
	}
	for _, tt := range tests {
		if got := (&BackoffError{Remaining: tt.remaining}).Error(); got != tt.want {
			t.Errorf("Error() for %v = %q, want %q", tt.remaining, got, tt.want)
		}
	}
}

func TestRetryRejections(t *testing.T) {
	tests := []struct {
		name    string
		state   *models.DispatchState
		check   func(error) bool
		message string
	}{
		{
			name:  "not found",
			check: func(err error) bool { return errors.Is(err, ErrNotFound) },
		},
		{
			name:  "not failed",
			state: &models.DispatchState{ID: 1, Status: "scheduled", ScheduledAt: ptrTime(testNow.Add(time.Hour))},
			check: func(err error) bool { return errors.Is(err, ErrNotFailed) },
		},
		{
			name:  "sent items cannot be retried",
			state: &models.DispatchState{ID: 1, Status: "sent"},
			check: func(err error) bool { return errors.Is(err, ErrNotFailed) },
		},
		{
			name:  "limit reached",
			state: &models.DispatchState{ID: 1, Status: "failed", RetryCount: 3, MaxRetries: 3, LastRetryAt: ptrTime(testNow.Add(-24 * time.Hour))},
			check: func(err error) bool { return errors.Is(err, ErrRetryLimitReached) },
		},
		{
			// the limit is checked before the backoff window
			name:  "limit reached inside backoff",
			state: &models.DispatchState{ID: 1, Status: "failed", RetryCount: 3, MaxRetries: 3, LastRetryAt: ptrTime(testNow)},
			check: func(err error) bool { return errors.Is(err, ErrRetryLimitReached) },
		},
		{
			name:    "inside backoff",
			state:   &models.DispatchState{ID: 1, Status: "failed", RetryCount: 1, LastRetryAt: ptrTime(testNow.Add(-3 * time.Minute))},
			check:   func(err error) bool { var b *BackoffError; return errors.As(err, &b) },
			message: "Please wait 7 more minute(s) before retrying",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			if tt.state != nil {
				store = newMemStore(tt.state)
			}
			d := &funcDispatcher{}
			d.fn = succeedInto(store, "sent")

			var before models.DispatchState
			if tt.state != nil {
				before = store.get(1)
			}

			_, err := newTestScheduler(store, d, Options{}).Retry(context.Background(), 1)
			if err == nil || !tt.check(err) {
				t.Fatalf("Retry() error = %v", err)
			}
			if tt.message != "" && err.Error() != tt.message {
				t.Errorf("message = %q, want %q", err.Error(), tt.message)
			}
			if len(d.called()) != 0 {
				t.Errorf("rejected retry dispatched %v", d.called())
			}
			if tt.state != nil {
				after := store.get(1)
				if after.Status != before.Status || after.RetryCount != before.RetryCount {
					t.Errorf("state changed from %+v to %+v", before, after)
				}
			}
		})
	}
}

func TestRetryRequeuesAndSweeps(t *testing.T) {
	store := newMemStore(&models.DispatchState{
		ID: 1, Status: "failed", RetryCount: 1, LastRetryAt: ptrTime(testNow.Add(-11 * time.Minute)),
	})
	d := &funcDispatcher{}
	d.fn = succeedInto(store, "sent")

	res, err := newTestScheduler(store, d, Options{}).Retry(context.Background(), 1)
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if !res.Success || res.RetryCount != 2 || res.Message != "Retry 2 of 3 started" {
		t.Errorf("result = %+v", res)
	}
	if res.Sweep.Succeeded != 1 {
		t.Errorf("sweep = %+v, want the requeued item dispatched", res.Sweep)
	}

	st := store.get(1)
	if st.Status != "sent" || st.RetryCount != 2 || !st.LastRetryAt.Equal(testNow) {
		t.Errorf("state = %+v", st)
	}
}

func TestRetryFirstAttemptHasNoBackoff(t *testing.T) {
	store := newMemStore(&models.DispatchState{ID: 1, Status: "failed"})
	d := &funcDispatcher{}
	d.fn = succeedInto(store, "sent")

	res, err := newTestScheduler(store, d, Options{}).Retry(context.Background(), 1)
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if res.Message != "Retry 1 of 3 started" {
		t.Errorf("message = %q", res.Message)
	}
}

func TestRetryFailureKeepsCounting(t *testing.T) {
	store := newMemStore(&models.DispatchState{ID: 1, Status: "failed", RetryCount: 2})
	d := &funcDispatcher{fn: func(ctx context.Context, id int64) (Outcome, error) {
		return Outcome{}, errors.New("still broken")
	}}
	s := newTestScheduler(store, d, Options{})

	if _, err := s.Retry(context.Background(), 1); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	st := store.get(1)
	if st.Status != "failed" || st.RetryCount != 3 {
		t.Fatalf("state = %+v, want failed with 3 retries", st)
	}

	_, err := s.Retry(context.Background(), 1)
	if !errors.Is(err, ErrRetryLimitReached) {
		t.Errorf("fourth Retry() error = %v, want ErrRetryLimitReached", err)
	}
}

func TestRetryConflict(t *testing.T) {
	store := newMemStore(&models.DispatchState{ID: 1, Status: "failed"})
	s := newTestScheduler(&racingStore{memStore: store}, &funcDispatcher{}, Options{})

	_, err := s.Retry(context.Background(), 1)
	if !errors.Is(err, ErrRetryConflict) {
		t.Fatalf("Retry() error = %v, want ErrRetryConflict", err)
	}
}

// racingStore simulates a concurrent retry landing between the read and the requeue.
type racingStore struct {
	*memStore
}

func (r *racingStore) Requeue(ctx context.Context, id int64, retryCount int, at time.Time) (bool, error) {
	r.memStore.mu.Lock()
	r.memStore.items[id].RetryCount++
	r.memStore.mu.Unlock()
	return r.memStore.Requeue(ctx, id, retryCount, at)
}

func TestExhaustedItemStaysFailed(t *testing.T) {
	store := newMemStore(&models.DispatchState{ID: 1, Status: "failed", RetryCount: 3, MaxRetries: 3})
	d := &funcDispatcher{}
	d.fn = succeedInto(store, "sent")
	s := newTestScheduler(store, d, Options{})
	ctx := context.Background()

	if _, err := s.Retry(ctx, 1); !errors.Is(err, ErrRetryLimitReached) {
		t.Fatalf("Retry() error = %v, want ErrRetryLimitReached", err)
	}
	if err := s.Cancel(ctx, 1); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Cancel() error = %v, want ErrInvalidState", err)
	}
	if _, err := s.SendNow(ctx, 1); !errors.Is(err, ErrInvalidState) {
		t.Errorf("SendNow() error = %v, want ErrInvalidState", err)
	}
	if err := s.Schedule(ctx, 1, testNow.Add(time.Hour)); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Schedule() error = %v, want ErrInvalidState", err)
	}

	if calls := d.called(); len(calls) != 0 {
		t.Errorf("dispatched %v, want nothing", calls)
	}
	if st := store.get(1); st.Status != "failed" || st.RetryCount != 3 {
		t.Errorf("state = %+v, want failed with 3 retries", st)
	}
}
