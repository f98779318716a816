package scheduler

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/maheshrc27/campaignflow/internal/metrics"
	"github.com/maheshrc27/campaignflow/internal/models"
	"github.com/maheshrc27/campaignflow/internal/repository"
)

func newTestScheduler(store repository.DispatchStore, d Dispatcher, opts Options) *Scheduler {
	opts.Clock = fixedClock
	opts.Logger = discardLogger()
	return New(CampaignKind, store, d, opts)
}

func TestProcessDueDispatchesOnlyDueItems(t *testing.T) {
	store := newMemStore(
		&models.DispatchState{ID: 1, Status: "scheduled", ScheduledAt: ptrTime(testNow.Add(-time.Minute))},
		&models.DispatchState{ID: 2, Status: "scheduled", ScheduledAt: ptrTime(testNow.Add(time.Hour))},
		&models.DispatchState{ID: 3, Status: "draft"},
		&models.DispatchState{ID: 4, Status: "scheduled", ScheduledAt: ptrTime(testNow.Add(-time.Hour))},
	)
	d := &funcDispatcher{}
	d.fn = succeedInto(store, "sent")

	res, err := newTestScheduler(store, d, Options{}).ProcessDue(context.Background())
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}

	if got, want := d.called(), []int64{4, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("dispatched %v, want %v (oldest first)", got, want)
	}
	if res.Due != 2 || res.Processed != 2 || res.Succeeded != 2 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
	if st := store.get(2); st.Status != "scheduled" {
		t.Errorf("future item status = %s, want scheduled", st.Status)
	}
	if st := store.get(3); st.Status != "draft" {
		t.Errorf("draft item status = %s, want draft", st.Status)
	}
}

func TestProcessDueIsolatesFailures(t *testing.T) {
	store := newMemStore(
		&models.DispatchState{ID: 1, Status: "scheduled", ScheduledAt: ptrTime(testNow.Add(-3 * time.Minute))},
		&models.DispatchState{ID: 2, Status: "scheduled", ScheduledAt: ptrTime(testNow.Add(-2 * time.Minute))},
		&models.DispatchState{ID: 3, Status: "scheduled", ScheduledAt: ptrTime(testNow.Add(-1 * time.Minute))},
	)
	history := &fakeHistory{}
	d := &funcDispatcher{fn: func(ctx context.Context, id int64) (Outcome, error) {
		switch id {
		case 1:
			panic("template exploded")
		case 2:
			return Outcome{}, errors.New("subscriber query failed")
		}
		store.set(id, "sent")
		return Outcome{Succeeded: true, Recipients: 2, Sent: 2}, nil
	}}

	res, err := newTestScheduler(store, d, Options{History: history, Metrics: metrics.New()}).ProcessDue(context.Background())
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if res.Processed != 3 || res.Succeeded != 1 || res.Failed != 2 {
		t.Errorf("result = %+v", res)
	}

	if st := store.get(1); st.Status != "failed" {
		t.Errorf("panicking item status = %s, want failed", st.Status)
	}
	if r := store.reason(1); !strings.Contains(r, "template exploded") {
		t.Errorf("panicking item reason = %q", r)
	}
	if r := store.reason(2); r != "subscriber query failed" {
		t.Errorf("erroring item reason = %q", r)
	}
	if st := store.get(3); st.Status != "sent" {
		t.Errorf("healthy item status = %s, want sent", st.Status)
	}

	if len(history.entries) != 3 {
		t.Fatalf("history entries = %d, want 3", len(history.entries))
	}
	last := history.entries[2]
	if last.Kind != "campaign" || last.ItemID != 3 || !last.Succeeded || last.Sent != 2 {
		t.Errorf("history entry = %+v", last)
	}
}

func TestProcessDueSkipsLostClaims(t *testing.T) {
	store := newMemStore(
		&models.DispatchState{ID: 1, Status: "scheduled", ScheduledAt: ptrTime(testNow.Add(-time.Minute))},
		&models.DispatchState{ID: 2, Status: "scheduled", ScheduledAt: ptrTime(testNow)},
	)
	store.beforeClaim = func(id int64) {
		if id == 1 {
			store.set(1, "sending") // a concurrent sweep got there first
		}
	}
	d := &funcDispatcher{}
	d.fn = succeedInto(store, "sent")

	res, err := newTestScheduler(store, d, Options{}).ProcessDue(context.Background())
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if got := d.called(); !reflect.DeepEqual(got, []int64{2}) {
		t.Errorf("dispatched %v, want [2]", got)
	}
	if res.Unclaimed != 1 || res.Processed != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestProcessDueLocking(t *testing.T) {
	due := func() *memStore {
		return newMemStore(&models.DispatchState{ID: 1, Status: "scheduled", ScheduledAt: ptrTime(testNow)})
	}

	t.Run("held elsewhere", func(t *testing.T) {
		store := due()
		d := &funcDispatcher{}
		d.fn = succeedInto(store, "sent")
		res, err := newTestScheduler(store, d, Options{Locker: &fakeLocker{err: ErrLocked}}).ProcessDue(context.Background())
		if err != nil {
			t.Fatalf("ProcessDue() error = %v", err)
		}
		if !res.Skipped || len(d.called()) != 0 {
			t.Errorf("result = %+v, calls = %v; want skipped sweep", res, d.called())
		}
	})

	t.Run("backend down", func(t *testing.T) {
		store := due()
		d := &funcDispatcher{}
		d.fn = succeedInto(store, "sent")
		res, err := newTestScheduler(store, d, Options{Locker: &fakeLocker{err: errors.New("dial tcp: refused")}}).ProcessDue(context.Background())
		if err != nil {
			t.Fatalf("ProcessDue() error = %v", err)
		}
		if res.Skipped || res.Succeeded != 1 {
			t.Errorf("result = %+v, want sweep to run unguarded", res)
		}
	})

	t.Run("released", func(t *testing.T) {
		store := due()
		d := &funcDispatcher{}
		d.fn = succeedInto(store, "sent")
		locker := &fakeLocker{}
		if _, err := newTestScheduler(store, d, Options{Locker: locker}).ProcessDue(context.Background()); err != nil {
			t.Fatalf("ProcessDue() error = %v", err)
		}
		if locker.released != 1 {
			t.Errorf("released = %d, want 1", locker.released)
		}
	})
}

func TestProcessDueListError(t *testing.T) {
	store := newMemStore()
	store.listErr = errors.New("connection reset")
	d := &funcDispatcher{}
	_, err := newTestScheduler(store, d, Options{}).ProcessDue(context.Background())
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("ProcessDue() error = %v, want list error", err)
	}
}

func TestProcessDueMarkFailedSurvivesCancel(t *testing.T) {
	store := newMemStore(&models.DispatchState{ID: 1, Status: "scheduled", ScheduledAt: ptrTime(testNow)})
	ctx, cancel := context.WithCancel(context.Background())
	d := &funcDispatcher{fn: func(ctx context.Context, id int64) (Outcome, error) {
		cancel()
		return Outcome{}, ctx.Err()
	}}

	if _, err := newTestScheduler(store, d, Options{}).ProcessDue(ctx); err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if st := store.get(1); st.Status != "failed" {
		t.Errorf("status = %s, want failed", st.Status)
	}
}

func TestSchedule(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		at      time.Time
		wantErr error
	}{
		{name: "draft", status: "draft", at: testNow.Add(10 * time.Minute)},
		{name: "reschedule", status: "scheduled", at: testNow.Add(MinLeadTime)},
		{name: "too soon", status: "draft", at: testNow.Add(4 * time.Minute), wantErr: ErrScheduleTooSoon},
		{name: "in the past", status: "draft", at: testNow.Add(-time.Hour), wantErr: ErrScheduleTooSoon},
		{name: "already sent", status: "sent", at: testNow.Add(time.Hour), wantErr: ErrInvalidState},
		{name: "in flight", status: "sending", at: testNow.Add(time.Hour), wantErr: ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore(&models.DispatchState{ID: 7, Status: tt.status})
			notifier := &fakeNotifier{}
			s := newTestScheduler(store, &funcDispatcher{}, Options{Notifier: notifier})

			err := s.Schedule(context.Background(), 7, tt.at)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Schedule() error = %v, want %v", err, tt.wantErr)
			}
			st := store.get(7)
			if tt.wantErr != nil {
				if st.Status != tt.status || len(notifier.kinds) != 0 {
					t.Errorf("rejected schedule changed state: %+v, notified %v", st, notifier.kinds)
				}
				return
			}
			if st.Status != "scheduled" || !st.ScheduledAt.Equal(tt.at) {
				t.Errorf("state = %+v", st)
			}
			if !reflect.DeepEqual(notifier.kinds, []string{"campaigns"}) {
				t.Errorf("notified %v", notifier.kinds)
			}
		})
	}
}

func TestScheduleNotFound(t *testing.T) {
	s := newTestScheduler(newMemStore(), &funcDispatcher{}, Options{})
	err := s.Schedule(context.Background(), 99, testNow.Add(time.Hour))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Schedule() error = %v, want ErrNotFound", err)
	}
	if err.Error() != "campaign 99 not found" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestCancel(t *testing.T) {
	tests := []struct {
		status  string
		wantErr error
	}{
		{status: "scheduled"},
		{status: "failed", wantErr: ErrInvalidState},
		{status: "draft", wantErr: ErrInvalidState},
		{status: "sending", wantErr: ErrInvalidState},
		{status: "sent", wantErr: ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			store := newMemStore(&models.DispatchState{
				ID: 1, Status: tt.status, ScheduledAt: ptrTime(testNow), RetryCount: 2,
			})
			err := newTestScheduler(store, &funcDispatcher{}, Options{}).Cancel(context.Background(), 1)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Cancel() error = %v, want %v", err, tt.wantErr)
			}
			st := store.get(1)
			if tt.wantErr == nil {
				if st.Status != "draft" || st.ScheduledAt != nil {
					t.Errorf("state = %+v, want unscheduled draft", st)
				}
				if st.RetryCount != 2 {
					t.Errorf("RetryCount = %d, want retry bookkeeping kept", st.RetryCount)
				}
			} else if st.Status != tt.status {
				t.Errorf("status = %s, want unchanged %s", st.Status, tt.status)
			}
		})
	}
}

func TestSendNow(t *testing.T) {
	store := newMemStore(&models.DispatchState{ID: 5, Status: "draft"})
	d := &funcDispatcher{}
	d.fn = succeedInto(store, "sent")

	res, err := newTestScheduler(store, d, Options{}).SendNow(context.Background(), 5)
	if err != nil {
		t.Fatalf("SendNow() error = %v", err)
	}
	if res.Succeeded != 1 || store.get(5).Status != "sent" {
		t.Errorf("result = %+v, status = %s", res, store.get(5).Status)
	}

	_, err = newTestScheduler(store, d, Options{}).SendNow(context.Background(), 5)
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("SendNow() on sent item error = %v, want ErrInvalidState", err)
	}
}

func TestReconcile(t *testing.T) {
	store := newMemStore(
		&models.DispatchState{ID: 1, Status: "sending", UpdatedAt: testNow.Add(-time.Hour)},
		&models.DispatchState{ID: 2, Status: "sending", UpdatedAt: testNow.Add(-time.Minute)},
		&models.DispatchState{ID: 3, Status: "scheduled", UpdatedAt: testNow.Add(-time.Hour)},
	)
	s := newTestScheduler(store, &funcDispatcher{}, Options{})

	n, err := s.Reconcile(context.Background(), 30*time.Minute)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if n != 1 {
		t.Errorf("reconciled = %d, want 1", n)
	}
	if st := store.get(1); st.Status != "failed" || store.reason(1) != "Dispatch interrupted before completion" {
		t.Errorf("stale item = %+v, reason %q", st, store.reason(1))
	}
	if st := store.get(2); st.Status != "sending" {
		t.Errorf("recent in-flight item status = %s, want sending", st.Status)
	}
	if st := store.get(3); st.Status != "scheduled" {
		t.Errorf("scheduled item status = %s, want scheduled", st.Status)
	}
}

func TestDispatchFailureDoesNotClobberNewerState(t *testing.T) {
	store := newMemStore(&models.DispatchState{ID: 1, Status: "scheduled", ScheduledAt: ptrTime(testNow)})
	d := &funcDispatcher{fn: func(ctx context.Context, id int64) (Outcome, error) {
		// Reconcile failed the row and a retry requeued it while this send ran.
		store.set(id, "scheduled")
		return Outcome{}, errors.New("record send outcome: dispatch is no longer in flight")
	}}

	if _, err := newTestScheduler(store, d, Options{}).ProcessDue(context.Background()); err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if st := store.get(1); st.Status != "scheduled" {
		t.Errorf("status = %s, want scheduled left untouched", st.Status)
	}
}
