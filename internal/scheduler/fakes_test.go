package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/maheshrc27/campaignflow/internal/models"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptrTime(t time.Time) *time.Time { return &t }

// memStore is an in-memory DispatchStore with the same conditional
// semantics as the SQL implementation.
type memStore struct {
	mu      sync.Mutex
	items   map[int64]*models.DispatchState
	reasons map[int64]string
	listErr error

	// beforeClaim runs before each Claim, outside the lock.
	beforeClaim func(id int64)
}

func newMemStore(states ...*models.DispatchState) *memStore {
	s := &memStore{items: map[int64]*models.DispatchState{}, reasons: map[int64]string{}}
	for _, st := range states {
		if st.MaxRetries == 0 {
			st.MaxRetries = models.DefaultMaxRetries
		}
		if st.UpdatedAt.IsZero() {
			st.UpdatedAt = testNow
		}
		s.items[st.ID] = st
	}
	return s
}

func (s *memStore) get(id int64) models.DispatchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.items[id]
}

func (s *memStore) reason(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reasons[id]
}

func (s *memStore) set(id int64, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id].Status = status
}

func (s *memStore) ListDue(ctx context.Context, now time.Time) ([]*models.DispatchState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []*models.DispatchState
	for _, st := range s.items {
		if st.Status == "scheduled" && st.ScheduledAt != nil && !st.ScheduledAt.After(now) {
			c := *st
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(*out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(*out[j].ScheduledAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memStore) ListStale(ctx context.Context, inFlight string, before time.Time) ([]*models.DispatchState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.DispatchState
	for _, st := range s.items {
		if st.Status == inFlight && st.UpdatedAt.Before(before) {
			c := *st
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *memStore) GetState(ctx context.Context, id int64) (*models.DispatchState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	c := *st
	return &c, nil
}

func (s *memStore) Claim(ctx context.Context, id int64, inFlight string) (bool, error) {
	if s.beforeClaim != nil {
		s.beforeClaim(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.items[id]
	if !ok || st.Status != "scheduled" {
		return false, nil
	}
	st.Status = inFlight
	delete(s.reasons, id)
	return true, nil
}

func (s *memStore) MarkFailed(ctx context.Context, id int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.items[id]; ok && (st.Status == CampaignKind.InFlight || st.Status == PostKind.InFlight) {
		st.Status = "failed"
		s.reasons[id] = reason
	}
	return nil
}

func (s *memStore) FailStale(ctx context.Context, id int64, inFlight string, before time.Time, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.items[id]
	if !ok || st.Status != inFlight || !st.UpdatedAt.Before(before) {
		return false, nil
	}
	st.Status = "failed"
	s.reasons[id] = reason
	return true, nil
}

func (s *memStore) Requeue(ctx context.Context, id int64, retryCount int, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.items[id]
	if !ok || st.Status != "failed" || st.RetryCount != retryCount || st.RetryCount >= st.MaxRetries {
		return false, nil
	}
	st.Status = "scheduled"
	st.RetryCount++
	st.LastRetryAt = ptrTime(at)
	st.ScheduledAt = ptrTime(at)
	delete(s.reasons, id)
	return true, nil
}

func (s *memStore) Schedule(ctx context.Context, id int64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.items[id]
	if !ok || (st.Status != "draft" && st.Status != "scheduled") {
		return false, nil
	}
	st.Status = "scheduled"
	st.ScheduledAt = ptrTime(at)
	return true, nil
}

func (s *memStore) Unschedule(ctx context.Context, id int64, from string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.items[id]
	if !ok || st.Status != from {
		return false, nil
	}
	st.Status = "draft"
	st.ScheduledAt = nil
	return true, nil
}

// funcDispatcher marks items succeeded in the store unless fn says otherwise.
type funcDispatcher struct {
	mu    sync.Mutex
	calls []int64
	fn    func(ctx context.Context, id int64) (Outcome, error)
}

func (d *funcDispatcher) Dispatch(ctx context.Context, id int64) (Outcome, error) {
	d.mu.Lock()
	d.calls = append(d.calls, id)
	d.mu.Unlock()
	return d.fn(ctx, id)
}

func (d *funcDispatcher) called() []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int64(nil), d.calls...)
}

func succeedInto(store *memStore, status string) func(ctx context.Context, id int64) (Outcome, error) {
	return func(ctx context.Context, id int64) (Outcome, error) {
		store.set(id, status)
		return Outcome{Succeeded: true}, nil
	}
}

type fakeLocker struct {
	err      error
	released int
}

func (l *fakeLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	return func() { l.released++ }, nil
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []*models.DispatchHistory
}

func (h *fakeHistory) Create(ctx context.Context, e *models.DispatchHistory) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	return int64(len(h.entries)), nil
}

func (h *fakeHistory) ListByItem(ctx context.Context, kind string, itemID int64) ([]*models.DispatchHistory, error) {
	return nil, errors.New("not implemented")
}

type fakeNotifier struct {
	kinds []string
	ats   []time.Time
}

func (n *fakeNotifier) NotifyScheduled(ctx context.Context, kind string, at time.Time) error {
	n.kinds = append(n.kinds, kind)
	n.ats = append(n.ats, at)
	return nil
}
