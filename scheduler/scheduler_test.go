package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chime/types"

	"go.uber.org/zap"
)

type memReminders struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*types.Reminder
}

func newMemReminders() *memReminders {
	return &memReminders{nextID: 1, rows: map[int64]*types.Reminder{}}
}

func (m *memReminders) add(r types.Reminder) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	r.ID = m.nextID
	m.nextID++
	m.rows[r.ID] = &r

	return r.ID
}

func (m *memReminders) Create(_ context.Context, r *types.Reminder) (int64, error) {
	return m.add(*r), nil
}

func (m *memReminders) AttachExternalID(_ context.Context, id int64, externalID string) error {
	return nil
}

func (m *memReminders) ListPending(_ context.Context) ([]types.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []types.Reminder

	for _, r := range m.rows {
		out = append(out, *r)
	}

	return out, nil
}

func (m *memReminders) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rows[id]; !ok {
		return false, nil
	}

	delete(m.rows, id)

	return true, nil
}

func (m *memReminders) CountPending(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return int64(len(m.rows)), nil
}

type countingNotifier struct {
	mu    sync.Mutex
	calls []int64
	err   error
}

func (n *countingNotifier) Notify(_ context.Context, reminder types.Reminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.calls = append(n.calls, reminder.ID)

	return n.err
}

func (n *countingNotifier) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.calls)
}

func testScheduler(mem *memReminders, notifier Notifier) *Scheduler {
	return New(mem, notifier, 10*time.Millisecond, zap.NewNop().Sugar(), nil)
}

func TestSweepFiresDueReminderOnce(t *testing.T) {
	mem := newMemReminders()
	now := time.Date(2025, 6, 29, 12, 0, 0, 0, time.UTC)

	mem.add(types.Reminder{
		OwnerID:   "owner",
		ChannelID: "chan",
		Title:     "Water the plants",
		DueTime:   now.Add(-time.Minute).Format(time.RFC3339),
	})

	notifier := &countingNotifier{}
	s := testScheduler(mem, notifier)

	s.sweep(context.Background(), now)

	if notifier.callCount() != 1 {
		t.Errorf("expected exactly one delivery attempt, got %d", notifier.callCount())
	}
	if count, _ := mem.CountPending(context.Background()); count != 0 {
		t.Errorf("fired reminder must be deleted, %d rows remain", count)
	}

	// A second cycle must not re-fire
	s.sweep(context.Background(), now.Add(time.Minute))

	if notifier.callCount() != 1 {
		t.Errorf("reminder fired twice: %d calls", notifier.callCount())
	}
}

func TestSweepLeavesFutureReminders(t *testing.T) {
	mem := newMemReminders()
	now := time.Date(2025, 6, 29, 12, 0, 0, 0, time.UTC)

	mem.add(types.Reminder{DueTime: now.Add(time.Hour).Format(time.RFC3339)})

	notifier := &countingNotifier{}
	s := testScheduler(mem, notifier)

	s.sweep(context.Background(), now)

	if notifier.callCount() != 0 {
		t.Errorf("future reminder must not fire, got %d calls", notifier.callCount())
	}
	if count, _ := mem.CountPending(context.Background()); count != 1 {
		t.Errorf("future reminder must be left untouched, got %d rows", count)
	}
}

func TestSweepDueExactlyNowFires(t *testing.T) {
	mem := newMemReminders()
	now := time.Date(2025, 6, 29, 12, 0, 0, 0, time.UTC)

	mem.add(types.Reminder{DueTime: now.Format(time.RFC3339)})

	notifier := &countingNotifier{}
	s := testScheduler(mem, notifier)

	s.sweep(context.Background(), now)

	if notifier.callCount() != 1 {
		t.Errorf("due <= now must fire, got %d calls", notifier.callCount())
	}
}

func TestSweepDiscardsUnparseableRows(t *testing.T) {
	mem := newMemReminders()
	now := time.Date(2025, 6, 29, 12, 0, 0, 0, time.UTC)

	mem.add(types.Reminder{DueTime: "not a timestamp"})

	notifier := &countingNotifier{}
	s := testScheduler(mem, notifier)

	s.sweep(context.Background(), now)

	if notifier.callCount() != 0 {
		t.Errorf("corrupt rows must never be delivered, got %d calls", notifier.callCount())
	}
	if count, _ := mem.CountPending(context.Background()); count != 0 {
		t.Errorf("corrupt row must be deleted, got %d rows", count)
	}
}

func TestSweepDeletesAfterFailedDelivery(t *testing.T) {
	mem := newMemReminders()
	now := time.Date(2025, 6, 29, 12, 0, 0, 0, time.UTC)

	mem.add(types.Reminder{DueTime: now.Add(-time.Minute).Format(time.RFC3339)})

	notifier := &countingNotifier{err: errors.New("transport unavailable")}
	s := testScheduler(mem, notifier)

	s.sweep(context.Background(), now)

	if notifier.callCount() != 1 {
		t.Errorf("expected one attempt, got %d", notifier.callCount())
	}
	if count, _ := mem.CountPending(context.Background()); count != 0 {
		t.Errorf("failed delivery still retires the record, got %d rows", count)
	}
}

func TestLifecycleGracefulStop(t *testing.T) {
	mem := newMemReminders()
	notifier := &countingNotifier{}
	s := testScheduler(mem, notifier)

	s.Start(context.Background())

	time.Sleep(25 * time.Millisecond)

	done := make(chan struct{})

	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the in-flight cycle")
	}
}
