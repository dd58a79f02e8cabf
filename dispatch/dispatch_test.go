package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"chime/platforms"
	"chime/types"

	"go.uber.org/zap"
)

type memReminders struct {
	mu       sync.Mutex
	nextID   int64
	rows     map[int64]*types.Reminder
	attached map[int64]string
}

func newMemReminders() *memReminders {
	return &memReminders{
		nextID:   1,
		rows:     map[int64]*types.Reminder{},
		attached: map[int64]string{},
	}
}

func (m *memReminders) Create(_ context.Context, r *types.Reminder) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r.ID = m.nextID
	m.nextID++

	cp := *r
	m.rows[r.ID] = &cp

	return r.ID, nil
}

func (m *memReminders) AttachExternalID(_ context.Context, id int64, externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attached[id] = externalID

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

// fakePlatform fails for recipient ids listed in failFor.
type fakePlatform struct {
	typ     string
	failFor map[int64]bool

	mu    sync.Mutex
	calls []int64
}

func (f *fakePlatform) Type() string {
	return f.typ
}

func (f *fakePlatform) CreateTask(_ context.Context, recipient types.Recipient, _ types.ResolvedTask) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, recipient.ID)
	f.mu.Unlock()

	if f.failFor[recipient.ID] {
		return "", errors.New("simulated outage")
	}

	return fmt.Sprintf("ext-%d", recipient.ID), nil
}

func (f *fakePlatform) TaskURL(externalID string) string {
	return "https://tasks.example/" + externalID
}

func testTask() types.ResolvedTask {
	return types.ResolvedTask{
		Title:   "Water the plants",
		DueTime: time.Date(2025, 6, 29, 4, 0, 0, 0, time.UTC),
	}
}

func testDispatcher(store *memReminders) *Dispatcher {
	return &Dispatcher{
		Reminders: store,
		Timeout:   time.Second,
		Logger:    zap.NewNop().Sugar(),
	}
}

func recipientsFor(platform string, ids ...int64) []types.Recipient {
	var out []types.Recipient

	for _, id := range ids {
		out = append(out, types.Recipient{ID: id, OwnerID: "owner", Platform: platform, Enabled: true})
	}

	return out
}

func TestDispatchNoRecipients(t *testing.T) {
	mem := newMemReminders()

	_, err := testDispatcher(mem).CreateAndDispatch(context.Background(), "owner", "chan", testTask(), nil)

	if !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}

	if count, _ := mem.CountPending(context.Background()); count != 0 {
		t.Errorf("no reminder row may be created, found %d", count)
	}
}

func TestDispatchAllSucceed(t *testing.T) {
	fake := &fakePlatform{typ: "faketd", failFor: map[int64]bool{}}
	platforms.Register(fake)

	mem := newMemReminders()

	res, err := testDispatcher(mem).CreateAndDispatch(context.Background(), "owner", "chan", testTask(), recipientsFor("faketd", 1, 2, 3))

	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Error("expected success")
	}
	if len(fake.calls) != 3 {
		t.Errorf("expected 3 external calls, got %d", len(fake.calls))
	}
	if res.Reminder.Platform != "faketd" {
		t.Errorf("reminder tagged %q", res.Reminder.Platform)
	}
	if mem.attached[res.Reminder.ID] != "ext-1" {
		t.Errorf("primary external id not attached, got %q", mem.attached[res.Reminder.ID])
	}
	if !strings.Contains(res.Message, "3 of 3") {
		t.Errorf("message: %q", res.Message)
	}
}

func TestDispatchPartialFailure(t *testing.T) {
	fake := &fakePlatform{typ: "fakepf", failFor: map[int64]bool{2: true}}
	platforms.Register(fake)

	mem := newMemReminders()

	res, err := testDispatcher(mem).CreateAndDispatch(context.Background(), "owner", "chan", testTask(), recipientsFor("fakepf", 1, 2, 3))

	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Error("at least one success must make the operation successful")
	}
	if len(fake.calls) != 3 {
		t.Errorf("a failed recipient must not abort the others, got %d calls", len(fake.calls))
	}
	if !strings.Contains(res.Message, "2 of 3") {
		t.Errorf("message: %q", res.Message)
	}
	if !strings.Contains(res.Message, "failed (simulated outage)") {
		t.Errorf("failures must be listed with a reason: %q", res.Message)
	}

	if count, _ := mem.CountPending(context.Background()); count != 1 {
		t.Errorf("exactly one reminder row expected, got %d", count)
	}
}

func TestDispatchPrimaryFailureStillPersists(t *testing.T) {
	fake := &fakePlatform{typ: "fakeprim", failFor: map[int64]bool{1: true}}
	platforms.Register(fake)

	mem := newMemReminders()

	res, err := testDispatcher(mem).CreateAndDispatch(context.Background(), "owner", "chan", testTask(), recipientsFor("fakeprim", 1, 2))

	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Error("non-primary success still counts")
	}
	if res.Reminder.Platform != "fakeprim" {
		t.Errorf("reminder tagged %q", res.Reminder.Platform)
	}
	if _, ok := mem.attached[res.Reminder.ID]; ok {
		t.Error("no external id may be attached when the primary attempt failed")
	}
	if count, _ := mem.CountPending(context.Background()); count != 1 {
		t.Errorf("reminder row must exist regardless of which recipient failed, got %d", count)
	}
}

func TestDispatchTotalFailure(t *testing.T) {
	fake := &fakePlatform{typ: "fakedown", failFor: map[int64]bool{1: true, 2: true}}
	platforms.Register(fake)

	mem := newMemReminders()

	res, err := testDispatcher(mem).CreateAndDispatch(context.Background(), "owner", "chan", testTask(), recipientsFor("fakedown", 1, 2))

	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Error("total failure must not report success")
	}

	// The canonical reminder survives and will still fire locally
	if count, _ := mem.CountPending(context.Background()); count != 1 {
		t.Errorf("expected the local reminder to survive, got %d rows", count)
	}
}

func TestDispatchUnsupportedPlatformFailsLocally(t *testing.T) {
	mem := newMemReminders()

	res, err := testDispatcher(mem).CreateAndDispatch(context.Background(), "owner", "chan", testTask(), recipientsFor("never-registered", 1))

	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Error("expected failure")
	}
	if !strings.Contains(res.Message, "unsupported platform") {
		t.Errorf("message: %q", res.Message)
	}
}

func TestDispatchDedupesRecipients(t *testing.T) {
	fake := &fakePlatform{typ: "fakedup", failFor: map[int64]bool{}}
	platforms.Register(fake)

	mem := newMemReminders()

	res, err := testDispatcher(mem).CreateAndDispatch(context.Background(), "owner", "chan", testTask(), recipientsFor("fakedup", 7, 7, 8))

	if err != nil {
		t.Fatal(err)
	}
	if len(fake.calls) != 2 {
		t.Errorf("expected 2 attempts after dedupe, got %d", len(fake.calls))
	}
	if len(res.Outcomes) != 2 {
		t.Errorf("expected 2 outcomes, got %d", len(res.Outcomes))
	}
}

func TestSummarizeDeterministicOrder(t *testing.T) {
	outcomes := []types.DispatchOutcome{
		{RecipientID: 1, Platform: "todoist", ExternalID: "a", URL: "https://tasks.example/a"},
		{RecipientID: 2, Platform: "trello", Error: "nope"},
		{RecipientID: 3, Platform: "todoist", ExternalID: "c", URL: "https://tasks.example/c"},
	}

	success, message := Summarize(outcomes)

	if !success {
		t.Error("expected success")
	}

	first := strings.Index(message, "todoist #1")
	second := strings.Index(message, "trello #2")
	third := strings.Index(message, "todoist #3")

	if first == -1 || second == -1 || third == -1 || !(first < second && second < third) {
		t.Errorf("outcomes must be listed in recipient order: %q", message)
	}
}
