package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/countdown-tracker/backend/internal/event"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeLocal struct {
	mu     sync.Mutex
	saved  [][]event.Event
	stored []event.Event
	errTag error
}

func (f *fakeLocal) SaveAll(_ context.Context, events []event.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errTag != nil {
		return f.errTag
	}
	f.saved = append(f.saved, event.CloneAll(events))
	f.stored = event.CloneAll(events)
	return nil
}

func (f *fakeLocal) LoadAll(context.Context) ([]event.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errTag != nil {
		return nil, f.errTag
	}
	return event.CloneAll(f.stored), nil
}

func (f *fakeLocal) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

type fakeCloud struct {
	mu     sync.Mutex
	events []event.Event
	err    error
	loads  int
}

func (f *fakeCloud) LoadEvents(_ context.Context, _ string) ([]event.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	return event.CloneAll(f.events), nil
}

type fakeQueue struct {
	mu       sync.Mutex
	upserts  [][]event.Event
	deletes  []string
	flushes  [][]event.Event
	flushErr error
	resets   int
}

func (f *fakeQueue) EnqueueSync(events []event.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, event.CloneAll(events))
}

func (f *fakeQueue) EnqueueDelete(eventID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, eventID)
}

func (f *fakeQueue) ForceFlush(_ context.Context, events []event.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes = append(f.flushes, event.CloneAll(events))
	return f.flushErr
}

func (f *fakeQueue) IsSyncing() bool { return false }

func (f *fakeQueue) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

func (f *fakeQueue) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserts)
}

type fakeReminders struct {
	mu        sync.Mutex
	scheduled map[string][]int
	cancelled []string
	stopped   bool
}

func newFakeReminders() *fakeReminders {
	return &fakeReminders{scheduled: make(map[string][]int)}
}

func (f *fakeReminders) Schedule(e event.Event, minutesBefore []int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled[e.ID] = append([]int(nil), minutesBefore...)
	return nil
}

func (f *fakeReminders) Cancel(eventID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, eventID)
	delete(f.scheduled, eventID)
}

func (f *fakeReminders) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

type fakeIdentity struct {
	userID string
}

func (f *fakeIdentity) CurrentUserID() string          { return f.userID }
func (f *fakeIdentity) OnChange(func(string))          {}
func (f *fakeIdentity) Refresh(context.Context) string { return f.userID }

func futureEvent(name string, target time.Time) event.Event {
	return event.Event{
		ID:         event.NewID(),
		Name:       name,
		TargetDate: target,
		CreatedAt:  testNow.Add(-24 * time.Hour),
	}
}

type coordinatorFixture struct {
	coordinator *Coordinator
	local       *fakeLocal
	cloud       *fakeCloud
	queue       *fakeQueue
	reminders   *fakeReminders
}

func newFixture(t *testing.T, cloudEnabled bool, userID string) *coordinatorFixture {
	t.Helper()

	f := &coordinatorFixture{
		local:     &fakeLocal{},
		cloud:     &fakeCloud{},
		queue:     &fakeQueue{},
		reminders: newFakeReminders(),
	}
	f.coordinator = NewCoordinator(Options{
		Local:        f.local,
		Cloud:        f.cloud,
		Queue:        f.queue,
		Reminders:    f.reminders,
		Identity:     &fakeIdentity{userID: userID},
		CloudEnabled: cloudEnabled,
		SyncCooldown: 20 * time.Millisecond,
	})
	f.coordinator.now = func() time.Time { return testNow }
	return f
}

func TestAddKeepsCollectionSorted(t *testing.T) {
	f := newFixture(t, false, "")
	ctx := context.Background()

	later := futureEvent("later", testNow.Add(48*time.Hour))
	sooner := futureEvent("sooner", testNow.Add(24*time.Hour))

	_, err := f.coordinator.Add(ctx, later)
	require.NoError(t, err)
	_, err = f.coordinator.Add(ctx, sooner)
	require.NoError(t, err)

	events := f.coordinator.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "sooner", events[0].Name)
	assert.Equal(t, "later", events[1].Name)
}

func TestAddFillsIDAndCreatedAt(t *testing.T) {
	f := newFixture(t, false, "")

	e := futureEvent("launch", testNow.Add(time.Hour))
	e.ID = ""
	e.CreatedAt = time.Time{}

	added, err := f.coordinator.Add(context.Background(), e)
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, testNow, added.CreatedAt)
}

func TestAddRejectsInvalidEvent(t *testing.T) {
	f := newFixture(t, false, "")

	_, err := f.coordinator.Add(context.Background(), event.Event{})
	assert.Error(t, err)
	assert.Empty(t, f.coordinator.Events())
}

func TestMutationsAlwaysPersistLocally(t *testing.T) {
	f := newFixture(t, false, "")
	ctx := context.Background()

	e, err := f.coordinator.Add(ctx, futureEvent("launch", testNow.Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, 1, f.local.saveCount())

	e.Name = "renamed"
	_, err = f.coordinator.Update(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, 2, f.local.saveCount())

	require.NoError(t, f.coordinator.Delete(ctx, e.ID))
	assert.Equal(t, 3, f.local.saveCount())

	// Cloud sync is off: nothing reaches the queue.
	assert.Equal(t, 0, f.queue.upsertCount())
	assert.Empty(t, f.queue.deletes)
}

func TestMutationsEnqueueSyncWhenCloudAuthed(t *testing.T) {
	f := newFixture(t, true, "user-1")
	ctx := context.Background()

	e, err := f.coordinator.Add(ctx, futureEvent("launch", testNow.Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, 1, f.queue.upsertCount())
	assert.True(t, f.coordinator.IsSyncing())

	require.NoError(t, f.coordinator.Delete(ctx, e.ID))
	assert.Equal(t, []string{e.ID}, f.queue.deletes)
}

func TestSyncingIndicatorDropsAfterCooldown(t *testing.T) {
	f := newFixture(t, true, "user-1")

	_, err := f.coordinator.Add(context.Background(), futureEvent("launch", testNow.Add(time.Hour)))
	require.NoError(t, err)
	require.True(t, f.coordinator.IsSyncing())

	deadline := time.Now().Add(time.Second)
	for f.coordinator.IsSyncing() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.False(t, f.coordinator.IsSyncing())
}

func TestUpdateUnknownEventFails(t *testing.T) {
	f := newFixture(t, false, "")

	_, err := f.coordinator.Update(context.Background(), futureEvent("ghost", testNow.Add(time.Hour)))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUnknownEventFails(t *testing.T) {
	f := newFixture(t, false, "")
	assert.ErrorIs(t, f.coordinator.Delete(context.Background(), "nope"), ErrNotFound)
}

func TestDeleteCancelsReminders(t *testing.T) {
	f := newFixture(t, false, "")
	ctx := context.Background()

	e := futureEvent("launch", testNow.Add(48*time.Hour))
	e.NotificationEnabled = true
	added, err := f.coordinator.Add(ctx, e)
	require.NoError(t, err)
	require.Contains(t, f.reminders.scheduled, added.ID)

	require.NoError(t, f.coordinator.Delete(ctx, added.ID))
	assert.NotContains(t, f.reminders.scheduled, added.ID)
}

func TestAddSchedulesDefaultReminderOffsets(t *testing.T) {
	f := newFixture(t, false, "")

	e := futureEvent("launch", testNow.Add(48*time.Hour))
	e.NotificationEnabled = true
	added, err := f.coordinator.Add(context.Background(), e)
	require.NoError(t, err)

	assert.Equal(t, event.DefaultNotificationOffsets, f.reminders.scheduled[added.ID])
}

func TestLoadPrefersCloud(t *testing.T) {
	f := newFixture(t, true, "user-1")
	f.cloud.events = []event.Event{futureEvent("from cloud", testNow.Add(time.Hour))}
	f.local.stored = []event.Event{futureEvent("stale local", testNow.Add(time.Hour))}

	require.NoError(t, f.coordinator.Load(context.Background()))

	events := f.coordinator.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "from cloud", events[0].Name)
	// The cloud copy is mirrored to disk.
	assert.Equal(t, "from cloud", f.local.stored[0].Name)
}

func TestLoadFallsBackToLocalOnCloudError(t *testing.T) {
	f := newFixture(t, true, "user-1")
	f.cloud.err = errors.New("cloud down")
	f.local.stored = []event.Event{futureEvent("local copy", testNow.Add(time.Hour))}

	require.NoError(t, f.coordinator.Load(context.Background()))

	events := f.coordinator.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "local copy", events[0].Name)
}

func TestLoadSeedsEmptyCloudFromLocal(t *testing.T) {
	f := newFixture(t, true, "user-1")
	f.local.stored = []event.Event{futureEvent("only local", testNow.Add(time.Hour))}

	require.NoError(t, f.coordinator.Load(context.Background()))

	require.Equal(t, 1, f.queue.upsertCount())
	assert.Equal(t, "only local", f.queue.upserts[0][0].Name)
	events := f.coordinator.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "only local", events[0].Name)
}

func TestLoadUsesLocalWhenSignedOut(t *testing.T) {
	f := newFixture(t, true, "")
	f.cloud.events = []event.Event{futureEvent("cloud", testNow.Add(time.Hour))}
	f.local.stored = []event.Event{futureEvent("local", testNow.Add(time.Hour))}

	require.NoError(t, f.coordinator.Load(context.Background()))

	assert.Equal(t, 0, f.cloud.loads)
	events := f.coordinator.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "local", events[0].Name)
}

func TestRecurrenceSweepAdvancesElapsedEvents(t *testing.T) {
	f := newFixture(t, false, "")
	ctx := context.Background()

	elapsed := event.Event{
		ID:            event.NewID(),
		Name:          "standup",
		TargetDate:    testNow.Add(-2 * time.Hour),
		CreatedAt:     testNow.Add(-48 * time.Hour),
		IsRecurring:   true,
		RecurringType: event.RecurringWeekly,
	}
	plain := futureEvent("static", testNow.Add(time.Hour))

	f.local.stored = []event.Event{elapsed, plain}
	require.NoError(t, f.coordinator.Load(ctx))

	require.NoError(t, f.coordinator.RunRecurrenceSweep(ctx))

	events := f.coordinator.Events()
	require.Len(t, events, 2)
	for _, e := range events {
		if e.Name == "standup" {
			assert.NotEqual(t, elapsed.ID, e.ID)
			assert.True(t, e.TargetDate.After(testNow))
		}
	}
	// The sweep persisted the changed collection.
	assert.Equal(t, 1, f.local.saveCount())
}

func TestRecurrenceSweepIsQuietWhenNothingElapsed(t *testing.T) {
	f := newFixture(t, false, "")
	ctx := context.Background()

	f.local.stored = []event.Event{futureEvent("static", testNow.Add(time.Hour))}
	require.NoError(t, f.coordinator.Load(ctx))

	require.NoError(t, f.coordinator.RunRecurrenceSweep(ctx))
	assert.Equal(t, 0, f.local.saveCount())
	assert.Equal(t, 0, f.queue.upsertCount())
}

func TestForceSyncNow(t *testing.T) {
	t.Run("no-op when cloud off", func(t *testing.T) {
		f := newFixture(t, false, "")
		require.NoError(t, f.coordinator.ForceSyncNow(context.Background()))
		assert.Empty(t, f.queue.flushes)
	})

	t.Run("no-op when signed out", func(t *testing.T) {
		f := newFixture(t, true, "")
		require.NoError(t, f.coordinator.ForceSyncNow(context.Background()))
		assert.Empty(t, f.queue.flushes)
	})

	t.Run("no-op when collection empty", func(t *testing.T) {
		f := newFixture(t, true, "user-1")
		require.NoError(t, f.coordinator.ForceSyncNow(context.Background()))
		assert.Empty(t, f.queue.flushes)
	})

	t.Run("flushes current collection", func(t *testing.T) {
		f := newFixture(t, true, "user-1")
		_, err := f.coordinator.Add(context.Background(), futureEvent("launch", testNow.Add(time.Hour)))
		require.NoError(t, err)

		require.NoError(t, f.coordinator.ForceSyncNow(context.Background()))
		require.Len(t, f.queue.flushes, 1)
		assert.Equal(t, "launch", f.queue.flushes[0][0].Name)
	})

	t.Run("surfaces flush error", func(t *testing.T) {
		f := newFixture(t, true, "user-1")
		f.queue.flushErr = errors.New("remote down")
		_, err := f.coordinator.Add(context.Background(), futureEvent("launch", testNow.Add(time.Hour)))
		require.NoError(t, err)

		assert.Error(t, f.coordinator.ForceSyncNow(context.Background()))
	})
}

func TestCloseResetsQueueAndStopsReminders(t *testing.T) {
	f := newFixture(t, true, "user-1")

	f.coordinator.Close()

	assert.Equal(t, 1, f.queue.resets)
	assert.True(t, f.reminders.stopped)
	assert.False(t, f.coordinator.IsSyncing())
}

func TestEventsReturnsDeepCopy(t *testing.T) {
	f := newFixture(t, false, "")

	e := futureEvent("launch", testNow.Add(time.Hour))
	e.NotificationTimes = []int{30}
	_, err := f.coordinator.Add(context.Background(), e)
	require.NoError(t, err)

	snapshot := f.coordinator.Events()
	snapshot[0].Name = "tampered"
	snapshot[0].NotificationTimes[0] = 999

	fresh := f.coordinator.Events()
	assert.Equal(t, "launch", fresh[0].Name)
	assert.Equal(t, 30, fresh[0].NotificationTimes[0])
}
