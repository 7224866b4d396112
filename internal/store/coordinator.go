// Package store owns the in-memory event collection and coordinates local
// persistence, cloud sync, reminders and the recurring event sweep.
package store

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/countdown-tracker/backend/internal/event"
)

// Local is the durable on-disk backstop for the collection.
type Local interface {
	SaveAll(ctx context.Context, events []event.Event) error
	LoadAll(ctx context.Context) ([]event.Event, error)
}

// Cloud reads the hosted copy of the collection.
type Cloud interface {
	LoadEvents(ctx context.Context, ownerID string) ([]event.Event, error)
}

// SyncQueue is the debounced outbound sync path.
type SyncQueue interface {
	EnqueueSync(events []event.Event)
	EnqueueDelete(eventID string)
	ForceFlush(ctx context.Context, events []event.Event) error
	IsSyncing() bool
	Reset()
}

// Reminders arms and disarms minutes-before notifications.
type Reminders interface {
	Schedule(e event.Event, minutesBefore []int) []string
	Cancel(eventID string)
	Stop()
}

// Identity tracks the signed-in cloud user.
type Identity interface {
	CurrentUserID() string
	OnChange(cb func(userID string))
	Refresh(ctx context.Context) string
}

// Feed delivers remote collection changes. Subscribe returns an unsubscribe
// function.
type Feed interface {
	Subscribe(ownerID string, callback func([]event.Event)) func()
}

// Broadcaster pushes state changes to connected frontends.
type Broadcaster interface {
	BroadcastEventsUpdated(events []event.Event, source string)
	BroadcastSyncStarted(pending int)
	BroadcastSyncCompleted()
	BroadcastSyncError(err error)
}

// ErrNotFound is returned for lookups of unknown event ids.
var ErrNotFound = fmt.Errorf("event not found")

// Options wires a Coordinator. Local and Queue are required; nil Cloud,
// Feed, Identity, Reminders or Broadcaster disable the matching behavior.
type Options struct {
	Local       Local
	Cloud       Cloud
	Queue       SyncQueue
	Reminders   Reminders
	Identity    Identity
	Feed        Feed
	Broadcaster Broadcaster

	CloudEnabled bool

	// SyncCooldown is how long the syncing indicator stays up after a
	// change is handed to the queue.
	SyncCooldown time.Duration

	// SweepSchedule is the cron spec for the recurring event sweep.
	SweepSchedule string

	// AuthPollInterval re-checks the signed-in identity. Zero disables
	// polling.
	AuthPollInterval time.Duration
}

// Coordinator is the single owner of the event collection. All mutations go
// through it; everything downstream (disk, cloud, reminders, websockets)
// reacts to the collection changing.
type Coordinator struct {
	local       Local
	cloud       Cloud
	queue       SyncQueue
	reminders   Reminders
	identity    Identity
	feed        Feed
	broadcaster Broadcaster

	cloudEnabled     bool
	syncCooldown     time.Duration
	sweepSchedule    string
	authPollInterval time.Duration

	mu            sync.RWMutex
	events        []event.Event
	loading       bool
	syncing       bool
	cooldownTimer *time.Timer
	unsubscribe   func()

	cron *cron.Cron

	// now is replaced in tests.
	now func() time.Time
}

// NewCoordinator creates a stopped coordinator. Call Start to load state and
// begin background work.
func NewCoordinator(opts Options) *Coordinator {
	cooldown := opts.SyncCooldown
	if cooldown <= 0 {
		cooldown = 2500 * time.Millisecond
	}
	schedule := opts.SweepSchedule
	if schedule == "" {
		schedule = "@every 1h"
	}

	return &Coordinator{
		local:            opts.Local,
		cloud:            opts.Cloud,
		queue:            opts.Queue,
		reminders:        opts.Reminders,
		identity:         opts.Identity,
		feed:             opts.Feed,
		broadcaster:      opts.Broadcaster,
		cloudEnabled:     opts.CloudEnabled,
		syncCooldown:     cooldown,
		sweepSchedule:    schedule,
		authPollInterval: opts.AuthPollInterval,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Start loads the collection, arms reminders, runs one recurrence sweep and
// starts the background schedulers and the realtime feed.
func (c *Coordinator) Start(ctx context.Context) error {
	if err := c.Load(ctx); err != nil {
		return err
	}

	c.rescheduleAllReminders()

	if err := c.RunRecurrenceSweep(ctx); err != nil {
		log.Printf("Warning: initial recurrence sweep failed: %v", err)
	}

	c.subscribeFeed()
	if c.identity != nil {
		c.identity.OnChange(func(userID string) {
			c.onIdentityChanged(userID)
		})
	}

	return c.startCron()
}

func (c *Coordinator) startCron() error {
	c.cron = cron.New()

	if _, err := c.cron.AddFunc(c.sweepSchedule, func() {
		if err := c.RunRecurrenceSweep(context.Background()); err != nil {
			log.Printf("Recurrence sweep failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("scheduling recurrence sweep: %w", err)
	}

	if c.identity != nil && c.authPollInterval > 0 {
		spec := fmt.Sprintf("@every %s", c.authPollInterval)
		if _, err := c.cron.AddFunc(spec, func() {
			c.identity.Refresh(context.Background())
		}); err != nil {
			return fmt.Errorf("scheduling auth poll: %w", err)
		}
	}

	c.cron.Start()
	return nil
}

// Load populates the collection, cloud first when sync is on and a user is
// signed in, falling back to local storage. A non-empty local collection
// seeds an empty cloud one.
func (c *Coordinator) Load(ctx context.Context) error {
	c.setLoading(true)
	defer c.setLoading(false)

	if c.cloudAuthed() {
		remote, err := c.cloud.LoadEvents(ctx, c.identity.CurrentUserID())
		if err == nil {
			if len(remote) == 0 {
				if local := c.loadLocal(ctx); len(local) > 0 {
					// First sign-in from this device: push the local
					// collection up instead of wiping it.
					c.replaceCollection(local, "cloud")
					c.queue.EnqueueSync(local)
					return nil
				}
			}
			c.replaceCollection(remote, "cloud")
			c.saveLocal(ctx)
			return nil
		}
		log.Printf("Cloud load failed, using local copy: %v", err)
	}

	local, err := c.local.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading events: %w", err)
	}
	c.replaceCollection(local, "local")
	return nil
}

// Events returns a deep copy of the collection in target date order.
func (c *Coordinator) Events() []event.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return event.CloneAll(c.events)
}

// Get returns the event with the given id.
func (c *Coordinator) Get(id string) (event.Event, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, e := range c.events {
		if e.ID == id {
			return e.Clone(), nil
		}
	}
	return event.Event{}, ErrNotFound
}

// Add inserts a new event. A missing id and creation time are filled in.
func (c *Coordinator) Add(ctx context.Context, e event.Event) (event.Event, error) {
	if errs := event.Validate(e); len(errs) > 0 {
		return event.Event{}, fmt.Errorf("invalid event: %s", errs[0].Message)
	}

	if e.ID == "" {
		e.ID = event.NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = c.now()
	}

	c.mu.Lock()
	c.events = append(c.events, e.Clone())
	event.SortByTargetDate(c.events)
	c.mu.Unlock()

	c.scheduleReminders(e)
	c.persist(ctx, "mutation")
	return e, nil
}

// Update replaces the event with the same id.
func (c *Coordinator) Update(ctx context.Context, e event.Event) (event.Event, error) {
	if errs := event.Validate(e); len(errs) > 0 {
		return event.Event{}, fmt.Errorf("invalid event: %s", errs[0].Message)
	}

	c.mu.Lock()
	found := false
	for i := range c.events {
		if c.events[i].ID == e.ID {
			c.events[i] = e.Clone()
			found = true
			break
		}
	}
	if found {
		event.SortByTargetDate(c.events)
	}
	c.mu.Unlock()

	if !found {
		return event.Event{}, ErrNotFound
	}

	c.scheduleReminders(e)
	c.persist(ctx, "mutation")
	return e, nil
}

// Delete removes the event, disarms its reminders and queues the remote row
// deletion when sync is on.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	found := false
	kept := c.events[:0]
	for _, e := range c.events {
		if e.ID == id {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	c.events = kept
	c.mu.Unlock()

	if !found {
		return ErrNotFound
	}

	if c.reminders != nil {
		c.reminders.Cancel(id)
	}
	if c.cloudAuthed() {
		c.queue.EnqueueDelete(id)
	}
	c.persist(ctx, "mutation")
	return nil
}

// RunRecurrenceSweep replaces every elapsed recurring event with its next
// occurrence. A sweep that changes nothing persists nothing.
func (c *Coordinator) RunRecurrenceSweep(ctx context.Context) error {
	now := c.now()

	c.mu.Lock()
	before := make(map[string]struct{}, len(c.events))
	for _, e := range c.events {
		before[e.ID] = struct{}{}
	}

	processed := event.ProcessAll(c.events, now)

	var fresh []event.Event
	for _, e := range processed {
		if _, ok := before[e.ID]; !ok {
			fresh = append(fresh, e.Clone())
		}
	}

	if len(fresh) == 0 {
		c.mu.Unlock()
		return nil
	}

	c.events = processed
	event.SortByTargetDate(c.events)
	replaced := len(before) - (len(processed) - len(fresh))
	c.mu.Unlock()

	log.Printf("Recurrence sweep advanced %d event(s)", replaced)
	for _, e := range fresh {
		c.scheduleReminders(e)
	}
	c.persist(ctx, "recurrence")
	return nil
}

// ForceSyncNow pushes the current collection to the cloud immediately,
// bypassing the debounce window. A no-op when sync is off, nobody is signed
// in, or the collection is empty.
func (c *Coordinator) ForceSyncNow(ctx context.Context) error {
	if !c.cloudAuthed() {
		return nil
	}

	events := c.Events()
	if len(events) == 0 {
		return nil
	}

	c.setSyncing(true)
	err := c.queue.ForceFlush(ctx, events)
	c.stopCooldownTimer()
	c.setSyncing(false)

	if err != nil {
		if c.broadcaster != nil {
			c.broadcaster.BroadcastSyncError(err)
		}
		return err
	}
	if c.broadcaster != nil {
		c.broadcaster.BroadcastSyncCompleted()
	}
	return nil
}

// IsLoading reports whether the initial load is in flight.
func (c *Coordinator) IsLoading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// IsSyncing reports whether a sync was recently handed off or is draining.
func (c *Coordinator) IsSyncing() bool {
	c.mu.RLock()
	syncing := c.syncing
	c.mu.RUnlock()
	return syncing || c.queue.IsSyncing()
}

// CloudEnabled reports whether remote sync is configured.
func (c *Coordinator) CloudEnabled() bool {
	return c.cloudEnabled
}

// Authenticated reports whether a cloud user is currently signed in.
func (c *Coordinator) Authenticated() bool {
	return c.identity != nil && c.identity.CurrentUserID() != ""
}

// Close tears down the realtime feed, schedulers, reminders and the pending
// sync queue.
func (c *Coordinator) Close() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	if c.cooldownTimer != nil {
		c.cooldownTimer.Stop()
		c.cooldownTimer = nil
	}
	c.syncing = false
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if c.cron != nil {
		c.cron.Stop()
	}
	if c.reminders != nil {
		c.reminders.Stop()
	}
	c.queue.Reset()
}

// persist writes the collection locally, hands it to the sync queue when
// cloud sync applies, and notifies frontends. Local persistence never
// depends on the cloud being reachable.
func (c *Coordinator) persist(ctx context.Context, source string) {
	events := c.Events()

	if err := c.local.SaveAll(ctx, events); err != nil {
		log.Printf("Local save failed: %v", err)
	}

	if c.cloudAuthed() {
		c.queue.EnqueueSync(events)
		c.beginSyncCooldown()
		if c.broadcaster != nil {
			c.broadcaster.BroadcastSyncStarted(len(events))
		}
	}

	if c.broadcaster != nil {
		c.broadcaster.BroadcastEventsUpdated(events, source)
	}
}

// beginSyncCooldown raises the syncing indicator and arms a timer to drop it
// again. Another change while the timer runs restarts the window.
func (c *Coordinator) beginSyncCooldown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.syncing = true
	if c.cooldownTimer != nil {
		c.cooldownTimer.Stop()
	}
	c.cooldownTimer = time.AfterFunc(c.syncCooldown, func() {
		c.setSyncing(false)
		if c.broadcaster != nil {
			c.broadcaster.BroadcastSyncCompleted()
		}
	})
}

func (c *Coordinator) stopCooldownTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cooldownTimer != nil {
		c.cooldownTimer.Stop()
		c.cooldownTimer = nil
	}
}

// subscribeFeed attaches to the realtime feed for the signed-in user,
// replacing any previous subscription. On sign-out the old subscription is
// dropped and nothing replaces it.
func (c *Coordinator) subscribeFeed() {
	c.mu.Lock()
	previous := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	if previous != nil {
		previous()
	}

	if c.feed == nil || !c.cloudAuthed() {
		return
	}
	ownerID := c.identity.CurrentUserID()

	unsubscribe := c.feed.Subscribe(ownerID, func(events []event.Event) {
		c.onRemoteChange(events)
	})

	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()
}

// onRemoteChange replaces the whole collection with the remote copy. The
// change is mirrored to disk but never re-queued for sync.
func (c *Coordinator) onRemoteChange(events []event.Event) {
	c.replaceCollection(events, "cloud")
	c.saveLocal(context.Background())
	c.rescheduleAllReminders()
}

func (c *Coordinator) onIdentityChanged(userID string) {
	if userID == "" {
		log.Printf("Cloud user signed out, keeping local collection")
	} else {
		log.Printf("Cloud identity changed, reloading")
	}
	c.subscribeFeed()
	if err := c.Load(context.Background()); err != nil {
		log.Printf("Reload after identity change failed: %v", err)
	}
}

func (c *Coordinator) replaceCollection(events []event.Event, source string) {
	c.mu.Lock()
	c.events = event.CloneAll(events)
	event.SortByTargetDate(c.events)
	c.mu.Unlock()

	if c.broadcaster != nil {
		c.broadcaster.BroadcastEventsUpdated(c.Events(), source)
	}
}

func (c *Coordinator) loadLocal(ctx context.Context) []event.Event {
	events, err := c.local.LoadAll(ctx)
	if err != nil {
		log.Printf("Local load failed: %v", err)
		return nil
	}
	return events
}

func (c *Coordinator) saveLocal(ctx context.Context) {
	if err := c.local.SaveAll(ctx, c.Events()); err != nil {
		log.Printf("Local save failed: %v", err)
	}
}

func (c *Coordinator) scheduleReminders(e event.Event) {
	if c.reminders == nil {
		return
	}
	c.reminders.Cancel(e.ID)
	if e.NotificationEnabled && e.TargetDate.After(c.now()) {
		c.reminders.Schedule(e, e.NotificationOffsets())
	}
}

func (c *Coordinator) rescheduleAllReminders() {
	if c.reminders == nil {
		return
	}
	for _, e := range c.Events() {
		c.scheduleReminders(e)
	}
}

func (c *Coordinator) cloudAuthed() bool {
	return c.cloudEnabled && c.cloud != nil && c.queue != nil &&
		c.identity != nil && c.identity.CurrentUserID() != ""
}

func (c *Coordinator) setLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
}

func (c *Coordinator) setSyncing(v bool) {
	c.mu.Lock()
	c.syncing = v
	c.mu.Unlock()
}
