// Package cloudsync absorbs bursts of local mutations into a minimal number
// of remote calls, surviving transient backend failures with bounded retry.
package cloudsync

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/countdown-tracker/backend/internal/event"
)

// Writer is the remote side of the queue: one idempotent collection upsert
// and one row delete.
type Writer interface {
	UpsertEvents(ctx context.Context, events []event.Event) error
	DeleteEvent(ctx context.Context, id string) error
}

// Config tunes debouncing and retry behavior.
type Config struct {
	// Debounce is the quiet period after the last enqueue before draining.
	Debounce time.Duration

	// MaxRetries bounds attempts per remote call.
	MaxRetries int

	// RetryDelay is the wait before the first retry.
	RetryDelay time.Duration

	// BackoffMultiplier scales the delay after each failed attempt.
	BackoffMultiplier float64
}

// DefaultConfig returns the standard sync tuning.
func DefaultConfig() Config {
	return Config{
		Debounce:          2 * time.Second,
		MaxRetries:        3,
		RetryDelay:        time.Second,
		BackoffMultiplier: 2,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Debounce <= 0 {
		c.Debounce = d.Debounce
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = d.BackoffMultiplier
	}
	return c
}

type opKind string

const (
	opUpsert opKind = "upsert"
	opDelete opKind = "delete"
)

type operation struct {
	kind       opKind
	events     []event.Event
	eventID    string
	enqueuedAt time.Time
}

// Queue owns the pending operations, a single debounce timer and the
// syncing-in-progress flag. One instance lives for the application session,
// owned by the event store.
type Queue struct {
	writer Writer
	config Config

	mu      sync.Mutex
	pending []operation
	timer   *time.Timer
	syncing bool

	// sleep is replaced in tests to avoid real backoff waits.
	sleep func(time.Duration)
}

// NewQueue creates a sync queue writing through the given remote writer.
func NewQueue(writer Writer, config Config) *Queue {
	return &Queue{
		writer: writer,
		config: config.withDefaults(),
		sleep:  time.Sleep,
	}
}

// EnqueueSync queues an upsert of the whole collection. Any previously
// queued upsert is superseded: only the latest snapshot stays pending.
// Queued deletes are never coalesced away. The debounce timer restarts.
func (q *Queue) EnqueueSync(events []event.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.pending[:0]
	for _, op := range q.pending {
		if op.kind != opUpsert {
			kept = append(kept, op)
		}
	}
	q.pending = append(kept, operation{
		kind:       opUpsert,
		events:     event.CloneAll(events),
		enqueuedAt: time.Now().UTC(),
	})

	q.resetTimerLocked()
}

// EnqueueDelete queues a single remote row deletion. Deletes never coalesce
// with each other or with pending upserts. The debounce timer restarts.
func (q *Queue) EnqueueDelete(eventID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = append(q.pending, operation{
		kind:       opDelete,
		eventID:    eventID,
		enqueuedAt: time.Now().UTC(),
	})

	q.resetTimerLocked()
}

// ForceFlush bypasses debouncing: the timer is cancelled, the pending queue
// discarded, and the given collection upserted synchronously with retry.
// The final error after exhausted retries is returned to the caller.
func (q *Queue) ForceFlush(ctx context.Context, events []event.Event) error {
	q.mu.Lock()
	q.stopTimerLocked()
	q.pending = nil
	q.mu.Unlock()

	return q.upsertWithRetry(ctx, event.CloneAll(events))
}

// Size returns the number of pending operations.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// IsSyncing reports whether a drain is currently running.
func (q *Queue) IsSyncing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.syncing
}

// Reset cancels the timer, drops all pending operations and clears the
// syncing flag. Idempotent.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stopTimerLocked()
	q.pending = nil
	q.syncing = false
}

// resetTimerLocked restarts the debounce window. Caller holds q.mu.
func (q *Queue) resetTimerLocked() {
	q.stopTimerLocked()
	q.timer = time.AfterFunc(q.config.Debounce, q.drain)
}

func (q *Queue) stopTimerLocked() {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
}

// drain snapshots and clears the queue, then executes deletes in enqueue
// order followed by at most one upsert of the last queued snapshot. A fire
// while a previous drain is still running is dropped; the retained items go
// out on the next timer.
func (q *Queue) drain() {
	q.mu.Lock()
	if q.syncing || len(q.pending) == 0 {
		q.mu.Unlock()
		return
	}
	q.syncing = true
	ops := q.pending
	q.pending = nil
	q.timer = nil
	q.mu.Unlock()

	ctx := context.Background()

	var lastUpsert *operation
	for i := range ops {
		op := ops[i]
		switch op.kind {
		case opDelete:
			if err := q.deleteWithRetry(ctx, op.eventID); err != nil {
				log.Printf("Sync delete failed for event %s: %v", op.eventID, err)
			}
		case opUpsert:
			lastUpsert = &ops[i]
		}
	}

	if lastUpsert != nil {
		if err := q.upsertWithRetry(ctx, lastUpsert.events); err != nil {
			log.Printf("Sync upsert failed for %d events: %v", len(lastUpsert.events), err)
		}
	}

	q.mu.Lock()
	q.syncing = false
	// Items queued while draining must not wait for another enqueue.
	if len(q.pending) > 0 && q.timer == nil {
		q.resetTimerLocked()
	}
	q.mu.Unlock()
}

func (q *Queue) upsertWithRetry(ctx context.Context, events []event.Event) error {
	return q.withRetry(ctx, func() error {
		return q.writer.UpsertEvents(ctx, events)
	})
}

func (q *Queue) deleteWithRetry(ctx context.Context, eventID string) error {
	return q.withRetry(ctx, func() error {
		return q.writer.DeleteEvent(ctx, eventID)
	})
}

// withRetry runs fn up to MaxRetries times with exponential backoff between
// attempts and returns the last error when all attempts fail.
func (q *Queue) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= q.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt < q.config.MaxRetries {
			q.sleep(q.retryDelay(attempt))
		}
	}
	return fmt.Errorf("after %d attempts: %w", q.config.MaxRetries, lastErr)
}

func (q *Queue) retryDelay(attempt int) time.Duration {
	scale := math.Pow(q.config.BackoffMultiplier, float64(attempt-1))
	return time.Duration(float64(q.config.RetryDelay) * scale)
}
