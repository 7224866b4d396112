// Package notify schedules minutes-before countdown reminders.
package notify

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/countdown-tracker/backend/internal/event"
)

// Broadcaster receives fired reminders, typically the websocket broadcaster.
type Broadcaster interface {
	BroadcastReminderFired(e event.Event, minutesBefore int)
}

// Scheduler arms one timer per reminder offset of an event. Reminders whose
// trigger time already passed are skipped. Rescheduling an event replaces
// its previous timers.
type Scheduler struct {
	broadcaster Broadcaster

	mu     sync.Mutex
	timers map[string][]*time.Timer

	// now is replaced in tests.
	now func() time.Time
}

// NewScheduler creates a reminder scheduler. The broadcaster may be nil, in
// which case fired reminders are only logged.
func NewScheduler(broadcaster Broadcaster) *Scheduler {
	return &Scheduler{
		broadcaster: broadcaster,
		timers:      make(map[string][]*time.Timer),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Schedule arms reminders for the event at each minutes-before offset and
// returns the reminder ids that were actually armed. Any previously armed
// reminders for the same event are cancelled first.
func (s *Scheduler) Schedule(e event.Event, minutesBefore []int) []string {
	s.Cancel(e.ID)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var ids []string
	for _, minutes := range minutesBefore {
		triggerAt := e.TargetDate.Add(-time.Duration(minutes) * time.Minute)
		if !triggerAt.After(now) {
			continue
		}

		m := minutes
		ev := e.Clone()
		timer := time.AfterFunc(triggerAt.Sub(now), func() {
			s.fire(ev, m)
		})
		s.timers[e.ID] = append(s.timers[e.ID], timer)
		ids = append(ids, fmt.Sprintf("%s/%d", e.ID, minutes))
	}

	return ids
}

// Cancel disarms every reminder for the given event id. Unknown ids are a
// no-op.
func (s *Scheduler) Cancel(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, timer := range s.timers[eventID] {
		timer.Stop()
	}
	delete(s.timers, eventID)
}

// Stop disarms everything. Used on teardown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, timers := range s.timers {
		for _, timer := range timers {
			timer.Stop()
		}
		delete(s.timers, id)
	}
}

// Scheduled returns the number of events with armed reminders.
func (s *Scheduler) Scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *Scheduler) fire(e event.Event, minutesBefore int) {
	log.Printf("Reminder fired for event %s (%s): %d minutes before", e.ID, e.Name, minutesBefore)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastReminderFired(e, minutesBefore)
	}
}
