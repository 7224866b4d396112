// Package event contains the countdown event model and the pure recurrence logic.
package event

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// RecurringType identifies how often a recurring event repeats.
type RecurringType string

const (
	RecurringYearly  RecurringType = "yearly"
	RecurringMonthly RecurringType = "monthly"
	RecurringWeekly  RecurringType = "weekly"
)

// Valid reports whether the recurring type is one of the supported values.
func (t RecurringType) Valid() bool {
	switch t {
	case RecurringYearly, RecurringMonthly, RecurringWeekly:
		return true
	}
	return false
}

// DefaultNotificationOffsets is applied when notifications are enabled but no
// offsets were chosen: one hour and one day before the event.
var DefaultNotificationOffsets = []int{60, 1440}

// Event is one concrete countdown occurrence. Occurrences of a recurring
// series are distinct records; the series itself is never stored.
type Event struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name"`
	TargetDate          time.Time     `json:"target_date"`
	CreatedAt           time.Time     `json:"created_at"`
	CategoryID          string        `json:"category_id,omitempty"`
	IsRecurring         bool          `json:"is_recurring"`
	RecurringType       RecurringType `json:"recurring_type,omitempty"`
	NotificationEnabled bool          `json:"notification_enabled"`
	NotificationTimes   []int         `json:"notification_times,omitempty"`
	UserID              string        `json:"user_id,omitempty"`
}

// NewID generates an identifier for a new occurrence.
func NewID() string {
	return uuid.NewString()
}

// Clone returns a deep copy so callers can hand out snapshots without
// sharing the notification slice.
func (e Event) Clone() Event {
	c := e
	if e.NotificationTimes != nil {
		c.NotificationTimes = append([]int(nil), e.NotificationTimes...)
	}
	return c
}

// CloneAll deep-copies a collection.
func CloneAll(events []Event) []Event {
	out := make([]Event, len(events))
	for i, e := range events {
		out[i] = e.Clone()
	}
	return out
}

// SortByTargetDate orders events ascending by target date, closest first.
func SortByTargetDate(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].TargetDate.Before(events[j].TargetDate)
	})
}

// NotificationOffsets returns the configured minutes-before offsets, falling
// back to the defaults when none were chosen.
func (e Event) NotificationOffsets() []int {
	if len(e.NotificationTimes) > 0 {
		return e.NotificationTimes
	}
	return DefaultNotificationOffsets
}
