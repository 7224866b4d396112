package event

import "time"

// ShouldRecreate reports whether a recurring event has elapsed and needs a
// replacement occurrence. Non-recurring events and recurring events with a
// missing or unknown type never recreate.
func ShouldRecreate(e Event, now time.Time) bool {
	if !e.IsRecurring || !e.RecurringType.Valid() {
		return false
	}
	return e.TargetDate.Before(now)
}

// NextOccurrenceDate advances last by whole recurrence units until the result
// is strictly after now. Stepping from the previous occurrence keeps the
// schedule deterministic no matter how late the sweep runs: an event missed
// by several periods lands on the first future period boundary instead of
// jumping relative to the wall clock.
func NextOccurrenceDate(last time.Time, t RecurringType, now time.Time) time.Time {
	next := last
	for !next.After(now) {
		switch t {
		case RecurringYearly:
			next = next.AddDate(1, 0, 0)
		case RecurringMonthly:
			next = next.AddDate(0, 1, 0)
		case RecurringWeekly:
			next = next.AddDate(0, 0, 7)
		default:
			return last
		}
	}
	return next
}

// CreateNextOccurrence builds the replacement occurrence for an elapsed
// recurring event: fresh id, advanced target date, new creation time, every
// other field copied. Returns false when the event should not recreate.
func CreateNextOccurrence(e Event, now time.Time) (Event, bool) {
	if !ShouldRecreate(e, now) {
		return Event{}, false
	}

	next := e.Clone()
	next.ID = NewID()
	next.TargetDate = NextOccurrenceDate(e.TargetDate, e.RecurringType, now)
	next.CreatedAt = now
	return next, true
}

// ProcessAll replaces every elapsed recurring event with its next occurrence
// and passes everything else through untouched. Output length always equals
// input length; malformed recurring events are kept as-is.
func ProcessAll(events []Event, now time.Time) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if next, ok := CreateNextOccurrence(e, now); ok {
			out = append(out, next)
		} else {
			out = append(out, e)
		}
	}
	return out
}

// UpcomingOccurrences previews the next count occurrence dates of a recurring
// event without mutating it. Empty for non-recurring or malformed events.
func UpcomingOccurrences(e Event, count int) []time.Time {
	if !e.IsRecurring || !e.RecurringType.Valid() || count <= 0 {
		return nil
	}

	dates := make([]time.Time, 0, count)
	current := e.TargetDate
	for i := 0; i < count; i++ {
		current = NextOccurrenceDate(current, e.RecurringType, current)
		dates = append(dates, current)
	}
	return dates
}
