package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func pastEvent(t RecurringType) Event {
	return Event{
		ID:                  NewID(),
		Name:                "Anniversary",
		TargetDate:          time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC),
		CreatedAt:           time.Date(2024, 6, 1, 18, 30, 0, 0, time.UTC),
		CategoryID:          "3",
		IsRecurring:         true,
		RecurringType:       t,
		NotificationEnabled: true,
		NotificationTimes:   []int{60, 1440},
	}
}

func TestShouldRecreate(t *testing.T) {
	t.Run("non-recurring never recreates", func(t *testing.T) {
		e := pastEvent(RecurringWeekly)
		e.IsRecurring = false
		assert.False(t, ShouldRecreate(e, testNow))
	})

	t.Run("missing type never recreates", func(t *testing.T) {
		e := pastEvent("")
		assert.False(t, ShouldRecreate(e, testNow))
	})

	t.Run("unknown type never recreates", func(t *testing.T) {
		e := pastEvent("daily")
		assert.False(t, ShouldRecreate(e, testNow))
	})

	t.Run("future target does not recreate", func(t *testing.T) {
		e := pastEvent(RecurringYearly)
		e.TargetDate = testNow.AddDate(0, 0, 1)
		assert.False(t, ShouldRecreate(e, testNow))
	})

	t.Run("elapsed recurring recreates", func(t *testing.T) {
		assert.True(t, ShouldRecreate(pastEvent(RecurringYearly), testNow))
		assert.True(t, ShouldRecreate(pastEvent(RecurringMonthly), testNow))
		assert.True(t, ShouldRecreate(pastEvent(RecurringWeekly), testNow))
	})
}

func TestNextOccurrenceDate(t *testing.T) {
	last := time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC)

	t.Run("weekly lands on first boundary after now", func(t *testing.T) {
		next := NextOccurrenceDate(last, RecurringWeekly, testNow)
		assert.Equal(t, time.Date(2025, 6, 15, 18, 30, 0, 0, time.UTC), next)
	})

	t.Run("monthly keeps day of month", func(t *testing.T) {
		next := NextOccurrenceDate(last, RecurringMonthly, testNow)
		assert.Equal(t, time.Date(2025, 7, 1, 18, 30, 0, 0, time.UTC), next)
	})

	t.Run("yearly keeps month and day", func(t *testing.T) {
		next := NextOccurrenceDate(last, RecurringYearly, testNow)
		assert.Equal(t, time.Date(2026, 6, 1, 18, 30, 0, 0, time.UTC), next)
	})

	t.Run("steps over multiple missed periods", func(t *testing.T) {
		old := time.Date(2022, 3, 10, 9, 0, 0, 0, time.UTC)
		next := NextOccurrenceDate(old, RecurringYearly, testNow)
		assert.Equal(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), next)

		next = NextOccurrenceDate(old, RecurringWeekly, testNow)
		assert.True(t, next.After(testNow))
		assert.True(t, next.Sub(testNow) <= 7*24*time.Hour)
		assert.Equal(t, old.Weekday(), next.Weekday())
	})

	t.Run("result is always strictly after now", func(t *testing.T) {
		for _, rt := range []RecurringType{RecurringYearly, RecurringMonthly, RecurringWeekly} {
			next := NextOccurrenceDate(last, rt, testNow)
			assert.True(t, next.After(testNow), "type %s", rt)
		}
	})
}

func TestCreateNextOccurrence(t *testing.T) {
	t.Run("copies everything except id, dates", func(t *testing.T) {
		src := pastEvent(RecurringMonthly)
		next, ok := CreateNextOccurrence(src, testNow)
		require.True(t, ok)

		assert.NotEqual(t, src.ID, next.ID)
		assert.NotEmpty(t, next.ID)
		assert.True(t, next.TargetDate.After(src.TargetDate))
		assert.Equal(t, testNow, next.CreatedAt)

		assert.Equal(t, src.Name, next.Name)
		assert.Equal(t, src.CategoryID, next.CategoryID)
		assert.Equal(t, src.IsRecurring, next.IsRecurring)
		assert.Equal(t, src.RecurringType, next.RecurringType)
		assert.Equal(t, src.NotificationEnabled, next.NotificationEnabled)
		assert.Equal(t, src.NotificationTimes, next.NotificationTimes)
	})

	t.Run("notification slice is not shared", func(t *testing.T) {
		src := pastEvent(RecurringWeekly)
		next, ok := CreateNextOccurrence(src, testNow)
		require.True(t, ok)

		next.NotificationTimes[0] = 5
		assert.Equal(t, 60, src.NotificationTimes[0])
	})

	t.Run("refuses malformed recurring config", func(t *testing.T) {
		_, ok := CreateNextOccurrence(pastEvent(""), testNow)
		assert.False(t, ok)
	})
}

func TestProcessAll(t *testing.T) {
	elapsed := pastEvent(RecurringYearly)
	future := Event{ID: NewID(), Name: "Trip", TargetDate: testNow.AddDate(1, 0, 0), IsRecurring: false}
	malformed := pastEvent("")

	t.Run("one-for-one replacement", func(t *testing.T) {
		in := []Event{elapsed, future, malformed}
		out := ProcessAll(in, testNow)

		require.Len(t, out, len(in))
		assert.NotEqual(t, elapsed.ID, out[0].ID)
		assert.True(t, out[0].TargetDate.After(testNow))
		assert.Equal(t, future, out[1])
		assert.Equal(t, malformed, out[2])
	})

	t.Run("never recreates future events", func(t *testing.T) {
		soon := pastEvent(RecurringWeekly)
		soon.TargetDate = testNow.Add(time.Minute)
		out := ProcessAll([]Event{soon}, testNow)
		require.Len(t, out, 1)
		assert.Equal(t, soon.ID, out[0].ID)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, ProcessAll(nil, testNow))
	})
}

func TestUpcomingOccurrences(t *testing.T) {
	e := pastEvent(RecurringMonthly)
	dates := UpcomingOccurrences(e, 3)
	require.Len(t, dates, 3)
	assert.Equal(t, time.Date(2025, 7, 1, 18, 30, 0, 0, time.UTC), dates[0])
	assert.Equal(t, time.Date(2025, 8, 1, 18, 30, 0, 0, time.UTC), dates[1])
	assert.Equal(t, time.Date(2025, 9, 1, 18, 30, 0, 0, time.UTC), dates[2])

	assert.Nil(t, UpcomingOccurrences(Event{Name: "once"}, 3))
}
