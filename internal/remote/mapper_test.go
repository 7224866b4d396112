package remote

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/countdown-tracker/backend/internal/event"
)

func mappableEvent() event.Event {
	return event.Event{
		ID:                  "e1",
		Name:                "Trip",
		TargetDate:          time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		CreatedAt:           time.Date(2025, 8, 30, 9, 30, 0, 0, time.UTC),
		CategoryID:          "4",
		IsRecurring:         true,
		RecurringType:       event.RecurringYearly,
		NotificationEnabled: true,
		NotificationTimes:   []int{60, 1440},
		UserID:              "stale-owner",
	}
}

func TestToRow(t *testing.T) {
	t.Run("owner parameter always wins", func(t *testing.T) {
		row := ToRow(mappableEvent(), "u1")
		assert.Equal(t, "u1", row.UserID)
	})

	t.Run("optional fields become null when absent", func(t *testing.T) {
		e := mappableEvent()
		e.CategoryID = ""
		e.IsRecurring = false
		e.RecurringType = ""
		e.NotificationTimes = nil

		row := ToRow(e, "u1")
		assert.Nil(t, row.CategoryID)
		assert.Nil(t, row.RecurringType)
		assert.Nil(t, row.NotificationTimes)
	})
}

func TestRoundTrip(t *testing.T) {
	src := mappableEvent()
	require.True(t, CanMapToRow(src))

	got, err := FromRow(ToRow(src, "u1"))
	require.NoError(t, err)

	want := src
	want.UserID = "u1"

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Name, got.Name)
	assert.True(t, want.TargetDate.Equal(got.TargetDate))
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, want.CategoryID, got.CategoryID)
	assert.Equal(t, want.IsRecurring, got.IsRecurring)
	assert.Equal(t, want.RecurringType, got.RecurringType)
	assert.Equal(t, want.NotificationEnabled, got.NotificationEnabled)
	assert.Equal(t, want.NotificationTimes, got.NotificationTimes)
	assert.Equal(t, want.UserID, got.UserID)
}

func TestFromRowRejectsBadTimestamps(t *testing.T) {
	row := ToRow(mappableEvent(), "u1")
	row.TargetDate = "not-a-date"
	_, err := FromRow(row)
	assert.Error(t, err)
}

func TestCanMapToRow(t *testing.T) {
	assert.True(t, CanMapToRow(mappableEvent()))

	for name, mutate := range map[string]func(*event.Event){
		"missing id":         func(e *event.Event) { e.ID = "" },
		"missing name":       func(e *event.Event) { e.Name = "" },
		"zero target date":   func(e *event.Event) { e.TargetDate = time.Time{} },
		"zero creation time": func(e *event.Event) { e.CreatedAt = time.Time{} },
	} {
		t.Run(name, func(t *testing.T) {
			e := mappableEvent()
			mutate(&e)
			assert.False(t, CanMapToRow(e))
		})
	}
}

func TestCanMapFromRow(t *testing.T) {
	row := ToRow(mappableEvent(), "u1")
	assert.True(t, CanMapFromRow(row))

	owned := row
	owned.UserID = ""
	assert.False(t, CanMapFromRow(owned))
}

func TestBatchMapping(t *testing.T) {
	t.Run("preserves order", func(t *testing.T) {
		a := mappableEvent()
		b := mappableEvent()
		b.ID = "e2"
		b.Name = "Deadline"

		rows := ToRows([]event.Event{a, b}, "u1")
		require.Len(t, rows, 2)
		assert.Equal(t, "e1", rows[0].ID)
		assert.Equal(t, "e2", rows[1].ID)

		events := FromRows(rows)
		require.Len(t, events, 2)
		assert.Equal(t, "e1", events[0].ID)
		assert.Equal(t, "e2", events[1].ID)
	})

	t.Run("empty in, empty out", func(t *testing.T) {
		assert.Empty(t, ToRows(nil, "u1"))
		assert.Empty(t, FromRows(nil))
	})

	t.Run("unparseable rows are skipped", func(t *testing.T) {
		good := ToRow(mappableEvent(), "u1")
		bad := good
		bad.ID = "e2"
		bad.CreatedAt = "garbage"

		events := FromRows([]EventRow{good, bad})
		require.Len(t, events, 1)
		assert.Equal(t, "e1", events[0].ID)
	})
}
