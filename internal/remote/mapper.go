package remote

import (
	"fmt"
	"time"

	"github.com/countdown-tracker/backend/internal/event"
)

// EventRow is the wire representation of an event in the cloud store.
// Optional application fields map to null columns.
type EventRow struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	TargetDate          string  `json:"target_date"`
	CreatedAt           string  `json:"created_at"`
	CategoryID          *string `json:"category_id"`
	IsRecurring         bool    `json:"is_recurring"`
	RecurringType       *string `json:"recurring_type"`
	NotificationEnabled bool    `json:"notification_enabled"`
	NotificationTimes   []int   `json:"notification_times"`
	UserID              string  `json:"user_id"`
}

const rowTimeFormat = time.RFC3339Nano

// ToRow converts an event to its row representation. The ownerID parameter
// always wins over any user id already present on the event.
func ToRow(e event.Event, ownerID string) EventRow {
	row := EventRow{
		ID:                  e.ID,
		Name:                e.Name,
		TargetDate:          e.TargetDate.UTC().Format(rowTimeFormat),
		CreatedAt:           e.CreatedAt.UTC().Format(rowTimeFormat),
		IsRecurring:         e.IsRecurring,
		NotificationEnabled: e.NotificationEnabled,
		UserID:              ownerID,
	}
	if e.CategoryID != "" {
		row.CategoryID = ptr(e.CategoryID)
	}
	if e.RecurringType != "" {
		row.RecurringType = ptr(string(e.RecurringType))
	}
	if len(e.NotificationTimes) > 0 {
		row.NotificationTimes = append([]int(nil), e.NotificationTimes...)
	}
	return row
}

// FromRow converts a row back to an event. Null optional columns become zero
// values on the event.
func FromRow(row EventRow) (event.Event, error) {
	target, err := time.Parse(rowTimeFormat, row.TargetDate)
	if err != nil {
		return event.Event{}, fmt.Errorf("parsing target_date: %w", err)
	}
	created, err := time.Parse(rowTimeFormat, row.CreatedAt)
	if err != nil {
		return event.Event{}, fmt.Errorf("parsing created_at: %w", err)
	}

	e := event.Event{
		ID:                  row.ID,
		Name:                row.Name,
		TargetDate:          target,
		CreatedAt:           created,
		IsRecurring:         row.IsRecurring,
		NotificationEnabled: row.NotificationEnabled,
		UserID:              row.UserID,
	}
	if row.CategoryID != nil {
		e.CategoryID = *row.CategoryID
	}
	if row.RecurringType != nil {
		e.RecurringType = event.RecurringType(*row.RecurringType)
	}
	if len(row.NotificationTimes) > 0 {
		e.NotificationTimes = append([]int(nil), row.NotificationTimes...)
	}
	return e, nil
}

// CanMapToRow reports whether the event carries everything the row schema
// requires.
func CanMapToRow(e event.Event) bool {
	return e.ID != "" &&
		e.Name != "" &&
		!e.TargetDate.IsZero() &&
		!e.CreatedAt.IsZero()
}

// CanMapFromRow is the same shape check on the wire side. Rows additionally
// require an owner.
func CanMapFromRow(row EventRow) bool {
	return row.ID != "" &&
		row.Name != "" &&
		row.TargetDate != "" &&
		row.CreatedAt != "" &&
		row.UserID != ""
}

// ToRows maps a collection elementwise, preserving order.
func ToRows(events []event.Event, ownerID string) []EventRow {
	rows := make([]EventRow, len(events))
	for i, e := range events {
		rows[i] = ToRow(e, ownerID)
	}
	return rows
}

// FromRows maps a row collection elementwise, preserving order. Rows that
// fail to parse are skipped rather than failing the whole batch.
func FromRows(rows []EventRow) []event.Event {
	events := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		e, err := FromRow(row)
		if err != nil {
			continue
		}
		events = append(events, e)
	}
	return events
}

func ptr(s string) *string {
	return &s
}
