package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/countdown-tracker/backend/internal/event"
)

// EventRepository mirrors the full event collection in the local database.
// The collection is always written whole: local storage is a backstop for the
// in-memory state, not an independent source of truth.
type EventRepository struct {
	BaseRepository
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// SaveAll replaces the stored collection with the given events in one
// transaction. Errors propagate to the caller.
func (r *EventRepository) SaveAll(ctx context.Context, events []event.Event) error {
	return r.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM events"); err != nil {
			return fmt.Errorf("clearing events: %w", err)
		}

		for _, e := range events {
			times, err := encodeOffsets(e.NotificationTimes)
			if err != nil {
				return fmt.Errorf("encoding notification times for %s: %w", e.ID, err)
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO events (
					id, name, target_date, created_at, category_id,
					is_recurring, recurring_type, notification_enabled,
					notification_times, user_id
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				e.ID, e.Name, e.TargetDate.UTC(), e.CreatedAt.UTC(),
				nullable(e.CategoryID), e.IsRecurring, nullable(string(e.RecurringType)),
				e.NotificationEnabled, times, nullable(e.UserID),
			)
			if err != nil {
				return fmt.Errorf("inserting event %s: %w", e.ID, err)
			}
		}

		return nil
	})
}

// LoadAll reads the stored collection ordered by target date. Rows that fail
// to scan are skipped so one corrupt record never hides the rest.
func (r *EventRepository) LoadAll(ctx context.Context) ([]event.Event, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, name, target_date, created_at, category_id,
		       is_recurring, recurring_type, notification_enabled,
		       notification_times, user_id
		FROM events
		ORDER BY target_date ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			log.Printf("Skipping unreadable event row: %v", err)
			continue
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

func scanEvent(rows *sql.Rows) (event.Event, error) {
	var (
		e             event.Event
		target        time.Time
		created       time.Time
		categoryID    sql.NullString
		recurringType sql.NullString
		times         sql.NullString
		userID        sql.NullString
	)

	err := rows.Scan(
		&e.ID, &e.Name, &target, &created, &categoryID,
		&e.IsRecurring, &recurringType, &e.NotificationEnabled,
		&times, &userID,
	)
	if err != nil {
		return event.Event{}, fmt.Errorf("scanning event: %w", err)
	}

	e.TargetDate = target.UTC()
	e.CreatedAt = created.UTC()
	e.CategoryID = categoryID.String
	e.RecurringType = event.RecurringType(recurringType.String)
	e.UserID = userID.String

	if times.Valid && times.String != "" {
		if err := json.Unmarshal([]byte(times.String), &e.NotificationTimes); err != nil {
			return event.Event{}, fmt.Errorf("decoding notification times: %w", err)
		}
	}

	return e, nil
}

func encodeOffsets(offsets []int) (sql.NullString, error) {
	if len(offsets) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(offsets)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
