package remote

import (
	"context"

	"github.com/countdown-tracker/backend/internal/event"
)

// SyncWriter adapts the REST client to the sync queue: it injects the
// current owner into every row and filters events that cannot be mapped.
// Calls while signed out are no-ops rather than errors.
type SyncWriter struct {
	client *Client
	auth   *Auth
}

// NewSyncWriter builds the queue-facing writer.
func NewSyncWriter(client *Client, auth *Auth) *SyncWriter {
	return &SyncWriter{client: client, auth: auth}
}

// UpsertEvents maps the collection to rows owned by the current user and
// upserts them in one call.
func (w *SyncWriter) UpsertEvents(ctx context.Context, events []event.Event) error {
	ownerID := w.auth.CurrentUserID()
	if ownerID == "" {
		return nil
	}

	rows := make([]EventRow, 0, len(events))
	for _, e := range events {
		if CanMapToRow(e) {
			rows = append(rows, ToRow(e, ownerID))
		}
	}
	return w.client.UpsertEvents(ctx, rows)
}

// DeleteEvent removes one remote row.
func (w *SyncWriter) DeleteEvent(ctx context.Context, id string) error {
	if w.auth.CurrentUserID() == "" {
		return nil
	}
	return w.client.DeleteEvent(ctx, id)
}
