package remote

import (
	"context"

	"github.com/countdown-tracker/backend/internal/event"
)

// Loader reads the remote collection as domain events.
type Loader struct {
	client *Client
}

// NewLoader creates a read adapter over the remote client.
func NewLoader(client *Client) *Loader {
	return &Loader{client: client}
}

// LoadEvents fetches every event owned by ownerID, already mapped and in
// target date order. Rows that cannot be mapped are dropped.
func (l *Loader) LoadEvents(ctx context.Context, ownerID string) ([]event.Event, error) {
	rows, err := l.client.LoadEvents(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return FromRows(rows), nil
}
