package websocket

import (
	"log"

	"github.com/countdown-tracker/backend/internal/event"
)

// EventBroadcaster handles broadcasting WebSocket events.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// BroadcastEventsUpdated pushes the full refreshed collection to all clients.
func (b *EventBroadcaster) BroadcastEventsUpdated(events []event.Event, source string) {
	b.broadcast(NewMessage(TypeEventsUpdated, EventsUpdatedPayload{
		Events: events,
		Source: source,
	}))
}

// BroadcastSyncStarted signals that a cloud sync was enqueued.
func (b *EventBroadcaster) BroadcastSyncStarted(pending int) {
	b.broadcast(NewMessage(TypeSyncStarted, SyncStatusPayload{Pending: pending}))
}

// BroadcastSyncCompleted signals that the syncing indicator cleared.
func (b *EventBroadcaster) BroadcastSyncCompleted() {
	b.broadcast(NewMessage(TypeSyncCompleted, SyncStatusPayload{}))
}

// BroadcastSyncError reports a sync failure to clients.
func (b *EventBroadcaster) BroadcastSyncError(err error) {
	b.broadcast(NewMessage(TypeSyncError, SyncStatusPayload{Error: err.Error()}))
}

// BroadcastReminderFired pushes a due countdown reminder.
func (b *EventBroadcaster) BroadcastReminderFired(e event.Event, minutesBefore int) {
	b.broadcast(NewMessage(TypeReminderFired, ReminderPayload{
		EventID:       e.ID,
		EventName:     e.Name,
		TargetDate:    e.TargetDate,
		MinutesBefore: minutesBefore,
	}))
}

// BroadcastNotification sends a notification to all connected clients.
func (b *EventBroadcaster) BroadcastNotification(level, title, message string) {
	b.broadcast(NewMessage(TypeNotification, NotificationPayload{
		Level:       level,
		Title:       title,
		Message:     message,
		Dismissible: true,
	}))
}

// broadcast sends a message to all connected clients.
func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		log.Printf("Error encoding WebSocket message: %v", err)
		return
	}

	b.hub.Broadcast(data)
}
