package websocket

import (
	"encoding/json"
	"time"

	"github.com/countdown-tracker/backend/internal/event"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeEventsUpdated MessageType = "events.updated"
	TypeSyncStarted   MessageType = "sync.started"
	TypeSyncCompleted MessageType = "sync.completed"
	TypeSyncError     MessageType = "sync.error"
	TypeReminderFired MessageType = "reminder.fired"
	TypeNotification  MessageType = "notification"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventsUpdatedPayload is the payload for events.updated messages: the full
// refreshed collection, already sorted by target date.
type EventsUpdatedPayload struct {
	Events []event.Event `json:"events"`
	Source string        `json:"source"` // "mutation", "cloud" or "recurrence"
}

// SyncStatusPayload is the payload for sync.started / sync.completed /
// sync.error messages.
type SyncStatusPayload struct {
	Pending int    `json:"pending"`
	Error   string `json:"error,omitempty"`
}

// ReminderPayload is the payload for reminder.fired messages.
type ReminderPayload struct {
	EventID       string    `json:"event_id"`
	EventName     string    `json:"event_name"`
	TargetDate    time.Time `json:"target_date"`
	MinutesBefore int       `json:"minutes_before"`
}

// NotificationPayload is the payload for generic notification messages.
type NotificationPayload struct {
	Level       string `json:"level"` // info, warning, error, success
	Title       string `json:"title"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
