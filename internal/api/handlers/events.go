package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/countdown-tracker/backend/internal/api/middleware"
	"github.com/countdown-tracker/backend/internal/event"
	"github.com/countdown-tracker/backend/internal/store"
)

// EventRequest is the mutable part of an event in API requests.
type EventRequest struct {
	Name                string    `json:"name"`
	TargetDate          time.Time `json:"target_date"`
	CategoryID          string    `json:"category_id,omitempty"`
	IsRecurring         bool      `json:"is_recurring"`
	RecurringType       string    `json:"recurring_type,omitempty"`
	NotificationEnabled bool      `json:"notification_enabled"`
	NotificationTimes   []int     `json:"notification_times,omitempty"`
}

func (req EventRequest) toEvent(id string) event.Event {
	return event.Event{
		ID:                  id,
		Name:                req.Name,
		TargetDate:          req.TargetDate.UTC(),
		CategoryID:          req.CategoryID,
		IsRecurring:         req.IsRecurring,
		RecurringType:       event.RecurringType(req.RecurringType),
		NotificationEnabled: req.NotificationEnabled,
		NotificationTimes:   req.NotificationTimes,
	}
}

// ListEvents returns the full collection in target date order.
func ListEvents(coordinator *store.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events := coordinator.Events()
		if events == nil {
			events = []event.Event{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(events)
	}
}

// CreateEvent adds a new event to the collection.
func CreateEvent(coordinator *store.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		e := req.toEvent("")
		if errs := event.Validate(e); len(errs) > 0 {
			middleware.WriteErrorWithDetails(w, http.StatusBadRequest, middleware.ErrValidation, "Event validation failed", errs)
			return
		}

		created, err := coordinator.Add(r.Context(), e)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create event")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)
	}
}

// GetEvent returns a single event by id.
func GetEvent(coordinator *store.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		e, err := coordinator.Get(id)
		if err != nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Event not found")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(e)
	}
}

// UpdateEvent replaces an existing event.
func UpdateEvent(coordinator *store.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		var req EventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		existing, err := coordinator.Get(id)
		if err != nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Event not found")
			return
		}

		e := req.toEvent(id)
		e.CreatedAt = existing.CreatedAt
		e.UserID = existing.UserID
		if errs := event.Validate(e); len(errs) > 0 {
			middleware.WriteErrorWithDetails(w, http.StatusBadRequest, middleware.ErrValidation, "Event validation failed", errs)
			return
		}

		updated, err := coordinator.Update(r.Context(), e)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Event not found")
				return
			}
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update event")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated)
	}
}

// DeleteEvent removes an event.
func DeleteEvent(coordinator *store.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		if err := coordinator.Delete(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Event not found")
				return
			}
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to delete event")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// CountdownResponse pairs an event with its remaining time.
type CountdownResponse struct {
	EventID   string              `json:"event_id"`
	Name      string              `json:"name"`
	Countdown event.TimeRemaining `json:"countdown"`
}

// GetCountdown returns the time remaining until an event's target date.
func GetCountdown(coordinator *store.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		e, err := coordinator.Get(id)
		if err != nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Event not found")
			return
		}

		response := CountdownResponse{
			EventID:   e.ID,
			Name:      e.Name,
			Countdown: event.Countdown(e, time.Now().UTC()),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

// OccurrencesResponse lists upcoming dates for a recurring event.
type OccurrencesResponse struct {
	EventID     string      `json:"event_id"`
	Occurrences []time.Time `json:"occurrences"`
}

// GetOccurrences previews the next target dates of a recurring event. The
// count query parameter defaults to 5 and is capped at 50.
func GetOccurrences(coordinator *store.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		e, err := coordinator.Get(id)
		if err != nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Event not found")
			return
		}

		if !e.IsRecurring || !e.RecurringType.Valid() {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Event is not recurring")
			return
		}

		count := 5
		if raw := r.URL.Query().Get("count"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid count parameter")
				return
			}
			if n > 50 {
				n = 50
			}
			count = n
		}

		response := OccurrencesResponse{
			EventID:     e.ID,
			Occurrences: event.UpcomingOccurrences(e, count),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}
