// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/countdown-tracker/backend/internal/api/handlers"
	"github.com/countdown-tracker/backend/internal/api/middleware"
	"github.com/countdown-tracker/backend/internal/storage"
	"github.com/countdown-tracker/backend/internal/store"
	"github.com/countdown-tracker/backend/internal/websocket"
)

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(
	db *storage.DB,
	hub *websocket.Hub,
	staticDir string,
	coordinator *store.Coordinator,
) *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging)
	r.Use(middleware.ErrorRecovery)

	// API subrouter
	api := r.PathPrefix("/api").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/health", handlers.HealthCheck(db)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(coordinator, hub)).Methods("GET")

	// WebSocket endpoint
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(hub)).Methods("GET")

	// Event endpoints
	api.HandleFunc("/events", handlers.ListEvents(coordinator)).Methods("GET")
	api.HandleFunc("/events", handlers.CreateEvent(coordinator)).Methods("POST")
	api.HandleFunc("/events/{id}", handlers.GetEvent(coordinator)).Methods("GET")
	api.HandleFunc("/events/{id}", handlers.UpdateEvent(coordinator)).Methods("PUT")
	api.HandleFunc("/events/{id}", handlers.DeleteEvent(coordinator)).Methods("DELETE")
	api.HandleFunc("/events/{id}/countdown", handlers.GetCountdown(coordinator)).Methods("GET")
	api.HandleFunc("/events/{id}/occurrences", handlers.GetOccurrences(coordinator)).Methods("GET")

	// Sync endpoint
	api.HandleFunc("/sync", handlers.ForceSync(coordinator)).Methods("POST")

	// Settings endpoints
	settings := storage.NewSettingsRepository(db)
	api.HandleFunc("/settings/theme", handlers.GetTheme(settings)).Methods("GET")
	api.HandleFunc("/settings/theme", handlers.UpdateTheme(settings)).Methods("PUT")

	// Serve static frontend files
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))

	return r
}
