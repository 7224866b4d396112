package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/countdown-tracker/backend/internal/api/middleware"
	"github.com/countdown-tracker/backend/internal/store"
	"github.com/countdown-tracker/backend/internal/websocket"
)

// SyncResponse reports the outcome of a manual sync request.
type SyncResponse struct {
	Synced bool   `json:"synced"`
	Events int    `json:"events"`
	Reason string `json:"reason,omitempty"`
}

// ForceSync pushes the collection to the cloud immediately, skipping the
// debounce window.
func ForceSync(coordinator *store.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events := coordinator.Events()

		response := SyncResponse{Events: len(events)}
		switch {
		case !coordinator.CloudEnabled():
			response.Reason = "cloud sync not configured"
		case !coordinator.Authenticated():
			response.Reason = "not signed in"
		case len(events) == 0:
			response.Reason = "nothing to sync"
		default:
			if err := coordinator.ForceSyncNow(r.Context()); err != nil {
				middleware.WriteError(w, http.StatusBadGateway, middleware.ErrInternalError, "Sync failed: "+err.Error())
				return
			}
			response.Synced = true
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

// StatusResponse represents the system status response.
type StatusResponse struct {
	Events           int  `json:"events"`
	CloudEnabled     bool `json:"cloud_enabled"`
	Authenticated    bool `json:"authenticated"`
	Syncing          bool `json:"syncing"`
	Loading          bool `json:"loading"`
	ConnectedClients int  `json:"connected_clients"`
}

// Status returns a handler that provides system status information.
func Status(coordinator *store.Coordinator, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := StatusResponse{
			Events:           len(coordinator.Events()),
			CloudEnabled:     coordinator.CloudEnabled(),
			Authenticated:    coordinator.Authenticated(),
			Syncing:          coordinator.IsSyncing(),
			Loading:          coordinator.IsLoading(),
			ConnectedClients: hub.ClientCount(),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}
