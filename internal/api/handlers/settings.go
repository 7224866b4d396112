package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/countdown-tracker/backend/internal/api/middleware"
	"github.com/countdown-tracker/backend/internal/storage"
)

// ThemeResponse represents the theme preference in API responses.
type ThemeResponse struct {
	Theme string `json:"theme"`
}

// GetTheme returns the stored theme preference, defaulting to light.
func GetTheme(settings *storage.SettingsRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		theme, err := settings.LoadTheme(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to load theme")
			return
		}
		if theme == "" {
			theme = storage.ThemeLight
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ThemeResponse{Theme: theme})
	}
}

// UpdateTheme stores the theme preference.
func UpdateTheme(settings *storage.SettingsRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ThemeResponse
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if err := settings.SaveTheme(r.Context(), req.Theme); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(req)
	}
}
