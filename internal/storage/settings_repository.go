package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Theme values stored under the theme setting key.
const (
	SettingTheme = "theme"

	ThemeLight = "light"
	ThemeDark  = "dark"
)

// SettingsRepository stores small key/value app preferences.
type SettingsRepository struct {
	BaseRepository
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Set upserts one setting value.
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("saving setting %s: %w", key, err)
	}
	return nil
}

// Get reads one setting value, empty when unset.
func (r *SettingsRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.DB().QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading setting %s: %w", key, err)
	}
	return value, nil
}

// SaveTheme persists the UI theme preference.
func (r *SettingsRepository) SaveTheme(ctx context.Context, theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return fmt.Errorf("unknown theme %q", theme)
	}
	return r.Set(ctx, SettingTheme, theme)
}

// LoadTheme reads the UI theme preference, empty when never chosen.
func (r *SettingsRepository) LoadTheme(ctx context.Context) (string, error) {
	return r.Get(ctx, SettingTheme)
}
