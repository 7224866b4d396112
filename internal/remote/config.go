// Package remote provides the cloud backend client: row mapping, REST calls,
// the realtime change subscription and the authenticated session.
package remote

import (
	"os"
	"time"
)

// Config holds the connection settings for the cloud backend.
type Config struct {
	// BaseURL is the backend base URL, e.g. https://project.example.co
	BaseURL string

	// APIKey is the public API key sent with every request.
	APIKey string

	// AccessToken is the user's bearer token. Requests are scoped to the
	// token's owner by the backend.
	AccessToken string

	// Timeout for REST requests.
	Timeout time.Duration
}

// DefaultConfig reads the backend settings from environment variables.
func DefaultConfig() Config {
	return Config{
		BaseURL:     getEnv("CLOUD_URL", ""),
		APIKey:      getEnv("CLOUD_API_KEY", ""),
		AccessToken: getEnv("CLOUD_ACCESS_TOKEN", ""),
		Timeout:     30 * time.Second,
	}
}

// Enabled reports whether the cloud backend is configured at all. This is
// independent of whether a user is currently authenticated.
func (c Config) Enabled() bool {
	return c.BaseURL != "" && c.APIKey != ""
}

// getEnv returns an environment variable value or a default if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
