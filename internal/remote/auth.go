package remote

import (
	"context"
	"log"
	"sync"
)

// Auth tracks the authenticated user identity behind the configured access
// token. The backend has no server push for session changes, so callers
// refresh on a schedule and Auth fans the result out to registered watchers.
type Auth struct {
	client *Client

	mu       sync.Mutex
	userID   string
	watchers []func(userID string)
}

// NewAuth creates an auth session tracker backed by the given client.
func NewAuth(client *Client) *Auth {
	return &Auth{client: client}
}

// CurrentUserID returns the last known authenticated user id, empty when
// signed out.
func (a *Auth) CurrentUserID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.userID
}

// OnChange registers a callback invoked whenever the authenticated identity
// changes, including sign-out (empty id).
func (a *Auth) OnChange(cb func(userID string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.watchers = append(a.watchers, cb)
}

// Refresh asks the backend who owns the access token and notifies watchers
// when the identity changed. Transient lookup failures keep the last known
// identity so the session does not flap on network errors.
func (a *Auth) Refresh(ctx context.Context) string {
	userID, err := a.fetchUserID(ctx)
	if err != nil {
		log.Printf("Auth refresh failed: %v", err)
		return a.CurrentUserID()
	}

	a.mu.Lock()
	changed := userID != a.userID
	a.userID = userID
	watchers := make([]func(string), len(a.watchers))
	copy(watchers, a.watchers)
	a.mu.Unlock()

	if changed {
		for _, cb := range watchers {
			cb(userID)
		}
	}
	return userID
}

type userResponse struct {
	ID string `json:"id"`
}

func (a *Auth) fetchUserID(ctx context.Context) (string, error) {
	if a.client.Config().AccessToken == "" {
		return "", nil
	}

	req, err := a.client.newRequest(ctx, "GET", "/auth/v1/user", nil)
	if err != nil {
		return "", err
	}

	var user userResponse
	if err := a.client.do(req, &user); err != nil {
		return "", err
	}
	return user.ID, nil
}
