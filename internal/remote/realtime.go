package remote

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/countdown-tracker/backend/internal/event"
)

const (
	realtimePath      = "/realtime/v1/changes"
	reconnectDelay    = 5 * time.Second
	realtimeReadLimit = 65536
)

// Realtime maintains a websocket subscription to the backend's change feed.
// Any change notification for the events table triggers a full reload which
// is handed to the subscriber's callback.
type Realtime struct {
	client *Client
}

// NewRealtime creates a realtime subscription helper sharing the REST
// client's configuration.
func NewRealtime(client *Client) *Realtime {
	return &Realtime{client: client}
}

type subscribeFrame struct {
	Type   string `json:"type"`
	Table  string `json:"table"`
	UserID string `json:"user_id"`
}

// Subscribe opens the change feed for the given owner and returns an
// unsubscribe function. The connection is re-dialed with a fixed delay until
// unsubscribed; every received change frame causes a reload of the owner's
// events, pushed to callback in full.
func (r *Realtime) Subscribe(ownerID string, callback func([]event.Event)) func() {
	done := make(chan struct{})
	var once sync.Once

	go r.run(ownerID, callback, done)

	return func() {
		once.Do(func() { close(done) })
	}
}

func (r *Realtime) run(ownerID string, callback func([]event.Event), done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}

		if err := r.listen(ownerID, callback, done); err != nil {
			log.Printf("Realtime subscription dropped: %v", err)
		}

		select {
		case <-done:
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// listen dials the feed and blocks reading change frames until the
// connection fails or done is closed.
func (r *Realtime) listen(ownerID string, callback func([]event.Event), done <-chan struct{}) error {
	cfg := r.client.Config()

	header := http.Header{}
	header.Set("apikey", cfg.APIKey)
	if cfg.AccessToken != "" {
		header.Set("Authorization", "Bearer "+cfg.AccessToken)
	}

	dialCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, wsURL(cfg.BaseURL)+realtimePath, header)
	cancel()
	if err != nil {
		return err
	}
	defer conn.Close()

	// Drop the connection promptly on unsubscribe. The stop channel keeps
	// this goroutine from outliving a normally closed connection.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-done:
			conn.Close()
		case <-stop:
		}
	}()

	if err := conn.WriteJSON(subscribeFrame{Type: "subscribe", Table: "events", UserID: ownerID}); err != nil {
		return err
	}

	conn.SetReadLimit(realtimeReadLimit)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			select {
			case <-done:
				return nil
			default:
				return err
			}
		}

		// The frame only signals that something changed; the fresh state
		// comes from a full reload, matching the REST ordering guarantees.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		rows, err := r.client.LoadEvents(ctx, ownerID)
		cancel()
		if err != nil {
			log.Printf("Realtime reload failed: %v", err)
			continue
		}
		callback(FromRows(rows))
	}
}

// wsURL rewrites an http(s) base URL to its websocket scheme.
func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}
