package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Client talks to the cloud backend's row store over REST.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new cloud backend client.
func NewClient(config Config) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Config returns the client's connection settings.
func (c *Client) Config() Config {
	return c.config
}

// UpsertEvents inserts or updates the given rows, keyed by id. The call is
// idempotent: re-sending the same rows is a no-op on the backend.
func (c *Client) UpsertEvents(ctx context.Context, rows []EventRow) error {
	if len(rows) == 0 {
		return nil
	}

	body, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encoding rows: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/rest/v1/events", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "resolution=merge-duplicates")

	return c.do(req, nil)
}

// LoadEvents fetches all rows owned by the given user, ordered by target
// date ascending.
func (c *Client) LoadEvents(ctx context.Context, ownerID string) ([]EventRow, error) {
	path := "/rest/v1/events?user_id=eq." + url.QueryEscape(ownerID) + "&order=target_date.asc"

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var rows []EventRow
	if err := c.do(req, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteEvent removes one row by id.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	path := "/rest/v1/events?id=eq." + url.QueryEscape(id)

	req, err := c.newRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}

	return c.do(req, nil)
}

// do executes the request and optionally decodes a JSON body into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("backend error (status %d): %s", resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// newRequest creates an HTTP request with authentication headers.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("apikey", c.config.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}
