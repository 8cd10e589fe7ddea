// Package client is the dashboard's transport layer: REST calls for stats
// and assets, plus a reconnecting websocket subscription for live pokes.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/thorbengrosser/eventheartbeat/internal/domain"
	"github.com/thorbengrosser/eventheartbeat/internal/songs"
)

// HTTPClient makes REST calls to the distribution server.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient creates a client targeting the given base URL
// (e.g. "http://127.0.0.1:5001").
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Setup validates the API key and returns the selectable events.
func (c *HTTPClient) Setup(ctx context.Context) ([]domain.EventInfo, error) {
	var out struct {
		Status string             `json:"status"`
		Events []domain.EventInfo `json:"events"`
	}
	if err := c.get(ctx, "/api/setup", &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

// Events fetches the raw event list.
func (c *HTTPClient) Events(ctx context.Context) ([]domain.EventInfo, error) {
	var out []domain.EventInfo
	if err := c.get(ctx, "/api/events", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EventDetails fetches one event's metadata.
func (c *HTTPClient) EventDetails(ctx context.Context, eventID string) (*domain.EventInfo, error) {
	var out domain.EventInfo
	if err := c.get(ctx, "/api/event/"+url.PathEscape(eventID)+"/details", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EventStats fetches the authoritative counters for one event.
func (c *HTTPClient) EventStats(ctx context.Context, eventID string) (*domain.StatsSnapshot, error) {
	var out domain.StatsSnapshot
	if err := c.get(ctx, "/api/event/"+url.PathEscape(eventID)+"/stats", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ActiveSessions fetches the bounded happening-now list.
func (c *HTTPClient) ActiveSessions(ctx context.Context, eventID string) ([]domain.ActiveSession, error) {
	var out []domain.ActiveSession
	if err := c.get(ctx, "/api/event/"+url.PathEscape(eventID)+"/active-sessions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckinMessage resolves a check-in resource id into a display message.
func (c *HTTPClient) CheckinMessage(ctx context.Context, eventID, checkinID string) (*domain.CheckinMessage, error) {
	path := "/api/event/" + url.PathEscape(eventID) + "/checkin-message?checkin_id=" + url.QueryEscape(checkinID)
	var out domain.CheckinMessage
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegisterWebhook asks the server to (re)register its webhook for the event.
func (c *HTTPClient) RegisterWebhook(ctx context.Context, eventID string) error {
	return c.post(ctx, "/api/event/"+url.PathEscape(eventID)+"/register-webhook", nil, nil)
}

// Songs lists the available tunes.
func (c *HTTPClient) Songs(ctx context.Context) ([]songs.Song, error) {
	var out []songs.Song
	if err := c.get(ctx, "/api/songs", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SongText fetches the raw ABC text for a song id.
func (c *HTTPClient) SongText(ctx context.Context, id string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/songs/"+url.PathEscape(id), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("GET song %s: %d %s", id, resp.StatusCode, string(body))
	}
	return string(body), nil
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.setAuth(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s: %d %s", path, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuth(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("POST %s: %d %s", path, resp.StatusCode, string(respBody))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *HTTPClient) setAuth(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
