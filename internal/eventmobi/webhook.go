package eventmobi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

const webhookTypeCheckins = "checkins"

// WebhookRegistration reports the outcome of RegisterWebhook.
type WebhookRegistration struct {
	WebhookID   string `json:"webhook_id,omitempty"`
	CallbackURL string `json:"callback_url"`
	Enabled     bool   `json:"enabled"`
}

type rawWebhook struct {
	ID          json.Number `json:"id"`
	Type        string      `json:"type"`
	CallbackURL string      `json:"callback_url"`
	Enabled     *bool       `json:"enabled"`
}

func (w rawWebhook) enabled() bool {
	return w.Enabled == nil || *w.Enabled
}

// RegisterWebhook points the event's checkins webhook at callbackURL.
// An existing webhook with the same URL is re-enabled; webhooks pointing
// elsewhere are disabled and the first one is updated in place, falling
// back to delete+recreate when the upstream refuses to change the URL.
func (c *Client) RegisterWebhook(ctx context.Context, apiKey, eventID, callbackURL string) (WebhookRegistration, error) {
	existing, err := c.listWebhooks(ctx, apiKey, eventID)
	if err != nil {
		// Listing is best-effort: creation below may still succeed.
		slog.Warn("Could not list existing webhooks", "event_id", eventID, "error", err)
	}

	payload := map[string]any{"callback_url": callbackURL, "type": webhookTypeCheckins}

	// Exact URL match: make sure it is enabled and we are done.
	for _, wh := range existing {
		if wh.Type != webhookTypeCheckins || wh.CallbackURL != callbackURL {
			continue
		}
		update := map[string]any{"callback_url": callbackURL, "type": webhookTypeCheckins, "enabled": true}
		if _, err := c.request(ctx, apiKey, http.MethodPatch, webhookPath(eventID, wh.ID.String()), nil, update); err != nil {
			return WebhookRegistration{}, fmt.Errorf("enable existing webhook: %w", err)
		}
		return WebhookRegistration{WebhookID: wh.ID.String(), CallbackURL: callbackURL, Enabled: true}, nil
	}

	// Disable stale webhooks pointing at other URLs.
	for _, wh := range existing {
		if wh.Type != webhookTypeCheckins || !wh.enabled() {
			continue
		}
		disable := map[string]any{"enabled": false}
		if _, err := c.request(ctx, apiKey, http.MethodPatch, webhookPath(eventID, wh.ID.String()), nil, disable); err != nil {
			slog.Warn("Failed to disable stale webhook", "webhook_id", wh.ID.String(), "error", err)
		}
	}

	// Update the first checkins webhook in place if one exists.
	for _, wh := range existing {
		if wh.Type != webhookTypeCheckins {
			continue
		}
		update := map[string]any{"callback_url": callbackURL, "type": webhookTypeCheckins, "enabled": true}
		env, err := c.request(ctx, apiKey, http.MethodPatch, webhookPath(eventID, wh.ID.String()), nil, update)
		if err != nil {
			break // fall through to create
		}
		updated := decodeWebhook(env.Data)
		if updated != nil && updated.CallbackURL != callbackURL {
			// Upstream kept the old URL: recreate from scratch.
			if _, err := c.request(ctx, apiKey, http.MethodDelete, webhookPath(eventID, wh.ID.String()), nil, nil); err != nil {
				slog.Warn("Failed to delete mismatched webhook", "webhook_id", wh.ID.String(), "error", err)
			}
			break
		}
		return WebhookRegistration{WebhookID: wh.ID.String(), CallbackURL: callbackURL, Enabled: true}, nil
	}

	env, err := c.request(ctx, apiKey, http.MethodPost, "events/"+eventID+"/webhooks", nil, payload)
	if err != nil {
		return WebhookRegistration{}, fmt.Errorf("create webhook: %w", err)
	}

	reg := WebhookRegistration{CallbackURL: callbackURL, Enabled: true}
	if created := decodeWebhook(env.Data); created != nil {
		reg.WebhookID = created.ID.String()
		reg.Enabled = created.enabled()
	}
	return reg, nil
}

func webhookPath(eventID, webhookID string) string {
	return "events/" + eventID + "/webhooks/" + webhookID
}

func (c *Client) listWebhooks(ctx context.Context, apiKey, eventID string) ([]rawWebhook, error) {
	query := url.Values{"type": {webhookTypeCheckins}}
	env, err := c.request(ctx, apiKey, http.MethodGet, "events/"+eventID+"/webhooks", query, nil)
	if err != nil {
		return nil, err
	}
	var hooks []rawWebhook
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &hooks); err != nil {
			return nil, fmt.Errorf("eventmobi webhooks: decode list: %w", err)
		}
	}
	return hooks, nil
}

func decodeWebhook(data json.RawMessage) *rawWebhook {
	if len(data) == 0 {
		return nil
	}
	var wh rawWebhook
	if err := json.Unmarshal(data, &wh); err != nil {
		return nil
	}
	return &wh
}
