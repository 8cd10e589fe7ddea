package eventmobi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/thorbengrosser/eventheartbeat/internal/domain"
)

// rawEvent tolerates the field-name drift seen across API versions.
type rawEvent struct {
	ID        json.Number `json:"id"`
	Name      string      `json:"name"`
	Title     string      `json:"title"`
	EventName string      `json:"event_name"`
	Label     string      `json:"label"`
}

func (r rawEvent) info() domain.EventInfo {
	name := r.Name
	for _, candidate := range []string{r.Title, r.EventName, r.Label} {
		if name != "" {
			break
		}
		name = candidate
	}
	return domain.EventInfo{ID: r.ID.String(), Name: name}
}

// Events lists the events visible to the API key. A successful call doubles
// as credential validation.
func (c *Client) Events(ctx context.Context, apiKey string) ([]domain.EventInfo, error) {
	env, err := c.request(ctx, apiKey, http.MethodGet, "events", nil, nil)
	if err != nil {
		return nil, err
	}

	var raw []rawEvent
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return nil, fmt.Errorf("eventmobi events: decode list: %w", err)
		}
	}

	events := make([]domain.EventInfo, 0, len(raw))
	for _, r := range raw {
		events = append(events, r.info())
	}
	return events, nil
}

// EventDetails fetches a single event's details.
func (c *Client) EventDetails(ctx context.Context, apiKey, eventID string) (domain.EventInfo, error) {
	env, err := c.request(ctx, apiKey, http.MethodGet, "events/"+eventID, nil, nil)
	if err != nil {
		return domain.EventInfo{}, err
	}

	var raw rawEvent
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return domain.EventInfo{}, fmt.Errorf("eventmobi event details: decode: %w", err)
		}
	}

	info := raw.info()
	if info.ID == "" {
		info.ID = eventID
	}
	return info, nil
}
