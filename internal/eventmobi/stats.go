package eventmobi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/thorbengrosser/eventheartbeat/internal/domain"
)

// EventStats returns the aggregate counters for one event. Totals come from
// pagination metadata with limit=1 probes, so each counter costs a single
// cheap request upstream.
func (c *Client) EventStats(ctx context.Context, apiKey, eventID string) (domain.StatsSnapshot, error) {
	var snap domain.StatsSnapshot

	attendees, err := c.countTotal(ctx, apiKey, "events/"+eventID+"/people", nil)
	if err != nil {
		return snap, err
	}
	snap.TotalAttendees = attendees

	eventCheckins, err := c.countTotal(ctx, apiKey, "events/"+eventID+"/checkin", url.Values{"entity_type": {"events"}})
	if err != nil {
		return snap, err
	}
	snap.EventCheckins = eventCheckins

	sessionCheckins, err := c.countTotal(ctx, apiKey, "events/"+eventID+"/checkin", url.Values{"entity_type": {"sessions"}})
	if err != nil {
		return snap, err
	}
	snap.SessionCheckins = sessionCheckins

	return snap, nil
}

func (c *Client) countTotal(ctx context.Context, apiKey, endpoint string, query url.Values) (int, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("page", "0")
	query.Set("limit", "1")

	env, err := c.request(ctx, apiKey, http.MethodGet, endpoint, query, nil)
	if err != nil {
		return 0, err
	}
	return env.Meta.Pagination.TotalItemsCount, nil
}
