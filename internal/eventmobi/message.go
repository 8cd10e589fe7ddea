package eventmobi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/thorbengrosser/eventheartbeat/internal/domain"
	"github.com/thorbengrosser/eventheartbeat/internal/metrics"
)

// messageGroup coalesces concurrent lookups for the same check-in: when a
// poke fans out to many dashboards they all resolve the same resource ids
// at once.
var messageGroup singleflight.Group

type rawPerson struct {
	ID        json.Number `json:"id"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
}

// attendeeName extracts a privacy-friendly display name: first name only,
// never a full email address.
func (p rawPerson) attendeeName() string {
	if name := strings.TrimSpace(p.FirstName); name != "" {
		return name
	}
	if p.Name != "" {
		return strings.Fields(p.Name)[0]
	}
	if p.Email != "" {
		if at := strings.IndexByte(p.Email, '@'); at > 0 {
			return p.Email[:at]
		}
	}
	return "Someone"
}

type rawCheckinDetail struct {
	EntityType     string      `json:"entity_type"`
	EntityID       json.Number `json:"entity_id"`
	ChangeDatetime string      `json:"change_datetime"`
	Person         rawPerson   `json:"person"`
}

// CheckinMessage resolves one check-in resource id into a human-readable
// message. Concurrent callers asking for the same id share a single
// upstream fetch.
func (c *Client) CheckinMessage(ctx context.Context, apiKey, eventID, checkinID string) (domain.CheckinMessage, error) {
	key := eventID + "/" + checkinID
	v, err, shared := messageGroup.Do(key, func() (any, error) {
		return c.fetchCheckinMessage(ctx, apiKey, eventID, checkinID)
	})
	if err != nil {
		metrics.CheckinMessageLookupsTotal.WithLabelValues("error").Inc()
		return domain.CheckinMessage{}, err
	}
	if shared {
		metrics.CheckinMessageLookupsTotal.WithLabelValues("shared").Inc()
	} else {
		metrics.CheckinMessageLookupsTotal.WithLabelValues("fetched").Inc()
	}
	return v.(domain.CheckinMessage), nil
}

func (c *Client) fetchCheckinMessage(ctx context.Context, apiKey, eventID, checkinID string) (domain.CheckinMessage, error) {
	query := url.Values{"id": {checkinID}, "include": {"person"}}
	env, err := c.request(ctx, apiKey, http.MethodGet, "events/"+eventID+"/checkin", query, nil)
	if err != nil {
		return domain.CheckinMessage{}, err
	}

	checkin, err := decodeFirstCheckin(env.Data)
	if err != nil {
		return domain.CheckinMessage{}, err
	}
	if checkin == nil {
		return domain.CheckinMessage{}, fmt.Errorf("checkin %s: %w", checkinID, domain.ErrNotFound)
	}

	msg := domain.CheckinMessage{
		EventType:    "checkin",
		AttendeeName: checkin.Person.attendeeName(),
		CheckinType:  domain.ParseCheckinType(checkin.EntityType),
		LocationName: "your event",
		Timestamp:    checkin.ChangeDatetime,
	}

	if msg.CheckinType == domain.CheckinTypeSession {
		msg.SessionID = checkin.EntityID.String()
		msg.LocationName = c.sessionName(ctx, apiKey, eventID, msg.SessionID)
		msg.Message = fmt.Sprintf("%s just checked into session %q", msg.AttendeeName, msg.LocationName)
	} else {
		msg.Message = fmt.Sprintf("%s just checked into your event", msg.AttendeeName)
	}

	return msg, nil
}

// decodeFirstCheckin tolerates both a list and a single object payload.
func decodeFirstCheckin(data json.RawMessage) (*rawCheckinDetail, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var list []rawCheckinDetail
	if err := json.Unmarshal(data, &list); err == nil {
		if len(list) == 0 {
			return nil, nil
		}
		return &list[0], nil
	}
	var one rawCheckinDetail
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("eventmobi checkin: decode: %w", err)
	}
	return &one, nil
}

// sessionName looks up a session's display name, falling back to a generic
// label so message building never fails on a lookup error.
func (c *Client) sessionName(ctx context.Context, apiKey, eventID, sessionID string) string {
	query := url.Values{"id": {sessionID}}
	env, err := c.request(ctx, apiKey, http.MethodGet, "events/"+eventID+"/sessions", query, nil)
	if err != nil {
		return "a session"
	}

	var sessions []rawSession
	if len(env.Data) > 0 {
		if json.Unmarshal(env.Data, &sessions) != nil || len(sessions) == 0 {
			return "a session"
		}
	} else {
		return "a session"
	}
	if name := sessions[0].displayName(); name != "Unnamed Session" {
		return name
	}
	return "a session"
}
