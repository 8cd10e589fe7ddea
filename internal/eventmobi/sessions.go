package eventmobi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/thorbengrosser/eventheartbeat/internal/domain"
)

const (
	activeSessionLimit  = 15
	activeSessionWindow = 30 * time.Minute
	checkinPageLimit    = 1000
)

type rawSession struct {
	ID            json.Number     `json:"id"`
	Name          string          `json:"name"`
	Title         string          `json:"title"`
	StartDatetime string          `json:"start_datetime"`
	EndDatetime   string          `json:"end_datetime"`
	CapacityLimit json.Number     `json:"capacity_limit"`
	Location      json.RawMessage `json:"location"`
}

func (r rawSession) displayName() string {
	if r.Name != "" {
		return r.Name
	}
	if r.Title != "" {
		return r.Title
	}
	return "Unnamed Session"
}

// locationName tolerates the location field being an object or a string.
func (r rawSession) locationName() string {
	if len(r.Location) == 0 {
		return ""
	}
	var obj struct {
		Label string `json:"label"`
		Name  string `json:"name"`
	}
	if json.Unmarshal(r.Location, &obj) == nil {
		if obj.Label != "" {
			return obj.Label
		}
		if obj.Name != "" {
			return obj.Name
		}
	}
	var s string
	if json.Unmarshal(r.Location, &s) == nil {
		return s
	}
	return ""
}

type rawCheckin struct {
	EntityType string      `json:"entity_type"`
	EntityID   json.Number `json:"entity_id"`
	PersonID   json.Number `json:"person_id"`
	Person     struct {
		ID json.Number `json:"id"`
	} `json:"person"`
}

// ActiveSessions returns up to 15 sessions worth showing on a live
// dashboard: sessions on now or starting within 30 minutes first, then
// recently ended ones, then the last-ended sessions as filler. Each entry
// carries the count of unique attendees checked into it. Sorted by start
// time, newest first.
func (c *Client) ActiveSessions(ctx context.Context, apiKey, eventID string) ([]domain.ActiveSession, error) {
	query := url.Values{"include": {"settings,location"}}
	env, err := c.request(ctx, apiKey, http.MethodGet, "events/"+eventID+"/sessions", query, nil)
	if err != nil {
		return nil, err
	}

	var all []rawSession
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &all); err != nil {
			return nil, fmt.Errorf("eventmobi sessions: decode list: %w", err)
		}
	}

	now := time.Now().UTC()
	selected := selectSessions(all, now)

	counts, err := c.sessionCheckinCounts(ctx, apiKey, eventID, selected)
	if err != nil {
		// The list is still useful without occupancy counts.
		slog.Warn("Failed to fetch session check-in counts", "event_id", eventID, "error", err)
		counts = map[string]int{}
	}

	result := make([]domain.ActiveSession, 0, len(selected))
	for _, s := range selected {
		capacity := 0
		if v, err := strconv.Atoi(s.CapacityLimit.String()); err == nil {
			capacity = v
		}
		result = append(result, domain.ActiveSession{
			ID:            s.ID.String(),
			Name:          s.displayName(),
			StartDatetime: s.StartDatetime,
			EndDatetime:   s.EndDatetime,
			CheckinCount:  counts[s.ID.String()],
			Capacity:      capacity,
			Location:      s.locationName(),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartDatetime > result[j].StartDatetime
	})
	return result, nil
}

// selectSessions partitions sessions by the ±30 minute window and fills up
// to the display limit with the most recently ended ones.
func selectSessions(all []rawSession, now time.Time) []rawSession {
	type ended struct {
		session rawSession
		endedAt time.Time
	}

	var active, recentlyEnded []rawSession
	var allEnded []ended
	futureCutoff := now.Add(activeSessionWindow)
	pastCutoff := now.Add(-activeSessionWindow)

	for _, s := range all {
		if s.ID.String() == "" {
			continue
		}
		start, err := parseAPITime(s.StartDatetime)
		if err != nil {
			continue
		}

		end, endErr := parseAPITime(s.EndDatetime)
		switch {
		case endErr != nil:
			// No end time: treat as active once started or about to start.
			if start.Before(futureCutoff) {
				active = append(active, s)
			}
		case (!start.After(now) && end.After(now)) || (!start.Before(now) && !start.After(futureCutoff)):
			active = append(active, s)
		case !end.After(now) && !end.Before(pastCutoff):
			recentlyEnded = append(recentlyEnded, s)
		case !end.After(now):
			allEnded = append(allEnded, ended{session: s, endedAt: end})
		}
	}

	selected := active
	if room := activeSessionLimit - len(selected); room > 0 {
		if room > len(recentlyEnded) {
			room = len(recentlyEnded)
		}
		selected = append(selected, recentlyEnded[:room]...)
	}
	if room := activeSessionLimit - len(selected); room > 0 && len(allEnded) > 0 {
		sort.Slice(allEnded, func(i, j int) bool { return allEnded[i].endedAt.After(allEnded[j].endedAt) })
		if room > len(allEnded) {
			room = len(allEnded)
		}
		for _, e := range allEnded[:room] {
			selected = append(selected, e.session)
		}
	}
	if len(selected) > activeSessionLimit {
		selected = selected[:activeSessionLimit]
	}
	return selected
}

// sessionCheckinCounts pages through session check-ins and counts unique
// attendees per selected session.
func (c *Client) sessionCheckinCounts(ctx context.Context, apiKey, eventID string, sessions []rawSession) (map[string]int, error) {
	wanted := make(map[string]struct{}, len(sessions))
	for _, s := range sessions {
		wanted[s.ID.String()] = struct{}{}
	}

	people := make(map[string]map[string]struct{})
	for page := 0; ; page++ {
		query := url.Values{
			"entity_type": {"sessions"},
			"include":     {"person"},
			"page":        {strconv.Itoa(page)},
			"limit":       {strconv.Itoa(checkinPageLimit)},
		}
		env, err := c.request(ctx, apiKey, http.MethodGet, "events/"+eventID+"/checkin", query, nil)
		if err != nil {
			return nil, err
		}

		var checkins []rawCheckin
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &checkins); err != nil {
				return nil, fmt.Errorf("eventmobi checkins: decode page %d: %w", page, err)
			}
		}
		if len(checkins) == 0 {
			break
		}

		for _, ch := range checkins {
			sessionID := ch.EntityID.String()
			if _, ok := wanted[sessionID]; !ok {
				continue
			}
			personID := ch.Person.ID.String()
			if personID == "" {
				personID = ch.PersonID.String()
			}
			if personID == "" {
				continue
			}
			if people[sessionID] == nil {
				people[sessionID] = make(map[string]struct{})
			}
			people[sessionID][personID] = struct{}{}
		}

		if len(checkins) < checkinPageLimit {
			break
		}
		if total := env.Meta.Pagination.TotalItemsCount; total > 0 && (page+1)*checkinPageLimit >= total {
			break
		}
	}

	counts := make(map[string]int, len(people))
	for id, set := range people {
		counts[id] = len(set)
	}
	return counts, nil
}

// parseAPITime accepts the ISO datetime variants the API emits.
func parseAPITime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty datetime")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised datetime %q", s)
}
