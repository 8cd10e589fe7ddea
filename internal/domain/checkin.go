package domain

import "time"

// CheckinType distinguishes event-level from session-level check-ins.
type CheckinType int

const (
	CheckinTypeEvent CheckinType = iota
	CheckinTypeSession
)

// String returns the wire representation used by the EventMobi API.
func (t CheckinType) String() string {
	if t == CheckinTypeSession {
		return "session"
	}
	return "event"
}

// ParseCheckinType maps the API's entity_type values onto CheckinType.
// Anything that is not a session counts as an event check-in.
func ParseCheckinType(entityType string) CheckinType {
	if entityType == "sessions" || entityType == "session" {
		return CheckinTypeSession
	}
	return CheckinTypeEvent
}

// MarshalText implements encoding.TextMarshaler so CheckinType serialises
// as "event"/"session" in JSON payloads.
func (t CheckinType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *CheckinType) UnmarshalText(text []byte) error {
	*t = ParseCheckinType(string(text))
	return nil
}

// CheckinEvent is a fully enriched check-in notification. Immutable once
// constructed; lives only in memory for the duration of delivery.
type CheckinEvent struct {
	EventType    string      `json:"event_type"` // always "checkin"
	CheckinType  CheckinType `json:"checkin_type"`
	SessionID    string      `json:"session_id,omitempty"`
	ResourceID   string      `json:"resource_id"`
	Message      string      `json:"message"`
	CollectionID string      `json:"collection_id"`
	ReceivedAt   time.Time   `json:"received_at"`
}

// Poke is the fast-path notification: just enough for a client to refetch.
// The webhook endpoint emits these so it can acknowledge the platform
// before any enrichment happens.
type Poke struct {
	EventID     string   `json:"event_id"`
	ResourceIDs []string `json:"resource_ids"`
	Timestamp   string   `json:"timestamp,omitempty"`
}

// CheckinMessage is the enriched, privacy-friendly rendering of a single
// check-in resource, served on demand after a poke.
type CheckinMessage struct {
	Message      string      `json:"message"`
	EventType    string      `json:"event_type"`
	AttendeeName string      `json:"attendee_name"`
	CheckinType  CheckinType `json:"checkin_type"`
	LocationName string      `json:"location_name"`
	Timestamp    string      `json:"timestamp,omitempty"`
	SessionID    string      `json:"session_id,omitempty"`
}
