package domain

// StatsSnapshot is the authoritative aggregate for one collection, fetched
// from the upstream API. A snapshot always supersedes locally accumulated
// increments.
type StatsSnapshot struct {
	TotalAttendees  int `json:"total_attendees"`
	EventCheckins   int `json:"event_checkins"`
	SessionCheckins int `json:"session_checkins"`
}

// ActiveSession is one entry of the bounded "happening now" list: a session
// that is on, about to start, or recently ended, with its occupancy count.
type ActiveSession struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	StartDatetime string `json:"start_datetime"`
	EndDatetime   string `json:"end_datetime,omitempty"`
	CheckinCount  int    `json:"checkin_count"`
	Capacity      int    `json:"capacity,omitempty"`
	Location      string `json:"location,omitempty"`
}

// EventInfo identifies one event (collection) of the authenticated
// organisation.
type EventInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
