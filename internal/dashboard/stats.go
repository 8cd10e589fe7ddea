package dashboard

import (
	"sync"

	"github.com/thorbengrosser/eventheartbeat/internal/domain"
)

// StatsTracker keeps the displayed counters honest between reconciliation
// fetches: live events bump local increments, a snapshot supersedes them.
// Display value is always snapshot + increment.
type StatsTracker struct {
	mu               sync.Mutex
	snapshot         domain.StatsSnapshot
	eventIncrement   int
	sessionIncrement int
}

func NewStatsTracker() *StatsTracker {
	return &StatsTracker{}
}

// ApplySnapshot installs the authoritative counters and zeroes every local
// increment. Applying the same snapshot twice is a no-op.
func (t *StatsTracker) ApplySnapshot(s domain.StatsSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snapshot = s
	t.eventIncrement = 0
	t.sessionIncrement = 0
}

// RecordCheckin bumps the local increment for one observed check-in.
func (t *StatsTracker) RecordCheckin(kind domain.CheckinType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch kind {
	case domain.CheckinTypeSession:
		t.sessionIncrement++
	default:
		t.eventIncrement++
	}
}

// Totals returns the counters as they should be displayed right now.
func (t *StatsTracker) Totals() domain.StatsSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return domain.StatsSnapshot{
		TotalAttendees:  t.snapshot.TotalAttendees,
		EventCheckins:   t.snapshot.EventCheckins + t.eventIncrement,
		SessionCheckins: t.snapshot.SessionCheckins + t.sessionIncrement,
	}
}

// Increments reports the local deltas accumulated since the last snapshot.
func (t *StatsTracker) Increments() (event, session int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.eventIncrement, t.sessionIncrement
}
