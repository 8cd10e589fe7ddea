package dashboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thorbengrosser/eventheartbeat/internal/domain"
)

type fakeFetcher struct {
	mu           sync.Mutex
	statsCalls   int
	sessionCalls int
	statsErr     error

	// blockFor makes EventStats for this event id hang until its context
	// dies, recording the cancellation.
	blockFor  string
	cancelled chan struct{}
}

func (f *fakeFetcher) EventStats(ctx context.Context, eventID string) (*domain.StatsSnapshot, error) {
	f.mu.Lock()
	f.statsCalls++
	blockFor := f.blockFor
	statsErr := f.statsErr
	f.mu.Unlock()

	if blockFor == eventID {
		<-ctx.Done()
		if f.cancelled != nil {
			close(f.cancelled)
		}
		return nil, ctx.Err()
	}
	if statsErr != nil {
		return nil, statsErr
	}
	return &domain.StatsSnapshot{TotalAttendees: 10}, nil
}

func (f *fakeFetcher) ActiveSessions(ctx context.Context, eventID string) ([]domain.ActiveSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionCalls++
	return []domain.ActiveSession{{ID: "s1", Name: "Keynote"}}, nil
}

func (f *fakeFetcher) counts() (stats, sessions int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statsCalls, f.sessionCalls
}

func waitForStatsCalls(t *testing.T, f *fakeFetcher, expected int) {
	t.Helper()
	require.Eventually(t, func() bool {
		stats, _ := f.counts()
		return stats == expected
	}, time.Second, time.Millisecond, "expected %d stats fetches", expected)
}

func TestPoller_InitialRound(t *testing.T) {
	fc := clockwork.NewFakeClock()
	fetcher := &fakeFetcher{}

	var mu sync.Mutex
	var gotStats []domain.StatsSnapshot
	p := NewPoller(fc, fetcher, Callbacks{
		OnStats: func(s domain.StatsSnapshot) {
			mu.Lock()
			gotStats = append(gotStats, s)
			mu.Unlock()
		},
	})
	p.Start("evt-42")
	defer p.Stop()

	waitForStatsCalls(t, fetcher, 1)
	require.Eventually(t, func() bool {
		_, sessions := fetcher.counts()
		return sessions == 1
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, gotStats, 1)
	assert.Equal(t, 10, gotStats[0].TotalAttendees)
}

func TestPoller_TwoCadences(t *testing.T) {
	fc := clockwork.NewFakeClock()
	fetcher := &fakeFetcher{}
	p := NewPoller(fc, fetcher, Callbacks{})
	p.Start("evt-42")
	defer p.Stop()

	waitForStatsCalls(t, fetcher, 1)
	fc.BlockUntil(2) // both tickers armed

	fc.Advance(statsPollInterval)
	waitForStatsCalls(t, fetcher, 2)
	_, sessions := fetcher.counts()
	assert.Equal(t, 1, sessions, "session list follows the long cadence")

	fc.Advance(sessionsPollInterval - statsPollInterval)
	require.Eventually(t, func() bool {
		_, s := fetcher.counts()
		return s == 2
	}, time.Second, time.Millisecond)
}

func TestPoller_DebounceCollapsesBurst(t *testing.T) {
	fc := clockwork.NewFakeClock()
	fetcher := &fakeFetcher{}
	p := NewPoller(fc, fetcher, Callbacks{})
	p.Start("evt-42")
	defer p.Stop()

	waitForStatsCalls(t, fetcher, 1)
	fc.BlockUntil(2)

	// Poke at t=0 arms the timer for t=100ms.
	p.Poke()
	fc.BlockUntil(3) // debounce timer armed

	// Second poke at t=50ms re-arms to t=150ms.
	fc.Advance(50 * time.Millisecond)
	p.Poke()
	time.Sleep(20 * time.Millisecond) // let the loop consume the poke

	// At t=100ms nothing fires: the window was re-armed.
	fc.Advance(50 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	stats, _ := fetcher.counts()
	assert.Equal(t, 1, stats, "fetch must not fire inside a re-armed window")

	// At t=150ms exactly one debounced fetch fires.
	fc.Advance(50 * time.Millisecond)
	waitForStatsCalls(t, fetcher, 2)

	time.Sleep(20 * time.Millisecond)
	stats, _ = fetcher.counts()
	assert.Equal(t, 2, stats, "burst of two pokes collapses into one fetch")
}

func TestPoller_SwitchCancelsInflightFetch(t *testing.T) {
	fc := clockwork.NewFakeClock()
	fetcher := &fakeFetcher{blockFor: "evt-a", cancelled: make(chan struct{})}
	p := NewPoller(fc, fetcher, Callbacks{})

	p.Start("evt-a")
	defer p.Stop()
	waitForStatsCalls(t, fetcher, 1)

	p.Start("evt-b")

	select {
	case <-fetcher.cancelled:
	case <-time.After(time.Second):
		t.Fatal("in-flight fetch was not cancelled on collection switch")
	}

	// The new collection still gets its initial round.
	waitForStatsCalls(t, fetcher, 2)
}

func TestPoller_FailureIsSoftWarning(t *testing.T) {
	fc := clockwork.NewFakeClock()
	fetcher := &fakeFetcher{statsErr: domain.ErrInvalidCredential}

	warnings := make(chan error, 8)
	p := NewPoller(fc, fetcher, Callbacks{
		OnWarning: func(err error) { warnings <- err },
	})
	p.Start("evt-42")
	defer p.Stop()

	select {
	case err := <-warnings:
		assert.ErrorIs(t, err, domain.ErrInvalidCredential)
	case <-time.After(time.Second):
		t.Fatal("expected a soft warning from the failed stats fetch")
	}
}
