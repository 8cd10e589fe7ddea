package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/thorbengrosser/eventheartbeat/internal/domain"
	"github.com/thorbengrosser/eventheartbeat/internal/platform/retry"
)

const (
	statsPollInterval    = 15 * time.Second
	sessionsPollInterval = 60 * time.Second

	// DebounceWindow is the trailing-edge delay between a poke and the
	// reconciliation fetch it triggers. A new poke inside the window
	// re-arms the timer, so bursts collapse into one fetch.
	DebounceWindow = 100 * time.Millisecond
)

// Fetcher is the slice of the REST client the poller needs.
type Fetcher interface {
	EventStats(ctx context.Context, eventID string) (*domain.StatsSnapshot, error)
	ActiveSessions(ctx context.Context, eventID string) ([]domain.ActiveSession, error)
}

// Callbacks deliver poller results. Invoked from the poller goroutine;
// receivers forward into their own event loop.
type Callbacks struct {
	OnStats    func(domain.StatsSnapshot)
	OnSessions func([]domain.ActiveSession)

	// OnWarning signals a failed reconciliation round. Soft: polling
	// continues, the UI shows an indicator.
	OnWarning func(err error)
	OnHealthy func()
}

// Poller reconciles displayed state against the authoritative API on two
// cadences (stats short, session list long), plus debounced event-triggered
// refreshes.
type Poller struct {
	clock   clockwork.Clock
	fetcher Fetcher
	cb      Callbacks

	mu     sync.Mutex
	cancel context.CancelFunc
	pokeCh chan struct{}
}

func NewPoller(clock clockwork.Clock, fetcher Fetcher, cb Callbacks) *Poller {
	return &Poller{clock: clock, fetcher: fetcher, cb: cb}
}

// Start begins polling for one collection. A second call switches
// collections: the previous run's context is cancelled, killing any
// in-flight fetch, before the new run begins.
func (p *Poller) Start(eventID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.pokeCh = make(chan struct{}, 16)

	go p.run(ctx, eventID, p.pokeCh)
}

// Stop cancels the active run, if any.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Poke requests a debounced stats refresh. Never blocks.
func (p *Poller) Poke() {
	p.mu.Lock()
	ch := p.pokeCh
	p.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (p *Poller) run(ctx context.Context, eventID string, pokeCh chan struct{}) {
	statsTicker := p.clock.NewTicker(statsPollInterval)
	defer statsTicker.Stop()
	sessionsTicker := p.clock.NewTicker(sessionsPollInterval)
	defer sessionsTicker.Stop()

	// Initial round so the dashboard is populated right away.
	p.fetchStats(ctx, eventID)
	p.fetchSessions(ctx, eventID)

	var debounce clockwork.Timer

	for {
		select {
		case <-ctx.Done():
			return

		case <-statsTicker.Chan():
			p.fetchStats(ctx, eventID)

		case <-sessionsTicker.Chan():
			p.fetchSessions(ctx, eventID)

		case <-pokeCh:
			// Trailing edge: every poke re-arms the timer.
			if debounce == nil {
				debounce = p.clock.NewTimer(DebounceWindow)
			} else {
				debounce.Reset(DebounceWindow)
			}

		case <-timerChan(debounce):
			p.fetchStats(ctx, eventID)
		}
	}
}

// timerChan tolerates a nil timer: selecting on a nil channel blocks, which
// is exactly what we want before the first poke arrives.
func timerChan(t clockwork.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.Chan()
}

var pollRetryPolicy = retry.Policy{
	MaxAttempts:      3,
	InitialBackoff:   500 * time.Millisecond,
	RateLimitBackoff: 5 * time.Second,
}

// classifyPollError stops on cancellation and credential problems,
// retries everything else.
func classifyPollError(err error) retry.Action {
	if errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrInvalidCredential) {
		return retry.Stop
	}
	return retry.Retry
}

func (p *Poller) fetchStats(ctx context.Context, eventID string) {
	snapshot, err := retry.Do(ctx, pollRetryPolicy, classifyPollError, func() (*domain.StatsSnapshot, error) {
		return p.fetcher.EventStats(ctx, eventID)
	})
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("Stats reconciliation failed", "event_id", eventID, "error", err)
			p.warn(err)
		}
		return
	}
	p.healthy()
	if p.cb.OnStats != nil {
		p.cb.OnStats(*snapshot)
	}
}

func (p *Poller) fetchSessions(ctx context.Context, eventID string) {
	sessions, err := retry.Do(ctx, pollRetryPolicy, classifyPollError, func() ([]domain.ActiveSession, error) {
		return p.fetcher.ActiveSessions(ctx, eventID)
	})
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("Session list reconciliation failed", "event_id", eventID, "error", err)
			p.warn(err)
		}
		return
	}
	p.healthy()
	if p.cb.OnSessions != nil {
		p.cb.OnSessions(sessions)
	}
}

func (p *Poller) warn(err error) {
	if p.cb.OnWarning != nil {
		p.cb.OnWarning(err)
	}
}

func (p *Poller) healthy() {
	if p.cb.OnHealthy != nil {
		p.cb.OnHealthy()
	}
}
