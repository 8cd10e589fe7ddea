// Package dashboard holds the client-side presentation logic: the throttled
// message queue, stat tracking, the reconciliation poller and the Bubble Tea
// model tying them together.
package dashboard

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/thorbengrosser/eventheartbeat/internal/domain"
)

const (
	// CoalescingInterval is the fixed delay between successive
	// presentations drawn from the queue, so bursts render as a cadence.
	CoalescingInterval = 100 * time.Millisecond

	// DisplayLifetime is how long one bubble stays visible.
	DisplayLifetime = 6 * time.Second

	// MaxDisplayItems caps concurrently visible bubbles; the oldest is
	// evicted when a new one would exceed it.
	MaxDisplayItems = 8
)

// DisplayItem is one visible bubble. Seq is a local rendering key, strictly
// increasing, unrelated to event identity.
type DisplayItem struct {
	Seq       int64
	Message   domain.CheckinMessage
	CreatedAt time.Time
}

// Queue throttles bursts of check-in messages into a watchable cadence.
// Accepts messages as fast as they arrive; a single drain loop presents one
// per coalescing interval. Each presented item self-destructs after its
// lifetime, independent of the drain loop.
type Queue struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	nextSeq int64
	pending []domain.CheckinMessage
	live    []DisplayItem
	stopCh  chan struct{}
	stopped bool

	// onChange fires outside the drain tick whenever the visible set
	// changes. May be nil.
	onChange func()
}

func NewQueue(clock clockwork.Clock, onChange func()) *Queue {
	q := &Queue{
		clock:    clock,
		stopCh:   make(chan struct{}),
		onChange: onChange,
	}
	go q.drainLoop()
	return q
}

// Enqueue appends a message. Never blocks, never rejects.
func (q *Queue) Enqueue(msg domain.CheckinMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return
	}
	q.pending = append(q.pending, msg)
}

// Items returns a copy of the currently visible bubbles, oldest first.
func (q *Queue) Items() []DisplayItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]DisplayItem, len(q.live))
	copy(out, q.live)
	return out
}

// PendingLen reports how many messages wait behind the drain loop.
func (q *Queue) PendingLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.mu.Unlock()
	close(q.stopCh)
}

func (q *Queue) drainLoop() {
	ticker := q.clock.NewTicker(CoalescingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.Chan():
			q.drainOne()
		}
	}
}

// drainOne presents at most one pending message per tick.
func (q *Queue) drainOne() {
	q.mu.Lock()
	if len(q.pending) == 0 {
		q.mu.Unlock()
		return
	}

	msg := q.pending[0]
	q.pending = q.pending[1:]

	q.nextSeq++
	item := DisplayItem{Seq: q.nextSeq, Message: msg, CreatedAt: q.clock.Now()}
	q.live = append(q.live, item)
	if len(q.live) > MaxDisplayItems {
		q.live = q.live[1:]
	}
	seq := item.Seq
	q.mu.Unlock()

	// Per-item self-destruct, decoupled from the drain cadence.
	q.clock.AfterFunc(DisplayLifetime, func() { q.expire(seq) })

	q.notify()
}

func (q *Queue) expire(seq int64) {
	q.mu.Lock()
	before := len(q.live)
	for i, item := range q.live {
		if item.Seq == seq {
			q.live = append(q.live[:i], q.live[i+1:]...)
			break
		}
	}
	changed := len(q.live) != before
	q.mu.Unlock()

	if changed {
		q.notify()
	}
}

func (q *Queue) notify() {
	if q.onChange != nil {
		q.onChange()
	}
}
