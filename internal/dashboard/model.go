package dashboard

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"

	"github.com/thorbengrosser/eventheartbeat/internal/audio"
	"github.com/thorbengrosser/eventheartbeat/internal/client"
	"github.com/thorbengrosser/eventheartbeat/internal/domain"
	"github.com/thorbengrosser/eventheartbeat/internal/tune"
)

// How many resource ids of one poke get resolved into display messages.
// The rest still count toward the increments.
const maxResolvedPerPoke = 3

// --- internal messages ---

type repaintMsg struct{}

type statsSnapshotMsg struct{ Snapshot domain.StatsSnapshot }

type sessionListMsg struct{ Sessions []domain.ActiveSession }

type pollWarningMsg struct{ Err error }

type pollHealthyMsg struct{}

type resolvedCheckinMsg struct {
	ResourceID string
	Message    domain.CheckinMessage
}

type resolveFailedMsg struct{ ResourceID string }

// Model is the root Bubble Tea model of the live dashboard.
type Model struct {
	ws   *client.WSClient
	http *client.HTTPClient

	ctx    context.Context
	cancel context.CancelFunc

	queue     *Queue
	stats     *StatsTracker
	poller    *Poller
	dedup     *Dedup
	sequencer *tune.Sequencer
	sound     *audio.Engine
	settings  Settings

	// updates pumps poller/queue callbacks into the tea loop.
	updates chan tea.Msg

	keys   KeyMap
	width  int
	height int

	eventID   string
	eventName string
	sessions  []domain.ActiveSession

	connected   bool
	degraded    bool
	lastWarning string
	songName    string
}

// New wires the dashboard for one event. The song text is loaded into the
// sequencer before the first note plays.
func New(ws *client.WSClient, httpc *client.HTTPClient, clock clockwork.Clock, eventID, eventName string) *Model {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Model{
		ws:        ws,
		http:      httpc,
		ctx:       ctx,
		cancel:    cancel,
		stats:     NewStatsTracker(),
		dedup:     NewDedup(dedupWindow),
		sequencer: tune.NewSequencer(),
		sound:     audio.Acquire(),
		settings:  DefaultSettings(),
		updates:   make(chan tea.Msg, 64),
		keys:      DefaultKeyMap(),
		eventID:   eventID,
		eventName: eventName,
	}

	m.queue = NewQueue(clock, func() {
		select {
		case m.updates <- repaintMsg{}:
		default:
		}
	})

	m.poller = NewPoller(clock, httpc, Callbacks{
		OnStats:    func(s domain.StatsSnapshot) { m.push(statsSnapshotMsg{Snapshot: s}) },
		OnSessions: func(s []domain.ActiveSession) { m.push(sessionListMsg{Sessions: s}) },
		OnWarning:  func(err error) { m.push(pollWarningMsg{Err: err}) },
		OnHealthy:  func() { m.push(pollHealthyMsg{}) },
	})

	return m
}

func (m *Model) push(msg tea.Msg) {
	select {
	case m.updates <- msg:
	default:
	}
}

// waitForUpdate is the channel pump: one pending callback message per Cmd.
func (m *Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg { return <-m.updates }
}

func (m *Model) Init() tea.Cmd {
	_ = m.ws.SetCollection(m.eventID)
	m.poller.Start(m.eventID)
	return tea.Batch(
		m.ws.Listen(m.ctx),
		m.waitForUpdate(),
		m.loadSong(m.settings.SongID),
		m.registerWebhook(),
	)
}

// registerWebhook points the platform's check-in webhook at the server.
// Failure is survivable: polling still reconciles the counters, so it only
// surfaces as a warning.
func (m *Model) registerWebhook() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, 30*time.Second)
		defer cancel()
		if err := m.http.RegisterWebhook(ctx, m.eventID); err != nil {
			return pollWarningMsg{Err: fmt.Errorf("webhook registration: %w", err)}
		}
		return nil
	}
}

type songLoadedMsg struct {
	SongID string
	Name   string
	Notes  int
}

func (m *Model) loadSong(songID string) tea.Cmd {
	return func() tea.Msg {
		text, err := m.http.SongText(m.ctx, songID)
		if err != nil {
			return pollWarningMsg{Err: err}
		}
		count := m.sequencer.Load(songID, text)
		name := tune.Title(text)
		if name == "" {
			name = songID
		}
		return songLoadedMsg{SongID: songID, Name: name, Notes: count}
	}
}

// cycleSong switches to the song after current in the server's listing,
// wrapping at the end. The setting only changes once the new text is loaded.
func (m *Model) cycleSong(current string) tea.Cmd {
	return func() tea.Msg {
		list, err := m.http.Songs(m.ctx)
		if err != nil {
			return pollWarningMsg{Err: err}
		}
		if len(list) == 0 {
			return nil
		}
		next := list[0].ID
		for i, s := range list {
			if s.ID == current {
				next = list[(i+1)%len(list)].ID
				break
			}
		}
		return m.loadSong(next)()
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case client.ConnectedMsg:
		m.connected = true
		m.degraded = false
		return m, m.ws.ReadLoop(m.ctx)

	case client.DisconnectedMsg:
		m.connected = false
		return m, m.ws.Listen(m.ctx)

	case client.DegradedMsg:
		m.connected = false
		m.degraded = true
		return m, m.ws.Listen(m.ctx)

	case client.SubscribedMsg:
		return m, m.ws.ReadLoop(m.ctx)

	case client.CheckinMsg:
		m.handleCheckin(msg.Event.ResourceID, msg.Event.CheckinType, &domain.CheckinMessage{
			Message:     msg.Event.Message,
			EventType:   msg.Event.EventType,
			CheckinType: msg.Event.CheckinType,
			SessionID:   msg.Event.SessionID,
		})
		return m, m.ws.ReadLoop(m.ctx)

	case client.PokeMsg:
		cmds := m.handlePoke(msg.Poke)
		cmds = append(cmds, m.ws.ReadLoop(m.ctx))
		return m, tea.Batch(cmds...)

	case client.ServerErrorMsg:
		m.lastWarning = msg.Message
		return m, m.ws.ReadLoop(m.ctx)

	case resolvedCheckinMsg:
		if m.settings.ShowBubbles {
			m.queue.Enqueue(msg.Message)
		}
		return m, nil

	case resolveFailedMsg:
		// Already counted via the poke path; nothing to show.
		return m, nil

	case statsSnapshotMsg:
		m.stats.ApplySnapshot(msg.Snapshot)
		return m, m.waitForUpdate()

	case sessionListMsg:
		m.sessions = msg.Sessions
		return m, m.waitForUpdate()

	case pollWarningMsg:
		m.lastWarning = msg.Err.Error()
		return m, m.waitForUpdate()

	case pollHealthyMsg:
		m.lastWarning = ""
		return m, m.waitForUpdate()

	case songLoadedMsg:
		m.settings.SongID = msg.SongID
		m.songName = msg.Name
		return m, nil

	case repaintMsg:
		return m, m.waitForUpdate()
	}

	return m, nil
}

// handleCheckin runs the per-logical-event pipeline: dedup, counters,
// bubble, sound. msg may be nil when only the counter should move.
func (m *Model) handleCheckin(resourceID string, kind domain.CheckinType, msg *domain.CheckinMessage) {
	if !m.dedup.Observe(resourceID) {
		return
	}

	m.stats.RecordCheckin(kind)

	if msg != nil && m.settings.ShowBubbles {
		m.queue.Enqueue(*msg)
	}

	m.playSound()
}

// handlePoke counts every resource id (deduplicated) and resolves the first
// few into display messages. The poller gets a debounced refresh request.
func (m *Model) handlePoke(poke domain.Poke) []tea.Cmd {
	m.poller.Poke()

	var cmds []tea.Cmd
	resolved := 0
	for _, id := range poke.ResourceIDs {
		if !m.dedup.Observe(id) {
			continue
		}
		// The poke does not carry the check-in kind; counted as event
		// level until the next snapshot corrects it.
		m.stats.RecordCheckin(domain.CheckinTypeEvent)
		m.playSound()

		if resolved < maxResolvedPerPoke {
			resolved++
			cmds = append(cmds, m.resolveCheckin(id))
		}
	}
	return cmds
}

func (m *Model) resolveCheckin(resourceID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, 10*time.Second)
		defer cancel()

		message, err := m.http.CheckinMessage(ctx, m.eventID, resourceID)
		if err != nil {
			return resolveFailedMsg{ResourceID: resourceID}
		}
		return resolvedCheckinMsg{ResourceID: resourceID, Message: *message}
	}
}

func (m *Model) playSound() {
	if !m.settings.SoundEnabled {
		return
	}

	if m.settings.Mode == ModePulse {
		m.sound.Pulse()
		return
	}

	note, ok := m.sequencer.Advance()
	if !ok {
		return
	}
	m.sound.PlayNote(note.Frequency, note.Duration, audio.NoteOptions{
		EnvelopeEnabled: m.settings.EnvelopeEnabled,
		Attack:          10 * time.Millisecond,
		Release:         60 * time.Millisecond,
		ReverbEnabled:   m.settings.ReverbEnabled,
		ReverbMix:       m.settings.ReverbMix,
	})
}

// Close tears down everything the model owns.
func (m *Model) Close() {
	m.cancel()
	m.poller.Stop()
	m.queue.Stop()
	m.ws.Close()
}
