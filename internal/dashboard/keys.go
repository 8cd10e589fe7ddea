package dashboard

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the dashboard's keyboard bindings.
type KeyMap struct {
	Quit      key.Binding
	Sound     key.Binding
	Mode      key.Binding
	NextSong  key.Binding
	Envelope  key.Binding
	Reverb    key.Binding
	MixUp     key.Binding
	MixDown   key.Binding
	Bubbles   key.Binding
	Stats     key.Binding
	Sessions  key.Binding
	TestSound key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Sound: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sound on/off"),
		),
		Mode: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "pulse/tune"),
		),
		NextSong: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next song"),
		),
		Envelope: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "envelope"),
		),
		Reverb: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reverb"),
		),
		MixUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "wetter reverb"),
		),
		MixDown: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "drier reverb"),
		),
		Bubbles: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "bubbles"),
		),
		Stats: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "stats"),
		),
		Sessions: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "sessions"),
		),
		TestSound: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "test note"),
		),
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Sound):
		m.settings.SoundEnabled = !m.settings.SoundEnabled
		if m.settings.SoundEnabled {
			// Output devices want a deliberate user gesture.
			m.sound.Resume()
		}

	case key.Matches(msg, m.keys.Mode):
		if m.settings.Mode == ModePulse {
			m.settings.Mode = ModeTune
		} else {
			m.settings.Mode = ModePulse
		}

	case key.Matches(msg, m.keys.NextSong):
		return m, m.cycleSong(m.settings.SongID)

	case key.Matches(msg, m.keys.Envelope):
		m.settings.EnvelopeEnabled = !m.settings.EnvelopeEnabled

	case key.Matches(msg, m.keys.Reverb):
		m.settings.ReverbEnabled = !m.settings.ReverbEnabled

	case key.Matches(msg, m.keys.MixUp):
		m.settings.ReverbMix = clampMix(m.settings.ReverbMix + 0.05)

	case key.Matches(msg, m.keys.MixDown):
		m.settings.ReverbMix = clampMix(m.settings.ReverbMix - 0.05)

	case key.Matches(msg, m.keys.Bubbles):
		m.settings.ShowBubbles = !m.settings.ShowBubbles

	case key.Matches(msg, m.keys.Stats):
		m.settings.ShowStats = !m.settings.ShowStats

	case key.Matches(msg, m.keys.Sessions):
		m.settings.ShowSessions = !m.settings.ShowSessions

	case key.Matches(msg, m.keys.TestSound):
		m.playSound()
	}

	return m, nil
}

func clampMix(mix float64) float64 {
	if mix < 0 {
		return 0
	}
	if mix > 1 {
		return 1
	}
	return mix
}
