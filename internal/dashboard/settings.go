package dashboard

// SoundMode selects what a check-in sounds like.
type SoundMode int

const (
	// ModePulse plays the same short heartbeat cue for every check-in.
	ModePulse SoundMode = iota
	// ModeTune advances one note through the selected song per check-in.
	ModeTune
)

func (m SoundMode) String() string {
	if m == ModeTune {
		return "tune"
	}
	return "pulse"
}

// Settings are the dashboard toggles. Read at point of use; there is no
// hidden derived state.
type Settings struct {
	SoundEnabled bool
	Mode         SoundMode
	SongID       string

	EnvelopeEnabled bool
	ReverbEnabled   bool
	ReverbMix       float64

	ShowBubbles  bool
	ShowStats    bool
	ShowSessions bool

	Theme string
}

// DefaultSettings match a first launch: sound off until the user opts in
// (output devices need a deliberate resume), everything visible.
func DefaultSettings() Settings {
	return Settings{
		SoundEnabled:    false,
		Mode:            ModeTune,
		SongID:          "ode_to_joy.abc",
		EnvelopeEnabled: true,
		ReverbEnabled:   true,
		ReverbMix:       0.25,
		ShowBubbles:     true,
		ShowStats:       true,
		ShowSessions:    true,
		Theme:           "dark",
	}
}
