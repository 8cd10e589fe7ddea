package tune

import "sync"

// Sequencer is a stateful cursor over a parsed tune. Advance plays one note
// per check-in and wraps around at the end; a tune with zero notes leaves
// the sequencer silent.
type Sequencer struct {
	mu     sync.Mutex
	notes  []Note
	cursor int
	songID string
}

func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Load parses the tune text and resets the cursor. Returns the number of
// parsed notes; zero means the sequencer stays silent until the next Load.
func (s *Sequencer) Load(songID, text string) int {
	notes := ParseABC(text)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = notes
	s.cursor = 0
	s.songID = songID
	return len(notes)
}

// Advance returns the note at the cursor and moves the cursor one step,
// wrapping modulo the tune length. ok is false while the sequencer is
// silent (no loaded notes); that case performs no state change.
func (s *Sequencer) Advance() (note Note, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.notes) == 0 {
		return Note{}, false
	}

	note = s.notes[s.cursor]
	s.cursor = (s.cursor + 1) % len(s.notes)
	return note, true
}

// Cursor returns the current cursor position.
func (s *Sequencer) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Len returns the number of loaded notes.
func (s *Sequencer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}

// SongID returns the id of the loaded song, or "" when silent.
func (s *Sequencer) SongID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.songID
}
