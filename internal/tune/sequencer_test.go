package tune

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fourNotes = "L:1/4\nK:C\nC D E F"

func TestSequencer_WrapsAround(t *testing.T) {
	s := NewSequencer()
	require.Equal(t, 4, s.Load("scale.abc", fourNotes))

	var names []string
	for n := 0; n < 5; n++ {
		note, ok := s.Advance()
		require.True(t, ok)
		names = append(names, note.Name)
	}

	// Five advances on a four-note song replay the first note.
	assert.Equal(t, []string{"C", "D", "E", "F", "C"}, names)
	assert.Equal(t, 1, s.Cursor())
}

func TestSequencer_SilentWhenEmpty(t *testing.T) {
	s := NewSequencer()

	_, ok := s.Advance()
	assert.False(t, ok)
	assert.Equal(t, 0, s.Cursor())

	// A tune that parses to zero notes keeps it silent.
	require.Equal(t, 0, s.Load("empty.abc", "X:1\nK:C\n"))
	_, ok = s.Advance()
	assert.False(t, ok)
}

func TestSequencer_LoadResetsCursor(t *testing.T) {
	s := NewSequencer()
	s.Load("scale.abc", fourNotes)

	s.Advance()
	s.Advance()
	require.Equal(t, 2, s.Cursor())

	s.Load("scale.abc", fourNotes)
	assert.Equal(t, 0, s.Cursor())

	note, ok := s.Advance()
	require.True(t, ok)
	assert.Equal(t, "C", note.Name)
}

func TestSequencer_CursorModuloLength(t *testing.T) {
	s := NewSequencer()
	n := s.Load("scale.abc", fourNotes)

	for i := 0; i < 23; i++ {
		s.Advance()
		assert.Equal(t, (i+1)%n, s.Cursor())
	}
}
