package dashboard

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedup_ObserveOnce(t *testing.T) {
	d := NewDedup(4)

	assert.True(t, d.Observe("a"))
	assert.False(t, d.Observe("a"))
	assert.True(t, d.Observe("b"))
	assert.False(t, d.Observe("a"))
}

func TestDedup_EmptyIDNeverDeduplicated(t *testing.T) {
	d := NewDedup(4)
	assert.True(t, d.Observe(""))
	assert.True(t, d.Observe(""))
}

func TestDedup_EvictsOldest(t *testing.T) {
	d := NewDedup(3)

	for _, id := range []string{"a", "b", "c"} {
		assert.True(t, d.Observe(id))
	}

	// "d" pushes "a" out of the window.
	assert.True(t, d.Observe("d"))
	assert.True(t, d.Observe("a"))
	assert.False(t, d.Observe("c"))
}

func TestDedup_DefaultWindow(t *testing.T) {
	d := NewDedup(0)

	for i := 0; i < dedupWindow; i++ {
		assert.True(t, d.Observe(fmt.Sprintf("id-%d", i)))
	}
	assert.False(t, d.Observe("id-0"))

	// One past the window evicts the oldest.
	assert.True(t, d.Observe("overflow"))
	assert.True(t, d.Observe("id-0"))
}
