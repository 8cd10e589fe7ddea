package audio

import (
	"testing"

	"github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constStreamer emits a fixed value for a fixed number of samples.
type constStreamer struct {
	remaining int
	value     float64
}

func (c *constStreamer) Stream(samples [][2]float64) (int, bool) {
	if c.remaining <= 0 {
		return 0, false
	}
	n := len(samples)
	if n > c.remaining {
		n = c.remaining
	}
	for i := 0; i < n; i++ {
		samples[i] = [2]float64{c.value, c.value}
	}
	c.remaining -= n
	return n, true
}

func (c *constStreamer) Err() error { return nil }

// drain pulls a streamer to completion and returns the left channel.
func drain(t *testing.T, s beep.Streamer, maxSamples int) []float64 {
	t.Helper()
	var out []float64
	buf := make([][2]float64, 512)
	for len(out) <= maxSamples {
		n, ok := s.Stream(buf)
		for i := 0; i < n; i++ {
			out = append(out, buf[i][0])
		}
		if !ok {
			return out
		}
	}
	t.Fatalf("streamer did not finish within %d samples", maxSamples)
	return nil
}

func TestEnvelope_AttackRampsFromSilence(t *testing.T) {
	src := &constStreamer{remaining: 100, value: 1}
	env := newEnvelope(src, 100, 10, 10)

	out := drain(t, env, 200)
	require.Len(t, out, 100)

	assert.Equal(t, 0.0, out[0])
	assert.InDelta(t, 0.5, out[5], 1e-9)
	assert.InDelta(t, 0.9, out[9], 1e-9)
	assert.Equal(t, 1.0, out[50])
}

func TestEnvelope_ReleaseRampsToSilence(t *testing.T) {
	src := &constStreamer{remaining: 100, value: 1}
	env := newEnvelope(src, 100, 10, 10)

	out := drain(t, env, 200)
	require.Len(t, out, 100)

	assert.InDelta(t, 0.9, out[91], 1e-9)
	assert.InDelta(t, 0.1, out[99], 1e-9)
	assert.Greater(t, out[90], out[95])
}

func TestEnvelope_ClampsDegenerateRamps(t *testing.T) {
	src := &constStreamer{remaining: 10, value: 1}
	env := newEnvelope(src, 10, 0, 0)

	out := drain(t, env, 100)
	require.Len(t, out, 10)

	// Attack and release collapse to a single sample each.
	assert.Equal(t, 0.0, out[0])
	assert.Equal(t, 1.0, out[5])
}
