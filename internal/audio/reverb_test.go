package audio

import (
	"testing"

	"github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A low sample rate keeps the comb delay lines short in tests.
const testReverbRate = beep.SampleRate(1000)

func reverbTail() int {
	longest := 0
	for _, d := range combDelays {
		if n := testReverbRate.N(d); n > longest {
			longest = n
		}
	}
	return longest * 8
}

func TestReverb_DryPassthroughAtZeroWet(t *testing.T) {
	src := &constStreamer{remaining: 50, value: 0.5}
	r := newReverb(src, testReverbRate, 0)

	out := drain(t, r, 50+reverbTail())
	require.GreaterOrEqual(t, len(out), 50)

	for i := 0; i < 50; i++ {
		assert.Equal(t, 0.5, out[i], "sample %d", i)
	}
}

func TestReverb_WetMixIsClamped(t *testing.T) {
	src := &constStreamer{remaining: 10, value: 1}
	r := newReverb(src, testReverbRate, 5)

	out := drain(t, r, 10+reverbTail())
	require.NotEmpty(t, out)

	// With the mix clamped to 1 the first sample is pure (still silent)
	// echo; an unclamped mix would send it negative.
	assert.Equal(t, 0.0, out[0])
	for _, v := range out {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestReverb_TailRingsOutAfterSource(t *testing.T) {
	srcLen := 10
	src := &constStreamer{remaining: srcLen, value: 1}
	r := newReverb(src, testReverbRate, 0.5)

	out := drain(t, r, srcLen+reverbTail()+100)
	assert.Len(t, out, srcLen+reverbTail())

	echoed := false
	for _, v := range out[srcLen:] {
		if v != 0 {
			echoed = true
			break
		}
	}
	assert.True(t, echoed, "tail should carry comb echoes of the source")
}

func TestComb_DelaysAndFeedsBack(t *testing.T) {
	c := &comb{buf: make([][2]float64, 3), feedback: 0.5}

	// Impulse in, then silence.
	assert.Equal(t, [2]float64{}, c.process([2]float64{1, 1}))
	assert.Equal(t, [2]float64{}, c.process([2]float64{}))
	assert.Equal(t, [2]float64{}, c.process([2]float64{}))

	// The impulse emerges one delay period later, then decays by the
	// feedback factor each round trip.
	assert.Equal(t, [2]float64{1, 1}, c.process([2]float64{}))
	assert.Equal(t, [2]float64{}, c.process([2]float64{}))
	assert.Equal(t, [2]float64{}, c.process([2]float64{}))
	assert.Equal(t, [2]float64{0.5, 0.5}, c.process([2]float64{}))
}
