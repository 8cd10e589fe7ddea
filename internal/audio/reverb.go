package audio

import (
	"time"

	"github.com/gopxl/beep/v2"
)

// Schroeder-style reverb: parallel feedback comb filters mixed back into
// the dry signal. The streamer keeps running after the source ends so the
// tail rings out instead of being cut off.
type reverb struct {
	src   beep.Streamer
	wet   float64
	combs []*comb

	srcDone bool
	tail    int
}

// comb delay lengths in milliseconds, mutually prime so their echoes do not
// stack into a metallic ring.
var combDelays = []time.Duration{
	29 * time.Millisecond,
	37 * time.Millisecond,
	41 * time.Millisecond,
	43 * time.Millisecond,
}

const combFeedback = 0.72

func newReverb(src beep.Streamer, sr beep.SampleRate, wet float64) beep.Streamer {
	if wet < 0 {
		wet = 0
	}
	if wet > 1 {
		wet = 1
	}

	combs := make([]*comb, 0, len(combDelays))
	longest := 0
	for _, d := range combDelays {
		n := sr.N(d)
		combs = append(combs, &comb{buf: make([][2]float64, n), feedback: combFeedback})
		if n > longest {
			longest = n
		}
	}

	// Tail long enough for the loudest echo to decay below audibility.
	return &reverb{src: src, wet: wet, combs: combs, tail: longest * 8}
}

func (r *reverb) Stream(samples [][2]float64) (int, bool) {
	var n int
	if !r.srcDone {
		var ok bool
		n, ok = r.src.Stream(samples)
		r.srcDone = !ok
	}

	// Pad with silence while the tail decays.
	if r.srcDone && r.tail > 0 {
		pad := len(samples) - n
		if pad > r.tail {
			pad = r.tail
		}
		for i := n; i < n+pad; i++ {
			samples[i] = [2]float64{}
		}
		r.tail -= pad
		n += pad
	}
	if n == 0 {
		return 0, false
	}

	for i := 0; i < n; i++ {
		dry := samples[i]
		var wet [2]float64
		for _, c := range r.combs {
			out := c.process(dry)
			wet[0] += out[0]
			wet[1] += out[1]
		}
		scale := 1.0 / float64(len(r.combs))
		samples[i][0] = dry[0]*(1-r.wet) + wet[0]*scale*r.wet
		samples[i][1] = dry[1]*(1-r.wet) + wet[1]*scale*r.wet
	}
	return n, true
}

func (r *reverb) Err() error { return r.src.Err() }

// comb is a single feedback comb filter over a fixed delay line.
type comb struct {
	buf      [][2]float64
	pos      int
	feedback float64
}

func (c *comb) process(in [2]float64) [2]float64 {
	delayed := c.buf[c.pos]
	c.buf[c.pos] = [2]float64{
		in[0] + delayed[0]*c.feedback,
		in[1] + delayed[1]*c.feedback,
	}
	c.pos = (c.pos + 1) % len(c.buf)
	return delayed
}
