package audio

import "github.com/gopxl/beep/v2"

// envelope applies a linear attack ramp at the start and a release ramp at
// the end of a fixed-length streamer, removing the clicks a raw tone edge
// produces.
type envelope struct {
	src     beep.Streamer
	length  int
	attack  int
	release int
	pos     int
}

func newEnvelope(src beep.Streamer, length, attack, release int) beep.Streamer {
	if attack < 1 {
		attack = 1
	}
	if release < 1 {
		release = 1
	}
	return &envelope{src: src, length: length, attack: attack, release: release}
}

func (e *envelope) Stream(samples [][2]float64) (int, bool) {
	n, ok := e.src.Stream(samples)
	for i := 0; i < n; i++ {
		gain := 1.0
		if e.pos < e.attack {
			gain = float64(e.pos) / float64(e.attack)
		}
		if remaining := e.length - e.pos; remaining < e.release {
			if g := float64(remaining) / float64(e.release); g < gain {
				gain = g
			}
		}
		samples[i][0] *= gain
		samples[i][1] *= gain
		e.pos++
	}
	return n, ok
}

func (e *envelope) Err() error { return e.src.Err() }
