package tune

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// Fallbacks for missing or malformed headers.
	defaultNoteLength = 0.125 // L:1/8
	defaultTempoBPM   = 120   // quarter notes per minute
)

// Note is one playable step of a parsed tune.
type Note struct {
	// Name is the ABC spelling, e.g. "E", "^f'", kept for display.
	Name string
	// Frequency in Hz.
	Frequency float64
	// Duration of the note at the tune's tempo.
	Duration time.Duration
}

// semitone offsets of the natural notes within one octave, C = 0.
var naturalOffsets = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// ParseABC parses tune text into notes. Header lines ("X:", "T:", "L:",
// "Q:", ...) are consumed up to and including "K:"; after that, everything
// that does not look like a note is skipped. A malformed or empty tune
// yields zero notes, never an error: the sequencer treats that as silence.
func ParseABC(text string) []Note {
	headers, body := splitHeaders(text)

	noteLength := defaultNoteLength
	if l, ok := headers["L"]; ok {
		if v, ok := parseFraction(l); ok && v > 0 {
			noteLength = v
		}
	}

	tempo := float64(defaultTempoBPM)
	beatLength := 0.25
	if q, ok := headers["Q"]; ok {
		if t, beat, ok := parseTempo(q); ok {
			tempo, beatLength = t, beat
		}
	}

	// Seconds per whole note at this tempo.
	wholeNote := 60.0 / tempo / beatLength

	return parseBody(body, noteLength, wholeNote)
}

// Title returns the tune's T: header, or "" if absent.
func Title(text string) string {
	headers, _ := splitHeaders(text)
	return headers["T"]
}

// splitHeaders separates ABC header lines from the tune body. The body
// starts after the key line ("K:") per the ABC convention; if no key line
// exists, any line that is not letter-colon shaped counts as body.
func splitHeaders(text string) (map[string]string, string) {
	headers := make(map[string]string)
	var body strings.Builder

	inBody := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "%") {
			continue
		}

		if !inBody && len(trimmed) >= 2 && trimmed[1] == ':' && isHeaderField(trimmed[0]) {
			field := strings.ToUpper(string(trimmed[0]))
			headers[field] = strings.TrimSpace(trimmed[2:])
			if field == "K" {
				inBody = true
			}
			continue
		}

		inBody = true
		body.WriteString(trimmed)
		body.WriteByte('\n')
	}

	return headers, body.String()
}

func isHeaderField(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// parseFraction parses "1/8" or "0.125" style values.
func parseFraction(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(strings.TrimSpace(num), 64)
		d, err2 := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0, false
		}
		return n / d, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseTempo handles "Q:1/4=120" and the bare "Q:120" shorthand (beats per
// minute on a quarter note).
func parseTempo(s string) (bpm, beatLength float64, ok bool) {
	s = strings.TrimSpace(s)
	beatLength = 0.25

	if beat, rate, found := strings.Cut(s, "="); found {
		b, bok := parseFraction(beat)
		r, err := strconv.ParseFloat(strings.TrimSpace(rate), 64)
		if !bok || err != nil || r <= 0 || b <= 0 {
			return 0, 0, false
		}
		return r, b, true
	}

	r, err := strconv.ParseFloat(s, 64)
	if err != nil || r <= 0 {
		return 0, 0, false
	}
	return r, beatLength, true
}

// parseBody walks the tune body character by character. Unknown characters
// (bars, slurs, decorations, chords symbols) are skipped; rests consume
// their duration syntax but produce no note.
func parseBody(body string, noteLength, wholeNote float64) []Note {
	var notes []Note

	i := 0
	for i < len(body) {
		c := body[i]

		// Accidentals prefix a note.
		accidental := 0
		start := i
		for i < len(body) && (body[i] == '^' || body[i] == '_' || body[i] == '=') {
			switch body[i] {
			case '^':
				accidental++
			case '_':
				accidental--
			}
			i++
		}
		if i >= len(body) {
			break
		}
		c = body[i]

		// Rests: consume duration, emit nothing.
		if c == 'z' || c == 'x' || c == 'Z' {
			i++
			_, i = parseDuration(body, i)
			continue
		}

		upper := c &^ 0x20 // ASCII uppercase
		if _, ok := naturalOffsets[upper]; !ok {
			// Not a note; any dangling accidentals are dropped with it.
			i++
			continue
		}

		// Octave: uppercase letters sit in the middle-C octave, lowercase
		// one above, then ' raises and , lowers.
		octave := 4
		if c >= 'a' && c <= 'z' {
			octave = 5
		}
		nameEnd := i + 1
		for nameEnd < len(body) && (body[nameEnd] == '\'' || body[nameEnd] == ',') {
			if body[nameEnd] == '\'' {
				octave++
			} else {
				octave--
			}
			nameEnd++
		}

		multiplier, next := parseDuration(body, nameEnd)

		midi := 12*(octave+1) + naturalOffsets[upper] + accidental
		notes = append(notes, Note{
			Name:      body[start:nameEnd],
			Frequency: midiFrequency(midi),
			Duration:  time.Duration(noteLength * multiplier * wholeNote * float64(time.Second)),
		})
		i = next
	}

	return notes
}

// parseDuration reads a duration suffix at position i: "2", "/", "/2",
// "3/2". Returns the multiplier and the next position.
func parseDuration(s string, i int) (float64, int) {
	numStart := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	numerator := 1.0
	if i > numStart {
		numerator, _ = strconv.ParseFloat(s[numStart:i], 64)
	}

	if i < len(s) && s[i] == '/' {
		i++
		denStart := i
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		denominator := 2.0 // bare "/" halves
		if i > denStart {
			denominator, _ = strconv.ParseFloat(s[denStart:i], 64)
		}
		if denominator > 0 {
			return numerator / denominator, i
		}
	}

	return numerator, i
}

func midiFrequency(midi int) float64 {
	return 440 * math.Pow(2, float64(midi-69)/12)
}
