// Package audio renders check-in sounds. One process-wide engine owns the
// output device; every caller shares it via Acquire. All public calls are
// non-throwing: when the device is missing or a tone cannot be built, the
// sound is dropped and the pipeline keeps running.
package audio

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

const (
	sampleRate    = beep.SampleRate(44100)
	speakerBuffer = 100 * time.Millisecond
)

// Sink is the terminal of the rendering chain. The default sink is the
// speaker; tests swap in a capturing one.
type Sink interface {
	Play(s beep.Streamer)
}

type speakerSink struct{}

func (speakerSink) Play(s beep.Streamer) { speaker.Play(s) }

// Engine is the shared audio context.
type Engine struct {
	mu    sync.Mutex
	sink  Sink
	ready bool

	instrument     *beep.Buffer
	instrumentBase float64
}

var (
	engineOnce sync.Once
	engine     *Engine
)

// Acquire returns the process-wide engine. The output device is not touched
// until Resume is called.
func Acquire() *Engine {
	engineOnce.Do(func() {
		engine = &Engine{sink: speakerSink{}}
	})
	return engine
}

// Resume opens the output device. Idempotent; called on first user
// interaction so a headless run never probes audio hardware.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ready {
		return
	}
	if err := speaker.Init(sampleRate, sampleRate.N(speakerBuffer)); err != nil {
		slog.Warn("Audio device unavailable, sound disabled", "error", err)
		return
	}
	e.ready = true
}

// SetSink replaces the output sink and marks the engine ready. Test hook.
func (e *Engine) SetSink(s Sink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink = s
	e.ready = true
}

// LoadInstrument reads a WAV sample recorded at baseFrequency. Notes are
// rendered by pitch-shifting this sample; on any failure the engine keeps
// its sine fallback.
func (e *Engine) LoadInstrument(path string, baseFrequency float64) {
	if path == "" || baseFrequency <= 0 {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		slog.Debug("Instrument sample not available, using sine synthesis", "path", path, "error", err)
		return
	}
	defer func() { _ = f.Close() }()

	stream, format, err := wav.Decode(f)
	if err != nil {
		slog.Warn("Failed to decode instrument sample, using sine synthesis", "path", path, "error", err)
		return
	}

	buf := beep.NewBuffer(beep.Format{SampleRate: sampleRate, NumChannels: 2, Precision: 2})
	buf.Append(beep.Resample(4, format.SampleRate, sampleRate, stream))

	e.mu.Lock()
	e.instrument = buf
	e.instrumentBase = baseFrequency
	e.mu.Unlock()

	slog.Info("Instrument sample loaded", "path", path, "base_frequency", baseFrequency)
}

// NoteOptions shape the rendering chain for one note.
type NoteOptions struct {
	EnvelopeEnabled bool
	Attack          time.Duration
	Release         time.Duration
	ReverbEnabled   bool
	ReverbMix       float64
}

// DefaultNoteOptions mirror the dashboard's initial settings.
func DefaultNoteOptions() NoteOptions {
	return NoteOptions{
		EnvelopeEnabled: true,
		Attack:          10 * time.Millisecond,
		Release:         60 * time.Millisecond,
		ReverbEnabled:   true,
		ReverbMix:       0.25,
	}
}

// PlayNote renders one note through tone source, envelope and reverb.
// Silently drops the note when the engine is not ready.
func (e *Engine) PlayNote(frequency float64, duration time.Duration, opts NoteOptions) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready || frequency <= 0 || duration <= 0 {
		return
	}

	n := sampleRate.N(duration)
	src := e.toneSource(frequency, n)
	if src == nil {
		return
	}

	if opts.EnvelopeEnabled {
		src = newEnvelope(src, n, sampleRate.N(opts.Attack), sampleRate.N(opts.Release))
	}
	if opts.ReverbEnabled {
		src = newReverb(src, sampleRate, opts.ReverbMix)
	}

	e.sink.Play(src)
}

// Pulse plays the fixed heartbeat cue used in simple mode.
func (e *Engine) Pulse() {
	e.PlayNote(880, 120*time.Millisecond, NoteOptions{
		EnvelopeEnabled: true,
		Attack:          5 * time.Millisecond,
		Release:         80 * time.Millisecond,
	})
}

// toneSource prefers the pitched instrument sample, falling back to sine
// synthesis. Callers hold e.mu.
func (e *Engine) toneSource(frequency float64, samples int) beep.Streamer {
	if e.instrument != nil {
		src := e.instrument.Streamer(0, e.instrument.Len())
		pitched := beep.ResampleRatio(4, frequency/e.instrumentBase, src)
		return beep.Take(samples, pitched)
	}

	tone, err := generators.SineTone(sampleRate, frequency)
	if err != nil {
		slog.Debug("Tone frequency out of range, dropping note", "frequency", frequency, "error", err)
		return nil
	}
	return beep.Take(samples, tone)
}
