package audio

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// ErrMixerClosed is returned by Start after Close.
var ErrMixerClosed = errors.New("audio: mixer closed")

// Mixer is an Output whose clock is the number of frames rendered.
//
// The speaker callback calls Render with each device buffer; the mixer fills
// it with the sum of all voices overlapping that window and advances its
// clock. Rendering is mono.
type Mixer struct {
	sampleRate int

	mu       sync.Mutex
	position int64
	voices   map[*mixerVoice]struct{}
	closed   bool
}

type mixerVoice struct {
	m          *Mixer
	buf        *Buffer
	startFrame int64
	onEnded    func()
}

// NewMixer creates a mixer clocked at sampleRate.
func NewMixer(sampleRate int) *Mixer {
	return &Mixer{
		sampleRate: sampleRate,
		voices:     make(map[*mixerVoice]struct{}),
	}
}

// SampleRate returns the mixer's clock rate.
func (m *Mixer) SampleRate() int {
	return m.sampleRate
}

// CurrentTime returns the number of seconds rendered so far.
func (m *Mixer) CurrentTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.position) / float64(m.sampleRate)
}

// Start schedules buf at when. Times already rendered start at the current position.
func (m *Mixer) Start(buf *Buffer, when float64, onEnded func()) (Voice, error) {
	if buf == nil {
		return nil, errors.New("audio: nil buffer")
	}
	if buf.SampleRate != m.sampleRate {
		return nil, fmt.Errorf("audio: buffer rate %d does not match mixer rate %d", buf.SampleRate, m.sampleRate)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrMixerClosed
	}

	start := int64(math.Round(when * float64(m.sampleRate)))
	if start < m.position {
		start = m.position
	}
	v := &mixerVoice{m: m, buf: buf, startFrame: start, onEnded: onEnded}
	m.voices[v] = struct{}{}
	return v, nil
}

// Stop removes the voice from the mix.
func (v *mixerVoice) Stop() {
	v.m.mu.Lock()
	delete(v.m.voices, v)
	v.m.mu.Unlock()
}

// Render mixes the next len(out) frames into out and advances the clock.
// Ended callbacks run after the mixer lock is released.
func (m *Mixer) Render(out []float32) {
	var ended []func()

	m.mu.Lock()
	for i := range out {
		out[i] = 0
	}
	if !m.closed {
		windowStart := m.position
		windowEnd := windowStart + int64(len(out))

		for v := range m.voices {
			frames := int64(v.buf.Frames())
			voiceEnd := v.startFrame + frames

			from := max(v.startFrame, windowStart)
			to := min(voiceEnd, windowEnd)
			for f := from; f < to; f++ {
				out[f-windowStart] += v.buf.Mono(int(f - v.startFrame))
			}

			if voiceEnd <= windowEnd {
				delete(m.voices, v)
				if v.onEnded != nil {
					ended = append(ended, v.onEnded)
				}
			}
		}
		m.position = windowEnd
	}
	m.mu.Unlock()

	for i, s := range out {
		if s > 1 {
			out[i] = 1
		} else if s < -1 {
			out[i] = -1
		}
	}
	for _, fn := range ended {
		fn()
	}
}

// Pending returns the number of voices not yet fully rendered.
func (m *Mixer) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voices)
}

// Close drops every voice and rejects further Start calls. It is idempotent.
func (m *Mixer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	clear(m.voices)
	return nil
}
