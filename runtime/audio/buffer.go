package audio

import "time"

// Buffer is decoded audio held as planar float32 channels.
type Buffer struct {
	SampleRate int
	Channels   [][]float32
}

// NewBuffer allocates a silent buffer of the given shape.
func NewBuffer(sampleRate, channels, frames int) *Buffer {
	b := &Buffer{SampleRate: sampleRate, Channels: make([][]float32, channels)}
	for c := range b.Channels {
		b.Channels[c] = make([]float32, frames)
	}
	return b
}

// Frames returns the number of sample frames per channel.
func (b *Buffer) Frames() int {
	if b == nil || len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the playback length in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// DurationTime returns Duration as a time.Duration.
func (b *Buffer) DurationTime() time.Duration {
	return time.Duration(b.Duration() * float64(time.Second))
}

// Mono returns the sample at frame i averaged across channels.
func (b *Buffer) Mono(i int) float32 {
	switch len(b.Channels) {
	case 0:
		return 0
	case 1:
		return b.Channels[0][i]
	}
	var sum float32
	for _, ch := range b.Channels {
		sum += ch[i]
	}
	return sum / float32(len(b.Channels))
}
