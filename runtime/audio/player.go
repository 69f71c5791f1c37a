package audio

import (
	"errors"
	"sync"
)

// ErrStaleGeneration is returned by ScheduleGeneration when an interrupt
// happened after the caller captured its generation.
var ErrStaleGeneration = errors.New("audio: playback generation superseded by interrupt")

// Voice is one scheduled buffer on an Output.
type Voice interface {
	// Stop silences the voice immediately. It does not trigger the ended callback.
	Stop()
}

// Output is a playback clock that can start buffers at absolute times.
type Output interface {
	// CurrentTime returns the clock position in seconds. It never decreases.
	CurrentTime() float64

	// Start schedules buf to begin at when (seconds on the same clock).
	// onEnded is called once the buffer has played out naturally.
	Start(buf *Buffer, when float64, onEnded func()) (Voice, error)
}

// PlayerObserver receives playback notifications, e.g. for metrics.
type PlayerObserver interface {
	// ChunkScheduled values are in seconds; lead is startAt minus the clock
	// time at scheduling.
	ChunkScheduled(startAt, lead, duration float64)
	Interrupted(stopped int)
}

// Player queues decoded buffers for gapless playback.
//
// Each buffer starts at max(nextStartTime, now) and advances nextStartTime by
// its duration, so back-to-back chunks are contiguous and a late chunk starts
// immediately. Interrupt stops every active voice and resets the queue.
type Player struct {
	out      Output
	observer PlayerObserver

	mu            sync.Mutex
	nextStartTime float64
	nextID        uint64
	voices        map[uint64]Voice
	generation    uint64
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithPlayerObserver registers an observer for scheduling and interrupt events.
func WithPlayerObserver(o PlayerObserver) PlayerOption {
	return func(p *Player) {
		p.observer = o
	}
}

// NewPlayer creates a Player scheduling on out.
func NewPlayer(out Output, opts ...PlayerOption) *Player {
	p := &Player{
		out:    out,
		voices: make(map[uint64]Voice),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Schedule queues buf after everything already scheduled.
func (p *Player) Schedule(buf *Buffer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scheduleLocked(buf)
}

// ScheduleGeneration queues buf only if no interrupt happened since gen was
// read from Generation. Otherwise it returns ErrStaleGeneration.
func (p *Player) ScheduleGeneration(gen uint64, buf *Buffer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.generation {
		return ErrStaleGeneration
	}
	return p.scheduleLocked(buf)
}

func (p *Player) scheduleLocked(buf *Buffer) error {
	now := p.out.CurrentTime()
	startAt := p.nextStartTime
	if now > startAt {
		startAt = now
	}

	id := p.nextID
	p.nextID++

	voice, err := p.out.Start(buf, startAt, func() { p.release(id) })
	if err != nil {
		return err
	}

	duration := buf.Duration()
	p.nextStartTime = startAt + duration
	p.voices[id] = voice

	if p.observer != nil {
		p.observer.ChunkScheduled(startAt, startAt-now, duration)
	}
	return nil
}

// release removes a naturally finished voice. Ids evicted by Interrupt are ignored.
func (p *Player) release(id uint64) {
	p.mu.Lock()
	delete(p.voices, id)
	p.mu.Unlock()
}

// Interrupt stops every active voice, empties the queue and resets the
// scheduling cursor to zero. Buffers scheduled afterwards start at the
// current clock time.
func (p *Player) Interrupt() {
	p.mu.Lock()
	defer p.mu.Unlock()

	stopped := len(p.voices)
	for id, v := range p.voices {
		v.Stop()
		delete(p.voices, id)
	}
	p.nextStartTime = 0
	p.generation++

	if p.observer != nil {
		p.observer.Interrupted(stopped)
	}
}

// Generation returns a counter incremented by every Interrupt.
func (p *Player) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

// Active returns the number of voices scheduled or playing.
func (p *Player) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.voices)
}

// NextStartTime returns the time at which the next buffer would be queued
// if the clock has not caught up with it.
func (p *Player) NextStartTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextStartTime
}
