// Package transcript assembles streamed speech transcriptions into
// conversation messages and defines the stored transcript format.
package transcript

import (
	"strings"
	"sync"
	"time"
)

// Sender identifies who produced a message.
type Sender string

// Message senders.
const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Message is one finalized utterance.
type Message struct {
	ID     int64  `json:"id" yaml:"id"`
	Sender Sender `json:"sender" yaml:"sender"`
	Text   string `json:"text" yaml:"text"`
}

// StoredTranscript is a persisted conversation.
type StoredTranscript struct {
	Date     time.Time `json:"date" yaml:"date"`
	Messages []Message `json:"messages" yaml:"messages"`
}

// IDSequence issues strictly increasing message ids. It is seeded from the
// wall clock in milliseconds so ids stay unique across conversations.
type IDSequence struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDSequence returns a sequence seeded from time.Now.
func NewIDSequence() *IDSequence {
	return &IDSequence{now: time.Now}
}

// Next returns an id greater than every id returned before.
func (s *IDSequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.now().UnixMilli()
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}

// Assembler accumulates transcription fragments for the current turn.
//
// Fragments are appended in arrival order. On turn completion the user's
// text is emitted before the model's, each only if non-empty after
// trimming, and both accumulators are cleared.
type Assembler struct {
	ids *IDSequence

	mu   sync.Mutex
	user strings.Builder
	ai   strings.Builder
}

// NewAssembler creates an Assembler drawing ids from ids.
func NewAssembler(ids *IDSequence) *Assembler {
	if ids == nil {
		ids = NewIDSequence()
	}
	return &Assembler{ids: ids}
}

// AddInput appends a fragment of the user's speech.
func (a *Assembler) AddInput(fragment string) {
	a.mu.Lock()
	a.user.WriteString(fragment)
	a.mu.Unlock()
}

// AddOutput appends a fragment of the model's speech.
func (a *Assembler) AddOutput(fragment string) {
	a.mu.Lock()
	a.ai.WriteString(fragment)
	a.mu.Unlock()
}

// Pending returns the untrimmed text accumulated so far.
func (a *Assembler) Pending() (user, ai string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user.String(), a.ai.String()
}

// CompleteTurn emits the finished messages of the turn and resets.
func (a *Assembler) CompleteTurn() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []Message
	if text := strings.TrimSpace(a.user.String()); text != "" {
		out = append(out, Message{ID: a.ids.Next(), Sender: SenderUser, Text: text})
	}
	if text := strings.TrimSpace(a.ai.String()); text != "" {
		out = append(out, Message{ID: a.ids.Next(), Sender: SenderAI, Text: text})
	}
	a.user.Reset()
	a.ai.Reset()
	return out
}
