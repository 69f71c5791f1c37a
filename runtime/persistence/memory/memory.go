// Package memory provides an in-memory transcript backend for tests and
// kiosks that should not keep history across restarts.
package memory

import (
	"context"
	"sync"

	"github.com/AltairaLabs/PromptKiosk/runtime/persistence"
	"github.com/AltairaLabs/PromptKiosk/runtime/transcript"
)

var _ persistence.Backend = (*Backend)(nil)

// Backend keeps transcripts in a slice, newest first.
type Backend struct {
	mu   sync.Mutex
	list []transcript.StoredTranscript
}

// New creates an empty backend.
func New() *Backend {
	return &Backend{}
}

// Load returns a copy of the stored list.
func (b *Backend) Load(_ context.Context) ([]transcript.StoredTranscript, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]transcript.StoredTranscript, len(b.list))
	copy(out, b.list)
	return out, nil
}

// Prepend stores t first.
func (b *Backend) Prepend(_ context.Context, t transcript.StoredTranscript) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.list = append([]transcript.StoredTranscript{t}, b.list...)
	return nil
}

// Clear empties the list.
func (b *Backend) Clear(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.list = nil
	return nil
}
