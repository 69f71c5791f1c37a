// Package persistence stores finished conversations as a newest-first list
// under a single namespaced key.
//
// Backends (json, redis, memory) report failures as errors. Store wraps a
// backend for the kiosk: it never returns errors to callers, logging them as
// ErrStorage and degrading to an empty list or a no-op instead.
package persistence

import (
	"context"
	"log/slog"
	"time"

	pkgerrors "github.com/AltairaLabs/PromptKiosk/pkg/errors"
	"github.com/AltairaLabs/PromptKiosk/runtime/logger"
	"github.com/AltairaLabs/PromptKiosk/runtime/transcript"
)

// DefaultKey is the namespace all transcripts are stored under.
const DefaultKey = "ai-receptionist-transcripts"

const component = "persistence"

// Backend is a transcript storage implementation.
type Backend interface {
	// Load returns all transcripts, newest first.
	Load(ctx context.Context) ([]transcript.StoredTranscript, error)

	// Prepend stores t ahead of all existing transcripts.
	Prepend(ctx context.Context, t transcript.StoredTranscript) error

	// Clear removes every transcript.
	Clear(ctx context.Context) error
}

// Store is the kiosk-facing transcript store.
type Store struct {
	backend Backend
	log     *slog.Logger
	onSaved func()
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default is logger.DefaultLogger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// WithSavedHook is called after each successful Save.
func WithSavedHook(fn func()) Option {
	return func(s *Store) {
		s.onSaved = fn
	}
}

// NewStore wraps backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.DefaultLogger
	}
	s.log = s.log.With("component", component)
	return s
}

// List returns all stored transcripts, newest first. On failure it logs and
// returns an empty list.
func (s *Store) List(ctx context.Context) []transcript.StoredTranscript {
	list, err := s.backend.Load(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "loading transcripts", "error", asStorageError("List", err))
		return []transcript.StoredTranscript{}
	}
	if list == nil {
		list = []transcript.StoredTranscript{}
	}
	return list
}

// Prepend stores t ahead of existing transcripts. Failures are logged.
func (s *Store) Prepend(ctx context.Context, t transcript.StoredTranscript) bool {
	if err := s.backend.Prepend(ctx, t); err != nil {
		s.log.ErrorContext(ctx, "saving transcript", "error", asStorageError("Prepend", err))
		return false
	}
	return true
}

// Clear removes all transcripts. Failures are logged.
func (s *Store) Clear(ctx context.Context) {
	if err := s.backend.Clear(ctx); err != nil {
		s.log.ErrorContext(ctx, "clearing transcripts", "error", asStorageError("Clear", err))
	}
}

// ShouldPersist reports whether a conversation is worth keeping. A
// conversation holding only the greeting (or nothing) is not.
func ShouldPersist(messages []transcript.Message) bool {
	return len(messages) > 1
}

// Save persists a finished conversation if ShouldPersist allows it and
// reports whether it was stored.
func (s *Store) Save(ctx context.Context, date time.Time, messages []transcript.Message) bool {
	if !ShouldPersist(messages) {
		s.log.DebugContext(ctx, "conversation too short to save", "messages", len(messages))
		return false
	}
	msgs := make([]transcript.Message, len(messages))
	copy(msgs, messages)

	if !s.Prepend(ctx, transcript.StoredTranscript{Date: date, Messages: msgs}) {
		return false
	}
	s.log.InfoContext(ctx, "conversation saved", "messages", len(msgs))
	if s.onSaved != nil {
		s.onSaved()
	}
	return true
}

func asStorageError(op string, err error) error {
	if pkgerrors.KindOf(err) == pkgerrors.ErrStorage {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.ErrStorage, component, op, err)
}
