package persistence_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/PromptKiosk/runtime/persistence"
	"github.com/AltairaLabs/PromptKiosk/runtime/persistence/memory"
	"github.com/AltairaLabs/PromptKiosk/runtime/transcript"
)

type failingBackend struct{ err error }

func (f failingBackend) Load(context.Context) ([]transcript.StoredTranscript, error) {
	return nil, f.err
}
func (f failingBackend) Prepend(context.Context, transcript.StoredTranscript) error { return f.err }
func (f failingBackend) Clear(context.Context) error                                { return f.err }

func msgs(n int) []transcript.Message {
	out := make([]transcript.Message, n)
	for i := range out {
		out[i] = transcript.Message{ID: int64(i + 1), Sender: transcript.SenderAI, Text: "m"}
	}
	return out
}

func TestShouldPersist(t *testing.T) {
	assert.False(t, persistence.ShouldPersist(nil))
	assert.False(t, persistence.ShouldPersist(msgs(1)))
	assert.True(t, persistence.ShouldPersist(msgs(2)))
}

func TestStore_SaveThresholdAndOrder(t *testing.T) {
	ctx := context.Background()
	saved := 0
	store := persistence.NewStore(memory.New(), persistence.WithSavedHook(func() { saved++ }))

	assert.False(t, store.Save(ctx, time.Now(), msgs(1)))
	assert.Empty(t, store.List(ctx))

	first := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)
	require.True(t, store.Save(ctx, first, msgs(2)))
	require.True(t, store.Save(ctx, second, msgs(3)))

	list := store.List(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].Date)
	assert.Len(t, list[0].Messages, 3)
	assert.Equal(t, first, list[1].Date)
	assert.Equal(t, 2, saved)

	store.Clear(ctx)
	assert.Empty(t, store.List(ctx))
}

func TestStore_SaveCopiesMessages(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewStore(memory.New())

	m := msgs(2)
	require.True(t, store.Save(ctx, time.Now(), m))
	m[0].Text = "changed"

	assert.Equal(t, "m", store.List(ctx)[0].Messages[0].Text)
}

func TestStore_FailuresAreLoggedNotReturned(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	store := persistence.NewStore(failingBackend{err: errors.New("disk full")}, persistence.WithLogger(log))

	list := store.List(ctx)
	assert.NotNil(t, list)
	assert.Empty(t, list)
	assert.False(t, store.Save(ctx, time.Now(), msgs(2)))
	store.Clear(ctx)

	out := buf.String()
	assert.Contains(t, out, "storage failure")
	assert.Contains(t, out, "disk full")
	assert.Contains(t, out, "component=persistence")
}
