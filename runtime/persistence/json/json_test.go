package json

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/AltairaLabs/PromptKiosk/pkg/errors"
	"github.com/AltairaLabs/PromptKiosk/runtime/persistence"
	"github.com/AltairaLabs/PromptKiosk/runtime/transcript"
)

func sample(ts int64, texts ...string) transcript.StoredTranscript {
	st := transcript.StoredTranscript{Date: time.Unix(ts, 0).UTC()}
	for i, text := range texts {
		sender := transcript.SenderUser
		if i%2 == 0 {
			sender = transcript.SenderAI
		}
		st.Messages = append(st.Messages, transcript.Message{ID: ts*10 + int64(i), Sender: sender, Text: text})
	}
	return st
}

func TestBackend_MissingFileIsEmpty(t *testing.T) {
	b := New(t.TempDir(), "")
	assert.Equal(t, persistence.DefaultKey+".json", filepath.Base(b.Path()))

	list, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBackend_PrependNewestFirst(t *testing.T) {
	ctx := context.Background()
	b := New(filepath.Join(t.TempDir(), "nested"), "kiosk")

	require.NoError(t, b.Prepend(ctx, sample(100, "Hello!", "hi")))
	require.NoError(t, b.Prepend(ctx, sample(200, "Hello!", "bye")))

	list, err := b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, time.Unix(200, 0).UTC(), list[0].Date)
	assert.Equal(t, "bye", list[0].Messages[1].Text)
	assert.Equal(t, time.Unix(100, 0).UTC(), list[1].Date)

	info, err := os.Stat(b.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(filePerm), info.Mode().Perm())
}

func TestBackend_InvalidContent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := New(dir, "k")

	require.NoError(t, os.WriteFile(b.Path(), []byte(`[{"date":"x","messages":[{"id":1,"sender":"robot","text":"?"}]}]`), 0o600))

	_, err := b.Load(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrStorage))
	assert.True(t, errors.Is(err, ErrInvalidContent))

	require.NoError(t, b.Prepend(ctx, sample(1, "a", "b")))
	list, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = os.Stat(b.Path() + CorruptSuffix)
	assert.NoError(t, err)
}

func TestBackend_SaveOverInvalidFileKeepsValidEntries(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	b := New(t.TempDir(), "k", WithLogger(log))

	original := []byte(`[
  {"date":"2025-01-01T09:00:00Z","messages":[{"id":1,"sender":"guest","text":"bad"}]},
  {"date":"2025-01-01T08:00:00Z","messages":[{"id":2,"sender":"ai","text":"Hello!"},{"id":3,"sender":"user","text":"keep me"}]}
]`)
	require.NoError(t, os.WriteFile(b.Path(), original, 0o600))

	store := persistence.NewStore(b, persistence.WithLogger(log))
	require.True(t, store.Save(ctx, time.Unix(300, 0).UTC(), sample(300, "Hello!", "new").Messages))

	list := store.List(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].Messages[1].Text)
	assert.Equal(t, "keep me", list[1].Messages[1].Text)

	aside, err := os.ReadFile(b.Path() + CorruptSuffix)
	require.NoError(t, err)
	assert.Equal(t, original, aside)

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "storage failure")
	assert.Contains(t, out, "kept=1")
}

func TestBackend_MalformedFileIsMovedAside(t *testing.T) {
	ctx := context.Background()
	b := New(t.TempDir(), "k", WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	require.NoError(t, os.WriteFile(b.Path(), []byte(`{not json`), 0o600))

	require.NoError(t, b.Prepend(ctx, sample(1, "a", "b")))
	list, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	aside, err := os.ReadFile(b.Path() + CorruptSuffix)
	require.NoError(t, err)
	assert.Equal(t, `{not json`, string(aside))
}

func TestBackend_ReadFailureSkipsWrite(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	b := New(t.TempDir(), "k")
	require.NoError(t, os.Mkdir(b.Path(), 0o750))

	err := b.Prepend(ctx, sample(1, "a", "b"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrStorage))
	assert.False(t, errors.Is(err, ErrInvalidContent))

	info, err := os.Stat(b.Path())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	store := persistence.NewStore(b, persistence.WithLogger(log))
	assert.False(t, store.Save(ctx, time.Now(), sample(2, "a", "b").Messages))
	assert.Contains(t, buf.String(), "storage failure")
}

func TestBackend_MalformedJSON(t *testing.T) {
	b := New(t.TempDir(), "k")
	require.NoError(t, os.WriteFile(b.Path(), []byte(`{not json`), 0o600))

	_, err := b.Load(context.Background())
	assert.True(t, errors.Is(err, pkgerrors.ErrStorage))
}

func TestBackend_Clear(t *testing.T) {
	ctx := context.Background()
	b := New(t.TempDir(), "k")

	require.NoError(t, b.Clear(ctx))
	require.NoError(t, b.Prepend(ctx, sample(1, "a", "b")))
	require.NoError(t, b.Clear(ctx))

	_, err := os.Stat(b.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestBackend_WithStore(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewStore(New(t.TempDir(), ""))

	assert.False(t, store.Save(ctx, time.Now(), []transcript.Message{{ID: 1, Sender: transcript.SenderAI, Text: "Hello!"}}))
	assert.True(t, store.Save(ctx, time.Now(), sample(5, "Hello!", "Hi").Messages))
	assert.Len(t, store.List(ctx), 1)
}
