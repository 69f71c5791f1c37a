package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/AltairaLabs/PromptKiosk/pkg/errors"
	"github.com/AltairaLabs/PromptKiosk/runtime/persistence"
	"github.com/AltairaLabs/PromptKiosk/runtime/transcript"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func transcriptAt(sec int64) transcript.StoredTranscript {
	return transcript.StoredTranscript{
		Date: time.Unix(sec, 0).UTC(),
		Messages: []transcript.Message{
			{ID: sec, Sender: transcript.SenderAI, Text: "Hello! How can I help you today?"},
			{ID: sec + 1, Sender: transcript.SenderUser, Text: "Where is room 4?"},
		},
	}
}

func TestBackend_PrependLoadClear(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	b := New(client)

	require.NoError(t, b.Prepend(ctx, transcriptAt(10)))
	require.NoError(t, b.Prepend(ctx, transcriptAt(20)))

	assert.True(t, mr.Exists(persistence.DefaultKey))

	list, err := b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, time.Unix(20, 0).UTC(), list[0].Date)
	assert.Equal(t, "Where is room 4?", list[0].Messages[1].Text)

	require.NoError(t, b.Clear(ctx))
	assert.False(t, mr.Exists(persistence.DefaultKey))

	list, err = b.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBackend_KeyAndLimit(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	b := New(client, WithKey("lobby"), WithLimit(2))

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, b.Prepend(ctx, transcriptAt(i)))
	}

	items, err := mr.List("lobby")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	list, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(3, 0).UTC(), list[0].Date)
	assert.Equal(t, time.Unix(2, 0).UTC(), list[1].Date)
}

func TestBackend_MalformedEntry(t *testing.T) {
	mr, client := setupTestRedis(t)
	_, err := mr.Lpush(persistence.DefaultKey, "{broken")
	require.NoError(t, err)

	_, err = New(client).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrStorage))
}

func TestBackend_ServerDown(t *testing.T) {
	mr, client := setupTestRedis(t)
	mr.Close()

	b := New(client)
	ctx := context.Background()
	assert.True(t, errors.Is(b.Prepend(ctx, transcriptAt(1)), pkgerrors.ErrStorage))
	_, err := b.Load(ctx)
	assert.True(t, errors.Is(err, pkgerrors.ErrStorage))
	assert.True(t, errors.Is(b.Clear(ctx), pkgerrors.ErrStorage))

	// The kiosk-facing store degrades to an empty list.
	assert.Empty(t, persistence.NewStore(b).List(ctx))
}
