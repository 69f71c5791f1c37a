package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/PromptKiosk/runtime/transcript"
)

func TestBackend_PrependLoadClear(t *testing.T) {
	ctx := context.Background()
	b := New()

	older := transcript.StoredTranscript{Date: time.Unix(1, 0)}
	newer := transcript.StoredTranscript{Date: time.Unix(2, 0)}
	require.NoError(t, b.Prepend(ctx, older))
	require.NoError(t, b.Prepend(ctx, newer))

	list, err := b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.Date, list[0].Date)

	// Load returns a copy.
	list[0].Date = time.Unix(99, 0)
	again, _ := b.Load(ctx)
	assert.Equal(t, newer.Date, again[0].Date)

	require.NoError(t, b.Clear(ctx))
	list, err = b.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
