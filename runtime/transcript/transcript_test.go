package transcript

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedSequence(t time.Time) *IDSequence {
	return &IDSequence{now: func() time.Time { return t }}
}

func TestIDSequence_StrictlyIncreasing(t *testing.T) {
	seq := fixedSequence(time.UnixMilli(1000))

	a, b, c := seq.Next(), seq.Next(), seq.Next()
	assert.Equal(t, int64(1000), a)
	assert.Equal(t, int64(1001), b)
	assert.Equal(t, int64(1002), c)
}

func TestIDSequence_Concurrent(t *testing.T) {
	seq := NewIDSequence()
	var mu sync.Mutex
	seen := map[int64]bool{}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := seq.Next()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 800)
}

func TestAssembler_TurnAssembly(t *testing.T) {
	a := NewAssembler(fixedSequence(time.UnixMilli(5)))

	a.AddInput("Hel")
	a.AddInput("lo ")
	a.AddOutput("Hi")
	a.AddOutput(" there")

	msgs := a.CompleteTurn()
	require.Len(t, msgs, 2)
	assert.Equal(t, Message{ID: 5, Sender: SenderUser, Text: "Hello"}, msgs[0])
	assert.Equal(t, Message{ID: 6, Sender: SenderAI, Text: "Hi there"}, msgs[1])

	user, ai := a.Pending()
	assert.Empty(t, user)
	assert.Empty(t, ai)
}

func TestAssembler_EmptySidesSkipped(t *testing.T) {
	a := NewAssembler(nil)

	a.AddInput("   ")
	a.AddOutput("Only me")
	msgs := a.CompleteTurn()
	require.Len(t, msgs, 1)
	assert.Equal(t, SenderAI, msgs[0].Sender)

	a.AddInput("just user\n")
	msgs = a.CompleteTurn()
	require.Len(t, msgs, 1)
	assert.Equal(t, SenderUser, msgs[0].Sender)
	assert.Equal(t, "just user", msgs[0].Text)

	assert.Empty(t, a.CompleteTurn())
}

func TestAssembler_ClearsEachTurn(t *testing.T) {
	a := NewAssembler(nil)

	a.AddOutput("first")
	a.CompleteTurn()
	a.AddOutput("second")
	msgs := a.CompleteTurn()

	require.Len(t, msgs, 1)
	assert.Equal(t, "second", msgs[0].Text)
}

func TestStoredTranscript_JSONShape(t *testing.T) {
	st := StoredTranscript{
		Date:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Messages: []Message{{ID: 1, Sender: SenderAI, Text: "Hello!"}},
	}
	raw, err := json.Marshal(st)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2025-03-01T12:00:00Z","messages":[{"id":1,"sender":"ai","text":"Hello!"}]}`, string(raw))
}
