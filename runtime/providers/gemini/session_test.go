package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/AltairaLabs/PromptKiosk/pkg/errors"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// fakeLive is a minimal Live API server. It acknowledges setup, records
// inbound frames and runs script with the connection.
type fakeLive struct {
	srv *httptest.Server

	mu       sync.Mutex
	apiKey   string
	setup    map[string]any
	received []map[string]any
}

func newFakeLive(t *testing.T, skipSetupAck bool, script func(conn *websocket.Conn)) *fakeLive {
	t.Helper()
	f := &fakeLive{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.apiKey = r.Header.Get("x-goog-api-key")
		f.mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var setup map[string]any
		if err := conn.ReadJSON(&setup); err != nil {
			return
		}
		f.mu.Lock()
		f.setup = setup
		f.mu.Unlock()

		if skipSetupAck {
			_, _, _ = conn.ReadMessage()
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"setupComplete":{}}`)); err != nil {
			return
		}

		if script != nil {
			go script(conn)
		}
		for {
			var msg map[string]any
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			f.mu.Lock()
			f.received = append(f.received, msg)
			f.mu.Unlock()
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeLive) url() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http")
}

func (f *fakeLive) receivedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

type eventRecorder struct {
	mu     sync.Mutex
	opened int
	events []ServerEvent
	errs   []error
	closed int
}

func (r *eventRecorder) handlers() Handlers {
	return Handlers{
		OnOpen: func() {
			r.mu.Lock()
			r.opened++
			r.mu.Unlock()
		},
		OnEvent: func(ev ServerEvent) {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		},
		OnClose: func() {
			r.mu.Lock()
			r.closed++
			r.mu.Unlock()
		},
	}
}

func (r *eventRecorder) snapshot() (opened int, events []ServerEvent, errs []error, closed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened, append([]ServerEvent(nil), r.events...), append([]error(nil), r.errs...), r.closed
}

func writeText(conn *websocket.Conn, s string) {
	_ = conn.WriteMessage(websocket.TextMessage, []byte(s))
}

func TestConnect_SetupAndEvents(t *testing.T) {
	f := newFakeLive(t, false, func(conn *websocket.Conn) {
		writeText(conn, `{"serverContent":{"inputTranscription":{"text":"hi"}}}`)
		writeText(conn, `not json`)
		writeText(conn, `{"serverContent":{"modelTurn":{"parts":[{"inlineData":{"mimeType":"audio/pcm;rate=24000","data":"AAA="}}]}}}`)
		writeText(conn, `{"serverContent":{"turnComplete":true}}`)
	})

	var decodeErrs int
	var mu sync.Mutex
	client := NewClient("test-key", WithURL(f.url()), WithDecodeErrorHook(func(err error) {
		mu.Lock()
		decodeErrs++
		mu.Unlock()
		assert.True(t, errors.Is(err, pkgerrors.ErrDecode))
	}))
	rec := &eventRecorder{}

	s, err := client.Connect(context.Background(), LiveConfig{SystemInstruction: "Be helpful."}, rec.handlers())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, StateOpen, s.State())
	assert.NotEmpty(t, s.ID())

	require.Eventually(t, func() bool {
		_, events, _, _ := rec.snapshot()
		return len(events) == 3
	}, 2*time.Second, 10*time.Millisecond)

	opened, events, errs, closed := rec.snapshot()
	assert.Equal(t, 1, opened)
	assert.Empty(t, errs)
	assert.Equal(t, 0, closed)
	assert.Equal(t, "hi", events[0].InputTranscript)
	assert.True(t, events[1].ModelTurn)
	require.Len(t, events[1].Audio, 1)
	assert.Equal(t, "AAA=", events[1].Audio[0].Data)
	assert.True(t, events[2].TurnComplete)

	mu.Lock()
	assert.Equal(t, 1, decodeErrs)
	mu.Unlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, "test-key", f.apiKey)
	setup, ok := f.setup["setup"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "models/"+DefaultModel, setup["model"])
	assert.Contains(t, setup, "inputAudioTranscription")
	assert.Contains(t, setup, "outputAudioTranscription")
	gen := setup["generationConfig"].(map[string]any)
	assert.Equal(t, []any{"AUDIO"}, gen["responseModalities"])
}

func TestSendRealtimeInput(t *testing.T) {
	f := newFakeLive(t, false, nil)
	client := NewClient("k", WithURL(f.url()))

	s, err := client.Connect(context.Background(), LiveConfig{}, Handlers{})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SendRealtimeInput(context.Background(), Blob{MimeType: "audio/pcm;rate=16000", Data: "AAA="}))

	require.Eventually(t, func() bool { return f.receivedCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	raw, err := json.Marshal(f.received[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"realtimeInput":{"mediaChunks":[{"mimeType":"audio/pcm;rate=16000","data":"AAA="}]}}`, string(raw))
}

func TestClose_IdempotentAndRejectsSends(t *testing.T) {
	f := newFakeLive(t, false, nil)
	rec := &eventRecorder{}
	client := NewClient("k", WithURL(f.url()))

	s, err := client.Connect(context.Background(), LiveConfig{}, rec.handlers())
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, StateClosed, s.State())

	_, _, errs, closed := rec.snapshot()
	assert.Empty(t, errs)
	assert.Equal(t, 1, closed)

	err = s.SendRealtimeInput(context.Background(), Blob{MimeType: "audio/pcm;rate=16000", Data: "AAA="})
	assert.True(t, errors.Is(err, pkgerrors.ErrSessionClosed))

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("receive loop did not exit")
	}
}

func TestTransportError_FiresErrorThenClose(t *testing.T) {
	f := newFakeLive(t, false, func(conn *websocket.Conn) {
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "overloaded")
		_ = conn.WriteMessage(websocket.CloseMessage, msg)
		_ = conn.Close()
	})

	var order []string
	var mu sync.Mutex
	h := Handlers{
		OnError: func(err error) {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, "error")
			assert.True(t, errors.Is(err, pkgerrors.ErrSessionTransport))
			var ce *pkgerrors.ContextualError
			if assert.True(t, errors.As(err, &ce)) {
				assert.Equal(t, websocket.CloseInternalServerErr, ce.StatusCode)
			}
		},
		OnClose: func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, "close")
		},
	}

	s, err := NewClient("k", WithURL(f.url())).Connect(context.Background(), LiveConfig{}, h)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"error", "close"}, order)
	mu.Unlock()
	assert.Equal(t, StateError, s.State())

	// Close after a transport error does not fire OnClose again.
	require.NoError(t, s.Close())
	mu.Lock()
	assert.Len(t, order, 2)
	mu.Unlock()
}

func TestConnect_Failures(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		_, err := NewClient("").Connect(context.Background(), LiveConfig{}, Handlers{})
		assert.True(t, errors.Is(err, pkgerrors.ErrSessionConnect))
	})

	t.Run("http rejection", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "bad key", http.StatusUnauthorized)
		}))
		defer srv.Close()

		_, err := NewClient("k", WithURL("ws"+strings.TrimPrefix(srv.URL, "http"))).
			Connect(context.Background(), LiveConfig{}, Handlers{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, pkgerrors.ErrSessionConnect))

		var ce *pkgerrors.ContextualError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, http.StatusUnauthorized, ce.StatusCode)
	})

	t.Run("setup timeout", func(t *testing.T) {
		f := newFakeLive(t, true, nil)
		opened := false
		_, err := NewClient("k", WithURL(f.url()), WithSetupTimeout(50*time.Millisecond)).
			Connect(context.Background(), LiveConfig{}, Handlers{OnOpen: func() { opened = true }})
		require.Error(t, err)
		assert.True(t, errors.Is(err, pkgerrors.ErrSessionConnect))
		assert.False(t, opened)
	})
}
