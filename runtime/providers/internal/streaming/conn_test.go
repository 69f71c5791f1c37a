package streaming

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
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// echoServer returns a test server that echoes WebSocket messages back.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestDial_SendReceive(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	ctx := context.Background()
	c, err := Dial(ctx, ConnConfig{URL: wsURL(srv)})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Send(map[string]string{"hello": "world"}))

	data, err := c.Receive(ctx)
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "world", got["hello"])
}

func TestDial_SendsHeaders(t *testing.T) {
	gotKey := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey <- r.Header.Get("x-goog-api-key")
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.Close()
	}))
	defer srv.Close()

	c, err := Dial(context.Background(), ConnConfig{
		URL:     wsURL(srv),
		Headers: http.Header{"x-goog-api-key": []string{"secret"}},
	})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "secret", <-gotKey)
}

func TestDial_HTTPErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := Dial(context.Background(), ConnConfig{URL: wsURL(srv)})
	require.Error(t, err)

	var dErr *DialError
	require.True(t, errors.As(err, &dErr))
	assert.Equal(t, http.StatusForbidden, dErr.StatusCode)
	assert.Contains(t, err.Error(), "HTTP 403")
}

func TestDial_Unreachable(t *testing.T) {
	_, err := Dial(context.Background(), ConnConfig{URL: "ws://127.0.0.1:1", DialTimeout: time.Second})
	require.Error(t, err)

	var dErr *DialError
	require.True(t, errors.As(err, &dErr))
	assert.Equal(t, 0, dErr.StatusCode)
}

func TestConn_ReceiveLoop(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	ctx := context.Background()
	c, err := Dial(ctx, ConnConfig{URL: wsURL(srv)})
	require.NoError(t, err)

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- c.ReceiveLoop(ctx, func(b []byte) {
			mu.Lock()
			got = append(got, string(b))
			mu.Unlock()
		})
	}()

	require.NoError(t, c.SendRaw([]byte("one")))
	require.NoError(t, c.SendRaw([]byte("two")))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ReceiveLoop did not return after Close")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"one", "two"}, got)
}

func TestConn_ReceiveLoopReportsAbnormalClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "boom")
		_ = conn.WriteMessage(websocket.CloseMessage, msg)
		_ = conn.Close()
	}))
	defer srv.Close()

	c, err := Dial(context.Background(), ConnConfig{URL: wsURL(srv)})
	require.NoError(t, err)
	defer c.Close()

	err = c.ReceiveLoop(context.Background(), func([]byte) {})
	require.Error(t, err)
	assert.Equal(t, websocket.CloseInternalServerErr, CloseCode(err))
	assert.False(t, IsNormalClose(err))
}

func TestConn_ReceiveLoopNormalCloseIsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteMessage(websocket.CloseMessage, msg)
		_ = conn.Close()
	}))
	defer srv.Close()

	c, err := Dial(context.Background(), ConnConfig{URL: wsURL(srv)})
	require.NoError(t, err)
	defer c.Close()

	assert.NoError(t, c.ReceiveLoop(context.Background(), func([]byte) {}))
}

func TestConn_CloseIsIdempotent(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	c, err := Dial(context.Background(), ConnConfig{URL: wsURL(srv)})
	require.NoError(t, err)

	assert.False(t, c.IsClosed())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.True(t, c.IsClosed())

	select {
	case <-c.Done():
	default:
		t.Fatal("Done not closed")
	}

	assert.ErrorIs(t, c.SendRaw([]byte("x")), ErrNotConnected)
	_, err = c.Receive(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConn_ReceiveHonorsContext(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	c, err := Dial(context.Background(), ConnConfig{URL: wsURL(srv)})
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConn_Heartbeat(t *testing.T) {
	pings := make(chan struct{}, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetPingHandler(func(string) error {
			select {
			case pings <- struct{}{}:
			default:
			}
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c, err := Dial(ctx, ConnConfig{URL: wsURL(srv)})
	require.NoError(t, err)
	defer c.Close()

	c.StartHeartbeat(ctx, 10*time.Millisecond)

	select {
	case <-pings:
	case <-time.After(2 * time.Second):
		t.Fatal("no ping received")
	}
}
