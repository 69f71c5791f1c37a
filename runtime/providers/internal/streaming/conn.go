// Package streaming provides the WebSocket transport used by the live session
// provider. It owns dialing, serialized writes, the read loop, keepalive pings
// and graceful close; message encoding is left to the caller.
package streaming

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AltairaLabs/PromptKiosk/runtime/logger"
)

// Default connection constants.
const (
	DefaultDialTimeout      = 10 * time.Second
	DefaultWriteWait        = 10 * time.Second
	DefaultMaxMessageSize   = 16 * 1024 * 1024 // 16MB
	DefaultCloseGracePeriod = 5 * time.Second
)

// ErrNotConnected is returned by writes on a connection that is closed or was never opened.
var ErrNotConnected = errors.New("websocket is not connected")

// ConnConfig configures the WebSocket connection behavior.
type ConnConfig struct {
	// URL is the WebSocket endpoint URL.
	URL string

	// Headers are sent during the WebSocket handshake.
	Headers http.Header

	// DialTimeout is the handshake timeout. Defaults to DefaultDialTimeout.
	DialTimeout time.Duration

	// WriteWait is the write deadline for each message. Defaults to DefaultWriteWait.
	WriteWait time.Duration

	// MaxMessageSize is the read limit. Defaults to DefaultMaxMessageSize.
	MaxMessageSize int64

	// CloseGracePeriod is the deadline for writing the close frame.
	CloseGracePeriod time.Duration

	// Logger defaults to logger.DefaultLogger.
	Logger *slog.Logger
}

func (c *ConnConfig) defaults() {
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.WriteWait == 0 {
		c.WriteWait = DefaultWriteWait
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.CloseGracePeriod == 0 {
		c.CloseGracePeriod = DefaultCloseGracePeriod
	}
	if c.Logger == nil {
		c.Logger = logger.DefaultLogger
	}
}

// DialError describes a failed handshake. StatusCode is the HTTP status of
// the upgrade response, or 0 when no response was received.
type DialError struct {
	StatusCode int
	Err        error
}

func (e *DialError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("websocket dial failed (HTTP %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("websocket dial failed: %v", e.Err)
}

func (e *DialError) Unwrap() error { return e.Err }

// Conn is an established WebSocket connection.
type Conn struct {
	cfg ConnConfig
	ws  *websocket.Conn

	writeMu sync.Mutex // serializes writes (gorilla/websocket requirement)

	mu      sync.Mutex
	closed  bool
	closeCh chan struct{}
}

// Dial opens a WebSocket connection. There is no retry: a failed dial is
// returned to the caller.
func Dial(ctx context.Context, cfg ConnConfig) (*Conn, error) {
	cfg.defaults()

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.DialTimeout,
		TLSClientConfig:  &tls.Config{MinVersion: tls.VersionTLS12},
	}

	cfg.Logger.Debug("connecting to WebSocket", "url", logger.RedactSensitiveData(cfg.URL))

	ws, resp, err := dialer.DialContext(ctx, cfg.URL, cfg.Headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		dErr := &DialError{Err: err}
		if resp != nil {
			dErr.StatusCode = resp.StatusCode
		}
		cfg.Logger.Error("WebSocket dial failed", "error", err, "status", dErr.StatusCode)
		return nil, dErr
	}

	ws.SetReadLimit(cfg.MaxMessageSize)
	cfg.Logger.Debug("WebSocket connected")

	return &Conn{
		cfg:     cfg,
		ws:      ws,
		closeCh: make(chan struct{}),
	}, nil
}

// Send JSON-encodes msg and writes it as a text frame.
func (c *Conn) Send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return c.SendRaw(data)
}

// SendRaw writes pre-encoded data as a text frame.
func (c *Conn) SendRaw(data []byte) error {
	return c.write(websocket.TextMessage, data)
}

func (c *Conn) write(messageType int, data []byte) error {
	if c.IsClosed() {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := c.ws.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Receive blocks for the next text or binary frame, or until ctx is done.
// Only one goroutine may receive at a time.
func (c *Conn) Receive(ctx context.Context) ([]byte, error) {
	if c.IsClosed() {
		return nil, ErrNotConnected
	}

	type readResult struct {
		msgType int
		data    []byte
		err     error
	}
	ch := make(chan readResult, 1)

	go func() {
		msgType, data, err := c.ws.ReadMessage()
		ch <- readResult{msgType: msgType, data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		if r.msgType != websocket.TextMessage && r.msgType != websocket.BinaryMessage {
			return nil, fmt.Errorf("unexpected message type: %d", r.msgType)
		}
		return r.data, nil
	}
}

// ReceiveLoop calls handle for every inbound frame until the connection is
// closed locally (returns nil), the peer closes normally (returns nil), ctx
// is canceled, or a read fails (returns the error).
func (c *Conn) ReceiveLoop(ctx context.Context, handle func([]byte)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closeCh:
			return nil
		default:
		}

		data, err := c.Receive(ctx)
		if err != nil {
			if c.IsClosed() || IsNormalClose(err) {
				return nil
			}
			return err
		}
		handle(data)
	}
}

// IsNormalClose reports whether err is a normal or going-away close from the peer.
func IsNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

// CloseCode returns the WebSocket close code carried by err, or 0.
func CloseCode(err error) int {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return 0
}

// StartHeartbeat sends ping frames at interval until the connection closes or ctx is done.
func (c *Conn) StartHeartbeat(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.closeCh:
				return
			case <-ticker.C:
				if err := c.write(websocket.PingMessage, nil); err != nil {
					c.cfg.Logger.Warn("ping failed", "error", err)
					return
				}
			}
		}
	}()
}

// Close sends a normal-closure frame and releases the socket. It is idempotent.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.closeCh)
	c.mu.Unlock()

	c.writeMu.Lock()
	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.CloseGracePeriod))
	_ = c.ws.WriteMessage(websocket.CloseMessage, closeMsg)
	c.writeMu.Unlock()

	return c.ws.Close()
}

// IsClosed reports whether Close has been called.
func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Done is closed when Close is called.
func (c *Conn) Done() <-chan struct{} {
	return c.closeCh
}
