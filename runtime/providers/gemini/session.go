package gemini

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	pkgerrors "github.com/AltairaLabs/PromptKiosk/pkg/errors"
	"github.com/AltairaLabs/PromptKiosk/runtime/logger"
	"github.com/AltairaLabs/PromptKiosk/runtime/providers/internal/streaming"
)

// State is the lifecycle state of a LiveSession.
type State int32

// Session states.
const (
	StateConnecting State = iota
	StateOpen
	StateClosed
	StateError
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LiveSession is an open bidirectional session.
type LiveSession struct {
	id       string
	conn     *streaming.Conn
	handlers Handlers
	client   *Client
	log      *slog.Logger

	state    atomic.Int32
	closing  atomic.Bool
	finished atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func newLiveSession(c *Client, h Handlers) *LiveSession {
	id := newSessionID()
	s := &LiveSession{
		id:       id,
		handlers: h,
		client:   c,
		log:      c.log.With("session_id", id),
		done:     make(chan struct{}),
	}
	s.setState(StateConnecting)
	return s
}

// ID returns the locally generated session id used in logs.
func (s *LiveSession) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *LiveSession) State() State {
	return State(s.state.Load())
}

func (s *LiveSession) setState(st State) {
	s.state.Store(int32(st))
}

// Done is closed once the receive loop has exited.
func (s *LiveSession) Done() <-chan struct{} {
	return s.done
}

// prepare derives the session context. The session outlives the dial
// context but keeps its values for logging.
func (s *LiveSession) prepare(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
}

func (s *LiveSession) start() {
	s.conn.StartHeartbeat(s.ctx, s.client.heartbeatInterval)
	go s.receiveLoop(s.ctx)
}

func (s *LiveSession) receiveLoop(ctx context.Context) {
	defer close(s.done)

	err := s.conn.ReceiveLoop(ctx, s.handleFrame)
	if s.closing.Load() {
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		s.fail(err)
		return
	}
	s.log.Info("live session closed by server")
	s.finish(StateClosed)
}

func (s *LiveSession) handleFrame(data []byte) {
	ev, err := ParseServerEvent(data)
	if err != nil {
		s.log.Warn("dropping malformed server frame", "error", err)
		if s.client.onDecodeError != nil {
			s.client.onDecodeError(err)
		}
		return
	}
	if ev.GoAway != nil {
		s.log.Warn("server announced disconnect", "time_left", ev.GoAway.TimeLeft)
	}
	ev.SetupComplete = false
	if ev.IsEmpty() {
		return
	}
	if s.handlers.OnEvent != nil {
		s.handlers.OnEvent(ev)
	}
}

// fail reports a transport fault: state ERROR, OnError, then OnClose.
func (s *LiveSession) fail(err error) {
	s.setState(StateError)
	tErr := pkgerrors.Wrap(pkgerrors.ErrSessionTransport, component, "Receive", err)
	if code := streaming.CloseCode(err); code != 0 {
		tErr = tErr.WithStatusCode(code)
	}
	s.log.Error("live session transport error", "error", logger.RedactSensitiveData(err.Error()))
	if s.handlers.OnError != nil {
		s.handlers.OnError(tErr)
	}
	s.finish(StateError)
}

// finish releases the socket and fires OnClose once. A concurrent caller
// returns immediately instead of waiting for the first to complete, so
// handlers may call Close.
func (s *LiveSession) finish(final State) {
	if !s.finished.CompareAndSwap(false, true) {
		return
	}
	s.setState(final)
	if s.cancel != nil {
		s.cancel()
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.log.Debug("closing websocket", "error", err)
		}
	}
	if s.handlers.OnClose != nil {
		s.handlers.OnClose()
	}
}

// SendRealtimeInput streams one media chunk. It returns an ErrSessionClosed
// error when the session is not open and an ErrSend error when the write
// fails; neither tears the session down.
func (s *LiveSession) SendRealtimeInput(ctx context.Context, blob Blob) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrSend, component, "SendRealtimeInput", err)
	}
	if s.State() != StateOpen {
		return pkgerrors.Wrap(pkgerrors.ErrSessionClosed, component, "SendRealtimeInput", nil)
	}
	msg := RealtimeInputMessage{RealtimeInput: RealtimeInput{MediaChunks: []Blob{blob}}}
	if err := s.conn.Send(msg); err != nil {
		if errors.Is(err, streaming.ErrNotConnected) {
			return pkgerrors.Wrap(pkgerrors.ErrSessionClosed, component, "SendRealtimeInput", err)
		}
		return pkgerrors.Wrap(pkgerrors.ErrSend, component, "SendRealtimeInput", err)
	}
	return nil
}

// Close ends the session and releases the socket. It is idempotent and
// fires OnClose at most once.
func (s *LiveSession) Close() error {
	s.closing.Store(true)
	s.finish(StateClosed)
	return nil
}
