// Package kiosk drives the receptionist: the per-conversation controller
// that turns live session callbacks into transcript and status updates, and
// the app state machine that moves between the welcome, face detection,
// conversation and history screens.
package kiosk

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/AltairaLabs/PromptKiosk/runtime/live"
	"github.com/AltairaLabs/PromptKiosk/runtime/logger"
	"github.com/AltairaLabs/PromptKiosk/runtime/persistence"
	"github.com/AltairaLabs/PromptKiosk/runtime/providers/gemini"
	"github.com/AltairaLabs/PromptKiosk/runtime/telemetry"
	"github.com/AltairaLabs/PromptKiosk/runtime/transcript"
)

const component = "kiosk"

// Visitor-facing messages.
const (
	DefaultGreeting = "Hello! How can I help you today?"

	MsgConnectionError = "A connection error occurred. Please try again."
	MsgInitError       = "Could not initialize microphone or AI session."
)

// Session outcomes reported to Metrics.
const (
	OutcomeConnected      = "connected"
	OutcomeConnectError   = "connect_error"
	OutcomeTransportError = "transport_error"
)

const saveTimeout = 5 * time.Second

// Session is the live session surface the controller tears down.
type Session interface {
	Close() error
	Cleanup()
}

// SessionFactory opens live sessions.
type SessionFactory interface {
	Connect(ctx context.Context, cb live.Callbacks) (Session, error)
}

// LiveSessions opens real sessions with live.Connect.
type LiveSessions struct {
	Deps   live.Deps
	Config live.Config
}

// Connect implements SessionFactory.
func (f LiveSessions) Connect(ctx context.Context, cb live.Callbacks) (Session, error) {
	s, err := live.Connect(ctx, f.Deps, f.Config, cb)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Metrics receives conversation-level measurements.
type Metrics interface {
	SessionOutcome(status string)
	ConversationStarted()
	ConversationEnded(failed bool, d time.Duration)
	TurnCompleted()
	FaceScan(result string, d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) SessionOutcome(string)                 {}
func (nopMetrics) ConversationStarted()                  {}
func (nopMetrics) ConversationEnded(bool, time.Duration) {}
func (nopMetrics) TurnCompleted()                        {}
func (nopMetrics) FaceScan(string, time.Duration)        {}

// State is a snapshot of a conversation for rendering.
type State struct {
	Connecting bool
	Listening  bool
	Speaking   bool
	Error      string
	Messages   []transcript.Message

	// PendingUser and PendingAI are the fragments of the turn in progress.
	PendingUser string
	PendingAI   string
}

// Status is the listening indicator text.
func (s State) Status() string {
	switch {
	case s.Listening:
		return "Listening..."
	case s.Connecting:
		return "Connecting..."
	default:
		return "Not Listening"
	}
}

// Result describes a finished conversation.
type Result struct {
	ID       string
	Messages []transcript.Message
	Saved    bool
	Failed   bool
}

// ConversationDeps are the collaborators of a Conversation.
type ConversationDeps struct {
	Sessions SessionFactory
	Store    *persistence.Store
	Metrics  Metrics
	Tracer   *telemetry.ConversationTracer
	Logger   *slog.Logger

	// OnChange receives a snapshot after every state change, on the
	// controller goroutine.
	OnChange func(State)
}

// ConversationConfig holds per-conversation settings.
type ConversationConfig struct {
	Greeting string
	Model    string
}

type eventKind int

const (
	evOpen eventKind = iota
	evConnected
	evConnectFailed
	evMessage
	evError
	evClose
	evSendError
	evEnd
)

type event struct {
	kind    eventKind
	session Session
	msg     gemini.ServerEvent
	player  *live.AudioPlayer
	err     error
}

// Conversation is the controller for one visitor conversation.
//
// Session callbacks, connect results and End are posted as events to a
// single goroutine which owns all conversation state, so events are handled
// one at a time in arrival order.
type Conversation struct {
	id   string
	deps ConversationDeps
	cfg  ConversationConfig
	log  *slog.Logger

	events chan event
	quit   chan struct{} // closed when teardown starts; later events are dropped
	done   chan struct{} // closed when the conversation has ended

	startOnce sync.Once
	endOnce   sync.Once

	// Owned by the controller goroutine.
	state     State
	assembler *transcript.Assembler
	ids       *transcript.IDSequence
	session   Session
	released  chan struct{} // closed once a session dropped after a transport error is torn down
	started   time.Time
	cancel    context.CancelFunc
	ctx       context.Context //nolint:containedctx // conversation span and log fields
	sendLog   rate.Sometimes

	mu       sync.Mutex
	snapshot State
	result   Result
}

// NewConversation creates a conversation controller. Call Start to connect.
func NewConversation(deps ConversationDeps, cfg ConversationConfig) *Conversation {
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Tracer == nil {
		deps.Tracer = telemetry.NewConversationTracer(nil)
	}
	if deps.Logger == nil {
		deps.Logger = logger.DefaultLogger
	}
	if cfg.Greeting == "" {
		cfg.Greeting = DefaultGreeting
	}
	ids := transcript.NewIDSequence()
	id := uuid.NewString()
	return &Conversation{
		id:        id,
		deps:      deps,
		cfg:       cfg,
		log:       deps.Logger.With("component", component),
		events:    make(chan event),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		ids:       ids,
		assembler: transcript.NewAssembler(ids),
		state:     State{Connecting: true},
		snapshot:  State{Connecting: true},
		sendLog:   rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
}

// ID returns the conversation id.
func (c *Conversation) ID() string {
	return c.id
}

// Start begins connecting and runs the controller until End is called or
// ctx is done. It returns immediately.
func (c *Conversation) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		ctx = logger.WithConversationID(ctx, c.id)
		ctx = logger.WithModel(ctx, c.cfg.Model)
		c.ctx = c.deps.Tracer.Start(ctx, c.id, c.cfg.Model)
		c.started = time.Now()
		c.deps.Metrics.ConversationStarted()

		connectCtx, cancel := context.WithCancel(c.ctx)
		c.cancel = cancel

		c.log.InfoContext(c.ctx, "conversation started")
		go c.loop(ctx)
		go c.connect(connectCtx)
	})
}

func (c *Conversation) connect(ctx context.Context) {
	ctx, done := c.deps.Tracer.Connect(ctx)
	s, err := c.deps.Sessions.Connect(ctx, live.Callbacks{
		OnConnect: func() { c.post(event{kind: evOpen}) },
		OnMessage: func(ev gemini.ServerEvent, p *live.AudioPlayer) {
			c.post(event{kind: evMessage, msg: ev, player: p})
		},
		OnError:     func(err error) { c.post(event{kind: evError, err: err}) },
		OnClose:     func() { c.post(event{kind: evClose}) },
		OnSendError: func(err error) { c.post(event{kind: evSendError, err: err}) },
	})
	done("", err)
	if err != nil {
		c.post(event{kind: evConnectFailed, err: err})
		return
	}
	if !c.post(event{kind: evConnected, session: s}) {
		// The conversation ended while connecting.
		closeSession(c.log, s)
	}
}

// post hands ev to the controller. It reports false once teardown has
// started, in which case ev is dropped.
func (c *Conversation) post(ev event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.quit:
		return false
	}
}

func (c *Conversation) loop(parent context.Context) {
	for {
		select {
		case <-parent.Done():
			c.finish()
			return
		case ev := <-c.events:
			if ev.kind == evEnd {
				c.finish()
				return
			}
			c.handle(ev)
			c.publish()
		}
	}
}

func (c *Conversation) handle(ev event) {
	switch ev.kind {
	case evOpen:
		c.state.Connecting = false
		c.state.Listening = true
		c.state.Messages = []transcript.Message{{
			ID:     c.ids.Next(),
			Sender: transcript.SenderAI,
			Text:   c.cfg.Greeting,
		}}
		c.deps.Metrics.SessionOutcome(OutcomeConnected)
		c.log.InfoContext(c.ctx, "session connected")

	case evConnected:
		c.session = ev.session
		if c.state.Error != "" {
			c.releaseSession()
		}

	case evConnectFailed:
		c.state.Connecting = false
		c.state.Listening = false
		c.state.Error = MsgInitError
		c.deps.Metrics.SessionOutcome(OutcomeConnectError)
		c.deps.Tracer.Fail(c.ctx, ev.err)
		c.log.ErrorContext(c.ctx, "failed to start conversation", "error", ev.err)

	case evMessage:
		c.handleMessage(ev.msg, ev.player)

	case evError:
		c.state.Connecting = false
		c.state.Listening = false
		c.state.Error = MsgConnectionError
		c.deps.Metrics.SessionOutcome(OutcomeTransportError)
		c.deps.Tracer.Fail(c.ctx, ev.err)
		c.log.ErrorContext(c.ctx, "session error", "error", ev.err)
		c.releaseSession()

	case evClose:
		c.state.Listening = false
		c.log.InfoContext(c.ctx, "session closed")

	case evSendError:
		c.sendLog.Do(func() {
			c.log.WarnContext(c.ctx, "audio send failed", "error", ev.err)
		})
	}
}

func (c *Conversation) handleMessage(ev gemini.ServerEvent, player *live.AudioPlayer) {
	if ev.ModelTurn {
		c.state.Speaking = true
	}
	if ev.TurnComplete {
		c.state.Speaking = false
	}
	if ev.OutputTranscript != "" {
		c.assembler.AddOutput(ev.OutputTranscript)
	}
	if ev.InputTranscript != "" {
		c.assembler.AddInput(ev.InputTranscript)
	}
	if ev.TurnComplete {
		user, ai := c.assembler.Pending()
		c.state.Messages = append(c.state.Messages, c.assembler.CompleteTurn()...)
		c.deps.Metrics.TurnCompleted()
		c.deps.Tracer.Turn(c.ctx, len(user), len(ai))
	}
	c.state.PendingUser, c.state.PendingAI = c.assembler.Pending()
	player.Play()
}

// releaseSession tears down an unusable session off the controller
// goroutine, since Close reports back through OnClose.
func (c *Conversation) releaseSession() {
	if c.session == nil {
		return
	}
	s := c.session
	c.session = nil
	released := make(chan struct{})
	c.released = released
	go func() {
		defer close(released)
		closeSession(c.log, s)
	}()
}

func (c *Conversation) publish() {
	snap := c.state
	snap.Messages = append([]transcript.Message(nil), c.state.Messages...)

	c.mu.Lock()
	c.snapshot = snap
	c.mu.Unlock()

	if c.deps.OnChange != nil {
		c.deps.OnChange(snap)
	}
}

// State returns the latest snapshot.
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// finish persists the conversation, then closes and cleans up the session.
// It runs once on the controller goroutine.
func (c *Conversation) finish() {
	close(c.quit)
	c.cancel()

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), saveTimeout)
	saved := false
	if c.deps.Store != nil {
		saved = c.deps.Store.Save(saveCtx, time.Now(), c.state.Messages)
	}
	cancel()

	if c.session != nil {
		closeSession(c.log, c.session)
		c.session = nil
	}
	if c.released != nil {
		<-c.released
	}
	c.state.Listening = false
	c.state.Speaking = false

	failed := c.state.Error != ""
	c.deps.Metrics.ConversationEnded(failed, time.Since(c.started))
	c.deps.Tracer.End(c.ctx, len(c.state.Messages), saved)
	c.log.InfoContext(c.ctx, "conversation ended", "messages", len(c.state.Messages), "saved", saved)

	c.publish()
	c.mu.Lock()
	c.result = Result{
		ID:       c.id,
		Messages: c.snapshot.Messages,
		Saved:    saved,
		Failed:   failed,
	}
	c.mu.Unlock()
	close(c.done)
}

// closeSession closes then cleans up s. Cleanup runs even if Close fails.
func closeSession(log *slog.Logger, s Session) {
	if err := s.Close(); err != nil {
		log.Warn("closing session", "error", err)
	}
	s.Cleanup()
}

// End finishes the conversation: it saves the transcript when there is more
// than the greeting, closes the session, releases the audio devices and
// returns the result. It is idempotent and safe from any goroutine; calls
// after the first wait for the same result.
func (c *Conversation) End() Result {
	c.startOnce.Do(func() {
		// Never started: there is nothing to tear down.
		c.result = Result{ID: c.id}
		close(c.done)
	})
	c.endOnce.Do(func() {
		select {
		case c.events <- event{kind: evEnd}:
		case <-c.done:
		}
	})
	<-c.done
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Done is closed once the conversation has ended.
func (c *Conversation) Done() <-chan struct{} {
	return c.done
}
