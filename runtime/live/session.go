// Package live runs one realtime voice session: it owns the speaker clock,
// the microphone stream and the remote Live API session, wires capture to
// the remote once it opens, and routes inbound speech to gapless playback.
package live

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	pkgerrors "github.com/AltairaLabs/PromptKiosk/pkg/errors"
	"github.com/AltairaLabs/PromptKiosk/runtime/audio"
	"github.com/AltairaLabs/PromptKiosk/runtime/logger"
	"github.com/AltairaLabs/PromptKiosk/runtime/providers/gemini"
)

const component = "live"

// RemoteSession is the subset of gemini.LiveSession the session uses.
type RemoteSession interface {
	SendRealtimeInput(ctx context.Context, blob gemini.Blob) error
	Close() error
}

// Connector opens remote sessions.
type Connector interface {
	Connect(ctx context.Context, cfg gemini.LiveConfig, h gemini.Handlers) (RemoteSession, error)
}

// GeminiConnector adapts a gemini.Client to Connector.
type GeminiConnector struct {
	Client *gemini.Client
}

// Connect implements Connector.
func (g GeminiConnector) Connect(ctx context.Context, cfg gemini.LiveConfig, h gemini.Handlers) (RemoteSession, error) {
	s, err := g.Client.Connect(ctx, cfg, h)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Observer receives audio path notifications, e.g. for metrics.
type Observer interface {
	audio.CaptureObserver
	audio.PlayerObserver
	DecodeError()
}

// Deps are the collaborators of a session.
type Deps struct {
	Connector Connector
	Input     audio.InputDevice
	Output    audio.OutputDevice
	Observer  Observer
	Logger    *slog.Logger
}

// Config holds session parameters. Zero values take the defaults.
type Config struct {
	Live             gemini.LiveConfig
	InputSampleRate  int
	OutputSampleRate int
	FrameSize        int
}

func (c *Config) defaults() {
	if c.InputSampleRate == 0 {
		c.InputSampleRate = audio.SampleRate16kHz
	}
	if c.OutputSampleRate == 0 {
		c.OutputSampleRate = audio.SampleRate24kHz
	}
	if c.FrameSize == 0 {
		c.FrameSize = audio.DefaultFrameSize
	}
}

// Callbacks receive session notifications. All are optional.
type Callbacks struct {
	// OnConnect fires when the remote session is open; capture starts right after.
	OnConnect func()

	// OnMessage fires for each inbound event. Calling Play on the AudioPlayer
	// decodes and schedules the event's speech. When OnMessage is nil the
	// speech is played automatically.
	OnMessage func(ev gemini.ServerEvent, player *AudioPlayer)

	// OnError fires on transport failure.
	OnError func(err error)

	// OnClose fires once when the remote session has closed.
	OnClose func()

	// OnSendError fires when a capture chunk could not be delivered. Capture continues.
	OnSendError func(err error)
}

// Session is one live voice session.
type Session struct {
	cfg Config
	cb  Callbacks
	obs Observer
	log *slog.Logger

	mixer   *audio.Mixer
	player  *audio.Player
	capture *audio.CapturePipeline
	speaker audio.Stream
	mic     audio.Stream

	remote RemoteSession
	ready  chan struct{}

	capturing atomic.Bool
	closed    atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc

	cleanupOnce sync.Once
}

// Connect acquires the speaker and microphone and opens the remote session.
//
// Device failures return an ErrDeviceAccess error and remote failures an
// ErrSessionConnect error; in both cases everything acquired so far is
// released. Microphone frames are discarded until the remote session opens.
func Connect(ctx context.Context, deps Deps, cfg Config, cb Callbacks) (*Session, error) {
	cfg.defaults()

	log := deps.Logger
	if log == nil {
		log = logger.DefaultLogger
	}

	s := &Session{
		cfg:   cfg,
		cb:    cb,
		obs:   deps.Observer,
		log:   log.With("component", component),
		ready: make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))

	var playerOpts []audio.PlayerOption
	var captureOpts []audio.CaptureOption
	if deps.Observer != nil {
		playerOpts = append(playerOpts, audio.WithPlayerObserver(deps.Observer))
		captureOpts = append(captureOpts, audio.WithCaptureObserver(deps.Observer))
	}

	s.mixer = audio.NewMixer(cfg.OutputSampleRate)
	s.player = audio.NewPlayer(s.mixer, playerOpts...)
	s.capture = audio.NewCapturePipeline(s.Send, s.reportSendError, captureOpts...)

	if err := s.openDevices(deps); err != nil {
		s.Cleanup()
		return nil, err
	}

	remote, err := deps.Connector.Connect(ctx, cfg.Live, gemini.Handlers{
		OnOpen:  s.handleOpen,
		OnEvent: s.handleEvent,
		OnError: s.handleError,
		OnClose: s.handleClose,
	})
	if err != nil {
		s.Cleanup()
		if pkgerrors.KindOf(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.ErrSessionConnect, component, "Connect", err)
		}
		return nil, err
	}
	s.remote = remote
	close(s.ready)

	return s, nil
}

func (s *Session) openDevices(deps Deps) error {
	speaker, err := deps.Output.OpenOutput(s.cfg.OutputSampleRate, s.mixer.Render)
	if err != nil {
		return asDeviceError("OpenOutput", err)
	}
	s.speaker = speaker
	if err := speaker.Start(); err != nil {
		return asDeviceError("StartOutput", err)
	}

	mic, err := deps.Input.OpenInput(s.cfg.InputSampleRate, s.cfg.FrameSize, s.onFrame)
	if err != nil {
		return asDeviceError("OpenInput", err)
	}
	s.mic = mic
	if err := mic.Start(); err != nil {
		return asDeviceError("StartInput", err)
	}
	return nil
}

func asDeviceError(op string, err error) error {
	if errors.Is(err, pkgerrors.ErrDeviceAccess) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.ErrDeviceAccess, component, op, err)
}

// onFrame is the microphone callback.
func (s *Session) onFrame(samples []float32) {
	if s.capturing.Load() {
		s.capture.OnFrame(samples)
	}
}

func (s *Session) handleOpen() {
	s.log.Debug("remote session open, starting capture")
	if s.cb.OnConnect != nil {
		s.cb.OnConnect()
	}
	s.capturing.Store(true)
	go func() {
		if err := s.capture.Run(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("capture stopped", "error", err)
		}
	}()
}

// Send delivers one encoded audio chunk once the remote handle is
// available. After Close it returns an ErrSessionClosed error.
func (s *Session) Send(ctx context.Context, data, mimeType string) error {
	if s.closed.Load() {
		return pkgerrors.Wrap(pkgerrors.ErrSessionClosed, component, "Send", nil)
	}
	select {
	case <-s.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	if s.closed.Load() {
		return pkgerrors.Wrap(pkgerrors.ErrSessionClosed, component, "Send", nil)
	}
	return s.remote.SendRealtimeInput(ctx, gemini.Blob{MimeType: mimeType, Data: data})
}

func (s *Session) reportSendError(err error) {
	if s.cb.OnSendError != nil {
		s.cb.OnSendError(err)
	}
}

func (s *Session) handleEvent(ev gemini.ServerEvent) {
	if ev.Interrupted {
		s.player.Interrupt()
	}

	ap := &AudioPlayer{s: s, generation: s.player.Generation(), chunks: ev.Audio}
	if s.cb.OnMessage == nil {
		ap.Play()
		return
	}
	s.cb.OnMessage(ev, ap)
}

func (s *Session) handleError(err error) {
	s.capturing.Store(false)
	if s.cb.OnError != nil {
		s.cb.OnError(err)
	}
}

func (s *Session) handleClose() {
	s.capturing.Store(false)
	if s.cb.OnClose != nil {
		s.cb.OnClose()
	}
}

// Player returns the session's playback queue.
func (s *Session) Player() *audio.Player {
	return s.player
}

// Mixer returns the session's output clock.
func (s *Session) Mixer() *audio.Mixer {
	return s.mixer
}

// Close closes the remote session. Capture stops sending; devices stay
// open until Cleanup. It is idempotent.
func (s *Session) Close() error {
	s.closed.Store(true)
	s.capturing.Store(false)
	if s.remote == nil {
		return nil
	}
	if err := s.remote.Close(); err != nil {
		return pkgerrors.New(component, "Close", err)
	}
	return nil
}

// Cleanup stops capture and releases both audio devices. It is idempotent.
func (s *Session) Cleanup() {
	s.cleanupOnce.Do(func() {
		s.capturing.Store(false)
		s.capture.Close()
		s.cancel()

		if s.mic != nil {
			stopStream(s.log, "microphone", s.mic)
		}
		if s.speaker != nil {
			stopStream(s.log, "speaker", s.speaker)
		}
		_ = s.mixer.Close()
		s.log.Debug("session resources released")
	})
}

func stopStream(log *slog.Logger, name string, st audio.Stream) {
	if err := st.Stop(); err != nil {
		log.Debug("stopping stream", "stream", name, "error", err)
	}
	if err := st.Close(); err != nil {
		log.Debug("closing stream", "stream", name, "error", err)
	}
}
