// Package gemini implements a client for the Gemini Live bidirectional
// audio API. A LiveSession streams microphone chunks up and delivers parsed
// ServerEvents (speech audio, transcriptions, turn signals) to handlers.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/AltairaLabs/PromptKiosk/pkg/errors"
	"github.com/AltairaLabs/PromptKiosk/runtime/logger"
	"github.com/AltairaLabs/PromptKiosk/runtime/providers/internal/streaming"
)

const component = "gemini"

// Defaults for the Live API.
const (
	DefaultURL   = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	DefaultModel = "gemini-2.5-flash-native-audio-preview-09-2025"
	DefaultVoice = "Zephyr"

	// ModalityAudio requests spoken responses.
	ModalityAudio = "AUDIO"

	defaultSetupTimeout      = 10 * time.Second
	defaultHeartbeatInterval = 30 * time.Second
	dialTimeout              = 45 * time.Second
)

// LiveConfig describes one conversation session.
type LiveConfig struct {
	Model             string
	Voice             string
	SystemInstruction string

	// DisableTranscription turns off input and output transcription.
	DisableTranscription bool
}

// Handlers receive session lifecycle callbacks. All are optional.
//
// OnEvent and OnError are called from the session's receive goroutine, in
// receive order. OnClose is called exactly once.
type Handlers struct {
	OnOpen  func()
	OnEvent func(ServerEvent)
	OnError func(error)
	OnClose func()
}

// Client opens live sessions. It holds credentials and transport settings
// and is safe for concurrent use.
type Client struct {
	apiKey            string
	url               string
	setupTimeout      time.Duration
	heartbeatInterval time.Duration
	log               *slog.Logger
	onDecodeError     func(error)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithURL overrides the WebSocket endpoint.
func WithURL(url string) ClientOption {
	return func(c *Client) {
		if url != "" {
			c.url = url
		}
	}
}

// WithSetupTimeout bounds the wait for setupComplete.
func WithSetupTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.setupTimeout = d
		}
	}
}

// WithHeartbeatInterval sets the WebSocket ping interval.
func WithHeartbeatInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.heartbeatInterval = d
		}
	}
}

// WithLogger sets the logger. The default is logger.DefaultLogger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// WithDecodeErrorHook is called for every dropped malformed frame.
func WithDecodeErrorHook(fn func(error)) ClientOption {
	return func(c *Client) {
		c.onDecodeError = fn
	}
}

// NewClient creates a Client authenticating with apiKey.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:            apiKey,
		url:               DefaultURL,
		setupTimeout:      defaultSetupTimeout,
		heartbeatInterval: defaultHeartbeatInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.DefaultLogger
	}
	c.log = c.log.With("component", component)
	return c
}

// Connect dials the Live API, performs the setup handshake and starts the
// receive loop. OnOpen fires before Connect returns. A failure at any step
// returns an ErrSessionConnect error; there is no retry.
func (c *Client) Connect(ctx context.Context, cfg LiveConfig, h Handlers) (*LiveSession, error) {
	if c.apiKey == "" {
		return nil, pkgerrors.Wrap(pkgerrors.ErrSessionConnect, component, "Connect", errors.New("API key is not set"))
	}

	s := newLiveSession(c, h)
	s.log.InfoContext(ctx, "connecting live session", "model", modelPath(cfg.Model))

	headers := http.Header{}
	headers.Set("x-goog-api-key", c.apiKey)

	conn, err := streaming.Dial(ctx, streaming.ConnConfig{
		URL:         c.url,
		Headers:     headers,
		DialTimeout: dialTimeout,
		Logger:      s.log,
	})
	if err != nil {
		s.setState(StateError)
		cErr := pkgerrors.Wrap(pkgerrors.ErrSessionConnect, component, "Dial", err)
		var dErr *streaming.DialError
		if errors.As(err, &dErr) && dErr.StatusCode != 0 {
			cErr = cErr.WithStatusCode(dErr.StatusCode)
		}
		return nil, cErr
	}
	s.conn = conn

	if err := c.handshake(ctx, conn, cfg); err != nil {
		s.setState(StateError)
		_ = conn.Close()
		return nil, pkgerrors.Wrap(pkgerrors.ErrSessionConnect, component, "Setup", err)
	}

	s.prepare(ctx)
	s.setState(StateOpen)
	s.log.InfoContext(ctx, "live session open")
	if h.OnOpen != nil {
		h.OnOpen()
	}

	s.start()
	return s, nil
}

func (c *Client) handshake(ctx context.Context, conn *streaming.Conn, cfg LiveConfig) error {
	if err := conn.Send(BuildSetupMessage(cfg)); err != nil {
		return fmt.Errorf("failed to send setup: %w", err)
	}

	setupCtx, cancel := context.WithTimeout(ctx, c.setupTimeout)
	defer cancel()

	for {
		data, err := conn.Receive(setupCtx)
		if err != nil {
			return fmt.Errorf("waiting for setupComplete: %w", err)
		}
		ev, err := ParseServerEvent(data)
		if err != nil {
			return err
		}
		if ev.SetupComplete {
			return nil
		}
	}
}

// BuildSetupMessage builds the setup frame for cfg, filling defaults for
// model and voice.
func BuildSetupMessage(cfg LiveConfig) SetupMessage {
	voice := cfg.Voice
	if voice == "" {
		voice = DefaultVoice
	}

	setup := Setup{
		Model: modelPath(cfg.Model),
		GenerationConfig: GenerationConfig{
			ResponseModalities: []string{ModalityAudio},
			SpeechConfig: &SpeechConfig{
				VoiceConfig: VoiceConfig{PrebuiltVoiceConfig: PrebuiltVoiceConfig{VoiceName: voice}},
			},
		},
	}
	if cfg.SystemInstruction != "" {
		setup.SystemInstruction = &Content{Parts: []Part{{Text: cfg.SystemInstruction}}}
	}
	if !cfg.DisableTranscription {
		setup.InputAudioTranscription = &AudioTranscriptionConfig{}
		setup.OutputAudioTranscription = &AudioTranscriptionConfig{}
	}
	return SetupMessage{Setup: setup}
}

// modelPath ensures the model is in the form models/{model}.
func modelPath(model string) string {
	if model == "" {
		model = DefaultModel
	}
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

func newSessionID() string {
	return uuid.NewString()
}
