package kiosk

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	pkgerrors "github.com/AltairaLabs/PromptKiosk/pkg/errors"
	"github.com/AltairaLabs/PromptKiosk/runtime/facedetect"
	"github.com/AltairaLabs/PromptKiosk/runtime/logger"
	"github.com/AltairaLabs/PromptKiosk/runtime/persistence"
	"github.com/AltairaLabs/PromptKiosk/runtime/telemetry"
	"github.com/AltairaLabs/PromptKiosk/runtime/transcript"
)

// Screen is the app state.
type Screen int

// Screens.
const (
	ScreenWelcome Screen = iota
	ScreenDetectingFace
	ScreenConversing
	ScreenViewingHistory
)

func (s Screen) String() string {
	switch s {
	case ScreenWelcome:
		return "WELCOME"
	case ScreenDetectingFace:
		return "DETECTING_FACE"
	case ScreenConversing:
		return "CONVERSING"
	case ScreenViewingHistory:
		return "VIEWING_HISTORY"
	default:
		return "UNKNOWN"
	}
}

// Command is a visitor or operator action.
type Command int

// Commands.
const (
	CmdStart Command = iota
	CmdViewHistory
	CmdClearHistory
	CmdEnd
	CmdBack
	CmdQuit
)

// Face detection messages.
const (
	MsgLoadingModels   = "Loading face detection models..."
	MsgModelLoadError  = "Could not load face detection models. Please try again later."
	MsgCameraError     = "Could not access the camera. Please check permissions."
	MsgDetectorFailure = "Face detection stopped unexpectedly."
)

// View renders screens. Methods are called from the app goroutine or, for
// ShowConversation, the conversation controller goroutine.
type View interface {
	ShowWelcome()
	ShowLoading(msg string)
	ShowFaceStatus(status facedetect.Status)
	ShowError(msg string)
	ShowConversation(state State)
	ShowHistory(transcripts []transcript.StoredTranscript)
}

// FaceDetection bundles the presence detector. A nil FaceDetection on
// AppDeps skips straight to the conversation.
type FaceDetection struct {
	Camera   facedetect.Camera
	Detector facedetect.Detector
	Options  []facedetect.ScannerOption
}

// AppDeps are the collaborators of an App.
type AppDeps struct {
	View          View
	Sessions      SessionFactory
	Store         *persistence.Store
	FaceDetection *FaceDetection
	Metrics       Metrics
	Tracer        *telemetry.ConversationTracer
	Logger        *slog.Logger
}

// App is the kiosk state machine:
//
//	Welcome -> DetectingFace -> Conversing -> Welcome
//	Welcome -> ViewingHistory -> Welcome
//
// Commands are delivered with Dispatch; Run processes them on one goroutine.
type App struct {
	deps     AppDeps
	cfg      ConversationConfig
	log      *slog.Logger
	commands chan Command

	mu     sync.Mutex
	screen Screen
}

// NewApp creates an App.
func NewApp(deps AppDeps, cfg ConversationConfig) *App {
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Tracer == nil {
		deps.Tracer = telemetry.NewConversationTracer(nil)
	}
	if deps.Logger == nil {
		deps.Logger = logger.DefaultLogger
	}
	return &App{
		deps:     deps,
		cfg:      cfg,
		log:      deps.Logger.With("component", component),
		commands: make(chan Command, 8),
	}
}

// Screen returns the current screen.
func (a *App) Screen() Screen {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.screen
}

func (a *App) setScreen(s Screen) {
	a.mu.Lock()
	a.screen = s
	a.mu.Unlock()
	a.log.Debug("screen", "screen", s.String())
}

// Dispatch queues a command. Commands that do not apply to the current
// screen are ignored.
func (a *App) Dispatch(cmd Command) {
	a.commands <- cmd
}

// Run drives the app until CmdQuit or ctx is done. An active conversation is
// ended (and saved) before Run returns.
func (a *App) Run(ctx context.Context) error {
	next := ScreenWelcome
	for {
		var err error
		switch next {
		case ScreenWelcome:
			next, err = a.welcome(ctx)
		case ScreenDetectingFace:
			next, err = a.detectFace(ctx)
		case ScreenConversing:
			next, err = a.converse(ctx)
		case ScreenViewingHistory:
			next, err = a.history(ctx)
		}
		if err != nil {
			if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

var errQuit = errors.New("quit")

// await returns the next command, or errQuit / ctx.Err().
func (a *App) await(ctx context.Context, extra <-chan struct{}) (Command, bool, error) {
	select {
	case <-ctx.Done():
		return 0, false, ctx.Err()
	case <-extra:
		return 0, false, nil
	case cmd := <-a.commands:
		if cmd == CmdQuit {
			return cmd, true, errQuit
		}
		return cmd, true, nil
	}
}

func (a *App) welcome(ctx context.Context) (Screen, error) {
	a.setScreen(ScreenWelcome)
	a.deps.View.ShowWelcome()
	for {
		cmd, _, err := a.await(ctx, nil)
		if err != nil {
			return 0, err
		}
		switch cmd {
		case CmdStart:
			if a.deps.FaceDetection == nil {
				return ScreenConversing, nil
			}
			return ScreenDetectingFace, nil
		case CmdViewHistory:
			return ScreenViewingHistory, nil
		}
	}
}

// Face scan results reported to Metrics.
const (
	scanDetected  = "detected"
	scanCancelled = "cancelled"
	scanError     = "error"
)

func (a *App) detectFace(ctx context.Context) (Screen, error) {
	a.setScreen(ScreenDetectingFace)
	fd := a.deps.FaceDetection

	began := time.Now()
	spanCtx, finishSpan := a.deps.Tracer.FaceScan(ctx)

	a.deps.View.ShowLoading(MsgLoadingModels)
	if err := fd.Detector.Load(spanCtx); err != nil {
		finishSpan(err)
		a.log.ErrorContext(ctx, "loading face detection model", "error", err)
		a.deps.View.ShowError(MsgModelLoadError)
		return a.blocked(ctx)
	}

	scanCtx, cancel := context.WithCancel(spanCtx)
	defer cancel()

	opts := append([]facedetect.ScannerOption{
		facedetect.WithStatusHandler(a.deps.View.ShowFaceStatus),
		facedetect.WithScannerLogger(a.deps.Logger),
	}, fd.Options...)
	scanner := facedetect.NewScanner(fd.Camera, fd.Detector, opts...)
	a.deps.View.ShowFaceStatus(facedetect.StatusIdle)

	result := make(chan error, 1)
	go func() {
		result <- scanner.Run(scanCtx)
	}()

	for {
		select {
		case err := <-result:
			finishSpan(err)
			return a.scanFinished(ctx, err, time.Since(began))
		case <-ctx.Done():
			cancel()
			finishSpan(<-result)
			a.deps.Metrics.FaceScan(scanCancelled, time.Since(began))
			return 0, ctx.Err()
		case cmd := <-a.commands:
			if cmd != CmdBack && cmd != CmdQuit {
				continue
			}
			cancel()
			finishSpan(<-result)
			a.deps.Metrics.FaceScan(scanCancelled, time.Since(began))
			if cmd == CmdQuit {
				return 0, errQuit
			}
			return ScreenWelcome, nil
		}
	}
}

func (a *App) scanFinished(ctx context.Context, err error, d time.Duration) (Screen, error) {
	if err == nil {
		a.deps.Metrics.FaceScan(scanDetected, d)
		return ScreenConversing, nil
	}
	a.deps.Metrics.FaceScan(scanError, d)
	a.log.ErrorContext(ctx, "face scan failed", "error", err)
	if errors.Is(err, pkgerrors.ErrDeviceAccess) {
		a.deps.View.ShowFaceStatus(facedetect.StatusIdle)
		a.deps.View.ShowError(MsgCameraError)
	} else {
		a.deps.View.ShowError(MsgDetectorFailure)
	}
	return a.blocked(ctx)
}

// blocked keeps an error on screen until the visitor goes back.
func (a *App) blocked(ctx context.Context) (Screen, error) {
	for {
		cmd, _, err := a.await(ctx, nil)
		if err != nil {
			return 0, err
		}
		if cmd == CmdBack {
			return ScreenWelcome, nil
		}
	}
}

func (a *App) converse(ctx context.Context) (Screen, error) {
	a.setScreen(ScreenConversing)
	conv := NewConversation(ConversationDeps{
		Sessions: a.deps.Sessions,
		Store:    a.deps.Store,
		Metrics:  a.deps.Metrics,
		Tracer:   a.deps.Tracer,
		Logger:   a.deps.Logger,
		OnChange: a.deps.View.ShowConversation,
	}, a.cfg)
	a.deps.View.ShowConversation(conv.State())
	conv.Start(context.WithoutCancel(ctx))

	for {
		cmd, ok, err := a.await(ctx, conv.Done())
		if err != nil {
			conv.End()
			return 0, err
		}
		if !ok || cmd == CmdEnd {
			conv.End()
			return ScreenWelcome, nil
		}
	}
}

func (a *App) history(ctx context.Context) (Screen, error) {
	a.setScreen(ScreenViewingHistory)
	a.deps.View.ShowHistory(a.deps.Store.List(ctx))
	for {
		cmd, _, err := a.await(ctx, nil)
		if err != nil {
			return 0, err
		}
		switch cmd {
		case CmdClearHistory:
			a.deps.Store.Clear(ctx)
			a.deps.View.ShowHistory(a.deps.Store.List(ctx))
		case CmdBack:
			return ScreenWelcome, nil
		}
	}
}
