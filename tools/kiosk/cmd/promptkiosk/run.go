package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gordonklaus/portaudio"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AltairaLabs/PromptKiosk/pkg/config"
	pkgerrors "github.com/AltairaLabs/PromptKiosk/pkg/errors"
	"github.com/AltairaLabs/PromptKiosk/runtime/audio"
	"github.com/AltairaLabs/PromptKiosk/runtime/facedetect"
	"github.com/AltairaLabs/PromptKiosk/runtime/kiosk"
	"github.com/AltairaLabs/PromptKiosk/runtime/live"
	"github.com/AltairaLabs/PromptKiosk/runtime/logger"
	"github.com/AltairaLabs/PromptKiosk/runtime/metrics/prometheus"
	"github.com/AltairaLabs/PromptKiosk/runtime/persistence"
	"github.com/AltairaLabs/PromptKiosk/runtime/providers/gemini"
	"github.com/AltairaLabs/PromptKiosk/runtime/telemetry"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the kiosk",
	Long: `Run the kiosk in the terminal using the default microphone and speaker.

Press Enter on the welcome screen to start. With the manual detector, press
Enter again to confirm a visitor is present. Press Enter during a conversation
to end it.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runKiosk(cmd.Context(), loaded, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runKiosk(parent context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, w := range configWarnings(cfg) {
		logger.Warn("config", "warning", w)
	}

	tp, shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("tracing shutdown", "error", err)
		}
	}()

	obs := prometheus.NewObserver()
	store, closeStore, err := openStore(ctx, cfg.Storage, persistence.WithSavedHook(obs.TranscriptSaved))
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	if err := portaudio.Initialize(); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrDeviceAccess, "promptkiosk", "InitializeAudio", err)
	}
	defer func() { _ = portaudio.Terminate() }()

	client := newGeminiClient(cfg.Gemini, obs)
	sessions := kiosk.LiveSessions{
		Deps: live.Deps{
			Connector: live.GeminiConnector{Client: client},
			Input:     audio.PortAudio{},
			Output:    audio.PortAudio{},
			Observer:  obs,
		},
		Config: live.Config{
			Live:             cfg.LiveConfig(),
			InputSampleRate:  cfg.Audio.InputSampleRate,
			OutputSampleRate: cfg.Audio.OutputSampleRate,
			FrameSize:        cfg.Audio.FrameSize,
		},
	}

	var presses *io.PipeWriter
	var fd *kiosk.FaceDetection
	if cfg.FaceDetection.Enabled {
		var pr *io.PipeReader
		if cfg.FaceDetection.Detector == config.DetectorManual {
			pr, presses = io.Pipe()
			defer presses.Close()
		}
		fd = faceDetection(cfg.FaceDetection, pr)
	}

	view := newTerminalView(out, cfg.Persona.Name, presses != nil)
	app := kiosk.NewApp(kiosk.AppDeps{
		View:          view,
		Sessions:      sessions,
		Store:         store,
		FaceDetection: fd,
		Metrics:       obs,
		Tracer:        telemetry.NewConversationTracer(telemetry.Tracer(tp)),
	}, kiosk.ConversationConfig{
		Greeting: cfg.Persona.Greeting,
		Model:    cfg.Gemini.Model,
	})

	kb := &keyboard{app: app}
	if presses != nil {
		kb.presses = presses
	}
	go kb.run(in)

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return app.Run(gctx)
	})
	if cfg.Metrics.Addr != "" {
		exporter := prometheus.NewExporter(cfg.Metrics.Addr)
		g.Go(func() error {
			logger.Info("serving metrics", "addr", cfg.Metrics.Addr)
			return exporter.Run(gctx)
		})
	}
	return g.Wait()
}

// faceDetection builds the presence detector. presses feeds the manual
// detector and is nil for the others.
func faceDetection(cfg config.FaceDetectionConfig, presses io.Reader) *kiosk.FaceDetection {
	var camera facedetect.Camera = facedetect.NullCamera{}
	if cfg.Camera == config.CameraSnapshot {
		camera = facedetect.NewSnapshotCamera(cfg.SnapshotURL)
	}

	var detector facedetect.Detector
	switch cfg.Detector {
	case config.DetectorRemote:
		detector = facedetect.NewWeightsProbe(facedetect.NewRemoteDetector(cfg.DetectorURL), cfg.WeightsURL)
	default:
		detector = facedetect.NewManualDetector(presses)
	}
	return &kiosk.FaceDetection{Camera: camera, Detector: detector}
}

// decodeCounter counts payloads dropped as malformed.
type decodeCounter interface {
	DecodeError()
}

// newGeminiClient builds the Live API client. Malformed server frames are
// counted with undecodable audio chunks.
func newGeminiClient(cfg config.GeminiConfig, counter decodeCounter) *gemini.Client {
	return gemini.NewClient(cfg.APIKey,
		gemini.WithURL(cfg.URL),
		gemini.WithSetupTimeout(cfg.SetupTimeout),
		gemini.WithHeartbeatInterval(cfg.HeartbeatInterval),
		gemini.WithDecodeErrorHook(func(error) { counter.DecodeError() }),
	)
}
