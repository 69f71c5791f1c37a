package kiosk

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/AltairaLabs/PromptKiosk/pkg/errors"
	"github.com/AltairaLabs/PromptKiosk/runtime/facedetect"
	"github.com/AltairaLabs/PromptKiosk/runtime/persistence"
	"github.com/AltairaLabs/PromptKiosk/runtime/persistence/memory"
	"github.com/AltairaLabs/PromptKiosk/runtime/transcript"
)

type fakeView struct {
	mu       sync.Mutex
	welcomes int
	loading  []string
	statuses []facedetect.Status
	errs     []string
	convs    []State
	history  [][]transcript.StoredTranscript
}

func (v *fakeView) ShowWelcome() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.welcomes++
}

func (v *fakeView) ShowLoading(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loading = append(v.loading, msg)
}

func (v *fakeView) ShowFaceStatus(s facedetect.Status) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.statuses = append(v.statuses, s)
}

func (v *fakeView) ShowError(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errs = append(v.errs, msg)
}

func (v *fakeView) ShowConversation(s State) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.convs = append(v.convs, s)
}

func (v *fakeView) ShowHistory(list []transcript.StoredTranscript) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.history = append(v.history, list)
}

func (v *fakeView) welcomeCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.welcomes
}

func (v *fakeView) errors() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.errs...)
}

func (v *fakeView) lastStatus() (facedetect.Status, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.statuses) == 0 {
		return 0, false
	}
	return v.statuses[len(v.statuses)-1], true
}

func (v *fakeView) histories() [][]transcript.StoredTranscript {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([][]transcript.StoredTranscript(nil), v.history...)
}

type stubCamera struct {
	startErr error
}

func (c stubCamera) Start(context.Context) error { return c.startErr }
func (stubCamera) Frame(context.Context) (facedetect.Frame, error) {
	return facedetect.Frame{Data: []byte{0}}, nil
}
func (stubCamera) Stop() error { return nil }

type stubDetector struct {
	loadErr error
	faces   int
}

func (d stubDetector) Load(context.Context) error { return d.loadErr }
func (d stubDetector) DetectFaces(context.Context, facedetect.Frame) (int, error) {
	return d.faces, nil
}

type appHarness struct {
	app      *App
	view     *fakeView
	sessions *fakeSessions
	store    *persistence.Store
	metrics  *fakeMetrics
	cancel   context.CancelFunc
	done     chan error
}

func startApp(t *testing.T, fd *FaceDetection) *appHarness {
	t.Helper()
	h := &appHarness{
		view:     &fakeView{},
		sessions: newFakeSessions(),
		store:    persistence.NewStore(memory.New()),
		metrics:  &fakeMetrics{},
		done:     make(chan error, 1),
	}
	h.app = NewApp(AppDeps{
		View:          h.view,
		Sessions:      h.sessions,
		Store:         h.store,
		FaceDetection: fd,
		Metrics:       h.metrics,
	}, ConversationConfig{})

	ctx, cancel := context.WithCancel(t.Context())
	h.cancel = cancel
	go func() { h.done <- h.app.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	require.Eventually(t, func() bool { return h.view.welcomeCount() == 1 }, waitFor, tick)
	return h
}

func (h *appHarness) waitScreen(t *testing.T, s Screen) {
	t.Helper()
	require.Eventually(t, func() bool { return h.app.Screen() == s }, waitFor, tick,
		"want screen %s, have %s", s, h.app.Screen())
}

func fastScan() []facedetect.ScannerOption {
	return []facedetect.ScannerOption{
		facedetect.WithTimings(5*time.Millisecond, time.Second, 5*time.Millisecond),
	}
}

func TestScreen_String(t *testing.T) {
	assert.Equal(t, "WELCOME", ScreenWelcome.String())
	assert.Equal(t, "DETECTING_FACE", ScreenDetectingFace.String())
	assert.Equal(t, "CONVERSING", ScreenConversing.String())
	assert.Equal(t, "VIEWING_HISTORY", ScreenViewingHistory.String())
	assert.Equal(t, "UNKNOWN", Screen(42).String())
}

func TestApp_ConversationWithoutFaceDetection(t *testing.T) {
	h := startApp(t, nil)

	h.app.Dispatch(CmdStart)
	h.waitScreen(t, ScreenConversing)
	require.Eventually(t, func() bool {
		cb := h.sessions.callbacks()
		return cb.OnClose != nil
	}, waitFor, tick)

	h.app.Dispatch(CmdEnd)
	require.Eventually(t, func() bool { return h.view.welcomeCount() == 2 }, waitFor, tick)
	assert.Equal(t, ScreenWelcome, h.app.Screen())
	waitTornDown(t, h.sessions.log)
}

func TestApp_FaceDetectedStartsConversation(t *testing.T) {
	h := startApp(t, &FaceDetection{
		Camera:   stubCamera{},
		Detector: stubDetector{faces: 1},
		Options:  fastScan(),
	})

	h.app.Dispatch(CmdStart)
	h.waitScreen(t, ScreenConversing)

	status, ok := h.view.lastStatus()
	require.True(t, ok)
	assert.Equal(t, facedetect.StatusDetected, status)
	assert.Equal(t, []string{scanDetected}, h.metrics.scanResults())

	h.view.mu.Lock()
	assert.Equal(t, []string{MsgLoadingModels}, h.view.loading)
	h.view.mu.Unlock()

	h.app.Dispatch(CmdEnd)
	require.Eventually(t, func() bool { return h.view.welcomeCount() == 2 }, waitFor, tick)
}

func TestApp_BackCancelsScan(t *testing.T) {
	h := startApp(t, &FaceDetection{
		Camera:   stubCamera{},
		Detector: stubDetector{},
		Options:  fastScan(),
	})

	h.app.Dispatch(CmdStart)
	h.waitScreen(t, ScreenDetectingFace)
	h.app.Dispatch(CmdEnd) // ignored while scanning
	h.app.Dispatch(CmdBack)

	require.Eventually(t, func() bool { return h.view.welcomeCount() == 2 }, waitFor, tick)
	assert.Equal(t, []string{scanCancelled}, h.metrics.scanResults())
	assert.Empty(t, h.sessions.log.list())
}

func TestApp_ModelLoadFailure(t *testing.T) {
	h := startApp(t, &FaceDetection{
		Camera:   stubCamera{},
		Detector: stubDetector{loadErr: pkgerrors.ErrModelLoad},
	})

	h.app.Dispatch(CmdStart)
	require.Eventually(t, func() bool { return len(h.view.errors()) == 1 }, waitFor, tick)
	assert.Equal(t, MsgModelLoadError, h.view.errors()[0])
	assert.Equal(t, ScreenDetectingFace, h.app.Screen())

	h.app.Dispatch(CmdStart) // ignored until the visitor goes back
	h.app.Dispatch(CmdBack)
	require.Eventually(t, func() bool { return h.view.welcomeCount() == 2 }, waitFor, tick)
	assert.Empty(t, h.metrics.scanResults())
}

func TestApp_CameraFailure(t *testing.T) {
	h := startApp(t, &FaceDetection{
		Camera:   stubCamera{startErr: errors.New("permission denied")},
		Detector: stubDetector{faces: 1},
		Options:  fastScan(),
	})

	h.app.Dispatch(CmdStart)
	require.Eventually(t, func() bool { return len(h.view.errors()) == 1 }, waitFor, tick)
	assert.Equal(t, MsgCameraError, h.view.errors()[0])

	status, ok := h.view.lastStatus()
	require.True(t, ok)
	assert.Equal(t, facedetect.StatusIdle, status)
	assert.Equal(t, []string{scanError}, h.metrics.scanResults())

	h.app.Dispatch(CmdBack)
	require.Eventually(t, func() bool { return h.view.welcomeCount() == 2 }, waitFor, tick)
}

func TestApp_History(t *testing.T) {
	h := startApp(t, nil)
	ctx := t.Context()
	h.store.Save(ctx, time.Now(), []transcript.Message{
		{ID: 1, Sender: transcript.SenderAI, Text: DefaultGreeting},
		{ID: 2, Sender: transcript.SenderUser, Text: "Where is the lift?"},
	})

	h.app.Dispatch(CmdViewHistory)
	require.Eventually(t, func() bool { return len(h.view.histories()) == 1 }, waitFor, tick)
	assert.Len(t, h.view.histories()[0], 1)
	assert.Equal(t, ScreenViewingHistory, h.app.Screen())

	h.app.Dispatch(CmdClearHistory)
	require.Eventually(t, func() bool { return len(h.view.histories()) == 2 }, waitFor, tick)
	assert.Empty(t, h.view.histories()[1])
	assert.Empty(t, h.store.List(ctx))

	h.app.Dispatch(CmdBack)
	require.Eventually(t, func() bool { return h.view.welcomeCount() == 2 }, waitFor, tick)
}

func TestApp_Quit(t *testing.T) {
	h := startApp(t, nil)
	h.app.Dispatch(CmdQuit)
	select {
	case err := <-h.done:
		require.NoError(t, err)
		h.done <- err
	case <-time.After(waitFor):
		t.Fatal("app did not quit")
	}
}

func TestApp_CancelEndsConversation(t *testing.T) {
	h := startApp(t, nil)
	h.app.Dispatch(CmdStart)
	h.waitScreen(t, ScreenConversing)
	require.Eventually(t, func() bool {
		return h.sessions.callbacks().OnClose != nil
	}, waitFor, tick)

	h.cancel()
	select {
	case err := <-h.done:
		require.NoError(t, err)
		h.done <- err
	case <-time.After(waitFor):
		t.Fatal("app did not stop")
	}
	waitTornDown(t, h.sessions.log)
}
