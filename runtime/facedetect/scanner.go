package facedetect

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"k8s.io/utils/clock"

	pkgerrors "github.com/AltairaLabs/PromptKiosk/pkg/errors"
	"github.com/AltairaLabs/PromptKiosk/runtime/logger"
)

// Scanner timing.
const (
	DefaultInterval = 500 * time.Millisecond
	DefaultTimeout  = 10 * time.Second
	DefaultGrace    = 1 * time.Second
)

// Scanner polls for a face.
//
// While scanning it grabs a frame every interval. If no face is found within
// timeout the status moves to waiting once; polling continues. On the first
// detection polling and the timeout stop, the status becomes detected, and Run
// returns after the grace period.
type Scanner struct {
	camera   Camera
	detector Detector
	clock    clock.WithTicker
	log      *slog.Logger
	onStatus func(Status)

	interval time.Duration
	timeout  time.Duration
	grace    time.Duration

	mu     sync.Mutex
	status Status
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithClock replaces the real clock, e.g. with a fake clock in tests.
func WithClock(c clock.WithTicker) ScannerOption {
	return func(s *Scanner) {
		s.clock = c
	}
}

// WithStatusHandler is called on every status change.
func WithStatusHandler(fn func(Status)) ScannerOption {
	return func(s *Scanner) {
		s.onStatus = fn
	}
}

// WithTimings overrides the poll interval, the waiting timeout and the grace period.
func WithTimings(interval, timeout, grace time.Duration) ScannerOption {
	return func(s *Scanner) {
		s.interval, s.timeout, s.grace = interval, timeout, grace
	}
}

// WithScannerLogger sets the logger.
func WithScannerLogger(l *slog.Logger) ScannerOption {
	return func(s *Scanner) {
		s.log = l
	}
}

// NewScanner creates a scanner over camera and detector.
func NewScanner(camera Camera, detector Detector, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		camera:   camera,
		detector: detector,
		clock:    clock.RealClock{},
		interval: DefaultInterval,
		timeout:  DefaultTimeout,
		grace:    DefaultGrace,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.DefaultLogger
	}
	s.log = s.log.With("component", component)
	return s
}

// Status returns the current status.
func (s *Scanner) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Scanner) setStatus(st Status) {
	s.mu.Lock()
	changed := s.status != st
	s.status = st
	s.mu.Unlock()
	if changed && s.onStatus != nil {
		s.onStatus(st)
	}
}

// Run starts the camera and scans until a face is detected (returns nil),
// ctx is done (returns ctx.Err()), or the camera cannot start (returns an
// ErrDeviceAccess error and leaves the status idle).
func (s *Scanner) Run(ctx context.Context) error {
	if err := s.camera.Start(ctx); err != nil {
		s.setStatus(StatusIdle)
		return pkgerrors.Wrap(pkgerrors.ErrDeviceAccess, component, "StartCamera", err)
	}
	defer func() {
		if err := s.camera.Stop(); err != nil {
			s.log.Debug("stopping camera", "error", err)
		}
	}()

	ticker := s.clock.NewTicker(s.interval)
	timeout := s.clock.NewTimer(s.timeout)
	s.setStatus(StatusScanning)

	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			timeout.Stop()
			return ctx.Err()

		case <-timeout.C():
			if s.Status() == StatusScanning {
				s.setStatus(StatusWaiting)
			}

		case <-ticker.C():
			if !s.poll(ctx) {
				continue
			}
			ticker.Stop()
			timeout.Stop()
			grace := s.clock.After(s.grace)
			s.setStatus(StatusDetected)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-grace:
				return nil
			}
		}
	}
}

// poll runs one detection and reports whether a face was found.
func (s *Scanner) poll(ctx context.Context) bool {
	frame, err := s.camera.Frame(ctx)
	if err != nil {
		s.log.Debug("frame capture failed", "error", err)
		return false
	}
	n, err := s.detector.DetectFaces(ctx, frame)
	if err != nil {
		s.log.Debug("detection failed", "error", err)
		return false
	}
	return n > 0
}
