package audio

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	pkgerrors "github.com/AltairaLabs/PromptKiosk/pkg/errors"
)

// ErrFrameDropped is the cause reported when the capture queue is full.
var ErrFrameDropped = errors.New("capture queue full, frame dropped")

// SendFunc delivers one encoded capture chunk to the remote session.
type SendFunc func(ctx context.Context, data, mimeType string) error

// CaptureObserver receives capture notifications, e.g. for metrics.
type CaptureObserver interface {
	FrameCaptured()
	FrameDropped()
	FrameSent(err error)
}

const defaultCaptureQueue = 8

// CapturePipeline turns microphone frames into encoded chunks.
//
// OnFrame is called from the device callback and never blocks: frames are
// copied into a bounded queue and a full queue drops the frame. Run drains
// the queue on its own goroutine, encodes each frame and calls send. Send
// failures and drops are reported through the error callback from Run, and
// capture continues.
type CapturePipeline struct {
	send     SendFunc
	onError  func(error)
	observer CaptureObserver
	mimeType string

	frames    chan []float32
	drops     chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	captured atomic.Uint64
	dropped  atomic.Uint64
	// unreported counts drops not yet passed to onError.
	unreported atomic.Uint64
}

// CaptureOption configures a CapturePipeline.
type CaptureOption func(*CapturePipeline)

// WithQueueSize sets how many frames may wait for encoding.
func WithQueueSize(n int) CaptureOption {
	return func(c *CapturePipeline) {
		if n > 0 {
			c.frames = make(chan []float32, n)
		}
	}
}

// WithCaptureObserver registers an observer.
func WithCaptureObserver(o CaptureObserver) CaptureOption {
	return func(c *CapturePipeline) {
		c.observer = o
	}
}

// WithMIMEType overrides the MIME type attached to each chunk.
func WithMIMEType(mimeType string) CaptureOption {
	return func(c *CapturePipeline) {
		c.mimeType = mimeType
	}
}

// NewCapturePipeline creates a pipeline that delivers chunks through send.
// onError may be nil.
func NewCapturePipeline(send SendFunc, onError func(error), opts ...CaptureOption) *CapturePipeline {
	c := &CapturePipeline{
		send:     send,
		onError:  onError,
		mimeType: CaptureMIMEType,
		frames:   make(chan []float32, defaultCaptureQueue),
		drops:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EncodeFrame quantizes a float frame to 16-bit PCM and base64-encodes it.
func EncodeFrame(samples []float32) string {
	return EncodeBase64(EncodePCM16(samples))
}

// OnFrame enqueues a copy of samples. It is safe to call from a realtime
// callback and after Close.
func (c *CapturePipeline) OnFrame(samples []float32) {
	select {
	case <-c.done:
		return
	default:
	}

	frame := make([]float32, len(samples))
	copy(frame, samples)

	select {
	case c.frames <- frame:
		c.captured.Add(1)
		if c.observer != nil {
			c.observer.FrameCaptured()
		}
	default:
		c.dropped.Add(1)
		c.unreported.Add(1)
		if c.observer != nil {
			c.observer.FrameDropped()
		}
		select {
		case c.drops <- struct{}{}:
		default:
		}
	}
}

// Run encodes and sends queued frames until ctx is done or Close is called.
func (c *CapturePipeline) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case <-c.drops:
			c.reportDrops()
		case frame := <-c.frames:
			err := c.send(ctx, EncodeFrame(frame), c.mimeType)
			if c.observer != nil {
				c.observer.FrameSent(err)
			}
			if err != nil {
				c.report(pkgerrors.Wrap(pkgerrors.ErrSend, component, "Send", err))
			}
			c.reportDrops()
		}
	}
}

// reportDrops reports frames dropped since the last report as one error.
func (c *CapturePipeline) reportDrops() {
	n := c.unreported.Swap(0)
	if n == 0 {
		return
	}
	c.report(pkgerrors.Wrap(pkgerrors.ErrSend, component, "OnFrame", ErrFrameDropped).
		WithDetails(map[string]any{"dropped": n}))
}

// Close stops Run and makes further OnFrame calls no-ops. It is idempotent.
func (c *CapturePipeline) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Captured returns the number of frames accepted into the queue.
func (c *CapturePipeline) Captured() uint64 {
	return c.captured.Load()
}

// Dropped returns the number of frames dropped because the queue was full.
func (c *CapturePipeline) Dropped() uint64 {
	return c.dropped.Load()
}

func (c *CapturePipeline) report(err error) {
	if c.onError != nil {
		c.onError(err)
	}
}
