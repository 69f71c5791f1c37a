package facedetect

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AltairaLabs/PromptKiosk/pkg/httputil"
)

// NullCamera produces empty frames. Pair it with a detector that does not
// look at pixels, such as ManualDetector.
type NullCamera struct{}

// Start implements Camera.
func (NullCamera) Start(context.Context) error { return nil }

// Frame implements Camera.
func (NullCamera) Frame(context.Context) (Frame, error) {
	return Frame{CapturedAt: time.Now()}, nil
}

// Stop implements Camera.
func (NullCamera) Stop() error { return nil }

// SnapshotCamera fetches still images from an IP camera snapshot URL.
type SnapshotCamera struct {
	URL    string
	Client *http.Client
}

// NewSnapshotCamera creates a camera for url.
func NewSnapshotCamera(url string) *SnapshotCamera {
	return &SnapshotCamera{
		URL:    url,
		Client: httputil.NewHTTPClient(httputil.DefaultFrameTimeout),
	}
}

// Start fetches one frame to confirm the camera is reachable.
func (c *SnapshotCamera) Start(ctx context.Context) error {
	_, err := c.Frame(ctx)
	return err
}

// Frame fetches the current snapshot.
func (c *SnapshotCamera) Frame(ctx context.Context) (Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, http.NoBody)
	if err != nil {
		return Frame{}, err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return Frame{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Frame{}, fmt.Errorf("snapshot: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
		CapturedAt:  time.Now(),
	}, nil
}

// Stop releases idle connections.
func (c *SnapshotCamera) Stop() error {
	c.Client.CloseIdleConnections()
	return nil
}
