package facedetect

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/AltairaLabs/PromptKiosk/pkg/httputil"
	pkgerrors "github.com/AltairaLabs/PromptKiosk/pkg/errors"
)

// DefaultWeightsURL hosts the face-api.js model weights.
const DefaultWeightsURL = "https://cdn.jsdelivr.net/gh/justadudewhohacks/face-api.js@0.22.2/weights"

// ModelNets are the networks whose weights must be reachable before scanning.
var ModelNets = []string{
	"tiny_face_detector_model",
	"face_landmark_68_model",
	"face_recognition_model",
	"face_expression_model",
}

const maxBodyBytes = 8 << 20

// WeightsProbe wraps a Detector and, on Load, first checks that every weight
// manifest under BaseURL is reachable and well formed.
type WeightsProbe struct {
	Detector
	BaseURL string
	Client  *http.Client
}

// NewWeightsProbe wraps det. An empty baseURL selects DefaultWeightsURL.
func NewWeightsProbe(det Detector, baseURL string) *WeightsProbe {
	if baseURL == "" {
		baseURL = DefaultWeightsURL
	}
	return &WeightsProbe{
		Detector: det,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Client:   httputil.NewHTTPClient(httputil.DefaultModelTimeout),
	}
}

// Load probes all manifests concurrently, then loads the wrapped detector.
// Any failure is an ErrModelLoad.
func (p *WeightsProbe) Load(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, net := range ModelNets {
		g.Go(func() error {
			return p.probe(gctx, net)
		})
	}
	if err := g.Wait(); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrModelLoad, component, "Load", err).
			WithDetails(map[string]any{"weights_url": p.BaseURL})
	}
	if err := p.Detector.Load(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrModelLoad, component, "Load", err)
	}
	return nil
}

type manifestGroup struct {
	Paths []string `json:"paths"`
}

func (p *WeightsProbe) probe(ctx context.Context, net string) error {
	url := fmt.Sprintf("%s/%s-weights_manifest.json", p.BaseURL, net)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", net, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", net, resp.StatusCode)
	}
	var groups []manifestGroup
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&groups); err != nil {
		return fmt.Errorf("%s: invalid manifest: %w", net, err)
	}
	if len(groups) == 0 || len(groups[0].Paths) == 0 {
		return fmt.Errorf("%s: manifest lists no weight shards", net)
	}
	return nil
}

// RemoteDetector delegates detection to an HTTP sidecar. Load checks
// GET {URL}/healthz; DetectFaces posts the frame to {URL}/detect and expects
// {"faces": n}.
type RemoteDetector struct {
	URL    string
	Client *http.Client
}

// NewRemoteDetector creates a detector for the sidecar at url.
func NewRemoteDetector(url string) *RemoteDetector {
	return &RemoteDetector{
		URL:    strings.TrimRight(url, "/"),
		Client: httputil.NewHTTPClient(httputil.DefaultFrameTimeout),
	}
}

// Load verifies the sidecar is healthy.
func (d *RemoteDetector) Load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL+"/healthz", http.NoBody)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrModelLoad, component, "Load", err)
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrModelLoad, component, "Load", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return pkgerrors.Wrap(pkgerrors.ErrModelLoad, component, "Load",
			fmt.Errorf("detector unhealthy")).WithStatusCode(resp.StatusCode)
	}
	return nil
}

type detectResponse struct {
	Faces int `json:"faces"`
}

// DetectFaces posts f and returns the number of faces found.
func (d *RemoteDetector) DetectFaces(ctx context.Context, f Frame) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL+"/detect", bytes.NewReader(f.Data))
	if err != nil {
		return 0, err
	}
	if f.ContentType != "" {
		req.Header.Set("Content-Type", f.ContentType)
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("detect: unexpected status %d", resp.StatusCode)
	}
	var out detectResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&out); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.ErrDecode, component, "DetectFaces", err)
	}
	return out.Faces, nil
}

// ManualDetector reports a face whenever a line is read from its input, so
// an operator (or the visitor) can press Enter on kiosks without a detector.
type ManualDetector struct {
	in      io.Reader
	once    sync.Once
	presses chan struct{}
}

// NewManualDetector reads presses from in.
func NewManualDetector(in io.Reader) *ManualDetector {
	return &ManualDetector{
		in:      in,
		presses: make(chan struct{}, 1),
	}
}

// Load starts reading input on first use and discards presses left over
// from an earlier scan.
func (d *ManualDetector) Load(context.Context) error {
	d.once.Do(func() {
		go d.read()
	})
	select {
	case <-d.presses:
	default:
	}
	return nil
}

func (d *ManualDetector) read() {
	sc := bufio.NewScanner(d.in)
	for sc.Scan() {
		select {
		case d.presses <- struct{}{}:
		default:
		}
	}
}

// DetectFaces returns 1 if a press arrived since the previous call.
func (d *ManualDetector) DetectFaces(context.Context, Frame) (int, error) {
	select {
	case <-d.presses:
		return 1, nil
	default:
		return 0, nil
	}
}
