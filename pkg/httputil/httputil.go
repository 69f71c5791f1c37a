// Package httputil provides shared HTTP client construction for the kiosk's
// plain HTTP collaborators (model weight hosts, camera snapshots, detection
// sidecars).
package httputil

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Standard timeout defaults.
const (
	// DefaultModelTimeout bounds fetches against the model weight host.
	DefaultModelTimeout = 30 * time.Second

	// DefaultFrameTimeout bounds a single snapshot or detection request. It is
	// shorter than the scanner's poll interval budget so a slow camera skips a
	// tick instead of stalling the scan.
	DefaultFrameTimeout = 2 * time.Second
)

// NewHTTPClient returns an *http.Client configured with the given timeout.
// Requests are traced as client spans; opts default to the global
// TracerProvider and propagators.
func NewHTTPClient(timeout time.Duration, opts ...otelhttp.Option) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport, opts...),
	}
}
