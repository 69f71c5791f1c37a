package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
)

// ConfigValidator checks a decoded configuration for consistency.
type ConfigValidator struct {
	config *Config
	errors []error
	warns  []string
}

// NewConfigValidator creates a new configuration validator.
func NewConfigValidator(cfg *Config) *ConfigValidator {
	return &ConfigValidator{config: cfg}
}

// Validate runs every check and joins the failures.
func (v *ConfigValidator) Validate() error {
	v.validateGemini()
	v.validatePersona()
	v.validateAudio()
	v.validateFaceDetection()
	v.validateStorage()
	v.validateObservability()

	if len(v.errors) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(v.errors...))
	}
	return nil
}

// GetWarnings returns all validation warnings.
func (v *ConfigValidator) GetWarnings() []string {
	return v.warns
}

func (v *ConfigValidator) fail(format string, args ...any) {
	v.errors = append(v.errors, fmt.Errorf(format, args...))
}

func (v *ConfigValidator) validateGemini() {
	g := v.config.Gemini
	if g.Model == "" {
		v.fail("gemini.model is required")
	}
	if u, err := url.Parse(g.URL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		v.fail("gemini.url must be a ws:// or wss:// URL, got %q", g.URL)
	}
	if g.SetupTimeout <= 0 {
		v.fail("gemini.setup_timeout must be positive")
	}
	if g.HeartbeatInterval <= 0 {
		v.fail("gemini.heartbeat_interval must be positive")
	}
	if g.APIKey == "" {
		v.warns = append(v.warns, "gemini API key is not set; set GEMINI_API_KEY before starting a conversation")
	}
}

func (v *ConfigValidator) validatePersona() {
	if v.config.Persona.Voice == "" {
		v.fail("persona.voice is required")
	}
	if v.config.Persona.Greeting == "" {
		v.warns = append(v.warns, "persona.greeting is empty; conversations will start without a greeting")
	}
}

func (v *ConfigValidator) validateAudio() {
	a := v.config.Audio
	if a.InputSampleRate <= 0 || a.OutputSampleRate <= 0 {
		v.fail("audio sample rates must be positive")
	}
	if a.FrameSize <= 0 {
		v.fail("audio.frame_size must be positive")
	}
}

func (v *ConfigValidator) validateFaceDetection() {
	fd := v.config.FaceDetection
	if !fd.Enabled {
		return
	}
	switch fd.Detector {
	case DetectorManual:
	case DetectorRemote:
		if fd.DetectorURL == "" {
			v.fail("face_detection.detector_url is required for the remote detector")
		}
		if fd.Camera == CameraNone {
			v.warns = append(v.warns, "remote detector without a camera will only see empty frames")
		}
	default:
		v.fail("unknown face_detection.detector %q", fd.Detector)
	}
	switch fd.Camera {
	case CameraNone:
	case CameraSnapshot:
		if fd.SnapshotURL == "" {
			v.fail("face_detection.snapshot_url is required for the snapshot camera")
		}
	default:
		v.fail("unknown face_detection.camera %q", fd.Camera)
	}
}

func (v *ConfigValidator) validateStorage() {
	s := v.config.Storage
	if !slices.Contains([]string{StorageFile, StorageRedis, StorageMemory}, s.Backend) {
		v.fail("unknown storage.backend %q", s.Backend)
		return
	}
	if s.Key == "" {
		v.fail("storage.key is required")
	}
	if s.Backend == StorageFile && s.Dir == "" {
		v.fail("storage.dir is required for the file backend")
	}
	if s.Backend == StorageRedis && s.RedisAddr == "" {
		v.fail("storage.redis_addr is required for the redis backend")
	}
	if s.Limit < 0 {
		v.fail("storage.limit must not be negative")
	}
}

func (v *ConfigValidator) validateObservability() {
	if err := v.config.Logging.Validate(); err != nil {
		v.errors = append(v.errors, err)
	}
	if addr := v.config.Metrics.Addr; addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			v.fail("metrics.addr %q: %w", addr, err)
		}
	}
}

// Validate is shorthand for NewConfigValidator(c).Validate().
func (c *Config) Validate() error {
	return NewConfigValidator(c).Validate()
}
