// Package config provides configuration for the PromptKiosk process.
//
// A configuration file is YAML:
//
//	gemini:
//	  model: gemini-2.5-flash-native-audio-preview-09-2025
//	persona:
//	  voice: Zephyr
//	storage:
//	  backend: file
//	  dir: ~/.promptkiosk
//
// Files are schema-checked (schema.go), decoded over Default() and then
// validated (validator.go). The CLI layers PROMPTKIOSK_* environment
// variables and flags on top with viper, which is why every field also
// carries a mapstructure tag.
package config

import (
	"time"

	"github.com/AltairaLabs/PromptKiosk/runtime/audio"
	"github.com/AltairaLabs/PromptKiosk/runtime/facedetect"
	"github.com/AltairaLabs/PromptKiosk/runtime/persistence"
	"github.com/AltairaLabs/PromptKiosk/runtime/providers/gemini"
)

// Config is the complete kiosk configuration.
type Config struct {
	Gemini        GeminiConfig        `yaml:"gemini" mapstructure:"gemini"`
	Persona       Persona             `yaml:"persona" mapstructure:"persona"`
	Audio         AudioConfig         `yaml:"audio" mapstructure:"audio"`
	FaceDetection FaceDetectionConfig `yaml:"face_detection" mapstructure:"face_detection"`
	Storage       StorageConfig       `yaml:"storage" mapstructure:"storage"`
	Logging       LoggingConfig       `yaml:"logging" mapstructure:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics" mapstructure:"metrics"`
	Telemetry     TelemetryConfig     `yaml:"telemetry" mapstructure:"telemetry"`
}

// GeminiConfig configures the Live API connection. APIKey is normally left
// empty in files and supplied through GEMINI_API_KEY.
type GeminiConfig struct {
	APIKey            string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	URL               string        `yaml:"url" mapstructure:"url"`
	Model             string        `yaml:"model" mapstructure:"model"`
	SetupTimeout      time.Duration `yaml:"setup_timeout" mapstructure:"setup_timeout"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" mapstructure:"heartbeat_interval"`
}

// AudioConfig sets the capture and playback formats.
type AudioConfig struct {
	InputSampleRate  int `yaml:"input_sample_rate" mapstructure:"input_sample_rate"`
	OutputSampleRate int `yaml:"output_sample_rate" mapstructure:"output_sample_rate"`
	FrameSize        int `yaml:"frame_size" mapstructure:"frame_size"`
}

// Face detector and camera kinds.
const (
	DetectorManual = "manual"
	DetectorRemote = "remote"

	CameraNone     = "none"
	CameraSnapshot = "snapshot"
)

// FaceDetectionConfig selects the presence detector. Disabled skips
// straight from the welcome screen to the conversation.
type FaceDetectionConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	Detector    string `yaml:"detector" mapstructure:"detector"`
	DetectorURL string `yaml:"detector_url,omitempty" mapstructure:"detector_url"`
	Camera      string `yaml:"camera" mapstructure:"camera"`
	SnapshotURL string `yaml:"snapshot_url,omitempty" mapstructure:"snapshot_url"`
	WeightsURL  string `yaml:"weights_url" mapstructure:"weights_url"`
}

// Storage backends.
const (
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// StorageConfig selects where past transcripts are kept.
type StorageConfig struct {
	Backend   string `yaml:"backend" mapstructure:"backend"`
	Dir       string `yaml:"dir,omitempty" mapstructure:"dir"`
	Key       string `yaml:"key" mapstructure:"key"`
	RedisAddr string `yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`
	Limit     int64  `yaml:"limit,omitempty" mapstructure:"limit"`
}

// MetricsConfig enables the Prometheus exporter when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty" mapstructure:"addr"`
}

// TelemetryConfig enables OTLP trace export when OTLPEndpoint is set.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty" mapstructure:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name" mapstructure:"service_name"`
}

// DefaultDir is where the file backend writes when no dir is configured.
const DefaultDir = "~/.promptkiosk"

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Gemini: GeminiConfig{
			URL:               gemini.DefaultURL,
			Model:             gemini.DefaultModel,
			SetupTimeout:      10 * time.Second,
			HeartbeatInterval: 30 * time.Second,
		},
		Persona: DefaultPersona(),
		Audio: AudioConfig{
			InputSampleRate:  audio.SampleRate16kHz,
			OutputSampleRate: audio.SampleRate24kHz,
			FrameSize:        audio.DefaultFrameSize,
		},
		FaceDetection: FaceDetectionConfig{
			Enabled:    true,
			Detector:   DetectorManual,
			Camera:     CameraNone,
			WeightsURL: facedetect.DefaultWeightsURL,
		},
		Storage: StorageConfig{
			Backend: StorageFile,
			Dir:     DefaultDir,
			Key:     persistence.DefaultKey,
		},
		Logging:   DefaultLoggingConfig(),
		Telemetry: TelemetryConfig{ServiceName: "promptkiosk"},
	}
}
