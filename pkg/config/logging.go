package config

import (
	"fmt"
	"slices"

	"github.com/AltairaLabs/PromptKiosk/runtime/logger"
)

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" mapstructure:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format" mapstructure:"format"`

	// CommonFields are added to every log entry (site, kiosk id, ...).
	CommonFields map[string]string `yaml:"common_fields,omitempty" mapstructure:"common_fields"`
}

// LogLevel constants for programmatic use.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

var validLevels = []string{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}

// DefaultLoggingConfig returns text logs at info.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  LogLevelInfo,
		Format: logger.FormatText,
	}
}

// Validate validates the LoggingConfig.
func (c *LoggingConfig) Validate() error {
	if c.Level != "" && !slices.Contains(validLevels, c.Level) {
		return fmt.Errorf("invalid log level %q (valid: %v)", c.Level, validLevels)
	}
	if c.Format != "" && c.Format != logger.FormatJSON && c.Format != logger.FormatText {
		return fmt.Errorf("invalid log format %q (valid: json, text)", c.Format)
	}
	return nil
}

// LoggerConfig converts to the logger package's configuration.
func (c *LoggingConfig) LoggerConfig() *logger.Config {
	return &logger.Config{
		Level:        c.Level,
		Format:       c.Format,
		CommonFields: c.CommonFields,
	}
}
