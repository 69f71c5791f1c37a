package logger

import (
	"log/slog"
)

// Log format constants
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Config selects the level and output format of the global logger.
type Config struct {
	Level        string
	Format       string // "json" or "text"
	CommonFields map[string]string
}

// Configure applies cfg to the global logger.
func Configure(cfg *Config) {
	if cfg == nil {
		return
	}

	level := slog.LevelInfo
	if cfg.Level != "" {
		level = ParseLevel(cfg.Level)
	}

	var commonFields []slog.Attr
	for k, v := range cfg.CommonFields {
		commonFields = append(commonFields, slog.String(k, v))
	}

	mu.Lock()
	defer mu.Unlock()

	opts := &slog.HandlerOptions{Level: level}
	var base slog.Handler
	if cfg.Format == FormatJSON {
		base = slog.NewJSONHandler(logOutput, opts)
	} else {
		base = slog.NewTextHandler(logOutput, opts)
	}

	DefaultLogger = slog.New(NewContextHandler(base, commonFields...))
	slog.SetDefault(DefaultLogger)
}
