package main

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AltairaLabs/PromptKiosk/pkg/config"
)

// EnvPrefix prefixes environment overrides, e.g. PROMPTKIOSK_GEMINI_MODEL.
const EnvPrefix = "PROMPTKIOSK"

// apiKeyEnv lists the variables that may carry the Gemini API key, in
// priority order.
var apiKeyEnv = []string{EnvPrefix + "_GEMINI_API_KEY", "GEMINI_API_KEY", "API_KEY"}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return resolveConfig(config.ExpandHome(path), cmd.Flags().Changed("config"))
}

// resolveConfig layers defaults, the file at path and the environment.
// A missing file is only an error when required is set.
func resolveConfig(path string, required bool) (*config.Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	defaults, err := config.Marshal(config.Default())
	if err != nil {
		return nil, err
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("failed to read defaults: %w", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := config.ValidateKioskConfig(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !required:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv(append([]string{"gemini.api_key"}, apiKeyEnv...)...); err != nil {
		return nil, err
	}

	cfg := &config.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configWarnings returns the non-fatal findings for cfg.
func configWarnings(cfg *config.Config) []string {
	v := config.NewConfigValidator(cfg)
	_ = v.Validate()
	return v.GetWarnings()
}
