package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/AltairaLabs/PromptKiosk/pkg/config"
	"github.com/AltairaLabs/PromptKiosk/runtime/logger"
)

const defaultConfigPath = config.DefaultDir + "/config.yaml"

// annotationSkipConfig marks commands that run without a loaded configuration.
const annotationSkipConfig = "skip-config"

var rootCmd = &cobra.Command{
	Use:          "promptkiosk",
	Short:        "PromptKiosk - voice receptionist kiosk on the Gemini Live API",
	Version:      GetVersion(),
	SilenceUsage: true,
	Long: `PromptKiosk runs a walk-up voice receptionist in the terminal.

A visitor steps in front of the kiosk, is greeted by the AI persona and holds a
spoken conversation through the default microphone and speaker. Finished
conversations are kept as transcripts that can be listed or exported.

The Gemini API key is read from GEMINI_API_KEY (or API_KEY). A .env file in the
working directory is loaded first when present.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadDotEnv(".env"); err != nil {
			return err
		}
		if cmd.Annotations[annotationSkipConfig] != "" {
			return nil
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			cfg.Logging.Level = config.LogLevelDebug
		}
		logger.Configure(cfg.Logging.LoggerConfig())
		loaded = cfg
		return nil
	},
}

// loaded is the configuration resolved by the root command.
var loaded *config.Config

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", defaultConfigPath, "Configuration file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}

// loadDotEnv loads path into the environment. A missing file is not an error;
// variables already set win.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func setupVersion() {
	rootCmd.SetVersionTemplate(GetVersionInfo() + "\n")
}

// Execute runs the root command.
func Execute() {
	setupVersion()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
