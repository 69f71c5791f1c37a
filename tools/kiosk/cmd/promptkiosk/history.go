package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AltairaLabs/PromptKiosk/runtime/transcript"
)

// Export formats.
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage saved conversation transcripts",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print saved conversations, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		list, err := loadHistory(cmd)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), renderHistory(list, loaded.Persona.Name))
		return err
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all saved conversations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, closeStore, err := openStore(cmd.Context(), loaded.Storage)
		if err != nil {
			return err
		}
		defer func() { _ = closeStore() }()
		store.Clear(cmd.Context())
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
		return err
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write saved conversations as JSON or YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return err
		}
		list, err := loadHistory(cmd)
		if err != nil {
			return err
		}
		return exportHistory(cmd.OutOrStdout(), list, format)
	},
}

func init() {
	historyExportCmd.Flags().StringP("format", "f", formatJSON, "Output format (json, yaml)")
	historyCmd.AddCommand(historyListCmd, historyClearCmd, historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}

func loadHistory(cmd *cobra.Command) ([]transcript.StoredTranscript, error) {
	store, closeStore, err := openStore(cmd.Context(), loaded.Storage)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closeStore() }()
	return store.List(cmd.Context()), nil
}

func exportHistory(w io.Writer, list []transcript.StoredTranscript, format string) error {
	if list == nil {
		list = []transcript.StoredTranscript{}
	}
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(list); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q (valid: %s, %s)", format, formatJSON, formatYAML)
	}
}
