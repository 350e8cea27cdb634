// Package cmd implements the lectern command line interface.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lectern-ai/lectern/internal/log"
)

var (
	logLevel string
	logJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "lectern",
	Short: "Lectern - ask questions about your course materials",
	Long: `Lectern answers natural-language questions about course transcripts.

It ingests course documents into a vector index and serves a question
answering API backed by semantic search and a tool-calling model.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log in JSON format")
}

// newLogger builds the process logger from the persistent flags. An
// unrecognized level falls back to info.
func newLogger() log.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		level = slog.LevelInfo
	}
	return log.New(log.Config{Level: level, JSON: logJSON})
}
