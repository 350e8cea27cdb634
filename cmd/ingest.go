package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lectern-ai/lectern/internal/app"
	"github.com/lectern-ai/lectern/internal/config"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Load course documents into the index",
	Long: `Load course documents into the index.

Reads every .txt transcript in the directory (default: the configured
document directory), chunks it, and indexes it. Courses already present
are skipped, so re-running is safe.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		dir := ""
		if len(args) == 1 {
			dir = args[0]
		}
		return runIngest(dir)
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(dir string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	if dir == "" {
		dir = cfg.DocsDir
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger()
	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	result, err := a.System.LoadDocuments(ctx, dir, a.Chunker)
	if err != nil {
		return fmt.Errorf("loading documents: %w", err)
	}

	fmt.Printf("Courses added:   %d\n", result.CoursesAdded)
	fmt.Printf("Courses skipped: %d\n", result.CoursesSkipped)
	fmt.Printf("Chunks indexed:  %d\n", result.ChunksAdded)
	if result.FilesFailed > 0 {
		fmt.Printf("Files failed:    %d\n", result.FilesFailed)
	}
	return nil
}
