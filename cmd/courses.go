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

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List indexed courses",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runCourses()
	},
}

func init() {
	rootCmd.AddCommand(coursesCmd)
}

func runCourses() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validating config: %w", err)
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

	analytics, err := a.System.CourseAnalytics(ctx)
	if err != nil {
		return fmt.Errorf("loading course analytics: %w", err)
	}

	fmt.Printf("Courses indexed: %d\n", analytics.TotalCourses)
	for _, title := range analytics.CourseTitles {
		fmt.Printf("  - %s\n", title)
	}
	return nil
}
