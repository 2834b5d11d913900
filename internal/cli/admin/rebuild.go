package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/sifthq/docsift/internal/config"
	"github.com/spf13/cobra"
)

// RebuildCmd returns the rebuild command
func RebuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the index from the source directory",
		Long:  "Reads every ingestion file in the source directory, rebuilds the vector index and chunk store, and persists them.",
		RunE:  runRebuild,
	}

	cmd.Flags().String("source-dir", "", "Source directory (defaults to DOCSIFT_SOURCE_DIR)")

	return cmd
}

func runRebuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sourceDir, _ := cmd.Flags().GetString("source-dir")
	if sourceDir == "" {
		sourceDir = cfg.SourceDir
	}

	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	report, err := eng.Rebuild(ctx, sourceDir)
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	log.Printf("rebuild complete: %s", report.Summary())
	for _, e := range report.Errors {
		log.Printf("  %s [%s]: %s", e.File, e.Code, e.Detail)
	}
	return nil
}
