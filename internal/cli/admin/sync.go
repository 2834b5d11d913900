package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/sifthq/docsift/internal/catalog"
	"github.com/sifthq/docsift/internal/config"
	"github.com/sifthq/docsift/internal/database"
	"github.com/sifthq/docsift/internal/storage"
	"github.com/spf13/cobra"
)

// SyncCmd returns the sync command
func SyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Sync ingestion files from the source bucket",
		Long:  "Downloads new and changed ingestion files from the S3 source bucket into the local source directory.",
		RunE:  runSync,
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.HasS3() {
		return fmt.Errorf("S3 is not configured: set DOCSIFT_S3_ENDPOINT, DOCSIFT_S3_ACCESS_KEY_ID and DOCSIFT_S3_SECRET_ACCESS_KEY")
	}

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to create S3 client: %w", err)
	}

	var documentWriter storage.CatalogWriter
	if cfg.HasCatalog() {
		pool, err := database.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		documentWriter = catalog.NewDocumentRepository(pool)
	}

	syncer := storage.NewSyncer(s3Client, documentWriter, cfg.SourceDir)
	result, err := syncer.Sync(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	log.Printf("sync complete: %d downloaded, %d skipped, %d failed", result.Downloaded, result.Skipped, result.Failed)
	return nil
}
