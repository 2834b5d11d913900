package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/sifthq/docsift/internal/ingest"
	"github.com/sifthq/docsift/internal/storage"
)

// SourceSyncer pulls ingestion files from the source bucket.
type SourceSyncer interface {
	Sync(ctx context.Context) (*storage.SyncResult, error)
}

// Rebuilder repopulates the index from the source directory.
type Rebuilder interface {
	Rebuild(ctx context.Context, sourceDir string) (*ingest.Report, error)
}

// SyncProcessor syncs the source bucket on each poll and rebuilds the
// index whenever the sync brought anything new down.
type SyncProcessor struct {
	syncer    SourceSyncer
	rebuilder Rebuilder
	sourceDir string
}

// NewSyncProcessor creates a new SyncProcessor instance
func NewSyncProcessor(syncer SourceSyncer, rebuilder Rebuilder, sourceDir string) *SyncProcessor {
	return &SyncProcessor{
		syncer:    syncer,
		rebuilder: rebuilder,
		sourceDir: sourceDir,
	}
}

// ProcessJobs implements the JobProcessor interface
func (p *SyncProcessor) ProcessJobs(ctx context.Context) error {
	result, err := p.syncer.Sync(ctx)
	if err != nil {
		return fmt.Errorf("failed to sync source bucket: %w", err)
	}

	if result.Downloaded == 0 {
		return nil
	}

	report, err := p.rebuilder.Rebuild(ctx, p.sourceDir)
	if err != nil {
		return fmt.Errorf("failed to rebuild after sync: %w", err)
	}

	log.Printf("sync worker: rebuilt after %d new files: %s", result.Downloaded, report.Summary())
	return nil
}
