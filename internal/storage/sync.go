package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/sifthq/docsift/internal/domain"
	"github.com/sifthq/docsift/internal/ingest"
)

// ObjectStore is the subset of S3Client the Syncer needs.
type ObjectStore interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, w io.Writer) (int64, error)
}

// CatalogWriter records synced documents. Nil disables cataloging and
// ETag-based skip.
type CatalogWriter interface {
	Upsert(ctx context.Context, d *domain.Document) error
	GetBySource(ctx context.Context, source string) (*domain.Document, error)
}

// SyncResult summarizes one sync pass.
type SyncResult struct {
	Downloaded int `json:"downloaded"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// Syncer pulls ingestion files from the source bucket into the local
// source directory, so a rebuild can pick them up. Objects whose ETag
// matches the catalog record are skipped.
type Syncer struct {
	store     ObjectStore
	catalog   CatalogWriter
	sourceDir string
}

func NewSyncer(store ObjectStore, catalog CatalogWriter, sourceDir string) *Syncer {
	return &Syncer{store: store, catalog: catalog, sourceDir: sourceDir}
}

// Sync downloads every ingestion file in the bucket that is new or
// changed. Failures are per object; one bad object does not abort the
// pass.
func (s *Syncer) Sync(ctx context.Context) (*SyncResult, error) {
	objects, err := s.store.ListObjects(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list source bucket: %w", err)
	}

	if err := os.MkdirAll(s.sourceDir, 0o755); err != nil {
		return nil, fmt.Errorf("create source dir: %w", err)
	}

	result := &SyncResult{}
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !ingest.IsSourceFile(obj.Key) {
			continue
		}

		source := ingest.SourceName(obj.Key)
		if s.upToDate(ctx, source, obj.ETag) {
			result.Skipped++
			continue
		}

		chunkCount, err := s.download(ctx, obj.Key)
		if err != nil {
			log.Printf("sync: %s: %v", obj.Key, err)
			result.Failed++
			continue
		}
		result.Downloaded++

		if s.catalog != nil {
			doc := &domain.Document{
				Source:     source,
				ObjectKey:  obj.Key,
				SizeBytes:  obj.Size,
				ETag:       obj.ETag,
				ChunkCount: chunkCount,
				SyncedAt:   time.Now().UTC(),
			}
			if err := s.catalog.Upsert(ctx, doc); err != nil {
				log.Printf("sync: catalog record for %s failed: %v", source, err)
			}
		}
	}

	log.Printf("sync: %d downloaded, %d skipped, %d failed", result.Downloaded, result.Skipped, result.Failed)
	return result, nil
}

func (s *Syncer) upToDate(ctx context.Context, source, etag string) bool {
	if s.catalog == nil || etag == "" {
		return false
	}
	doc, err := s.catalog.GetBySource(ctx, source)
	if err != nil {
		return false
	}
	return doc.ETag == etag
}

// download writes the object to the source directory via a temp file and
// returns the chunk count parsed from it. A malformed file is removed and
// reported so a rebuild never sees it.
func (s *Syncer) download(ctx context.Context, key string) (int, error) {
	dest := filepath.Join(s.sourceDir, filepath.Base(key))

	tmp, err := os.CreateTemp(s.sourceDir, filepath.Base(key)+".tmp-*")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()

	if _, err := s.store.DownloadObject(ctx, key, tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, err
	}

	sf, err := ingest.ReadFile(tmpName)
	if err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("downloaded file is malformed: %w", err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return 0, err
	}
	return len(sf.Chunks), nil
}
