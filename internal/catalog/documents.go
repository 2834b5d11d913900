// Package catalog persists document provenance and search logs in
// Postgres. It is optional infrastructure: the retrieval core runs
// without it.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sifthq/docsift/internal/domain"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DocumentRepository tracks which source documents have been synced.
type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

// Upsert inserts or refreshes a document record keyed by source name.
func (r *DocumentRepository) Upsert(ctx context.Context, d *domain.Document) error {
	now := time.Now().UTC()
	syncedAt := d.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = now
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (source, object_key, size_bytes, etag, chunk_count, synced_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		 ON CONFLICT (source) DO UPDATE SET
			object_key = EXCLUDED.object_key,
			size_bytes = EXCLUDED.size_bytes,
			etag = EXCLUDED.etag,
			chunk_count = EXCLUDED.chunk_count,
			synced_at = EXCLUDED.synced_at,
			updated_at = EXCLUDED.updated_at`,
		d.Source, d.ObjectKey, d.SizeBytes, d.ETag, d.ChunkCount, syncedAt, now,
	)
	return err
}

func (r *DocumentRepository) GetBySource(ctx context.Context, source string) (*domain.Document, error) {
	var d domain.Document
	var syncedAt *time.Time
	err := r.db.QueryRow(ctx,
		`SELECT id, source, object_key, size_bytes, etag, chunk_count, synced_at, created_at, updated_at
		 FROM documents WHERE source = $1`,
		source,
	).Scan(&d.ID, &d.Source, &d.ObjectKey, &d.SizeBytes, &d.ETag, &d.ChunkCount, &syncedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	if syncedAt != nil {
		d.SyncedAt = *syncedAt
	}
	return &d, nil
}

func (r *DocumentRepository) List(ctx context.Context) ([]*domain.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, source, object_key, size_bytes, etag, chunk_count, synced_at, created_at, updated_at
		 FROM documents ORDER BY source`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		var d domain.Document
		var syncedAt *time.Time
		if err := rows.Scan(&d.ID, &d.Source, &d.ObjectKey, &d.SizeBytes, &d.ETag, &d.ChunkCount, &syncedAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		if syncedAt != nil {
			d.SyncedAt = *syncedAt
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

// Delete removes a document record by source name.
func (r *DocumentRepository) Delete(ctx context.Context, source string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE source = $1`, source)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}
