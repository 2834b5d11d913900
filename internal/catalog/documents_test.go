//go:build integration

package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/sifthq/docsift/internal/domain"
	"github.com/sifthq/docsift/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentRepository_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	doc := &domain.Document{
		Source:     "attention.pdf",
		ObjectKey:  "attention_embeddings.json",
		SizeBytes:  4096,
		ETag:       "abc123",
		ChunkCount: 12,
		SyncedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Upsert(ctx, doc))

	got, err := repo.GetBySource(ctx, "attention.pdf")
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "attention.pdf", got.Source)
	assert.Equal(t, "attention_embeddings.json", got.ObjectKey)
	assert.Equal(t, int64(4096), got.SizeBytes)
	assert.Equal(t, "abc123", got.ETag)
	assert.Equal(t, 12, got.ChunkCount)
}

func TestDocumentRepository_UpsertRefreshes(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	require.NoError(t, repo.Upsert(ctx, &domain.Document{
		Source: "attention.pdf", ETag: "v1", ChunkCount: 12,
	}))
	require.NoError(t, repo.Upsert(ctx, &domain.Document{
		Source: "attention.pdf", ETag: "v2", ChunkCount: 15,
	}))

	got, err := repo.GetBySource(ctx, "attention.pdf")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.ETag)
	assert.Equal(t, 15, got.ChunkCount)

	docs, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestDocumentRepository_GetBySource_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	_, err := repo.GetBySource(ctx, "missing.pdf")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestDocumentRepository_List_SortedBySource(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	require.NoError(t, repo.Upsert(ctx, &domain.Document{Source: "zebra.pdf"}))
	require.NoError(t, repo.Upsert(ctx, &domain.Document{Source: "attention.pdf"}))

	docs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "attention.pdf", docs[0].Source)
	assert.Equal(t, "zebra.pdf", docs[1].Source)
}

func TestDocumentRepository_Delete(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	require.NoError(t, repo.Upsert(ctx, &domain.Document{Source: "attention.pdf"}))
	require.NoError(t, repo.Delete(ctx, "attention.pdf"))

	_, err := repo.GetBySource(ctx, "attention.pdf")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	err = repo.Delete(ctx, "attention.pdf")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}
