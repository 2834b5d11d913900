package catalog

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/sifthq/docsift/internal/service"
)

// SearchLogRepository stores query logs for evaluation loops.
type SearchLogRepository struct {
	db dbtx
}

func NewSearchLogRepository(pool *pgxpool.Pool) *SearchLogRepository {
	return &SearchLogRepository{db: pool}
}

func (r *SearchLogRepository) CreateSearchLog(ctx context.Context, entry service.SearchLogEntry) (string, error) {
	resultsJSON, _ := json.Marshal(entry.Results)

	var embedding any
	if len(entry.Embedding) > 0 {
		embedding = pgvector.NewVector(entry.Embedding)
	}

	var id string
	err := r.db.QueryRow(ctx,
		`INSERT INTO search_logs (query, k, reranked, results, result_count, duration_ms, query_embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		entry.Query,
		entry.K,
		entry.Reranked,
		resultsJSON,
		len(entry.Results),
		entry.DurationMs,
		embedding,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
