package service

import "context"

// SearchLogResult captures a single result entry for logging.
type SearchLogResult struct {
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
}

// SearchLogEntry captures a query and its results for evaluation.
type SearchLogEntry struct {
	Query      string
	K          int
	Reranked   bool
	DurationMs int
	Results    []SearchLogResult
	// Embedding is the normalized query vector, stored for offline
	// similarity analysis of logged queries.
	Embedding []float32
}

// SearchLogRepository persists search logs.
type SearchLogRepository interface {
	CreateSearchLog(ctx context.Context, entry SearchLogEntry) (string, error)
}
