package service

import (
	"context"
	"log"
	"time"

	"github.com/sifthq/docsift/internal/domain"
	"github.com/sifthq/docsift/internal/engine"
	"github.com/sifthq/docsift/internal/ingest"
	"github.com/sifthq/docsift/internal/telemetry"
)

// Answerer generates a natural-language answer from retrieved chunks.
type Answerer interface {
	Answer(ctx context.Context, query string, results []domain.ScoredChunk) (string, error)
}

// DocumentRepository reads the document catalog.
type DocumentRepository interface {
	List(ctx context.Context) ([]*domain.Document, error)
}

// RetrievalService fronts the engine for the API layer: it adds tracing,
// best-effort search logging and answer generation on top of the core
// query/rebuild operations. Search logging and the catalog are optional;
// nil repositories disable them.
type RetrievalService struct {
	engine     *engine.Engine
	answerer   Answerer
	searchLogs SearchLogRepository
	documents  DocumentRepository
}

func NewRetrievalService(eng *engine.Engine, answerer Answerer, searchLogs SearchLogRepository, documents DocumentRepository) *RetrievalService {
	return &RetrievalService{
		engine:     eng,
		answerer:   answerer,
		searchLogs: searchLogs,
		documents:  documents,
	}
}

// Query retrieves the top k chunks for the query text, optionally
// reranked. The search log write is best effort; a logging failure never
// fails the query.
func (s *RetrievalService) Query(ctx context.Context, query string, k int, rerank bool) ([]domain.ScoredChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Query", telemetry.SpanAttributes{
		Query:     query,
		Operation: "query",
	})
	defer span.End()

	start := time.Now()
	results, queryVec, err := s.engine.QueryWithVector(ctx, query, k, rerank)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	if s.searchLogs != nil {
		s.logSearch(ctx, query, k, rerank, time.Since(start), results, queryVec)
	}
	return results, nil
}

// NoResultsAnswer is returned when retrieval finds no context chunks;
// the answer model is not consulted in that case.
const NoResultsAnswer = "No results found for your query."

// Answer runs Query and feeds the results to the answer model. With no
// retrieved context it short-circuits to NoResultsAnswer instead of
// asking the model to answer from nothing.
func (s *RetrievalService) Answer(ctx context.Context, query string, k int, rerank bool) (string, []domain.ScoredChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Answer", telemetry.SpanAttributes{
		Query:     query,
		Operation: "answer",
	})
	defer span.End()

	if s.answerer == nil {
		return "", nil, domain.NewDomainErrorWithCause(domain.ErrCodeProviderUnavailable,
			"answer generation requires an answer model", domain.ErrProviderUnavailable)
	}

	results, err := s.Query(ctx, query, k, rerank)
	if err != nil {
		span.SetError(err)
		return "", nil, err
	}
	if len(results) == 0 {
		return NoResultsAnswer, results, nil
	}

	answer, err := s.answerer.Answer(ctx, query, results)
	if err != nil {
		span.SetError(err)
		return "", nil, domain.NewDomainErrorWithCause(domain.ErrCodeProviderUnavailable,
			"answer provider failed", err)
	}
	return answer, results, nil
}

// Rebuild repopulates the index and chunk store from sourceDir.
func (s *RetrievalService) Rebuild(ctx context.Context, sourceDir string) (*ingest.Report, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Rebuild", telemetry.SpanAttributes{
		Source:    sourceDir,
		Operation: "rebuild",
	})
	defer span.End()

	report, err := s.engine.Rebuild(ctx, sourceDir)
	if err != nil {
		span.SetError(err)
		return report, err
	}
	return report, nil
}

// GetAll returns every stored chunk in store order.
func (s *RetrievalService) GetAll(ctx context.Context) []domain.Chunk {
	return s.engine.GetAll()
}

// ListDocuments returns the synced-document catalog, or an empty list
// when no catalog is configured.
func (s *RetrievalService) ListDocuments(ctx context.Context) ([]*domain.Document, error) {
	if s.documents == nil {
		return []*domain.Document{}, nil
	}
	return s.documents.List(ctx)
}

// Status describes the engine for health/status endpoints.
type Status struct {
	State      string `json:"state"`
	Chunks     int    `json:"chunks"`
	Dimension  int    `json:"dimension"`
	HasCatalog bool   `json:"has_catalog"`
}

func (s *RetrievalService) Status(ctx context.Context) Status {
	return Status{
		State:      string(s.engine.State()),
		Chunks:     s.engine.Len(),
		Dimension:  s.engine.Dimension(),
		HasCatalog: s.documents != nil,
	}
}

func (s *RetrievalService) logSearch(ctx context.Context, query string, k int, rerank bool, elapsed time.Duration, results []domain.ScoredChunk, queryVec []float32) {
	logResults := make([]SearchLogResult, len(results))
	for i, r := range results {
		logResults[i] = SearchLogResult{
			Source:     r.Chunk.Source,
			ChunkIndex: r.Chunk.ChunkIndex,
			Score:      r.Score,
		}
	}

	entry := SearchLogEntry{
		Query:      query,
		K:          k,
		Reranked:   rerank,
		DurationMs: int(elapsed.Milliseconds()),
		Results:    logResults,
		Embedding:  queryVec,
	}

	if _, err := s.searchLogs.CreateSearchLog(ctx, entry); err != nil {
		log.Printf("search log write failed: %v", err)
	}
}
