// Package engine implements the retrieval core: it owns the vector index
// and the chunk store as one consistent unit, and is the only code path
// allowed to mutate either. Index row i and store position i always refer
// to the same chunk; every mutation appends to both in lockstep under the
// write lock, so the alignment invariant cannot drift.
package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/sifthq/docsift/internal/domain"
	"github.com/sifthq/docsift/internal/index"
	"github.com/sifthq/docsift/internal/ingest"
	"github.com/sifthq/docsift/internal/store"
)

// Embedder maps text to a fixed-dimension vector.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Reranker scores (query, text) pairs with a cross-encoder model. Higher
// is more relevant; only relative ordering matters.
type Reranker interface {
	Score(ctx context.Context, query string, texts []string) ([]float32, error)
}

// State is the externally visible engine state.
type State string

const (
	// StateEmpty means no persisted store was loaded and no rebuild has
	// completed. Queries return empty results, not errors.
	StateEmpty State = "empty"
	StateReady State = "ready"
)

// Config configures an Engine. Providers are injected at construction
// time; there is no process-wide singleton state.
type Config struct {
	Dimension int
	StoreDir  string
	Embedder  Embedder
	Reranker  Reranker
}

// Engine orchestrates embedding, search and reranking into a single query
// operation and owns the load/save/rebuild lifecycle of index + store.
type Engine struct {
	mu       sync.RWMutex
	dim      int
	storeDir string
	embedder Embedder
	reranker Reranker

	idx    *index.Flat
	chunks *store.ChunkStore
	ready  bool
}

// New creates an Engine in the Empty state. Call Load to pick up persisted
// artifacts.
func New(cfg Config) (*Engine, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	idx, err := index.NewFlat(cfg.Dimension)
	if err != nil {
		return nil, err
	}
	return &Engine{
		dim:      cfg.Dimension,
		storeDir: cfg.StoreDir,
		embedder: cfg.Embedder,
		reranker: cfg.Reranker,
		idx:      idx,
		chunks:   store.New(),
	}, nil
}

// Load reads the persisted artifacts if present. A missing pair leaves the
// engine Empty; an inconsistent pair is a hard IndexCorruption failure so
// callers can decide to rebuild from source instead of silently serving a
// misaligned store.
func (e *Engine) Load() error {
	idx, chunks, err := loadArtifacts(e.storeDir, e.dim)
	if err != nil {
		return err
	}
	if idx == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.idx = idx
	e.chunks = chunks
	e.ready = true
	return nil
}

// Rebuild resets both structures and repopulates them from the ingestion
// files under sourceDir, then persists both atomically. It holds the write
// lock for the whole reset-then-repopulate sequence, so no query observes
// a half-populated state. A missing source directory is reported in the
// returned error as SourceNotFound and leaves the existing store
// untouched; malformed files are skipped per file and summarized in the
// report.
func (e *Engine) Rebuild(ctx context.Context, sourceDir string) (*ingest.Report, error) {
	paths, err := ingest.ListDir(sourceDir)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.idx.Reset()
	e.chunks.Reset()
	e.ready = false

	report := &ingest.Report{}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		sf, err := ingest.ReadFile(path)
		if err != nil {
			log.Printf("rebuild: skipping %s: %v", path, err)
			report.SkipFile(ingest.SourceName(path), domain.ErrCodeMalformedInput, err)
			continue
		}

		for i, text := range sf.Chunks {
			vec, err := normalize(sf.Embeddings[i], e.dim)
			if err != nil {
				// The rejected chunk enters neither structure, keeping
				// index and store in lockstep.
				log.Printf("rebuild: rejecting chunk %d of %s: %v", i, sf.Source, err)
				report.RejectChunk(sf.Source, i, domain.ErrCodeInvalidEmbedding, err)
				continue
			}
			if err := e.idx.Add(vec); err != nil {
				report.RejectChunk(sf.Source, i, domain.ErrCodeInvalidEmbedding, err)
				continue
			}
			e.chunks.Append(domain.NewChunk(text, sf.Source, i, ingest.FileType, sf.Headers[i]))
			report.ChunksAdded++
		}
		report.FilesIngested++
	}

	if err := saveArtifacts(e.storeDir, e.idx, e.chunks); err != nil {
		return report, fmt.Errorf("persist store: %w", err)
	}

	e.ready = true
	log.Printf("rebuild: %s", report.Summary())
	return report, nil
}

// Query embeds the query text, searches the index for the top k chunks and
// optionally reranks them. An Empty engine yields an empty result, never
// an error. When rerank is true the final order is descending reranker
// relevance, ties broken by the candidate's original similarity rank; the
// similarity score on each result is preserved either way.
func (e *Engine) Query(ctx context.Context, queryText string, k int, rerank bool) ([]domain.ScoredChunk, error) {
	results, _, err := e.QueryWithVector(ctx, queryText, k, rerank)
	return results, err
}

// QueryWithVector is Query but also returns the normalized query vector,
// for callers that persist it alongside the results (search logging).
func (e *Engine) QueryWithVector(ctx context.Context, queryText string, k int, rerank bool) ([]domain.ScoredChunk, []float32, error) {
	if queryText == "" {
		return nil, nil, domain.ErrEmptyText
	}
	if rerank && e.reranker == nil {
		return nil, nil, domain.NewDomainErrorWithCause(domain.ErrCodeProviderUnavailable,
			"reranking requested but no reranker configured", domain.ErrProviderUnavailable)
	}

	// Provider calls are the dominant latency cost and run outside the
	// lock so they never block a rebuild or other queries.
	raw, err := e.embedder.GenerateEmbedding(ctx, queryText)
	if err != nil {
		return nil, nil, domain.NewDomainErrorWithCause(domain.ErrCodeProviderUnavailable,
			"embedding provider failed", err)
	}
	queryVec, err := normalize(raw, e.dim)
	if err != nil {
		return nil, nil, err
	}

	results, err := e.search(queryVec, k)
	if err != nil {
		return nil, nil, err
	}

	if rerank && len(results) > 0 {
		results, err = e.rerank(ctx, queryText, results)
		if err != nil {
			return nil, nil, err
		}
	}
	return results, queryVec, nil
}

func (e *Engine) search(queryVec []float32, k int) ([]domain.ScoredChunk, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.ready || e.idx.Len() == 0 {
		return []domain.ScoredChunk{}, nil
	}

	hits, err := e.idx.Search(queryVec, k)
	if err != nil {
		return nil, err
	}

	results := make([]domain.ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		chunk, err := e.chunks.Get(hit.Position)
		if err != nil {
			// Defensive: cannot occur while the alignment invariant
			// holds. Drop the entry and keep serving.
			log.Printf("query: index corruption: position %d unresolvable: %v", hit.Position, err)
			continue
		}
		results = append(results, domain.ScoredChunk{Chunk: chunk, Score: hit.Score})
	}
	return results, nil
}

func (e *Engine) rerank(ctx context.Context, queryText string, results []domain.ScoredChunk) ([]domain.ScoredChunk, error) {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Chunk.Text
	}

	scores, err := e.reranker.Score(ctx, queryText, texts)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeProviderUnavailable,
			"reranking provider failed", err)
	}
	if len(scores) != len(results) {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeProviderUnavailable,
			fmt.Sprintf("reranker returned %d scores for %d candidates", len(scores), len(results)),
			domain.ErrProviderUnavailable)
	}

	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	// Stable sort keeps equal-score candidates in their original
	// similarity-rank order.
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	reranked := make([]domain.ScoredChunk, len(results))
	for i, idx := range order {
		reranked[i] = results[idx]
	}
	return reranked, nil
}

// GetAll returns every chunk record in store order. Inspection/debugging
// aid, not part of the query hot path.
func (e *Engine) GetAll() []domain.Chunk {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]domain.Chunk, 0, e.chunks.Len())
	e.chunks.All(func(_ int, c domain.Chunk) bool {
		out = append(out, c)
		return true
	})
	return out
}

// Len returns the number of indexed chunks.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.chunks.Len()
}

// Dimension returns the configured embedding dimension D.
func (e *Engine) Dimension() int {
	return e.dim
}

// State reports whether the engine is Empty or Ready.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.ready {
		return StateReady
	}
	return StateEmpty
}
