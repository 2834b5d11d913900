package engine

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sifthq/docsift/internal/domain"
)

// MockEmbedder mocks the embedding provider.
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockReranker mocks the reranking provider.
type MockReranker struct {
	mock.Mock
}

func (m *MockReranker) Score(ctx context.Context, query string, texts []string) ([]float32, error) {
	args := m.Called(ctx, query, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type sourcePayload struct {
	Chunks     []string    `json:"chunks"`
	Embeddings [][]float32 `json:"embeddings"`
	Headers    []string    `json:"headers,omitempty"`
}

func writeSourceFile(t *testing.T, dir, doc string, payload sourcePayload) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, doc+"_embeddings.json"), data, 0o644))
}

func newTestEngine(t *testing.T, reranker Reranker) (*Engine, *MockEmbedder, string) {
	t.Helper()
	embedder := new(MockEmbedder)
	storeDir := t.TempDir()
	e, err := New(Config{
		Dimension: 2,
		StoreDir:  storeDir,
		Embedder:  embedder,
		Reranker:  reranker,
	})
	require.NoError(t, err)
	return e, embedder, storeDir
}

// threeChunkDir writes the canonical fixture: embeddings [1,0], [0,1] and
// an un-normalized [0.9, 0.1] that the rebuild must normalize.
func threeChunkDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeSourceFile(t, dir, "mgmt", sourcePayload{
		Chunks:     []string{"first chunk", "second chunk", "third chunk"},
		Embeddings: [][]float32{{1, 0}, {0, 1}, {0.9, 0.1}},
		Headers:    []string{"PLANNING", "ORGANIZING", "CONTROLLING"},
	})
	return dir
}

func TestNew_RequiresEmbedder(t *testing.T) {
	_, err := New(Config{Dimension: 2, StoreDir: t.TempDir()})
	assert.Error(t, err)
}

func TestQuery_EmptyEngine(t *testing.T) {
	e, embedder, _ := newTestEngine(t, nil)
	embedder.On("GenerateEmbedding", mock.Anything, "anything").Return([]float32{1, 0}, nil)

	results, err := e.Query(context.Background(), "anything", 5, false)

	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, StateEmpty, e.State())
}

func TestRebuildAndQuery_Scenario(t *testing.T) {
	e, embedder, _ := newTestEngine(t, nil)
	sourceDir := threeChunkDir(t)

	report, err := e.Rebuild(context.Background(), sourceDir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesIngested)
	assert.Equal(t, 3, report.ChunksAdded)
	assert.Equal(t, StateReady, e.State())

	embedder.On("GenerateEmbedding", mock.Anything, "what is planning").Return([]float32{1, 0}, nil)

	results, err := e.Query(context.Background(), "what is planning", 2, false)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// [1,0] matches exactly; the normalized [0.9,0.1] comes second.
	assert.Equal(t, "first chunk", results[0].Chunk.Text)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-6)
	assert.Equal(t, "third chunk", results[1].Chunk.Text)
	assert.Equal(t, "PLANNING", results[0].Chunk.Header)
	assert.Equal(t, "mgmt.pdf", results[0].Chunk.Source)
	assert.Equal(t, "pdf", results[0].Chunk.FileType)
}

func TestQuery_KLargerThanStore(t *testing.T) {
	e, embedder, _ := newTestEngine(t, nil)
	_, err := e.Rebuild(context.Background(), threeChunkDir(t))
	require.NoError(t, err)

	embedder.On("GenerateEmbedding", mock.Anything, "q").Return([]float32{0, 1}, nil)

	results, err := e.Query(context.Background(), "q", 50, false)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, "second chunk", results[0].Chunk.Text)
}

func TestQuery_EmptyText(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	_, err := e.Query(context.Background(), "", 5, false)
	assert.Error(t, err)
}

func TestQuery_EmbedderFailure(t *testing.T) {
	e, embedder, _ := newTestEngine(t, nil)
	embedder.On("GenerateEmbedding", mock.Anything, "q").Return(nil, errors.New("connection refused"))

	_, err := e.Query(context.Background(), "q", 5, false)
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeProviderUnavailable, domainErr.Code)
}

func TestQuery_NonFiniteQueryEmbedding(t *testing.T) {
	e, embedder, _ := newTestEngine(t, nil)
	embedder.On("GenerateEmbedding", mock.Anything, "q").
		Return([]float32{float32(math.NaN()), 0}, nil)

	_, err := e.Query(context.Background(), "q", 5, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidEmbedding))
}

func TestRebuild_SourceNotFound(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)

	_, err := e.Rebuild(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSourceNotFound))
	assert.Equal(t, StateEmpty, e.State())
}

func TestRebuild_SourceNotFound_KeepsExistingStore(t *testing.T) {
	e, embedder, _ := newTestEngine(t, nil)
	_, err := e.Rebuild(context.Background(), threeChunkDir(t))
	require.NoError(t, err)

	_, err = e.Rebuild(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	// The failed rebuild never took the lock, so the store still serves.
	embedder.On("GenerateEmbedding", mock.Anything, "q").Return([]float32{1, 0}, nil)
	results, err := e.Query(context.Background(), "q", 1, false)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRebuild_MalformedFileSkipped(t *testing.T) {
	e, embedder, _ := newTestEngine(t, nil)
	dir := t.TempDir()

	// chunks length 3, embeddings length 2: the whole file is skipped.
	writeSourceFile(t, dir, "bad", sourcePayload{
		Chunks:     []string{"a", "b", "c"},
		Embeddings: [][]float32{{1, 0}, {0, 1}},
	})
	writeSourceFile(t, dir, "good", sourcePayload{
		Chunks:     []string{"good chunk"},
		Embeddings: [][]float32{{0, 1}},
	})

	report, err := e.Rebuild(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 1, report.FilesIngested)
	assert.Equal(t, 1, report.FilesSkipped)
	assert.Equal(t, 1, report.ChunksAdded)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, domain.ErrCodeMalformedInput, report.Errors[0].Code)
	assert.Equal(t, "bad.pdf", report.Errors[0].File)

	embedder.On("GenerateEmbedding", mock.Anything, "q").Return([]float32{0, 1}, nil)
	results, err := e.Query(context.Background(), "q", 5, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "good chunk", results[0].Chunk.Text)
}

func TestRebuild_InvalidEmbeddingRejectsChunkOnly(t *testing.T) {
	e, embedder, _ := newTestEngine(t, nil)
	dir := t.TempDir()

	// Written raw: one wrong-dimension row, one zero vector. Non-finite
	// components are not representable in JSON and are covered by the
	// normalize tests.
	raw := `{
		"chunks": ["fine", "broken dim", "zero norm", "also fine"],
		"embeddings": [[1, 0], [1, 0, 0], [0, 0], [0, 1]]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc_embeddings.json"), []byte(raw), 0o644))

	report, err := e.Rebuild(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, report.ChunksAdded)
	assert.Equal(t, 2, report.ChunksRejected)

	// Alignment invariant: every indexed position resolves, and the
	// surviving chunks keep their original chunk_index metadata.
	all := e.GetAll()
	require.Len(t, all, 2)
	assert.Equal(t, "fine", all[0].Text)
	assert.Equal(t, 0, all[0].ChunkIndex)
	assert.Equal(t, "also fine", all[1].Text)
	assert.Equal(t, 3, all[1].ChunkIndex)

	embedder.On("GenerateEmbedding", mock.Anything, "q").Return([]float32{0, 1}, nil)
	results, err := e.Query(context.Background(), "q", 10, false)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRebuild_Idempotent(t *testing.T) {
	e, embedder, _ := newTestEngine(t, nil)
	sourceDir := threeChunkDir(t)

	first, err := e.Rebuild(context.Background(), sourceDir)
	require.NoError(t, err)
	allFirst := e.GetAll()

	second, err := e.Rebuild(context.Background(), sourceDir)
	require.NoError(t, err)
	allSecond := e.GetAll()

	assert.Equal(t, first.ChunksAdded, second.ChunksAdded)
	assert.Equal(t, allFirst, allSecond)

	embedder.On("GenerateEmbedding", mock.Anything, "q").Return([]float32{1, 0}, nil)
	results, err := e.Query(context.Background(), "q", 3, false)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestLoad_RoundTrip(t *testing.T) {
	e, _, storeDir := newTestEngine(t, nil)
	_, err := e.Rebuild(context.Background(), threeChunkDir(t))
	require.NoError(t, err)

	embedder := new(MockEmbedder)
	embedder.On("GenerateEmbedding", mock.Anything, "q").Return([]float32{1, 0}, nil)

	reloaded, err := New(Config{Dimension: 2, StoreDir: storeDir, Embedder: embedder})
	require.NoError(t, err)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, StateReady, reloaded.State())
	assert.Equal(t, 3, reloaded.Len())

	results, err := reloaded.Query(context.Background(), "q", 2, false)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "first chunk", results[0].Chunk.Text)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-6)
	assert.Equal(t, e.GetAll(), reloaded.GetAll())
}

func TestLoad_NothingPersisted(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	require.NoError(t, e.Load())
	assert.Equal(t, StateEmpty, e.State())
}

func TestLoad_MissingPartnerArtifact(t *testing.T) {
	e, _, storeDir := newTestEngine(t, nil)
	_, err := e.Rebuild(context.Background(), threeChunkDir(t))
	require.NoError(t, err)

	for _, artifact := range []string{"index.bin", "chunks.json"} {
		t.Run(artifact, func(t *testing.T) {
			scratch := t.TempDir()
			for _, name := range []string{"index.bin", "chunks.json"} {
				if name == artifact {
					continue
				}
				data, err := os.ReadFile(filepath.Join(storeDir, name))
				require.NoError(t, err)
				require.NoError(t, os.WriteFile(filepath.Join(scratch, name), data, 0o644))
			}

			embedder := new(MockEmbedder)
			broken, err := New(Config{Dimension: 2, StoreDir: scratch, Embedder: embedder})
			require.NoError(t, err)

			err = broken.Load()
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrIndexCorruption))
		})
	}
}

func TestLoad_LengthMismatchIsCorruption(t *testing.T) {
	e, _, storeDir := newTestEngine(t, nil)
	_, err := e.Rebuild(context.Background(), threeChunkDir(t))
	require.NoError(t, err)

	// Truncate the metadata to two records while the index keeps three.
	require.NoError(t, os.WriteFile(filepath.Join(storeDir, "chunks.json"),
		[]byte(`{"chunks":[{"text":"a","source":"s.pdf","chunk_index":0,"file_type":"pdf","header":"Unknown"},
		         {"text":"b","source":"s.pdf","chunk_index":1,"file_type":"pdf","header":"Unknown"}]}`), 0o644))

	embedder := new(MockEmbedder)
	broken, err := New(Config{Dimension: 2, StoreDir: storeDir, Embedder: embedder})
	require.NoError(t, err)

	err = broken.Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIndexCorruption))
}

func TestQuery_Rerank_ReordersByRelevance(t *testing.T) {
	reranker := new(MockReranker)
	e, embedder, _ := newTestEngine(t, reranker)
	_, err := e.Rebuild(context.Background(), threeChunkDir(t))
	require.NoError(t, err)

	embedder.On("GenerateEmbedding", mock.Anything, "q").Return([]float32{1, 0}, nil)
	// Reranker prefers the candidate the similarity search ranked second.
	reranker.On("Score", mock.Anything, "q", []string{"first chunk", "third chunk"}).
		Return([]float32{0.1, 0.9}, nil)

	results, err := e.Query(context.Background(), "q", 2, true)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "third chunk", results[0].Chunk.Text)
	assert.Equal(t, "first chunk", results[1].Chunk.Text)
	// Similarity scores stay attached to their chunks through the reorder.
	assert.Greater(t, results[1].Score, results[0].Score)
	reranker.AssertExpectations(t)
}

func TestQuery_Rerank_EqualScoresKeepSimilarityOrder(t *testing.T) {
	reranker := new(MockReranker)
	e, embedder, _ := newTestEngine(t, reranker)
	_, err := e.Rebuild(context.Background(), threeChunkDir(t))
	require.NoError(t, err)

	embedder.On("GenerateEmbedding", mock.Anything, "q").Return([]float32{1, 0}, nil)
	reranker.On("Score", mock.Anything, "q", mock.Anything).
		Return([]float32{0.5, 0.5, 0.5}, nil)

	results, err := e.Query(context.Background(), "q", 3, true)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "first chunk", results[0].Chunk.Text)
	assert.Equal(t, "third chunk", results[1].Chunk.Text)
	assert.Equal(t, "second chunk", results[2].Chunk.Text)
}

func TestQuery_Rerank_NoRerankerConfigured(t *testing.T) {
	e, embedder, _ := newTestEngine(t, nil)
	_, err := e.Rebuild(context.Background(), threeChunkDir(t))
	require.NoError(t, err)
	embedder.On("GenerateEmbedding", mock.Anything, "q").Return([]float32{1, 0}, nil)

	_, err = e.Query(context.Background(), "q", 2, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProviderUnavailable))
}

func TestQuery_Rerank_ProviderFailure(t *testing.T) {
	reranker := new(MockReranker)
	e, embedder, _ := newTestEngine(t, reranker)
	_, err := e.Rebuild(context.Background(), threeChunkDir(t))
	require.NoError(t, err)

	embedder.On("GenerateEmbedding", mock.Anything, "q").Return([]float32{1, 0}, nil)
	reranker.On("Score", mock.Anything, "q", mock.Anything).Return(nil, errors.New("backend down"))

	_, err = e.Query(context.Background(), "q", 2, true)
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeProviderUnavailable, domainErr.Code)
}

func TestQuery_Rerank_SkippedWhenNoResults(t *testing.T) {
	reranker := new(MockReranker)
	e, embedder, _ := newTestEngine(t, reranker)
	embedder.On("GenerateEmbedding", mock.Anything, "q").Return([]float32{1, 0}, nil)

	results, err := e.Query(context.Background(), "q", 5, true)
	require.NoError(t, err)
	assert.Empty(t, results)
	reranker.AssertNotCalled(t, "Score", mock.Anything, mock.Anything, mock.Anything)
}

func TestNormalize_Idempotent(t *testing.T) {
	once, err := normalize([]float32{3, 4}, 2)
	require.NoError(t, err)

	twice, err := normalize(once, 2)
	require.NoError(t, err)

	for i := range once {
		assert.InDelta(t, float64(once[i]), float64(twice[i]), 1e-6)
	}
}

func TestNormalize_Rejections(t *testing.T) {
	tests := []struct {
		name string
		vec  []float32
	}{
		{"WrongDimension", []float32{1, 0, 0}},
		{"NaN", []float32{float32(math.NaN()), 1}},
		{"Inf", []float32{1, float32(math.Inf(-1))}},
		{"ZeroNorm", []float32{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalize(tt.vec, 2)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidEmbedding))
		})
	}
}

func TestGetAll_StoreOrder(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	dir := t.TempDir()
	writeSourceFile(t, dir, "a", sourcePayload{
		Chunks:     []string{"a0", "a1"},
		Embeddings: [][]float32{{1, 0}, {0, 1}},
	})
	writeSourceFile(t, dir, "b", sourcePayload{
		Chunks:     []string{"b0"},
		Embeddings: [][]float32{{1, 0}},
	})

	_, err := e.Rebuild(context.Background(), dir)
	require.NoError(t, err)

	all := e.GetAll()
	require.Len(t, all, 3)
	assert.Equal(t, "a0", all[0].Text)
	assert.Equal(t, "a1", all[1].Text)
	assert.Equal(t, "b0", all[2].Text)
	assert.Equal(t, "a.pdf", all[0].Source)
	assert.Equal(t, "b.pdf", all[2].Source)
	assert.Equal(t, domain.DefaultHeader, all[0].Header)
}
