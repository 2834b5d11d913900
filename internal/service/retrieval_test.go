package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sifthq/docsift/internal/domain"
	"github.com/sifthq/docsift/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEmbedder is a mock implementation of engine.Embedder
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

// MockAnswerer is a mock implementation of Answerer
type MockAnswerer struct {
	mock.Mock
}

func (m *MockAnswerer) Answer(ctx context.Context, query string, results []domain.ScoredChunk) (string, error) {
	args := m.Called(ctx, query, results)
	return args.String(0), args.Error(1)
}

// MockSearchLogRepository is a mock implementation of SearchLogRepository
type MockSearchLogRepository struct {
	mock.Mock
}

func (m *MockSearchLogRepository) CreateSearchLog(ctx context.Context, entry SearchLogEntry) (string, error) {
	args := m.Called(ctx, entry)
	return args.String(0), args.Error(1)
}

// MockDocumentRepository is a mock implementation of DocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) List(ctx context.Context) ([]*domain.Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func writeSourceFile(t *testing.T, dir, name string, payload map[string]interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

// newReadyEngine builds a 2-dimensional engine populated with two chunks.
func newReadyEngine(t *testing.T, embedder *MockEmbedder) *engine.Engine {
	t.Helper()

	sourceDir := t.TempDir()
	writeSourceFile(t, sourceDir, "intro_embeddings.json", map[string]interface{}{
		"chunks":     []string{"alpha text", "beta text"},
		"embeddings": [][]float32{{1, 0}, {0, 1}},
		"headers":    []string{"Alpha", "Beta"},
	})

	eng, err := engine.New(engine.Config{
		Dimension: 2,
		StoreDir:  t.TempDir(),
		Embedder:  embedder,
	})
	require.NoError(t, err)

	_, err = eng.Rebuild(context.Background(), sourceDir)
	require.NoError(t, err)
	return eng
}

func TestRetrievalService_Query_LogsSearch(t *testing.T) {
	embedder := new(MockEmbedder)
	embedder.On("GenerateEmbedding", mock.Anything, "alpha").Return([]float32{1, 0}, nil)

	eng := newReadyEngine(t, embedder)

	searchLogs := new(MockSearchLogRepository)
	searchLogs.On("CreateSearchLog", mock.Anything, mock.MatchedBy(func(entry SearchLogEntry) bool {
		return entry.Query == "alpha" &&
			entry.K == 2 &&
			!entry.Reranked &&
			len(entry.Results) == 2 &&
			entry.Results[0].Source == "intro.pdf" &&
			len(entry.Embedding) == 2
	})).Return("log-id", nil)

	svc := NewRetrievalService(eng, nil, searchLogs, nil)

	results, err := svc.Query(context.Background(), "alpha", 2, false)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "alpha text", results[0].Chunk.Text)

	searchLogs.AssertExpectations(t)
}

func TestRetrievalService_Query_NoSearchLogRepo(t *testing.T) {
	embedder := new(MockEmbedder)
	embedder.On("GenerateEmbedding", mock.Anything, "alpha").Return([]float32{1, 0}, nil)

	svc := NewRetrievalService(newReadyEngine(t, embedder), nil, nil, nil)

	results, err := svc.Query(context.Background(), "alpha", 1, false)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRetrievalService_Query_LogFailureDoesNotFailQuery(t *testing.T) {
	embedder := new(MockEmbedder)
	embedder.On("GenerateEmbedding", mock.Anything, "alpha").Return([]float32{1, 0}, nil)

	searchLogs := new(MockSearchLogRepository)
	searchLogs.On("CreateSearchLog", mock.Anything, mock.Anything).Return("", errors.New("db down"))

	svc := NewRetrievalService(newReadyEngine(t, embedder), nil, searchLogs, nil)

	results, err := svc.Query(context.Background(), "alpha", 1, false)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRetrievalService_Query_ErrorNotLogged(t *testing.T) {
	embedder := new(MockEmbedder)
	embedder.On("GenerateEmbedding", mock.Anything, "alpha").Return(nil, errors.New("provider down"))

	searchLogs := new(MockSearchLogRepository)

	svc := NewRetrievalService(newReadyEngine(t, embedder), nil, searchLogs, nil)

	_, err := svc.Query(context.Background(), "alpha", 1, false)
	require.Error(t, err)

	searchLogs.AssertNotCalled(t, "CreateSearchLog", mock.Anything, mock.Anything)
}

func TestRetrievalService_Answer(t *testing.T) {
	embedder := new(MockEmbedder)
	embedder.On("GenerateEmbedding", mock.Anything, "alpha").Return([]float32{1, 0}, nil)

	answerer := new(MockAnswerer)
	answerer.On("Answer", mock.Anything, "alpha", mock.Anything).Return("alpha is the first letter", nil)

	svc := NewRetrievalService(newReadyEngine(t, embedder), answerer, nil, nil)

	answer, results, err := svc.Answer(context.Background(), "alpha", 2, false)
	require.NoError(t, err)
	assert.Equal(t, "alpha is the first letter", answer)
	assert.Len(t, results, 2)
}

func TestRetrievalService_Answer_NoResults(t *testing.T) {
	embedder := new(MockEmbedder)
	embedder.On("GenerateEmbedding", mock.Anything, "alpha").Return([]float32{1, 0}, nil)

	eng, err := engine.New(engine.Config{
		Dimension: 2,
		StoreDir:  t.TempDir(),
		Embedder:  embedder,
	})
	require.NoError(t, err)

	answerer := new(MockAnswerer)

	svc := NewRetrievalService(eng, answerer, nil, nil)

	answer, results, err := svc.Answer(context.Background(), "alpha", 2, false)
	require.NoError(t, err)
	assert.Equal(t, NoResultsAnswer, answer)
	assert.Empty(t, results)

	answerer.AssertNotCalled(t, "Answer", mock.Anything, mock.Anything, mock.Anything)
}

func TestRetrievalService_Answer_NoAnswerer(t *testing.T) {
	embedder := new(MockEmbedder)

	svc := NewRetrievalService(newReadyEngine(t, embedder), nil, nil, nil)

	_, _, err := svc.Answer(context.Background(), "alpha", 2, false)
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeProviderUnavailable, domainErr.Code)
}

func TestRetrievalService_Answer_ProviderFailure(t *testing.T) {
	embedder := new(MockEmbedder)
	embedder.On("GenerateEmbedding", mock.Anything, "alpha").Return([]float32{1, 0}, nil)

	answerer := new(MockAnswerer)
	answerer.On("Answer", mock.Anything, "alpha", mock.Anything).Return("", errors.New("model overloaded"))

	svc := NewRetrievalService(newReadyEngine(t, embedder), answerer, nil, nil)

	_, _, err := svc.Answer(context.Background(), "alpha", 2, false)
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeProviderUnavailable, domainErr.Code)
}

func TestRetrievalService_ListDocuments_NoCatalog(t *testing.T) {
	embedder := new(MockEmbedder)

	svc := NewRetrievalService(newReadyEngine(t, embedder), nil, nil, nil)

	docs, err := svc.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestRetrievalService_ListDocuments(t *testing.T) {
	embedder := new(MockEmbedder)

	documents := new(MockDocumentRepository)
	documents.On("List", mock.Anything).Return([]*domain.Document{
		{ID: "doc-1", Source: "intro.pdf", ChunkCount: 2},
	}, nil)

	svc := NewRetrievalService(newReadyEngine(t, embedder), nil, nil, documents)

	docs, err := svc.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "intro.pdf", docs[0].Source)
}

func TestRetrievalService_Status(t *testing.T) {
	embedder := new(MockEmbedder)

	svc := NewRetrievalService(newReadyEngine(t, embedder), nil, nil, nil)

	status := svc.Status(context.Background())
	assert.Equal(t, "ready", status.State)
	assert.Equal(t, 2, status.Chunks)
	assert.Equal(t, 2, status.Dimension)
	assert.False(t, status.HasCatalog)
}
