package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sifthq/docsift/internal/api/handlers"
	"github.com/sifthq/docsift/internal/domain"
	"github.com/sifthq/docsift/internal/ingest"
	"github.com/sifthq/docsift/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Query(ctx context.Context, query string, k int, rerank bool) ([]domain.ScoredChunk, error) {
	args := m.Called(ctx, query, k, rerank)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredChunk), args.Error(1)
}

func (m *MockSearchService) Answer(ctx context.Context, query string, k int, rerank bool) (string, []domain.ScoredChunk, error) {
	args := m.Called(ctx, query, k, rerank)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).([]domain.ScoredChunk), args.Error(2)
}

type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) Rebuild(ctx context.Context, sourceDir string) (*ingest.Report, error) {
	args := m.Called(ctx, sourceDir)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingest.Report), args.Error(1)
}

func (m *MockAdminService) GetAll(ctx context.Context) []domain.Chunk {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Chunk)
}

func (m *MockAdminService) ListDocuments(ctx context.Context) ([]*domain.Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockAdminService) Status(ctx context.Context) service.Status {
	args := m.Called(ctx)
	return args.Get(0).(service.Status)
}

func setupRouter() (http.Handler, *MockSearchService, *MockAdminService) {
	searchSvc := new(MockSearchService)
	adminSvc := new(MockAdminService)

	cfg := RouterConfig{
		SearchHandler: handlers.NewSearchHandler(searchSvc),
		AdminHandler:  handlers.NewAdminHandler(adminSvc, "chunked_texts"),
	}

	return NewRouter(cfg), searchSvc, adminSvc
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_Query(t *testing.T) {
	router, searchSvc, _ := setupRouter()
	searchSvc.On("Query", mock.Anything, "attention", 3, false).
		Return([]domain.ScoredChunk{
			{Chunk: domain.Chunk{Text: "alpha", Source: "a.pdf"}, Score: 0.9},
		}, nil)

	body, _ := json.Marshal(map[string]interface{}{"query": "attention", "k": 3})
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	searchSvc.AssertExpectations(t)
}

func TestRouter_Answer(t *testing.T) {
	router, searchSvc, _ := setupRouter()
	searchSvc.On("Answer", mock.Anything, "attention", 5, true).
		Return("answer text", []domain.ScoredChunk{}, nil)

	body, _ := json.Marshal(map[string]interface{}{"query": "attention", "rerank": true})
	req := httptest.NewRequest(http.MethodPost, "/answer", bytes.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	searchSvc.AssertExpectations(t)
}

func TestRouter_Rebuild(t *testing.T) {
	router, _, adminSvc := setupRouter()
	adminSvc.On("Rebuild", mock.Anything, "chunked_texts").
		Return(&ingest.Report{FilesIngested: 1}, nil)

	req := httptest.NewRequest(http.MethodPost, "/rebuild", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	adminSvc.AssertExpectations(t)
}

func TestRouter_Chunks(t *testing.T) {
	router, _, adminSvc := setupRouter()
	adminSvc.On("GetAll", mock.Anything).Return([]domain.Chunk{})

	req := httptest.NewRequest(http.MethodGet, "/chunks", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_Documents(t *testing.T) {
	router, _, adminSvc := setupRouter()
	adminSvc.On("ListDocuments", mock.Anything).Return([]*domain.Document{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_Status(t *testing.T) {
	router, _, adminSvc := setupRouter()
	adminSvc.On("Status", mock.Anything).Return(service.Status{State: "empty"})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_BodyTooLarge(t *testing.T) {
	router, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(make([]byte, 2*1024*1024)))
	req.ContentLength = 2 * 1024 * 1024
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	router, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
