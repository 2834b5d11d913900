package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sifthq/docsift/internal/api"
	"github.com/sifthq/docsift/internal/domain"
)

const defaultK = 5

type SearchService interface {
	Query(ctx context.Context, query string, k int, rerank bool) ([]domain.ScoredChunk, error)
	Answer(ctx context.Context, query string, k int, rerank bool) (string, []domain.ScoredChunk, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchRequest struct {
	Query  string `json:"query"`
	K      int    `json:"k"`
	Rerank bool   `json:"rerank"`
}

type ResultResponse struct {
	Text       string  `json:"text"`
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	FileType   string  `json:"file_type"`
	Header     string  `json:"header"`
	Score      float32 `json:"score"`
}

type QueryResponse struct {
	Results []ResultResponse `json:"results"`
	Count   int              `json:"count"`
}

type AnswerResponse struct {
	Answer  string           `json:"answer"`
	Results []ResultResponse `json:"results"`
}

func resultsToResponse(results []domain.ScoredChunk) []ResultResponse {
	out := make([]ResultResponse, len(results))
	for i, r := range results {
		out[i] = ResultResponse{
			Text:       r.Chunk.Text,
			Source:     r.Chunk.Source,
			ChunkIndex: r.Chunk.ChunkIndex,
			FileType:   r.Chunk.FileType,
			Header:     r.Chunk.Header,
			Score:      r.Score,
		}
	}
	return out
}

func decodeSearchRequest(w http.ResponseWriter, r *http.Request) (*SearchRequest, bool) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return nil, false
	}
	if req.K < 0 {
		api.Error(w, http.StatusBadRequest, "k must be positive")
		return nil, false
	}
	if req.K == 0 {
		req.K = defaultK
	}
	return &req, true
}

func (h *SearchHandler) Query(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSearchRequest(w, r)
	if !ok {
		return
	}

	results, err := h.svc.Query(r.Context(), req.Query, req.K, req.Rerank)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, QueryResponse{
		Results: resultsToResponse(results),
		Count:   len(results),
	})
}

func (h *SearchHandler) Answer(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSearchRequest(w, r)
	if !ok {
		return
	}

	answer, results, err := h.svc.Answer(r.Context(), req.Query, req.K, req.Rerank)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, AnswerResponse{
		Answer:  answer,
		Results: resultsToResponse(results),
	})
}
