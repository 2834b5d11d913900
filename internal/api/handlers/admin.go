package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sifthq/docsift/internal/api"
	"github.com/sifthq/docsift/internal/domain"
	"github.com/sifthq/docsift/internal/ingest"
	"github.com/sifthq/docsift/internal/service"
)

type AdminService interface {
	Rebuild(ctx context.Context, sourceDir string) (*ingest.Report, error)
	GetAll(ctx context.Context) []domain.Chunk
	ListDocuments(ctx context.Context) ([]*domain.Document, error)
	Status(ctx context.Context) service.Status
}

// AdminHandler serves the operational endpoints: rebuild, store
// inspection, document catalog and status.
type AdminHandler struct {
	svc       AdminService
	sourceDir string
}

func NewAdminHandler(svc AdminService, sourceDir string) *AdminHandler {
	return &AdminHandler{svc: svc, sourceDir: sourceDir}
}

type RebuildRequest struct {
	SourceDir string `json:"source_dir"`
}

func (h *AdminHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	req := RebuildRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sourceDir := req.SourceDir
	if sourceDir == "" {
		sourceDir = h.sourceDir
	}

	report, err := h.svc.Rebuild(r.Context(), sourceDir)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, report)
}

type ChunkResponse struct {
	Text       string `json:"text"`
	Source     string `json:"source"`
	ChunkIndex int    `json:"chunk_index"`
	FileType   string `json:"file_type"`
	Header     string `json:"header"`
}

type ChunksResponse struct {
	Chunks []ChunkResponse `json:"chunks"`
	Count  int             `json:"count"`
}

func (h *AdminHandler) Chunks(w http.ResponseWriter, r *http.Request) {
	chunks := h.svc.GetAll(r.Context())

	out := make([]ChunkResponse, len(chunks))
	for i, c := range chunks {
		out[i] = ChunkResponse{
			Text:       c.Text,
			Source:     c.Source,
			ChunkIndex: c.ChunkIndex,
			FileType:   c.FileType,
			Header:     c.Header,
		}
	}

	api.Success(w, http.StatusOK, ChunksResponse{Chunks: out, Count: len(out)})
}

type DocumentResponse struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	ObjectKey  string `json:"object_key,omitempty"`
	SizeBytes  int64  `json:"size_bytes"`
	ChunkCount int    `json:"chunk_count"`
	SyncedAt   string `json:"synced_at,omitempty"`
}

type DocumentListResponse struct {
	Items []DocumentResponse `json:"items"`
}

func (h *AdminHandler) Documents(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.ListDocuments(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]DocumentResponse, len(docs))
	for i, d := range docs {
		items[i] = DocumentResponse{
			ID:         d.ID,
			Source:     d.Source,
			ObjectKey:  d.ObjectKey,
			SizeBytes:  d.SizeBytes,
			ChunkCount: d.ChunkCount,
		}
		if !d.SyncedAt.IsZero() {
			items[i].SyncedAt = d.SyncedAt.Format("2006-01-02T15:04:05Z")
		}
	}

	api.Success(w, http.StatusOK, DocumentListResponse{Items: items})
}

func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, h.svc.Status(r.Context()))
}
