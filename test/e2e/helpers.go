//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sifthq/docsift/internal/api/handlers"
	"github.com/sifthq/docsift/internal/catalog"
	"github.com/sifthq/docsift/internal/domain"
	"github.com/sifthq/docsift/internal/engine"
	"github.com/sifthq/docsift/internal/ingest"
	"github.com/sifthq/docsift/internal/server"
	"github.com/sifthq/docsift/internal/service"
	"github.com/sifthq/docsift/internal/storage"
	"github.com/sifthq/docsift/internal/testutil"
)

const embeddingDim = 8

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	S3Client     *storage.S3Client
	Syncer       *storage.Syncer
	SourceDir    string
	StoreDir     string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "docsift-sources",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}

	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	sourceDir := t.TempDir()
	storeDir := t.TempDir()

	documents := catalog.NewDocumentRepository(pool)
	searchLogs := catalog.NewSearchLogRepository(pool)
	syncer := storage.NewSyncer(s3Client, documents, sourceDir)

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, storeDir, sourceDir, searchLogs, documents, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		S3Client:     s3Client,
		Syncer:       syncer,
		SourceDir:    sourceDir,
		StoreDir:     storeDir,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// embedText derives a deterministic unit-length vector from text. Source
// payloads and the query embedder share it, so querying a chunk's exact
// text retrieves that chunk with score 1.
func embedText(text string) []float32 {
	sum := sha256.Sum256([]byte(strings.ToLower(text)))

	vec := make([]float32, embeddingDim)
	var norm float64
	for i := 0; i < embeddingDim; i++ {
		bits := binary.BigEndian.Uint32(sum[i*4 : i*4+4])
		v := float64(bits)/float64(1<<31) - 1.0
		vec[i] = float32(v)
		norm += v * v
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	scale := float32(1.0 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

// hashEmbedder is a deterministic stand-in for the embedding provider.
type hashEmbedder struct{}

func (hashEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	return embedText(text), nil
}

// stubAnswerer composes a trivial answer from the retrieved chunks.
type stubAnswerer struct{}

func (stubAnswerer) Answer(_ context.Context, query string, results []domain.ScoredChunk) (string, error) {
	return fmt.Sprintf("Answer to %q from %d chunks", query, len(results)), nil
}

// SourcePayload builds the JSON body of an ingestion file whose embeddings
// match what the test embedder would produce for each chunk.
func SourcePayload(t *testing.T, chunks, headers []string) []byte {
	embeddings := make([][]float32, len(chunks))
	for i, c := range chunks {
		embeddings[i] = embedText(c)
	}
	data, err := json.Marshal(map[string]interface{}{
		"chunks":     chunks,
		"embeddings": embeddings,
		"headers":    headers,
	})
	if err != nil {
		t.Fatalf("failed to marshal source payload: %v", err)
	}
	return data
}

// WriteSource writes an ingestion file into the local source directory.
func (e *E2ETestEnv) WriteSource(name string, chunks, headers []string) {
	data := SourcePayload(e.T, chunks, headers)
	path := filepath.Join(e.SourceDir, name+ingest.Suffix)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		e.T.Fatalf("failed to write source file: %v", err)
	}
}

// UploadSource puts an ingestion file into the object store bucket.
func (e *E2ETestEnv) UploadSource(name string, chunks, headers []string) {
	data := SourcePayload(e.T, chunks, headers)
	key := name + ingest.Suffix
	if err := e.S3Client.UploadObject(e.Ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		e.T.Fatalf("failed to upload source object: %v", err)
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest("POST", path, body)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// startServer starts the HTTP server with all handlers
func startServer(t *testing.T, storeDir, sourceDir string, searchLogs service.SearchLogRepository, documents service.DocumentRepository, port int) (string, func()) {
	eng, err := engine.New(engine.Config{
		Dimension: embeddingDim,
		StoreDir:  storeDir,
		Embedder:  hashEmbedder{},
	})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	retrievalSvc := service.NewRetrievalService(eng, stubAnswerer{}, searchLogs, documents)

	router := server.NewRouter(server.RouterConfig{
		SearchHandler: handlers.NewSearchHandler(retrievalSvc),
		AdminHandler:  handlers.NewAdminHandler(retrievalSvc, sourceDir),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
