// Package ingest reads precomputed chunk/embedding files produced by the
// extraction pipeline. One JSON file per source document carries parallel
// chunks, embeddings and headers arrays; the retrieval engine consumes
// them in file order during a rebuild.
package ingest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sifthq/docsift/internal/domain"
)

// Suffix identifies ingestion source files within a source directory.
const Suffix = "_embeddings.json"

// FileType recorded on every chunk; the pipeline only emits PDFs today.
const FileType = "pdf"

// SourceFile is one parsed ingestion file: the ordered chunks of a single
// source document with their precomputed embeddings and section headers.
type SourceFile struct {
	// Source is the originating document identifier, derived from the
	// filename ("report_embeddings.json" -> "report.pdf").
	Source     string
	Chunks     []string
	Embeddings [][]float32
	Headers    []string
}

type sourcePayload struct {
	// Chunks is a pointer so a present-but-empty array (a valid
	// zero-chunk document) can be told apart from a missing field.
	Chunks     *[]string   `json:"chunks"`
	Embeddings [][]float32 `json:"embeddings"`
	Headers    []string    `json:"headers"`
}

// IsSourceFile reports whether a filename looks like an ingestion file.
func IsSourceFile(name string) bool {
	return strings.HasSuffix(name, Suffix)
}

// SourceName derives the document identifier from an ingestion filename.
func SourceName(filename string) string {
	return strings.TrimSuffix(filepath.Base(filename), Suffix) + ".pdf"
}

// ListDir returns the sorted ingestion file paths under dir. A missing
// directory is reported as ErrSourceNotFound, which callers treat as
// "nothing to index" rather than a failure.
func ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeSourceNotFound, dir, domain.ErrSourceNotFound)
		}
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsSourceFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	// Deterministic ingestion order keeps rebuilds idempotent.
	sort.Strings(paths)
	return paths, nil
}

// ReadFile parses and validates one ingestion file. Missing required
// fields or length-mismatched arrays make the whole file malformed; the
// caller skips it and continues with the remaining files. An empty
// chunks array is valid and yields a zero-chunk file.
func ReadFile(path string) (*SourceFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, malformed(path, err)
	}

	var payload sourcePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, malformed(path, err)
	}

	if payload.Chunks == nil {
		return nil, malformed(path, domain.NewDomainError(domain.ErrCodeMalformedInput, "chunks field missing"))
	}
	chunks := *payload.Chunks
	if len(chunks) > 0 && payload.Embeddings == nil {
		return nil, malformed(path, domain.NewDomainError(domain.ErrCodeMalformedInput, "embeddings field missing"))
	}
	if len(payload.Embeddings) != len(chunks) {
		return nil, malformed(path, domain.NewDomainError(domain.ErrCodeMalformedInput, "chunks and embeddings length mismatch"))
	}
	if len(payload.Headers) > len(chunks) {
		return nil, malformed(path, domain.NewDomainError(domain.ErrCodeMalformedInput, "more headers than chunks"))
	}

	// Headers default to "Unknown" per missing entry.
	headers := make([]string, len(chunks))
	for i := range headers {
		if i < len(payload.Headers) && payload.Headers[i] != "" {
			headers[i] = payload.Headers[i]
		} else {
			headers[i] = domain.DefaultHeader
		}
	}

	return &SourceFile{
		Source:     SourceName(path),
		Chunks:     chunks,
		Embeddings: payload.Embeddings,
		Headers:    headers,
	}, nil
}

func malformed(path string, err error) error {
	return domain.NewDomainErrorWithCause(domain.ErrCodeMalformedInput, filepath.Base(path), err)
}
