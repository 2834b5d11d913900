package ingest

import "fmt"

// FileError records one non-fatal condition encountered during a rebuild:
// a skipped file or a rejected chunk.
type FileError struct {
	File   string `json:"file"`
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// Report summarizes a rebuild pass. Partial-success conditions are
// accumulated here rather than surfaced per item.
type Report struct {
	FilesIngested  int         `json:"files_ingested"`
	FilesSkipped   int         `json:"files_skipped"`
	ChunksAdded    int         `json:"chunks_added"`
	ChunksRejected int         `json:"chunks_rejected"`
	Errors         []FileError `json:"errors,omitempty"`
}

// SkipFile records a whole file skipped for the given reason.
func (r *Report) SkipFile(file, code string, err error) {
	r.FilesSkipped++
	r.Errors = append(r.Errors, FileError{File: file, Code: code, Detail: err.Error()})
}

// RejectChunk records a single chunk rejected within an otherwise
// ingestible file.
func (r *Report) RejectChunk(file string, chunkIndex int, code string, err error) {
	r.ChunksRejected++
	r.Errors = append(r.Errors, FileError{
		File:   file,
		Code:   code,
		Detail: fmt.Sprintf("chunk %d: %v", chunkIndex, err),
	})
}

// Summary renders a one-line human-readable account of the pass.
func (r *Report) Summary() string {
	return fmt.Sprintf("ingested %d files (%d skipped), %d chunks (%d rejected)",
		r.FilesIngested, r.FilesSkipped, r.ChunksAdded, r.ChunksRejected)
}
