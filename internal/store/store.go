// Package store holds the ordered chunk records parallel to the vector
// index. Position i here corresponds to row i in the index; the retrieval
// engine is the only code path that mutates either structure, appending to
// both in lockstep.
package store

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sifthq/docsift/internal/domain"
)

// ChunkStore is an append-only ordered collection of chunk records. It is
// not goroutine-safe; the retrieval engine serializes access.
type ChunkStore struct {
	chunks []domain.Chunk
}

// New creates an empty ChunkStore.
func New() *ChunkStore {
	return &ChunkStore{}
}

// Len returns the number of stored records.
func (s *ChunkStore) Len() int {
	return len(s.chunks)
}

// Append adds a record at the next free position and returns that position.
func (s *ChunkStore) Append(chunk domain.Chunk) int {
	s.chunks = append(s.chunks, chunk)
	return len(s.chunks) - 1
}

// Get returns the record at the given position.
func (s *ChunkStore) Get(position int) (domain.Chunk, error) {
	if position < 0 || position >= len(s.chunks) {
		return domain.Chunk{}, domain.NewDomainErrorWithCause(
			domain.ErrCodeOutOfRange,
			fmt.Sprintf("position %d out of range [0, %d)", position, len(s.chunks)),
			domain.ErrOutOfRange,
		)
	}
	return s.chunks[position], nil
}

// All calls fn for every record in position order until fn returns false.
// Repeated calls reproduce the same sequence while the store is unmodified.
func (s *ChunkStore) All(fn func(position int, chunk domain.Chunk) bool) {
	for i, c := range s.chunks {
		if !fn(i, c) {
			return
		}
	}
}

// Reset clears all records, used together with the index reset at the
// start of a rebuild.
func (s *ChunkStore) Reset() {
	s.chunks = s.chunks[:0]
}

// snapshot is the on-disk JSON form. Chunk text and metadata are stored
// verbatim, never normalized or mutated.
type snapshot struct {
	Chunks []domain.Chunk `json:"chunks"`
}

// WriteTo serializes the store as JSON. Implements io.WriterTo.
func (s *ChunkStore) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	enc := json.NewEncoder(cw)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snapshot{Chunks: s.chunks}); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// Read deserializes a store previously written with WriteTo.
func Read(r io.Reader) (*ChunkStore, error) {
	var snap snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode chunk store snapshot: %w", err)
	}
	return &ChunkStore{chunks: snap.Chunks}, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
