// Package index implements a flat inner-product vector index: exact
// nearest-neighbor search over unit-normalized float32 vectors. Rows are
// append-only; a rebuild replaces the index wholesale. Since inputs are
// normalized, inner product equals cosine similarity.
package index

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrDimensionMismatch is returned when a vector's length does not
	// match the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Hit is a single search result: the row position of the stored vector and
// its inner-product similarity against the query.
type Hit struct {
	Position int
	Score    float32
}

// Flat stores vectors row-major in a single backing slice. It is not
// goroutine-safe; the retrieval engine serializes access.
type Flat struct {
	dim     int
	vectors []float32
}

// NewFlat creates an empty index for vectors of the given dimension.
func NewFlat(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}
	return &Flat{dim: dim}, nil
}

// Dimension returns the vector dimension D.
func (f *Flat) Dimension() int {
	return f.dim
}

// Len returns the number of stored vectors.
func (f *Flat) Len() int {
	return len(f.vectors) / f.dim
}

// Add appends a vector at the next free position. Existing rows are never
// reordered, so position i remains stable for the life of the index.
func (f *Flat) Add(vec []float32) error {
	if len(vec) != f.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), f.dim)
	}
	f.vectors = append(f.vectors, vec...)
	return nil
}

// Search returns up to k hits ordered by descending similarity. Equal
// scores are broken by lowest position so the ordering is deterministic;
// downstream reranking relies on that. An empty index yields an empty
// result, and k larger than the index returns every row.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(query), f.dim)
	}
	n := f.Len()
	if k <= 0 || n == 0 {
		return []Hit{}, nil
	}

	hits := make([]Hit, n)
	for i := 0; i < n; i++ {
		row := f.vectors[i*f.dim : (i+1)*f.dim]
		var score float32
		for j, q := range query {
			score += row[j] * q
		}
		hits[i] = Hit{Position: i, Score: score}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Position < hits[j].Position
	})

	if k < n {
		hits = hits[:k]
	}
	return hits, nil
}

// Reset discards all stored vectors, returning the index to the empty
// state. Used at the start of a rebuild.
func (f *Flat) Reset() {
	f.vectors = f.vectors[:0]
}

// Row returns the stored vector at the given position. The returned slice
// aliases the index backing array and must not be mutated.
func (f *Flat) Row(position int) ([]float32, error) {
	if position < 0 || position >= f.Len() {
		return nil, fmt.Errorf("position %d out of range [0, %d)", position, f.Len())
	}
	return f.vectors[position*f.dim : (position+1)*f.dim], nil
}
