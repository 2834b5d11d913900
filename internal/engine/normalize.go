package engine

import (
	"math"

	"github.com/sifthq/docsift/internal/domain"
)

// normalize returns a unit-length copy of vec. Vectors with the wrong
// dimension, non-finite components or zero norm are rejected so they can
// never enter the index. Normalizing an already-unit vector is idempotent
// within float tolerance.
func normalize(vec []float32, dim int) ([]float32, error) {
	if len(vec) != dim {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInvalidEmbedding,
			"wrong embedding dimension", domain.ErrInvalidEmbedding)
	}

	var sum float64
	for _, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInvalidEmbedding,
				"non-finite embedding component", domain.ErrInvalidEmbedding)
		}
		sum += f * f
	}

	norm := math.Sqrt(sum)
	if norm == 0 {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInvalidEmbedding,
			"zero-norm embedding", domain.ErrInvalidEmbedding)
	}

	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out, nil
}
