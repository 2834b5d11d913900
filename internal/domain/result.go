package domain

// ScoredChunk pairs a retrieved chunk with its inner-product similarity
// score against the query embedding. When reranking is enabled the slice
// order reflects the reranker's relevance order, but Score always remains
// the similarity-search score.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}
