package domain

import "fmt"

// DefaultHeader is used when no section header was detected for a chunk.
const DefaultHeader = "Unknown"

// Chunk represents the atomic retrievable unit: a contiguous span of a
// source document's text together with its origin metadata. A chunk's
// identity is its position in the store, which equals its row in the
// vector index.
type Chunk struct {
	Text       string `json:"text"`
	Source     string `json:"source"`
	ChunkIndex int    `json:"chunk_index"`
	FileType   string `json:"file_type"`
	Header     string `json:"header"`
}

// NewChunk creates a new Chunk instance, defaulting the header when empty.
func NewChunk(text, source string, chunkIndex int, fileType, header string) Chunk {
	if header == "" {
		header = DefaultHeader
	}
	return Chunk{
		Text:       text,
		Source:     source,
		ChunkIndex: chunkIndex,
		FileType:   fileType,
		Header:     header,
	}
}

// ValidateChunk validates a Chunk instance
func ValidateChunk(c Chunk) error {
	if c.Text == "" {
		return fmt.Errorf("chunk text is required")
	}
	if c.Source == "" {
		return fmt.Errorf("chunk source is required")
	}
	if c.ChunkIndex < 0 {
		return fmt.Errorf("chunk index cannot be negative")
	}
	return nil
}
