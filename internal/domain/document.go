package domain

import "time"

// Document is a catalog record for one ingested source document. The
// catalog tracks provenance (which bucket object a source file came from,
// when it was synced) and is separate from the chunk store, which holds
// the retrievable text.
type Document struct {
	ID         string
	Source     string
	ObjectKey  string
	SizeBytes  int64
	ETag       string
	ChunkCount int
	SyncedAt   time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
