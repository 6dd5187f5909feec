package models

import "fmt"

// ChunkRecord is the atomic, page-scoped unit of normalized text that gets
// embedded and stored independently. Content always derives from exactly one
// page. Embedding is set only after a successful embed call; a record without
// an embedding is never handed to storage.
type ChunkRecord struct {
	DocumentID   string     `json:"document_id" badgerhold:"index"`
	DocumentName string     `json:"document_name,omitempty"`
	Page         int        `json:"page"`
	ChunkIndex   int        `json:"chunk_index"`
	Content      string     `json:"content"`
	Source       TextSource `json:"source"`
	Embedding    []float32  `json:"embedding,omitempty"`
}

// Key returns the derivable idempotency key for this chunk. The core never
// dedupes on it; stores that want idempotent upserts key on this value.
func (c *ChunkRecord) Key() string {
	return fmt.Sprintf("%s:%d:%d", c.DocumentID, c.Page, c.ChunkIndex)
}

// VectorizationResult summarizes the chunk/embed/store phase for one document.
type VectorizationResult struct {
	Success          bool          `json:"success"`
	DocumentID       string        `json:"document_id"`
	TotalPages       int           `json:"total_pages"`
	TotalChunks      int           `json:"total_chunks"`
	ProcessingTimeMs int64         `json:"processing_time_ms"`
	UserMessage      string        `json:"user_message"`
	FailureReason    FailureReason `json:"failure_reason,omitempty"`
}

// IngestResult bundles the two records a pipeline invocation produces.
// Vectorization is nil when extraction terminated before any usable text.
type IngestResult struct {
	DocumentID    string               `json:"document_id"`
	Extraction    *ExtractedDocument   `json:"extraction"`
	Vectorization *VectorizationResult `json:"vectorization,omitempty"`
}
