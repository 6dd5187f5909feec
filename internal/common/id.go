package common

import (
	"github.com/google/uuid"
)

// NewDocumentID generates the ID one pipeline invocation is known by.
// Format: doc_<uuid>. Chunk keys derive from it as doc:page:index.
func NewDocumentID() string {
	return "doc_" + uuid.New().String()
}

// NewJobID generates an ID for a deferred OCR queue job. Jobs get their own
// prefix because a queued document is re-ingested under a fresh document ID
// when the job runs.
// Format: job_<uuid>
func NewJobID() string {
	return "job_" + uuid.New().String()
}
