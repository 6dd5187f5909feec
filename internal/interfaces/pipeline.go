package interfaces

import (
	"context"

	"github.com/ternarybob/corpus/internal/models"
)

// GuardrailValidator performs cheap structural and size checks before any
// parsing is attempted.
type GuardrailValidator interface {
	Validate(raw *models.RawDocument) error
}

// DocumentClassifier samples pages and labels the document exactly once.
// Classification never fails with an error; unreadable inputs classify
// CORRUPTED (or ENCRYPTED) with zero stats.
type DocumentClassifier interface {
	Classify(ctx context.Context, content []byte) *models.ClassificationResult
}

// TextExtractor runs native text extraction for TEXT_BASED and MIXED
// documents.
type TextExtractor interface {
	Extract(ctx context.Context, content []byte, classification *models.ClassificationResult, progress models.ProgressFunc) (*models.ExtractedDocument, error)
}

// OCRService runs page-by-page render + recognition under the OCR governor.
type OCRService interface {
	Estimate(pageCount int) *models.OCREstimate
	Run(ctx context.Context, content []byte, maxPages int, progress models.ProgressFunc) (*models.OCRResult, error)
}

// IngestOptions carries per-request switches supplied by the caller.
type IngestOptions struct {
	// EnableOCR opts in to running OCR for scanned documents. Off by default;
	// without it scanned documents return a structured requires-OCR response.
	EnableOCR bool

	// AsyncOCR lifts the page cap from the sync tier to the async tier. Set
	// only by the deferred OCR queue, never by interactive callers.
	AsyncOCR bool

	// Progress receives phase-transition callbacks; may be nil.
	Progress models.ProgressFunc
}

// IngestionPipeline is the top-level state machine wiring validation,
// classification, extraction, OCR, chunking, embedding and storage.
type IngestionPipeline interface {
	Ingest(ctx context.Context, raw *models.RawDocument, opts IngestOptions) *models.IngestResult
}
