// -----------------------------------------------------------------------
// Pipeline Orchestrator - State machine over classification outcomes
// -----------------------------------------------------------------------

package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/corpus/internal/common"
	"github.com/ternarybob/corpus/internal/interfaces"
	"github.com/ternarybob/corpus/internal/models"
	"github.com/ternarybob/corpus/internal/services/chunker"
	"github.com/ternarybob/corpus/internal/services/html"
	"github.com/ternarybob/corpus/internal/services/split"
)

// Service wires validation, classification, extraction, OCR, chunking,
// embedding and storage into one state machine. All timeouts are cooperative
// context deadlines; a timed-out stage returns promptly and no work outlives
// the request.
type Service struct {
	cfg        *common.PipelineConfig
	validator  interfaces.GuardrailValidator
	classifier interfaces.DocumentClassifier
	extractor  interfaces.TextExtractor
	text       *html.Extractor
	ocr        interfaces.OCRService
	chunker    *chunker.Chunker
	embedder   ChunkSink
	logger     arbor.ILogger
}

// ChunkSink is the embed+store stage the pipeline hands chunks to.
type ChunkSink interface {
	EmbedAndStore(ctx context.Context, chunks []models.ChunkRecord, progress models.ProgressFunc) (int, error)
}

// Compile-time interface assertion
var _ interfaces.IngestionPipeline = (*Service)(nil)

// NewService creates the pipeline orchestrator.
func NewService(
	cfg *common.PipelineConfig,
	validator interfaces.GuardrailValidator,
	classifier interfaces.DocumentClassifier,
	extractor interfaces.TextExtractor,
	textExtractor *html.Extractor,
	ocrService interfaces.OCRService,
	chunkSvc *chunker.Chunker,
	embedder ChunkSink,
	logger arbor.ILogger,
) *Service {
	return &Service{
		cfg:        cfg,
		validator:  validator,
		classifier: classifier,
		extractor:  extractor,
		text:       textExtractor,
		ocr:        ocrService,
		chunker:    chunkSvc,
		embedder:   embedder,
		logger:     logger,
	}
}

// Ingest runs one document through the full pipeline. It never returns an
// error: every terminal failure is a structured result carrying one taxonomy
// value and a user message, with internal detail kept to the logs.
func (s *Service) Ingest(ctx context.Context, raw *models.RawDocument, opts interfaces.IngestOptions) *models.IngestResult {
	start := time.Now()
	docID := common.NewDocumentID()
	result := &models.IngestResult{DocumentID: docID}

	s.logger.Info().
		Str("document_id", docID).
		Str("filename", raw.Filename).
		Str("mime_type", raw.MimeType).
		Int("size", len(raw.Content)).
		Msg("Ingestion started")

	opts.Progress.Report(models.PhaseValidating, 0, 1)
	if err := s.validator.Validate(raw); err != nil {
		result.Extraction = failureDocument(err, nil, start)
		s.logFailure(docID, result.Extraction)
		return result
	}

	extraction := s.extract(ctx, raw, opts, start)
	result.Extraction = extraction

	if !extraction.Success {
		s.logFailure(docID, extraction)
		return result
	}

	result.Vectorization = s.vectorize(ctx, docID, raw.Filename, extraction, opts.Progress)
	opts.Progress.Report(models.PhaseComplete, 1, 1)

	s.logger.Info().
		Str("document_id", docID).
		Str("status", string(extraction.Status)).
		Bool("vectorized", result.Vectorization != nil && result.Vectorization.Success).
		Dur("duration", time.Since(start)).
		Msg("Ingestion finished")

	return result
}

// extract runs the classification-driven extraction branch for the upload.
func (s *Service) extract(ctx context.Context, raw *models.RawDocument, opts interfaces.IngestOptions, start time.Time) *models.ExtractedDocument {
	// Text uploads have nothing to classify; they are text-based by
	// construction and skip straight to extraction.
	switch raw.MimeType {
	case "text/html", "text/plain", "text/markdown":
		opts.Progress.Report(models.PhaseExtracting, 0, 1)
		doc, err := s.text.Extract(ctx, raw)
		if err != nil {
			return failureDocument(err, nil, start)
		}
		return doc
	}

	opts.Progress.Report(models.PhaseClassifying, 0, 1)
	classification := s.classifier.Classify(ctx, raw.Content)

	switch classification.Type {
	case models.ClassificationEncrypted:
		return failureDocument(models.NewPipelineError(models.FailureEncrypted, nil), classification, start)

	case models.ClassificationCorrupted:
		return failureDocument(models.NewPipelineError(models.FailureCorrupted, nil), classification, start)

	case models.ClassificationScanned:
		return s.ocrBranch(ctx, raw, classification, nil, opts, start)

	default: // TEXT_BASED or MIXED
		doc, err := s.extractor.Extract(ctx, raw.Content, classification, opts.Progress)
		if err != nil {
			if classification.Type == models.ClassificationMixed {
				// Native extraction produced nothing usable; decide OCR.
				return s.ocrBranch(ctx, raw, classification, nil, opts, start)
			}
			return failureDocument(err, classification, start)
		}

		if classification.Type == models.ClassificationMixed && s.insufficient(doc) {
			return s.ocrBranch(ctx, raw, classification, doc, opts, start)
		}
		return doc
	}
}

// insufficient judges whether a MIXED document's native text is too thin to
// stand on its own.
func (s *Service) insufficient(doc *models.ExtractedDocument) bool {
	return len(strings.TrimSpace(strings.ReplaceAll(doc.Text, "\f", ""))) < s.cfg.MinTextThreshold
}

// ocrBranch implements the OCR decision: tier caps, the opt-in flag, the
// structured requires-OCR response, and the PARTIAL fallback for MIXED
// documents that already produced some native text.
func (s *Service) ocrBranch(ctx context.Context, raw *models.RawDocument, classification *models.ClassificationResult, partial *models.ExtractedDocument, opts interfaces.IngestOptions, start time.Time) *models.ExtractedDocument {
	pageCount := classification.PageCount

	// Above the async cap nothing can run OCR, enabled or not.
	if pageCount > s.cfg.MaxPagesScannedAsync {
		doc := failureDocument(models.NewPipelineError(models.FailureTooManyPages, nil), classification, start)
		doc.RequiresOCR = true
		return doc
	}

	maxPages := s.cfg.MaxPagesScannedSync
	if opts.AsyncOCR {
		maxPages = s.cfg.MaxPagesScannedAsync
	}

	if !opts.EnableOCR || pageCount > maxPages {
		// Return the estimate instead of doing expensive work unasked.
		return s.requiresOCRResponse(classification, partial, start)
	}

	opts.Progress.Report(models.PhaseOCR, 0, pageCount)
	ocrResult, err := s.ocr.Run(ctx, raw.Content, maxPages, opts.Progress)
	if err != nil || !ocrResult.Success {
		if partial != nil {
			// MIXED still yields PARTIAL from whatever native text exists.
			partial.Status = models.StatusPartial
			partial.Warnings = append(partial.Warnings, "text recognition failed; native text only")
			partial.UserMessage = "Some pages could not be recognized; extracted the available text."
			return partial
		}
		if err == nil {
			err = models.NewPipelineError(ocrResult.FailureReason, nil)
		}
		return failureDocument(err, classification, start)
	}

	doc := &models.ExtractedDocument{
		Success:          true,
		Text:             ocrResult.Text,
		PageCount:        ocrResult.PageCount,
		Source:           models.SourceOCR,
		Classification:   classification,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		UserMessage:      "Recognized text from scanned pages.",
		Warnings:         ocrResult.Warnings,
		Status:           models.StatusComplete,
	}
	if ocrResult.PagesProcessed < ocrResult.PageCount {
		doc.Status = models.StatusPartial
	}
	if partial != nil {
		// Pages that extracted natively keep their native text; only the
		// pages without it take the recognized text.
		doc.Text = mergePageTexts(partial.Text, ocrResult.Text)
		doc.Source = models.SourceHybrid
	}
	return doc
}

// mergePageTexts combines native and recognized text page by page. A page
// with native text wins over its recognized counterpart; recognition only
// fills the gaps.
func mergePageTexts(native, recognized string) string {
	nativePages := strings.Split(native, "\f")
	ocrPages := strings.Split(recognized, "\f")

	total := len(ocrPages)
	if len(nativePages) > total {
		total = len(nativePages)
	}

	merged := make([]string, total)
	for i := 0; i < total; i++ {
		if i < len(nativePages) && strings.TrimSpace(nativePages[i]) != "" {
			merged[i] = nativePages[i]
			continue
		}
		if i < len(ocrPages) {
			merged[i] = ocrPages[i]
		}
	}
	return strings.Join(merged, "\f")
}

// requiresOCRResponse builds the structured answer for scanned documents
// when OCR is disabled or limited to a higher tier.
func (s *Service) requiresOCRResponse(classification *models.ClassificationResult, partial *models.ExtractedDocument, start time.Time) *models.ExtractedDocument {
	estimate := s.ocr.Estimate(classification.PageCount)

	if partial != nil {
		partial.Status = models.StatusPartial
		partial.RequiresOCR = true
		partial.OCREstimate = estimate
		partial.UserMessage = "Extracted the available text; enable OCR to recognize the scanned pages."
		return partial
	}

	return &models.ExtractedDocument{
		Success:          false,
		PageCount:        classification.PageCount,
		Source:           models.SourceNative,
		Classification:   classification,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		UserMessage:      models.FailureScanned.UserMessage(),
		FailureReason:    models.FailureScanned,
		RequiresOCR:      true,
		OCREstimate:      estimate,
		Status:           models.StatusRequiresOCR,
	}
}

// vectorize re-derives pages from the extracted text, chunks them, and runs
// the embed/store stage. It always works from the text blob independent of
// how that text was produced.
func (s *Service) vectorize(ctx context.Context, docID, filename string, extraction *models.ExtractedDocument, progress models.ProgressFunc) *models.VectorizationResult {
	start := time.Now()

	progress.Report(models.PhaseChunking, 0, 1)

	pages := split.Pages(extraction.Text, extraction.Source, split.Options{
		PseudoPageSize: s.cfg.PseudoPageSize,
		MinPageChars:   s.cfg.MinPageChars,
	})

	result := &models.VectorizationResult{
		DocumentID: docID,
		TotalPages: len(pages),
	}

	chunks := s.chunker.ChunkDocument(docID, filename, pages)
	if len(chunks) == 0 {
		result.FailureReason = models.FailureEmpty
		result.UserMessage = models.FailureEmpty.UserMessage()
		result.ProcessingTimeMs = time.Since(start).Milliseconds()
		return result
	}

	stored, err := s.embedder.EmbedAndStore(ctx, chunks, progress)
	result.TotalChunks = stored
	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	switch {
	case err != nil && errors.Is(err, context.DeadlineExceeded):
		result.FailureReason = models.FailureTimeout
		result.UserMessage = models.FailureTimeout.UserMessage()
	case stored == 0:
		result.FailureReason = models.FailureEmpty
		result.UserMessage = "No chunks could be embedded for this document."
	default:
		result.Success = true
		result.UserMessage = "Document indexed and ready for search."
	}

	s.logger.Info().
		Str("document_id", docID).
		Int("total_pages", result.TotalPages).
		Int("total_chunks", result.TotalChunks).
		Bool("success", result.Success).
		Msg("Vectorization finished")

	return result
}

// failureDocument maps a pipeline error to the structured failure record
// callers receive. Raw parser detail stays in the logs.
func failureDocument(err error, classification *models.ClassificationResult, start time.Time) *models.ExtractedDocument {
	reason := models.FailureCorrupted
	var perr *models.PipelineError
	if errors.As(err, &perr) {
		reason = perr.Reason
	}

	doc := &models.ExtractedDocument{
		Success:          false,
		Classification:   classification,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		UserMessage:      reason.UserMessage(),
		FailureReason:    reason,
		Status:           models.StatusComplete,
	}
	if classification != nil {
		doc.PageCount = classification.PageCount
	}
	return doc
}

func (s *Service) logFailure(docID string, doc *models.ExtractedDocument) {
	s.logger.Warn().
		Str("document_id", docID).
		Str("failure_reason", string(doc.FailureReason)).
		Bool("requires_ocr", doc.RequiresOCR).
		Msg("Ingestion terminated")
}
