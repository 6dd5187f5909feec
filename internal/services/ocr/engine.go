// -----------------------------------------------------------------------
// OCR Engine - Page-by-page render + recognition with bounded timeouts
// -----------------------------------------------------------------------

package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/corpus/internal/common"
	"github.com/ternarybob/corpus/internal/governor"
	"github.com/ternarybob/corpus/internal/interfaces"
	"github.com/ternarybob/corpus/internal/models"
)

// rendererFactory opens a renderer over raw document bytes. Tests substitute
// a synthetic implementation.
type rendererFactory func(content []byte) (interfaces.PageRenderer, error)

// Engine recognizes scanned pages one at a time under the OCR governor.
// A page failure or timeout yields an empty placeholder and processing
// continues; partial output beats total failure.
type Engine struct {
	cfg         *common.PipelineConfig
	recognizer  interfaces.PageRecognizer
	gov         *governor.Governor
	logger      arbor.ILogger
	newRenderer rendererFactory
}

// Compile-time interface assertion
var _ interfaces.OCRService = (*Engine)(nil)

// NewEngine creates the OCR engine.
func NewEngine(cfg *common.PipelineConfig, recognizer interfaces.PageRecognizer, gov *governor.Governor, logger arbor.ILogger) *Engine {
	return &Engine{
		cfg:         cfg,
		recognizer:  recognizer,
		gov:         gov,
		logger:      logger,
		newRenderer: newFitzRenderer,
	}
}

// Estimate describes the expected OCR cost for a page count without running
// any expensive work.
func (e *Engine) Estimate(pageCount int) *models.OCREstimate {
	canSync := pageCount <= e.cfg.MaxPagesScannedSync
	warning := fmt.Sprintf("Text recognition for %d pages takes roughly %d seconds.", pageCount, pageCount*e.cfg.OCRSecondsPerPage)
	if !canSync {
		warning = fmt.Sprintf("This document has %d pages and must be recognized as a background job.", pageCount)
	}
	return &models.OCREstimate{
		PageCount:            pageCount,
		EstimatedTimeSeconds: pageCount * e.cfg.OCRSecondsPerPage,
		CanRunSync:           canSync,
		Warning:              warning,
	}
}

// Run renders and recognizes up to maxPages pages. The whole run races only
// against its cooperative total deadline; exceeding it stops early and keeps
// whatever pages succeeded. Success means at least one page produced text.
func (e *Engine) Run(ctx context.Context, content []byte, maxPages int, progress models.ProgressFunc) (*models.OCRResult, error) {
	if err := e.gov.Acquire(ctx); err != nil {
		return nil, models.NewPipelineError(models.FailureTimeout, err)
	}
	defer e.gov.Release()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.OCRTotalTimeout)
	defer cancel()

	renderer, err := e.newRenderer(content)
	if err != nil {
		return nil, models.NewPipelineError(models.FailureRenderFailed, err)
	}
	defer renderer.Close()

	pageCount := renderer.PageCount()
	if pageCount == 0 {
		return nil, models.NewPipelineError(models.FailureCorrupted, fmt.Errorf("no pages to render"))
	}
	if pageCount > maxPages {
		pageCount = maxPages
	}

	result := &models.OCRResult{PageCount: pageCount}
	pages := make([]string, 0, pageCount)
	start := time.Now()

	for page := 1; page <= pageCount; page++ {
		if ctx.Err() != nil {
			// Total timeout: stop early, keep what succeeded.
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("recognition stopped after %d of %d pages (time limit)", page-1, pageCount))
			break
		}

		text := e.recognizePage(ctx, renderer, page, result)
		pages = append(pages, text)
		result.PagesProcessed++
		if strings.TrimSpace(text) != "" {
			result.PagesWithText++
		}

		progress.Report(models.PhaseOCR, page, pageCount)
	}

	result.Text = strings.Join(pages, "\f")
	result.Success = result.PagesWithText > 0
	if !result.Success {
		result.FailureReason = models.FailureOCRFailed
	}

	e.logger.Info().
		Int("pages_processed", result.PagesProcessed).
		Int("pages_with_text", result.PagesWithText).
		Int("page_count", result.PageCount).
		Dur("duration", time.Since(start)).
		Msg("OCR run finished")

	return result, nil
}

// recognizePage renders one page and recognizes it under an independent
// per-page deadline. Any failure produces an empty placeholder so page
// numbering downstream stays gap-free.
func (e *Engine) recognizePage(ctx context.Context, renderer interfaces.PageRenderer, page int, result *models.OCRResult) string {
	img, err := renderer.Render(ctx, page)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("page %d: render failed: %v", page, err))
		e.logger.Warn().Err(err).Int("page", page).Msg("Page render failed")
		return ""
	}

	pctx, cancel := context.WithTimeout(ctx, e.cfg.OCRPageTimeout)
	defer cancel()

	text, err := e.recognizer.Recognize(pctx, img, page)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("page %d: recognition failed: %v", page, err))
		e.logger.Warn().Err(err).Int("page", page).Msg("Page recognition failed")
		return ""
	}
	return text
}
