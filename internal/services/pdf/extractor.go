// -----------------------------------------------------------------------
// Text Extraction Engine - Batched, timeout-bounded native page extraction
// -----------------------------------------------------------------------

package pdf

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gen2brain/go-fitz"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/corpus/internal/common"
	"github.com/ternarybob/corpus/internal/governor"
	"github.com/ternarybob/corpus/internal/interfaces"
	"github.com/ternarybob/corpus/internal/models"
)

// pageMarkerRe matches textual page-break sentinels some parsers emit inside
// page content. They are stripped; page boundaries are carried as form feeds.
var pageMarkerRe = regexp.MustCompile(`(?mi)^\s*-{2,}\s*page\s+\d+\s*-{2,}\s*$`)

// spaceRunRe collapses runs of spaces and tabs within a line.
var spaceRunRe = regexp.MustCompile(`[ \t]{2,}`)

// Extractor runs native text extraction for TEXT_BASED and MIXED documents
// under the extraction governor.
type Extractor struct {
	cfg    *common.PipelineConfig
	gov    *governor.Governor
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.TextExtractor = (*Extractor)(nil)

// NewExtractor creates the text extraction engine.
func NewExtractor(cfg *common.PipelineConfig, gov *governor.Governor, logger arbor.ILogger) *Extractor {
	return &Extractor{cfg: cfg, gov: gov, logger: logger}
}

// Extract pulls text from every page. Pages whose fragments cannot be decoded
// contribute an empty page rather than aborting; the whole operation runs
// under one cooperative deadline. Page boundaries are preserved as form feeds
// in the returned text.
func (e *Extractor) Extract(ctx context.Context, content []byte, classification *models.ClassificationResult, progress models.ProgressFunc) (*models.ExtractedDocument, error) {
	start := time.Now()

	pageCount := classification.PageCount
	if pageCount > e.cfg.MaxPagesTextBased {
		return nil, models.NewPipelineError(models.FailureTooManyPages,
			fmt.Errorf("%d pages exceeds text-based limit %d", pageCount, e.cfg.MaxPagesTextBased))
	}

	if err := e.gov.Acquire(ctx); err != nil {
		return nil, models.NewPipelineError(models.FailureTimeout, err)
	}
	defer e.gov.Release()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.ExtractTimeout)
	defer cancel()

	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return nil, models.NewPipelineError(models.FailureCorrupted, err)
	}
	defer doc.Close()

	if n := doc.NumPage(); n < pageCount {
		pageCount = n
	}

	var (
		pages    = make([]string, 0, pageCount)
		warnings []string
		totalLen int
	)

	for i := 0; i < pageCount; i++ {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, models.NewPipelineError(models.FailureTimeout,
					fmt.Errorf("extraction stopped at page %d of %d", i, pageCount))
			}
			return nil, models.NewPipelineError(models.FailureTimeout, err)
		}

		// Batches exist purely for progress reporting, not correctness.
		if i%e.cfg.ExtractBatchSize == 0 {
			progress.Report(models.PhaseExtracting, i, pageCount)
		}

		text, err := doc.Text(i)
		if err != nil {
			// A page whose fragments cannot be decoded is skipped, never
			// aborting the document.
			warnings = append(warnings, fmt.Sprintf("page %d: %v", i+1, err))
			pages = append(pages, "")
			continue
		}

		cleaned := cleanPageText(text)
		totalLen += len(cleaned)
		pages = append(pages, cleaned)
	}

	progress.Report(models.PhaseExtracting, pageCount, pageCount)

	text := strings.Join(pages, "\f")
	if strings.TrimSpace(strings.ReplaceAll(text, "\f", "")) == "" {
		return nil, models.NewPipelineError(models.FailureEmpty,
			fmt.Errorf("no decodable text in %d pages", pageCount))
	}

	e.logger.Debug().
		Int("page_count", pageCount).
		Int("text_length", totalLen).
		Int("warnings", len(warnings)).
		Dur("duration", time.Since(start)).
		Msg("Extracted native text")

	return &models.ExtractedDocument{
		Success:          true,
		Text:             text,
		PageCount:        pageCount,
		Source:           models.SourceNative,
		Classification:   classification,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		UserMessage:      fmt.Sprintf("Extracted text from %d pages.", pageCount),
		Warnings:         warnings,
		Status:           models.StatusComplete,
	}, nil
}

// cleanPageText normalizes whitespace within one page and strips page-break
// sentinel markers and stray form feeds the parser may emit.
func cleanPageText(text string) string {
	text = pageMarkerRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\f", "\n")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRunRe.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
