// -----------------------------------------------------------------------
// Classifier - Deterministic document-type labelling from sampled pages
// -----------------------------------------------------------------------

package pdf

import (
	"bytes"
	"context"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/corpus/internal/common"
	"github.com/ternarybob/corpus/internal/interfaces"
	"github.com/ternarybob/corpus/internal/models"
)

// Classifier samples the first pages of a PDF and labels it exactly once.
// The label is a pure function of the sampled statistics; parse warnings are
// collected but never change the outcome.
type Classifier struct {
	cfg    *common.PipelineConfig
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.DocumentClassifier = (*Classifier)(nil)

// NewClassifier creates a classifier with the configured sampling limits.
func NewClassifier(cfg *common.PipelineConfig, logger arbor.ILogger) *Classifier {
	return &Classifier{cfg: cfg, logger: logger}
}

// pageStats carries the sampled statistics the classification rule runs on.
type pageStats struct {
	pageCount       int
	totalTextLength int
	pagesWithText   int
	samplesChecked  int
}

// Classify labels the document. It never returns an error: unreadable inputs
// classify CORRUPTED, password-protected inputs ENCRYPTED, and a sampling
// timeout returns CORRUPTED with zero stats rather than hanging.
func (c *Classifier) Classify(ctx context.Context, content []byte) *models.ClassificationResult {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ClassificationTimeout)
	defer cancel()

	// Structural read via pdfcpu. This is where encryption is decided: a
	// context with an encryption dictionary, or a password error, is
	// ENCRYPTED; any other read failure is CORRUPTED.
	rctx, err := api.ReadContext(bytes.NewReader(content), model.NewDefaultConfiguration())
	if err != nil {
		if isEncryptionError(err) {
			c.logger.Debug().Err(err).Msg("Document is password-protected")
			return terminalClassification(models.ClassificationEncrypted)
		}
		c.logger.Debug().Err(err).Msg("Failed to read PDF structure")
		return terminalClassification(models.ClassificationCorrupted)
	}
	if rctx.Encrypt != nil {
		return terminalClassification(models.ClassificationEncrypted)
	}

	pageCount := rctx.PageCount
	if pageCount == 0 {
		return terminalClassification(models.ClassificationCorrupted)
	}

	stats := pageStats{pageCount: pageCount}
	var warnings []string

	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		// Structure was readable but the renderer cannot open it: sample
		// stats stay at zero and the ladder labels it SCANNED below.
		warnings = append(warnings, "page decoder could not open document: "+err.Error())
	} else {
		defer doc.Close()

		samples := c.cfg.ClassificationPages
		if samples > pageCount {
			samples = pageCount
		}

		for i := 0; i < samples; i++ {
			if ctx.Err() != nil {
				c.logger.Warn().Int("page", i+1).Msg("Classification timed out during page sampling")
				return terminalClassification(models.ClassificationCorrupted)
			}

			stats.samplesChecked++
			text, err := doc.Text(i)
			if err != nil {
				warnings = append(warnings, "page sample failed: "+err.Error())
				continue
			}

			trimmed := strings.TrimSpace(text)
			stats.totalTextLength += len(trimmed)
			if len(trimmed) > c.cfg.NoiseFloor {
				stats.pagesWithText++
			}
		}
	}

	result := classifyStats(stats, c.cfg)
	result.Warnings = warnings

	c.logger.Debug().
		Str("type", string(result.Type)).
		Int("page_count", result.PageCount).
		Int("total_text_length", result.TotalTextLength).
		Int("pages_with_text", result.PagesWithText).
		Float64("text_density", result.TextDensity).
		Msg("Classified document")

	return result
}

// classifyStats applies the fixed-order classification rule. It is a pure
// function of the sampled statistics: identical stats always produce the
// identical label.
func classifyStats(stats pageStats, cfg *common.PipelineConfig) *models.ClassificationResult {
	density := 0.0
	if stats.samplesChecked > 0 {
		density = float64(stats.pagesWithText) / float64(stats.samplesChecked)
	}

	result := &models.ClassificationResult{
		PageCount:       stats.pageCount,
		TotalTextLength: stats.totalTextLength,
		PagesWithText:   stats.pagesWithText,
		SamplesChecked:  stats.samplesChecked,
		TextDensity:     density,
	}

	switch {
	case stats.pageCount == 0:
		result.Type = models.ClassificationCorrupted
	case stats.totalTextLength == 0:
		result.Type = models.ClassificationScanned
	case density < cfg.MixedTextRatio:
		result.Type = models.ClassificationMixed
	case stats.totalTextLength < cfg.MinTextThreshold:
		result.Type = models.ClassificationScanned
	default:
		result.Type = models.ClassificationTextBased
	}

	return result
}

// terminalClassification builds a zero-stat result for terminal labels.
func terminalClassification(t models.Classification) *models.ClassificationResult {
	return &models.ClassificationResult{Type: t}
}

// isEncryptionError reports whether a pdfcpu read error indicates a
// password-protected document rather than structural corruption.
func isEncryptionError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") ||
		strings.Contains(msg, "encrypt") ||
		strings.Contains(msg, "decrypt")
}
