// -----------------------------------------------------------------------
// HTML Extractor - Text extraction for HTML and plain-text uploads
// -----------------------------------------------------------------------

package html

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/corpus/internal/models"
)

// Extractor converts HTML and plain-text uploads into extraction results so
// they flow through the same split/chunk/embed path as PDF text.
type Extractor struct {
	logger arbor.ILogger
}

// NewExtractor creates an HTML/plain-text extractor.
func NewExtractor(logger arbor.ILogger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract converts the upload to text. HTML goes through main-content
// selection and markdown conversion; plain text and markdown pass through.
func (e *Extractor) Extract(ctx context.Context, raw *models.RawDocument) (*models.ExtractedDocument, error) {
	start := time.Now()

	var (
		text string
		err  error
	)

	switch raw.MimeType {
	case "text/html":
		text, err = e.htmlToText(raw.Content)
		if err != nil {
			return nil, models.NewPipelineError(models.FailureCorrupted, err)
		}
	default:
		text = string(raw.Content)
	}

	if err := ctx.Err(); err != nil {
		return nil, models.NewPipelineError(models.FailureTimeout, err)
	}

	if strings.TrimSpace(text) == "" {
		return nil, models.NewPipelineError(models.FailureEmpty,
			fmt.Errorf("no text content in %s upload", raw.MimeType))
	}

	e.logger.Debug().
		Str("mime_type", raw.MimeType).
		Int("text_length", len(text)).
		Dur("duration", time.Since(start)).
		Msg("Extracted text upload")

	return &models.ExtractedDocument{
		Success: true,
		Text:    text,
		Source:  models.SourceNative,
		Classification: &models.ClassificationResult{
			Type:            models.ClassificationTextBased,
			TotalTextLength: len(text),
		},
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		UserMessage:      "Extracted text content.",
		Status:           models.StatusComplete,
	}, nil
}

// htmlToText strips boilerplate elements and converts the remaining markup
// to markdown, which downstream chunking treats as plain text.
func (e *Extractor) htmlToText(content []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}

	doc.Find("script, style, noscript, iframe, nav, footer").Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}

	inner, err := body.Html()
	if err != nil {
		return "", fmt.Errorf("select body: %w", err)
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(inner)
	if err != nil {
		return "", fmt.Errorf("convert HTML to markdown: %w", err)
	}
	return markdown, nil
}
