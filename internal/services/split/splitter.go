// -----------------------------------------------------------------------
// Page Splitter - Reconstructs logical page boundaries from raw text
// -----------------------------------------------------------------------

package split

import (
	"regexp"
	"strings"

	"github.com/ternarybob/corpus/internal/models"
)

// pageMarkerRe matches explicit textual page-break markers such as
// "---Page 4---" or "--- Page 4 ---" on their own line.
var pageMarkerRe = regexp.MustCompile(`(?mi)^\s*-{2,}\s*page\s+\d+\s*-{2,}\s*$`)

// ocrBreakRe treats runs of 3+ newlines in OCR text as inferred page breaks.
var ocrBreakRe = regexp.MustCompile(`\n{3,}`)

// Options tunes boundary reconstruction.
type Options struct {
	// PseudoPageSize is the target size of a synthesized page when no true
	// boundary signal exists.
	PseudoPageSize int

	// MinPageChars drops any page (real or pseudo) whose trimmed text is
	// shorter than this.
	MinPageChars int
}

// Pages reconstructs page boundaries for a text blob, trying strategies in
// priority order: form feeds, textual page markers, OCR newline runs, then
// greedy paragraph packing into pseudo-pages. Pseudo-pages carry a
// synthesized numbering marker so consumers know the pagination is not
// authoritative. Page numbers are contiguous from 1 after short pages drop.
func Pages(text string, source models.TextSource, opts Options) []models.PageText {
	var (
		parts     []string
		numbering = models.NumberingAuthoritative
	)

	switch {
	case strings.Contains(text, "\f"):
		parts = strings.Split(text, "\f")
	case pageMarkerRe.MatchString(text):
		parts = pageMarkerRe.Split(text, -1)
	case source == models.SourceOCR && ocrBreakRe.MatchString(text):
		parts = ocrBreakRe.Split(text, -1)
	default:
		parts = packParagraphs(text, opts.PseudoPageSize)
		numbering = models.NumberingSynthesized
	}

	pages := make([]models.PageText, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if len(trimmed) < opts.MinPageChars {
			continue
		}
		pages = append(pages, models.PageText{
			PageNumber: len(pages) + 1,
			Text:       trimmed,
			Source:     source,
			Numbering:  numbering,
		})
	}
	return pages
}

// packParagraphs greedily packs paragraphs into pseudo-pages of roughly
// targetSize characters. A single oversized paragraph becomes its own page.
func packParagraphs(text string, targetSize int) []string {
	paragraphs := strings.Split(text, "\n\n")

	var (
		pages   []string
		current strings.Builder
	)

	flush := func() {
		if current.Len() > 0 {
			pages = append(pages, current.String())
			current.Reset()
		}
	}

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if current.Len() > 0 && current.Len()+len(para)+2 > targetSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)

		if current.Len() >= targetSize {
			flush()
		}
	}
	flush()

	return pages
}
