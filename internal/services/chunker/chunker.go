// -----------------------------------------------------------------------
// Chunker - Per-page normalization and bounded-size overlapping splits
// -----------------------------------------------------------------------

package chunker

import (
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/corpus/internal/common"
	"github.com/ternarybob/corpus/internal/models"
)

var (
	tripleNewlineRe = regexp.MustCompile(`\n{3,}`)
	spaceRunRe      = regexp.MustCompile(`[ \t]{2,}`)
)

// Chunker turns page text into bounded, overlapping chunks. Chunks never
// span two pages, chunk indexes are contiguous per page starting at 0, and
// identical input always produces identical boundaries.
type Chunker struct {
	cfg    *common.PipelineConfig
	logger arbor.ILogger
}

// NewChunker creates a chunker with the configured sizes and budget.
func NewChunker(cfg *common.PipelineConfig, logger arbor.ILogger) *Chunker {
	return &Chunker{cfg: cfg, logger: logger}
}

// ChunkDocument chunks every page in order until the per-document budget is
// reached, at which point all later pages are skipped entirely. Pages that
// normalize below the minimum length are skipped silently. When a document
// name is supplied, the very first chunk of the very first page is prefixed
// with a searchable marker.
func (c *Chunker) ChunkDocument(documentID, documentName string, pages []models.PageText) []models.ChunkRecord {
	budget := c.cfg.MaxChunksPerDocument
	records := make([]models.ChunkRecord, 0, 32)

	for _, page := range pages {
		if len(records) >= budget {
			c.logger.Warn().
				Str("document_id", documentID).
				Int("budget", budget).
				Int("page", page.PageNumber).
				Msg("Chunk budget reached, remaining pages skipped")
			break
		}

		normalized := NormalizeText(page.Text)
		if len(normalized) < c.cfg.MinPageChars {
			continue
		}

		pieces := SplitText(normalized, c.cfg.ChunkSize, c.cfg.ChunkOverlap)
		for idx, piece := range pieces {
			if len(records) >= budget {
				break
			}

			content := piece
			if documentName != "" && len(records) == 0 {
				content = "Document: " + documentName + "\n\n" + content
			}

			records = append(records, models.ChunkRecord{
				DocumentID:   documentID,
				DocumentName: documentName,
				Page:         page.PageNumber,
				ChunkIndex:   idx,
				Content:      content,
				Source:       page.Source,
			})
		}
	}

	return records
}

// NormalizeText canonicalizes page text: CRLF to LF, runs of 3+ newlines
// collapsed to a blank line, space/tab runs collapsed, line edges trimmed.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = tripleNewlineRe.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRunRe.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// SplitText splits normalized text into overlapping chunks of at most size
// characters, preferring to cut at a paragraph break, then a line break,
// then a space, before falling back to a hard cut. The tail of each chunk
// seeds the next chunk with up to overlap characters of context. The split
// is a pure function of its input.
func SplitText(text string, size, overlap int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0

	for start < len(text) {
		end := start + size
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}

		cut := boundaryBefore(text, start, end)
		chunks = append(chunks, text[start:cut])

		next := cut - overlap
		if next <= start {
			// Overlap must always advance the window.
			next = cut
		}
		start = next
	}

	return chunks
}

// boundaryBefore finds the best cut position in text[start:limit], searching
// backwards for a paragraph break, then a newline, then a space. A boundary
// in the first half of the window is worse than a hard cut.
func boundaryBefore(text string, start, limit int) int {
	window := text[start:limit]
	half := len(window) / 2

	for _, sep := range []string{"\n\n", "\n", " "} {
		if pos := strings.LastIndex(window, sep); pos > half {
			return start + pos + len(sep)
		}
	}
	return limit
}
