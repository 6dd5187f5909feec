// -----------------------------------------------------------------------
// Guardrail Validator - Cheap structural and size checks before parsing
// -----------------------------------------------------------------------

package pdf

import (
	"bytes"
	"fmt"

	"github.com/ternarybob/corpus/internal/interfaces"
	"github.com/ternarybob/corpus/internal/models"
)

// pdfMagic is the signature every well-formed PDF starts with.
var pdfMagic = []byte("%PDF-")

// Validator rejects oversized and structurally impossible uploads before any
// parser touches them. Pure and stateless; no I/O beyond the buffer.
type Validator struct {
	maxSizeBytes int64
}

// Compile-time interface assertion
var _ interfaces.GuardrailValidator = (*Validator)(nil)

// NewValidator creates a guardrail validator with the given size limit.
func NewValidator(maxSizeBytes int64) *Validator {
	return &Validator{maxSizeBytes: maxSizeBytes}
}

// Validate checks, in order: size over the limit, then the file-format magic
// signature for the declared mime type. It returns a *models.PipelineError
// with TOO_LARGE or CORRUPTED, or nil when the buffer passes.
func (v *Validator) Validate(raw *models.RawDocument) error {
	if int64(len(raw.Content)) > v.maxSizeBytes {
		return models.NewPipelineError(models.FailureTooLarge,
			fmt.Errorf("size %d exceeds limit %d", len(raw.Content), v.maxSizeBytes))
	}

	if len(raw.Content) == 0 {
		return models.NewPipelineError(models.FailureEmpty, fmt.Errorf("empty buffer"))
	}

	switch raw.MimeType {
	case "text/html", "text/plain", "text/markdown":
		// Text uploads have no magic signature; reject buffers that are
		// clearly binary (NUL in the leading window).
		window := raw.Content
		if len(window) > 512 {
			window = window[:512]
		}
		if bytes.IndexByte(window, 0x00) >= 0 {
			return models.NewPipelineError(models.FailureCorrupted,
				fmt.Errorf("binary content declared as %s", raw.MimeType))
		}
		return nil
	default:
		// Principally PDF; everything else must carry the PDF signature too.
		if !bytes.HasPrefix(raw.Content, pdfMagic) {
			return models.NewPipelineError(models.FailureCorrupted,
				fmt.Errorf("missing %q signature", pdfMagic))
		}
		return nil
	}
}
