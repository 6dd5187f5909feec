package models

// Classification labels a document's text-extractability. It is decided
// exactly once per ingestion from a bounded sample of pages and never
// re-evaluated.
type Classification string

const (
	ClassificationTextBased Classification = "TEXT_BASED"
	ClassificationScanned   Classification = "SCANNED"
	ClassificationMixed     Classification = "MIXED"
	ClassificationEncrypted Classification = "ENCRYPTED"
	ClassificationCorrupted Classification = "CORRUPTED"
)

// TextSource records how a document's text was produced.
type TextSource string

const (
	SourceNative TextSource = "native"
	SourceOCR    TextSource = "ocr"
	SourceHybrid TextSource = "hybrid"
)

// ExtractionStatus is the terminal state of the extraction phase.
type ExtractionStatus string

const (
	StatusComplete    ExtractionStatus = "COMPLETE"
	StatusPartial     ExtractionStatus = "PARTIAL"
	StatusRequiresOCR ExtractionStatus = "REQUIRES_OCR"
)

// PageNumbering marks whether page numbers were recovered from a real
// boundary signal or synthesized by size-based grouping.
type PageNumbering string

const (
	NumberingAuthoritative PageNumbering = "authoritative"
	NumberingSynthesized   PageNumbering = "synthesized"
)

// RawDocument is the ephemeral input to one pipeline invocation. It is owned
// by that invocation and never persisted.
type RawDocument struct {
	Content  []byte
	MimeType string
	Filename string
}

// ClassificationResult holds the sampled-page statistics and the resulting
// label. Immutable once produced.
type ClassificationResult struct {
	Type            Classification `json:"type"`
	PageCount       int            `json:"page_count"`
	TotalTextLength int            `json:"total_text_length"`
	PagesWithText   int            `json:"pages_with_text"`
	SamplesChecked  int            `json:"samples_checked"`
	TextDensity     float64        `json:"text_density"`
	Warnings        []string       `json:"warnings,omitempty"`
}

// PageText is one logical page of extracted text. PageNumber starts at 1 and
// is strictly increasing without gaps within a document.
type PageText struct {
	PageNumber int           `json:"page_number"`
	Text       string        `json:"text"`
	Source     TextSource    `json:"source"`
	Numbering  PageNumbering `json:"numbering"`
}

// OCREstimate describes the expected cost of running OCR on a document,
// returned instead of doing the work when OCR is not enabled.
type OCREstimate struct {
	PageCount            int    `json:"page_count"`
	EstimatedTimeSeconds int    `json:"estimated_time_seconds"`
	CanRunSync           bool   `json:"can_run_sync"`
	Warning              string `json:"warning"`
}

// ExtractedDocument is the terminal result of the extraction phase.
type ExtractedDocument struct {
	Success          bool                  `json:"success"`
	Text             string                `json:"text,omitempty"`
	PageCount        int                   `json:"page_count"`
	Source           TextSource            `json:"source"`
	Classification   *ClassificationResult `json:"classification,omitempty"`
	ProcessingTimeMs int64                 `json:"processing_time_ms"`
	UserMessage      string                `json:"user_message"`
	Warnings         []string              `json:"warnings,omitempty"`
	FailureReason    FailureReason         `json:"failure_reason,omitempty"`
	RequiresOCR      bool                  `json:"requires_ocr,omitempty"`
	OCREstimate      *OCREstimate          `json:"ocr_estimate,omitempty"`
	Status           ExtractionStatus      `json:"status"`
}

// OCRResult is the outcome of an OCR run. Success means at least one page
// produced text; PagesProcessed counts pages attempted before any early stop.
type OCRResult struct {
	Success        bool          `json:"success"`
	Text           string        `json:"text,omitempty"`
	PageCount      int           `json:"page_count"`
	PagesProcessed int           `json:"pages_processed"`
	PagesWithText  int           `json:"pages_with_text"`
	FailureReason  FailureReason `json:"failure_reason,omitempty"`
	Warnings       []string      `json:"warnings,omitempty"`
}
