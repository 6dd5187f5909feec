package models

// ProgressPhase names a stage of the ingestion pipeline for progress
// reporting. Phases are reported in order; extracting and ocr are mutually
// exclusive within one invocation.
type ProgressPhase string

const (
	PhaseValidating  ProgressPhase = "validating"
	PhaseClassifying ProgressPhase = "classifying"
	PhaseExtracting  ProgressPhase = "extracting"
	PhaseOCR         ProgressPhase = "ocr"
	PhaseChunking    ProgressPhase = "chunking"
	PhaseEmbedding   ProgressPhase = "embedding"
	PhaseStoring     ProgressPhase = "storing"
	PhaseComplete    ProgressPhase = "complete"
)

// Progress is one progress callback payload. Current/Total are page counts
// during extraction and OCR, chunk counts during embedding and storing.
type Progress struct {
	Phase   ProgressPhase `json:"phase"`
	Current int           `json:"current"`
	Total   int           `json:"total"`
}

// ProgressFunc receives phase-transition callbacks. Implementations must be
// fast and must not block; nil is always allowed.
type ProgressFunc func(Progress)

// Report invokes the callback when non-nil.
func (f ProgressFunc) Report(phase ProgressPhase, current, total int) {
	if f != nil {
		f(Progress{Phase: phase, Current: current, Total: total})
	}
}
