package models

// FailureReason is the closed taxonomy of document-level failures. Page and
// chunk level failures are absorbed locally and never carry one of these.
type FailureReason string

const (
	FailureCorrupted    FailureReason = "CORRUPTED"
	FailureEncrypted    FailureReason = "ENCRYPTED"
	FailureTooLarge     FailureReason = "TOO_LARGE"
	FailureTooManyPages FailureReason = "TOO_MANY_PAGES"
	FailureTimeout      FailureReason = "TIMEOUT"
	FailureEmpty        FailureReason = "EMPTY"
	FailureScanned      FailureReason = "SCANNED"
	FailureRenderFailed FailureReason = "RENDER_FAILED"
	FailureOCRFailed    FailureReason = "OCR_FAILED"
)

// userMessages maps each taxonomy value to the human-readable message
// returned to callers. Internal error detail never reaches the caller.
var userMessages = map[FailureReason]string{
	FailureCorrupted:    "This file appears to be damaged or is not a supported document format.",
	FailureEncrypted:    "This document is password-protected. Remove the password and upload it again.",
	FailureTooLarge:     "This file is too large to process. Try splitting it into smaller documents.",
	FailureTooManyPages: "This document has too many pages to process. Try splitting it into smaller documents.",
	FailureTimeout:      "Processing took too long and was stopped. Try a smaller or simpler document.",
	FailureEmpty:        "No readable text was found in this document.",
	FailureScanned:      "This document appears to be scanned. Enable OCR to extract its text.",
	FailureRenderFailed: "The document pages could not be rendered for text recognition.",
	FailureOCRFailed:    "Text recognition did not produce any readable text for this document.",
}

// UserMessage returns the caller-facing message for the reason. Unknown
// reasons fall back to a generic message rather than leaking detail.
func (r FailureReason) UserMessage() string {
	if msg, ok := userMessages[r]; ok {
		return msg
	}
	return "The document could not be processed."
}

// PipelineError is a document-level failure carrying one taxonomy value.
// The wrapped cause is for logs only and is never shown to callers.
type PipelineError struct {
	Reason FailureReason
	cause  error
}

// NewPipelineError wraps cause (may be nil) under a taxonomy reason.
func NewPipelineError(reason FailureReason, cause error) *PipelineError {
	return &PipelineError{Reason: reason, cause: cause}
}

func (e *PipelineError) Error() string {
	if e.cause != nil {
		return string(e.Reason) + ": " + e.cause.Error()
	}
	return string(e.Reason)
}

func (e *PipelineError) Unwrap() error { return e.cause }

// UserMessage returns the caller-facing message for this failure.
func (e *PipelineError) UserMessage() string { return e.Reason.UserMessage() }
