package analyses

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrSchemaViolation marks a model reply that failed strict validation.
	ErrSchemaViolation = errors.New("schema violation")
)

const (
	ErrorCodeEmptyDocument   = "EMPTY_DOCUMENT"
	ErrorCodeInference       = "INFERENCE_ERROR"
	ErrorCodeSchemaViolation = "SCHEMA_VIOLATION"
	ErrorCodeStorage         = "STORAGE_ERROR"
	ErrorCodeInternal        = "INTERNAL_ERROR"
)

// Pipeline stages recorded on failure.
const (
	StageExtract   = "extract"
	StagePrompt    = "prompt"
	StageInference = "inference"
	StageParse     = "parse"
	StageStore     = "store"
)

// userMessageForCode maps terminal error codes to actionable user-facing
// messages. Technical detail stays in ErrorMessage.
func userMessageForCode(code string) string {
	switch code {
	case ErrorCodeEmptyDocument:
		return "No text could be extracted from this document. Scanned images need OCR before upload."
	case ErrorCodeInference:
		return "The analysis service did not respond. Please try again in a moment."
	case ErrorCodeSchemaViolation:
		return "The analysis came back in an unexpected format. Re-running the analysis usually resolves this."
	case ErrorCodeStorage:
		return "The document could not be read from storage. Please try again."
	default:
		return "The analysis failed unexpectedly. Please try again."
	}
}
