package analysis

import (
	"errors"
	"fmt"
)

// ExtractionError wraps a per-file failure during parsing or extraction.
// One file's ExtractionError never aborts the analysis of other files.
type ExtractionError struct {
	FilePath string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %v", e.FilePath, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// NewExtractionError wraps err as an extraction failure for filePath.
func NewExtractionError(filePath string, err error) *ExtractionError {
	return &ExtractionError{FilePath: filePath, Err: err}
}

// IsExtraction reports whether err is or wraps an ExtractionError.
func IsExtraction(err error) bool {
	var e *ExtractionError
	return errors.As(err, &e)
}

// TagParseWarning records a malformed intent tag. Warnings are carried
// in results, never returned as errors: a bad tag degrades to
// layer=unknown instead of failing the element.
type TagParseWarning struct {
	ElementID string `json:"element_id"`
	Line      string `json:"line"`
	Reason    string `json:"reason"`
}

func (w TagParseWarning) String() string {
	return fmt.Sprintf("intent tag %q: %s", w.Line, w.Reason)
}

// CollaboratorTimeoutError signals that an optional collaborator (AI
// classifier, similarity scorer) did not answer within its deadline.
// Callers fall back to their deterministic path.
type CollaboratorTimeoutError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorTimeoutError) Error() string {
	return fmt.Sprintf("%s collaborator timed out: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorTimeoutError) Unwrap() error { return e.Err }

// IsCollaboratorTimeout reports whether err is or wraps a
// CollaboratorTimeoutError.
func IsCollaboratorTimeout(err error) bool {
	var e *CollaboratorTimeoutError
	return errors.As(err, &e)
}
