package errors

import (
	stdErrors "errors"
	"fmt"
)

// ExtractionError means a store page loaded but no longer matches the
// adapter's extraction rules. This is distinct from "zero results": it
// signals that the upstream site layout changed and the adapter needs
// updating. Not transient, never retried.
type ExtractionError struct {
	Store  string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: extraction mismatch: %s", e.Store, e.Reason)
}

// NewExtractionError creates an ExtractionError for a store with a
// human-readable reason.
func NewExtractionError(store, reason string) *ExtractionError {
	return &ExtractionError{Store: store, Reason: reason}
}

// IsExtractionError reports whether err is an ExtractionError (even when wrapped).
func IsExtractionError(err error) bool {
	var extErr *ExtractionError
	return stdErrors.As(err, &extErr)
}
