package errors

import (
	stdErrors "errors"
	"fmt"
)

// UnsupportedQueryError means an adapter does not support the requested
// search type (e.g. a store without ISBN search asked for an ISBN query).
type UnsupportedQueryError struct {
	Store string
	Mode  string
}

func (e *UnsupportedQueryError) Error() string {
	return fmt.Sprintf("%s: %s queries are not supported", e.Store, e.Mode)
}

// NewUnsupportedQueryError creates an UnsupportedQueryError for a store and mode.
func NewUnsupportedQueryError(store, mode string) *UnsupportedQueryError {
	return &UnsupportedQueryError{Store: store, Mode: mode}
}

// IsUnsupportedQueryError reports whether err is an UnsupportedQueryError (even when wrapped).
func IsUnsupportedQueryError(err error) bool {
	var uqErr *UnsupportedQueryError
	return stdErrors.As(err, &uqErr)
}
