package errors

import (
	stdErrors "errors"
	"fmt"
)

// NetworkError represents a transport failure or an exceeded time budget
// while talking to a store. Network errors are the only transient kind:
// the orchestrator retries them once before recording a failure.
type NetworkError struct {
	Store string
	Err   error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network or timeout: %v", e.Store, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError wraps err as a transient network failure for a store.
func NewNetworkError(store string, err error) *NetworkError {
	return &NetworkError{Store: store, Err: err}
}

// IsNetworkError reports whether err is a NetworkError (even when wrapped).
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return stdErrors.As(err, &netErr)
}
