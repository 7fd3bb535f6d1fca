package errors

import (
	stdErrors "errors"
	"fmt"
)

// ConfigurationError represents caller error: a requested store
// identifier is not registered. Unlike per-store failures it is fatal to
// the whole run and is raised before any retrieval task launches.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// NewConfigurationError creates a ConfigurationError with a formatted message.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err is a ConfigurationError (even when wrapped).
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return stdErrors.As(err, &cfgErr)
}
