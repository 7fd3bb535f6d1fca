package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNetworkError(t *testing.T) {
	cause := stdErrors.New("net::ERR_CONNECTION_RESET")
	err := NewNetworkError("Blackwells", cause)

	assert.True(t, IsNetworkError(err))
	assert.True(t, IsNetworkError(fmt.Errorf("search: %w", err)))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "Blackwells")

	assert.False(t, IsNetworkError(stdErrors.New("plain")))
	assert.False(t, IsNetworkError(nil))
}

func TestExtractionError(t *testing.T) {
	err := NewExtractionError("Kennys", "no product links parsed")

	assert.True(t, IsExtractionError(err))
	assert.True(t, IsExtractionError(fmt.Errorf("details: %w", err)))
	assert.Contains(t, err.Error(), "no product links parsed")
	assert.False(t, IsNetworkError(err), "extraction mismatch is not transient")
}

func TestUnsupportedQueryError(t *testing.T) {
	err := NewUnsupportedQueryError("Wordery", "isbn")

	assert.True(t, IsUnsupportedQueryError(err))
	assert.Contains(t, err.Error(), "isbn")
	assert.False(t, IsExtractionError(err))
}

func TestConfigurationError(t *testing.T) {
	err := NewConfigurationError("unknown store %q", "amazon")

	assert.True(t, IsConfigurationError(err))
	assert.Equal(t, `unknown store "amazon"`, err.Error())
	assert.False(t, IsConfigurationError(stdErrors.New("other")))
}
