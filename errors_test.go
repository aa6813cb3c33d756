package tavernkit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidInputError_MessageIncludesFieldAndReason(t *testing.T) {
	err := &InvalidInputError{Field: "character.name", Reason: "must not be empty"}
	assert.Contains(t, err.Error(), "character.name")
	assert.Contains(t, err.Error(), "must not be empty")
}

func TestUnsupportedVersionError_MessageIncludesVersion(t *testing.T) {
	err := &UnsupportedVersionError{Version: "v1"}
	assert.Contains(t, err.Error(), `"v1"`)
}

func TestStrictModeViolationError_MessageIncludesReason(t *testing.T) {
	err := &StrictModeViolationError{Reason: "ambiguous greeting index"}
	assert.Contains(t, err.Error(), "ambiguous greeting index")
}

func TestResourceExhaustedError_MessageIncludesResourceAndLimit(t *testing.T) {
	err := &ResourceExhaustedError{Resource: "lore_scan_buffer", Limit: 4096}
	assert.Contains(t, err.Error(), "lore_scan_buffer")
	assert.Contains(t, err.Error(), "4096")
}

func TestSentinelErrors_AreDistinctAndComparableWithErrorsIs(t *testing.T) {
	wrapped := errors.Join(ErrUnknownDialect)
	assert.True(t, errors.Is(wrapped, ErrUnknownDialect))
	assert.False(t, errors.Is(wrapped, ErrUnknownPosition))
	assert.NotEqual(t, ErrMissingCharacter.Error(), ErrMissingUser.Error())
}
