package tavernkit

import "fmt"

// Sentinel errors for common invalid-input cases (comparable with errors.Is).
var (
	ErrMissingCharacter = fmt.Errorf("tavernkit: character is required")
	ErrMissingUser      = fmt.Errorf("tavernkit: user is required")
	ErrUnknownDialect   = fmt.Errorf("tavernkit: unknown dialect")
	ErrUnknownPosition  = fmt.Errorf("tavernkit: unknown position")
)

// InvalidInputError reports a missing/malformed input field (§7 InvalidInput).
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("tavernkit: invalid input %q: %s", e.Field, e.Reason)
}

// UnsupportedVersionError reports a character card below CCv2 (§6, §7).
type UnsupportedVersionError struct {
	Version string
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("tavernkit: unsupported character card version %q (need CCv2 or CCv3)", e.Version)
}

// StrictModeViolationError reports an ambiguity the build refused to guess
// through because BuildOptions.Strict was set (§7).
type StrictModeViolationError struct {
	Reason string
}

func (e *StrictModeViolationError) Error() string {
	return fmt.Sprintf("tavernkit: strict mode violation: %s", e.Reason)
}

// ResourceExhaustedError reports a bounded-recovery condition (e.g. the lore
// scan buffer exceeding its byte cap): the build continues with a warning,
// but callers that want to fail hard on it can check for this type (§7).
type ResourceExhaustedError struct {
	Resource string
	Limit    int
}

func (e *ResourceExhaustedError) Error() string {
	return fmt.Sprintf("tavernkit: resource exhausted: %s (limit %d)", e.Resource, e.Limit)
}
