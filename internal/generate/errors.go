package generate

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrNoCredentials means the credential pool has no configured slots.
	// Raised before any charge or provider call.
	ErrNoCredentials = errors.New("generate: no provider credentials configured")

	// ErrQuotaExhausted is the terminal state after the rotation budget is
	// spent on quota-class failures.
	ErrQuotaExhausted = errors.New("generate: provider quota exhausted after credential rotation")

	// ErrRateLimited marks a quota-class provider failure (HTTP 429,
	// RESOURCE_EXHAUSTED).
	ErrRateLimited = errors.New("generate: provider rate limited")

	// ErrCredentialInvalid marks a quota-class credential failure (the
	// provider no longer recognizes the key).
	ErrCredentialInvalid = errors.New("generate: provider credential rejected")
)

// FatalError wraps any non-quota provider failure. Fatal failures are never
// retried and never trigger credential rotation.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("generate: fatal provider error: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsQuotaClass reports whether an error should trigger credential rotation
// instead of terminating the flow.
func IsQuotaClass(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrCredentialInvalid)
}
