package loader

import (
	"context"
	"errors"
	"fmt"
)

// ErrCanceled closes a sequence the consumer abandoned, either by closing
// it or by canceling its context. It matches context.Canceled under errors.Is.
var ErrCanceled = fmt.Errorf("loader: request canceled: %w", context.Canceled)

// ErrNoResult is the reason reported when a sequence completes without yielding anything.
var ErrNoResult = errors.New("sequence completed without a result")

// ExternalError wraps a failure reported by the provider.
type ExternalError struct {
	Resource ResourceID
	Err      error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("loader: fetch %s: %v", e.Resource, e.Err)
}

// Unwrap returns the provider's error.
func (e *ExternalError) Unwrap() error {
	return e.Err
}

// ContractViolation is raised with panic when a provider breaks the Provider
// contract, for instance by finishing a submission with neither an image nor
// an error. It is a programming error, not a recoverable condition.
type ContractViolation struct {
	Resource ResourceID
	Reason   string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("loader: provider contract violated for %s: %s", e.Resource, e.Reason)
}
