// Package validation provides common validation utilities for configuration
// parameters and load requests across the imgflow library.
//
// Every helper returns a *errors.ValidationError, so callers can test for
// errors.ErrInvalidConfiguration with errors.Is regardless of which check failed.
package validation
