package errors

import "errors"

// Request errors are surfaced to the caller as-is and never retried.
var (
	// ErrValidation indicates the caller supplied unusable input, such as a
	// family member without a name or a malformed import payload.
	ErrValidation = errors.New("validation failed")

	// ErrNotAuthorized indicates no acting user identity was supplied.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrNotFound indicates a member or record does not resolve under the
	// acting user's ownership chain.
	ErrNotFound = errors.New("not found")
)

// Archive errors.
var (
	// ErrNotConfigured indicates remote archive storage has no bucket or
	// credentials configured.
	ErrNotConfigured = errors.New("archive storage not configured")
)
