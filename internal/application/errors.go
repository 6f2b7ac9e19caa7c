package application

import "errors"

var (
	// ErrFetch marks a failed list or detail retrieval.
	ErrFetch = errors.New("fetch failed")
	// ErrValidation marks rejected input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidTransition marks a status change the policy forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotFound          = errors.New("application not found")
)
