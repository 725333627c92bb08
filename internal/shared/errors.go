package shared

import "errors"

var (
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates caller-supplied fields failed basic constraints.
	ErrValidation = errors.New("validation failed")
)
