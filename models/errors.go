package models

import "errors"

// Sentinel errors used across repositories and handlers. Repositories wrap
// these with context via fmt.Errorf("%w: ...") so handlers can map them to
// HTTP status codes with errors.Is.
var (
	// ErrNotFound signals an unknown bus, route, assignment or tracking row.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput signals a malformed or incomplete request payload.
	ErrInvalidInput = errors.New("invalid input")
)
