package docdb

import "errors"

// Common errors.
var (
	// ErrInvalidArgument is returned when an operation receives malformed input
	// (nil data, nil callback, nil batch).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned by Update when the record does not exist.
	ErrNotFound = errors.New("item not found")
)
