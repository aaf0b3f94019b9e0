package metadata

import "errors"

// ============================================================================
// Metadata Store Errors
// ============================================================================

var (
	// ErrRecordNotFound is returned when a file or folder record does not exist.
	ErrRecordNotFound = errors.New("record not found")

	// ErrInvalidRecord is returned when a record misses required fields.
	ErrInvalidRecord = errors.New("invalid record")
)
