package object

import "errors"

// ============================================================================
// Standard Object Store Errors
// ============================================================================

// These errors provide a consistent way to report common failure conditions
// across all object store implementations. The drive layer checks for them
// with errors.Is and classifies everything else as a transport failure.
//
// Implementations wrap them with the offending key:
//
//	return fmt.Errorf("object %s: %w", key, object.ErrObjectNotFound)

var (
	// ErrObjectNotFound indicates the requested key does not exist.
	//
	// Returned by Get, Copy (missing source) and Presign on backends that can
	// check existence cheaply. Delete never returns it: deleting an absent key
	// is a successful no-op.
	ErrObjectNotFound = errors.New("object not found")

	// ErrInvalidKey indicates a key that cannot be stored, such as an empty
	// key or one that escapes the backend root.
	ErrInvalidKey = errors.New("invalid object key")

	// ErrInvalidToken indicates a presigned URL token that is malformed,
	// tampered with or expired.
	ErrInvalidToken = errors.New("invalid or expired object token")

	// ErrUnavailable indicates the backend could not be reached.
	ErrUnavailable = errors.New("object store unavailable")
)
