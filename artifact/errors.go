package artifact

import "errors"

var (
	// ErrNotFound is returned when an artifact for the given session / id pair
	// does not exist in the underlying store.
	ErrNotFound = errors.New("artifact not found")

	// ErrInvalidID is returned for empty artifact ids or ids containing a path
	// separator.
	ErrInvalidID = errors.New("invalid artifact id")
)
