package store

import "errors"

var (
	// ErrCorruptedRevealDB For some reason, db on disk representation have changed
	ErrCorruptedRevealDB = errors.New("reveal db is corrupted")

	// ErrRevealNotFound no reveal was recorded for the given request
	ErrRevealNotFound = errors.New("reveal not found")

	// ErrInvalidRevealRecord the stored value cannot be decoded
	ErrInvalidRevealRecord = errors.New("invalid reveal record")
)
