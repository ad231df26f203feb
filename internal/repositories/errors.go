package repositories

import "errors"

var (
	// ErrNotFound indicates the referenced record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidID indicates the supplied id is not a valid ObjectID hex string.
	ErrInvalidID = errors.New("invalid id format")
)
