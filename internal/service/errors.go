package service

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrInvalidTransition indicates the requested operation is not legal from
	// the pair's current relationship state. Retried or duplicate requests fail
	// loudly with this error instead of silently succeeding.
	ErrInvalidTransition = errors.New("invalid relationship transition")
	// ErrSelfReference indicates a user tried to hold a relationship with themselves.
	ErrSelfReference = errors.New("cannot hold a relationship with yourself")
)

// PartialUpdateError reports that the first-party write of a two-record
// relationship transition committed but the second-party write failed, leaving
// the pair in a transient asymmetric state. It must reach a caller that can
// schedule a reconciliation sweep; it is never swallowed or retried in-call.
type PartialUpdateError struct {
	Op        string
	Committed primitive.ObjectID
	Pending   primitive.ObjectID
	Err       error
}

func (e *PartialUpdateError) Error() string {
	return fmt.Sprintf("partial %s: wrote %s but not %s: %v", e.Op, e.Committed.Hex(), e.Pending.Hex(), e.Err)
}

func (e *PartialUpdateError) Unwrap() error {
	return e.Err
}
