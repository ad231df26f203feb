package service

import "github.com/odin-book/backend/internal/models"

// PairState is the relationship status of an ordered pair of users. A pair is
// in exactly one state at a time; every transition validates the current state
// before writing anything.
type PairState int

const (
	// StateNone means no relationship or pending request exists.
	StateNone PairState = iota
	// StateOutgoingPending means the first user has an unanswered request to the second.
	StateOutgoingPending
	// StateIncomingPending means the second user has an unanswered request to the first.
	StateIncomingPending
	// StateFriends means the users are confirmed friends.
	StateFriends
)

func (s PairState) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateOutgoingPending:
		return "outgoing_pending"
	case StateIncomingPending:
		return "incoming_pending"
	case StateFriends:
		return "friends"
	}
	return "unknown"
}

// DeriveState returns the relationship state of the ordered pair (user, other)
// as recorded on user's own document. The first-party document is
// authoritative; the reconciler repairs counterpart documents that disagree.
func DeriveState(user, other *models.User) PairState {
	switch {
	case user.HasRelation(models.FieldFriends, other.ID):
		return StateFriends
	case user.HasRelation(models.FieldSentRequests, other.ID):
		return StateOutgoingPending
	case user.HasRelation(models.FieldIncomingRequests, other.ID):
		return StateIncomingPending
	}
	return StateNone
}
