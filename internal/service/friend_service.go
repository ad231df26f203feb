package service

import (
	"context"
	"fmt"

	"github.com/odin-book/backend/internal/models"
	"github.com/odin-book/backend/internal/repositories"
	"github.com/odin-book/backend/pkg/cache"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// limitedFriendsCount caps the profile-sidebar friends listing.
const limitedFriendsCount = 9

// Transition is the shape shared by the five state-machine operations.
type Transition func(ctx context.Context, userID, friendID primitive.ObjectID) (*models.User, error)

// RelationQuery is the shape shared by the relationship listings.
type RelationQuery func(ctx context.Context, userID primitive.ObjectID) ([]models.User, error)

// FriendService owns the friend-request state machine. Every transition
// touches two user documents without a shared transaction: the first-party
// write commits first, then the second-party write. A failed second write is
// reported as *PartialUpdateError so the caller can schedule reconciliation.
type FriendService struct {
	users       repositories.UserRepository
	suggestions *cache.Cache
}

// NewFriendService creates a new FriendService. The cache may be nil.
func NewFriendService(userRepo repositories.UserRepository, suggestions *cache.Cache) *FriendService {
	return &FriendService{users: userRepo, suggestions: suggestions}
}

// SendRequest transitions (user, friend) from none to outgoing-pending.
func (s *FriendService) SendRequest(ctx context.Context, userID, friendID primitive.ObjectID) (*models.User, error) {
	user, friend, err := s.fetchPair(ctx, userID, friendID)
	if err != nil {
		return nil, err
	}
	if state := DeriveState(user, friend); state != StateNone {
		return nil, fmt.Errorf("%w: cannot send request while %s", ErrInvalidTransition, state)
	}

	add := map[models.RelationField]primitive.ObjectID{models.FieldSentRequests: friendID}
	if err := s.users.PatchRelations(ctx, userID, add, nil); err != nil {
		return nil, err
	}
	add = map[models.RelationField]primitive.ObjectID{models.FieldIncomingRequests: userID}
	if err := s.secondPartyPatch(ctx, friendID, add, nil); err != nil {
		return nil, &PartialUpdateError{Op: "send_request", Committed: userID, Pending: friendID, Err: err}
	}

	s.invalidateSuggestions(ctx, userID, friendID)
	return s.users.GetUserByID(ctx, userID)
}

// CancelRequest withdraws a previously sent request, returning the pair to none.
func (s *FriendService) CancelRequest(ctx context.Context, userID, friendID primitive.ObjectID) (*models.User, error) {
	user, friend, err := s.fetchPair(ctx, userID, friendID)
	if err != nil {
		return nil, err
	}
	if state := DeriveState(user, friend); state != StateOutgoingPending {
		return nil, fmt.Errorf("%w: no outgoing request to cancel (state %s)", ErrInvalidTransition, state)
	}

	remove := map[models.RelationField]primitive.ObjectID{models.FieldSentRequests: friendID}
	if err := s.users.PatchRelations(ctx, userID, nil, remove); err != nil {
		return nil, err
	}
	remove = map[models.RelationField]primitive.ObjectID{models.FieldIncomingRequests: userID}
	if err := s.secondPartyPatch(ctx, friendID, nil, remove); err != nil {
		return nil, &PartialUpdateError{Op: "cancel_request", Committed: userID, Pending: friendID, Err: err}
	}

	s.invalidateSuggestions(ctx, userID, friendID)
	return s.users.GetUserByID(ctx, userID)
}

// AcceptRequest confirms an incoming request from friend, making the pair friends.
func (s *FriendService) AcceptRequest(ctx context.Context, userID, friendID primitive.ObjectID) (*models.User, error) {
	user, friend, err := s.fetchPair(ctx, userID, friendID)
	if err != nil {
		return nil, err
	}
	if state := DeriveState(user, friend); state != StateIncomingPending {
		return nil, fmt.Errorf("%w: no incoming request to accept (state %s)", ErrInvalidTransition, state)
	}

	add := map[models.RelationField]primitive.ObjectID{models.FieldFriends: friendID}
	remove := map[models.RelationField]primitive.ObjectID{models.FieldIncomingRequests: friendID}
	if err := s.users.PatchRelations(ctx, userID, add, remove); err != nil {
		return nil, err
	}
	add = map[models.RelationField]primitive.ObjectID{models.FieldFriends: userID}
	remove = map[models.RelationField]primitive.ObjectID{models.FieldSentRequests: userID}
	if err := s.secondPartyPatch(ctx, friendID, add, remove); err != nil {
		return nil, &PartialUpdateError{Op: "accept_request", Committed: userID, Pending: friendID, Err: err}
	}

	s.invalidateSuggestions(ctx, userID, friendID)
	return s.users.GetUserByID(ctx, userID)
}

// RejectRequest declines an incoming request from friend, returning the pair to none.
func (s *FriendService) RejectRequest(ctx context.Context, userID, friendID primitive.ObjectID) (*models.User, error) {
	user, friend, err := s.fetchPair(ctx, userID, friendID)
	if err != nil {
		return nil, err
	}
	if state := DeriveState(user, friend); state != StateIncomingPending {
		return nil, fmt.Errorf("%w: no incoming request to reject (state %s)", ErrInvalidTransition, state)
	}

	remove := map[models.RelationField]primitive.ObjectID{models.FieldIncomingRequests: friendID}
	if err := s.users.PatchRelations(ctx, userID, nil, remove); err != nil {
		return nil, err
	}
	remove = map[models.RelationField]primitive.ObjectID{models.FieldSentRequests: userID}
	if err := s.secondPartyPatch(ctx, friendID, nil, remove); err != nil {
		return nil, &PartialUpdateError{Op: "reject_request", Committed: userID, Pending: friendID, Err: err}
	}

	s.invalidateSuggestions(ctx, userID, friendID)
	return s.users.GetUserByID(ctx, userID)
}

// Unfriend removes an existing friendship, returning the pair to none.
func (s *FriendService) Unfriend(ctx context.Context, userID, friendID primitive.ObjectID) (*models.User, error) {
	user, friend, err := s.fetchPair(ctx, userID, friendID)
	if err != nil {
		return nil, err
	}
	if state := DeriveState(user, friend); state != StateFriends {
		return nil, fmt.Errorf("%w: users are not friends (state %s)", ErrInvalidTransition, state)
	}

	remove := map[models.RelationField]primitive.ObjectID{models.FieldFriends: friendID}
	if err := s.users.PatchRelations(ctx, userID, nil, remove); err != nil {
		return nil, err
	}
	remove = map[models.RelationField]primitive.ObjectID{models.FieldFriends: userID}
	if err := s.secondPartyPatch(ctx, friendID, nil, remove); err != nil {
		return nil, &PartialUpdateError{Op: "unfriend", Committed: userID, Pending: friendID, Err: err}
	}

	s.invalidateSuggestions(ctx, userID, friendID)
	return s.users.GetUserByID(ctx, userID)
}

// Friends returns the user's confirmed friends.
func (s *FriendService) Friends(ctx context.Context, userID primitive.ObjectID) ([]models.User, error) {
	return s.relationListing(ctx, userID, models.FieldFriends, 0)
}

// LimitedFriends returns the first few friends for the profile sidebar.
func (s *FriendService) LimitedFriends(ctx context.Context, userID primitive.ObjectID) ([]models.User, error) {
	return s.relationListing(ctx, userID, models.FieldFriends, limitedFriendsCount)
}

// IncomingRequests returns the users with a pending request to the user.
func (s *FriendService) IncomingRequests(ctx context.Context, userID primitive.ObjectID) ([]models.User, error) {
	return s.relationListing(ctx, userID, models.FieldIncomingRequests, 0)
}

// SentRequests returns the users the user has a pending request to.
func (s *FriendService) SentRequests(ctx context.Context, userID primitive.ObjectID) ([]models.User, error) {
	return s.relationListing(ctx, userID, models.FieldSentRequests, 0)
}

// NonFriends returns every user with no relationship to the user: not the user
// themselves, not a friend, and not on either pending list. Results are served
// from the suggestions cache when possible.
func (s *FriendService) NonFriends(ctx context.Context, userID primitive.ObjectID) ([]models.User, error) {
	key := suggestionsKey(userID)
	var cached []models.User
	if s.suggestions.Get(ctx, key, &cached) {
		return cached, nil
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	excluded := make([]primitive.ObjectID, 0, len(user.Friends)+len(user.SentRequests)+len(user.IncomingRequests)+1)
	excluded = append(excluded, user.ID)
	excluded = append(excluded, user.Friends...)
	excluded = append(excluded, user.SentRequests...)
	excluded = append(excluded, user.IncomingRequests...)

	users, err := s.users.GetUsersExcluding(ctx, excluded)
	if err != nil {
		return nil, err
	}
	s.suggestions.Set(ctx, key, users)
	return users, nil
}

// fetchPair re-fetches both user documents immediately before the transition
// so the precondition check runs against current state, not state read at the
// start of request handling.
func (s *FriendService) fetchPair(ctx context.Context, userID, friendID primitive.ObjectID) (*models.User, *models.User, error) {
	if userID == friendID {
		return nil, nil, ErrSelfReference
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	friend, err := s.users.GetUserByID(ctx, friendID)
	if err != nil {
		return nil, nil, err
	}
	return user, friend, nil
}

// secondPartyPatch applies the counterpart's half of a transition. It runs
// detached from the caller's cancellation: once the first-party write has
// committed, a timeout must not strand one-sided state by skipping this write.
func (s *FriendService) secondPartyPatch(ctx context.Context, id primitive.ObjectID, add, remove map[models.RelationField]primitive.ObjectID) error {
	return s.users.PatchRelations(context.WithoutCancel(ctx), id, add, remove)
}

func (s *FriendService) relationListing(ctx context.Context, userID primitive.ObjectID, field models.RelationField, limit int64) ([]models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.users.GetUsersByIDs(ctx, user.RelationSet(field), limit)
}

func (s *FriendService) invalidateSuggestions(ctx context.Context, ids ...primitive.ObjectID) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = suggestionsKey(id)
	}
	s.suggestions.Delete(context.WithoutCancel(ctx), keys...)
}

func suggestionsKey(id primitive.ObjectID) string {
	return "suggestions:" + id.Hex()
}
