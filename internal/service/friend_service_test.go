package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/odin-book/backend/internal/models"
	"github.com/odin-book/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeUserRepo is an in-memory UserRepository. failPatch, when set, is
// consulted before every PatchRelations call so tests can make the second
// write of a transition fail.
type fakeUserRepo struct {
	mu        sync.Mutex
	users     map[primitive.ObjectID]*models.User
	failPatch func(id primitive.ObjectID) error
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[primitive.ObjectID]*models.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func newTestUser() *models.User {
	return &models.User{
		ID:               primitive.NewObjectID(),
		Friends:          []primitive.ObjectID{},
		SentRequests:     []primitive.ObjectID{},
		IncomingRequests: []primitive.ObjectID{},
	}
}

func copyUser(u *models.User) *models.User {
	clone := *u
	clone.Friends = append([]primitive.ObjectID{}, u.Friends...)
	clone.SentRequests = append([]primitive.ObjectID{}, u.SentRequests...)
	clone.IncomingRequests = append([]primitive.ObjectID{}, u.IncomingRequests...)
	return &clone
}

func (r *fakeUserRepo) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	r.users[user.ID] = copyUser(user)
	return nil
}

func (r *fakeUserRepo) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyUser(user), nil
}

func (r *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return copyUser(user), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeUserRepo) GetUsers(ctx context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.User, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, *copyUser(user))
	}
	return out, nil
}

func (r *fakeUserRepo) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID, limit int64) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.User{}
	for _, id := range ids {
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
		if user, ok := r.users[id]; ok {
			out = append(out, *copyUser(user))
		}
	}
	return out, nil
}

func (r *fakeUserRepo) GetUsersExcluding(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	excluded := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		excluded[id] = true
	}
	out := []models.User{}
	for _, user := range r.users {
		if !excluded[user.ID] {
			out = append(out, *copyUser(user))
		}
	}
	return out, nil
}

func (r *fakeUserRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.users[user.ID] = copyUser(user)
	return nil
}

func (r *fakeUserRepo) UpdateImage(ctx context.Context, id primitive.ObjectID, field models.ImageField, img models.Image) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	switch field {
	case models.FieldProfileImage:
		user.ProfileImg = img
	case models.FieldCoverImage:
		user.CoverImg = img
	}
	return copyUser(user), nil
}

func (r *fakeUserRepo) PatchRelations(ctx context.Context, id primitive.ObjectID, add, remove map[models.RelationField]primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failPatch != nil {
		if err := r.failPatch(id); err != nil {
			return err
		}
	}
	user, ok := r.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	for field, member := range add {
		if !user.HasRelation(field, member) {
			switch field {
			case models.FieldFriends:
				user.Friends = append(user.Friends, member)
			case models.FieldSentRequests:
				user.SentRequests = append(user.SentRequests, member)
			case models.FieldIncomingRequests:
				user.IncomingRequests = append(user.IncomingRequests, member)
			}
		}
	}
	for field, member := range remove {
		filter := func(set []primitive.ObjectID) []primitive.ObjectID {
			out := set[:0]
			for _, m := range set {
				if m != member {
					out = append(out, m)
				}
			}
			return out
		}
		switch field {
		case models.FieldFriends:
			user.Friends = filter(user.Friends)
		case models.FieldSentRequests:
			user.SentRequests = filter(user.SentRequests)
		case models.FieldIncomingRequests:
			user.IncomingRequests = filter(user.IncomingRequests)
		}
	}
	return nil
}

// pairState reads the current state of (a, b) straight from the store.
func pairState(t *testing.T, repo *fakeUserRepo, a, b primitive.ObjectID) PairState {
	t.Helper()
	user, err := repo.GetUserByID(context.Background(), a)
	require.NoError(t, err)
	other, err := repo.GetUserByID(context.Background(), b)
	require.NoError(t, err)
	return DeriveState(user, other)
}

func TestSendRequestCreatesPendingPair(t *testing.T) {
	a, b := newTestUser(), newTestUser()
	repo := newFakeUserRepo(a, b)
	svc := NewFriendService(repo, nil)

	updated, err := svc.SendRequest(context.Background(), a.ID, b.ID)
	require.NoError(t, err)

	assert.True(t, updated.HasRelation(models.FieldSentRequests, b.ID))
	assert.Equal(t, StateOutgoingPending, pairState(t, repo, a.ID, b.ID))
	assert.Equal(t, StateIncomingPending, pairState(t, repo, b.ID, a.ID))
}

func TestSendRequestTwiceFails(t *testing.T) {
	a, b := newTestUser(), newTestUser()
	repo := newFakeUserRepo(a, b)
	svc := NewFriendService(repo, nil)

	_, err := svc.SendRequest(context.Background(), a.ID, b.ID)
	require.NoError(t, err)

	_, err = svc.SendRequest(context.Background(), a.ID, b.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateOutgoingPending, pairState(t, repo, a.ID, b.ID))
}

func TestSendRequestWhileReverseRequestPendingFails(t *testing.T) {
	a, b := newTestUser(), newTestUser()
	repo := newFakeUserRepo(a, b)
	svc := NewFriendService(repo, nil)

	_, err := svc.SendRequest(context.Background(), b.ID, a.ID)
	require.NoError(t, err)

	_, err = svc.SendRequest(context.Background(), a.ID, b.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateIncomingPending, pairState(t, repo, a.ID, b.ID))
}

func TestSendRequestToSelf(t *testing.T) {
	a := newTestUser()
	svc := NewFriendService(newFakeUserRepo(a), nil)

	_, err := svc.SendRequest(context.Background(), a.ID, a.ID)
	assert.ErrorIs(t, err, ErrSelfReference)
}

func TestSendRequestToUnknownUser(t *testing.T) {
	a := newTestUser()
	svc := NewFriendService(newFakeUserRepo(a), nil)

	_, err := svc.SendRequest(context.Background(), a.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestCancelRequestReturnsPairToNone(t *testing.T) {
	a, b := newTestUser(), newTestUser()
	repo := newFakeUserRepo(a, b)
	svc := NewFriendService(repo, nil)

	_, err := svc.SendRequest(context.Background(), a.ID, b.ID)
	require.NoError(t, err)
	_, err = svc.CancelRequest(context.Background(), a.ID, b.ID)
	require.NoError(t, err)

	assert.Equal(t, StateNone, pairState(t, repo, a.ID, b.ID))
	assert.Equal(t, StateNone, pairState(t, repo, b.ID, a.ID))
}

func TestCancelWithoutOutgoingRequestFails(t *testing.T) {
	a, b := newTestUser(), newTestUser()
	svc := NewFriendService(newFakeUserRepo(a, b), nil)

	_, err := svc.CancelRequest(context.Background(), a.ID, b.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAcceptRequestMakesFriendsBothWays(t *testing.T) {
	a, b := newTestUser(), newTestUser()
	repo := newFakeUserRepo(a, b)
	svc := NewFriendService(repo, nil)

	_, err := svc.SendRequest(context.Background(), b.ID, a.ID)
	require.NoError(t, err)
	updated, err := svc.AcceptRequest(context.Background(), a.ID, b.ID)
	require.NoError(t, err)

	assert.True(t, updated.HasRelation(models.FieldFriends, b.ID))
	assert.Empty(t, updated.IncomingRequests)
	assert.Equal(t, StateFriends, pairState(t, repo, a.ID, b.ID))
	assert.Equal(t, StateFriends, pairState(t, repo, b.ID, a.ID))

	storedB, err := repo.GetUserByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Empty(t, storedB.SentRequests)
}

func TestAcceptWithoutIncomingRequestFails(t *testing.T) {
	a, b := newTestUser(), newTestUser()
	repo := newFakeUserRepo(a, b)
	svc := NewFriendService(repo, nil)

	_, err := svc.AcceptRequest(context.Background(), a.ID, b.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateNone, pairState(t, repo, a.ID, b.ID))
}

func TestRejectRequestReturnsPairToNone(t *testing.T) {
	a, b := newTestUser(), newTestUser()
	repo := newFakeUserRepo(a, b)
	svc := NewFriendService(repo, nil)

	_, err := svc.SendRequest(context.Background(), b.ID, a.ID)
	require.NoError(t, err)
	_, err = svc.RejectRequest(context.Background(), a.ID, b.ID)
	require.NoError(t, err)

	assert.Equal(t, StateNone, pairState(t, repo, a.ID, b.ID))
	assert.Equal(t, StateNone, pairState(t, repo, b.ID, a.ID))
}

func TestUnfriendReturnsPairToNone(t *testing.T) {
	a, b := newTestUser(), newTestUser()
	repo := newFakeUserRepo(a, b)
	svc := NewFriendService(repo, nil)

	_, err := svc.SendRequest(context.Background(), a.ID, b.ID)
	require.NoError(t, err)
	_, err = svc.AcceptRequest(context.Background(), b.ID, a.ID)
	require.NoError(t, err)
	_, err = svc.Unfriend(context.Background(), a.ID, b.ID)
	require.NoError(t, err)

	assert.Equal(t, StateNone, pairState(t, repo, a.ID, b.ID))
	assert.Equal(t, StateNone, pairState(t, repo, b.ID, a.ID))
}

func TestUnfriendWhenNotFriendsFails(t *testing.T) {
	a, b := newTestUser(), newTestUser()
	svc := NewFriendService(newFakeUserRepo(a, b), nil)

	_, err := svc.Unfriend(context.Background(), a.ID, b.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSecondWriteFailureReportsPartialUpdate(t *testing.T) {
	a, b := newTestUser(), newTestUser()
	repo := newFakeUserRepo(a, b)
	repo.failPatch = func(id primitive.ObjectID) error {
		if id == b.ID {
			return errors.New("connection reset")
		}
		return nil
	}
	svc := NewFriendService(repo, nil)

	_, err := svc.SendRequest(context.Background(), a.ID, b.ID)

	var partial *PartialUpdateError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "send_request", partial.Op)
	assert.Equal(t, a.ID, partial.Committed)
	assert.Equal(t, b.ID, partial.Pending)

	// The first-party write stays committed; only the counterpart is missing.
	storedA, err := repo.GetUserByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, storedA.HasRelation(models.FieldSentRequests, b.ID))
	storedB, err := repo.GetUserByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Empty(t, storedB.IncomingRequests)
}

func TestFirstWriteFailureLeavesBothUntouched(t *testing.T) {
	a, b := newTestUser(), newTestUser()
	repo := newFakeUserRepo(a, b)
	repo.failPatch = func(id primitive.ObjectID) error {
		if id == a.ID {
			return errors.New("connection reset")
		}
		return nil
	}
	svc := NewFriendService(repo, nil)

	_, err := svc.SendRequest(context.Background(), a.ID, b.ID)
	require.Error(t, err)
	var partial *PartialUpdateError
	assert.False(t, errors.As(err, &partial))
	assert.Equal(t, StateNone, pairState(t, repo, a.ID, b.ID))
}

func TestRelationListings(t *testing.T) {
	a := newTestUser()
	friend, incoming, sent := newTestUser(), newTestUser(), newTestUser()
	a.Friends = []primitive.ObjectID{friend.ID}
	a.SentRequests = []primitive.ObjectID{sent.ID}
	a.IncomingRequests = []primitive.ObjectID{incoming.ID}
	friend.Friends = []primitive.ObjectID{a.ID}
	sent.IncomingRequests = []primitive.ObjectID{a.ID}
	incoming.SentRequests = []primitive.ObjectID{a.ID}
	repo := newFakeUserRepo(a, friend, incoming, sent)
	svc := NewFriendService(repo, nil)

	friends, err := svc.Friends(context.Background(), a.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, friend.ID, friends[0].ID)

	in, err := svc.IncomingRequests(context.Background(), a.ID)
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, incoming.ID, in[0].ID)

	out, err := svc.SentRequests(context.Background(), a.ID)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, sent.ID, out[0].ID)
}

func TestLimitedFriendsCapsListing(t *testing.T) {
	a := newTestUser()
	users := []*models.User{a}
	for i := 0; i < limitedFriendsCount+3; i++ {
		f := newTestUser()
		f.FirstName = fmt.Sprintf("Friend%d", i)
		f.Friends = []primitive.ObjectID{a.ID}
		a.Friends = append(a.Friends, f.ID)
		users = append(users, f)
	}
	svc := NewFriendService(newFakeUserRepo(users...), nil)

	limited, err := svc.LimitedFriends(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Len(t, limited, limitedFriendsCount)

	all, err := svc.Friends(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Len(t, all, limitedFriendsCount+3)
}

func TestNonFriendsExcludesEveryRelationAndSelf(t *testing.T) {
	a := newTestUser()
	friend, incoming, sent, stranger := newTestUser(), newTestUser(), newTestUser(), newTestUser()
	a.Friends = []primitive.ObjectID{friend.ID}
	a.SentRequests = []primitive.ObjectID{sent.ID}
	a.IncomingRequests = []primitive.ObjectID{incoming.ID}
	repo := newFakeUserRepo(a, friend, incoming, sent, stranger)
	svc := NewFriendService(repo, nil)

	suggestions, err := svc.NonFriends(context.Background(), a.ID)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, stranger.ID, suggestions[0].ID)
}

func TestFullLifecycleEndsWhereItStarted(t *testing.T) {
	a, b := newTestUser(), newTestUser()
	repo := newFakeUserRepo(a, b)
	svc := NewFriendService(repo, nil)
	ctx := context.Background()

	_, err := svc.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = svc.AcceptRequest(ctx, b.ID, a.ID)
	require.NoError(t, err)
	_, err = svc.Unfriend(ctx, b.ID, a.ID)
	require.NoError(t, err)

	for _, id := range []primitive.ObjectID{a.ID, b.ID} {
		user, err := repo.GetUserByID(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, user.Friends)
		assert.Empty(t, user.SentRequests)
		assert.Empty(t, user.IncomingRequests)
	}
}
