package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/odin-book/backend/internal/media"
	"github.com/odin-book/backend/internal/models"
	"github.com/odin-book/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakePostRepo struct {
	mu    sync.Mutex
	posts map[primitive.ObjectID]*models.Post
}

func newFakePostRepo(posts ...*models.Post) *fakePostRepo {
	repo := &fakePostRepo{posts: make(map[primitive.ObjectID]*models.Post)}
	for _, p := range posts {
		repo.posts[p.ID] = p
	}
	return repo
}

func copyPost(p *models.Post) *models.Post {
	clone := *p
	clone.LikedBy = append([]primitive.ObjectID{}, p.LikedBy...)
	return &clone
}

func (r *fakePostRepo) CreatePost(ctx context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	post.ID = primitive.NewObjectID()
	if post.LikedBy == nil {
		post.LikedBy = []primitive.ObjectID{}
	}
	r.posts[post.ID] = copyPost(post)
	return nil
}

func (r *fakePostRepo) GetPostByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyPost(post), nil
}

func (r *fakePostRepo) GetPosts(ctx context.Context, skip, limit int64) ([]models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Post{}
	for _, post := range r.posts {
		out = append(out, *copyPost(post))
	}
	return out, nil
}

func (r *fakePostRepo) GetPostsByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Post{}
	for _, post := range r.posts {
		if post.AuthorID == authorID {
			out = append(out, *copyPost(post))
		}
	}
	return out, nil
}

func (r *fakePostRepo) DeletePost(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *fakePostRepo) AddLike(ctx context.Context, postID, userID primitive.ObjectID) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[postID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if !post.LikedByUser(userID) {
		post.LikedBy = append(post.LikedBy, userID)
	}
	return copyPost(post), nil
}

func (r *fakePostRepo) RemoveLike(ctx context.Context, postID, userID primitive.ObjectID) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[postID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	kept := post.LikedBy[:0]
	for _, id := range post.LikedBy {
		if id != userID {
			kept = append(kept, id)
		}
	}
	post.LikedBy = kept
	return copyPost(post), nil
}

// fakeUploader records uploads and destroys; uploadErr makes Upload fail.
type fakeUploader struct {
	uploadErr error
	uploads   []string
	destroyed []string
}

func (u *fakeUploader) Upload(ctx context.Context, source, folder string) (media.Asset, error) {
	if u.uploadErr != nil {
		return media.Asset{}, u.uploadErr
	}
	u.uploads = append(u.uploads, folder)
	return media.Asset{PublicID: "asset-" + source, URL: "https://cdn.example/" + source}, nil
}

func (u *fakeUploader) Destroy(ctx context.Context, publicID string) error {
	u.destroyed = append(u.destroyed, publicID)
	return nil
}

func newTestPost(author primitive.ObjectID) *models.Post {
	return &models.Post{
		ID:       primitive.NewObjectID(),
		AuthorID: author,
		Content:  "hello",
		LikedBy:  []primitive.ObjectID{},
	}
}

func TestToggleLikeIsInvolutive(t *testing.T) {
	author, liker := primitive.NewObjectID(), primitive.NewObjectID()
	post := newTestPost(author)
	repo := newFakePostRepo(post)
	svc := NewPostService(repo, &fakeUploader{})

	liked, err := svc.ToggleLike(context.Background(), post.ID, liker)
	require.NoError(t, err)
	assert.True(t, liked.LikedByUser(liker))
	assert.Len(t, liked.LikedBy, 1)

	unliked, err := svc.ToggleLike(context.Background(), post.ID, liker)
	require.NoError(t, err)
	assert.False(t, unliked.LikedByUser(liker))
	assert.Empty(t, unliked.LikedBy)
}

func TestToggleLikeKeepsOtherLikes(t *testing.T) {
	author, first, second := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	post := newTestPost(author)
	post.LikedBy = []primitive.ObjectID{first}
	repo := newFakePostRepo(post)
	svc := NewPostService(repo, &fakeUploader{})

	updated, err := svc.ToggleLike(context.Background(), post.ID, second)
	require.NoError(t, err)
	assert.True(t, updated.LikedByUser(first))
	assert.True(t, updated.LikedByUser(second))

	updated, err = svc.ToggleLike(context.Background(), post.ID, second)
	require.NoError(t, err)
	assert.True(t, updated.LikedByUser(first))
	assert.False(t, updated.LikedByUser(second))
}

func TestToggleLikeUnknownPost(t *testing.T) {
	svc := NewPostService(newFakePostRepo(), &fakeUploader{})

	_, err := svc.ToggleLike(context.Background(), primitive.NewObjectID(), primitive.NewObjectID())
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestCreatePostUploadsImageFirst(t *testing.T) {
	repo := newFakePostRepo()
	uploads := &fakeUploader{}
	svc := NewPostService(repo, uploads)

	post, err := svc.CreatePost(context.Background(), primitive.NewObjectID(), models.CreatePostRequest{
		Content: "look at this",
		Image:   "img.png",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{postImageFolder}, uploads.uploads)
	assert.Equal(t, "asset-img.png", post.Image.PublicID)
	assert.NotEmpty(t, post.Image.URL)
}

func TestCreatePostUploadFailureWritesNothing(t *testing.T) {
	repo := newFakePostRepo()
	uploads := &fakeUploader{uploadErr: media.ErrUploadFailed}
	svc := NewPostService(repo, uploads)

	_, err := svc.CreatePost(context.Background(), primitive.NewObjectID(), models.CreatePostRequest{
		Content: "look at this",
		Image:   "img.png",
	})
	assert.ErrorIs(t, err, media.ErrUploadFailed)
	assert.Empty(t, repo.posts)
}

func TestCreatePostWithoutImageSkipsUpload(t *testing.T) {
	repo := newFakePostRepo()
	uploads := &fakeUploader{uploadErr: errors.New("should not be called")}
	svc := NewPostService(repo, uploads)

	post, err := svc.CreatePost(context.Background(), primitive.NewObjectID(), models.CreatePostRequest{Content: "text only"})
	require.NoError(t, err)
	assert.Empty(t, post.Image.PublicID)
	assert.Len(t, repo.posts, 1)
}

func TestDeletePostDestroysHostedImage(t *testing.T) {
	post := newTestPost(primitive.NewObjectID())
	post.Image = models.Image{PublicID: "pid-1", URL: "https://cdn.example/pid-1"}
	repo := newFakePostRepo(post)
	uploads := &fakeUploader{}
	svc := NewPostService(repo, uploads)

	require.NoError(t, svc.DeletePost(context.Background(), post.ID))
	assert.Empty(t, repo.posts)
	assert.Equal(t, []string{"pid-1"}, uploads.destroyed)
}

func TestDeletePostWithoutImage(t *testing.T) {
	post := newTestPost(primitive.NewObjectID())
	repo := newFakePostRepo(post)
	uploads := &fakeUploader{}
	svc := NewPostService(repo, uploads)

	require.NoError(t, svc.DeletePost(context.Background(), post.ID))
	assert.Empty(t, uploads.destroyed)
}
