package service

import (
	"context"
	"log"

	"github.com/odin-book/backend/internal/media"
	"github.com/odin-book/backend/internal/models"
	"github.com/odin-book/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const postImageFolder = "odin_book_post_images"

// PostService provides post creation/deletion with media hosting, and the
// like toggle.
type PostService struct {
	posts   repositories.PostRepository
	uploads media.Uploader
}

// NewPostService creates a new PostService.
func NewPostService(postRepo repositories.PostRepository, uploads media.Uploader) *PostService {
	return &PostService{posts: postRepo, uploads: uploads}
}

// CreatePost stores a new post. When the request carries an image, it is
// uploaded to the media host first; an upload failure aborts before any
// record write.
func (s *PostService) CreatePost(ctx context.Context, authorID primitive.ObjectID, req models.CreatePostRequest) (*models.Post, error) {
	post := &models.Post{
		AuthorID: authorID,
		Content:  req.Content,
		LikedBy:  []primitive.ObjectID{},
	}

	if req.Image != "" {
		asset, err := s.uploads.Upload(ctx, req.Image, postImageFolder)
		if err != nil {
			return nil, err
		}
		post.Image = models.Image{PublicID: asset.PublicID, URL: asset.URL}
	}

	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// DeletePost removes the post record, then destroys its hosted image
// best-effort: a host failure never resurrects the record.
func (s *PostService) DeletePost(ctx context.Context, id primitive.ObjectID) error {
	post, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.posts.DeletePost(ctx, id); err != nil {
		return err
	}
	if post.Image.PublicID != "" {
		if err := s.uploads.Destroy(context.WithoutCancel(ctx), post.Image.PublicID); err != nil {
			log.Printf("destroy post image %s: %v", post.Image.PublicID, err)
		}
	}
	return nil
}

// ToggleLike flips the user's membership in the post's liked_by set and
// returns the updated post. Calling it twice restores the original state. The
// post is re-fetched immediately before the conditional write to keep the
// race window small.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID primitive.ObjectID) (*models.Post, error) {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.LikedByUser(userID) {
		return s.posts.RemoveLike(ctx, postID, userID)
	}
	return s.posts.AddLike(ctx, postID, userID)
}
