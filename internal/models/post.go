package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post represents a post document stored in MongoDB. LikedBy holds the ids of
// the users who liked the post; a user id appears at most once.
type Post struct {
	ID        primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	AuthorID  primitive.ObjectID   `json:"author_id" bson:"author_id"`
	Content   string               `json:"content" bson:"content"`
	Image     Image                `json:"image" bson:"image"`
	LikedBy   []primitive.ObjectID `json:"liked_by" bson:"liked_by"`
	CreatedAt time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time            `json:"updated_at" bson:"updated_at"`
}

// LikedByUser reports whether the given user currently likes the post.
func (p *Post) LikedByUser(id primitive.ObjectID) bool {
	for _, member := range p.LikedBy {
		if member == id {
			return true
		}
	}
	return false
}

// CreatePostRequest defines the request body for creating a new post. Image,
// when present, is a data URI or remote URL handed to the media host.
type CreatePostRequest struct {
	Content string `json:"content" validate:"required,min=1,max=3000"`
	Image   string `json:"image,omitempty"`
}
