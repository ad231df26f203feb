package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RelationField names one of the set-valued relationship fields on the user document.
type RelationField string

const (
	FieldFriends          RelationField = "friends"
	FieldSentRequests     RelationField = "sent_requests"
	FieldIncomingRequests RelationField = "incoming_requests"
)

// ImageField names one of the hosted-image fields on the user document.
type ImageField string

const (
	FieldProfileImage ImageField = "profile_img"
	FieldCoverImage   ImageField = "cover_img"
)

// Image references an asset stored on the media host.
type Image struct {
	PublicID string `json:"public_id" bson:"public_id"`
	URL      string `json:"url" bson:"url"`
}

// User represents a user document stored in MongoDB. The three relationship
// sets carry the full friend-pair state; a pair of users is in exactly one of
// no-relation, pending or friends at any time.
type User struct {
	ID               primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	FirstName        string               `json:"first_name" bson:"first_name"`
	LastName         string               `json:"last_name" bson:"last_name"`
	Email            string               `json:"email" bson:"email"`
	Password         string               `json:"-" bson:"password"` // Store hashed password, ignore for JSON serialization
	Occupation       string               `json:"occupation,omitempty" bson:"occupation,omitempty"`
	Education        string               `json:"education,omitempty" bson:"education,omitempty"`
	Location         string               `json:"location,omitempty" bson:"location,omitempty"`
	ProfileImg       Image                `json:"profile_img" bson:"profile_img"`
	CoverImg         Image                `json:"cover_img" bson:"cover_img"`
	Friends          []primitive.ObjectID `json:"friends" bson:"friends"`
	SentRequests     []primitive.ObjectID `json:"sent_requests" bson:"sent_requests"`
	IncomingRequests []primitive.ObjectID `json:"incoming_requests" bson:"incoming_requests"`
	CreatedAt        time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at" bson:"updated_at"`
}

// RelationSet returns the relationship set named by field.
func (u *User) RelationSet(field RelationField) []primitive.ObjectID {
	switch field {
	case FieldFriends:
		return u.Friends
	case FieldSentRequests:
		return u.SentRequests
	case FieldIncomingRequests:
		return u.IncomingRequests
	}
	return nil
}

// HasRelation reports whether id is a member of the given relationship set.
func (u *User) HasRelation(field RelationField, id primitive.ObjectID) bool {
	for _, member := range u.RelationSet(field) {
		if member == id {
			return true
		}
	}
	return false
}

// SignupRequest defines the request body for local registration
type SignupRequest struct {
	FirstName string `json:"first_name" validate:"required,min=1,max=50"`
	LastName  string `json:"last_name" validate:"required,min=1,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
}

// LoginRequest defines the request body for local authentication
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest defines the request body for updating profile data
type UpdateProfileRequest struct {
	FirstName  string `json:"first_name,omitempty" validate:"omitempty,min=1,max=50"`
	LastName   string `json:"last_name,omitempty" validate:"omitempty,min=1,max=50"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Occupation string `json:"occupation,omitempty" validate:"omitempty,max=100"`
	Education  string `json:"education,omitempty" validate:"omitempty,max=100"`
	Location   string `json:"location,omitempty" validate:"omitempty,max=100"`
}

// UpdateImageRequest defines the request body for updating the profile or
// cover image. An empty ImageURL clears the image without touching the host.
type UpdateImageRequest struct {
	ImageURL string `json:"image_url"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
