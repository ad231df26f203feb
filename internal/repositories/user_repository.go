package repositories

import (
	"context"
	"time"

	"github.com/odin-book/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository defines the interface for user data operations. PatchRelations
// realizes the record store's add-to-set / remove-from-set contract: one call is
// one atomic single-document update.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID, limit int64) ([]models.User, error)
	GetUsersExcluding(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdateImage(ctx context.Context, id primitive.ObjectID, field models.ImageField, img models.Image) (*models.User, error)
	PatchRelations(ctx context.Context, id primitive.ObjectID, add, remove map[models.RelationField]primitive.ObjectID) error
}

// MongoUserRepository implements UserRepository for MongoDB
type MongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new MongoUserRepository
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{collection: db.Collection("users")}
}

// CreateUser creates a new user document with empty relationship sets
func (r *MongoUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	if user.Friends == nil {
		user.Friends = []primitive.ObjectID{}
	}
	if user.SentRequests == nil {
		user.SentRequests = []primitive.ObjectID{}
	}
	if user.IncomingRequests == nil {
		user.IncomingRequests = []primitive.ObjectID{}
	}
	_, err := r.collection.InsertOne(ctx, user)
	return err
}

// GetUserByID retrieves a user by ID
func (r *MongoUserRepository) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email
func (r *MongoUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUsers retrieves all users
func (r *MongoUserRepository) GetUsers(ctx context.Context) ([]models.User, error) {
	cursor, err := r.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUsersByIDs retrieves the users whose ids are in the given set. A limit of
// zero means no limit.
func (r *MongoUserRepository) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID, limit int64) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	findOptions := options.Find()
	if limit > 0 {
		findOptions.SetLimit(limit)
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUsersExcluding retrieves all users whose ids are not in the given set
func (r *MongoUserRepository) GetUsersExcluding(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$nin": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateProfile updates the profile fields of an existing user
func (r *MongoUserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()
	update := bson.M{
		"$set": bson.M{
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"email":      user.Email,
			"occupation": user.Occupation,
			"education":  user.Education,
			"location":   user.Location,
			"updated_at": user.UpdatedAt,
		},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": user.ID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateImage replaces the named image field and returns the updated user
func (r *MongoUserRepository) UpdateImage(ctx context.Context, id primitive.ObjectID, field models.ImageField, img models.Image) (*models.User, error) {
	update := bson.M{
		"$set": bson.M{
			string(field): img,
			"updated_at":  time.Now(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.User
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// PatchRelations applies set-membership changes to one user document in a
// single update: $addToSet for add, $pull for remove.
func (r *MongoUserRepository) PatchRelations(ctx context.Context, id primitive.ObjectID, add, remove map[models.RelationField]primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"updated_at": time.Now()}}
	if len(add) > 0 {
		fields := bson.M{}
		for field, member := range add {
			fields[string(field)] = member
		}
		update["$addToSet"] = fields
	}
	if len(remove) > 0 {
		fields := bson.M{}
		for field, member := range remove {
			fields[string(field)] = member
		}
		update["$pull"] = fields
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
