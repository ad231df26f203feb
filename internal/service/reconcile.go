package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/odin-book/backend/internal/models"
	"github.com/odin-book/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Repair records a single fix applied by the reconciler.
type Repair struct {
	ID      string               `json:"id"`
	UserID  primitive.ObjectID   `json:"user_id"`
	OtherID primitive.ObjectID   `json:"other_id"`
	Field   models.RelationField `json:"field"`
	Action  RepairAction         `json:"action"`
	At      time.Time            `json:"at"`
}

// RepairAction says how an asymmetric pair was fixed.
type RepairAction string

const (
	// RepairAdded means the missing reciprocal entry was written.
	RepairAdded RepairAction = "added"
	// RepairRemoved means the dangling one-sided entry was removed.
	RepairRemoved RepairAction = "removed"
)

// Reconciler scans user documents for relationship state the two-record write
// scheme can leave behind when a second-party write fails, and repairs it.
// Policy: a one-sided friendship edge is completed (the accept got far enough
// to count), a one-sided pending edge is dropped (indistinguishable from a
// half-finished cancel or reject; the requester can re-send), and a pending
// entry for an existing friend is dropped (the friendship wins).
type Reconciler struct {
	users repositories.UserRepository
}

// NewReconciler creates a new Reconciler.
func NewReconciler(userRepo repositories.UserRepository) *Reconciler {
	return &Reconciler{users: userRepo}
}

// Sweep checks every user and applies repairs. It returns the repairs made;
// a clean store returns an empty slice.
func (r *Reconciler) Sweep(ctx context.Context) ([]Repair, error) {
	users, err := r.users.GetUsers(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[primitive.ObjectID]*models.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	repairs := []Repair{}
	for i := range users {
		user := &users[i]

		for _, friendID := range user.Friends {
			other, ok := byID[friendID]
			if !ok {
				// Reference to a user that no longer exists.
				rep, err := r.remove(ctx, user.ID, models.FieldFriends, friendID)
				if err != nil {
					return repairs, err
				}
				repairs = append(repairs, rep)
				continue
			}
			if !other.HasRelation(models.FieldFriends, user.ID) {
				rep, err := r.add(ctx, other.ID, models.FieldFriends, user.ID)
				if err != nil {
					return repairs, err
				}
				other.Friends = append(other.Friends, user.ID)
				repairs = append(repairs, rep)
			}
		}

		for _, sentID := range user.SentRequests {
			// A pending entry alongside a friendship means the accept's pending
			// cleanup was lost; the friendship wins.
			if user.HasRelation(models.FieldFriends, sentID) {
				rep, err := r.remove(ctx, user.ID, models.FieldSentRequests, sentID)
				if err != nil {
					return repairs, err
				}
				repairs = append(repairs, rep)
				continue
			}
			other, ok := byID[sentID]
			if !ok || !other.HasRelation(models.FieldIncomingRequests, user.ID) {
				rep, err := r.remove(ctx, user.ID, models.FieldSentRequests, sentID)
				if err != nil {
					return repairs, err
				}
				repairs = append(repairs, rep)
			}
		}

		for _, incomingID := range user.IncomingRequests {
			if user.HasRelation(models.FieldFriends, incomingID) {
				rep, err := r.remove(ctx, user.ID, models.FieldIncomingRequests, incomingID)
				if err != nil {
					return repairs, err
				}
				repairs = append(repairs, rep)
				continue
			}
			other, ok := byID[incomingID]
			if !ok || !other.HasRelation(models.FieldSentRequests, user.ID) {
				rep, err := r.remove(ctx, user.ID, models.FieldIncomingRequests, incomingID)
				if err != nil {
					return repairs, err
				}
				repairs = append(repairs, rep)
			}
		}
	}

	return repairs, nil
}

func (r *Reconciler) add(ctx context.Context, id primitive.ObjectID, field models.RelationField, member primitive.ObjectID) (Repair, error) {
	add := map[models.RelationField]primitive.ObjectID{field: member}
	if err := r.users.PatchRelations(ctx, id, add, nil); err != nil {
		return Repair{}, err
	}
	return r.record(id, member, field, RepairAdded), nil
}

func (r *Reconciler) remove(ctx context.Context, id primitive.ObjectID, field models.RelationField, member primitive.ObjectID) (Repair, error) {
	remove := map[models.RelationField]primitive.ObjectID{field: member}
	if err := r.users.PatchRelations(ctx, id, nil, remove); err != nil {
		return Repair{}, err
	}
	return r.record(id, member, field, RepairRemoved), nil
}

func (r *Reconciler) record(id, member primitive.ObjectID, field models.RelationField, action RepairAction) Repair {
	rep := Repair{
		ID:      uuid.NewString(),
		UserID:  id,
		OtherID: member,
		Field:   field,
		Action:  action,
		At:      time.Now(),
	}
	log.Printf("reconcile %s: %s %s on %s (other %s)", rep.ID, rep.Action, rep.Field, rep.UserID.Hex(), rep.OtherID.Hex())
	return rep
}
