// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/wastehub/wastehub/internal/app/system/apperr"
	"github.com/wastehub/wastehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store holds profile documents for citizens, admins and workers.
type Store struct {
	c *mongo.Collection
}

// ErrDuplicateEmail is returned when a profile with the same email exists.
var ErrDuplicateEmail = &apperr.Error{Kind: apperr.KindConflict, Message: "email is already registered"}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// Collection exposes the underlying collection to the roster watcher.
func (s *Store) Collection() *mongo.Collection { return s.c }

// Create inserts u. The caller supplies the ID (the identity id).
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	if u.ID.IsZero() {
		return models.User{}, apperr.Validation("user id is required")
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	u.CreatedAt = now
	u.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, apperr.Storage("insert user", err)
	}
	return u, nil
}

// GetByID returns the profile or NotFound.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, apperr.NotFound("user")
	}
	if err != nil {
		return models.User{}, apperr.Storage("find user", err)
	}
	return u, nil
}

// GetWorker returns the worker profile or NotFound. Non-worker profiles are
// reported as missing.
func (s *Store) GetWorker(ctx context.Context, id primitive.ObjectID) (models.Worker, error) {
	var w models.Worker
	err := s.c.FindOne(ctx, bson.M{"_id": id, "role": models.RoleWorker}).Decode(&w)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Worker{}, apperr.NotFound("worker")
	}
	if err != nil {
		return models.Worker{}, apperr.Storage("find worker", err)
	}
	return w, nil
}

// WorkerFilter selects an organization's roster.
func WorkerFilter(orgID primitive.ObjectID) bson.M {
	return bson.M{"orgId": orgID, "role": models.RoleWorker}
}

// WorkersByOrg returns the organization's workers ordered by name.
func (s *Store) WorkersByOrg(ctx context.Context, orgID primitive.ObjectID) ([]models.Worker, error) {
	cur, err := s.c.Find(ctx, WorkerFilter(orgID),
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, apperr.Storage("list workers", err)
	}
	defer cur.Close(ctx)
	out := []models.Worker{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Storage("list workers", err)
	}
	return out, nil
}

// SetActive toggles a worker's availability flag.
func (s *Store) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "role": models.RoleWorker},
		bson.M{"$set": bson.M{"isActive": active, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return apperr.Storage("update worker", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("worker")
	}
	return nil
}

// Delete removes a profile. Used to roll back a half-finished signup.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.c.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return apperr.Storage("delete user", err)
	}
	return nil
}
