// internal/app/store/credentials/credentialstore.go
package credentialstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/wastehub/wastehub/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Credential is a sign-in identity. Its ID is the identity id shared with the
// user profile.
type Credential struct {
	ID           primitive.ObjectID `bson:"_id"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	Role         string             `bson:"role"`
	CreatedAt    time.Time          `bson:"created_at"`
}

type Store struct {
	c *mongo.Collection
}

var ErrEmailTaken = &apperr.Error{Kind: apperr.KindConflict, Message: "email is already registered"}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("credentials")}
}

// Create inserts c with a fresh ID. Email uniqueness is enforced by the
// uniq_credentials_email index.
func (s *Store) Create(ctx context.Context, c Credential) (Credential, error) {
	c.ID = primitive.NewObjectID()
	c.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return Credential{}, ErrEmailTaken
		}
		return Credential{}, apperr.Storage("insert credential", err)
	}
	return c, nil
}

// GetByEmail expects an already-normalized email.
func (s *Store) GetByEmail(ctx context.Context, email string) (Credential, error) {
	var c Credential
	err := s.c.FindOne(ctx, bson.M{"email": email}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Credential{}, apperr.NotFound("credential")
	}
	if err != nil {
		return Credential{}, apperr.Storage("find credential", err)
	}
	return c, nil
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.c.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return apperr.Storage("delete credential", err)
	}
	return nil
}
