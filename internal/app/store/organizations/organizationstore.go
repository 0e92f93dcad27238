// internal/app/store/organizations/organizationstore.go
package organizationstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/wastehub/wastehub/internal/app/system/apperr"
	"github.com/wastehub/wastehub/internal/app/system/normalize"
	"github.com/wastehub/wastehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var ErrDuplicateOrganization = &apperr.Error{Kind: apperr.KindConflict, Message: "an organization already exists for this admin"}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("organizations")}
}

// Create inserts org. Its ID must be the admin's identity. Status defaults to
// pending.
func (s *Store) Create(ctx context.Context, org models.Organization) (models.Organization, error) {
	if org.ID.IsZero() {
		return models.Organization{}, apperr.Validation("organization id is required")
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	org.AdminID = org.ID
	org.NameCI = normalize.Folded(org.Name)
	if org.Status == "" {
		org.Status = models.OrgPending
	}
	if org.Categories == nil {
		org.Categories = []string{}
	}
	org.CreatedAt = now
	org.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, org); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Organization{}, ErrDuplicateOrganization
		}
		return models.Organization{}, apperr.Storage("insert organization", err)
	}
	return org, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Organization, error) {
	var org models.Organization
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&org)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Organization{}, apperr.NotFound("organization")
	}
	if err != nil {
		return models.Organization{}, apperr.Storage("find organization", err)
	}
	return org, nil
}

// Patch holds the fields an organization's own admin may change. Approval
// status is not among them.
type Patch struct {
	Name               *string
	ContactPerson      *string
	Email              *string
	Phone              *string
	Address            *string
	City               *string
	RegistrationNumber *string
	Categories         []string
}

// Update applies p, refreshes updatedAt and returns the stored document.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, p Patch) (models.Organization, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if p.Name != nil {
		set["name"] = *p.Name
		set["nameCi"] = normalize.Folded(*p.Name)
	}
	if p.ContactPerson != nil {
		set["contactPerson"] = *p.ContactPerson
	}
	if p.Email != nil {
		set["email"] = *p.Email
	}
	if p.Phone != nil {
		set["phone"] = *p.Phone
	}
	if p.Address != nil {
		set["address"] = *p.Address
	}
	if p.City != nil {
		set["city"] = *p.City
	}
	if p.RegistrationNumber != nil {
		set["registrationNumber"] = *p.RegistrationNumber
	}
	if p.Categories != nil {
		set["categories"] = p.Categories
	}

	var org models.Organization
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&org)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Organization{}, apperr.NotFound("organization")
	}
	if err != nil {
		return models.Organization{}, apperr.Storage("update organization", err)
	}
	return org, nil
}

// Delete removes an organization. Used to roll back a half-finished signup.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.c.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return apperr.Storage("delete organization", err)
	}
	return nil
}
