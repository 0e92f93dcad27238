// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles carried by identities and user documents.
const (
	RoleUser   = "user"
	RoleWorker = "worker"
	RoleAdmin  = "admin"
)

// User is any profile document in the users collection: citizens, NGO admins
// and field workers. Workers are read through the Worker type below.
type User struct {
	ID        primitive.ObjectID  `bson:"_id" json:"id"`
	Name      string              `bson:"name" json:"name"`
	Email     string              `bson:"email" json:"email"`
	Phone     string              `bson:"phone,omitempty" json:"phone,omitempty"`
	Role      string              `bson:"role" json:"role"` // user | worker | admin
	OrgID     *primitive.ObjectID `bson:"orgId,omitempty" json:"org_id,omitempty"`
	IsActive  bool                `bson:"isActive" json:"is_active"`
	CreatedAt time.Time           `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time           `bson:"updatedAt" json:"updated_at"`
}

// Worker is a role-tagged user that belongs to exactly one organization.
type Worker struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Phone     string             `bson:"phone" json:"phone"`
	Role      string             `bson:"role" json:"role"`
	OrgID     primitive.ObjectID `bson:"orgId" json:"org_id"`
	IsActive  bool               `bson:"isActive" json:"is_active"`
	CreatedAt time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updated_at"`
}
