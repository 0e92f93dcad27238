// internal/domain/models/organization.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Organization approval states.
const (
	OrgPending  = "pending"
	OrgApproved = "approved"
	OrgRejected = "rejected"
)

// Organization is an NGO. Its ID is the identity of the admin who signed it up.
type Organization struct {
	ID                 primitive.ObjectID `bson:"_id" json:"id"`
	Name               string             `bson:"name" json:"name"`
	NameCI             string             `bson:"nameCi" json:"-"` // ← always stored
	ContactPerson      string             `bson:"contactPerson" json:"contact_person"`
	Email              string             `bson:"email" json:"email"`
	Phone              string             `bson:"phone" json:"phone"`
	Address            string             `bson:"address" json:"address"`
	City               string             `bson:"city" json:"city"`
	RegistrationNumber string             `bson:"registrationNumber" json:"registration_number"`
	Categories         []string           `bson:"categories" json:"categories"`
	Status             string             `bson:"status" json:"status"`
	AdminID            primitive.ObjectID `bson:"adminId" json:"admin_id"`
	CreatedAt          time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updated_at"`
}

// HandlesCategory reports whether reports of the given category belong in this
// organization's pool. Uncategorized reports are visible to every organization,
// and an organization with no categories sees everything.
func (o Organization) HandlesCategory(category string) bool {
	if category == "" || len(o.Categories) == 0 {
		return true
	}
	for _, c := range o.Categories {
		if c == category {
			return true
		}
	}
	return false
}
