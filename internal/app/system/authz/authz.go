// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/wastehub/wastehub/internal/app/assignment"
	"github.com/wastehub/wastehub/internal/app/system/apperr"
	"github.com/wastehub/wastehub/internal/app/system/auth"
	"github.com/wastehub/wastehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Caller is the signed-in user with ids already parsed. OrgID is zero for
// citizens.
type Caller struct {
	ID    primitive.ObjectID
	Role  string
	OrgID primitive.ObjectID
	Name  string
	Email string
}

// UserCtx returns the caller for r. A missing user or a malformed id is
// Unauthorized; handlers behind RequireSignedIn should never see it.
func UserCtx(r *http.Request) (Caller, error) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return Caller{}, apperr.ErrUnauthorized
	}
	id, err := u.UserID()
	if err != nil {
		return Caller{}, apperr.New(apperr.KindUnauthorized, "malformed session")
	}
	c := Caller{ID: id, Role: strings.ToLower(u.Role), Name: u.Name, Email: u.Email}
	if u.OrgID != "" {
		org, err := u.OrganizationID()
		if err != nil {
			return Caller{}, apperr.New(apperr.KindUnauthorized, "malformed session")
		}
		c.OrgID = org
	}
	return c, nil
}

func (c Caller) IsAdmin() bool   { return c.Role == models.RoleAdmin }
func (c Caller) IsWorker() bool  { return c.Role == models.RoleWorker }
func (c Caller) IsCitizen() bool { return c.Role == models.RoleUser }

// Actor is the caller as the assignment engine sees it.
func (c Caller) Actor() assignment.Actor {
	return assignment.Actor{ID: c.ID, Role: c.Role, OrgID: c.OrgID}
}

// CanViewReport: citizens see their own reports, workers the ones assigned to
// them, admins their organization's reports plus the unassigned pool.
func CanViewReport(c Caller, r models.Report) bool {
	switch c.Role {
	case models.RoleUser:
		return r.UserID == c.ID
	case models.RoleWorker:
		return r.AssignedTo != nil && *r.AssignedTo == c.ID
	case models.RoleAdmin:
		if !r.Status.HasAssignee() {
			return true
		}
		return r.NGOID != nil && *r.NGOID == c.OrgID
	}
	return false
}

// CanEditReport: the reporter may edit until work is assigned; an admin may
// edit reports their organization holds.
func CanEditReport(c Caller, r models.Report) bool {
	switch c.Role {
	case models.RoleUser:
		return r.UserID == c.ID && !r.Status.HasAssignee()
	case models.RoleAdmin:
		return r.NGOID != nil && *r.NGOID == c.OrgID
	}
	return false
}
