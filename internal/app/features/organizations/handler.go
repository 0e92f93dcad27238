// internal/app/features/organizations/handler.go
package organizations

import (
	"net/http"

	organizationstore "github.com/wastehub/wastehub/internal/app/store/organizations"
	"github.com/wastehub/wastehub/internal/app/system/auditlog"
	"github.com/wastehub/wastehub/internal/app/system/authz"
	"github.com/wastehub/wastehub/internal/app/system/htmlsanitize"
	"github.com/wastehub/wastehub/internal/app/system/inputval"
	"github.com/wastehub/wastehub/internal/app/system/normalize"
	"github.com/wastehub/wastehub/internal/app/system/respond"
	"github.com/wastehub/wastehub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the signed-in admin's own organization.
type Handler struct {
	Orgs     *organizationstore.Store
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Orgs:     organizationstore.New(db),
		AuditLog: audit,
		Log:      logger,
	}
}

// ServeMine handles GET /api/organizations/me.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	c, err := authz.UserCtx(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get organization")
	defer cancel()

	org, err := h.Orgs.GetByID(ctx, c.OrgID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, org)
}

type updateRequest struct {
	Name               *string  `json:"name" validate:"omitnil,min=1,max=200"`
	ContactPerson      *string  `json:"contact_person" validate:"omitnil,min=1,max=120"`
	Email              *string  `json:"email" validate:"omitempty,email"`
	Phone              *string  `json:"phone" validate:"omitempty,phone"`
	Address            *string  `json:"address" validate:"omitempty,max=500"`
	City               *string  `json:"city" validate:"omitempty,max=120"`
	RegistrationNumber *string  `json:"registration_number" validate:"omitempty,max=64"`
	Categories         []string `json:"categories" validate:"omitempty,min=1,dive,category"`
}

func (in *updateRequest) patch() organizationstore.Patch {
	clean := func(s *string, f func(string) string) *string {
		if s == nil {
			return nil
		}
		v := f(htmlsanitize.PlainText(*s))
		return &v
	}
	same := func(s string) string { return s }
	in.Name = clean(in.Name, normalize.Name)
	in.ContactPerson = clean(in.ContactPerson, normalize.Name)
	in.Email = clean(in.Email, normalize.Email)
	in.Phone = clean(in.Phone, normalize.Phone)
	in.Address = clean(in.Address, same)
	in.City = clean(in.City, normalize.Name)
	in.RegistrationNumber = clean(in.RegistrationNumber, same)
	return organizationstore.Patch{
		Name:               in.Name,
		ContactPerson:      in.ContactPerson,
		Email:              in.Email,
		Phone:              in.Phone,
		Address:            in.Address,
		City:               in.City,
		RegistrationNumber: in.RegistrationNumber,
		Categories:         in.Categories,
	}
}

// HandleUpdate handles PATCH /api/organizations/me. Approval status cannot be
// changed here.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	c, err := authz.UserCtx(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	var in updateRequest
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	p := in.patch()
	if err := inputval.Struct(in); err != nil {
		respond.Error(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update organization")
	defer cancel()

	org, err := h.Orgs.Update(ctx, c.OrgID, p)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	h.AuditLog.OrgUpdated(ctx, r, c.ID, c.OrgID)
	respond.JSON(w, http.StatusOK, org)
}
