// internal/app/features/signup/handler.go
package signup

import (
	"context"
	"net/http"

	"github.com/wastehub/wastehub/internal/app/features/login"
	organizationstore "github.com/wastehub/wastehub/internal/app/store/organizations"
	userstore "github.com/wastehub/wastehub/internal/app/store/users"
	"github.com/wastehub/wastehub/internal/app/system/auditlog"
	"github.com/wastehub/wastehub/internal/app/system/auth"
	"github.com/wastehub/wastehub/internal/app/system/htmlsanitize"
	"github.com/wastehub/wastehub/internal/app/system/identity"
	"github.com/wastehub/wastehub/internal/app/system/inputval"
	"github.com/wastehub/wastehub/internal/app/system/normalize"
	"github.com/wastehub/wastehub/internal/app/system/respond"
	"github.com/wastehub/wastehub/internal/app/system/timeouts"
	"github.com/wastehub/wastehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	Identity   *identity.Provider
	Users      *userstore.Store
	Orgs       *organizationstore.Store
	AuditLog   *auditlog.Logger

	// AutoApprove creates organizations already approved. Otherwise they
	// wait in pending for platform approval.
	AutoApprove bool
}

func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, provider *identity.Provider, audit *auditlog.Logger, autoApprove bool, logger *zap.Logger) *Handler {
	return &Handler{
		Log:         logger,
		SessionMgr:  sessionMgr,
		Identity:    provider,
		Users:       userstore.New(db),
		Orgs:        organizationstore.New(db),
		AuditLog:    audit,
		AutoApprove: autoApprove,
	}
}

type orgSignupRequest struct {
	Name               string   `json:"name" validate:"required,max=200"`
	ContactPerson      string   `json:"contact_person" validate:"required,max=120"`
	Email              string   `json:"email" validate:"required,email"`
	Phone              string   `json:"phone" validate:"required,phone"`
	Password           string   `json:"password" validate:"required,min=8"`
	Address            string   `json:"address" validate:"required,max=500"`
	City               string   `json:"city" validate:"required,max=120"`
	RegistrationNumber string   `json:"registration_number" validate:"required,max=64"`
	Categories         []string `json:"categories" validate:"required,min=1,dive,category"`
}

func (in *orgSignupRequest) clean() {
	in.Name = normalize.Name(htmlsanitize.PlainText(in.Name))
	in.ContactPerson = normalize.Name(htmlsanitize.PlainText(in.ContactPerson))
	in.Email = normalize.Email(in.Email)
	in.Phone = normalize.Phone(in.Phone)
	in.Address = htmlsanitize.PlainText(in.Address)
	in.City = normalize.Name(htmlsanitize.PlainText(in.City))
	in.RegistrationNumber = htmlsanitize.PlainText(in.RegistrationNumber)
}

type orgSignupResponse struct {
	login.SessionResponse
	Organization models.Organization `json:"organization"`
}

// HandleOrganization handles POST /api/auth/signup: an NGO admin registers
// their identity, profile and organization in one step. A failure part way
// through removes what was already written.
func (h *Handler) HandleOrganization(w http.ResponseWriter, r *http.Request) {
	var in orgSignupRequest
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	in.clean()
	if err := inputval.Struct(in); err != nil {
		respond.Error(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "organization signup")
	defer cancel()

	id, err := h.Identity.CreateAccount(ctx, in.Email, in.Password, models.RoleAdmin)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	undo := []undoStep{{"identity", func(c context.Context) error { return h.Identity.RemoveAccount(c, id) }}}
	fail := func(err error) {
		h.unwind(context.WithoutCancel(ctx), id, undo)
		h.Log.Warn("organization signup rolled back", zap.String("admin_id", id.Hex()), zap.Error(err))
		respond.Error(w, r, err)
	}

	u, err := h.Users.Create(ctx, models.User{
		ID:       id,
		Name:     in.ContactPerson,
		Email:    in.Email,
		Phone:    in.Phone,
		Role:     models.RoleAdmin,
		OrgID:    &id,
		IsActive: true,
	})
	if err != nil {
		fail(err)
		return
	}
	undo = append(undo, undoStep{"profile", func(c context.Context) error { return h.Users.Delete(c, id) }})

	status := models.OrgPending
	if h.AutoApprove {
		status = models.OrgApproved
	}
	org, err := h.Orgs.Create(ctx, models.Organization{
		ID:                 id,
		Name:               in.Name,
		ContactPerson:      in.ContactPerson,
		Email:              in.Email,
		Phone:              in.Phone,
		Address:            in.Address,
		City:               in.City,
		RegistrationNumber: in.RegistrationNumber,
		Categories:         in.Categories,
		Status:             status,
	})
	if err != nil {
		fail(err)
		return
	}

	sess, err := login.Start(w, r, h.SessionMgr, u)
	if err != nil {
		undo = append(undo, undoStep{"organization", func(c context.Context) error { return h.Orgs.Delete(c, id) }})
		fail(err)
		return
	}

	h.AuditLog.Signup(ctx, r, id, models.RoleAdmin)
	h.AuditLog.OrgCreated(ctx, r, org)
	h.Log.Info("organization registered",
		zap.String("org_id", id.Hex()),
		zap.String("status", org.Status))
	respond.JSON(w, http.StatusCreated, orgSignupResponse{SessionResponse: sess, Organization: org})
}

type citizenSignupRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Password string `json:"password" validate:"required,min=8"`
}

// HandleCitizen handles POST /api/auth/register for citizens who file
// reports.
func (h *Handler) HandleCitizen(w http.ResponseWriter, r *http.Request) {
	var in citizenSignupRequest
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	in.Name = normalize.Name(htmlsanitize.PlainText(in.Name))
	in.Email = normalize.Email(in.Email)
	in.Phone = normalize.Phone(in.Phone)
	if err := inputval.Struct(in); err != nil {
		respond.Error(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "citizen signup")
	defer cancel()

	id, err := h.Identity.CreateAccount(ctx, in.Email, in.Password, models.RoleUser)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	undo := []undoStep{{"identity", func(c context.Context) error { return h.Identity.RemoveAccount(c, id) }}}
	u, err := h.Users.Create(ctx, models.User{
		ID:       id,
		Name:     in.Name,
		Email:    in.Email,
		Phone:    in.Phone,
		Role:     models.RoleUser,
		IsActive: true,
	})
	if err != nil {
		h.unwind(context.WithoutCancel(ctx), id, undo)
		respond.Error(w, r, err)
		return
	}
	undo = append(undo, undoStep{"profile", func(c context.Context) error { return h.Users.Delete(c, id) }})

	sess, err := login.Start(w, r, h.SessionMgr, u)
	if err != nil {
		h.unwind(context.WithoutCancel(ctx), id, undo)
		respond.Error(w, r, err)
		return
	}
	h.AuditLog.Signup(ctx, r, id, models.RoleUser)
	respond.JSON(w, http.StatusCreated, sess)
}

type undoStep struct {
	what string
	fn   func(context.Context) error
}

// unwind runs steps newest first. A step that fails leaves an orphan behind,
// so it is logged and the rest still run.
func (h *Handler) unwind(ctx context.Context, accountID primitive.ObjectID, steps []undoStep) {
	for i := len(steps) - 1; i >= 0; i-- {
		if err := steps[i].fn(ctx); err != nil {
			h.Log.Error("signup: failed to remove "+steps[i].what,
				zap.String("user_id", accountID.Hex()),
				zap.Error(err))
		}
	}
}
