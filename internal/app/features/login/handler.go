// internal/app/features/login/handler.go
package login

import (
	"errors"
	"net/http"
	"time"

	userstore "github.com/wastehub/wastehub/internal/app/store/users"
	"github.com/wastehub/wastehub/internal/app/system/apperr"
	"github.com/wastehub/wastehub/internal/app/system/auditlog"
	"github.com/wastehub/wastehub/internal/app/system/auth"
	"github.com/wastehub/wastehub/internal/app/system/identity"
	"github.com/wastehub/wastehub/internal/app/system/respond"
	"github.com/wastehub/wastehub/internal/app/system/timeouts"
	"github.com/wastehub/wastehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	Identity   *identity.Provider
	Users      *userstore.Store
	AuditLog   *auditlog.Logger
}

func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, provider *identity.Provider, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		Identity:   provider,
		Users:      userstore.New(db),
		AuditLog:   audit,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned by every endpoint that signs a caller in.
type SessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

// HandleLogin handles POST /api/auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	if in.Email == "" || in.Password == "" {
		respond.Error(w, r, apperr.Validation("email and password are required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login")
	defer cancel()

	cred, err := h.Identity.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthorized) {
			h.AuditLog.LoginFailed(ctx, r, in.Email, "bad_credentials")
		}
		respond.Error(w, r, err)
		return
	}

	u, err := h.Users.GetByID(ctx, cred.ID)
	if err != nil {
		// An identity without a profile cannot be scoped to anything.
		h.Log.Error("login: profile missing for identity", zap.String("user_id", cred.ID.Hex()), zap.Error(err))
		h.AuditLog.LoginFailed(ctx, r, in.Email, "profile_missing")
		respond.Error(w, r, identity.ErrBadCredentials)
		return
	}

	resp, err := Start(w, r, h.SessionMgr, u)
	if err != nil {
		h.Log.Error("login: start session", zap.Error(err))
		respond.Error(w, r, err)
		return
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, u.Role)
	respond.JSON(w, http.StatusOK, resp)
}

// Start signs u in and builds the response body. Admins are scoped to the
// organization they own, workers to the one they belong to.
func Start(w http.ResponseWriter, r *http.Request, sm *auth.SessionManager, u models.User) (SessionResponse, error) {
	p := identity.Principal{ID: u.ID.Hex(), Role: u.Role, Name: u.Name, Email: u.Email}
	switch {
	case u.Role == models.RoleAdmin:
		p.OrgID = u.ID.Hex()
	case u.OrgID != nil:
		p.OrgID = u.OrgID.Hex()
	}
	token, exp, err := sm.StartSession(w, r, p)
	if err != nil {
		return SessionResponse{}, err
	}
	return SessionResponse{Token: token, ExpiresAt: exp, User: u}, nil
}
