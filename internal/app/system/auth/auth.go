package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/wastehub/wastehub/internal/app/system/identity"
	"github.com/wastehub/wastehub/internal/app/system/respond"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session manager                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

const tokenKey = "token"

// SessionManager resolves the caller from a bearer token or from the session
// cookie, which carries the same signed token for browser clients.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	tokens  *identity.Tokens
	log     *zap.Logger
	origins map[string]struct{}
}

// NewSessionManager builds the cookie store. Cookies are SameSite=Lax and,
// in production (secure=true), Secure.
func NewSessionManager(sessionKey, name, domain string, tokens *identity.Tokens, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random bytes")
	}
	if tokens == nil {
		return nil, errors.New("token issuer is required")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended", zap.Int("length", len(sessionKey)))
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(tokens.TTL().Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &SessionManager{store: store, name: name, tokens: tokens, log: logger, origins: map[string]struct{}{}}, nil
}

// TrustOrigins lets cookie-authenticated writes arrive from origins other
// than the API's own host, typically the CORS allow-list.
func (sm *SessionManager) TrustOrigins(origins []string) {
	for _, o := range origins {
		sm.origins[strings.TrimRight(o, "/")] = struct{}{}
	}
}

// SignIn stores token in the session cookie.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, token string) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values[tokenKey] = token
	return sess.Save(r, w)
}

// StartSession issues a token for p and stores it in the session cookie.
// The token is also returned for API clients that send it as a bearer.
func (sm *SessionManager) StartSession(w http.ResponseWriter, r *http.Request, p identity.Principal) (string, time.Time, error) {
	token, exp, err := sm.tokens.Issue(p)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := sm.SignIn(w, r, token); err != nil {
		return "", time.Time{}, fmt.Errorf("save session: %w", err)
	}
	return token, exp, nil
}

// SignOut expires the session cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := sm.store.Get(r, sm.name)
	delete(sess.Values, tokenKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// LoadUser puts the caller into the request context when a valid token is
// present. Invalid tokens are treated as anonymous.
//
// A state-changing request that authenticates with the cookie alone must come
// from the API's own origin or a trusted one; otherwise it is refused with 403.
// Bearer tokens are never sent by a browser on its own, so they skip the check.
func (sm *SessionManager) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			if sess, err := sm.store.Get(r, sm.name); err == nil {
				raw, _ = sess.Values[tokenKey].(string)
			}
			if raw != "" && !safeMethod(r.Method) && sm.crossSite(r) {
				sm.log.Warn("cross-site request with session cookie refused",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("origin", r.Header.Get("Origin")),
					zap.String("request_id", respond.GetRequestID(r.Context())))
				respond.ErrorCode(w, r, http.StatusForbidden, "forbidden", "cross-site request refused")
				return
			}
		}
		if raw != "" {
			p, err := sm.tokens.Parse(raw)
			if err != nil {
				sm.log.Debug("rejected session token", zap.Error(err))
			} else {
				r = WithUser(r, &SessionUser{ID: p.ID, Name: p.Name, Email: p.Email, Role: p.Role, OrgID: p.OrgID})
			}
		}
		next.ServeHTTP(w, r)
	})
}

func safeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// crossSite reports whether r came from a page on another origin. Browsers
// send Origin on every cross-origin write; clients that send neither Origin
// nor Sec-Fetch-Site are not browsers.
func (sm *SessionManager) crossSite(r *http.Request) bool {
	if origin := r.Header.Get("Origin"); origin != "" {
		if _, ok := sm.origins[origin]; ok {
			return false
		}
		u, err := url.Parse(origin)
		return err != nil || u.Host != r.Host
	}
	switch r.Header.Get("Sec-Fetch-Site") {
	case "", "same-origin", "none":
		return false
	}
	return true
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| Current user                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is the authenticated caller. Handlers pass it explicitly into
// stores and the engine; nothing downstream reads it from context.
type SessionUser struct {
	ID    string
	Name  string
	Email string
	Role  string
	OrgID string
}

// UserID parses ID.
func (u SessionUser) UserID() (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(u.ID)
}

// OrganizationID parses OrgID. Citizens have none.
func (u SessionUser) OrganizationID() (primitive.ObjectID, error) {
	if u.OrgID == "" {
		return primitive.NilObjectID, errors.New("caller has no organization")
	}
	return primitive.ObjectIDFromHex(u.OrgID)
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user and whether one is signed in.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// WithUser returns r carrying u.
func WithUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

/*─────────────────────────────────────────────────────────────────────────────*
| Guards                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// RequireSignedIn answers 401 when no user is in context.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			respond.ErrorCode(w, r, http.StatusUnauthorized, "unauthorized", "sign in required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole answers 401 for anonymous callers and 403 for callers whose
// role is not in allowed.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				respond.ErrorCode(w, r, http.StatusUnauthorized, "unauthorized", "sign in required")
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				respond.ErrorCode(w, r, http.StatusForbidden, "forbidden", "not permitted for role "+u.Role)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
