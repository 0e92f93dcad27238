package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wastehub/wastehub/internal/app/system/auth"
	"github.com/wastehub/wastehub/internal/app/system/identity"
	"github.com/wastehub/wastehub/internal/app/system/respond"
	"go.uber.org/zap"
)

const secret = "test-jwt-secret-must-be-32-bytes!"

func newTestSessionManager(t *testing.T) (*auth.SessionManager, *identity.Tokens) {
	t.Helper()
	tokens := identity.NewTokens(secret, time.Hour)
	sm, err := auth.NewSessionManager("test-session-key-must-be-32-chars-long", "test-session", "", tokens, false, zap.NewNop())
	require.NoError(t, err)
	return sm, tokens
}

// echo reports the loaded user, or 204 for anonymous callers.
func echo() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := auth.CurrentUser(r)
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		respond.JSON(w, http.StatusOK, u)
	})
}

func TestLoadUser_Bearer(t *testing.T) {
	sm, tokens := newTestSessionManager(t)
	tok, _, err := tokens.Issue(identity.Principal{ID: "u1", Role: "admin", OrgID: "u1", Name: "Meera"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	sm.LoadUser(echo()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var u auth.SessionUser
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&u))
	require.Equal(t, auth.SessionUser{ID: "u1", Role: "admin", OrgID: "u1", Name: "Meera"}, u)
}

func TestLoadUser_InvalidTokenIsAnonymous(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	sm.LoadUser(echo()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSignInCookieRoundTrip(t *testing.T) {
	sm, tokens := newTestSessionManager(t)
	tok, _, err := tokens.Issue(identity.Principal{ID: "u2", Role: "worker", OrgID: "o1"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, sm.SignIn(rec, httptest.NewRequest(http.MethodPost, "/login", nil), tok))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	sm.LoadUser(echo()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	require.NoError(t, sm.SignOut(rec, req))
	for _, c := range rec.Result().Cookies() {
		require.True(t, c.MaxAge < 0, "cookie %s not expired", c.Name)
	}
}

func TestRequireSignedIn(t *testing.T) {
	h := auth.RequireSignedIn(echo())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := auth.WithUser(httptest.NewRequest(http.MethodGet, "/", nil), &auth.SessionUser{ID: "u1", Role: "user"})
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	h := auth.RequireRole("admin")(echo())

	tests := []struct {
		name string
		user *auth.SessionUser
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"citizen", &auth.SessionUser{ID: "u1", Role: "user"}, http.StatusForbidden},
		{"admin", &auth.SessionUser{ID: "u2", Role: "ADMIN"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.user != nil {
				req = auth.WithUser(req, tt.user)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestSessionUserIDs(t *testing.T) {
	u := auth.SessionUser{ID: "64b7f0c2a1b2c3d4e5f60718", OrgID: ""}
	_, err := u.UserID()
	require.NoError(t, err)
	_, err = u.OrganizationID()
	require.Error(t, err)
}

func TestStartSession(t *testing.T) {
	sm, tokens := newTestSessionManager(t)
	rec := httptest.NewRecorder()
	tok, exp, err := sm.StartSession(rec, httptest.NewRequest(http.MethodPost, "/login", nil),
		identity.Principal{ID: "u3", Role: "admin", OrgID: "u3"})
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	require.True(t, exp.After(time.Now()))
	require.NotEmpty(t, rec.Result().Cookies())

	p, err := tokens.Parse(tok)
	require.NoError(t, err)
	require.Equal(t, "u3", p.OrgID)
}

func TestSessionCookieIsLaxInProduction(t *testing.T) {
	tokens := identity.NewTokens(secret, time.Hour)
	sm, err := auth.NewSessionManager("test-session-key-must-be-32-chars-long", "test-session", "", tokens, true, zap.NewNop())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, sm.SignIn(rec, httptest.NewRequest(http.MethodPost, "/login", nil), "tok"))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.True(t, cookies[0].Secure)
	require.True(t, cookies[0].HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
}

func TestLoadUser_CrossSiteCookieWrites(t *testing.T) {
	sm, tokens := newTestSessionManager(t)
	sm.TrustOrigins([]string{"http://localhost:3000/"})
	tok, _, err := tokens.Issue(identity.Principal{ID: "u4", Role: "admin", OrgID: "u4"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, sm.SignIn(rec, httptest.NewRequest(http.MethodPost, "/login", nil), tok))
	cookies := rec.Result().Cookies()

	tests := []struct {
		name    string
		method  string
		headers map[string]string
		bearer  bool
		want    int
	}{
		{"foreign origin post", http.MethodPost, map[string]string{"Origin": "https://evil.example"}, false, http.StatusForbidden},
		{"foreign fetch metadata", http.MethodDelete, map[string]string{"Sec-Fetch-Site": "cross-site"}, false, http.StatusForbidden},
		{"same host origin", http.MethodPost, map[string]string{"Origin": "http://example.com"}, false, http.StatusOK},
		{"trusted origin", http.MethodPatch, map[string]string{"Origin": "http://localhost:3000"}, false, http.StatusOK},
		{"no browser headers", http.MethodPost, nil, false, http.StatusOK},
		{"foreign origin read", http.MethodGet, map[string]string{"Origin": "https://evil.example"}, false, http.StatusOK},
		{"bearer from foreign origin", http.MethodPost, map[string]string{"Origin": "https://evil.example"}, true, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "http://example.com/api/reports", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if tt.bearer {
				req.Header.Set("Authorization", "Bearer "+tok)
			} else {
				for _, c := range cookies {
					req.AddCookie(c)
				}
			}
			rec := httptest.NewRecorder()
			sm.LoadUser(echo()).ServeHTTP(rec, req)
			require.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusForbidden {
				var body respond.ErrorResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				require.Equal(t, "forbidden", body.Error.Code)
			}
		})
	}
}
