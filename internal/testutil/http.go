package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wastehub/wastehub/internal/app/system/auth"
	"github.com/wastehub/wastehub/internal/app/system/identity"
	"github.com/wastehub/wastehub/internal/app/system/respond"
	"github.com/wastehub/wastehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// AdminUser returns an NGO admin. The organization id equals the admin id.
func AdminUser() auth.SessionUser {
	id := primitive.NewObjectID().Hex()
	return auth.SessionUser{ID: id, Name: "Test Admin", Email: "admin@test.com", Role: models.RoleAdmin, OrgID: id}
}

// WorkerUser returns a field worker in orgID.
func WorkerUser(orgID primitive.ObjectID) auth.SessionUser {
	return auth.SessionUser{
		ID:    primitive.NewObjectID().Hex(),
		Name:  "Test Worker",
		Email: "worker@test.com",
		Role:  models.RoleWorker,
		OrgID: orgID.Hex(),
	}
}

// CitizenUser returns a reporting citizen.
func CitizenUser() auth.SessionUser {
	return auth.SessionUser{ID: primitive.NewObjectID().Hex(), Name: "Test Citizen", Email: "citizen@test.com", Role: models.RoleUser}
}

// WithUser injects u as the signed-in caller, bypassing token parsing.
func WithUser(r *http.Request, u auth.SessionUser) *http.Request {
	return auth.WithUser(r, &u)
}

// NewRequest builds a request; a non-empty body is sent as JSON.
func NewRequest(method, target, body string) *http.Request {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, target, rd)
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	return r
}

// SessionManager returns a dev-mode session manager with a fixed test secret.
func SessionManager(t *testing.T) (*auth.SessionManager, *identity.Tokens) {
	t.Helper()
	tokens := identity.NewTokens("test-jwt-secret-must-be-32-bytes!", time.Hour)
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only!", "test-session", "", tokens, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	return sm, tokens
}

// DecodeJSON unmarshals the recorded body into v.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response %q: %v", rec.Body.String(), err)
	}
}

// ErrorCodeOf returns the code from an error envelope.
func ErrorCodeOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env respond.ErrorResponse
	DecodeJSON(t, rec, &env)
	return env.Error.Code
}
