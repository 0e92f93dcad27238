package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wastehub/wastehub/internal/app/system/normalize"
	"github.com/wastehub/wastehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures inserts test documents directly, bypassing the stores.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

func (f *Fixtures) DB() *mongo.Database { return f.db }

// CreateOrganization inserts an approved organization handling categories.
func (f *Fixtures) CreateOrganization(ctx context.Context, name string, categories ...string) models.Organization {
	f.t.Helper()
	now := time.Now().UTC()
	id := primitive.NewObjectID()
	org := models.Organization{
		ID:         id,
		Name:       name,
		NameCI:     normalize.Folded(name),
		Email:      "ops@" + id.Hex() + ".example.org",
		Categories: categories,
		Status:     models.OrgApproved,
		AdminID:    id,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if org.Categories == nil {
		org.Categories = []string{}
	}
	if _, err := f.db.Collection("organizations").InsertOne(ctx, org); err != nil {
		f.t.Fatalf("failed to create test organization: %v", err)
	}
	return org
}

// CreateWorker inserts a worker profile in orgID.
func (f *Fixtures) CreateWorker(ctx context.Context, name, email string, orgID primitive.ObjectID) models.Worker {
	f.t.Helper()
	now := time.Now().UTC()
	w := models.Worker{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Email:     normalize.Email(email),
		Phone:     "9876543210",
		Role:      models.RoleWorker,
		OrgID:     orgID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, w); err != nil {
		f.t.Fatalf("failed to create test worker: %v", err)
	}
	return w
}

// CreateCitizen inserts a plain user profile.
func (f *Fixtures) CreateCitizen(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Email:     normalize.Email(email),
		Role:      models.RoleUser,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test citizen: %v", err)
	}
	return u
}

// CreateReport inserts r as-is, filling the id, timestamps and status when
// they are zero.
func (f *Fixtures) CreateReport(ctx context.Context, r models.Report) models.Report {
	f.t.Helper()
	now := time.Now().UTC()
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	if r.Status == "" {
		r.Status = models.StatusPending
	}
	if _, err := f.db.Collection("reports").InsertOne(ctx, r); err != nil {
		f.t.Fatalf("failed to create test report: %v", err)
	}
	return r
}
