// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"github.com/wastehub/wastehub/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAuth  = "auth"
	CategoryAdmin = "admin"
)

// Auth event types
const (
	EventLoginSuccess = "login_success"
	EventLoginFailed  = "login_failed"
	EventLogout       = "logout"
	EventSignup       = "signup"
)

// Admin event types
const (
	EventOrgCreated          = "org_created"
	EventOrgUpdated          = "org_updated"
	EventWorkerCreated       = "worker_created"
	EventReportAssigned      = "report_assigned"
	EventReportStatusChanged = "report_status_changed"
	EventReportDeleted       = "report_deleted"
)

// Event is one audit record.
type Event struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty"`
	CreatedAt time.Time           `bson:"created_at"`
	OrgID     *primitive.ObjectID `bson:"org_id,omitempty"`

	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	ActorID   *primitive.ObjectID `bson:"actor_id,omitempty"`
	SubjectID *primitive.ObjectID `bson:"subject_id,omitempty"` // report, worker or org acted on

	IP        string `bson:"ip,omitempty"`
	UserAgent string `bson:"user_agent,omitempty"`

	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter narrows Query. Zero fields are ignored.
type QueryFilter struct {
	OrgID     *primitive.ObjectID
	SubjectID *primitive.ObjectID
	Category  string
	EventType string
	Since     *time.Time
	Limit     int64
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log records event, filling ID and CreatedAt when unset.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, event); err != nil {
		return apperr.Storage("insert audit event", err)
	}
	return nil
}

// Query returns matching events, newest first, at most 100 unless Limit says
// otherwise.
func (s *Store) Query(ctx context.Context, f QueryFilter) ([]Event, error) {
	q := bson.M{}
	if f.OrgID != nil {
		q["org_id"] = *f.OrgID
	}
	if f.SubjectID != nil {
		q["subject_id"] = *f.SubjectID
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.EventType != "" {
		q["event_type"] = f.EventType
	}
	if f.Since != nil {
		q["created_at"] = bson.M{"$gte": *f.Since}
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	cur, err := s.c.Find(ctx, q, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit))
	if err != nil {
		return nil, apperr.Storage("query audit events", err)
	}
	defer cur.Close(ctx)
	out := []Event{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Storage("query audit events", err)
	}
	return out, nil
}
