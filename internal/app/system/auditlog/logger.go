// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/wastehub/wastehub/internal/app/store/audit"
	"github.com/wastehub/wastehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations per category: "all" (MongoDB + zap), "db", "log" or "off".
type Config struct {
	Auth  string
	Admin string
}

// Sink stores events.
type Sink interface {
	Log(ctx context.Context, e audit.Event) error
}

// Logger records audit events. A nil *Logger is a no-op.
type Logger struct {
	store  Sink
	zapLog *zap.Logger
	config Config
}

func New(store Sink, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (l *Logger) logToZap(e audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", e.Category),
		zap.String("event_type", e.EventType),
		zap.Bool("success", e.Success),
		zap.String("ip", e.IP),
	}
	if e.ActorID != nil {
		fields = append(fields, zap.String("actor_id", e.ActorID.Hex()))
	}
	if e.SubjectID != nil {
		fields = append(fields, zap.String("subject_id", e.SubjectID.Hex()))
	}
	if e.OrgID != nil {
		fields = append(fields, zap.String("org_id", e.OrgID.Hex()))
	}
	if e.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", e.FailureReason))
	}
	for k, v := range e.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}
	if e.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log routes e according to its category's setting. Store failures are
// logged and swallowed: auditing never fails the request.
func (l *Logger) Log(ctx context.Context, e audit.Event) {
	if l == nil {
		return
	}
	setting := "all"
	switch e.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	}
	if setting == "off" {
		return
	}
	if setting == "all" || setting == "log" {
		l.logToZap(e)
	}
	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, e); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", e.EventType))
		}
	}
}

func (l *Logger) request(r *http.Request, e audit.Event) audit.Event {
	e.IP = clientIP(r)
	e.UserAgent = r.UserAgent()
	return e
}

// --- auth ---

func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, role string) {
	l.Log(ctx, l.request(r, audit.Event{
		Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess,
		ActorID: &userID, Success: true,
		Details: map[string]string{"role": role},
	}))
}

func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, email, reason string) {
	l.Log(ctx, l.request(r, audit.Event{
		Category: audit.CategoryAuth, EventType: audit.EventLoginFailed,
		FailureReason: reason,
		Details:       map[string]string{"email": email},
	}))
}

func (l *Logger) Logout(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, l.request(r, audit.Event{
		Category: audit.CategoryAuth, EventType: audit.EventLogout,
		ActorID: &userID, Success: true,
	}))
}

func (l *Logger) Signup(ctx context.Context, r *http.Request, userID primitive.ObjectID, role string) {
	l.Log(ctx, l.request(r, audit.Event{
		Category: audit.CategoryAuth, EventType: audit.EventSignup,
		ActorID: &userID, Success: true,
		Details: map[string]string{"role": role},
	}))
}

// --- admin ---

func (l *Logger) OrgCreated(ctx context.Context, r *http.Request, org models.Organization) {
	l.Log(ctx, l.request(r, audit.Event{
		Category: audit.CategoryAdmin, EventType: audit.EventOrgCreated,
		OrgID: &org.ID, ActorID: &org.AdminID, SubjectID: &org.ID, Success: true,
		Details: map[string]string{"name": org.Name, "status": org.Status},
	}))
}

func (l *Logger) OrgUpdated(ctx context.Context, r *http.Request, actorID, orgID primitive.ObjectID) {
	l.Log(ctx, l.request(r, audit.Event{
		Category: audit.CategoryAdmin, EventType: audit.EventOrgUpdated,
		OrgID: &orgID, ActorID: &actorID, SubjectID: &orgID, Success: true,
	}))
}

func (l *Logger) WorkerCreated(ctx context.Context, r *http.Request, actorID primitive.ObjectID, w models.Worker) {
	l.Log(ctx, l.request(r, audit.Event{
		Category: audit.CategoryAdmin, EventType: audit.EventWorkerCreated,
		OrgID: &w.OrgID, ActorID: &actorID, SubjectID: &w.ID, Success: true,
		Details: map[string]string{"email": w.Email},
	}))
}

func (l *Logger) ReportAssigned(ctx context.Context, r *http.Request, actorID, orgID primitive.ObjectID, rep models.Report) {
	details := map[string]string{}
	if rep.AssignedTo != nil {
		details["worker_id"] = rep.AssignedTo.Hex()
	}
	l.Log(ctx, l.request(r, audit.Event{
		Category: audit.CategoryAdmin, EventType: audit.EventReportAssigned,
		OrgID: &orgID, ActorID: &actorID, SubjectID: &rep.ID, Success: true,
		Details: details,
	}))
}

func (l *Logger) ReportStatusChanged(ctx context.Context, r *http.Request, actorID primitive.ObjectID, rep models.Report) {
	l.Log(ctx, l.request(r, audit.Event{
		Category: audit.CategoryAdmin, EventType: audit.EventReportStatusChanged,
		OrgID: rep.NGOID, ActorID: &actorID, SubjectID: &rep.ID, Success: true,
		Details: map[string]string{"status": string(rep.Status)},
	}))
}

func (l *Logger) ReportDeleted(ctx context.Context, r *http.Request, actorID, reportID primitive.ObjectID) {
	l.Log(ctx, l.request(r, audit.Event{
		Category: audit.CategoryAdmin, EventType: audit.EventReportDeleted,
		ActorID: &actorID, SubjectID: &reportID, Success: true,
	}))
}
