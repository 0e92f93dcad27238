// internal/app/features/assignments/handler.go
package assignments

import (
	"context"
	"net/http"

	"github.com/wastehub/wastehub/internal/app/assignment"
	"github.com/wastehub/wastehub/internal/app/system/apperr"
	"github.com/wastehub/wastehub/internal/app/system/auditlog"
	"github.com/wastehub/wastehub/internal/app/system/authz"
	"github.com/wastehub/wastehub/internal/app/system/respond"
	"github.com/wastehub/wastehub/internal/app/system/timeouts"
	"github.com/wastehub/wastehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Engine   *assignment.Engine
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(engine *assignment.Engine, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, AuditLog: audit, Log: logger}
}

// ServeAssignable handles GET /api/assignments/assignable.
func (h *Handler) ServeAssignable(w http.ResponseWriter, r *http.Request) {
	c, err := authz.UserCtx(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list assignable")
	defer cancel()

	items, err := h.Engine.ListAssignable(ctx, c.OrgID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"items": items})
}

type assignRequest struct {
	ReportID string `json:"report_id"`
	WorkerID string `json:"worker_id"`
}

// HandleAssign handles POST /api/assignments.
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	c, err := authz.UserCtx(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	var in assignRequest
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	reportID, err := primitive.ObjectIDFromHex(in.ReportID)
	if err != nil {
		respond.Error(w, r, apperr.Validation("report_id is not a valid id"))
		return
	}
	workerID, err := primitive.ObjectIDFromHex(in.WorkerID)
	if err != nil {
		respond.Error(w, r, apperr.Validation("worker_id is not a valid id"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "assign report")
	defer cancel()

	rep, err := h.Engine.Assign(ctx, reportID, workerID, c.OrgID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	h.AuditLog.ReportAssigned(ctx, r, c.ID, c.OrgID, rep)
	respond.JSON(w, http.StatusOK, rep)
}

// HandleStart handles POST /api/reports/{id}/start.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.Engine.MarkInProgress)
}

// HandleResolve handles POST /api/reports/{id}/resolve.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.Engine.MarkResolved)
}

type moveFunc func(ctx context.Context, actor assignment.Actor, reportID primitive.ObjectID) (models.Report, error)

func (h *Handler) move(w http.ResponseWriter, r *http.Request, fn moveFunc) {
	c, err := authz.UserCtx(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "report status")
	defer cancel()

	rep, err := fn(ctx, c.Actor(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	h.AuditLog.ReportStatusChanged(ctx, r, c.ID, rep)
	respond.JSON(w, http.StatusOK, rep)
}
