// internal/app/features/workers/handler.go
package workers

import (
	"net/http"

	"github.com/wastehub/wastehub/internal/app/directory"
	reportstore "github.com/wastehub/wastehub/internal/app/store/reports"
	"github.com/wastehub/wastehub/internal/app/system/apperr"
	"github.com/wastehub/wastehub/internal/app/system/auditlog"
	"github.com/wastehub/wastehub/internal/app/system/authz"
	"github.com/wastehub/wastehub/internal/app/system/respond"
	"github.com/wastehub/wastehub/internal/app/system/timeouts"
	"github.com/wastehub/wastehub/internal/domain/models"
	"go.uber.org/zap"
)

type Handler struct {
	Directory *directory.Directory
	Reports   *reportstore.Store
	AuditLog  *auditlog.Logger
	Log       *zap.Logger
}

func NewHandler(dir *directory.Directory, reports *reportstore.Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Directory: dir, Reports: reports, AuditLog: audit, Log: logger}
}

// HandleCreate handles POST /api/workers. The worker joins the admin's
// organization.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	c, err := authz.UserCtx(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	var in directory.CreateWorkerInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create worker")
	defer cancel()

	wk, err := h.Directory.CreateWorker(ctx, c.OrgID, in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	h.AuditLog.WorkerCreated(ctx, r, c.ID, wk)
	respond.JSON(w, http.StatusCreated, wk)
}

// ServeList handles GET /api/workers: the current roster, once.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	c, err := authz.UserCtx(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list workers")
	defer cancel()

	ws, err := h.Directory.Workers(ctx, c.OrgID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"items": ws})
}

// ServeWorker handles GET /api/workers/{id}.
func (h *Handler) ServeWorker(w http.ResponseWriter, r *http.Request) {
	wk, ok := h.load(w, r)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, wk)
}

// ServeTasks handles GET /api/workers/{id}/tasks: the worker's reports
// bucketed by progress.
func (h *Handler) ServeTasks(w http.ResponseWriter, r *http.Request) {
	wk, ok := h.load(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "worker tasks")
	defer cancel()

	list, err := h.Reports.ByWorker(ctx, wk.ID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, reportstore.Summarize(list.Items))
}

// load resolves {id} to a worker the caller may see: an admin sees their
// organization's workers, a worker only themselves.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (models.Worker, bool) {
	c, err := authz.UserCtx(r)
	if err != nil {
		respond.Error(w, r, err)
		return models.Worker{}, false
	}
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return models.Worker{}, false
	}
	if c.IsWorker() && id != c.ID {
		respond.Error(w, r, apperr.NotFound("worker"))
		return models.Worker{}, false
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get worker")
	defer cancel()

	wk, err := h.Directory.GetWorkerByID(ctx, id)
	if err != nil {
		respond.Error(w, r, err)
		return models.Worker{}, false
	}
	if wk.OrgID != c.OrgID {
		respond.Error(w, r, apperr.NotFound("worker"))
		return models.Worker{}, false
	}
	return wk, true
}
