// internal/app/features/reports/handler.go
package reports

import (
	"net/http"

	reportstore "github.com/wastehub/wastehub/internal/app/store/reports"
	"github.com/wastehub/wastehub/internal/app/system/apperr"
	"github.com/wastehub/wastehub/internal/app/system/auditlog"
	"github.com/wastehub/wastehub/internal/app/system/authz"
	"github.com/wastehub/wastehub/internal/app/system/inputval"
	"github.com/wastehub/wastehub/internal/app/system/normalize"
	"github.com/wastehub/wastehub/internal/app/system/respond"
	"github.com/wastehub/wastehub/internal/app/system/timeouts"
	"github.com/wastehub/wastehub/internal/domain/models"
	"go.uber.org/zap"
)

type Handler struct {
	Reports  *reportstore.Store
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(reports *reportstore.Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Reports:  reports,
		AuditLog: audit,
		Log:      logger,
	}
}

// HandleCreate handles POST /api/reports. Only citizens file reports; the
// reporter fields come from the session.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	c, err := authz.UserCtx(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	var in createRequest
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	in.clean()
	if err := inputval.Struct(in); err != nil {
		respond.Error(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create report")
	defer cancel()

	rep, err := h.Reports.Create(ctx, models.Report{
		UserID:      c.ID,
		UserName:    c.Name,
		UserEmail:   c.Email,
		Category:    in.Category,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Location:    models.Location{Address: in.Address, Latitude: in.Latitude, Longitude: in.Longitude},
		Severity:    models.Severity(in.Severity),
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	h.Log.Info("report created",
		zap.String("report_id", rep.ID.Hex()),
		zap.String("category", rep.Category))
	respond.JSON(w, http.StatusCreated, rep)
}

// ServeReport handles GET /api/reports/{id}. Reports the caller may not see
// are reported as missing.
func (h *Handler) ServeReport(w http.ResponseWriter, r *http.Request) {
	_, rep, ok := h.load(w, r, authz.CanViewReport)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, rep)
}

// HandleUpdate handles PATCH /api/reports/{id} for descriptive fields.
// Status moves go through the assignment endpoints.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in updateRequest
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	p := in.patch()
	if err := inputval.Struct(in); err != nil {
		respond.Error(w, r, err)
		return
	}

	_, rep, ok := h.load(w, r, authz.CanEditReport)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update report")
	defer cancel()

	if err := h.Reports.Update(ctx, rep.ID, p); err != nil {
		respond.Error(w, r, err)
		return
	}
	updated, err := h.Reports.Get(ctx, rep.ID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if updated == nil {
		respond.Error(w, r, apperr.NotFound("report"))
		return
	}
	respond.JSON(w, http.StatusOK, updated)
}

// HandleDelete handles DELETE /api/reports/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	c, rep, ok := h.load(w, r, authz.CanEditReport)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete report")
	defer cancel()

	if err := h.Reports.Delete(ctx, rep.ID); err != nil {
		respond.Error(w, r, err)
		return
	}
	h.AuditLog.ReportDeleted(ctx, r, c.ID, rep.ID)
	w.WriteHeader(http.StatusNoContent)
}

// ServeMine handles GET /api/reports/mine?filter=&q= for citizens.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	c, err := authz.UserCtx(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list own reports")
	defer cancel()

	list, err := h.Reports.ByUser(ctx, c.ID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, narrow(r, list))
}

// ServeList handles GET /api/reports?status=&filter=&q=&scope=.
//
// Admins get their organization's reports plus the unassigned pool; scope=all
// reads the whole collection newest first but still drops reports another
// organization holds. Workers get their assignments and citizens their own
// reports. status narrows on the server, filter and q in memory.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	c, err := authz.UserCtx(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	status := models.ReportStatus(normalize.QueryParam(r.URL.Query().Get("status")))
	if status != "" && !status.Valid() {
		respond.Error(w, r, apperr.Validation("status must be one of pending, assigned, in-progress, resolved"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list reports")
	defer cancel()

	var list reportstore.List
	switch {
	case c.IsAdmin() && normalize.QueryParam(r.URL.Query().Get("scope")) == "all":
		list, err = h.Reports.All(ctx)
		list.Items = visible(c, list.Items)
	case c.IsAdmin() && status != "":
		list, err = h.Reports.ByStatus(ctx, status)
		list.Items = visible(c, list.Items)
	case c.IsAdmin():
		list, err = h.Reports.ByOrg(ctx, c.OrgID)
	case c.IsWorker():
		list, err = h.Reports.ByWorker(ctx, c.ID)
	default:
		list, err = h.Reports.ByUser(ctx, c.ID)
	}
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if status != "" {
		list.Items = withStatus(list.Items, status)
	}
	respond.JSON(w, http.StatusOK, narrow(r, list))
}

// ServeStats handles GET /api/reports/stats: counters over the admin's
// organization view.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	c, err := authz.UserCtx(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "report stats")
	defer cancel()

	st, err := h.Reports.Stats(ctx, &c.OrgID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, st)
}

// ServePlatformStats handles GET /api/stats, the public platform totals.
func (h *Handler) ServePlatformStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "platform stats")
	defer cancel()

	st, err := h.Reports.Stats(ctx, nil)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, st)
}

/*─────────────────────────────────────────────────────────────────────────────*/

// load resolves the caller and the {id} report, answering 404 when the
// report is missing or allow rejects it.
func (h *Handler) load(w http.ResponseWriter, r *http.Request, allow func(authz.Caller, models.Report) bool) (authz.Caller, models.Report, bool) {
	c, err := authz.UserCtx(r)
	if err != nil {
		respond.Error(w, r, err)
		return authz.Caller{}, models.Report{}, false
	}
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return authz.Caller{}, models.Report{}, false
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get report")
	defer cancel()

	rep, err := h.Reports.Get(ctx, id)
	if err != nil {
		respond.Error(w, r, err)
		return authz.Caller{}, models.Report{}, false
	}
	if rep == nil || !allow(c, *rep) {
		respond.Error(w, r, apperr.NotFound("report"))
		return authz.Caller{}, models.Report{}, false
	}
	return c, *rep, true
}

func narrow(r *http.Request, list reportstore.List) reportstore.List {
	q := r.URL.Query()
	list.Items = reportstore.Filter(list.Items, reportstore.ParseView(q.Get("filter")), q.Get("q"))
	return list
}

func visible(c authz.Caller, items []models.Report) []models.Report {
	out := items[:0]
	for _, rep := range items {
		if authz.CanViewReport(c, rep) {
			out = append(out, rep)
		}
	}
	return out
}

func withStatus(items []models.Report, s models.ReportStatus) []models.Report {
	out := items[:0]
	for _, rep := range items {
		if rep.Status.Canonical() == s.Canonical() {
			out = append(out, rep)
		}
	}
	return out
}
