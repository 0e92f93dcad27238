// Package assignment decides which reports an organization may assign, binds
// reports to workers and drives the status lifecycle.
package assignment

import (
	"context"
	"sort"

	reportstore "github.com/wastehub/wastehub/internal/app/store/reports"
	"github.com/wastehub/wastehub/internal/app/system/apperr"
	"github.com/wastehub/wastehub/internal/app/system/metrics"
	"github.com/wastehub/wastehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Reports is the part of the report repository the engine needs.
type Reports interface {
	ByOrg(ctx context.Context, orgID primitive.ObjectID) (reportstore.List, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.Report, error)
	Transition(ctx context.Context, id primitive.ObjectID, to models.ReportStatus, a *reportstore.Assignment) (models.Report, error)
}

type Workers interface {
	GetWorker(ctx context.Context, id primitive.ObjectID) (models.Worker, error)
}

type Organizations interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Organization, error)
}

// Actor is the caller on whose behalf a status change is made.
type Actor struct {
	ID    primitive.ObjectID
	Role  string
	OrgID primitive.ObjectID
}

type Engine struct {
	reports Reports
	workers Workers
	orgs    Organizations
	log     *zap.Logger
	metrics *metrics.Metrics
}

func New(reports Reports, workers Workers, orgs Organizations, log *zap.Logger, m *metrics.Metrics) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{reports: reports, workers: workers, orgs: orgs, log: log, metrics: m}
}

// ListAssignable returns the reports orgID may assign or re-assign: pending
// reports from the shared pool and its own reports that have not been
// started, restricted to the organization's categories. The most severe
// reports come first, oldest first within a severity.
func (e *Engine) ListAssignable(ctx context.Context, orgID primitive.ObjectID) ([]models.Report, error) {
	org, err := e.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	list, err := e.reports.ByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	out := make([]models.Report, 0, len(list.Items))
	for _, r := range list.Items {
		if !r.Status.Assignable() || !org.HandlesCategory(r.Category) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Severity.Rank(), out[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Assign binds reportID to workerID on behalf of orgID.
//
// The report must be pending, or assigned but not started. The worker must
// belong to orgID, and a report already held by another organization cannot
// be taken over. The write touches the report only; two admins assigning the
// same report concurrently both succeed and the later write wins.
func (e *Engine) Assign(ctx context.Context, reportID, workerID, orgID primitive.ObjectID) (models.Report, error) {
	r, err := e.assign(ctx, reportID, workerID, orgID)
	e.metrics.Assignment(metrics.Result(err))
	if err != nil {
		return models.Report{}, err
	}
	e.log.Info("report assigned",
		zap.String("report_id", reportID.Hex()),
		zap.String("worker_id", workerID.Hex()),
		zap.String("org_id", orgID.Hex()))
	return r, nil
}

func (e *Engine) assign(ctx context.Context, reportID, workerID, orgID primitive.ObjectID) (models.Report, error) {
	rep, err := e.reports.Get(ctx, reportID)
	if err != nil {
		return models.Report{}, err
	}
	if rep == nil {
		return models.Report{}, apperr.NotFound("report")
	}
	if !rep.Status.Assignable() {
		return models.Report{}, apperr.New(apperr.KindInvalidTransition,
			"cannot assign a report that is %s", rep.Status.Canonical())
	}
	if rep.NGOID != nil && *rep.NGOID != orgID {
		return models.Report{}, apperr.New(apperr.KindForbiddenAssignment,
			"report is assigned to another organization")
	}

	org, err := e.orgs.GetByID(ctx, orgID)
	if err != nil {
		return models.Report{}, err
	}
	if !org.HandlesCategory(rep.Category) {
		return models.Report{}, apperr.New(apperr.KindForbiddenAssignment,
			"organization does not handle %q reports", rep.Category)
	}

	w, err := e.workers.GetWorker(ctx, workerID)
	if err != nil {
		return models.Report{}, err
	}
	if w.Role != models.RoleWorker || w.OrgID != orgID {
		return models.Report{}, apperr.ErrForbiddenAssignment
	}

	return e.reports.Transition(ctx, reportID, models.StatusAssigned, &reportstore.Assignment{
		WorkerID:    w.ID,
		WorkerName:  w.Name,
		WorkerEmail: w.Email,
		OrgID:       orgID,
	})
}

// MarkInProgress starts work on an assigned report.
func (e *Engine) MarkInProgress(ctx context.Context, actor Actor, reportID primitive.ObjectID) (models.Report, error) {
	return e.move(ctx, actor, reportID, models.StatusInProgress)
}

// MarkResolved closes an assigned or in-progress report.
func (e *Engine) MarkResolved(ctx context.Context, actor Actor, reportID primitive.ObjectID) (models.Report, error) {
	return e.move(ctx, actor, reportID, models.StatusResolved)
}

func (e *Engine) move(ctx context.Context, actor Actor, reportID primitive.ObjectID, to models.ReportStatus) (models.Report, error) {
	r, err := e.transition(ctx, actor, reportID, to)
	e.metrics.Transition(string(to), metrics.Result(err))
	if err != nil {
		return models.Report{}, err
	}
	e.log.Info("report status changed",
		zap.String("report_id", reportID.Hex()),
		zap.String("status", string(to)),
		zap.String("actor_id", actor.ID.Hex()))
	return r, nil
}

func (e *Engine) transition(ctx context.Context, actor Actor, reportID primitive.ObjectID, to models.ReportStatus) (models.Report, error) {
	rep, err := e.reports.Get(ctx, reportID)
	if err != nil {
		return models.Report{}, err
	}
	if rep == nil {
		return models.Report{}, apperr.NotFound("report")
	}
	if !models.CanTransition(rep.Status, to) {
		return models.Report{}, apperr.New(apperr.KindInvalidTransition,
			"cannot move report from %s to %s", rep.Status.Canonical(), to)
	}
	if !mayUpdate(actor, *rep) {
		return models.Report{}, apperr.New(apperr.KindForbiddenAssignment,
			"report is not assigned to you")
	}
	return e.reports.Transition(ctx, reportID, to, nil)
}

// mayUpdate: the assigned worker, or an admin of the organization holding the
// report.
func mayUpdate(a Actor, r models.Report) bool {
	switch a.Role {
	case models.RoleWorker:
		return r.AssignedTo != nil && *r.AssignedTo == a.ID
	case models.RoleAdmin:
		return r.NGOID != nil && *r.NGOID == a.OrgID
	}
	return false
}
