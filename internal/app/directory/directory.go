// Package directory manages an organization's field workers: provisioning
// accounts, point lookups and the live roster feed.
package directory

import (
	"context"
	"time"

	"github.com/wastehub/wastehub/internal/app/system/inputval"
	"github.com/wastehub/wastehub/internal/app/system/metrics"
	"github.com/wastehub/wastehub/internal/app/system/normalize"
	"github.com/wastehub/wastehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Accounts is the identity provider.
type Accounts interface {
	CreateAccount(ctx context.Context, email, password, role string) (primitive.ObjectID, error)
	RemoveAccount(ctx context.Context, id primitive.ObjectID) error
}

// Profiles stores user documents.
type Profiles interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetWorker(ctx context.Context, id primitive.ObjectID) (models.Worker, error)
	WorkersByOrg(ctx context.Context, orgID primitive.ObjectID) ([]models.Worker, error)
}

// DefaultPollInterval applies when the roster cannot use change streams and
// no interval was configured.
const DefaultPollInterval = 5 * time.Second

type Directory struct {
	accounts     Accounts
	profiles     Profiles
	watcher      Watcher
	log          *zap.Logger
	metrics      *metrics.Metrics
	pollInterval time.Duration
}

// Options configure New. Watcher may be nil, in which case rosters are
// always polled.
type Options struct {
	Watcher      Watcher
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
	PollInterval time.Duration
}

func New(accounts Accounts, profiles Profiles, opts Options) *Directory {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Directory{
		accounts:     accounts,
		profiles:     profiles,
		watcher:      opts.Watcher,
		log:          opts.Logger,
		metrics:      opts.Metrics,
		pollInterval: opts.PollInterval,
	}
}

// CreateWorkerInput is what an org admin supplies for a new worker.
type CreateWorkerInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,phone"`
	Password string `json:"password" validate:"required,min=8"`
}

// CreateWorker provisions an identity for the worker and then its profile in
// orgID. The profile starts inactive. If the profile cannot be written the
// identity is removed again.
func (d *Directory) CreateWorker(ctx context.Context, orgID primitive.ObjectID, in CreateWorkerInput) (models.Worker, error) {
	in.Name = normalize.Name(in.Name)
	in.Email = normalize.Email(in.Email)
	in.Phone = normalize.Phone(in.Phone)
	if err := inputval.Struct(in); err != nil {
		return models.Worker{}, err
	}

	id, err := d.accounts.CreateAccount(ctx, in.Email, in.Password, models.RoleWorker)
	if err != nil {
		return models.Worker{}, err
	}

	u, err := d.profiles.Create(ctx, models.User{
		ID:    id,
		Name:  in.Name,
		Email: in.Email,
		Phone: in.Phone,
		Role:  models.RoleWorker,
		OrgID: &orgID,
	})
	if err != nil {
		if rerr := d.accounts.RemoveAccount(context.WithoutCancel(ctx), id); rerr != nil {
			d.log.Error("failed to roll back worker identity",
				zap.String("worker_id", id.Hex()), zap.Error(rerr))
		}
		return models.Worker{}, err
	}

	d.log.Info("worker created",
		zap.String("worker_id", id.Hex()),
		zap.String("org_id", orgID.Hex()))

	return models.Worker{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		OrgID:     orgID,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}, nil
}

// GetWorkerByID returns the worker or NotFound.
func (d *Directory) GetWorkerByID(ctx context.Context, id primitive.ObjectID) (models.Worker, error) {
	return d.profiles.GetWorker(ctx, id)
}

// Workers returns the organization's current roster.
func (d *Directory) Workers(ctx context.Context, orgID primitive.ObjectID) ([]models.Worker, error) {
	return d.profiles.WorkersByOrg(ctx, orgID)
}
