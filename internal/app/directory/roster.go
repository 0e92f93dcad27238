package directory

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wastehub/wastehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ChangeStream is the part of *mongo.ChangeStream the roster uses.
type ChangeStream interface {
	Next(ctx context.Context) bool
	Err() error
	Close(ctx context.Context) error
}

// Watcher opens a change notification feed for one organization's roster.
type Watcher interface {
	WatchRoster(ctx context.Context, orgID primitive.ObjectID) (ChangeStream, error)
}

// MongoWatcher watches the users collection. Change streams need a replica
// set; on a standalone server WatchRoster fails and the roster polls.
type MongoWatcher struct {
	Users *mongo.Collection
}

func (w MongoWatcher) WatchRoster(ctx context.Context, orgID primitive.ObjectID) (ChangeStream, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"operationType":      bson.M{"$in": bson.A{"insert", "update", "replace"}},
			"fullDocument.orgId": orgID,
			"fullDocument.role":  models.RoleWorker,
		}}},
	}
	cs, err := w.Users.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, err
	}
	return cs, nil
}

// Subscription is a live roster feed. Cancel releases it; calling Cancel more
// than once is harmless.
type Subscription struct {
	ID string

	cancel  context.CancelFunc
	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

// Cancel stops the feed. It waits for a callback already running, and once it
// returns no further callback begins. Callbacks must therefore not call Cancel
// themselves or block on the goroutine that does.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.cancel()
}

// Done is closed when the feed's goroutine has exited.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// emit runs f unless the subscription has been cancelled.
func (s *Subscription) emit(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		f()
	}
}

// SubscribeWorkers delivers orgID's full roster to onData: once immediately
// and again after every change. onError is called at most once, on a failure
// that ends the feed. Each call returns an independent subscription.
func (d *Directory) SubscribeWorkers(orgID primitive.ObjectID, onData func([]models.Worker), onError func(error)) *Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &Subscription{ID: uuid.NewString(), cancel: cancel, done: make(chan struct{})}

	d.metrics.RosterOpened()
	go func() {
		defer close(sub.done)
		defer d.metrics.RosterClosed()
		defer cancel()

		err := d.runRoster(ctx, sub, orgID, onData)
		if err == nil || ctx.Err() != nil || onError == nil {
			return
		}
		sub.emit(func() {
			d.log.Warn("roster subscription failed",
				zap.String("subscription_id", sub.ID),
				zap.String("org_id", orgID.Hex()),
				zap.Error(err))
			onError(err)
		})
	}()
	return sub
}

// runRoster opens the change feed before reading the first snapshot, so a
// change that lands between the two is still seen.
func (d *Directory) runRoster(ctx context.Context, sub *Subscription, orgID primitive.ObjectID, onData func([]models.Worker)) error {
	deliver := func(ws []models.Worker) {
		sub.emit(func() { onData(ws) })
	}

	var cs ChangeStream
	if d.watcher != nil {
		var werr error
		cs, werr = d.watcher.WatchRoster(ctx, orgID)
		if werr != nil {
			if ctx.Err() != nil {
				return nil
			}
			d.log.Warn("change streams unavailable; polling roster",
				zap.String("subscription_id", sub.ID),
				zap.String("org_id", orgID.Hex()),
				zap.Duration("interval", d.pollInterval),
				zap.Error(werr))
			cs = nil
		}
	}

	last, err := d.profiles.WorkersByOrg(ctx, orgID)
	if err != nil {
		if cs != nil {
			cs.Close(context.WithoutCancel(ctx))
		}
		return err
	}
	deliver(last)

	if cs != nil {
		return d.streamRoster(ctx, cs, orgID, deliver)
	}
	return d.pollRoster(ctx, orgID, last, deliver)
}

func (d *Directory) streamRoster(ctx context.Context, cs ChangeStream, orgID primitive.ObjectID, deliver func([]models.Worker)) error {
	defer cs.Close(context.WithoutCancel(ctx))
	for cs.Next(ctx) {
		ws, err := d.profiles.WorkersByOrg(ctx, orgID)
		if err != nil {
			return err
		}
		deliver(ws)
	}
	if ctx.Err() != nil {
		return nil
	}
	if err := cs.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return errors.New("roster change stream closed")
}

func (d *Directory) pollRoster(ctx context.Context, orgID primitive.ObjectID, last []models.Worker, deliver func([]models.Worker)) error {
	t := time.NewTicker(d.pollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		ws, err := d.profiles.WorkersByOrg(ctx, orgID)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if sameRoster(last, ws) {
			continue
		}
		last = ws
		deliver(ws)
	}
}

func sameRoster(a, b []models.Worker) bool {
	return slices.EqualFunc(a, b, func(x, y models.Worker) bool {
		return x.ID == y.ID &&
			x.Name == y.Name &&
			x.Email == y.Email &&
			x.Phone == y.Phone &&
			x.IsActive == y.IsActive &&
			x.UpdatedAt.Equal(y.UpdatedAt)
	})
}
