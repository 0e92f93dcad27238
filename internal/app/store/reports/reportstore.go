// internal/app/store/reports/reportstore.go
package reportstore

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/wastehub/wastehub/internal/app/system/apperr"
	"github.com/wastehub/wastehub/internal/app/system/metrics"
	"github.com/wastehub/wastehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Store is the report repository. Reads join the assigned worker's current
// name and email from the users collection.
type Store struct {
	c       *mongo.Collection
	users   *mongo.Collection
	log     *zap.Logger
	metrics *metrics.Metrics

	// findSorted runs the sorted read that find falls back from.
	findSorted func(ctx context.Context, filter bson.M, sortSpec bson.D) ([]models.Report, error)
}

func New(db *mongo.Database, log *zap.Logger, m *metrics.Metrics) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		c:       db.Collection("reports"),
		users:   db.Collection("users"),
		log:     log,
		metrics: m,
	}
	s.findSorted = func(ctx context.Context, filter bson.M, sortSpec bson.D) ([]models.Report, error) {
		return s.findAll(ctx, filter, options.Find().SetSort(sortSpec))
	}
	return s
}

// List is a query result. Unordered is set when the sorted query failed and
// the items were delivered in storage order instead.
type List struct {
	Items     []models.Report `json:"items"`
	Unordered bool            `json:"unordered,omitempty"`
}

var (
	byUpdatedDesc = bson.D{{Key: "updatedAt", Value: -1}, {Key: "_id", Value: -1}}
	byCreatedDesc = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
)

// Create inserts r as a new pending report and returns it with the server
// fields filled in. Any assignment fields on r are discarded.
func (s *Store) Create(ctx context.Context, r models.Report) (models.Report, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	r.ID = primitive.NewObjectID()
	r.Status = models.StatusPending
	r.AssignedTo = nil
	r.WorkerName = nil
	r.WorkerEmail = nil
	r.NGOID = nil
	r.CreatedAt = now
	r.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return models.Report{}, apperr.Storage("insert report", err)
	}
	return r, nil
}

// Get returns the report or (nil, nil) when it does not exist.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (*models.Report, error) {
	var r models.Report
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage("find report", err)
	}
	items := []models.Report{r}
	if err := s.joinWorkers(ctx, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

// ByOrg returns the reports owned by orgID together with every unassigned
// report, which all organizations see as assignment candidates. A report in
// both sets appears once, as the owned copy. Newest update first unless
// List.Unordered is set.
func (s *Store) ByOrg(ctx context.Context, orgID primitive.ObjectID) (List, error) {
	var owned, pool List
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		owned, err = s.find(gctx, "by_org", bson.M{"ngoId": orgID}, byUpdatedDesc)
		return err
	})
	g.Go(func() error {
		var err error
		pool, err = s.find(gctx, "unassigned_pool", unassignedFilter(), byUpdatedDesc)
		return err
	})
	if err := g.Wait(); err != nil {
		return List{}, err
	}

	seen := make(map[primitive.ObjectID]struct{}, len(owned.Items))
	out := List{
		Items:     make([]models.Report, 0, len(owned.Items)+len(pool.Items)),
		Unordered: owned.Unordered || pool.Unordered,
	}
	for _, r := range owned.Items {
		seen[r.ID] = struct{}{}
		out.Items = append(out.Items, r)
	}
	for _, r := range pool.Items {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		out.Items = append(out.Items, r)
	}
	if !out.Unordered {
		sortByUpdatedDesc(out.Items)
	}
	if err := s.joinWorkers(ctx, out.Items); err != nil {
		return List{}, err
	}
	return out, nil
}

// All returns every report, newest update first.
func (s *Store) All(ctx context.Context) (List, error) {
	return s.findJoined(ctx, "all", bson.M{}, byUpdatedDesc)
}

// ByStatus lists reports in status, newest first. Asking for pending also
// matches the legacy unassigned spelling.
func (s *Store) ByStatus(ctx context.Context, status models.ReportStatus) (List, error) {
	filter := bson.M{"status": status}
	if status.Canonical() == models.StatusPending {
		filter = unassignedFilter()
	}
	return s.findJoined(ctx, "by_status", filter, byCreatedDesc)
}

// ByWorker lists reports assigned to workerID, newest first.
func (s *Store) ByWorker(ctx context.Context, workerID primitive.ObjectID) (List, error) {
	return s.findJoined(ctx, "by_worker", bson.M{"assignedTo": workerID}, byCreatedDesc)
}

// ByUser lists reports filed by userID, newest first.
func (s *Store) ByUser(ctx context.Context, userID primitive.ObjectID) (List, error) {
	return s.findJoined(ctx, "by_user", bson.M{"userId": userID}, byCreatedDesc)
}

// StatusUpdate is a raw status write. WorkerID and WorkerName are written
// only when set.
type StatusUpdate struct {
	Status     models.ReportStatus
	WorkerID   *primitive.ObjectID
	WorkerName *string
}

// UpdateStatus writes a status without checking the transition. Callers that
// need lifecycle rules go through the assignment engine.
func (s *Store) UpdateStatus(ctx context.Context, id primitive.ObjectID, u StatusUpdate) error {
	set := bson.M{
		"status":    u.Status.Canonical(),
		"updatedAt": time.Now().UTC(),
	}
	if u.WorkerID != nil {
		set["assignedTo"] = *u.WorkerID
	}
	if u.WorkerName != nil {
		set["workerName"] = *u.WorkerName
	}
	return s.updateOne(ctx, "update report status", id, set)
}

// Patch is a partial edit of a report's descriptive fields. Nil fields are
// left alone.
type Patch struct {
	Category    *string
	Description *string
	ImageURL    *string
	Address     *string
	Latitude    *float64
	Longitude   *float64
	Severity    *models.Severity
}

func (p Patch) set() bson.M {
	set := bson.M{}
	if p.Category != nil {
		set["category"] = *p.Category
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.ImageURL != nil {
		set["imageUrl"] = *p.ImageURL
	}
	if p.Address != nil {
		set["location.address"] = *p.Address
	}
	if p.Latitude != nil {
		set["location.latitude"] = *p.Latitude
	}
	if p.Longitude != nil {
		set["location.longitude"] = *p.Longitude
	}
	if p.Severity != nil {
		set["severity"] = *p.Severity
	}
	return set
}

// Update applies p and stamps updatedAt.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, p Patch) error {
	set := p.set()
	set["updatedAt"] = time.Now().UTC()
	return s.updateOne(ctx, "update report", id, set)
}

// Delete removes the report. Nothing references it, so nothing cascades.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.Storage("delete report", err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("report")
	}
	return nil
}

// Assignment is the worker snapshot written when a report is assigned.
type Assignment struct {
	WorkerID    primitive.ObjectID
	WorkerName  string
	WorkerEmail string
	OrgID       primitive.ObjectID
}

// Transition moves a report to status to, but only if its current status is
// allowed to reach it (models.StatusesFrom). The check and the write happen
// in one document update. a is required when to is assigned.
//
// Returns NotFound when the report is missing and InvalidTransition when its
// current status forbids the move; in both cases nothing is written.
func (s *Store) Transition(ctx context.Context, id primitive.ObjectID, to models.ReportStatus, a *Assignment) (models.Report, error) {
	to = to.Canonical()
	set := bson.M{"status": to, "updatedAt": time.Now().UTC()}
	if to == models.StatusAssigned {
		if a == nil {
			return models.Report{}, apperr.Validation("assignment requires a worker")
		}
		set["assignedTo"] = a.WorkerID
		set["workerName"] = a.WorkerName
		set["workerEmail"] = a.WorkerEmail
		set["ngoId"] = a.OrgID
	}
	filter := bson.M{"_id": id, "status": bson.M{"$in": models.StatusesFrom(to)}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var r models.Report
	err := s.c.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&r)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Report{}, apperr.Storage("transition report", err)
	}

	cur, gerr := s.Get(ctx, id)
	if gerr != nil {
		return models.Report{}, gerr
	}
	if cur == nil {
		return models.Report{}, apperr.NotFound("report")
	}
	return models.Report{}, apperr.New(apperr.KindInvalidTransition,
		"cannot move report from %s to %s", cur.Status.Canonical(), to)
}

/* -------------------------------------------------------------------------- */

func unassignedFilter() bson.M {
	return bson.M{"status": bson.M{"$in": models.UnassignedStatuses}}
}

func (s *Store) updateOne(ctx context.Context, op string, id primitive.ObjectID, set bson.M) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return apperr.Storage(op, err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("report")
	}
	return nil
}

func (s *Store) findJoined(ctx context.Context, query string, filter bson.M, sortSpec bson.D) (List, error) {
	l, err := s.find(ctx, query, filter, sortSpec)
	if err != nil {
		return List{}, err
	}
	if err := s.joinWorkers(ctx, l.Items); err != nil {
		return List{}, err
	}
	return l, nil
}

// find runs the sorted query and, if the server rejects it, retries without
// the sort. The retry is logged, counted and flagged on the result.
func (s *Store) find(ctx context.Context, query string, filter bson.M, sortSpec bson.D) (List, error) {
	items, err := s.findSorted(ctx, filter, sortSpec)
	if err == nil {
		return List{Items: items}, nil
	}
	if ctx.Err() != nil {
		return List{}, apperr.Storage("list reports", err)
	}

	s.log.Warn("sorted report query failed; delivering unordered",
		zap.String("query", query), zap.Error(err))
	s.metrics.SortFallback(query)

	items, err = s.findAll(ctx, filter, options.Find())
	if err != nil {
		return List{}, apperr.Storage("list reports", err)
	}
	return List{Items: items, Unordered: true}, nil
}

func (s *Store) findAll(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Report, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	items := []models.Report{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

type workerCard struct {
	ID    primitive.ObjectID `bson:"_id"`
	Name  string             `bson:"name"`
	Email string             `bson:"email"`
}

// joinWorkers overwrites workerName/workerEmail with the assigned worker's
// current profile. A missing worker clears both fields instead of failing.
func (s *Store) joinWorkers(ctx context.Context, items []models.Report) error {
	idSet := map[primitive.ObjectID]struct{}{}
	for _, r := range items {
		if r.AssignedTo != nil {
			idSet[*r.AssignedTo] = struct{}{}
		}
	}
	if len(idSet) == 0 {
		return nil
	}
	ids := make([]primitive.ObjectID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"name": 1, "email": 1}))
	if err != nil {
		return apperr.Storage("join workers", err)
	}
	defer cur.Close(ctx)
	var cards []workerCard
	if err := cur.All(ctx, &cards); err != nil {
		return apperr.Storage("join workers", err)
	}
	byID := make(map[primitive.ObjectID]workerCard, len(cards))
	for _, c := range cards {
		byID[c.ID] = c
	}

	for i := range items {
		if items[i].AssignedTo == nil {
			continue
		}
		c, ok := byID[*items[i].AssignedTo]
		if !ok {
			items[i].WorkerName, items[i].WorkerEmail = nil, nil
			continue
		}
		name, email := c.Name, c.Email
		items[i].WorkerName, items[i].WorkerEmail = &name, &email
	}
	return nil
}

func sortByUpdatedDesc(items []models.Report) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
			return items[i].UpdatedAt.After(items[j].UpdatedAt)
		}
		return items[i].ID.Hex() > items[j].ID.Hex()
	})
}
