package directory_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wastehub/wastehub/internal/app/directory"
	"github.com/wastehub/wastehub/internal/app/system/apperr"
	"github.com/wastehub/wastehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeAccounts struct {
	mu      sync.Mutex
	emails  map[string]primitive.ObjectID
	removed []primitive.ObjectID
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{emails: map[string]primitive.ObjectID{}}
}

func (f *fakeAccounts) CreateAccount(_ context.Context, email, _ string, _ string) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.emails[email]; ok {
		return primitive.NilObjectID, apperr.New(apperr.KindConflict, "email is already registered")
	}
	id := primitive.NewObjectID()
	f.emails[email] = id
	return id, nil
}

func (f *fakeAccounts) RemoveAccount(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	return nil
}

type fakeProfiles struct {
	mu        sync.Mutex
	users     map[primitive.ObjectID]models.User
	createErr error
	listErr   error
	lists     atomic.Int32
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{users: map[primitive.ObjectID]models.User{}}
}

func (f *fakeProfiles) Create(_ context.Context, u models.User) (models.User, error) {
	if f.createErr != nil {
		return models.User{}, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeProfiles) GetWorker(_ context.Context, id primitive.ObjectID) (models.Worker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.Role != models.RoleWorker {
		return models.Worker{}, apperr.NotFound("worker")
	}
	return toWorker(u), nil
}

func (f *fakeProfiles) WorkersByOrg(_ context.Context, orgID primitive.ObjectID) ([]models.Worker, error) {
	f.lists.Add(1)
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Worker{}
	for _, u := range f.users {
		if u.Role == models.RoleWorker && u.OrgID != nil && *u.OrgID == orgID {
			out = append(out, toWorker(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeProfiles) put(u models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
}

func toWorker(u models.User) models.Worker {
	w := models.Worker{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Role: u.Role, IsActive: u.IsActive, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
	if u.OrgID != nil {
		w.OrgID = *u.OrgID
	}
	return w
}

func validInput() directory.CreateWorkerInput {
	return directory.CreateWorkerInput{Name: " Ravi  Kumar ", Email: "Ravi@Example.com", Phone: "+91 98765 43210", Password: "s3cret-pass"}
}

func TestCreateWorker(t *testing.T) {
	accounts, profiles := newFakeAccounts(), newFakeProfiles()
	d := directory.New(accounts, profiles, directory.Options{})
	orgID := primitive.NewObjectID()

	w, err := d.CreateWorker(context.Background(), orgID, validInput())
	require.NoError(t, err)
	require.Equal(t, "Ravi Kumar", w.Name)
	require.Equal(t, "ravi@example.com", w.Email)
	require.Equal(t, "+919876543210", w.Phone)
	require.Equal(t, models.RoleWorker, w.Role)
	require.Equal(t, orgID, w.OrgID)
	require.False(t, w.IsActive)

	got, err := d.GetWorkerByID(context.Background(), w.ID)
	require.NoError(t, err)
	require.Equal(t, w.ID, got.ID)

	_, err = d.CreateWorker(context.Background(), orgID, validInput())
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCreateWorker_Validation(t *testing.T) {
	d := directory.New(newFakeAccounts(), newFakeProfiles(), directory.Options{})
	tests := []struct {
		name string
		mut  func(*directory.CreateWorkerInput)
	}{
		{"no name", func(in *directory.CreateWorkerInput) { in.Name = "  " }},
		{"bad email", func(in *directory.CreateWorkerInput) { in.Email = "ravi" }},
		{"no phone", func(in *directory.CreateWorkerInput) { in.Phone = "" }},
		{"short password", func(in *directory.CreateWorkerInput) { in.Password = "abc" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mut(&in)
			_, err := d.CreateWorker(context.Background(), primitive.NewObjectID(), in)
			require.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestCreateWorker_RollsBackIdentity(t *testing.T) {
	accounts, profiles := newFakeAccounts(), newFakeProfiles()
	profiles.createErr = apperr.Storage("insert user", errors.New("down"))
	d := directory.New(accounts, profiles, directory.Options{})

	_, err := d.CreateWorker(context.Background(), primitive.NewObjectID(), validInput())
	require.ErrorIs(t, err, apperr.ErrStorageUnavailable)
	require.Len(t, accounts.removed, 1)
}

func TestGetWorkerByID_NotFound(t *testing.T) {
	d := directory.New(newFakeAccounts(), newFakeProfiles(), directory.Options{})
	_, err := d.GetWorkerByID(context.Background(), primitive.NewObjectID())
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

/* ---------------------------- roster feed ---------------------------- */

type chanStream struct {
	events chan struct{}
	err    error
	closed atomic.Bool
}

func (c *chanStream) Next(ctx context.Context) bool {
	select {
	case _, ok := <-c.events:
		return ok
	case <-ctx.Done():
		return false
	}
}
func (c *chanStream) Err() error                  { return c.err }
func (c *chanStream) Close(context.Context) error { c.closed.Store(true); return nil }

type fakeWatcher struct {
	stream *chanStream
	err    error
}

func (f fakeWatcher) WatchRoster(context.Context, primitive.ObjectID) (directory.ChangeStream, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

type recorder struct {
	mu    sync.Mutex
	snaps [][]models.Worker
	errs  []error
	ch    chan struct{}
}

func newRecorder() *recorder { return &recorder{ch: make(chan struct{}, 16)} }

func (r *recorder) onData(ws []models.Worker) {
	r.mu.Lock()
	r.snaps = append(r.snaps, ws)
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
}

func (r *recorder) count() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps), len(r.errs)
}

func worker(orgID primitive.ObjectID, name string) models.User {
	return models.User{ID: primitive.NewObjectID(), Name: name, Role: models.RoleWorker, OrgID: &orgID, UpdatedAt: time.Now().UTC()}
}

func TestSubscribeWorkers_ChangeStream(t *testing.T) {
	profiles := newFakeProfiles()
	orgID := primitive.NewObjectID()
	profiles.put(worker(orgID, "Anil"))
	profiles.put(worker(primitive.NewObjectID(), "Elsewhere"))

	stream := &chanStream{events: make(chan struct{}, 1)}
	d := directory.New(newFakeAccounts(), profiles, directory.Options{Watcher: fakeWatcher{stream: stream}})
	rec := newRecorder()

	sub := d.SubscribeWorkers(orgID, rec.onData, rec.onError)
	require.NotEmpty(t, sub.ID)

	rec.wait(t)
	require.Len(t, rec.snaps[0], 1, "initial snapshot")

	profiles.put(worker(orgID, "Bina"))
	stream.events <- struct{}{}
	rec.wait(t)
	rec.mu.Lock()
	require.Len(t, rec.snaps[1], 2)
	rec.mu.Unlock()

	sub.Cancel()
	sub.Cancel()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop")
	}
	require.True(t, stream.closed.Load())
	snaps, errs := rec.count()
	require.Equal(t, 2, snaps)
	require.Equal(t, 0, errs)
}

func TestSubscribeWorkers_StreamFailureReportsError(t *testing.T) {
	profiles := newFakeProfiles()
	stream := &chanStream{events: make(chan struct{}), err: errors.New("cursor killed")}
	d := directory.New(newFakeAccounts(), profiles, directory.Options{Watcher: fakeWatcher{stream: stream}})
	rec := newRecorder()

	sub := d.SubscribeWorkers(primitive.NewObjectID(), rec.onData, rec.onError)
	defer sub.Cancel()

	rec.wait(t) // initial snapshot
	close(stream.events)
	rec.wait(t)
	<-sub.Done()

	snaps, errs := rec.count()
	require.Equal(t, 1, snaps)
	require.Equal(t, 1, errs)
}

func TestSubscribeWorkers_PollingFallback(t *testing.T) {
	profiles := newFakeProfiles()
	orgID := primitive.NewObjectID()
	profiles.put(worker(orgID, "Anil"))

	d := directory.New(newFakeAccounts(), profiles, directory.Options{
		Watcher:      fakeWatcher{err: errors.New("$changeStream is only supported on replica sets")},
		PollInterval: 10 * time.Millisecond,
	})
	rec := newRecorder()
	sub := d.SubscribeWorkers(orgID, rec.onData, rec.onError)
	defer sub.Cancel()

	rec.wait(t)
	// Unchanged polls deliver nothing.
	deadline := profiles.lists.Load() + 3
	for profiles.lists.Load() < deadline {
		time.Sleep(5 * time.Millisecond)
	}
	snaps, _ := rec.count()
	require.Equal(t, 1, snaps)

	profiles.put(worker(orgID, "Bina"))
	rec.wait(t)
	rec.mu.Lock()
	require.Len(t, rec.snaps[1], 2)
	rec.mu.Unlock()
}

func TestSubscribeWorkers_NoCallbacksAfterCancel(t *testing.T) {
	profiles := newFakeProfiles()
	orgID := primitive.NewObjectID()
	d := directory.New(newFakeAccounts(), profiles, directory.Options{PollInterval: time.Millisecond})
	rec := newRecorder()

	sub := d.SubscribeWorkers(orgID, rec.onData, rec.onError)
	rec.wait(t)
	sub.Cancel()
	<-sub.Done()
	before, _ := rec.count()

	profiles.put(worker(orgID, "Late"))
	time.Sleep(20 * time.Millisecond)
	after, errs := rec.count()
	require.Equal(t, before, after)
	require.Equal(t, 0, errs)
	sub.Cancel()
}

func TestSubscribeWorkers_InitialLoadFailure(t *testing.T) {
	profiles := newFakeProfiles()
	profiles.listErr = apperr.Storage("list workers", errors.New("down"))
	d := directory.New(newFakeAccounts(), profiles, directory.Options{})
	rec := newRecorder()

	sub := d.SubscribeWorkers(primitive.NewObjectID(), rec.onData, rec.onError)
	rec.wait(t)
	<-sub.Done()
	snaps, errs := rec.count()
	require.Equal(t, 0, snaps)
	require.Equal(t, 1, errs)
	require.ErrorIs(t, rec.errs[0], apperr.ErrStorageUnavailable)
}

func TestSubscribeWorkers_IndependentHandles(t *testing.T) {
	profiles := newFakeProfiles()
	orgID := primitive.NewObjectID()
	d := directory.New(newFakeAccounts(), profiles, directory.Options{PollInterval: 5 * time.Millisecond})
	a, b := newRecorder(), newRecorder()

	subA := d.SubscribeWorkers(orgID, a.onData, a.onError)
	subB := d.SubscribeWorkers(orgID, b.onData, b.onError)
	defer subB.Cancel()
	require.NotEqual(t, subA.ID, subB.ID)
	a.wait(t)
	b.wait(t)

	subA.Cancel()
	<-subA.Done()
	profiles.put(worker(orgID, "New"))
	b.wait(t)
	snapsA, _ := a.count()
	require.Equal(t, 1, snapsA)
}

// mutatingWatcher changes the roster while the feed is being opened.
type mutatingWatcher struct {
	fakeWatcher
	onWatch func()
}

func (m mutatingWatcher) WatchRoster(ctx context.Context, orgID primitive.ObjectID) (directory.ChangeStream, error) {
	m.onWatch()
	return m.fakeWatcher.WatchRoster(ctx, orgID)
}

func TestSubscribeWorkers_ChangeWhileOpeningIsInFirstSnapshot(t *testing.T) {
	profiles := newFakeProfiles()
	orgID := primitive.NewObjectID()
	profiles.put(worker(orgID, "Anil"))

	stream := &chanStream{events: make(chan struct{}, 1)}
	d := directory.New(newFakeAccounts(), profiles, directory.Options{Watcher: mutatingWatcher{
		fakeWatcher: fakeWatcher{stream: stream},
		onWatch:     func() { profiles.put(worker(orgID, "Chitra")) },
	}})
	rec := newRecorder()
	sub := d.SubscribeWorkers(orgID, rec.onData, rec.onError)
	defer sub.Cancel()

	rec.wait(t)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.snaps[0], 2)
	require.Equal(t, "Chitra", rec.snaps[0][1].Name)
}

func TestSubscribeWorkers_InitialLoadFailureClosesStream(t *testing.T) {
	profiles := newFakeProfiles()
	profiles.listErr = apperr.Storage("list workers", errors.New("down"))
	stream := &chanStream{events: make(chan struct{})}
	d := directory.New(newFakeAccounts(), profiles, directory.Options{Watcher: fakeWatcher{stream: stream}})
	rec := newRecorder()

	sub := d.SubscribeWorkers(primitive.NewObjectID(), rec.onData, rec.onError)
	rec.wait(t)
	<-sub.Done()
	require.True(t, stream.closed.Load())
	_, errs := rec.count()
	require.Equal(t, 1, errs)
}

func TestSubscribeWorkers_CancelWaitsForRunningCallback(t *testing.T) {
	profiles := newFakeProfiles()
	orgID := primitive.NewObjectID()
	stream := &chanStream{events: make(chan struct{}, 1)}
	d := directory.New(newFakeAccounts(), profiles, directory.Options{Watcher: fakeWatcher{stream: stream}})

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	var cancelled atomic.Bool
	var late atomic.Int32
	sub := d.SubscribeWorkers(orgID,
		func([]models.Worker) {
			if cancelled.Load() {
				late.Add(1)
			}
			once.Do(func() { close(entered) })
			<-release
		},
		func(error) {
			if cancelled.Load() {
				late.Add(1)
			}
		})

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first snapshot")
	}
	// A change is queued behind the callback that is still running.
	stream.events <- struct{}{}

	returned := make(chan struct{})
	go func() {
		sub.Cancel()
		cancelled.Store(true)
		close(returned)
	}()
	select {
	case <-returned:
		t.Fatal("Cancel returned while a callback was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Cancel did not return")
	}
	<-sub.Done()
	require.Zero(t, late.Load())
}
