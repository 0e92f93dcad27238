package workers_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wastehub/wastehub/internal/app/directory"
	"github.com/wastehub/wastehub/internal/app/features/workers"
	credentialstore "github.com/wastehub/wastehub/internal/app/store/credentials"
	reportstore "github.com/wastehub/wastehub/internal/app/store/reports"
	userstore "github.com/wastehub/wastehub/internal/app/store/users"
	"github.com/wastehub/wastehub/internal/app/system/auth"
	"github.com/wastehub/wastehub/internal/app/system/identity"
	"github.com/wastehub/wastehub/internal/app/system/indexes"
	"github.com/wastehub/wastehub/internal/domain/models"
	"github.com/wastehub/wastehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*workers.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	dir := directory.New(identity.NewProvider(credentialstore.New(db)), userstore.New(db), directory.Options{
		PollInterval: 20 * time.Millisecond,
	})
	h := workers.NewHandler(dir, reportstore.New(db, zap.NewNop(), nil), nil, zap.NewNop())
	return h, testutil.NewFixtures(t, db)
}

func adminOf(org models.Organization) auth.SessionUser {
	u := testutil.AdminUser()
	u.ID, u.OrgID = org.ID.Hex(), org.ID.Hex()
	return u
}

func TestHandleCreateAndServeWorker(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "A")
	other := fx.CreateOrganization(ctx, "B")

	body := `{"name":"Ravi Kumar","email":"ravi@example.com","phone":"98765 43210","password":"s3cret-pass"}`
	rec := httptest.NewRecorder()
	h.HandleCreate(rec, testutil.WithUser(testutil.NewRequest("POST", "/api/workers", body), adminOf(org)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	var created models.Worker
	testutil.DecodeJSON(t, rec, &created)
	if created.OrgID != org.ID || created.Role != models.RoleWorker || created.IsActive {
		t.Errorf("created = %+v", created)
	}

	rec = httptest.NewRecorder()
	h.HandleCreate(rec, testutil.WithUser(testutil.NewRequest("POST", "/api/workers", body), adminOf(org)))
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate: expected status %d, got %d", http.StatusConflict, rec.Code)
	}

	get := func(u auth.SessionUser, id primitive.ObjectID) int {
		rec := httptest.NewRecorder()
		req := testutil.WithChiURLParam(testutil.WithUser(httptest.NewRequest("GET", "/", nil), u), "id", id.Hex())
		h.ServeWorker(rec, req)
		return rec.Code
	}
	self := testutil.WorkerUser(org.ID)
	self.ID = created.ID.Hex()

	if code := get(adminOf(org), created.ID); code != http.StatusOK {
		t.Errorf("own admin: got %d", code)
	}
	if code := get(adminOf(other), created.ID); code != http.StatusNotFound {
		t.Errorf("other admin: got %d", code)
	}
	if code := get(self, created.ID); code != http.StatusOK {
		t.Errorf("self: got %d", code)
	}
	if code := get(testutil.WorkerUser(org.ID), created.ID); code != http.StatusNotFound {
		t.Errorf("colleague: got %d", code)
	}
	if code := get(adminOf(org), primitive.NewObjectID()); code != http.StatusNotFound {
		t.Errorf("missing: got %d", code)
	}
}

func TestHandleCreate_Validation(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "A")

	rec := httptest.NewRecorder()
	h.HandleCreate(rec, testutil.WithUser(testutil.NewRequest("POST", "/api/workers", `{"name":"Ravi","email":"ravi@example.com"}`), adminOf(org)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestServeTasks(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "A")
	w := fx.CreateWorker(ctx, "Ravi", "ravi@example.com", org.ID)

	for _, s := range []models.ReportStatus{models.StatusAssigned, models.StatusInProgress, models.StatusResolved, models.StatusResolved} {
		fx.CreateReport(ctx, models.Report{Status: s, AssignedTo: &w.ID, NGOID: &org.ID})
	}
	fx.CreateReport(ctx, models.Report{})

	rec := httptest.NewRecorder()
	req := testutil.WithChiURLParam(testutil.WithUser(httptest.NewRequest("GET", "/", nil), adminOf(org)), "id", w.ID.Hex())
	h.ServeTasks(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var ts reportstore.TaskSummary
	testutil.DecodeJSON(t, rec, &ts)
	if len(ts.Assigned) != 1 || len(ts.InProgress) != 1 || len(ts.Resolved) != 2 {
		t.Errorf("summary = %d/%d/%d", len(ts.Assigned), len(ts.InProgress), len(ts.Resolved))
	}
}

func TestServeStream(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fx.CreateOrganization(ctx, "A")
	fx.CreateWorker(ctx, "Ravi", "ravi@example.com", org.ID)

	admin := adminOf(org)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeStream(w, testutil.WithUser(r, admin))
	}))
	defer srv.Close()

	reqCtx, stop := context.WithCancel(ctx)
	defer stop()
	req, _ := http.NewRequestWithContext(reqCtx, "GET", srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	events := make(chan [2]string, 8)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		var event string
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				events <- [2]string{event, strings.TrimPrefix(line, "data: ")}
			}
		}
		close(events)
	}()

	next := func(want string) string {
		t.Helper()
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					t.Fatalf("stream ended waiting for %q", want)
				}
				if ev[0] == want {
					return ev[1]
				}
			case <-time.After(3 * time.Second):
				t.Fatalf("timed out waiting for %q", want)
			}
		}
	}
	rosterSize := func(data string) int {
		var body struct {
			Items []models.Worker `json:"items"`
		}
		if err := json.Unmarshal([]byte(data), &body); err != nil {
			t.Fatalf("bad roster event %q: %v", data, err)
		}
		return len(body.Items)
	}

	next("subscribed")
	if n := rosterSize(next("roster")); n != 1 {
		t.Fatalf("initial roster: %d workers, want 1", n)
	}

	fx.CreateWorker(ctx, "Meena", "meena@example.com", org.ID)
	if n := rosterSize(next("roster")); n != 2 {
		t.Errorf("updated roster: %d workers, want 2", n)
	}
}

func TestRoutes_Roles(t *testing.T) {
	h, _ := newTestHandler(t)
	r := workers.Routes(h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, testutil.WithUser(testutil.NewRequest("POST", "/", `{}`), testutil.WorkerUser(primitive.NewObjectID())))
	if rec.Code != http.StatusForbidden {
		t.Errorf("worker create: expected status %d, got %d", http.StatusForbidden, rec.Code)
	}
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, testutil.WithUser(httptest.NewRequest("GET", "/stream", nil), testutil.CitizenUser()))
	if rec.Code != http.StatusForbidden {
		t.Errorf("citizen stream: expected status %d, got %d", http.StatusForbidden, rec.Code)
	}
}
