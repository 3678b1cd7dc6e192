package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/waypoint/internal/storage"
	"github.com/starford/waypoint/internal/testutil"
	"github.com/starford/waypoint/internal/tracker"
)

func testEnv(t *testing.T, auth Auth) http.Handler {
	t.Helper()
	return NewRouter(testutil.Tracker(t), auth, nil)
}

type call struct {
	method    string
	path      string
	body      any
	principal string
	headers   map[string]string
}

func do(t *testing.T, router http.Handler, c call) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		if err := json.NewEncoder(&buf).Encode(c.body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	if c.principal != "" {
		req.Header.Set(PrincipalHeader, c.principal)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func createGoal(t *testing.T, router http.Handler, principal, title string) Goal {
	t.Helper()
	w := do(t, router, call{method: http.MethodPost, path: "/goals", principal: principal, body: GoalRequest{
		Title: title, Description: "desc", StartDate: "2024-01-01", TargetDate: "2024-12-31",
	}})
	if w.Code != http.StatusCreated {
		t.Fatalf("create goal status = %d, body = %s", w.Code, w.Body.String())
	}
	return decode[Goal](t, w)
}

func createMilestone(t *testing.T, router http.Handler, goalID, title string) Milestone {
	t.Helper()
	w := do(t, router, call{method: http.MethodPost, path: "/milestones", body: AddMilestoneRequest{
		GoalID:           goalID,
		MilestoneRequest: MilestoneRequest{Title: title, Description: "...", TargetDate: "2024-02-01"},
	}})
	if w.Code != http.StatusCreated {
		t.Fatalf("create milestone status = %d, body = %s", w.Code, w.Body.String())
	}
	return decode[Milestone](t, w)
}

func TestCreateAndGetGoal(t *testing.T) {
	router := testEnv(t, Auth{})

	g := createGoal(t, router, "p1", "Learn Go")
	if g.Owner.String() != "p1" {
		t.Errorf("owner = %q, want p1", g.Owner)
	}
	if g.ID == "" {
		t.Fatal("empty id")
	}

	w := do(t, router, call{method: http.MethodGet, path: "/goals/" + g.ID, principal: "p1"})
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if w.Header().Get("ETag") == "" {
		t.Error("missing ETag")
	}
	got := decode[Goal](t, w)
	if got.Title != "Learn Go" || got.Milestones == nil {
		t.Errorf("unexpected goal %+v", got)
	}
}

func TestGetGoal_NotModified(t *testing.T) {
	router := testEnv(t, Auth{})
	g := createGoal(t, router, "p1", "Learn Go")

	w := do(t, router, call{method: http.MethodGet, path: "/goals/" + g.ID, principal: "p1"})
	etag := w.Header().Get("ETag")

	w = do(t, router, call{method: http.MethodGet, path: "/goals/" + g.ID, principal: "p1", headers: map[string]string{"If-None-Match": etag}})
	if w.Code != http.StatusNotModified {
		t.Errorf("status = %d, want 304", w.Code)
	}
}

func TestGoalOwnership(t *testing.T) {
	router := testEnv(t, Auth{})
	g := createGoal(t, router, "p1", "Learn Go")

	w := do(t, router, call{method: http.MethodPut, path: "/goals/" + g.ID, principal: "p2", body: GoalRequest{Title: "Hijacked"}})
	if w.Code != http.StatusForbidden {
		t.Fatalf("update by non-owner = %d, want 403", w.Code)
	}
	body := decode[errResponse](t, w)
	if body.Kind != "unauthorized" || body.Error != "You are not authorized to access Goal" {
		t.Errorf("unexpected error body %+v", body)
	}

	w = do(t, router, call{method: http.MethodPut, path: "/goals/" + g.ID, principal: "p1", body: GoalRequest{Title: "Learn Go well"}})
	if w.Code != http.StatusOK {
		t.Fatalf("update by owner = %d, body = %s", w.Code, w.Body.String())
	}
	updated := decode[Goal](t, w)
	if updated.Title != "Learn Go well" || updated.Description != "desc" {
		t.Errorf("unexpected update result %+v", updated)
	}
	if updated.UpdatedAt == nil {
		t.Error("updated_at not set")
	}
}

func TestGoalNotFound(t *testing.T) {
	router := testEnv(t, Auth{})

	w := do(t, router, call{method: http.MethodDelete, path: "/goals/missing"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	body := decode[errResponse](t, w)
	if body.Kind != "not_found" || body.Error != "Goal with id:missing not found" {
		t.Errorf("unexpected error body %+v", body)
	}
}

func TestCreateGoal_Validation(t *testing.T) {
	router := testEnv(t, Auth{})

	w := do(t, router, call{method: http.MethodPost, path: "/goals", body: GoalRequest{Title: "only a title"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if body := decode[errResponse](t, w); body.Kind != "validation_error" {
		t.Errorf("kind = %q", body.Kind)
	}

	req := httptest.NewRequest(http.MethodPost, "/goals", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON status = %d, want 400", rec.Code)
	}

	w = do(t, router, call{method: http.MethodGet, path: "/goals"})
	if goals := decode[[]Goal](t, w); len(goals) != 0 {
		t.Errorf("failed create left %d goals", len(goals))
	}
}

func TestInsertMilestone_GoalTooLarge(t *testing.T) {
	tr, err := tracker.New(storage.NewMemory(), storage.Limits{MaxKeySize: 64, MaxValueSize: 700})
	if err != nil {
		t.Fatal(err)
	}
	router := NewRouter(tr, Auth{}, nil)
	g := createGoal(t, router, "p1", "Learn Go")
	m := createMilestone(t, router, g.ID, "Chapter 1")

	var w *httptest.ResponseRecorder
	for range 10 {
		w = do(t, router, call{method: http.MethodPost, path: "/goals/" + g.ID + "/milestones/" + m.ID, principal: "p1"})
		if w.Code != http.StatusOK {
			break
		}
	}
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", w.Code, w.Body.String())
	}
	body := decode[errResponse](t, w)
	if body.Kind != "validation_error" || body.Error != "Goal exceeds the record size limit" {
		t.Errorf("unexpected error body %+v", body)
	}
}

func TestListSearchAndByUser(t *testing.T) {
	router := testEnv(t, Auth{})
	createGoal(t, router, "p1", "Learn Go")
	createGoal(t, router, "p2", "Run a marathon")
	createGoal(t, router, "p1", "Read more")

	w := do(t, router, call{method: http.MethodGet, path: "/goals"})
	if goals := decode[[]Goal](t, w); len(goals) != 3 {
		t.Errorf("list = %d goals, want 3", len(goals))
	}

	w = do(t, router, call{method: http.MethodGet, path: "/goals/search?q=MARATHON"})
	hits := decode[[]Goal](t, w)
	if len(hits) != 1 || hits[0].Title != "Run a marathon" {
		t.Errorf("search hits = %+v", hits)
	}

	w = do(t, router, call{method: http.MethodGet, path: "/goals/search"})
	if all := decode[[]Goal](t, w); len(all) != 3 {
		t.Errorf("empty search = %d goals, want 3", len(all))
	}

	w = do(t, router, call{method: http.MethodGet, path: "/users/p1/goals"})
	if mine := decode[[]Goal](t, w); len(mine) != 2 {
		t.Errorf("by user = %d goals, want 2", len(mine))
	}
}

func TestMilestoneFlow(t *testing.T) {
	router := testEnv(t, Auth{})
	g := createGoal(t, router, "p1", "Learn Go")
	m := createMilestone(t, router, g.ID, "Chapter 1")
	if m.IsCompleted || m.GoalID != g.ID {
		t.Fatalf("unexpected milestone %+v", m)
	}

	w := do(t, router, call{method: http.MethodPost, path: "/milestones/" + m.ID + "/complete"})
	if w.Code != http.StatusOK || !decode[Milestone](t, w).IsCompleted {
		t.Fatalf("complete status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, call{method: http.MethodPost, path: "/goals/" + g.ID + "/milestones/" + m.ID, principal: "p1"})
	if w.Code != http.StatusOK {
		t.Fatalf("insert status = %d, body = %s", w.Code, w.Body.String())
	}
	withM := decode[Goal](t, w)
	if len(withM.Milestones) != 1 || !withM.Milestones[0].IsCompleted {
		t.Fatalf("embedded = %+v", withM.Milestones)
	}

	w = do(t, router, call{method: http.MethodPost, path: "/milestones/" + m.ID + "/incomplete"})
	if w.Code != http.StatusOK || decode[Milestone](t, w).IsCompleted {
		t.Fatalf("incomplete status = %d", w.Code)
	}

	w = do(t, router, call{method: http.MethodGet, path: "/goals/" + g.ID, principal: "p1"})
	if got := decode[Goal](t, w); !got.Milestones[0].IsCompleted {
		t.Error("embedded snapshot followed the live milestone")
	}

	w = do(t, router, call{method: http.MethodGet, path: "/goals/" + g.ID + "/milestones"})
	if ms := decode[[]Milestone](t, w); len(ms) != 1 {
		t.Errorf("by goal = %d, want 1", len(ms))
	}

	w = do(t, router, call{method: http.MethodDelete, path: "/goals/" + g.ID + "/milestones/" + m.ID, principal: "p1"})
	if got := decode[Goal](t, w); w.Code != http.StatusOK || len(got.Milestones) != 0 {
		t.Errorf("remove status = %d, milestones = %d", w.Code, len(got.Milestones))
	}
}

func TestMilestoneEndpoints(t *testing.T) {
	router := testEnv(t, Auth{})
	m := createMilestone(t, router, "goal-x", "Read Chapter")
	createMilestone(t, router, "goal-y", "Other")

	w := do(t, router, call{method: http.MethodGet, path: "/milestones"})
	if ms := decode[[]Milestone](t, w); len(ms) != 2 {
		t.Errorf("list = %d, want 2", len(ms))
	}

	w = do(t, router, call{method: http.MethodGet, path: "/milestones/search?q=chapter"})
	if ms := decode[[]Milestone](t, w); len(ms) != 1 {
		t.Errorf("search = %d, want 1", len(ms))
	}

	w = do(t, router, call{method: http.MethodPut, path: "/milestones/" + m.ID, body: MilestoneRequest{TargetDate: "2025-01-01"}})
	if got := decode[Milestone](t, w); w.Code != http.StatusOK || got.TargetDate != "2025-01-01" || got.Title != "Read Chapter" {
		t.Errorf("update status = %d, body = %+v", w.Code, got)
	}

	// The access check compares the goal id with the caller.
	w = do(t, router, call{method: http.MethodGet, path: "/milestones/" + m.ID, principal: "p1"})
	if w.Code != http.StatusForbidden {
		t.Errorf("get status = %d, want 403", w.Code)
	}
	w = do(t, router, call{method: http.MethodGet, path: "/milestones/" + m.ID, principal: "goal-x"})
	if w.Code != http.StatusOK {
		t.Errorf("get status = %d, want 200", w.Code)
	}
	w = do(t, router, call{method: http.MethodDelete, path: "/milestones/" + m.ID, principal: "goal-x"})
	if w.Code != http.StatusOK {
		t.Errorf("delete status = %d, want 200", w.Code)
	}
	w = do(t, router, call{method: http.MethodPost, path: "/milestones/" + m.ID + "/complete"})
	if w.Code != http.StatusNotFound {
		t.Errorf("complete deleted status = %d, want 404", w.Code)
	}
}

func TestAuthTokenMode(t *testing.T) {
	router := testEnv(t, Auth{Mode: AuthModeToken, Tokens: map[string]string{"secret-1": "alice"}})

	w := do(t, router, call{method: http.MethodGet, path: "/goals"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}
	w = do(t, router, call{method: http.MethodGet, path: "/goals", headers: map[string]string{"Authorization": "Bearer wrong"}})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}

	w = do(t, router, call{method: http.MethodPost, path: "/goals", headers: map[string]string{"Authorization": "Bearer secret-1"},
		body: GoalRequest{Title: "t", Description: "d", StartDate: "s", TargetDate: "e"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, body = %s", w.Code, w.Body.String())
	}
	if g := decode[Goal](t, w); g.Owner.String() != "alice" {
		t.Errorf("owner = %q, want alice", g.Owner)
	}
}

func TestAuthTokenMode_IgnoresPrincipalHeader(t *testing.T) {
	router := testEnv(t, Auth{Mode: AuthModeToken, Tokens: map[string]string{"secret-1": "alice"}})
	w := do(t, router, call{method: http.MethodGet, path: "/goals", principal: "alice"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("header only = %d, want 401", w.Code)
	}
}

func TestAuthJWTMode(t *testing.T) {
	const secret = "jwt-secret"
	router := testEnv(t, Auth{Mode: AuthModeJWT, Secret: secret})

	tok, err := IssueToken(secret, "bob", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	w := do(t, router, call{method: http.MethodPost, path: "/goals", headers: map[string]string{"Authorization": "Bearer " + tok},
		body: GoalRequest{Title: "t", Description: "d", StartDate: "s", TargetDate: "e"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, body = %s", w.Code, w.Body.String())
	}
	if g := decode[Goal](t, w); g.Owner.String() != "bob" {
		t.Errorf("owner = %q, want bob", g.Owner)
	}

	forged, err := IssueToken("other-secret", "bob", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	w = do(t, router, call{method: http.MethodGet, path: "/goals", headers: map[string]string{"Authorization": "Bearer " + forged}})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("forged token = %d, want 401", w.Code)
	}
}

func TestParseToken(t *testing.T) {
	tok, err := IssueToken("s", "carol", 0)
	if err != nil {
		t.Fatal(err)
	}
	sub, err := ParseToken("s", tok)
	if err != nil || sub != "carol" {
		t.Errorf("ParseToken = %q, %v", sub, err)
	}

	expired, err := IssueToken("s", "carol", time.Nanosecond)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(1100 * time.Millisecond)
	if _, err := ParseToken("s", expired); err == nil {
		t.Error("expected expired token to fail")
	}

	if _, err := IssueToken("", "carol", time.Hour); err == nil {
		t.Error("expected empty secret to fail")
	}
}

func TestEventsRouteMounted(t *testing.T) {
	called := false
	sse := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	router := NewRouter(testutil.Tracker(t), Auth{}, sse)

	w := do(t, router, call{method: http.MethodGet, path: "/events"})
	if w.Code != http.StatusOK || !called {
		t.Errorf("events status = %d, called = %v", w.Code, called)
	}
}
