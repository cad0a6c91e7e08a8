package ipc

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rogersf/strips-engine/internal/domain"
	"github.com/rogersf/strips-engine/internal/guard"
	"github.com/rogersf/strips-engine/internal/planner"
	"github.com/rogersf/strips-engine/internal/store"
)

const doorYAML = `name: door
strategy: bnb
bound: 10
heuristic: zero
domain:
  universe:
    door: [open, closed, locked]
    key: [held, lost]
  actions:
    - name: unlock
      pre: {door: locked, key: held}
      eff: {door: closed}
      cost: 2
    - name: open
      pre: {door: closed}
      eff: {door: open}
initial:
  door: locked
  key: held
goal:
  door: open
`

const towerJSON = `{"name":"tower-abc","domain":{"generator":"blocks","blocks":["a","b","c"]},"goal":{"on(a)":"b","on(b)":"c"}}`

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := store.NewDB(dbPath)
	if err != nil {
		t.Fatalf("create db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := planner.NewService(db, planner.Defaults{Bound: 50, MaxExpansions: 100_000}, planner.WithLogger(logger))
	sessions := planner.NewSessionManager(0, 100_000, logger)
	g := guard.NewGuard(sessions, guard.GuardConfig{
		MaxSessions:        2,
		RateLimitPerMinute: 1000,
	})

	return &Handler{
		Planner:  svc,
		Sessions: sessions,
		Guard:    g,
		Logger:   logger,
	}
}

// yamlBody builds a JSON request body embedding the problem as a YAML string.
func yamlBody(t *testing.T, problem string, extra map[string]any) *bytes.Buffer {
	t.Helper()
	m := map[string]any{"problem": problem}
	for k, v := range extra {
		m[k] = v
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewBuffer(data)
}

func decodeAPIError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	if err := json.NewDecoder(w.Body).Decode(&apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return apiErr
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()

	h.Health(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	json.NewDecoder(w.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

func TestSolve_YAMLProblem(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/solve", yamlBody(t, doorYAML, nil))
	w := httptest.NewRecorder()

	h.Solve(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp SolveResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Found || resp.Status != domain.RunFound {
		t.Fatalf("expected found plan, got found=%v status=%s", resp.Found, resp.Status)
	}
	if resp.Strategy != domain.StrategyBranchAndBound || resp.Bound != 10 {
		t.Errorf("expected bnb with bound 10 from the problem file, got %s %v", resp.Strategy, resp.Bound)
	}
	if resp.Plan == nil || resp.Plan.Cost != 3 || len(resp.Plan.Steps) != 2 {
		t.Fatalf("expected 2-step plan of cost 3, got %+v", resp.Plan)
	}
	if resp.Plan.Steps[0].Action != "unlock" || resp.Plan.Steps[1].Action != "open" {
		t.Errorf("unexpected plan order: %+v", resp.Plan.Steps)
	}
	if len(resp.Improvements) != 1 || resp.Improvements[0] != 3 {
		t.Errorf("expected improvements [3], got %v", resp.Improvements)
	}
	if resp.RunID == "" {
		t.Error("expected run_id")
	}
}

func TestSolve_InlineProblemWithOverrides(t *testing.T) {
	h := newTestHandler(t)
	body := `{"problem":` + towerJSON + `,"direction":"regression","heuristic":"scaled"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/solve", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Solve(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp SolveResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Direction != domain.DirectionRegression {
		t.Errorf("expected regression, got %s", resp.Direction)
	}
	if resp.Heuristic != "scaled" {
		t.Errorf("expected scaled heuristic, got %s", resp.Heuristic)
	}
	if resp.Strategy != domain.StrategyMPP {
		t.Errorf("expected default strategy mpp, got %s", resp.Strategy)
	}
	if resp.Plan == nil || resp.Plan.Cost != 2 {
		t.Fatalf("expected plan of cost 2, got %+v", resp.Plan)
	}
	if resp.Plan.Steps[0].Action != "move(b,table,c)" || resp.Plan.Steps[1].Action != "move(a,table,b)" {
		t.Errorf("expected execution order, got %+v", resp.Plan.Steps)
	}
}

func TestSolve_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed body", `{"problem":`, 0},
		{"missing problem", `{}`, domain.ErrProblemFile.Code},
		{"duplicate block", `{"problem":{"domain":{"generator":"blocks","blocks":["a","a"]},"goal":{"on(a)":"table"}}}`, domain.ErrProblemFile.Code},
		{"problem without goal", `{"problem":{"domain":{"generator":"blocks","blocks":["a"]}}}`, domain.ErrProblemFile.Code},
		{"unknown action proposition", `{"problem":"domain:\n  universe: {door: [open, closed]}\n  actions:\n    - {name: fly, eff: {wings: spread}}\ninitial: {door: closed}\ngoal: {door: open}\n"}`, domain.ErrProblemFile.Code},
		{"unknown heuristic override", `{"problem":` + towerJSON + `,"heuristic":"magic"}`, domain.ErrUnknownHeuristic.Code},
		{"unknown direction override", `{"problem":` + towerJSON + `,"direction":"sideways"}`, domain.ErrUnknownDirection.Code},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/solve", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			h.Solve(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			if tt.code != 0 {
				if apiErr := decodeAPIError(t, w); apiErr.Code != tt.code {
					t.Errorf("expected code %d, got %d (%s)", tt.code, apiErr.Code, apiErr.Message)
				}
			}
		})
	}
}

func TestSolve_RateLimited(t *testing.T) {
	h := newTestHandler(t)
	h.Guard = guard.NewGuard(h.Sessions, guard.GuardConfig{RateLimitPerMinute: 1})

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/solve", yamlBody(t, doorYAML, nil))
		w := httptest.NewRecorder()
		h.Solve(w, req)
		if w.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i, want, w.Code)
		}
	}
}

func TestRunHistory(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/solve", yamlBody(t, doorYAML, nil))
	w := httptest.NewRecorder()
	h.Solve(w, req)
	var solved SolveResponse
	json.NewDecoder(w.Body).Decode(&solved)

	// List.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=10", nil)
	w = httptest.NewRecorder()
	h.ListRuns(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	var runs []domain.RunRecord
	json.NewDecoder(w.Body).Decode(&runs)
	if len(runs) != 1 || runs[0].RunID != solved.RunID {
		t.Fatalf("expected the solved run, got %+v", runs)
	}

	// Detail.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+solved.RunID, nil)
	req.SetPathValue("runID", solved.RunID)
	w = httptest.NewRecorder()
	h.GetRun(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
	var detail RunDetail
	json.NewDecoder(w.Body).Decode(&detail)
	if detail.Run.Status != domain.RunFound || detail.Run.Cost != 3 {
		t.Errorf("unexpected record: %+v", detail.Run)
	}
	if len(detail.Steps) != 2 || detail.Steps[0].Action != "unlock" {
		t.Errorf("unexpected steps: %+v", detail.Steps)
	}

	// Events: run_started, improved, plan_found, run_finished.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+solved.RunID+"/events?since_seq=2", nil)
	req.SetPathValue("runID", solved.RunID)
	w = httptest.NewRecorder()
	h.ListRunEvents(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("events: expected 200, got %d", w.Code)
	}
	var events []domain.RunEvent
	json.NewDecoder(w.Body).Decode(&events)
	if len(events) != 2 {
		t.Fatalf("expected 2 events after seq 2, got %d", len(events))
	}
	if events[0].EventType != domain.EventPlanFound || events[1].EventType != domain.EventRunFinished {
		t.Errorf("unexpected events: %s, %s", events[0].EventType, events[1].EventType)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/nope", nil)
	req.SetPathValue("runID", "nope")
	w := httptest.NewRecorder()

	h.GetRun(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListRuns_Empty(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	w := httptest.NewRecorder()

	h.ListRuns(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := bytes.TrimSpace(w.Body.Bytes()); string(got) != "[]" {
		t.Errorf("expected empty array, got %s", got)
	}
}

func TestSessionLifecycle(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", yamlBody(t, doorYAML, nil))
	w := httptest.NewRecorder()
	h.OpenSession(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("open: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var opened SessionResponse
	json.NewDecoder(w.Body).Decode(&opened)
	if opened.SessionID == "" || opened.Heuristic != "zero" || opened.Direction != domain.DirectionForward {
		t.Fatalf("unexpected session: %+v", opened)
	}

	next := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+opened.SessionID+"/next", nil)
		req.SetPathValue("id", opened.SessionID)
		w := httptest.NewRecorder()
		h.NextPlan(w, req)
		return w
	}

	w = next()
	if w.Code != http.StatusOK {
		t.Fatalf("first next: expected 200, got %d", w.Code)
	}
	var first NextResponse
	json.NewDecoder(w.Body).Decode(&first)
	if !first.Found || first.Index != 0 || first.Plan == nil || first.Plan.Cost != 3 {
		t.Fatalf("unexpected first plan: %+v", first)
	}

	w = next()
	var second NextResponse
	json.NewDecoder(w.Body).Decode(&second)
	if w.Code != http.StatusOK || second.Found {
		t.Fatalf("expected no further plan, got %d %+v", w.Code, second)
	}

	if w = next(); w.Code != http.StatusGone {
		t.Fatalf("exhausted session: expected 410, got %d", w.Code)
	}

	del := func() int {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+opened.SessionID, nil)
		req.SetPathValue("id", opened.SessionID)
		w := httptest.NewRecorder()
		h.CloseSession(w, req)
		return w.Code
	}
	if code := del(); code != http.StatusNoContent {
		t.Fatalf("close: expected 204, got %d", code)
	}
	if code := del(); code != http.StatusNotFound {
		t.Fatalf("second close: expected 404, got %d", code)
	}
}

func TestOpenSession_LimitReached(t *testing.T) {
	h := newTestHandler(t)

	for i, want := range []int{http.StatusCreated, http.StatusCreated, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", yamlBody(t, doorYAML, nil))
		w := httptest.NewRecorder()
		h.OpenSession(w, req)
		if w.Code != want {
			t.Fatalf("open %d: expected %d, got %d", i, want, w.Code)
		}
	}
	if h.Sessions.Count() != 2 {
		t.Errorf("expected 2 open sessions, got %d", h.Sessions.Count())
	}
}

func TestNextPlan_UnknownSession(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/missing/next", nil)
	req.SetPathValue("id", "missing")
	w := httptest.NewRecorder()

	h.NextPlan(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if apiErr := decodeAPIError(t, w); apiErr.Code != domain.ErrSessionNotFound.Code {
		t.Errorf("expected session-not-found code, got %d", apiErr.Code)
	}
}

func TestServerRouting(t *testing.T) {
	h := newTestHandler(t)
	srv := NewServer(h, ":0")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/solve", yamlBody(t, doorYAML, map[string]any{"strategy": "mpp"}))
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("solve via mux: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp SolveResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Strategy != domain.StrategyMPP {
		t.Errorf("expected strategy override mpp, got %s", resp.Strategy)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+resp.RunID, nil)
	w = httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("run via mux: expected 200, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/solve", nil)
	w = httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET solve, got %d", w.Code)
	}
}

func TestCORSHeaders(t *testing.T) {
	h := newTestHandler(t)
	srv := NewServer(h, ":0")

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/solve", nil)
	w := httptest.NewRecorder()

	srv.httpServer.Handler.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS origin *")
	}
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 for OPTIONS, got %d", w.Code)
	}
}

func TestFormatListenURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":9800", "http://localhost:9800"},
		{"0.0.0.0:8080", "http://localhost:8080"},
		{"127.0.0.1:9800", "http://127.0.0.1:9800"},
		{"[::1]:9800", "http://[::1]:9800"},
		{"example", "http://example"},
	}
	for _, tt := range tests {
		if got := FormatListenURL(tt.addr); got != tt.want {
			t.Errorf("FormatListenURL(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}
