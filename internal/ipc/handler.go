// Package ipc provides the HTTP API for the STRIPS planning engine.
package ipc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/rogersf/strips-engine/internal/domain"
	"github.com/rogersf/strips-engine/internal/guard"
	"github.com/rogersf/strips-engine/internal/planner"
	"github.com/rogersf/strips-engine/internal/problemfile"
	"github.com/rogersf/strips-engine/internal/search"
	"github.com/rogersf/strips-engine/internal/strips"
)

// Handler holds all dependencies for the HTTP handlers.
type Handler struct {
	Planner  *planner.Service
	Sessions *planner.SessionManager
	Guard    *guard.Guard
	Logger   *slog.Logger
}

// SolveRequest is the body for POST /api/v1/solve. Problem holds either a
// YAML document as a JSON string or the same structure as a JSON object.
// The remaining fields override the problem's own search settings.
type SolveRequest struct {
	Problem   json.RawMessage `json:"problem"`
	Direction string          `json:"direction,omitempty"`
	Strategy  string          `json:"strategy,omitempty"`
	Heuristic string          `json:"heuristic,omitempty"`
	Bound     float64         `json:"bound,omitempty"`
}

// OpenSessionRequest is the body for POST /api/v1/sessions.
type OpenSessionRequest struct {
	Problem   json.RawMessage `json:"problem"`
	Direction string          `json:"direction,omitempty"`
	Heuristic string          `json:"heuristic,omitempty"`
}

// StepView is one action of a returned plan.
type StepView struct {
	Action string  `json:"action"`
	Cost   float64 `json:"cost"`
}

// PlanView is the wire form of a plan.
type PlanView struct {
	Steps []StepView `json:"steps"`
	Cost  float64    `json:"cost"`
}

// StatsView is the wire form of search counters.
type StatsView struct {
	Expanded int `json:"expanded"`
	Pruned   int `json:"pruned"`
}

// SolveResponse is the response for POST /api/v1/solve. Error is set when
// the search was interrupted; Plan then holds the best plan found so far.
type SolveResponse struct {
	RunID        string           `json:"run_id"`
	Direction    domain.Direction `json:"direction"`
	Strategy     domain.Strategy  `json:"strategy"`
	Heuristic    string           `json:"heuristic"`
	Bound        float64          `json:"bound,omitempty"`
	Status       domain.RunStatus `json:"status"`
	Found        bool             `json:"found"`
	Plan         *PlanView        `json:"plan,omitempty"`
	Stats        StatsView        `json:"stats"`
	Improvements []float64        `json:"improvements,omitempty"`
	DurationMS   int64            `json:"duration_ms"`
	Error        string           `json:"error,omitempty"`
}

// SessionResponse is the response for POST /api/v1/sessions.
type SessionResponse struct {
	SessionID string           `json:"session_id"`
	Direction domain.Direction `json:"direction"`
	Heuristic string           `json:"heuristic"`
}

// NextResponse is the response for POST /api/v1/sessions/{id}/next.
type NextResponse struct {
	SessionID string    `json:"session_id"`
	Index     int       `json:"index"`
	Found     bool      `json:"found"`
	Plan      *PlanView `json:"plan,omitempty"`
	Stats     StatsView `json:"stats"`
}

// RunDetail is the response for GET /api/v1/runs/{runID}.
type RunDetail struct {
	Run   *domain.RunRecord `json:"run"`
	Steps []domain.PlanStep `json:"steps"`
}

// APIError is a structured error response.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.Sessions.Count(),
	})
}

// Solve handles POST /api/v1/solve.
func (h *Handler) Solve(w http.ResponseWriter, r *http.Request) {
	if err := h.Guard.CheckAll(clientOf(r), false); err != nil {
		writeError(w, err)
		return
	}

	var req SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "invalid request body"})
		return
	}
	spec, problem, err := decodeProblem(req.Problem)
	if err != nil {
		writeError(w, err)
		return
	}

	preq := planner.Request{
		Problem:   problem,
		Direction: domain.Direction(firstNonEmpty(req.Direction, spec.Direction)),
		Strategy:  domain.Strategy(firstNonEmpty(req.Strategy, spec.Strategy)),
		Heuristic: firstNonEmpty(req.Heuristic, spec.Heuristic),
		Bound:     spec.Bound,
	}
	if req.Bound > 0 {
		preq.Bound = req.Bound
	}

	res, err := h.Planner.Solve(r.Context(), preq)
	if res == nil {
		writeError(w, err)
		return
	}
	resp := SolveResponse{
		RunID:        res.RunID,
		Direction:    res.Direction,
		Strategy:     res.Strategy,
		Heuristic:    res.Heuristic,
		Bound:        res.Bound,
		Status:       res.Status,
		Found:        res.Found,
		Stats:        statsView(res.Stats),
		Improvements: res.Improvements,
		DurationMS:   res.Duration.Milliseconds(),
	}
	if res.Found {
		resp.Plan = planView(res.Plan)
	}
	if err != nil {
		resp.Error = err.Error()
		h.logger().Warn("solve interrupted", "run_id", res.RunID, "status", res.Status, "error", err)
	}
	writeJSON(w, http.StatusOK, resp)
}

// OpenSession handles POST /api/v1/sessions.
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Guard.CheckAll(clientOf(r), true); err != nil {
		writeError(w, err)
		return
	}

	var req OpenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "invalid request body"})
		return
	}
	spec, problem, err := decodeProblem(req.Problem)
	if err != nil {
		writeError(w, err)
		return
	}

	dir := domain.Direction(firstNonEmpty(req.Direction, spec.Direction))
	heur := firstNonEmpty(req.Heuristic, spec.Heuristic)
	id, err := h.Sessions.Open(problem, dir, heur)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := h.Sessions.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, SessionResponse{
		SessionID: sess.ID,
		Direction: sess.Direction,
		Heuristic: sess.Heuristic,
	})
}

// NextPlan handles POST /api/v1/sessions/{id}/next.
func (h *Handler) NextPlan(w http.ResponseWriter, r *http.Request) {
	if err := h.Guard.CheckAll(clientOf(r), false); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.Sessions.Next(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	resp := NextResponse{
		SessionID: res.SessionID,
		Index:     res.Index,
		Found:     res.Found,
		Stats:     statsView(res.Stats),
	}
	if res.Found {
		resp.Plan = planView(res.Plan)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CloseSession handles DELETE /api/v1/sessions/{id}.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Sessions.Close(id); err != nil {
		writeError(w, err)
		return
	}
	h.logger().Info("session closed", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// ListRuns handles GET /api/v1/runs?limit=N.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err == nil {
			limit = parsed
		}
	}

	runs, err := h.Planner.Runs(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []domain.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun handles GET /api/v1/runs/{runID}.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	rec, steps, err := h.Planner.Run(r.Context(), r.PathValue("runID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if steps == nil {
		steps = []domain.PlanStep{}
	}
	writeJSON(w, http.StatusOK, RunDetail{Run: rec, Steps: steps})
}

// ListRunEvents handles GET /api/v1/runs/{runID}/events?since_seq=N.
func (h *Handler) ListRunEvents(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("runID")
	sinceSeq := int64(0)
	if s := r.URL.Query().Get("since_seq"); s != "" {
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			sinceSeq = parsed
		}
	}

	events, err := h.Planner.Events(r.Context(), runID, sinceSeq)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []domain.RunEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// decodeProblem accepts a YAML document wrapped in a JSON string, or the
// problem structure inline. JSON is valid YAML, so both go through the
// problem file parser.
func decodeProblem(raw json.RawMessage) (*problemfile.Spec, *strips.Problem, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil, domain.ErrProblemFile.Detail("problem is required")
	}
	data := []byte(raw)
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		data = []byte(text)
	}
	spec, err := problemfile.Parse(data)
	if err != nil {
		return nil, nil, err
	}
	problem, err := spec.Build()
	if err != nil {
		return nil, nil, err
	}
	return spec, problem, nil
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func planView(p strips.Plan) *PlanView {
	steps := make([]StepView, p.Len())
	for i, a := range p.Actions {
		steps[i] = StepView{Action: a.Name(), Cost: a.Cost()}
	}
	return &PlanView{Steps: steps, Cost: p.Cost}
}

func statsView(s search.Stats) StatsView {
	return StatsView{Expanded: s.Expanded, Pruned: s.Pruned}
}

// clientOf keys rate limiting by remote host.
func clientOf(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var engErr *domain.EngineError
	if errors.As(err, &engErr) {
		status := http.StatusInternalServerError
		switch engErr.Code {
		case domain.ErrSessionNotFound.Code, domain.ErrRunNotFound.Code:
			status = http.StatusNotFound
		case domain.ErrSessionLimit.Code:
			status = http.StatusConflict
		case domain.ErrSessionExhausted.Code:
			status = http.StatusGone
		case domain.ErrRateLimitExceeded.Code:
			status = http.StatusTooManyRequests
		case domain.ErrExpansionLimit.Code:
			status = http.StatusUnprocessableEntity
		case domain.ErrProblemFile.Code, domain.ErrUnknownProposition.Code, domain.ErrInvalidValue.Code,
			domain.ErrInvalidAction.Code, domain.ErrDuplicateAction.Code, domain.ErrIncompleteState.Code,
			domain.ErrEmptyUniverse.Code, domain.ErrInvalidBlocks.Code, domain.ErrUnknownHeuristic.Code,
			domain.ErrUnknownStrategy.Code, domain.ErrUnknownDirection.Code:
			status = http.StatusBadRequest
		}
		msg := engErr.Message
		if err != error(engErr) {
			msg = err.Error()
		}
		writeJSON(w, status, APIError{Code: engErr.Code, Message: msg})
		return
	}
	writeJSON(w, http.StatusInternalServerError, APIError{Code: -1, Message: err.Error()})
}
