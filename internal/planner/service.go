// Package planner runs planning requests end to end: it resolves the search
// space and heuristic, drives the searcher, and records each run in the
// store with logging and tracing around it.
package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/rogersf/strips-engine/internal/domain"
	"github.com/rogersf/strips-engine/internal/heuristic"
	"github.com/rogersf/strips-engine/internal/search"
	"github.com/rogersf/strips-engine/internal/space"
	"github.com/rogersf/strips-engine/internal/store"
	"github.com/rogersf/strips-engine/internal/strips"
)

// Defaults fill in request fields left empty.
type Defaults struct {
	Heuristic     string
	Bound         float64
	MaxExpansions int
}

// Request describes one search over a problem. Empty fields take the
// service defaults; Bound only applies to branch-and-bound.
type Request struct {
	Problem       *strips.Problem
	Direction     domain.Direction
	Strategy      domain.Strategy
	Heuristic     string
	Bound         float64
	MaxExpansions int
}

// Result is the outcome of a run. Plan is set when Found is true.
type Result struct {
	RunID        string
	Direction    domain.Direction
	Strategy     domain.Strategy
	Heuristic    string
	Bound        float64
	Status       domain.RunStatus
	Found        bool
	Plan         strips.Plan
	Stats        search.Stats
	Improvements []float64
	Duration     time.Duration
}

// Service executes planning requests. A nil database disables run history.
type Service struct {
	db       *sql.DB
	runs     *store.RunRepo
	steps    *store.StepRepo
	events   *store.EventRepo
	defaults Defaults
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for planning runs.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer sets the OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// NewService creates a Service recording runs in db.
func NewService(db *sql.DB, defaults Defaults, options ...ServiceOption) *Service {
	if defaults.Heuristic == "" {
		defaults.Heuristic = heuristic.Default
	}
	s := &Service{
		db:       db,
		runs:     &store.RunRepo{},
		steps:    &store.StepRepo{},
		events:   &store.EventRepo{},
		defaults: defaults,
		logger:   slog.Default(),
		tracer:   noop.NewTracerProvider().Tracer("planner"),
		now:      time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *Service) normalize(req Request) (Request, error) {
	if req.Problem == nil {
		return req, domain.ErrProblemFile.Detail("no problem given")
	}
	dir, err := domain.ParseDirection(string(req.Direction))
	if err != nil {
		return req, err
	}
	strategy, err := domain.ParseStrategy(string(req.Strategy))
	if err != nil {
		return req, err
	}
	req.Direction = dir
	req.Strategy = strategy
	if req.Heuristic == "" {
		req.Heuristic = s.defaults.Heuristic
	}
	if req.Bound <= 0 {
		req.Bound = s.defaults.Bound
	}
	if req.MaxExpansions == 0 {
		req.MaxExpansions = s.defaults.MaxExpansions
	}
	if req.Strategy == domain.StrategyMPP {
		req.Bound = 0
	}
	return req, nil
}

// Solve runs req to completion. An unsolvable problem is not an error: the
// result has Found false and status no_solution. When the search is cut short
// by the context or the expansion limit, the result still carries the best
// plan found so far and the error is returned alongside it.
func (s *Service) Solve(ctx context.Context, req Request) (*Result, error) {
	req, err := s.normalize(req)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "planner.Solve", trace.WithAttributes(
		attribute.String("problem", req.Problem.Name()),
		attribute.String("direction", string(req.Direction)),
		attribute.String("strategy", string(req.Strategy)),
		attribute.String("heuristic", req.Heuristic),
	))
	defer span.End()

	h, err := heuristic.Lookup(req.Heuristic, req.Problem.Domain())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	sp, err := space.New(req.Direction, req.Problem, h)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res := &Result{
		RunID:     uuid.New().String(),
		Direction: req.Direction,
		Strategy:  req.Strategy,
		Heuristic: req.Heuristic,
		Bound:     req.Bound,
		Status:    domain.RunRunning,
	}
	started := s.now()
	rec := domain.RunRecord{
		RunID:         res.RunID,
		ProblemName:   req.Problem.Name(),
		Direction:     req.Direction,
		Strategy:      req.Strategy,
		Heuristic:     req.Heuristic,
		Bound:         req.Bound,
		Status:        domain.RunRunning,
		StartedAtUnix: started.Unix(),
	}
	// The run is recorded even when ctx is already cancelled.
	storeCtx := context.WithoutCancel(ctx)
	if s.db != nil {
		if err := s.runs.Create(storeCtx, s.db, rec); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	logger := s.logger.With("run_id", res.RunID, "problem", req.Problem.Name())
	logger.Info("planning started",
		"direction", req.Direction,
		"strategy", req.Strategy,
		"heuristic", req.Heuristic,
		"bound", req.Bound,
	)

	opts := []search.Option{search.WithMaxExpansions(req.MaxExpansions)}
	var (
		path     *space.Path
		found    bool
		stats    search.Stats
		runEvent = eventLog{runID: res.RunID, now: s.now}
	)
	runEvent.add(domain.EventRunStarted, map[string]any{"direction": req.Direction, "strategy": req.Strategy})

	switch req.Strategy {
	case domain.StrategyBranchAndBound:
		opts = append(opts, search.WithOnImprove(func(cost float64, length int) {
			res.Improvements = append(res.Improvements, cost)
			runEvent.add(domain.EventImproved, map[string]any{"cost": cost, "length": length})
			logger.Debug("bound tightened", "cost", cost, "length", length)
		}))
		// A request without a bound, after defaults, searches without a limit.
		bound := req.Bound
		if bound <= 0 {
			bound = search.Unbounded
		}
		bb := search.NewBranchAndBound[strips.State, *strips.Action](sp, bound, opts...)
		path, found, err = bb.Search(ctx)
		stats = bb.Stats()
	default:
		mpp := search.NewMPP[strips.State, *strips.Action](sp, opts...)
		path, found, err = mpp.Next(ctx)
		stats = mpp.Stats()
	}

	res.Found = found
	res.Stats = stats
	res.Duration = s.now().Sub(started)
	if found {
		res.Plan = sp.Plan(path)
		runEvent.add(domain.EventPlanFound, map[string]any{"cost": res.Plan.Cost, "length": res.Plan.Len()})
	}
	res.Status = statusOf(found, err)

	rec.Status = res.Status
	rec.Cost = res.Plan.Cost
	rec.Steps = res.Plan.Len()
	rec.Expanded = stats.Expanded
	rec.Pruned = stats.Pruned
	rec.DurationMS = res.Duration.Milliseconds()
	if err != nil {
		rec.ErrorMessage = err.Error()
	}
	runEvent.add(domain.EventRunFinished, map[string]any{"status": res.Status, "expanded": stats.Expanded})

	if s.db != nil {
		if perr := s.persist(storeCtx, rec, res.Plan, runEvent.events); perr != nil {
			logger.Error("record run", "error", perr)
			err = errors.Join(err, perr)
		}
	}

	span.SetAttributes(
		attribute.String("status", string(res.Status)),
		attribute.Int("expanded", stats.Expanded),
		attribute.Int("pruned", stats.Pruned),
		attribute.Float64("cost", res.Plan.Cost),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("planning stopped", "status", res.Status, "error", err, "expanded", stats.Expanded)
		return res, err
	}
	span.SetStatus(codes.Ok, "")
	logger.Info("planning finished",
		"status", res.Status,
		"cost", res.Plan.Cost,
		"steps", res.Plan.Len(),
		"expanded", stats.Expanded,
		"pruned", stats.Pruned,
		"duration", res.Duration,
	)
	return res, nil
}

// Compare runs several requests concurrently and returns their results in
// request order. The first request error cancels the others.
func (s *Service) Compare(ctx context.Context, reqs ...Request) ([]*Result, error) {
	results := make([]*Result, len(reqs))
	g, gCtx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := s.Solve(gCtx, req)
			results[i] = res
			if err != nil {
				return fmt.Errorf("request %d (%s/%s): %w", i, req.Direction, req.Strategy, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (s *Service) persist(ctx context.Context, rec domain.RunRecord, plan strips.Plan, events []domain.RunEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", domain.ErrStoreWrite, err)
	}
	defer tx.Rollback()

	if err := s.runs.FinishTx(ctx, tx, rec); err != nil {
		return err
	}
	steps := make([]domain.PlanStep, plan.Len())
	for i, a := range plan.Actions {
		steps[i] = domain.PlanStep{RunID: rec.RunID, SeqNo: i, Action: a.Name(), Cost: a.Cost()}
	}
	if err := s.steps.AppendTx(ctx, tx, steps); err != nil {
		return err
	}
	for _, ev := range events {
		if err := s.events.AppendTx(ctx, tx, ev); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Run returns a recorded run with its plan steps.
func (s *Service) Run(ctx context.Context, runID string) (*domain.RunRecord, []domain.PlanStep, error) {
	if s.db == nil {
		return nil, nil, domain.ErrRunNotFound
	}
	rec, err := s.runs.GetByID(ctx, s.db, runID)
	if err != nil {
		return nil, nil, err
	}
	steps, err := s.steps.ListByRun(ctx, s.db, runID)
	if err != nil {
		return nil, nil, err
	}
	return rec, steps, nil
}

// Runs lists recorded runs, newest first.
func (s *Service) Runs(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if s.db == nil {
		return nil, nil
	}
	return s.runs.List(ctx, s.db, limit)
}

// Events returns the progress log of a run after sinceSeq.
func (s *Service) Events(ctx context.Context, runID string, sinceSeq int64) ([]domain.RunEvent, error) {
	if s.db == nil {
		return nil, nil
	}
	return s.events.ListByRun(ctx, s.db, runID, sinceSeq)
}

func statusOf(found bool, err error) domain.RunStatus {
	switch {
	case err == nil && found:
		return domain.RunFound
	case err == nil:
		return domain.RunNoSolution
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, domain.ErrExpansionLimit):
		return domain.RunInterrupted
	}
	return domain.RunFailed
}

// eventLog buffers a run's events until the run is recorded.
type eventLog struct {
	runID  string
	now    func() time.Time
	events []domain.RunEvent
}

func (l *eventLog) add(eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("{}")
	}
	l.events = append(l.events, domain.RunEvent{
		RunID:       l.runID,
		SeqNo:       int64(len(l.events) + 1),
		EventType:   eventType,
		PayloadJSON: string(data),
		CreatedAt:   l.now().Unix(),
	})
}
