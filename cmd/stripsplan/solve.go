package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rogersf/strips-engine/internal/domain"
	"github.com/rogersf/strips-engine/internal/planner"
	"github.com/rogersf/strips-engine/internal/problemfile"
	"github.com/rogersf/strips-engine/internal/store"
	"github.com/rogersf/strips-engine/internal/strips"
)

type solveFlags struct {
	direction string
	strategy  string
	heuristic string
	bound     float64
	next      int
	record    bool
	json      bool
}

func newSolveCmd(a *app) *cobra.Command {
	var f solveFlags
	cmd := &cobra.Command{
		Use:   "solve <problem.yaml>",
		Short: "Find a plan for a problem file",
		Long: `Solve loads a problem file and searches for a plan. Flags override the
search settings given in the file.

With --next N the problem is opened as a session and up to N plans are
printed in order of non-decreasing cost.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSolve(cmd, args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.direction, "direction", "", "forward or regression (default: file, then forward)")
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "mpp or bnb (default: file, then mpp)")
	cmd.Flags().StringVar(&f.heuristic, "heuristic", "", "zero, mismatch or scaled (default: file, then config)")
	cmd.Flags().Float64Var(&f.bound, "bound", 0, "exclusive cost bound for bnb (default: file, then config)")
	cmd.Flags().IntVar(&f.next, "next", 0, "print up to N plans from a resumable mpp search")
	cmd.Flags().BoolVar(&f.record, "record", false, "record the run in the configured database")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the result as JSON")
	return cmd
}

func (a *app) runSolve(cmd *cobra.Command, path string, f solveFlags) error {
	spec, err := problemfile.Load(path)
	if err != nil {
		return err
	}
	problem, err := spec.Build()
	if err != nil {
		return err
	}

	if f.next > 0 {
		if f.strategy == string(domain.StrategyBranchAndBound) {
			return fmt.Errorf("--next needs the mpp strategy")
		}
		return a.runSessions(cmd, problem, spec, f)
	}

	var db *sql.DB
	if f.record {
		db, err = store.NewDB(a.cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
	}
	svc := a.newService(db)

	req := planner.Request{
		Problem:   problem,
		Direction: domain.Direction(firstNonEmpty(f.direction, spec.Direction)),
		Strategy:  domain.Strategy(firstNonEmpty(f.strategy, spec.Strategy)),
		Heuristic: firstNonEmpty(f.heuristic, spec.Heuristic),
		Bound:     spec.Bound,
	}
	if f.bound > 0 {
		req.Bound = f.bound
	}

	res, err := svc.Solve(cmd.Context(), req)
	if res == nil {
		return err
	}
	out := cmd.OutOrStdout()
	if f.json {
		if jerr := writeResultJSON(out, problem, res); jerr != nil {
			return jerr
		}
	} else {
		writeResultText(out, problem, res)
	}
	return err
}

func (a *app) runSessions(cmd *cobra.Command, problem *strips.Problem, spec *problemfile.Spec, f solveFlags) error {
	sessions := planner.NewSessionManager(1, a.cfg.MaxExpansions, a.logger)
	defer sessions.CloseAll()

	heur := firstNonEmpty(f.heuristic, spec.Heuristic, a.cfg.DefaultHeuristic)
	id, err := sessions.Open(problem, domain.Direction(firstNonEmpty(f.direction, spec.Direction)), heur)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i := 0; i < f.next; i++ {
		res, err := sessions.Next(cmd.Context(), id)
		if err != nil {
			return err
		}
		if !res.Found {
			fmt.Fprintf(out, "no further plans after %d (expanded %d)\n", res.Index, res.Stats.Expanded)
			return nil
		}
		fmt.Fprintf(out, "plan %d: cost %g, %d steps, expanded %d\n", res.Index+1, res.Plan.Cost, res.Plan.Len(), res.Stats.Expanded)
		writeSteps(out, res.Plan)
	}
	return nil
}

func (a *app) newService(db *sql.DB) *planner.Service {
	return planner.NewService(db, planner.Defaults{
		Heuristic:     a.cfg.DefaultHeuristic,
		Bound:         a.cfg.DefaultBound,
		MaxExpansions: a.cfg.MaxExpansions,
	}, planner.WithLogger(a.logger), planner.WithTracer(a.tracer))
}

func writeResultText(w io.Writer, problem *strips.Problem, res *planner.Result) {
	fmt.Fprintf(w, "problem %s: %s/%s heuristic=%s", problem.Name(), res.Direction, res.Strategy, res.Heuristic)
	if res.Strategy == domain.StrategyBranchAndBound {
		fmt.Fprintf(w, " bound=%g", res.Bound)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "status %s, expanded %d, pruned %d, %s\n", res.Status, res.Stats.Expanded, res.Stats.Pruned, res.Duration)
	if !res.Found {
		fmt.Fprintln(w, "no plan")
		return
	}
	fmt.Fprintf(w, "plan: cost %g, %d steps\n", res.Plan.Cost, res.Plan.Len())
	writeSteps(w, res.Plan)
}

func writeSteps(w io.Writer, plan strips.Plan) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, act := range plan.Actions {
		fmt.Fprintf(tw, "  %d.\t%s\t%g\n", i+1, act.Name(), act.Cost())
	}
	tw.Flush()
}

type resultJSON struct {
	Problem      string           `json:"problem"`
	RunID        string           `json:"run_id"`
	Direction    domain.Direction `json:"direction"`
	Strategy     domain.Strategy  `json:"strategy"`
	Heuristic    string           `json:"heuristic"`
	Status       domain.RunStatus `json:"status"`
	Found        bool             `json:"found"`
	Cost         float64          `json:"cost"`
	Plan         []string         `json:"plan"`
	Expanded     int              `json:"expanded"`
	Pruned       int              `json:"pruned"`
	Improvements []float64        `json:"improvements,omitempty"`
}

func writeResultJSON(w io.Writer, problem *strips.Problem, res *planner.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	err := enc.Encode(resultJSON{
		Problem:      problem.Name(),
		RunID:        res.RunID,
		Direction:    res.Direction,
		Strategy:     res.Strategy,
		Heuristic:    res.Heuristic,
		Status:       res.Status,
		Found:        res.Found,
		Cost:         res.Plan.Cost,
		Plan:         res.Plan.Names(),
		Expanded:     res.Stats.Expanded,
		Pruned:       res.Stats.Pruned,
		Improvements: res.Improvements,
	})
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
