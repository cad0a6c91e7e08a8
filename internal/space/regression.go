package space

import (
	"github.com/rogersf/strips-engine/internal/domain"
	"github.com/rogersf/strips-engine/internal/heuristic"
	"github.com/rogersf/strips-engine/internal/strips"
)

// Regression searches backwards over open subgoals. The start node is the
// goal; regressing an action replaces the propositions it achieves with its
// precondition. A subgoal is terminal once the initial state satisfies it.
type Regression struct {
	problem *strips.Problem
	actions []*strips.Action
	h       heuristic.Func
}

// NewRegression creates the regression space of p.
func NewRegression(p *strips.Problem, h heuristic.Func) *Regression {
	return &Regression{
		problem: p,
		actions: p.Domain().Actions(),
		h:       orDefault(h),
	}
}

func (r *Regression) Start() strips.State { return r.problem.Goal() }

func (r *Regression) IsGoal(subgoal strips.State) bool {
	return r.problem.Initial().Satisfies(subgoal)
}

// Neighbors regresses subgoal through every action Regress accepts.
func (r *Regression) Neighbors(subgoal strips.State) []Arc {
	var arcs []Arc
	for _, a := range r.actions {
		prev, ok := Regress(subgoal, a)
		if !ok || prev.Equal(subgoal) {
			continue
		}
		arcs = append(arcs, Arc{Action: a, Cost: a.Cost(), To: prev})
	}
	return arcs
}

// Regress computes the subgoal that must hold before a so that subgoal holds
// after it. The regression is rejected when
//
//   - no effect of a achieves an open proposition with the required value,
//   - an effect of a sets an open proposition to a different value, or
//   - a precondition of a contradicts an open proposition that a leaves
//     untouched.
//
// Otherwise the result is pre(a) ∪ (subgoal \ eff(a)).
func Regress(subgoal strips.State, a *strips.Action) (strips.State, bool) {
	eff := a.Effect()
	relevant := false
	for _, p := range eff.Props() {
		want, open := subgoal.Get(p)
		if !open {
			continue
		}
		got, _ := eff.Get(p)
		if got != want {
			return strips.State{}, false
		}
		relevant = true
	}
	if !relevant {
		return strips.State{}, false
	}

	remaining := subgoal.Without(eff)
	prev, ok := remaining.Merge(a.Precondition())
	if !ok {
		return strips.State{}, false
	}
	return prev, true
}

// Heuristic estimates the cost of reaching subgoal from the initial state.
func (r *Regression) Heuristic(subgoal strips.State) float64 {
	return r.h(r.problem.Initial(), subgoal)
}

func (r *Regression) Direction() domain.Direction { return domain.DirectionRegression }

func (r *Regression) Problem() *strips.Problem { return r.problem }

// Plan reverses the path: the first regressed action is the last one executed.
func (r *Regression) Plan(p *Path) strips.Plan {
	actions := p.Actions()
	for i, j := 0, len(actions)-1; i < j; i, j = i+1, j-1 {
		actions[i], actions[j] = actions[j], actions[i]
	}
	return strips.NewPlan(actions)
}
