package space

import (
	"github.com/rogersf/strips-engine/internal/domain"
	"github.com/rogersf/strips-engine/internal/heuristic"
	"github.com/rogersf/strips-engine/internal/strips"
)

// Forward searches total world states from the initial state. A node is a goal
// once it satisfies the goal partial state.
type Forward struct {
	problem *strips.Problem
	actions []*strips.Action
	h       heuristic.Func
}

// NewForward creates the forward space of p.
func NewForward(p *strips.Problem, h heuristic.Func) *Forward {
	return &Forward{
		problem: p,
		actions: p.Domain().Actions(),
		h:       orDefault(h),
	}
}

func (f *Forward) Start() strips.State { return f.problem.Initial() }

func (f *Forward) IsGoal(s strips.State) bool {
	return s.Satisfies(f.problem.Goal())
}

// Neighbors applies every action whose precondition holds in s. Actions that
// leave s unchanged are skipped.
func (f *Forward) Neighbors(s strips.State) []Arc {
	var arcs []Arc
	for _, a := range f.actions {
		if !a.Applicable(s) {
			continue
		}
		next := s.Apply(a.Effect())
		if next.Equal(s) {
			continue
		}
		arcs = append(arcs, Arc{Action: a, Cost: a.Cost(), To: next})
	}
	return arcs
}

func (f *Forward) Heuristic(s strips.State) float64 {
	return f.h(s, f.problem.Goal())
}

func (f *Forward) Direction() domain.Direction { return domain.DirectionForward }

func (f *Forward) Problem() *strips.Problem { return f.problem }

// Plan returns the path's actions; forward paths are already in execution order.
func (f *Forward) Plan(p *Path) strips.Plan {
	return strips.NewPlan(p.Actions())
}
