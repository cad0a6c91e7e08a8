// Package space adapts a STRIPS problem into a search.Graph, either forward
// from the initial state or backward (regression) from the goal.
package space

import (
	"github.com/rogersf/strips-engine/internal/domain"
	"github.com/rogersf/strips-engine/internal/heuristic"
	"github.com/rogersf/strips-engine/internal/search"
	"github.com/rogersf/strips-engine/internal/strips"
)

// Path is a search path over STRIPS states.
type Path = search.Path[strips.State, *strips.Action]

// Arc is an edge between STRIPS states.
type Arc = search.Arc[strips.State, *strips.Action]

// Space is a searchable view of a problem that can turn a goal path back into
// a plan in execution order.
type Space interface {
	search.Graph[strips.State, *strips.Action]
	Direction() domain.Direction
	Problem() *strips.Problem
	Plan(p *Path) strips.Plan
}

// New builds the space for direction. A nil heuristic selects
// heuristic.MismatchCount.
func New(dir domain.Direction, p *strips.Problem, h heuristic.Func) (Space, error) {
	switch dir {
	case domain.DirectionForward:
		return NewForward(p, h), nil
	case domain.DirectionRegression:
		return NewRegression(p, h), nil
	}
	return nil, domain.ErrUnknownDirection.Detail("%q", dir)
}

func orDefault(h heuristic.Func) heuristic.Func {
	if h == nil {
		return heuristic.MismatchCount
	}
	return h
}
