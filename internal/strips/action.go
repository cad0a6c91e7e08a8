package strips

import (
	"math"

	"github.com/rogersf/strips-engine/internal/domain"
)

// DefaultCost is the cost of an action constructed without WithCost.
const DefaultCost = 1.0

// Action is a named operator with a partial-state precondition and effect.
// Actions are immutable once constructed.
type Action struct {
	name string
	pre  State
	eff  State
	cost float64
}

// ActionOption configures an Action at construction.
type ActionOption func(*Action)

// WithCost overrides the default unit cost.
func WithCost(c float64) ActionOption {
	return func(a *Action) {
		a.cost = c
	}
}

// NewAction builds an action. It rejects an empty name, an empty effect and a
// negative or non-finite cost.
func NewAction(name string, pre, eff State, opts ...ActionOption) (*Action, error) {
	a := &Action{name: name, pre: pre, eff: eff, cost: DefaultCost}
	for _, opt := range opts {
		opt(a)
	}

	if name == "" {
		return nil, domain.ErrInvalidAction.Detail("action name is empty")
	}
	if eff.Len() == 0 {
		return nil, domain.ErrInvalidAction.Detail("action %s has no effect", name)
	}
	if a.cost < 0 || math.IsNaN(a.cost) || math.IsInf(a.cost, 0) {
		return nil, domain.ErrInvalidAction.Detail("action %s has cost %v", name, a.cost)
	}
	return a, nil
}

// MustAction is NewAction for statically known actions; it panics on error.
func MustAction(name string, pre, eff State, opts ...ActionOption) *Action {
	a, err := NewAction(name, pre, eff, opts...)
	if err != nil {
		panic(err)
	}
	return a
}

// Name identifies the action in plans and logs.
func (a *Action) Name() string { return a.name }

// Precondition is the partial state that must hold before the action runs.
func (a *Action) Precondition() State { return a.pre }

// Effect is the partial state the action establishes.
func (a *Action) Effect() State { return a.eff }

func (a *Action) Cost() float64 { return a.cost }

func (a *Action) String() string { return a.name }

// Applicable reports whether the precondition holds in s.
func (a *Action) Applicable(s State) bool { return s.Satisfies(a.pre) }
