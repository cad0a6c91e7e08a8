package strips

import (
	"fmt"

	"github.com/rogersf/strips-engine/internal/domain"
)

// Problem is a domain together with a total initial state and a partial goal.
// It is immutable after construction and may be shared across searches.
type Problem struct {
	name    string
	domain  *Domain
	initial State
	goal    State
}

// NewProblem validates initial and goal against the domain's universe.
// Malformed input is reported here rather than during search.
func NewProblem(name string, d *Domain, initial, goal State) (*Problem, error) {
	if d == nil {
		return nil, domain.ErrEmptyUniverse.Detail("problem %s has no domain", name)
	}
	if err := d.ValidateTotal(initial); err != nil {
		return nil, fmt.Errorf("initial state: %w", err)
	}
	if err := d.ValidatePartial(goal); err != nil {
		return nil, fmt.Errorf("goal: %w", err)
	}
	return &Problem{name: name, domain: d, initial: initial, goal: goal}, nil
}

func (p *Problem) Name() string    { return p.name }
func (p *Problem) Domain() *Domain { return p.domain }
func (p *Problem) Initial() State  { return p.initial }
func (p *Problem) Goal() State     { return p.goal }

// Trivial reports whether the initial state already satisfies the goal.
func (p *Problem) Trivial() bool {
	return p.initial.Satisfies(p.goal)
}
