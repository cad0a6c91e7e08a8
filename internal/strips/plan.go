package strips

import (
	"strings"

	"github.com/rogersf/strips-engine/internal/domain"
)

// Plan is a sequence of actions in execution order.
type Plan struct {
	Actions []*Action
	Cost    float64
}

// NewPlan sums the action costs.
func NewPlan(actions []*Action) Plan {
	var cost float64
	for _, a := range actions {
		cost += a.Cost()
	}
	return Plan{Actions: actions, Cost: cost}
}

// Len returns the number of actions.
func (p Plan) Len() int { return len(p.Actions) }

// Names returns the action names in order.
func (p Plan) Names() []string {
	names := make([]string, len(p.Actions))
	for i, a := range p.Actions {
		names[i] = a.Name()
	}
	return names
}

// Replay applies the plan to initial with the forward effect rule and returns
// the final state. It fails with ErrInapplicableAction at the first action
// whose precondition does not hold.
func (p Plan) Replay(initial State) (State, error) {
	s := initial
	for i, a := range p.Actions {
		if !a.Applicable(s) {
			return s, domain.ErrInapplicableAction.Detail("step %d %s in %s", i, a.Name(), s)
		}
		s = s.Apply(a.Effect())
	}
	return s, nil
}

func (p Plan) String() string {
	return strings.Join(p.Names(), " -> ")
}
