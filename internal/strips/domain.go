package strips

import (
	"sort"

	"github.com/rogersf/strips-engine/internal/domain"
)

// Universe maps every proposition of a problem family to the values it may take.
type Universe map[Proposition][]Value

// Allows reports whether v is in the domain of p. The second result is false
// when p is not part of the universe.
func (u Universe) Allows(p Proposition, v Value) (allowed, known bool) {
	values, ok := u[p]
	if !ok {
		return false, false
	}
	for _, candidate := range values {
		if candidate == v {
			return true, true
		}
	}
	return false, true
}

// Props returns the propositions of the universe in sorted order.
func (u Universe) Props() []Proposition {
	props := make([]Proposition, 0, len(u))
	for p := range u {
		props = append(props, p)
	}
	sort.Slice(props, func(i, j int) bool { return props[i] < props[j] })
	return props
}

// Domain is an immutable set of actions over a fixed universe. It is built
// once per problem family and shared read-only by every search over it.
type Domain struct {
	universe Universe
	actions  []*Action
	byName   map[string]*Action
}

// NewDomain validates the actions against the universe. Every proposition an
// action mentions must be in the universe with an allowed value, names must be
// unique, and an action must change at least one proposition it requires.
func NewDomain(universe Universe, actions []*Action) (*Domain, error) {
	if len(universe) == 0 {
		return nil, domain.ErrEmptyUniverse
	}

	u := make(Universe, len(universe))
	for p, values := range universe {
		if len(values) == 0 {
			return nil, domain.ErrInvalidValue.Detail("proposition %s has an empty domain", p)
		}
		u[p] = append([]Value(nil), values...)
	}

	d := &Domain{
		universe: u,
		actions:  make([]*Action, 0, len(actions)),
		byName:   make(map[string]*Action, len(actions)),
	}
	for _, a := range actions {
		if a == nil {
			return nil, domain.ErrInvalidAction.Detail("nil action")
		}
		if _, dup := d.byName[a.Name()]; dup {
			return nil, domain.ErrDuplicateAction.Detail("%s", a.Name())
		}
		if err := u.checkPartial(a.Precondition()); err != nil {
			return nil, domain.WrapEngineError(domain.ErrInvalidAction.Code, "precondition of "+a.Name(), err)
		}
		if err := u.checkPartial(a.Effect()); err != nil {
			return nil, domain.WrapEngineError(domain.ErrInvalidAction.Code, "effect of "+a.Name(), err)
		}
		if a.Precondition().Satisfies(a.Effect()) {
			return nil, domain.ErrInvalidAction.Detail("effect of %s restates its precondition", a.Name())
		}
		d.actions = append(d.actions, a)
		d.byName[a.Name()] = a
	}
	return d, nil
}

// Actions returns the actions in declaration order.
func (d *Domain) Actions() []*Action {
	return append([]*Action(nil), d.actions...)
}

// Action looks an action up by name.
func (d *Domain) Action(name string) (*Action, bool) {
	a, ok := d.byName[name]
	return a, ok
}

// Universe returns a copy of the proposition universe.
func (d *Domain) Universe() Universe {
	u := make(Universe, len(d.universe))
	for p, values := range d.universe {
		u[p] = append([]Value(nil), values...)
	}
	return u
}

// ValidatePartial checks that every binding of s is allowed by the universe.
func (d *Domain) ValidatePartial(s State) error {
	return d.universe.checkPartial(s)
}

// ValidateTotal checks s like ValidatePartial and additionally requires every
// proposition of the universe to be bound.
func (d *Domain) ValidateTotal(s State) error {
	if err := d.universe.checkPartial(s); err != nil {
		return err
	}
	var missing []Proposition
	for _, p := range d.universe.Props() {
		if !s.Has(p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return domain.ErrIncompleteState.Detail("missing %v", missing)
	}
	return nil
}

// MinCost is the cheapest action cost, or 0 for a domain without actions.
func (d *Domain) MinCost() float64 {
	if len(d.actions) == 0 {
		return 0
	}
	lo := d.actions[0].Cost()
	for _, a := range d.actions[1:] {
		if a.Cost() < lo {
			lo = a.Cost()
		}
	}
	return lo
}

// MaxEffect is the largest number of propositions any single action sets.
func (d *Domain) MaxEffect() int {
	hi := 0
	for _, a := range d.actions {
		if n := a.Effect().Len(); n > hi {
			hi = n
		}
	}
	return hi
}

func (u Universe) checkPartial(s State) error {
	for _, p := range s.Props() {
		v, _ := s.Get(p)
		allowed, known := u.Allows(p, v)
		if !known {
			return domain.ErrUnknownProposition.Detail("%s", p)
		}
		if !allowed {
			return domain.ErrInvalidValue.Detail("%s = %s", p, v)
		}
	}
	return nil
}
