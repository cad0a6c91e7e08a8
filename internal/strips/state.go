// Package strips holds the STRIPS model: propositions, immutable states,
// actions, domains and planning problems.
package strips

import (
	"sort"
	"strings"
)

// Proposition is an atomic fluent name such as "on(a)" or "clear(b)".
type Proposition string

// Value is the value bound to a proposition. Boolean fluents use True and False.
type Value string

const (
	True  Value = "true"
	False Value = "false"
)

// Bool converts b to the boolean fluent value.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// State is an immutable mapping from proposition to value. A total state binds
// every proposition of the universe; a partial state (goal, precondition,
// effect, regression subgoal) binds a subset and leaves the rest unconstrained.
//
// The zero State is the empty partial state. States are compared and hashed
// through Key, so two states with the same bindings are the same search node.
type State struct {
	facts map[Proposition]Value
	key   string
}

// NewState copies facts into a new State.
func NewState(facts map[Proposition]Value) State {
	m := make(map[Proposition]Value, len(facts))
	for p, v := range facts {
		m[p] = v
	}
	return build(m)
}

// build takes ownership of m.
func build(m map[Proposition]Value) State {
	props := make([]string, 0, len(m))
	for p := range m {
		props = append(props, string(p))
	}
	sort.Strings(props)

	var b strings.Builder
	for i, p := range props {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(p)
		b.WriteByte('=')
		b.WriteString(string(m[Proposition(p)]))
	}
	return State{facts: m, key: b.String()}
}

// Key is the canonical encoding of the bindings.
func (s State) Key() string { return s.key }

// Len returns the number of bound propositions.
func (s State) Len() int { return len(s.facts) }

// Get returns the value of p and whether p is bound.
func (s State) Get(p Proposition) (Value, bool) {
	v, ok := s.facts[p]
	return v, ok
}

// Has reports whether p is bound.
func (s State) Has(p Proposition) bool {
	_, ok := s.facts[p]
	return ok
}

// Props returns the bound propositions in sorted order.
func (s State) Props() []Proposition {
	props := make([]Proposition, 0, len(s.facts))
	for p := range s.facts {
		props = append(props, p)
	}
	sort.Slice(props, func(i, j int) bool { return props[i] < props[j] })
	return props
}

// Map returns a copy of the bindings.
func (s State) Map() map[Proposition]Value {
	m := make(map[Proposition]Value, len(s.facts))
	for p, v := range s.facts {
		m[p] = v
	}
	return m
}

// Satisfies reports whether every binding of partial holds in s.
func (s State) Satisfies(partial State) bool {
	for p, want := range partial.facts {
		if got, ok := s.facts[p]; !ok || got != want {
			return false
		}
	}
	return true
}

// Apply returns s overridden by effect.
func (s State) Apply(effect State) State {
	if effect.Len() == 0 {
		return s
	}
	m := s.Map()
	for p, v := range effect.facts {
		m[p] = v
	}
	return build(m)
}

// Without returns s with every proposition bound in other removed.
func (s State) Without(other State) State {
	m := make(map[Proposition]Value, len(s.facts))
	for p, v := range s.facts {
		if !other.Has(p) {
			m[p] = v
		}
	}
	return build(m)
}

// Merge returns the union of s and other. The second result is false when both
// bind some proposition to different values; the merged state is then invalid.
func (s State) Merge(other State) (State, bool) {
	m := s.Map()
	for p, v := range other.facts {
		if cur, ok := m[p]; ok && cur != v {
			return State{}, false
		}
		m[p] = v
	}
	return build(m), true
}

// Mismatch counts the propositions of target whose value differs from, or is
// absent in, s.
func (s State) Mismatch(target State) int {
	n := 0
	for p, want := range target.facts {
		if got, ok := s.facts[p]; !ok || got != want {
			n++
		}
	}
	return n
}

// Equal reports whether s and other have the same bindings.
func (s State) Equal(other State) bool { return s.key == other.key }

// String renders the state as {p: v, ...} in sorted order.
func (s State) String() string {
	if len(s.facts) == 0 {
		return "{}"
	}
	props := s.Props()
	parts := make([]string, 0, len(props))
	for _, p := range props {
		parts = append(parts, string(p)+": "+string(s.facts[p]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
