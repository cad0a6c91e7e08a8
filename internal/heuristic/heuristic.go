// Package heuristic provides cost-to-go estimates for STRIPS search.
//
// A heuristic compares a current state against a target partial state. The
// forward space evaluates h(state, goal); the regression space evaluates
// h(initial, subgoal). Callers that plug in their own Func are responsible for
// keeping it admissible; the searchers do not verify it.
package heuristic

import (
	"math"
	"sort"

	"github.com/rogersf/strips-engine/internal/domain"
	"github.com/rogersf/strips-engine/internal/strips"
)

// Func estimates the minimum cost of reaching target from current.
type Func func(current, target strips.State) float64

const (
	NameZero     = "zero"
	NameMismatch = "mismatch"
	NameScaled   = "scaled"
)

// Default is the heuristic used when none is configured.
const Default = NameMismatch

// Zero turns best-first search into uniform-cost search.
func Zero(_, _ strips.State) float64 { return 0 }

// MismatchCount counts the target propositions whose value differs from, or
// is absent in, current. It is admissible when every action changes at most
// one target proposition at unit cost; Scaled is admissible for any domain.
func MismatchCount(current, target strips.State) float64 {
	return float64(current.Mismatch(target))
}

// Scaled divides the mismatch count by the widest action effect and multiplies
// by the cheapest action cost. No action fixes more propositions than its
// effect binds, so the estimate never exceeds the true remaining cost.
func Scaled(d *strips.Domain) Func {
	width := d.MaxEffect()
	minCost := d.MinCost()
	if width == 0 || minCost == 0 {
		return Zero
	}
	return func(current, target strips.State) float64 {
		m := current.Mismatch(target)
		return math.Ceil(float64(m)/float64(width)) * minCost
	}
}

// Max combines heuristics by taking the largest estimate. The maximum of
// admissible heuristics is admissible.
func Max(fs ...Func) Func {
	return func(current, target strips.State) float64 {
		best := 0.0
		for _, f := range fs {
			if v := f(current, target); v > best {
				best = v
			}
		}
		return best
	}
}

// Lookup resolves a heuristic by name. The empty name selects Default.
func Lookup(name string, d *strips.Domain) (Func, error) {
	switch name {
	case "", NameMismatch:
		return MismatchCount, nil
	case NameZero:
		return Zero, nil
	case NameScaled:
		if d == nil {
			return nil, domain.ErrUnknownHeuristic.Detail("%s needs a domain", name)
		}
		return Scaled(d), nil
	}
	return nil, domain.ErrUnknownHeuristic.Detail("%q (known: %v)", name, Names())
}

// Names lists the heuristics Lookup accepts.
func Names() []string {
	names := []string{NameZero, NameMismatch, NameScaled}
	sort.Strings(names)
	return names
}
