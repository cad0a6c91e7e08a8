// Package blocks generates the classic blocks-world STRIPS domain.
//
// Each block x has two fluents: on(x), whose value is another block or
// "table", and clear(x), which is true when nothing is stacked on x. Moves are
// move(x,y,z) between blocks, move(x,y,table) onto the table and
// move(x,table,z) off the table.
package blocks

import (
	"fmt"
	"sort"

	"github.com/rogersf/strips-engine/internal/domain"
	"github.com/rogersf/strips-engine/internal/strips"
)

// Table is the value of on(x) for a block resting on the table.
const Table strips.Value = "table"

// On is the fluent naming what x rests on.
func On(x string) strips.Proposition { return strips.Proposition("on(" + x + ")") }

// Clear is the fluent telling whether x has nothing on top.
func Clear(x string) strips.Proposition { return strips.Proposition("clear(" + x + ")") }

// Move names the action moving x from y to z.
func Move(x, y, z string) string { return fmt.Sprintf("move(%s,%s,%s)", x, y, z) }

// NewDomain builds the domain over the given block names. Names must be unique
// and must not be "table".
func NewDomain(names ...string) (*strips.Domain, error) {
	blocks, err := normalize(names)
	if err != nil {
		return nil, err
	}

	universe := make(strips.Universe, 2*len(blocks))
	for _, x := range blocks {
		values := []strips.Value{Table}
		for _, y := range blocks {
			if y != x {
				values = append(values, strips.Value(y))
			}
		}
		universe[On(x)] = values
		universe[Clear(x)] = []strips.Value{strips.True, strips.False}
	}

	var actions []*strips.Action
	for _, x := range blocks {
		for _, y := range blocks {
			if y == x {
				continue
			}
			for _, z := range blocks {
				if z == x || z == y {
					continue
				}
				actions = append(actions, strips.MustAction(Move(x, y, z),
					strips.NewState(map[strips.Proposition]strips.Value{
						On(x): strips.Value(y), Clear(x): strips.True, Clear(z): strips.True,
					}),
					strips.NewState(map[strips.Proposition]strips.Value{
						On(x): strips.Value(z), Clear(y): strips.True, Clear(z): strips.False,
					}),
				))
			}
			actions = append(actions, strips.MustAction(Move(x, y, string(Table)),
				strips.NewState(map[strips.Proposition]strips.Value{
					On(x): strips.Value(y), Clear(x): strips.True,
				}),
				strips.NewState(map[strips.Proposition]strips.Value{
					On(x): Table, Clear(y): strips.True,
				}),
			))
			actions = append(actions, strips.MustAction(Move(x, string(Table), y),
				strips.NewState(map[strips.Proposition]strips.Value{
					On(x): Table, Clear(x): strips.True, Clear(y): strips.True,
				}),
				strips.NewState(map[strips.Proposition]strips.Value{
					On(x): strips.Value(y), Clear(y): strips.False,
				}),
			))
		}
	}

	return strips.NewDomain(universe, actions)
}

// AllOnTable is the total state with every block on the table and clear.
func AllOnTable(names ...string) strips.State {
	facts := make(map[strips.Proposition]strips.Value, 2*len(names))
	for _, x := range names {
		facts[On(x)] = Table
		facts[Clear(x)] = strips.True
	}
	return strips.NewState(facts)
}

// Tower returns the partial state stacking names top to bottom, with the last
// block on the table and the first one clear.
func Tower(names ...string) strips.State {
	facts := make(map[strips.Proposition]strips.Value, 2*len(names))
	for i, x := range names {
		if i+1 < len(names) {
			facts[On(x)] = strips.Value(names[i+1])
			facts[Clear(names[i+1])] = strips.False
		} else {
			facts[On(x)] = Table
		}
	}
	if len(names) > 0 {
		facts[Clear(names[0])] = strips.True
	}
	return strips.NewState(facts)
}

func normalize(names []string) ([]string, error) {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || n == string(Table) {
			return nil, domain.ErrInvalidBlocks.Detail("reserved or empty name %q", n)
		}
		if seen[n] {
			return nil, domain.ErrInvalidBlocks.Detail("duplicate name %q", n)
		}
		seen[n] = true
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, domain.ErrInvalidBlocks.Detail("no blocks given")
	}
	sort.Strings(out)
	return out, nil
}
