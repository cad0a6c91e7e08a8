package space

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rogersf/strips-engine/internal/blocks"
	"github.com/rogersf/strips-engine/internal/domain"
	"github.com/rogersf/strips-engine/internal/heuristic"
	"github.com/rogersf/strips-engine/internal/search"
	"github.com/rogersf/strips-engine/internal/strips"
)

var sixBlocks = []string{"a", "b", "c", "d", "e", "f"}

func stackGoal() strips.State {
	return strips.NewState(map[strips.Proposition]strips.Value{
		blocks.On("a"): "b",
		blocks.On("b"): "c",
		blocks.On("c"): "d",
	})
}

func blocksProblem(t *testing.T, names []string, initial, goal strips.State) *strips.Problem {
	t.Helper()
	d, err := blocks.NewDomain(names...)
	require.NoError(t, err)
	p, err := strips.NewProblem("blocks", d, initial, goal)
	require.NoError(t, err)
	return p
}

func towerProblem(t *testing.T) *strips.Problem {
	return blocksProblem(t, sixBlocks, blocks.AllOnTable(sixBlocks...), stackGoal())
}

// doorProblem cannot reach door=locked: no action produces it.
func doorProblem(t *testing.T) *strips.Problem {
	t.Helper()
	st := func(kv ...string) strips.State {
		m := make(map[strips.Proposition]strips.Value)
		for i := 0; i+1 < len(kv); i += 2 {
			m[strips.Proposition(kv[i])] = strips.Value(kv[i+1])
		}
		return strips.NewState(m)
	}
	d, err := strips.NewDomain(strips.Universe{
		"door": {"open", "closed", "locked"},
		"lit":  {strips.True, strips.False},
	}, []*strips.Action{
		strips.MustAction("open", st("door", "closed"), st("door", "open")),
		strips.MustAction("close", st("door", "open"), st("door", "closed")),
		strips.MustAction("switch-on", st("lit", "false"), st("lit", "true")),
		strips.MustAction("switch-off", st("lit", "true"), st("lit", "false")),
	})
	require.NoError(t, err)
	p, err := strips.NewProblem("door", d, st("door", "closed", "lit", "false"), st("door", "locked"))
	require.NoError(t, err)
	return p
}

func directions() []domain.Direction {
	return []domain.Direction{domain.DirectionForward, domain.DirectionRegression}
}

func firstPlan(t *testing.T, sp Space) (strips.Plan, bool) {
	t.Helper()
	path, found, err := search.NewMPP[strips.State, *strips.Action](sp).Next(context.Background())
	require.NoError(t, err)
	if !found {
		return strips.Plan{}, false
	}
	return sp.Plan(path), true
}

func TestNew_UnknownDirection(t *testing.T) {
	_, err := New("sideways", towerProblem(t), nil)
	assert.ErrorIs(t, err, domain.ErrUnknownDirection)
}

func TestSpace_GoalAlreadyHolds(t *testing.T) {
	initial := blocks.AllOnTable(sixBlocks...)
	goal := strips.NewState(map[strips.Proposition]strips.Value{
		blocks.On("a"):    blocks.Table,
		blocks.Clear("f"): strips.True,
	})
	p := blocksProblem(t, sixBlocks, initial, goal)
	require.True(t, p.Trivial())

	for _, dir := range directions() {
		sp, err := New(dir, p, nil)
		require.NoError(t, err)

		plan, found := firstPlan(t, sp)
		require.True(t, found, dir)
		assert.Equal(t, 0, plan.Len(), dir)
		assert.Equal(t, 0.0, plan.Cost, dir)
	}
}

func TestSpace_SixBlockTower(t *testing.T) {
	p := towerProblem(t)
	hs := map[string]heuristic.Func{
		heuristic.NameZero:     heuristic.Zero,
		heuristic.NameMismatch: heuristic.MismatchCount,
	}

	for _, dir := range directions() {
		for name, h := range hs {
			sp, err := New(dir, p, h)
			require.NoError(t, err)

			plan, found := firstPlan(t, sp)
			require.True(t, found, "%s/%s", dir, name)
			assert.Equal(t, 3, plan.Len(), "%s/%s", dir, name)
			assert.Equal(t, 3.0, plan.Cost, "%s/%s", dir, name)

			final, err := plan.Replay(p.Initial())
			require.NoError(t, err)
			assert.True(t, final.Satisfies(p.Goal()), "%s/%s", dir, name)
		}
	}
}

func TestSpace_RegressionPlanIsExecutionOrder(t *testing.T) {
	sp := NewRegression(towerProblem(t), nil)
	plan, found := firstPlan(t, sp)
	require.True(t, found)

	// c must be on d before b goes onto c, and b before a.
	assert.Equal(t, []string{
		blocks.Move("c", "table", "d"),
		blocks.Move("b", "table", "c"),
		blocks.Move("a", "table", "b"),
	}, plan.Names())
}

func TestSpace_MPPNoWorseThanBranchAndBound(t *testing.T) {
	p := towerProblem(t)
	for _, dir := range directions() {
		sp, err := New(dir, p, nil)
		require.NoError(t, err)

		mpp, found := firstPlan(t, sp)
		require.True(t, found)

		path, found, err := search.NewBranchAndBound[strips.State, *strips.Action](sp, mpp.Cost+1).Search(context.Background())
		require.NoError(t, err)
		require.True(t, found, dir)
		assert.LessOrEqual(t, mpp.Cost, path.Cost(), dir)
	}
}

func TestSpace_Deterministic(t *testing.T) {
	for _, dir := range directions() {
		var runs [][]string
		for i := 0; i < 3; i++ {
			sp, err := New(dir, towerProblem(t), nil)
			require.NoError(t, err)
			plan, found := firstPlan(t, sp)
			require.True(t, found)
			runs = append(runs, plan.Names())
		}
		assert.Equal(t, runs[0], runs[1], dir)
		assert.Equal(t, runs[0], runs[2], dir)
	}
}

func TestSpace_BranchAndBoundImprovesMonotonically(t *testing.T) {
	p := towerProblem(t)
	for _, dir := range directions() {
		sp, err := New(dir, p, nil)
		require.NoError(t, err)

		var costs []float64
		b := search.NewBranchAndBound[strips.State, *strips.Action](sp, 5,
			search.WithOnImprove(func(cost float64, _ int) { costs = append(costs, cost) }))
		path, found, err := b.Search(context.Background())
		require.NoError(t, err)
		require.True(t, found, dir)

		require.NotEmpty(t, costs)
		for i := 1; i < len(costs); i++ {
			assert.Less(t, costs[i], costs[i-1], dir)
		}
		assert.Equal(t, costs[len(costs)-1], path.Cost())
		assert.Equal(t, 3.0, path.Cost(), dir)

		plan := sp.Plan(path)
		final, err := plan.Replay(p.Initial())
		require.NoError(t, err)
		assert.True(t, final.Satisfies(p.Goal()), dir)
		assert.Equal(t, path.Cost(), plan.Cost)
	}
}

func TestSpace_ResumedPlansAllReachGoal(t *testing.T) {
	p := towerProblem(t)
	for _, dir := range directions() {
		sp, err := New(dir, p, nil)
		require.NoError(t, err)

		mpp := search.NewMPP[strips.State, *strips.Action](sp)
		last := 0.0
		for i := 0; i < 4; i++ {
			path, found, err := mpp.Next(context.Background())
			require.NoError(t, err)
			require.True(t, found)

			plan := sp.Plan(path)
			assert.GreaterOrEqual(t, plan.Cost, last, dir)
			last = plan.Cost

			final, err := plan.Replay(p.Initial())
			require.NoError(t, err)
			assert.True(t, final.Satisfies(p.Goal()), dir)
		}
	}
}

func TestSpace_Unsolvable(t *testing.T) {
	p := doorProblem(t)
	ctx := context.Background()

	for _, dir := range directions() {
		sp, err := New(dir, p, nil)
		require.NoError(t, err)

		_, found := firstPlan(t, sp)
		assert.False(t, found, dir)

		for _, bound := range []float64{1, 5, 20, search.Unbounded} {
			_, found, err := search.NewBranchAndBound[strips.State, *strips.Action](sp, bound).Search(ctx)
			require.NoError(t, err)
			assert.False(t, found, "%s bound %v", dir, bound)
		}
	}
}

func TestForward_SkipsNoOpActions(t *testing.T) {
	p := doorProblem(t)
	sp := NewForward(p, nil)
	for _, arc := range sp.Neighbors(p.Initial()) {
		assert.False(t, arc.To.Equal(p.Initial()))
		assert.True(t, arc.Action.Applicable(p.Initial()))
	}
	assert.Len(t, sp.Neighbors(p.Initial()), 2)
}

// reachable enumerates every state reachable from start.
func reachable(sp *Forward, start strips.State) []strips.State {
	seen := map[string]bool{start.Key(): true}
	queue := []strips.State{start}
	var out []strips.State
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		out = append(out, s)
		for _, arc := range sp.Neighbors(s) {
			if !seen[arc.To.Key()] {
				seen[arc.To.Key()] = true
				queue = append(queue, arc.To)
			}
		}
	}
	return out
}

func TestMismatchCount_AdmissibleOnFourBlocks(t *testing.T) {
	names := []string{"a", "b", "c", "d"}
	d, err := blocks.NewDomain(names...)
	require.NoError(t, err)
	goal := stackGoal()

	root, err := strips.NewProblem("root", d, blocks.AllOnTable(names...), goal)
	require.NoError(t, err)
	states := reachable(NewForward(root, nil), root.Initial())
	// 4 blocks have 73 distinct arrangements.
	require.Len(t, states, 73)

	for _, s := range states {
		p, err := strips.NewProblem("from", d, s, goal)
		require.NoError(t, err)

		plan, found := firstPlan(t, NewForward(p, heuristic.Zero))
		require.True(t, found, s.String())
		assert.LessOrEqual(t, heuristic.MismatchCount(s, goal), plan.Cost, s.String())
	}
}

func TestRegress(t *testing.T) {
	moveAB := strips.MustAction(blocks.Move("a", "table", "b"),
		strips.NewState(map[strips.Proposition]strips.Value{
			blocks.On("a"): blocks.Table, blocks.Clear("a"): strips.True, blocks.Clear("b"): strips.True,
		}),
		strips.NewState(map[strips.Proposition]strips.Value{
			blocks.On("a"): "b", blocks.Clear("b"): strips.False,
		}),
	)

	tests := []struct {
		name    string
		subgoal map[strips.Proposition]strips.Value
		want    map[strips.Proposition]strips.Value
		ok      bool
	}{
		{
			name:    "achieves open proposition",
			subgoal: map[strips.Proposition]strips.Value{blocks.On("a"): "b", blocks.On("b"): "c"},
			want: map[strips.Proposition]strips.Value{
				blocks.On("a"): blocks.Table, blocks.Clear("a"): strips.True, blocks.Clear("b"): strips.True,
				blocks.On("b"): "c",
			},
			ok: true,
		},
		{
			name:    "irrelevant action",
			subgoal: map[strips.Proposition]strips.Value{blocks.On("c"): "d"},
		},
		{
			name:    "effect clobbers open proposition",
			subgoal: map[strips.Proposition]strips.Value{blocks.On("a"): "b", blocks.Clear("b"): strips.True},
		},
		{
			name:    "precondition contradicts untouched proposition",
			subgoal: map[strips.Proposition]strips.Value{blocks.On("a"): "b", blocks.Clear("a"): strips.False},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Regress(strips.NewState(tt.subgoal), moveAB)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, strips.NewState(tt.want).Key(), got.Key())
			}
		})
	}
}
