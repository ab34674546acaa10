package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkushigian/postflop-solver/pkg/cards"
	"github.com/bkushigian/postflop-solver/pkg/game"
	"github.com/bkushigian/postflop-solver/pkg/tree"
)

func turnSpot(t *testing.T) *game.PostFlopGame {
	t.Helper()
	cfg := tree.TreeConfig{
		InitialState:   cards.Turn,
		StartingPot:    10,
		EffectiveStack: 30,
		Flop:           streetOptions(1.0, 1.0),
		Turn:           streetOptions(1.0, 1.0),
		River:          streetOptions(1.0, 1.0),
	}
	return buildGame(t, cfg, "Kh9s4c7d", "AA,QQ", "KK,JJ")
}

func TestReloadAndResolveCopy(t *testing.T) {
	g := turnSpot(t)
	s, err := New(g, DefaultParams())
	require.NoError(t, err)
	_, err = s.Solve(100, 0, false)
	require.NoError(t, err)

	rootStrategy, err := g.Strategy()
	require.NoError(t, err)

	ng, err := ReloadAndResolveCopy(g, DefaultParams(), 100, 0, false)
	require.NoError(t, err)
	assert.Equal(t, game.Solved, ng.State)
	assert.Equal(t, game.StorageRiver, ng.StorageMode)
	assert.Empty(t, ng.LockingStrategy(), "synthetic locks must be dropped")

	// The source's turn strategy survives resolution untouched.
	resolved, err := ng.Strategy()
	require.NoError(t, err)
	require.Len(t, resolved, len(rootStrategy))
	for i := range rootStrategy {
		assert.InDelta(t, rootStrategy[i], resolved[i], 1e-3)
	}
}

func TestReloadAndResolveCopy_KeepsGenuineLocks(t *testing.T) {
	g := turnSpot(t)
	root := g.Root()
	vec := make([]float64, int(root.NumElements))
	numHands := root.OOPLen
	for h := 0; h < numHands; h++ {
		vec[h] = 1.0
	}
	require.NoError(t, g.LockCurrentStrategy(0, vec))

	s, err := New(g, DefaultParams())
	require.NoError(t, err)
	_, err = s.Solve(50, 0, false)
	require.NoError(t, err)

	ng, err := ReloadAndResolveCopy(g, DefaultParams(), 50, 0, false)
	require.NoError(t, err)

	locked, ok := ng.LockFor(0)
	require.True(t, ok, "genuine lock must survive the resolve")
	assert.Equal(t, vec, locked)
}

func TestReloadAndResolve_InPlace(t *testing.T) {
	g := turnSpot(t)
	s, err := New(g, DefaultParams())
	require.NoError(t, err)
	_, err = s.Solve(50, 0, false)
	require.NoError(t, err)

	nodesBefore := len(g.Nodes)
	require.NoError(t, ReloadAndResolve(g, DefaultParams(), 50, 0, false))
	assert.Equal(t, game.Solved, g.State)
	assert.Equal(t, nodesBefore, len(g.Nodes))
	assert.Zero(t, g.CurrentIndex(), "cursor resets after in-place resolve")
}

func TestReloadAndResolveCopy_RequiresStorage(t *testing.T) {
	allocated := turnSpot(t)
	bare, err := game.Build(allocated.ActionTree, allocated.CardConfig)
	require.NoError(t, err)
	_, err = ReloadAndResolveCopy(bare, DefaultParams(), 10, 0, false)
	require.Error(t, err)
}
