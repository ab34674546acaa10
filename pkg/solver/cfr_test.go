package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkushigian/postflop-solver/pkg/cards"
	"github.com/bkushigian/postflop-solver/pkg/errs"
	"github.com/bkushigian/postflop-solver/pkg/game"
	"github.com/bkushigian/postflop-solver/pkg/notation"
	"github.com/bkushigian/postflop-solver/pkg/tree"
)

func streetOptions(bet, raise float64) tree.StreetOptions {
	var opts tree.StreetOptions
	if bet > 0 {
		opts.Bet = []tree.BetSize{{Kind: tree.PotRelative, Ratio: bet}}
	}
	if raise > 0 {
		opts.Raise = []tree.BetSize{{Kind: tree.PotRelative, Ratio: raise}}
	}
	return opts
}

func buildGame(t *testing.T, cfg tree.TreeConfig, board string, oopRange, ipRange string) *game.PostFlopGame {
	t.Helper()
	at, err := tree.Build(cfg)
	require.NoError(t, err)

	bs, err := cards.ParseCards(board)
	require.NoError(t, err)
	oop, err := notation.ParseRange(oopRange)
	require.NoError(t, err)
	ip, err := notation.ParseRange(ipRange)
	require.NoError(t, err)

	cc := &game.CardConfig{RangeOOP: oop, RangeIP: ip}
	copy(cc.Flop[:], bs[:3])
	if len(bs) >= 4 {
		cc.Turn = &bs[3]
	}
	if len(bs) == 5 {
		cc.River = &bs[4]
	}

	g, err := game.Build(at, cc)
	require.NoError(t, err)
	require.NoError(t, g.AllocateMemory(false))
	return g
}

func riverConfig(pot, stack float64) tree.TreeConfig {
	opts := streetOptions(1.0, 1.0)
	return tree.TreeConfig{
		InitialState:   cards.River,
		StartingPot:    pot,
		EffectiveStack: stack,
		Flop:           opts,
		Turn:           opts,
		River:          opts,
	}
}

func TestNew_RequiresAllocation(t *testing.T) {
	cfg := riverConfig(10, 90)
	at, err := tree.Build(cfg)
	require.NoError(t, err)
	oop, _ := notation.ParseRange("AA")
	ip, _ := notation.ParseRange("QQ")
	bs, _ := cards.ParseCards("Kh9s4c7d2s")
	cc := &game.CardConfig{RangeOOP: oop, RangeIP: ip}
	copy(cc.Flop[:], bs[:3])
	cc.Turn, cc.River = &bs[3], &bs[4]
	g, err := game.Build(at, cc)
	require.NoError(t, err)

	_, err = New(g, DefaultParams())
	var se *errs.StateError
	require.ErrorAs(t, err, &se)
}

func TestSolve_NutsVsBluffcatcher(t *testing.T) {
	// AA always beats QQ on this runout; at equilibrium OOP extracts value
	// and the exploitability collapses quickly.
	g := buildGame(t, riverConfig(10, 90), "Kh9s4c7d2s", "AA", "QQ")
	s, err := New(g, DefaultParams())
	require.NoError(t, err)

	expl, err := s.Solve(500, 0.05, false)
	require.NoError(t, err)
	assert.Less(t, expl, 0.5, "exploitability should be well under 5%% of the pot")
	assert.Equal(t, game.Solved, g.State)

	// OOP's EV with the pure nuts is at least the whole pot.
	evs, err := s.ExpectedValues(tree.OOP)
	require.NoError(t, err)
	for _, ev := range evs {
		assert.GreaterOrEqual(t, ev, 10.0-0.5)
	}
}

func TestSolve_StrategySumsToOne(t *testing.T) {
	g := buildGame(t, riverConfig(10, 90), "Kh9s4c7d2s", "AA,KK,QQ", "JJ,TT")
	s, err := New(g, DefaultParams())
	require.NoError(t, err)
	_, err = s.Solve(100, 0, false)
	require.NoError(t, err)

	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Kind() != tree.PlayerNodeKind {
			continue
		}
		numActions := len(n.Actions())
		numHands := int(n.NumElements) / numActions
		sigma := s.AverageStrategyAt(int32(i))
		for h := 0; h < numHands; h++ {
			var sum float64
			for a := 0; a < numActions; a++ {
				sum += sigma[a*numHands+h]
			}
			assert.InDelta(t, 1.0, sum, 1e-4, "node %d hand %d", i, h)
		}
	}
}

func TestSolve_RegretsNonNegative(t *testing.T) {
	g := buildGame(t, riverConfig(10, 90), "Kh9s4c7d2s", "AA,QQ", "KK,JJ")
	s, err := New(g, DefaultParams())
	require.NoError(t, err)
	_, err = s.Solve(50, 0, false)
	require.NoError(t, err)

	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Kind() != tree.PlayerNodeKind || n.IsLocked {
			continue
		}
		regs := g.RegretPool.Slice(n.Storage2Off, int(n.NumElements), n.Scale2)
		for _, r := range regs {
			assert.GreaterOrEqual(t, r, -1e-9, "node %d", i)
		}
	}
}

func TestSolve_ExploitabilityImproves(t *testing.T) {
	g := buildGame(t, riverConfig(10, 90), "Kh9s4c7d2s", "AA,KK,QQ,JJ", "AA,KK,QQ,JJ")
	s, err := New(g, DefaultParams())
	require.NoError(t, err)

	early, err := s.Solve(10, 0, false)
	require.NoError(t, err)
	late, err := s.Solve(200, 0, false)
	require.NoError(t, err)
	assert.LessOrEqual(t, late, early+0.05)
}

func TestSolve_Cancel(t *testing.T) {
	g := buildGame(t, riverConfig(10, 90), "Kh9s4c7d2s", "AA", "QQ")
	s, err := New(g, DefaultParams())
	require.NoError(t, err)

	s.Cancel()
	_, err = s.Solve(1000, 0, false)
	require.NoError(t, err)
	assert.Zero(t, s.Iterations(), "cancelled solver should not iterate")
}

func TestSolve_DCFRVariant(t *testing.T) {
	g := buildGame(t, riverConfig(10, 90), "Kh9s4c7d2s", "AA,QQ", "KK,JJ")
	s, err := New(g, DCFRParams())
	require.NoError(t, err)
	expl, err := s.Solve(300, 0.05, false)
	require.NoError(t, err)
	assert.Less(t, expl, 1.0)
}

func TestLockedNodeFrozen(t *testing.T) {
	// A node locked to pure check must not move, and its regrets must
	// stay untouched, however long the solver runs.
	g := buildGame(t, riverConfig(10, 90), "Kh9s4c7d2s", "AA,QQ", "KK,JJ")
	root := g.Root()
	numActions := len(root.Actions())
	numHands := root.OOPLen
	require.Equal(t, notation.Check, root.Actions()[0].Type)

	vec := make([]float64, numActions*numHands)
	for h := 0; h < numHands; h++ {
		vec[h] = 1.0
	}
	require.NoError(t, g.LockCurrentStrategy(0, vec))

	s, err := New(g, DefaultParams())
	require.NoError(t, err)
	_, err = s.Solve(100, 0, false)
	require.NoError(t, err)

	sigma := s.AverageStrategyAt(0)
	assert.Equal(t, vec, sigma)

	regs := g.RegretPool.Slice(root.Storage2Off, int(root.NumElements), root.Scale2)
	for _, r := range regs {
		assert.Zero(t, r, "locked node accumulated regret")
	}
}

func TestRakeCap(t *testing.T) {
	// A 200-chip showdown pot at 5% rake capped at 3 pays exactly 3 chips
	// of rake, not 10. With no bet sizes the game is check-check-showdown
	// and AA scoops, so each AA hand's EV is the raked pot.
	opts := tree.StreetOptions{}
	cfg := tree.TreeConfig{
		InitialState:   cards.River,
		StartingPot:    200,
		EffectiveStack: 100,
		RakeRate:       0.05,
		RakeCap:        3,
		Flop:           opts,
		Turn:           opts,
		River:          opts,
	}
	g := buildGame(t, cfg, "Kh9s4c7d2s", "AA", "QQ")
	s, err := New(g, DefaultParams())
	require.NoError(t, err)

	evs, err := s.ExpectedValues(tree.OOP)
	require.NoError(t, err)
	for _, ev := range evs {
		assert.InDelta(t, 197.0, ev, 1e-6)
	}
}

func TestEquityReadout(t *testing.T) {
	g := buildGame(t, riverConfig(10, 90), "Kh9s4c7d2s", "AA", "QQ")
	s, err := New(g, DefaultParams())
	require.NoError(t, err)

	eq, err := s.Equity(tree.OOP)
	require.NoError(t, err)
	for _, e := range eq {
		assert.InDelta(t, 1.0, e, 1e-9, "AA has 100%% equity vs QQ here")
	}

	eqIP, err := s.Equity(tree.IP)
	require.NoError(t, err)
	for _, e := range eqIP {
		assert.InDelta(t, 0.0, e, 1e-9)
	}
}

func TestSymmetricGameValue(t *testing.T) {
	// Mirrored ranges on a dry runout: each player's EV is half the pot.
	g := buildGame(t, riverConfig(10, 90), "Kh9s4c7d2s", "AA,KK", "AA,KK")
	s, err := New(g, DefaultParams())
	require.NoError(t, err)
	_, err = s.Solve(300, 0.02, false)
	require.NoError(t, err)

	evOOP, err := s.GameValue(tree.OOP)
	require.NoError(t, err)
	evIP, err := s.GameValue(tree.IP)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, evOOP, 0.5)
	assert.InDelta(t, 5.0, evIP, 0.5)
}

func TestSolve_Parallel(t *testing.T) {
	params := DefaultParams()
	params.UseParallel = true

	cfg := tree.TreeConfig{
		InitialState:   cards.Turn,
		StartingPot:    10,
		EffectiveStack: 30,
		Flop:           streetOptions(1.0, 1.0),
		Turn:           streetOptions(1.0, 1.0),
		River:          streetOptions(1.0, 1.0),
	}
	g := buildGame(t, cfg, "Kh9s4c7d", "AA", "QQ")
	s, err := New(g, params)
	require.NoError(t, err)
	expl, err := s.Solve(50, 0, false)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, expl, -1e-6)
}
