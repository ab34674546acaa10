// Package solver implements the vectorized counterfactual-regret solver
// over the PostFlopGame arena: discounted CFR iteration with regret
// matching over per-hand vectors, a best-response exploitability probe,
// and the partial-snapshot resolve path.
package solver

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/bkushigian/postflop-solver/pkg/errs"
	"github.com/bkushigian/postflop-solver/pkg/game"
	"github.com/bkushigian/postflop-solver/pkg/notation"
	"github.com/bkushigian/postflop-solver/pkg/tree"
)

// Params selects the CFR variant and the parallelism shape.
type Params struct {
	// Alpha and Beta are the DCFR discount exponents applied to positive
	// and negative cumulative regrets each iteration. Alpha = 1 disables
	// positive discounting; Beta is ignored when PlusClamp is set (there
	// are no negative regrets to discount).
	Alpha float64
	Beta  float64

	// Gamma is the strategy-sum discount exponent: sums are scaled by
	// (t/(t+1))^Gamma each iteration. Zero disables discounting.
	Gamma float64

	// PlusClamp clamps cumulative regrets at zero after each update (CFR+).
	PlusClamp bool

	// LinearWeighting weights strategy-sum contributions by the iteration
	// index (Linear CFR) instead of uniformly.
	LinearWeighting bool

	// UseParallel forks sibling subtrees onto the shared worker pool during
	// the downward/upward passes. ParallelDepth bounds how deep forking
	// goes before the recursion switches to serial; task-per-node
	// granularity costs more than it buys.
	UseParallel   bool
	ParallelDepth int
}

// DefaultParams returns the CFR+ configuration: clamped regrets with
// linearly weighted strategy averaging.
func DefaultParams() Params {
	return Params{Alpha: 1, PlusClamp: true, LinearWeighting: true, ParallelDepth: 4}
}

// DCFRParams returns the discounted-CFR configuration from Brown &
// Sandholm's recommended exponents.
func DCFRParams() Params {
	return Params{Alpha: 1.5, Beta: 0.5, Gamma: 2, ParallelDepth: 4}
}

// Solver drives CFR iterations over one PostFlopGame.
type Solver struct {
	g      *game.PostFlopGame
	params Params

	iters  uint32
	cancel atomic.Bool
	scores *scoreCache
}

// New wraps an allocated game in a solver. The game must be fully
// allocated (storage mode River); partially loaded games are trained via
// ReloadAndResolve instead.
func New(g *game.PostFlopGame, params Params) (*Solver, error) {
	if g.State < game.MemoryAllocated {
		return nil, errs.NewStateError("cannot solve before memory is allocated (state=%s)", g.State)
	}
	if g.StorageMode != game.StorageRiver {
		return nil, errs.NewStateError("cannot solve a partially allocated game (storage mode %s); use ReloadAndResolve", g.StorageMode)
	}
	return &Solver{g: g, params: params, scores: newScoreCache()}, nil
}

// Game returns the game this solver trains.
func (s *Solver) Game() *game.PostFlopGame { return s.g }

// Iterations returns how many iterations have completed.
func (s *Solver) Iterations() uint32 { return s.iters }

// Cancel requests that Solve stop at the next iteration boundary.
// Iteration boundaries are the only commit points, so the game is always
// left consistent.
func (s *Solver) Cancel() { s.cancel.Store(true) }

// exploitCheckEvery is how often Solve probes exploitability. Best
// response is about as expensive as one iteration, so probing every
// iteration would double the cost of a run.
const exploitCheckEvery = 10

// Solve runs up to maxIters iterations, stopping early once the measured
// exploitability drops to target (in chips). Returns the last measured
// exploitability. Re-solving an already solved game continues training
// from the accumulated regrets rather than failing.
func (s *Solver) Solve(maxIters uint32, target float64, print bool) (float64, error) {
	expl := math.Inf(1)
	for i := uint32(0); i < maxIters; i++ {
		if s.cancel.Load() {
			break
		}
		if err := s.SolveStep(s.iters + 1); err != nil {
			return expl, err
		}
		s.iters++

		if s.iters%exploitCheckEvery == 0 || i == maxIters-1 {
			e, err := s.Exploitability()
			if err != nil {
				return expl, err
			}
			expl = e
			if print {
				fmt.Printf("iteration %d: exploitability %.6f\n", s.iters, expl)
			}
			if expl <= target {
				break
			}
		}
	}

	if math.IsInf(expl, 1) {
		e, err := s.Exploitability()
		if err != nil {
			return expl, err
		}
		expl = e
	}

	s.g.State = game.Solved
	return expl, nil
}

// SolveStep runs a single iteration: one regret-update traversal per
// player, at iteration index t (1-based; the index drives the discount
// schedule).
func (s *Solver) SolveStep(t uint32) error {
	for _, p := range []tree.Player{tree.OOP, tree.IP} {
		ps := &pass{
			g:          s.g,
			hero:       p,
			t:          t,
			params:     s.params,
			update:     true,
			heroPolicy: policyCurrent,
			oppPolicy:  policyCurrent,
			scores:     s.scores,
		}
		if _, err := ps.runFromRoot(); err != nil {
			return err
		}
	}
	return nil
}

// rootRanges returns each player's effective combos and starting reach
// weights at the arena root.
func rootRanges(g *game.PostFlopGame) (oopCombos, ipCombos []notation.Combo, oopReach, ipReach []float64) {
	oopR := g.RangeAt(0, tree.OOP)
	ipR := g.RangeAt(0, tree.IP)
	oopCombos = oopR.Combos()
	ipCombos = ipR.Combos()
	oopReach = make([]float64, len(oopCombos))
	for i, c := range oopCombos {
		oopReach[i] = oopR[c]
	}
	ipReach = make([]float64, len(ipCombos))
	for i, c := range ipCombos {
		ipReach[i] = ipR[c]
	}
	return
}

