package solver

import (
	"github.com/bkushigian/postflop-solver/pkg/cards"
	"github.com/bkushigian/postflop-solver/pkg/errs"
	"github.com/bkushigian/postflop-solver/pkg/game"
	"github.com/bkushigian/postflop-solver/pkg/tree"
)

// ReloadAndResolveCopy reconstructs a full-precision game from a
// street-truncated one: it builds a fresh arena from g's configs,
// allocates storage for every street, copies g's trained payloads, then
// trains only the streets g never stored. The loaded strategies are
// preserved exactly by installing temporary locks on every trained Player
// node for the duration of the solve; locked nodes do not accumulate
// regrets but still propagate counterfactual values, which is what makes
// best response on the fresh streets correct.
func ReloadAndResolveCopy(g *game.PostFlopGame, params Params, maxIters uint32, target float64, print bool) (*game.PostFlopGame, error) {
	if g.StrategyPool == nil {
		return nil, errs.NewStateError("cannot resolve a game with no allocated storage (state=%s)", g.State)
	}

	ng, err := game.Build(g.ActionTree, g.CardConfig)
	if err != nil {
		return nil, err
	}
	if err := ng.AllocateMemory(g.Compressed); err != nil {
		return nil, err
	}
	if len(ng.Nodes) != len(g.Nodes) {
		return nil, errs.NewStateError("rebuilt arena has %d nodes, source has %d", len(ng.Nodes), len(g.Nodes))
	}

	limit := cards.BoardState(g.StorageMode)
	copyTrainedStreets(g, ng, limit)

	origLocks := cloneLocks(g.LockingStrategy())

	// Synthetic locks freeze every trained street at its loaded average
	// strategy; genuine locks take precedence where both exist.
	synth := cloneLocks(origLocks)
	s, err := New(ng, params)
	if err != nil {
		return nil, err
	}
	for i := range ng.Nodes {
		n := &ng.Nodes[i]
		if n.Kind() != tree.PlayerNodeKind || n.Street > limit {
			continue
		}
		if _, ok := synth[int32(i)]; ok {
			continue
		}
		synth[int32(i)] = s.AverageStrategyAt(int32(i))
	}
	ng.SetLockingStrategy(synth)

	if _, err := s.Solve(maxIters, target, print); err != nil {
		return nil, err
	}

	ng.SetLockingStrategy(origLocks)
	ng.State = game.Solved
	return ng, nil
}

// ReloadAndResolve performs ReloadAndResolveCopy and replaces g in place,
// releasing the original's storage after the copy.
func ReloadAndResolve(g *game.PostFlopGame, params Params, maxIters uint32, target float64, print bool) error {
	ng, err := ReloadAndResolveCopy(g, params, maxIters, target, print)
	if err != nil {
		return err
	}
	g.Adopt(ng)
	return nil
}

// copyTrainedStreets copies every valid payload slice for streets at or
// below limit from src into dst. Chance weights are recomputed by
// allocation and need no copy.
func copyTrainedStreets(src, dst *game.PostFlopGame, limit cards.BoardState) {
	for i := range src.Nodes {
		sn := &src.Nodes[i]
		dn := &dst.Nodes[i]
		if sn.Street > limit || sn.StorageOffsetsUnset() {
			continue
		}
		if l := sn.StrategyCount(); l > 0 {
			vals := src.StrategyPool.Slice(sn.Storage1Off, l, sn.Scale1)
			dst.StrategyPool.SetSlice(dn.Storage1Off, vals, &dn.Scale1)
		}
		if l := sn.RegretCount(); l > 0 {
			vals := src.RegretPool.Slice(sn.Storage2Off, l, sn.Scale2)
			dst.RegretPool.SetSlice(dn.Storage2Off, vals, &dn.Scale2)
		}
		if l := sn.IPCFVCount(); l > 0 {
			vals := src.IPCFVPool.Slice(sn.Storage3Off, l, sn.Scale3)
			dst.IPCFVPool.SetSlice(dn.Storage3Off, vals, &dn.Scale3)
		}
	}
}

func cloneLocks(m map[int32][]float64) map[int32][]float64 {
	out := make(map[int32][]float64, len(m))
	for k, v := range m {
		vec := make([]float64, len(v))
		copy(vec, v)
		out[k] = vec
	}
	return out
}
