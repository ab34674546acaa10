package solver

import (
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/bkushigian/postflop-solver/pkg/cards"
	"github.com/bkushigian/postflop-solver/pkg/errs"
	"github.com/bkushigian/postflop-solver/pkg/game"
	"github.com/bkushigian/postflop-solver/pkg/notation"
	"github.com/bkushigian/postflop-solver/pkg/tree"
)

// policyKind selects how a pass derives a player's strategy at each node.
type policyKind uint8

const (
	policyCurrent      policyKind = iota // regret-matched current strategy
	policyAverage                        // normalized strategy sums
	policyBestResponse                   // per-hand argmax over actions
)

// pass is one traversal of the arena from the hero's perspective: it
// computes the hero's counterfactual values per hand, and when update is
// set, performs the regret and strategy-sum writes of a CFR iteration.
// Sibling subtrees own disjoint storage slices, so child traversals fork
// safely onto the worker pool.
type pass struct {
	g      *game.PostFlopGame
	hero   tree.Player
	t      uint32
	params Params
	update bool

	heroPolicy policyKind
	oppPolicy  policyKind

	scores *scoreCache
}

func (p *pass) runFromRoot() ([]float64, error) {
	oopC, ipC, oopR, ipR := rootRanges(p.g)
	if p.hero == tree.OOP {
		return p.run(0, 0, oopC, ipC, oopR, ipR)
	}
	return p.run(0, 0, ipC, oopC, ipR, oopR)
}

// run returns the hero's counterfactual value for every hero combo at
// node idx, given both players' reach vectors aligned with the node's
// effective ranges.
func (p *pass) run(idx int32, depth int, heroCombos, oppCombos []notation.Combo, heroReach, oppReach []float64) ([]float64, error) {
	n := &p.g.Nodes[idx]
	if n.StorageOffsetsUnset() {
		return nil, errs.NewStateError("node is beyond the %s storage mode", p.g.StorageMode)
	}
	switch {
	case n.IsTerminal():
		cfv, err := p.evalTerminal(idx, heroCombos, oppCombos, oppReach)
		if err != nil {
			return nil, err
		}
		p.cacheCFV(idx, cfv)
		return cfv, nil
	case n.IsChance():
		return p.runChance(idx, depth, heroCombos, oppCombos, heroReach, oppReach)
	case n.ActingPlayer() == p.hero:
		return p.runHeroNode(idx, depth, heroCombos, oppCombos, heroReach, oppReach)
	default:
		return p.runOppNode(idx, depth, heroCombos, oppCombos, heroReach, oppReach)
	}
}

func (p *pass) runChance(idx int32, depth int, heroCombos, oppCombos []notation.Combo, heroReach, oppReach []float64) ([]float64, error) {
	n := &p.g.Nodes[idx]
	numChildren := int(n.NumChildren)
	weights := p.g.ChancePool.Slice(n.Storage1Off, numChildren, n.Scale1)

	childCFVs := make([][]float64, numChildren)
	heroMaps := make([][]int, numChildren)

	err := p.forEachChild(depth, numChildren, func(i int) error {
		child := idx + n.ChildrenOffset + int32(i)
		cn := &p.g.Nodes[child]
		dealt := cn.River
		if cn.Street == cards.Turn {
			dealt = cn.Turn
		}
		ch, chReach, hm := filterByCard(heroCombos, heroReach, *dealt)
		co, coReach, _ := filterByCard(oppCombos, oppReach, *dealt)

		cfv, err := p.run(child, depth+1, ch, co, chReach, coReach)
		if err != nil {
			return err
		}
		childCFVs[i] = cfv
		heroMaps[i] = hm
		return nil
	})
	if err != nil {
		return nil, err
	}

	cfv := make([]float64, len(heroCombos))
	for i := 0; i < numChildren; i++ {
		w := weights[i]
		for j, hi := range heroMaps[i] {
			cfv[hi] += w * childCFVs[i][j]
		}
	}
	p.cacheCFV(idx, cfv)
	return cfv, nil
}

func (p *pass) runHeroNode(idx int32, depth int, heroCombos, oppCombos []notation.Combo, heroReach, oppReach []float64) ([]float64, error) {
	n := &p.g.Nodes[idx]
	numActions := len(n.Actions())
	numHands := len(heroCombos)

	locked, isLocked := p.g.LockFor(idx)
	var sigma []float64
	switch {
	case isLocked:
		sigma = locked
	case p.heroPolicy == policyCurrent:
		sigma = p.regretMatch(idx, numActions, numHands)
	case p.heroPolicy == policyAverage:
		sigma = p.averageSigma(idx, numActions, numHands)
	}

	childCFVs := make([][]float64, numActions)
	err := p.forEachChild(depth, numActions, func(a int) error {
		childReach := heroReach
		if sigma != nil {
			childReach = make([]float64, numHands)
			for h := 0; h < numHands; h++ {
				childReach[h] = heroReach[h] * sigma[a*numHands+h]
			}
		}
		cfv, err := p.run(idx+n.ChildrenOffset+int32(a), depth+1, heroCombos, oppCombos, childReach, oppReach)
		if err != nil {
			return err
		}
		childCFVs[a] = cfv
		return nil
	})
	if err != nil {
		return nil, err
	}

	cfv := make([]float64, numHands)
	if sigma == nil {
		// Unlocked best response: take the best action per hand.
		for h := 0; h < numHands; h++ {
			best := math.Inf(-1)
			for a := 0; a < numActions; a++ {
				if v := childCFVs[a][h]; v > best {
					best = v
				}
			}
			cfv[h] = best
		}
	} else {
		for a := 0; a < numActions; a++ {
			for h := 0; h < numHands; h++ {
				cfv[h] += sigma[a*numHands+h] * childCFVs[a][h]
			}
		}
	}

	if p.update && !isLocked {
		p.updateNode(idx, numActions, numHands, sigma, childCFVs, cfv, heroReach)
	}
	if p.hero == tree.IP {
		p.cacheCFV(idx, cfv)
	}
	return cfv, nil
}

func (p *pass) runOppNode(idx int32, depth int, heroCombos, oppCombos []notation.Combo, heroReach, oppReach []float64) ([]float64, error) {
	n := &p.g.Nodes[idx]
	numActions := len(n.Actions())
	numOpp := len(oppCombos)

	locked, isLocked := p.g.LockFor(idx)
	var sigma []float64
	if isLocked {
		sigma = locked
	} else if p.oppPolicy == policyAverage {
		sigma = p.averageSigma(idx, numActions, numOpp)
	} else {
		sigma = p.regretMatch(idx, numActions, numOpp)
	}

	childCFVs := make([][]float64, numActions)
	err := p.forEachChild(depth, numActions, func(a int) error {
		childReach := make([]float64, numOpp)
		for o := 0; o < numOpp; o++ {
			childReach[o] = oppReach[o] * sigma[a*numOpp+o]
		}
		cfv, err := p.run(idx+n.ChildrenOffset+int32(a), depth+1, heroCombos, oppCombos, heroReach, childReach)
		if err != nil {
			return err
		}
		childCFVs[a] = cfv
		return nil
	})
	if err != nil {
		return nil, err
	}

	cfv := make([]float64, len(heroCombos))
	for a := 0; a < numActions; a++ {
		for h := range cfv {
			cfv[h] += childCFVs[a][h]
		}
	}
	if p.hero == tree.IP {
		p.cacheCFV(idx, cfv)
	}
	return cfv, nil
}

// updateNode applies one iteration's regret and strategy-sum updates at an
// unlocked hero node.
func (p *pass) updateNode(idx int32, numActions, numHands int, sigma []float64, childCFVs [][]float64, cfv, heroReach []float64) {
	n := &p.g.Nodes[idx]
	pos, neg, strat, w := discounts(p.params, p.t)

	regs := p.g.RegretPool.Slice(n.Storage2Off, numActions*numHands, n.Scale2)
	for a := 0; a < numActions; a++ {
		for h := 0; h < numHands; h++ {
			r := regs[a*numHands+h]
			if r > 0 {
				r *= pos
			} else {
				r *= neg
			}
			r += childCFVs[a][h] - cfv[h]
			if p.params.PlusClamp && r < 0 {
				r = 0
			}
			regs[a*numHands+h] = r
		}
	}
	p.g.RegretPool.SetSlice(n.Storage2Off, regs, &n.Scale2)

	sums := p.g.StrategyPool.Slice(n.Storage1Off, numActions*numHands, n.Scale1)
	for a := 0; a < numActions; a++ {
		for h := 0; h < numHands; h++ {
			sums[a*numHands+h] = sums[a*numHands+h]*strat + w*heroReach[h]*sigma[a*numHands+h]
		}
	}
	p.g.StrategyPool.SetSlice(n.Storage1Off, sums, &n.Scale1)
}

// cacheCFV writes the hero's counterfactual values into the node's CFV
// storage during update passes: the IP pool exists at every node, while
// OOP values share the regret pool's slot at chance and terminal nodes
// (player nodes keep regrets there).
func (p *pass) cacheCFV(idx int32, cfv []float64) {
	if !p.update {
		return
	}
	n := &p.g.Nodes[idx]
	if n.StorageOffsetsUnset() {
		return
	}
	if p.hero == tree.IP {
		p.g.IPCFVPool.SetSlice(n.Storage3Off, cfv, &n.Scale3)
		return
	}
	if n.Kind() != tree.PlayerNodeKind {
		p.g.RegretPool.SetSlice(n.Storage2Off, cfv, &n.Scale2)
	}
}

// regretMatch derives the current strategy from cumulative regrets:
// positive regrets normalized per hand, uniform where no action has
// positive regret.
func (p *pass) regretMatch(idx int32, numActions, numHands int) []float64 {
	n := &p.g.Nodes[idx]
	regs := p.g.RegretPool.Slice(n.Storage2Off, numActions*numHands, n.Scale2)

	sigma := make([]float64, numActions*numHands)
	uniform := 1.0 / float64(numActions)
	for h := 0; h < numHands; h++ {
		var denom float64
		for a := 0; a < numActions; a++ {
			if r := regs[a*numHands+h]; r > 0 {
				denom += r
			}
		}
		for a := 0; a < numActions; a++ {
			if denom > 0 {
				if r := regs[a*numHands+h]; r > 0 {
					sigma[a*numHands+h] = r / denom
				}
			} else {
				sigma[a*numHands+h] = uniform
			}
		}
	}
	return sigma
}

// averageSigma normalizes the accumulated strategy sums into the average
// strategy, uniform where untrained.
func (p *pass) averageSigma(idx int32, numActions, numHands int) []float64 {
	n := &p.g.Nodes[idx]
	sums := p.g.StrategyPool.Slice(n.Storage1Off, numActions*numHands, n.Scale1)

	sigma := make([]float64, numActions*numHands)
	uniform := 1.0 / float64(numActions)
	for h := 0; h < numHands; h++ {
		var denom float64
		for a := 0; a < numActions; a++ {
			denom += sums[a*numHands+h]
		}
		for a := 0; a < numActions; a++ {
			if denom > 0 {
				sigma[a*numHands+h] = sums[a*numHands+h] / denom
			} else {
				sigma[a*numHands+h] = uniform
			}
		}
	}
	return sigma
}

// forEachChild runs fn for each child index, forking siblings onto the
// worker pool near the root and recursing serially below the depth
// threshold.
func (p *pass) forEachChild(depth, numChildren int, fn func(i int) error) error {
	if p.params.UseParallel && depth < p.params.ParallelDepth && numChildren > 1 {
		var eg errgroup.Group
		for i := 0; i < numChildren; i++ {
			i := i
			eg.Go(func() error { return fn(i) })
		}
		return eg.Wait()
	}
	for i := 0; i < numChildren; i++ {
		if err := fn(i); err != nil {
			return err
		}
	}
	return nil
}

// discounts returns the DCFR/LCFR discount factors for iteration t: the
// positive- and negative-regret multipliers, the strategy-sum multiplier,
// and the strategy contribution weight.
func discounts(p Params, t uint32) (pos, neg, strat, w float64) {
	ft := float64(t)
	pos, neg, strat, w = 1, 1, 1, 1
	if p.Alpha != 1 {
		x := math.Pow(ft, p.Alpha)
		pos = x / (x + 1)
	}
	if !p.PlusClamp {
		x := math.Pow(ft, p.Beta)
		neg = x / (x + 1)
	}
	if p.Gamma != 0 {
		strat = math.Pow(ft/(ft+1), p.Gamma)
	}
	if p.LinearWeighting {
		w = ft
	}
	return
}

// filterByCard drops combos containing c, returning the survivors, their
// reaches, and each survivor's index in the parent ordering.
func filterByCard(combos []notation.Combo, reach []float64, c cards.Card) ([]notation.Combo, []float64, []int) {
	outC := make([]notation.Combo, 0, len(combos))
	outR := make([]float64, 0, len(combos))
	idx := make([]int, 0, len(combos))
	for i, cb := range combos {
		if cb.Card1 == c || cb.Card2 == c {
			continue
		}
		outC = append(outC, cb)
		outR = append(outR, reach[i])
		idx = append(idx, i)
	}
	return outC, outR, idx
}
