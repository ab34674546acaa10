package solver

import (
	"github.com/bkushigian/postflop-solver/pkg/cards"
	"github.com/bkushigian/postflop-solver/pkg/notation"
	"github.com/bkushigian/postflop-solver/pkg/tree"
)

// Readouts evaluate the solved game at the game's navigation cursor. Hand
// order matches PostFlopGame.PrivateCards for the same player.

// cursorState is both players' effective combos and average-strategy
// arrival reaches at the cursor, reconstructed by replaying the cursor's
// history from the root.
type cursorState struct {
	combos [2][]notation.Combo
	reach  [2][]float64
}

func (s *Solver) stateAtCursor() (*cursorState, error) {
	g := s.g
	oopC, ipC, oopR, ipR := rootRanges(g)
	st := &cursorState{
		combos: [2][]notation.Combo{oopC, ipC},
		reach:  [2][]float64{oopR, ipR},
	}

	idx := int32(0)
	for _, step := range g.History() {
		n := &g.Nodes[idx]
		child := idx + n.ChildrenOffset + step

		switch {
		case n.IsChance():
			cn := &g.Nodes[child]
			dealt := cn.River
			if cn.Street == cards.Turn {
				dealt = cn.Turn
			}
			for _, pl := range []tree.Player{tree.OOP, tree.IP} {
				c, r, _ := filterByCard(st.combos[pl], st.reach[pl], *dealt)
				st.combos[pl], st.reach[pl] = c, r
			}
		case n.Kind() == tree.PlayerNodeKind:
			pl := n.ActingPlayer()
			numActions := len(n.Actions())
			numHands := len(st.combos[pl])

			var sigma []float64
			if locked, ok := g.LockFor(idx); ok {
				sigma = locked
			} else {
				p := &pass{g: g, params: s.params, scores: s.scores}
				sigma = p.averageSigma(idx, numActions, numHands)
			}
			a := int(step)
			next := make([]float64, numHands)
			for h := 0; h < numHands; h++ {
				next[h] = st.reach[pl][h] * sigma[a*numHands+h]
			}
			st.reach[pl] = next
		}
		idx = child
	}
	return st, nil
}

// ExpectedValues returns the given player's expected value per hand at the
// cursor, in chips net of that player's investment since the root,
// assuming both players follow the average strategy below the cursor. Each
// hand's value is normalized by the opponent reach it can actually face.
func (s *Solver) ExpectedValues(player tree.Player) ([]float64, error) {
	st, err := s.stateAtCursor()
	if err != nil {
		return nil, err
	}
	opp := player.Opponent()

	p := &pass{
		g:          s.g,
		hero:       player,
		params:     s.params,
		heroPolicy: policyAverage,
		oppPolicy:  policyAverage,
		scores:     s.scores,
	}
	cfv, err := p.run(s.g.CurrentIndex(), 0, st.combos[player], st.combos[opp], st.reach[player], st.reach[opp])
	if err != nil {
		return nil, err
	}
	return normalizePerHand(cfv, st.combos[player], st.combos[opp], st.reach[opp]), nil
}

// Equity returns the given player's raw pot equity per hand at the cursor:
// the probability of winning at showdown (ties count half) against the
// opponent's reach-weighted range if all betting stopped and the remaining
// board ran out uniformly.
func (s *Solver) Equity(player tree.Player) ([]float64, error) {
	st, err := s.stateAtCursor()
	if err != nil {
		return nil, err
	}
	opp := player.Opponent()

	g := s.g
	n := g.CurrentNode()
	board := g.CardConfig.Board()
	if n.Turn != nil {
		board = append(board, *n.Turn)
	}
	if n.River != nil {
		board = append(board, *n.River)
	}

	num, den, err := s.equityWalk(board, st.combos[player], st.combos[opp], st.reach[opp], player)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(num))
	for i := range num {
		if den[i] > 0 {
			out[i] = num[i] / den[i]
		}
	}
	return out, nil
}

// equityWalk enumerates the remaining runout; at a complete board it
// returns each hero hand's win share (num) and valid opponent weight
// (den), and on earlier streets it sums both over every dealable card.
func (s *Solver) equityWalk(board cards.Board, heroCombos, oppCombos []notation.Combo, oppReach []float64, hero tree.Player) (num, den []float64, err error) {
	if len(board) == 5 {
		be, err := s.scores.boardEvalFor(s.g, board)
		if err != nil {
			return nil, nil, err
		}
		num = showdownCFV(heroCombos, oppReach, be.tables[hero], be.tables[hero.Opponent()], 1, 0.5, 0)
		den = foldCFV(heroCombos, oppCombos, oppReach, 1)
		return num, den, nil
	}

	num = make([]float64, len(heroCombos))
	den = make([]float64, len(heroCombos))
	dead := cards.BoardMask(board...)
	for _, c := range cards.RemainingCards(dead) {
		ch, hm := filterCombos(heroCombos, c)
		co, coReach, _ := filterByCard(oppCombos, oppReach, c)
		cn, cd, err := s.equityWalk(append(board, c), ch, co, coReach, hero)
		if err != nil {
			return nil, nil, err
		}
		for j, hi := range hm {
			num[hi] += cn[j]
			den[hi] += cd[j]
		}
	}
	return num, den, nil
}

// normalizePerHand divides each hand's counterfactual value by the
// opponent reach compatible with it.
func normalizePerHand(cfv []float64, heroCombos, oppCombos []notation.Combo, oppReach []float64) []float64 {
	var total float64
	var perCard [cards.NumCards]float64
	exact := make(map[notation.Combo]float64, len(oppCombos))
	for i, o := range oppCombos {
		w := oppReach[i]
		total += w
		perCard[o.Card1] += w
		perCard[o.Card2] += w
		exact[o] = w
	}

	out := make([]float64, len(cfv))
	for i, h := range heroCombos {
		valid := total - perCard[h.Card1] - perCard[h.Card2] + exact[h]
		if valid > 0 {
			out[i] = cfv[i] / valid
		}
	}
	return out
}

// AverageStrategyAt returns the normalized average strategy at an
// arbitrary arena node, honoring locks; action-major like game.Strategy.
func (s *Solver) AverageStrategyAt(idx int32) []float64 {
	g := s.g
	n := &g.Nodes[idx]
	if locked, ok := g.LockFor(idx); ok {
		out := make([]float64, len(locked))
		copy(out, locked)
		return out
	}
	numActions := len(n.Actions())
	numHands := int(n.NumElements) / numActions
	p := &pass{g: g, params: s.params, scores: s.scores}
	return p.averageSigma(idx, numActions, numHands)
}

// filterCombos drops combos containing c, returning survivors and their
// indices in the parent ordering.
func filterCombos(combos []notation.Combo, c cards.Card) ([]notation.Combo, []int) {
	out := make([]notation.Combo, 0, len(combos))
	idx := make([]int, 0, len(combos))
	for i, cb := range combos {
		if cb.Card1 == c || cb.Card2 == c {
			continue
		}
		out = append(out, cb)
		idx = append(idx, i)
	}
	return out, idx
}
