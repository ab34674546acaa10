package solver

import (
	"sync"

	"github.com/bkushigian/postflop-solver/pkg/cards"
	"github.com/bkushigian/postflop-solver/pkg/errs"
	"github.com/bkushigian/postflop-solver/pkg/eval"
	"github.com/bkushigian/postflop-solver/pkg/game"
	"github.com/bkushigian/postflop-solver/pkg/notation"
	"github.com/bkushigian/postflop-solver/pkg/tree"
)

// evalTerminal scores a terminal node for the hero: the counterfactual
// value per hero hand, weighted by the opponent's reach with card-removal
// effects (an opponent hand sharing a card with the hero's contributes
// nothing).
//
// Values are net chips relative to the root: the share of the final pot
// received minus the chips invested since the root. Rake comes off
// showdown pots only, capped per the tree config; folds pay the whole pot
// to the non-folder pre-rake.
func (p *pass) evalTerminal(idx int32, heroCombos, oppCombos []notation.Combo, oppReach []float64) ([]float64, error) {
	n := &p.g.Nodes[idx]
	src := &n.Src
	pot := src.Pot
	contrib := src.Contrib[p.hero]

	if src.Terminal == tree.TerminalFold {
		payoff := pot - contrib
		if src.Folder == p.hero {
			payoff = -contrib
		}
		return foldCFV(heroCombos, oppCombos, oppReach, payoff), nil
	}

	cfg := &p.g.ActionTree.Config
	rake := cfg.RakeRate * pot
	if cfg.RakeCap > 0 && rake > cfg.RakeCap {
		rake = cfg.RakeCap
	}
	payWin := pot - rake - contrib
	payTie := (pot-rake)/2 - contrib
	payLose := -contrib

	be, err := p.scores.boardEvalAt(p.g, idx)
	if err != nil {
		return nil, err
	}
	heroT := be.tables[p.hero]
	oppT := be.tables[p.hero.Opponent()]
	if len(heroT.combos) != len(heroCombos) || len(oppT.combos) != len(oppCombos) {
		panic("solver: terminal range size does not match score table")
	}

	return showdownCFV(heroCombos, oppReach, heroT, oppT, payWin, payTie, payLose), nil
}

// foldCFV pays a constant amount against every valid opponent holding.
func foldCFV(heroCombos, oppCombos []notation.Combo, oppReach []float64, payoff float64) []float64 {
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

	cfv := make([]float64, len(heroCombos))
	for i, h := range heroCombos {
		valid := total - perCard[h.Card1] - perCard[h.Card2] + exact[h]
		cfv[i] = payoff * valid
	}
	return cfv
}

// showdownCFV sweeps both ranges in hand-strength order, maintaining
// cumulative opponent reach (total and per card) over strictly weaker
// hands, plus the current tie group, so each hero hand's win/tie/lose
// breakdown with exact card removal costs O(1) after the sort.
func showdownCFV(heroCombos []notation.Combo, oppReach []float64, heroT, oppT *handTable, payWin, payTie, payLose float64) []float64 {
	numOpp := len(oppT.combos)

	var allTotal float64
	var allPerCard [cards.NumCards]float64
	for i, o := range oppT.combos {
		w := oppReach[i]
		allTotal += w
		allPerCard[o.Card1] += w
		allPerCard[o.Card2] += w
	}

	cfv := make([]float64, len(heroCombos))

	var cumTotal float64
	var cumPerCard [cards.NumCards]float64
	var groupPerCard [cards.NumCards]float64

	i, j := 0, 0
	for i < len(heroCombos) {
		s := heroT.score[heroT.order[i]]

		for j < numOpp && oppT.score[oppT.order[j]] < s {
			o := oppT.combos[oppT.order[j]]
			w := oppReach[oppT.order[j]]
			cumTotal += w
			cumPerCard[o.Card1] += w
			cumPerCard[o.Card2] += w
			j++
		}

		// The opponent hands tying this score form a group shared by every
		// hero hand of the same score; it is not folded into the strictly-
		// weaker sums until the hero score advances past it.
		var groupTotal float64
		var groupCards []cards.Card
		for k := j; k < numOpp && oppT.score[oppT.order[k]] == s; k++ {
			o := oppT.combos[oppT.order[k]]
			w := oppReach[oppT.order[k]]
			groupTotal += w
			groupPerCard[o.Card1] += w
			groupPerCard[o.Card2] += w
			groupCards = append(groupCards, o.Card1, o.Card2)
		}

		for i < len(heroCombos) && heroT.score[heroT.order[i]] == s {
			hi := heroT.order[i]
			h := heroT.combos[hi]
			exact := oppT.exactReach(h, oppReach)
			weaker := cumTotal - cumPerCard[h.Card1] - cumPerCard[h.Card2]
			ties := groupTotal - groupPerCard[h.Card1] - groupPerCard[h.Card2] + exact
			valid := allTotal - allPerCard[h.Card1] - allPerCard[h.Card2] + exact
			cfv[hi] = payLose*valid + (payWin-payLose)*weaker + (payTie-payLose)*ties
			i++
		}

		for _, c := range groupCards {
			groupPerCard[c] = 0
		}
	}
	return cfv
}

// handTable caches one player's effective combos at a completed board,
// their 7-card scores, and the ascending-score iteration order.
type handTable struct {
	combos []notation.Combo
	score  []int32
	order  []int32
	index  map[notation.Combo]int32
}

// exactReach returns the opponent's reach on exactly the hero's two cards
// (physically impossible to hold against the hero, so it must be backed
// out of card-removal sums).
func (t *handTable) exactReach(h notation.Combo, reach []float64) float64 {
	if i, ok := t.index[h]; ok {
		return reach[i]
	}
	return 0
}

// boardEval holds both players' hand tables for one river board.
type boardEval struct {
	tables [2]*handTable
}

// scoreCache memoizes per-board hand tables across iterations. Guarded by
// a mutex because parallel subtree tasks reach river terminals
// concurrently; after the first iteration every board is a cache hit.
type scoreCache struct {
	mu sync.Mutex
	m  map[cards.Mask]*boardEval
}

func newScoreCache() *scoreCache {
	return &scoreCache{m: make(map[cards.Mask]*boardEval)}
}

func (c *scoreCache) boardEvalAt(g *game.PostFlopGame, idx int32) (*boardEval, error) {
	n := &g.Nodes[idx]
	board := g.CardConfig.Board()
	if n.Turn != nil {
		board = append(board, *n.Turn)
	}
	if n.River != nil {
		board = append(board, *n.River)
	}
	return c.boardEvalFor(g, board)
}

// boardEvalFor builds (or returns the cached) hand tables for a complete
// five-card board: each player's starting range filtered by the board.
func (c *scoreCache) boardEvalFor(g *game.PostFlopGame, board cards.Board) (*boardEval, error) {
	if len(board) != 5 {
		return nil, errs.NewStateError("showdown with %d board cards", len(board))
	}
	mask := cards.BoardMask(board...)

	c.mu.Lock()
	defer c.mu.Unlock()
	if be, ok := c.m[mask]; ok {
		return be, nil
	}

	be := &boardEval{}
	ranges := [2]notation.Range{g.CardConfig.RangeOOP, g.CardConfig.RangeIP}
	for _, pl := range []tree.Player{tree.OOP, tree.IP} {
		t, err := buildHandTable(ranges[pl].RemoveBlockers(mask), board)
		if err != nil {
			return nil, err
		}
		be.tables[pl] = t
	}
	c.m[mask] = be
	return be, nil
}

func buildHandTable(r notation.Range, board cards.Board) (*handTable, error) {
	combos := r.Combos()
	t := &handTable{
		combos: combos,
		score:  make([]int32, len(combos)),
		order:  make([]int32, len(combos)),
		index:  make(map[notation.Combo]int32, len(combos)),
	}
	hand := make([]cards.Card, 7)
	copy(hand[2:], board)
	for i, cb := range combos {
		hand[0], hand[1] = cb.Card1, cb.Card2
		s, err := eval.ScoreSlice(hand)
		if err != nil {
			return nil, err
		}
		t.score[i] = s
		t.order[i] = int32(i)
		t.index[cb] = int32(i)
	}
	sortByScore(t.order, t.score)
	return t, nil
}

// sortByScore orders indices by ascending score (insertion sort is fine at
// range sizes; this runs once per board).
func sortByScore(order []int32, score []int32) {
	for i := 1; i < len(order); i++ {
		x := order[i]
		j := i - 1
		for j >= 0 && score[order[j]] > score[x] {
			order[j+1] = order[j]
			j--
		}
		order[j+1] = x
	}
}
