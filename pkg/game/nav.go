package game

import (
	"github.com/bkushigian/postflop-solver/pkg/cards"
	"github.com/bkushigian/postflop-solver/pkg/errs"
	"github.com/bkushigian/postflop-solver/pkg/notation"
	"github.com/bkushigian/postflop-solver/pkg/tree"
)

// Navigation moves a cursor around the arena. The cursor starts at the
// root; Play follows a player action, Deal follows a chance card, and
// BackToRoot rewinds. Navigation never mutates payloads.

// CurrentIndex returns the cursor's arena index.
func (g *PostFlopGame) CurrentIndex() int32 { return g.cursor }

// CurrentNode returns the node under the cursor.
func (g *PostFlopGame) CurrentNode() *Node { return &g.Nodes[g.cursor] }

// BackToRoot rewinds the cursor to the arena root.
func (g *PostFlopGame) BackToRoot() {
	g.cursor = 0
	g.history = g.history[:0]
}

// Actions returns the actions available at the cursor. Empty at chance and
// terminal nodes.
func (g *PostFlopGame) Actions() []notation.Action {
	n := g.CurrentNode()
	if n.Kind() != tree.PlayerNodeKind {
		return nil
	}
	return n.Actions()
}

// ActionIndex returns the position of a within Actions(), or -1 if a is
// not available at the cursor.
func (g *PostFlopGame) ActionIndex(a notation.Action) int {
	for i, b := range g.Actions() {
		if a == b {
			return i
		}
	}
	return -1
}

// Play advances the cursor along a player action. Terminal children are
// navigable. Moving onto a street beyond the allocated storage mode is a
// state error, not a crash.
func (g *PostFlopGame) Play(a notation.Action) error {
	n := g.CurrentNode()
	if n.Kind() != tree.PlayerNodeKind {
		return errs.NewStateError("cannot play an action at a %s node", kindName(n))
	}
	i := g.ActionIndex(a)
	if i < 0 {
		return errs.NewStateError("action %s not available here", a)
	}
	return g.moveToChild(int32(i))
}

// Deal advances the cursor through a chance node by selecting the dealt
// card.
func (g *PostFlopGame) Deal(c cards.Card) error {
	n := g.CurrentNode()
	if !n.IsChance() {
		return errs.NewStateError("cannot deal a card at a %s node", kindName(n))
	}
	base := g.cursor + n.ChildrenOffset
	for i := int32(0); i < n.NumChildren; i++ {
		child := &g.Nodes[base+i]
		dealt := child.River
		if child.Street == cards.Turn {
			dealt = child.Turn
		}
		if dealt != nil && *dealt == c {
			return g.moveToChild(i)
		}
	}
	return errs.NewStateError("card %s cannot be dealt here", c)
}

func (g *PostFlopGame) moveToChild(i int32) error {
	n := g.CurrentNode()
	child := g.cursor + n.ChildrenOffset + i
	if g.StrategyPool != nil && g.Nodes[child].Street > cards.BoardState(g.StorageMode) {
		return errs.NewStateError("cannot navigate onto the %s: storage mode is %s",
			g.Nodes[child].Street, g.StorageMode)
	}
	g.cursor = child
	g.history = append(g.history, i)
	return nil
}

// History returns the sequence of child indices taken from the root to the
// cursor.
func (g *PostFlopGame) History() []int32 { return g.history }

// ApplyHistory replays a child-index sequence from the root.
func (g *PostFlopGame) ApplyHistory(h []int32) error {
	g.BackToRoot()
	for _, i := range h {
		n := g.CurrentNode()
		if i < 0 || i >= n.NumChildren {
			return errs.NewStateError("history step %d out of range", i)
		}
		if err := g.moveToChild(i); err != nil {
			return err
		}
	}
	return nil
}

// ComputeHistoryRecursive searches the arena depth-first for target and
// returns the child-index path from the root to it.
func (g *PostFlopGame) ComputeHistoryRecursive(target int32) ([]int32, error) {
	if target < 0 || target >= int32(len(g.Nodes)) {
		return nil, errs.NewStateError("node index %d out of range", target)
	}
	var path []int32
	var walk func(idx int32) bool
	walk = func(idx int32) bool {
		if idx == target {
			return true
		}
		n := &g.Nodes[idx]
		for i := int32(0); i < n.NumChildren; i++ {
			path = append(path, i)
			if walk(idx + n.ChildrenOffset + i) {
				return true
			}
			path = path[:len(path)-1]
		}
		return false
	}
	if !walk(0) {
		return nil, errs.NewStateError("node %d is unreachable from the root", target)
	}
	return path, nil
}

// Strategy returns the average strategy at the cursor, action-major: the
// probability of action a with hand h is at index a*numHands + h. Locked
// nodes return the locked override. Untrained nodes return uniform play.
func (g *PostFlopGame) Strategy() ([]float64, error) {
	n := g.CurrentNode()
	if n.Kind() != tree.PlayerNodeKind {
		return nil, errs.NewStateError("no strategy at a %s node", kindName(n))
	}
	if g.StrategyPool == nil {
		return nil, errs.NewStateError("no storage allocated")
	}
	if locked, ok := g.LockFor(g.cursor); ok {
		out := make([]float64, len(locked))
		copy(out, locked)
		return out, nil
	}
	if n.StorageOffsetsUnset() {
		return nil, errs.NewStateError("node is beyond the %s storage mode", g.StorageMode)
	}

	numActions := len(n.Actions())
	numHands := n.strategyLen() / numActions
	raw := g.StrategyPool.Slice(n.Storage1Off, n.strategyLen(), n.Scale1)

	out := make([]float64, len(raw))
	for h := 0; h < numHands; h++ {
		var sum float64
		for a := 0; a < numActions; a++ {
			sum += raw[a*numHands+h]
		}
		for a := 0; a < numActions; a++ {
			if sum > 0 {
				out[a*numHands+h] = raw[a*numHands+h] / sum
			} else {
				out[a*numHands+h] = 1.0 / float64(numActions)
			}
		}
	}
	return out, nil
}

// PrivateCards returns the given player's hole-card combos at the cursor,
// in the deterministic order the storage vectors are indexed by: the
// starting range filtered by every board card dealt along the path.
func (g *PostFlopGame) PrivateCards(p tree.Player) []notation.Combo {
	return g.rangeAt(g.CurrentNode(), p).Combos()
}

// RangeAt returns a player's effective weighted range at an arena node.
func (g *PostFlopGame) RangeAt(idx int32, p tree.Player) notation.Range {
	return g.rangeAt(&g.Nodes[idx], p)
}

func (g *PostFlopGame) rangeAt(n *Node, p tree.Player) notation.Range {
	dead := cards.BoardMask(g.CardConfig.Board()...)
	if n.Turn != nil {
		dead = dead.Add(*n.Turn)
	}
	if n.River != nil {
		dead = dead.Add(*n.River)
	}
	r := g.CardConfig.RangeOOP
	if p == tree.IP {
		r = g.CardConfig.RangeIP
	}
	return r.RemoveBlockers(dead)
}

func kindName(n *Node) string {
	switch n.Kind() {
	case tree.PlayerNodeKind:
		return "player"
	case tree.ChanceNodeKind:
		return "chance"
	default:
		return "terminal"
	}
}
