package game

import (
	"github.com/bkushigian/postflop-solver/pkg/cards"
	"github.com/bkushigian/postflop-solver/pkg/errs"
	"github.com/bkushigian/postflop-solver/pkg/notation"
	"github.com/bkushigian/postflop-solver/pkg/tree"
)

// maxArenaNodes bounds total node count at 2^32 entries.
const maxArenaNodes = 1 << 32

// Build crosses an ActionTree with a CardConfig to produce the concrete
// PostFlopGame arena; byte-pool allocation is a separate, idempotent
// AllocateMemory step. Node 0 is the root and mirrors ActionTree node 0.
func Build(at *tree.ActionTree, cc *CardConfig) (*PostFlopGame, error) {
	g := &PostFlopGame{ActionTree: at, CardConfig: cc, State: Uninitialized}

	if err := cc.Validate(); err != nil {
		g.State = ConfigError
		return g, err
	}

	if got := cc.Board().State(); got != at.Config.InitialState {
		g.State = ConfigError
		return g, errs.NewConfigError("board is a %s but the tree starts at the %s", got, at.Config.InitialState)
	}

	oopRange, ipRange := cc.EffectiveRanges()
	if len(oopRange) == 0 || len(ipRange) == 0 {
		g.State = ConfigError
		return g, errs.NewConfigError("both ranges must have at least one combo after removing board blockers")
	}

	g.Nodes = append(g.Nodes, Node{})
	deadMask := cards.BoardMask(cc.Board()...)

	bs := buildCtx{at: at, g: g}
	if err := bs.buildAt(0, 0, at.Config.InitialState, deadMask, oopRange, ipRange, nil, nil, ""); err != nil {
		g.State = ConfigError
		return g, err
	}

	if len(g.Nodes) > maxArenaNodes {
		g.State = ConfigError
		return g, errs.NewResourceError("arena too large: %d nodes exceeds 2^32", len(g.Nodes))
	}

	g.State = TreeBuilt
	g.StorageMode = StorageRiver

	if err := g.applyDeferredLocks(at, bs.lockTargets); err != nil {
		g.State = ConfigError
		return g, err
	}
	return g, nil
}

type buildCtx struct {
	at *tree.ActionTree
	g  *PostFlopGame

	// lockTargets records every Player node's arena index together with its
	// action-path key, so the ActionTree's deferred locks can be applied by
	// path once the arena exists. Paths skip chance edges: a lock on
	// "x/b10" covers that spot on every runout.
	lockTargets []lockTarget
}

type lockTarget struct {
	idx  int32
	path string
}

// applyDeferredLocks expands each ActionTree path-lock (one weight per
// action) into the per-hand, action-major vector LockCurrentStrategy
// expects, and installs it on every concrete node matching the path.
func (g *PostFlopGame) applyDeferredLocks(at *tree.ActionTree, targets []lockTarget) error {
	locks := at.Locks()
	if len(locks) == 0 {
		return nil
	}
	for _, t := range targets {
		s, ok := locks[t.path]
		if !ok {
			continue
		}
		n := &g.Nodes[t.idx]
		numActions := len(n.Actions())
		if len(s) != numActions {
			return errs.NewLockError("lock at %q has %d weights for %d actions", t.path, len(s), numActions)
		}
		numHands := n.OOPLen
		if n.ActingPlayer() == tree.IP {
			numHands = n.IPLen
		}
		vec := make([]float64, numActions*numHands)
		for a := 0; a < numActions; a++ {
			for h := 0; h < numHands; h++ {
				vec[a*numHands+h] = s[a]
			}
		}
		if err := g.LockCurrentStrategy(t.idx, vec); err != nil {
			return err
		}
	}
	return nil
}

// buildAt fills g.Nodes[idx] from the ActionTree node at srcIdx, given the
// accumulated dead-card mask and each player's board-filtered range along
// this path, then recurses into its children. Chance nodes in the
// abstract tree have exactly one abstract continuation but fan out here
// into one concrete child per remaining card, each with its own narrowed
// ranges (card-removal).
func (b *buildCtx) buildAt(idx, srcIdx int32, street cards.BoardState, dead cards.Mask, oop, ip notation.Range, turnCard, riverCard *cards.Card, path string) error {
	src := &b.at.Nodes[srcIdx]
	n := Node{
		Src:    *src,
		Street: street,
		Turn:   turnCard,
		River:  riverCard,
		OOPLen: len(oop),
		IPLen:  len(ip),
	}

	switch src.Kind {
	case tree.PlayerNodeKind:
		acting := len(oop)
		if src.Turn == tree.IP {
			acting = len(ip)
		}
		n.NumElements = uint32(acting * len(src.Actions))
	case tree.ChanceNodeKind:
		n.NumElements = uint32(len(cards.RemainingCards(dead)))
	default:
		n.NumElements = uint32(len(oop) * len(ip))
	}

	b.g.Nodes[idx] = n

	if src.Kind == tree.PlayerNodeKind {
		b.lockTargets = append(b.lockTargets, lockTarget{idx: idx, path: path})
	}

	if src.IsTerminal() {
		return nil
	}

	if src.Kind == tree.ChanceNodeKind {
		return b.buildChanceChildren(idx, src, dead, oop, ip, turnCard, path)
	}

	// Player node: one concrete child per abstract child, same street/ranges.
	abstractChildren := b.at.Children(src)
	start := int32(len(b.g.Nodes))
	for range abstractChildren {
		b.g.Nodes = append(b.g.Nodes, Node{})
	}
	b.g.Nodes[idx].ChildrenOffset = start - idx
	b.g.Nodes[idx].NumChildren = int32(len(abstractChildren))

	childSrcStart := src.ChildrenStart
	for i := range abstractChildren {
		childPath := path + abstractChildren[i].PrevAction.String() + "/"
		if err := b.buildAt(start+int32(i), childSrcStart+int32(i), street, dead, oop, ip, turnCard, riverCard, childPath); err != nil {
			return err
		}
	}
	return nil
}

// buildChanceChildren fans a Chance node out into one concrete child per
// remaining card, narrowing both ranges by that card and recursing into
// the single abstract continuation shared by every dealt card.
func (b *buildCtx) buildChanceChildren(idx int32, src *tree.Node, dead cards.Mask, oop, ip notation.Range, pathTurn *cards.Card, path string) error {
	remaining := cards.RemainingCards(dead)
	if len(remaining) == 0 {
		return errs.NewConfigError("no cards remain to deal at street %s", src.DealtStreet)
	}

	start := int32(len(b.g.Nodes))
	for range remaining {
		b.g.Nodes = append(b.g.Nodes, Node{})
	}
	b.g.Nodes[idx].ChildrenOffset = start - idx
	b.g.Nodes[idx].NumChildren = int32(len(remaining))

	// The abstract tree records exactly one continuation for a Chance
	// node (see pkg/tree.Build): the Player node that follows the deal.
	contSrc := src.ChildrenStart
	dealtStreet := src.DealtStreet

	for i, c := range remaining {
		childDead := dead.Add(c)
		childOOP := oop.RemoveBlockers(cards.CardMask(c))
		childIP := ip.RemoveBlockers(cards.CardMask(c))

		// A river deal keeps the turn card already on the path.
		turnCard, riverCard := pathTurn, (*cards.Card)(nil)
		card := c
		if dealtStreet == cards.Turn {
			turnCard = &card
		} else {
			riverCard = &card
		}

		if err := b.buildAt(start+int32(i), contSrc, dealtStreet, childDead, childOOP, childIP, turnCard, riverCard, path); err != nil {
			return err
		}
	}
	return nil
}
