// Package tree implements the abstract betting tree (ActionTree): the
// street-by-street action abstraction independent of specific board
// runouts. PostFlopGame (pkg/game) later crosses this tree with concrete
// chance deals to build the dense solver arena.
package tree

import (
	"github.com/bkushigian/postflop-solver/pkg/cards"
	"github.com/bkushigian/postflop-solver/pkg/notation"
)

// Player identifies which of the two players acts or is scored.
type Player uint8

const (
	OOP Player = iota
	IP
)

// String returns the player's position name.
func (p Player) String() string {
	if p == OOP {
		return "OOP"
	}
	return "IP"
}

// Opponent returns the other player.
func (p Player) Opponent() Player {
	if p == OOP {
		return IP
	}
	return OOP
}

// NodeKind tags an ActionTree Node's role.
type NodeKind uint8

const (
	PlayerNodeKind NodeKind = iota
	ChanceNodeKind
	TerminalNodeKind
)

// TerminalKind classifies how a Terminal node ends the hand.
type TerminalKind uint8

const (
	TerminalFold TerminalKind = iota
	TerminalShowdownAllIn
	TerminalShowdownNormal
)

// String returns the terminal kind's name.
func (k TerminalKind) String() string {
	switch k {
	case TerminalFold:
		return "fold"
	case TerminalShowdownAllIn:
		return "showdown-allin"
	case TerminalShowdownNormal:
		return "showdown"
	default:
		return "unknown"
	}
}

// Node is one entry in the ActionTree's flat node arena. Children, like
// PostFlopGame's dense node records, occupy a contiguous run starting at
// ChildrenStart; this keeps both arenas structurally parallel so
// pkg/game's build walk can mirror this tree one-for-one.
type Node struct {
	Kind NodeKind

	// PrevAction is the edge from this node's parent, zero-valued at root.
	PrevAction notation.Action

	// Player-node fields.
	Turn    Player
	Actions []notation.Action

	// Chance-node fields.
	DealtStreet cards.BoardState

	// Terminal-node fields. Folder is meaningful only for TerminalFold;
	// Contrib records each player's total chips put in since the root, which
	// the solver needs to score terminals net of investment.
	Terminal TerminalKind
	Folder   Player
	Contrib  [2]float64

	// Pot is the pot size entering this node, in chips.
	Pot float64
	// StackBehind is, for Player nodes, the acting player's remaining
	// stack behind their matched contribution.
	StackBehind float64

	ChildrenStart int32
	NumChildren   int32
}

// IsTerminal reports whether this node ends the hand.
func (n *Node) IsTerminal() bool { return n.Kind == TerminalNodeKind }

// ActionTree is the abstract betting tree: a flat arena of Nodes built
// from a TreeConfig alone, with no card information. Node 0 is the root.
type ActionTree struct {
	Config TreeConfig
	Nodes  []Node

	// locks holds deferred set_strategy_lock/clear_lock instructions keyed
	// by a stable textual path (the joined PrevAction.String() sequence
	// from root), applied when PostFlopGame builds its arena. Paths are
	// stable across rebuilds; arena node indices are not.
	locks map[string][]float64

	// addedLines/removedLines are structural edits applied on (re)build:
	// extra actions inserted at a parent path, and full paths pruned from
	// the enumeration. Keyed the same way as locks.
	addedLines   map[string][]notation.Action
	removedLines map[string]bool
}

// Root returns the root node.
func (t *ActionTree) Root() *Node { return &t.Nodes[0] }

// Children returns the slice of a node's children.
func (t *ActionTree) Children(n *Node) []Node {
	if n.NumChildren == 0 {
		return nil
	}
	return t.Nodes[n.ChildrenStart : n.ChildrenStart+int32(n.NumChildren)]
}

// SetStrategyLock stores a deferred strategy override for the node reached
// by the given action path. strategy must have one weight per action at
// that node; the count is checked when the lock is applied, the sum is not.
func (t *ActionTree) SetStrategyLock(path []notation.Action, strategy []float64) {
	if t.locks == nil {
		t.locks = make(map[string][]float64)
	}
	t.locks[pathKey(path)] = strategy
}

// ClearLock removes a deferred lock for the given path, if any.
func (t *ActionTree) ClearLock(path []notation.Action) {
	delete(t.locks, pathKey(path))
}

// LockFor returns the deferred lock strategy for a path, if one is set.
func (t *ActionTree) LockFor(path []notation.Action) ([]float64, bool) {
	s, ok := t.locks[pathKey(path)]
	return s, ok
}

// Locks returns all deferred locks, keyed by path string, for callers that
// walk the tree applying them by path rather than by single lookup.
func (t *ActionTree) Locks() map[string][]float64 {
	return t.locks
}

func pathKey(path []notation.Action) string {
	s := ""
	for _, a := range path {
		s += a.String() + "/"
	}
	return s
}
