package game

import (
	"github.com/bkushigian/postflop-solver/pkg/cards"
	"github.com/bkushigian/postflop-solver/pkg/notation"
	"github.com/bkushigian/postflop-solver/pkg/tree"
)

// StorageMode records which streets are backed by allocated byte-pool
// storage.
type StorageMode uint8

const (
	StorageFlop StorageMode = iota
	StorageTurn
	StorageRiver
)

// String returns the storage mode's street name.
func (m StorageMode) String() string {
	switch m {
	case StorageFlop:
		return "flop"
	case StorageTurn:
		return "turn"
	default:
		return "river"
	}
}

// fromBoardState converts a cards.BoardState to the corresponding
// StorageMode; the two enums share ordering by construction.
func fromBoardState(s cards.BoardState) StorageMode { return StorageMode(s) }

// State is the PostFlopGame lifecycle state.
type State uint8

const (
	Uninitialized State = iota
	ConfigError
	TreeBuilt
	MemoryAllocated
	SolvedFlop
	SolvedTurn
	Solved
)

// String returns the state's name.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case ConfigError:
		return "config_error"
	case TreeBuilt:
		return "tree_built"
	case MemoryAllocated:
		return "memory_allocated"
	case SolvedFlop:
		return "solved_flop"
	case SolvedTurn:
		return "solved_turn"
	case Solved:
		return "solved"
	default:
		return "unknown"
	}
}

// sentinelOffset marks a storage offset as unset, e.g. for streets beyond
// storage_mode.
const sentinelOffset = -1

// Node is the dense, fixed-size arena entry. Every field is a plain value;
// the arena is the sole owner, and children are reached by an offset into
// the same slice rather than by pointer (see DESIGN.md).
type Node struct {
	Src tree.Node // the ActionTree node this arena entry was built from

	Street cards.BoardState
	Turn   *cards.Card
	River  *cards.Card

	NumChildren   int32
	ChildrenOffset int32 // signed distance, in Node units, from this node to its first child

	NumElements uint32 // acting hands x actions (Player), remaining cards (Chance), or OOP x IP hands (Terminal); the IP CFV slice has IP-hand length

	Storage1Off int64
	Storage2Off int64
	Storage3Off int64

	Scale1 float32
	Scale2 float32
	Scale3 float32

	IsLocked     bool
	IsCompressed bool

	// OOPLen/IPLen are the effective (board-filtered) range sizes at this
	// node, used to interpret storage slice layout.
	OOPLen int
	IPLen  int
}

// Kind, ActingPlayer, Actions proxy through to the embedded ActionTree
// node that produced this arena entry.
func (n *Node) Kind() tree.NodeKind         { return n.Src.Kind }
func (n *Node) ActingPlayer() tree.Player   { return n.Src.Turn }
func (n *Node) Actions() []notation.Action  { return n.Src.Actions }
func (n *Node) IsTerminal() bool            { return n.Src.Kind == tree.TerminalNodeKind }
func (n *Node) IsChance() bool              { return n.Src.Kind == tree.ChanceNodeKind }

// StorageOffsetsUnset reports whether this node's storage offsets are
// sentinel values (node allocated but beyond the current storage_mode).
func (n *Node) StorageOffsetsUnset() bool {
	return n.Storage1Off == sentinelOffset
}
