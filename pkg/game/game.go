package game

import (
	"sync"
	"unsafe"

	"github.com/bkushigian/postflop-solver/pkg/cards"
	"github.com/bkushigian/postflop-solver/pkg/errs"
	"github.com/bkushigian/postflop-solver/pkg/tree"
)

// PostFlopGame is the concrete game tree: an ActionTree crossed with
// chance deals, backed by a dense node arena and four shared byte pools.
// The arena is immutable in topology after Build; only payload bytes and
// the locking map mutate during solving.
type PostFlopGame struct {
	ActionTree *tree.ActionTree
	CardConfig *CardConfig

	Nodes []Node

	StrategyPool *Pool // storage1 at Player nodes: per-hand, per-action strategy sums
	RegretPool   *Pool // storage2: per-hand, per-action regrets (Player nodes) or OOP CFV scratch (other nodes)
	IPCFVPool    *Pool // storage3: per-hand CFV for IP, present at every node
	ChancePool   *Pool // storage1 at Chance nodes: per-card deal weights

	State       State
	StorageMode StorageMode
	Compressed  bool

	lockMu          sync.Mutex
	lockingStrategy map[int32][]float64 // node index -> per-hand-per-action strategy override

	cursor  int32   // current navigation position, see Play/BackToRoot
	history []int32 // child indices taken from the root to the cursor
}

// Root returns the arena's root node.
func (g *PostFlopGame) Root() *Node { return &g.Nodes[0] }

// Children returns the slice of a node's children.
func (g *PostFlopGame) Children(n *Node) []Node {
	if n.NumChildren == 0 {
		return nil
	}
	idx := g.indexOf(n)
	start := idx + n.ChildrenOffset
	return g.Nodes[start : start+n.NumChildren]
}

// indexOf recovers a node's arena index from its address. Valid only for
// nodes obtained from g.Nodes.
func (g *PostFlopGame) indexOf(n *Node) int32 {
	base := uintptr(unsafe.Pointer(&g.Nodes[0]))
	ptr := uintptr(unsafe.Pointer(n))
	return int32((ptr - base) / unsafe.Sizeof(g.Nodes[0]))
}

// AllocateMemory performs phase 4 (§4.2): walks the arena assigning each
// node its storage offsets within the shared pools sized by cumulative
// prefix sum, then allocates the pools themselves. Idempotent: calling it
// again with the same compression flag is a no-op: with a different flag
// it is an error, matching the re-allocation contract.
func (g *PostFlopGame) AllocateMemory(compressed bool) error {
	return g.allocate(cards.River, compressed)
}

// AllocateMemoryUpTo allocates pools sized for only streets at or below
// target, leaving nodes beyond it with sentinel (unset) storage offsets.
func (g *PostFlopGame) AllocateMemoryUpTo(target cards.BoardState, compressed bool) error {
	return g.allocate(target, compressed)
}

func (g *PostFlopGame) allocate(target cards.BoardState, compressed bool) error {
	if g.State == Uninitialized || g.State == ConfigError {
		return errs.NewStateError("cannot allocate memory before a tree is built (state=%s)", g.State)
	}
	if g.StrategyPool != nil {
		if g.Compressed != compressed {
			return errs.NewStateError("cannot re-allocate with a different compression flag")
		}
		if fromBoardState(target) == g.StorageMode {
			return nil
		}
		return errs.NewStateError("cannot re-allocate with a different storage mode (have %s)", g.StorageMode)
	}

	var strategyTotal, regretTotal, ipTotal, chanceTotal int64
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Street > target {
			n.Storage1Off = sentinelOffset
			n.Storage2Off = sentinelOffset
			n.Storage3Off = sentinelOffset
			continue
		}
		// Chance nodes carry no strategy, so their Storage1Off indexes the
		// chance pool instead of the strategy pool.
		if n.IsChance() {
			n.Storage1Off = chanceTotal
			chanceTotal += int64(n.chanceLen())
		} else {
			n.Storage1Off = strategyTotal
			strategyTotal += int64(n.strategyLen())
		}
		n.Storage2Off = regretTotal
		n.Storage3Off = ipTotal
		regretTotal += int64(n.storage2Len())
		ipTotal += int64(n.storage3Len())
	}

	g.StrategyPool = NewPool(strategyTotal, compressed)
	g.RegretPool = NewPool(regretTotal, compressed)
	g.IPCFVPool = NewPool(ipTotal, compressed)
	g.ChancePool = NewPool(chanceTotal, compressed)
	g.Compressed = compressed

	for i := range g.Nodes {
		g.Nodes[i].IsCompressed = compressed
	}

	g.fillChanceWeights(target)

	g.State = MemoryAllocated
	g.StorageMode = fromBoardState(target)
	return nil
}

// fillChanceWeights writes each chance node's per-card deal weight. With
// both players holding two unseen cards, every card not on the board is
// equally likely, so the weight is uniform over the deals that remain
// possible once the four hole cards are accounted for.
func (g *PostFlopGame) fillChanceWeights(target cards.BoardState) {
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if !n.IsChance() || n.Street > target {
			continue
		}
		deals := int(n.NumElements) - 4
		if deals < 1 {
			deals = 1
		}
		w := make([]float64, n.chanceLen())
		for j := range w {
			w[j] = 1.0 / float64(deals)
		}
		g.ChancePool.SetSlice(n.Storage1Off, w, &n.Scale1)
	}
}

// LockCurrentStrategy stores a per-hand, per-action strategy override for
// a node, keyed by arena index. The solver consults this map before
// computing sigma and never updates regrets there. Guarded by lockMu since
// lock/unlock are the only operations permitted to mutate the map outside
// the solver's hot loop (§5).
func (g *PostFlopGame) LockCurrentStrategy(nodeIdx int32, strategy []float64) error {
	n := &g.Nodes[nodeIdx]
	want := n.strategyLen()
	if len(strategy) != want {
		return errs.NewLockError("node %d expects a strategy of length %d, got %d", nodeIdx, want, len(strategy))
	}

	g.lockMu.Lock()
	defer g.lockMu.Unlock()
	if g.lockingStrategy == nil {
		g.lockingStrategy = make(map[int32][]float64)
	}
	g.lockingStrategy[nodeIdx] = strategy
	n.IsLocked = true
	return nil
}

// ClearLock removes a lock from a node.
func (g *PostFlopGame) ClearLock(nodeIdx int32) {
	g.lockMu.Lock()
	defer g.lockMu.Unlock()
	delete(g.lockingStrategy, nodeIdx)
	g.Nodes[nodeIdx].IsLocked = false
}

// LockFor returns the locked strategy for a node index, if any. Safe to
// call during solving: the map is read-only while a solve is in progress.
func (g *PostFlopGame) LockFor(nodeIdx int32) ([]float64, bool) {
	s, ok := g.lockingStrategy[nodeIdx]
	return s, ok
}

// LockingStrategy exposes the full lock map, e.g. for persistence.
func (g *PostFlopGame) LockingStrategy() map[int32][]float64 {
	return g.lockingStrategy
}

// SetLockingStrategy replaces the lock map wholesale, e.g. when restoring
// locks after a resolve pass.
func (g *PostFlopGame) SetLockingStrategy(m map[int32][]float64) {
	g.lockMu.Lock()
	defer g.lockMu.Unlock()
	g.lockingStrategy = m
	for i := range g.Nodes {
		_, locked := m[int32(i)]
		g.Nodes[i].IsLocked = locked
	}
}

// StrategyCount, RegretCount, IPCFVCount, and ChanceCount expose each
// node's pool slice lengths for the solver and the snapshot codec.
func (n *Node) StrategyCount() int { return n.strategyLen() }
func (n *Node) RegretCount() int   { return n.storage2Len() }
func (n *Node) IPCFVCount() int    { return n.storage3Len() }
func (n *Node) ChanceCount() int   { return n.chanceLen() }

// Adopt replaces g's contents with other's, field by field, releasing g's
// previous storage. Used by the in-place reload-and-resolve path.
func (g *PostFlopGame) Adopt(other *PostFlopGame) {
	g.lockMu.Lock()
	defer g.lockMu.Unlock()
	g.ActionTree = other.ActionTree
	g.CardConfig = other.CardConfig
	g.Nodes = other.Nodes
	g.StrategyPool = other.StrategyPool
	g.RegretPool = other.RegretPool
	g.IPCFVPool = other.IPCFVPool
	g.ChancePool = other.ChancePool
	g.State = other.State
	g.StorageMode = other.StorageMode
	g.Compressed = other.Compressed
	g.lockingStrategy = other.lockingStrategy
	g.cursor = 0
	g.history = nil
}

// chanceLen returns the chance_pool slice length for a node: one weight
// per dealable card at Chance nodes, zero otherwise.
func (n *Node) chanceLen() int {
	if n.Kind() != tree.ChanceNodeKind {
		return 0
	}
	return int(n.NumChildren)
}

// strategyLen returns the strategy_pool slice length for a node: the
// acting player's effective range size times the node's action count for
// Player nodes, zero otherwise.
func (n *Node) strategyLen() int {
	if n.Kind() != tree.PlayerNodeKind {
		return 0
	}
	acting := n.OOPLen
	if n.ActingPlayer() == tree.IP {
		acting = n.IPLen
	}
	return acting * len(n.Actions())
}

// storage2Len returns the regret_or_cfv_pool slice length: the same shape
// as strategyLen for Player nodes (regrets mirror the strategy axes), or
// the OOP range size elsewhere (a scratch CFV vector). The asymmetry
// against storage3 exists because regret-matching applies only to the
// acting player.
func (n *Node) storage2Len() int {
	if n.Kind() == tree.PlayerNodeKind {
		return n.strategyLen()
	}
	return n.OOPLen
}

// storage3Len returns the ip_cfv_pool slice length: the IP range size,
// present uniformly at every node so IP's counterfactual values can
// propagate regardless of whose decision the node represents.
func (n *Node) storage3Len() int {
	return n.IPLen
}
