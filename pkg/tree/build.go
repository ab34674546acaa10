package tree

import (
	"math"
	"sort"

	"github.com/bkushigian/postflop-solver/pkg/cards"
	"github.com/bkushigian/postflop-solver/pkg/errs"
	"github.com/bkushigian/postflop-solver/pkg/notation"
)

// Build validates cfg and constructs the abstract ActionTree: a recursive
// descent tracking pot, stacks, and street wagers, with terminal detection
// on fold and on check-check/bet-call, and bet sizes resolved from
// TreeConfig's BetSize options.
//
// Bet/raise chip amounts are "total-to" figures: the total a player has
// wagered on the current street after the action, not the increment.
func Build(cfg TreeConfig) (*ActionTree, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	t := &ActionTree{Config: cfg}
	t.rebuild()
	return t, nil
}

// rebuild reconstructs the node arena from the config plus any recorded
// line edits. Paths (and therefore locks) survive; node indices do not.
func (t *ActionTree) rebuild() {
	t.Nodes = t.Nodes[:0]
	t.Nodes = append(t.Nodes, Node{})

	st := buildState{
		street:      t.Config.InitialState,
		pot:         t.Config.StartingPot,
		stackBehind: [2]float64{t.Config.EffectiveStack, t.Config.EffectiveStack},
		toAct:       OOP,
	}
	t.buildAt(0, st)
}

func validateConfig(cfg TreeConfig) error {
	if cfg.EffectiveStack <= 0 {
		return errs.NewConfigError("effective_stack must be positive, got %v", cfg.EffectiveStack)
	}
	if cfg.StartingPot <= 0 {
		return errs.NewConfigError("starting_pot must be positive, got %v", cfg.StartingPot)
	}
	if cfg.RakeRate < 0 || cfg.RakeRate > 1 {
		return errs.NewConfigError("rake_rate must be in [0,1], got %v", cfg.RakeRate)
	}
	if cfg.RakeCap < 0 {
		return errs.NewConfigError("rake_cap must be >= 0, got %v", cfg.RakeCap)
	}
	if cfg.AddAllInThreshold < 0 || cfg.AddAllInThreshold > 1 {
		return errs.NewConfigError("add_allin_threshold must be in [0,1], got %v", cfg.AddAllInThreshold)
	}
	if cfg.ForceAllInThreshold < 0 || cfg.ForceAllInThreshold > 1 {
		return errs.NewConfigError("force_allin_threshold must be in [0,1], got %v", cfg.ForceAllInThreshold)
	}
	if cfg.MergingThreshold < 0 {
		return errs.NewConfigError("merging_threshold must be >= 0, got %v", cfg.MergingThreshold)
	}
	return nil
}

// buildState threads the information needed to resolve bet sizes and
// detect terminals through the recursive descent, without reference to
// any concrete cards.
type buildState struct {
	street      cards.BoardState
	pot         float64
	stackBehind [2]float64
	wagered     [2]float64 // chips wagered on the current street, per player
	toAct       Player

	facingBet     bool
	lastBet       float64 // highest total-to wager this street
	lastRaiseIncr float64 // size of the most recent raise increment
	streetAggr    Player  // who last bet/raised on this street
	streetOpen    bool    // true once any action has occurred on this street
	isDonkSpot    bool    // OOP may lead into IP's previous-street aggression

	folded              bool
	folder              Player
	streetClosedByCheck bool
	streetClosedByCall  bool

	path string // action-path key from root, e.g. "x/b10.00/"
}

// childSpec describes one child of a node still to be built: the edge
// (action label) plus the resulting build state.
type childSpec struct {
	edge  notation.Action
	state buildState
}

// buildAt fills t.Nodes[idx] from st and recurses into its children, which
// are reserved as a contiguous run immediately following idx.
func (t *ActionTree) buildAt(idx int32, st buildState) {
	if kind, ok := t.checkTerminal(st); ok {
		t.Nodes[idx] = Node{
			Kind:     TerminalNodeKind,
			Terminal: kind,
			Folder:   st.folder,
			Contrib:  st.contributions(t.Config.EffectiveStack),
			Pot:      st.pot,
		}
		return
	}

	if st.streetComplete() && st.street != cards.River {
		t.Nodes[idx] = Node{Kind: ChanceNodeKind, DealtStreet: nextStreet(st.street), Pot: st.pot}
		children := []childSpec{{state: st.dealNext()}}
		t.reserveAndRecurse(idx, children)
		return
	}

	actions, children := t.playerChildren(st)
	t.Nodes[idx] = Node{
		Kind:        PlayerNodeKind,
		Turn:        st.toAct,
		Actions:     actions,
		Pot:         st.pot,
		StackBehind: st.stackBehind[st.toAct],
	}
	t.reserveAndRecurse(idx, children)
}

// reserveAndRecurse allocates a contiguous run of len(children) nodes after
// the arena's current tail, wires idx's ChildrenStart/NumChildren to it,
// then recurses into each reserved slot.
func (t *ActionTree) reserveAndRecurse(idx int32, children []childSpec) {
	if len(children) == 0 {
		return
	}
	start := int32(len(t.Nodes))
	for range children {
		t.Nodes = append(t.Nodes, Node{})
	}
	t.Nodes[idx].ChildrenStart = start
	t.Nodes[idx].NumChildren = int32(len(children))
	for i, c := range children {
		childIdx := start + int32(i)
		t.buildAt(childIdx, c.state)
		t.Nodes[childIdx].PrevAction = c.edge
	}
}

// contributions returns each player's chips invested since the root.
func (st buildState) contributions(effectiveStack float64) [2]float64 {
	return [2]float64{
		effectiveStack - st.stackBehind[OOP],
		effectiveStack - st.stackBehind[IP],
	}
}

// streetComplete reports whether the street's betting action has closed:
// both players checked, the last bet was called, or neither player has
// chips behind (an all-in runout, where no further action is possible).
func (st buildState) streetComplete() bool {
	if st.streetClosedByCheck || st.streetClosedByCall {
		return true
	}
	return !st.facingBet && st.stackBehind[0] == 0 && st.stackBehind[1] == 0
}

// checkTerminal reports whether st represents a hand-ending node.
func (t *ActionTree) checkTerminal(st buildState) (kind TerminalKind, ok bool) {
	if st.folded {
		return TerminalFold, true
	}
	if st.street == cards.River && st.streetComplete() {
		if st.stackBehind[0] == 0 && st.stackBehind[1] == 0 {
			return TerminalShowdownAllIn, true
		}
		return TerminalShowdownNormal, true
	}
	return 0, false
}

// nextStreet returns the street dealt after s.
func nextStreet(s cards.BoardState) cards.BoardState {
	switch s {
	case cards.Flop:
		return cards.Turn
	default:
		return cards.River
	}
}

// dealNext advances st past a Chance node: resets street-local betting
// state for the newly dealt street, with OOP acting first. A donk spot
// arises when IP was the caller-facing aggressor on the closed street.
func (st buildState) dealNext() buildState {
	ns := buildState{
		street:      nextStreet(st.street),
		pot:         st.pot,
		stackBehind: st.stackBehind,
		toAct:       OOP,
		path:        st.path,
	}
	if st.streetClosedByCall {
		ns.streetAggr = st.streetAggr
		ns.isDonkSpot = st.streetAggr == IP
	}
	return ns
}

// playerChildren enumerates the legal actions at a Player node and the
// buildState each leads to, honoring added/removed line edits at this path.
func (t *ActionTree) playerChildren(st buildState) ([]notation.Action, []childSpec) {
	cfg := t.Config
	opts := cfg.streetOptions(st.street)

	var children []childSpec
	p := st.toAct
	allinTotal := st.wagered[p] + st.stackBehind[p]

	if st.facingBet {
		children = append(children, childSpec{notation.Action{Type: notation.Fold}, st.fold()})
		children = append(children, childSpec{notation.Action{Type: notation.Call}, st.call()})

		if st.stackBehind[p] > st.lastBet-st.wagered[p] {
			minRaise := st.lastBet + st.lastRaiseIncr
			sizes := resolveSizes(opts.Raise, st.pot, st.lastBet, minRaise, allinTotal, cfg)
			for _, amt := range sizes {
				a := wagerAction(notation.Raise, amt, allinTotal)
				children = append(children, childSpec{a, st.wagerTo(amt)})
			}
		}
	} else {
		children = append(children, childSpec{notation.Action{Type: notation.Check}, st.check()})

		betOpts := opts.Bet
		if st.isDonkSpot && p == OOP {
			betOpts = opts.Donk
		}
		sizes := resolveSizes(betOpts, st.pot, 0, 1, allinTotal, cfg)
		for _, amt := range sizes {
			a := wagerAction(notation.Bet, amt, allinTotal)
			children = append(children, childSpec{a, st.wagerTo(amt)})
		}
	}

	children = t.applyLineEdits(st, children, allinTotal)

	actions := make([]notation.Action, len(children))
	for i, c := range children {
		actions[i] = c.edge
	}
	return actions, children
}

// applyLineEdits inserts actions added at this path and drops actions whose
// full path has been removed.
func (t *ActionTree) applyLineEdits(st buildState, children []childSpec, allinTotal float64) []childSpec {
	for _, extra := range t.addedLines[st.path] {
		dup := false
		for _, c := range children {
			if c.edge == extra {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		switch extra.Type {
		case notation.Bet, notation.Raise, notation.AllIn:
			amt := extra.Chips
			if amt > allinTotal {
				amt = allinTotal
			}
			a := wagerAction(extra.Type, amt, allinTotal)
			children = append(children, childSpec{a, st.wagerTo(amt)})
		}
	}

	if len(t.removedLines) == 0 {
		return children
	}
	kept := children[:0]
	for _, c := range children {
		if !t.removedLines[st.path+c.edge.String()+"/"] {
			kept = append(kept, c)
		}
	}
	return kept
}

// wagerAction labels a total-to wager as Bet/Raise, or AllIn when it puts
// the whole stack in.
func wagerAction(typ notation.ActionType, amt, allinTotal float64) notation.Action {
	if amt >= allinTotal {
		return notation.Action{Type: notation.AllIn, Chips: allinTotal}
	}
	return notation.Action{Type: typ, Chips: amt}
}

// resolveSizes resolves each configured BetSize against the current
// context, then applies the clamp/dedupe/force-allin filter from the
// tree-building rules: clamp to [minLegal, allin], snap near-allin sizes to
// allin, merge sizes within the relative tolerance, and collapse to allin
// alone once the minimum legal raise is already most of the stack.
func resolveSizes(sizes []BetSize, pot, lastBet, minLegal, allin float64, cfg TreeConfig) []float64 {
	if allin <= 0 {
		return nil
	}
	if minLegal > allin {
		minLegal = allin
	}

	if cfg.ForceAllInThreshold > 0 && minLegal >= cfg.ForceAllInThreshold*allin {
		if len(sizes) == 0 {
			return nil
		}
		return []float64{allin}
	}

	clamped := make([]float64, 0, len(sizes))
	for _, bs := range sizes {
		v := bs.Resolve(pot, lastBet, allin)
		if v < minLegal {
			v = minLegal
		}
		if v > allin {
			v = allin
		}
		if cfg.AddAllInThreshold > 0 && v >= (1-cfg.AddAllInThreshold)*allin {
			v = allin
		}
		clamped = append(clamped, v)
	}

	sort.Float64s(clamped)

	out := make([]float64, 0, len(clamped))
	for _, v := range clamped {
		dup := false
		for _, o := range out {
			if o == v {
				dup = true
				break
			}
			if o > 0 && math.Abs(v-o)/o <= cfg.MergingThreshold {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}

	return out
}

// Transition helpers on buildState. Each returns the state after applying
// one action, updating pot, stacks, facing-bet status, and the bookkeeping
// needed to detect terminals and the next street's donk spot. Every child
// state extends the action-path key with the edge just taken.

func (st buildState) withEdge(a notation.Action) buildState {
	st.path += a.String() + "/"
	return st
}

func (st buildState) fold() buildState {
	ns := st
	ns.folded = true
	ns.folder = st.toAct
	return ns.withEdge(notation.Action{Type: notation.Fold})
}

func (st buildState) call() buildState {
	ns := st
	p := st.toAct
	delta := st.lastBet - st.wagered[p]
	if delta > ns.stackBehind[p] {
		delta = ns.stackBehind[p]
	}
	ns.pot += delta
	ns.stackBehind[p] -= delta
	ns.wagered[p] += delta
	ns.facingBet = false
	ns.streetClosedByCall = true
	ns.toAct = p.Opponent()
	return ns.withEdge(notation.Action{Type: notation.Call})
}

func (st buildState) check() buildState {
	ns := st
	ns.toAct = st.toAct.Opponent()
	if st.streetOpen {
		ns.streetClosedByCheck = true
	}
	ns.streetOpen = true
	return ns.withEdge(notation.Action{Type: notation.Check})
}

// wagerTo applies a bet or raise to a street total of amt chips.
func (st buildState) wagerTo(amt float64) buildState {
	ns := st
	p := st.toAct
	delta := amt - st.wagered[p]
	ns.pot += delta
	ns.stackBehind[p] -= delta
	ns.wagered[p] = amt
	ns.facingBet = true
	ns.lastRaiseIncr = amt - st.lastBet
	ns.lastBet = amt
	ns.streetAggr = p
	ns.streetOpen = true
	ns.toAct = p.Opponent()

	allinTotal := amt + ns.stackBehind[p] // stack already debited; equal iff all-in
	typ := notation.Bet
	if st.facingBet {
		typ = notation.Raise
	}
	return ns.withEdge(wagerAction(typ, amt, allinTotal))
}
